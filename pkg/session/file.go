// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/logger"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/types"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/utils"
)

func init() {
	Register(StoreFile, NewFileStore)
}

// FileStore keeps one JSON record per session at <dir>/<sessionID>.json.
// Records are written atomically (temp file, fdatasync, rename) so a crash
// mid-save never leaves a truncated manifest behind.
type FileStore struct {
	dir string

	mu     sync.Mutex
	closed bool
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a file-backed session store rooted at cfg.Dir.
func NewFileStore(cfg Config) (Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("dir required for file session store")
	}
	dir := utils.ResolvePath(cfg.Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(sessionID string) string {
	return filepath.Join(f.dir, sessionID+".json")
}

// validID rejects identifiers that would escape the session directory.
func validID(sessionID string) bool {
	return sessionID != "" && !strings.ContainsAny(sessionID, `/\`) && sessionID != "." && sessionID != ".."
}

func (f *FileStore) Save(s *types.UploadSession) error {
	if !validID(s.ID) {
		return fmt.Errorf("invalid session id %q", s.ID)
	}

	data, err := encode(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return types.ErrStoreClosed
	}
	if err := utils.WriteFileAtomic(f.path(s.ID), data, 0o644); err != nil {
		return fmt.Errorf("write session %s: %w", s.ID, err)
	}
	return nil
}

func (f *FileStore) Load(sessionID string) (*types.UploadSession, error) {
	if !validID(sessionID) {
		return nil, types.ErrSessionNotFound
	}

	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return nil, types.ErrStoreClosed
	}

	data, err := os.ReadFile(f.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.ErrSessionNotFound
		}
		return nil, fmt.Errorf("read session %s: %w", sessionID, err)
	}
	s, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return s, nil
}

func (f *FileStore) List() ([]Summary, error) {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return nil, types.ErrStoreClosed
	}

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("read session dir: %w", err)
	}

	summaries := make([]Summary, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(f.dir, e.Name()))
		if err != nil {
			logger.Warn().Err(err).Str("file", e.Name()).Msg("session: skipping unreadable record")
			continue
		}
		s, err := decode(data)
		if err != nil {
			logger.Warn().Err(err).Str("file", e.Name()).Msg("session: skipping corrupt record")
			continue
		}
		summaries = append(summaries, SummaryOf(s))
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].StartTime.Equal(summaries[j].StartTime) {
			return summaries[i].ID < summaries[j].ID
		}
		return summaries[i].StartTime.Before(summaries[j].StartTime)
	})
	return summaries, nil
}

func (f *FileStore) Delete(sessionID string) error {
	if !validID(sessionID) {
		return types.ErrSessionNotFound
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return types.ErrStoreClosed
	}

	err := os.Remove(f.path(sessionID))
	if os.IsNotExist(err) {
		return types.ErrSessionNotFound
	}
	return err
}

func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
