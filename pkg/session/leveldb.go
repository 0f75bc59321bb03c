// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"sort"
	"sync"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/logger"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/types"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/utils"

	"github.com/syndtr/goleveldb/leveldb"
	lderrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

func init() {
	Register(StoreLevelDB, NewLevelDBStore)
}

// LevelDBStore keeps sessions in an embedded leveldb, one record per session
// keyed by identifier. Values use the same JSON encoding as the file store so
// records are portable between backends.
type LevelDBStore struct {
	db  *leveldb.DB
	dir string

	// Saves are the durability point after every chunk transition, so they
	// always fsync. Deletes ride the same options.
	writeOptsSync *opt.WriteOptions

	mu     sync.Mutex
	closed bool
}

var _ Store = (*LevelDBStore)(nil)

// NewLevelDBStore opens (and if necessary recovers) the database at cfg.Dir.
func NewLevelDBStore(cfg Config) (Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("dir required for leveldb session store")
	}
	dir := utils.ResolvePath(cfg.Dir)

	db, err := leveldb.OpenFile(dir, nil)
	if err != nil && !lderrors.IsCorrupted(err) {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	if lderrors.IsCorrupted(err) {
		logger.Warn().Err(err).Str("dir", dir).Msg("session: recovering corrupt db")
		db, err = leveldb.RecoverFile(dir, nil)
		if err != nil {
			return nil, fmt.Errorf("recover session db: %w", err)
		}
	}

	return &LevelDBStore{
		db:            db,
		dir:           dir,
		writeOptsSync: &opt.WriteOptions{Sync: true},
	}, nil
}

func (l *LevelDBStore) Save(s *types.UploadSession) error {
	if s.ID == "" {
		return fmt.Errorf("invalid session id %q", s.ID)
	}

	data, err := encode(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return types.ErrStoreClosed
	}
	if err := l.db.Put([]byte(s.ID), data, l.writeOptsSync); err != nil {
		return fmt.Errorf("write session %s: %w", s.ID, err)
	}
	return nil
}

func (l *LevelDBStore) Load(sessionID string) (*types.UploadSession, error) {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return nil, types.ErrStoreClosed
	}

	data, err := l.db.Get([]byte(sessionID), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
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

func (l *LevelDBStore) List() ([]Summary, error) {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return nil, types.ErrStoreClosed
	}

	var summaries []Summary
	iter := l.db.NewIterator(nil, nil)
	defer iter.Release()

	for iter.Next() {
		s, err := decode(iter.Value())
		if err != nil {
			logger.Warn().Err(err).Str("key", string(iter.Key())).Msg("session: skipping corrupt record")
			continue
		}
		summaries = append(summaries, SummaryOf(s))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].StartTime.Equal(summaries[j].StartTime) {
			return summaries[i].ID < summaries[j].ID
		}
		return summaries[i].StartTime.Before(summaries[j].StartTime)
	})
	return summaries, nil
}

func (l *LevelDBStore) Delete(sessionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return types.ErrStoreClosed
	}

	has, err := l.db.Has([]byte(sessionID), nil)
	if err != nil {
		return fmt.Errorf("check session %s: %w", sessionID, err)
	}
	if !has {
		return types.ErrSessionNotFound
	}
	if err := l.db.Delete([]byte(sessionID), l.writeOptsSync); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

func (l *LevelDBStore) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.db.Close()
}
