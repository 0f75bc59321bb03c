// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

// Package session provides durable storage for upload sessions.
// All backends implement the Store interface and register a factory.
package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/types"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/utils"
)

// StoreType identifies the session store implementation
type StoreType string

const (
	StoreFile    StoreType = "file"    // one JSON record per session in a directory
	StoreLevelDB StoreType = "leveldb" // embedded key-value store
	StoreMemory  StoreType = "memory"  // in-process (tests, embedding)
)

// Config selects and configures a session store
type Config struct {
	Type StoreType `json:"type"`
	Dir  string    `json:"dir,omitempty"`
}

// Store owns the durable representation of upload sessions. Implementations
// serialize writes per session: no two Save calls for the same session run
// concurrently.
type Store interface {
	// Save fully overwrites the persisted record for s.ID.
	Save(s *types.UploadSession) error

	// Load reconstructs the manifest exactly as last saved, including chunk
	// order and statuses. Unknown identifiers return types.ErrSessionNotFound.
	Load(sessionID string) (*types.UploadSession, error)

	// List returns summaries of every persisted session, ordered by start time.
	List() ([]Summary, error)

	// Delete removes the persisted record.
	Delete(sessionID string) error

	Close() error
}

// Registry holds registered store factories
var (
	registryMu sync.RWMutex
	registry   = make(map[StoreType]Factory)
)

// Factory creates a Store from config
type Factory func(cfg Config) (Store, error)

// Register adds a factory for a store type
func Register(t StoreType, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[t] = f
}

// Open creates a Store from config
func Open(cfg Config) (Store, error) {
	registryMu.RLock()
	f, ok := registry[cfg.Type]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown session store type: %s", cfg.Type)
	}
	return f(cfg)
}

// Create builds a session record from a finished plan and persists it
// immediately. The identifier in p must be the one the planner embedded in
// the chunk IDs (see types.NewSessionID).
func Create(st Store, p types.SessionParams) (*types.UploadSession, error) {
	if p.ID == "" {
		return nil, fmt.Errorf("session id required")
	}
	s := types.NewUploadSession(p)
	if err := st.Save(s); err != nil {
		return nil, fmt.Errorf("persist session %s: %w", p.ID, err)
	}
	return s, nil
}

// Summary is the listing view of a persisted session.
type Summary struct {
	ID             string    `json:"session_id"`
	RepoTarget     string    `json:"repo_target"`
	SourcePath     string    `json:"source_path"`
	TotalSize      int64     `json:"total_size"`
	TotalChunks    int       `json:"total_chunks"`
	UploadedChunks int       `json:"uploaded_chunks"`
	FailedChunks   int       `json:"failed_chunks"`
	Progress       float64   `json:"progress_percentage"`
	Completed      bool      `json:"completed"`
	StartTime      time.Time `json:"start_time"`
}

// SummaryOf derives the listing view from a full session record.
func SummaryOf(s *types.UploadSession) Summary {
	return Summary{
		ID:             s.ID,
		RepoTarget:     s.RepoTarget,
		SourcePath:     s.SourcePath,
		TotalSize:      s.TotalSize,
		TotalChunks:    s.TotalChunks(),
		UploadedChunks: s.UploadedChunks(),
		FailedChunks:   len(s.FailedChunks()),
		Progress:       s.Progress,
		Completed:      s.Completed,
		StartTime:      s.StartTime,
	}
}

// encode is the single record format shared by every backend, so a session
// written by one store reads identically from another. A record re-encodes on
// every chunk transition, so the scratch buffer is pooled.
func encode(s *types.UploadSession) ([]byte, error) {
	buf := utils.SyncPoolGetBuffer()
	defer utils.SyncPoolPutBuffer(buf)

	enc := json.NewEncoder(buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

func decode(data []byte) (*types.UploadSession, error) {
	var s types.UploadSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
