// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/types"

	"github.com/google/btree"
)

func init() {
	Register(StoreMemory, func(cfg Config) (Store, error) {
		return NewMemoryStore(), nil
	})
}

// sessionTimeItem implements btree.Item for time-ordered session listing.
// Orders by start time first, then by id when timestamps collide.
type sessionTimeItem struct {
	startTime time.Time
	id        string
}

func (a *sessionTimeItem) Less(b btree.Item) bool {
	other := b.(*sessionTimeItem)
	if a.startTime.Equal(other.startTime) {
		return a.id < other.id
	}
	return a.startTime.Before(other.startTime)
}

// MemoryStore keeps sessions in process memory, for tests and embedding.
// Records are held in encoded form so Save/Load round-trips behave exactly
// like the durable backends and callers never alias the stored record.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
	byTime  *btree.BTree
	closed  bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-process session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string][]byte),
		byTime:  btree.New(8),
	}
}

func (m *MemoryStore) Save(s *types.UploadSession) error {
	if s.ID == "" {
		return fmt.Errorf("invalid session id %q", s.ID)
	}

	data, err := encode(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return types.ErrStoreClosed
	}
	m.records[s.ID] = data
	m.byTime.ReplaceOrInsert(&sessionTimeItem{startTime: s.StartTime, id: s.ID})
	return nil
}

func (m *MemoryStore) Load(sessionID string) (*types.UploadSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, types.ErrStoreClosed
	}

	data, ok := m.records[sessionID]
	if !ok {
		return nil, types.ErrSessionNotFound
	}
	return decode(data)
}

func (m *MemoryStore) List() ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, types.ErrStoreClosed
	}

	summaries := make([]Summary, 0, len(m.records))
	var walkErr error
	m.byTime.Ascend(func(item btree.Item) bool {
		it := item.(*sessionTimeItem)
		data, ok := m.records[it.id]
		if !ok {
			return true
		}
		s, err := decode(data)
		if err != nil {
			walkErr = err
			return false
		}
		summaries = append(summaries, SummaryOf(s))
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return summaries, nil
}

func (m *MemoryStore) Delete(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return types.ErrStoreClosed
	}

	data, ok := m.records[sessionID]
	if !ok {
		return types.ErrSessionNotFound
	}
	s, err := decode(data)
	if err == nil {
		m.byTime.Delete(&sessionTimeItem{startTime: s.StartTime, id: s.ID})
	}
	delete(m.records, sessionID)
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
