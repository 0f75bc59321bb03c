// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/types"
)

func init() {
	Register(types.RemoteMemory, func(cfg types.RemoteConfig) (Store, error) {
		return NewMemory(), nil
	})
}

// Memory is an in-process store for tests. Each Put consumes the next
// scripted result for its key (per-key scripts first, then the shared
// script); an exhausted script means success. Successful puts retain the
// bytes so tests can assert on uploaded content and call counts.
type Memory struct {
	mu           sync.Mutex
	objects      map[string][]byte
	scripts      map[string][]error
	sharedline   []error
	calls        map[string]int
	totalCalls   int
	latency      time.Duration
	inFlight     int
	peakInFlight int
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty scripted store.
func NewMemory() *Memory {
	return &Memory{
		objects: make(map[string][]byte),
		scripts: make(map[string][]error),
		calls:   make(map[string]int),
	}
}

func (m *Memory) Type() types.RemoteType {
	return types.RemoteMemory
}

// Fail queues results for a specific key, returned in order before puts on
// that key start succeeding.
func (m *Memory) Fail(key string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[key] = append(m.scripts[key], errs...)
}

// FailNext queues results consumed by upcoming puts on any key without its
// own script.
func (m *Memory) FailNext(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sharedline = append(m.sharedline, errs...)
}

// SetLatency makes every Put take at least d, for concurrency-window tests.
func (m *Memory) SetLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = d
}

func (m *Memory) Put(ctx context.Context, key string, r io.Reader, meta Metadata) error {
	m.mu.Lock()
	m.calls[key]++
	m.totalCalls++
	m.inFlight++
	if m.inFlight > m.peakInFlight {
		m.peakInFlight = m.inFlight
	}
	latency := m.latency

	var scripted error
	var hasScripted bool
	if q := m.scripts[key]; len(q) > 0 {
		scripted, hasScripted = q[0], true
		m.scripts[key] = q[1:]
	} else if len(m.sharedline) > 0 {
		scripted, hasScripted = m.sharedline[0], true
		m.sharedline = m.sharedline[1:]
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if latency > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(latency):
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if hasScripted && scripted != nil {
		return scripted
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return &types.TransientError{Err: err}
	}

	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()
	return nil
}

// Calls reports how many puts key has received.
func (m *Memory) Calls(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[key]
}

// TotalCalls reports puts across all keys.
func (m *Memory) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalCalls
}

// PeakInFlight reports the largest number of puts that ran concurrently.
func (m *Memory) PeakInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peakInFlight
}

// Object returns the stored bytes for key.
func (m *Memory) Object(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return data, ok
}

// Len reports the number of stored objects.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func (m *Memory) Close() error {
	return nil
}
