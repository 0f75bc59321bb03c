// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

// Package remote provides the remote object store contract and its backends.
//
// Every backend maps its transport's failures onto the same four-way result:
// nil for success, *types.RateLimitedError carrying a reset time,
// *types.TransientError for failures worth retrying, and
// *types.PermanentError for rejections retrying cannot fix. The scheduler
// depends only on this contract, never on a backend's wire details.
package remote

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/types"
)

// Metadata accompanies every chunk upload so the remote side can verify and
// reassemble without consulting the session record.
type Metadata struct {
	SessionID   string
	SourceFile  string
	Index       int
	TotalChunks int
	Size        int64
	SHA256      string
	CRC64       string
}

// Store is the external collaborator every chunk upload goes through.
// Put is idempotent by key: re-putting an existing key with identical content
// acknowledges success, since a retry may re-send a chunk whose prior
// acknowledgement was lost.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, meta Metadata) error
	Type() types.RemoteType
	Close() error
}

// Registry holds registered backend factories
var (
	registryMu sync.RWMutex
	registry   = make(map[types.RemoteType]Factory)
)

// Factory creates a Store from config
type Factory func(cfg types.RemoteConfig) (Store, error)

// Register adds a factory for a remote type
func Register(t types.RemoteType, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[t] = f
}

// Open creates a Store from config
func Open(cfg types.RemoteConfig) (Store, error) {
	registryMu.RLock()
	f, ok := registry[cfg.Type]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown remote type: %s", cfg.Type)
	}
	return f(cfg)
}
