// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/integrity"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/types"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/utils"
)

func init() {
	Register(types.RemoteLocal, NewLocal)
}

// Local writes chunks into a directory, for development and offline tests.
// Writes are atomic; re-putting a key whose bytes already match the supplied
// digest is acknowledged without rewriting.
type Local struct {
	dir string
}

var _ Store = (*Local)(nil)

// NewLocal creates a directory-backed store at cfg.Dir.
func NewLocal(cfg types.RemoteConfig) (Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("dir required for local remote")
	}
	dir := utils.ResolvePath(cfg.Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create remote dir: %w", err)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) Type() types.RemoteType {
	return types.RemoteLocal
}

func (l *Local) Put(ctx context.Context, key string, r io.Reader, meta Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(l.dir, key)

	// Idempotent re-put: a retry after a lost acknowledgement finds the
	// object already present with the same digest.
	if f, err := os.Open(path); err == nil {
		sum, herr := integrity.Checksum(f)
		f.Close()
		if herr == nil && sum == meta.SHA256 {
			return nil
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return &types.TransientError{Err: fmt.Errorf("read chunk %s: %w", key, err)}
	}
	if err := utils.WriteFileAtomic(path, data, 0o644); err != nil {
		return &types.TransientError{Err: fmt.Errorf("write chunk %s: %w", key, err)}
	}
	return nil
}

func (l *Local) Close() error {
	return nil
}
