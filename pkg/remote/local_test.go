// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package remote_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/integrity"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/remote"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_PutWritesChunk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := remote.NewLocal(types.RemoteConfig{Type: types.RemoteLocal, Dir: dir})
	require.NoError(t, err)
	defer store.Close()

	meta := testMeta()
	meta.SHA256 = integrity.ChecksumBytes([]byte("payload"))
	require.NoError(t, store.Put(context.Background(), "sess_file_0", strings.NewReader("payload"), meta))

	data, err := os.ReadFile(filepath.Join(dir, "sess_file_0"))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

func TestLocal_PutIdempotentByDigest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := remote.NewLocal(types.RemoteConfig{Type: types.RemoteLocal, Dir: dir})
	require.NoError(t, err)
	defer store.Close()

	meta := testMeta()
	meta.SHA256 = integrity.ChecksumBytes([]byte("payload"))

	require.NoError(t, store.Put(context.Background(), "k", strings.NewReader("payload"), meta))

	// A retry whose prior acknowledgement was lost succeeds without consuming
	// the (empty) reader.
	require.NoError(t, store.Put(context.Background(), "k", strings.NewReader(""), meta))

	data, err := os.ReadFile(filepath.Join(dir, "k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

func TestMemory_ScriptedResults(t *testing.T) {
	t.Parallel()

	store := remote.NewMemory()
	defer store.Close()

	transient := &types.TransientError{Err: errors.New("boom")}
	store.Fail("k", transient, transient)

	ctx := context.Background()
	meta := testMeta()

	assert.ErrorIs(t, store.Put(ctx, "k", strings.NewReader("x"), meta), transient)
	assert.ErrorIs(t, store.Put(ctx, "k", strings.NewReader("x"), meta), transient)
	assert.NoError(t, store.Put(ctx, "k", strings.NewReader("x"), meta))

	assert.Equal(t, 3, store.Calls("k"))
	data, ok := store.Object("k")
	assert.True(t, ok)
	assert.Equal(t, []byte("x"), data)
}

func TestOpen_UnknownType(t *testing.T) {
	t.Parallel()

	_, err := remote.Open(types.RemoteConfig{Type: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestOpen_Registered(t *testing.T) {
	t.Parallel()

	store, err := remote.Open(types.RemoteConfig{Type: types.RemoteMemory})
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, types.RemoteMemory, store.Type())
}
