// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package utils_test

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/utils"
)

func TestJitter(t *testing.T) {
	t.Parallel()

	base := time.Minute
	for range 200 {
		d := utils.Jitter(base, 0.1)
		assert.GreaterOrEqual(t, d, 54*time.Second)
		assert.LessOrEqual(t, d, 66*time.Second)
	}

	assert.Equal(t, base, utils.Jitter(base, 0), "zero fraction is a no-op")

	for range 200 {
		d := utils.Jitter(base, 5)
		assert.GreaterOrEqual(t, d, time.Duration(0), "fraction clamps at 1")
		assert.LessOrEqual(t, d, 2*base)
	}
}

func TestJitterUp(t *testing.T) {
	t.Parallel()

	base := time.Minute
	for range 200 {
		d := utils.JitterUp(base, 0.25)
		assert.GreaterOrEqual(t, d, base, "jitter-up never shortens the delay")
		assert.LessOrEqual(t, d, 75*time.Second)
	}
}

func TestResolvePath(t *testing.T) {
	t.Parallel()

	home := os.Getenv("HOME")
	if home == "" {
		t.Skip("no HOME in environment")
	}

	resolved := utils.ResolvePath("~/sessions")
	assert.False(t, strings.Contains(resolved, "~"))
	assert.True(t, filepath.IsAbs(resolved))
	assert.True(t, strings.HasSuffix(resolved, string(filepath.Separator)+"sessions"))

	assert.Equal(t, "/var/lib/smarthub", utils.ResolvePath("/var/lib/smarthub"),
		"paths without a tilde pass through untouched")
	assert.Equal(t, "", utils.ResolvePath(""))
}

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")

	require.NoError(t, utils.WriteFileAtomic(path, []byte(`{"v":1}`), 0o600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, string(data))

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	// Overwrite replaces the content in one step.
	require.NoError(t, utils.WriteFileAtomic(path, []byte(`{"v":2}`), 0o600))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files survive a successful write")
}

func TestSyncPools(t *testing.T) {
	t.Parallel()

	buf := utils.SyncPoolGetBuffer()
	buf.WriteString("scratch")
	utils.SyncPoolPutBuffer(buf)
	assert.Zero(t, utils.SyncPoolGetBuffer().Len(), "pooled buffers come back reset")

	h := utils.Sha256PoolGetHasher()
	h.Write([]byte("scratch"))
	utils.Sha256PoolPutHasher(h)

	h = utils.Sha256PoolGetHasher()
	defer utils.Sha256PoolPutHasher(h)
	h.Write([]byte("abc"))
	assert.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		hex.EncodeToString(h.Sum(nil)), "pooled hashers come back reset")
}
