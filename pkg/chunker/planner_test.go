// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package chunker_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/chunker"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/integrity"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/types"
)

func writeFile(t *testing.T, size int64) string {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	path := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestChunkSizeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		fileSize int64
		profile  types.NetworkProfile
		expected int64
	}{
		{"medium small file", 15 * types.MiB, types.ProfileMedium, 5 * types.MiB},
		{"slow small file", 15 * types.MiB, types.ProfileSlow, 1 * types.MiB},
		{"fast small file", 15 * types.MiB, types.ProfileFast, 10 * types.MiB},
		{"ultra small file", 15 * types.MiB, types.ProfileUltra, 25 * types.MiB},
		{"medium large file doubles", 200 * types.MiB, types.ProfileMedium, 10 * types.MiB},
		{"fast large file doubles", 150 * types.MiB, types.ProfileFast, 20 * types.MiB},
		{"ultra large file hits cap", 200 * types.MiB, types.ProfileUltra, 50 * types.MiB},
		{"threshold itself is not large", 100 * types.MiB, types.ProfileMedium, 5 * types.MiB},
		{"one byte past threshold is", 100*types.MiB + 1, types.ProfileMedium, 10 * types.MiB},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, chunker.ChunkSizeFor(tt.fileSize, tt.profile))
		})
	}
}

func TestLayoutFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		fileSize int64
		profile  types.NetworkProfile
		expected chunker.Layout
	}{
		{"even split", 15 * types.MiB, types.ProfileMedium,
			chunker.Layout{ChunkSize: 5 * types.MiB, TotalChunks: 3, LastChunk: 5 * types.MiB}},
		{"many small chunks", 15 * types.MiB, types.ProfileSlow,
			chunker.Layout{ChunkSize: 1 * types.MiB, TotalChunks: 15, LastChunk: 1 * types.MiB}},
		{"short last chunk", 15 * types.MiB, types.ProfileFast,
			chunker.Layout{ChunkSize: 10 * types.MiB, TotalChunks: 2, LastChunk: 5 * types.MiB}},
		{"single chunk", 15 * types.MiB, types.ProfileUltra,
			chunker.Layout{ChunkSize: 25 * types.MiB, TotalChunks: 1, LastChunk: 15 * types.MiB}},
		{"large file doubled chunks", 150 * types.MiB, types.ProfileFast,
			chunker.Layout{ChunkSize: 20 * types.MiB, TotalChunks: 8, LastChunk: 10 * types.MiB}},
		{"remainder", 2*types.MiB + 512*1024, types.ProfileSlow,
			chunker.Layout{ChunkSize: 1 * types.MiB, TotalChunks: 3, LastChunk: 512 * 1024}},
		{"one byte", 1, types.ProfileMedium,
			chunker.Layout{ChunkSize: 5 * types.MiB, TotalChunks: 1, LastChunk: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, chunker.LayoutFor(tt.fileSize, tt.profile))
		})
	}
}

func TestPlanFile_TilesWithoutGaps(t *testing.T) {
	t.Parallel()

	size := int64(3*types.MiB + 512)
	path := writeFile(t, size)

	chunks, err := chunker.PlanFile(path, "deadbeef00112233", types.ProfileSlow)
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	var next int64
	var total int64
	for i, c := range chunks {
		assert.Equal(t, types.ChunkName("deadbeef00112233", path, i), c.ID)
		assert.Equal(t, path, c.SourceFile)
		assert.Equal(t, i, c.Index)
		assert.Equal(t, 4, c.TotalChunks)
		assert.Equal(t, next, c.Offset, "chunk %d must start where %d ended", i, i-1)
		assert.Equal(t, types.ChunkPending, c.Status)
		assert.Zero(t, c.RetryCount)
		assert.Nil(t, c.UploadedAt)

		sum, err := integrity.ChecksumRange(path, c.Offset, c.Size)
		require.NoError(t, err)
		assert.Equal(t, sum, c.Checksum)

		next = c.Offset + c.Size
		total += c.Size
	}
	assert.Equal(t, size, total, "chunks must cover the whole file")
	assert.Equal(t, int64(512), chunks[3].Size, "last chunk carries the remainder")
}

func TestPlanFile_Deterministic(t *testing.T) {
	t.Parallel()

	path := writeFile(t, 2*types.MiB+64)

	first, err := chunker.PlanFile(path, "cafe000011112222", types.ProfileSlow)
	require.NoError(t, err)
	second, err := chunker.PlanFile(path, "cafe000011112222", types.ProfileSlow)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("plans differ (-first +second):\n%s", diff)
	}
}

func TestPlanFile_EmptyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	chunks, err := chunker.PlanFile(path, "deadbeef00112233", types.ProfileMedium)
	require.NoError(t, err)
	assert.Nil(t, chunks, "empty files are session markers, not chunks")
}

func TestPlanFile_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := chunker.PlanFile(filepath.Join(t.TempDir(), "absent"), "deadbeef00112233", types.ProfileMedium)
	var perr *types.PlanningError
	require.ErrorAs(t, err, &perr)
}

func TestPlanFile_DirectoryRejected(t *testing.T) {
	t.Parallel()

	_, err := chunker.PlanFile(t.TempDir(), "deadbeef00112233", types.ProfileMedium)
	var perr *types.PlanningError
	require.ErrorAs(t, err, &perr)
}

func TestPlanFiles_IsolatesFailures(t *testing.T) {
	t.Parallel()

	good := writeFile(t, types.MiB)
	empty := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	missing := filepath.Join(t.TempDir(), "absent")

	plan := chunker.PlanFiles([]string{good, empty, missing}, "deadbeef00112233", types.ProfileSlow)

	require.Len(t, plan.Chunks, 1)
	assert.Equal(t, good, plan.Chunks[0].SourceFile)
	assert.Equal(t, []string{empty}, plan.EmptyFiles)
	require.Contains(t, plan.Failed, missing)
	var perr *types.PlanningError
	assert.ErrorAs(t, plan.Failed[missing], &perr)
}
