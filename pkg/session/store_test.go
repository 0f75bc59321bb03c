// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package session_test

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/session"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/types"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openStore builds a fresh store of each backend type rooted in a temp dir.
func openStore(t *testing.T, st session.StoreType) session.Store {
	t.Helper()

	cfg := session.Config{Type: st}
	switch st {
	case session.StoreFile:
		cfg.Dir = filepath.Join(t.TempDir(), "sessions")
	case session.StoreLevelDB:
		cfg.Dir = filepath.Join(t.TempDir(), "sessions.db")
	}

	s, err := session.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var backends = []session.StoreType{session.StoreFile, session.StoreLevelDB, session.StoreMemory}

func testSession(id string, start time.Time) *types.UploadSession {
	uploadedAt := start.Add(3 * time.Second)
	return types.NewUploadSession(types.SessionParams{
		ID:         id,
		SourcePath: "/data/project",
		RepoTarget: "midnightnow/project-backup",
		StartTime:  start,
		EmptyFiles: []string{"/data/project/empty.txt"},
		Chunks: []*types.Chunk{
			{
				ID:          id + "_file.bin_0",
				SourceFile:  "/data/project/file.bin",
				Index:       0,
				TotalChunks: 3,
				Offset:      0,
				Size:        5 << 20,
				Checksum:    "aaaa",
				Status:      types.ChunkUploaded,
				UploadedAt:  &uploadedAt,
			},
			{
				ID:          id + "_file.bin_1",
				SourceFile:  "/data/project/file.bin",
				Index:       1,
				TotalChunks: 3,
				Offset:      5 << 20,
				Size:        5 << 20,
				Checksum:    "bbbb",
				Status:      types.ChunkPending,
				RetryCount:  2,
			},
			{
				ID:          id + "_file.bin_2",
				SourceFile:  "/data/project/file.bin",
				Index:       2,
				TotalChunks: 3,
				Offset:      10 << 20,
				Size:        1 << 20,
				Checksum:    "cccc",
				Status:      types.ChunkFailedPermanently,
				RetryCount:  3,
			},
		},
	})
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 14, 9, 26, 53, 589000000, time.UTC)

	for _, st := range backends {
		t.Run(string(st), func(t *testing.T) {
			t.Parallel()

			store := openStore(t, st)
			want := testSession("roundtrip0001", start)
			require.NoError(t, store.Save(want))

			got, err := store.Load(want.ID)
			require.NoError(t, err)

			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("session round-trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStore_LoadUnknown(t *testing.T) {
	t.Parallel()

	for _, st := range backends {
		t.Run(string(st), func(t *testing.T) {
			t.Parallel()

			store := openStore(t, st)
			_, err := store.Load("deadbeefdeadbeef")
			assert.ErrorIs(t, err, types.ErrSessionNotFound)
		})
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	for _, st := range backends {
		t.Run(string(st), func(t *testing.T) {
			t.Parallel()

			store := openStore(t, st)
			s := testSession("overwrite000001", start)
			require.NoError(t, store.Save(s))

			// Flip the pending chunk to uploaded and save again.
			now := start.Add(10 * time.Second)
			s.Chunks[1].Status = types.ChunkUploaded
			s.Chunks[1].UploadedAt = &now
			s.RecomputeProgress()
			require.NoError(t, store.Save(s))

			got, err := store.Load(s.ID)
			require.NoError(t, err)
			assert.Equal(t, types.ChunkUploaded, got.Chunks[1].Status)
			assert.Equal(t, 2, got.UploadedChunks())
			if diff := cmp.Diff(s, got); diff != "" {
				t.Errorf("overwritten session mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStore_ConcurrentSavesSerialize(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	for _, st := range backends {
		t.Run(string(st), func(t *testing.T) {
			t.Parallel()

			store := openStore(t, st)

			// Writers race whole-record overwrites of one session, each with
			// a recognizable progress value. Saves serialize inside the
			// store, so the surviving record must be one writer's record in
			// full, never an interleaving.
			const writers = 8
			var wg sync.WaitGroup
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(n int) {
					defer wg.Done()
					s := testSession("race000000000001", start)
					s.Progress = float64(n)
					for j := 0; j < 20; j++ {
						if err := store.Save(s); err != nil {
							t.Error(err)
							return
						}
					}
				}(i)
			}
			wg.Wait()

			got, err := store.Load("race000000000001")
			require.NoError(t, err)
			require.Len(t, got.Chunks, 3)
			assert.Contains(t, []float64{0, 1, 2, 3, 4, 5, 6, 7}, got.Progress)

			summaries, err := store.List()
			require.NoError(t, err)
			assert.Len(t, summaries, 1)
		})
	}
}

func TestStore_ListOrderedByStartTime(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	for _, st := range backends {
		t.Run(string(st), func(t *testing.T) {
			t.Parallel()

			store := openStore(t, st)

			// Save newest first to prove List sorts.
			require.NoError(t, store.Save(testSession("cccc000000000003", base.Add(2*time.Hour))))
			require.NoError(t, store.Save(testSession("aaaa000000000001", base)))
			require.NoError(t, store.Save(testSession("bbbb000000000002", base.Add(time.Hour))))

			summaries, err := store.List()
			require.NoError(t, err)
			require.Len(t, summaries, 3)

			assert.Equal(t, "aaaa000000000001", summaries[0].ID)
			assert.Equal(t, "bbbb000000000002", summaries[1].ID)
			assert.Equal(t, "cccc000000000003", summaries[2].ID)

			first := summaries[0]
			assert.Equal(t, 3, first.TotalChunks)
			assert.Equal(t, 1, first.UploadedChunks)
			assert.Equal(t, 1, first.FailedChunks)
			assert.False(t, first.Completed)
			assert.InDelta(t, 33.33, first.Progress, 0.01)
		})
	}
}

func TestStore_Delete(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	for _, st := range backends {
		t.Run(string(st), func(t *testing.T) {
			t.Parallel()

			store := openStore(t, st)
			s := testSession("delete0000000001", start)
			require.NoError(t, store.Save(s))

			require.NoError(t, store.Delete(s.ID))
			_, err := store.Load(s.ID)
			assert.ErrorIs(t, err, types.ErrSessionNotFound)

			assert.ErrorIs(t, store.Delete(s.ID), types.ErrSessionNotFound)

			summaries, err := store.List()
			require.NoError(t, err)
			assert.Empty(t, summaries)
		})
	}
}

func TestStore_ClosedReturnsErr(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	for _, st := range backends {
		t.Run(string(st), func(t *testing.T) {
			t.Parallel()

			store := openStore(t, st)
			require.NoError(t, store.Close())

			assert.ErrorIs(t, store.Save(testSession("closed0000000001", start)), types.ErrStoreClosed)
			_, err := store.Load("closed0000000001")
			assert.ErrorIs(t, err, types.ErrStoreClosed)
		})
	}
}

func TestCreate_PersistsImmediately(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	defer store.Close()

	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s, err := session.Create(store, types.SessionParams{
		ID:         "create0000000001",
		SourcePath: "/data/project",
		RepoTarget: "midnightnow/project-backup",
		StartTime:  start,
		Chunks: []*types.Chunk{
			{ID: "create0000000001_a_0", SourceFile: "/data/project/a", Index: 0, TotalChunks: 1, Size: 42, Checksum: "dddd", Status: types.ChunkPending},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), s.TotalSize)
	assert.False(t, s.Completed)
	assert.Zero(t, s.Progress)

	got, err := store.Load(s.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(s, got); diff != "" {
		t.Errorf("created session not persisted verbatim (-want +got):\n%s", diff)
	}
}

func TestCreate_RequiresID(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	defer store.Close()

	_, err := session.Create(store, types.SessionParams{SourcePath: "/data"})
	assert.Error(t, err)
}

func TestFileStore_RejectsTraversalIDs(t *testing.T) {
	t.Parallel()

	store := openStore(t, session.StoreFile)

	_, err := store.Load("../../../etc/passwd")
	assert.ErrorIs(t, err, types.ErrSessionNotFound)

	err = store.Save(&types.UploadSession{ID: "../escape"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, types.ErrSessionNotFound)
}
