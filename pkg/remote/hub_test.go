// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package remote_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/remote"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMeta() remote.Metadata {
	return remote.Metadata{
		SessionID:   "abcd1234abcd1234",
		SourceFile:  "/data/file.bin",
		Index:       2,
		TotalChunks: 5,
		Size:        11,
		SHA256:      "feedface",
		CRC64:       "0123456789abcdef",
	}
}

func newHub(t *testing.T, handler http.HandlerFunc) remote.Store {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store, err := remote.NewHub(types.RemoteConfig{
		Type:     types.RemoteHub,
		Endpoint: srv.URL,
		Token:    "test-token",
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestHub_PutSuccess(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth, gotSha, gotCrc, gotRequestID string
	var gotBody []byte
	var gotIndex string

	store := newHub(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotSha = r.Header.Get("X-Chunk-Sha256")
		gotCrc = r.Header.Get("X-Chunk-Crc64nvme")
		gotRequestID = r.Header.Get("X-Request-Id")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotIndex = r.FormValue("chunk_index")

		file, _, err := r.FormFile("chunk")
		require.NoError(t, err)
		gotBody, err = io.ReadAll(file)
		require.NoError(t, err)
		file.Close()

		w.WriteHeader(http.StatusCreated)
	})

	err := store.Put(context.Background(), "abcd1234abcd1234_file.bin_2", strings.NewReader("hello world"), testMeta())
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/chunks/abcd1234abcd1234_file.bin_2", gotPath)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "feedface", gotSha)
	assert.Equal(t, "0123456789abcdef", gotCrc)
	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, "2", gotIndex)
	assert.Equal(t, []byte("hello world"), gotBody)
}

func TestHub_PutRateLimited_RetryAfter(t *testing.T) {
	t.Parallel()

	store := newHub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	before := time.Now()
	err := store.Put(context.Background(), "k", strings.NewReader("x"), testMeta())

	resetAt, ok := types.IsRateLimited(err)
	require.True(t, ok, "expected RateLimitedError, got %v", err)
	assert.WithinDuration(t, before.Add(7*time.Second), resetAt, 2*time.Second)
}

func TestHub_PutRateLimited_ResetHeader(t *testing.T) {
	t.Parallel()

	resetEpoch := time.Now().Add(42 * time.Second).Unix()
	store := newHub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetEpoch))
		w.WriteHeader(http.StatusTooManyRequests)
	})

	err := store.Put(context.Background(), "k", strings.NewReader("x"), testMeta())

	resetAt, ok := types.IsRateLimited(err)
	require.True(t, ok)
	assert.Equal(t, time.Unix(resetEpoch, 0), resetAt)
}

func TestHub_PutTransient(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusRequestTimeout} {
		t.Run(fmt.Sprintf("status_%d", status), func(t *testing.T) {
			t.Parallel()

			store := newHub(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			})

			err := store.Put(context.Background(), "k", strings.NewReader("x"), testMeta())
			assert.True(t, types.IsTransient(err), "expected TransientError, got %v", err)
		})
	}
}

func TestHub_PutPermanent(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusForbidden, http.StatusNotFound, http.StatusUnprocessableEntity} {
		t.Run(fmt.Sprintf("status_%d", status), func(t *testing.T) {
			t.Parallel()

			store := newHub(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			})

			err := store.Put(context.Background(), "k", strings.NewReader("x"), testMeta())
			assert.True(t, types.IsPermanent(err), "expected PermanentError, got %v", err)
		})
	}
}

func TestHub_PutNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	store, err := remote.NewHub(types.RemoteConfig{Type: types.RemoteHub, Endpoint: srv.URL, Token: "t"})
	require.NoError(t, err)
	defer store.Close()
	srv.Close() // connection refused from here on

	err = store.Put(context.Background(), "k", strings.NewReader("x"), testMeta())
	assert.True(t, types.IsTransient(err), "expected TransientError, got %v", err)
}

func TestHub_RequiresToken(t *testing.T) {
	t.Parallel()

	_, err := remote.NewHub(types.RemoteConfig{Type: types.RemoteHub})
	assert.Error(t, err)
}

func TestHub_PutCanceledContext(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	defer close(block)
	store := newHub(t, func(w http.ResponseWriter, r *http.Request) {
		<-block
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := store.Put(ctx, "k", strings.NewReader("x"), testMeta())
	assert.ErrorIs(t, err, context.Canceled)
}
