// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	hubcontext "github.com/midnightnow/hardcard-smart-github-hub/pkg/context"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/logger"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/types"

	"golang.org/x/oauth2"
)

func init() {
	Register(types.RemoteHub, NewHub)
}

// Hub uploads chunks to the hub HTTP API, one multipart POST per chunk at
// /api/v1/chunks/{key}. Authentication rides an oauth2 static-token client.
type Hub struct {
	endpoint string
	client   *http.Client
}

var _ Store = (*Hub)(nil)

// NewHub creates a hub backend from config. Token is required; the endpoint
// defaults to the public hub.
func NewHub(cfg types.RemoteConfig) (Store, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("token required for hub remote")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://hub.hardcard.ai"
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	client := oauth2.NewClient(context.Background(), src)
	client.Timeout = 5 * time.Minute

	return &Hub{endpoint: endpoint, client: client}, nil
}

func (h *Hub) Type() types.RemoteType {
	return types.RemoteHub
}

func (h *Hub) Put(ctx context.Context, key string, r io.Reader, meta Metadata) error {
	ctx, requestID := hubcontext.WithUUID(ctx)

	// Stream the multipart body so a 50 MiB chunk is never buffered twice.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := writeChunkForm(mw, key, r, meta)
		if cerr := mw.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	url := fmt.Sprintf("%s/api/v1/chunks/%s", h.endpoint, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		return &types.PermanentError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(hubcontext.RequestHeader, requestID)
	req.Header.Set("X-Chunk-Sha256", meta.SHA256)
	req.Header.Set("X-Chunk-Crc64nvme", meta.CRC64)

	resp, err := h.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &types.TransientError{Err: fmt.Errorf("post chunk %s: %w", key, err)}
	}
	defer func() {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}()

	return h.mapStatus(resp, key, requestID)
}

func writeChunkForm(mw *multipart.Writer, key string, r io.Reader, meta Metadata) error {
	fields := map[string]string{
		"session_id":   meta.SessionID,
		"source_file":  meta.SourceFile,
		"chunk_index":  strconv.Itoa(meta.Index),
		"total_chunks": strconv.Itoa(meta.TotalChunks),
		"size":         strconv.FormatInt(meta.Size, 10),
		"sha256":       meta.SHA256,
		"crc64nvme":    meta.CRC64,
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return err
		}
	}

	part, err := mw.CreateFormFile("chunk", key)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, r)
	return err
}

// mapStatus folds the hub's HTTP responses onto the four-way result contract.
func (h *Hub) mapStatus(resp *http.Response, key, requestID string) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil

	case resp.StatusCode == http.StatusTooManyRequests:
		resetAt := parseRateLimitReset(resp)
		logger.Warn().
			Str("key", key).
			Str("request_id", requestID).
			Time("reset_at", resetAt).
			Msg("remote: hub rate limited")
		return &types.RateLimitedError{ResetAt: resetAt}

	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode >= 500:
		return &types.TransientError{Err: fmt.Errorf("chunk %s: hub returned %s", key, resp.Status)}

	default:
		return &types.PermanentError{Err: fmt.Errorf("chunk %s: hub returned %s", key, resp.Status)}
	}
}

// parseRateLimitReset reads the reset time from Retry-After (seconds) or
// X-RateLimit-Reset (unix epoch). Without either header the hub gets a short
// grace period rather than an immediate re-hammer.
func parseRateLimitReset(resp *http.Response) time.Time {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Now().Add(time.Duration(secs) * time.Second)
		}
		if t, err := http.ParseTime(v); err == nil {
			return t
		}
	}
	if v := resp.Header.Get("X-RateLimit-Reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(epoch, 0)
		}
	}
	return time.Now().Add(30 * time.Second)
}

func (h *Hub) Close() error {
	h.client.CloseIdleConnections()
	return nil
}
