// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

// Package netprobe measures upload throughput to pick a chunk-size profile.
//
// The probe uploads a small random payload and classifies the observed
// speed. It is deliberately coarse: the result selects one of four chunk
// profiles, so only order-of-magnitude accuracy matters.
package netprobe

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/logger"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/types"
)

// DefaultEndpoint accepts arbitrary POST bodies and discards them.
const DefaultEndpoint = "https://httpbin.org/post"

const (
	payloadSize  = 100 * 1024
	probeTimeout = 10 * time.Second
)

var client = &http.Client{Timeout: probeTimeout}

// Measurement is one timed probe upload.
type Measurement struct {
	Profile  types.NetworkProfile `json:"profile"`
	MBps     float64              `json:"mbps"`
	Bytes    int64                `json:"bytes"`
	Duration time.Duration        `json:"duration"`
}

// Probe measures upload speed to endpoint and returns the matching profile.
// A failed probe falls back to ProfileMedium so an unreachable endpoint
// never blocks an upload.
func Probe(ctx context.Context, endpoint string) types.NetworkProfile {
	m, err := Measure(ctx, endpoint)
	if err != nil {
		logger.Warn().Err(err).Str("endpoint", endpoint).
			Msg("netprobe: probe failed, using medium profile")
		return types.ProfileMedium
	}
	logger.Info().
		Float64("mbps", m.MBps).
		Dur("duration", m.Duration).
		Str("profile", m.Profile.String()).
		Msg("netprobe: throughput measured")
	return m.Profile
}

// Measure uploads payloadSize random bytes to endpoint and times the full
// round trip, response body included.
func Measure(ctx context.Context, endpoint string) (*Measurement, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	payload := make([]byte, payloadSize)
	if _, err := rand.Read(payload); err != nil {
		return nil, fmt.Errorf("probe payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("probe request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return nil, fmt.Errorf("probe %s: %w", endpoint, err)
	}
	elapsed := time.Since(start)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("probe %s: unexpected status %d", endpoint, resp.StatusCode)
	}

	mbps := float64(payloadSize) / elapsed.Seconds() / float64(types.MiB)
	return &Measurement{
		Profile:  ClassifySpeed(mbps),
		MBps:     mbps,
		Bytes:    payloadSize,
		Duration: elapsed,
	}, nil
}

// ClassifySpeed maps measured MB/s onto a chunk profile.
func ClassifySpeed(mbps float64) types.NetworkProfile {
	switch {
	case mbps < 1:
		return types.ProfileSlow
	case mbps < 5:
		return types.ProfileMedium
	case mbps < 20:
		return types.ProfileFast
	default:
		return types.ProfileUltra
	}
}
