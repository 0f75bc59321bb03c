// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

// Package progress derives display-ready status from a session record.
package progress

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/types"
)

// Report is a point-in-time view of one upload session.
type Report struct {
	SessionID      string        `json:"session_id"`
	RepoTarget     string        `json:"repo_target"`
	SourcePath     string        `json:"source_path"`
	TotalChunks    int           `json:"total_chunks"`
	UploadedChunks int           `json:"uploaded_chunks"`
	FailedChunks   int           `json:"failed_chunks"`
	Progress       float64       `json:"progress_percentage"`
	TotalBytes     int64         `json:"total_bytes"`
	UploadedBytes  int64         `json:"uploaded_bytes"`
	Elapsed        time.Duration `json:"elapsed"`
	ETA            time.Duration `json:"eta"`
	Speed          float64       `json:"speed_bytes_per_sec"`
	Completed      bool          `json:"completed"`
}

// Status snapshots sess as of now.
func Status(sess *types.UploadSession) Report {
	return StatusAt(sess, time.Now())
}

// StatusAt snapshots sess as of the given instant. It only reads the record;
// callers watching a live run should load a fresh copy from the session
// store rather than sharing the scheduler's.
//
// Progress counts chunks, because that is what resumes on: a session is
// resumable per chunk, not per byte. ETA is byte-weighted: the average
// throughput since the session started, applied to the bytes left.
func StatusAt(sess *types.UploadSession, at time.Time) Report {
	r := Report{
		SessionID:      sess.ID,
		RepoTarget:     sess.RepoTarget,
		SourcePath:     sess.SourcePath,
		TotalChunks:    sess.TotalChunks(),
		UploadedChunks: sess.UploadedChunks(),
		FailedChunks:   len(sess.FailedChunks()),
		Progress:       sess.Progress,
		TotalBytes:     sess.TotalSize,
		UploadedBytes:  sess.UploadedBytes(),
		Completed:      sess.Completed,
	}

	if at.After(sess.StartTime) {
		r.Elapsed = at.Sub(sess.StartTime)
	}
	if r.Completed || r.Elapsed <= 0 || r.UploadedBytes <= 0 {
		return r
	}

	r.Speed = float64(r.UploadedBytes) / r.Elapsed.Seconds()
	if remaining := r.TotalBytes - r.UploadedBytes; remaining > 0 && r.Speed > 0 {
		r.ETA = time.Duration(float64(remaining) / r.Speed * float64(time.Second)).Round(time.Second)
	}
	return r
}

// String renders a single status line.
func (r Report) String() string {
	line := fmt.Sprintf("%s  %d/%d chunks (%.2f%%)  %s/%s",
		r.SessionID,
		r.UploadedChunks, r.TotalChunks, r.Progress,
		humanize.Bytes(uint64(r.UploadedBytes)), humanize.Bytes(uint64(r.TotalBytes)))

	if r.FailedChunks > 0 {
		line += fmt.Sprintf("  %d failed", r.FailedChunks)
	}
	switch {
	case r.Completed:
		line += "  done"
	case r.ETA > 0:
		line += fmt.Sprintf("  %s  eta %s", SpeedString(r.Speed), r.ETA)
	}
	return line
}

// SpeedString renders a byte rate like "2.5 MB/s".
func SpeedString(bytesPerSec float64) string {
	return humanize.Bytes(uint64(bytesPerSec)) + "/s"
}
