// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"fmt"
	"path/filepath"
	"time"
)

// ChunkStatus is the per-chunk upload state machine position.
type ChunkStatus string

const (
	// ChunkPending is waiting to be admitted by the scheduler
	ChunkPending ChunkStatus = "pending"
	// ChunkUploading is held by a worker right now (never persisted as final state)
	ChunkUploading ChunkStatus = "uploading"
	// ChunkUploaded has a confirmed remote acknowledgement (terminal)
	ChunkUploaded ChunkStatus = "uploaded"
	// ChunkFailedPermanently exhausted its retries or hit a permanent error (terminal
	// until a caller explicitly resets it)
	ChunkFailedPermanently ChunkStatus = "failed_permanently"
)

// IsValid returns true if the status is recognized
func (s ChunkStatus) IsValid() bool {
	switch s {
	case ChunkPending, ChunkUploading, ChunkUploaded, ChunkFailedPermanently:
		return true
	default:
		return false
	}
}

func (s ChunkStatus) String() string {
	return string(s)
}

// Chunk is one independently-verifiable, independently-retriable byte range
// of a source file. Identity fields are fixed at plan time; only the status
// fields are mutated afterwards, and only by the scheduler.
type Chunk struct {
	ID          string      `json:"id"`
	SourceFile  string      `json:"source_file"`
	Index       int         `json:"index"`
	TotalChunks int         `json:"total_chunks"`
	Offset      int64       `json:"offset"`
	Size        int64       `json:"size"`
	Checksum    string      `json:"checksum"`
	Status      ChunkStatus `json:"status"`
	UploadedAt  *time.Time  `json:"uploaded_at,omitempty"`
	RetryCount  int         `json:"retry_count"`
}

// ChunkName derives the stable chunk identifier. It must be unique within a
// session and identical across resumes so retries address the same remote
// object.
func ChunkName(sessionID, sourceFile string, index int) string {
	return fmt.Sprintf("%s_%s_%d", sessionID, filepath.Base(sourceFile), index)
}

// Uploaded reports whether the chunk has a confirmed remote acknowledgement.
func (c *Chunk) Uploaded() bool {
	return c.Status == ChunkUploaded
}

// Terminal reports whether the chunk will not be scheduled again without
// outside intervention.
func (c *Chunk) Terminal() bool {
	return c.Status == ChunkUploaded || c.Status == ChunkFailedPermanently
}
