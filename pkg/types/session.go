// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"encoding/hex"
	"math"
	"time"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/utils"
)

// SessionIDLength is the number of hex characters in a session identifier.
const SessionIDLength = 16

// NewSessionID derives a session identifier from the source path and the
// session start time. Two uploads of the same path started at different
// times get distinct identifiers.
func NewSessionID(sourcePath string, start time.Time) string {
	h := utils.Sha256PoolGetHasher()
	h.Write([]byte(sourcePath))
	h.Write([]byte(start.Format(time.RFC3339Nano)))
	sum := h.Sum(nil)
	utils.Sha256PoolPutHasher(h)
	return hex.EncodeToString(sum)[:SessionIDLength]
}

// UploadSession is the unit of resumability: the full chunk manifest for one
// upload request plus per-chunk progress. The session store owns the durable
// representation; the scheduler mutates the in-memory copy during a run and
// writes every visible change back through the store.
type UploadSession struct {
	ID         string    `json:"session_id"`
	RepoTarget string    `json:"repo_target"`
	SourcePath string    `json:"source_path"`
	TotalSize  int64     `json:"total_size"`
	Chunks     []*Chunk  `json:"chunks"`
	EmptyFiles []string  `json:"empty_files,omitempty"`
	StartTime  time.Time `json:"start_time"`
	Completed  bool      `json:"completed"`
	Progress   float64   `json:"progress_percentage"`
}

// SessionParams carries everything needed to build a session record.
type SessionParams struct {
	ID         string
	SourcePath string
	RepoTarget string
	StartTime  time.Time
	Chunks     []*Chunk
	EmptyFiles []string
}

// NewUploadSession builds a session from a finished plan. TotalSize,
// Progress and Completed are derived from the chunk list. Empty files are
// carried as markers only; they contribute no chunks and no bytes.
func NewUploadSession(p SessionParams) *UploadSession {
	s := &UploadSession{
		ID:         p.ID,
		RepoTarget: p.RepoTarget,
		SourcePath: p.SourcePath,
		Chunks:     p.Chunks,
		EmptyFiles: p.EmptyFiles,
		StartTime:  p.StartTime,
	}
	for _, c := range p.Chunks {
		s.TotalSize += c.Size
	}
	s.RecomputeProgress()
	return s
}

// TotalChunks returns the number of chunks in the manifest.
func (s *UploadSession) TotalChunks() int {
	return len(s.Chunks)
}

// UploadedChunks returns the number of chunks with a confirmed acknowledgement.
func (s *UploadSession) UploadedChunks() int {
	n := 0
	for _, c := range s.Chunks {
		if c.Uploaded() {
			n++
		}
	}
	return n
}

// UploadedBytes returns the byte total of uploaded chunks.
func (s *UploadSession) UploadedBytes() int64 {
	var n int64
	for _, c := range s.Chunks {
		if c.Uploaded() {
			n += c.Size
		}
	}
	return n
}

// PendingChunks returns chunks still eligible for scheduling.
func (s *UploadSession) PendingChunks() []*Chunk {
	var out []*Chunk
	for _, c := range s.Chunks {
		if c.Status == ChunkPending {
			out = append(out, c)
		}
	}
	return out
}

// FailedChunks returns chunks that failed permanently.
func (s *UploadSession) FailedChunks() []*Chunk {
	var out []*Chunk
	for _, c := range s.Chunks {
		if c.Status == ChunkFailedPermanently {
			out = append(out, c)
		}
	}
	return out
}

// RecomputeProgress refreshes the derived Progress and Completed fields.
// Progress is chunk-count based: 100 * uploaded / total, rounded to two
// decimals. A session whose files were all empty has no chunks and counts
// as complete.
func (s *UploadSession) RecomputeProgress() {
	total := s.TotalChunks()
	if total == 0 {
		s.Progress = 100
		s.Completed = true
		return
	}
	uploaded := s.UploadedChunks()
	s.Progress = math.Round(float64(uploaded)/float64(total)*100*100) / 100
	s.Completed = uploaded == total
}

// ResetFailed flips permanently-failed chunks back to pending so a later run
// will retry them. Returns the number of chunks reset. Retry counts restart
// from zero.
func (s *UploadSession) ResetFailed() int {
	n := 0
	for _, c := range s.Chunks {
		if c.Status == ChunkFailedPermanently {
			c.Status = ChunkPending
			c.RetryCount = 0
			n++
		}
	}
	if n > 0 {
		s.RecomputeProgress()
	}
	return n
}
