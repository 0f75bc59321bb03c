// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

// Package chunker deterministically partitions files into ordered, gap-free,
// non-overlapping byte ranges sized by the measured network profile.
package chunker

import (
	"errors"
	"os"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/integrity"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/logger"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/types"
)

const (
	// LargeFileThreshold is the size above which chunks are doubled to keep
	// the chunk count of very large binaries bounded.
	LargeFileThreshold = 100 * types.MiB

	// MaxChunkSize caps the largest unit transferred per request.
	MaxChunkSize = 50 * types.MiB
)

// ChunkSizeFor returns the transfer unit for a file of the given size.
// Files over LargeFileThreshold get double the profile's base size, capped
// at MaxChunkSize.
func ChunkSizeFor(fileSize int64, profile types.NetworkProfile) int64 {
	size := profile.BaseChunkSize()
	if fileSize > LargeFileThreshold {
		size = min(size*2, MaxChunkSize)
	}
	return size
}

// Layout is the deterministic partition of a file: a pure function of
// (fileSize, profile), independent of file content.
type Layout struct {
	ChunkSize   int64
	TotalChunks int
	LastChunk   int64
}

// LayoutFor computes the partition for a non-empty file. The last chunk is
// the remainder: never zero, never larger than ChunkSize.
func LayoutFor(fileSize int64, profile types.NetworkProfile) Layout {
	chunkSize := ChunkSizeFor(fileSize, profile)
	total := int((fileSize + chunkSize - 1) / chunkSize)
	last := fileSize - int64(total-1)*chunkSize
	return Layout{ChunkSize: chunkSize, TotalChunks: total, LastChunk: last}
}

// PlanFile partitions path into checksummed chunks. Chunk identifiers embed
// sessionID so a resumed run addresses the same remote objects.
//
// A zero-length file yields (nil, nil): empty files are represented as
// session markers, never as chunks. Unreadable sources yield
// *types.PlanningError.
func PlanFile(path, sessionID string, profile types.NetworkProfile) ([]*types.Chunk, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, &types.PlanningError{Path: path, Err: err}
	}
	if fi.IsDir() {
		return nil, &types.PlanningError{Path: path, Err: errors.New("is a directory")}
	}
	size := fi.Size()
	if size == 0 {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &types.PlanningError{Path: path, Err: err}
	}
	defer f.Close()

	layout := LayoutFor(size, profile)
	chunks := make([]*types.Chunk, 0, layout.TotalChunks)
	for i := 0; i < layout.TotalChunks; i++ {
		offset := int64(i) * layout.ChunkSize
		csize := layout.ChunkSize
		if i == layout.TotalChunks-1 {
			csize = layout.LastChunk
		}

		sum, err := integrity.ChecksumSection(f, offset, csize)
		if err != nil {
			return nil, &types.PlanningError{Path: path, Err: err}
		}

		chunks = append(chunks, &types.Chunk{
			ID:          types.ChunkName(sessionID, path, i),
			SourceFile:  path,
			Index:       i,
			TotalChunks: layout.TotalChunks,
			Offset:      offset,
			Size:        csize,
			Checksum:    sum,
			Status:      types.ChunkPending,
		})
	}

	logger.Debug().
		Str("file", path).
		Int64("size", size).
		Int64("chunk_size", layout.ChunkSize).
		Int("chunks", layout.TotalChunks).
		Str("profile", profile.String()).
		Msg("chunker: planned file")

	return chunks, nil
}

// Plan is the result of planning a set of files. Each file's chunks are
// independently indexed from zero; a file that cannot be planned lands in
// Failed without aborting its siblings.
type Plan struct {
	Chunks     []*types.Chunk
	EmptyFiles []string
	Failed     map[string]error
}

// PlanFiles plans every path in order and concatenates the per-file chunk
// lists.
func PlanFiles(paths []string, sessionID string, profile types.NetworkProfile) *Plan {
	p := &Plan{Failed: make(map[string]error)}
	for _, path := range paths {
		chunks, err := PlanFile(path, sessionID, profile)
		if err != nil {
			logger.Warn().Err(err).Str("file", path).Msg("chunker: skipping unplannable file")
			p.Failed[path] = err
			continue
		}
		if len(chunks) == 0 {
			p.EmptyFiles = append(p.EmptyFiles, path)
			continue
		}
		p.Chunks = append(p.Chunks, chunks...)
	}
	return p
}
