// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

// Package integrity computes and verifies chunk content digests.
//
// SHA-256 is the chunk identity digest: computed once at plan time over the
// chunk's exact byte range and compared again before a chunk may be marked
// uploaded. CRC64-NVME is a cheap secondary checksum sent alongside each
// transfer for end-to-end verification by the remote side.
package integrity

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/types"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/utils"
)

// ErrShortRead is returned when a source yields fewer bytes than the range
// demands, which happens when the file shrank after planning.
var ErrShortRead = errors.New("short source read")

// Checksum returns the hex-encoded SHA-256 digest of everything in r.
func Checksum(r io.Reader) (string, error) {
	h := utils.Sha256PoolGetHasher()
	defer utils.Sha256PoolPutHasher(h)

	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// ChecksumBytes returns the hex-encoded SHA-256 digest of b.
func ChecksumBytes(b []byte) string {
	h := utils.Sha256PoolGetHasher()
	defer utils.Sha256PoolPutHasher(h)

	h.Write(b)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// ChecksumSection hashes exactly size bytes of ra starting at offset.
// Reading past the end of the source yields ErrShortRead, not a short digest.
func ChecksumSection(ra io.ReaderAt, offset, size int64) (string, error) {
	h := utils.Sha256PoolGetHasher()
	defer utils.Sha256PoolPutHasher(h)

	n, err := io.Copy(h, io.NewSectionReader(ra, offset, size))
	if err != nil {
		return "", err
	}
	if n != size {
		return "", fmt.Errorf("%w: %d of %d bytes at offset %d", ErrShortRead, n, size, offset)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// ChecksumRange opens path and hashes exactly [offset, offset+size).
func ChecksumRange(path string, offset, size int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return ChecksumSection(f, offset, size)
}

// CRC64Bytes returns the hex-encoded CRC64-NVME of b.
func CRC64Bytes(b []byte) string {
	h := utils.Crc64nvmePoolGetHasher()
	defer utils.Crc64nvmePoolPutHasher(h)

	h.Write(b)
	return fmt.Sprintf("%016x", h.Sum64())
}

// CRC64Section returns the hex-encoded CRC64-NVME of exactly size bytes of
// ra starting at offset.
func CRC64Section(ra io.ReaderAt, offset, size int64) (string, error) {
	h := utils.Crc64nvmePoolGetHasher()
	defer utils.Crc64nvmePoolPutHasher(h)

	n, err := io.Copy(h, io.NewSectionReader(ra, offset, size))
	if err != nil {
		return "", err
	}
	if n != size {
		return "", fmt.Errorf("%w: %d of %d bytes at offset %d", ErrShortRead, n, size, offset)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// VerifyChunk re-reads the chunk's byte range from the source file and
// compares the digest against the one recorded at plan time. A mismatch or
// a shrunk source means the file changed after planning and returns
// *types.IntegrityError; the caller must not retry the chunk.
func VerifyChunk(path string, c *types.Chunk) error {
	got, err := ChecksumRange(path, c.Offset, c.Size)
	if err != nil {
		if errors.Is(err, ErrShortRead) {
			return &types.IntegrityError{ChunkID: c.ID, Expected: c.Checksum, Actual: "short source"}
		}
		return fmt.Errorf("verify chunk %s: %w", c.ID, err)
	}
	if got != c.Checksum {
		return &types.IntegrityError{ChunkID: c.ID, Expected: c.Checksum, Actual: got}
	}
	return nil
}
