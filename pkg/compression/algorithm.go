// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

// Package compression provides the compression used when a source tree is
// archived before upload. It supports gzip and Zstandard behind a unified
// interface, with pooled coders sized for repeated archive runs.
package compression

// Algorithm represents a compression algorithm
type Algorithm string

const (
	// None indicates no compression
	None Algorithm = "none"
	// Gzip uses DEFLATE (ubiquitous, moderate ratio)
	Gzip Algorithm = "gzip"
	// ZSTD uses the Zstandard compression algorithm (balanced speed/ratio)
	ZSTD Algorithm = "zstd"
)

// IsValid returns true if the algorithm is recognized
func (a Algorithm) IsValid() bool {
	switch a {
	case None, Gzip, ZSTD:
		return true
	default:
		return false
	}
}

// String returns the string representation of the algorithm
func (a Algorithm) String() string {
	return string(a)
}

// Extension returns the conventional file suffix for the algorithm.
func (a Algorithm) Extension() string {
	switch a {
	case Gzip:
		return ".gz"
	case ZSTD:
		return ".zst"
	default:
		return ""
	}
}

// ParseAlgorithm parses a string into an Algorithm.
// Returns None for empty or unrecognized strings.
func ParseAlgorithm(s string) Algorithm {
	algo := Algorithm(s)
	if algo.IsValid() {
		return algo
	}
	return None
}
