// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package utils

import "os"

// Fdatasync falls back to standard Sync on non-Linux platforms.
// On macOS, fsync already has fdatasync-like behavior.
// On Windows, this provides full sync semantics.
func Fdatasync(f *os.File) error {
	return f.Sync()
}
