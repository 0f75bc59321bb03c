// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"bytes"
	"hash"
	"sync"

	"github.com/minio/crc64nvme"
	"github.com/minio/sha256-simd"
)

var (
	bufferPool = sync.Pool{
		New: func() any {
			return new(bytes.Buffer)
		},
	}
	sha256Pool = sync.Pool{
		New: func() any {
			return sha256.New()
		},
	}
	crc64nvmePool = sync.Pool{
		New: func() any {
			return crc64nvme.New()
		},
	}
)

func SyncPoolGetBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

func SyncPoolPutBuffer(buffer *bytes.Buffer) {
	buffer.Reset()
	bufferPool.Put(buffer)
}

func Sha256PoolGetHasher() hash.Hash {
	return sha256Pool.Get().(hash.Hash)
}

func Sha256PoolPutHasher(h hash.Hash) {
	h.Reset()
	sha256Pool.Put(h)
}

func Crc64nvmePoolGetHasher() hash.Hash64 {
	return crc64nvmePool.Get().(hash.Hash64)
}

func Crc64nvmePoolPutHasher(h hash.Hash64) {
	h.Reset()
	crc64nvmePool.Put(h)
}
