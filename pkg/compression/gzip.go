// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package compression

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
)

var (
	gzipWriterPool sync.Pool
	gzipReaderPool sync.Pool
)

func init() {
	gzipWriterPool = sync.Pool{
		New: func() any {
			w, _ := gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression)
			return w
		},
	}
	gzipReaderPool = sync.Pool{
		New: func() any {
			return new(gzip.Reader)
		},
	}
}

func compressGzip(data []byte) ([]byte, error) {
	w := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(w)

	var buf bytes.Buffer
	w.Reset(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("gzip compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressGzip(data []byte) ([]byte, error) {
	r := gzipReaderPool.Get().(*gzip.Reader)
	defer gzipReaderPool.Put(r)

	if err := r.Reset(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("gzip reset: %w", err)
	}
	decompressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip decompress: %w", err)
	}
	if err := r.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return decompressed, nil
}

type gzipCompressReader struct {
	pr   *io.PipeReader
	pw   *io.PipeWriter
	w    *gzip.Writer
	done chan struct{}
}

func newGzipCompressReader(r io.Reader) *gzipCompressReader {
	pr, pw := io.Pipe()
	w := gzipWriterPool.Get().(*gzip.Writer)
	w.Reset(pw)

	cr := &gzipCompressReader{
		pr:   pr,
		pw:   pw,
		w:    w,
		done: make(chan struct{}),
	}

	go func() {
		defer close(cr.done)
		_, err := io.Copy(w, r)
		if cerr := w.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			pw.CloseWithError(err)
		} else {
			pw.Close()
		}
	}()

	return cr
}

func (r *gzipCompressReader) Read(p []byte) (int, error) {
	return r.pr.Read(p)
}

func (r *gzipCompressReader) Close() error {
	r.pr.Close()
	<-r.done
	gzipWriterPool.Put(r.w)
	return nil
}

func newGzipDecompressReader(r io.Reader) (io.ReadCloser, error) {
	zr := gzipReaderPool.Get().(*gzip.Reader)
	if err := zr.Reset(r); err != nil {
		gzipReaderPool.Put(zr)
		return nil, fmt.Errorf("gzip reset: %w", err)
	}
	return &pooledGzipReader{Reader: zr}, nil
}

type pooledGzipReader struct {
	*gzip.Reader
}

func (r *pooledGzipReader) Close() error {
	err := r.Reader.Close()
	gzipReaderPool.Put(r.Reader)
	return err
}

func newGzipCompressWriter(w io.Writer) io.WriteCloser {
	zw := gzipWriterPool.Get().(*gzip.Writer)
	zw.Reset(w)
	return &pooledGzipWriter{Writer: zw}
}

type pooledGzipWriter struct {
	*gzip.Writer
}

func (w *pooledGzipWriter) Close() error {
	err := w.Writer.Close()
	gzipWriterPool.Put(w.Writer)
	return err
}
