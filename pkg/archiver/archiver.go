// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

// Package archiver bundles a source tree into a single tar archive before
// planning. Backups and pre-compressed uploads flow through here; the
// resulting archive is then chunked like any other file.
package archiver

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/compression"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/logger"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/types"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/utils"
)

// DefaultExcludes are the patterns every archive skips: build artifacts,
// scratch directories, and git internals that are cheaper to regenerate
// than to upload. Callers append their own patterns on top.
var DefaultExcludes = []string{
	"*.pyc", "*.pyo", "__pycache__",
	".git/objects", ".git/lfs",
	"node_modules", "venv", "env",
	"*.log", "*.tmp", ".DS_Store",
}

// Result describes a finished archive.
type Result struct {
	Path         string                `json:"path"`
	Files        int                   `json:"files"`
	SourceBytes  int64                 `json:"source_bytes"`
	ArchiveBytes int64                 `json:"archive_bytes"`
	Algorithm    compression.Algorithm `json:"algorithm"`
	Duration     time.Duration         `json:"duration"`
}

// Archive walks root and writes a tar archive of it into destDir, compressed
// with algo. Entry names are relative to root's parent so extraction
// recreates the tree under its original top-level name. The archive file is
// named {base}_{timestamp}.tar{ext} and synced to disk before Archive
// returns. Excludes are matched on top of DefaultExcludes; a matching
// directory prunes its whole subtree.
func Archive(root, destDir string, algo compression.Algorithm, excludes []string) (*Result, error) {
	root = filepath.Clean(root)
	fi, err := os.Stat(root)
	if err != nil {
		return nil, &types.PlanningError{Path: root, Err: err}
	}
	if !fi.IsDir() {
		return nil, &types.PlanningError{Path: root, Err: fmt.Errorf("not a directory")}
	}
	if !algo.IsValid() {
		return nil, fmt.Errorf("archive %s: invalid algorithm %q", root, algo)
	}

	patterns := append(append([]string{}, excludes...), DefaultExcludes...)

	name := fmt.Sprintf("%s_%s.tar%s",
		filepath.Base(root), time.Now().Format("20060102_150405"), algo.Extension())
	archivePath := filepath.Join(destDir, name)

	start := time.Now()
	res := &Result{Path: archivePath, Algorithm: algo}
	if err := writeArchive(root, archivePath, algo, patterns, res); err != nil {
		os.Remove(archivePath)
		return nil, fmt.Errorf("archive %s: %w", root, err)
	}

	afi, err := os.Stat(archivePath)
	if err != nil {
		return nil, fmt.Errorf("archive %s: %w", root, err)
	}
	res.ArchiveBytes = afi.Size()
	res.Duration = time.Since(start)

	if algo != compression.None {
		compression.RecordCompression(algo, int(res.SourceBytes), int(res.ArchiveBytes), false)
	}

	logger.Info().
		Str("root", root).
		Str("archive", archivePath).
		Int("files", res.Files).
		Int64("source_bytes", res.SourceBytes).
		Int64("archive_bytes", res.ArchiveBytes).
		Str("algorithm", algo.String()).
		Dur("duration", res.Duration).
		Msg("archiver: archive created")
	return res, nil
}

func writeArchive(root, archivePath string, algo compression.Algorithm, patterns []string, res *Result) (err error) {
	f, err := os.OpenFile(archivePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	cw, err := compression.CompressWriter(algo, f)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(cw)

	prefix := filepath.Base(root)
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn().Err(err).Str("path", p).Msg("archiver: skipping unreadable entry")
			return nil
		}
		if p == root || p == archivePath {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if excluded(rel, patterns) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		return addEntry(tw, p, path.Join(prefix, filepath.ToSlash(rel)), d, res)
	})
	if err != nil {
		tw.Close()
		cw.Close()
		return err
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar writer: %w", err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("close compressor: %w", err)
	}
	if err := utils.Fdatasync(f); err != nil {
		return fmt.Errorf("sync archive: %w", err)
	}
	return nil
}

func addEntry(tw *tar.Writer, p, arcname string, d fs.DirEntry, res *Result) error {
	info, err := d.Info()
	if err != nil {
		logger.Warn().Err(err).Str("path", p).Msg("archiver: skipping unstatable file")
		return nil
	}

	var link string
	if info.Mode()&os.ModeSymlink != 0 {
		if link, err = os.Readlink(p); err != nil {
			return fmt.Errorf("read symlink %s: %w", p, err)
		}
	} else if !info.Mode().IsRegular() {
		return nil
	}

	header, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return fmt.Errorf("tar header %s: %w", p, err)
	}
	header.Name = arcname

	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write tar header %s: %w", arcname, err)
	}
	if link != "" {
		return nil
	}

	src, err := os.Open(p)
	if err != nil {
		return fmt.Errorf("open %s: %w", p, err)
	}
	n, err := io.Copy(tw, src)
	src.Close()
	if err != nil {
		return fmt.Errorf("copy %s: %w", p, err)
	}

	res.Files++
	res.SourceBytes += n
	return nil
}

// Extract unpacks an archive produced by Archive into destDir, inferring the
// compression from the file extension. Entry paths are confined to destDir.
func Extract(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("extract %s: %w", archivePath, err)
	}
	defer f.Close()

	dr, err := compression.DecompressReader(DetectAlgorithm(archivePath), f)
	if err != nil {
		return fmt.Errorf("extract %s: %w", archivePath, err)
	}
	defer dr.Close()

	destDir = filepath.Clean(destDir)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("extract %s: %w", archivePath, err)
	}

	tr := tar.NewReader(dr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar %s: %w", archivePath, err)
		}

		target := filepath.Join(destDir, filepath.FromSlash(header.Name))
		if !strings.HasPrefix(target, destDir+string(filepath.Separator)) {
			return fmt.Errorf("extract %s: entry %q escapes destination", archivePath, header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create dir for %s: %w", target, err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode)&0o777)
			if err != nil {
				return fmt.Errorf("create file %s: %w", target, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("write file %s: %w", target, err)
			}
			if err := out.Close(); err != nil {
				return fmt.Errorf("close file %s: %w", target, err)
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create dir for %s: %w", target, err)
			}
			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("symlink %s: %w", target, err)
			}
		}
	}
	return nil
}

// DetectAlgorithm maps an archive file extension back to its compression.
func DetectAlgorithm(archivePath string) compression.Algorithm {
	switch strings.ToLower(filepath.Ext(archivePath)) {
	case ".zst":
		return compression.ZSTD
	case ".gz":
		return compression.Gzip
	default:
		return compression.None
	}
}

// excluded reports whether rel, a path relative to the archive root, matches
// any pattern. Bare patterns match the final path element; patterns with a
// slash match a trailing run of elements, so ".git/objects" prunes the
// object store wherever the tree sits.
func excluded(rel string, patterns []string) bool {
	rel = filepath.ToSlash(rel)
	base := path.Base(rel)
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if strings.Contains(pattern, "/") {
			if ok, _ := path.Match(pattern, rel); ok {
				return true
			}
			if strings.HasSuffix(rel, "/"+pattern) {
				return true
			}
			continue
		}
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
