// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

// Package analyzer inspects a source tree before an upload is planned.
//
// The analysis is ephemeral: it informs chunking and compression choices and
// renders in the CLI, but is never persisted.
package analyzer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/logger"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/types"
)

const (
	// LargeFileThreshold marks files worth calling out individually.
	LargeFileThreshold = 50 * types.MiB

	// CompressWorthwhile is the compressible volume above which
	// pre-compressing the tree pays for itself.
	CompressWorthwhile = 10 * types.MiB
)

var (
	// compressibleExts mark text-like content that gains from compression
	compressibleExts = map[string]struct{}{
		".txt": {}, ".md": {}, ".py": {}, ".js": {}, ".ts": {}, ".html": {},
		".css": {}, ".json": {}, ".xml": {}, ".yml": {}, ".yaml": {},
	}

	// skipExts mark build artifacts that never upload
	skipExts = map[string]struct{}{
		".pyc": {}, ".pyo": {}, ".pyd": {}, ".so": {}, ".dylib": {},
		".dll": {}, ".exe": {},
	}

	// binaryExts mark already-packed content compression cannot help
	binaryExts = map[string]struct{}{
		".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".mp4": {},
		".mov": {}, ".avi": {}, ".zip": {}, ".tar": {}, ".gz": {},
	}

	// excludedDirNames are scratch trees skipped during upload planning
	excludedDirNames = map[string]struct{}{
		"__pycache__":  {},
		"node_modules": {},
		"venv":         {},
	}
)

// LargeFile is one file above LargeFileThreshold.
type LargeFile struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// RepositoryAnalysis summarizes a source tree.
type RepositoryAnalysis struct {
	Root              string      `json:"root"`
	TotalFiles        int         `json:"total_files"`
	TotalSize         int64       `json:"total_size"`
	CompressibleBytes int64       `json:"compressible_bytes"`
	BinaryBytes       int64       `json:"binary_bytes"`
	SkippedFiles      []string    `json:"skipped_files,omitempty"`
	LargeFiles        []LargeFile `json:"large_files,omitempty"`
	GitObjectsBytes   int64       `json:"git_objects_bytes"`
	Recommendations   []string    `json:"recommendations,omitempty"`
}

// ShouldCompress reports whether pre-compressing the tree is worthwhile.
func (a *RepositoryAnalysis) ShouldCompress() bool {
	return a.CompressibleBytes > CompressWorthwhile
}

// Analyze walks root and classifies every regular file. Unreadable entries
// are logged and skipped; only an unreadable root is fatal.
func Analyze(root string) (*RepositoryAnalysis, error) {
	root = filepath.Clean(root)
	if _, err := os.Stat(root); err != nil {
		return nil, &types.PlanningError{Path: root, Err: err}
	}

	a := &RepositoryAnalysis{Root: root}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("analyzer: skipping unreadable entry")
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("analyzer: skipping unstatable file")
			return nil
		}
		size := info.Size()

		a.TotalFiles++
		a.TotalSize += size
		if underDotGit(root, path) {
			a.GitObjectsBytes += size
		}

		ext := strings.ToLower(filepath.Ext(path))
		switch {
		case contains(skipExts, ext):
			a.SkippedFiles = append(a.SkippedFiles, path)
		case contains(compressibleExts, ext):
			a.CompressibleBytes += size
		case contains(binaryExts, ext):
			a.BinaryBytes += size
		}

		if size > LargeFileThreshold {
			a.LargeFiles = append(a.LargeFiles, LargeFile{Path: path, Size: size})
		}
		return nil
	})
	if err != nil {
		return nil, &types.PlanningError{Path: root, Err: err}
	}

	a.Recommendations = recommendations(a)
	return a, nil
}

// ListFiles returns the files under root eligible for upload planning, in
// walk order. Skip-listed extensions and excluded scratch directories are
// left out. A root that is itself a file yields exactly that file.
func ListFiles(root string) ([]string, error) {
	root = filepath.Clean(root)
	fi, err := os.Stat(root)
	if err != nil {
		return nil, &types.PlanningError{Path: root, Err: err}
	}
	if !fi.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("analyzer: skipping unreadable entry")
			return nil
		}
		if d.IsDir() {
			if excludedDir(path, d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if contains(skipExts, strings.ToLower(filepath.Ext(path))) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, &types.PlanningError{Path: root, Err: err}
	}
	return files, nil
}

func recommendations(a *RepositoryAnalysis) []string {
	var recs []string
	if a.TotalSize > 0 && a.GitObjectsBytes > a.TotalSize/2 {
		recs = append(recs, "git objects dominate the tree; run 'git gc' before uploading")
	}
	if a.ShouldCompress() {
		recs = append(recs, fmt.Sprintf("%s of compressible content; pre-compression recommended",
			humanize.Bytes(uint64(a.CompressibleBytes))))
	}
	if n := len(a.LargeFiles); n > 0 {
		recs = append(recs, fmt.Sprintf("%d files over %s; adaptive chunk sizing applies",
			n, humanize.Bytes(uint64(LargeFileThreshold))))
	}
	return recs
}

// excludedDir matches scratch directory names plus the .git object store.
func excludedDir(path, name string) bool {
	if _, ok := excludedDirNames[name]; ok {
		return true
	}
	return name == "objects" && filepath.Base(filepath.Dir(path)) == ".git"
}

func underDotGit(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == ".git" || strings.HasPrefix(rel, ".git"+string(filepath.Separator))
}

func contains(set map[string]struct{}, ext string) bool {
	_, ok := set[ext]
	return ok
}
