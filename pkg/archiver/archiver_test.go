// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package archiver_test

import (
	"archive/tar"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/archiver"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/compression"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/types"
)

// writeTree lays out files with string content under a fresh temp root.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "src")
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func extractedFiles(t *testing.T, dir string) map[string]string {
	t.Helper()
	files := map[string]string{}
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		require.NoError(t, err)
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestArchive_RoundTrip(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"readme.md":        "chunked uploads for large trees\n",
		"lib/util.py":      "def util():\n    return 1\n",
		"assets/logo.png":  strings.Repeat("\x89PNG", 64),
		"docs/deep/nested": "nested content",
	})
	require.NoError(t, os.Symlink("readme.md", filepath.Join(root, "README")))

	destDir := t.TempDir()
	res, err := archiver.Archive(root, destDir, compression.Gzip, nil)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(filepath.Base(res.Path), "src_"))
	assert.True(t, strings.HasSuffix(res.Path, ".tar.gz"))
	assert.Equal(t, 4, res.Files, "symlinks carry no content and are not counted")
	assert.Positive(t, res.SourceBytes)
	assert.Positive(t, res.ArchiveBytes)
	assert.Equal(t, compression.Gzip, res.Algorithm)

	outDir := t.TempDir()
	require.NoError(t, archiver.Extract(res.Path, outDir))

	got := extractedFiles(t, outDir)
	assert.Equal(t, map[string]string{
		"src/readme.md":        "chunked uploads for large trees\n",
		"src/lib/util.py":      "def util():\n    return 1\n",
		"src/assets/logo.png":  strings.Repeat("\x89PNG", 64),
		"src/docs/deep/nested": "nested content",
	}, got)

	link, err := os.Readlink(filepath.Join(outDir, "src", "README"))
	require.NoError(t, err)
	assert.Equal(t, "readme.md", link)
}

func TestArchive_DefaultExcludes(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"main.py":                          "print('hi')\n",
		"debug.log":                        "noise",
		"scratch.tmp":                      "noise",
		".DS_Store":                        "noise",
		"cache.pyc":                        "noise",
		"__pycache__/main.cpython-311.pyc": "noise",
		"__pycache__/keep.txt":             "still excluded, the dir is pruned",
		"node_modules/pkg/index.js":        "noise",
		"venv/bin/python":                  "noise",
		".git/objects/ab/blob":             "noise",
		".git/HEAD":                        "ref: refs/heads/main\n",
	})

	res, err := archiver.Archive(root, t.TempDir(), compression.Gzip, nil)
	require.NoError(t, err)

	outDir := t.TempDir()
	require.NoError(t, archiver.Extract(res.Path, outDir))

	got := extractedFiles(t, outDir)
	assert.Equal(t, map[string]string{
		"src/main.py":   "print('hi')\n",
		"src/.git/HEAD": "ref: refs/heads/main\n",
	}, got)
}

func TestArchive_UserExcludes(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"keep.txt":         "keep",
		"token.secret":     "drop",
		"build/out.bin":    "drop",
		"src/token.secret": "drop",
	})

	res, err := archiver.Archive(root, t.TempDir(), compression.ZSTD, []string{"*.secret", "build"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.Path, ".tar.zst"))

	outDir := t.TempDir()
	require.NoError(t, archiver.Extract(res.Path, outDir))

	got := extractedFiles(t, outDir)
	assert.Equal(t, map[string]string{"src/keep.txt": "keep"}, got)
}

func TestArchive_UncompressedTar(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"a.txt": "plain"})

	res, err := archiver.Archive(root, t.TempDir(), compression.None, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.Path, ".tar"))
	assert.False(t, strings.HasSuffix(res.Path, ".tar.gz"))

	outDir := t.TempDir()
	require.NoError(t, archiver.Extract(res.Path, outDir))
	assert.Equal(t, map[string]string{"src/a.txt": "plain"}, extractedFiles(t, outDir))
}

func TestArchive_MissingRoot(t *testing.T) {
	t.Parallel()

	_, err := archiver.Archive(filepath.Join(t.TempDir(), "absent"), t.TempDir(), compression.Gzip, nil)
	var perr *types.PlanningError
	require.ErrorAs(t, err, &perr)
}

func TestArchive_FileRootRejected(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "single.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := archiver.Archive(file, t.TempDir(), compression.Gzip, nil)
	var perr *types.PlanningError
	require.ErrorAs(t, err, &perr)
}

func TestExtract_RejectsEscapingEntries(t *testing.T) {
	t.Parallel()

	// A hand-built archive with a traversal entry must be refused.
	badTar := filepath.Join(t.TempDir(), "bad.tar")
	f, err := os.Create(badTar)
	require.NoError(t, err)
	tw := tar.NewWriter(f)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "../evil.txt",
		Typeflag: tar.TypeReg,
		Mode:     0o644,
		Size:     4,
	}))
	_, err = tw.Write([]byte("evil"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, f.Close())

	err = archiver.Extract(badTar, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes destination")
}

func TestDetectAlgorithm(t *testing.T) {
	t.Parallel()

	assert.Equal(t, compression.Gzip, archiver.DetectAlgorithm("backup_20260814_120000.tar.gz"))
	assert.Equal(t, compression.ZSTD, archiver.DetectAlgorithm("backup_20260814_120000.tar.zst"))
	assert.Equal(t, compression.None, archiver.DetectAlgorithm("backup_20260814_120000.tar"))
}
