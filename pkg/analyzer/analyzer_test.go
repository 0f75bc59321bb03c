// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package analyzer_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/analyzer"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree lays out a small repository-like directory.
func writeTree(t *testing.T, files map[string]int) string {
	t.Helper()

	root := t.TempDir()
	for rel, size := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	}
	return root
}

func TestAnalyze_ClassifiesByExtension(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]int{
		"README.md":       1000,
		"src/main.py":     2000,
		"assets/logo.png": 4000,
		"build/lib.so":    500,
		"data.bin":        300,
	})

	a, err := analyzer.Analyze(root)
	require.NoError(t, err)

	assert.Equal(t, 5, a.TotalFiles)
	assert.Equal(t, int64(7800), a.TotalSize)
	assert.Equal(t, int64(3000), a.CompressibleBytes)
	assert.Equal(t, int64(4000), a.BinaryBytes)
	require.Len(t, a.SkippedFiles, 1)
	assert.Equal(t, filepath.Join(root, "build", "lib.so"), a.SkippedFiles[0])
	assert.Empty(t, a.LargeFiles)
}

func TestAnalyze_CountsGitObjects(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]int{
		".git/objects/ab/cdef": 6000,
		".git/config":          200,
		"main.go":              100,
	})

	a, err := analyzer.Analyze(root)
	require.NoError(t, err)

	assert.Equal(t, int64(6200), a.GitObjectsBytes)
	assert.Equal(t, int64(6300), a.TotalSize)

	// Git objects dominate, so the analysis suggests a gc.
	require.NotEmpty(t, a.Recommendations)
	assert.Contains(t, a.Recommendations[0], "git gc")
}

func TestAnalyze_MissingRoot(t *testing.T) {
	t.Parallel()

	_, err := analyzer.Analyze(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)

	var pe *types.PlanningError
	assert.ErrorAs(t, err, &pe)
}

func TestShouldCompress(t *testing.T) {
	t.Parallel()

	a := &analyzer.RepositoryAnalysis{CompressibleBytes: 11 * types.MiB}
	assert.True(t, a.ShouldCompress())

	a = &analyzer.RepositoryAnalysis{CompressibleBytes: 2 * types.MiB}
	assert.False(t, a.ShouldCompress())
}

func TestListFiles_SkipsScratchDirsAndArtifacts(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]int{
		"main.py":                      10,
		"lib/util.py":                  10,
		"lib/util.pyc":                 10,
		"__pycache__/main.cpython.pyc": 10,
		"node_modules/pkg/index.js":    10,
		"venv/bin/activate":            10,
		".git/objects/ab/cdef":         10,
		".git/HEAD":                    10,
	})

	files, err := analyzer.ListFiles(root)
	require.NoError(t, err)

	rel := make([]string, 0, len(files))
	for _, f := range files {
		r, err := filepath.Rel(root, f)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
	}

	assert.ElementsMatch(t, []string{"main.py", "lib/util.py", ".git/HEAD"}, rel)
}

func TestListFiles_SingleFileRoot(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]int{"only.txt": 5})
	path := filepath.Join(root, "only.txt")

	files, err := analyzer.ListFiles(path)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
}
