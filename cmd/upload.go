// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/analyzer"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/archiver"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/logger"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/utils"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a file or repository in a resumable chunked session",
	Long: `Upload a file or repository to the hub as a chunked session.

The source is analyzed, optionally bundled into a compressed archive, split
into chunks sized for the measured network profile, and uploaded with
concurrent workers. Session state is persisted after every chunk, so an
interrupted upload can be resumed with "smarthub resume".

Example:
  smarthub upload --source ./my-repo --repo org/my-repo --compress
  smarthub upload --source model.bin --repo org/models --profile fast`,
	Run: runUpload,
}

func init() {
	f := uploadCmd.Flags()
	f.String("source", "", "File or directory to upload")
	f.String("repo", "", "Target repository (e.g. org/name)")
	f.Bool("compress", false, "Bundle a directory source into one compressed archive")
	f.String("compression", "gzip", "Archive compression (none, gzip, zstd)")
	f.String("archive_dir", "", "Directory for the staged archive (default: source's parent)")
	f.StringSlice("exclude", nil, "Extra exclude patterns for the archive")
	addProfileFlags(f)
	addRemoteFlags(f)
	addStoreFlags(f)
	addSchedulerFlags(f)

	uploadCmd.MarkFlagRequired("source")
	uploadCmd.MarkFlagRequired("repo")

	viper.BindPFlags(f)
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) {
	l := NewFlagLoader(cmd)

	source := resolveSource(l)
	fi, err := os.Stat(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Cannot read source: %v\n", err)
		os.Exit(1)
	}

	var files []string
	switch {
	case fi.IsDir():
		files = prepareTree(l, source)
	case l.Bool("compress"):
		logger.Warn().Str("source", source).Msg("cmd: compression skipped, source is a single file")
		files = []string{source}
	default:
		files = []string{source}
	}

	startSession(cmd.Context(), l, source, files)
}

// prepareTree analyzes a directory source and, with --compress, bundles it
// into a single archive so one large file flows through the planner.
func prepareTree(l *FlagLoader, source string) []string {
	a, err := analyzer.Analyze(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to analyze %s: %v\n", source, err)
		os.Exit(1)
	}
	fmt.Printf("Analyzed %s: %d files, %s\n", source, a.TotalFiles, humanize.Bytes(uint64(a.TotalSize)))

	if !l.Bool("compress") {
		if a.ShouldCompress() {
			fmt.Printf("Note: %s of compressible content, consider --compress\n",
				humanize.Bytes(uint64(a.CompressibleBytes)))
		}
		files, err := analyzer.ListFiles(source)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to list files: %v\n", err)
			os.Exit(1)
		}
		return files
	}

	return []string{archiveTree(l, source)}
}

// archiveTree bundles source into one archive and returns its path.
func archiveTree(l *FlagLoader, source string) string {
	destDir := l.String("archive_dir")
	if destDir == "" {
		destDir = filepath.Dir(source)
	}
	res, err := archiver.Archive(source, utils.ResolvePath(destDir), parseCompression(l), l.StringSlice("exclude"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to archive %s: %v\n", source, err)
		os.Exit(1)
	}
	fmt.Printf("Archived %d files: %s -> %s (%s)\n",
		res.Files,
		humanize.Bytes(uint64(res.SourceBytes)), humanize.Bytes(uint64(res.ArchiveBytes)),
		filepath.Base(res.Path))
	return res.Path
}
