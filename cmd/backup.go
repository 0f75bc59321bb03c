// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Archive a repository and upload the archive as one session",
	Long: `Archive a whole repository tree and upload the archive in a chunked
session.

Unlike "upload --compress", backup always archives, and the archive stays
on disk next to the source after the upload finishes so it can double as a
local backup.

Example:
  smarthub backup --source ./my-repo --repo org/my-repo
  smarthub backup --source ./my-repo --repo org/backups --compression zstd --exclude "*.iso"`,
	Run: runBackup,
}

func init() {
	f := backupCmd.Flags()
	f.String("source", "", "Directory to back up")
	f.String("repo", "", "Target repository (e.g. org/name)")
	f.String("compression", "gzip", "Archive compression (none, gzip, zstd)")
	f.String("archive_dir", "", "Directory for the archive (default: source's parent)")
	f.StringSlice("exclude", nil, "Extra exclude patterns for the archive")
	addProfileFlags(f)
	addRemoteFlags(f)
	addStoreFlags(f)
	addSchedulerFlags(f)

	backupCmd.MarkFlagRequired("source")
	backupCmd.MarkFlagRequired("repo")

	viper.BindPFlags(f)
	rootCmd.AddCommand(backupCmd)
}

func runBackup(cmd *cobra.Command, args []string) {
	l := NewFlagLoader(cmd)

	source := resolveSource(l)
	fi, err := os.Stat(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Cannot read source: %v\n", err)
		os.Exit(1)
	}
	if !fi.IsDir() {
		fmt.Fprintf(os.Stderr, "Error: Backup needs a directory; upload single files with \"smarthub upload\"\n")
		os.Exit(1)
	}

	archive := archiveTree(l, source)
	startSession(cmd.Context(), l, source, []string{archive})
}
