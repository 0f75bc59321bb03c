// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/progress"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show upload session progress",
	Long: `Show the progress of one upload session, or a summary of all of them.

Example:
  smarthub status --session 1a2b3c4d5e6f7a8b
  smarthub status`,
	Run: runStatus,
}

func init() {
	f := statusCmd.Flags()
	f.String("session", "", "Session ID (omit to list every session)")
	addStoreFlags(f)

	viper.BindPFlags(f)
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	l := NewFlagLoader(cmd)

	st, err := openSessionStore(l)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open session store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	id := l.String("session")
	if id == "" {
		listSessions(st, false)
		return
	}

	sess, err := st.Load(id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to load session: %v\n", err)
		os.Exit(1)
	}

	r := progress.Status(sess)
	fmt.Printf("Session %s\n", r.SessionID)
	fmt.Printf("================================\n")
	fmt.Printf("  Repository:   %s\n", r.RepoTarget)
	fmt.Printf("  Source:       %s\n", r.SourcePath)
	fmt.Printf("  Started:      %s\n", sess.StartTime.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Progress:     %.2f%% (%d/%d chunks)\n", r.Progress, r.UploadedChunks, r.TotalChunks)
	fmt.Printf("  Uploaded:     %s of %s\n",
		humanize.Bytes(uint64(r.UploadedBytes)), humanize.Bytes(uint64(r.TotalBytes)))
	if r.FailedChunks > 0 {
		fmt.Printf("  Failed:       %d chunks\n", r.FailedChunks)
	}

	switch {
	case r.Completed:
		fmt.Printf("  Status:       complete\n")
	case r.ETA > 0:
		fmt.Printf("  Speed:        %s\n", progress.SpeedString(r.Speed))
		fmt.Printf("  ETA:          %s\n", r.ETA)
	default:
		fmt.Printf("  Status:       in progress\n")
	}
	fmt.Printf("  Elapsed:      %s\n", r.Elapsed.Round(time.Second))
}
