// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/session"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List persisted upload sessions",
	Long: `List every persisted upload session, oldest first.

With --cleanup, completed sessions are deleted after listing. Interrupted
and failed sessions are always kept so they can be resumed.

Example:
  smarthub sessions
  smarthub sessions --cleanup`,
	Run: runSessions,
}

func init() {
	f := sessionsCmd.Flags()
	f.Bool("cleanup", false, "Delete completed sessions after listing")
	addStoreFlags(f)

	viper.BindPFlags(f)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) {
	l := NewFlagLoader(cmd)

	st, err := openSessionStore(l)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open session store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	listSessions(st, l.Bool("cleanup"))
}

// listSessions prints every persisted session and optionally removes the
// completed ones.
func listSessions(st session.Store, cleanup bool) {
	sums, err := st.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to list sessions: %v\n", err)
		os.Exit(1)
	}
	if len(sums) == 0 {
		fmt.Println("No sessions found.")
		return
	}

	fmt.Printf("Upload Sessions (%d total)\n", len(sums))
	fmt.Printf("================================\n")
	for _, s := range sums {
		status := "in progress"
		switch {
		case s.Completed:
			status = "complete"
		case s.FailedChunks > 0:
			status = fmt.Sprintf("%d chunks failed", s.FailedChunks)
		}

		fmt.Printf("\n%s  %s\n", s.ID, s.RepoTarget)
		fmt.Printf("  Source:    %s\n", s.SourcePath)
		fmt.Printf("  Started:   %s\n", s.StartTime.Format("2006-01-02 15:04:05"))
		fmt.Printf("  Progress:  %.2f%% (%d/%d chunks, %s)\n",
			s.Progress, s.UploadedChunks, s.TotalChunks, humanize.Bytes(uint64(s.TotalSize)))
		fmt.Printf("  Status:    %s\n", status)
	}

	if !cleanup {
		return
	}
	removed := 0
	for _, s := range sums {
		if !s.Completed {
			continue
		}
		if err := st.Delete(s.ID); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to delete session %s: %v\n", s.ID, err)
			os.Exit(1)
		}
		removed++
	}
	fmt.Printf("\nRemoved %d completed sessions.\n", removed)
}
