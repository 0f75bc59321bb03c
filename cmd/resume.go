// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/netprobe"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume an interrupted upload session",
	Long: `Resume an interrupted upload session from its persisted state.

Only chunks that were never confirmed are uploaded; confirmed chunks are
skipped. The chunk layout was fixed when the session was planned, so the
network is re-probed for logging only. Permanently failed chunks stay
failed unless --reset_failed returns them to the queue.

Example:
  smarthub resume --session 1a2b3c4d5e6f7a8b
  smarthub resume --session 1a2b3c4d5e6f7a8b --reset_failed`,
	Run: runResume,
}

func init() {
	f := resumeCmd.Flags()
	f.String("session", "", "Session ID to resume")
	f.Bool("reset_failed", false, "Return permanently failed chunks to pending before the run")
	addProfileFlags(f)
	addRemoteFlags(f)
	addStoreFlags(f)
	addSchedulerFlags(f)

	resumeCmd.MarkFlagRequired("session")

	viper.BindPFlags(f)
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) {
	l := NewFlagLoader(cmd)
	ctx := cmd.Context()

	st, err := openSessionStore(l)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open session store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	sess, err := st.Load(l.String("session"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to load session: %v\n", err)
		os.Exit(1)
	}

	if l.Bool("reset_failed") {
		if n := sess.ResetFailed(); n > 0 {
			if err := st.Save(sess); err != nil {
				fmt.Fprintf(os.Stderr, "Error: Failed to persist session: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Reset %d failed chunks\n", n)
		}
	}

	if sess.Completed {
		fmt.Printf("Session %s is already complete.\n", sess.ID)
		return
	}

	if l.String("profile") == "" {
		fmt.Printf("Network profile: %s\n", netprobe.Probe(ctx, l.String("probe_endpoint")))
	}

	fmt.Printf("Resuming session %s: %d/%d chunks uploaded, %d pending\n",
		sess.ID, sess.UploadedChunks(), sess.TotalChunks(), len(sess.PendingChunks()))
	runSession(ctx, l, st, sess)
}
