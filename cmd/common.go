// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/chunker"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/compression"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/netprobe"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/progress"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/remote"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/scheduler"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/session"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/types"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/utils"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
)

// addRemoteFlags registers the flags shared by every command that uploads.
func addRemoteFlags(f *pflag.FlagSet) {
	f.String("remote", "hub", "Remote store type (hub, s3, local)")
	f.String("endpoint", "", "Hub or S3 endpoint override (hub defaults to https://hub.hardcard.ai)")
	f.String("token", "", "Hub API token (or set SMARTHUB_TOKEN / GITHUB_TOKEN)")
	f.String("bucket", "", "S3 bucket for the s3 remote")
	f.String("region", "us-east-1", "S3 region")
	f.String("access_key", "", "S3 access key")
	f.String("secret_key", "", "S3 secret key")
	f.Bool("path_style", false, "Use path-style S3 addressing (MinIO and friends)")
	f.String("remote_dir", "", "Destination directory for the local remote")
}

// addStoreFlags registers the session store flags.
func addStoreFlags(f *pflag.FlagSet) {
	f.String("store", "file", "Session store backend (file, leveldb)")
	f.String("session_dir", "~/.smarthub/sessions", "Directory for persisted session state")
}

// addSchedulerFlags registers the upload scheduler flags.
func addSchedulerFlags(f *pflag.FlagSet) {
	f.Int("concurrent", 3, "Maximum concurrent chunk uploads")
	f.Int("max_retries", 3, "Retry budget per chunk for transient failures")
	f.Duration("backoff", time.Second, "Base unit for exponential retry backoff")
	f.Int("rate_limit", 0, "Maximum upload launches per second (0 = unlimited)")
	f.Bool("verify", true, "Re-checksum each chunk against the source before upload")
}

// addProfileFlags registers the network profile flags.
func addProfileFlags(f *pflag.FlagSet) {
	f.String("profile", "", "Pin the network profile (slow, medium, fast, ultra) instead of probing")
	f.String("probe_endpoint", "", "Endpoint for the network probe upload")
}

// loadRemoteConfig assembles the remote store configuration, resolving the
// hub token through flag, config, SMARTHUB_TOKEN and GITHUB_TOKEN in that
// order.
func loadRemoteConfig(l *FlagLoader) types.RemoteConfig {
	return types.RemoteConfig{
		Type:      types.RemoteType(l.String("remote")),
		Endpoint:  l.String("endpoint"),
		Token:     resolveToken(l),
		Bucket:    l.String("bucket"),
		Region:    l.String("region"),
		AccessKey: l.String("access_key"),
		SecretKey: l.String("secret_key"),
		PathStyle: l.Bool("path_style"),
		Dir:       l.String("remote_dir"),
	}
}

func resolveToken(l *FlagLoader) string {
	if tok := l.String("token"); tok != "" {
		return tok
	}
	return os.Getenv("GITHUB_TOKEN")
}

// resolveSource normalizes the --source flag to an absolute path, so the
// paths recorded in a session stay valid when a resume runs from a different
// working directory.
func resolveSource(l *FlagLoader) string {
	source := utils.ResolvePath(l.String("source"))
	if abs, err := filepath.Abs(source); err == nil {
		return abs
	}
	return source
}

func openRemote(l *FlagLoader) (remote.Store, error) {
	return remote.Open(loadRemoteConfig(l))
}

func openSessionStore(l *FlagLoader) (session.Store, error) {
	return session.Open(session.Config{
		Type: session.StoreType(l.String("store")),
		Dir:  utils.ResolvePath(l.String("session_dir")),
	})
}

func loadSchedulerConfig(l *FlagLoader) scheduler.Config {
	return scheduler.Config{
		MaxConcurrent: l.Int("concurrent"),
		MaxRetries:    l.Int("max_retries"),
		BackoffUnit:   l.Duration("backoff"),
		RateLimit:     l.Int("rate_limit"),
		Verify:        l.Bool("verify"),
	}
}

// resolveProfile returns the pinned profile when --profile is set, otherwise
// probes the network. An unknown profile name aborts rather than silently
// planning with the wrong chunk size.
func resolveProfile(ctx context.Context, l *FlagLoader) types.NetworkProfile {
	if name := l.String("profile"); name != "" {
		p := types.NetworkProfile(name)
		if !p.IsValid() {
			fmt.Fprintf(os.Stderr, "Error: Unknown network profile %q (want slow, medium, fast or ultra)\n", name)
			os.Exit(1)
		}
		return p
	}
	return netprobe.Probe(ctx, l.String("probe_endpoint"))
}

// parseCompression validates the --compression flag.
func parseCompression(l *FlagLoader) compression.Algorithm {
	algo := compression.Algorithm(l.String("compression"))
	if !algo.IsValid() {
		fmt.Fprintf(os.Stderr, "Error: Unknown compression %q (want none, gzip or zstd)\n", l.String("compression"))
		os.Exit(1)
	}
	return algo
}

// startSession probes the network, plans files into chunks, persists the
// new session record and drives the scheduler over it. source names the
// session; files are what gets chunked.
func startSession(ctx context.Context, l *FlagLoader, source string, files []string) {
	profile := resolveProfile(ctx, l)
	fmt.Printf("Network profile: %s (%s chunks)\n", profile, humanize.IBytes(uint64(profile.BaseChunkSize())))

	start := time.Now()
	sessionID := types.NewSessionID(source, start)
	plan := chunker.PlanFiles(files, sessionID, profile)
	if len(plan.Failed) > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %d of %d files could not be planned\n", len(plan.Failed), len(files))
	}
	if len(plan.Chunks) == 0 && len(plan.EmptyFiles) == 0 {
		fmt.Fprintf(os.Stderr, "Error: Nothing to upload\n")
		os.Exit(1)
	}

	st, err := openSessionStore(l)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open session store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	sess, err := session.Create(st, types.SessionParams{
		ID:         sessionID,
		SourcePath: source,
		RepoTarget: l.String("repo"),
		StartTime:  start,
		Chunks:     plan.Chunks,
		EmptyFiles: plan.EmptyFiles,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to create session: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Session %s: %d chunks, %s\n", sess.ID, sess.TotalChunks(), humanize.Bytes(uint64(sess.TotalSize)))
	runSession(ctx, l, st, sess)
}

// runSession drives the scheduler over sess and reports the result. Shared
// by upload, resume and backup.
func runSession(ctx context.Context, l *FlagLoader, st session.Store, sess *types.UploadSession) {
	rs, err := openRemote(l)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open remote: %v\n", err)
		os.Exit(1)
	}
	defer rs.Close()

	out, err := scheduler.New(loadSchedulerConfig(l), rs, st).Run(ctx, sess)
	if err != nil && !out.Canceled {
		fmt.Fprintf(os.Stderr, "Error: Upload aborted: %v\n", err)
		fmt.Fprintf(os.Stderr, "Resume with: smarthub resume --session %s\n", sess.ID)
		os.Exit(1)
	}

	fmt.Printf("\n%s\n", progress.Status(sess).String())
	fmt.Printf("  Uploaded:  %d chunks, %s in %s\n",
		out.Uploaded, humanize.Bytes(uint64(out.Bytes)), out.Duration.Round(time.Millisecond))
	if out.Bytes > 0 && out.Duration > 0 {
		fmt.Printf("  Speed:     %s\n", progress.SpeedString(float64(out.Bytes)/out.Duration.Seconds()))
	}

	switch {
	case sess.Completed:
		fmt.Printf("\nUpload complete.\n")
	case out.Canceled:
		fmt.Printf("\nInterrupted with %d chunks pending.\n", out.Pending)
		fmt.Printf("Resume with: smarthub resume --session %s\n", sess.ID)
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "\nError: %d chunks failed permanently\n", out.Failed)
		fmt.Fprintf(os.Stderr, "Retry them with: smarthub resume --session %s --reset_failed\n", sess.ID)
		os.Exit(1)
	}
}
