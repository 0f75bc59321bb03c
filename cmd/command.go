// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/debug"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/env"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/logger"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/utils"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "smarthub",
	Short: "SmartHub - chunked upload sessions for large repositories",
	Long: `SmartHub uploads large repositories to a hub in resumable chunked sessions.
It sizes chunks from a measured network profile, checksums every chunk before
and after transfer, and persists session state so interrupted uploads can be
resumed from the last confirmed chunk.`,
	PersistentPreRun: initializeRuntime,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&utils.ConfigurationFileDirectory, "config_dir", ".", "Directory for configuration files")
	f.String("log_level", "", "Log level (trace, debug, info, warn, error)")
	f.String("debug_addr", "", "Serve pprof, metrics and health probes on this address (e.g. 127.0.0.1:8040)")
	viper.BindPFlags(f)
}

// initializeRuntime loads configuration and wires logging and the optional
// debug server before any command runs.
func initializeRuntime(cmd *cobra.Command, args []string) {
	utils.LoadConfiguration("smarthub", false)
	l := NewFlagLoader(cmd)

	if env.IsLocal() {
		logger.UseConsoleWriter()
	}
	if name := l.String("log_level"); name != "" {
		if level, err := zerolog.ParseLevel(name); err == nil {
			logger.SetLevel(level)
		}
	}

	if addr := l.String("debug_addr"); addr != "" {
		startDebugServer(addr)
	}
}

// startDebugServer exposes the debug mux for the lifetime of the process.
// Long uploads are the intended consumer; the listener dies with the process.
func startDebugServer(addr string) {
	debug.RegisterHandlerFunc("/version", versionHandler)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", addr).Msg("cmd: failed to bind debug server")
	}

	go func() {
		if err := http.Serve(ln, debug.GetMux()); err != nil {
			logger.Error().Err(err).Msg("cmd: debug server stopped")
		}
	}()
	debug.SetReady()
	logger.Info().Str("addr", ln.Addr().String()).Msg("cmd: debug server listening")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
