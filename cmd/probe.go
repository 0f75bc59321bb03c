// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/netprobe"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Measure upload throughput and print the network profile",
	Long: `Measure upload throughput with a timed test upload and print the
network profile that uploads would plan chunks with.

Example:
  smarthub probe
  smarthub probe --probe_endpoint https://upload.example.com/speedtest`,
	Run: runProbe,
}

func init() {
	f := probeCmd.Flags()
	f.String("probe_endpoint", "", "Endpoint for the probe upload")

	viper.BindPFlags(f)
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) {
	l := NewFlagLoader(cmd)

	endpoint := l.String("probe_endpoint")
	if endpoint == "" {
		endpoint = netprobe.DefaultEndpoint
	}

	m, err := netprobe.Measure(cmd.Context(), endpoint)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Probe failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Network Probe (%s)\n", endpoint)
	fmt.Printf("================================\n")
	fmt.Printf("  Uploaded:    %s in %s\n", humanize.Bytes(uint64(m.Bytes)), m.Duration.Round(time.Millisecond))
	fmt.Printf("  Throughput:  %.2f MB/s\n", m.MBps)
	fmt.Printf("  Profile:     %s (%s chunks)\n", m.Profile, humanize.IBytes(uint64(m.Profile.BaseChunkSize())))
}
