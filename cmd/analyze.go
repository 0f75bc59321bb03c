// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/analyzer"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a repository before uploading",
	Long: `Analyze a repository tree: file counts, sizes, compressible versus
binary content, large files, and upload recommendations.

Example:
  smarthub analyze --source ./my-repo
  smarthub analyze --source ./my-repo --json`,
	Run: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.String("source", "", "Directory to analyze")
	f.Bool("json", false, "Print the analysis as JSON")

	analyzeCmd.MarkFlagRequired("source")

	viper.BindPFlags(f)
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) {
	l := NewFlagLoader(cmd)

	source := resolveSource(l)
	a, err := analyzer.Analyze(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to analyze %s: %v\n", source, err)
		os.Exit(1)
	}

	if l.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(a)
		return
	}

	fmt.Printf("Repository Analysis (%s)\n", a.Root)
	fmt.Printf("================================\n")
	fmt.Printf("  Files:         %d\n", a.TotalFiles)
	fmt.Printf("  Total size:    %s\n", humanize.Bytes(uint64(a.TotalSize)))
	fmt.Printf("  Compressible:  %s\n", humanize.Bytes(uint64(a.CompressibleBytes)))
	fmt.Printf("  Binary:        %s\n", humanize.Bytes(uint64(a.BinaryBytes)))
	if a.GitObjectsBytes > 0 {
		fmt.Printf("  Git objects:   %s\n", humanize.Bytes(uint64(a.GitObjectsBytes)))
	}
	if len(a.SkippedFiles) > 0 {
		fmt.Printf("  Skipped:       %d files\n", len(a.SkippedFiles))
	}

	if len(a.LargeFiles) > 0 {
		fmt.Printf("\nLarge files:\n")
		for _, lf := range a.LargeFiles {
			fmt.Printf("  %-10s %s\n", humanize.Bytes(uint64(lf.Size)), lf.Path)
		}
	}
	if len(a.Recommendations) > 0 {
		fmt.Printf("\nRecommendations:\n")
		for _, r := range a.Recommendations {
			fmt.Printf("  - %s\n", r)
		}
	}
}
