// Package main provides the minhash analysis tool, which measures sketch
// accuracy and cross-checks the lane-batched register loops.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// ErrOutOfTolerance is returned when a mean estimate misses the true Jaccard
// similarity by more than the configured tolerance.
var ErrOutOfTolerance = errors.New("estimate out of tolerance")

type rootOptions struct {
	configPath string
	verbose    bool
}

func main() {
	err := newRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "analysis",
		Short: "Accuracy and lane analysis for minhash sketches",
		Long: `analysis exercises minhash sketches empirically.

Commands:
  accuracy  Compare mean estimates with the true Jaccard similarity
  lanes     Report CPU vector support and cross-check every lane width`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default .minhash-analysis.yaml in . or $HOME)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringP("format", "f", DefaultFormat, "output format (table, json, yaml)")
	rootCmd.PersistentFlags().String("log-level", DefaultLogLevel, "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newAccuracyCommand(opts))
	rootCmd.AddCommand(newLanesCommand(opts))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "minhash analysis %s\n", version)
		},
	}
}
