// Package cli is the command surface the engine exposes to the outer
// layer: analyze, backup management, and lock management.
package cli

import (
	"github.com/spf13/cobra"

	"mergeq.dev/mergeq/internal/runtime"
)

// NewRootCmd creates the root cobra command
func NewRootCmd() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "mergeq",
		Short: "Mergeq analyzes and orchestrates merging candidate branches into a base branch",
		Long: `Mergeq decides, safely and concurrently, whether candidate branches can be
merged into a base branch, and prepares the merge with rollback guarantees:
a cross-process run lock, multi-level validation, bounded-concurrency branch
analysis, and backups with retention.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(newAnalyzeCmd(&verbose))
	rootCmd.AddCommand(newBackupCmd(&verbose))
	rootCmd.AddCommand(newLockCmd(&verbose))

	return rootCmd
}

// getContext builds the runtime context from the current directory
func getContext(cmd *cobra.Command, verbose bool) (*runtime.Context, error) {
	ctx, err := runtime.NewContext(cmd.Context(), ".")
	if err != nil {
		return nil, err
	}
	ctx.Splog.SetVerbose(verbose)
	return ctx, nil
}
