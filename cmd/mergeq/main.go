package main

import (
	"os"

	"mergeq.dev/mergeq/internal/cli"
	mergeqerrors "mergeq.dev/mergeq/internal/errors"
	"mergeq.dev/mergeq/internal/output"
)

func main() {
	rootCmd := cli.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		splog := output.NewSplog()
		splog.Error("%v", err)
		os.Exit(mergeqerrors.ExitCode(err))
	}
}
