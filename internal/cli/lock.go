package cli

import (
	"time"

	"github.com/spf13/cobra"
)

func newLockCmd(verbose *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Acquire and release the engine's named cross-process locks",
	}

	cmd.AddCommand(newLockAcquireCmd(verbose))
	cmd.AddCommand(newLockReleaseCmd(verbose))

	return cmd
}

func newLockAcquireCmd(verbose *bool) *cobra.Command {
	var timeoutSeconds int

	cmd := &cobra.Command{
		Use:   "acquire <name>",
		Short: "Acquire a named lock, printing the holder token on success",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := getContext(cmd, *verbose)
			if err != nil {
				return err
			}
			timeout := ctx.Config.LockTimeout()
			if timeoutSeconds > 0 {
				timeout = time.Duration(timeoutSeconds) * time.Second
			}
			token, err := ctx.Locks.Acquire(cmd.Context(), args[0], timeout)
			if err != nil {
				return err
			}
			// The token is the caller's proof of ownership for release.
			ctx.Splog.Info("%s", token)
			return nil
		},
	}

	cmd.Flags().IntVar(&timeoutSeconds, "timeout", 0, "seconds to wait before giving up (default from config)")

	return cmd
}

func newLockReleaseCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "release <name> <token>",
		Short: "Release a named lock using its holder token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := getContext(cmd, *verbose)
			if err != nil {
				return err
			}
			return ctx.Locks.Release(args[0], args[1])
		},
	}
}
