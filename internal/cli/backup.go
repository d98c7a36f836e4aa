package cli

import (
	"time"

	"github.com/spf13/cobra"

	"mergeq.dev/mergeq/internal/output"
)

func newBackupCmd(verbose *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list, verify, and restore repository backups",
	}

	cmd.AddCommand(newBackupCreateCmd(verbose))
	cmd.AddCommand(newBackupListCmd(verbose))
	cmd.AddCommand(newBackupRestoreCmd(verbose))
	cmd.AddCommand(newBackupVerifyCmd(verbose))
	cmd.AddCommand(newBackupPruneCmd(verbose))

	return cmd
}

func newBackupCreateCmd(verbose *bool) *cobra.Command {
	var (
		opType      string
		description string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Snapshot the current branch, head commit, and any uncommitted changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := getContext(cmd, *verbose)
			if err != nil {
				return err
			}
			_, err = ctx.Backups.Create(cmd.Context(), opType, description)
			return err
		},
	}

	cmd.Flags().StringVarP(&opType, "type", "t", "manual", "operation type recorded on the backup")
	cmd.Flags().StringVarP(&description, "description", "d", "", "human description of why the backup exists")

	return cmd
}

func newBackupListCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := getContext(cmd, *verbose)
			if err != nil {
				return err
			}
			backups, err := ctx.Backups.List()
			if err != nil {
				return err
			}
			if len(backups) == 0 {
				ctx.Splog.Info("no backups")
				return nil
			}
			for _, b := range backups {
				dirty := ""
				if b.Dirty {
					dirty = " +stash"
				}
				ctx.Splog.Info("%s  %s  %s%s  %s",
					b.ID,
					b.CreatedAt.Format(time.RFC3339),
					b.BranchName,
					dirty,
					output.ColorDim(b.Description))
			}
			return nil
		},
	}
}

func newBackupRestoreCmd(verbose *bool) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore the repository to a backup's recorded state",
		Long: `Checks out the backup's original branch (recreating it from the backup
branch if it was deleted), resets to the recorded commit, and reapplies any
stashed changes. A safety backup of the current state is always created
first, so a restore can itself be undone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := getContext(cmd, *verbose)
			if err != nil {
				return err
			}
			return ctx.Backups.Restore(cmd.Context(), args[0], force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")

	return cmd
}

func newBackupVerifyCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <id>",
		Short: "Check a backup's integrity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := getContext(cmd, *verbose)
			if err != nil {
				return err
			}
			if err := ctx.Backups.Verify(cmd.Context(), args[0]); err != nil {
				return err
			}
			ctx.Splog.Info("backup %s is intact", args[0])
			return nil
		},
	}
}

func newBackupPruneCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Evict the oldest backups beyond the retention limit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := getContext(cmd, *verbose)
			if err != nil {
				return err
			}
			return ctx.Backups.Prune(cmd.Context())
		},
	}
}
