package git

import (
	"context"
	"fmt"
	"strings"
)

// Checkout checks out a branch or revision in the primary working tree.
// Callers must hold the run lock.
func (r *Repo) Checkout(ctx context.Context, ref string) error {
	_, err := r.runner.Run(ctx, "checkout", ref)
	if err != nil {
		return fmt.Errorf("failed to checkout %s: %w", ref, err)
	}
	return nil
}

// HardReset resets the current branch and working tree to a revision.
// Callers must hold the run lock.
func (r *Repo) HardReset(ctx context.Context, revision string) error {
	_, err := r.runner.Run(ctx, "reset", "--hard", revision)
	if err != nil {
		return fmt.Errorf("failed to hard reset to %s: %w", revision, err)
	}
	return nil
}

// IsDirty reports whether the working tree has uncommitted changes,
// including untracked files.
func (r *Repo) IsDirty(ctx context.Context) (bool, error) {
	out, err := r.runner.Run(ctx, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("failed to check working tree status: %w", err)
	}
	return strings.TrimSpace(out) != "", nil
}

// StashSnapshot records the dirty working tree as a stash commit without
// modifying the working tree. `git stash create` builds the stash commit;
// `git stash store` anchors it so gc cannot collect it. The returned commit
// id is reapplied later with StashApply.
func (r *Repo) StashSnapshot(ctx context.Context, message string) (string, error) {
	ref, err := r.runner.Run(ctx, "stash", "create", message)
	if err != nil {
		return "", fmt.Errorf("failed to create stash: %w", err)
	}
	if ref == "" {
		// Nothing to stash
		return "", nil
	}
	if _, err := r.runner.Run(ctx, "stash", "store", "-m", message, ref); err != nil {
		return "", fmt.Errorf("failed to store stash %s: %w", ref, err)
	}
	return ref, nil
}

// StashApply reapplies a stash commit onto the working tree
func (r *Repo) StashApply(ctx context.Context, ref string) error {
	_, err := r.runner.Run(ctx, "stash", "apply", ref)
	if err != nil {
		return fmt.Errorf("failed to apply stash %s: %w", ref, err)
	}
	return nil
}

// Fetch updates remote-tracking refs for the given remote
func (r *Repo) Fetch(ctx context.Context, remote string) error {
	_, err := r.runner.Run(ctx, "fetch", "--prune", remote)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", remote, err)
	}
	return nil
}
