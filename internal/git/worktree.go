package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// AddWorktree adds a detached worktree at the specified path checked out at ref
func (r *Repo) AddWorktree(ctx context.Context, path, ref string) error {
	_, err := r.runner.Run(ctx, "worktree", "add", "--detach", path, ref)
	if err != nil {
		return fmt.Errorf("failed to add worktree at %s: %w", path, err)
	}
	return nil
}

// RemoveWorktree removes the worktree at the specified path
func (r *Repo) RemoveWorktree(ctx context.Context, path string) error {
	_, err := r.runner.Run(ctx, "worktree", "remove", "--force", path)
	if err != nil {
		// The worktree directory may already be gone; prune bookkeeping
		// and fall back to removing the directory ourselves.
		_, _ = r.runner.Run(ctx, "worktree", "prune")
		if rmErr := os.RemoveAll(path); rmErr != nil {
			return fmt.Errorf("failed to remove worktree at %s: %w", path, err)
		}
	}
	return nil
}

// WorktreeDir is where disposable working copies live, outside the primary
// working tree.
func (r *Repo) WorktreeDir() string {
	return filepath.Join(r.root, ".git", "mergeq", "worktrees")
}

// NewDisposablePath returns a fresh path for a disposable working copy
func (r *Repo) NewDisposablePath() string {
	return filepath.Join(r.WorktreeDir(), uuid.NewString())
}
