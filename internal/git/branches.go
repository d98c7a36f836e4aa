package git

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"

	mergeqerrors "mergeq.dev/mergeq/internal/errors"
)

// ListBranches returns all local branch names
func (r *Repo) ListBranches(ctx context.Context) ([]string, error) {
	goGitMu.Lock()
	defer goGitMu.Unlock()

	branches, err := r.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("failed to get branches: %w", err)
	}

	var names []string
	err = branches.ForEach(func(ref *plumbing.Reference) error {
		if ref.Name().IsBranch() {
			names = append(names, ref.Name().Short())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate branches: %w", err)
	}
	return names, nil
}

// BranchExists checks whether a local branch exists
func (r *Repo) BranchExists(ctx context.Context, name string) (bool, error) {
	goGitMu.Lock()
	defer goGitMu.Unlock()

	_, err := r.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	if err == plumbing.ErrReferenceNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up branch %s: %w", name, err)
	}
	return true, nil
}

// CurrentBranch returns the branch HEAD points at
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	goGitMu.Lock()
	defer goGitMu.Unlock()

	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is detached at %s", head.Hash())
	}
	return head.Name().Short(), nil
}

// GetRevision resolves a ref to its commit id
func (r *Repo) GetRevision(ctx context.Context, ref string) (string, error) {
	goGitMu.Lock()
	defer goGitMu.Unlock()

	hash, err := resolveRefHash(r.repo, ref)
	if err != nil {
		return "", mergeqerrors.NewBranchNotFoundError(ref)
	}
	return hash.String(), nil
}

// CommitExists checks whether a commit object is present in the repository
func (r *Repo) CommitExists(ctx context.Context, id string) (bool, error) {
	goGitMu.Lock()
	defer goGitMu.Unlock()

	if !plumbing.IsHash(id) {
		return false, nil
	}
	_, err := r.repo.CommitObject(plumbing.NewHash(id))
	if err == plumbing.ErrObjectNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read commit %s: %w", id, err)
	}
	return true, nil
}

// CreateBranch creates a branch pointing at the given revision
func (r *Repo) CreateBranch(ctx context.Context, name, at string) error {
	_, err := r.runner.Run(ctx, "branch", name, at)
	if err != nil {
		return fmt.Errorf("failed to create branch %s at %s: %w", name, at, err)
	}
	return nil
}

// DeleteBranch force-deletes a branch
func (r *Repo) DeleteBranch(ctx context.Context, name string) error {
	_, err := r.runner.Run(ctx, "branch", "-D", name)
	if err != nil {
		return fmt.Errorf("failed to delete branch %s: %w", name, err)
	}
	return nil
}
