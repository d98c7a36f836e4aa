package git

import (
	"fmt"
	"sync"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// goGitMu synchronizes go-git object reads. go-git packfile access is not
// safe for concurrent use from multiple goroutines on the same repository.
var goGitMu sync.Mutex

// Repo is the concrete Runner implementation backed by a repository on disk
type Repo struct {
	root   string
	runner *CommandRunner
	repo   *gogit.Repository
}

// Open opens the repository rooted at (or above) path
func Open(path string) (*Repo, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	root := worktree.Filesystem.Root()

	return &Repo{root: root, runner: NewCommandRunner(root), repo: repo}, nil
}

// RepoRoot returns the root directory of the repository
func (r *Repo) RepoRoot() string {
	return r.root
}

// resolveRefHash resolves a branch name, ref name, or raw hash to a commit hash
func resolveRefHash(repo *gogit.Repository, refName string) (plumbing.Hash, error) {
	// Raw hash
	if len(refName) == 40 && plumbing.IsHash(refName) {
		return plumbing.NewHash(refName), nil
	}

	// Try as given, then as a branch ref
	candidates := []string{refName, "refs/heads/" + refName}
	for _, name := range candidates {
		ref, err := repo.Reference(plumbing.ReferenceName(name), true)
		if err == nil {
			return ref.Hash(), nil
		}
	}

	// Fall back to rev-parse style resolution for remote refs and short hashes
	hash, err := repo.ResolveRevision(plumbing.Revision(refName))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to resolve ref %q: %w", refName, err)
	}
	return *hash, nil
}
