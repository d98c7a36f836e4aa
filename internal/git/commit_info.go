package git

import (
	"context"
	"fmt"
)

// GetCommitInfo returns the commit id, author, and timestamp for a ref
func (r *Repo) GetCommitInfo(ctx context.Context, ref string) (CommitInfo, error) {
	goGitMu.Lock()
	defer goGitMu.Unlock()

	hash, err := resolveRefHash(r.repo, ref)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("failed to resolve %q: %w", ref, err)
	}

	commit, err := r.repo.CommitObject(hash)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("failed to get commit %s: %w", hash, err)
	}

	return CommitInfo{
		ID:     hash.String(),
		Author: fmt.Sprintf("%s <%s>", commit.Author.Name, commit.Author.Email),
		When:   commit.Author.When,
	}, nil
}
