package git

import (
	"context"
	"fmt"
)

// MergeBase returns the merge base between two refs. An empty string means
// the histories are unrelated.
func (r *Repo) MergeBase(ctx context.Context, a, b string) (string, error) {
	goGitMu.Lock()
	defer goGitMu.Unlock()

	hashA, err := resolveRefHash(r.repo, a)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", a, err)
	}
	hashB, err := resolveRefHash(r.repo, b)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", b, err)
	}

	commitA, err := r.repo.CommitObject(hashA)
	if err != nil {
		return "", fmt.Errorf("failed to get commit %s: %w", hashA, err)
	}
	commitB, err := r.repo.CommitObject(hashB)
	if err != nil {
		return "", fmt.Errorf("failed to get commit %s: %w", hashB, err)
	}

	mergeBases, err := commitA.MergeBase(commitB)
	if err != nil {
		return "", fmt.Errorf("failed to find merge base: %w", err)
	}
	if len(mergeBases) == 0 {
		return "", nil
	}
	return mergeBases[0].Hash.String(), nil
}
