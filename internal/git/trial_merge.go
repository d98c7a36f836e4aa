package git

import (
	"context"
	"fmt"
	"strings"

	mergeqerrors "mergeq.dev/mergeq/internal/errors"
)

// TrialMerge performs a non-mutating three-way merge of candidate into base
// using git merge-tree. Neither the working tree nor any ref changes; the
// merged tree is written to the object database only.
//
// merge-tree exits 0 for a clean merge and 1 for conflicts. Its output is
// the merged tree id, then (on conflict) the conflicted file names, a blank
// line, and informational conflict messages.
func (r *Repo) TrialMerge(ctx context.Context, base, candidate string) (*TrialMergeResult, error) {
	args := []string{"merge-tree", "--write-tree", "--name-only", base, candidate}
	out, code, err := r.runner.RunExit(ctx, args...)
	if err != nil {
		return nil, err
	}
	if code != 0 && code != 1 {
		return nil, mergeqerrors.NewGitCommandError("git", args, out, "", fmt.Errorf("exit status %d", code))
	}

	result := &TrialMergeResult{Clean: code == 0}

	sections := strings.SplitN(out, "\n\n", 2)
	lines := strings.Split(strings.TrimRight(sections[0], "\n"), "\n")
	if len(lines) > 0 {
		result.TreeID = strings.TrimSpace(lines[0])
	}
	for _, line := range lines[1:] {
		if name := strings.TrimSpace(line); name != "" {
			result.ConflictedFiles = append(result.ConflictedFiles, name)
		}
	}
	if len(sections) > 1 {
		for _, line := range strings.Split(sections[1], "\n") {
			if msg := strings.TrimSpace(line); msg != "" {
				result.Messages = append(result.Messages, msg)
			}
		}
	}

	return result, nil
}
