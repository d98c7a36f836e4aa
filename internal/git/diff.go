package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ChangedFiles returns the files that differ between the merge base of
// base..head and head (triple-dot semantics, matching what a merge would
// bring in).
func (r *Repo) ChangedFiles(ctx context.Context, base, head string) ([]string, error) {
	lines, err := r.runner.RunLines(ctx, "diff", "--name-only", base+"..."+head)
	if err != nil {
		return nil, fmt.Errorf("failed to list changed files: %w", err)
	}
	return lines, nil
}

// AddedFiles returns the files newly added by head relative to base
func (r *Repo) AddedFiles(ctx context.Context, base, head string) ([]string, error) {
	lines, err := r.runner.RunLines(ctx, "diff", "--name-only", "--diff-filter=A", base+"..."+head)
	if err != nil {
		return nil, fmt.Errorf("failed to list added files: %w", err)
	}
	return lines, nil
}

// GetDiffStat returns files changed / insertions / deletions for base...head
func (r *Repo) GetDiffStat(ctx context.Context, base, head string) (DiffStat, error) {
	out, err := r.runner.Run(ctx, "diff", "--shortstat", base+"..."+head)
	if err != nil {
		return DiffStat{}, fmt.Errorf("failed to compute diff stat: %w", err)
	}
	return parseShortStat(out), nil
}

// parseShortStat parses output like
// " 3 files changed, 10 insertions(+), 2 deletions(-)"
func parseShortStat(out string) DiffStat {
	var stat DiffStat
	for _, part := range strings.Split(out, ",") {
		fields := strings.Fields(part)
		if len(fields) < 2 {
			continue
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		switch {
		case strings.HasPrefix(fields[1], "file"):
			stat.FilesChanged = n
		case strings.HasPrefix(fields[1], "insertion"):
			stat.Insertions = n
		case strings.HasPrefix(fields[1], "deletion"):
			stat.Deletions = n
		}
	}
	return stat
}

// FileExistsAt checks whether a path exists in the tree of the given ref
func (r *Repo) FileExistsAt(ctx context.Context, ref, path string) (bool, error) {
	_, code, err := r.runner.RunExit(ctx, "cat-file", "-e", ref+":"+path)
	if err != nil {
		return false, err
	}
	return code == 0, nil
}
