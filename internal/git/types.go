package git

import (
	"context"
	"time"
)

// CommitInfo describes a single commit
type CommitInfo struct {
	ID     string
	Author string
	When   time.Time
}

// DiffStat summarizes the difference between two revisions
type DiffStat struct {
	FilesChanged int
	Insertions   int
	Deletions    int
}

// TrialMergeResult is the outcome of a non-mutating three-way merge.
// Nothing in the repository changes when it is produced.
type TrialMergeResult struct {
	Clean           bool
	TreeID          string
	ConflictedFiles []string
	Messages        []string
}

// Runner defines the version-control operations used by the engine.
// This allows components to be tested against a mock implementation.
type Runner interface {
	RepoRoot() string

	// Branches and commits
	ListBranches(ctx context.Context) ([]string, error)
	BranchExists(ctx context.Context, name string) (bool, error)
	CurrentBranch(ctx context.Context) (string, error)
	GetRevision(ctx context.Context, ref string) (string, error)
	GetCommitInfo(ctx context.Context, ref string) (CommitInfo, error)
	CommitExists(ctx context.Context, id string) (bool, error)
	CreateBranch(ctx context.Context, name, at string) error
	DeleteBranch(ctx context.Context, name string) error

	// Analysis (read-only)
	MergeBase(ctx context.Context, a, b string) (string, error)
	TrialMerge(ctx context.Context, base, candidate string) (*TrialMergeResult, error)
	ChangedFiles(ctx context.Context, base, head string) ([]string, error)
	AddedFiles(ctx context.Context, base, head string) ([]string, error)
	GetDiffStat(ctx context.Context, base, head string) (DiffStat, error)
	FileExistsAt(ctx context.Context, ref, path string) (bool, error)

	// Working tree mutation (requires the run lock)
	Checkout(ctx context.Context, ref string) error
	HardReset(ctx context.Context, revision string) error
	IsDirty(ctx context.Context) (bool, error)
	StashSnapshot(ctx context.Context, message string) (string, error)
	StashApply(ctx context.Context, ref string) error

	// Disposable working copies
	AddWorktree(ctx context.Context, path, ref string) error
	RemoveWorktree(ctx context.Context, path string) error

	// Remote
	Fetch(ctx context.Context, remote string) error
}
