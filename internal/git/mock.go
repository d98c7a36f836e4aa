package git

import (
	"context"
	"fmt"
	"sync"

	mergeqerrors "mergeq.dev/mergeq/internal/errors"
)

// Mock is a scriptable in-memory Runner for tests. Populate the maps,
// then inspect the recorded mutations.
type Mock struct {
	mu sync.Mutex

	Root     string
	Current  string
	Dirty    bool
	Branches map[string]string     // branch name -> commit id
	Commits  map[string]CommitInfo // commit id -> info
	Bases    map[string]string     // "a...b" -> merge base
	Trials   map[string]*TrialMergeResult
	Changed  map[string][]string // "base...head" -> files
	Added    map[string][]string
	Stats    map[string]DiffStat
	Trees    map[string]bool // "ref:path" -> exists

	FetchErr      error
	FetchFailures int // number of Fetch calls that fail before succeeding

	CheckedOut      []string
	Resets          []string
	CreatedBranches map[string]string
	DeletedBranches []string
	Worktrees       []string
	RemovedTrees    []string
	StashedRefs     []string
	AppliedStashes  []string
	FetchCalls      int
}

// NewMock creates an empty mock rooted at a fake path
func NewMock() *Mock {
	return &Mock{
		Root:            "/mock/repo",
		Branches:        map[string]string{},
		Commits:         map[string]CommitInfo{},
		Bases:           map[string]string{},
		Trials:          map[string]*TrialMergeResult{},
		Changed:         map[string][]string{},
		Added:           map[string][]string{},
		Stats:           map[string]DiffStat{},
		Trees:           map[string]bool{},
		CreatedBranches: map[string]string{},
	}
}

func pairKey(a, b string) string {
	return a + "..." + b
}

func (m *Mock) RepoRoot() string { return m.Root }

func (m *Mock) ListBranches(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.Branches))
	for name := range m.Branches {
		names = append(names, name)
	}
	return names, nil
}

func (m *Mock) BranchExists(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Branches[name]
	return ok, nil
}

func (m *Mock) CurrentBranch(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Current == "" {
		return "", fmt.Errorf("HEAD is detached")
	}
	return m.Current, nil
}

func (m *Mock) GetRevision(ctx context.Context, ref string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.Branches[ref]; ok {
		return id, nil
	}
	if _, ok := m.Commits[ref]; ok {
		return ref, nil
	}
	return "", mergeqerrors.NewBranchNotFoundError(ref)
}

func (m *Mock) GetCommitInfo(ctx context.Context, ref string) (CommitInfo, error) {
	id, err := m.GetRevision(ctx, ref)
	if err != nil {
		return CommitInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if info, ok := m.Commits[id]; ok {
		return info, nil
	}
	return CommitInfo{ID: id}, nil
}

func (m *Mock) CommitExists(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Commits[id]
	return ok, nil
}

func (m *Mock) CreateBranch(ctx context.Context, name, at string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Branches[name] = at
	m.CreatedBranches[name] = at
	return nil
}

func (m *Mock) DeleteBranch(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Branches[name]; !ok {
		return mergeqerrors.NewBranchNotFoundError(name)
	}
	delete(m.Branches, name)
	m.DeletedBranches = append(m.DeletedBranches, name)
	return nil
}

func (m *Mock) MergeBase(ctx context.Context, a, b string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if base, ok := m.Bases[pairKey(a, b)]; ok {
		return base, nil
	}
	if base, ok := m.Bases[pairKey(b, a)]; ok {
		return base, nil
	}
	return "", nil
}

func (m *Mock) TrialMerge(ctx context.Context, base, candidate string) (*TrialMergeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if res, ok := m.Trials[pairKey(base, candidate)]; ok {
		return res, nil
	}
	return &TrialMergeResult{Clean: true}, nil
}

func (m *Mock) ChangedFiles(ctx context.Context, base, head string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Changed[pairKey(base, head)], nil
}

func (m *Mock) AddedFiles(ctx context.Context, base, head string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Added[pairKey(base, head)], nil
}

func (m *Mock) GetDiffStat(ctx context.Context, base, head string) (DiffStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Stats[pairKey(base, head)], nil
}

func (m *Mock) FileExistsAt(ctx context.Context, ref, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Trees[ref+":"+path], nil
}

func (m *Mock) Checkout(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CheckedOut = append(m.CheckedOut, ref)
	if _, ok := m.Branches[ref]; ok {
		m.Current = ref
	} else {
		m.Current = ""
	}
	return nil
}

func (m *Mock) HardReset(ctx context.Context, revision string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Resets = append(m.Resets, revision)
	if m.Current != "" {
		m.Branches[m.Current] = revision
	}
	return nil
}

func (m *Mock) IsDirty(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Dirty, nil
}

func (m *Mock) StashSnapshot(ctx context.Context, message string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.Dirty {
		return "", nil
	}
	ref := fmt.Sprintf("stash-%d", len(m.StashedRefs))
	m.StashedRefs = append(m.StashedRefs, ref)
	m.Commits[ref] = CommitInfo{ID: ref}
	return ref, nil
}

func (m *Mock) StashApply(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Commits[ref]; !ok {
		return fmt.Errorf("unknown stash %s", ref)
	}
	m.AppliedStashes = append(m.AppliedStashes, ref)
	return nil
}

func (m *Mock) AddWorktree(ctx context.Context, path, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Worktrees = append(m.Worktrees, path)
	return nil
}

func (m *Mock) RemoveWorktree(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RemovedTrees = append(m.RemovedTrees, path)
	return nil
}

func (m *Mock) Fetch(ctx context.Context, remote string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchCalls++
	if m.FetchFailures > 0 {
		m.FetchFailures--
		return fmt.Errorf("simulated network failure")
	}
	return m.FetchErr
}
