package analysis

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mergeq.dev/mergeq/internal/config"
	"mergeq.dev/mergeq/internal/conflict"
	"mergeq.dev/mergeq/internal/git"
	"mergeq.dev/mergeq/internal/output"
	"mergeq.dev/mergeq/internal/registry"
	"mergeq.dev/mergeq/internal/validate"
)

// newScenarioMock builds a repository with one branch per strategy:
// alpha merges cleanly, beta touches a critical file, gamma conflicts.
func newScenarioMock(t *testing.T) *git.Mock {
	t.Helper()
	mock := git.NewMock()
	mock.Root = t.TempDir()
	mock.Current = "main"

	mock.Branches["main"] = "m1"
	mock.Commits["m1"] = git.CommitInfo{ID: "m1"}

	for _, b := range []struct{ name, commit string }{
		{"alpha", "a1"}, {"beta", "b1"}, {"gamma", "g1"},
	} {
		mock.Branches[b.name] = b.commit
		mock.Commits[b.commit] = git.CommitInfo{ID: b.commit, Author: "dev <dev@example.com>", When: time.Now()}
		mock.Bases["main..."+b.name] = "base0"
	}

	mock.Stats["main...alpha"] = git.DiffStat{FilesChanged: 3, Insertions: 40, Deletions: 5}
	mock.Changed["main...alpha"] = []string{"a.go", "b.go", "c.go"}

	mock.Stats["main...beta"] = git.DiffStat{FilesChanged: 2, Insertions: 10, Deletions: 1}
	mock.Changed["main...beta"] = []string{"critical/settings.yaml", "d.go"}

	mock.Stats["main...gamma"] = git.DiffStat{FilesChanged: 1, Insertions: 4, Deletions: 4}
	mock.Changed["main...gamma"] = []string{"e.go"}
	mock.Trials["main...gamma"] = &git.TrialMergeResult{
		Clean:           false,
		ConflictedFiles: []string{"e.go"},
		Messages:        []string{"CONFLICT (content): Merge conflict in e.go"},
	}

	return mock
}

func newTestProcessor(t *testing.T, runner git.Runner, withEngine bool) *Processor {
	t.Helper()

	cfg := config.Default()
	require.NoError(t, cfg.SetPatterns([]string{"critical/**"}, []string{"wip/*"}))

	splog := output.NewSplogWithWriter(io.Discard)
	detector := conflict.NewDetector(runner, cfg)

	var engine *validate.Engine
	if withEngine {
		engine = validate.NewEngine(runner, detector, registry.New(splog), cfg, splog)
	}
	return NewProcessor(runner, detector, engine, cfg, splog)
}

func TestRunClassifiesEveryBranch(t *testing.T) {
	mock := newScenarioMock(t)
	p := newTestProcessor(t, mock, false)

	doc, err := p.Run(context.Background(), []string{"alpha", "beta", "gamma", "delta", "epsilon"}, Options{Concurrency: 2})
	require.NoError(t, err)

	assert.Equal(t, Summary{
		Total:   5,
		Auto:    1,
		Guided:  1,
		Manual:  1,
		Missing: 2,
		Tiers:   map[Tier]int{TierLow: 1, TierMedium: 1, TierHigh: 1},
	}, doc.Summary)

	require.Len(t, doc.Branches, 5)
	assert.Equal(t, StrategyAuto, doc.Branches["alpha"].Analysis.Strategy)
	assert.Equal(t, StrategyGuided, doc.Branches["beta"].Analysis.Strategy)
	assert.Equal(t, StrategyManual, doc.Branches["gamma"].Analysis.Strategy)
	assert.Equal(t, StatusMissing, doc.Branches["delta"].Status)
	assert.False(t, doc.Branches["delta"].Exists)

	for name, rec := range doc.Branches {
		assert.Equal(t, JobDone, rec.State, "branch %s", name)
	}
	assert.False(t, doc.FinishedAt.IsZero())
}

func TestRunPersistsDocument(t *testing.T) {
	mock := newScenarioMock(t)
	p := newTestProcessor(t, mock, false)

	doc, err := p.Run(context.Background(), []string{"alpha"}, Options{Concurrency: 1})
	require.NoError(t, err)
	assert.Equal(t, doc.Version, mustRead(t, p).Version)

	// A second run replaces the branch set and bumps the version.
	doc2, err := p.Run(context.Background(), []string{"beta"}, Options{Concurrency: 1})
	require.NoError(t, err)
	assert.Greater(t, doc2.Version, doc.Version)
	assert.NotContains(t, doc2.Branches, "alpha")
}

func mustRead(t *testing.T, p *Processor) *Document {
	t.Helper()
	doc, err := p.Store().Read()
	require.NoError(t, err)
	return doc
}

func TestRunSkipsMatchingBranches(t *testing.T) {
	mock := newScenarioMock(t)
	mock.Branches["wip/spike"] = "a1"
	p := newTestProcessor(t, mock, false)

	doc, err := p.Run(context.Background(), []string{"alpha", "wip/spike"}, Options{Concurrency: 1})
	require.NoError(t, err)

	assert.Equal(t, 1, doc.Summary.Total)
	assert.NotContains(t, doc.Branches, "wip/spike")
}

func TestRunDetectsMergedBranch(t *testing.T) {
	mock := newScenarioMock(t)
	mock.Branches["shipped"] = "s1"
	mock.Commits["s1"] = git.CommitInfo{ID: "s1"}
	mock.Bases["main...shipped"] = "s1" // everything already in the base

	p := newTestProcessor(t, mock, false)

	doc, err := p.Run(context.Background(), []string{"shipped"}, Options{Concurrency: 1})
	require.NoError(t, err)

	rec := doc.Branches["shipped"]
	require.NotNil(t, rec)
	assert.Equal(t, StatusMerged, rec.Status)
	assert.True(t, rec.SafeToDelete)
	assert.Nil(t, rec.Analysis)
	assert.Equal(t, 1, doc.Summary.Merged)
	assert.Equal(t, 0, doc.Summary.Auto)
}

type failingRunner struct {
	*git.Mock
	failBranch string
}

func (f *failingRunner) MergeBase(ctx context.Context, a, b string) (string, error) {
	if a == f.failBranch || b == f.failBranch {
		return "", errors.New("simulated merge-base failure")
	}
	return f.Mock.MergeBase(ctx, a, b)
}

func TestRunIsolatesJobFailures(t *testing.T) {
	mock := newScenarioMock(t)
	runner := &failingRunner{Mock: mock, failBranch: "beta"}
	p := newTestProcessor(t, runner, false)

	doc, err := p.Run(context.Background(), []string{"alpha", "beta", "gamma"}, Options{Concurrency: 2})
	require.NoError(t, err, "one job's failure never aborts the run")

	assert.Equal(t, JobFailed, doc.Branches["beta"].State)
	assert.Contains(t, doc.Branches["beta"].Error, "merge-base failure")
	assert.Equal(t, JobDone, doc.Branches["alpha"].State)
	assert.Equal(t, JobDone, doc.Branches["gamma"].State)
	assert.Equal(t, 1, doc.Summary.Failed)
	assert.Equal(t, 1, doc.Summary.Auto)
	assert.Equal(t, 1, doc.Summary.Manual)
}

type panickingRunner struct {
	*git.Mock
	panicBranch string
}

func (f *panickingRunner) GetDiffStat(ctx context.Context, base, head string) (git.DiffStat, error) {
	if head == f.panicBranch {
		panic("boom")
	}
	return f.Mock.GetDiffStat(ctx, base, head)
}

func TestRunRecoversJobPanics(t *testing.T) {
	mock := newScenarioMock(t)
	runner := &panickingRunner{Mock: mock, panicBranch: "alpha"}
	p := newTestProcessor(t, runner, false)

	doc, err := p.Run(context.Background(), []string{"alpha", "beta"}, Options{Concurrency: 2})
	require.NoError(t, err)

	assert.Equal(t, JobFailed, doc.Branches["alpha"].State)
	assert.Contains(t, doc.Branches["alpha"].Error, "panicked")
	assert.Equal(t, JobDone, doc.Branches["beta"].State)
}

type gaugeRunner struct {
	*git.Mock
	mu      sync.Mutex
	current int
	peak    int
}

func (g *gaugeRunner) GetCommitInfo(ctx context.Context, ref string) (git.CommitInfo, error) {
	g.mu.Lock()
	g.current++
	if g.current > g.peak {
		g.peak = g.current
	}
	g.mu.Unlock()

	time.Sleep(20 * time.Millisecond)

	g.mu.Lock()
	g.current--
	g.mu.Unlock()
	return g.Mock.GetCommitInfo(ctx, ref)
}

func TestRunBoundsConcurrency(t *testing.T) {
	mock := newScenarioMock(t)
	var names []string
	for _, c := range "abcdefgh" {
		name := "load/" + string(c)
		mock.Branches[name] = "a1"
		mock.Bases["main..."+name] = "base0"
		names = append(names, name)
	}

	runner := &gaugeRunner{Mock: mock}
	p := newTestProcessor(t, runner, false)

	_, err := p.Run(context.Background(), names, Options{Concurrency: 3})
	require.NoError(t, err)

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.LessOrEqual(t, runner.peak, 3, "no more than Concurrency jobs may run at once")
	assert.Greater(t, runner.peak, 0)
}

func TestRunReportsProgress(t *testing.T) {
	mock := newScenarioMock(t)
	p := newTestProcessor(t, mock, false)

	var mu sync.Mutex
	var lastCompleted, lastFailed, lastTotal int
	opts := Options{
		Concurrency: 2,
		Progress: func(completed, failed, total int) {
			mu.Lock()
			lastCompleted, lastFailed, lastTotal = completed, failed, total
			mu.Unlock()
		},
	}

	_, err := p.Run(context.Background(), []string{"alpha", "beta", "gamma"}, opts)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, lastTotal)
	assert.Equal(t, 3, lastCompleted+lastFailed)
	assert.Equal(t, 0, lastFailed)
}

func TestRunWithValidation(t *testing.T) {
	mock := newScenarioMock(t)
	p := newTestProcessor(t, mock, true)

	doc, err := p.Run(context.Background(), []string{"alpha", "gamma"}, Options{
		Concurrency: 1,
		Level:       validate.LevelMinimal,
		Validate:    true,
	})
	require.NoError(t, err)

	require.NotNil(t, doc.Branches["alpha"].Validation)
	assert.Equal(t, validate.Pass, doc.Branches["alpha"].Validation.Verdict)

	require.NotNil(t, doc.Branches["gamma"].Validation)
	assert.Equal(t, validate.Fail, doc.Branches["gamma"].Validation.Verdict)
}

type staticInspector struct{}

func (staticInspector) BranchStatus(ctx context.Context, branch string) (map[string]string, error) {
	return map[string]string{"remoteExists": "true", "prState": "open"}, nil
}

func TestRunAnnotatesFromInspector(t *testing.T) {
	mock := newScenarioMock(t)
	p := newTestProcessor(t, mock, false)
	p.SetInspector(staticInspector{})

	doc, err := p.Run(context.Background(), []string{"alpha"}, Options{Concurrency: 1})
	require.NoError(t, err)

	assert.Equal(t, "open", doc.Branches["alpha"].Metadata["prState"])
}

func TestClassifyTiers(t *testing.T) {
	mock := newScenarioMock(t)
	p := newTestProcessor(t, mock, false)

	clean := p.classify(git.DiffStat{FilesChanged: 2}, &conflict.Report{})
	assert.Equal(t, StrategyAuto, clean.Strategy)
	assert.Equal(t, TierLow, clean.Tier)

	guided := p.classify(git.DiffStat{FilesChanged: 5}, &conflict.Report{CriticalChanges: []string{"config/a"}})
	assert.Equal(t, StrategyGuided, guided.Strategy)
	assert.Equal(t, TierMedium, guided.Tier)

	manual := p.classify(git.DiffStat{FilesChanged: 5}, &conflict.Report{ConflictCount: 2, ConflictedFiles: []string{"x", "y"}})
	assert.Equal(t, StrategyManual, manual.Strategy)
	assert.Equal(t, TierHigh, manual.Tier)
}
