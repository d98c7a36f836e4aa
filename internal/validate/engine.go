package validate

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"mergeq.dev/mergeq/internal/config"
	"mergeq.dev/mergeq/internal/conflict"
	"mergeq.dev/mergeq/internal/git"
	"mergeq.dev/mergeq/internal/output"
	"mergeq.dev/mergeq/internal/registry"
)

// cacheSize bounds the in-memory validation result cache
const cacheSize = 512

// Engine runs the validation pipeline for candidate branches. Results are
// cached by (branch, commit id, level); a cached entry is only served while
// the branch still points at the same commit.
type Engine struct {
	runner   git.Runner
	detector *conflict.Detector
	registry *registry.Registry
	cfg      *config.Config
	splog    *output.Splog
	cache    *expirable.LRU[string, *Result]
}

// NewEngine creates a validation engine with a TTL-bounded result cache
func NewEngine(runner git.Runner, detector *conflict.Detector, reg *registry.Registry, cfg *config.Config, splog *output.Splog) *Engine {
	return &Engine{
		runner:   runner,
		detector: detector,
		registry: reg,
		cfg:      cfg,
		splog:    splog,
		cache:    expirable.NewLRU[string, *Result](cacheSize, nil, cfg.ValidationCacheTTL()),
	}
}

func cacheKey(branch, commit string, level Level) string {
	return branch + "@" + commit + "#" + string(level)
}

// Validate runs every check of the level against the branch, in order,
// without short-circuiting. The verdict is FAIL iff a required check
// failed; WARN outcomes never flip the verdict.
func (e *Engine) Validate(ctx context.Context, branch string, level Level) (*Result, error) {
	specs, ok := levelChecks[level]
	if !ok {
		return nil, fmt.Errorf("unknown validation level %q", level)
	}

	commit, err := e.runner.GetRevision(ctx, branch)
	if err != nil {
		return nil, err
	}

	key := cacheKey(branch, commit, level)
	if cached, ok := e.cache.Get(key); ok && cached.CommitID == commit {
		e.splog.Debug("validation cache hit for %s", key)
		return cached, nil
	}

	report, err := e.detector.Analyze(ctx, e.cfg.BaseBranch, branch)
	if err != nil {
		return nil, err
	}

	workdir := e.acquireWorkdir(ctx, branch)
	if workdir != "" {
		defer func() {
			if err := e.runner.RemoveWorktree(context.WithoutCancel(ctx), workdir); err != nil {
				e.splog.Warn("failed to remove working copy %s: %v", workdir, err)
			}
		}()
	}

	cc := &checkContext{ctx: ctx, workdir: workdir, branch: branch, report: report, cfg: e.cfg}
	result := &Result{
		BranchName: branch,
		CommitID:   commit,
		Level:      level,
		Verdict:    Pass,
		Timestamp:  time.Now(),
	}

	for _, spec := range specs {
		fn := checkFuncs[spec.name]
		outcome, message := fn(cc)
		result.Checks = append(result.Checks, CheckResult{
			Name:     spec.name,
			Outcome:  outcome,
			Required: spec.required,
			Message:  message,
		})
		if spec.required && outcome == Fail {
			result.Verdict = Fail
		}
		e.splog.Debug("check %s on %s: %s (%s)", spec.name, branch, outcome, message)
	}

	e.cache.Add(key, result)
	return result, nil
}

// acquireWorkdir checks the branch out into a disposable working copy and
// registers it for cleanup. Failure to create one is not fatal: checks that
// need a filesystem degrade to WARN.
func (e *Engine) acquireWorkdir(ctx context.Context, branch string) string {
	path := filepath.Join(e.runner.RepoRoot(), ".git", "mergeq", "worktrees", uuid.NewString())
	if err := e.runner.AddWorktree(ctx, path, branch); err != nil {
		e.splog.Warn("could not create working copy for %s: %v", branch, err)
		return ""
	}
	e.registry.Register(registry.KindWorktree, path, func() error {
		return e.runner.RemoveWorktree(context.Background(), path)
	})
	return path
}

// CacheLen reports how many validation results are currently cached
func (e *Engine) CacheLen() int {
	return e.cache.Len()
}
