// Package runtime provides the context type that holds the engine's
// collaborators and logger for use by the command layer. This avoids
// threading half a dozen parameters through every command.
package runtime

import (
	"context"

	"mergeq.dev/mergeq/internal/analysis"
	"mergeq.dev/mergeq/internal/backup"
	"mergeq.dev/mergeq/internal/config"
	"mergeq.dev/mergeq/internal/conflict"
	"mergeq.dev/mergeq/internal/git"
	"mergeq.dev/mergeq/internal/lock"
	"mergeq.dev/mergeq/internal/orchestrator"
	"mergeq.dev/mergeq/internal/output"
	"mergeq.dev/mergeq/internal/registry"
	"mergeq.dev/mergeq/internal/remote"
	"mergeq.dev/mergeq/internal/retry"
	"mergeq.dev/mergeq/internal/validate"
)

// Context provides access to engine components for commands
type Context struct {
	Config       *config.Config
	Splog        *output.Splog
	Runner       git.Runner
	Locks        *lock.Manager
	Registry     *registry.Registry
	Backups      *backup.Manager
	Detector     *conflict.Detector
	Validator    *validate.Engine
	Processor    *analysis.Processor
	Orchestrator *orchestrator.Orchestrator
	RepoRoot     string
}

// NewContext opens the repository at (or above) dir and wires the engine
func NewContext(ctx context.Context, dir string) (*Context, error) {
	splog := output.NewSplog()

	repo, err := git.Open(dir)
	if err != nil {
		return nil, err
	}
	repoRoot := repo.RepoRoot()

	cfg, err := config.Load(repoRoot)
	if err != nil {
		return nil, err
	}

	return NewContextWith(ctx, repo, repoRoot, cfg, splog), nil
}

// NewContextWith wires the engine over explicit collaborators. Tests use
// it with a mock runner and a captured splog.
func NewContextWith(ctx context.Context, runner git.Runner, repoRoot string, cfg *config.Config, splog *output.Splog) *Context {
	reg := registry.New(splog)
	locks := lock.NewManager(repoRoot, splog)
	backups := backup.NewManager(runner, splog, cfg.MaxBackups)
	detector := conflict.NewDetector(runner, cfg)
	validator := validate.NewEngine(runner, detector, reg, cfg, splog)
	processor := analysis.NewProcessor(runner, detector, validator, cfg, splog)

	if cfg.GitHubToken != "" {
		policy := retry.NewPolicy(cfg.RetryAttempts, cfg.RetryBackoff())
		inspector, err := remote.NewInspector(ctx, cfg.GitHubToken, cfg.GitHubOwner, cfg.GitHubRepo, policy)
		if err != nil {
			splog.Debug("remote inspector disabled: %v", err)
		} else {
			processor.SetInspector(inspector)
		}
	}

	orch := orchestrator.New(runner, locks, backups, processor, reg, cfg, splog)

	return &Context{
		Config:       cfg,
		Splog:        splog,
		Runner:       runner,
		Locks:        locks,
		Registry:     reg,
		Backups:      backups,
		Detector:     detector,
		Validator:    validator,
		Processor:    processor,
		Orchestrator: orch,
		RepoRoot:     repoRoot,
	}
}
