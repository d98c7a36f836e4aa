// Package orchestrator is the top level of the merge engine: it serializes
// mutating runs behind the named run lock, guarantees a backup before any
// destructive step, and scopes resource cleanup around the whole run.
package orchestrator

import (
	"context"
	"fmt"

	"mergeq.dev/mergeq/internal/analysis"
	"mergeq.dev/mergeq/internal/backup"
	"mergeq.dev/mergeq/internal/config"
	"mergeq.dev/mergeq/internal/git"
	"mergeq.dev/mergeq/internal/lock"
	"mergeq.dev/mergeq/internal/output"
	"mergeq.dev/mergeq/internal/registry"
	"mergeq.dev/mergeq/internal/retry"
)

// RunLockName serializes every operation that mutates the primary working
// tree, across all cooperating processes.
const RunLockName = "merge"

// Options configures an orchestrated run
type Options struct {
	Analysis analysis.Options
	// Remote, when set, is fetched (with retries) before analysis so
	// branch heads are current.
	Remote string
}

// Orchestrator wires the engine components together
type Orchestrator struct {
	runner    git.Runner
	locks     *lock.Manager
	backups   *backup.Manager
	processor *analysis.Processor
	registry  *registry.Registry
	cfg       *config.Config
	splog     *output.Splog
	policy    retry.Policy
}

// New creates an orchestrator over the given collaborators
func New(runner git.Runner, locks *lock.Manager, backups *backup.Manager, processor *analysis.Processor, reg *registry.Registry, cfg *config.Config, splog *output.Splog) *Orchestrator {
	return &Orchestrator{
		runner:    runner,
		locks:     locks,
		backups:   backups,
		processor: processor,
		registry:  reg,
		cfg:       cfg,
		splog:     splog,
		policy:    retry.NewPolicy(cfg.RetryAttempts, cfg.RetryBackoff()),
	}
}

// Analyze runs read-only branch analysis. It takes no lock: analysis never
// touches the primary working tree, so it can proceed concurrently with a
// mutating run elsewhere.
func (o *Orchestrator) Analyze(ctx context.Context, branches []string, opts Options) (doc *analysis.Document, err error) {
	defer func() {
		o.registry.ReleaseAll(err == nil, false)
	}()

	if err := o.fetch(ctx, opts.Remote); err != nil {
		return nil, err
	}
	return o.processor.Run(ctx, branches, opts.Analysis)
}

// Execute runs the full orchestration: lock, backup, analyze. Failure to
// acquire the lock or to create the pre-operation backup aborts the run;
// everything after that point is recoverable by restoring the backup.
func (o *Orchestrator) Execute(ctx context.Context, branches []string, opts Options) (doc *analysis.Document, err error) {
	token, err := o.locks.Acquire(ctx, RunLockName, o.cfg.LockTimeout())
	if err != nil {
		return nil, fmt.Errorf("cannot start run: %w", err)
	}
	defer func() {
		if relErr := o.locks.Release(RunLockName, token); relErr != nil {
			o.splog.Warn("failed to release run lock: %v", relErr)
		}
		o.registry.ReleaseAll(err == nil, false)
	}()

	if err := o.fetch(ctx, opts.Remote); err != nil {
		return nil, err
	}

	pre, err := o.backups.Create(ctx, "pre-merge", "state before merge orchestration")
	if err != nil {
		return nil, fmt.Errorf("cannot start run without a backup: %w", err)
	}
	o.splog.Debug("pre-operation backup %s in place", pre.ID)

	return o.processor.Run(ctx, branches, opts.Analysis)
}

// fetch updates remote refs under the retry policy. An empty remote name
// skips the fetch (local-only analysis).
func (o *Orchestrator) fetch(ctx context.Context, remote string) error {
	if remote == "" {
		return nil
	}
	return o.policy.Do(ctx, "fetch "+remote, func() error {
		return o.runner.Fetch(ctx, remote)
	})
}
