// Package conflict analyzes whether a candidate branch can merge into a
// base branch, using trial merges that never touch the working tree or
// history. Detectors are safe to run concurrently.
package conflict

import (
	"context"
	"fmt"
	"strings"

	"mergeq.dev/mergeq/internal/config"
	"mergeq.dev/mergeq/internal/git"
)

// Report is the outcome of analyzing one candidate branch against a base
type Report struct {
	Base              string   `json:"base"`
	Candidate         string   `json:"candidate"`
	MergeBase         string   `json:"mergeBase"`
	ConflictCount     int      `json:"conflictCount"`
	ConflictedFiles   []string `json:"conflictedFiles,omitempty"`
	CriticalConflicts []string `json:"criticalConflicts,omitempty"`
	CriticalChanges   []string `json:"criticalChanges,omitempty"`
	NewFileCollisions []string `json:"newFileCollisions,omitempty"`
	ChangedFiles      []string `json:"changedFiles,omitempty"`
	Details           []string `json:"details,omitempty"`
}

// Detector runs trial-merge conflict analysis
type Detector struct {
	runner git.Runner
	cfg    *config.Config
}

// NewDetector creates a detector using the configured critical-file patterns
func NewDetector(runner git.Runner, cfg *config.Config) *Detector {
	return &Detector{runner: runner, cfg: cfg}
}

// Analyze performs a non-mutating three-way merge of candidate into base
// and cross-references the result against the critical-file policy.
func (d *Detector) Analyze(ctx context.Context, base, candidate string) (*Report, error) {
	mergeBase, err := d.runner.MergeBase(ctx, base, candidate)
	if err != nil {
		return nil, fmt.Errorf("failed to compute merge base: %w", err)
	}

	trial, err := d.runner.TrialMerge(ctx, base, candidate)
	if err != nil {
		return nil, fmt.Errorf("trial merge failed: %w", err)
	}

	changed, err := d.runner.ChangedFiles(ctx, base, candidate)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Base:            base,
		Candidate:       candidate,
		MergeBase:       mergeBase,
		ConflictedFiles: trial.ConflictedFiles,
		ChangedFiles:    changed,
		Details:         trial.Messages,
	}
	report.ConflictCount = countConflicts(trial)

	for _, file := range changed {
		if d.cfg.IsCriticalFile(file) {
			report.CriticalChanges = append(report.CriticalChanges, file)
		}
	}
	for _, file := range trial.ConflictedFiles {
		if d.cfg.IsCriticalFile(file) {
			report.CriticalConflicts = append(report.CriticalConflicts, file)
		}
	}

	collisions, err := d.newFileCollisions(ctx, base, candidate)
	if err != nil {
		return nil, err
	}
	report.NewFileCollisions = collisions

	return report, nil
}

// countConflicts counts distinct conflict incidents in the trial output.
// merge-tree reports one informational CONFLICT line per incident; when the
// informational section is missing, the conflicted file count is the floor.
func countConflicts(trial *git.TrialMergeResult) int {
	if trial.Clean {
		return 0
	}
	count := 0
	for _, msg := range trial.Messages {
		if strings.Contains(msg, "CONFLICT") {
			count++
		}
	}
	if count < len(trial.ConflictedFiles) {
		count = len(trial.ConflictedFiles)
	}
	if count == 0 {
		count = 1
	}
	return count
}

// newFileCollisions flags files the candidate adds that already exist in
// base: content written independently on both sides under the same path.
func (d *Detector) newFileCollisions(ctx context.Context, base, candidate string) ([]string, error) {
	added, err := d.runner.AddedFiles(ctx, base, candidate)
	if err != nil {
		return nil, err
	}

	var collisions []string
	for _, file := range added {
		exists, err := d.runner.FileExistsAt(ctx, base, file)
		if err != nil {
			return nil, err
		}
		if exists {
			collisions = append(collisions, file)
		}
	}
	return collisions, nil
}
