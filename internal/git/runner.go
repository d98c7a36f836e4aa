// Package git provides a wrapper around git commands and go-git for the
// repository operations the merge engine needs. Read-only plumbing goes
// through go-git; porcelain operations (worktrees, stashes, checkouts)
// shell out to the git binary the way git itself expects.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	mergeqerrors "mergeq.dev/mergeq/internal/errors"
)

// DefaultCommandTimeout is the default timeout for git commands
const DefaultCommandTimeout = 5 * time.Minute

// CommandRunner handles execution of git commands in a fixed directory
type CommandRunner struct {
	workingDir string
}

// NewCommandRunner creates a new CommandRunner rooted at workingDir
func NewCommandRunner(workingDir string) *CommandRunner {
	return &CommandRunner{workingDir: workingDir}
}

// Run executes a git command and returns the trimmed output
func (r *CommandRunner) Run(ctx context.Context, args ...string) (string, error) {
	out, code, err := r.runInternal(ctx, true, args...)
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", mergeqerrors.NewGitCommandError("git", args, out, "", fmt.Errorf("exit status %d", code))
	}
	return out, nil
}

// RunRaw executes a git command and returns the raw output (no trimming)
func (r *CommandRunner) RunRaw(ctx context.Context, args ...string) (string, error) {
	out, code, err := r.runInternal(ctx, false, args...)
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", mergeqerrors.NewGitCommandError("git", args, out, "", fmt.Errorf("exit status %d", code))
	}
	return out, nil
}

// RunLines executes a git command and returns output as lines
func (r *CommandRunner) RunLines(ctx context.Context, args ...string) ([]string, error) {
	output, err := r.Run(ctx, args...)
	if err != nil {
		return nil, err
	}
	if output == "" {
		return []string{}, nil
	}
	return strings.Split(output, "\n"), nil
}

// RunExit executes a git command and returns output plus the exit code.
// Used for commands where a non-zero exit is meaningful rather than an
// error (merge-tree exits 1 on conflicts, cat-file -e on absence).
func (r *CommandRunner) RunExit(ctx context.Context, args ...string) (string, int, error) {
	return r.runInternal(ctx, false, args...)
}

func (r *CommandRunner) runInternal(ctx context.Context, trim bool, args ...string) (string, int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	// If no timeout/deadline is set in the context, add the default one
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultCommandTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	if r.workingDir != "" {
		cmd.Dir = r.workingDir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", -1, mergeqerrors.NewGitCommandError("git", args, stdout.String(), stderr.String(), ctx.Err())
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out := stdout.String()
			if trim {
				out = strings.TrimSpace(out)
			}
			return out, exitErr.ExitCode(), nil
		}

		if errors.Is(err, exec.ErrNotFound) {
			return "", -1, fmt.Errorf("git binary not available: %w", mergeqerrors.ErrEnvironment)
		}
		return "", -1, mergeqerrors.NewGitCommandError("git", args, stdout.String(), stderr.String(), err)
	}

	out := stdout.String()
	if trim {
		out = strings.TrimSpace(out)
	}
	return out, 0, nil
}
