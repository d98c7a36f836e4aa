// Package errors provides sentinel errors and custom error types for the mergeq engine.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"time"
)

// Sentinel errors for common conditions
var (
	// ErrLockTimeout indicates that a named lock could not be acquired in time
	ErrLockTimeout = errors.New("lock acquisition timed out")

	// ErrNotOwner indicates a lock release attempt with a token that does not match the holder
	ErrNotOwner = errors.New("not the lock owner")

	// ErrBranchNotFound indicates that a branch does not exist
	ErrBranchNotFound = errors.New("branch not found")

	// ErrBackupNotFound indicates that no backup exists with the requested id
	ErrBackupNotFound = errors.New("backup not found")

	// ErrBackupCorrupt indicates that a backup failed an integrity check
	ErrBackupCorrupt = errors.New("backup corrupt")

	// ErrTransient indicates a retryable failure that exhausted its retry budget
	ErrTransient = errors.New("transient operation failed")

	// ErrValidationFailed indicates that a branch failed required validation checks
	ErrValidationFailed = errors.New("validation failed")

	// ErrEnvironment indicates a missing tool or unusable environment (e.g. no git binary)
	ErrEnvironment = errors.New("environment error")
)

// Exit codes consumed by the outer CLI layer.
const (
	ExitOK          = 0
	ExitGeneric     = 1
	ExitGit         = 10
	ExitNetwork     = 11
	ExitPermission  = 12
	ExitEnvironment = 13
)

// LockTimeoutError represents a failed lock acquisition after waiting the full timeout
type LockTimeoutError struct {
	Name    string
	Timeout time.Duration
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for lock %q", e.Timeout, e.Name)
}

// Is returns true if the target error is ErrLockTimeout
func (e *LockTimeoutError) Is(target error) bool {
	return target == ErrLockTimeout
}

// NewLockTimeoutError creates a new LockTimeoutError
func NewLockTimeoutError(name string, timeout time.Duration) *LockTimeoutError {
	return &LockTimeoutError{Name: name, Timeout: timeout}
}

// NotOwnerError represents a lock release attempt by a non-holder
type NotOwnerError struct {
	Name  string
	Token string
}

func (e *NotOwnerError) Error() string {
	return fmt.Sprintf("lock %q is held by a different token", e.Name)
}

// Is returns true if the target error is ErrNotOwner
func (e *NotOwnerError) Is(target error) bool {
	return target == ErrNotOwner
}

// BranchNotFoundError represents an error when a branch is not found
type BranchNotFoundError struct {
	BranchName string
}

func (e *BranchNotFoundError) Error() string {
	return fmt.Sprintf("branch %s does not exist", e.BranchName)
}

// Is returns true if the target error is ErrBranchNotFound
func (e *BranchNotFoundError) Is(target error) bool {
	return target == ErrBranchNotFound
}

// NewBranchNotFoundError creates a new BranchNotFoundError
func NewBranchNotFoundError(branchName string) *BranchNotFoundError {
	return &BranchNotFoundError{BranchName: branchName}
}

// BackupNotFoundError represents a restore or verify request for an unknown backup id
type BackupNotFoundError struct {
	ID string
}

func (e *BackupNotFoundError) Error() string {
	return fmt.Sprintf("backup %s does not exist", e.ID)
}

// Is returns true if the target error is ErrBackupNotFound
func (e *BackupNotFoundError) Is(target error) bool {
	return target == ErrBackupNotFound
}

// BackupCorruptionError represents a backup that failed an integrity check
type BackupCorruptionError struct {
	ID     string
	Reason string
}

func (e *BackupCorruptionError) Error() string {
	return fmt.Sprintf("backup %s is corrupt: %s", e.ID, e.Reason)
}

// Is returns true if the target error is ErrBackupCorrupt
func (e *BackupCorruptionError) Is(target error) bool {
	return target == ErrBackupCorrupt
}

// ValidationFailedError is scoped to a single branch's validation run.
// It never aborts sibling jobs.
type ValidationFailedError struct {
	BranchName string
	Level      string
	Failed     []string
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("branch %s failed %s validation: %v", e.BranchName, e.Level, e.Failed)
}

// Is returns true if the target error is ErrValidationFailed
func (e *ValidationFailedError) Is(target error) bool {
	return target == ErrValidationFailed
}

// TransientError wraps a retryable failure that has exhausted its retry budget.
// It is fatal for the operation that raised it, but only for that operation.
type TransientError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Op, e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Is returns true if the target error is ErrTransient
func (e *TransientError) Is(target error) bool {
	return target == ErrTransient
}

// NewTransientError creates a new TransientError
func NewTransientError(op string, attempts int, err error) *TransientError {
	return &TransientError{Op: op, Attempts: attempts, Err: err}
}

// GitCommandError represents an error from a git command execution
type GitCommandError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *GitCommandError) Error() string {
	msg := fmt.Sprintf("git command failed: %s", e.Command)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(" %v", e.Args)
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", e.Stderr)
	}
	if e.Stdout != "" {
		msg += fmt.Sprintf("\nstdout: %s", e.Stdout)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *GitCommandError) Unwrap() error {
	return e.Err
}

// NewGitCommandError creates a new GitCommandError
func NewGitCommandError(command string, args []string, stdout, stderr string, err error) *GitCommandError {
	return &GitCommandError{
		Command: command,
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		Err:     err,
	}
}

// ExitCode maps an error to the exit-code taxonomy consumed by the outer layer:
// 0 success, 10 version-control, 11 network, 12 permission, 13 environment, 1 generic.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var gitErr *GitCommandError
	switch {
	case errors.Is(err, ErrTransient):
		return ExitNetwork
	case errors.Is(err, fs.ErrPermission):
		return ExitPermission
	case errors.Is(err, ErrEnvironment):
		return ExitEnvironment
	case errors.As(err, &gitErr):
		return ExitGit
	default:
		return ExitGeneric
	}
}
