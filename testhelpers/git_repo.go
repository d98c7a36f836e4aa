// Package testhelpers provides a real-git repository fixture for
// integration-style tests.
package testhelpers

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// RequireGit skips the test when no git binary is installed
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

// GitRepo represents a Git repository for testing purposes
type GitRepo struct {
	Dir string
}

// NewGitRepo initializes a new Git repository in the specified directory
// using 'git init' with an isolated config.
func NewGitRepo(dir string) (*GitRepo, error) {
	repo := &GitRepo{Dir: dir}

	// Use git -c flags to avoid reading global config and set local configs
	cmd := exec.Command("git", "-c", "init.defaultBranch=main", "-c", "core.autocrlf=false", "-c", "core.fileMode=false", "init", dir, "-b", "main")
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null")
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("failed to init repo: %w", err)
	}

	// Configure Git user (required for commits)
	if err := repo.RunGitCommand("config", "user.name", "Test User"); err != nil {
		return nil, err
	}
	if err := repo.RunGitCommand("config", "user.email", "test@example.com"); err != nil {
		return nil, err
	}

	return repo, nil
}

// NewTestRepo creates a repo under t.TempDir with one initial commit
func NewTestRepo(t *testing.T) *GitRepo {
	t.Helper()
	RequireGit(t)

	repo, err := NewGitRepo(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create test repo: %v", err)
	}
	repo.CommitFile(t, "README.md", "# test\n", "initial commit")
	return repo
}

// RunGitCommand executes a git command in the repository directory.
// Uses GIT_CONFIG_GLOBAL=/dev/null to avoid reading global config.
func (r *GitRepo) RunGitCommand(args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null")
	return cmd.Run()
}

// RunGitCommandAndGetOutput executes a git command and returns its trimmed output
func (r *GitRepo) RunGitCommandAndGetOutput(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git command failed: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// WriteFile writes a file inside the working tree
func (r *GitRepo) WriteFile(t *testing.T, name, content string) {
	t.Helper()
	path := filepath.Join(r.Dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

// CommitFile writes a file and commits it
func (r *GitRepo) CommitFile(t *testing.T, name, content, message string) {
	t.Helper()
	r.WriteFile(t, name, content)
	if err := r.RunGitCommand("add", "-A"); err != nil {
		t.Fatalf("failed to stage %s: %v", name, err)
	}
	if err := r.RunGitCommand("commit", "-m", message); err != nil {
		t.Fatalf("failed to commit %s: %v", name, err)
	}
}

// CreateBranch creates a branch at the current HEAD
func (r *GitRepo) CreateBranch(t *testing.T, name string) {
	t.Helper()
	if err := r.RunGitCommand("branch", name); err != nil {
		t.Fatalf("failed to create branch %s: %v", name, err)
	}
}

// Checkout switches to a branch
func (r *GitRepo) Checkout(t *testing.T, name string) {
	t.Helper()
	if err := r.RunGitCommand("checkout", name); err != nil {
		t.Fatalf("failed to checkout %s: %v", name, err)
	}
}

// CheckoutNew creates and switches to a new branch
func (r *GitRepo) CheckoutNew(t *testing.T, name string) {
	t.Helper()
	if err := r.RunGitCommand("checkout", "-b", name); err != nil {
		t.Fatalf("failed to checkout new branch %s: %v", name, err)
	}
}

// HeadCommit returns the current HEAD commit id
func (r *GitRepo) HeadCommit(t *testing.T) string {
	t.Helper()
	out, err := r.RunGitCommandAndGetOutput("rev-parse", "HEAD")
	if err != nil {
		t.Fatalf("failed to resolve HEAD: %v", err)
	}
	return out
}
