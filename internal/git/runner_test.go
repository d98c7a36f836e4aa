package git_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mergeqerrors "mergeq.dev/mergeq/internal/errors"
	"mergeq.dev/mergeq/internal/git"
	"mergeq.dev/mergeq/testhelpers"
)

func newRunner(t *testing.T) (*git.CommandRunner, *testhelpers.GitRepo) {
	t.Helper()
	fixture := testhelpers.NewTestRepo(t)
	return git.NewCommandRunner(fixture.Dir), fixture
}

func TestRunTrimsOutput(t *testing.T) {
	runner, _ := newRunner(t)

	out, err := runner.Run(context.Background(), "rev-parse", "--abbrev-ref", "HEAD")
	require.NoError(t, err)
	assert.Equal(t, "main", out)
}

func TestRunFailureIsGitCommandError(t *testing.T) {
	runner, _ := newRunner(t)

	_, err := runner.Run(context.Background(), "rev-parse", "--verify", "refs/heads/ghost")
	require.Error(t, err)

	var gitErr *mergeqerrors.GitCommandError
	require.ErrorAs(t, err, &gitErr)
	assert.Equal(t, mergeqerrors.ExitGit, mergeqerrors.ExitCode(err))
}

func TestRunExitReportsNonZeroWithoutError(t *testing.T) {
	runner, _ := newRunner(t)
	ctx := context.Background()

	_, code, err := runner.RunExit(ctx, "cat-file", "-e", "HEAD:README.md")
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	_, code, err = runner.RunExit(ctx, "cat-file", "-e", "HEAD:absent.txt")
	require.NoError(t, err, "a meaningful non-zero exit is data, not an error")
	assert.NotEqual(t, 0, code)
}

func TestRunLines(t *testing.T) {
	runner, fixture := newRunner(t)
	ctx := context.Background()

	fixture.CreateBranch(t, "feature")

	lines, err := runner.RunLines(ctx, "branch", "--format=%(refname:short)")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main", "feature"}, lines)

	// Empty output yields an empty slice, not [""].
	lines, err = runner.RunLines(ctx, "diff", "--name-only", "HEAD", "HEAD")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestRunRespectsContextCancellation(t *testing.T) {
	runner, _ := newRunner(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, "status")
	assert.Error(t, err)
}
