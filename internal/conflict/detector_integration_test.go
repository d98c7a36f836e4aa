package conflict

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mergeq.dev/mergeq/internal/config"
	"mergeq.dev/mergeq/internal/git"
	"mergeq.dev/mergeq/testhelpers"
)

func openRealDetector(t *testing.T) (*Detector, *testhelpers.GitRepo) {
	t.Helper()
	fixture := testhelpers.NewTestRepo(t)
	repo, err := git.Open(fixture.Dir)
	require.NoError(t, err)

	if _, err := repo.TrialMerge(context.Background(), "main", "main"); err != nil {
		t.Skipf("git merge-tree --write-tree unsupported: %v", err)
	}

	cfg := config.Default()
	require.NoError(t, cfg.SetPatterns([]string{"config/**"}, nil))
	return NewDetector(repo, cfg), fixture
}

func TestAnalyzeRealDisjointEditsAreClean(t *testing.T) {
	detector, fixture := openRealDetector(t)
	ctx := context.Background()

	fixture.CheckoutNew(t, "feature")
	fixture.CommitFile(t, "feature.txt", "feature work\n", "feature change")
	fixture.Checkout(t, "main")
	fixture.CommitFile(t, "main.txt", "main work\n", "main change")

	report, err := detector.Analyze(ctx, "main", "feature")
	require.NoError(t, err)

	assert.Equal(t, 0, report.ConflictCount)
	assert.Empty(t, report.ConflictedFiles)
	assert.NotEmpty(t, report.MergeBase)
}

func TestAnalyzeRealSameLineEditConflicts(t *testing.T) {
	detector, fixture := openRealDetector(t)
	ctx := context.Background()

	fixture.CommitFile(t, "shared.txt", "original line\n", "add shared")
	fixture.CheckoutNew(t, "feature")
	fixture.CommitFile(t, "shared.txt", "feature line\n", "feature edit")
	fixture.Checkout(t, "main")
	fixture.CommitFile(t, "shared.txt", "main line\n", "main edit")

	report, err := detector.Analyze(ctx, "main", "feature")
	require.NoError(t, err)

	assert.Greater(t, report.ConflictCount, 0)
	assert.Contains(t, report.ConflictedFiles, "shared.txt")
}

func TestAnalyzeRealCriticalChange(t *testing.T) {
	detector, fixture := openRealDetector(t)
	ctx := context.Background()

	fixture.CheckoutNew(t, "feature")
	fixture.CommitFile(t, "config/database.yaml", "host: db\n", "add db config")
	fixture.Checkout(t, "main")

	report, err := detector.Analyze(ctx, "main", "feature")
	require.NoError(t, err)

	assert.Equal(t, 0, report.ConflictCount)
	assert.Equal(t, []string{"config/database.yaml"}, report.CriticalChanges)
}

func TestAnalyzeRealNewFileCollision(t *testing.T) {
	detector, fixture := openRealDetector(t)
	ctx := context.Background()

	fixture.CheckoutNew(t, "feature")
	fixture.CommitFile(t, "helper.go", "package feature\n", "feature adds helper")
	fixture.Checkout(t, "main")
	fixture.CommitFile(t, "helper.go", "package main\n", "main adds helper")

	report, err := detector.Analyze(ctx, "main", "feature")
	require.NoError(t, err)

	assert.Contains(t, report.NewFileCollisions, "helper.go")
}
