package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "main", cfg.BaseBranch)
	assert.Equal(t, 8, cfg.MaxParallelJobs)
	assert.Equal(t, 1800, cfg.LockTimeoutSeconds)
	assert.Equal(t, 1800, cfg.ValidationCacheTTLSeconds)
	assert.Equal(t, 10, cfg.MaxBackups)
	assert.Equal(t, 50, cfg.Guided.MaxChangedFiles)
	assert.Equal(t, 2, cfg.Guided.MaxCriticalFiles)
	assert.Equal(t, 0, cfg.Guided.MaxConflicts)
	assert.Equal(t, 3, cfg.RetryAttempts)

	assert.Equal(t, 30*time.Minute, cfg.LockTimeout())
	assert.Equal(t, 30*time.Minute, cfg.ValidationCacheTTL())
	assert.Equal(t, 2*time.Second, cfg.RetryBackoff())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "main", cfg.BaseBranch)
	assert.Equal(t, 8, cfg.MaxParallelJobs)
}

func TestLoadReadsOverrides(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))

	yaml := `baseBranch: develop
maxParallelJobs: 2
lockTimeoutSeconds: 60
criticalFilePatterns:
  - "config/**"
  - "*.env"
branchSkipPatterns:
  - "wip/*"
guidedThresholds:
  maxChangedFiles: 10
  maxCriticalFiles: 1
`
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", ConfigFileName), []byte(yaml), 0o600))

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, "develop", cfg.BaseBranch)
	assert.Equal(t, 2, cfg.MaxParallelJobs)
	assert.Equal(t, time.Minute, cfg.LockTimeout())
	assert.Equal(t, 10, cfg.Guided.MaxChangedFiles)
	assert.Equal(t, 1, cfg.Guided.MaxCriticalFiles)

	// Unset fields still fall back to defaults.
	assert.Equal(t, 10, cfg.MaxBackups)
	assert.Equal(t, 3, cfg.RetryAttempts)

	assert.True(t, cfg.IsCriticalFile("config/database.yaml"))
	assert.True(t, cfg.ShouldSkipBranch("wip/spike"))
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", ConfigFileName), []byte("baseBranch: [oops"), 0o600))

	_, err := Load(root)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))

	cfg := Default()
	cfg.BaseBranch = "trunk"
	cfg.MaxBackups = 4
	require.NoError(t, Save(root, cfg))

	loaded, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "trunk", loaded.BaseBranch)
	assert.Equal(t, 4, loaded.MaxBackups)
}

func TestCriticalFileMatching(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.SetPatterns([]string{"config/**", "migrations/**", "*.env", "go.mod"}, nil))

	assert.True(t, cfg.IsCriticalFile("config/app.yaml"))
	assert.True(t, cfg.IsCriticalFile("config/nested/db.yaml"))
	assert.True(t, cfg.IsCriticalFile("migrations/0001_init.sql"))
	assert.True(t, cfg.IsCriticalFile("production.env"))
	assert.True(t, cfg.IsCriticalFile("go.mod"))

	assert.False(t, cfg.IsCriticalFile("internal/config_test.go"))
	assert.False(t, cfg.IsCriticalFile("docs/config.md"))
}

func TestBranchSkipMatching(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.SetPatterns(nil, []string{"wip/*", "mergeq/backup/*", "tmp-*"}))

	assert.True(t, cfg.ShouldSkipBranch("wip/experiment"))
	assert.True(t, cfg.ShouldSkipBranch("mergeq/backup/1234-manual"))
	assert.True(t, cfg.ShouldSkipBranch("tmp-rebase"))
	assert.False(t, cfg.ShouldSkipBranch("feature/login"))
}

func TestSetPatternsRejectsInvalidGlob(t *testing.T) {
	cfg := Default()
	err := cfg.SetPatterns([]string{"[unterminated"}, nil)
	assert.Error(t, err)
}
