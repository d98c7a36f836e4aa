// Package config provides engine configuration management,
// including reading and writing the mergeq configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the engine config file, stored under .git/ so it stays
// out of the working tree.
const ConfigFileName = "mergeq.yaml"

// Thresholds holds the per-strategy classification limits. These are policy,
// not derived values; every field can be overridden in the config file.
type Thresholds struct {
	MaxChangedFiles  int `yaml:"maxChangedFiles"`
	MaxCriticalFiles int `yaml:"maxCriticalFiles"`
	MaxConflicts     int `yaml:"maxConflicts"`
}

// Config represents the engine configuration
type Config struct {
	BaseBranch                string     `yaml:"baseBranch"`
	MaxParallelJobs           int        `yaml:"maxParallelJobs"`
	LockTimeoutSeconds        int        `yaml:"lockTimeoutSeconds"`
	ValidationCacheTTLSeconds int        `yaml:"validationCacheTTLSeconds"`
	MaxBackups                int        `yaml:"maxBackups"`
	CriticalFilePatterns      []string   `yaml:"criticalFilePatterns"`
	BranchSkipPatterns        []string   `yaml:"branchSkipPatterns"`
	Guided                    Thresholds `yaml:"guidedThresholds"`
	RetryAttempts             int        `yaml:"retryAttempts"`
	RetryBackoffSeconds       int        `yaml:"retryBackoffSeconds"`
	GitHubToken               string     `yaml:"githubToken,omitempty"`
	GitHubOwner               string     `yaml:"githubOwner,omitempty"`
	GitHubRepo                string     `yaml:"githubRepo,omitempty"`

	criticalGlobs []glob.Glob
	skipGlobs     []glob.Glob
}

// Default returns a config with all defaults applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.BaseBranch == "" {
		c.BaseBranch = "main"
	}
	if c.MaxParallelJobs <= 0 {
		c.MaxParallelJobs = 8
	}
	if c.LockTimeoutSeconds <= 0 {
		c.LockTimeoutSeconds = 1800
	}
	if c.ValidationCacheTTLSeconds <= 0 {
		c.ValidationCacheTTLSeconds = 1800
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = 10
	}
	if c.Guided.MaxChangedFiles <= 0 {
		c.Guided.MaxChangedFiles = 50
	}
	if c.Guided.MaxCriticalFiles <= 0 {
		c.Guided.MaxCriticalFiles = 2
	}
	if c.Guided.MaxConflicts < 0 {
		c.Guided.MaxConflicts = 0
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryBackoffSeconds <= 0 {
		c.RetryBackoffSeconds = 2
	}
}

// Load reads the engine configuration from repoRoot/.git/mergeq.yaml.
// A missing file returns the defaults.
func Load(repoRoot string) (*Config, error) {
	configPath := filepath.Join(repoRoot, ".git", ConfigFileName)

	data, err := os.ReadFile(configPath)
	if err != nil {
		cfg := Default()
		if err := cfg.compilePatterns(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse engine config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.compilePatterns(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration back to repoRoot/.git/mergeq.yaml
func Save(repoRoot string, cfg *Config) error {
	configPath := filepath.Join(repoRoot, ".git", ConfigFileName)

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal engine config: %w", err)
	}
	return os.WriteFile(configPath, data, 0600)
}

func (c *Config) compilePatterns() error {
	c.criticalGlobs = c.criticalGlobs[:0]
	for _, p := range c.CriticalFilePatterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return fmt.Errorf("invalid critical file pattern %q: %w", p, err)
		}
		c.criticalGlobs = append(c.criticalGlobs, g)
	}

	c.skipGlobs = c.skipGlobs[:0]
	for _, p := range c.BranchSkipPatterns {
		g, err := glob.Compile(p)
		if err != nil {
			return fmt.Errorf("invalid branch skip pattern %q: %w", p, err)
		}
		c.skipGlobs = append(c.skipGlobs, g)
	}
	return nil
}

// SetPatterns replaces the critical-file and branch-skip patterns and
// recompiles them. Callers that build a Config programmatically use this
// instead of Load.
func (c *Config) SetPatterns(critical, skip []string) error {
	c.CriticalFilePatterns = critical
	c.BranchSkipPatterns = skip
	return c.compilePatterns()
}

// IsCriticalFile reports whether path matches any configured critical-file pattern
func (c *Config) IsCriticalFile(path string) bool {
	for _, g := range c.criticalGlobs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// ShouldSkipBranch reports whether a branch name matches any skip pattern
func (c *Config) ShouldSkipBranch(name string) bool {
	for _, g := range c.skipGlobs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// LockTimeout returns the lock timeout as a duration
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutSeconds) * time.Second
}

// ValidationCacheTTL returns the validation cache TTL as a duration
func (c *Config) ValidationCacheTTL() time.Duration {
	return time.Duration(c.ValidationCacheTTLSeconds) * time.Second
}

// RetryBackoff returns the base retry backoff as a duration
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffSeconds) * time.Second
}
