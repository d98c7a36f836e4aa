package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"mergeq.dev/mergeq/internal/config"
	"mergeq.dev/mergeq/internal/conflict"
)

// checkContext carries everything a single check may need. workdir is the
// disposable working copy; it may be empty when the copy could not be
// created, and checks degrade to WARN in that case rather than guessing.
type checkContext struct {
	ctx     context.Context
	workdir string
	branch  string
	report  *conflict.Report
	cfg     *config.Config
}

type checkFunc func(c *checkContext) (Outcome, string)

var checkFuncs = map[string]checkFunc{
	CheckSyntax:   runSyntaxCheck,
	CheckImports:  runImportsCheck,
	CheckConflict: runConflictCheck,
	CheckCritical: runCriticalCheck,
	CheckTests:    runTestsCheck,
	CheckQuality:  runQualityCheck,
	CheckDocs:     runDocsCheck,
	CheckSecurity: runSecurityCheck,
}

const toolTimeout = 10 * time.Minute

// runTool executes an external tool inside the working copy
func runTool(ctx context.Context, dir, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return strings.TrimSpace(out.String()), err
}

// changedFilesIn returns the changed files that exist inside the working copy
func (c *checkContext) changedFilesIn() []string {
	if c.workdir == "" {
		return nil
	}
	var files []string
	for _, rel := range c.report.ChangedFiles {
		path := filepath.Join(c.workdir, rel)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			files = append(files, rel)
		}
	}
	return files
}

func runSyntaxCheck(c *checkContext) (Outcome, string) {
	files := c.changedFilesIn()
	if len(files) == 0 {
		return Pass, "no files to parse"
	}

	var bad []string
	for _, rel := range files {
		path := filepath.Join(c.workdir, rel)
		data, err := os.ReadFile(path)
		if err != nil {
			bad = append(bad, rel)
			continue
		}
		switch strings.ToLower(filepath.Ext(rel)) {
		case ".go":
			fset := token.NewFileSet()
			if _, err := parser.ParseFile(fset, path, data, parser.AllErrors); err != nil {
				bad = append(bad, rel)
			}
		case ".json":
			if !json.Valid(data) {
				bad = append(bad, rel)
			}
		case ".yaml", ".yml":
			var v any
			if err := yaml.Unmarshal(data, &v); err != nil {
				bad = append(bad, rel)
			}
		}
	}
	if len(bad) > 0 {
		return Fail, fmt.Sprintf("%d file(s) with syntax errors: %s", len(bad), strings.Join(bad, ", "))
	}
	return Pass, fmt.Sprintf("%d file(s) parsed", len(files))
}

func runImportsCheck(c *checkContext) (Outcome, string) {
	if c.workdir == "" {
		return Warn, "no working copy available"
	}
	if _, err := os.Stat(filepath.Join(c.workdir, "go.mod")); err != nil {
		return Pass, "no module definition to resolve"
	}
	if _, err := exec.LookPath("go"); err != nil {
		return Warn, "go toolchain unavailable, import resolution skipped"
	}

	out, err := runTool(c.ctx, c.workdir, "go", "list", "./...")
	if err != nil {
		return Fail, firstLine(out)
	}
	return Pass, "all imports resolve"
}

func runConflictCheck(c *checkContext) (Outcome, string) {
	if c.report.ConflictCount == 0 {
		return Pass, "trial merge is clean"
	}
	return Fail, fmt.Sprintf("%d merge conflict(s): %s", c.report.ConflictCount, strings.Join(c.report.ConflictedFiles, ", "))
}

func runCriticalCheck(c *checkContext) (Outcome, string) {
	n := len(c.report.CriticalChanges)
	if n == 0 {
		return Pass, "no critical files touched"
	}
	if n > c.cfg.Guided.MaxCriticalFiles {
		return Fail, fmt.Sprintf("%d critical file(s) changed, limit is %d", n, c.cfg.Guided.MaxCriticalFiles)
	}
	return Warn, fmt.Sprintf("%d critical file(s) changed: %s", n, strings.Join(c.report.CriticalChanges, ", "))
}

func runTestsCheck(c *checkContext) (Outcome, string) {
	if c.workdir == "" {
		return Warn, "no working copy available"
	}
	if _, err := os.Stat(filepath.Join(c.workdir, "go.mod")); err != nil {
		return Warn, "no test suite detected"
	}
	if _, err := exec.LookPath("go"); err != nil {
		return Warn, "go toolchain unavailable, tests skipped"
	}

	out, err := runTool(c.ctx, c.workdir, "go", "test", "./...")
	if err != nil {
		return Fail, lastLine(out)
	}
	return Pass, "test suite passed"
}

func runQualityCheck(c *checkContext) (Outcome, string) {
	files := c.changedFilesIn()
	todos := 0
	var oversized []string
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(c.workdir, rel))
		if err != nil {
			continue
		}
		todos += strings.Count(string(data), "TODO") + strings.Count(string(data), "FIXME")
		if lines := bytes.Count(data, []byte("\n")); lines > 800 {
			oversized = append(oversized, rel)
		}
	}
	var notes []string
	if todos > 5 {
		notes = append(notes, fmt.Sprintf("%d TODO/FIXME markers", todos))
	}
	if len(oversized) > 0 {
		notes = append(notes, fmt.Sprintf("oversized files: %s", strings.Join(oversized, ", ")))
	}
	if len(notes) > 0 {
		return Warn, strings.Join(notes, "; ")
	}
	return Pass, "no quality flags"
}

func runDocsCheck(c *checkContext) (Outcome, string) {
	codeChanged := false
	docsChanged := false
	for _, rel := range c.report.ChangedFiles {
		lower := strings.ToLower(rel)
		switch {
		case strings.HasPrefix(lower, "docs/"), strings.HasPrefix(lower, "readme"), strings.HasSuffix(lower, ".md"):
			docsChanged = true
		default:
			codeChanged = true
		}
	}
	if codeChanged && !docsChanged && len(c.report.ChangedFiles) >= 10 {
		return Warn, "large code change without documentation updates"
	}
	return Pass, "documentation consistent"
}

// secretPatterns are the credential shapes the security scan looks for
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`-----BEGIN (RSA |EC |OPENSSH |DSA )?PRIVATE KEY-----`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`ghp_[A-Za-z0-9]{36}`),
	regexp.MustCompile(`(?i)(password|passwd|secret|api[_-]?key)\s*[:=]\s*['"][^'"]{8,}['"]`),
}

func runSecurityCheck(c *checkContext) (Outcome, string) {
	var hits []string
	for _, rel := range c.changedFilesIn() {
		data, err := os.ReadFile(filepath.Join(c.workdir, rel))
		if err != nil {
			continue
		}
		for _, re := range secretPatterns {
			if re.Match(data) {
				hits = append(hits, rel)
				break
			}
		}
	}
	if len(hits) > 0 {
		return Fail, fmt.Sprintf("possible credentials in: %s", strings.Join(hits, ", "))
	}

	// Static analysis when a scanner is installed; absence is not a finding.
	if c.workdir != "" {
		if _, err := exec.LookPath("gitleaks"); err == nil {
			out, err := runTool(c.ctx, c.workdir, "gitleaks", "detect", "--no-git", "--source", c.workdir)
			if err != nil {
				return Fail, "gitleaks findings: " + firstLine(out)
			}
		}
	}
	return Pass, "no secret patterns found"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
