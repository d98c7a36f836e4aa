package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"mergeq.dev/mergeq/internal/analysis"
	"mergeq.dev/mergeq/internal/output"
	"mergeq.dev/mergeq/internal/validate"
)

func TestFilterCandidates(t *testing.T) {
	branches := []string{
		"main",
		"feature/login",
		"mergeq/backup/1234-pre-merge",
		"fix/typo",
	}

	assert.Equal(t, []string{"feature/login", "fix/typo"}, filterCandidates(branches, "main"))
	assert.Equal(t, []string{"main", "feature/login", "fix/typo"}, filterCandidates(branches, "develop"))
	assert.Nil(t, filterCandidates([]string{"main"}, "main"))
}

func TestPrintDocument(t *testing.T) {
	doc := &analysis.Document{
		Branches: map[string]*analysis.BranchRecord{
			"feature/a": {
				BranchName: "feature/a",
				Exists:     true,
				Status:     analysis.StatusActive,
				State:      analysis.JobDone,
				Analysis: &analysis.BranchAnalysis{
					ChangedFiles: 3,
					Strategy:     analysis.StrategyAuto,
					Tier:         analysis.TierLow,
				},
			},
			"feature/b": {
				BranchName: "feature/b",
				State:      analysis.JobFailed,
				Error:      "simulated failure",
			},
			"ghost": {
				BranchName: "ghost",
				State:      analysis.JobDone,
				Status:     analysis.StatusMissing,
			},
			"shipped": {
				BranchName: "shipped",
				Exists:     true,
				State:      analysis.JobDone,
				Status:     analysis.StatusMerged,
			},
		},
		Summary: analysis.Summary{Total: 4, Auto: 1, Missing: 1, Merged: 1, Failed: 1},
	}

	var buf bytes.Buffer
	printDocument(output.NewSplogWithWriter(&buf), doc)

	out := buf.String()
	assert.Contains(t, out, "feature/a")
	assert.Contains(t, out, "AUTO_MERGE")
	assert.Contains(t, out, "simulated failure")
	assert.Contains(t, out, "not found")
	assert.Contains(t, out, "already merged")
	assert.Contains(t, out, "summary: auto 1, guided 0, manual 0, merged 1, missing 1, failed 1, total 4")
}

func TestVerdictTag(t *testing.T) {
	plain := &analysis.BranchRecord{}
	assert.Contains(t, verdictTag(plain), "PASS")

	failed := &analysis.BranchRecord{Validation: &validate.Result{Verdict: validate.Fail}}
	assert.Contains(t, verdictTag(failed), "FAIL")

	warned := &analysis.BranchRecord{Validation: &validate.Result{Verdict: validate.Warn}}
	assert.Contains(t, verdictTag(warned), "WARN")
}

func TestRootCommandWiring(t *testing.T) {
	root := NewRootCmd()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["analyze"])
	assert.True(t, names["backup"])
	assert.True(t, names["lock"])
}
