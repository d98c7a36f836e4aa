// Package validate implements the multi-level validation pipeline run
// against candidate branches before a merge is permitted. Each level is an
// ordered list of checks executed inside a disposable working copy.
package validate

import (
	"fmt"
	"time"
)

// Outcome is the result of a single check or of a whole validation run
type Outcome string

const (
	Pass Outcome = "PASS"
	Warn Outcome = "WARN"
	Fail Outcome = "FAIL"
)

// Level names an ordered set of checks
type Level string

const (
	LevelMinimal  Level = "minimal"
	LevelStandard Level = "standard"
	LevelStrict   Level = "strict"
)

// ParseLevel validates a level name
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelMinimal, LevelStandard, LevelStrict:
		return Level(s), nil
	default:
		return "", fmt.Errorf("unknown validation level %q (want minimal, standard, or strict)", s)
	}
}

// CheckResult is one check's outcome within a run
type CheckResult struct {
	Name     string  `json:"name"`
	Outcome  Outcome `json:"outcome"`
	Required bool    `json:"required"`
	Message  string  `json:"message,omitempty"`
}

// Result is the recorded outcome of validating one branch at one level.
// It is only valid while the branch still points at CommitID.
type Result struct {
	BranchName string        `json:"branchName"`
	CommitID   string        `json:"commitId"`
	Level      Level         `json:"level"`
	Checks     []CheckResult `json:"checks"`
	Verdict    Outcome       `json:"verdict"`
	Timestamp  time.Time     `json:"timestamp"`
}

// FailedChecks returns the names of required checks that failed
func (r *Result) FailedChecks() []string {
	var failed []string
	for _, c := range r.Checks {
		if c.Required && c.Outcome == Fail {
			failed = append(failed, c.Name)
		}
	}
	return failed
}
