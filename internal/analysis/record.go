// Package analysis runs the bounded-concurrency branch analysis and owns
// the persisted AnalysisRecord document.
package analysis

import (
	"time"

	"mergeq.dev/mergeq/internal/validate"
)

// Strategy is the merge strategy chosen for a branch
type Strategy string

const (
	StrategyAuto   Strategy = "AUTO_MERGE"
	StrategyGuided Strategy = "GUIDED_MERGE"
	StrategyManual Strategy = "MANUAL_MERGE"
)

// JobState tracks a branch job through the pool. A job never re-enters
// the queued state.
type JobState string

const (
	JobQueued  JobState = "queued"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

// Status describes what the branch is relative to the base
type Status string

const (
	StatusActive  Status = "active"
	StatusMissing Status = "missing"
	StatusMerged  Status = "merged"
)

// Tier buckets branches by how much attention a merge needs
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// BranchAnalysis holds the computed analysis for one branch
type BranchAnalysis struct {
	ChangedFiles      int      `json:"changedFiles"`
	Insertions        int      `json:"insertions"`
	Deletions         int      `json:"deletions"`
	CriticalFiles     []string `json:"criticalFiles,omitempty"`
	ConflictCount     int      `json:"conflictCount"`
	NewFileCollisions int      `json:"newFileCollisions"`
	Strategy          Strategy `json:"strategy"`
	Tier              Tier     `json:"tier"`
	Priority          int      `json:"priority"`
}

// BranchRecord is one branch's entry in the AnalysisRecord document
type BranchRecord struct {
	BranchName   string            `json:"branchName"`
	Exists       bool              `json:"exists"`
	Status       Status            `json:"status"`
	SafeToDelete bool              `json:"safeToDelete"`
	CommitID     string            `json:"commitId,omitempty"`
	Author       string            `json:"author,omitempty"`
	CommitTime   time.Time         `json:"commitTime,omitzero"`
	MergeBase    string            `json:"mergeBase,omitempty"`
	Analysis     *BranchAnalysis   `json:"analysis,omitempty"`
	Validation   *validate.Result  `json:"validation,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	State        JobState          `json:"state"`
	Error        string            `json:"error,omitempty"`
	CompletedAt  time.Time         `json:"completedAt,omitzero"`
}

// Summary is the roll-up recomputed whenever the document changes
type Summary struct {
	Total   int           `json:"total"`
	Auto    int           `json:"auto"`
	Guided  int           `json:"guided"`
	Manual  int           `json:"manual"`
	Missing int           `json:"missing"`
	Merged  int           `json:"merged"`
	Failed  int           `json:"failed"`
	Tiers   map[Tier]int  `json:"tiers,omitempty"`
}

// Document is the versioned AnalysisRecord persisted via the atomic store
type Document struct {
	Version    int                      `json:"version"`
	BaseBranch string                   `json:"baseBranch"`
	Level      string                   `json:"level,omitempty"`
	StartedAt  time.Time                `json:"startedAt,omitzero"`
	FinishedAt time.Time                `json:"finishedAt,omitzero"`
	Branches   map[string]*BranchRecord `json:"branches"`
	Summary    Summary                  `json:"summary"`
}

// Recompute rebuilds the summary from the branch records. Missing and
// merged branches are excluded from the strategy counts.
func (d *Document) Recompute() {
	s := Summary{Total: len(d.Branches), Tiers: map[Tier]int{}}
	for _, rec := range d.Branches {
		switch {
		case rec.State == JobFailed:
			s.Failed++
			continue
		case !rec.Exists:
			s.Missing++
			continue
		case rec.Status == StatusMerged:
			s.Merged++
			continue
		}
		if rec.Analysis == nil {
			continue
		}
		switch rec.Analysis.Strategy {
		case StrategyAuto:
			s.Auto++
		case StrategyGuided:
			s.Guided++
		case StrategyManual:
			s.Manual++
		}
		s.Tiers[rec.Analysis.Tier]++
	}
	d.Summary = s
}
