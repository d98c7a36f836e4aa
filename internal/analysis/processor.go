package analysis

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"mergeq.dev/mergeq/internal/config"
	"mergeq.dev/mergeq/internal/conflict"
	"mergeq.dev/mergeq/internal/git"
	"mergeq.dev/mergeq/internal/output"
	"mergeq.dev/mergeq/internal/store"
	"mergeq.dev/mergeq/internal/validate"
)

// DocumentFileName is the AnalysisRecord document under .git/mergeq/
const DocumentFileName = "analysis.json"

// RemoteInspector annotates branch records with remote state. It is
// optional; a nil inspector disables annotation.
type RemoteInspector interface {
	BranchStatus(ctx context.Context, branch string) (map[string]string, error)
}

// Options configures one processor run
type Options struct {
	Concurrency int
	Level       validate.Level
	Validate    bool
	Progress    func(completed, failed, total int)
}

// Processor schedules branch analysis jobs over a bounded worker pool
type Processor struct {
	runner    git.Runner
	detector  *conflict.Detector
	engine    *validate.Engine
	store     *store.Store[Document]
	cfg       *config.Config
	splog     *output.Splog
	inspector RemoteInspector
}

// NewProcessor creates a processor persisting into .git/mergeq/analysis.json
func NewProcessor(runner git.Runner, detector *conflict.Detector, engine *validate.Engine, cfg *config.Config, splog *output.Splog) *Processor {
	docPath := filepath.Join(runner.RepoRoot(), ".git", "mergeq", DocumentFileName)
	return &Processor{
		runner:   runner,
		detector: detector,
		engine:   engine,
		store:    store.New[Document](docPath),
		cfg:      cfg,
		splog:    splog,
	}
}

// SetInspector attaches an optional remote inspector
func (p *Processor) SetInspector(inspector RemoteInspector) {
	p.inspector = inspector
}

// Store exposes the analysis document store for read-only consumers
func (p *Processor) Store() *store.Store[Document] {
	return p.store
}

// Run analyzes the given branches with a bounded worker pool and returns
// the persisted document. One job's failure never aborts its siblings.
func (p *Processor) Run(ctx context.Context, branches []string, opts Options) (*Document, error) {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = p.cfg.MaxParallelJobs
	}

	queue := make([]string, 0, len(branches))
	for _, name := range branches {
		if p.cfg.ShouldSkipBranch(name) {
			p.splog.Info("skipping %s (matches skip pattern)", name)
			continue
		}
		queue = append(queue, name)
	}
	total := len(queue)
	if concurrency > total {
		concurrency = max(total, 1)
	}

	// Seed the document with every job queued before any worker starts.
	_, err := p.store.Update(func(doc *Document) error {
		doc.Version++
		doc.BaseBranch = p.cfg.BaseBranch
		doc.Level = string(opts.Level)
		doc.StartedAt = time.Now()
		doc.FinishedAt = time.Time{}
		doc.Branches = make(map[string]*BranchRecord, total)
		for _, name := range queue {
			doc.Branches[name] = &BranchRecord{BranchName: name, State: JobQueued}
		}
		doc.Recompute()
		return nil
	})
	if err != nil {
		return nil, err
	}

	progress := output.NewProgress(p.splog, total)
	jobs := make(chan string)
	var wg sync.WaitGroup

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobs {
				p.runJob(ctx, name, opts, progress, total)
			}
		}()
	}

	// FIFO: jobs are fed in submission order.
	for _, name := range queue {
		jobs <- name
	}
	close(jobs)
	wg.Wait()

	doc, err := p.store.Update(func(doc *Document) error {
		doc.FinishedAt = time.Now()
		doc.Recompute()
		return nil
	})
	if err != nil {
		return nil, err
	}

	completed, failed := progress.Counts()
	p.splog.Info("analysis finished: %d completed, %d failed, %d total", completed, failed, total)
	return doc, nil
}

// runJob analyzes one branch. Errors and panics are recorded on the job's
// record and never propagate to the pool.
func (p *Processor) runJob(ctx context.Context, name string, opts Options, progress *output.Progress, total int) {
	p.transition(name, JobRunning, nil)

	rec, err := func() (rec *BranchRecord, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job panicked: %v", r)
			}
		}()
		rec, err = p.analyzeBranch(ctx, name, opts)
		return
	}()

	if err != nil {
		p.splog.Debug("branch %s failed: %v", name, err)
		p.transition(name, JobFailed, func(r *BranchRecord) {
			r.Error = err.Error()
		})
		progress.JobDone(name, true)
	} else {
		p.transition(name, JobDone, func(r *BranchRecord) {
			*r = *rec
			r.State = JobDone
			r.CompletedAt = time.Now()
		})
		progress.JobDone(name, false)
	}

	if opts.Progress != nil {
		completed, failed := progress.Counts()
		opts.Progress(completed, failed, total)
	}
}

// transition updates one branch record and recomputes the summary, all
// inside a single atomic document update.
func (p *Processor) transition(name string, state JobState, mutate func(*BranchRecord)) {
	_, err := p.store.Update(func(doc *Document) error {
		rec, ok := doc.Branches[name]
		if !ok {
			rec = &BranchRecord{BranchName: name}
			doc.Branches[name] = rec
		}
		if mutate != nil {
			mutate(rec)
		}
		rec.State = state
		doc.Recompute()
		return nil
	})
	if err != nil {
		p.splog.Warn("failed to persist state for %s: %v", name, err)
	}
}

func (p *Processor) analyzeBranch(ctx context.Context, name string, opts Options) (*BranchRecord, error) {
	rec := &BranchRecord{BranchName: name}

	exists, err := p.runner.BranchExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		rec.Exists = false
		rec.Status = StatusMissing
		return rec, nil
	}
	rec.Exists = true
	rec.Status = StatusActive

	info, err := p.runner.GetCommitInfo(ctx, name)
	if err != nil {
		return nil, err
	}
	rec.CommitID = info.ID
	rec.Author = info.Author
	rec.CommitTime = info.When

	base := p.cfg.BaseBranch
	mergeBase, err := p.runner.MergeBase(ctx, base, name)
	if err != nil {
		return nil, err
	}
	rec.MergeBase = mergeBase

	if mergeBase == info.ID {
		// Everything on the branch is already in the base.
		rec.Status = StatusMerged
		rec.SafeToDelete = true
		return rec, nil
	}

	stat, err := p.runner.GetDiffStat(ctx, base, name)
	if err != nil {
		return nil, err
	}

	report, err := p.detector.Analyze(ctx, base, name)
	if err != nil {
		return nil, err
	}

	rec.Analysis = p.classify(stat, report)

	if opts.Validate && p.engine != nil {
		result, err := p.engine.Validate(ctx, name, opts.Level)
		if err != nil {
			return nil, err
		}
		rec.Validation = result
	}

	if p.inspector != nil {
		meta, err := p.inspector.BranchStatus(ctx, name)
		if err != nil {
			p.splog.Debug("remote annotation for %s unavailable: %v", name, err)
		} else {
			rec.Metadata = meta
		}
	}

	return rec, nil
}

// classify chooses a merge strategy from the configured policy thresholds
func (p *Processor) classify(stat git.DiffStat, report *conflict.Report) *BranchAnalysis {
	a := &BranchAnalysis{
		ChangedFiles:      stat.FilesChanged,
		Insertions:        stat.Insertions,
		Deletions:         stat.Deletions,
		CriticalFiles:     report.CriticalChanges,
		ConflictCount:     report.ConflictCount,
		NewFileCollisions: len(report.NewFileCollisions),
	}

	critical := len(report.CriticalChanges)
	limits := p.cfg.Guided

	switch {
	case report.ConflictCount == 0 && critical == 0 && len(report.NewFileCollisions) == 0:
		a.Strategy = StrategyAuto
	case report.ConflictCount <= limits.MaxConflicts &&
		critical <= limits.MaxCriticalFiles &&
		stat.FilesChanged <= limits.MaxChangedFiles:
		a.Strategy = StrategyGuided
	default:
		a.Strategy = StrategyManual
	}

	a.Priority = report.ConflictCount*5 + critical*3 + len(report.NewFileCollisions)*2 + stat.FilesChanged/25
	switch {
	case a.Strategy == StrategyManual || a.Priority >= 10:
		a.Tier = TierHigh
	case a.Strategy == StrategyGuided || a.Priority >= 3:
		a.Tier = TierMedium
	default:
		a.Tier = TierLow
	}
	return a
}
