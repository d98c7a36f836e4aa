package output

import "sync"

// Progress reports per-job completion for a parallel run. It prints one line
// per completed job so output stays readable when piped (non-TTY consumers
// like CI see the same thing as a terminal).
type Progress struct {
	mu        sync.Mutex
	splog     *Splog
	total     int
	completed int
	failed    int
}

// NewProgress creates a progress reporter for total jobs
func NewProgress(splog *Splog, total int) *Progress {
	return &Progress{splog: splog, total: total}
}

// JobDone records one finished job and prints the running tally
func (p *Progress) JobDone(name string, failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if failed {
		p.failed++
		p.splog.Info("[%d/%d] %s %s", p.completed+p.failed, p.total, ColorFail("failed"), name)
	} else {
		p.completed++
		p.splog.Info("[%d/%d] %s %s", p.completed+p.failed, p.total, ColorPass("done"), name)
	}
}

// Counts returns completed and failed totals
func (p *Progress) Counts() (completed, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed, p.failed
}
