// Package registry tracks ephemeral resources created during a run so that
// every exit path, including early aborts, releases them. Mutating
// operations register what they create before returning; the orchestrator
// releases everything in one deferred call.
package registry

import (
	"sync"

	"mergeq.dev/mergeq/internal/output"
)

// Kind classifies a registered resource
type Kind string

const (
	KindBranch   Kind = "branch"
	KindWorktree Kind = "worktree"
	KindTempFile Kind = "tempfile"
	KindStash    Kind = "stash"
)

type resource struct {
	kind    Kind
	handle  string
	release func() error
}

// Registry tracks ephemeral resources for guaranteed cleanup
type Registry struct {
	mu        sync.Mutex
	resources []resource
	splog     *output.Splog
}

// New creates an empty registry
func New(splog *output.Splog) *Registry {
	return &Registry{splog: splog}
}

// Register records a resource and the function that releases it
func (r *Registry) Register(kind Kind, handle string, release func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resources = append(r.resources, resource{kind: kind, handle: handle, release: release})
}

// Len returns the number of currently registered resources
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.resources)
}

// ReleaseAll releases registered resources in LIFO order.
//
// On success every resource is released. On failure resources are preserved
// for postmortem inspection unless force is set. Release failures are
// cleanup warnings: they are logged and collected but never escalate into
// a run-level failure.
func (r *Registry) ReleaseAll(success, force bool) []error {
	r.mu.Lock()
	resources := r.resources
	if !success && !force {
		r.mu.Unlock()
		if len(resources) > 0 {
			r.splog.Warn("preserving %d ephemeral resource(s) for inspection after failure", len(resources))
			for _, res := range resources {
				r.splog.Debug("preserved %s %s", res.kind, res.handle)
			}
		}
		return nil
	}
	r.resources = nil
	r.mu.Unlock()

	var warnings []error
	for i := len(resources) - 1; i >= 0; i-- {
		res := resources[i]
		if err := res.release(); err != nil {
			r.splog.Warn("failed to release %s %s: %v", res.kind, res.handle, err)
			warnings = append(warnings, err)
		} else {
			r.splog.Debug("released %s %s", res.kind, res.handle)
		}
	}
	return warnings
}
