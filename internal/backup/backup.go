// Package backup implements repository snapshots with rollback guarantees.
// A backup is an immutable branch pointing at the head commit at creation
// time, plus an optional stash of uncommitted changes, plus a metadata
// record in an index persisted through the atomic store.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/AlecAivazis/survey/v2"

	mergeqerrors "mergeq.dev/mergeq/internal/errors"
	"mergeq.dev/mergeq/internal/git"
	"mergeq.dev/mergeq/internal/output"
	"mergeq.dev/mergeq/internal/store"
)

// BranchPrefix namespaces backup branches away from user branches
const BranchPrefix = "mergeq/backup/"

// IndexFileName is the backup index document under .git/mergeq/
const IndexFileName = "backups.json"

// Backup is an immutable snapshot record. Once written it never changes.
type Backup struct {
	ID            string    `json:"id"`
	OperationType string    `json:"operationType"`
	Description   string    `json:"description"`
	BranchName    string    `json:"branchName"`
	CommitID      string    `json:"commitId"`
	Dirty         bool      `json:"dirty"`
	StashRef      string    `json:"stashRef,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// BackupBranch returns the branch holding this backup's head commit
func (b Backup) BackupBranch() string {
	return BranchPrefix + b.ID
}

// Index is the persisted backup index document
type Index struct {
	Version    int      `json:"version"`
	MostRecent string   `json:"mostRecent,omitempty"`
	Backups    []Backup `json:"backups"`
}

// Manager owns backup records. Other components only read them.
type Manager struct {
	runner     git.Runner
	store      *store.Store[Index]
	splog      *output.Splog
	maxBackups int

	// confirm asks the user before a restore; swapped out in tests
	confirm func(prompt string) (bool, error)
}

// NewManager creates a backup manager for the given repository
func NewManager(runner git.Runner, splog *output.Splog, maxBackups int) *Manager {
	indexPath := filepath.Join(runner.RepoRoot(), ".git", "mergeq", IndexFileName)
	return &Manager{
		runner:     runner,
		store:      store.New[Index](indexPath),
		splog:      splog,
		maxBackups: maxBackups,
		confirm:    surveyConfirm,
	}
}

func surveyConfirm(prompt string) (bool, error) {
	confirmed := false
	err := survey.AskOne(&survey.Confirm{Message: prompt}, &confirmed)
	return confirmed, err
}

// newBackupID returns a time-ordered backup id. Decimal unix nanoseconds
// sort lexicographically in creation order.
func newBackupID(opType string) string {
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), opType)
}

// Create captures the current repository state as a new immutable backup
// and enforces the retention limit.
func (m *Manager) Create(ctx context.Context, opType, description string) (*Backup, error) {
	branchName, err := m.runner.CurrentBranch(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot back up a detached HEAD: %w", err)
	}
	commitID, err := m.runner.GetRevision(ctx, branchName)
	if err != nil {
		return nil, err
	}
	dirty, err := m.runner.IsDirty(ctx)
	if err != nil {
		return nil, err
	}

	b := Backup{
		ID:            newBackupID(opType),
		OperationType: opType,
		Description:   description,
		BranchName:    branchName,
		CommitID:      commitID,
		Dirty:         dirty,
		CreatedAt:     time.Now(),
	}

	if err := m.runner.CreateBranch(ctx, b.BackupBranch(), commitID); err != nil {
		return nil, fmt.Errorf("failed to create backup branch: %w", err)
	}

	if dirty {
		stashRef, err := m.runner.StashSnapshot(ctx, "mergeq backup "+b.ID)
		if err != nil {
			// Roll back the half-made backup before reporting.
			_ = m.runner.DeleteBranch(ctx, b.BackupBranch())
			return nil, fmt.Errorf("failed to stash dirty working tree: %w", err)
		}
		b.StashRef = stashRef
	}

	var evicted []Backup
	_, err = m.store.Update(func(idx *Index) error {
		idx.Version++
		idx.Backups = append(idx.Backups, b)
		idx.MostRecent = b.ID
		evicted = enforceRetention(idx, m.maxBackups)
		return nil
	})
	if err != nil {
		_ = m.runner.DeleteBranch(ctx, b.BackupBranch())
		return nil, fmt.Errorf("failed to persist backup record: %w", err)
	}

	m.deleteEvicted(ctx, evicted)
	m.splog.Info("created backup %s (%s at %s)", b.ID, branchName, shortID(commitID))
	return &b, nil
}

// enforceRetention trims the index down to max entries, oldest first, and
// returns the evicted records so their branches can be deleted.
func enforceRetention(idx *Index, max int) []Backup {
	if max <= 0 || len(idx.Backups) <= max {
		return nil
	}
	sort.Slice(idx.Backups, func(i, j int) bool {
		return idx.Backups[i].CreatedAt.Before(idx.Backups[j].CreatedAt)
	})
	cut := len(idx.Backups) - max
	evicted := append([]Backup(nil), idx.Backups[:cut]...)
	idx.Backups = append([]Backup(nil), idx.Backups[cut:]...)
	return evicted
}

func (m *Manager) deleteEvicted(ctx context.Context, evicted []Backup) {
	for _, old := range evicted {
		if err := m.runner.DeleteBranch(ctx, old.BackupBranch()); err != nil {
			m.splog.Warn("failed to delete evicted backup branch %s: %v", old.BackupBranch(), err)
		}
		m.splog.Debug("evicted backup %s", old.ID)
	}
}

// Prune enforces the retention limit without creating a new backup
func (m *Manager) Prune(ctx context.Context) error {
	var evicted []Backup
	_, err := m.store.Update(func(idx *Index) error {
		idx.Version++
		evicted = enforceRetention(idx, m.maxBackups)
		return nil
	})
	if err != nil {
		return err
	}
	m.deleteEvicted(ctx, evicted)
	if len(evicted) > 0 {
		m.splog.Info("pruned %d backup(s)", len(evicted))
	}
	return nil
}

// List returns all backups, newest first
func (m *Manager) List() ([]Backup, error) {
	idx, err := m.store.Read()
	if err != nil {
		return nil, err
	}
	backups := append([]Backup(nil), idx.Backups...)
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Get returns a single backup record by id
func (m *Manager) Get(id string) (*Backup, error) {
	idx, err := m.store.Read()
	if err != nil {
		return nil, err
	}
	for _, b := range idx.Backups {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, &mergeqerrors.BackupNotFoundError{ID: id}
}

// MostRecent returns the newest backup, or BackupNotFoundError if none exist
func (m *Manager) MostRecent() (*Backup, error) {
	idx, err := m.store.Read()
	if err != nil {
		return nil, err
	}
	if idx.MostRecent == "" {
		return nil, &mergeqerrors.BackupNotFoundError{ID: "(most recent)"}
	}
	return m.Get(idx.MostRecent)
}

// Restore returns the repository to the state captured by the backup.
//
// Restoring is never a one-way destructive act: a safety backup of the
// current state is always created first, even with force set, so a bad
// restore can itself be undone.
func (m *Manager) Restore(ctx context.Context, id string, force bool) error {
	b, err := m.Get(id)
	if err != nil {
		return err
	}

	if !force {
		prompt := fmt.Sprintf("Restore backup %s (%s at %s)? This resets the working tree.", b.ID, b.BranchName, shortID(b.CommitID))
		ok, err := m.confirm(prompt)
		if err != nil {
			return err
		}
		if !ok {
			m.splog.Info("restore cancelled")
			return nil
		}
	}

	safety, err := m.Create(ctx, "pre-restore", "safety backup before restoring "+b.ID)
	if err != nil {
		return fmt.Errorf("refusing to restore without a safety backup: %w", err)
	}
	m.splog.Debug("safety backup %s created before restore", safety.ID)

	exists, err := m.runner.BranchExists(ctx, b.BranchName)
	if err != nil {
		return err
	}
	if !exists {
		// The original branch is gone; recreate it from the backup branch.
		m.splog.Warn("branch %s no longer exists, recreating it from %s", b.BranchName, b.BackupBranch())
		if err := m.runner.CreateBranch(ctx, b.BranchName, b.BackupBranch()); err != nil {
			return fmt.Errorf("failed to recreate branch %s: %w", b.BranchName, err)
		}
	}
	if err := m.runner.Checkout(ctx, b.BranchName); err != nil {
		return err
	}
	if err := m.runner.HardReset(ctx, b.CommitID); err != nil {
		return err
	}

	if b.StashRef != "" {
		if err := m.runner.StashApply(ctx, b.StashRef); err != nil {
			m.splog.Warn("could not reapply stashed changes %s: %v", b.StashRef, err)
		}
	}

	m.splog.Info("restored backup %s (%s at %s)", b.ID, b.BranchName, shortID(b.CommitID))
	return nil
}

// Verify checks a backup's integrity: the metadata record, the backup
// branch, and the recorded commits must all be present and consistent.
func (m *Manager) Verify(ctx context.Context, id string) error {
	b, err := m.Get(id)
	if err != nil {
		if errors.Is(err, mergeqerrors.ErrBackupNotFound) {
			return err
		}
		return &mergeqerrors.BackupCorruptionError{ID: id, Reason: err.Error()}
	}

	if _, err := os.Stat(m.store.Path()); err != nil {
		return &mergeqerrors.BackupCorruptionError{ID: id, Reason: "backup index file missing"}
	}

	exists, err := m.runner.BranchExists(ctx, b.BackupBranch())
	if err != nil {
		return err
	}
	if !exists {
		return &mergeqerrors.BackupCorruptionError{ID: id, Reason: "backup branch missing"}
	}

	rev, err := m.runner.GetRevision(ctx, b.BackupBranch())
	if err != nil {
		return &mergeqerrors.BackupCorruptionError{ID: id, Reason: "backup branch unresolvable"}
	}
	if rev != b.CommitID {
		return &mergeqerrors.BackupCorruptionError{
			ID:     id,
			Reason: fmt.Sprintf("backup branch points at %s, expected %s", shortID(rev), shortID(b.CommitID)),
		}
	}

	if b.StashRef != "" {
		ok, err := m.runner.CommitExists(ctx, b.StashRef)
		if err != nil {
			return err
		}
		if !ok {
			return &mergeqerrors.BackupCorruptionError{ID: id, Reason: "recorded stash commit missing"}
		}
	}
	return nil
}

// SetConfirm overrides the confirmation prompt. Used by tests and by the
// CLI when stdin is not interactive.
func (m *Manager) SetConfirm(fn func(prompt string) (bool, error)) {
	m.confirm = fn
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
