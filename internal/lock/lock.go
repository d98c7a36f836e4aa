// Package lock implements named, cross-process mutual exclusion over lock
// files in the repository's .git directory. Ownership is tracked by a random
// holder token rather than a pid: pids are recycled after crashes, so a pid
// match is only ever treated as a liveness hint, never as proof of ownership.
package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	mergeqerrors "mergeq.dev/mergeq/internal/errors"
	"mergeq.dev/mergeq/internal/output"
)

// PollInterval is how often a blocked Acquire re-checks the lock file
const PollInterval = 250 * time.Millisecond

// record is the on-disk lock payload, readable by cooperating processes
type record struct {
	Token          string    `json:"token"`
	PID            int       `json:"pid"`
	Hostname       string    `json:"hostname"`
	AcquiredAt     time.Time `json:"acquiredAt"`
	TimeoutSeconds int       `json:"timeoutSeconds"`
}

// Manager acquires and releases named locks for one repository
type Manager struct {
	dir   string
	splog *output.Splog

	// pidAlive is swapped out in tests to simulate dead holders
	pidAlive func(pid int) bool
}

// NewManager creates a lock manager storing lock files under
// repoRoot/.git/mergeq/locks.
func NewManager(repoRoot string, splog *output.Splog) *Manager {
	return &Manager{
		dir:      filepath.Join(repoRoot, ".git", "mergeq", "locks"),
		splog:    splog,
		pidAlive: pidAlive,
	}
}

func (m *Manager) lockPath(name string) string {
	return filepath.Join(m.dir, name+".lock")
}

// Acquire obtains the named lock, blocking with periodic polling for up to
// timeout. It returns the holder token needed to release the lock, or a
// LockTimeoutError once the timeout elapses.
func (m *Manager) Acquire(ctx context.Context, name string, timeout time.Duration) (string, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create lock directory: %w", err)
	}

	token := uuid.NewString()
	deadline := time.Now().Add(timeout)

	for {
		acquired, err := m.tryAcquire(name, token, timeout)
		if err != nil {
			return "", err
		}
		if acquired {
			return token, nil
		}

		if time.Now().After(deadline) {
			return "", mergeqerrors.NewLockTimeoutError(name, timeout)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(PollInterval):
		}
	}
}

// tryAcquire makes a single attempt: create the lock file exclusively, or
// reclaim it if the current record is stale or abandoned.
func (m *Manager) tryAcquire(name, token string, timeout time.Duration) (bool, error) {
	path := m.lockPath(name)
	payload, err := json.Marshal(record{
		Token:          token,
		PID:            os.Getpid(),
		Hostname:       hostname(),
		AcquiredAt:     time.Now(),
		TimeoutSeconds: int(timeout / time.Second),
	})
	if err != nil {
		return false, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err == nil {
		if _, werr := file.Write(payload); werr != nil {
			_ = file.Close()
			_ = os.Remove(path)
			return false, werr
		}
		return true, file.Close()
	}
	if !errors.Is(err, os.ErrExist) {
		return false, err
	}

	current, readErr := m.readRecord(name)
	if readErr != nil {
		// Unreadable record: likely a half-written file from a crashed
		// process; reclaim it.
		return m.reclaim(name, token, payload)
	}

	holderTimeout := time.Duration(current.TimeoutSeconds) * time.Second
	age := time.Since(current.AcquiredAt)

	switch {
	case !m.pidAlive(current.PID):
		m.splog.Debug("lock %q holder pid %d is gone, reclaiming", name, current.PID)
		return m.reclaim(name, token, payload)
	case holderTimeout > 0 && age > holderTimeout:
		m.splog.Warn("lock %q held for %s (timeout %s), treating as abandoned", name, age.Round(time.Second), holderTimeout)
		return m.reclaim(name, token, payload)
	default:
		return false, nil
	}
}

// reclaim replaces the lock file via temp-file+rename and re-reads it to
// confirm this process won the race.
func (m *Manager) reclaim(name, token string, payload []byte) (bool, error) {
	path := m.lockPath(name)
	tmp := path + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return false, err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return false, err
	}

	current, err := m.readRecord(name)
	if err != nil {
		return false, err
	}
	return current.Token == token, nil
}

// Release releases the named lock if token matches the current holder.
// A mismatched token is a no-op reported as NotOwnerError.
func (m *Manager) Release(name, token string) error {
	current, err := m.readRecord(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if current.Token != token {
		return &mergeqerrors.NotOwnerError{Name: name, Token: token}
	}
	return os.Remove(m.lockPath(name))
}

// Holder returns the token currently holding the named lock, or empty if
// the lock is free. Used by integrity checks and tests.
func (m *Manager) Holder(name string) string {
	current, err := m.readRecord(name)
	if err != nil {
		return ""
	}
	return current.Token
}

func (m *Manager) readRecord(name string) (*record, error) {
	data, err := os.ReadFile(m.lockPath(name))
	if err != nil {
		return nil, err
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unreadable lock record: %w", err)
	}
	if rec.Token == "" {
		return nil, fmt.Errorf("lock record missing token")
	}
	return &rec, nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

// pidAlive reports whether a process with the given pid exists. Signal 0
// probes without delivering anything.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
