package lock

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mergeqerrors "mergeq.dev/mergeq/internal/errors"
	"mergeq.dev/mergeq/internal/output"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(t.TempDir(), output.NewSplogWithWriter(io.Discard))
}

func TestAcquireAndRelease(t *testing.T) {
	m := newTestManager(t)

	token, err := m.Acquire(context.Background(), "merge", time.Second)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, token, m.Holder("merge"))

	require.NoError(t, m.Release("merge", token))
	assert.Empty(t, m.Holder("merge"))
}

func TestReleaseWithWrongTokenIsRejected(t *testing.T) {
	m := newTestManager(t)

	token, err := m.Acquire(context.Background(), "merge", time.Second)
	require.NoError(t, err)

	err = m.Release("merge", "not-the-token")
	assert.ErrorIs(t, err, mergeqerrors.ErrNotOwner)

	// The lock is still held by the real owner.
	assert.Equal(t, token, m.Holder("merge"))
	require.NoError(t, m.Release("merge", token))
}

func TestReleaseUnheldLockIsNoop(t *testing.T) {
	m := newTestManager(t)
	assert.NoError(t, m.Release("merge", "whatever"))
}

func TestIndependentNamesDoNotBlock(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Acquire(context.Background(), "merge", time.Second)
	require.NoError(t, err)

	_, err = m.Acquire(context.Background(), "backup", time.Second)
	assert.NoError(t, err)
}

func TestConcurrentAcquireHasSingleWinner(t *testing.T) {
	m := newTestManager(t)

	const contenders = 16
	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Acquire(context.Background(), "merge", 100*time.Millisecond); err == nil {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestAcquireTimesOutAgainstLiveHolder(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Acquire(context.Background(), "merge", time.Minute)
	require.NoError(t, err)

	start := time.Now()
	_, err = m.Acquire(context.Background(), "merge", 2*time.Second)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, mergeqerrors.ErrLockTimeout)
	assert.GreaterOrEqual(t, elapsed, 2*time.Second)

	var timeoutErr *mergeqerrors.LockTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "merge", timeoutErr.Name)
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Acquire(context.Background(), "merge", time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err = m.Acquire(ctx, "merge", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDeadHolderIsReclaimedImmediately(t *testing.T) {
	m := newTestManager(t)

	first, err := m.Acquire(context.Background(), "merge", time.Minute)
	require.NoError(t, err)

	// Simulate the holder process having died.
	m.pidAlive = func(pid int) bool { return false }

	start := time.Now()
	second, err := m.Acquire(context.Background(), "merge", 10*time.Second)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, second, m.Holder("merge"))
	assert.Less(t, time.Since(start), time.Second, "dead holders are reclaimed without waiting out the timeout")
}

func TestAbandonedLockIsReclaimedAfterTimeout(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, os.MkdirAll(m.dir, 0o755))

	// A live holder whose lease expired long ago.
	stale, err := json.Marshal(record{
		Token:          "stale-token",
		PID:            os.Getpid(),
		Hostname:       "somewhere",
		AcquiredAt:     time.Now().Add(-time.Hour),
		TimeoutSeconds: 60,
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(m.lockPath("merge"), stale, 0o644))

	token, err := m.Acquire(context.Background(), "merge", 5*time.Second)
	require.NoError(t, err)
	assert.NotEqual(t, "stale-token", token)
	assert.Equal(t, token, m.Holder("merge"))
}

func TestCorruptLockFileIsReclaimed(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, os.MkdirAll(m.dir, 0o755))
	require.NoError(t, os.WriteFile(m.lockPath("merge"), []byte("{half a rec"), 0o644))

	token, err := m.Acquire(context.Background(), "merge", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, token, m.Holder("merge"))
}

func TestHolderOnFreeLock(t *testing.T) {
	m := newTestManager(t)
	assert.Empty(t, m.Holder("merge"))
}
