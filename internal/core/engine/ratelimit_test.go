package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedClock(at *time.Time) func() time.Time {
	return func() time.Time { return *at }
}

func TestLimiterAdmitsUpToCapacity(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewLimiter(8, time.Minute)
	limiter.Clock = fixedClock(&now)

	for i := 0; i < 8; i++ {
		decision := limiter.TryAdmit()
		require.True(t, decision.Allowed, "call %d should be admitted", i+1)
	}

	decision := limiter.TryAdmit()
	require.False(t, decision.Allowed)
	require.Equal(t, 60, decision.WaitSeconds)
}

func TestLimiterAdmitsAfterWindowClears(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewLimiter(8, time.Minute)
	limiter.Clock = fixedClock(&now)

	for i := 0; i < 8; i++ {
		require.True(t, limiter.TryAdmit().Allowed)
	}
	denied := limiter.TryAdmit()
	require.False(t, denied.Allowed)

	// Retrying exactly WaitSeconds later must be admitted.
	now = now.Add(time.Duration(denied.WaitSeconds) * time.Second)
	require.True(t, limiter.TryAdmit().Allowed)
}

func TestLimiterWindowSlides(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewLimiter(3, time.Minute)
	limiter.Clock = fixedClock(&now)

	for i := 0; i < 3; i++ {
		require.True(t, limiter.TryAdmit().Allowed)
	}
	require.False(t, limiter.TryAdmit().Allowed)

	// Half a window later the original burst still occupies the window.
	now = now.Add(30 * time.Second)
	require.False(t, limiter.TryAdmit().Allowed)

	// Once the burst ages out, capacity is restored in full.
	now = now.Add(31 * time.Second)
	for i := 0; i < 3; i++ {
		require.True(t, limiter.TryAdmit().Allowed)
	}
	require.False(t, limiter.TryAdmit().Allowed)
}

func TestLimiterPartialWindowWait(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewLimiter(2, time.Minute)
	limiter.Clock = fixedClock(&now)

	require.True(t, limiter.TryAdmit().Allowed)
	now = now.Add(20 * time.Second)
	require.True(t, limiter.TryAdmit().Allowed)

	now = now.Add(10 * time.Second)
	decision := limiter.TryAdmit()
	require.False(t, decision.Allowed)
	// Oldest entry is 30s old; it exits the 60s window in 30s.
	require.Equal(t, 30, decision.WaitSeconds)
}

func TestLimiterStatusIsIdempotent(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewLimiter(2, time.Minute)
	limiter.Clock = fixedClock(&now)

	require.True(t, limiter.TryAdmit().Allowed)

	for i := 0; i < 10; i++ {
		status := limiter.Status()
		require.Equal(t, 1, status.Remaining)
		require.Nil(t, status.WaitSeconds)
	}

	// Status reads must not have consumed quota.
	require.True(t, limiter.TryAdmit().Allowed)
	require.False(t, limiter.TryAdmit().Allowed)
}

func TestLimiterStatusSaturated(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewLimiter(1, time.Minute)
	limiter.Clock = fixedClock(&now)

	require.True(t, limiter.TryAdmit().Allowed)

	status := limiter.Status()
	require.Equal(t, 0, status.Remaining)
	require.NotNil(t, status.WaitSeconds)
	require.Equal(t, 60, *status.WaitSeconds)
}

func TestLimiterEmptyWindowStatus(t *testing.T) {
	limiter := NewLimiter(8, time.Minute)

	status := limiter.Status()
	require.Equal(t, 8, status.Remaining)
	require.Nil(t, status.WaitSeconds)
}

func TestLimiterWaitSecondsNeverNegative(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewLimiter(1, time.Minute)
	limiter.Clock = fixedClock(&now)

	require.True(t, limiter.TryAdmit().Allowed)

	// Move just shy of expiry so the entry survives pruning with almost no
	// remaining time.
	now = now.Add(time.Minute - time.Nanosecond)
	decision := limiter.TryAdmit()
	require.False(t, decision.Allowed)
	require.GreaterOrEqual(t, decision.WaitSeconds, 0)
}

func TestLimiterSnapshotRestore(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewLimiter(4, time.Minute)
	limiter.Clock = fixedClock(&now)

	require.True(t, limiter.TryAdmit().Allowed)
	now = now.Add(10 * time.Second)
	require.True(t, limiter.TryAdmit().Allowed)

	snapshot := limiter.Snapshot()
	require.Len(t, snapshot, 2)

	restored := NewLimiter(4, time.Minute)
	restored.Clock = fixedClock(&now)
	restored.Restore(snapshot)

	status := restored.Status()
	require.Equal(t, 2, status.Remaining)
}

func TestLimiterRestoreDropsStaleEntries(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	stale := now.Add(-2 * time.Minute)
	fresh := now.Add(-10 * time.Second)
	future := now.Add(time.Hour)

	limiter := NewLimiter(4, time.Minute)
	limiter.Clock = fixedClock(&now)
	limiter.Restore([]time.Time{stale, fresh, future})

	require.Equal(t, 3, limiter.Status().Remaining)
}

func TestLimiterDefaults(t *testing.T) {
	limiter := NewLimiter(0, 0)
	require.Equal(t, DefaultCapacity, limiter.Capacity())
	require.Equal(t, DefaultWindow, limiter.Window())
}
