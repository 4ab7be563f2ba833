package engine

import (
	"math"
	"sync"
	"time"

	"github.com/translens/translens/internal/core"
)

// Rate limit defaults for the shared outbound window.
const (
	DefaultCapacity = 8
	DefaultWindow   = time.Minute
)

// Limiter is a sliding-window admission gate shared by every outbound call
// path. Translate and test-connection intents consume the same quota; that is
// deliberate, a connection test costs exactly one real translation.
type Limiter struct {
	mu         sync.Mutex
	capacity   int
	window     time.Duration
	timestamps []time.Time

	// Clock is injectable for tests; defaults to time.Now UTC.
	Clock func() time.Time
}

// Decision reports whether a call was admitted. WaitSeconds is meaningful
// only when Allowed is false.
type Decision struct {
	Allowed     bool
	WaitSeconds int
}

// NewLimiter creates a limiter; non-positive arguments fall back to defaults.
func NewLimiter(capacity int, window time.Duration) *Limiter {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{capacity: capacity, window: window}
}

// TryAdmit prunes expired entries, then either records an admission or
// returns the seconds to wait until the oldest entry leaves the window.
// Prune, check, and append happen under one lock hold so concurrent callers
// cannot race between the count check and the append.
func (l *Limiter) TryAdmit() Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(now)

	if len(l.timestamps) < l.capacity {
		l.timestamps = append(l.timestamps, now)
		return Decision{Allowed: true}
	}

	return Decision{Allowed: false, WaitSeconds: l.waitSeconds(now)}
}

// Status returns a read-only projection of the window. It prunes but never
// appends, so repeated calls do not change later TryAdmit outcomes.
func (l *Limiter) Status() core.QuotaStatus {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(now)

	status := core.QuotaStatus{Remaining: l.capacity - len(l.timestamps)}
	if status.Remaining <= 0 {
		wait := l.waitSeconds(now)
		status.WaitSeconds = &wait
	}
	return status
}

// Capacity returns the configured admissions per window.
func (l *Limiter) Capacity() int {
	return l.capacity
}

// Window returns the configured window duration.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// Snapshot copies the current window contents, pruned to now. Used to persist
// the window across restarts.
func (l *Limiter) Snapshot() []time.Time {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(now)

	stamps := make([]time.Time, len(l.timestamps))
	copy(stamps, l.timestamps)
	return stamps
}

// Restore seeds the window from a persisted snapshot, dropping entries that
// have already expired and anything beyond capacity.
func (l *Limiter) Restore(stamps []time.Time) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.timestamps = l.timestamps[:0]
	for _, ts := range stamps {
		if ts.After(now.Add(-l.window)) && !ts.After(now) {
			l.timestamps = append(l.timestamps, ts)
		}
	}
	if len(l.timestamps) > l.capacity {
		l.timestamps = l.timestamps[len(l.timestamps)-l.capacity:]
	}
}

// Reset clears the window.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timestamps = l.timestamps[:0]
}

// prune drops entries outside the rolling window. Callers must hold the lock.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	kept := l.timestamps[:0]
	for _, ts := range l.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.timestamps = kept
}

// waitSeconds computes whole seconds until the oldest entry exits the window,
// clamped to zero. Callers must hold the lock and have pruned.
func (l *Limiter) waitSeconds(now time.Time) int {
	if len(l.timestamps) == 0 {
		return 0
	}
	remaining := l.window - now.Sub(l.timestamps[0])
	seconds := int(math.Ceil(remaining.Seconds()))
	if seconds < 0 {
		return 0
	}
	return seconds
}

func (l *Limiter) now() time.Time {
	if l.Clock != nil {
		return l.Clock()
	}
	return time.Now().UTC()
}
