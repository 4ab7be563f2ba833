package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/translens/translens/internal/core"
)

type collectingNotifier struct {
	mu     sync.Mutex
	events []core.Event
}

func (n *collectingNotifier) Notify(ctx context.Context, event core.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *collectingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func (n *collectingNotifier) last() core.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events[len(n.events)-1]
}

func TestBroadcasterPushesQuotaUpdates(t *testing.T) {
	limiter := NewLimiter(8, time.Minute)
	notifier := &collectingNotifier{}

	broadcaster := &Broadcaster{
		Limiter:  limiter,
		Notifier: notifier,
		Interval: 5 * time.Millisecond,
	}

	broadcaster.Start(context.Background())
	defer broadcaster.Stop()

	require.Eventually(t, func() bool { return notifier.count() >= 2 }, time.Second, time.Millisecond)

	event := notifier.last()
	require.Equal(t, core.EventRateLimitUpdate, event.Kind)
	require.NotNil(t, event.RemainingRequests)
	require.Equal(t, 8, *event.RemainingRequests)
	require.Nil(t, event.WaitTime)
}

func TestBroadcasterReflectsSaturation(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewLimiter(1, time.Minute)
	limiter.Clock = fixedClock(&now)
	require.True(t, limiter.TryAdmit().Allowed)

	notifier := &collectingNotifier{}
	broadcaster := &Broadcaster{
		Limiter:  limiter,
		Notifier: notifier,
		Interval: 5 * time.Millisecond,
	}

	broadcaster.Start(context.Background())
	defer broadcaster.Stop()

	require.Eventually(t, func() bool { return notifier.count() >= 1 }, time.Second, time.Millisecond)

	event := notifier.last()
	require.Equal(t, 0, *event.RemainingRequests)
	require.NotNil(t, event.WaitTime)
	require.Equal(t, 60, *event.WaitTime)
}

func TestBroadcasterWithoutNotifierIsNoop(t *testing.T) {
	broadcaster := &Broadcaster{
		Limiter:  NewLimiter(8, time.Minute),
		Interval: time.Millisecond,
	}

	broadcaster.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	broadcaster.Stop()
}

func TestBroadcasterLifecycle(t *testing.T) {
	broadcaster := &Broadcaster{
		Limiter:  NewLimiter(8, time.Minute),
		Notifier: &collectingNotifier{},
		Interval: time.Millisecond,
	}

	require.False(t, broadcaster.Running())

	broadcaster.Start(context.Background())
	require.True(t, broadcaster.Running())

	// Starting twice is a no-op.
	broadcaster.Start(context.Background())
	require.True(t, broadcaster.Running())

	broadcaster.Stop()
	require.False(t, broadcaster.Running())

	// Stopping twice is a no-op.
	broadcaster.Stop()
}
