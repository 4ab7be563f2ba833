package engine

import (
	"context"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/translens/translens/internal/core"
	"github.com/translens/translens/internal/metrics"
)

// DefaultBroadcastInterval is how often quota status is pushed to listeners.
const DefaultBroadcastInterval = time.Second

// Broadcaster periodically recomputes the limiter status and pushes a
// rateLimitUpdate event to the notifier. Absent listeners make the push a
// silent no-op; the broadcaster itself never fails.
//
// It has exactly two states, running and stopped. In serve mode it runs for
// the process lifetime; Stop exists for graceful shutdown and tests.
type Broadcaster struct {
	Limiter  *Limiter
	Notifier Notifier
	Interval time.Duration
	Logger   *logging.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// Start launches the broadcast loop. Starting a running broadcaster is a
// no-op.
func (b *Broadcaster) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return
	}

	interval := b.Interval
	if interval <= 0 {
		interval = DefaultBroadcastInterval
	}

	loopCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})
	b.running = true

	go b.loop(loopCtx, interval)
}

// Stop halts the broadcast loop and waits for it to exit. Stopping a stopped
// broadcaster is a no-op.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	cancel := b.cancel
	done := b.done
	b.running = false
	b.mu.Unlock()

	cancel()
	<-done
}

// Running reports whether the broadcast loop is active.
func (b *Broadcaster) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

func (b *Broadcaster) loop(ctx context.Context, interval time.Duration) {
	defer close(b.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.push(ctx)
		}
	}
}

func (b *Broadcaster) push(ctx context.Context) {
	status := b.Limiter.Status()
	metrics.SetQuotaRemaining(status.Remaining)

	if b.Notifier == nil {
		return
	}

	event := core.RateLimitEvent(status)
	if err := b.Notifier.Notify(ctx, event); err != nil {
		if b.Logger != nil {
			b.Logger.Debug("quota broadcast dropped", zap.Error(err))
		}
	}
}
