package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/translens/translens/internal/errors"

	"github.com/translens/translens/internal/core"
)

// subscriberBuffer bounds per-subscriber queues. A subscriber that cannot
// keep up loses events rather than blocking the governor.
const subscriberBuffer = 16

// heartbeatInterval keeps idle SSE connections alive through proxies.
const heartbeatInterval = 15 * time.Second

// EventHub fans governor events out to active SSE subscribers. It implements
// the governor's Notifier interface; with no subscribers Notify is a no-op.
type EventHub struct {
	mu   sync.RWMutex
	subs map[chan core.Event]struct{}
}

// NewEventHub creates an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{
		subs: make(map[chan core.Event]struct{}),
	}
}

// Notify delivers the event to every subscriber. Slow subscribers are
// skipped; delivery is best-effort.
func (h *EventHub) Notify(ctx context.Context, event core.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs {
		select {
		case ch <- event:
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}

// Subscribe registers a new listener. The returned cancel func must be called
// when the listener goes away.
func (h *EventHub) Subscribe() (<-chan core.Event, func()) {
	ch := make(chan core.Event, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
	return ch, cancel
}

// SubscriberCount reports the number of active listeners.
func (h *EventHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

var eventHub *EventHub

// InitEventHub installs the hub used by the events handler.
func InitEventHub(hub *EventHub) {
	eventHub = hub
}

// GetEventHub returns the installed hub (nil before serve wiring).
func GetEventHub() *EventHub {
	return eventHub
}

// EventsHandler streams governor events over SSE. Each client receives an
// initial rateLimitUpdate snapshot, then live events as they happen.
func EventsHandler(w http.ResponseWriter, r *http.Request) {
	hub := eventHub
	if hub == nil {
		respondWithError(w, r, apperrors.NewInternalError("event hub not initialized"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, r, apperrors.NewInternalError("streaming not supported by this connection"))
		return
	}

	// Long-lived stream; the server write timeout must not apply here.
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	events, cancel := hub.Subscribe()
	defer cancel()

	// Snapshot so a fresh client can render quota immediately.
	if api := translationAPI; api != nil && api.Governor != nil {
		writeSSE(w, core.RateLimitEvent(api.Governor.Quota()))
		flusher.Flush()
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case event := <-events:
			writeSSE(w, event)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event core.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Kind, data)
}
