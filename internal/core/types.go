package core

import "time"

// QuotaStatus is a point-in-time projection of the shared request window.
// WaitSeconds is nil while quota remains.
type QuotaStatus struct {
	Remaining   int  `json:"remaining"`
	WaitSeconds *int `json:"wait_seconds,omitempty"`
}

// EventKind identifies an outbound notification to UI collaborators.
type EventKind string

const (
	EventRateLimitUpdate EventKind = "rateLimitUpdate"
	EventShowMessage     EventKind = "showMessage"
)

// Event is a best-effort notification pushed to listening UI surfaces.
// Field names mirror the extension messaging contract.
type Event struct {
	Kind              EventKind `json:"kind"`
	RemainingRequests *int      `json:"remainingRequests,omitempty"`
	WaitTime          *int      `json:"waitTime,omitempty"`
	Message           string    `json:"message,omitempty"`
	Type              string    `json:"type,omitempty"`
}

// RateLimitEvent builds a rateLimitUpdate event from a quota status.
func RateLimitEvent(status QuotaStatus) Event {
	remaining := status.Remaining
	return Event{
		Kind:              EventRateLimitUpdate,
		RemainingRequests: &remaining,
		WaitTime:          status.WaitSeconds,
	}
}

// ErrorMessageEvent builds a showMessage event carrying an error banner.
func ErrorMessageEvent(message string) Event {
	return Event{
		Kind:    EventShowMessage,
		Message: message,
		Type:    "error",
	}
}

// Provenance captures metadata about how a translation was resolved.
type Provenance struct {
	RequestedAt    time.Time  `json:"requested_at"`
	ResolvedAt     time.Time  `json:"resolved_at"`
	Source         string     `json:"source"`
	Endpoint       string     `json:"endpoint,omitempty"`
	FromCache      bool       `json:"from_cache"`
	CacheExpiresAt *time.Time `json:"cache_expires_at,omitempty"`
}

// Translation sources recorded in provenance.
const (
	SourceBackend = "backend"
	SourceCache   = "cache"
)

// CachedTranslation is a translation served from the local store.
type CachedTranslation struct {
	TranslatedText string
	ExpiresAt      time.Time
}

// TranslationResult reports a resolved translation and supporting context.
type TranslationResult struct {
	Text           string     `json:"text"`
	TargetLanguage string     `json:"target_language"`
	TranslatedText string     `json:"translated_text"`
	Provenance     Provenance `json:"provenance"`
}
