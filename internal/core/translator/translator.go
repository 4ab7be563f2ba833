// Package translator provides clients for LibreTranslate-compatible
// translation backends.
package translator

import (
	"context"
	"errors"
	"fmt"
)

// Request describes one translate intent. Endpoint and APIKey come from
// caller-supplied settings; the client treats them as inputs, not state.
type Request struct {
	Text           string
	TargetLanguage string
	Endpoint       string
	APIKey         string
}

// TestResult reports the outcome of a connection probe. TestConnection never
// returns an error; failures are folded into Success/Message.
type TestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Provider is the capability the governor depends on.
type Provider interface {
	// Translate resolves one string via the configured backend.
	Translate(ctx context.Context, req Request) (string, error)
	// TestConnection validates endpoint reachability and credential validity
	// using a fixed probe payload. It must never panic or raise past its
	// boundary.
	TestConnection(ctx context.Context, endpoint, apiKey string) TestResult
}

var (
	// ErrInvalidRequest indicates a missing required field. Never retried.
	ErrInvalidRequest = errors.New("translation request is missing a required field")

	// ErrEmptyResult indicates a well-formed success response with no
	// translated text.
	ErrEmptyResult = errors.New("translation backend returned an empty result")
)

// RateLimitedError is returned after upstream 429 retries are exhausted.
type RateLimitedError struct {
	Attempts int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("translation backend rate limit persisted after %d attempts; try a different API key or instance", e.Attempts)
}

// UpstreamError is returned when the backend responds with a non-2xx status
// or an application-level error field.
//
// RawResponse holds the response body bytes and must never include API keys.
type UpstreamError struct {
	StatusCode  int
	Message     string
	RawResponse []byte
}

func (e *UpstreamError) Error() string {
	if e == nil {
		return "translation backend error"
	}
	if e.StatusCode > 0 && e.Message != "" {
		return fmt.Sprintf("translation request failed: status %d: %s", e.StatusCode, e.Message)
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("translation request failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("translation request failed: %s", e.Message)
}
