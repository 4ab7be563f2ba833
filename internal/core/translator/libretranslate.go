package translator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultMaxRetries bounds upstream 429 retries per translate call.
	DefaultMaxRetries = 3

	probeText   = "Hello"
	probeSource = "en"
	probeTarget = "es"
)

// Client implements Provider against a LibreTranslate-compatible HTTP API.
type Client struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	MaxRetries int

	// sleep is overridable in tests so backoff does not slow the suite.
	sleep func(ctx context.Context, d time.Duration) error
}

var _ Provider = (*Client)(nil)

// NewClient returns a client with defaults applied.
func NewClient() *Client {
	return &Client{
		MaxRetries: DefaultMaxRetries,
		sleep:      sleepContext,
	}
}

// Translate sends one translate request, retrying upstream 429 responses with
// bounded exponential backoff. Only 429 is retried; every other failure is
// surfaced immediately.
func (c *Client) Translate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Text) == "" ||
		strings.TrimSpace(req.TargetLanguage) == "" ||
		strings.TrimSpace(req.Endpoint) == "" ||
		strings.TrimSpace(req.APIKey) == "" {
		return "", ErrInvalidRequest
	}

	maxRetries := c.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	for attempt := 0; ; attempt++ {
		text, retryAfter, err := c.translateOnce(ctx, req.Endpoint, req.APIKey, req.Text, "auto", req.TargetLanguage)
		if err == nil {
			return text, nil
		}

		if !isRetryable(err) {
			return "", err
		}

		if attempt >= maxRetries {
			return "", &RateLimitedError{Attempts: attempt + 1}
		}

		delay := retryAfter
		if delay <= 0 {
			delay = time.Duration(1<<attempt) * time.Second
		}

		if err := c.doSleep(ctx, delay); err != nil {
			return "", err
		}
	}
}

// TestConnection probes the backend with a fixed payload. It never retries and
// never propagates an error: transport failures, HTTP errors, and upstream
// error fields are all folded into the result message.
func (c *Client) TestConnection(ctx context.Context, endpoint, apiKey string) TestResult {
	if strings.TrimSpace(endpoint) == "" || strings.TrimSpace(apiKey) == "" {
		return TestResult{Success: false, Message: "API URL and API key are required"}
	}

	text, _, err := c.translateOnce(ctx, endpoint, apiKey, probeText, probeSource, probeTarget)
	if err != nil {
		return TestResult{Success: false, Message: testFailureMessage(err)}
	}

	if strings.TrimSpace(text) == "" {
		return TestResult{Success: false, Message: "Unknown API error"}
	}

	return TestResult{Success: true, Message: fmt.Sprintf("Connection successful (%q -> %q)", probeText, text)}
}

// translateResponse is the subset of the backend response we consume. The
// error field may be a string or an object, so it is kept raw.
type translateResponse struct {
	TranslatedText string          `json:"translatedText"`
	Error          json.RawMessage `json:"error"`
}

// retryableError marks an upstream 429 along with any advertised retry delay.
type retryableError struct {
	cause *UpstreamError
}

func (e *retryableError) Error() string { return e.cause.Error() }
func (e *retryableError) Unwrap() error { return e.cause }

func isRetryable(err error) bool {
	_, ok := err.(*retryableError)
	return ok
}

func (c *Client) translateOnce(ctx context.Context, endpoint, apiKey, text, source, target string) (string, time.Duration, error) {
	form := url.Values{}
	form.Set("q", text)
	form.Set("source", source)
	form.Set("api_key", apiKey)
	form.Set("target", target)
	form.Set("format", "text")

	ctx, cancel := withTimeout(ctx, c.Timeout)
	if cancel != nil {
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(endpoint, "/"), strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("build request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter, _ := retryAfterHeader(resp)
		upstream := &UpstreamError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody)), RawResponse: respBody}
		return "", retryAfter, &retryableError{cause: upstream}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", 0, &UpstreamError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody)), RawResponse: respBody}
	}

	var parsed translateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", 0, fmt.Errorf("decode response: %w", err)
	}

	if msg := decodeErrorField(parsed.Error); msg != "" {
		return "", 0, &UpstreamError{Message: msg, RawResponse: respBody}
	}

	if strings.TrimSpace(parsed.TranslatedText) == "" {
		return "", 0, ErrEmptyResult
	}

	return parsed.TranslatedText, 0, nil
}

// decodeErrorField renders the backend error field, which LibreTranslate
// forks variously emit as a string or an object.
func decodeErrorField(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return strings.TrimSpace(asString)
	}

	var asObject map[string]any
	if err := json.Unmarshal(raw, &asObject); err == nil {
		if msg, ok := asObject["message"].(string); ok && strings.TrimSpace(msg) != "" {
			return strings.TrimSpace(msg)
		}
		return strings.TrimSpace(string(raw))
	}

	return strings.TrimSpace(string(raw))
}

func testFailureMessage(err error) string {
	if errors.Is(err, ErrEmptyResult) {
		return "Unknown API error"
	}

	if upstream, ok := err.(*UpstreamError); ok {
		if upstream.StatusCode > 0 {
			return fmt.Sprintf("HTTP error! Status: %d", upstreamStatus(upstream))
		}
		if upstream.Message != "" {
			return upstream.Message
		}
		return "Unknown API error"
	}

	if retryable, ok := err.(*retryableError); ok {
		return fmt.Sprintf("HTTP error! Status: %d", upstreamStatus(retryable.cause))
	}

	return err.Error()
}

func upstreamStatus(err *UpstreamError) int {
	if err == nil {
		return 0
	}
	return err.StatusCode
}

func (c *Client) doSleep(ctx context.Context, d time.Duration) error {
	if c.sleep != nil {
		return c.sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, nil
	}
	return context.WithTimeout(ctx, timeout)
}
