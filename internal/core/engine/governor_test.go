package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/translens/translens/internal/core"
	"github.com/translens/translens/internal/core/translator"
)

type fakeProvider struct {
	translateCalls int
	testCalls      int
	translated     string
	err            error
	testResult     translator.TestResult
}

func (p *fakeProvider) Translate(ctx context.Context, req translator.Request) (string, error) {
	p.translateCalls++
	if p.err != nil {
		return "", p.err
	}
	return p.translated, nil
}

func (p *fakeProvider) TestConnection(ctx context.Context, endpoint, apiKey string) translator.TestResult {
	p.testCalls++
	return p.testResult
}

type recordingNotifier struct {
	events []core.Event
	err    error
}

func (n *recordingNotifier) Notify(ctx context.Context, event core.Event) error {
	n.events = append(n.events, event)
	return n.err
}

type fakeCache struct {
	entries map[string]*core.CachedTranslation
	puts    int
	getErr  error
}

func cacheKey(text, target string) string { return text + "\x00" + target }

func (c *fakeCache) GetTranslation(ctx context.Context, text, target string) (*core.CachedTranslation, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.entries[cacheKey(text, target)], nil
}

func (c *fakeCache) SetTranslation(ctx context.Context, text, target, translated string) error {
	if c.entries == nil {
		c.entries = make(map[string]*core.CachedTranslation)
	}
	c.entries[cacheKey(text, target)] = &core.CachedTranslation{TranslatedText: translated}
	c.puts++
	return nil
}

func newTestGovernor(capacity int, provider *fakeProvider, notifier *recordingNotifier) *Governor {
	limiter := NewLimiter(capacity, time.Minute)
	return &Governor{
		Limiter:  limiter,
		Provider: provider,
		Notifier: notifier,
	}
}

func sampleRequest() translator.Request {
	return translator.Request{
		Text:           "Hello",
		TargetLanguage: "es",
		Endpoint:       "https://translate.example",
		APIKey:         "secret",
	}
}

func TestGovernorTranslateSuccess(t *testing.T) {
	provider := &fakeProvider{translated: "Hola"}
	governor := newTestGovernor(8, provider, &recordingNotifier{})

	result, err := governor.HandleTranslate(context.Background(), sampleRequest())
	require.NoError(t, err)
	require.Equal(t, "Hola", result.TranslatedText)
	require.Equal(t, core.SourceBackend, result.Provenance.Source)
	require.False(t, result.Provenance.FromCache)
	require.Equal(t, 1, provider.translateCalls)
}

func TestGovernorDenialNeverReachesProvider(t *testing.T) {
	provider := &fakeProvider{translated: "Hola"}
	notifier := &recordingNotifier{}
	governor := newTestGovernor(1, provider, notifier)

	_, err := governor.HandleTranslate(context.Background(), sampleRequest())
	require.NoError(t, err)

	_, err = governor.HandleTranslate(context.Background(), sampleRequest())
	var denied *RateLimitedError
	require.ErrorAs(t, err, &denied)
	require.Equal(t, 60, denied.WaitSeconds)

	require.Equal(t, 1, provider.translateCalls, "provider must not be invoked on denial")

	// Denial emits a zeroed quota update plus an error banner.
	require.Len(t, notifier.events, 2)
	require.Equal(t, core.EventRateLimitUpdate, notifier.events[0].Kind)
	require.Equal(t, 0, *notifier.events[0].RemainingRequests)
	require.Equal(t, 60, *notifier.events[0].WaitTime)
	require.Equal(t, core.EventShowMessage, notifier.events[1].Kind)
	require.Equal(t, "error", notifier.events[1].Type)
}

func TestGovernorProviderErrorPassesThrough(t *testing.T) {
	upstream := &translator.UpstreamError{StatusCode: 502, Message: "bad gateway"}
	provider := &fakeProvider{err: upstream}
	notifier := &recordingNotifier{}
	governor := newTestGovernor(8, provider, notifier)

	_, err := governor.HandleTranslate(context.Background(), sampleRequest())
	var gotUpstream *translator.UpstreamError
	require.ErrorAs(t, err, &gotUpstream)
	require.Equal(t, 502, gotUpstream.StatusCode)

	require.Len(t, notifier.events, 1)
	require.Equal(t, core.EventShowMessage, notifier.events[0].Kind)
}

func TestGovernorNotifierFailureDoesNotMaskResult(t *testing.T) {
	provider := &fakeProvider{translated: "Hola"}
	notifier := &recordingNotifier{err: errors.New("no listener")}
	governor := newTestGovernor(1, provider, notifier)

	_, err := governor.HandleTranslate(context.Background(), sampleRequest())
	require.NoError(t, err)

	_, err = governor.HandleTranslate(context.Background(), sampleRequest())
	var denied *RateLimitedError
	require.ErrorAs(t, err, &denied, "notify failure must not replace the denial result")
}

func TestGovernorTestConnectionSharesQuota(t *testing.T) {
	provider := &fakeProvider{
		translated: "Hola",
		testResult: translator.TestResult{Success: true, Message: "ok"},
	}
	governor := newTestGovernor(2, provider, &recordingNotifier{})

	result := governor.HandleTestConnection(context.Background(), "https://translate.example", "secret")
	require.True(t, result.Success)
	require.Equal(t, 1, provider.testCalls)

	result = governor.HandleTestConnection(context.Background(), "https://translate.example", "secret")
	require.True(t, result.Success)

	// Both probes consumed the shared window; the translate intent is denied.
	_, err := governor.HandleTranslate(context.Background(), sampleRequest())
	var denied *RateLimitedError
	require.ErrorAs(t, err, &denied)
	require.Equal(t, 0, provider.translateCalls)
}

func TestGovernorTestConnectionDenied(t *testing.T) {
	provider := &fakeProvider{testResult: translator.TestResult{Success: true}}
	governor := newTestGovernor(1, provider, &recordingNotifier{})

	require.True(t, governor.Limiter.TryAdmit().Allowed)

	result := governor.HandleTestConnection(context.Background(), "https://translate.example", "secret")
	require.False(t, result.Success)
	require.Contains(t, result.Message, "Rate limit reached")
	require.Equal(t, 0, provider.testCalls)
}

func TestGovernorCacheHitBypassesGate(t *testing.T) {
	provider := &fakeProvider{translated: "Hola"}
	cache := &fakeCache{entries: map[string]*core.CachedTranslation{
		cacheKey("Hello", "es"): {TranslatedText: "Hola", ExpiresAt: time.Now().Add(time.Hour)},
	}}

	governor := newTestGovernor(1, provider, &recordingNotifier{})
	governor.Cache = cache

	// Saturate the window first.
	require.True(t, governor.Limiter.TryAdmit().Allowed)

	result, err := governor.HandleTranslate(context.Background(), sampleRequest())
	require.NoError(t, err)
	require.True(t, result.Provenance.FromCache)
	require.Equal(t, "Hola", result.TranslatedText)
	require.Equal(t, 0, provider.translateCalls)
}

func TestGovernorCachesBackendResults(t *testing.T) {
	provider := &fakeProvider{translated: "Hola"}
	cache := &fakeCache{}
	governor := newTestGovernor(8, provider, &recordingNotifier{})
	governor.Cache = cache

	_, err := governor.HandleTranslate(context.Background(), sampleRequest())
	require.NoError(t, err)
	require.Equal(t, 1, cache.puts)
}

func TestGovernorCacheReadErrorFallsThrough(t *testing.T) {
	provider := &fakeProvider{translated: "Hola"}
	cache := &fakeCache{getErr: errors.New("store offline")}
	governor := newTestGovernor(8, provider, &recordingNotifier{})
	governor.Cache = cache

	result, err := governor.HandleTranslate(context.Background(), sampleRequest())
	require.NoError(t, err)
	require.Equal(t, "Hola", result.TranslatedText)
	require.Equal(t, 1, provider.translateCalls)
}

func TestGovernorQuotaIsDisplayOnly(t *testing.T) {
	provider := &fakeProvider{translated: "Hola"}
	governor := newTestGovernor(2, provider, &recordingNotifier{})

	for i := 0; i < 5; i++ {
		status := governor.Quota()
		require.Equal(t, 2, status.Remaining)
	}

	_, err := governor.HandleTranslate(context.Background(), sampleRequest())
	require.NoError(t, err)
	require.Equal(t, 1, governor.Quota().Remaining)
}
