package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/translens/translens/internal/core"
	"github.com/translens/translens/internal/core/translator"
	"github.com/translens/translens/internal/metrics"
)

// Notifier pushes events to UI collaborators. Delivery is advisory: the
// governor logs failures and moves on, it never lets them replace the result
// returned to the caller.
type Notifier interface {
	Notify(ctx context.Context, event core.Event) error
}

// TranslationCache stores resolved translations so repeat selections do not
// spend quota. A nil hit means miss.
type TranslationCache interface {
	GetTranslation(ctx context.Context, text, targetLanguage string) (*core.CachedTranslation, error)
	SetTranslation(ctx context.Context, text, targetLanguage, translatedText string) error
}

// RateLimitedError is returned when the local window denies admission. The
// network is never reached in this case.
type RateLimitedError struct {
	WaitSeconds int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("Rate limit reached. Try again in %d seconds.", e.WaitSeconds)
}

// Governor is the single place where admission control and translation
// execution meet. Every intent that causes network egress passes through the
// limiter; display-only reads (Quota) do not.
type Governor struct {
	Limiter  *Limiter
	Provider translator.Provider
	Notifier Notifier
	Cache    TranslationCache
	Logger   *logging.Logger
	Clock    func() time.Time
}

// HandleTranslate resolves one translate intent: cache, then admission gate,
// then the backend. Denials return RateLimitedError without touching the
// provider.
func (g *Governor) HandleTranslate(ctx context.Context, req translator.Request) (*core.TranslationResult, error) {
	requestedAt := g.now()

	if g.Cache != nil && req.Text != "" {
		hit, err := g.Cache.GetTranslation(ctx, req.Text, req.TargetLanguage)
		if err != nil {
			g.logWarn("translation cache read failed", zap.Error(err))
		} else if hit != nil {
			expires := hit.ExpiresAt
			return &core.TranslationResult{
				Text:           req.Text,
				TargetLanguage: req.TargetLanguage,
				TranslatedText: hit.TranslatedText,
				Provenance: core.Provenance{
					RequestedAt:    requestedAt,
					ResolvedAt:     g.now(),
					Source:         core.SourceCache,
					FromCache:      true,
					CacheExpiresAt: &expires,
				},
			}, nil
		}
	}

	decision := g.Limiter.TryAdmit()
	if !decision.Allowed {
		g.notifyDenied(ctx, decision)
		return nil, &RateLimitedError{WaitSeconds: decision.WaitSeconds}
	}
	metrics.RecordAdmission("translate")

	translated, err := g.Provider.Translate(ctx, req)
	if err != nil {
		metrics.RecordTranslateFailure(err)
		g.notify(ctx, core.ErrorMessageEvent(err.Error()))
		return nil, err
	}

	if g.Cache != nil {
		if err := g.Cache.SetTranslation(ctx, req.Text, req.TargetLanguage, translated); err != nil {
			g.logWarn("translation cache write failed", zap.Error(err))
		}
	}

	return &core.TranslationResult{
		Text:           req.Text,
		TargetLanguage: req.TargetLanguage,
		TranslatedText: translated,
		Provenance: core.Provenance{
			RequestedAt: requestedAt,
			ResolvedAt:  g.now(),
			Source:      core.SourceBackend,
			Endpoint:    req.Endpoint,
		},
	}, nil
}

// HandleTestConnection probes the backend behind the same admission gate as
// translate. A user who exhausts quota testing credentials cannot translate
// until the window clears; that is the intended shared-window policy.
func (g *Governor) HandleTestConnection(ctx context.Context, endpoint, apiKey string) translator.TestResult {
	decision := g.Limiter.TryAdmit()
	if !decision.Allowed {
		g.notifyDenied(ctx, decision)
		denied := &RateLimitedError{WaitSeconds: decision.WaitSeconds}
		return translator.TestResult{Success: false, Message: denied.Error()}
	}
	metrics.RecordAdmission("test_connection")

	return g.Provider.TestConnection(ctx, endpoint, apiKey)
}

// Quota reports the current window status. Display-only; never consumes
// quota.
func (g *Governor) Quota() core.QuotaStatus {
	return g.Limiter.Status()
}

func (g *Governor) notifyDenied(ctx context.Context, decision Decision) {
	metrics.RecordDenial()

	zero := 0
	wait := decision.WaitSeconds
	g.notify(ctx, core.Event{
		Kind:              core.EventRateLimitUpdate,
		RemainingRequests: &zero,
		WaitTime:          &wait,
	})

	denied := &RateLimitedError{WaitSeconds: decision.WaitSeconds}
	g.notify(ctx, core.ErrorMessageEvent(denied.Error()))
}

func (g *Governor) notify(ctx context.Context, event core.Event) {
	if g.Notifier == nil {
		return
	}
	if err := g.Notifier.Notify(ctx, event); err != nil {
		g.logWarn("notification delivery failed", zap.String("kind", string(event.Kind)), zap.Error(err))
	}
}

func (g *Governor) logWarn(msg string, fields ...zap.Field) {
	if g.Logger == nil {
		return
	}
	g.Logger.Warn(msg, fields...)
}

func (g *Governor) now() time.Time {
	if g.Clock != nil {
		return g.Clock()
	}
	return time.Now().UTC()
}
