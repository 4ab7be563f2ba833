package metrics

import (
	"errors"
	"time"

	"github.com/translens/translens/internal/core/translator"
	"github.com/translens/translens/internal/observability"
)

// Application-level metrics following Prometheus conventions
var (
	// Governor metrics
	AdmissionsTotal        = "app_governor_admissions_total"
	DenialsTotal           = "app_governor_denials_total"
	TranslateFailuresTotal = "app_translate_failures_total"
	QuotaRemaining         = "app_quota_remaining_requests"

	// Connection metrics
	ActiveConnections = "app_active_connections"

	// Health check metrics
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	// Server lifecycle metrics
	ServerStartTime = "app_server_start_time_seconds"
	ServerUptime    = "app_server_uptime_seconds"
)

// RecordAdmission records an outbound request admitted through the window.
// Kind is "translate" or "test_connection".
func RecordAdmission(kind string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			AdmissionsTotal,
			1,
			map[string]string{
				"kind": kind,
			},
		)
	}
}

// RecordDenial records a request turned away by the admission window.
func RecordDenial() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			DenialsTotal,
			1,
			nil,
		)
	}
}

// RecordTranslateFailure records a failed backend translation, labeled with
// the failure class.
func RecordTranslateFailure(err error) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			TranslateFailuresTotal,
			1,
			map[string]string{
				"error_type": classifyTranslateError(err),
			},
		)
	}
}

func classifyTranslateError(err error) string {
	var rateLimited *translator.RateLimitedError
	var upstream *translator.UpstreamError
	switch {
	case errors.As(err, &rateLimited):
		return "rate_limited"
	case errors.As(err, &upstream):
		return "upstream"
	case errors.Is(err, translator.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, translator.ErrEmptyResult):
		return "empty_result"
	default:
		return "transport"
	}
}

// SetQuotaRemaining sets the current number of requests left in the window.
func SetQuotaRemaining(count int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			QuotaRemaining,
			float64(count),
			nil,
		)
	}
}

// SetActiveConnections sets the current number of active connections
func SetActiveConnections(count int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ActiveConnections,
			float64(count),
			nil,
		)
	}
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{
				"check": checkName,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}

// SetServerUptime records the server uptime in seconds
func SetServerUptime(seconds int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerUptime,
			float64(seconds),
			nil,
		)
	}
}
