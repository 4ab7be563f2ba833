package translator

import (
	"net/http"
	"time"
)

// retryAfterHeader parses the Retry-After response header, accepting both
// delta-seconds and HTTP-date forms.
func retryAfterHeader(resp *http.Response) (time.Duration, bool) {
	if resp == nil || resp.Header == nil {
		return 0, false
	}

	retry := resp.Header.Get("Retry-After")
	if retry == "" {
		return 0, false
	}

	if seconds, err := time.ParseDuration(retry + "s"); err == nil {
		return seconds, true
	}
	if parsed, err := http.ParseTime(retry); err == nil {
		return time.Until(parsed), true
	}

	return 0, false
}
