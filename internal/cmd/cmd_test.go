package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/translens/translens/internal/output"
)

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"es", "es"},
		{"PT-BR", "pt-br"},
		{"  zh Hant  ", "zh-hant"},
		{"///", "output"},
		{"", "output"},
	}

	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestOutputExtension(t *testing.T) {
	cases := []struct {
		format output.Format
		want   string
	}{
		{output.FormatJSON, "json"},
		{output.FormatMarkdown, "md"},
		{output.FormatTable, "txt"},
	}

	for _, tc := range cases {
		if got := outputExtension(tc.format); got != tc.want {
			t.Fatalf("outputExtension(%s) = %q, want %q", tc.format, got, tc.want)
		}
	}
}

func TestWriteQuotaResetResult(t *testing.T) {
	var buf bytes.Buffer
	if err := writeQuotaResetResult(output.FormatTable, &buf, 3, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "Would clear 3") {
		t.Fatalf("unexpected dry-run output: %q", buf.String())
	}

	buf.Reset()
	if err := writeQuotaResetResult(output.FormatJSON, &buf, 5, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"matched": 5`) {
		t.Fatalf("unexpected json output: %q", buf.String())
	}
}

func TestBuildInitConfig(t *testing.T) {
	cfg := buildInitConfig("https://translate.example.com", "secret")
	if !strings.Contains(cfg, `endpoint: "https://translate.example.com"`) {
		t.Fatalf("endpoint missing from config:\n%s", cfg)
	}
	if !strings.Contains(cfg, `api_key: "secret"`) {
		t.Fatalf("api key missing from config:\n%s", cfg)
	}

	blank := buildInitConfig("", "")
	if !strings.Contains(blank, "# endpoint:") || !strings.Contains(blank, "# api_key:") {
		t.Fatalf("blank config should comment out credentials:\n%s", blank)
	}
	if !strings.Contains(blank, "capacity: 8") {
		t.Fatalf("rate limit defaults missing:\n%s", blank)
	}
}

func TestFormatFileSize(t *testing.T) {
	cases := []struct {
		bytes int64
		want  string
	}{
		{512, "512 bytes"},
		{2048, "2.0 KB"},
		{3 * 1024 * 1024, "3.0 MB"},
	}

	for _, tc := range cases {
		if got := formatFileSize(tc.bytes); got != tc.want {
			t.Fatalf("formatFileSize(%d) = %q, want %q", tc.bytes, got, tc.want)
		}
	}
}

func TestFormatTimeAgo(t *testing.T) {
	if got := formatTimeAgo(time.Time{}); got != "unknown" {
		t.Fatalf("zero time = %q, want unknown", got)
	}
	if got := formatTimeAgo(time.Now().Add(-10 * time.Second)); got != "just now" {
		t.Fatalf("recent time = %q, want just now", got)
	}
	if got := formatTimeAgo(time.Now().Add(-2 * time.Hour)); got != "2 hours ago" {
		t.Fatalf("two hours = %q", got)
	}
}
