// Package output renders translation results and quota status for the CLI.
package output

import (
	"fmt"
	"strings"

	"github.com/translens/translens/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders translation results and quota reports.
type Formatter interface {
	FormatTranslation(result *core.TranslationResult) (string, error)
	FormatQuota(status core.QuotaStatus) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown):
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

func sourceLabel(p core.Provenance) string {
	if p.FromCache {
		return "cache"
	}
	return "backend"
}

func waitLabel(status core.QuotaStatus) string {
	if status.WaitSeconds == nil {
		return "-"
	}
	return fmt.Sprintf("%ds", *status.WaitSeconds)
}
