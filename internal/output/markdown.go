package output

import (
	"fmt"
	"strings"

	"github.com/translens/translens/internal/core"
)

// MarkdownFormatter renders results as Markdown tables.
type MarkdownFormatter struct{}

// FormatTranslation renders a translation result as Markdown.
func (f *MarkdownFormatter) FormatTranslation(result *core.TranslationResult) (string, error) {
	if result == nil {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("| Field | Value |\n")
	b.WriteString("| --- | --- |\n")
	fmt.Fprintf(&b, "| Text | %s |\n", escapePipes(result.Text))
	fmt.Fprintf(&b, "| Target | %s |\n", result.TargetLanguage)
	fmt.Fprintf(&b, "| Translation | %s |\n", escapePipes(result.TranslatedText))
	fmt.Fprintf(&b, "| Source | %s |\n", sourceLabel(result.Provenance))
	if result.Provenance.Endpoint != "" {
		fmt.Fprintf(&b, "| Endpoint | %s |\n", result.Provenance.Endpoint)
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

// FormatQuota renders a quota status as Markdown.
func (f *MarkdownFormatter) FormatQuota(status core.QuotaStatus) (string, error) {
	var b strings.Builder
	b.WriteString("| Remaining | Wait |\n")
	b.WriteString("| --- | --- |\n")
	fmt.Fprintf(&b, "| %d | %s |\n", status.Remaining, waitLabel(status))
	return strings.TrimRight(b.String(), "\n"), nil
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
