package output

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/translens/translens/internal/core"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatTranslation renders a translation result as a table.
func (f *TableFormatter) FormatTranslation(result *core.TranslationResult) (string, error) {
	if result == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRows([]table.Row{
		{"Text", result.Text},
		{"Target", result.TargetLanguage},
		{"Translation", result.TranslatedText},
		{"Source", sourceLabel(result.Provenance)},
	})
	if result.Provenance.Endpoint != "" {
		t.AppendRow(table.Row{"Endpoint", result.Provenance.Endpoint})
	}
	if result.Provenance.CacheExpiresAt != nil {
		t.AppendRow(table.Row{"Cache expires", result.Provenance.CacheExpiresAt.Format("2006-01-02 15:04:05 MST")})
	}

	return t.Render(), nil
}

// FormatQuota renders a quota status as a table.
func (f *TableFormatter) FormatQuota(status core.QuotaStatus) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Remaining", "Wait"})
	t.AppendRow(table.Row{fmt.Sprintf("%d", status.Remaining), waitLabel(status)})
	return t.Render(), nil
}
