package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/translens/translens/internal/core"
)

func sampleResult() *core.TranslationResult {
	expires := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	return &core.TranslationResult{
		Text:           "hello world",
		TargetLanguage: "es",
		TranslatedText: "hola mundo",
		Provenance: core.Provenance{
			Source:         core.SourceCache,
			FromCache:      true,
			CacheExpiresAt: &expires,
		},
	}
}

func TestParseFormat(t *testing.T) {
	cases := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{" markdown ", FormatMarkdown, false},
		{"yaml", "", true},
	}

	for _, tc := range cases {
		got, err := ParseFormat(tc.input)
		if tc.wantErr {
			assert.Error(t, err, tc.input)
			continue
		}
		require.NoError(t, err, tc.input)
		assert.Equal(t, tc.want, got, tc.input)
	}
}

func TestTableFormatterTranslation(t *testing.T) {
	rendered, err := (&TableFormatter{}).FormatTranslation(sampleResult())
	require.NoError(t, err)

	assert.Contains(t, rendered, "hola mundo")
	assert.Contains(t, rendered, "cache")
	assert.Contains(t, rendered, "Cache expires")
}

func TestTableFormatterQuota(t *testing.T) {
	wait := 42
	rendered, err := (&TableFormatter{}).FormatQuota(core.QuotaStatus{Remaining: 0, WaitSeconds: &wait})
	require.NoError(t, err)

	assert.Contains(t, rendered, "42s")

	rendered, err = (&TableFormatter{}).FormatQuota(core.QuotaStatus{Remaining: 8})
	require.NoError(t, err)
	assert.Contains(t, rendered, "8")
}

func TestJSONFormatterRoundTrips(t *testing.T) {
	rendered, err := (&JSONFormatter{Indent: true}).FormatTranslation(sampleResult())
	require.NoError(t, err)

	var decoded core.TranslationResult
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	assert.Equal(t, "hola mundo", decoded.TranslatedText)
	assert.True(t, decoded.Provenance.FromCache)
}

func TestMarkdownFormatterEscapesPipes(t *testing.T) {
	result := sampleResult()
	result.Text = "a | b"

	rendered, err := (&MarkdownFormatter{}).FormatTranslation(result)
	require.NoError(t, err)

	assert.Contains(t, rendered, `a \| b`)
	assert.True(t, strings.HasPrefix(rendered, "| Field | Value |"))
}

func TestNewFormatterSelectsImplementation(t *testing.T) {
	assert.IsType(t, &JSONFormatter{}, NewFormatter(FormatJSON))
	assert.IsType(t, &MarkdownFormatter{}, NewFormatter(FormatMarkdown))
	assert.IsType(t, &TableFormatter{}, NewFormatter(FormatTable))
}
