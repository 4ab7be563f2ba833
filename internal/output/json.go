package output

import (
	"encoding/json"

	"github.com/translens/translens/internal/core"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTranslation renders a translation result as JSON.
func (f *JSONFormatter) FormatTranslation(result *core.TranslationResult) (string, error) {
	if result == nil {
		return "", nil
	}
	return f.marshal(result)
}

// FormatQuota renders a quota status as JSON.
func (f *JSONFormatter) FormatQuota(status core.QuotaStatus) (string, error) {
	return f.marshal(status)
}

func (f *JSONFormatter) marshal(v any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
