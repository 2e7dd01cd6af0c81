package output

import (
	"bytes"
	"encoding/json"
	"strings"
)

// JSONFormatter renders summaries as JSON. HTML escaping is off so names
// such as "AT&T" survive verbatim.
type JSONFormatter struct {
	Indent bool
}

func (f *JSONFormatter) FormatMatchSummary(summary *MatchSummary) (string, error) {
	if summary == nil {
		return "", nil
	}
	return f.encode(summary)
}

func (f *JSONFormatter) FormatVerifySummary(summary *VerifySummary) (string, error) {
	if summary == nil {
		return "", nil
	}
	return f.encode(summary)
}

func (f *JSONFormatter) encode(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if f.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
