package research

import (
	"bytes"
	"encoding/json"
	"strings"
)

// BuildSearchContext formats search results for the chat system prompt.
// Each result is rendered as a markdown link with its excerpt, joined by
// blank lines:
//
//	[title](url): excerpt
func BuildSearchContext(results []Source) string {
	if len(results) == 0 {
		return ""
	}

	parts := make([]string, 0, len(results))
	for _, r := range results {
		var b strings.Builder
		b.WriteString("[")
		b.WriteString(r.Title)
		b.WriteString("](")
		b.WriteString(r.URL)
		b.WriteString("): ")
		b.WriteString(r.Content)
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n")
}

// indentJSON pretty-prints raw JSON for use as context. Invalid or empty
// input is passed through unchanged.
func indentJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
