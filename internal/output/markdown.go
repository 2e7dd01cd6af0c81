package output

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders summaries as markdown tables.
type MarkdownFormatter struct{}

// FormatMatchSummary renders a match summary as Markdown.
func (f *MarkdownFormatter) FormatMatchSummary(summary *MatchSummary) (string, error) {
	if summary == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("## Match summary\n\n")
	sb.WriteString("| Match Type | Count |\n")
	sb.WriteString("|------------|-------|\n")
	for _, c := range summary.ByType {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", escapeMarkdownCell(c.Label), c.Count))
	}
	sb.WriteString(fmt.Sprintf("| Unmatched | %d |\n", summary.Unmatched))
	sb.WriteString(fmt.Sprintf("\n**Matched**: %d/%d\n", summary.Matched, summary.Queries))
	return sb.String(), nil
}

// FormatVerifySummary renders a verification summary as Markdown.
func (f *MarkdownFormatter) FormatVerifySummary(summary *VerifySummary) (string, error) {
	if summary == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("## Verification summary\n\n")
	sb.WriteString("| Decision | Count |\n")
	sb.WriteString("|----------|-------|\n")
	for _, c := range summary.ByDecision {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", escapeMarkdownCell(c.Label), c.Count))
	}
	sb.WriteString(fmt.Sprintf("\n**Batches**: %s\n", batchNote(summary)))
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
