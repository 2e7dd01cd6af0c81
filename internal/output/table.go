package output

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
)

// TableFormatter renders summaries as an ASCII table.
type TableFormatter struct{}

// FormatMatchSummary renders match counts per stage.
func (f *TableFormatter) FormatMatchSummary(summary *MatchSummary) (string, error) {
	if summary == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Match Type", "Count"})
	for _, c := range summary.ByType {
		t.AppendRow(table.Row{c.Label, c.Count})
	}
	t.AppendRow(table.Row{"Unmatched", summary.Unmatched})
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d/%d matched", summary.Matched, summary.Queries)})
	return t.Render(), nil
}

// FormatVerifySummary renders decision counts.
func (f *TableFormatter) FormatVerifySummary(summary *VerifySummary) (string, error) {
	if summary == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Decision", "Count"})
	for _, c := range summary.ByDecision {
		t.AppendRow(table.Row{c.Label, c.Count})
	}
	t.AppendFooter(table.Row{"", batchNote(summary)})
	return t.Render(), nil
}

func batchNote(summary *VerifySummary) string {
	note := fmt.Sprintf("%d batches", summary.Batches)
	if summary.Resumed > 0 {
		note += fmt.Sprintf(", %d resumed", summary.Resumed)
	}
	return note
}
