package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/namelens/orgmatch/internal/ailink"
	"github.com/namelens/orgmatch/internal/core"
	"github.com/namelens/orgmatch/internal/verify"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders run summaries.
type Formatter interface {
	FormatMatchSummary(summary *MatchSummary) (string, error)
	FormatVerifySummary(summary *VerifySummary) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
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

// Count is one labelled bucket in a summary.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// MatchSummary describes the outcome of a cascade run.
type MatchSummary struct {
	Queries   int     `json:"queries"`
	Matched   int     `json:"matched"`
	Unmatched int     `json:"unmatched"`
	ByType    []Count `json:"by_match_type"`
}

// SummarizeMatches counts results per match type. queries is the number of
// query records that entered the cascade.
func SummarizeMatches(queries int, results []core.MatchResult) *MatchSummary {
	counts := make(map[string]int, len(core.MatchTypes))
	for _, r := range results {
		counts[string(r.MatchType)]++
	}
	matched := len(core.QueryIDs(results))

	labels := make([]string, 0, len(core.MatchTypes))
	for _, mt := range core.MatchTypes {
		labels = append(labels, string(mt))
	}
	return &MatchSummary{
		Queries:   queries,
		Matched:   matched,
		Unmatched: max(queries-matched, 0),
		ByType:    countsInOrder(labels, counts),
	}
}

// VerifySummary describes the outcome of a verification run.
type VerifySummary struct {
	Rows       int     `json:"rows"`
	Batches    int     `json:"batches"`
	Resumed    int     `json:"resumed_batches"`
	Requested  int     `json:"requested"`
	ByDecision []Count `json:"by_decision"`
}

// SummarizeVerification counts decisions in a verifier result.
func SummarizeVerification(result *verify.Result) *VerifySummary {
	if result == nil {
		return &VerifySummary{}
	}
	counts := make(map[string]int, len(result.Counts))
	for decision, n := range result.Counts {
		counts[string(decision)] = n
	}
	return &VerifySummary{
		Rows:      result.Table.Len(),
		Batches:   result.Batches,
		Resumed:   result.Resumed,
		Requested: result.Requested,
		ByDecision: countsInOrder([]string{
			string(ailink.DecisionCorrect),
			string(ailink.DecisionIncorrect),
			string(ailink.DecisionError),
		}, counts),
	}
}

// countsInOrder lists the known labels first, then any others sorted.
func countsInOrder(known []string, counts map[string]int) []Count {
	out := make([]Count, 0, len(counts))
	seen := make(map[string]struct{}, len(known))
	for _, label := range known {
		seen[label] = struct{}{}
		out = append(out, Count{Label: label, Count: counts[label]})
	}
	extra := make([]string, 0)
	for label := range counts {
		if _, ok := seen[label]; !ok {
			extra = append(extra, label)
		}
	}
	sort.Strings(extra)
	for _, label := range extra {
		out = append(out, Count{Label: label, Count: counts[label]})
	}
	return out
}
