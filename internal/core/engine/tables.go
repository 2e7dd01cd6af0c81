package engine

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/namelens/orgmatch/internal/core"
	"github.com/namelens/orgmatch/internal/core/normalize"
)

// Output columns of MatchTables.
const (
	ColumnQueryID   = "query_id"
	ColumnDictID    = "dict_id"
	ColumnMatchType = "match_type"
)

var validate = validator.New()

// Records builds normalized records from the id and name columns of a table.
func Records(table *core.Table, label, idColumn, nameColumn string) ([]core.NameRecord, error) {
	cols, err := table.Require(label, idColumn, nameColumn)
	if err != nil {
		return nil, err
	}
	records := make([]core.NameRecord, table.Len())
	for i := range records {
		raw := table.Cell(i, cols[1])
		records[i] = core.NameRecord{
			ID:             table.Cell(i, cols[0]),
			RawName:        raw,
			NormalizedName: normalize.Normalize(raw),
		}
	}
	return records, nil
}

// MatchTables normalizes both tables, runs the cascade, and returns a table
// with query_id, dict_id and match_type columns in stage order. Columns and
// thresholds are validated before anything is normalized.
func (c *Cascade) MatchTables(ctx context.Context, query, dictionary *core.Table, columns core.Columns) (*core.Table, []core.MatchResult, error) {
	if err := validate.Struct(columns); err != nil {
		return nil, nil, err
	}
	if err := validate.Struct(c.Thresholds); err != nil {
		return nil, nil, fmt.Errorf("invalid thresholds: %w", err)
	}
	queries, err := Records(query, "query", columns.QueryID, columns.QueryName)
	if err != nil {
		return nil, nil, err
	}
	dict, err := Records(dictionary, "dictionary", columns.DictID, columns.DictName)
	if err != nil {
		return nil, nil, err
	}

	results, err := c.Run(ctx, queries, dict)
	if err != nil {
		return nil, nil, err
	}

	out := core.NewTable(ColumnQueryID, ColumnDictID, ColumnMatchType)
	for _, r := range results {
		out.Append(r.QueryID, r.DictID, string(r.MatchType))
	}
	return out, results, nil
}
