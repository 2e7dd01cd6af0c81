package core

import (
	"fmt"
	"strings"
)

// Table is an in-memory rectangular table of string cells.
//
// Loading tables from files is the caller's concern; the pipeline only
// requires the header to name the configured columns.
type Table struct {
	Header []string
	Rows   [][]string
}

// NewTable returns an empty table with the given header.
func NewTable(header ...string) *Table {
	return &Table{Header: append([]string(nil), header...)}
}

// Index returns the position of the named column.
func (t *Table) Index(column string) (int, bool) {
	if t == nil {
		return -1, false
	}
	for i, name := range t.Header {
		if name == column {
			return i, true
		}
	}
	return -1, false
}

// Require returns the positions of the named columns, or a
// MissingColumnError for the first column that is absent.
func (t *Table) Require(table string, columns ...string) ([]int, error) {
	positions := make([]int, 0, len(columns))
	for _, column := range columns {
		idx, ok := t.Index(column)
		if !ok {
			return nil, &MissingColumnError{Table: table, Column: column}
		}
		positions = append(positions, idx)
	}
	return positions, nil
}

// Cell returns the value at row/column, or "" when the row is short.
func (t *Table) Cell(row, col int) string {
	if t == nil || row < 0 || row >= len(t.Rows) || col < 0 {
		return ""
	}
	cells := t.Rows[row]
	if col >= len(cells) {
		return ""
	}
	return cells[col]
}

// Append adds a row. Missing trailing cells are padded with "".
func (t *Table) Append(cells ...string) {
	row := make([]string, len(t.Header))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Columns names the id and name columns on each side of the join.
type Columns struct {
	QueryName string `json:"query_name" mapstructure:"query_name" validate:"required"`
	QueryID   string `json:"query_id" mapstructure:"query_id" validate:"required"`
	DictName  string `json:"dict_name" mapstructure:"dict_name" validate:"required"`
	DictID    string `json:"dict_id" mapstructure:"dict_id" validate:"required"`
}

// String renders the mapping for log output.
func (c Columns) String() string {
	return fmt.Sprintf("query(%s,%s) dict(%s,%s)",
		strings.TrimSpace(c.QueryID), strings.TrimSpace(c.QueryName),
		strings.TrimSpace(c.DictID), strings.TrimSpace(c.DictName))
}
