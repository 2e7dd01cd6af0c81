package core

import "fmt"

// MissingColumnError reports a required column absent from an input table.
type MissingColumnError struct {
	Table  string
	Column string
}

func (e *MissingColumnError) Error() string {
	if e == nil {
		return "missing column"
	}
	if e.Table == "" {
		return fmt.Sprintf("missing required column %q", e.Column)
	}
	return fmt.Sprintf("%s table is missing required column %q", e.Table, e.Column)
}

// DuplicateKeyError reports two dictionary entries that normalize to the
// same comparison key.
type DuplicateKeyError struct {
	Key      string
	FirstID  string
	SecondID string
}

func (e *DuplicateKeyError) Error() string {
	if e == nil {
		return "duplicate dictionary key"
	}
	return fmt.Sprintf("duplicate normalized dictionary name %q (ids %s and %s)", e.Key, e.FirstID, e.SecondID)
}
