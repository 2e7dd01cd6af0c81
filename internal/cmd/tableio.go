package cmd

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/namelens/orgmatch/internal/core"
)

const utf8BOM = "\uFEFF"

// readTable loads a CSV file whose first record is the header.
func readTable(path string) (*core.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close() //nolint:errcheck

	table, err := decodeTable(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return table, nil
}

func decodeTable(r io.Reader) (*core.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	table := core.NewTable(header...)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("line %d: %d fields, header has %d", line, len(record), len(header))
		}
		table.Append(record...)
	}
	return table, nil
}

// writeTable writes table as CSV to path, or to stdout when path is "" or "-".
func writeTable(path string, table *core.Table) error {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed == "-" {
		return encodeTable(os.Stdout, table)
	}

	if err := os.MkdirAll(filepath.Dir(trimmed), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(trimmed)
	if err != nil {
		return err
	}
	if err := encodeTable(file, table); err != nil {
		_ = file.Close()
		return fmt.Errorf("write %s: %w", trimmed, err)
	}
	return file.Close()
}

func encodeTable(w io.Writer, table *core.Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(table.Header); err != nil {
		return err
	}
	if err := writer.WriteAll(table.Rows); err != nil {
		return err
	}
	return writer.Error()
}
