package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/namelens/orgmatch/internal/output"
)

type outputSink struct {
	writer io.Writer
	close  func() error
	path   string
}

func resolveOutputFormat(cmd *cobra.Command) (output.Format, error) {
	value, err := cmd.Flags().GetString("format")
	if err != nil {
		return "", err
	}
	return output.ParseFormat(value)
}

// openSink opens path for writing; "" and "-" select stderr so the summary
// never mixes with a table streamed to stdout.
func openSink(path string) (*outputSink, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed == "-" {
		return &outputSink{writer: os.Stderr, close: func() error { return nil }, path: "-"}, nil
	}

	if err := os.MkdirAll(filepath.Dir(trimmed), 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(trimmed)
	if err != nil {
		return nil, err
	}
	return &outputSink{writer: file, close: file.Close, path: trimmed}, nil
}

// writeSummary renders a summary to the --summary sink in the selected format.
func writeSummary(cmd *cobra.Command, render func(output.Formatter) (string, error)) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	text, err := render(output.NewFormatter(format))
	if err != nil {
		return err
	}

	path, err := cmd.Flags().GetString("summary")
	if err != nil {
		return err
	}
	sink, err := openSink(path)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(sink.writer, strings.TrimRight(text, "\n")); err != nil {
		_ = sink.close()
		return err
	}
	return sink.close()
}

func addSummaryFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", "table", "summary format: table, json, markdown")
	cmd.Flags().String("summary", "", "write the summary to a file instead of stderr")
}
