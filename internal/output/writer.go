// Package output renders pipeline reports (download counts, gold runs,
// fitted artifacts) as a terminal table, JSON, JSONL or YAML.
package output

import (
	"fmt"
	"io"
)

// Format represents output format types.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// Report is a titled grid of cells.
type Report struct {
	Title   string
	Columns []string
	Rows    [][]string
}

// NewReport returns an empty report with the given header.
func NewReport(title string, columns ...string) *Report {
	return &Report{Title: title, Columns: columns}
}

// Add appends a row. Missing trailing cells are left empty and extra cells
// are dropped.
func (r *Report) Add(cells ...any) {
	row := make([]string, len(r.Columns))
	for i := range row {
		if i < len(cells) && cells[i] != nil {
			row[i] = fmt.Sprint(cells[i])
		}
	}
	r.Rows = append(r.Rows, row)
}

// Records returns each row keyed by column name.
func (r *Report) Records() []map[string]string {
	out := make([]map[string]string, len(r.Rows))
	for i, row := range r.Rows {
		rec := make(map[string]string, len(r.Columns))
		for j, c := range r.Columns {
			rec[c] = row[j]
		}
		out[i] = rec
	}
	return out
}

// Writer renders reports.
type Writer interface {
	Write(r *Report) error
}

// WriterOption configures a writer.
type WriterOption func(*writerConfig)

type writerConfig struct {
	pretty bool
	indent string
}

// WithPretty enables pretty-printing.
func WithPretty(enabled bool) WriterOption {
	return func(c *writerConfig) {
		c.pretty = enabled
	}
}

// WithIndent sets the indentation string.
func WithIndent(indent string) WriterOption {
	return func(c *writerConfig) {
		c.indent = indent
	}
}

// NewWriter creates a writer for the specified format.
func NewWriter(w io.Writer, format Format, opts ...WriterOption) (Writer, error) {
	cfg := &writerConfig{
		pretty: true,
		indent: "  ",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	switch format {
	case FormatTable, "":
		return &TableWriter{w: w}, nil
	case FormatJSON:
		return &JSONWriter{w: w, pretty: cfg.pretty, indent: cfg.indent}, nil
	case FormatJSONL:
		return &JSONLWriter{w: w}, nil
	case FormatYAML:
		return &YAMLWriter{w: w}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
