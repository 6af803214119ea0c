package output

import (
	"encoding/json"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"
)

// TableWriter renders a report as a boxed terminal table.
type TableWriter struct {
	w io.Writer
}

// Write renders r.
func (w *TableWriter) Write(r *Report) error {
	t := table.NewWriter()
	t.SetOutputMirror(w.w)
	t.SetStyle(table.StyleLight)
	if r.Title != "" {
		t.SetTitle(r.Title)
	}

	header := make(table.Row, len(r.Columns))
	for i, c := range r.Columns {
		header[i] = c
	}
	t.AppendHeader(header)
	for _, row := range r.Rows {
		cells := make(table.Row, len(row))
		for i, c := range row {
			cells[i] = c
		}
		t.AppendRow(cells)
	}
	t.Style().Format.Header = text.FormatDefault
	t.Render()
	return nil
}

type document struct {
	Title string              `json:"title,omitempty" yaml:"title,omitempty"`
	Rows  []map[string]string `json:"rows" yaml:"rows"`
}

// JSONWriter writes a report as one JSON document.
type JSONWriter struct {
	w      io.Writer
	pretty bool
	indent string
}

// Write encodes r.
func (w *JSONWriter) Write(r *Report) error {
	enc := json.NewEncoder(w.w)
	if w.pretty {
		enc.SetIndent("", w.indent)
	}
	return enc.Encode(document{Title: r.Title, Rows: r.Records()})
}

// JSONLWriter writes one JSON object per row.
type JSONLWriter struct {
	w io.Writer
}

// Write encodes each row of r on its own line.
func (w *JSONLWriter) Write(r *Report) error {
	enc := json.NewEncoder(w.w)
	for _, rec := range r.Records() {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

// YAMLWriter writes a report as a YAML document.
type YAMLWriter struct {
	w io.Writer
}

// Write encodes r.
func (w *YAMLWriter) Write(r *Report) error {
	enc := yaml.NewEncoder(w.w)
	enc.SetIndent(2)
	if err := enc.Encode(document{Title: r.Title, Rows: r.Records()}); err != nil {
		return err
	}
	return enc.Close()
}
