package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ReadCSV reads a table with a header row. Every column is read as text;
// empty fields are null.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return MustNew(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	data := make([][]string, len(header))
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if len(rec) > len(header) {
			return nil, fmt.Errorf("line %d: %w: %d fields, header has %d", line, ErrLengthMismatch, len(rec), len(header))
		}
		for i := range header {
			v := ""
			if i < len(rec) {
				v = rec[i]
			}
			data[i] = append(data[i], v)
		}
	}

	cols := make([]Column, len(header))
	for i, name := range header {
		cols[i] = Column{name: name, kind: KindString, text: data[i]}
		if cols[i].text == nil {
			cols[i].text = []string{}
		}
	}
	return New(cols...)
}

// WriteCSV writes the table with a header row. Nulls are written as empty
// fields and numbers in their shortest round-trip form.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := 0; i < t.rows; i++ {
		if err := cw.Write(t.Row(i)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSVFile reads a CSV table from path.
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	t, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// WriteCSVFile writes the table to path, creating parent directories.
func (t *Table) WriteCSVFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := t.WriteCSV(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
