// Package table provides the column-oriented record set that flows between
// pipeline stages. A Table is never modified in place: every operation
// returns a derived table that may share unchanged columns with its source.
package table

import (
	"errors"
	"fmt"
)

var (
	// ErrLengthMismatch is returned when columns of different lengths are
	// combined into one table.
	ErrLengthMismatch = errors.New("column length mismatch")

	// ErrDuplicateColumn is returned when two columns share a name.
	ErrDuplicateColumn = errors.New("duplicate column")

	// ErrMissingColumn is returned when an operation needs a column the
	// table does not have.
	ErrMissingColumn = errors.New("missing column")
)

// Table is an ordered set of equal-length columns.
type Table struct {
	cols  []Column
	index map[string]int
	rows  int
}

// New builds a table from columns.
func New(cols ...Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, ok := t.index[c.name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, c.name)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("%w: %s has %d rows, want %d", ErrLengthMismatch, c.name, c.Len(), t.rows)
		}
		t.index[c.name] = len(t.cols)
		t.cols = append(t.cols, c)
	}
	return t, nil
}

// MustNew is New for literals known to be well formed.
func MustNew(cols ...Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.cols) }

// Names returns the column names in order.
func (t *Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.name
	}
	return out
}

// Has reports whether the table has a column called name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.cols[i], true
}

// Columns returns every column in order.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.cols))
	copy(out, t.cols)
	return out
}

// Floats returns the named column coerced to numbers.
func (t *Table) Floats(name string) ([]float64, bool) {
	c, ok := t.Column(name)
	if !ok {
		return nil, false
	}
	return c.Numbers(), true
}

// Row returns row i as text, in column order.
func (t *Table) Row(i int) []string {
	out := make([]string, len(t.cols))
	for j, c := range t.cols {
		out[j] = c.Text(i)
	}
	return out
}

// With returns a table where c replaces the column of the same name, or is
// appended when no such column exists.
func (t *Table) With(c Column) (*Table, error) {
	if len(t.cols) > 0 && c.Len() != t.rows {
		return nil, fmt.Errorf("%w: %s has %d rows, want %d", ErrLengthMismatch, c.name, c.Len(), t.rows)
	}
	cols := t.Columns()
	if i, ok := t.index[c.name]; ok {
		cols[i] = c
	} else {
		cols = append(cols, c)
	}
	return New(cols...)
}

// SetFloats replaces or appends a numeric column.
func (t *Table) SetFloats(name string, vals []float64) (*Table, error) {
	return t.With(Floats(name, vals...))
}

// Select returns the named columns in the order given. Names the table does
// not have are ignored.
func (t *Table) Select(names ...string) *Table {
	cols := make([]Column, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if c, ok := t.Column(name); ok && !seen[name] {
			seen[name] = true
			cols = append(cols, c)
		}
	}
	out := MustNew(cols...)
	if len(cols) == 0 {
		out.rows = t.rows
	}
	return out
}

// Drop returns the table without the named columns.
func (t *Table) Drop(names ...string) *Table {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		drop[name] = true
	}
	cols := make([]Column, 0, len(t.cols))
	for _, c := range t.cols {
		if !drop[c.name] {
			cols = append(cols, c)
		}
	}
	out := MustNew(cols...)
	if len(cols) == 0 {
		out.rows = t.rows
	}
	return out
}

// Rename returns the table with columns renamed by mapping old -> new.
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	cols := t.Columns()
	for i, c := range cols {
		if to, ok := mapping[c.name]; ok {
			cols[i] = c.rename(to)
		}
	}
	return New(cols...)
}

// Filter returns the rows where keep is true.
func (t *Table) Filter(keep []bool) (*Table, error) {
	if len(keep) != t.rows {
		return nil, fmt.Errorf("%w: mask has %d rows, want %d", ErrLengthMismatch, len(keep), t.rows)
	}
	idx := make([]int, 0, t.rows)
	for i, k := range keep {
		if k {
			idx = append(idx, i)
		}
	}
	return t.take(idx), nil
}

func (t *Table) take(idx []int) *Table {
	cols := make([]Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.take(idx)
	}
	out := MustNew(cols...)
	out.rows = len(idx)
	return out
}
