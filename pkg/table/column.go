package table

import (
	"math"
	"strconv"
	"strings"
)

// Kind is the storage type of a column.
type Kind uint8

const (
	// KindString columns hold text. The empty string is null.
	KindString Kind = iota
	// KindFloat columns hold numbers. NaN is null.
	KindFloat
)

func (k Kind) String() string {
	if k == KindFloat {
		return "float"
	}
	return "string"
}

// Column is a named, typed vector. Columns are values and are never
// modified after construction.
type Column struct {
	name string
	kind Kind
	text []string
	nums []float64
}

// Strings builds a string column. The values are copied.
func Strings(name string, vals ...string) Column {
	text := make([]string, len(vals))
	copy(text, vals)
	return Column{name: name, kind: KindString, text: text}
}

// Floats builds a numeric column. The values are copied.
func Floats(name string, vals ...float64) Column {
	nums := make([]float64, len(vals))
	copy(nums, vals)
	return Column{name: name, kind: KindFloat, nums: nums}
}

// Name returns the column name.
func (c Column) Name() string { return c.name }

// Kind returns the storage type.
func (c Column) Kind() Kind { return c.kind }

// Len returns the number of cells.
func (c Column) Len() int {
	if c.kind == KindFloat {
		return len(c.nums)
	}
	return len(c.text)
}

// IsNull reports whether cell i is missing.
func (c Column) IsNull(i int) bool {
	if c.kind == KindFloat {
		return math.IsNaN(c.nums[i])
	}
	return c.text[i] == ""
}

// Text returns cell i as text. Null cells are empty.
func (c Column) Text(i int) string {
	if c.kind == KindString {
		return c.text[i]
	}
	return FormatFloat(c.nums[i])
}

// Float returns cell i as a number. Null and unparseable cells are NaN.
func (c Column) Float(i int) float64 {
	if c.kind == KindFloat {
		return c.nums[i]
	}
	return ParseFloat(c.text[i])
}

// Texts returns a copy of every cell as text.
func (c Column) Texts() []string {
	out := make([]string, c.Len())
	for i := range out {
		out[i] = c.Text(i)
	}
	return out
}

// Numbers returns a copy of every cell coerced to a number.
func (c Column) Numbers() []float64 {
	out := make([]float64, c.Len())
	for i := range out {
		out[i] = c.Float(i)
	}
	return out
}

// NullCount returns the number of missing cells.
func (c Column) NullCount() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			n++
		}
	}
	return n
}

func (c Column) rename(name string) Column {
	c.name = name
	return c
}

// take gathers cells by index. An index of -1 yields a null cell.
func (c Column) take(idx []int) Column {
	out := Column{name: c.name, kind: c.kind}
	if c.kind == KindFloat {
		out.nums = make([]float64, len(idx))
		for i, j := range idx {
			if j < 0 {
				out.nums[i] = math.NaN()
				continue
			}
			out.nums[i] = c.nums[j]
		}
		return out
	}
	out.text = make([]string, len(idx))
	for i, j := range idx {
		if j >= 0 {
			out.text[i] = c.text[j]
		}
	}
	return out
}

// FormatFloat renders a number the way the CSV writer does: shortest
// round-trip form, empty for NaN.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseFloat coerces text to a number. Empty, unparseable and non-finite
// input is NaN.
func ParseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}
