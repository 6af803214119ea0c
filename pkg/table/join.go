package table

import (
	"fmt"
	"math"
	"strings"
)

// Suffixes appended to non-key columns present on both sides of a join.
const (
	LeftSuffix  = "_x"
	RightSuffix = "_y"
)

// LeftJoin keeps every row of left and attaches the columns of right whose
// key matches. A left row matching several right rows is repeated once per
// match; a row with no match gets null right-hand cells. Null keys never
// match. Non-key columns present on both sides are suffixed with _x (left)
// and _y (right).
func LeftJoin(left, right *Table, key string) (*Table, error) {
	lk, ok := left.Column(key)
	if !ok {
		return nil, fmt.Errorf("left join: %w: %s", ErrMissingColumn, key)
	}
	rk, ok := right.Column(key)
	if !ok {
		return nil, fmt.Errorf("left join: %w: %s", ErrMissingColumn, key)
	}

	matches := make(map[string][]int, right.Len())
	for i := 0; i < right.Len(); i++ {
		if rk.IsNull(i) {
			continue
		}
		k := rk.Text(i)
		matches[k] = append(matches[k], i)
	}

	var lidx, ridx []int
	for i := 0; i < left.Len(); i++ {
		m := matches[lk.Text(i)]
		if lk.IsNull(i) || len(m) == 0 {
			lidx = append(lidx, i)
			ridx = append(ridx, -1)
			continue
		}
		for _, j := range m {
			lidx = append(lidx, i)
			ridx = append(ridx, j)
		}
	}

	cols := make([]Column, 0, left.Width()+right.Width()-1)
	for _, c := range left.cols {
		out := c.take(lidx)
		if c.name != key && right.Has(c.name) {
			out = out.rename(c.name + LeftSuffix)
		}
		cols = append(cols, out)
	}
	for _, c := range right.cols {
		if c.name == key {
			continue
		}
		out := c.take(ridx)
		if left.Has(c.name) {
			out = out.rename(c.name + RightSuffix)
		}
		cols = append(cols, out)
	}

	t, err := New(cols...)
	if err != nil {
		return nil, fmt.Errorf("left join: %w", err)
	}
	t.rows = len(lidx)
	return t, nil
}

// Concat stacks tables vertically. The result has the union of the input
// columns in order of first appearance; cells a table does not have are
// null. A column stays numeric only if it is numeric in every input that
// has it.
func Concat(tables ...*Table) *Table {
	var names []string
	kinds := map[string]Kind{}
	total := 0
	for _, t := range tables {
		total += t.Len()
		for _, c := range t.cols {
			k, seen := kinds[c.name]
			if !seen {
				names = append(names, c.name)
				kinds[c.name] = c.kind
				continue
			}
			if k != c.kind {
				kinds[c.name] = KindString
			}
		}
	}

	cols := make([]Column, len(names))
	for i, name := range names {
		if kinds[name] == KindFloat {
			nums := make([]float64, 0, total)
			for _, t := range tables {
				c, ok := t.Column(name)
				for r := 0; r < t.Len(); r++ {
					if ok {
						nums = append(nums, c.nums[r])
					} else {
						nums = append(nums, math.NaN())
					}
				}
			}
			cols[i] = Column{name: name, kind: KindFloat, nums: nums}
			continue
		}
		text := make([]string, 0, total)
		for _, t := range tables {
			c, ok := t.Column(name)
			for r := 0; r < t.Len(); r++ {
				if ok {
					text = append(text, c.Text(r))
				} else {
					text = append(text, "")
				}
			}
		}
		cols[i] = Column{name: name, kind: KindString, text: text}
	}

	out := MustNew(cols...)
	out.rows = total
	return out
}

// Dedupe keeps the first row for each distinct combination of keys. Null
// keys compare equal to each other.
func (t *Table) Dedupe(keys ...string) (*Table, error) {
	kc := make([]Column, len(keys))
	for i, k := range keys {
		c, ok := t.Column(k)
		if !ok {
			return nil, fmt.Errorf("dedupe: %w: %s", ErrMissingColumn, k)
		}
		kc[i] = c
	}

	seen := make(map[string]bool, t.rows)
	idx := make([]int, 0, t.rows)
	parts := make([]string, len(kc))
	for r := 0; r < t.rows; r++ {
		for i, c := range kc {
			parts[i] = c.Text(r)
		}
		k := strings.Join(parts, "\x00")
		if seen[k] {
			continue
		}
		seen[k] = true
		idx = append(idx, r)
	}
	return t.take(idx), nil
}
