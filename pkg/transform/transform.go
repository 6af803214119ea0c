// Package transform fits and applies the column transformations that turn a
// cleaned IPO table into model-ready features: imputation, outlier handling
// and normalization.
//
// Every step is split into a fit, which learns statistics from a reference
// table and returns an immutable artifact, and an apply, which replays an
// artifact on any table. Fits read strategies from a column registry; applies
// depend only on the artifact, so saved artifacts can be replayed on new
// batches without the registry that produced them.
package transform

import (
	"errors"
	"fmt"

	"github.com/jmylchreest/ipoetl/pkg/columns"
	"github.com/jmylchreest/ipoetl/pkg/table"
)

var (
	// ErrInvalidMode is returned for an outlier mode other than clip or drop.
	ErrInvalidMode = errors.New("invalid outlier mode")

	// ErrNoObservations is returned in strict mode when a column needs a
	// statistic but has no non-null values.
	ErrNoObservations = errors.New("no observations")
)

// DegenerateColumnError reports a column whose statistic cannot be fitted.
type DegenerateColumnError struct {
	Column    string
	Statistic string
}

func (e *DegenerateColumnError) Error() string {
	return fmt.Sprintf("column %s: cannot fit %s: %v", e.Column, e.Statistic, ErrNoObservations)
}

func (e *DegenerateColumnError) Unwrap() error {
	return ErrNoObservations
}

// Mode selects what HandleOutliers does with out-of-bounds values.
type Mode string

const (
	// ModeClip moves out-of-bounds values to the nearest bound.
	ModeClip Mode = "clip"
	// ModeDrop removes rows with any out-of-bounds value.
	ModeDrop Mode = "drop"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeClip, ModeDrop:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q (want clip or drop)", ErrInvalidMode, s)
}

// IndicatorSuffix is appended to a column name to form its missing-value
// indicator column.
const IndicatorSuffix = "__is_missing"

// IndicatorName returns the indicator column name for col.
func IndicatorName(col string) string {
	return col + IndicatorSuffix
}

// Transformer fits artifacts using the strategies of a column registry.
type Transformer struct {
	reg           *columns.Registry
	strictMedians bool
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithStrictMedians makes FitImputer fail with ErrNoObservations when a
// median column has no values, instead of skipping it with a warning.
func WithStrictMedians(strict bool) Option {
	return func(tr *Transformer) {
		tr.strictMedians = strict
	}
}

// New returns a transformer. A nil registry uses columns.Default().
func New(reg *columns.Registry, opts ...Option) *Transformer {
	if reg == nil {
		reg = columns.Default()
	}
	tr := &Transformer{reg: reg}
	for _, opt := range opts {
		opt(tr)
	}
	return tr
}

// Registry returns the registry the transformer fits against.
func (tr *Transformer) Registry() *columns.Registry {
	return tr.reg
}

// Select resolves the target columns of a fit or apply. With an explicit
// list it keeps the requested columns the table has, in request order, and
// silently drops the rest. With a nil list it keeps every registered column
// the table has, in table order. The result is never nil, so passing it
// back in selects exactly the same columns.
func (tr *Transformer) Select(t *table.Table, requested []string) []string {
	out := []string{}
	if requested == nil {
		for _, name := range t.Names() {
			if tr.reg.Has(name) {
				out = append(out, name)
			}
		}
		return out
	}

	seen := make(map[string]bool, len(requested))
	for _, name := range requested {
		if t.Has(name) && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// present restricts cols to the columns t has. A nil cols means every
// column of t.
func present(t *table.Table, cols []string) []string {
	if cols == nil {
		return t.Names()
	}
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if t.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// numeric returns every named column coerced to numbers.
func numeric(t *table.Table, cols []string) map[string][]float64 {
	out := make(map[string][]float64, len(cols))
	for _, c := range cols {
		if vals, ok := t.Floats(c); ok {
			out[c] = vals
		}
	}
	return out
}
