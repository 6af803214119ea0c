package transform

import (
	"math"

	"github.com/jmylchreest/ipoetl/internal/logger"
	"github.com/jmylchreest/ipoetl/internal/stats"
	"github.com/jmylchreest/ipoetl/pkg/table"
)

// FitImputer learns the fill values for cols. Columns are grouped by their
// imputer policy and every median column is computed in one batched pass.
// A median column without observations has no median; it is skipped with a
// warning, or rejected when the transformer is strict.
func (tr *Transformer) FitImputer(t *table.Table, cols []string) (ImputationArtifacts, error) {
	art := NewImputationArtifacts()

	var medianCols []string
	for _, c := range tr.Select(t, cols) {
		s := tr.reg.Strategy(c)
		switch {
		case s.Imputer.UsesMedian():
			medianCols = append(medianCols, c)
		case s.Imputer.UsesZero():
			art.ZeroFill.Add(c)
		}
		if s.Imputer.AddsIndicator() {
			art.AddMissingIndicator.Add(c)
		}
	}

	medians := stats.ColumnQuantiles(numeric(t, medianCols), 0.5)
	for _, c := range medianCols {
		q, ok := medians[c]
		if !ok {
			if tr.strictMedians {
				return ImputationArtifacts{}, &DegenerateColumnError{Column: c, Statistic: "median"}
			}
			logger.Warn("no observations for median imputation, column left unfilled", "column", c)
			continue
		}
		art.Medians[c] = q[0]
	}

	logger.Debug("fitted imputer",
		"medians", len(art.Medians),
		"zero_fill", len(art.ZeroFill),
		"indicators", len(art.AddMissingIndicator))
	return art, nil
}

// Impute fills missing values in cols using art. A nil cols means every
// column of t. Indicator columns are added before filling so they record
// the original missingness; an indicator that already exists is left as is,
// which makes Impute idempotent. Columns the artifacts do not cover pass
// through unchanged.
func Impute(art ImputationArtifacts, t *table.Table, cols []string) (*table.Table, error) {
	out := t
	var err error

	for _, c := range present(t, cols) {
		if !art.AddMissingIndicator.Has(c) {
			continue
		}
		name := IndicatorName(c)
		if out.Has(name) {
			continue
		}
		vals, _ := out.Floats(c)
		ind := make([]float64, len(vals))
		for i, v := range vals {
			if math.IsNaN(v) {
				ind[i] = 1
			}
		}
		if out, err = out.SetFloats(name, ind); err != nil {
			return nil, err
		}
	}

	for _, c := range present(t, cols) {
		fill, ok := art.Medians[c]
		if !ok {
			if !art.ZeroFill.Has(c) {
				continue
			}
			fill = 0
		}
		vals, _ := out.Floats(c)
		for i, v := range vals {
			if math.IsNaN(v) {
				vals[i] = fill
			}
		}
		if out, err = out.SetFloats(c, vals); err != nil {
			return nil, err
		}
	}
	return out, nil
}
