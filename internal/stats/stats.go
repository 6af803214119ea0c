// Package stats computes the column statistics used by the transformer.
//
// Every function ignores NaN, which marks a missing cell.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Observed returns the non-missing values of vals, sorted ascending. The
// input is not modified.
func Observed(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

// Quantile returns the p-quantile of sorted using linear interpolation
// between closest ranks (h = (n-1)p), the default estimator of most
// dataframe libraries. sorted must be ascending and free of NaN.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	h := float64(n-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= n {
		return sorted[n-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// Median returns the median of the observed values.
func Median(vals []float64) (float64, bool) {
	obs := Observed(vals)
	if len(obs) == 0 {
		return 0, false
	}
	return Quantile(obs, 0.5), true
}

// Quartiles returns Q1 and Q3 of the observed values.
func Quartiles(vals []float64) (q1, q3 float64, ok bool) {
	obs := Observed(vals)
	if len(obs) == 0 {
		return 0, 0, false
	}
	return Quantile(obs, 0.25), Quantile(obs, 0.75), true
}

// MinMax returns the extremes of the observed values.
func MinMax(vals []float64) (lo, hi float64, ok bool) {
	obs := Observed(vals)
	if len(obs) == 0 {
		return 0, 0, false
	}
	return floats.Min(obs), floats.Max(obs), true
}

// ColumnQuantiles evaluates the same probabilities over several columns in
// one pass. The result maps each column to one value per probability, in
// the order given. Columns without observations are omitted.
func ColumnQuantiles(cols map[string][]float64, ps ...float64) map[string][]float64 {
	out := make(map[string][]float64, len(cols))
	for name, vals := range cols {
		obs := Observed(vals)
		if len(obs) == 0 {
			continue
		}
		qs := make([]float64, len(ps))
		for i, p := range ps {
			qs[i] = Quantile(obs, p)
		}
		out[name] = qs
	}
	return out
}
