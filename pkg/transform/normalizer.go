package transform

import (
	"math"

	"github.com/jmylchreest/ipoetl/internal/logger"
	"github.com/jmylchreest/ipoetl/internal/stats"
	"github.com/jmylchreest/ipoetl/pkg/columns"
	"github.com/jmylchreest/ipoetl/pkg/table"
)

// FitNormalizer learns scaling parameters for cols.
//
// log1p columns record a shift of 1-min when their minimum is at or below
// -1, so that every fitted value plus the shift stays above -1. robust_z
// columns record median and IQR; an IQR that is zero or not finite is
// stored as 1, so a constant column normalizes to 0. minmax columns record
// their extremes. Columns without observations get no parameters.
func (tr *Transformer) FitNormalizer(t *table.Table, cols []string) NormalizationArtifacts {
	art := NewNormalizationArtifacts()

	groups := map[columns.NormalizationPolicy][]string{}
	for _, c := range tr.Select(t, cols) {
		p := tr.reg.Strategy(c).Normalization
		if p != columns.NormalizeNone {
			groups[p] = append(groups[p], c)
		}
	}

	for _, c := range groups[columns.NormalizeLog1p] {
		vals, _ := t.Floats(c)
		lo, _, ok := stats.MinMax(vals)
		shift := 0.0
		if ok && lo <= -1 {
			shift = -lo + 1
		}
		art.Log1pShift[c] = shift
	}

	robust := stats.ColumnQuantiles(numeric(t, groups[columns.NormalizeRobustZ]), 0.25, 0.5, 0.75)
	for _, c := range groups[columns.NormalizeRobustZ] {
		q, ok := robust[c]
		if !ok {
			art.RobustIQR[c] = 1
			continue
		}
		iqr := q[2] - q[0]
		if iqr == 0 || math.IsNaN(iqr) || math.IsInf(iqr, 0) {
			iqr = 1
		}
		art.RobustMedian[c] = q[1]
		art.RobustIQR[c] = iqr
	}

	for _, c := range groups[columns.NormalizeMinMax] {
		vals, _ := t.Floats(c)
		lo, hi, ok := stats.MinMax(vals)
		if !ok {
			continue
		}
		art.MinMaxMin[c] = lo
		art.MinMaxMax[c] = hi
	}

	logger.Debug("fitted normalizer",
		"log1p", len(art.Log1pShift),
		"robust_z", len(art.RobustIQR),
		"minmax", len(art.MinMaxMin))
	return art
}

// Normalize scales cols using art. A nil cols means every column of t. Each
// column gets the transform of the artifact map that holds it; a column in
// none of them passes through. A robust_z column without a fitted median is
// centred on 0, and a minmax column with zero range maps to 0. Nulls stay
// null.
func Normalize(art NormalizationArtifacts, t *table.Table, cols []string) (*table.Table, error) {
	out := t
	var err error

	for _, c := range present(t, cols) {
		f := art.transformFor(c)
		if f == nil {
			continue
		}
		vals, _ := out.Floats(c)
		for i, v := range vals {
			if !math.IsNaN(v) {
				vals[i] = f(v)
			}
		}
		if out, err = out.SetFloats(c, vals); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (a NormalizationArtifacts) transformFor(c string) func(float64) float64 {
	if shift, ok := a.Log1pShift[c]; ok {
		return func(v float64) float64 { return math.Log1p(v + shift) }
	}
	median, hasMedian := a.RobustMedian[c]
	iqr, hasIQR := a.RobustIQR[c]
	if hasMedian || hasIQR {
		if !hasIQR || iqr == 0 {
			iqr = 1
		}
		return func(v float64) float64 { return (v - median) / iqr }
	}
	if lo, ok := a.MinMaxMin[c]; ok {
		hi, ok := a.MinMaxMax[c]
		if !ok {
			return nil
		}
		span := hi - lo
		return func(v float64) float64 {
			if span == 0 {
				return 0
			}
			return (v - lo) / span
		}
	}
	return nil
}
