package transform

import (
	"math"

	"github.com/jmylchreest/ipoetl/internal/logger"
	"github.com/jmylchreest/ipoetl/internal/stats"
	"github.com/jmylchreest/ipoetl/pkg/table"
)

type pctlPair struct {
	low, high float64
}

// FitOutliers learns bounds for cols. Percentile bounds are computed once
// per distinct (low, high) pair; IQR policies get Tukey fences at k times
// the interquartile range. Every target column records its hard bounds,
// which may both be open.
func (tr *Transformer) FitOutliers(t *table.Table, cols []string) OutlierArtifacts {
	art := NewOutlierArtifacts()

	groups := map[pctlPair][]string{}
	var iqrCols []string
	for _, c := range tr.Select(t, cols) {
		s := tr.reg.Strategy(c)
		art.HardClip[c] = HardClip{copyFloat(s.HardMin), copyFloat(s.HardMax)}
		switch {
		case s.Outlier.UsesPercentile():
			p := pctlPair{s.PctlLow, s.PctlHigh}
			groups[p] = append(groups[p], c)
		case s.Outlier.UsesIQR():
			iqrCols = append(iqrCols, c)
		}
	}

	for p, group := range groups {
		for c, q := range stats.ColumnQuantiles(numeric(t, group), p.low, p.high) {
			art.PctlBounds[c] = Bounds{q[0], q[1]}
		}
	}

	quartiles := stats.ColumnQuantiles(numeric(t, iqrCols), 0.25, 0.75)
	for _, c := range iqrCols {
		q, ok := quartiles[c]
		if !ok {
			continue
		}
		k := tr.reg.Strategy(c).IQRK
		iqr := q[1] - q[0]
		art.IQRBounds[c] = Bounds{q[0] - k*iqr, q[1] + k*iqr}
	}

	logger.Debug("fitted outlier bounds",
		"percentile", len(art.PctlBounds),
		"iqr", len(art.IQRBounds),
		"hard_clip", len(art.HardClip))
	return art
}

// HandleOutliers applies art to cols. A nil cols means every column of t.
// Bounds are checked in order: hard clip, percentile, IQR. In clip mode a
// value outside a bound is moved onto it. In drop mode a row survives only
// if, for every targeted column, its value is null or inside every bound;
// the hard clip is applied as a clamp before the checks in both modes.
func HandleOutliers(art OutlierArtifacts, t *table.Table, cols []string, mode Mode) (*table.Table, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}

	out := t
	var err error
	keep := make([]bool, t.Len())
	for i := range keep {
		keep[i] = true
	}

	for _, c := range present(t, cols) {
		hard, hasHard := art.HardClip[c]
		pctl, hasPctl := art.PctlBounds[c]
		iqr, hasIQR := art.IQRBounds[c]
		hasHard = hasHard && (hard[0] != nil || hard[1] != nil)
		if !hasHard && !hasPctl && !hasIQR {
			continue
		}

		vals, _ := out.Floats(c)
		for i, v := range vals {
			if math.IsNaN(v) {
				continue
			}
			if hasHard {
				v = clampHard(v, hard)
			}
			if hasPctl {
				v = applyBounds(v, pctl, mode, &keep[i])
			}
			if hasIQR {
				v = applyBounds(v, iqr, mode, &keep[i])
			}
			vals[i] = v
		}
		if out, err = out.SetFloats(c, vals); err != nil {
			return nil, err
		}
	}

	if mode == ModeClip {
		return out, nil
	}
	filtered, err := out.Filter(keep)
	if err != nil {
		return nil, err
	}
	if dropped := t.Len() - filtered.Len(); dropped > 0 {
		logger.Debug("dropped outlier rows", "rows", dropped)
	}
	return filtered, nil
}

func clampHard(v float64, h HardClip) float64 {
	if h[0] != nil && v < *h[0] {
		v = *h[0]
	}
	if h[1] != nil && v > *h[1] {
		v = *h[1]
	}
	return v
}

func applyBounds(v float64, b Bounds, mode Mode, keep *bool) float64 {
	if v >= b.Low() && v <= b.High() {
		return v
	}
	if mode == ModeDrop {
		*keep = false
		return v
	}
	return math.Min(math.Max(v, b.Low()), b.High())
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
