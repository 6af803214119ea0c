package columns

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Metric is the semantic unit class of a column. It never changes for a
// given column.
type Metric string

const (
	MetricAmount     Metric = "amount"     // absolute monetary value, in crores
	MetricPrice      Metric = "price"      // per-share price
	MetricPercentage Metric = "percentage" // 0-100 scale
	MetricRatio      Metric = "ratio"      // unitless
	MetricTimes      Metric = "times"      // multiples, e.g. subscription
	MetricCount      Metric = "count"      // shares or units
	MetricDate       Metric = "date"       // ISO calendar date
	MetricText       Metric = "text"       // descriptive text
)

// ImputerPolicy selects how missing values are filled.
type ImputerPolicy string

const (
	ImputeNone                ImputerPolicy = "none"
	ImputeMedian              ImputerPolicy = "median"
	ImputeZero                ImputerPolicy = "zero"
	ImputeMedianWithIndicator ImputerPolicy = "median_with_missing_indicator"
	ImputeZeroWithIndicator   ImputerPolicy = "zero_with_missing_indicator"
)

// UsesMedian reports whether the policy fills with the fitted median.
func (p ImputerPolicy) UsesMedian() bool {
	return p == ImputeMedian || p == ImputeMedianWithIndicator
}

// UsesZero reports whether the policy fills with 0.
func (p ImputerPolicy) UsesZero() bool {
	return p == ImputeZero || p == ImputeZeroWithIndicator
}

// AddsIndicator reports whether a <col>__is_missing column is emitted.
func (p ImputerPolicy) AddsIndicator() bool {
	return p == ImputeMedianWithIndicator || p == ImputeZeroWithIndicator
}

// OutlierPolicy selects how extreme values are bounded.
type OutlierPolicy string

const (
	OutlierNone                       OutlierPolicy = "none"
	OutlierIQRFilter                  OutlierPolicy = "iqr_filter"
	OutlierPercentileFilter           OutlierPolicy = "percentile_filter"
	OutlierPercentileClip             OutlierPolicy = "percentile_clip"
	OutlierHardClipThenPercentileClip OutlierPolicy = "hard_clip_then_percentile_clip"
)

// UsesPercentile reports whether the policy fits percentile bounds.
func (p OutlierPolicy) UsesPercentile() bool {
	switch p {
	case OutlierPercentileFilter, OutlierPercentileClip, OutlierHardClipThenPercentileClip:
		return true
	}
	return false
}

// UsesIQR reports whether the policy fits Tukey fences.
func (p OutlierPolicy) UsesIQR() bool {
	return p == OutlierIQRFilter
}

// NormalizationPolicy selects the scaling applied after outlier handling.
type NormalizationPolicy string

const (
	NormalizeNone    NormalizationPolicy = "none"
	NormalizeLog1p   NormalizationPolicy = "log1p"
	NormalizeRobustZ NormalizationPolicy = "robust_z"
	NormalizeMinMax  NormalizationPolicy = "minmax"
)

// Default tuning values shared by every strategy.
const (
	DefaultPctlLow  = 0.01
	DefaultPctlHigh = 0.99
	DefaultIQRK     = 1.5
)

// Strategy is the per-column transformation plan. Strategies are values:
// the With* helpers return modified copies.
type Strategy struct {
	Imputer       ImputerPolicy       `json:"imputer" yaml:"imputer" validate:"oneof=none median zero median_with_missing_indicator zero_with_missing_indicator"`
	Outlier       OutlierPolicy       `json:"outlier" yaml:"outlier" validate:"oneof=none iqr_filter percentile_filter percentile_clip hard_clip_then_percentile_clip"`
	Normalization NormalizationPolicy `json:"normalization" yaml:"normalization" validate:"oneof=none log1p robust_z minmax"`

	PctlLow  float64  `json:"pctl_low" yaml:"pctl_low" validate:"gte=0,lt=1"`
	PctlHigh float64  `json:"pctl_high" yaml:"pctl_high" validate:"gt=0,lte=1,gtfield=PctlLow"`
	IQRK     float64  `json:"iqr_k" yaml:"iqr_k" validate:"gt=0"`
	HardMin  *float64 `json:"hard_min,omitempty" yaml:"hard_min,omitempty"`
	HardMax  *float64 `json:"hard_max,omitempty" yaml:"hard_max,omitempty"`
}

// NewStrategy returns a strategy with the default tuning values.
func NewStrategy(imp ImputerPolicy, out OutlierPolicy, norm NormalizationPolicy) Strategy {
	return Strategy{
		Imputer:       imp,
		Outlier:       out,
		Normalization: norm,
		PctlLow:       DefaultPctlLow,
		PctlHigh:      DefaultPctlHigh,
		IQRK:          DefaultIQRK,
	}
}

// Identity leaves a column untouched.
func Identity() Strategy {
	return NewStrategy(ImputeNone, OutlierNone, NormalizeNone)
}

// WithHardBounds returns a copy with absolute clip bounds. A nil bound is
// open.
func (s Strategy) WithHardBounds(lo, hi *float64) Strategy {
	s.HardMin = copyFloat(lo)
	s.HardMax = copyFloat(hi)
	return s
}

// WithPercentiles returns a copy with different percentile bounds.
func (s Strategy) WithPercentiles(low, high float64) Strategy {
	s.PctlLow = low
	s.PctlHigh = high
	return s
}

// IsIdentity reports whether every policy is none.
func (s Strategy) IsIdentity() bool {
	return s.Imputer == ImputeNone && s.Outlier == OutlierNone && s.Normalization == NormalizeNone
}

// Validate checks policy names and tuning ranges.
func (s Strategy) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid strategy: %w", err)
	}
	if s.HardMin != nil && s.HardMax != nil && *s.HardMin > *s.HardMax {
		return fmt.Errorf("invalid strategy: hard_min %v exceeds hard_max %v", *s.HardMin, *s.HardMax)
	}
	return nil
}

// DefaultStrategyFor returns the catalogue default for a metric.
func DefaultStrategyFor(m Metric) Strategy {
	switch m {
	case MetricAmount:
		return amountStrategy
	case MetricPrice:
		return priceStrategy
	case MetricPercentage:
		return percentStrategy
	case MetricRatio, MetricTimes:
		return ratioStrategy
	default:
		return Identity()
	}
}

// Float returns a pointer to v, for optional bounds.
func Float(v float64) *float64 {
	return &v
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

var validate = validator.New()

var (
	amountStrategy  = NewStrategy(ImputeMedian, OutlierIQRFilter, NormalizeLog1p)
	priceStrategy   = NewStrategy(ImputeMedian, OutlierPercentileFilter, NormalizeLog1p)
	percentStrategy = NewStrategy(ImputeMedian, OutlierPercentileFilter, NormalizeRobustZ)
	ratioStrategy   = NewStrategy(ImputeMedian, OutlierPercentileClip, NormalizeRobustZ)

	// GMP can be negative and is compared across windows, so it keeps its
	// raw scale.
	gmpStrategy = NewStrategy(ImputeMedian, OutlierPercentileClip, NormalizeNone)

	holdingStrategy = NewStrategy(ImputeMedian, OutlierHardClipThenPercentileClip, NormalizeRobustZ).WithHardBounds(Float(0), Float(100))

	// An absent tranche was not offered, so it is filled with 0.
	subscriptionStrategy = NewStrategy(ImputeZero, OutlierPercentileClip, NormalizeRobustZ).WithHardBounds(Float(0), nil)
	allocationStrategy   = NewStrategy(ImputeZero, OutlierHardClipThenPercentileClip, NormalizeRobustZ).WithHardBounds(Float(0), Float(100))
)
