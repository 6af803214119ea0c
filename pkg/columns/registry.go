// Package columns is the catalogue of IPO dataset columns: their semantic
// metric, a description and the transformation strategy applied to them.
package columns

import (
	"errors"
	"fmt"
	"sort"
)

// Company is the join key shared by every section table.
const Company = "company"

// ErrUnknownColumn is returned when an override names a column that is not
// in the registry.
var ErrUnknownColumn = errors.New("unknown column")

// Column is a single registry entry.
type Column struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Metric      Metric   `json:"metric" yaml:"metric"`
	Strategy    Strategy `json:"strategy" yaml:"strategy"`
}

// Registry maps column names to their entries. A Registry is read-only
// after construction and safe for concurrent use.
type Registry struct {
	cols  []Column
	index map[string]int
}

// NewRegistry builds a registry. Later entries replace earlier ones with the
// same name.
func NewRegistry(cols ...Column) *Registry {
	r := &Registry{index: make(map[string]int, len(cols))}
	for _, c := range cols {
		if i, ok := r.index[c.Name]; ok {
			r.cols[i] = c
			continue
		}
		r.index[c.Name] = len(r.cols)
		r.cols = append(r.cols, c)
	}
	return r
}

// Lookup returns the entry for name.
func (r *Registry) Lookup(name string) (Column, bool) {
	i, ok := r.index[name]
	if !ok {
		return Column{}, false
	}
	return r.cols[i], true
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Strategy returns the strategy for name, or the identity strategy for
// columns the registry does not know.
func (r *Registry) Strategy(name string) Strategy {
	if c, ok := r.Lookup(name); ok {
		return c.Strategy
	}
	return Identity()
}

// All returns every entry in catalogue order.
func (r *Registry) All() []Column {
	out := make([]Column, len(r.cols))
	copy(out, r.cols)
	return out
}

// Names returns every column name in catalogue order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.cols))
	for i, c := range r.cols {
		out[i] = c.Name
	}
	return out
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.cols)
}

// ByMetric returns the names of columns with metric m.
func (r *Registry) ByMetric(m Metric) []string {
	return r.filter(func(c Column) bool { return c.Metric == m })
}

// ByImputer returns the names of columns using imputer policy p.
func (r *Registry) ByImputer(p ImputerPolicy) []string {
	return r.filter(func(c Column) bool { return c.Strategy.Imputer == p })
}

// ByOutlier returns the names of columns using outlier policy p.
func (r *Registry) ByOutlier(p OutlierPolicy) []string {
	return r.filter(func(c Column) bool { return c.Strategy.Outlier == p })
}

// ByNormalization returns the names of columns using normalization policy p.
func (r *Registry) ByNormalization(p NormalizationPolicy) []string {
	return r.filter(func(c Column) bool { return c.Strategy.Normalization == p })
}

// StrategyMap returns name -> strategy for every entry.
func (r *Registry) StrategyMap() map[string]Strategy {
	out := make(map[string]Strategy, len(r.cols))
	for _, c := range r.cols {
		out[c.Name] = c.Strategy
	}
	return out
}

func (r *Registry) filter(keep func(Column) bool) []string {
	var out []string
	for _, c := range r.cols {
		if keep(c) {
			out = append(out, c.Name)
		}
	}
	return out
}

// Override tunes a registered column. Nil fields keep the catalogue value.
type Override struct {
	Imputer       *ImputerPolicy       `mapstructure:"imputer" yaml:"imputer"`
	Outlier       *OutlierPolicy       `mapstructure:"outlier" yaml:"outlier"`
	Normalization *NormalizationPolicy `mapstructure:"normalization" yaml:"normalization"`
	PctlLow       *float64             `mapstructure:"pctl_low" yaml:"pctl_low"`
	PctlHigh      *float64             `mapstructure:"pctl_high" yaml:"pctl_high"`
	IQRK          *float64             `mapstructure:"iqr_k" yaml:"iqr_k"`
	HardMin       *float64             `mapstructure:"hard_min" yaml:"hard_min"`
	HardMax       *float64             `mapstructure:"hard_max" yaml:"hard_max"`
}

func (o Override) apply(s Strategy) Strategy {
	if o.Imputer != nil {
		s.Imputer = *o.Imputer
	}
	if o.Outlier != nil {
		s.Outlier = *o.Outlier
	}
	if o.Normalization != nil {
		s.Normalization = *o.Normalization
	}
	if o.PctlLow != nil {
		s.PctlLow = *o.PctlLow
	}
	if o.PctlHigh != nil {
		s.PctlHigh = *o.PctlHigh
	}
	if o.IQRK != nil {
		s.IQRK = *o.IQRK
	}
	lo, hi := s.HardMin, s.HardMax
	if o.HardMin != nil {
		lo = o.HardMin
	}
	if o.HardMax != nil {
		hi = o.HardMax
	}
	return s.WithHardBounds(lo, hi)
}

// WithOverrides returns a new registry with per-column tuning applied. The
// receiver is not modified.
func (r *Registry) WithOverrides(overrides map[string]Override) (*Registry, error) {
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	cols := r.All()
	for _, name := range names {
		i, ok := r.index[name]
		if !ok {
			return nil, fmt.Errorf("override %q: %w", name, ErrUnknownColumn)
		}
		s := overrides[name].apply(cols[i].Strategy)
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("override %q: %w", name, err)
		}
		cols[i].Strategy = s
	}
	return NewRegistry(cols...), nil
}

// Default returns the IPO catalogue.
func Default() *Registry {
	return defaultRegistry
}

var defaultRegistry = NewRegistry(catalogue()...)

func catalogue() []Column {
	identity := Identity()
	return []Column{
		// Financials
		{"assets", "Total assets of the company", MetricAmount, amountStrategy},
		{"net_worth", "Shareholders' equity", MetricAmount, amountStrategy},
		{"total_debt", "Total borrowings", MetricAmount, amountStrategy},
		{"revenue", "Operating revenue", MetricAmount, amountStrategy},
		{"ebitda", "Operating profit before depreciation and tax", MetricAmount, amountStrategy},
		{"pat", "Profit after tax", MetricAmount, amountStrategy},
		{"ebitda_margin", "EBITDA as % of revenue", MetricPercentage, ratioStrategy},
		{"pat_margin", "PAT as % of revenue", MetricPercentage, ratioStrategy},
		{"eps", "Earnings per share", MetricPrice, priceStrategy},
		{"roe", "Return on equity", MetricPercentage, ratioStrategy},
		{"roce", "Return on capital employed", MetricPercentage, ratioStrategy},
		{"roa", "Return on assets", MetricPercentage, ratioStrategy},
		{"debt_to_equity", "Debt to equity ratio", MetricRatio, ratioStrategy},
		{"market_capitalisation", "Market value of equity", MetricAmount, amountStrategy},
		{"enterprise_value", "Firm value including debt", MetricAmount, amountStrategy},
		{"ev_ebitda", "Enterprise value to EBITDA multiple", MetricTimes, ratioStrategy},
		{"pe_multiple", "Price to earnings multiple", MetricTimes, ratioStrategy},
		{"pb_multiple", "Price to book multiple", MetricTimes, ratioStrategy},
		{"nav", "Net asset value per share", MetricPrice, priceStrategy},

		{Company, "Name of issuing company", MetricText, identity},

		// Grey market premium
		{"ipo_open_gmp", "GMP at IPO opening", MetricPrice, gmpStrategy},
		{"ipo_close_gmp", "GMP at IPO close", MetricPrice, gmpStrategy},
		{"ipo_allotment_gmp", "GMP at allotment", MetricPrice, gmpStrategy},
		{"ipo_listing_gmp", "GMP on listing day", MetricPrice, gmpStrategy},

		// Issue metadata
		{"ipo_category", "Mainboard or SME", MetricText, identity},
		{"exchange", "Listing exchange", MetricText, identity},
		{"issue_type", "Fresh issue / OFS", MetricText, identity},
		{"ipo_size", "Total IPO issue size", MetricAmount, amountStrategy},
		{"issue_price", "IPO issue price", MetricPrice, priceStrategy},
		{"face_value", "Face value per share", MetricPrice, priceStrategy},

		// Promoters
		{"pre_issue_promoter_holding", "Promoter holding before IPO", MetricPercentage, holdingStrategy},
		{"post_issue_promoter_holding", "Promoter holding after IPO", MetricPercentage, holdingStrategy},

		// Dates
		{"dhrp_date", "DRHP filing date", MetricDate, identity},
		{"open_date", "IPO open date", MetricDate, identity},
		{"close_date", "IPO close date", MetricDate, identity},
		{"allotment_date", "Allotment date", MetricDate, identity},
		{"listing_date", "Listing date", MetricDate, identity},

		// Listing. Price and gain are prediction labels and stay raw.
		{"object_of_issue", "Use of IPO proceeds", MetricText, identity},
		{"listing_price", "Listing price", MetricPrice, identity},
		{"listing_gain", "Listing day gain/loss", MetricPrice, identity},
		{"current_market_price", "Latest market price", MetricPrice, priceStrategy},

		// Subscription multiples and allocation shares
		{"subscription", "Overall subscription multiple", MetricTimes, subscriptionStrategy},
		{"allocation_total_ipo_subscription", "Total shares allocated", MetricPercentage, allocationStrategy},
		{"subscription_qib", "QIB subscription multiple", MetricTimes, subscriptionStrategy},
		{"allocation_qib", "Shares allocated to QIBs", MetricPercentage, allocationStrategy},
		{"subscription_retail_investors", "Retail subscription multiple", MetricTimes, subscriptionStrategy},
		{"allocation_retail_investors", "Shares allocated to retail investors", MetricPercentage, allocationStrategy},
		{"subscription_employees", "Employee subscription multiple", MetricTimes, subscriptionStrategy},
		{"allocation_employees", "Shares allocated to employees", MetricPercentage, allocationStrategy},
		{"subscription_snii_bids_below_10l", "Small NII subscription multiple", MetricTimes, subscriptionStrategy},
		{"allocation_snii_bids_below_10l", "Shares allocated to small NIIs", MetricPercentage, allocationStrategy},
		{"subscription_bnii_bids_above_10l", "Big NII subscription multiple", MetricTimes, subscriptionStrategy},
		{"allocation_bnii_bids_above_10l", "Shares allocated to big NIIs", MetricPercentage, allocationStrategy},
	}
}
