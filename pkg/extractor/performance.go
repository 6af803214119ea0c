package extractor

import (
	"regexp"

	"github.com/jmylchreest/ipoetl/pkg/table"
)

var performancePatterns = []pattern{
	{"face_value", regexp.MustCompile(`(?i)Face\s*(?:Value|value)[:\s]+₹?\s*([\d.]+)`)},
	{"issue_price", regexp.MustCompile(`(?i)Issue\s*(?:Price|price)[:\s]+₹?\s*([\d.]+)`)},
	{"listing_price", regexp.MustCompile(`(?i)Listing\s*(?:Price|price)[:\s]+₹?\s*([\d.]+)`)},
	{"listing_gain", regexp.MustCompile(`(?i)Listing\s*(?:Gain|gain)\s*\([^)]*\)\s*([+-]?[\d.]+)\s*(%)?`)},
}

// Performance extracts listing-day performance of an IPO.
type Performance struct{}

// NewPerformance returns a performance report extractor.
func NewPerformance() *Performance { return &Performance{} }

func (*Performance) Section() string { return SectionPerformance }

func (*Performance) Extract(doc string) (*table.Record, error) {
	d, err := parse(doc)
	if err != nil {
		return nil, err
	}
	text := pageText(d)

	rec := table.NewRecord()
	for _, p := range performancePatterns {
		if v, ok := firstSubmatch(p.rx, text); ok {
			rec.Set(p.field, v)
			continue
		}
		rec.SetNull(p.field)
	}
	return rec, nil
}
