package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/ipoetl/pkg/table"
)

type pattern struct {
	field string
	rx    *regexp.Regexp
}

var financialPatterns = []pattern{
	{"assets", regexp.MustCompile(`(?i)(?:Total\s+)?Assets?\s*[:\s]+₹?\s*([\d,.]+)`)},
	{"net_worth", regexp.MustCompile(`(?i)Net\s+Worth\s*[:\s]+₹?\s*([\d,.]+)`)},
	{"total_debt", regexp.MustCompile(`(?i)Total\s+Debt\s*[:\s]+₹?\s*([\d,.]+)`)},
	{"revenue", regexp.MustCompile(`(?i)(?:Total\s+)?Revenue\s*[:\s]+₹?\s*([\d,.]+)`)},
	{"ebitda", regexp.MustCompile(`(?i)EBITDA\s*[:\s]+₹?\s*([\d,.]+)`)},
	{"pat", regexp.MustCompile(`(?i)PAT\s*[:\s]+₹?\s*([\d,.]+)`)},
	{"ebitda_margin", regexp.MustCompile(`(?i)EBITDA\s+margin\s*[:\s(%]+\s*([\d.]+)`)},
	{"pat_margin", regexp.MustCompile(`(?i)PAT\s+margin\s*[:\s(%]+\s*([\d.]+)`)},
	{"eps", regexp.MustCompile(`(?i)EPS\s*\(₹\)\s*([+-]?[\d.]+)`)},
	{"roe", regexp.MustCompile(`(?i)ROE\s*\(%\)\s*([+-]?[\d.]+)`)},
	{"roce", regexp.MustCompile(`(?i)ROCE\s*\(%\)\s*([+-]?[\d.]+)`)},
	{"roa", regexp.MustCompile(`(?i)ROA\s*\(%\)\s*([+-]?[\d.]+)`)},
	{"debt_to_equity", regexp.MustCompile(`(?i)Debt\s+to\s+[Ee]quity\s*[:\s(x]+\s*([\d.]+)`)},
	{"market_capitalisation", regexp.MustCompile(`(?i)Market\s+Capitalisation?\s*[:\s]+₹?\s*([\d,.]+)`)},
	{"ev_ebitda", regexp.MustCompile(`(?i)EV\s*/\s*EBITDA\s*\(?times\)?\s*[:\s]+([+-]?[\d.]+)`)},
	{"pb_multiple", regexp.MustCompile(`(?i)P\s*/\s*B\s*\(?times\)?\s*[:\s]+([+-]?[\d.]+)`)},
	{"nav", regexp.MustCompile(`(?i)NAV\s*\(₹\)\s*[:\s]+([+-]?[\d.]+)`)},
	{"enterprise_value", regexp.MustCompile(`(?i)Enterprise\s+Value\s*\(EV\)\s*\(₹\s*Cr\.\)\s*:\s*([\d,.]+)`)},
	{"pe_multiple", regexp.MustCompile(`(?i)PE\s+Multiple\s*\(times\)\s*:\s*([\d.]+)`)},
}

// Financials extracts the key financial and valuation metrics of an issuer.
type Financials struct{}

// NewFinancials returns a financials extractor.
func NewFinancials() *Financials { return &Financials{} }

func (*Financials) Section() string { return SectionFinancials }

// Extract matches each metric against the page text. When no metric
// matches at all, label/value table rows are tried instead.
func (*Financials) Extract(doc string) (*table.Record, error) {
	d, err := parse(doc)
	if err != nil {
		return nil, err
	}
	text := pageText(d)

	rec := table.NewRecord()
	found := false
	for _, p := range financialPatterns {
		if v, ok := firstSubmatch(p.rx, text); ok {
			rec.Set(p.field, v)
			found = true
			continue
		}
		rec.SetNull(p.field)
	}

	if !found {
		for field, v := range financialsFromTables(d) {
			rec.Set(field, v)
		}
	}
	return rec, nil
}

// financialsFromTables reads rows whose first cell names a metric. Later
// rows overwrite earlier ones.
func financialsFromTables(d *goquery.Document) map[string]string {
	out := map[string]string{}
	d.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() < 2 {
			return
		}
		label := strings.ToLower(flatten(cells.Eq(0), ""))
		value := flatten(cells.Eq(1), "")
		for _, p := range financialPatterns {
			if strings.Contains(label, strings.ReplaceAll(p.field, "_", " ")) {
				out[p.field] = value
				break
			}
		}
	})
	return out
}
