package columns

import (
	"strings"

	"github.com/jmylchreest/ipoetl/pkg/parse"
)

// Parser converts a raw cell for one column. Exactly one of Numeric and
// Text is set.
type Parser struct {
	Name    string
	Numeric parse.NumericFunc
	Text    parse.TextFunc
}

// IsNumeric reports whether the parser yields floats.
func (p Parser) IsNumeric() bool {
	return p.Numeric != nil
}

var (
	numberParser  = Parser{Name: "number", Numeric: parse.Number}
	moneyParser   = Parser{Name: "money", Numeric: parse.Money}
	percentParser = Parser{Name: "percent", Numeric: parse.Percent}
	dateParser    = Parser{Name: "date", Text: parse.Date}
	slugParser    = Parser{Name: "slug", Text: parse.Slug}
	textParser    = Parser{Name: "text", Text: parse.Text}
	listParser    = Parser{Name: "list_text", Text: parse.ListText}
)

var parsers = map[string]Parser{
	Company: slugParser,

	"ipo_category":    textParser,
	"exchange":        textParser,
	"issue_type":      textParser,
	"object_of_issue": listParser,

	"ipo_size":    moneyParser,
	"issue_price": moneyParser,

	"dhrp_date":      dateParser,
	"open_date":      dateParser,
	"close_date":     dateParser,
	"allotment_date": dateParser,
	"listing_date":   dateParser,
}

func init() {
	for _, name := range []string{
		"assets", "net_worth", "total_debt", "revenue", "ebitda", "pat",
		"ebitda_margin", "pat_margin", "eps", "roe", "roce", "roa",
		"debt_to_equity", "market_capitalisation", "enterprise_value",
		"ev_ebitda", "pb_multiple", "pe_multiple", "nav",
		"ipo_open_gmp", "ipo_close_gmp", "ipo_allotment_gmp", "ipo_listing_gmp",
		"subscription", "pre_issue_promoter_holding", "post_issue_promoter_holding",
		"face_value", "listing_price", "listing_gain", "current_market_price",
	} {
		parsers[name] = numberParser
	}
}

// ParserFor returns the parser used to clean column name. Columns that are
// not listed explicitly are matched by prefix or suffix and otherwise
// treated as text.
func ParserFor(name string) Parser {
	if p, ok := parsers[name]; ok {
		return p
	}
	switch {
	case strings.HasPrefix(name, "allocation_"):
		return percentParser
	case strings.HasPrefix(name, "subscription_"):
		return numberParser
	case strings.HasSuffix(name, "_date"):
		return dateParser
	}
	return textParser
}
