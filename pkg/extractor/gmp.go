package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/ipoetl/pkg/table"
)

var gmpNumber = regexp.MustCompile(`([+-]?\d+(?:\.\d+)?)`)

// gmpTargets maps output fields to the event badge that marks their row,
// in priority order.
var gmpTargets = []struct {
	field string
	label *regexp.Regexp
}{
	{"ipo_open_gmp", regexp.MustCompile(`(?i)\bOpen\b`)},
	{"ipo_close_gmp", regexp.MustCompile(`(?i)\bClose\b`)},
	{"ipo_allotment_gmp", regexp.MustCompile(`(?i)\bAllotment\b`)},
	{"ipo_listing_gmp", regexp.MustCompile(`(?i)\bListing\b`)},
}

// GMP extracts the grey market premium quoted on the open, close,
// allotment and listing days from the day-wise GMP trend table.
type GMP struct{}

// NewGMP returns a GMP extractor.
func NewGMP() *GMP { return &GMP{} }

func (*GMP) Section() string { return SectionGMP }

func (*GMP) Extract(doc string) (*table.Record, error) {
	d, err := parse(doc)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string, len(gmpTargets))
	if tbl := findGMPTable(d); tbl != nil {
		readGMPTable(tbl, values)
	}

	rec := table.NewRecord()
	for _, t := range gmpTargets {
		rec.Set(t.field, values[t.field])
	}
	return rec, nil
}

// findGMPTable prefers the table following a "GMP trend" heading and falls
// back to any table whose header row has both "gmp date" and "gmp".
func findGMPTable(d *goquery.Document) *goquery.Selection {
	var found *goquery.Selection
	d.Find("h2, h3").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		txt := strings.ToLower(clean(flatten(h, " ")))
		if !strings.Contains(txt, "gmp") || !strings.Contains(txt, "trend") {
			return true
		}
		if tbl := nextTable(d, h); tbl != nil {
			found = tbl
			return false
		}
		return true
	})
	if found != nil {
		return found
	}

	d.Find("table").EachWithBreak(func(_ int, tbl *goquery.Selection) bool {
		hdr := tbl.Find("thead tr").First()
		if hdr.Length() == 0 {
			return true
		}
		headers := headerTexts(hdr)
		if contains(headers, "gmp date") && contains(headers, "gmp") {
			found = tbl
			return false
		}
		return true
	})
	return found
}

// nextTable returns the first table after h in document order.
func nextTable(d *goquery.Document, h *goquery.Selection) *goquery.Selection {
	start := h.Get(0)
	after := false
	var found *goquery.Selection
	d.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Get(0) == start {
			after = true
			return true
		}
		if after && goquery.NodeName(s) == "table" {
			found = s
			return false
		}
		return true
	})
	return found
}

func readGMPTable(tbl *goquery.Selection, values map[string]string) {
	hdr := tbl.Find("thead tr").First()
	if hdr.Length() == 0 {
		hdr = tbl.Find("tr").First()
	}
	headers := headerTexts(hdr)
	dateCol := indexOr(headers, "gmp date", 0)
	gmpCol := indexOr(headers, "gmp", 2)

	rows := tbl.Find("tbody tr")
	if rows.Length() == 0 {
		rows = tbl.Find("tr").Slice(1, goquery.ToEnd)
	}

	rows.EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		tds := tr.Find("td")
		if tds.Length() <= max(dateCol, gmpCol) {
			return true
		}
		dateCell := tds.Eq(dateCol)
		value, ok := firstSubmatch(gmpNumber, clean(flatten(tds.Eq(gmpCol), " ")))
		if !ok {
			return true
		}

		var badges []string
		dateCell.Find("span.badge, span[class*='badge'], div.badge").Each(func(_ int, b *goquery.Selection) {
			badges = append(badges, clean(flatten(b, " ")))
		})
		field := matchGMPEvent(badges)
		if field == "" {
			field = matchGMPEvent([]string{clean(flatten(dateCell, " "))})
		}
		if field == "" {
			return true
		}
		if _, seen := values[field]; !seen {
			values[field] = value
		}
		return len(values) < len(gmpTargets)
	})
}

func matchGMPEvent(texts []string) string {
	for _, t := range gmpTargets {
		for _, s := range texts {
			if t.label.MatchString(s) {
				return t.field
			}
		}
	}
	return ""
}

func headerTexts(row *goquery.Selection) []string {
	var out []string
	row.Find("th, td").Each(func(_ int, c *goquery.Selection) {
		out = append(out, strings.ToLower(clean(flatten(c, " "))))
	})
	return out
}

func indexOr(list []string, s string, def int) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return def
}

func contains(list []string, s string) bool {
	return indexOr(list, s, -1) >= 0
}
