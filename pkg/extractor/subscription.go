package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/ipoetl/pkg/table"
)

var (
	categoryStars  = regexp.MustCompile(`\*+`)
	categoryBullet = regexp.MustCompile(`^\s*[-–•]+`)
	niiWord        = regexp.MustCompile(`\bnii\b`)
	nonSlugChars   = regexp.MustCompile(`[^a-z0-9]+`)
	underscoreRun  = regexp.MustCompile(`_+`)
)

var (
	subscriptionTotals = map[string]bool{"total": true, "total subscription": true, "total ipo subscription": true}
	allocationTotals   = map[string]bool{"total": true, "total allocation": true}
)

// headerScanRows bounds how far into a table the header row is searched.
const headerScanRows = 6

// Subscription extracts category-wise subscription multiples and the share
// of the issue reserved for each category.
type Subscription struct{}

// NewSubscription returns a subscription extractor.
func NewSubscription() *Subscription { return &Subscription{} }

func (*Subscription) Section() string { return SectionSubscription }

// Extract emits subscription_<category> for the first table with a
// "subscription (times)" column and allocation_<category> for the first
// table with a size or allocation percentage column.
func (*Subscription) Extract(doc string) (*table.Record, error) {
	d, err := parse(doc)
	if err != nil {
		return nil, err
	}

	rec := table.NewRecord()
	categoryTable(d, rec, "subscription_", subscriptionTotals, func(h string) bool {
		return strings.Contains(h, "subscription") && strings.Contains(h, "time")
	})
	categoryTable(d, rec, "allocation_", allocationTotals, func(h string) bool {
		return strings.Contains(h, "%") &&
			(strings.Contains(h, "size") || strings.Contains(h, "allocation") || strings.Contains(h, "issue"))
	})
	return rec, nil
}

// categoryTable scans tables for one with a category column and a value
// column accepted by isValue, and records every category row of the first
// table that yields at least one value.
func categoryTable(d *goquery.Document, rec *table.Record, prefix string, totals map[string]bool, isValue func(string) bool) {
	d.Find("table").EachWithBreak(func(_ int, tbl *goquery.Selection) bool {
		rows := tbl.Find("tr")
		hdrIdx, headers := findHeaderRow(rows)
		if headers == nil {
			return true
		}

		catCol, valCol := -1, -1
		for i, h := range headers {
			h = strings.ToLower(h)
			if catCol < 0 && strings.Contains(h, "category") {
				catCol = i
			}
			if valCol < 0 && isValue(h) {
				valCol = i
			}
		}
		if catCol < 0 || valCol < 0 {
			return true
		}

		found := false
		rows.Slice(hdrIdx+1, goquery.ToEnd).Each(func(_ int, tr *goquery.Selection) {
			var cells []string
			tr.Find("td, th").Each(func(_ int, c *goquery.Selection) {
				cells = append(cells, cellText(c))
			})
			if len(cells) <= max(catCol, valCol) {
				return
			}
			category := normalizeCategory(cells[catCol])
			if category == "" || totals[strings.ToLower(category)] {
				return
			}
			if cells[valCol] == "" {
				return
			}
			rec.Set(prefix+categoryKey(category), cells[valCol])
			found = true
		})
		return !found
	})
}

// findHeaderRow returns the index and cell texts of the first of the
// leading rows that names a category column or mentions subscription,
// size or a percentage.
func findHeaderRow(rows *goquery.Selection) (int, []string) {
	idx := -1
	var headers []string
	rows.EachWithBreak(func(i int, tr *goquery.Selection) bool {
		if i >= headerScanRows {
			return false
		}
		var cells []string
		tr.Find("th, td").Each(func(_ int, c *goquery.Selection) {
			cells = append(cells, cellText(c))
		})
		if len(cells) == 0 {
			return true
		}
		joined := strings.ToLower(strings.Join(cells, " | "))
		if len(cells) >= 2 && anyContains(cells, "category") ||
			strings.Contains(joined, "subscription") ||
			strings.Contains(joined, "size") ||
			strings.Contains(joined, "%") {
			idx, headers = i, cells
			return false
		}
		return true
	})
	return idx, headers
}

func anyContains(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(strings.ToLower(s), sub) {
			return true
		}
	}
	return false
}

// normalizeCategory strips footnote stars and leading bullets.
func normalizeCategory(s string) string {
	s = categoryStars.ReplaceAllString(clean(s), "")
	s = strings.TrimSpace(categoryBullet.ReplaceAllString(s, ""))
	return clean(s)
}

// categoryKey maps a category label to a stable key. Common investor
// buckets collapse to fixed names; NII tiers, retail variants and anything
// unrecognised keep a slug of their label.
func categoryKey(label string) string {
	raw := normalizeCategory(label)
	low := strings.ToLower(raw)
	has := func(s string) bool { return strings.Contains(low, s) }

	switch {
	case has("anchor"):
		return "anchor_investors"
	case has("qib"):
		if has("ex") && has("anchor") {
			return "qib_ex_anchor"
		}
		return "qib"
	case has("retail") || has("rii"):
		return slugify(raw)
	case has("non-institutional") || has("non institutional") || niiWord.MatchString(low):
		tenLakh := has("10l") || has("10 l") || has("10lac") || has("10 lakh")
		if has("bnii") || (has("above") && tenLakh) {
			return slugify(raw)
		}
		if has("snii") || (has("below") && tenLakh) {
			return slugify(raw)
		}
		return "non_institutional_buyers"
	case has("employee"):
		return "employees"
	case has("shareholder"):
		return "shareholders"
	}
	return slugify(raw)
}

func slugify(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.ReplaceAll(s, "₹", "")
	s = nonSlugChars.ReplaceAllString(s, "_")
	return strings.Trim(underscoreRun.ReplaceAllString(s, "_"), "_")
}
