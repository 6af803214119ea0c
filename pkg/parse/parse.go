// Package parse converts raw scraped strings into typed values.
//
// Every parser is total: malformed input never produces an error, it is
// reported as missing (ok == false) and left for the imputation stage.
package parse

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"
)

// NumericFunc parses a raw cell into a float.
type NumericFunc func(raw string) (float64, bool)

// TextFunc parses a raw cell into a normalized string.
type TextFunc func(raw string) (string, bool)

// placeholders are tokens the source uses for "not disclosed yet".
var placeholders = map[string]struct{}{
	"[●]":  {},
	"[•]":  {},
	"—":    {},
	"-":    {},
	"NA":   {},
	"N/A":  {},
	"null": {},
	"None": {},
	"":     {},
}

var (
	ordinalRx   = regexp.MustCompile(`(?i)(\d+)(st|nd|rd|th)\b`)
	moneyUnitRx = regexp.MustCompile(`(?i)\b(crore|cr|lakhs|lakh)\b\.?`)
	spaceRunRx  = regexp.MustCompile(`\s+`)
	nonSlugRx   = regexp.MustCompile(`[^a-z0-9_]+`)
	underRunRx  = regexp.MustCompile(`_+`)
)

// dateLayouts are tried in order before the lenient fallback.
var dateLayouts = []string{
	"2 January 2006",
	"2 Jan 2006",
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
}

// Missing normalizes a raw value. It returns the trimmed string and false
// when the value is a placeholder token.
func Missing(raw string) (string, bool) {
	s := strings.TrimSpace(normalizeSpaces(raw))
	if _, ok := placeholders[s]; ok {
		return "", false
	}
	return s, true
}

// Money parses Indian-notation amounts such as "₹ 356.19 Cr." or
// "₹ 25.5 Lakh". Results are expressed in crores; a lakh amount is divided
// by 100 and an amount with no unit is returned as written.
func Money(raw string) (float64, bool) {
	s, ok := Missing(raw)
	if !ok {
		return 0, false
	}

	s = strings.ToLower(s)
	divisor := 1.0
	if m := moneyUnitRx.FindStringSubmatch(s); m != nil && strings.HasPrefix(m[1], "lakh") {
		divisor = 100
	}
	s = moneyUnitRx.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if r == '₹' || r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0, false
	}

	v, ok := parseFloat(s)
	if !ok {
		return 0, false
	}
	return v / divisor, true
}

// Number parses a plain number with optional thousands separators.
func Number(raw string) (float64, bool) {
	s, ok := Missing(raw)
	if !ok {
		return 0, false
	}
	return parseFloat(strings.ReplaceAll(s, ",", ""))
}

// Percent parses "7.14%" or "7.14" into 7.14. The value stays a percentage,
// not a fraction.
func Percent(raw string) (float64, bool) {
	s, ok := Missing(raw)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	return parseFloat(strings.ReplaceAll(s, ",", ""))
}

// Date parses a disclosure date and returns it as YYYY-MM-DD. Ambiguous
// numeric dates are read day first.
func Date(raw string) (string, bool) {
	s, ok := Missing(raw)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(ordinalRx.ReplaceAllString(s, "$1"))

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.DateOnly), true
		}
	}

	t, err := dateparse.ParseAny(s, dateparse.PreferMonthFirst(false))
	if err != nil {
		return "", false
	}
	return t.Format(time.DateOnly), true
}

// Slug normalizes a company name into the join key form used for file names.
func Slug(raw string) (string, bool) {
	s, ok := Missing(raw)
	if !ok {
		return "", false
	}
	s = strings.ToLower(s)
	s = spaceRunRx.ReplaceAllString(s, "_")
	s = nonSlugRx.ReplaceAllString(s, "_")
	s = strings.Trim(underRunRx.ReplaceAllString(s, "_"), "_")
	if s == "" {
		return "", false
	}
	return s, true
}

// Text trims a value and collapses internal whitespace.
func Text(raw string) (string, bool) {
	s, ok := Missing(raw)
	if !ok {
		return "", false
	}
	return spaceRunRx.ReplaceAllString(s, " "), true
}

// ListText normalizes a joined list of items such as the objects of an
// issue. Item separators are preserved.
func ListText(raw string) (string, bool) {
	return Text(raw)
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// normalizeSpaces maps non-breaking spaces to plain ones so that scraped
// cells trim the same way as typed ones.
func normalizeSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\u00a0' || r == '\u202f' {
			return ' '
		}
		return r
	}, s)
}
