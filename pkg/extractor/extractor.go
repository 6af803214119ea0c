// Package extractor turns downloaded IPO section pages into flat records of
// raw field values. Each section of an IPO page has its own extractor; all
// of them read the DOM directly and never normalize values, which is left
// to the cleaning stage.
package extractor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmylchreest/ipoetl/pkg/columns"
	"github.com/jmylchreest/ipoetl/pkg/table"
)

// Section names as they appear in the dataset layout.
const (
	SectionInformation  = "ipo_information"
	SectionFinancials   = "financials"
	SectionPerformance  = "performance_report"
	SectionGMP          = "gmp"
	SectionSubscription = "subscription"
)

// ErrUnsupportedSection is returned for a section without an extractor.
var ErrUnsupportedSection = errors.New("unsupported section")

// Extractor extracts the fields of one section page.
type Extractor interface {
	// Section returns the section this extractor handles.
	Section() string

	// Extract parses an HTML document. The returned record does not carry
	// the company key; ExtractFile adds it.
	Extract(html string) (*table.Record, error)
}

var registry = map[string]func() Extractor{
	SectionInformation:  func() Extractor { return NewInformation() },
	SectionFinancials:   func() Extractor { return NewFinancials() },
	SectionPerformance:  func() Extractor { return NewPerformance() },
	SectionGMP:          func() Extractor { return NewGMP() },
	SectionSubscription: func() Extractor { return NewSubscription() },
}

// ForSection returns the extractor for section.
func ForSection(section string) (Extractor, error) {
	f, ok := registry[section]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSection, section)
	}
	return f(), nil
}

// Sections lists every section with an extractor, sorted.
func Sections() []string {
	out := make([]string, 0, len(registry))
	for s := range registry {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// CompanyFromPath derives the company key from a page file name: the base
// name up to its first dot.
func CompanyFromPath(path string) string {
	base := filepath.Base(path)
	if i := strings.Index(base, "."); i >= 0 {
		return base[:i]
	}
	return base
}

// ExtractFile reads and extracts one page and sets the company key.
func ExtractFile(ex Extractor, path string) (*table.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	rec, err := ex.Extract(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	rec.Set(columns.Company, CompanyFromPath(path))
	return rec, nil
}
