package commands

import (
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/ipoetl/internal/output"
	"github.com/jmylchreest/ipoetl/internal/stage"
	"github.com/jmylchreest/ipoetl/pkg/columns"
	"github.com/jmylchreest/ipoetl/pkg/table"
	"github.com/jmylchreest/ipoetl/pkg/transform"
)

func scrapeReport(res []stage.SegmentScrape) *output.Report {
	r := output.NewReport("scrape", "segment", "listed", "failed_pages", "saved", "skipped", "failed")
	for _, s := range res {
		r.Add(s.Segment, s.Listed, s.FailedPages, s.Downloads.Saved, s.Downloads.Skipped, s.Downloads.Failed)
	}
	return r
}

func extractReport(res []stage.SectionExtract) *output.Report {
	r := output.NewReport("extract", "segment", "section", "pages", "records", "failed")
	for _, s := range res {
		r.Add(s.Segment, s.Section, s.Pages, s.Records, s.Failed)
	}
	return r
}

func cleanReport(s stage.CleanStats) *output.Report {
	r := output.NewReport("clean", "files", "rows")
	r.Add(s.Files, humanize.Comma(int64(s.Rows)))
	return r
}

func combineReport(bronze stage.BronzeStats, silver map[string]int) *output.Report {
	r := output.NewReport("combine", "dataset", "bronze_rows", "silver_rows")
	names := make([]string, 0, len(bronze))
	for name := range bronze {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		var s any
		if n, ok := silver[name]; ok {
			s = n
		}
		r.Add(name, bronze[name], s)
	}
	return r
}

func goldReport(title string, ms []transform.Manifest) *output.Report {
	r := output.NewReport(title, "dataset", "kind", "input_rows", "output_rows", "columns", "indicators", "outlier_mode", "run_id")
	for _, m := range ms {
		r.Add(m.Dataset, m.Kind, m.InputRows, m.OutputRows, len(m.Columns), len(m.Indicators), m.OutlierMode, m.RunID)
	}
	return r
}

// artifactReport lays the three fitted artifacts out one row per column.
func artifactReport(dataset string, reg *columns.Registry, imp transform.ImputationArtifacts, out transform.OutlierArtifacts, norm transform.NormalizationArtifacts) *output.Report {
	r := output.NewReport("artifacts "+dataset,
		"column", "strategy", "fill", "bounds", "hard_clip", "scaling")

	seen := map[string]bool{}
	var names []string
	add := func(keys ...string) {
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	add(sortedKeys(imp.Medians)...)
	add(imp.ZeroFill.Sorted()...)
	add(sortedKeys(out.PctlBounds)...)
	add(sortedKeys(out.IQRBounds)...)
	add(sortedKeys(out.HardClip)...)
	add(sortedKeys(norm.Log1pShift)...)
	add(sortedKeys(norm.RobustIQR)...)
	add(sortedKeys(norm.MinMaxMin)...)
	sort.Strings(names)

	for _, c := range names {
		s := reg.Strategy(c)
		r.Add(c,
			strings.Join([]string{string(s.Imputer), string(s.Outlier), string(s.Normalization)}, "/"),
			fillCell(c, imp),
			boundsCell(c, out),
			hardClipCell(out.HardClip[c]),
			scalingCell(c, norm),
		)
	}
	return r
}

func fillCell(c string, imp transform.ImputationArtifacts) string {
	var fill string
	switch {
	case imp.ZeroFill.Has(c):
		fill = "0"
	default:
		if m, ok := imp.Medians[c]; ok {
			fill = "median " + num(m)
		}
	}
	if imp.AddMissingIndicator.Has(c) {
		fill += " +indicator"
	}
	return strings.TrimSpace(fill)
}

func boundsCell(c string, out transform.OutlierArtifacts) string {
	if b, ok := out.PctlBounds[c]; ok {
		return "pctl [" + num(b.Low()) + ", " + num(b.High()) + "]"
	}
	if b, ok := out.IQRBounds[c]; ok {
		return "iqr [" + num(b.Low()) + ", " + num(b.High()) + "]"
	}
	return ""
}

func hardClipCell(h transform.HardClip) string {
	if h[0] == nil && h[1] == nil {
		return ""
	}
	side := func(p *float64) string {
		if p == nil {
			return "open"
		}
		return num(*p)
	}
	return "[" + side(h[0]) + ", " + side(h[1]) + "]"
}

func scalingCell(c string, norm transform.NormalizationArtifacts) string {
	if shift, ok := norm.Log1pShift[c]; ok {
		return "log1p shift " + num(shift)
	}
	if iqr, ok := norm.RobustIQR[c]; ok {
		return "robust_z median " + num(norm.RobustMedian[c]) + " iqr " + num(iqr)
	}
	if lo, ok := norm.MinMaxMin[c]; ok {
		return "minmax [" + num(lo) + ", " + num(norm.MinMaxMax[c]) + "]"
	}
	return ""
}

func num(v float64) string {
	return table.FormatFloat(v)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func newExportReport() *output.Report {
	return output.NewReport("export", "dataset", "table", "rows", "columns", "run_id")
}

// summaryReports lists the reports of the stages a run got through.
func summaryReports(s *stage.Summary) []*output.Report {
	var out []*output.Report
	if len(s.Scrape) > 0 {
		out = append(out, scrapeReport(s.Scrape))
	}
	if len(s.Extract) > 0 {
		out = append(out, extractReport(s.Extract))
	}
	if s.Clean.Files > 0 {
		out = append(out, cleanReport(s.Clean))
	}
	if len(s.Bronze) > 0 {
		out = append(out, combineReport(s.Bronze, s.Silver))
	}
	if len(s.Gold) > 0 {
		out = append(out, goldReport("gold", s.Gold))
	}
	return out
}
