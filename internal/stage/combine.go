package stage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmylchreest/ipoetl/internal/logger"
	"github.com/jmylchreest/ipoetl/pkg/columns"
	"github.com/jmylchreest/ipoetl/pkg/table"
)

// OpenDate completes the company key when segments are combined: the same
// company may list more than once.
const OpenDate = "open_date"

// JoinSections left-joins section tables on company in the order given and
// keeps the first row per company.
func JoinSections(sections []*table.Table) (*table.Table, error) {
	if len(sections) == 0 {
		return nil, ErrNoInput
	}
	out := sections[0]
	if !out.Has(columns.Company) {
		return nil, fmt.Errorf("section 1: %w: %s", ErrMissingJoinKey, columns.Company)
	}
	for i, t := range sections[1:] {
		if !t.Has(columns.Company) {
			return nil, fmt.Errorf("section %d: %w: %s", i+2, ErrMissingJoinKey, columns.Company)
		}
		var err error
		if out, err = table.LeftJoin(out, t, columns.Company); err != nil {
			return nil, err
		}
	}
	return out.Dedupe(columns.Company)
}

// CombineSegments stacks segment tables and keeps the first row per
// company and open date.
func CombineSegments(segments []*table.Table) (*table.Table, error) {
	out := table.Concat(segments...)
	for _, key := range []string{columns.Company, OpenDate} {
		if !out.Has(key) {
			return nil, fmt.Errorf("combine: %w: %s", ErrMissingJoinKey, key)
		}
	}
	return out.Dedupe(columns.Company, OpenDate)
}

// BronzeStats counts the rows of each bronze dataset.
type BronzeStats map[string]int

// Bronze joins the cleaned sections of each segment into
// processed/csv/combined/<segment>.csv and stacks the segments into
// combined.csv. Section files are joined in name order.
func (p *Pipeline) Bronze(ctx context.Context) (BronzeStats, error) {
	ctx = logger.WithStage(ctx, "bronze")
	stats := BronzeStats{}
	var segments []*table.Table
	for _, segment := range p.cfg.Segments {
		files, err := filepath.Glob(filepath.Join(p.layout.CleanDir(segment), "*.csv"))
		if err != nil {
			return stats, err
		}
		if len(files) == 0 {
			logger.WarnContext(ctx, "segment has no cleaned sections", "segment", segment)
			continue
		}
		sort.Strings(files)

		sections := make([]*table.Table, 0, len(files))
		for _, f := range files {
			t, err := table.ReadCSVFile(f)
			if err != nil {
				return stats, err
			}
			if !t.Has(columns.Company) {
				return stats, missingKey(f, columns.Company)
			}
			sections = append(sections, t)
		}
		joined, err := JoinSections(sections)
		if err != nil {
			return stats, fmt.Errorf("segment %s: %w", segment, err)
		}
		if err := joined.WriteCSVFile(p.layout.Bronze(segment)); err != nil {
			return stats, err
		}
		stats[segment] = joined.Len()
		segments = append(segments, joined)
		logger.InfoContext(ctx, "segment combined", "segment", segment, "sections", len(files), "rows", joined.Len())
	}
	if len(segments) == 0 {
		return stats, ErrNoInput
	}

	combined, err := CombineSegments(segments)
	if err != nil {
		return stats, err
	}
	if err := combined.WriteCSVFile(p.layout.Bronze(CombinedDataset)); err != nil {
		return stats, err
	}
	stats[CombinedDataset] = combined.Len()
	logger.InfoContext(ctx, "bronze complete", "rows", combined.Len())
	return stats, nil
}

// silverRenames resolves the columns that more than one section reports.
// The left copy wins.
var silverRenames = map[string]string{
	"market_capitalisation" + table.LeftSuffix: "market_capitalisation",
	"pe_multiple" + table.LeftSuffix:           "pe_multiple",
	"issue_price" + table.LeftSuffix:           "issue_price",
}

// SilverTable applies the collision rules to a bronze table: the known
// left copies take the base name and every right copy is dropped.
func SilverTable(t *table.Table) (*table.Table, error) {
	rename := map[string]string{}
	var drop []string
	for _, name := range t.Names() {
		if to, ok := silverRenames[name]; ok && !t.Has(to) {
			rename[name] = to
		}
		if strings.HasSuffix(name, table.RightSuffix) {
			drop = append(drop, name)
		}
	}
	return t.Drop(drop...).Rename(rename)
}

// Silver writes processed/silver/<dataset>.csv for every bronze dataset.
func (p *Pipeline) Silver(ctx context.Context) (map[string]int, error) {
	ctx = logger.WithStage(ctx, "silver")
	stats := map[string]int{}
	for _, ds := range p.Datasets() {
		in := p.layout.Bronze(ds)
		t, err := table.ReadCSVFile(in)
		if errors.Is(err, fs.ErrNotExist) {
			logger.WarnContext(ctx, "no bronze dataset", "dataset", ds)
			continue
		}
		if err != nil {
			return stats, err
		}
		s, err := SilverTable(t)
		if err != nil {
			return stats, fmt.Errorf("%s: %w", in, err)
		}
		if err := s.WriteCSVFile(p.layout.Silver(ds)); err != nil {
			return stats, err
		}
		stats[ds] = s.Len()
		logger.DebugContext(ctx, "silver written", "dataset", ds, "rows", s.Len(), "columns", s.Width())
	}
	if len(stats) == 0 {
		return stats, ErrNoInput
	}
	return stats, nil
}
