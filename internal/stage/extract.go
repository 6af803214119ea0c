package stage

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/ipoetl/internal/logger"
	"github.com/jmylchreest/ipoetl/pkg/columns"
	"github.com/jmylchreest/ipoetl/pkg/extractor"
	"github.com/jmylchreest/ipoetl/pkg/table"
)

// SectionExtract reports the extraction of one segment section.
type SectionExtract struct {
	Segment string
	Section string
	Pages   int
	Records int
	Failed  int
}

// Extract parses the downloaded pages of every segment section into
// raw/csv/<segment>/<section>.csv. Pages are parsed on a pool bounded by
// the fetch concurrency; a page that cannot be parsed is logged and
// skipped. Sections without an extractor and without pages are skipped.
func (p *Pipeline) Extract(ctx context.Context) ([]SectionExtract, error) {
	ctx = logger.WithStage(ctx, "extract")
	var out []SectionExtract
	for _, segment := range p.cfg.Segments {
		for _, section := range p.cfg.Sections {
			ex, err := extractor.ForSection(section)
			if errors.Is(err, extractor.ErrUnsupportedSection) {
				logger.WarnContext(ctx, "no extractor for section", "section", section)
				continue
			}
			if err != nil {
				return out, err
			}
			res, err := p.extractSection(ctx, ex, segment)
			if err != nil {
				return out, err
			}
			if res.Pages > 0 {
				out = append(out, res)
			}
		}
	}
	return out, nil
}

func (p *Pipeline) extractSection(ctx context.Context, ex extractor.Extractor, segment string) (SectionExtract, error) {
	res := SectionExtract{Segment: segment, Section: ex.Section()}
	pages, err := filepath.Glob(filepath.Join(p.layout.HTMLDir(segment, ex.Section()), "*.html"))
	if err != nil {
		return res, err
	}
	sort.Strings(pages)
	res.Pages = len(pages)
	if len(pages) == 0 {
		logger.DebugContext(ctx, "no pages", "segment", segment, "section", ex.Section())
		return res, nil
	}

	agg := table.NewAggregator(columns.Company)
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Fetch.Concurrency)
	for _, page := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := extractor.ExtractFile(ex, page)
			if err != nil {
				failed.Add(1)
				logger.WarnContext(ctx, "page skipped", "path", page, "error", err)
				return nil
			}
			agg.Add(rec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	res.Failed = int(failed.Load())
	res.Records = agg.Len()
	if res.Records == 0 {
		return res, nil
	}
	path := p.layout.RawSection(segment, ex.Section())
	if err := agg.Table().WriteCSVFile(path); err != nil {
		return res, err
	}
	logger.InfoContext(ctx, "section extracted", "segment", segment, "section", ex.Section(),
		"records", res.Records, "failed", res.Failed, "path", path)
	return res, nil
}
