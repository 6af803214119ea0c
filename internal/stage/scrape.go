package stage

import (
	"context"
	"fmt"
	"os"

	"github.com/jmylchreest/ipoetl/internal/crawler"
	"github.com/jmylchreest/ipoetl/internal/logger"
	"github.com/jmylchreest/ipoetl/pkg/fetcher"
	"github.com/jmylchreest/ipoetl/pkg/table"
)

// ListingSource returns the listing rows of a segment.
type ListingSource interface {
	Fetch(ctx context.Context, req fetcher.ListingRequest) (fetcher.ListingResult, error)
}

// Sources are the network clients used by Scrape. External may be nil
// when no section is located through a listing column.
type Sources struct {
	Listing  ListingSource
	Pages    fetcher.Fetcher
	External fetcher.Fetcher
}

// ScrapeOptions tunes Scrape.
type ScrapeOptions struct {
	// ReuseListing downloads pages for a listing CSV already on disk
	// instead of fetching the listing again.
	ReuseListing bool
}

// SegmentScrape reports the scrape of one segment.
type SegmentScrape struct {
	Segment     string
	Listed      int
	FailedPages int
	Downloads   crawler.Stats
}

// Scrape fetches the listing of every segment into raw/csv/<segment>.csv
// and downloads each configured section page of every listed IPO.
func (p *Pipeline) Scrape(ctx context.Context, src Sources, opts ScrapeOptions) ([]SegmentScrape, error) {
	if err := p.cfg.ValidateScrape(); err != nil {
		return nil, err
	}
	ctx = logger.WithStage(ctx, "scrape")

	d := crawler.New(src.Pages, src.External, p.crawlerConfig())
	var out []SegmentScrape
	for _, segment := range p.cfg.Segments {
		res, listing, err := p.listing(ctx, src.Listing, segment, opts)
		if err != nil {
			return out, err
		}
		res.Downloads = d.Download(ctx, segment, listing)
		out = append(out, res)
		if err := ctx.Err(); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (p *Pipeline) listing(ctx context.Context, src ListingSource, segment string, opts ScrapeOptions) (SegmentScrape, *table.Table, error) {
	res := SegmentScrape{Segment: segment}
	path := p.layout.Listing(segment)

	if opts.ReuseListing {
		if _, err := os.Stat(path); err == nil {
			t, err := table.ReadCSVFile(path)
			if err != nil {
				return res, nil, err
			}
			res.Listed = t.Len()
			logger.InfoContext(ctx, "reusing listing", "segment", segment, "rows", t.Len())
			return res, t, nil
		}
	}
	if src == nil {
		return res, nil, fmt.Errorf("segment %s: %w: no listing source", segment, ErrNoInput)
	}

	api := p.cfg.SegmentsAPI[segment]
	lr, err := src.Fetch(ctx, fetcher.ListingRequest{
		PageURL: p.cfg.Expand(api.PageURL),
		APIURL:  p.cfg.Expand(api.APIURL),
		Params:  api.Params,
		Pages:   api.Pages,
		Fields:  api.Fields,
	})
	if err != nil {
		return res, nil, fmt.Errorf("segment %s listing: %w", segment, err)
	}
	if len(lr.Failed) > 0 {
		logger.WarnContext(ctx, "some listing pages failed", "segment", segment, "failed", len(lr.Failed))
	}

	t := table.FromRecords("", lr.Rows)
	if err := t.WriteCSVFile(path); err != nil {
		return res, nil, err
	}
	res.Listed = t.Len()
	res.FailedPages = len(lr.Failed)
	logger.InfoContext(ctx, "listing saved", "segment", segment, "rows", t.Len(), "path", path)
	return res, t, nil
}

func (p *Pipeline) crawlerConfig() crawler.Config {
	sections := make([]crawler.Section, 0, len(p.cfg.Sections))
	for _, name := range p.cfg.Sections {
		api := p.cfg.SectionsAPI[name]
		sections = append(sections, crawler.Section{
			Name: name,
			Path: p.cfg.Expand(api.Path),
			Key:  api.Key,
		})
	}
	return crawler.Config{
		BaseURL:     p.cfg.BaseURL,
		HTMLRoot:    p.layout.HTMLRoot(),
		Sections:    sections,
		Concurrency: p.cfg.Fetch.Concurrency,
		Delay:       p.cfg.Fetch.Delay,
	}
}
