package crawler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmylchreest/ipoetl/internal/logger"
	"github.com/jmylchreest/ipoetl/pkg/fetcher"
	"github.com/jmylchreest/ipoetl/pkg/table"
)

// Listing columns a row must carry.
const (
	ColumnCompanyName = "company_name"
	ColumnBaseURL     = "base_url"
)

// Section describes how to locate one section page of a listed IPO.
type Section struct {
	Name string
	// Path is a URL template. {base_url} and any {listing_column} are
	// replaced with the row's values.
	Path string
	// Key names a listing column that holds an absolute URL for the
	// section, fetched with the external fetcher.
	Key string
}

// Config holds downloader configuration.
type Config struct {
	BaseURL     string
	HTMLRoot    string // raw/html
	Sections    []Section
	Concurrency int
	Delay       time.Duration // Delay before each request
}

// DefaultConfig returns sensible downloader defaults.
func DefaultConfig() Config {
	return Config{Concurrency: 5}
}

// Stats counts the outcome of a download run.
type Stats struct {
	Queued  int
	Saved   int
	Skipped int
	Failed  int
}

// Downloader fetches section pages for listing rows and stores them as
// raw/html/<segment>/<section>/<company>.html.
type Downloader struct {
	pages    fetcher.Fetcher
	external fetcher.Fetcher
	config   Config
}

// New creates a downloader. external may be nil when no section uses Key.
func New(pages, external fetcher.Fetcher, cfg Config) *Downloader {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	return &Downloader{pages: pages, external: external, config: cfg}
}

// FileName maps a company name to its page file name.
func FileName(company string) string {
	return strings.ReplaceAll(strings.ToLower(company), " ", "_") + ".html"
}

// Plan queues one job per row and section. Rows without a company name are
// skipped.
func (d *Downloader) Plan(segment string, listing *table.Table, q *JobQueue) int {
	added := 0
	names := listing.Names()
	for i := 0; i < listing.Len(); i++ {
		row := listing.Row(i)
		vars := make(map[string]string, len(names)+1)
		for j, name := range names {
			vars[name] = row[j]
		}
		vars[ColumnBaseURL] = d.config.BaseURL

		company := vars[ColumnCompanyName]
		if company == "" {
			logger.Warn("listing row without company name", "segment", segment, "row", i)
			continue
		}

		for _, s := range d.config.Sections {
			path := filepath.Join(d.config.HTMLRoot, segment, s.Name, FileName(company))
			if s.Path != "" {
				if q.Add(Job{Segment: segment, Section: s.Name, Company: company, URL: expand(s.Path, vars), Path: path}) {
					added++
				}
			}
			if s.Key != "" && vars[s.Key] != "" {
				if q.Add(Job{Segment: segment, Section: s.Name, Company: company, URL: vars[s.Key], Path: path, External: true}) {
					added++
				}
			}
		}
	}
	return added
}

// Run drains the queue on a bounded pool. Existing files are skipped and
// failures are logged and counted; neither stops the run.
func (d *Downloader) Run(ctx context.Context, q *JobQueue) Stats {
	var saved, skipped, failed atomic.Int64
	stats := Stats{Queued: q.Len()}

	logger.Debug("downloader starting", "jobs", stats.Queued, "concurrency", d.config.Concurrency)

	sem := make(chan struct{}, d.config.Concurrency)
	var wg sync.WaitGroup

	for {
		if ctx.Err() != nil {
			break
		}
		job, ok := q.Pop()
		if !ok {
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			defer func() { <-sem }()

			switch err := d.process(ctx, job); {
			case errors.Is(err, errExists):
				skipped.Add(1)
			case err != nil:
				failed.Add(1)
				logger.Warn("download failed", "section", job.Section, "company", job.Company, "url", job.URL, "error", err)
			default:
				saved.Add(1)
			}
		}(job)
	}
	wg.Wait()

	stats.Saved = int(saved.Load())
	stats.Skipped = int(skipped.Load())
	stats.Failed = int(failed.Load())
	logger.Info("download complete", "saved", stats.Saved, "skipped", stats.Skipped, "failed", stats.Failed)
	return stats
}

// Download plans and runs the jobs for one segment listing.
func (d *Downloader) Download(ctx context.Context, segment string, listing *table.Table) Stats {
	q := NewJobQueue()
	d.Plan(segment, listing, q)
	return d.Run(ctx, q)
}

var errExists = errors.New("page already downloaded")

func (d *Downloader) process(ctx context.Context, job Job) error {
	if _, err := os.Stat(job.Path); err == nil {
		logger.Debug("page exists, skipping", "path", job.Path)
		return errExists
	}

	f := d.pages
	if job.External {
		f = d.external
	}
	if f == nil {
		return fmt.Errorf("no fetcher for %s", job.URL)
	}

	if d.config.Delay > 0 {
		select {
		case <-time.After(d.config.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	start := time.Now()
	content, err := f.Fetch(ctx, job.URL, fetcher.Options{})
	if err != nil {
		return err
	}
	if content.HTML == "" {
		return fmt.Errorf("empty page from %s", job.URL)
	}

	if err := os.MkdirAll(filepath.Dir(job.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(job.Path, []byte(content.HTML), 0o644); err != nil {
		return fmt.Errorf("failed to save page: %w", err)
	}
	logger.Info("saved page", "path", job.Path, "fetch", time.Since(start).Round(time.Millisecond))
	return nil
}

// expand substitutes {name} placeholders.
func expand(pattern string, vars map[string]string) string {
	pairs := make([]string, 0, 2*len(vars))
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(pattern)
}
