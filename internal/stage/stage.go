// Package stage sequences the ipoetl pipeline over a dataset root:
// scrape, extract, clean, bronze, silver and gold. Each stage reads the
// files the previous one wrote, so any of them can be re-run on its own.
package stage

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/jmylchreest/ipoetl/internal/config"
	"github.com/jmylchreest/ipoetl/pkg/columns"
	"github.com/jmylchreest/ipoetl/pkg/transform"
)

// CombinedDataset is the dataset that spans every segment.
const CombinedDataset = "combined"

var (
	// ErrMissingJoinKey is returned when a table lacks a column it must be
	// joined or deduplicated on.
	ErrMissingJoinKey = errors.New("missing join key")

	// ErrNoInput is returned when a stage finds nothing to read.
	ErrNoInput = errors.New("no input")
)

// Layout resolves paths under a dataset root.
type Layout struct {
	Root string
}

// Listing is the listing CSV of a segment.
func (l Layout) Listing(segment string) string {
	return filepath.Join(l.Root, "raw", "csv", segment+".csv")
}

// HTMLRoot holds downloaded pages as <segment>/<section>/<company>.html.
func (l Layout) HTMLRoot() string {
	return filepath.Join(l.Root, "raw", "html")
}

// HTMLDir holds the pages of one segment section.
func (l Layout) HTMLDir(segment, section string) string {
	return filepath.Join(l.HTMLRoot(), segment, section)
}

// RawSection is the extracted CSV of a segment section.
func (l Layout) RawSection(segment, section string) string {
	return filepath.Join(l.Root, "raw", "csv", segment, section+".csv")
}

// CleanDir holds the cleaned section CSVs of a segment.
func (l Layout) CleanDir(segment string) string {
	return filepath.Join(l.Root, "processed", "csv", segment)
}

// CleanSection is the cleaned CSV of a segment section.
func (l Layout) CleanSection(segment, section string) string {
	return filepath.Join(l.CleanDir(segment), section+".csv")
}

// Bronze is the joined CSV of a segment, or of every segment for
// CombinedDataset.
func (l Layout) Bronze(dataset string) string {
	return filepath.Join(l.Root, "processed", "csv", "combined", dataset+".csv")
}

// Silver is the collision-resolved CSV of a dataset.
func (l Layout) Silver(dataset string) string {
	return filepath.Join(l.Root, "processed", "silver", dataset+".csv")
}

// GoldDir receives the gold table and artifacts of a dataset.
func (l Layout) GoldDir(dataset string) string {
	return filepath.Join(l.Root, "gold", dataset)
}

// AppliedDir receives a batch transformed with saved gold artifacts.
func (l Layout) AppliedDir(name string) string {
	return filepath.Join(l.Root, "applied", name)
}

// Pipeline runs stages for one configuration.
type Pipeline struct {
	cfg    *config.Config
	layout Layout
	tr     *transform.Transformer
	mode   transform.Mode
}

// New creates a pipeline. The configuration must be valid.
func New(cfg *config.Config) (*Pipeline, error) {
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	mode, err := transform.ParseMode(cfg.Transform.OutlierMode)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:    cfg,
		layout: Layout{Root: cfg.DatasetRoot},
		tr:     transform.New(reg, transform.WithStrictMedians(cfg.Transform.StrictMedians)),
		mode:   mode,
	}, nil
}

// Layout returns the dataset layout.
func (p *Pipeline) Layout() Layout { return p.layout }

// Registry returns the column registry in use.
func (p *Pipeline) Registry() *columns.Registry { return p.tr.Registry() }

// Datasets lists the bronze, silver and gold datasets: the combined one
// followed by each segment.
func (p *Pipeline) Datasets() []string {
	return append([]string{CombinedDataset}, p.cfg.Segments...)
}

func missingKey(path, key string) error {
	return fmt.Errorf("%s: %w: %s", path, ErrMissingJoinKey, key)
}
