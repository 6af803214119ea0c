package stage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jmylchreest/ipoetl/internal/logger"
	"github.com/jmylchreest/ipoetl/internal/version"
	"github.com/jmylchreest/ipoetl/pkg/table"
	"github.com/jmylchreest/ipoetl/pkg/transform"
)

// goldOptions treats an empty column list as unset, which selects every
// registered column.
func (p *Pipeline) goldOptions(ctx context.Context, dataset, dir string) transform.GoldOptions {
	var cols []string
	if len(p.cfg.Transform.Columns) > 0 {
		cols = p.cfg.Transform.Columns
	}
	return transform.GoldOptions{
		Dataset:   dataset,
		Dir:       dir,
		Columns:   cols,
		Mode:      p.mode,
		RunID:     logger.RunID(ctx),
		Generator: version.Generator(),
	}
}

// Gold fits and applies the transformations on every silver dataset and
// writes gold/<dataset>/.
func (p *Pipeline) Gold(ctx context.Context) ([]transform.Manifest, error) {
	ctx = logger.WithStage(ctx, "gold")
	var out []transform.Manifest
	for _, ds := range p.Datasets() {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		in := p.layout.Silver(ds)
		t, err := table.ReadCSVFile(in)
		if errors.Is(err, fs.ErrNotExist) {
			logger.WarnContext(ctx, "no silver dataset", "dataset", ds)
			continue
		}
		if err != nil {
			return out, err
		}
		res, err := p.tr.CreateGold(t, p.goldOptions(ctx, ds, p.layout.GoldDir(ds)))
		if err != nil {
			return out, fmt.Errorf("dataset %s: %w", ds, err)
		}
		out = append(out, res.Manifest)
	}
	if len(out) == 0 {
		return out, ErrNoInput
	}
	return out, nil
}

// ApplyRequest replays the artifacts of a gold dataset on another table.
type ApplyRequest struct {
	Input string // CSV to transform
	// Dataset names the artifacts under gold/ to replay.
	Dataset string
	// ArtifactDir overrides gold/<Dataset>.
	ArtifactDir string
	// OutDir receives the transformed table and its manifest; defaults to
	// applied/<Name>.
	OutDir string
	// Name of the output dataset; defaults to Dataset.
	Name string
	// Clean runs the column parsers over Input first, for raw extracted
	// records.
	Clean bool
}

// Apply transforms a new batch with previously fitted artifacts.
func (p *Pipeline) Apply(ctx context.Context, req ApplyRequest) (transform.Manifest, error) {
	ctx = logger.WithStage(ctx, "apply")
	t, err := table.ReadCSVFile(req.Input)
	if err != nil {
		return transform.Manifest{}, err
	}
	if req.Clean {
		t = CleanTable(t)
	}
	dataset := req.Dataset
	if dataset == "" {
		dataset = CombinedDataset
	}
	name := req.Name
	if name == "" {
		name = dataset
	}

	outDir := req.OutDir
	if outDir == "" {
		outDir = p.layout.AppliedDir(name)
	}
	opts := p.goldOptions(ctx, name, outDir)
	opts.ArtifactDir = req.ArtifactDir
	if opts.ArtifactDir == "" {
		opts.ArtifactDir = p.layout.GoldDir(dataset)
	}
	res, err := transform.ApplyGold(t, opts)
	if err != nil {
		return transform.Manifest{}, err
	}
	return res.Manifest, nil
}

// Summary reports a full pipeline run.
type Summary struct {
	Scrape  []SegmentScrape
	Extract []SectionExtract
	Clean   CleanStats
	Bronze  BronzeStats
	Silver  map[string]int
	Gold    []transform.Manifest
}

// RunOptions selects the stages of Run.
type RunOptions struct {
	// Scrape fetches listings and pages first. Without it Run starts from
	// the pages already on disk.
	Scrape        bool
	ScrapeOptions ScrapeOptions
}

// Run executes the stages in order and stops at the first error.
func (p *Pipeline) Run(ctx context.Context, src Sources, opts RunOptions) (*Summary, error) {
	s := &Summary{}
	var err error
	if opts.Scrape {
		if s.Scrape, err = p.Scrape(ctx, src, opts.ScrapeOptions); err != nil {
			return s, fmt.Errorf("scrape: %w", err)
		}
	}
	if s.Extract, err = p.Extract(ctx); err != nil {
		return s, fmt.Errorf("extract: %w", err)
	}
	if s.Clean, err = p.Clean(ctx); err != nil {
		return s, fmt.Errorf("clean: %w", err)
	}
	if s.Bronze, err = p.Bronze(ctx); err != nil {
		return s, fmt.Errorf("bronze: %w", err)
	}
	if s.Silver, err = p.Silver(ctx); err != nil {
		return s, fmt.Errorf("silver: %w", err)
	}
	if s.Gold, err = p.Gold(ctx); err != nil {
		return s, fmt.Errorf("gold: %w", err)
	}
	return s, nil
}
