package transform

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/jmylchreest/ipoetl/internal/logger"
	"github.com/jmylchreest/ipoetl/pkg/table"
)

// ManifestFile is the run summary written next to the gold artifacts.
const ManifestFile = "manifest.json"

// Run kinds recorded in a manifest.
const (
	RunFit   = "fit"
	RunApply = "apply"
)

// GoldOptions configures a gold run for one dataset.
type GoldOptions struct {
	// Dataset names the output, e.g. "combined" or "mainboard".
	Dataset string

	// Dir receives <dataset>.csv, the three artifact files and the
	// manifest. ApplyGold reads artifacts from ArtifactDir instead when set.
	Dir         string
	ArtifactDir string

	// Columns restricts the targets. Nil selects every registered column
	// the table has.
	Columns []string

	// Mode is the outlier mode used when applying (default clip).
	Mode Mode

	// RunID and Generator are copied into the manifest. An empty RunID
	// gets a fresh uuid.
	RunID     string
	Generator string
}

func (o GoldOptions) mode() Mode {
	if o.Mode == "" {
		return ModeClip
	}
	return o.Mode
}

func (o GoldOptions) artifactDir() string {
	if o.ArtifactDir != "" {
		return o.ArtifactDir
	}
	return o.Dir
}

// TablePath returns the gold CSV path.
func (o GoldOptions) TablePath() string {
	return filepath.Join(o.Dir, o.Dataset+".csv")
}

// Manifest summarizes a gold run.
type Manifest struct {
	RunID       string    `json:"run_id"`
	Kind        string    `json:"kind"`
	Dataset     string    `json:"dataset"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	InputRows   int       `json:"input_rows"`
	OutputRows  int       `json:"output_rows"`
	OutlierMode Mode      `json:"outlier_mode"`
	Columns     []string  `json:"columns"`
	Indicators  []string  `json:"indicators,omitempty"`
	Generator   string    `json:"generator,omitempty"`
}

// Save writes the manifest as indented JSON.
func (m Manifest) Save(path string) error { return saveJSON(path, m) }

// LoadManifest reads a manifest written by Manifest.Save.
func LoadManifest(path string) (Manifest, error) {
	var m Manifest
	err := loadJSON(path, &m)
	return m, err
}

// GoldResult is the outcome of a gold run.
type GoldResult struct {
	Table         *table.Table
	Imputation    ImputationArtifacts
	Outliers      OutlierArtifacts
	Normalization NormalizationArtifacts
	Manifest      Manifest
}

// CreateGold fits all three artifacts on t, persists each as soon as it is
// fitted, then applies them in order (impute, outliers, normalize) and
// writes the gold table and manifest.
func (tr *Transformer) CreateGold(t *table.Table, opts GoldOptions) (*GoldResult, error) {
	mode := opts.mode()
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	started := time.Now().UTC()
	cols := tr.Select(t, opts.Columns)
	log := logger.With("dataset", opts.Dataset)
	log.Info("creating gold dataset", "rows", t.Len(), "columns", len(cols))

	imp, err := tr.FitImputer(t, cols)
	if err != nil {
		return nil, fmt.Errorf("fit imputer: %w", err)
	}
	if err := imp.Save(filepath.Join(opts.Dir, ImputationFile)); err != nil {
		return nil, err
	}

	out := tr.FitOutliers(t, cols)
	if err := out.Save(filepath.Join(opts.Dir, OutliersFile)); err != nil {
		return nil, err
	}

	norm := tr.FitNormalizer(t, cols)
	if err := norm.Save(filepath.Join(opts.Dir, NormalizationFile)); err != nil {
		return nil, err
	}

	res, err := apply(t, cols, imp, out, norm, mode)
	if err != nil {
		return nil, err
	}
	res.Manifest = newManifest(RunFit, opts, started, t.Len(), res.Table.Len(), cols, imp)
	if err := persist(res, opts); err != nil {
		return nil, err
	}
	log.Info("gold dataset written", "path", opts.TablePath(), "rows", res.Table.Len(), "run_id", res.Manifest.RunID)
	return res, nil
}

// ApplyGold replays artifacts saved by an earlier CreateGold on t without
// fitting anything. A missing or malformed artifact is an error. Without
// explicit Columns the fitted column list is read from the manifest; only a
// missing manifest falls back to every column of t.
func ApplyGold(t *table.Table, opts GoldOptions) (*GoldResult, error) {
	mode := opts.mode()
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	started := time.Now().UTC()
	dir := opts.artifactDir()

	imp, err := LoadImputation(filepath.Join(dir, ImputationFile))
	if err != nil {
		return nil, err
	}
	out, err := LoadOutliers(filepath.Join(dir, OutliersFile))
	if err != nil {
		return nil, err
	}
	norm, err := LoadNormalization(filepath.Join(dir, NormalizationFile))
	if err != nil {
		return nil, err
	}

	cols := opts.Columns
	if cols == nil {
		m, err := LoadManifest(filepath.Join(dir, ManifestFile))
		switch {
		case err == nil:
			cols = m.Columns
			if cols == nil {
				cols = []string{}
			}
		case !errors.Is(err, fs.ErrNotExist):
			return nil, err
		}
	}
	cols = present(t, cols)

	res, err := apply(t, cols, imp, out, norm, mode)
	if err != nil {
		return nil, err
	}
	res.Manifest = newManifest(RunApply, opts, started, t.Len(), res.Table.Len(), cols, imp)
	if err := persist(res, opts); err != nil {
		return nil, err
	}
	logger.Info("applied gold artifacts", "dataset", opts.Dataset, "artifacts", dir, "rows", res.Table.Len())
	return res, nil
}

func apply(t *table.Table, cols []string, imp ImputationArtifacts, out OutlierArtifacts, norm NormalizationArtifacts, mode Mode) (*GoldResult, error) {
	selected := t.Select(cols...)

	g, err := Impute(imp, selected, cols)
	if err != nil {
		return nil, fmt.Errorf("impute: %w", err)
	}
	if g, err = HandleOutliers(out, g, cols, mode); err != nil {
		return nil, fmt.Errorf("outliers: %w", err)
	}
	if g, err = Normalize(norm, g, cols); err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}

	return &GoldResult{
		Table:         g,
		Imputation:    imp,
		Outliers:      out,
		Normalization: norm,
	}, nil
}

func persist(res *GoldResult, opts GoldOptions) error {
	if err := res.Table.WriteCSVFile(opts.TablePath()); err != nil {
		return fmt.Errorf("write gold table: %w", err)
	}
	return res.Manifest.Save(filepath.Join(opts.Dir, ManifestFile))
}

func newManifest(kind string, opts GoldOptions, started time.Time, in, out int, cols []string, imp ImputationArtifacts) Manifest {
	var indicators []string
	for _, c := range cols {
		if imp.AddMissingIndicator.Has(c) {
			indicators = append(indicators, IndicatorName(c))
		}
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	return Manifest{
		RunID:       runID,
		Kind:        kind,
		Dataset:     opts.Dataset,
		StartedAt:   started,
		FinishedAt:  time.Now().UTC(),
		InputRows:   in,
		OutputRows:  out,
		OutlierMode: opts.mode(),
		Columns:     cols,
		Indicators:  indicators,
		Generator:   opts.Generator,
	}
}
