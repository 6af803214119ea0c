package transform

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Artifact file names inside a gold dataset directory.
const (
	ImputationFile    = "imputation.json"
	OutliersFile      = "outliers.json"
	NormalizationFile = "normalization.json"
)

// Set is a set of column names. It is encoded as a sorted JSON array.
type Set map[string]struct{}

// NewSet returns a set holding names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Add inserts name.
func (s Set) Add(name string) { s[name] = struct{}{} }

// Has reports whether name is in the set.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *Set) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*s = NewSet(names...)
	return nil
}

// Bounds is an inclusive [low, high] interval.
type Bounds [2]float64

// Low returns the lower bound.
func (b Bounds) Low() float64 { return b[0] }

// High returns the upper bound.
func (b Bounds) High() float64 { return b[1] }

// HardClip holds optional absolute bounds. A nil side is open.
type HardClip [2]*float64

// ImputationArtifacts is the state learned by FitImputer.
type ImputationArtifacts struct {
	Medians             map[string]float64 `json:"medians"`
	AddMissingIndicator Set                `json:"add_missing_indicator"`
	ZeroFill            Set                `json:"zero_fill"`
}

// NewImputationArtifacts returns empty, non-nil artifacts.
func NewImputationArtifacts() ImputationArtifacts {
	return ImputationArtifacts{
		Medians:             map[string]float64{},
		AddMissingIndicator: NewSet(),
		ZeroFill:            NewSet(),
	}
}

// OutlierArtifacts is the state learned by FitOutliers.
type OutlierArtifacts struct {
	PctlBounds map[string]Bounds   `json:"pctl_bounds"`
	IQRBounds  map[string]Bounds   `json:"iqr_bounds"`
	HardClip   map[string]HardClip `json:"hard_clip"`
}

// NewOutlierArtifacts returns empty, non-nil artifacts.
func NewOutlierArtifacts() OutlierArtifacts {
	return OutlierArtifacts{
		PctlBounds: map[string]Bounds{},
		IQRBounds:  map[string]Bounds{},
		HardClip:   map[string]HardClip{},
	}
}

// NormalizationArtifacts is the state learned by FitNormalizer.
type NormalizationArtifacts struct {
	Log1pShift   map[string]float64 `json:"log1p_shift"`
	RobustMedian map[string]float64 `json:"robust_median"`
	RobustIQR    map[string]float64 `json:"robust_iqr"`
	MinMaxMin    map[string]float64 `json:"minmax_min"`
	MinMaxMax    map[string]float64 `json:"minmax_max"`
}

// NewNormalizationArtifacts returns empty, non-nil artifacts.
func NewNormalizationArtifacts() NormalizationArtifacts {
	return NormalizationArtifacts{
		Log1pShift:   map[string]float64{},
		RobustMedian: map[string]float64{},
		RobustIQR:    map[string]float64{},
		MinMaxMin:    map[string]float64{},
		MinMaxMax:    map[string]float64{},
	}
}

// Save writes the artifacts as indented JSON.
func (a ImputationArtifacts) Save(path string) error { return saveJSON(path, a) }

// Save writes the artifacts as indented JSON.
func (a OutlierArtifacts) Save(path string) error { return saveJSON(path, a) }

// Save writes the artifacts as indented JSON.
func (a NormalizationArtifacts) Save(path string) error { return saveJSON(path, a) }

// LoadImputation reads artifacts written by ImputationArtifacts.Save.
func LoadImputation(path string) (ImputationArtifacts, error) {
	a := NewImputationArtifacts()
	err := loadJSON(path, &a)
	return a, err
}

// LoadOutliers reads artifacts written by OutlierArtifacts.Save.
func LoadOutliers(path string) (OutlierArtifacts, error) {
	a := NewOutlierArtifacts()
	err := loadJSON(path, &a)
	return a, err
}

// LoadNormalization reads artifacts written by NormalizationArtifacts.Save.
func LoadNormalization(path string) (NormalizationArtifacts, error) {
	a := NewNormalizationArtifacts()
	err := loadJSON(path, &a)
	return a, err
}

func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
