package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jmylchreest/ipoetl/pkg/columns"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

const jsonConfig = `{
  "base_url": "https://www.example.com",
  "dataset_root": "/tmp/ipo",
  "segments": ["mainboard"],
  "sections": ["financials", "gmp"],
  "segmentsAPI": {
    "mainboard": {
      "page_url": "{base_url}/report/mainboard-ipo-list/",
      "api_url": "{base_url}/api/list",
      "params": {"length": 50, "search": ""},
      "n_pages": 4,
      "fields": ["id", "company_name", "chittorgarh_slug", "investor_gain"]
    }
  },
  "sectionsAPI": {
    "financials": {"path": "{base_url}/ipo/{chittorgarh_slug}/{id}/"},
    "gmp": {"key": "investor_gain"}
  },
  "fetch": {"concurrency": 3, "delay": "250ms"},
  "columns": {"roe": {"normalization": "minmax", "pctl_high": 0.95}}
}`

// --- Load Tests ---

func TestDefaultConfig_IsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestLoad_JSON(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.json", jsonConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DatasetRoot != "/tmp/ipo" {
		t.Errorf("DatasetRoot = %s", cfg.DatasetRoot)
	}
	want := SegmentAPI{
		PageURL: "{base_url}/report/mainboard-ipo-list/",
		APIURL:  "{base_url}/api/list",
		Params:  map[string]string{"length": "50", "search": ""},
		Pages:   4,
		Fields:  []string{"id", "company_name", "chittorgarh_slug", "investor_gain"},
	}
	if diff := cmp.Diff(want, cfg.SegmentsAPI["mainboard"]); diff != "" {
		t.Errorf("SegmentsAPI mismatch (-want +got):\n%s", diff)
	}
	if cfg.SectionsAPI["gmp"].Key != "investor_gain" {
		t.Errorf("SectionsAPI[gmp] = %+v", cfg.SectionsAPI["gmp"])
	}
	if cfg.Fetch.Concurrency != 3 || cfg.Fetch.Delay != 250*time.Millisecond {
		t.Errorf("Fetch = %+v", cfg.Fetch)
	}
	if cfg.Fetch.Timeout != 30*time.Second {
		t.Errorf("Fetch.Timeout = %v, want default 30s", cfg.Fetch.Timeout)
	}
	if cfg.Transform.OutlierMode != "clip" {
		t.Errorf("OutlierMode = %s, want default clip", cfg.Transform.OutlierMode)
	}
	if err := cfg.ValidateScrape(); err != nil {
		t.Errorf("ValidateScrape() error = %v", err)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
dataset_root: data
segments: [sme]
transform:
  outlier_mode: drop
  strict_medians: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff([]string{"sme"}, cfg.Segments); diff != "" {
		t.Errorf("Segments mismatch (-want +got):\n%s", diff)
	}
	if cfg.Transform.OutlierMode != "drop" || !cfg.Transform.StrictMedians {
		t.Errorf("Transform = %+v", cfg.Transform)
	}
	if cfg.BaseURL != DefaultConfig().BaseURL {
		t.Errorf("BaseURL = %s, want default", cfg.BaseURL)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("IPOETL_DATASET_ROOT", "/srv/ipo")
	t.Setenv("IPOETL_FETCH_CONCURRENCY", "8")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DatasetRoot != "/srv/ipo" {
		t.Errorf("DatasetRoot = %s, want /srv/ipo", cfg.DatasetRoot)
	}
	if cfg.Fetch.Concurrency != 8 {
		t.Errorf("Fetch.Concurrency = %d, want 8", cfg.Fetch.Concurrency)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() expected error for a missing file")
	}
}

// --- Validation Tests ---

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no segments", func(c *Config) { c.Segments = nil }},
		{"bad base url", func(c *Config) { c.BaseURL = "not a url" }},
		{"bad outlier mode", func(c *Config) { c.Transform.OutlierMode = "winsorize" }},
		{"zero concurrency", func(c *Config) { c.Fetch.Concurrency = 0 }},
		{"zero pages", func(c *Config) {
			c.SegmentsAPI["mainboard"] = SegmentAPI{PageURL: "p", APIURL: "a", Pages: 0}
		}},
		{"unknown override column", func(c *Config) {
			c.Columns = map[string]columns.Override{"nope": {}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestValidateScrape(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.ValidateScrape(); !errors.Is(err, ErrMissingSegmentAPI) {
		t.Errorf("ValidateScrape() error = %v, want ErrMissingSegmentAPI", err)
	}

	cfg.Segments = []string{"sme"}
	cfg.SegmentsAPI["sme"] = SegmentAPI{PageURL: "p", APIURL: "a", Pages: 1}
	cfg.Sections = []string{"gmp"}
	cfg.SectionsAPI["gmp"] = SectionAPI{}
	if err := cfg.ValidateScrape(); !errors.Is(err, ErrMissingSectionAPI) {
		t.Errorf("ValidateScrape() error = %v, want ErrMissingSectionAPI", err)
	}
}

func TestConfig_Registry(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.json", jsonConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	reg, err := cfg.Registry()
	if err != nil {
		t.Fatalf("Registry() error = %v", err)
	}
	s := reg.Strategy("roe")
	if s.Normalization != columns.NormalizeMinMax || s.PctlHigh != 0.95 {
		t.Errorf("Strategy(roe) = %+v", s)
	}
}

func TestConfig_Expand(t *testing.T) {
	cfg := &Config{BaseURL: "https://www.example.com/"}
	if got := cfg.Expand("{base_url}/api"); got != "https://www.example.com/api" {
		t.Errorf("Expand() = %s", got)
	}
}
