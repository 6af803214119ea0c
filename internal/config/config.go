// Package config loads the ipoetl configuration: the data source endpoints,
// the dataset layout, fetch tuning and per-column transformation overrides.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/jmylchreest/ipoetl/pkg/columns"
)

// EnvPrefix prefixes environment overrides, e.g. IPOETL_DATASET_ROOT.
const EnvPrefix = "IPOETL"

// Configuration errors.
var (
	ErrInvalid           = errors.New("invalid configuration")
	ErrMissingSegmentAPI = errors.New("segment has no listing api")
	ErrMissingSectionAPI = errors.New("section has no path or key")
)

// Config is the complete configuration.
type Config struct {
	BaseURL     string                      `mapstructure:"base_url" json:"base_url" yaml:"base_url" validate:"required,url"`
	DatasetRoot string                      `mapstructure:"dataset_root" json:"dataset_root" yaml:"dataset_root" validate:"required"`
	Segments    []string                    `mapstructure:"segments" json:"segments" yaml:"segments" validate:"required,min=1,dive,required"`
	Sections    []string                    `mapstructure:"sections" json:"sections" yaml:"sections" validate:"dive,required"`
	SegmentsAPI map[string]SegmentAPI       `mapstructure:"segmentsAPI" json:"segmentsAPI" yaml:"segmentsAPI" validate:"dive"`
	SectionsAPI map[string]SectionAPI       `mapstructure:"sectionsAPI" json:"sectionsAPI" yaml:"sectionsAPI"`
	Columns     map[string]columns.Override `mapstructure:"columns" json:"columns,omitempty" yaml:"columns,omitempty"`
	Fetch       FetchConfig                 `mapstructure:"fetch" json:"fetch" yaml:"fetch"`
	Transform   TransformConfig             `mapstructure:"transform" json:"transform" yaml:"transform"`
}

// SegmentAPI is the paginated listing endpoint of a segment. URLs may use
// the {base_url} placeholder.
type SegmentAPI struct {
	PageURL string            `mapstructure:"page_url" json:"page_url" yaml:"page_url" validate:"required"`
	APIURL  string            `mapstructure:"api_url" json:"api_url" yaml:"api_url" validate:"required"`
	Params  map[string]string `mapstructure:"params" json:"params" yaml:"params"`
	Pages   int               `mapstructure:"n_pages" json:"n_pages" yaml:"n_pages" validate:"gte=1"`
	Fields  []string          `mapstructure:"fields" json:"fields" yaml:"fields"`
}

// SectionAPI locates a section page: Path is a URL template over listing
// columns, Key names a listing column holding an external URL.
type SectionAPI struct {
	Path string `mapstructure:"path" json:"path,omitempty" yaml:"path,omitempty"`
	Key  string `mapstructure:"key" json:"key,omitempty" yaml:"key,omitempty"`
}

// FetchConfig tunes downloading.
type FetchConfig struct {
	Concurrency int           `mapstructure:"concurrency" json:"concurrency" yaml:"concurrency" validate:"gte=1"`
	Delay       time.Duration `mapstructure:"delay" json:"delay" yaml:"delay" validate:"gte=0"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout" validate:"gt=0"`
	Dynamic     bool          `mapstructure:"dynamic" json:"dynamic" yaml:"dynamic"`
	GMPRetries  int           `mapstructure:"gmp_retries" json:"gmp_retries" yaml:"gmp_retries" validate:"gte=0"`
}

// TransformConfig tunes the gold stage.
type TransformConfig struct {
	OutlierMode   string   `mapstructure:"outlier_mode" json:"outlier_mode" yaml:"outlier_mode" validate:"oneof=clip drop"`
	StrictMedians bool     `mapstructure:"strict_medians" json:"strict_medians" yaml:"strict_medians"`
	Columns       []string `mapstructure:"columns" json:"columns,omitempty" yaml:"columns,omitempty"`
}

// DefaultConfig returns a configuration that covers everything but the
// listing endpoints.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "https://www.chittorgarh.com",
		DatasetRoot: filepath.Join("dataset", "chittorgarh"),
		Segments:    []string{"mainboard", "sme"},
		Sections:    []string{"financials", "gmp", "ipo_information", "performance_report", "subscription"},
		SegmentsAPI: map[string]SegmentAPI{},
		SectionsAPI: map[string]SectionAPI{},
		Fetch: FetchConfig{
			Concurrency: 5,
			Timeout:     30 * time.Second,
			GMPRetries:  6,
		},
		Transform: TransformConfig{
			OutlierMode: "clip",
		},
	}
}

// Load reads a JSON or YAML file, applies IPOETL_ environment overrides
// and validates the result. An empty path loads defaults and environment
// only.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes a configured viper instance. Keys it does not set take
// their defaults.
func FromViper(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.SegmentsAPI == nil {
		cfg.SegmentsAPI = map[string]SegmentAPI{}
	}
	if cfg.SectionsAPI == nil {
		cfg.SectionsAPI = map[string]SectionAPI{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetDefaults registers the default of every scalar key so environment
// overrides apply even without a config file.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("base_url", d.BaseURL)
	v.SetDefault("dataset_root", d.DatasetRoot)
	v.SetDefault("segments", d.Segments)
	v.SetDefault("sections", d.Sections)
	v.SetDefault("fetch.concurrency", d.Fetch.Concurrency)
	v.SetDefault("fetch.delay", d.Fetch.Delay)
	v.SetDefault("fetch.timeout", d.Fetch.Timeout)
	v.SetDefault("fetch.dynamic", d.Fetch.Dynamic)
	v.SetDefault("fetch.gmp_retries", d.Fetch.GMPRetries)
	v.SetDefault("transform.outlier_mode", d.Transform.OutlierMode)
	v.SetDefault("transform.strict_medians", d.Transform.StrictMedians)
}

var validate = validator.New()

// Validate checks field constraints and the column overrides.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, err := c.Registry(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// ValidateScrape checks that every segment has a listing endpoint and every
// section a way to locate its page.
func (c *Config) ValidateScrape() error {
	for _, s := range c.Segments {
		if _, ok := c.SegmentsAPI[s]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingSegmentAPI, s)
		}
	}
	for _, s := range c.Sections {
		api, ok := c.SectionsAPI[s]
		if !ok || (api.Path == "" && api.Key == "") {
			return fmt.Errorf("%w: %s", ErrMissingSectionAPI, s)
		}
	}
	return nil
}

// Registry returns the column catalogue with the configured overrides.
func (c *Config) Registry() (*columns.Registry, error) {
	if len(c.Columns) == 0 {
		return columns.Default(), nil
	}
	return columns.Default().WithOverrides(c.Columns)
}

// Expand substitutes {base_url} in a configured URL.
func (c *Config) Expand(u string) string {
	return strings.ReplaceAll(u, "{base_url}", strings.TrimRight(c.BaseURL, "/"))
}
