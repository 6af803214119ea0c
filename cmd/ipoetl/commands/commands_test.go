package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/ipoetl/internal/config"
	"github.com/jmylchreest/ipoetl/internal/crawler"
	"github.com/jmylchreest/ipoetl/internal/stage"
	"github.com/jmylchreest/ipoetl/pkg/columns"
	"github.com/jmylchreest/ipoetl/pkg/transform"
)

// --- Report Tests ---

func TestScrapeReport(t *testing.T) {
	r := scrapeReport([]stage.SegmentScrape{
		{Segment: "mainboard", Listed: 40, FailedPages: 1, Downloads: crawler.Stats{Saved: 30, Skipped: 8, Failed: 2}},
	})
	want := [][]string{{"mainboard", "40", "1", "30", "8", "2"}}
	if diff := cmp.Diff(want, r.Rows); diff != "" {
		t.Errorf("scrapeReport() mismatch (-want +got):\n%s", diff)
	}
}

func TestCleanReport_GroupsThousands(t *testing.T) {
	r := cleanReport(stage.CleanStats{Files: 10, Rows: 12345})
	want := [][]string{{"10", "12,345"}}
	if diff := cmp.Diff(want, r.Rows); diff != "" {
		t.Errorf("cleanReport() mismatch (-want +got):\n%s", diff)
	}
}

func TestCombineReport(t *testing.T) {
	tests := []struct {
		name   string
		silver map[string]int
		want   [][]string
	}{
		{
			name:   "with silver",
			silver: map[string]int{"combined": 4, "mainboard": 3, "sme": 2},
			want: [][]string{
				{"combined", "5", "4"},
				{"mainboard", "3", "3"},
				{"sme", "2", "2"},
			},
		},
		{
			name: "bronze only",
			want: [][]string{
				{"combined", "5", ""},
				{"mainboard", "3", ""},
				{"sme", "2", ""},
			},
		},
	}

	bronze := stage.BronzeStats{"sme": 2, "mainboard": 3, "combined": 5}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := combineReport(bronze, tt.silver)
			if diff := cmp.Diff(tt.want, r.Rows); diff != "" {
				t.Errorf("combineReport() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGoldReport(t *testing.T) {
	r := goldReport("gold", []transform.Manifest{{
		RunID:       "run-1",
		Kind:        transform.RunFit,
		Dataset:     "sme",
		InputRows:   10,
		OutputRows:  8,
		OutlierMode: transform.ModeDrop,
		Columns:     []string{"roe", "eps"},
		Indicators:  []string{"roe__is_missing"},
	}})
	want := [][]string{{"sme", "fit", "10", "8", "2", "1", "drop", "run-1"}}
	if diff := cmp.Diff(want, r.Rows); diff != "" {
		t.Errorf("goldReport() mismatch (-want +got):\n%s", diff)
	}
}

func TestSummaryReports_SkipsStagesNotRun(t *testing.T) {
	s := &stage.Summary{
		Clean:  stage.CleanStats{Files: 2, Rows: 4},
		Bronze: stage.BronzeStats{"combined": 4},
	}
	var titles []string
	for _, r := range summaryReports(s) {
		titles = append(titles, r.Title)
	}
	if diff := cmp.Diff([]string{"clean", "combine"}, titles); diff != "" {
		t.Errorf("summaryReports() mismatch (-want +got):\n%s", diff)
	}
}

// --- Artifacts Report Tests ---

func TestArtifactReport(t *testing.T) {
	imp := transform.NewImputationArtifacts()
	imp.Medians["roe"] = 5
	imp.ZeroFill.Add("subscription_qib")

	out := transform.NewOutlierArtifacts()
	out.PctlBounds["roe"] = transform.Bounds{1, 9}
	out.PctlBounds["subscription_qib"] = transform.Bounds{0, 120.5}
	out.HardClip["subscription_qib"] = transform.HardClip{columns.Float(0), nil}
	out.IQRBounds["assets"] = transform.Bounds{-10, 250}

	norm := transform.NewNormalizationArtifacts()
	norm.RobustMedian["roe"] = 5
	norm.RobustIQR["roe"] = 2
	norm.Log1pShift["assets"] = 0

	r := artifactReport("combined", columns.Default(), imp, out, norm)

	want := [][]string{
		{"assets", "median/iqr_filter/log1p", "", "iqr [-10, 250]", "", "log1p shift 0"},
		{"roe", "median/percentile_clip/robust_z", "median 5", "pctl [1, 9]", "", "robust_z median 5 iqr 2"},
		{"subscription_qib", "zero/percentile_clip/robust_z", "0", "pctl [0, 120.5]", "[0, open]", ""},
	}
	if diff := cmp.Diff(want, r.Rows); diff != "" {
		t.Errorf("artifactReport() mismatch (-want +got):\n%s", diff)
	}
	if r.Title != "artifacts combined" {
		t.Errorf("Title = %q, want %q", r.Title, "artifacts combined")
	}
}

func TestFillCell_Indicator(t *testing.T) {
	imp := transform.NewImputationArtifacts()
	imp.Medians["eps"] = 1.25
	imp.AddMissingIndicator.Add("eps")

	if got := fillCell("eps", imp); got != "median 1.25 +indicator" {
		t.Errorf("fillCell() = %q, want %q", got, "median 1.25 +indicator")
	}
	if got := fillCell("unknown", imp); got != "" {
		t.Errorf("fillCell(unknown) = %q, want empty", got)
	}
}

func TestLoadArtifacts_Missing(t *testing.T) {
	if _, _, _, err := loadArtifacts(t.TempDir()); err == nil {
		t.Error("loadArtifacts() expected error for empty directory")
	}
}

func TestLoadArtifacts_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	imp := transform.NewImputationArtifacts()
	imp.Medians["roe"] = 3
	out := transform.NewOutlierArtifacts()
	norm := transform.NewNormalizationArtifacts()
	norm.MinMaxMin["roe"] = 1
	norm.MinMaxMax["roe"] = 7

	for _, save := range []func() error{
		func() error { return imp.Save(dir + "/" + transform.ImputationFile) },
		func() error { return out.Save(dir + "/" + transform.OutliersFile) },
		func() error { return norm.Save(dir + "/" + transform.NormalizationFile) },
	} {
		if err := save(); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	gotImp, _, gotNorm, err := loadArtifacts(dir)
	if err != nil {
		t.Fatalf("loadArtifacts() error = %v", err)
	}
	if gotImp.Medians["roe"] != 3 {
		t.Errorf("median = %v, want 3", gotImp.Medians["roe"])
	}
	if got := scalingCell("roe", gotNorm); got != "minmax [1, 7]" {
		t.Errorf("scalingCell() = %q, want %q", got, "minmax [1, 7]")
	}
}

// --- Command Tests ---

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version", "--short"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if strings.TrimSpace(buf.String()) == "" {
		t.Error("version printed nothing")
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"apply", "artifacts", "clean", "combine", "export", "extract", "gold", "run", "scrape", "version"}
	var got []string
	for _, c := range rootCmd.Commands() {
		if c.Name() == "help" || c.Name() == "completion" {
			continue
		}
		got = append(got, c.Name())
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestBindGoldFlags_ColumnsOnlyWhenGiven(t *testing.T) {
	t.Cleanup(viper.Reset)

	decode := func(args ...string) []string {
		t.Helper()
		cmd := &cobra.Command{Use: "gold"}
		addGoldFlags(cmd.Flags())
		if err := cmd.ParseFlags(args); err != nil {
			t.Fatalf("ParseFlags() error = %v", err)
		}
		bindGoldFlags(cmd)
		cfg, err := config.FromViper(viper.GetViper())
		if err != nil {
			t.Fatalf("FromViper() error = %v", err)
		}
		return cfg.Transform.Columns
	}

	if got := decode(); len(got) != 0 {
		t.Errorf("columns without --columns = %v, want unset", got)
	}
	if diff := cmp.Diff([]string{"roe", "eps"}, decode("--columns", "roe,eps")); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}
