package transform

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jmylchreest/ipoetl/pkg/table"
)

func silverTable() *table.Table {
	return table.MustNew(
		table.Strings("company", "acme", "beta", "gamma", "delta", "eps"),
		table.Strings("open_date", "2024-01-02", "2024-02-03", "", "2024-04-05", "2024-05-06"),
		table.Strings("assets", "120.5", "", "88", "4000", "250"),
		table.Strings("roe", "12.1", "8", "-4", "", "30"),
		table.Strings("subscription_qib", "", "150.2", "3.1", "45", ""),
		table.Strings("ipo_open_gmp", "-5", "20", "", "12", "0"),
		table.Strings("not_registered", "x", "y", "z", "w", "v"),
	)
}

// --- CreateGold Tests ---

func TestCreateGold_WritesOutputs(t *testing.T) {
	dir := t.TempDir()
	opts := GoldOptions{Dataset: "combined", Dir: dir}

	res, err := New(nil).CreateGold(silverTable(), opts)
	if err != nil {
		t.Fatalf("CreateGold() error = %v", err)
	}

	for _, name := range []string{"combined.csv", ImputationFile, OutliersFile, NormalizationFile, ManifestFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}

	if res.Table.Has("not_registered") {
		t.Error("unregistered column should not reach the gold table")
	}
	for _, c := range []string{"assets", "roe", "subscription_qib"} {
		col, _ := res.Table.Column(c)
		if n := col.NullCount(); n != 0 {
			t.Errorf("%s has %d nulls after imputation", c, n)
		}
	}
	if res.Manifest.RunID == "" || res.Manifest.Kind != RunFit {
		t.Errorf("Manifest = %+v", res.Manifest)
	}
	if res.Manifest.InputRows != 5 || res.Manifest.OutputRows != 5 {
		t.Errorf("Manifest rows = %d -> %d, want 5 -> 5", res.Manifest.InputRows, res.Manifest.OutputRows)
	}

	m, err := LoadManifest(filepath.Join(dir, ManifestFile))
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}
	if diff := cmp.Diff(res.Manifest.Columns, m.Columns); diff != "" {
		t.Errorf("manifest columns mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateGold_GMPKeepsRawScale(t *testing.T) {
	res, err := New(nil).CreateGold(silverTable(), GoldOptions{Dataset: "d", Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("CreateGold() error = %v", err)
	}
	if _, ok := res.Normalization.RobustIQR["ipo_open_gmp"]; ok {
		t.Error("GMP column should not be normalized")
	}
	if v := floats(t, res.Table, "ipo_open_gmp")[1]; v < 0 || v > 20 {
		t.Errorf("ipo_open_gmp[1] = %v, want a raw premium", v)
	}
}

func TestCreateGold_ExplicitColumnsNoneMatch(t *testing.T) {
	dir := t.TempDir()
	res, err := New(nil).CreateGold(silverTable(), GoldOptions{Dataset: "d", Dir: dir, Columns: []string{"not_here"}})
	if err != nil {
		t.Fatalf("CreateGold() error = %v", err)
	}

	if len(res.Imputation.Medians) != 0 || len(res.Imputation.ZeroFill) != 0 {
		t.Errorf("Imputation = %+v, want empty", res.Imputation)
	}
	if len(res.Outliers.PctlBounds) != 0 || len(res.Outliers.IQRBounds) != 0 || len(res.Outliers.HardClip) != 0 {
		t.Errorf("Outliers = %+v, want empty", res.Outliers)
	}
	if len(res.Normalization.Log1pShift) != 0 || len(res.Normalization.RobustIQR) != 0 {
		t.Errorf("Normalization = %+v, want empty", res.Normalization)
	}
	if res.Table.Width() != 0 || len(res.Manifest.Columns) != 0 {
		t.Errorf("gold columns = %v, manifest columns = %v, want none", res.Table.Names(), res.Manifest.Columns)
	}

	saved, err := LoadImputation(filepath.Join(dir, ImputationFile))
	if err != nil {
		t.Fatalf("LoadImputation() error = %v", err)
	}
	if len(saved.Medians) != 0 {
		t.Errorf("saved medians = %v, want none", saved.Medians)
	}
}

func TestCreateGold_ExplicitColumnsSubset(t *testing.T) {
	res, err := New(nil).CreateGold(silverTable(), GoldOptions{Dataset: "d", Dir: t.TempDir(), Columns: []string{"roe", "not_here"}})
	if err != nil {
		t.Fatalf("CreateGold() error = %v", err)
	}

	if diff := cmp.Diff([]string{"roe"}, res.Table.Names()); diff != "" {
		t.Errorf("gold columns mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(res.Table.Names(), res.Manifest.Columns); diff != "" {
		t.Errorf("manifest columns mismatch (-gold +manifest):\n%s", diff)
	}
	if _, ok := res.Imputation.Medians["assets"]; ok {
		t.Error("assets was not requested and should have no median")
	}
	if _, ok := res.Imputation.Medians["roe"]; !ok {
		t.Error("roe should have a fitted median")
	}
}

func TestCreateGold_InvalidMode(t *testing.T) {
	_, err := New(nil).CreateGold(silverTable(), GoldOptions{Dir: t.TempDir(), Mode: "bogus"})
	if !errors.Is(err, ErrInvalidMode) {
		t.Errorf("CreateGold() error = %v, want ErrInvalidMode", err)
	}
}

// --- ApplyGold Tests ---

func TestApplyGold_ReplaysArtifacts(t *testing.T) {
	fitDir := t.TempDir()
	created, err := New(nil).CreateGold(silverTable(), GoldOptions{Dataset: "combined", Dir: fitDir})
	if err != nil {
		t.Fatalf("CreateGold() error = %v", err)
	}

	applyDir := t.TempDir()
	applied, err := ApplyGold(silverTable(), GoldOptions{Dataset: "combined", Dir: applyDir, ArtifactDir: fitDir})
	if err != nil {
		t.Fatalf("ApplyGold() error = %v", err)
	}

	if diff := cmp.Diff(created.Table.Names(), applied.Table.Names()); diff != "" {
		t.Fatalf("columns mismatch (-created +applied):\n%s", diff)
	}
	for i := 0; i < created.Table.Len(); i++ {
		if diff := cmp.Diff(created.Table.Row(i), applied.Table.Row(i)); diff != "" {
			t.Errorf("row %d mismatch (-created +applied):\n%s", i, diff)
		}
	}
	if applied.Manifest.Kind != RunApply {
		t.Errorf("Manifest.Kind = %s, want apply", applied.Manifest.Kind)
	}
	if _, err := os.Stat(filepath.Join(applyDir, ImputationFile)); !os.IsNotExist(err) {
		t.Error("ApplyGold() should not write artifacts")
	}
}

func TestApplyGold_MissingArtifacts(t *testing.T) {
	_, err := ApplyGold(silverTable(), GoldOptions{Dataset: "x", Dir: t.TempDir()})
	if err == nil {
		t.Fatal("ApplyGold() expected error without artifacts")
	}
}

func TestApplyGold_MalformedManifest(t *testing.T) {
	fitDir := t.TempDir()
	if _, err := New(nil).CreateGold(silverTable(), GoldOptions{Dataset: "combined", Dir: fitDir}); err != nil {
		t.Fatalf("CreateGold() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(fitDir, ManifestFile), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := ApplyGold(silverTable(), GoldOptions{Dataset: "combined", Dir: t.TempDir(), ArtifactDir: fitDir})
	if err == nil {
		t.Fatal("ApplyGold() expected error for a malformed manifest")
	}
}

func TestApplyGold_WithoutManifestUsesInputColumns(t *testing.T) {
	fitDir := t.TempDir()
	if _, err := New(nil).CreateGold(silverTable(), GoldOptions{Dataset: "combined", Dir: fitDir}); err != nil {
		t.Fatalf("CreateGold() error = %v", err)
	}
	if err := os.Remove(filepath.Join(fitDir, ManifestFile)); err != nil {
		t.Fatal(err)
	}

	res, err := ApplyGold(silverTable(), GoldOptions{Dataset: "combined", Dir: t.TempDir(), ArtifactDir: fitDir})
	if err != nil {
		t.Fatalf("ApplyGold() error = %v", err)
	}
	if diff := cmp.Diff(silverTable().Names(), res.Table.Names()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}
