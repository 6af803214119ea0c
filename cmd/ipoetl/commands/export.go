package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/ipoetl/internal/logger"
	"github.com/jmylchreest/ipoetl/internal/store"
	"github.com/jmylchreest/ipoetl/pkg/table"
	"github.com/jmylchreest/ipoetl/pkg/transform"
)

// exportDB is the default database file under gold/.
const exportDB = "ipoetl.db"

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Copy the gold datasets into a SQLite database",
	Long: `Write every gold table as gold_<dataset> and its manifest into the
ipoetl_runs table of a SQLite database. Existing tables are replaced.`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("db", "", "database file (default gold/"+exportDB+")")
}

func runExport(cmd *cobra.Command, args []string) error {
	_, p, err := loadPipeline()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		path = filepath.Join(p.Layout().Root, "gold", exportDB)
	}
	db, err := store.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	r := newExportReport()
	for _, ds := range p.Datasets() {
		dir := p.Layout().GoldDir(ds)
		t, err := table.ReadCSVFile(filepath.Join(dir, ds+".csv"))
		if errors.Is(err, fs.ErrNotExist) {
			logger.WarnContext(ctx, "no gold dataset", "dataset", ds)
			continue
		}
		if err != nil {
			return err
		}
		name := "gold_" + ds
		if err := db.WriteTable(ctx, name, t); err != nil {
			return fmt.Errorf("dataset %s: %w", ds, err)
		}
		m, err := transform.LoadManifest(filepath.Join(dir, transform.ManifestFile))
		if err != nil {
			return fmt.Errorf("dataset %s: %w", ds, err)
		}
		if err := db.WriteManifest(ctx, m); err != nil {
			return fmt.Errorf("dataset %s: %w", ds, err)
		}
		r.Add(ds, name, t.Len(), t.Width(), m.RunID)
	}
	logger.InfoContext(ctx, "export complete", "db", path, "tables", len(r.Rows))
	return writeReport(cmd, r)
}
