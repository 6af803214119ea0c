package commands

import (
	"github.com/spf13/cobra"

	"github.com/jmylchreest/ipoetl/internal/stage"
	"github.com/jmylchreest/ipoetl/pkg/transform"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Transform a new batch with saved gold artifacts",
	Long: `Replay the artifacts fitted by gold on another CSV without refitting
them. The result and its manifest go to applied/<name>/ unless --out is
given.

Examples:
  # Records straight from extract need cleaning first
  ipoetl apply --input raw/new.csv --clean --name new_batch

  # Use the mainboard artifacts
  ipoetl apply --input silver.csv --dataset mainboard`,
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)

	flags := applyCmd.Flags()
	flags.StringP("input", "i", "", "CSV to transform (required)")
	flags.String("dataset", stage.CombinedDataset, "gold dataset whose artifacts are replayed")
	flags.String("artifacts", "", "artifact directory (default gold/<dataset>)")
	flags.StringP("out", "o", "", "output directory (default applied/<name>)")
	flags.String("name", "", "output dataset name (default <dataset>)")
	flags.Bool("clean", false, "parse raw values before transforming")
	flags.String("outlier-mode", "clip", "outlier handling: clip or drop")

	_ = applyCmd.MarkFlagRequired("input")
}

func runApply(cmd *cobra.Command, args []string) error {
	_ = viperBind(cmd, "transform.outlier_mode", "outlier-mode")
	_, p, err := loadPipeline()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	flags := cmd.Flags()
	var req stage.ApplyRequest
	req.Input, _ = flags.GetString("input")
	req.Dataset, _ = flags.GetString("dataset")
	req.ArtifactDir, _ = flags.GetString("artifacts")
	req.OutDir, _ = flags.GetString("out")
	req.Name, _ = flags.GetString("name")
	req.Clean, _ = flags.GetBool("clean")

	m, err := p.Apply(ctx, req)
	if err != nil {
		return err
	}
	return writeReport(cmd, goldReport("apply", []transform.Manifest{m}))
}
