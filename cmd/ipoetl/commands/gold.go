package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var goldCmd = &cobra.Command{
	Use:   "gold",
	Short: "Fit and apply imputation, outlier and normalization artifacts",
	Long: `Fit the three transformation artifacts on every silver dataset, save
them under gold/<dataset>/ and write the transformed table next to them.

Examples:
  # Drop rows outside the fitted bounds instead of clipping them
  ipoetl gold --outlier-mode drop

  # Only transform a few columns, failing on any column with no data
  ipoetl gold --columns roe,eps,assets --strict-medians`,
	RunE: runGold,
}

func init() {
	rootCmd.AddCommand(goldCmd)
	addGoldFlags(goldCmd.Flags())
}

func addGoldFlags(flags *pflag.FlagSet) {
	flags.String("outlier-mode", "clip", "outlier handling: clip or drop")
	flags.Bool("strict-medians", false, "fail when a median column has no observations")
	flags.StringSlice("columns", nil, "columns to transform (default: every registered column)")
}

func runGold(cmd *cobra.Command, args []string) error {
	bindGoldFlags(cmd)

	_, p, err := loadPipeline()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	manifests, err := p.Gold(ctx)
	if err != nil {
		return err
	}
	return writeReport(cmd, goldReport("gold", manifests))
}

// bindGoldFlags binds the gold flags. --columns is bound only when given,
// so an unset flag leaves the configured column list alone.
func bindGoldFlags(cmd *cobra.Command) {
	_ = viperBind(cmd, "transform.outlier_mode", "outlier-mode")
	_ = viperBind(cmd, "transform.strict_medians", "strict-medians")
	if cmd.Flags().Changed("columns") {
		_ = viperBind(cmd, "transform.columns", "columns")
	}
}
