package commands

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/ipoetl/internal/stage"
	"github.com/jmylchreest/ipoetl/pkg/transform"
)

var artifactsCmd = &cobra.Command{
	Use:   "artifacts [dataset]",
	Short: "Show the fitted artifacts of a gold dataset",
	Long: `Print, per column, the strategy and the parameters saved by gold:
the fill value, the outlier bounds and the scaling. The dataset defaults
to combined.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runArtifacts,
}

func init() {
	rootCmd.AddCommand(artifactsCmd)
	artifactsCmd.Flags().String("dir", "", "artifact directory (default gold/<dataset>)")
}

func runArtifacts(cmd *cobra.Command, args []string) error {
	_, p, err := loadPipeline()
	if err != nil {
		return err
	}
	dataset := stage.CombinedDataset
	if len(args) == 1 {
		dataset = args[0]
	}
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = p.Layout().GoldDir(dataset)
	}

	imp, out, norm, err := loadArtifacts(dir)
	if err != nil {
		return err
	}
	return writeReport(cmd, artifactReport(dataset, p.Registry(), imp, out, norm))
}

func loadArtifacts(dir string) (transform.ImputationArtifacts, transform.OutlierArtifacts, transform.NormalizationArtifacts, error) {
	var (
		out  transform.OutlierArtifacts
		norm transform.NormalizationArtifacts
	)
	imp, err := transform.LoadImputation(filepath.Join(dir, transform.ImputationFile))
	if err != nil {
		return imp, out, norm, err
	}
	if out, err = transform.LoadOutliers(filepath.Join(dir, transform.OutliersFile)); err != nil {
		return imp, out, norm, err
	}
	norm, err = transform.LoadNormalization(filepath.Join(dir, transform.NormalizationFile))
	return imp, out, norm, err
}
