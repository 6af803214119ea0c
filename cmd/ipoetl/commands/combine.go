package commands

import (
	"github.com/spf13/cobra"
)

var combineCmd = &cobra.Command{
	Use:   "combine",
	Short: "Build the bronze and silver datasets",
	Long: `Join the cleaned sections of each segment on company into
processed/csv/combined/<segment>.csv, stack the segments into
combined.csv, then resolve duplicated join columns into
processed/silver/<dataset>.csv.`,
	RunE: runCombine,
}

func init() {
	rootCmd.AddCommand(combineCmd)
	combineCmd.Flags().Bool("bronze-only", false, "stop after the bronze datasets")
}

func runCombine(cmd *cobra.Command, args []string) error {
	_, p, err := loadPipeline()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	bronze, err := p.Bronze(ctx)
	if err != nil {
		return err
	}
	var silver map[string]int
	if only, _ := cmd.Flags().GetBool("bronze-only"); !only {
		if silver, err = p.Silver(ctx); err != nil {
			return err
		}
	}
	return writeReport(cmd, combineReport(bronze, silver))
}
