package commands

import (
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Parse extracted records into typed values",
	Long: `Run the column parsers over raw/csv/<segment>/<section>.csv: amounts
in lakh become crores, percentages and multiples become numbers and dates
become ISO dates. Output goes to processed/csv/<segment>/.`,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	_, p, err := loadPipeline()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	stats, err := p.Clean(ctx)
	if err != nil {
		return err
	}
	return writeReport(cmd, cleanReport(stats))
}
