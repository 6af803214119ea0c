package commands

import (
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract records from downloaded section pages",
	Long: `Parse every downloaded section page into one record per company and
write raw/csv/<segment>/<section>.csv. Sections without an extractor are
skipped with a warning.`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().IntP("concurrency", "c", 5, "pages parsed in parallel")
}

func runExtract(cmd *cobra.Command, args []string) error {
	_ = viperBind(cmd, "fetch.concurrency", "concurrency")
	_, p, err := loadPipeline()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	res, err := p.Extract(ctx)
	if err != nil {
		return err
	}
	return writeReport(cmd, extractReport(res))
}
