package commands

import (
	"github.com/spf13/cobra"

	"github.com/jmylchreest/ipoetl/internal/logger"
	"github.com/jmylchreest/ipoetl/internal/stage"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every stage in order",
	Long: `Run extract, clean, combine and gold, stopping at the first failing
stage. With --scrape the listings and pages are fetched first.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	flags := runCmd.Flags()
	flags.Bool("scrape", false, "fetch listings and pages before extracting")
	addFetchFlags(flags)
}

func runRun(cmd *cobra.Command, args []string) error {
	bindFetchFlags(cmd)
	cfg, p, err := loadPipeline()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	var opts stage.RunOptions
	opts.Scrape, _ = cmd.Flags().GetBool("scrape")
	opts.ScrapeOptions.ReuseListing, _ = cmd.Flags().GetBool("reuse-listing")

	var src stage.Sources
	if opts.Scrape {
		var closeSources func()
		if src, closeSources, err = newSources(cfg); err != nil {
			return err
		}
		defer closeSources()
	}

	sum, err := p.Run(ctx, src, opts)
	if sum != nil {
		for _, r := range summaryReports(sum) {
			if werr := writeReport(cmd, r); werr != nil {
				return werr
			}
		}
	}
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "pipeline complete", "gold_datasets", len(sum.Gold))
	return nil
}
