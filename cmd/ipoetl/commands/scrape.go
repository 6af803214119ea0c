package commands

import (
	"errors"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	browser "github.com/jmylchreest/ipoetl/cmd/ipoetl/fetcher"
	"github.com/jmylchreest/ipoetl/internal/config"
	"github.com/jmylchreest/ipoetl/internal/logger"
	"github.com/jmylchreest/ipoetl/internal/stage"
	"github.com/jmylchreest/ipoetl/pkg/fetcher"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Fetch segment listings and download section pages",
	Long: `Fetch the listing of every configured segment and download each
configured section page of every listed IPO.

Pages already on disk are skipped, so an interrupted scrape can simply be
run again.

Examples:
  # Listings and pages for every segment
  ipoetl scrape --config ipoetl.yaml

  # Render pages in headless Chrome, two at a time
  ipoetl scrape --dynamic --concurrency 2

  # Download missing pages for the listings already saved
  ipoetl scrape --reuse-listing`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
	addFetchFlags(scrapeCmd.Flags())
}

// addFetchFlags registers the flags shared by scrape and run.
func addFetchFlags(flags *pflag.FlagSet) {
	flags.IntP("concurrency", "c", 5, "concurrent page downloads")
	flags.Duration("delay", 0, "delay between page requests")
	flags.Duration("timeout", 30*time.Second, "page request timeout")
	flags.Bool("dynamic", false, "render section pages in headless Chrome")
	flags.Bool("reuse-listing", false, "reuse listing CSVs already on disk")
}

// bindFetchFlags binds the flags of the running command. Binding happens at
// run time because scrape and run register flags for the same keys.
func bindFetchFlags(cmd *cobra.Command) {
	_ = viperBind(cmd, "fetch.concurrency", "concurrency")
	_ = viperBind(cmd, "fetch.delay", "delay")
	_ = viperBind(cmd, "fetch.timeout", "timeout")
	_ = viperBind(cmd, "fetch.dynamic", "dynamic")
}

func runScrape(cmd *cobra.Command, args []string) error {
	bindFetchFlags(cmd)
	cfg, p, err := loadPipeline()
	if err != nil {
		return err
	}

	src, closeSources, err := newSources(cfg)
	if err != nil {
		return err
	}
	defer closeSources()

	ctx, cancel := commandContext()
	defer cancel()

	reuse, _ := cmd.Flags().GetBool("reuse-listing")
	start := time.Now()
	res, err := p.Scrape(ctx, src, stage.ScrapeOptions{ReuseListing: reuse})
	if err != nil {
		return err
	}

	var saved int
	for _, s := range res {
		saved += s.Downloads.Saved
	}
	logger.InfoContext(ctx, "scrape complete",
		"pages_saved", humanize.Comma(int64(saved)),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return writeReport(cmd, scrapeReport(res))
}

// newSources builds the network clients for a scrape. The returned func
// releases them.
func newSources(cfg *config.Config) (stage.Sources, func(), error) {
	listing, err := fetcher.NewListingClient(fetcher.DefaultListingConfig())
	if err != nil {
		return stage.Sources{}, nil, err
	}

	var pages fetcher.Fetcher
	if cfg.Fetch.Dynamic {
		bcfg := browser.DefaultConfig()
		bcfg.Timeout = cfg.Fetch.Timeout
		b, err := browser.NewBrowserFetcher(bcfg)
		if err != nil {
			return stage.Sources{}, nil, err
		}
		pages = b
	} else {
		scfg := fetcher.DefaultStaticConfig()
		scfg.Timeout = cfg.Fetch.Timeout
		pages = fetcher.NewStatic(scfg)
	}

	gcfg := fetcher.DefaultGMPConfig()
	gcfg.MaxRetries = cfg.Fetch.GMPRetries
	gmp, err := fetcher.NewGMPClient(gcfg)
	if err != nil {
		_ = pages.Close()
		return stage.Sources{}, nil, err
	}

	closeAll := func() {
		if err := errors.Join(pages.Close(), gmp.Close()); err != nil {
			logger.Warn("failed to close fetchers", "error", err)
		}
	}
	logger.Debug("fetchers ready", "pages", pages.Type(), "external", gmp.Type())
	return stage.Sources{Listing: listing, Pages: pages, External: gmp}, closeAll, nil
}
