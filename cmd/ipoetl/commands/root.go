// Package commands implements the CLI commands for ipoetl.
package commands

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/ipoetl/internal/config"
	"github.com/jmylchreest/ipoetl/internal/logger"
	"github.com/jmylchreest/ipoetl/internal/output"
	"github.com/jmylchreest/ipoetl/internal/stage"
)

var rootCmd = &cobra.Command{
	Use:   "ipoetl",
	Short: "Scrape IPO disclosures and prepare model-ready datasets",
	Long: `ipoetl scrapes IPO disclosure pages, extracts their fields and turns
them into cleaned, normalized datasets.

Stages run in order and each reads what the previous one wrote under the
dataset root:

  scrape     listing API and section pages   raw/csv, raw/html
  extract    section pages to records        raw/csv/<segment>/
  clean      parse values                    processed/csv/<segment>/
  combine    join sections and segments      processed/csv/combined, processed/silver
  gold       impute, clip, normalize         gold/<dataset>/

Examples:
  # Everything, starting from the pages already downloaded
  ipoetl run --config ipoetl.yaml

  # Refit the transformations only
  ipoetl gold --outlier-mode drop

  # Replay saved artifacts on a new batch
  ipoetl apply --input new.csv --clean`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logger.Options{
			Debug: viper.GetBool("debug"),
			Quiet: viper.GetBool("quiet"),
			JSON:  viper.GetBool("log_json"),
		})
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file, JSON or YAML (default ./ipoetl.{yaml,json})")
	flags.String("dataset-root", "", "dataset root directory")
	flags.Bool("debug", false, "enable debug logging")
	flags.BoolP("quiet", "q", false, "only log errors")
	flags.Bool("log-json", false, "log as JSON")
	flags.StringP("format", "f", "table", "report format: table, json, jsonl, yaml")

	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("dataset_root", flags.Lookup("dataset-root"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("quiet", flags.Lookup("quiet"))
	_ = viper.BindPFlag("log_json", flags.Lookup("log-json"))
	_ = viper.BindPFlag("format", flags.Lookup("format"))
}

func initConfig() {
	// A missing .env is normal.
	_ = godotenv.Load()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("ipoetl")
	}
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			logger.Warn("failed to read config", "error", err)
		}
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig decodes the merged file, environment and flag settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return nil, err
	}
	logger.Debug("configuration loaded", "file", viper.ConfigFileUsed(), "dataset_root", cfg.DatasetRoot)
	return cfg, nil
}

func loadPipeline() (*config.Config, *stage.Pipeline, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	p, err := stage.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, p, nil
}

// commandContext is cancelled on SIGINT or SIGTERM and carries a fresh run
// id.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return logger.WithRun(ctx, logger.NewRunID()), cancel
}

// writeReport renders r in the --format the user picked.
func writeReport(cmd *cobra.Command, r *output.Report) error {
	w, err := output.NewWriter(cmd.OutOrStdout(), output.Format(viper.GetString("format")))
	if err != nil {
		return err
	}
	return w.Write(r)
}

// viperBind binds a flag of the running command to a config key.
func viperBind(cmd *cobra.Command, key, flag string) error {
	return viper.BindPFlag(key, cmd.Flags().Lookup(flag))
}
