package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebook/config"
	"github.com/rustyeddy/tradebook/logger"
)

var rootCmd = &cobra.Command{
	Use:   "tradebook",
	Short: "A ledger for closed derivatives positions",
	Long: `Tradebook records closed futures positions, typed by hand or read from
exchange screenshots, and keeps a fee and rebate adjusted ledger.

It provides tools for:
  - Reading trades from screenshots with Tesseract OCR
  - Recording trades by hand or in batches
  - Holding likely duplicates until you confirm them
  - Daily, weekly and monthly profit, win rate and equity reports
  - Tracking deposits, withdrawals and the running balance
  - Serving all of the above over HTTP

Settings come from --config (YAML or JSON), a .env file and TRADEBOOK_*
environment variables, in increasing priority.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

var (
	cfgFile   string
	dbPath    string
	requester string

	cfg *config.Config
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "path to SQLite ledger DB (overrides config)")
	rootCmd.PersistentFlags().StringVar(&requester, "as", defaultRequester(), "operator name used for confirmations and balance operations")
}

func defaultRequester() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}

func setup(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	var err error
	if cfgFile != "" {
		if cfg, err = config.LoadFromFile(cfgFile); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = config.Default()
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	if dbPath != "" {
		cfg.Journal.DBPath = dbPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return logger.Init(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Tracing: cfg.Log.Tracing,
		Output:  cmd.ErrOrStderr(),
	})
}

func teardown(cmd *cobra.Command, args []string) error {
	return logger.Shutdown(cmd.Context())
}
