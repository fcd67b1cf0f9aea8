package cmd

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/scalper/config"
	"github.com/rustyeddy/scalper/logging"
)

var rootCmd = &cobra.Command{
	Use:   "scalper",
	Short: "Signal scanner and compounding paper ledger for crypto and stocks",
	Long: `Scalper scans crypto and stock candles for entry signals and paper trades them.

It provides tools for:
  - Crypto RSI reversal detection on two timeframes
  - Stock EMA cross detection behind five confirmation shields
  - Risk-based position sizing with leverage caps
  - Per-market ledgers that compound realized P/L and top up when short
  - A SQLite journal of trades and signals with CSV and Org exports`,
	SilenceUsage: true,
}

var (
	configPath string
	dbPath     string
	logLevel   string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (YAML or JSON); defaults are used when empty")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite journal path (overrides journal.db_path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides logging.level)")
}

// loadConfig reads --config, or the defaults, and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if dbPath != "" {
		cfg.Journal.DBPath = dbPath
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (zerolog.Logger, io.Closer, error) {
	return logging.New(cfg.Logging, cmd.ErrOrStderr())
}
