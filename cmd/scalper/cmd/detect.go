package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/scalper/market"
	"github.com/rustyeddy/scalper/strategies"
)

var detectCmd = &cobra.Command{
	Use:   "detect <crypto|stock>",
	Short: "Run one detector over candle CSV files",
	Long: `Run a detector over candle files and print the signal, if any.

Pass one --candles file per timeframe the detector reads, in order:
crypto reads the execution timeframe then the higher timeframe, stock
reads a single window.

Examples:
  scalper detect crypto -s BTC/USDT --candles btc_1m.csv --candles btc_5m.csv
  scalper detect stock -s TCS.NS --candles tcs_5m.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

var (
	detectSymbol  string
	detectCandles []string
)

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().StringVarP(&detectSymbol, "symbol", "s", "", "symbol to label the signal with (required)")
	detectCmd.Flags().StringSliceVar(&detectCandles, "candles", nil, "candle CSV file, one per timeframe (required)")
	_ = detectCmd.MarkFlagRequired("symbol")
	_ = detectCmd.MarkFlagRequired("candles")
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	det, err := strategies.ByName(args[0], cfg.Crypto.CryptoConfig, cfg.Stock.StockConfig)
	if err != nil {
		return err
	}

	tfs := det.Timeframes()
	if len(detectCandles) != len(tfs) {
		return fmt.Errorf("%s reads %d timeframes %v, got %d candle files", det.Name(), len(tfs), tfs, len(detectCandles))
	}
	windows := make([]market.Candles, len(tfs))
	for i, path := range detectCandles {
		windows[i], err = market.LoadCandlesCSV(path)
		if err != nil {
			return fmt.Errorf("load %s candles: %w", tfs[i], err)
		}
	}

	out := cmd.OutOrStdout()
	sig, ok := det.Scan(detectSymbol, windows)
	if !ok {
		fmt.Fprintf(out, "no signal for %s\n", detectSymbol)
		return nil
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(sig)
}
