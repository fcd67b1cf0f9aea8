package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/scalper/market"
	"github.com/rustyeddy/scalper/scanner"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the configured symbols once and open paper trades",
	Long: `Fetch candles for every configured symbol from scanner.candle_dir,
run the detectors and open paper trades for the signals.

Candle files are named <SYMBOL>_<timeframe>.csv with slashes replaced
by dashes, e.g. BTC-USDT_1m.csv.

Examples:
  scalper scan --config scalper.yaml
  scalper scan --market stock`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var (
	scanMarket string
	scanNoGate bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanMarket, "market", "m", "", "scan only this market (crypto or stock)")
	scanCmd.Flags().BoolVar(&scanNoGate, "ignore-hours", false, "scan even outside trading hours")
}

func runScan(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if scanNoGate {
		a.cfg.Scanner.SessionGate = false
	}

	ctx := cmd.Context()
	s, err := a.scanner(ctx)
	if err != nil {
		return err
	}

	var reports []scanner.Report
	if scanMarket != "" {
		tag, perr := market.ParseTag(scanMarket)
		if perr != nil {
			return perr
		}
		var rep scanner.Report
		rep, err = s.Scan(ctx, tag)
		reports = append(reports, rep)
	} else {
		reports, err = s.ScanAll(ctx)
	}

	out := cmd.OutOrStdout()
	for _, rep := range reports {
		if rep.Closed {
			fmt.Fprintf(out, "%s: market closed\n", rep.Market)
			continue
		}
		fmt.Fprintf(out, "%s: scanned %d, signals %d, opened %d\n",
			rep.Market, rep.Scanned, len(rep.Signals), len(rep.Opened))
		for _, t := range rep.Opened {
			fmt.Fprintf(out, "  + %s %s %s entry %g sl %g tp %g\n", t.Market, t.Symbol, t.Side, t.Entry, t.Stop, t.Target)
		}
		for _, sk := range rep.Skipped {
			fmt.Fprintf(out, "  - %s %s: %s\n", sk.Ledger, sk.Symbol, sk.Reason)
		}
	}
	return err
}
