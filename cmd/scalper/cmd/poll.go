package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/scalper/market"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Close active trades whose stop or target was reached",
	Long: `Read last prices from a symbol,price CSV and evaluate every active
trade against them. Trades past their stop or target are closed into
the ledger history.

Example:
  scalper poll --prices prices.csv`,
	Args: cobra.NoArgs,
	RunE: runPoll,
}

var pollPrices string

func init() {
	rootCmd.AddCommand(pollCmd)

	pollCmd.Flags().StringVarP(&pollPrices, "prices", "p", "", "last price CSV (overrides scanner.prices_file)")
}

func runPoll(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	path := a.cfg.Scanner.PricesFile
	if pollPrices != "" {
		path = pollPrices
	}
	prices, err := market.LoadPricesCSV(path)
	if err != nil {
		return fmt.Errorf("load prices: %w", err)
	}

	ctx := cmd.Context()
	s, err := a.scanner(ctx)
	if err != nil {
		return err
	}

	closed, err := s.PollTrades(ctx, prices)
	out := cmd.OutOrStdout()
	for _, t := range closed {
		fmt.Fprintf(out, "%s %s %s %s at %g\n", t.Market, t.Symbol, t.Side, t.Outcome, t.ClosePrice)
	}
	active := 0
	for _, acct := range s.Accounts() {
		active += len(acct.Manager.Active())
	}
	fmt.Fprintf(out, "closed %d, still open %d\n", len(closed), active)
	return err
}
