package cmd

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/scalper/journal"
	"github.com/rustyeddy/scalper/ledger"
	"github.com/rustyeddy/scalper/market"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query trade journal data",
	Long: `Query and display trade journal records from the SQLite database.

Subcommands:
  trade    - Get details of a specific trade by ID
  today    - List trades closed today
  day      - List trades closed on a specific day
  signals  - List signals detected on a specific day

Examples:
  scalper journal trade <trade-id>
  scalper journal today
  scalper journal day 2025-01-15 --market STOCK`,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Get details of a specific trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List trades closed today",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listDay(cmd, time.Now().In(market.IST).Format("2006-01-02"))
	},
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return listDay(cmd, args[0])
	},
}

var journalSignalsCmd = &cobra.Command{
	Use:   "signals <YYYY-MM-DD>",
	Short: "List signals detected on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalSignals,
}

var journalMarket string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradeCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalSignalsCmd)

	journalCmd.PersistentFlags().StringVarP(&journalMarket, "market", "m", "", "only this ledger tag")
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	t, err := a.journal.GetTrade(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}

	l, err := a.ledger(ctx, t.Market)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradeOrg(t, realizedFor(l, a, t.ID)))
	return nil
}

// realizedFor replays the ledger to find the P/L a trade contributed.
func realizedFor(l *ledger.Ledger, a *app, tradeID string) float64 {
	for _, st := range ledger.Replay(l.InitialCapital, l.Leverage, l.History(), a.logger) {
		if t, ok := st.Record.(ledger.Trade); ok && t.ID == tradeID {
			return st.Delta
		}
	}
	return 0
}

func listDay(cmd *cobra.Command, day string) error {
	tag, err := marketFilter()
	if err != nil {
		return err
	}
	start, end, err := dayBounds(market.IST, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	trades, err := a.journal.ListTradesClosedBetween(cmd.Context(), tag, start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(trades) == 0 {
		fmt.Fprintf(out, "no trades closed on %s\n", day)
		return nil
	}
	for _, t := range trades {
		fmt.Fprintf(out, "%s  %-13s %-12s %-5s %-4s entry %s exit %s\n",
			t.CloseTime.In(market.IST).Format("15:04"), t.Market, t.Symbol, t.Side, t.Outcome,
			decimal.NewFromFloat(t.Entry).String(), decimal.NewFromFloat(t.ClosePrice).String())
	}
	return nil
}

func runJournalSignals(cmd *cobra.Command, args []string) error {
	start, end, err := dayBounds(market.IST, args[0])
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	recs, err := a.journal.ListSignalsBetween(cmd.Context(), start, end)
	if err != nil {
		return fmt.Errorf("query signals: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, r := range recs {
		s := r.Signal
		fmt.Fprintf(out, "%s  %-12s %-5s entry %s -> %v | %s\n",
			r.LoggedAt.In(market.IST).Format("15:04:05"), s.Symbol, s.Side,
			decimal.NewFromFloat(s.Entry).String(), r.Routed, s.Setup)
	}
	return nil
}

func marketFilter() (market.Tag, error) {
	if journalMarket == "" {
		return "", nil
	}
	return market.ParseTag(journalMarket)
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.Add(24 * time.Hour)
	return start, end, nil
}
