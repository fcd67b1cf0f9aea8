package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/scalper/journal"
	"github.com/rustyeddy/scalper/ledger"
	"github.com/rustyeddy/scalper/market"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect and fund the paper ledgers",
	Long: `Inspect and fund the paper ledgers kept in the journal.

Subcommands:
  balance  - Current balance of every configured account
  topup    - Credit an account
  summary  - Win rate, credits and growth per account
  export   - Replay a ledger to CSV or Org

Examples:
  scalper ledger balance
  scalper ledger topup CRYPTO_FUTURE 10
  scalper ledger export STOCK --format org`,
}

var ledgerBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the balance of every configured account",
	Args:  cobra.NoArgs,
	RunE:  runLedgerBalance,
}

var ledgerTopUpCmd = &cobra.Command{
	Use:   "topup <tag> <amount>",
	Short: "Credit an account",
	Args:  cobra.ExactArgs(2),
	RunE:  runLedgerTopUp,
}

var ledgerSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show performance per account",
	Args:  cobra.NoArgs,
	RunE:  runLedgerSummary,
}

var ledgerExportCmd = &cobra.Command{
	Use:   "export <tag>",
	Short: "Replay a ledger and write every step",
	Args:  cobra.ExactArgs(1),
	RunE:  runLedgerExport,
}

var (
	topUpNote    string
	exportFormat string
	exportOutput string
)

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerBalanceCmd)
	ledgerCmd.AddCommand(ledgerTopUpCmd)
	ledgerCmd.AddCommand(ledgerSummaryCmd)
	ledgerCmd.AddCommand(ledgerExportCmd)

	ledgerTopUpCmd.Flags().StringVar(&topUpNote, "note", "manual top-up", "note stored with the credit")
	ledgerExportCmd.Flags().StringVar(&exportFormat, "format", "csv", "csv or org")
	ledgerExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
}

func runLedgerBalance(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	for _, acct := range a.cfg.Accounts {
		l, err := a.ledger(cmd.Context(), acct.Tag)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%-14s %s %s\n", acct.Tag, decimal.NewFromFloat(l.Balance()).StringFixed(2), acct.Currency)
	}
	return nil
}

func runLedgerTopUp(cmd *cobra.Command, args []string) error {
	tag, err := market.ParseTag(args[0])
	if err != nil {
		return err
	}
	amount, err := strconv.ParseFloat(args[1], 64)
	if err != nil || amount <= 0 {
		return fmt.Errorf("amount %q must be a positive number", args[1])
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	l, err := a.ledger(ctx, tag)
	if err != nil {
		return err
	}
	credit := ledger.Credit{Amount: amount, At: time.Now().UTC(), Note: topUpNote}
	if err := l.Append(ctx, credit); err != nil {
		return fmt.Errorf("top up: %w", err)
	}
	a.metrics.Credited(string(tag))
	a.metrics.SetBalance(string(tag), l.Balance())

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Credited %s %s; balance %s\n", tag,
		decimal.NewFromFloat(amount).StringFixed(2),
		decimal.NewFromFloat(l.Balance()).StringFixed(2))
	return nil
}

func runLedgerSummary(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	for _, acct := range a.cfg.Accounts {
		l, err := a.ledger(cmd.Context(), acct.Tag)
		if err != nil {
			return err
		}
		s := l.Summary()
		fmt.Fprintf(out, "%s (%s)\n", s.Tag, s.Currency)
		fmt.Fprintf(out, "  initial  %s\n", decimal.NewFromFloat(s.Initial).StringFixed(2))
		fmt.Fprintf(out, "  credits  %s\n", decimal.NewFromFloat(s.Credits).StringFixed(2))
		fmt.Fprintf(out, "  realized %s\n", decimal.NewFromFloat(s.Realized).StringFixed(2))
		fmt.Fprintf(out, "  balance  %s\n", decimal.NewFromFloat(s.Balance).StringFixed(2))
		fmt.Fprintf(out, "  trades   %d (%d W / %d L), win rate %.1f%%, growth %.1f%%\n",
			s.Trades, s.Wins, s.Losses, 100*s.WinRate, 100*s.Growth)
		if s.Skipped > 0 {
			fmt.Fprintf(out, "  skipped  %d malformed records\n", s.Skipped)
		}
	}
	return nil
}

func runLedgerExport(cmd *cobra.Command, args []string) error {
	tag, err := market.ParseTag(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	l, err := a.ledger(cmd.Context(), tag)
	if err != nil {
		return err
	}
	steps := ledger.Replay(l.InitialCapital, l.Leverage, l.History(), a.logger)

	var w io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOutput, err)
		}
		defer f.Close()
		w = f
	}

	switch exportFormat {
	case "csv":
		return journal.WriteHistoryCSV(w, steps)
	case "org":
		_, err := fmt.Fprintln(w, journal.FormatStepsOrg(steps))
		return err
	default:
		return fmt.Errorf("unknown format %q (csv, org)", exportFormat)
	}
}
