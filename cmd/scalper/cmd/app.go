package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/scalper/config"
	"github.com/rustyeddy/scalper/journal"
	"github.com/rustyeddy/scalper/ledger"
	"github.com/rustyeddy/scalper/market"
	"github.com/rustyeddy/scalper/metrics"
	"github.com/rustyeddy/scalper/notify"
	"github.com/rustyeddy/scalper/paper"
	"github.com/rustyeddy/scalper/scanner"
	"github.com/rustyeddy/scalper/strategies"
)

// app is the wiring shared by the commands that touch the journal.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	journal *journal.SQLite
	metrics *metrics.Metrics

	closers []io.Closer
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, logCloser, err := newLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}

	j, err := journal.NewSQLite(cfg.Journal.DBPath)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("open journal: %w", err)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		journal: j,
		metrics: metrics.New(),
		closers: []io.Closer{j, logCloser},
	}, nil
}

func (a *app) Close() error {
	var errs []error
	if a.cfg.Metrics.Textfile != "" {
		if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// account returns the configured account for tag, enabled or not.
func (a *app) account(tag market.Tag) (config.AccountConfig, error) {
	for _, acct := range a.cfg.Accounts {
		if acct.Tag == tag {
			return acct, nil
		}
	}
	return config.AccountConfig{}, fmt.Errorf("no account configured for %s", tag)
}

func (a *app) ledger(ctx context.Context, tag market.Tag) (*ledger.Ledger, error) {
	acct, err := a.account(tag)
	if err != nil {
		return nil, err
	}
	return ledger.Open(ctx, acct.Account(), a.journal, a.logger)
}

// scanner builds a scanner over every enabled account.
func (a *app) scanner(ctx context.Context) (*scanner.Scanner, error) {
	cfg := a.cfg
	registry := strategies.NewRegistry(
		strategies.NewCryptoReversal(cfg.Crypto.CryptoConfig),
		strategies.NewStockShields(cfg.Stock.StockConfig),
	)

	s := scanner.New(scanner.Config{
		Concurrency: cfg.Scanner.Concurrency,
		SessionGate: cfg.Scanner.SessionGate,
		Policy:      cfg.Risk,
	}, market.CSVDir{Dir: cfg.Scanner.CandleDir}, registry, a.logger)
	s.SetSignalLog(a.journal)
	s.SetNotifier(notify.NewLogNotifier(a.logger))
	s.SetMetrics(a.metrics)
	s.Watch(market.Crypto, cfg.Crypto.Symbols, cfg.Crypto.Limit)
	s.Watch(market.Stock, cfg.Stock.Symbols, cfg.Stock.Limit)

	for _, acct := range cfg.Accounts {
		if !acct.Enabled {
			continue
		}
		l, err := ledger.Open(ctx, acct.Account(), a.journal, a.logger)
		if err != nil {
			return nil, err
		}
		m, err := paper.NewManager(ctx, l, a.journal, a.logger)
		if err != nil {
			return nil, fmt.Errorf("restore %s: %w", acct.Tag, err)
		}
		s.AddAccount(scanner.Account{Manager: m, MinBalance: acct.MinBalance, TopUp: acct.TopUp})
	}
	return s, nil
}
