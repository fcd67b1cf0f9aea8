package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/scalper/ledger"
	"github.com/rustyeddy/scalper/logging"
	"github.com/rustyeddy/scalper/market"
	"github.com/rustyeddy/scalper/risk"
	"github.com/rustyeddy/scalper/strategies"
)

// Config is the complete scanner configuration
type Config struct {
	Accounts []AccountConfig `json:"accounts" yaml:"accounts"`
	Crypto   CryptoConfig    `json:"crypto" yaml:"crypto"`
	Stock    StockConfig     `json:"stock" yaml:"stock"`
	Risk     risk.Policy     `json:"risk" yaml:"risk"`
	Scanner  ScannerConfig   `json:"scanner" yaml:"scanner"`
	Journal  JournalConfig   `json:"journal" yaml:"journal"`
	Logging  logging.Config  `json:"logging" yaml:"logging"`
	Metrics  MetricsConfig   `json:"metrics" yaml:"metrics"`
}

// AccountConfig describes one paper ledger
type AccountConfig struct {
	Tag            market.Tag `json:"tag" yaml:"tag"`
	Currency       string     `json:"currency" yaml:"currency"`
	InitialCapital float64    `json:"initial_capital" yaml:"initial_capital"`
	Leverage       float64    `json:"leverage" yaml:"leverage"`
	MinBalance     float64    `json:"min_balance" yaml:"min_balance"` // floor checked before each trade
	TopUp          float64    `json:"top_up" yaml:"top_up"`           // credit added when under the floor
	Enabled        bool       `json:"enabled" yaml:"enabled"`
}

// Account returns the ledger account for a.
func (a AccountConfig) Account() ledger.Account {
	return ledger.Account{
		Tag:            a.Tag,
		Currency:       a.Currency,
		InitialCapital: a.InitialCapital,
		Leverage:       a.Leverage,
	}
}

// CryptoConfig is the symbol list plus the reversal detector parameters
type CryptoConfig struct {
	Symbols []string `json:"symbols" yaml:"symbols"`
	Limit   int      `json:"limit" yaml:"limit"` // candles fetched per timeframe

	strategies.CryptoConfig `yaml:",inline"`
}

// StockConfig is the symbol list plus the shield detector parameters
type StockConfig struct {
	Symbols []string `json:"symbols" yaml:"symbols"`
	Limit   int      `json:"limit" yaml:"limit"`

	strategies.StockConfig `yaml:",inline"`
}

// ScannerConfig contains orchestration parameters
type ScannerConfig struct {
	Concurrency int    `json:"concurrency" yaml:"concurrency"`
	SessionGate bool   `json:"session_gate" yaml:"session_gate"` // skip markets outside trading hours
	CandleDir   string `json:"candle_dir" yaml:"candle_dir"`     // <dir>/<SYMBOL>_<tf>.csv
	PricesFile  string `json:"prices_file" yaml:"prices_file"`   // symbol,price rows for poll
}

// JournalConfig contains persistence parameters
type JournalConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

// MetricsConfig contains the Prometheus textfile output
type MetricsConfig struct {
	Textfile string `json:"textfile,omitempty" yaml:"textfile,omitempty"` // empty disables
}

// LoadFromFile loads configuration from a file (YAML or JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Unset fields keep their defaults.
	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Accounts) == 0 {
		return fmt.Errorf("at least one account is required")
	}
	seen := make(map[market.Tag]bool)
	for i, a := range c.Accounts {
		if _, err := market.ParseTag(string(a.Tag)); err != nil || a.Tag == market.Crypto {
			return fmt.Errorf("accounts[%d].tag %q must be CRYPTO_SPOT, CRYPTO_FUTURE or STOCK", i, a.Tag)
		}
		if seen[a.Tag] {
			return fmt.Errorf("accounts[%d]: duplicate account for %s", i, a.Tag)
		}
		seen[a.Tag] = true
		if a.Currency == "" {
			return fmt.Errorf("accounts[%d].currency is required", i)
		}
		if a.InitialCapital <= 0 {
			return fmt.Errorf("accounts[%d].initial_capital must be positive", i)
		}
		if a.Leverage < 1 {
			return fmt.Errorf("accounts[%d].leverage must be at least 1", i)
		}
		if a.Tag == market.CryptoSpot && a.Leverage != 1 {
			return fmt.Errorf("accounts[%d]: spot accounts cannot use leverage", i)
		}
		if a.MinBalance < 0 || a.TopUp < 0 {
			return fmt.Errorf("accounts[%d]: min_balance and top_up must not be negative", i)
		}
	}

	if err := c.Crypto.CryptoConfig.Validate(); err != nil {
		return fmt.Errorf("crypto: %w", err)
	}
	if err := c.Stock.StockConfig.Validate(); err != nil {
		return fmt.Errorf("stock: %w", err)
	}
	if c.Crypto.Limit < c.Crypto.MinCandles {
		return fmt.Errorf("crypto.limit %d is below min_candles %d", c.Crypto.Limit, c.Crypto.MinCandles)
	}
	if c.Stock.Limit < c.Stock.MinCandles {
		return fmt.Errorf("stock.limit %d is below min_candles %d", c.Stock.Limit, c.Stock.MinCandles)
	}

	if c.Risk.MaxRiskPct < 0 || c.Risk.MaxRiskPct > 1 {
		return fmt.Errorf("risk.max_risk_pct must be between 0 and 1")
	}
	if c.Risk.MaxOpenTrades < 0 || c.Risk.MinRR < 0 {
		return fmt.Errorf("risk limits must not be negative")
	}

	if c.Scanner.Concurrency < 1 {
		return fmt.Errorf("scanner.concurrency must be at least 1")
	}
	if c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path is required")
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	return nil
}

// AccountFor returns the enabled account for tag.
func (c *Config) AccountFor(tag market.Tag) (AccountConfig, bool) {
	for _, a := range c.Accounts {
		if a.Tag == tag && a.Enabled {
			return a, true
		}
	}
	return AccountConfig{}, false
}

// Default returns a configuration with the stock scanner defaults
func Default() *Config {
	return &Config{
		Accounts: []AccountConfig{
			{Tag: market.CryptoSpot, Currency: "USDT", InitialCapital: 10, Leverage: 1, MinBalance: 5, TopUp: 10, Enabled: true},
			{Tag: market.CryptoFuture, Currency: "USDT", InitialCapital: 10, Leverage: 5, MinBalance: 5, TopUp: 10, Enabled: true},
			{Tag: market.Stock, Currency: "INR", InitialCapital: 30000, Leverage: 1, MinBalance: 5, TopUp: 30000, Enabled: true},
		},
		Crypto: CryptoConfig{
			Symbols:      []string{"BTC/USDT", "ETH/USDT", "SOL/USDT", "BNB/USDT", "XRP/USDT"},
			Limit:        100,
			CryptoConfig: strategies.CryptoConfigDefaults(),
		},
		Stock: StockConfig{
			Symbols:     []string{"RELIANCE.NS", "TCS.NS", "INFY.NS", "HDFCBANK.NS", "ICICIBANK.NS"},
			Limit:       100,
			StockConfig: strategies.StockConfigDefaults(),
		},
		Risk: risk.Policy{},
		Scanner: ScannerConfig{
			Concurrency: 4,
			SessionGate: true,
			CandleDir:   "./data",
			PricesFile:  "./prices.csv",
		},
		Journal: JournalConfig{
			DBPath: "./scalper.sqlite",
		},
		Logging: logging.Defaults(),
	}
}
