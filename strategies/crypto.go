package strategies

import (
	"fmt"
	"time"

	"github.com/rustyeddy/scalper/indicators"
	"github.com/rustyeddy/scalper/market"
)

// CryptoConfig parameterizes the dual-timeframe RSI reversal detector.
type CryptoConfig struct {
	ExecTimeframe string `json:"exec_timeframe" yaml:"exec_timeframe"` // 1m
	HTFTimeframe  string `json:"htf_timeframe" yaml:"htf_timeframe"`   // 5m

	RSIPeriod  int     `json:"rsi_period" yaml:"rsi_period"`
	Oversold   float64 `json:"oversold" yaml:"oversold"`
	Overbought float64 `json:"overbought" yaml:"overbought"`

	TrendFast int `json:"trend_fast" yaml:"trend_fast"`
	TrendSlow int `json:"trend_slow" yaml:"trend_slow"`

	Lookback           int  `json:"lookback" yaml:"lookback"`
	MinCandles         int  `json:"min_candles" yaml:"min_candles"`
	VolumePeriod       int  `json:"volume_period" yaml:"volume_period"`
	RequireVolumeSpike bool `json:"require_volume_spike" yaml:"require_volume_spike"`

	StopLossPct   float64 `json:"stop_loss_pct" yaml:"stop_loss_pct"`     // 0.005
	TakeProfitPct float64 `json:"take_profit_pct" yaml:"take_profit_pct"` // 0.01
	RiskPct       float64 `json:"risk_pct" yaml:"risk_pct"`
}

func CryptoConfigDefaults() CryptoConfig {
	return CryptoConfig{
		ExecTimeframe: "1m",
		HTFTimeframe:  "5m",
		RSIPeriod:     14,
		Oversold:      30,
		Overbought:    70,
		TrendFast:     20,
		TrendSlow:     50,
		Lookback:      10,
		MinCandles:    50,
		VolumePeriod:  20,
		StopLossPct:   0.005,
		TakeProfitPct: 0.01,
		RiskPct:       0.95,
	}
}

// Validate reports configuration that would make the detector meaningless.
func (c CryptoConfig) Validate() error {
	switch {
	case c.RSIPeriod <= 0 || c.TrendFast <= 0 || c.TrendSlow <= 0 || c.VolumePeriod <= 0:
		return fmt.Errorf("crypto: periods must be positive")
	case c.TrendFast >= c.TrendSlow:
		return fmt.Errorf("crypto: trend_fast (%d) must be < trend_slow (%d)", c.TrendFast, c.TrendSlow)
	case c.Oversold <= 0 || c.Overbought >= 100 || c.Oversold >= c.Overbought:
		return fmt.Errorf("crypto: need 0 < oversold < overbought < 100")
	case c.Lookback <= 0:
		return fmt.Errorf("crypto: lookback must be positive")
	case c.StopLossPct <= 0 || c.StopLossPct >= 1 || c.TakeProfitPct <= 0:
		return fmt.Errorf("crypto: stop_loss_pct must be in (0,1) and take_profit_pct > 0")
	case c.RiskPct <= 0 || c.RiskPct > 1:
		return fmt.Errorf("crypto: risk_pct must be in (0,1]")
	}
	return nil
}

type Trend string

const (
	Bullish Trend = "BULLISH"
	Bearish Trend = "BEARISH"
)

type VWAPPosition string

const (
	AboveVWAP VWAPPosition = "ABOVE"
	BelowVWAP VWAPPosition = "BELOW"
)

// CryptoFrame holds everything the reversal scan looks at, computed once
// per call. Tests build frames by hand to pin indicator values.
type CryptoFrame struct {
	Times     []time.Time
	Closes    []float64
	Volumes   []float64
	RSI       []float64
	VolumeAvg []float64

	// Latest higher-timeframe values.
	TrendFast float64
	TrendSlow float64
	VWAP      float64
}

// NewCryptoFrame computes the indicators for one detection. It returns false
// when either window is shorter than cfg.MinCandles.
func NewCryptoFrame(exec, htf market.Candles, cfg CryptoConfig) (CryptoFrame, bool) {
	if len(exec) < cfg.MinCandles || len(htf) < cfg.MinCandles || len(exec) == 0 {
		return CryptoFrame{}, false
	}

	htfCloses := htf.Closes()
	fast, _ := indicators.EMA(htfCloses, cfg.TrendFast)
	slow, _ := indicators.EMA(htfCloses, cfg.TrendSlow)
	vwap, _ := indicators.VWAP(htf.Highs(), htf.Lows(), htfCloses, htf.Volumes())

	closes := exec.Closes()
	volumes := exec.Volumes()
	times := make([]time.Time, len(exec))
	for i, c := range exec {
		times[i] = c.Time
	}

	return CryptoFrame{
		Times:     times,
		Closes:    closes,
		Volumes:   volumes,
		RSI:       indicators.RSISeries(closes, cfg.RSIPeriod),
		VolumeAvg: indicators.SMASeries(volumes, cfg.VolumePeriod),
		TrendFast: fast,
		TrendSlow: slow,
		VWAP:      vwap,
	}, true
}

// Trend compares the HTF EMAs. ok is false when either is undefined.
func (f CryptoFrame) Trend() (Trend, bool) {
	if !indicators.Defined(f.TrendFast) || !indicators.Defined(f.TrendSlow) {
		return "", false
	}
	if f.TrendFast > f.TrendSlow {
		return Bullish, true
	}
	return Bearish, true
}

// PriceVsVWAP compares the latest execution close to the HTF VWAP.
func (f CryptoFrame) PriceVsVWAP() (VWAPPosition, bool) {
	if len(f.Closes) == 0 || !indicators.Defined(f.VWAP) {
		return "", false
	}
	if f.Closes[len(f.Closes)-1] > f.VWAP {
		return AboveVWAP, true
	}
	return BelowVWAP, true
}

func (f CryptoFrame) volumeSpike(i int) bool {
	avg := indicators.At(f.VolumeAvg, i)
	return indicators.Defined(avg) && indicators.At(f.Volumes, i) > avg
}

// ScanFrame walks offsets 1..cfg.Lookback (offset 1 is the last candle) and
// returns the first reversal it finds. Each offset is compared with the one
// before it in time.
func ScanFrame(symbol string, f CryptoFrame, cfg CryptoConfig) (Signal, bool) {
	trend, ok := f.Trend()
	if !ok {
		return Signal{}, false
	}
	pos, ok := f.PriceVsVWAP()
	if !ok {
		return Signal{}, false
	}

	n := len(f.Closes)
	for off := 1; off <= cfg.Lookback; off++ {
		i := n - off
		if i-1 < 0 {
			break
		}
		cur, prev := indicators.At(f.RSI, i), indicators.At(f.RSI, i-1)
		if !indicators.Defined(cur) || !indicators.Defined(prev) {
			continue
		}
		if cfg.RequireVolumeSpike && !f.volumeSpike(i) {
			continue
		}

		var side market.Side
		var setup string
		switch {
		case trend == Bullish && pos == AboveVWAP && prev < cfg.Oversold && cur >= cfg.Oversold:
			side = market.Long
			setup = fmt.Sprintf("RSI Oversold Reversal (offset %d, RSI %.1f -> %.1f)", off, prev, cur)
		case trend == Bearish && pos == BelowVWAP && prev > cfg.Overbought && cur <= cfg.Overbought:
			side = market.Short
			setup = fmt.Sprintf("RSI Overbought Reversal (offset %d, RSI %.1f -> %.1f)", off, prev, cur)
		default:
			continue
		}

		sig := cryptoSignal(symbol, side, f.Closes[i], cfg)
		sig.Setup = setup
		if i < len(f.Times) {
			sig.DetectedAt = f.Times[i]
		}
		if sig.Validate() != nil {
			continue
		}
		return sig, true
	}
	return Signal{}, false
}

func cryptoSignal(symbol string, side market.Side, entry float64, cfg CryptoConfig) Signal {
	s := Signal{
		Symbol:  symbol,
		Market:  market.Crypto,
		Side:    side,
		Entry:   entry,
		RiskPct: cfg.RiskPct,
	}
	if side == market.Long {
		s.Stop = entry * (1 - cfg.StopLossPct)
		s.Target = entry * (1 + cfg.TakeProfitPct)
	} else {
		s.Stop = entry * (1 + cfg.StopLossPct)
		s.Target = entry * (1 - cfg.TakeProfitPct)
	}
	return s
}

// CryptoReversal is the crypto Detector.
type CryptoReversal struct {
	CryptoConfig
}

func NewCryptoReversal(cfg CryptoConfig) *CryptoReversal {
	if cfg.RSIPeriod <= 0 || cfg.TrendFast <= 0 || cfg.TrendSlow <= 0 {
		panic("crypto reversal: periods must be > 0")
	}
	return &CryptoReversal{CryptoConfig: cfg}
}

func (d *CryptoReversal) Name() string       { return "crypto-reversal" }
func (d *CryptoReversal) Market() market.Tag { return market.Crypto }

func (d *CryptoReversal) Timeframes() []string {
	return []string{d.ExecTimeframe, d.HTFTimeframe}
}

// Detect looks for an RSI reversal on exec confirmed by the htf trend.
func (d *CryptoReversal) Detect(symbol string, exec, htf market.Candles) (Signal, bool) {
	f, ok := NewCryptoFrame(exec, htf, d.CryptoConfig)
	if !ok {
		return Signal{}, false
	}
	return ScanFrame(symbol, f, d.CryptoConfig)
}

func (d *CryptoReversal) Scan(symbol string, windows []market.Candles) (Signal, bool) {
	if len(windows) != 2 {
		return Signal{}, false
	}
	return d.Detect(symbol, windows[0], windows[1])
}

// DetectCrypto runs the reversal detector once with cfg.
func DetectCrypto(symbol string, exec, htf market.Candles, cfg CryptoConfig) (Signal, bool) {
	return NewCryptoReversal(cfg).Detect(symbol, exec, htf)
}
