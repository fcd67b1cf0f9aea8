package strategies

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/scalper/indicators"
	"github.com/rustyeddy/scalper/market"
)

// StockConfig parameterizes the five-shield EMA cross detector.
type StockConfig struct {
	Timeframe string `json:"timeframe" yaml:"timeframe"` // 5m

	EMAFast        int     `json:"ema_fast" yaml:"ema_fast"`
	EMASlow        int     `json:"ema_slow" yaml:"ema_slow"`
	EMATrend       int     `json:"ema_trend" yaml:"ema_trend"`
	TrendSlopeBars int     `json:"trend_slope_bars" yaml:"trend_slope_bars"`
	CrossThreshold float64 `json:"cross_threshold" yaml:"cross_threshold"` // (fast-slow)/close

	ADXPeriod int     `json:"adx_period" yaml:"adx_period"`
	ADXMin    float64 `json:"adx_min" yaml:"adx_min"`
	ADXMax    float64 `json:"adx_max" yaml:"adx_max"`

	RSIPeriod int     `json:"rsi_period" yaml:"rsi_period"`
	RSIMin    float64 `json:"rsi_min" yaml:"rsi_min"`
	RSIMax    float64 `json:"rsi_max" yaml:"rsi_max"`

	VolumePeriod     int     `json:"volume_period" yaml:"volume_period"`
	VolumeMultiplier float64 `json:"volume_multiplier" yaml:"volume_multiplier"`

	Lookback   int `json:"lookback" yaml:"lookback"`
	MinCandles int `json:"min_candles" yaml:"min_candles"`

	TrailingBuffer float64 `json:"trailing_buffer" yaml:"trailing_buffer"` // below EMA slow
	StopLossPct    float64 `json:"stop_loss_pct" yaml:"stop_loss_pct"`
	RewardRisk     float64 `json:"reward_risk" yaml:"reward_risk"`
	RiskPct        float64 `json:"risk_pct" yaml:"risk_pct"`
}

func StockConfigDefaults() StockConfig {
	return StockConfig{
		Timeframe:        "5m",
		EMAFast:          9,
		EMASlow:          21,
		EMATrend:         50,
		TrendSlopeBars:   10,
		CrossThreshold:   0.001,
		ADXPeriod:        14,
		ADXMin:           20,
		ADXMax:           50,
		RSIPeriod:        14,
		RSIMin:           45,
		RSIMax:           65,
		VolumePeriod:     20,
		VolumeMultiplier: 1.2,
		Lookback:         4,
		MinCandles:       20,
		TrailingBuffer:   0.0005,
		StopLossPct:      0.005,
		RewardRisk:       1.5,
		RiskPct:          0.20,
	}
}

func (c StockConfig) Validate() error {
	switch {
	case c.EMAFast <= 0 || c.EMASlow <= 0 || c.EMATrend <= 0 || c.ADXPeriod <= 0 ||
		c.RSIPeriod <= 0 || c.VolumePeriod <= 0 || c.TrendSlopeBars <= 0:
		return fmt.Errorf("stock: periods must be positive")
	case c.EMAFast >= c.EMASlow:
		return fmt.Errorf("stock: ema_fast (%d) must be < ema_slow (%d)", c.EMAFast, c.EMASlow)
	case c.ADXMin > c.ADXMax:
		return fmt.Errorf("stock: adx_min %.1f > adx_max %.1f", c.ADXMin, c.ADXMax)
	case c.RSIMin > c.RSIMax:
		return fmt.Errorf("stock: rsi_min %.1f > rsi_max %.1f", c.RSIMin, c.RSIMax)
	case c.Lookback <= 0:
		return fmt.Errorf("stock: lookback must be positive")
	case c.StopLossPct <= 0 || c.StopLossPct >= 1 || c.RewardRisk <= 0:
		return fmt.Errorf("stock: stop_loss_pct must be in (0,1) and reward_risk > 0")
	case c.RiskPct <= 0 || c.RiskPct > 1:
		return fmt.Errorf("stock: risk_pct must be in (0,1]")
	}
	return nil
}

// StockSnapshot is the indicator state of one bar.
type StockSnapshot struct {
	Time       time.Time
	Close      float64
	Volume     float64
	EMAFast    float64
	EMASlow    float64
	EMATrend   float64
	TrendSlope float64
	ADX        float64
	RSI        float64
	VolumeAvg  float64
}

// StockSnapshots computes a snapshot for every candle. Values that cannot be
// computed yet are NaN.
func StockSnapshots(cs market.Candles, cfg StockConfig) []StockSnapshot {
	closes, highs, lows, vols := cs.Closes(), cs.Highs(), cs.Lows(), cs.Volumes()

	fast := indicators.EMASeries(closes, cfg.EMAFast)
	slow := indicators.EMASeries(closes, cfg.EMASlow)
	trend := indicators.EMASeries(closes, cfg.EMATrend)
	slope := indicators.SlopeSeries(trend, cfg.TrendSlopeBars)
	adx := indicators.ADXSeries(highs, lows, closes, cfg.ADXPeriod)
	rsi := indicators.RSISeries(closes, cfg.RSIPeriod)
	volAvg := indicators.SMASeries(vols, cfg.VolumePeriod)

	out := make([]StockSnapshot, len(cs))
	for i, c := range cs {
		out[i] = StockSnapshot{
			Time:       c.Time,
			Close:      c.Close,
			Volume:     c.Volume,
			EMAFast:    fast[i],
			EMASlow:    slow[i],
			EMATrend:   trend[i],
			TrendSlope: slope[i],
			ADX:        adx[i],
			RSI:        rsi[i],
			VolumeAvg:  volAvg[i],
		}
	}
	return out
}

// Shield is one gate of the stock conjunction. Check sees the candidate bar
// and the bar before it.
type Shield struct {
	Name  string
	Check func(cur, prev StockSnapshot, cfg StockConfig) bool
}

func defined(vs ...float64) bool {
	for _, v := range vs {
		if !indicators.Defined(v) {
			return false
		}
	}
	return true
}

// DefaultShields returns the five stock shields. Every one must pass.
func DefaultShields() []Shield {
	return []Shield{
		{Name: "cross", Check: crossShield},
		{Name: "trend", Check: trendShield},
		{Name: "strength", Check: strengthShield},
		{Name: "momentum", Check: momentumShield},
		{Name: "volume", Check: volumeShield},
	}
}

// fresh upward cross, clear of noise, close above both averages
func crossShield(cur, prev StockSnapshot, cfg StockConfig) bool {
	if !defined(cur.EMAFast, cur.EMASlow, prev.EMAFast, prev.EMASlow) || cur.Close <= 0 {
		return false
	}
	if !(cur.EMAFast > cur.EMASlow && prev.EMAFast <= prev.EMASlow) {
		return false
	}
	if (cur.EMAFast-cur.EMASlow)/cur.Close <= cfg.CrossThreshold {
		return false
	}
	return cur.Close > cur.EMAFast && cur.Close > cur.EMASlow
}

func trendShield(cur, _ StockSnapshot, _ StockConfig) bool {
	if !defined(cur.EMATrend, cur.TrendSlope) {
		return false
	}
	return cur.Close > cur.EMATrend && cur.TrendSlope > 0
}

func strengthShield(cur, prev StockSnapshot, cfg StockConfig) bool {
	if !defined(cur.ADX, prev.ADX) {
		return false
	}
	return cur.ADX >= cfg.ADXMin && cur.ADX <= cfg.ADXMax && cur.ADX > prev.ADX
}

func momentumShield(cur, _ StockSnapshot, cfg StockConfig) bool {
	if !defined(cur.RSI) {
		return false
	}
	return cur.RSI >= cfg.RSIMin && cur.RSI <= cfg.RSIMax
}

func volumeShield(cur, prev StockSnapshot, cfg StockConfig) bool {
	if !defined(cur.VolumeAvg) {
		return false
	}
	return cur.Volume > cfg.VolumeMultiplier*cur.VolumeAvg && cur.Volume > prev.Volume
}

// ScanSnapshots checks the last cfg.Lookback bars newest first and returns the
// first bar that passes every shield.
func ScanSnapshots(symbol string, snaps []StockSnapshot, cfg StockConfig, shields []Shield) (Signal, bool) {
	n := len(snaps)
	for off := 1; off <= cfg.Lookback; off++ {
		i := n - off
		if i-1 < 0 {
			break
		}
		cur, prev := snaps[i], snaps[i-1]
		if !passes(cur, prev, cfg, shields) {
			continue
		}

		sig := stockSignal(symbol, cur, cfg)
		sig.Setup = fmt.Sprintf("EMA Cross + %d Shields (offset %d)", len(shields), off)
		if sig.Validate() != nil {
			continue
		}
		return sig, true
	}
	return Signal{}, false
}

func passes(cur, prev StockSnapshot, cfg StockConfig, shields []Shield) bool {
	if len(shields) == 0 {
		return false
	}
	for _, s := range shields {
		if !s.Check(cur, prev, cfg) {
			return false
		}
	}
	return true
}

// stockSignal takes the tighter of a trailing stop under the slow EMA and a
// fixed percentage stop.
func stockSignal(symbol string, cur StockSnapshot, cfg StockConfig) Signal {
	entry := cur.Close
	stop := math.Max(cur.EMASlow*(1-cfg.TrailingBuffer), entry*(1-cfg.StopLossPct))
	return Signal{
		Symbol:     symbol,
		Market:     market.Stock,
		Side:       market.Long,
		Entry:      entry,
		Stop:       stop,
		Target:     entry + cfg.RewardRisk*(entry-stop),
		RiskPct:    cfg.RiskPct,
		DetectedAt: cur.Time,
	}
}

// StockShields is the stock Detector. LONG only.
type StockShields struct {
	StockConfig
	Shields []Shield
}

func NewStockShields(cfg StockConfig) *StockShields {
	if cfg.EMAFast <= 0 || cfg.EMASlow <= 0 || cfg.EMATrend <= 0 {
		panic("stock shields: periods must be > 0")
	}
	return &StockShields{StockConfig: cfg, Shields: DefaultShields()}
}

func (d *StockShields) Name() string         { return "stock-shields" }
func (d *StockShields) Market() market.Tag   { return market.Stock }
func (d *StockShields) Timeframes() []string { return []string{d.Timeframe} }

func (d *StockShields) Detect(symbol string, candles market.Candles) (Signal, bool) {
	if len(candles) < d.MinCandles || len(candles) < 2 {
		return Signal{}, false
	}
	return ScanSnapshots(symbol, StockSnapshots(candles, d.StockConfig), d.StockConfig, d.Shields)
}

func (d *StockShields) Scan(symbol string, windows []market.Candles) (Signal, bool) {
	if len(windows) != 1 {
		return Signal{}, false
	}
	return d.Detect(symbol, windows[0])
}

// DetectStock runs the five-shield detector once with cfg.
func DetectStock(symbol string, candles market.Candles, cfg StockConfig) (Signal, bool) {
	return NewStockShields(cfg).Detect(symbol, candles)
}
