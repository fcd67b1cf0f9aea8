package market

import (
	"fmt"
	"time"
)

// Candle represents one OHLCV bar.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Candles is an ordered window of bars, oldest first.
type Candles []Candle

func (cs Candles) Closes() []float64  { return cs.column(func(c Candle) float64 { return c.Close }) }
func (cs Candles) Highs() []float64   { return cs.column(func(c Candle) float64 { return c.High }) }
func (cs Candles) Lows() []float64    { return cs.column(func(c Candle) float64 { return c.Low }) }
func (cs Candles) Volumes() []float64 { return cs.column(func(c Candle) float64 { return c.Volume }) }

func (cs Candles) column(f func(Candle) float64) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = f(c)
	}
	return out
}

// Last returns the most recent candle.
func (cs Candles) Last() (Candle, bool) {
	if len(cs) == 0 {
		return Candle{}, false
	}
	return cs[len(cs)-1], true
}

// Tail returns at most the last n candles.
func (cs Candles) Tail(n int) Candles {
	if n <= 0 || n >= len(cs) {
		return cs
	}
	return cs[len(cs)-n:]
}

// Validate checks the window is strictly ascending in time.
func (cs Candles) Validate() error {
	for i := 1; i < len(cs); i++ {
		if !cs[i].Time.After(cs[i-1].Time) {
			return fmt.Errorf("candle %d at %s is not after %s", i,
				cs[i].Time.Format(time.RFC3339), cs[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}
