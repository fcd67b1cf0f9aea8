package indicators

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

// ADXSeries computes Wilder's Average Directional Index (trend strength).
//
// Only the smoothed ADX line is returned; +DI/-DI are not needed downstream.
// The first 2*period-1 entries are NaN (talib's warm-up region).
func ADXSeries(high, low, close []float64, period int) []float64 {
	n := len(close)
	out := nanSeries(n)
	if period <= 0 || len(high) != n || len(low) != n || n < 2*period {
		return out
	}

	adx := talib.Adx(high, low, close, period)
	for i := 2*period - 1; i < n && i < len(adx); i++ {
		if !math.IsNaN(adx[i]) {
			out[i] = adx[i]
		}
	}
	return out
}

// ADX returns the latest ADX value.
func ADX(high, low, close []float64, period int) (float64, bool) {
	return last(ADXSeries(high, low, close, period))
}
