package indicators

// VWAPSeries computes the cumulative volume-weighted average of the typical
// price (h+l+c)/3 from the start of the window. It is not session anchored,
// since crypto trades continuously. Entries are NaN while cumulative volume is 0.
func VWAPSeries(high, low, close, volume []float64) []float64 {
	n := len(close)
	out := nanSeries(n)
	if len(high) != n || len(low) != n || len(volume) != n {
		return out
	}

	var pv, vol float64
	for i := 0; i < n; i++ {
		tp := (high[i] + low[i] + close[i]) / 3
		pv += tp * volume[i]
		vol += volume[i]
		if vol > 0 {
			out[i] = pv / vol
		}
	}
	return out
}

// VWAP returns the current (final cumulative) VWAP.
func VWAP(high, low, close, volume []float64) (float64, bool) {
	return last(VWAPSeries(high, low, close, volume))
}
