package indicators

// NeutralRSI is returned by RSI when there is not enough history.
// It sits between the usual 30/70 thresholds so it never reads as a signal.
const NeutralRSI = 50.0

// RSISeries computes Wilder's Relative Strength Index.
//
// The average gain and loss are seeded from the first period deltas and then
// rolled forward one bar at a time with Wilder smoothing. When the average loss
// is zero the RSI is 100. Entries before index period are NaN.
func RSISeries(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 || len(values) < period+1 {
		return out
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := values[i] - values[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	p := float64(period)
	avgGain, avgLoss := gain/p, loss/p
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		var g, l float64
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*(p-1) + g) / p
		avgLoss = (avgLoss*(p-1) + l) / p
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// RSI returns the latest RSI, or NeutralRSI if it cannot be computed.
func RSI(values []float64, period int) float64 {
	v, ok := last(RSISeries(values, period))
	if !ok {
		return NeutralRSI
	}
	return v
}
