// Package indicators provides technical analysis indicators for signal detection.
//
// Every function is pure: identical input always yields identical output, so the
// same code serves live scans, replays and tests. Series functions return a slice
// aligned with their input where entries that cannot be computed yet are NaN.
package indicators

import "math"

// Defined reports whether v holds a computed value.
func Defined(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// At returns s[i], or NaN when i is out of range.
func At(s []float64, i int) float64 {
	if i < 0 || i >= len(s) {
		return math.NaN()
	}
	return s[i]
}

func last(s []float64) (float64, bool) {
	if len(s) == 0 {
		return math.NaN(), false
	}
	v := s[len(s)-1]
	return v, Defined(v)
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// Slope returns the relative change of s over lookback bars ending at i:
// (s[i] - s[i-lookback]) / s[i-lookback].
func Slope(s []float64, i, lookback int) (float64, bool) {
	if lookback <= 0 {
		return math.NaN(), false
	}
	now, then := At(s, i), At(s, i-lookback)
	if !Defined(now) || !Defined(then) || then == 0 {
		return math.NaN(), false
	}
	return (now - then) / then, true
}

// SlopeSeries applies Slope at every index.
func SlopeSeries(s []float64, lookback int) []float64 {
	out := nanSeries(len(s))
	for i := range s {
		if v, ok := Slope(s, i, lookback); ok {
			out[i] = v
		}
	}
	return out
}
