package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, g prometheus.Gatherer, name string, labels map[string]string) float64 {
	t.Helper()

	mfs, err := g.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matches(m, labels) {
				switch {
				case m.Counter != nil:
					return m.GetCounter().GetValue()
				case m.Gauge != nil:
					return m.GetGauge().GetValue()
				case m.Histogram != nil:
					return float64(m.GetHistogram().GetSampleCount())
				}
			}
		}
	}
	t.Fatalf("metric %s %v not found", name, labels)
	return 0
}

func matches(m *dto.Metric, labels map[string]string) bool {
	if len(m.GetLabel()) != len(labels) {
		return false
	}
	for _, lp := range m.GetLabel() {
		if labels[lp.GetName()] != lp.GetValue() {
			return false
		}
	}
	return true
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	m := New()
	m.SignalDetected("CRYPTO", "LONG")
	m.SignalDetected("CRYPTO", "LONG")
	m.TradeOpened("CRYPTO_SPOT")
	m.TradeClosed("CRYPTO_SPOT", "WIN")
	m.Credited("STOCK")
	m.SetBalance("STOCK", 30000)
	m.ObserveScan("STOCK", 150*time.Millisecond)

	g := m.Gatherer()
	assert.Equal(t, 2.0, value(t, g, "scalper_signals_total", map[string]string{"market": "CRYPTO", "side": "LONG"}))
	assert.Equal(t, 1.0, value(t, g, "scalper_trades_opened_total", map[string]string{"market": "CRYPTO_SPOT"}))
	assert.Equal(t, 1.0, value(t, g, "scalper_trades_closed_total", map[string]string{"market": "CRYPTO_SPOT", "outcome": "WIN"}))
	assert.Equal(t, 1.0, value(t, g, "scalper_credits_total", map[string]string{"market": "STOCK"}))
	assert.Equal(t, 30000.0, value(t, g, "scalper_balance", map[string]string{"market": "STOCK"}))
	assert.Equal(t, 1.0, value(t, g, "scalper_scan_duration_seconds", map[string]string{"market": "STOCK"}))
}

func TestNewWithRejectsDuplicates(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewWith(reg)
	require.NoError(t, err)
	_, err = NewWith(reg)
	assert.Error(t, err)
}

func TestNilMetrics(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.SignalDetected("CRYPTO", "LONG")
		m.SetBalance("STOCK", 1)
		assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
	})
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	m := New()
	m.SetBalance("CRYPTO_FUTURE", 10.5)

	path := filepath.Join(t.TempDir(), "scalper.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `scalper_balance{market="CRYPTO_FUTURE"} 10.5`)
}
