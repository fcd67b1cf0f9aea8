// Package metrics holds the Prometheus collectors for scans and trades.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Signals      *prometheus.CounterVec   // labels: market, side
	TradesOpened *prometheus.CounterVec   // labels: market
	TradesClosed *prometheus.CounterVec   // labels: market, outcome
	Credits      *prometheus.CounterVec   // labels: market
	Balance      *prometheus.GaugeVec     // labels: market
	ScanDuration *prometheus.HistogramVec // labels: market

	gatherer prometheus.Gatherer
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m, err := NewWith(reg)
	if err != nil {
		// A fresh registry cannot have collisions.
		panic(err)
	}
	return m
}

// NewWith registers the collectors on reg.
func NewWith(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scalper_signals_total",
			Help: "Signals emitted by the detectors",
		}, []string{"market", "side"}),
		TradesOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scalper_trades_opened_total",
			Help: "Paper trades opened",
		}, []string{"market"}),
		TradesClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scalper_trades_closed_total",
			Help: "Paper trades closed by outcome",
		}, []string{"market", "outcome"}),
		Credits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scalper_credits_total",
			Help: "Top-up credits appended to a ledger",
		}, []string{"market"}),
		Balance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scalper_balance",
			Help: "Folded ledger balance",
		}, []string{"market"}),
		ScanDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scalper_scan_duration_seconds",
			Help:    "Wall time of one scan over all symbols of a market",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"market"}),
	}

	for _, c := range []prometheus.Collector{
		m.Signals, m.TradesOpened, m.TradesClosed, m.Credits, m.Balance, m.ScanDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m, nil
}

func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return nil
	}
	return m.gatherer
}

func (m *Metrics) SignalDetected(market, side string) {
	if m == nil {
		return
	}
	m.Signals.WithLabelValues(market, side).Inc()
}

func (m *Metrics) TradeOpened(market string) {
	if m == nil {
		return
	}
	m.TradesOpened.WithLabelValues(market).Inc()
}

func (m *Metrics) TradeClosed(market, outcome string) {
	if m == nil {
		return
	}
	m.TradesClosed.WithLabelValues(market, outcome).Inc()
}

func (m *Metrics) Credited(market string) {
	if m == nil {
		return
	}
	m.Credits.WithLabelValues(market).Inc()
}

func (m *Metrics) SetBalance(market string, v float64) {
	if m == nil {
		return
	}
	m.Balance.WithLabelValues(market).Set(v)
}

func (m *Metrics) ObserveScan(market string, d time.Duration) {
	if m == nil {
		return
	}
	m.ScanDuration.WithLabelValues(market).Observe(d.Seconds())
}

// WriteTextfile writes the current values in the text exposition format
// for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || m.gatherer == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.gatherer)
}
