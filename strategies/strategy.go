package strategies

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rustyeddy/scalper/market"
)

// Detector is the minimal interface a signal detector must implement.
//
// Timeframes lists the candle windows Scan expects, in order. Scan is pure:
// the same windows always give the same answer, so callers may run it
// concurrently for different symbols.
type Detector interface {
	Name() string
	Market() market.Tag
	Timeframes() []string
	Scan(symbol string, windows []market.Candles) (Signal, bool)
}

// Registry maps a market family to its detector.
type Registry struct {
	mu        sync.RWMutex
	detectors map[market.Tag]Detector
}

func NewRegistry(ds ...Detector) *Registry {
	r := &Registry{detectors: make(map[market.Tag]Detector)}
	for _, d := range ds {
		r.Register(d)
	}
	return r
}

// Register replaces any detector already registered for d's market family.
func (r *Registry) Register(d Detector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detectors[d.Market().Family()] = d
}

func (r *Registry) Lookup(tag market.Tag) (Detector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.detectors[tag.Family()]
	return d, ok
}

// Markets returns the registered families in sorted order.
func (r *Registry) Markets() []market.Tag {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]market.Tag, 0, len(r.detectors))
	for t := range r.detectors {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ByName builds a detector from its configured name.
func ByName(name string, crypto CryptoConfig, stock StockConfig) (Detector, error) {
	switch name {
	case "crypto", "crypto-reversal":
		return NewCryptoReversal(crypto), nil
	case "stock", "stock-shields":
		return NewStockShields(stock), nil
	default:
		return nil, fmt.Errorf("unknown detector %q (supported: crypto-reversal, stock-shields)", name)
	}
}
