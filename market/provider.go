package market

import "context"

// CandleProvider supplies candle windows. An empty window with a nil error
// means the symbol has no data, which callers treat as "nothing to do".
type CandleProvider interface {
	Fetch(ctx context.Context, symbol, timeframe string, limit int) (Candles, error)
}

// PriceProvider supplies the last traded price for a symbol.
// ok is false when no price is available.
type PriceProvider interface {
	LastPrice(ctx context.Context, symbol string) (price float64, ok bool, err error)
}
