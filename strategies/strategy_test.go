package strategies

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/scalper/market"
)

func TestSignalValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sig  Signal
		ok   bool
	}{
		{"long", Signal{Side: market.Long, Entry: 100, Stop: 99, Target: 102}, true},
		{"short", Signal{Side: market.Short, Entry: 100, Stop: 101, Target: 98}, true},
		{"long stop above entry", Signal{Side: market.Long, Entry: 100, Stop: 101, Target: 102}, false},
		{"long target below entry", Signal{Side: market.Long, Entry: 100, Stop: 99, Target: 99.5}, false},
		{"short inverted", Signal{Side: market.Short, Entry: 100, Stop: 99, Target: 102}, false},
		{"zero entry", Signal{Side: market.Long, Entry: 0, Stop: 99, Target: 102}, false},
		{"no side", Signal{Entry: 100, Stop: 99, Target: 102}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.sig.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidSignal))
		})
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	crypto := NewCryptoReversal(CryptoConfigDefaults())
	stock := NewStockShields(StockConfigDefaults())
	r := NewRegistry(crypto, stock)

	assert.Equal(t, []market.Tag{market.Crypto, market.Stock}, r.Markets())

	d, ok := r.Lookup(market.CryptoFuture)
	require.True(t, ok)
	assert.Equal(t, "crypto-reversal", d.Name())

	d, ok = r.Lookup(market.Stock)
	require.True(t, ok)
	assert.Same(t, stock, d)

	_, ok = NewRegistry().Lookup(market.Stock)
	assert.False(t, ok)
}

func TestByName(t *testing.T) {
	t.Parallel()

	d, err := ByName("crypto-reversal", CryptoConfigDefaults(), StockConfigDefaults())
	require.NoError(t, err)
	assert.Equal(t, market.Crypto, d.Market())

	d, err = ByName("stock", CryptoConfigDefaults(), StockConfigDefaults())
	require.NoError(t, err)
	assert.Equal(t, market.Stock, d.Market())

	_, err = ByName("ema-cross", CryptoConfigDefaults(), StockConfigDefaults())
	assert.Error(t, err)
}
