package market

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ReadCandlesCSV reads canonical candle rows:
//
//	time,open,high,low,close,volume
//
// where time is RFC3339, RFC3339Nano or unix milliseconds.
// A single header row ("time,...") is allowed and empty rows are skipped.
func ReadCandlesCSV(r io.Reader) (Candles, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var out Candles
	sawFirst := false
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		if !sawFirst {
			sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") ||
				strings.EqualFold(strings.TrimSpace(row[0]), "timestamp") {
				continue
			}
		}

		c, err := parseCandleRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadCandlesCSV reads a candle file from disk.
func LoadCandlesCSV(path string) (Candles, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cs, err := ReadCandlesCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return cs, nil
}

func parseCandleRow(row []string) (Candle, error) {
	if len(row) < 6 {
		return Candle{}, fmt.Errorf("short candle row: %v", row)
	}

	t, err := parseTime(strings.TrimSpace(row[0]))
	if err != nil {
		return Candle{}, err
	}

	var vals [5]float64
	for i := range vals {
		s := strings.TrimSpace(row[i+1])
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Candle{}, fmt.Errorf("bad number %q: %w", s, err)
		}
		vals[i] = v
	}

	return Candle{
		Time:   t,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}

func parseTime(ts string) (time.Time, error) {
	if ms, err := strconv.ParseInt(ts, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		t2, err2 := time.Parse(time.RFC3339Nano, ts)
		if err2 != nil {
			return time.Time{}, fmt.Errorf("bad time %q: %w", ts, err)
		}
		t = t2
	}
	return t, nil
}

// CSVDir serves candle windows from <Dir>/<SYMBOL>_<timeframe>.csv.
// Slashes in symbols are replaced by dashes, so BTC/USDT 1m reads BTC-USDT_1m.csv.
type CSVDir struct {
	Dir string
}

func (d CSVDir) Path(symbol, timeframe string) string {
	name := strings.ReplaceAll(symbol, "/", "-") + "_" + timeframe + ".csv"
	return filepath.Join(d.Dir, name)
}

func (d CSVDir) Fetch(ctx context.Context, symbol, timeframe string, limit int) (Candles, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cs, err := LoadCandlesCSV(d.Path(symbol, timeframe))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cs.Tail(limit), nil
}

// CSVPrices is a PriceProvider backed by "symbol,price" rows.
type CSVPrices struct {
	mu     sync.RWMutex
	prices map[string]float64
}

func LoadPricesCSV(path string) (*CSVPrices, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	p := &CSVPrices{prices: make(map[string]float64)}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if len(row) < 2 || strings.EqualFold(strings.TrimSpace(row[0]), "symbol") {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("bad price %q for %s: %w", row[1], row[0], err)
		}
		p.prices[strings.TrimSpace(row[0])] = v
	}
	return p, nil
}

// NewPrices builds an in-memory PriceProvider.
func NewPrices(prices map[string]float64) *CSVPrices {
	p := &CSVPrices{prices: make(map[string]float64, len(prices))}
	for k, v := range prices {
		p.prices[k] = v
	}
	return p
}

func (p *CSVPrices) Set(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[symbol] = price
}

func (p *CSVPrices) LastPrice(ctx context.Context, symbol string) (float64, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.prices[symbol]
	return v, ok, nil
}
