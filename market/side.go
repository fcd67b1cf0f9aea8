package market

import (
	"fmt"
	"strings"
)

// Side is the direction of a signal or trade.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

func (s Side) String() string { return string(s) }

// Sign returns +1 for long and -1 for short.
func (s Side) Sign() float64 {
	if s == Short {
		return -1
	}
	return 1
}

func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LONG", "BUY":
		return Long, nil
	case "SHORT", "SELL":
		return Short, nil
	default:
		return "", fmt.Errorf("unknown side %q", s)
	}
}

// Tag identifies the market a ledger, trade or signal belongs to.
type Tag string

const (
	// Crypto is the signal-level family; trades land on the spot or futures ledger.
	Crypto       Tag = "CRYPTO"
	CryptoSpot   Tag = "CRYPTO_SPOT"
	CryptoFuture Tag = "CRYPTO_FUTURE"
	Stock        Tag = "STOCK"
)

func (t Tag) String() string { return string(t) }

// IsCrypto reports whether t is the crypto family or one of its ledgers.
func (t Tag) IsCrypto() bool { return t == Crypto || t == CryptoSpot || t == CryptoFuture }

// Family maps a ledger tag to its signal family.
func (t Tag) Family() Tag {
	if t.IsCrypto() {
		return Crypto
	}
	return t
}

// AllowsShort reports whether a ledger with this tag can hold SHORT trades.
// Spot accounts cannot borrow to sell.
func (t Tag) AllowsShort() bool { return t != CryptoSpot }

func ParseTag(s string) (Tag, error) {
	switch t := Tag(strings.ToUpper(strings.TrimSpace(s))); t {
	case Crypto, CryptoSpot, CryptoFuture, Stock:
		return t, nil
	default:
		return "", fmt.Errorf("unknown market tag %q", s)
	}
}
