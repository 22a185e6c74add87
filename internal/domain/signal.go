package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the side that closes a position opened with s.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

type Market string

const (
	MarketSpot     Market = "SPOT"
	MarketCross    Market = "CROSS"
	MarketIsolated Market = "ISOLATED"
)

func (m Market) Valid() bool {
	switch m {
	case MarketSpot, MarketCross, MarketIsolated:
		return true
	}
	return false
}

func (m Market) IsMargin() bool {
	return m == MarketCross || m == MarketIsolated
}

// TradeSignal is one decoded strategy alert. It is not modified after decoding.
type TradeSignal struct {
	ID               string
	Side             Side
	Market           Market
	Symbol           string
	BaseCurrency     string
	EquityFraction   decimal.Decimal // (0, 1]
	Leverage         decimal.Decimal
	StopLossPct      decimal.Decimal
	StopLimitDiffPct decimal.Decimal
	Overwrite        bool
}

// Asset is the traded currency, i.e. the symbol without its base currency suffix.
func (s TradeSignal) Asset() string {
	asset, _ := SplitSymbol(s.Symbol, s.BaseCurrency)
	return asset
}

// SplitSymbol removes base from the end of symbol. ok is false when symbol does
// not end with base or nothing would remain.
func SplitSymbol(symbol, base string) (asset string, ok bool) {
	if base == "" || !strings.HasSuffix(symbol, base) || len(symbol) == len(base) {
		return "", false
	}
	return strings.TrimSuffix(symbol, base), true
}
