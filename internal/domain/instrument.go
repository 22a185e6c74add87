package domain

import "github.com/shopspring/decimal"

const (
	FilterLotSize     = "LOT_SIZE"
	FilterPrice       = "PRICE_FILTER"
	FilterMinNotional = "MIN_NOTIONAL"
	FilterNotional    = "NOTIONAL"
)

// Filter is one exchange trading rule for a symbol. Only the fields relevant
// to its Type are set.
type Filter struct {
	Type        string          `json:"filter_type"`
	MinQty      decimal.Decimal `json:"min_qty"`
	MaxQty      decimal.Decimal `json:"max_qty"`
	StepSize    decimal.Decimal `json:"step_size"`
	TickSize    decimal.Decimal `json:"tick_size"`
	MinNotional decimal.Decimal `json:"min_notional"`
}

// SymbolInfo is the raw exchange metadata for a trading pair.
type SymbolInfo struct {
	Symbol             string   `json:"symbol"`
	BaseAsset          string   `json:"base_asset"`
	QuoteAsset         string   `json:"quote_asset"`
	BaseAssetPrecision int32    `json:"base_asset_precision"`
	MarginAllowed      bool     `json:"margin_allowed"`
	Filters            []Filter `json:"filters"`
}

// PairMetadata is what the sizing logic needs from SymbolInfo. It is derived
// on every decision and never cached, exchange rules change.
type PairMetadata struct {
	Symbol         string
	MinQuantity    decimal.Decimal
	MaxQuantity    decimal.Decimal
	Precision      int32 // >= 0: decimal places, < 0: round down to 10^-Precision
	MinNotional    decimal.Decimal
	TickSize       decimal.Decimal
	PricePrecision int32
	WirePrecision  int32
	MarginAllowed  bool
}

// PriceStep is the increment used to push a stop price off the fill price.
// Falls back to the lot minimum when the pair has no price filter.
func (p PairMetadata) PriceStep() decimal.Decimal {
	if p.TickSize.IsPositive() {
		return p.TickSize
	}
	return p.MinQuantity
}
