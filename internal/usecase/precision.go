package usecase

import (
	"github.com/shopspring/decimal"
	"github.com/vitos/signal_trader/internal/domain"
)

// defaultWirePrecision is the number of decimals the exchange accepts for a
// quantity when the symbol does not report its base asset precision.
const defaultWirePrecision int32 = 8

var (
	one = decimal.NewFromInt(1)
	ten = decimal.NewFromInt(10)
)

// ResolvePairMetadata derives sizing rules from the raw filter list of a symbol.
// It is pure, the same input always yields the same metadata.
func ResolvePairMetadata(info domain.SymbolInfo) (domain.PairMetadata, error) {
	meta := domain.PairMetadata{
		Symbol:        info.Symbol,
		MarginAllowed: info.MarginAllowed,
		WirePrecision: info.BaseAssetPrecision,
	}
	if meta.WirePrecision <= 0 {
		meta.WirePrecision = defaultWirePrecision
	}

	lotFound := false
	for _, f := range info.Filters {
		switch f.Type {
		case domain.FilterLotSize:
			lotFound = true
			meta.MinQuantity = f.MinQty
			meta.MaxQuantity = f.MaxQty
			unit := f.MinQty
			if !unit.IsPositive() {
				unit = f.StepSize
			}
			if !unit.IsPositive() {
				return domain.PairMetadata{}, &domain.SymbolMetadataError{Symbol: info.Symbol, Reason: "lot size filter has no positive minimum"}
			}
			meta.Precision = precisionFromUnit(unit)
		case domain.FilterMinNotional, domain.FilterNotional:
			if f.MinNotional.GreaterThan(meta.MinNotional) {
				meta.MinNotional = f.MinNotional
			}
		case domain.FilterPrice:
			meta.TickSize = f.TickSize
			if f.TickSize.IsPositive() {
				meta.PricePrecision = max(precisionFromUnit(f.TickSize), 0)
			}
		}
	}
	if !lotFound {
		return domain.PairMetadata{}, &domain.SymbolMetadataError{Symbol: info.Symbol, Reason: "missing LOT_SIZE filter"}
	}
	if meta.PricePrecision == 0 && !meta.TickSize.IsPositive() {
		meta.PricePrecision = meta.WirePrecision
	}
	return meta, nil
}

// precisionFromUnit counts decimal places of a fractional unit (0.001 -> 3) or
// the negated number of digits of an integer unit (1 -> -1, 10 -> -2).
func precisionFromUnit(unit decimal.Decimal) int32 {
	var p int32
	i := unit
	if i.LessThan(one) {
		for i.LessThan(one) {
			i = i.Mul(ten)
			p++
		}
		return p
	}
	for i.GreaterThanOrEqual(one) {
		i = i.Div(ten)
		p--
	}
	return p
}

// RoundQuantity rounds q down to p decimal places, or to a multiple of 10^-p
// when p is negative. Rounding down keeps a full-balance order within the balance.
func RoundQuantity(q decimal.Decimal, p int32) decimal.Decimal {
	return q.Shift(p).Floor().Shift(-p)
}

func roundPriceDown(price decimal.Decimal, p int32) decimal.Decimal {
	return price.Shift(p).Floor().Shift(-p)
}

func roundPriceUp(price decimal.Decimal, p int32) decimal.Decimal {
	return price.Shift(p).Ceil().Shift(-p)
}
