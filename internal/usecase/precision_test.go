package usecase

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/signal_trader/internal/domain"
)

func TestResolvePairMetadata(t *testing.T) {
	tests := []struct {
		name          string
		info          domain.SymbolInfo
		precision     int32
		minNotional   string
		pricePrec     int32
		wirePrecision int32
	}{
		{
			name:          "fractional lot",
			info:          symbolInfo("ETHUSDT", "ETH", "USDT", "0.001", "0.01", "5", true),
			precision:     3,
			minNotional:   "5",
			pricePrec:     2,
			wirePrecision: 8,
		},
		{
			name:          "whole units",
			info:          symbolInfo("SHIBUSDT", "SHIB", "USDT", "1", "0.00000001", "5", false),
			precision:     -1,
			minNotional:   "5",
			pricePrec:     8,
			wirePrecision: 8,
		},
		{
			name: "step size fallback and largest notional",
			info: domain.SymbolInfo{
				Symbol: "BNBBTC",
				Filters: []domain.Filter{
					{Type: domain.FilterLotSize, MinQty: decimal.Zero, StepSize: d("0.01")},
					{Type: domain.FilterMinNotional, MinNotional: d("0.0001")},
					{Type: domain.FilterNotional, MinNotional: d("0.001")},
				},
			},
			precision:     2,
			minNotional:   "0.001",
			pricePrec:     8,
			wirePrecision: 8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := ResolvePairMetadata(tt.info)
			require.NoError(t, err)
			assert.Equal(t, tt.precision, meta.Precision)
			assert.True(t, d(tt.minNotional).Equal(meta.MinNotional), "min notional %s", meta.MinNotional)
			assert.Equal(t, tt.pricePrec, meta.PricePrecision)
			assert.Equal(t, tt.wirePrecision, meta.WirePrecision)
			assert.Equal(t, tt.info.MarginAllowed, meta.MarginAllowed)

			again, err := ResolvePairMetadata(tt.info)
			require.NoError(t, err)
			assert.Equal(t, meta, again)
		})
	}
}

func TestResolvePairMetadata_Errors(t *testing.T) {
	_, err := ResolvePairMetadata(domain.SymbolInfo{
		Symbol:  "ETHUSDT",
		Filters: []domain.Filter{{Type: domain.FilterPrice, TickSize: d("0.01")}},
	})
	var metaErr *domain.SymbolMetadataError
	require.ErrorAs(t, err, &metaErr)
	assert.Equal(t, "ETHUSDT", metaErr.Symbol)

	_, err = ResolvePairMetadata(domain.SymbolInfo{
		Symbol:  "ETHUSDT",
		Filters: []domain.Filter{{Type: domain.FilterLotSize}},
	})
	require.ErrorAs(t, err, &metaErr)
}

func TestPrecisionFromUnit(t *testing.T) {
	cases := map[string]int32{
		"0.1":        1,
		"0.001":      3,
		"0.00000001": 8,
		"1":          -1,
		"10":         -2,
		"100":        -3,
	}
	for unit, want := range cases {
		assert.Equal(t, want, precisionFromUnit(d(unit)), unit)
	}
}

func TestRoundQuantity(t *testing.T) {
	tests := []struct {
		q    string
		p    int32
		want string
	}{
		{"0.123456", 3, "0.123"},
		{"0.5", 3, "0.5"},
		{"0.0009", 3, "0"},
		{"123.45", 0, "123"},
		{"123.45", -1, "120"},
		{"129.99", -2, "100"},
	}
	for _, tt := range tests {
		got := RoundQuantity(d(tt.q), tt.p)
		assert.True(t, d(tt.want).Equal(got), "RoundQuantity(%s, %d) = %s, want %s", tt.q, tt.p, got, tt.want)
	}
}

func TestRoundQuantity_Bounds(t *testing.T) {
	inputs := []string{"0.123456789", "1", "99.999", "12345.6789", "0.00001"}
	for _, in := range inputs {
		q := d(in)
		for p := int32(-3); p <= 8; p++ {
			r := RoundQuantity(q, p)
			assert.True(t, r.LessThanOrEqual(q), "%s at %d rounded up to %s", q, p, r)
			assert.True(t, q.Sub(r).LessThan(decimal.New(1, -p)), "%s at %d lost a full unit: %s", q, p, r)
			assert.True(t, RoundQuantity(r, p).Equal(r), "rounding %s at %d is not idempotent", r, p)
		}
	}
}
