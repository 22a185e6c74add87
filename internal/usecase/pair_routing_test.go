package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/signal_trader/internal/domain"
)

func TestResolveRoute_Order(t *testing.T) {
	leg := routeLeg{OldAsset: "BTC", OldBase: "USDT", NewAsset: "ETH", NewBase: "BUSD"}

	tests := []struct {
		name   string
		listed []string
		symbol string
		side   domain.Side
		spend  string
	}{
		{"old asset to new base", []string{"BTCBUSD", "ETHUSDT", "ETHBTC"}, "BTCBUSD", domain.SideSell, "BTC"},
		{"new asset with old base", []string{"ETHUSDT", "USDTBUSD"}, "ETHUSDT", domain.SideBuy, "USDT"},
		{"base to base", []string{"USDTBUSD", "BTCETH"}, "USDTBUSD", domain.SideSell, "USDT"},
		{"old asset to new asset", []string{"BTCETH", "BUSDUSDT"}, "BTCETH", domain.SideSell, "BTC"},
		{"new base with old base", []string{"BUSDUSDT", "ETHBTC"}, "BUSDUSDT", domain.SideBuy, "USDT"},
		{"new asset with old asset", []string{"ETHBTC"}, "ETHBTC", domain.SideBuy, "BTC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway()
			for _, s := range tt.listed {
				gw.symbols[s] = domain.SymbolInfo{Symbol: s}
			}

			route, found, err := resolveRoute(context.Background(), gw, leg)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, tt.symbol, route.Symbol)
			assert.Equal(t, tt.side, route.Side)
			assert.Equal(t, tt.spend, route.SpendAsset)
			assert.Equal(t, tt.symbol, gw.lookups[len(gw.lookups)-1], "search continued past the first listed symbol")
		})
	}
}

func TestResolveRoute_SameBaseSkipsDegenerate(t *testing.T) {
	gw := newFakeGateway()
	leg := routeLeg{OldAsset: "BTC", OldBase: "USDT", NewAsset: "ETH", NewBase: "USDT"}

	_, found, err := resolveRoute(context.Background(), gw, leg)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT", "BTCETH", "ETHBTC"}, gw.lookups)
}
