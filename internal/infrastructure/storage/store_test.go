package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/signal_trader/internal/domain"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	sqlite, err := Open(DriverSQLite, filepath.Join(dir, "trade.db"))
	require.NoError(t, err)
	bolt, err := Open(DriverBolt, filepath.Join(dir, "trade.bolt"))
	require.NoError(t, err)

	stores := map[string]Store{DriverSQLite: sqlite, DriverBolt: bolt}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestLastTradeStore(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, found, err := store.GetLastTrade(ctx)
			require.NoError(t, err)
			assert.False(t, found)

			first := domain.LastTradeRecord{
				Symbol:       "BTCUSDT",
				BaseCurrency: "USDT",
				Market:       domain.MarketCross,
				UpdatedAt:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			}
			require.NoError(t, store.SaveLastTrade(ctx, first))

			second := domain.LastTradeRecord{
				Symbol:       "ETHBTC",
				BaseCurrency: "BTC",
				Market:       domain.MarketSpot,
				UpdatedAt:    time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC),
			}
			require.NoError(t, store.SaveLastTrade(ctx, second))

			got, found, err := store.GetLastTrade(ctx)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, "ETHBTC", got.Symbol)
			assert.Equal(t, "BTC", got.BaseCurrency)
			assert.Equal(t, domain.MarketSpot, got.Market)
			assert.True(t, second.UpdatedAt.Equal(got.UpdatedAt), "updated at %s", got.UpdatedAt)
		})
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "trade.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveLastTrade(ctx, domain.LastTradeRecord{Symbol: "ETHUSDT", BaseCurrency: "USDT", Market: domain.MarketIsolated}))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	got, found, err := store.GetLastTrade(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.MarketIsolated, got.Market)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("postgres", filepath.Join(t.TempDir(), "x"))
	assert.Error(t, err)
}
