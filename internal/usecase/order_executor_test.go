package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/signal_trader/internal/domain"
	"go.uber.org/zap"
)

func newTestExecutor(gw *fakeGateway, n domain.Notifier) *OrderExecutor {
	e := NewOrderExecutor(gw, n, nil, zap.NewNop())
	e.newID = func() string { return "test-id" }
	return e
}

func ethMeta(t *testing.T, gw *fakeGateway) domain.PairMetadata {
	t.Helper()
	info := symbolInfo("ETHUSDT", "ETH", "USDT", "0.001", "0.01", "5", true)
	gw.listSymbol(info, "2000")
	meta, err := ResolvePairMetadata(info)
	require.NoError(t, err)
	return meta
}

func TestOrderExecutor_LotSizeRetriedOnce(t *testing.T) {
	gw := newFakeGateway()
	n := &recordingNotifier{}
	meta := ethMeta(t, gw)
	gw.marketErrs = []error{lotSizeRejection(), lotSizeRejection()}

	_, err := newTestExecutor(gw, n).PlaceMarket(context.Background(), MarketOrderParams{
		Pair:     meta,
		Side:     domain.SideBuy,
		Market:   domain.MarketSpot,
		Quantity: d("0.123456"),
	})

	require.Error(t, err)
	assert.True(t, domain.IsLotSizeViolation(err))
	require.Len(t, gw.marketOrders, 2)
	assert.True(t, d("0.123456").Equal(gw.marketOrders[0].Quantity))
	assert.True(t, d("0.123").Equal(gw.marketOrders[1].Quantity))
	assert.Len(t, n.messages, 1)
}

func TestOrderExecutor_RetrySucceeds(t *testing.T) {
	gw := newFakeGateway()
	meta := ethMeta(t, gw)
	gw.marketErrs = []error{lotSizeRejection()}

	order, err := newTestExecutor(gw, nil).PlaceMarket(context.Background(), MarketOrderParams{
		Pair:     meta,
		Side:     domain.SideBuy,
		Market:   domain.MarketSpot,
		Quantity: d("0.123456"),
	})

	require.NoError(t, err)
	assert.True(t, d("0.123").Equal(order.Quantity))
	assert.Len(t, gw.marketOrders, 2)
}

func TestOrderExecutor_OtherRejectionNotRetried(t *testing.T) {
	gw := newFakeGateway()
	meta := ethMeta(t, gw)
	gw.marketErrs = []error{&domain.ExchangeRejection{Code: -2010, Reason: domain.RejectOther, Message: "insufficient balance"}}

	_, err := newTestExecutor(gw, nil).PlaceMarket(context.Background(), MarketOrderParams{
		Pair:     meta,
		Side:     domain.SideSell,
		Market:   domain.MarketCross,
		Quantity: d("1"),
	})

	var rej *domain.ExchangeRejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, int64(-2010), rej.Code)
	assert.Len(t, gw.marketOrders, 1)
}

func TestOrderExecutor_BelowMinimumNotSubmitted(t *testing.T) {
	gw := newFakeGateway()
	meta := ethMeta(t, gw)

	_, err := newTestExecutor(gw, nil).PlaceMarket(context.Background(), MarketOrderParams{
		Pair:     meta,
		Side:     domain.SideBuy,
		Market:   domain.MarketSpot,
		Quantity: d("0.0004"),
	})

	assert.ErrorIs(t, err, domain.ErrQuantityBelowMinimum)
	assert.Empty(t, gw.marketOrders)
}

func TestOrderExecutor_ClampsToMaximum(t *testing.T) {
	gw := newFakeGateway()
	meta := ethMeta(t, gw)
	meta.MaxQuantity = d("2")

	order, err := newTestExecutor(gw, nil).PlaceMarket(context.Background(), MarketOrderParams{
		Pair:     meta,
		Side:     domain.SideBuy,
		Market:   domain.MarketSpot,
		Quantity: d("5"),
	})

	require.NoError(t, err)
	assert.True(t, d("2").Equal(order.Quantity))
}

func TestOrderExecutor_PlacesStop(t *testing.T) {
	gw := newFakeGateway()
	meta := ethMeta(t, gw)

	_, err := newTestExecutor(gw, nil).PlaceMarket(context.Background(), MarketOrderParams{
		Pair:     meta,
		Side:     domain.SideBuy,
		Market:   domain.MarketSpot,
		Quantity: d("0.5"),
		Stop:     StopSettings{LossPct: d("5"), LimitGapPct: d("1")},
	})

	require.NoError(t, err)
	require.Len(t, gw.stopOrders, 1)
	stop := gw.stopOrders[0]
	assert.Equal(t, domain.SideSell, stop.Side)
	assert.True(t, d("1900").Equal(stop.LimitPrice), "limit %s", stop.LimitPrice)
	assert.True(t, d("0.5").Equal(stop.Quantity))
	assert.Equal(t, "test-id", stop.ClientOrderID)
}

func TestOrderExecutor_StopFailureKeepsFill(t *testing.T) {
	gw := newFakeGateway()
	n := &recordingNotifier{}
	meta := ethMeta(t, gw)
	gw.stopErrs = []error{errors.New("stop price would trigger immediately")}

	order, err := newTestExecutor(gw, n).PlaceMarket(context.Background(), MarketOrderParams{
		Pair:     meta,
		Side:     domain.SideBuy,
		Market:   domain.MarketSpot,
		Quantity: d("0.5"),
		Stop:     StopSettings{LossPct: d("5")},
	})

	require.NoError(t, err)
	assert.NotNil(t, order)
	assert.Len(t, gw.stopOrders, 1)
	require.Len(t, n.messages, 1)
	assert.Contains(t, n.messages[0], "stop limit")
}

func TestOrderExecutor_StopDisabled(t *testing.T) {
	gw := newFakeGateway()
	meta := ethMeta(t, gw)

	_, err := newTestExecutor(gw, nil).PlaceMarket(context.Background(), MarketOrderParams{
		Pair:     meta,
		Side:     domain.SideBuy,
		Market:   domain.MarketSpot,
		Quantity: d("0.5"),
	})

	require.NoError(t, err)
	assert.Empty(t, gw.stopOrders)
}
