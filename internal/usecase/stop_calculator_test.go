package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/signal_trader/internal/domain"
)

func TestCalculateStop_Long(t *testing.T) {
	stop, err := CalculateStop(StopRequest{
		Side:              domain.SideBuy,
		FillPrice:         d("2000"),
		FilledQuantity:    d("0.5"),
		StopLossPct:       d("5"),
		LimitGapPct:       d("1"),
		Step:              d("0.01"),
		QuantityPrecision: 3,
		PricePrecision:    2,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SideSell, stop.Side)
	assert.True(t, d("1900").Equal(stop.LimitPrice), "limit %s", stop.LimitPrice)
	assert.True(t, d("1881").Equal(stop.TriggerPrice), "trigger %s", stop.TriggerPrice)
	assert.True(t, d("0.5").Equal(stop.Quantity))
}

func TestCalculateStop_Short(t *testing.T) {
	stop, err := CalculateStop(StopRequest{
		Side:              domain.SideSell,
		FillPrice:         d("100"),
		FilledQuantity:    d("3"),
		StopLossPct:       d("2"),
		LimitGapPct:       d("1"),
		Step:              d("0.01"),
		QuantityPrecision: 2,
		PricePrecision:    2,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SideBuy, stop.Side)
	assert.True(t, d("102").Equal(stop.LimitPrice), "limit %s", stop.LimitPrice)
	assert.True(t, d("103.02").Equal(stop.TriggerPrice), "trigger %s", stop.TriggerPrice)
}

func TestCalculateStop_ClampsOffFill(t *testing.T) {
	long, err := CalculateStop(StopRequest{
		Side:           domain.SideBuy,
		FillPrice:      d("50.005"),
		FilledQuantity: d("1"),
		StopLossPct:    d("0.001"),
		Step:           d("0.01"),
		PricePrecision: 2,
	})
	require.NoError(t, err)
	assert.True(t, long.LimitPrice.LessThan(d("50.005")), "limit %s", long.LimitPrice)
	assert.True(t, long.TriggerPrice.LessThan(long.LimitPrice), "trigger %s limit %s", long.TriggerPrice, long.LimitPrice)

	short, err := CalculateStop(StopRequest{
		Side:           domain.SideSell,
		FillPrice:      d("50"),
		FilledQuantity: d("1"),
		StopLossPct:    d("0"),
		LimitGapPct:    d("0"),
		Step:           d("0.01"),
		PricePrecision: 2,
	})
	require.NoError(t, err)
	assert.True(t, d("50.01").Equal(short.LimitPrice), "limit %s", short.LimitPrice)
	assert.True(t, d("50.02").Equal(short.TriggerPrice), "trigger %s", short.TriggerPrice)
}

func TestCalculateStop_ExcludesLoan(t *testing.T) {
	stop, err := CalculateStop(StopRequest{
		Side:              domain.SideBuy,
		FillPrice:         d("10"),
		FilledQuantity:    d("5"),
		Loan:              d("2"),
		StopLossPct:       d("5"),
		Step:              d("0.01"),
		QuantityPrecision: 2,
		PricePrecision:    2,
	})
	require.NoError(t, err)
	assert.True(t, d("3").Equal(stop.Quantity), "quantity %s", stop.Quantity)

	_, err = CalculateStop(StopRequest{
		Side:           domain.SideBuy,
		FillPrice:      d("10"),
		FilledQuantity: d("2"),
		Loan:           d("2"),
		StopLossPct:    d("5"),
		Step:           d("0.01"),
	})
	assert.ErrorIs(t, err, domain.ErrNothingToProtect)
}

func TestCalculateStop_InvalidInput(t *testing.T) {
	_, err := CalculateStop(StopRequest{Side: domain.SideBuy, FillPrice: d("0"), FilledQuantity: d("1"), Step: d("0.01")})
	assert.Error(t, err)

	_, err = CalculateStop(StopRequest{Side: domain.SideBuy, FillPrice: d("10"), FilledQuantity: d("1"), Step: d("0")})
	assert.Error(t, err)

	_, err = CalculateStop(StopRequest{Side: "HOLD", FillPrice: d("10"), FilledQuantity: d("1"), Step: d("0.01")})
	assert.Error(t, err)
}
