package usecase

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vitos/signal_trader/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// StopRequest describes the market fill a protective order is derived from.
type StopRequest struct {
	Side              domain.Side // side of the filled market order
	FillPrice         decimal.Decimal
	FilledQuantity    decimal.Decimal
	StopLossPct       decimal.Decimal
	LimitGapPct       decimal.Decimal
	Step              decimal.Decimal
	Loan              decimal.Decimal // part of the fill that is repaid instead of protected
	QuantityPrecision int32
	PricePrecision    int32
}

// StopOrder holds the parameters of the opposite-side stop-limit order.
type StopOrder struct {
	Side         domain.Side
	LimitPrice   decimal.Decimal
	TriggerPrice decimal.Decimal
	Quantity     decimal.Decimal
}

// CalculateStop derives a stop-limit order that cannot trigger on placement.
// For a long the limit is strictly below the fill and the trigger strictly below
// the limit; a short mirrors both.
func CalculateStop(req StopRequest) (StopOrder, error) {
	if !req.FillPrice.IsPositive() {
		return StopOrder{}, fmt.Errorf("stop: fill price must be positive, got %s", req.FillPrice)
	}
	if !req.Step.IsPositive() {
		return StopOrder{}, fmt.Errorf("stop: price step must be positive, got %s", req.Step)
	}

	qty := req.FilledQuantity
	if req.Loan.IsPositive() {
		qty = qty.Sub(req.Loan)
	}
	qty = RoundQuantity(qty, req.QuantityPrecision)
	if !qty.IsPositive() {
		return StopOrder{}, domain.ErrNothingToProtect
	}

	fill := req.FillPrice
	out := StopOrder{Quantity: qty}

	switch req.Side {
	case domain.SideBuy:
		limit := roundPriceDown(fill.Mul(hundred.Sub(req.StopLossPct)).Div(hundred), req.PricePrecision)
		trigger := roundPriceDown(limit.Mul(hundred.Sub(req.LimitGapPct)).Div(hundred), req.PricePrecision)
		if limit.GreaterThanOrEqual(fill) {
			limit = roundPriceDown(fill.Sub(req.Step), req.PricePrecision)
		}
		if trigger.GreaterThanOrEqual(limit) {
			trigger = roundPriceDown(limit.Sub(req.Step), req.PricePrecision)
		}
		out.Side, out.LimitPrice, out.TriggerPrice = domain.SideSell, limit, trigger
	case domain.SideSell:
		limit := roundPriceUp(fill.Mul(hundred.Add(req.StopLossPct)).Div(hundred), req.PricePrecision)
		trigger := roundPriceUp(limit.Mul(hundred.Add(req.LimitGapPct)).Div(hundred), req.PricePrecision)
		if limit.LessThanOrEqual(fill) {
			limit = roundPriceUp(fill.Add(req.Step), req.PricePrecision)
		}
		if trigger.LessThanOrEqual(limit) {
			trigger = roundPriceUp(limit.Add(req.Step), req.PricePrecision)
		}
		out.Side, out.LimitPrice, out.TriggerPrice = domain.SideBuy, limit, trigger
	default:
		return StopOrder{}, fmt.Errorf("stop: invalid side %q", req.Side)
	}

	if !out.LimitPrice.IsPositive() || !out.TriggerPrice.IsPositive() {
		return StopOrder{}, fmt.Errorf("stop: non-positive price for fill %s (limit %s, trigger %s)", fill, out.LimitPrice, out.TriggerPrice)
	}
	return out, nil
}
