package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vitos/signal_trader/internal/domain"
	"go.uber.org/zap"
)

// StopSettings configures the protective order chained after a market fill.
// A zero LossPct disables it.
type StopSettings struct {
	LossPct     decimal.Decimal
	LimitGapPct decimal.Decimal
}

func (s StopSettings) Enabled() bool {
	return s.LossPct.IsPositive()
}

type MarketOrderParams struct {
	Pair     domain.PairMetadata
	Side     domain.Side
	Market   domain.Market
	Quantity decimal.Decimal
	Stop     StopSettings
	Loan     decimal.Decimal // excluded from the stop quantity
}

// OrderExecutor submits market orders and their protective stop-limit orders.
// A lot size rejection is retried exactly once with the quantity rounded to the
// pair precision; every other rejection is final.
type OrderExecutor struct {
	gateway  domain.ExchangeGateway
	reporter reporter
	metrics  *Metrics
	logger   *zap.Logger
	newID    func() string
}

func NewOrderExecutor(gateway domain.ExchangeGateway, notifier domain.Notifier, metrics *Metrics, logger *zap.Logger) *OrderExecutor {
	return &OrderExecutor{
		gateway:  gateway,
		reporter: reporter{notifier: notifier, logger: logger},
		metrics:  metrics,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// PlaceMarket executes a market order and, when enabled, the stop-limit order
// protecting it. A failed stop is reported but the filled order is still returned.
func (e *OrderExecutor) PlaceMarket(ctx context.Context, p MarketOrderParams) (*domain.Order, error) {
	order, err := e.submit(ctx, p.Pair, p.Market, p.Quantity, func(q decimal.Decimal) (*domain.Order, error) {
		return e.gateway.PlaceMarketOrder(ctx, domain.MarketOrderRequest{
			Symbol:        p.Pair.Symbol,
			Side:          p.Side,
			Market:        p.Market,
			Quantity:      q,
			ClientOrderID: e.newID(),
		})
	})
	if err == nil && order != nil && (order.Status == domain.OrderStatusRejected || order.Status == domain.OrderStatusFailed) {
		err = &domain.ExchangeRejection{Reason: domain.RejectOther, Message: fmt.Sprintf("order %d finished with status %s", order.ID, order.Status)}
	}
	if err != nil {
		e.metrics.order(string(p.Market), string(p.Side), string(domain.OrderTypeMarket), "error")
		e.logger.Error("Market order failed",
			zap.Error(err),
			zap.String("symbol", p.Pair.Symbol),
			zap.String("side", string(p.Side)),
			zap.String("market", string(p.Market)),
			zap.String("quantity", p.Quantity.String()))
		e.reporter.report(ctx, fmt.Sprintf("%v during %s %s market order on %s", err, p.Market, p.Side, p.Pair.Symbol))
		return nil, markReported(fmt.Errorf("%s %s market order on %s: %w", p.Market, p.Side, p.Pair.Symbol, err))
	}
	e.metrics.order(string(p.Market), string(p.Side), string(domain.OrderTypeMarket), string(order.Status))
	e.logger.Info("Market order filled",
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.String("market", string(p.Market)),
		zap.String("quantity", order.Quantity.String()),
		zap.String("price", order.Price.String()))

	if p.Stop.Enabled() {
		e.placeStop(ctx, p, order)
	}
	return order, nil
}

func (e *OrderExecutor) placeStop(ctx context.Context, p MarketOrderParams, filled *domain.Order) {
	fill := filled.Price
	if !fill.IsPositive() {
		price, err := e.gateway.GetPrice(ctx, p.Pair.Symbol)
		if err != nil {
			e.logger.Error("Failed to read price for stop", zap.Error(err), zap.String("symbol", p.Pair.Symbol))
			e.reporter.report(ctx, fmt.Sprintf("%v during %s stop limit price lookup", err, p.Market))
			return
		}
		fill = price
	}

	stop, err := CalculateStop(StopRequest{
		Side:              filled.Side,
		FillPrice:         fill,
		FilledQuantity:    filled.Quantity,
		StopLossPct:       p.Stop.LossPct,
		LimitGapPct:       p.Stop.LimitGapPct,
		Step:              p.Pair.PriceStep(),
		Loan:              p.Loan,
		QuantityPrecision: p.Pair.Precision,
		PricePrecision:    p.Pair.PricePrecision,
	})
	if errors.Is(err, domain.ErrNothingToProtect) {
		e.logger.Debug("No quantity left for stop", zap.String("symbol", p.Pair.Symbol))
		return
	}
	if err != nil {
		e.logger.Error("Failed to calculate stop", zap.Error(err), zap.String("symbol", p.Pair.Symbol))
		e.reporter.report(ctx, fmt.Sprintf("%v during %s stop limit", err, p.Market))
		return
	}

	order, err := e.submit(ctx, p.Pair, p.Market, stop.Quantity, func(q decimal.Decimal) (*domain.Order, error) {
		return e.gateway.PlaceStopLimitOrder(ctx, domain.StopLimitOrderRequest{
			Symbol:        p.Pair.Symbol,
			Side:          stop.Side,
			Market:        p.Market,
			Quantity:      q,
			LimitPrice:    stop.LimitPrice,
			StopPrice:     stop.TriggerPrice,
			ClientOrderID: e.newID(),
		})
	})
	if err != nil {
		e.metrics.order(string(p.Market), string(stop.Side), string(domain.OrderTypeStopLimit), "error")
		e.logger.Error("Stop limit order failed", zap.Error(err), zap.String("symbol", p.Pair.Symbol))
		e.reporter.report(ctx, fmt.Sprintf("%v during %s stop limit", err, p.Market))
		return
	}
	e.metrics.order(string(p.Market), string(stop.Side), string(domain.OrderTypeStopLimit), string(order.Status))
	e.logger.Info("Stop limit order placed",
		zap.String("symbol", p.Pair.Symbol),
		zap.String("side", string(stop.Side)),
		zap.String("limit_price", stop.LimitPrice.String()),
		zap.String("stop_price", stop.TriggerPrice.String()),
		zap.String("quantity", order.Quantity.String()))
}

// submit performs at most two attempts: the quantity at wire precision, then,
// only after a lot size rejection, the quantity rounded to the lot precision.
func (e *OrderExecutor) submit(ctx context.Context, pair domain.PairMetadata, market domain.Market, qty decimal.Decimal, place func(decimal.Decimal) (*domain.Order, error)) (*domain.Order, error) {
	qty = clampMax(pair, qty)

	first := RoundQuantity(qty, pair.WirePrecision)
	if err := checkMinimum(pair, first); err != nil {
		return nil, err
	}
	order, err := place(first)
	if err == nil || !domain.IsLotSizeViolation(err) {
		return order, err
	}

	e.metrics.retry(string(market))
	retry := RoundQuantity(qty, pair.Precision)
	if minErr := checkMinimum(pair, retry); minErr != nil {
		return nil, fmt.Errorf("%w (after %v)", minErr, err)
	}
	e.logger.Warn("Lot size rejected, retrying with rounded quantity",
		zap.String("symbol", pair.Symbol),
		zap.String("quantity", first.String()),
		zap.String("retry_quantity", retry.String()),
		zap.Int32("precision", pair.Precision))
	return place(retry)
}

func clampMax(pair domain.PairMetadata, qty decimal.Decimal) decimal.Decimal {
	if pair.MaxQuantity.IsPositive() && qty.GreaterThan(pair.MaxQuantity) {
		return pair.MaxQuantity
	}
	return qty
}

func checkMinimum(pair domain.PairMetadata, qty decimal.Decimal) error {
	if !qty.IsPositive() || qty.LessThan(pair.MinQuantity) {
		return fmt.Errorf("%w: %s < %s on %s", domain.ErrQuantityBelowMinimum, qty, pair.MinQuantity, pair.Symbol)
	}
	return nil
}
