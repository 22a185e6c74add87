package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vitos/signal_trader/internal/domain"
	"go.uber.org/zap"
)

// RolloverRequest moves the capital of the From position into ToSymbol.
type RolloverRequest struct {
	From     domain.LastTradeRecord
	ToSymbol string
	ToBase   string
	Market   domain.Market
}

// TransitionController closes a position on one pair and redeploys the freed
// capital into another. It is best effort: completed steps are not rolled back.
type TransitionController struct {
	gateway  domain.ExchangeGateway
	executor *OrderExecutor
	loans    *LoanManager
	reporter reporter
	metrics  *Metrics
	logger   *zap.Logger
}

func NewTransitionController(gateway domain.ExchangeGateway, executor *OrderExecutor, loans *LoanManager, notifier domain.Notifier, metrics *Metrics, logger *zap.Logger) *TransitionController {
	return &TransitionController{
		gateway:  gateway,
		executor: executor,
		loans:    loans,
		reporter: reporter{notifier: notifier, logger: logger},
		metrics:  metrics,
		logger:   logger,
	}
}

// Rollover returns the redirect order, or nil when there was nothing to convert.
func (c *TransitionController) Rollover(ctx context.Context, req RolloverRequest) (order *domain.Order, err error) {
	defer func() { c.metrics.rollover(outcomeLabel(err)) }()

	fromAsset, ok := domain.SplitSymbol(req.From.Symbol, req.From.BaseCurrency)
	if !ok {
		return nil, &domain.ConfigurationError{Symbol: req.From.Symbol, Reason: "symbol does not end with base currency " + req.From.BaseCurrency}
	}
	toAsset, ok := domain.SplitSymbol(req.ToSymbol, req.ToBase)
	if !ok {
		return nil, &domain.ConfigurationError{Symbol: req.ToSymbol, Reason: "symbol does not end with base currency " + req.ToBase}
	}
	leg := routeLeg{OldAsset: fromAsset, OldBase: req.From.BaseCurrency, NewAsset: toAsset, NewBase: req.ToBase}

	c.logger.Info("Rolling over position",
		zap.String("from", req.From.Symbol),
		zap.String("to", req.ToSymbol),
		zap.String("market", string(req.Market)))

	cancelOpenOrders(ctx, c.gateway, c.reporter, c.logger, req.From.Symbol, req.Market)

	if req.Market.IsMargin() {
		if err := c.clearLoans(ctx, req.From.Symbol, leg, req.Market); err != nil {
			return nil, err
		}
	}

	balances, err := snapshotBalances(ctx, c.gateway, req.Market, req.From.Symbol)
	if err != nil {
		return nil, err
	}
	return c.redirect(ctx, req, leg, balances)
}

// clearLoans repays the old pair's asset and base loans, topping up a
// shortfall with a market order first. The top-up decision uses one price
// sample and no slippage allowance, so a fast market can still leave the
// repay short.
func (c *TransitionController) clearLoans(ctx context.Context, symbol string, leg routeLeg, market domain.Market) error {
	balances, err := snapshotBalances(ctx, c.gateway, market, symbol)
	if err != nil {
		return err
	}
	meta, err := pairMetadata(ctx, c.gateway, symbol)
	if err != nil {
		return err
	}
	isolated := market == domain.MarketIsolated
	assetFree := balances.Free(leg.OldAsset)
	baseFree := balances.Free(leg.OldBase)

	if borrowed := balances.Borrowed(leg.OldAsset); borrowed.IsPositive() {
		if assetFree.LessThan(borrowed) {
			shortfall := borrowed.Sub(assetFree)
			price, err := c.gateway.GetPrice(ctx, symbol)
			if err != nil {
				return fmt.Errorf("price %s: %w", symbol, err)
			}
			if !shortfall.Mul(price).GreaterThan(meta.MinNotional) {
				return &domain.InsufficientFundsError{Asset: leg.OldAsset, Shortfall: shortfall, MinNotional: meta.MinNotional}
			}
			bought, err := c.executor.PlaceMarket(ctx, MarketOrderParams{
				Pair:     meta,
				Side:     domain.SideBuy,
				Market:   market,
				Quantity: roundQuantityUp(shortfall, meta.Precision),
			})
			if err != nil {
				return err
			}
			fill := bought.Price
			if !fill.IsPositive() {
				fill = price
			}
			assetFree = assetFree.Add(bought.Quantity)
			baseFree = baseFree.Sub(bought.Quantity.Mul(fill))
		}
		if err := c.loans.Repay(ctx, leg.OldAsset, borrowed, symbol, isolated); err != nil {
			return err
		}
		assetFree = assetFree.Sub(borrowed)
	}

	if borrowed := balances.Borrowed(leg.OldBase); borrowed.IsPositive() {
		if baseFree.LessThan(borrowed) {
			shortfall := borrowed.Sub(baseFree)
			price, err := c.gateway.GetPrice(ctx, symbol)
			if err != nil {
				return fmt.Errorf("price %s: %w", symbol, err)
			}
			if !shortfall.GreaterThan(meta.MinNotional) || assetFree.Mul(price).LessThan(shortfall) {
				return &domain.InsufficientFundsError{Asset: leg.OldBase, Shortfall: shortfall, MinNotional: meta.MinNotional}
			}
			if _, err := c.executor.PlaceMarket(ctx, MarketOrderParams{
				Pair:     meta,
				Side:     domain.SideSell,
				Market:   market,
				Quantity: roundQuantityUp(shortfall.Div(price), meta.Precision),
			}); err != nil {
				return err
			}
		}
		if err := c.loans.Repay(ctx, leg.OldBase, borrowed, symbol, isolated); err != nil {
			return err
		}
	}
	return nil
}

func (c *TransitionController) redirect(ctx context.Context, req RolloverRequest, leg routeLeg, balances domain.Balances) (*domain.Order, error) {
	route, found, err := resolveRoute(ctx, c.gateway, leg)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &domain.RoutingError{From: req.From.Symbol, To: req.ToSymbol}
	}
	meta, err := ResolvePairMetadata(route.Info)
	if err != nil {
		return nil, err
	}

	spend := balances.Free(route.SpendAsset)
	if !spend.IsPositive() {
		c.logger.Info("Nothing to convert", zap.String("route", route.Symbol), zap.String("asset", route.SpendAsset))
		return nil, nil
	}

	qty := spend
	if route.Side == domain.SideBuy {
		price, err := c.gateway.GetPrice(ctx, route.Symbol)
		if err != nil {
			return nil, fmt.Errorf("price %s: %w", route.Symbol, err)
		}
		qty = RoundQuantity(spend.Div(price), meta.Precision)
	}

	c.logger.Info("Redirecting capital",
		zap.String("route", route.Symbol),
		zap.String("side", string(route.Side)),
		zap.String("spend_asset", route.SpendAsset),
		zap.String("quantity", qty.String()))

	return c.executor.PlaceMarket(ctx, MarketOrderParams{
		Pair:     meta,
		Side:     route.Side,
		Market:   req.Market,
		Quantity: qty,
	})
}

// cancelOpenOrders cancels every open order on symbol. Each cancellation is
// independent; failures are reported and the rest still run.
func cancelOpenOrders(ctx context.Context, gateway domain.ExchangeGateway, rep reporter, logger *zap.Logger, symbol string, market domain.Market) {
	orders, err := gateway.ListOpenOrders(ctx, symbol, market)
	if err != nil {
		logger.Error("Failed to list open orders", zap.Error(err), zap.String("symbol", symbol))
		rep.report(ctx, fmt.Sprintf("%v during open order listing on %s", err, symbol))
		return
	}
	for _, o := range orders {
		if err := gateway.CancelOrder(ctx, symbol, o.ID, market); err != nil {
			logger.Error("Failed to cancel order", zap.Error(err), zap.String("symbol", symbol), zap.Int64("order_id", o.ID))
			rep.report(ctx, fmt.Sprintf("%v during %s order cancel on %s", err, market, symbol))
			continue
		}
		logger.Info("Canceled open order", zap.String("symbol", symbol), zap.Int64("order_id", o.ID))
	}
}

// snapshotBalances reads the wallet matching market. Isolated snapshots cover
// only the pair of symbol.
func snapshotBalances(ctx context.Context, gateway domain.ExchangeGateway, market domain.Market, symbol string) (domain.Balances, error) {
	switch market {
	case domain.MarketSpot:
		assets, err := gateway.GetSpotBalances(ctx)
		if err != nil {
			return nil, fmt.Errorf("spot balances: %w", err)
		}
		return domain.NewBalances(assets), nil
	case domain.MarketCross:
		assets, err := gateway.GetCrossMarginAssets(ctx)
		if err != nil {
			return nil, fmt.Errorf("cross margin assets: %w", err)
		}
		return domain.NewBalances(assets), nil
	case domain.MarketIsolated:
		pair, err := gateway.GetIsolatedMarginPair(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("isolated margin %s: %w", symbol, err)
		}
		return domain.NewBalances([]domain.AssetPosition{pair.Base, pair.Quote}), nil
	}
	return nil, fmt.Errorf("unknown market %q", market)
}

func pairMetadata(ctx context.Context, gateway domain.ExchangeGateway, symbol string) (domain.PairMetadata, error) {
	info, found, err := gateway.LookupSymbol(ctx, symbol)
	if err != nil {
		return domain.PairMetadata{}, fmt.Errorf("lookup %s: %w", symbol, err)
	}
	if !found {
		return domain.PairMetadata{}, &domain.SymbolMetadataError{Symbol: symbol, Reason: "symbol not listed"}
	}
	return ResolvePairMetadata(info)
}

func roundQuantityUp(q decimal.Decimal, p int32) decimal.Decimal {
	return q.Shift(p).Ceil().Shift(-p)
}
