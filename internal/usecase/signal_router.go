package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vitos/signal_trader/internal/domain"
	"go.uber.org/zap"
)

const (
	msgCompleted         = "order completed"
	msgIncorrectAction   = "incorrect order action"
	msgUnknownMarket     = "unknown market type"
	msgSymbolMismatch    = "ticker does not end with base currency"
	msgMetadata          = "symbol metadata unavailable"
	msgMarginUnavailable = "margin unavailable for this pair"
	msgOrderFailed       = "order failed"
	msgRepayFailed       = "repay failed"
	msgLoanFailed        = "loan failed"
)

// SignalRouter turns one trade signal into spot, cross or isolated margin
// orders. Signals are handled one at a time.
type SignalRouter struct {
	mu          sync.Mutex
	gateway     domain.ExchangeGateway
	executor    *OrderExecutor
	loans       *LoanManager
	transitions *TransitionController
	store       domain.LastTradeStore
	reporter    reporter
	metrics     *Metrics
	logger      *zap.Logger
	timeNow     func() time.Time
}

func NewSignalRouter(
	gateway domain.ExchangeGateway,
	executor *OrderExecutor,
	loans *LoanManager,
	transitions *TransitionController,
	store domain.LastTradeStore,
	notifier domain.Notifier,
	metrics *Metrics,
	logger *zap.Logger,
) *SignalRouter {
	return &SignalRouter{
		gateway:     gateway,
		executor:    executor,
		loans:       loans,
		transitions: transitions,
		store:       store,
		reporter:    reporter{notifier: notifier, logger: logger},
		metrics:     metrics,
		logger:      logger,
		timeNow:     time.Now,
	}
}

// Handle runs sig to a terminal result. It never panics on exchange failures;
// every error becomes an error Result plus a report.
func (r *SignalRouter) Handle(ctx context.Context, sig domain.TradeSignal) (res domain.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	log := r.logger.With(
		zap.String("signal_id", sig.ID),
		zap.String("symbol", sig.Symbol),
		zap.String("side", string(sig.Side)),
		zap.String("market", string(sig.Market)))
	defer func() {
		r.metrics.signal(string(sig.Market), string(sig.Side), res.Code)
	}()

	if !sig.Side.Valid() {
		return r.fail(ctx, log, msgIncorrectAction, fmt.Errorf("order action %q", sig.Side))
	}
	if !sig.Market.Valid() {
		return r.fail(ctx, log, msgUnknownMarket, fmt.Errorf("market %q", sig.Market))
	}
	asset, ok := domain.SplitSymbol(sig.Symbol, sig.BaseCurrency)
	if !ok {
		return r.fail(ctx, log, msgSymbolMismatch, fmt.Errorf("%s / %s", sig.Symbol, sig.BaseCurrency))
	}
	log.Info("Handling signal",
		zap.String("equity", sig.EquityFraction.String()),
		zap.String("leverage", sig.Leverage.String()),
		zap.String("stop_loss", sig.StopLossPct.String()),
		zap.Bool("overwrite", sig.Overwrite))

	if sig.Overwrite {
		r.rollover(ctx, log, sig)
	}

	meta, err := pairMetadata(ctx, r.gateway, sig.Symbol)
	if err != nil {
		return r.fail(ctx, log, msgMetadata, err)
	}
	if sig.Market.IsMargin() && !meta.MarginAllowed {
		return r.fail(ctx, log, msgMarginUnavailable, &domain.ConfigurationError{Symbol: sig.Symbol, Reason: "margin trading not allowed"})
	}

	cancelOpenOrders(ctx, r.gateway, r.reporter, log, sig.Symbol, sig.Market)

	var msg string
	switch {
	case sig.Market == domain.MarketSpot:
		msg, err = r.handleSpot(ctx, sig, meta, asset)
	case sig.Side == domain.SideBuy:
		msg, err = r.handleMarginBuy(ctx, log, sig, meta, asset)
	default:
		msg, err = r.handleMarginSell(ctx, log, sig, meta, asset)
	}
	if err != nil {
		return r.fail(ctx, log, msg, err)
	}

	r.persist(ctx, log, sig)
	log.Info("Signal completed")
	return domain.Success(msgCompleted)
}

// rollover folds the last trade's position into the signaled pair when both
// are in the same non-isolated market. Failures do not stop the signal.
func (r *SignalRouter) rollover(ctx context.Context, log *zap.Logger, sig domain.TradeSignal) {
	last, found, err := r.store.GetLastTrade(ctx)
	if err != nil {
		log.Warn("Failed to read last trade", zap.Error(err))
		return
	}
	if !found || last.Symbol == sig.Symbol || last.Market != sig.Market || sig.Market == domain.MarketIsolated {
		return
	}

	_, err = r.transitions.Rollover(ctx, RolloverRequest{
		From:     last,
		ToSymbol: sig.Symbol,
		ToBase:   sig.BaseCurrency,
		Market:   sig.Market,
	})
	if err != nil {
		log.Error("Pair rollover failed", zap.Error(err), zap.String("from", last.Symbol))
		r.reporter.reportUnlessSent(ctx, err, fmt.Sprintf("pair rollover %s -> %s failed: %v", last.Symbol, sig.Symbol, err))
	}
}

func (r *SignalRouter) handleSpot(ctx context.Context, sig domain.TradeSignal, meta domain.PairMetadata, asset string) (string, error) {
	balances, err := snapshotBalances(ctx, r.gateway, domain.MarketSpot, sig.Symbol)
	if err != nil {
		return msgOrderFailed, err
	}

	qty := balances.Free(asset)
	if sig.Side == domain.SideBuy {
		price, err := r.gateway.GetPrice(ctx, sig.Symbol)
		if err != nil {
			return msgOrderFailed, err
		}
		qty = RoundQuantity(balances.Free(sig.BaseCurrency).Mul(sig.EquityFraction).Div(price), meta.Precision)
	}

	// A spot sell is an exit and leaves nothing to protect.
	var stop StopSettings
	if sig.Side == domain.SideBuy {
		stop = stopSettings(sig)
	}
	_, err = r.executor.PlaceMarket(ctx, MarketOrderParams{
		Pair:     meta,
		Side:     sig.Side,
		Market:   domain.MarketSpot,
		Quantity: qty,
		Stop:     stop,
	})
	if err != nil {
		return msgOrderFailed, err
	}
	return "", nil
}

// handleMarginBuy closes a short, repays the asset loan and optionally
// borrows base currency for a leveraged second buy.
func (r *SignalRouter) handleMarginBuy(ctx context.Context, log *zap.Logger, sig domain.TradeSignal, meta domain.PairMetadata, asset string) (string, error) {
	isolated := sig.Market == domain.MarketIsolated

	var loan, base, ratio decimal.Decimal
	if isolated {
		pair, err := r.gateway.GetIsolatedMarginPair(ctx, sig.Symbol)
		if err != nil {
			return msgOrderFailed, err
		}
		loan, base, ratio = pair.Base.Borrowed, pair.Quote.Free, pair.MarginRatio
	} else {
		balances, err := snapshotBalances(ctx, r.gateway, domain.MarketCross, sig.Symbol)
		if err != nil {
			return msgOrderFailed, err
		}
		loan, base, ratio = balances.Borrowed(asset), balances.Free(sig.BaseCurrency), domain.CrossMarginRatio
	}

	price, err := r.gateway.GetPrice(ctx, sig.Symbol)
	if err != nil {
		return msgOrderFailed, err
	}
	qty := RoundQuantity(base.Mul(sig.EquityFraction).Div(price), meta.Precision)
	if loan.IsPositive() {
		qty = decimal.Max(qty, roundQuantityUp(loan, meta.Precision))
	}

	order, err := r.executor.PlaceMarket(ctx, MarketOrderParams{
		Pair:     meta,
		Side:     domain.SideBuy,
		Market:   sig.Market,
		Quantity: qty,
		Stop:     stopSettings(sig),
		Loan:     loan,
	})
	if err != nil {
		return msgOrderFailed, err
	}

	if loan.IsPositive() {
		if err := r.loans.Repay(ctx, asset, loan, sig.Symbol, isolated); err != nil {
			return msgRepayFailed, err
		}
	}

	if !sig.Leverage.IsPositive() {
		return "", nil
	}
	leverage := sig.Leverage
	if leverage.GreaterThan(ratio) {
		log.Info("Leverage capped at margin ratio", zap.String("requested", leverage.String()), zap.String("ratio", ratio.String()))
		leverage = ratio
	}

	fill := order.Price
	if !fill.IsPositive() {
		fill = price
	}
	borrow := order.Quantity.Sub(loan).Mul(fill).Mul(leverage)
	if !borrow.IsPositive() {
		return "", nil
	}
	if err := r.loans.Borrow(ctx, sig.BaseCurrency, borrow, sig.Symbol, isolated); err != nil {
		return msgLoanFailed, err
	}

	_, err = r.executor.PlaceMarket(ctx, MarketOrderParams{
		Pair:     meta,
		Side:     domain.SideBuy,
		Market:   sig.Market,
		Quantity: RoundQuantity(borrow.Div(price), meta.Precision),
		Stop:     stopSettings(sig),
	})
	if err != nil {
		return msgOrderFailed, err
	}
	return "", nil
}

// handleMarginSell closes a long, repays the base currency loan and opens a
// short by borrowing and selling the asset.
func (r *SignalRouter) handleMarginSell(ctx context.Context, log *zap.Logger, sig domain.TradeSignal, meta domain.PairMetadata, asset string) (string, error) {
	isolated := sig.Market == domain.MarketIsolated

	held, ratio, err := r.assetHolding(ctx, sig, asset)
	if err != nil {
		return msgOrderFailed, err
	}
	if held.IsPositive() && held.GreaterThanOrEqual(meta.MinQuantity) {
		if _, err := r.executor.PlaceMarket(ctx, MarketOrderParams{
			Pair:     meta,
			Side:     domain.SideSell,
			Market:   sig.Market,
			Quantity: held,
		}); err != nil {
			return msgOrderFailed, err
		}
	}

	baseFree, baseBorrowed, err := r.baseHolding(ctx, sig)
	if err != nil {
		return msgOrderFailed, err
	}
	if repay := decimal.Min(baseBorrowed, baseFree); repay.IsPositive() {
		if err := r.loans.Repay(ctx, sig.BaseCurrency, repay, sig.Symbol, isolated); err != nil {
			return msgRepayFailed, err
		}
		baseFree = baseFree.Sub(repay)
	}

	leverage := decimal.Zero
	if sig.Leverage.IsPositive() {
		leverage = decimal.Min(sig.Leverage, decimal.Max(ratio.Sub(one), decimal.Zero))
		if !leverage.Equal(sig.Leverage) {
			log.Info("Leverage capped at margin ratio", zap.String("requested", sig.Leverage.String()), zap.String("used", leverage.String()))
		}
	}

	price, err := r.gateway.GetPrice(ctx, sig.Symbol)
	if err != nil {
		return msgOrderFailed, err
	}
	amount := RoundQuantity(baseFree.Mul(sig.EquityFraction).Mul(one.Add(leverage)).Div(price), meta.Precision)
	if err := checkMinimum(meta, amount); err != nil {
		return msgLoanFailed, err
	}

	if err := r.loans.Borrow(ctx, asset, amount, sig.Symbol, isolated); err != nil {
		return msgLoanFailed, err
	}
	if _, err := r.executor.PlaceMarket(ctx, MarketOrderParams{
		Pair:     meta,
		Side:     domain.SideSell,
		Market:   sig.Market,
		Quantity: amount,
		Stop:     stopSettings(sig),
	}); err != nil {
		return msgOrderFailed, err
	}
	return "", nil
}

// assetHolding returns the free asset balance and the margin ratio. Cross
// margin always uses the fixed ratio.
func (r *SignalRouter) assetHolding(ctx context.Context, sig domain.TradeSignal, asset string) (decimal.Decimal, decimal.Decimal, error) {
	if sig.Market == domain.MarketIsolated {
		pair, err := r.gateway.GetIsolatedMarginPair(ctx, sig.Symbol)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		return pair.Base.Free, pair.MarginRatio, nil
	}
	balances, err := snapshotBalances(ctx, r.gateway, domain.MarketCross, sig.Symbol)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return balances.Free(asset), domain.CrossMarginRatio, nil
}

func (r *SignalRouter) baseHolding(ctx context.Context, sig domain.TradeSignal) (free, borrowed decimal.Decimal, err error) {
	if sig.Market == domain.MarketIsolated {
		pair, err := r.gateway.GetIsolatedMarginPair(ctx, sig.Symbol)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		return pair.Quote.Free, pair.Quote.Borrowed, nil
	}
	balances, err := snapshotBalances(ctx, r.gateway, domain.MarketCross, sig.Symbol)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return balances.Free(sig.BaseCurrency), balances.Borrowed(sig.BaseCurrency), nil
}

func (r *SignalRouter) persist(ctx context.Context, log *zap.Logger, sig domain.TradeSignal) {
	record := domain.LastTradeRecord{
		Symbol:       sig.Symbol,
		BaseCurrency: sig.BaseCurrency,
		Market:       sig.Market,
		UpdatedAt:    r.timeNow().UTC(),
	}
	if err := r.store.SaveLastTrade(ctx, record); err != nil {
		log.Error("Failed to save last trade", zap.Error(err))
		r.reporter.report(ctx, fmt.Sprintf("%v during last trade save for %s", err, sig.Symbol))
	}
}

func (r *SignalRouter) fail(ctx context.Context, log *zap.Logger, msg string, err error) domain.Result {
	log.Error("Signal failed", zap.String("result", msg), zap.Error(err))
	r.reporter.reportUnlessSent(ctx, err, fmt.Sprintf("%s: %v", msg, err))
	return domain.Failure(msg)
}

func stopSettings(sig domain.TradeSignal) StopSettings {
	return StopSettings{LossPct: sig.StopLossPct, LimitGapPct: sig.StopLimitDiffPct}
}
