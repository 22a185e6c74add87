package exchange

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
	"github.com/vitos/signal_trader/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	codeInvalidQuantity = -1013
	codeInvalidSymbol   = -1121
)

type BinanceConfig struct {
	APIKey            string
	APISecret         string
	BaseURL           string
	Testnet           bool
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// BinanceGateway implements domain.ExchangeGateway on the Binance spot and
// margin REST API. Every request waits on a shared token bucket.
type BinanceGateway struct {
	client  *binance.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewBinanceGateway(cfg BinanceConfig, logger *zap.Logger) *BinanceGateway {
	if cfg.Testnet {
		binance.UseTestnet = true
	}
	client := binance.NewClient(cfg.APIKey, cfg.APISecret)
	if cfg.BaseURL != "" {
		client.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client.HTTPClient = &http.Client{Timeout: timeout}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}
	return &BinanceGateway{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

func (g *BinanceGateway) wait(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// --- Balances ---

func (g *BinanceGateway) GetSpotBalances(ctx context.Context) ([]domain.AssetPosition, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	acc, err := g.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	out := make([]domain.AssetPosition, 0, len(acc.Balances))
	for _, b := range acc.Balances {
		out = append(out, domain.AssetPosition{Asset: b.Asset, Free: parseDecimal(b.Free)})
	}
	return out, nil
}

func (g *BinanceGateway) GetCrossMarginAssets(ctx context.Context) ([]domain.AssetPosition, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	acc, err := g.client.NewGetMarginAccountService().Do(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	out := make([]domain.AssetPosition, 0, len(acc.UserAssets))
	for _, a := range acc.UserAssets {
		out = append(out, domain.AssetPosition{
			Asset:    a.Asset,
			Free:     parseDecimal(a.Free),
			Borrowed: parseDecimal(a.Borrowed),
		})
	}
	return out, nil
}

func (g *BinanceGateway) GetIsolatedMarginPair(ctx context.Context, symbol string) (*domain.IsolatedPair, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	acc, err := g.client.NewGetIsolatedMarginAccountService().Symbols(symbol).Do(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	for _, a := range acc.Assets {
		if a.Symbol != symbol {
			continue
		}
		return &domain.IsolatedPair{
			Symbol: a.Symbol,
			Base: domain.AssetPosition{
				Asset:    a.BaseAsset.Asset,
				Free:     parseDecimal(a.BaseAsset.Free),
				Borrowed: parseDecimal(a.BaseAsset.Borrowed),
			},
			Quote: domain.AssetPosition{
				Asset:    a.QuoteAsset.Asset,
				Free:     parseDecimal(a.QuoteAsset.Free),
				Borrowed: parseDecimal(a.QuoteAsset.Borrowed),
			},
			MarginRatio: parseDecimal(a.MarginRatio),
		}, nil
	}
	return nil, fmt.Errorf("isolated margin account for %s not found", symbol)
}

// --- Orders ---

func (g *BinanceGateway) ListOpenOrders(ctx context.Context, symbol string, market domain.Market) ([]domain.OpenOrder, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	var (
		orders []*binance.Order
		err    error
	)
	if market == domain.MarketSpot {
		orders, err = g.client.NewListOpenOrdersService().Symbol(symbol).Do(ctx)
	} else {
		orders, err = g.client.NewListMarginOpenOrdersService().
			Symbol(symbol).
			IsIsolated(market == domain.MarketIsolated).
			Do(ctx)
	}
	if err != nil {
		return nil, translateError(err)
	}
	out := make([]domain.OpenOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, domain.OpenOrder{
			ID:     o.OrderID,
			Symbol: o.Symbol,
			Side:   domain.Side(o.Side),
			Type:   string(o.Type),
		})
	}
	return out, nil
}

func (g *BinanceGateway) CancelOrder(ctx context.Context, symbol string, orderID int64, market domain.Market) error {
	if err := g.wait(ctx); err != nil {
		return err
	}
	var err error
	if market == domain.MarketSpot {
		_, err = g.client.NewCancelOrderService().Symbol(symbol).OrderID(orderID).Do(ctx)
	} else {
		_, err = g.client.NewCancelMarginOrderService().
			Symbol(symbol).
			OrderID(orderID).
			IsIsolated(market == domain.MarketIsolated).
			Do(ctx)
	}
	return translateError(err)
}

func (g *BinanceGateway) PlaceMarketOrder(ctx context.Context, req domain.MarketOrderRequest) (*domain.Order, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	var (
		res *binance.CreateOrderResponse
		err error
	)
	if req.Market == domain.MarketSpot {
		res, err = g.client.NewCreateOrderService().
			Symbol(req.Symbol).
			Side(binance.SideType(req.Side)).
			Type(binance.OrderTypeMarket).
			Quantity(req.Quantity.String()).
			NewClientOrderID(req.ClientOrderID).
			NewOrderRespType(binance.NewOrderRespTypeFULL).
			Do(ctx)
	} else {
		res, err = g.client.NewCreateMarginOrderService().
			Symbol(req.Symbol).
			IsIsolated(req.Market == domain.MarketIsolated).
			Side(binance.SideType(req.Side)).
			Type(binance.OrderTypeMarket).
			Quantity(req.Quantity.String()).
			NewClientOrderID(req.ClientOrderID).
			NewOrderRespType(binance.NewOrderRespTypeFULL).
			Do(ctx)
	}
	if err != nil {
		return nil, translateError(err)
	}
	g.logger.Debug("Binance market order response",
		zap.String("symbol", res.Symbol),
		zap.Int64("order_id", res.OrderID),
		zap.String("status", string(res.Status)))
	return toOrder(res, req.Market, domain.OrderTypeMarket), nil
}

func (g *BinanceGateway) PlaceStopLimitOrder(ctx context.Context, req domain.StopLimitOrderRequest) (*domain.Order, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	var (
		res *binance.CreateOrderResponse
		err error
	)
	if req.Market == domain.MarketSpot {
		res, err = g.client.NewCreateOrderService().
			Symbol(req.Symbol).
			Side(binance.SideType(req.Side)).
			Type(binance.OrderTypeStopLossLimit).
			TimeInForce(binance.TimeInForceTypeGTC).
			Quantity(req.Quantity.String()).
			Price(req.LimitPrice.String()).
			StopPrice(req.StopPrice.String()).
			NewClientOrderID(req.ClientOrderID).
			Do(ctx)
	} else {
		res, err = g.client.NewCreateMarginOrderService().
			Symbol(req.Symbol).
			IsIsolated(req.Market == domain.MarketIsolated).
			Side(binance.SideType(req.Side)).
			Type(binance.OrderTypeStopLossLimit).
			TimeInForce(binance.TimeInForceTypeGTC).
			Quantity(req.Quantity.String()).
			Price(req.LimitPrice.String()).
			StopPrice(req.StopPrice.String()).
			NewClientOrderID(req.ClientOrderID).
			Do(ctx)
	}
	if err != nil {
		return nil, translateError(err)
	}
	order := toOrder(res, req.Market, domain.OrderTypeStopLimit)
	if order.Quantity.IsZero() {
		order.Quantity = req.Quantity
	}
	order.StopPrice = req.StopPrice
	return order, nil
}

// --- Market data ---

func (g *BinanceGateway) LookupSymbol(ctx context.Context, symbol string) (domain.SymbolInfo, bool, error) {
	if err := g.wait(ctx); err != nil {
		return domain.SymbolInfo{}, false, err
	}
	info, err := g.client.NewExchangeInfoService().Symbol(symbol).Do(ctx)
	if err != nil {
		err = translateError(err)
		var rej *domain.ExchangeRejection
		if errors.As(err, &rej) && rej.Reason == domain.RejectUnknownPair {
			return domain.SymbolInfo{}, false, nil
		}
		return domain.SymbolInfo{}, false, err
	}
	for _, s := range info.Symbols {
		if s.Symbol == symbol {
			return toSymbolInfo(s), true, nil
		}
	}
	return domain.SymbolInfo{}, false, nil
}

func (g *BinanceGateway) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := g.wait(ctx); err != nil {
		return decimal.Zero, err
	}
	prices, err := g.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, translateError(err)
	}
	for _, p := range prices {
		if p.Symbol == symbol {
			price, err := decimal.NewFromString(p.Price)
			if err != nil {
				return decimal.Zero, fmt.Errorf("parse price %q: %w", p.Price, err)
			}
			return price, nil
		}
	}
	return decimal.Zero, fmt.Errorf("no price for %s", symbol)
}

// --- Loans ---

func (g *BinanceGateway) Borrow(ctx context.Context, req domain.LoanRequest) error {
	if err := g.wait(ctx); err != nil {
		return err
	}
	svc := g.client.NewMarginLoanService().Asset(req.Asset).Amount(req.Amount.String())
	if req.IsolatedSymbol != "" {
		svc = svc.IsIsolated(true).Symbol(req.IsolatedSymbol)
	}
	_, err := svc.Do(ctx)
	return translateError(err)
}

func (g *BinanceGateway) Repay(ctx context.Context, req domain.LoanRequest) error {
	if err := g.wait(ctx); err != nil {
		return err
	}
	svc := g.client.NewMarginRepayService().Asset(req.Asset).Amount(req.Amount.String())
	if req.IsolatedSymbol != "" {
		svc = svc.IsIsolated(true).Symbol(req.IsolatedSymbol)
	}
	_, err := svc.Do(ctx)
	return translateError(err)
}

// --- Mapping ---

// translateError turns Binance API errors into *domain.ExchangeRejection.
// Transport errors pass through unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	reason := domain.RejectOther
	switch {
	case apiErr.Code == codeInvalidQuantity && strings.Contains(apiErr.Message, "LOT_SIZE"):
		reason = domain.RejectLotSize
	case apiErr.Code == codeInvalidSymbol:
		reason = domain.RejectUnknownPair
	}
	return &domain.ExchangeRejection{Code: apiErr.Code, Reason: reason, Message: apiErr.Message}
}

func toOrder(res *binance.CreateOrderResponse, market domain.Market, typ domain.OrderType) *domain.Order {
	executed := parseDecimal(res.ExecutedQuantity)
	order := &domain.Order{
		ID:            res.OrderID,
		ClientOrderID: res.ClientOrderID,
		Symbol:        res.Symbol,
		Side:          domain.Side(res.Side),
		Market:        market,
		Type:          typ,
		Quantity:      executed,
		Price:         parseDecimal(res.Price),
		Status:        toStatus(res.Status),
	}
	if typ == domain.OrderTypeMarket && executed.IsPositive() {
		order.Price = parseDecimal(res.CummulativeQuoteQuantity).Div(executed)
	}
	if order.Quantity.IsZero() {
		order.Quantity = parseDecimal(res.OrigQuantity)
	}
	return order
}

func toStatus(s binance.OrderStatusType) domain.OrderStatus {
	switch s {
	case binance.OrderStatusTypeFilled, binance.OrderStatusTypePartiallyFilled:
		return domain.OrderStatusFilled
	case binance.OrderStatusTypeNew:
		return domain.OrderStatusNew
	case binance.OrderStatusTypeRejected:
		return domain.OrderStatusRejected
	case binance.OrderStatusTypeExpired, binance.OrderStatusTypeCanceled:
		return domain.OrderStatusFailed
	}
	return domain.OrderStatus(s)
}

func toSymbolInfo(s binance.Symbol) domain.SymbolInfo {
	info := domain.SymbolInfo{
		Symbol:             s.Symbol,
		BaseAsset:          s.BaseAsset,
		QuoteAsset:         s.QuoteAsset,
		BaseAssetPrecision: int32(s.BaseAssetPrecision),
		MarginAllowed:      s.IsMarginTradingAllowed,
	}
	for _, raw := range s.Filters {
		if f, ok := toFilter(raw); ok {
			info.Filters = append(info.Filters, f)
		}
	}
	return info
}

// toFilter reads the subset of exchange filters the sizing logic uses. Other
// filter types are dropped.
func toFilter(raw map[string]interface{}) (domain.Filter, bool) {
	typ := field(raw, "filterType")
	f := domain.Filter{Type: typ}
	switch typ {
	case domain.FilterLotSize:
		f.MinQty = parseDecimal(field(raw, "minQty"))
		f.MaxQty = parseDecimal(field(raw, "maxQty"))
		f.StepSize = parseDecimal(field(raw, "stepSize"))
	case domain.FilterPrice:
		f.TickSize = parseDecimal(field(raw, "tickSize"))
	case domain.FilterMinNotional, domain.FilterNotional:
		f.MinNotional = parseDecimal(field(raw, "minNotional"))
	default:
		return domain.Filter{}, false
	}
	return f, true
}

func field(raw map[string]interface{}, key string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
