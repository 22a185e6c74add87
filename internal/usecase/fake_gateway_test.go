package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/vitos/signal_trader/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fakeGateway is a scriptable in-memory exchange. Balances only change when a
// test hook changes them.
type fakeGateway struct {
	mu sync.Mutex

	symbols  map[string]domain.SymbolInfo
	prices   map[string]decimal.Decimal
	spot     []domain.AssetPosition
	cross    []domain.AssetPosition
	isolated map[string]*domain.IsolatedPair
	open     map[string][]domain.OpenOrder

	marketErrs []error // consumed one per market order call
	stopErrs   []error
	loanErr    error
	repayErr   error
	cancelErrs map[int64]error // by order ID
	onMarket   func(req domain.MarketOrderRequest)

	lookups      []string
	marketOrders []domain.MarketOrderRequest
	stopOrders   []domain.StopLimitOrderRequest
	borrows      []domain.LoanRequest
	repays       []domain.LoanRequest
	canceled     []int64
	calls        []string
	nextID       int64
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		symbols:  map[string]domain.SymbolInfo{},
		prices:   map[string]decimal.Decimal{},
		isolated: map[string]*domain.IsolatedPair{},
		open:     map[string][]domain.OpenOrder{},
	}
}

func (g *fakeGateway) listSymbol(info domain.SymbolInfo, price string) {
	g.symbols[info.Symbol] = info
	g.prices[info.Symbol] = d(price)
}

func (g *fakeGateway) record(call string) {
	g.calls = append(g.calls, call)
}

func (g *fakeGateway) GetSpotBalances(ctx context.Context) ([]domain.AssetPosition, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("spot_balances")
	return append([]domain.AssetPosition(nil), g.spot...), nil
}

func (g *fakeGateway) GetCrossMarginAssets(ctx context.Context) ([]domain.AssetPosition, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("cross_assets")
	return append([]domain.AssetPosition(nil), g.cross...), nil
}

func (g *fakeGateway) GetIsolatedMarginPair(ctx context.Context, symbol string) (*domain.IsolatedPair, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("isolated_pair " + symbol)
	pair, ok := g.isolated[symbol]
	if !ok {
		return nil, &domain.ExchangeRejection{Code: -3052, Reason: domain.RejectOther, Message: "isolated pair not found"}
	}
	cp := *pair
	return &cp, nil
}

func (g *fakeGateway) ListOpenOrders(ctx context.Context, symbol string, market domain.Market) ([]domain.OpenOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("open_orders " + symbol)
	return g.open[symbol], nil
}

func (g *fakeGateway) CancelOrder(ctx context.Context, symbol string, orderID int64, market domain.Market) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record(fmt.Sprintf("cancel %s %d", symbol, orderID))
	if err := g.cancelErrs[orderID]; err != nil {
		return err
	}
	g.canceled = append(g.canceled, orderID)
	return nil
}

func (g *fakeGateway) LookupSymbol(ctx context.Context, symbol string) (domain.SymbolInfo, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lookups = append(g.lookups, symbol)
	info, ok := g.symbols[symbol]
	return info, ok, nil
}

func (g *fakeGateway) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	price, ok := g.prices[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("no price for %s", symbol)
	}
	return price, nil
}

func (g *fakeGateway) PlaceMarketOrder(ctx context.Context, req domain.MarketOrderRequest) (*domain.Order, error) {
	g.mu.Lock()
	g.record(fmt.Sprintf("market %s %s %s", req.Side, req.Symbol, req.Quantity))
	g.marketOrders = append(g.marketOrders, req)
	if len(g.marketErrs) > 0 {
		err := g.marketErrs[0]
		g.marketErrs = g.marketErrs[1:]
		if err != nil {
			g.mu.Unlock()
			return nil, err
		}
	}
	g.nextID++
	order := &domain.Order{
		ID:            g.nextID,
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Market:        req.Market,
		Type:          domain.OrderTypeMarket,
		Quantity:      req.Quantity,
		Price:         g.prices[req.Symbol],
		Status:        domain.OrderStatusFilled,
	}
	hook := g.onMarket
	g.mu.Unlock()

	if hook != nil {
		hook(req)
	}
	return order, nil
}

func (g *fakeGateway) PlaceStopLimitOrder(ctx context.Context, req domain.StopLimitOrderRequest) (*domain.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record(fmt.Sprintf("stop %s %s %s", req.Side, req.Symbol, req.Quantity))
	g.stopOrders = append(g.stopOrders, req)
	if len(g.stopErrs) > 0 {
		err := g.stopErrs[0]
		g.stopErrs = g.stopErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	g.nextID++
	return &domain.Order{
		ID:        g.nextID,
		Symbol:    req.Symbol,
		Side:      req.Side,
		Market:    req.Market,
		Type:      domain.OrderTypeStopLimit,
		Quantity:  req.Quantity,
		Price:     req.LimitPrice,
		StopPrice: req.StopPrice,
		Status:    domain.OrderStatusNew,
	}, nil
}

func (g *fakeGateway) Borrow(ctx context.Context, req domain.LoanRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record(fmt.Sprintf("borrow %s %s", req.Asset, req.Amount))
	if g.loanErr != nil {
		return g.loanErr
	}
	g.borrows = append(g.borrows, req)
	return nil
}

func (g *fakeGateway) Repay(ctx context.Context, req domain.LoanRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record(fmt.Sprintf("repay %s %s", req.Asset, req.Amount))
	if g.repayErr != nil {
		return g.repayErr
	}
	g.repays = append(g.repays, req)
	return nil
}

func lotSizeRejection() error {
	return &domain.ExchangeRejection{Code: -1013, Reason: domain.RejectLotSize, Message: "Filter failure: LOT_SIZE"}
}

// symbolInfo builds a listed symbol with LOT_SIZE, PRICE_FILTER and NOTIONAL filters.
func symbolInfo(symbol, base, quote, minQty, tick, minNotional string, margin bool) domain.SymbolInfo {
	return domain.SymbolInfo{
		Symbol:             symbol,
		BaseAsset:          base,
		QuoteAsset:         quote,
		BaseAssetPrecision: 8,
		MarginAllowed:      margin,
		Filters: []domain.Filter{
			{Type: domain.FilterLotSize, MinQty: d(minQty), MaxQty: d("900000"), StepSize: d(minQty)},
			{Type: domain.FilterPrice, TickSize: d(tick)},
			{Type: domain.FilterNotional, MinNotional: d(minNotional)},
		},
	}
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) SendText(ctx context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return nil
}

type memoryStore struct {
	record  domain.LastTradeRecord
	found   bool
	saveErr error
	saves   int
}

func (s *memoryStore) GetLastTrade(ctx context.Context) (domain.LastTradeRecord, bool, error) {
	return s.record, s.found, nil
}

func (s *memoryStore) SaveLastTrade(ctx context.Context, record domain.LastTradeRecord) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.record, s.found = record, true
	return nil
}
