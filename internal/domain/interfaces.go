package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// ExchangeGateway defines the exchange capabilities the trading core relies on.
// Every call is blocking; rejections are returned as *ExchangeRejection.
type ExchangeGateway interface {
	GetSpotBalances(ctx context.Context) ([]AssetPosition, error)
	GetCrossMarginAssets(ctx context.Context) ([]AssetPosition, error)
	GetIsolatedMarginPair(ctx context.Context, symbol string) (*IsolatedPair, error)

	ListOpenOrders(ctx context.Context, symbol string, market Market) ([]OpenOrder, error)
	CancelOrder(ctx context.Context, symbol string, orderID int64, market Market) error

	// LookupSymbol returns found=false for symbols the exchange does not list.
	LookupSymbol(ctx context.Context, symbol string) (SymbolInfo, bool, error)
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)

	PlaceMarketOrder(ctx context.Context, req MarketOrderRequest) (*Order, error)
	PlaceStopLimitOrder(ctx context.Context, req StopLimitOrderRequest) (*Order, error)

	Borrow(ctx context.Context, req LoanRequest) error
	Repay(ctx context.Context, req LoanRequest) error
}

// Notifier broadcasts a human readable message. Callers do not depend on delivery.
type Notifier interface {
	SendText(ctx context.Context, text string) error
}

// LastTradeStore keeps the single last-trade marker. A missing record is
// reported as found=false, not as an error.
type LastTradeStore interface {
	GetLastTrade(ctx context.Context) (LastTradeRecord, bool, error)
	SaveLastTrade(ctx context.Context, record LastTradeRecord) error
}
