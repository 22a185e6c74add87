package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CrossMarginRatio is the fixed leverage ceiling of a cross margin account.
var CrossMarginRatio = decimal.NewFromInt(3)

// AssetPosition is a balance snapshot for one asset. The exchange is the
// source of truth, snapshots are never mutated to mirror remote state.
type AssetPosition struct {
	Asset    string          `json:"asset"`
	Free     decimal.Decimal `json:"free"`
	Borrowed decimal.Decimal `json:"borrowed"`
}

// IsolatedPair is the isolated margin account of a single symbol.
type IsolatedPair struct {
	Symbol      string          `json:"symbol"`
	Base        AssetPosition   `json:"base"`  // traded asset, e.g. ETH in ETHUSDT
	Quote       AssetPosition   `json:"quote"` // base currency, e.g. USDT
	MarginRatio decimal.Decimal `json:"margin_ratio"`
}

// Balances indexes a snapshot by asset name. Missing assets read as zero.
type Balances map[string]AssetPosition

func NewBalances(positions []AssetPosition) Balances {
	b := make(Balances, len(positions))
	for _, p := range positions {
		b[p.Asset] = p
	}
	return b
}

func (b Balances) Free(asset string) decimal.Decimal {
	return b[asset].Free
}

func (b Balances) Borrowed(asset string) decimal.Decimal {
	return b[asset].Borrowed
}

type OrderType string

const (
	OrderTypeMarket    OrderType = "MARKET"
	OrderTypeStopLimit OrderType = "STOP_LOSS_LIMIT"
)

type OrderStatus string

const (
	OrderStatusFilled   OrderStatus = "FILLED"
	OrderStatusNew      OrderStatus = "NEW"
	OrderStatusRejected OrderStatus = "REJECTED"
	OrderStatusFailed   OrderStatus = "FAILED"
)

// Order is the exchange's answer to one submission. Price is the average fill
// price for market orders and the limit price for stop-limit orders.
type Order struct {
	ID            int64           `json:"id"`
	ClientOrderID string          `json:"client_order_id"`
	Symbol        string          `json:"symbol"`
	Side          Side            `json:"side"`
	Market        Market          `json:"market"`
	Type          OrderType       `json:"type"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	StopPrice     decimal.Decimal `json:"stop_price,omitempty"`
	Status        OrderStatus     `json:"status"`
}

// OpenOrder is a resting order returned by an open-orders query.
type OpenOrder struct {
	ID     int64  `json:"id"`
	Symbol string `json:"symbol"`
	Side   Side   `json:"side"`
	Type   string `json:"type"`
}

type MarketOrderRequest struct {
	Symbol        string
	Side          Side
	Market        Market
	Quantity      decimal.Decimal
	ClientOrderID string
}

type StopLimitOrderRequest struct {
	Symbol        string
	Side          Side
	Market        Market
	Quantity      decimal.Decimal
	LimitPrice    decimal.Decimal
	StopPrice     decimal.Decimal
	ClientOrderID string
}

// LoanRequest borrows or repays Amount of Asset. IsolatedSymbol is empty for
// cross margin and names the pair for isolated margin.
type LoanRequest struct {
	Asset          string
	Amount         decimal.Decimal
	IsolatedSymbol string
}

// LastTradeRecord marks the pair of the last successful signal.
type LastTradeRecord struct {
	Symbol       string    `json:"symbol"`
	BaseCurrency string    `json:"base_currency"`
	Market       Market    `json:"market"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Result is the terminal outcome of one signal.
type Result struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func Success(message string) Result {
	return Result{Code: ResultSuccess, Message: message}
}

func Failure(message string) Result {
	return Result{Code: ResultError, Message: message}
}

func (r Result) OK() bool {
	return r.Code == ResultSuccess
}
