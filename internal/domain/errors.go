package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrQuantityBelowMinimum = errors.New("quantity below lot size minimum")
	ErrNothingToProtect     = errors.New("no quantity left to protect")
)

type RejectReason string

const (
	RejectLotSize     RejectReason = "LOT_SIZE"
	RejectUnknownPair RejectReason = "UNKNOWN_SYMBOL"
	RejectOther       RejectReason = "OTHER"
)

// ExchangeRejection is an order or account call the exchange refused.
type ExchangeRejection struct {
	Code    int64
	Reason  RejectReason
	Message string
}

func (e *ExchangeRejection) Error() string {
	return fmt.Sprintf("exchange rejected request (code=%d, reason=%s): %s", e.Code, e.Reason, e.Message)
}

// IsLotSizeViolation reports whether err carries a lot size rejection.
func IsLotSizeViolation(err error) bool {
	var rej *ExchangeRejection
	return errors.As(err, &rej) && rej.Reason == RejectLotSize
}

type SymbolMetadataError struct {
	Symbol string
	Reason string
}

func (e *SymbolMetadataError) Error() string {
	return fmt.Sprintf("symbol metadata for %s: %s", e.Symbol, e.Reason)
}

// RoutingError means no listed symbol links the old pair to the new one.
type RoutingError struct {
	From string
	To   string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("no routable symbol between %s and %s", e.From, e.To)
}

// InsufficientFundsError is a loan shortfall too small to be covered by a
// market order under the pair's minimum notional.
type InsufficientFundsError struct {
	Asset       string
	Shortfall   decimal.Decimal
	MinNotional decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("cannot cover %s loan shortfall %s (min notional %s)", e.Asset, e.Shortfall, e.MinNotional)
}

type ConfigurationError struct {
	Symbol string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Symbol, e.Reason)
}
