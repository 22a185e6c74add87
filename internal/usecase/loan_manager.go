package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vitos/signal_trader/internal/domain"
	"go.uber.org/zap"
)

// loanPrecision is the number of decimals accepted for borrow and repay amounts.
const loanPrecision int32 = 8

// LoanManager borrows and repays margin loans. Calls are not retried; a
// failed call can be repeated by the caller.
type LoanManager struct {
	gateway  domain.ExchangeGateway
	reporter reporter
	metrics  *Metrics
	logger   *zap.Logger
}

func NewLoanManager(gateway domain.ExchangeGateway, notifier domain.Notifier, metrics *Metrics, logger *zap.Logger) *LoanManager {
	return &LoanManager{
		gateway:  gateway,
		reporter: reporter{notifier: notifier, logger: logger},
		metrics:  metrics,
		logger:   logger,
	}
}

func (m *LoanManager) Borrow(ctx context.Context, asset string, amount decimal.Decimal, symbol string, isolated bool) error {
	return m.do(ctx, "borrow", asset, amount, symbol, isolated, m.gateway.Borrow)
}

func (m *LoanManager) Repay(ctx context.Context, asset string, amount decimal.Decimal, symbol string, isolated bool) error {
	return m.do(ctx, "repay", asset, amount, symbol, isolated, m.gateway.Repay)
}

func (m *LoanManager) do(ctx context.Context, op, asset string, amount decimal.Decimal, symbol string, isolated bool, call func(context.Context, domain.LoanRequest) error) error {
	amount = amount.Truncate(loanPrecision)
	if !amount.IsPositive() {
		return nil
	}

	req := domain.LoanRequest{Asset: asset, Amount: amount}
	if isolated {
		if symbol == "" {
			err := &domain.ConfigurationError{Symbol: asset, Reason: "isolated " + op + " requires a symbol"}
			m.metrics.loan(op, "error")
			return err
		}
		req.IsolatedSymbol = symbol
	}

	err := call(ctx, req)
	m.metrics.loan(op, outcomeLabel(err))
	if err != nil {
		m.logger.Error("Loan call failed",
			zap.Error(err),
			zap.String("op", op),
			zap.String("asset", asset),
			zap.String("amount", amount.String()),
			zap.Bool("isolated", isolated))
		m.reporter.report(ctx, fmt.Sprintf("%v during %s of %s %s", err, op, amount, asset))
		return markReported(fmt.Errorf("%s %s %s: %w", op, amount, asset, err))
	}
	m.logger.Info("Loan call completed",
		zap.String("op", op),
		zap.String("asset", asset),
		zap.String("amount", amount.String()),
		zap.Bool("isolated", isolated))
	return nil
}
