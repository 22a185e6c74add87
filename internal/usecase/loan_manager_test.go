package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/signal_trader/internal/domain"
	"go.uber.org/zap"
)

func TestLoanManager_Scoping(t *testing.T) {
	gw := newFakeGateway()
	m := NewLoanManager(gw, nil, nil, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, m.Borrow(ctx, "USDT", d("150.123456789"), "ETHUSDT", false))
	require.NoError(t, m.Repay(ctx, "ETH", d("0.5"), "ETHUSDT", true))

	require.Len(t, gw.borrows, 1)
	assert.Equal(t, "USDT", gw.borrows[0].Asset)
	assert.Empty(t, gw.borrows[0].IsolatedSymbol)
	assert.True(t, d("150.12345678").Equal(gw.borrows[0].Amount), "amount %s", gw.borrows[0].Amount)

	require.Len(t, gw.repays, 1)
	assert.Equal(t, "ETHUSDT", gw.repays[0].IsolatedSymbol)
}

func TestLoanManager_IsolatedRequiresSymbol(t *testing.T) {
	gw := newFakeGateway()
	err := NewLoanManager(gw, nil, nil, zap.NewNop()).Borrow(context.Background(), "ETH", d("1"), "", true)

	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Empty(t, gw.borrows)
}

func TestLoanManager_ZeroAmountIsNoop(t *testing.T) {
	gw := newFakeGateway()
	m := NewLoanManager(gw, nil, nil, zap.NewNop())

	require.NoError(t, m.Repay(context.Background(), "ETH", d("0.000000001"), "ETHUSDT", false))
	assert.Empty(t, gw.calls)
}

func TestLoanManager_FailureReported(t *testing.T) {
	gw := newFakeGateway()
	gw.repayErr = errors.New("repay amount exceeds borrowed")
	n := &recordingNotifier{}

	err := NewLoanManager(gw, n, nil, zap.NewNop()).Repay(context.Background(), "USDT", d("10"), "ETHUSDT", false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "repay")
	require.Len(t, n.messages, 1)
	assert.Contains(t, n.messages[0], "USDT")
}
