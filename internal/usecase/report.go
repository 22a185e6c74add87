package usecase

import (
	"context"
	"errors"

	"github.com/vitos/signal_trader/internal/domain"
	"go.uber.org/zap"
)

// reporter sends failure reports to the notification sink. Delivery problems
// are logged and otherwise ignored.
type reporter struct {
	notifier domain.Notifier
	logger   *zap.Logger
}

func (r reporter) report(ctx context.Context, text string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.SendText(ctx, text); err != nil {
		r.logger.Warn("Failed to send report", zap.Error(err), zap.String("report", text))
	}
}

// reportedError marks an error whose report has already been sent.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func markReported(err error) error {
	return &reportedError{err: err}
}

func alreadyReported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}

// reportUnlessSent reports text unless err was reported where it happened.
func (r reporter) reportUnlessSent(ctx context.Context, err error, text string) {
	if alreadyReported(err) {
		return
	}
	r.report(ctx, text)
}
