package notifier

import (
	"context"
	"errors"

	"github.com/vitos/signal_trader/internal/domain"
)

// Nop drops every message. It is used when notifications are disabled.
type Nop struct{}

func (Nop) SendText(ctx context.Context, text string) error { return nil }

// Multi fans a message out to every sink. All sinks are tried; their errors
// are joined.
type Multi []domain.Notifier

func (m Multi) SendText(ctx context.Context, text string) error {
	var errs []error
	for _, s := range m {
		if err := s.SendText(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
