package poller

import (
	"context"
	"fmt"
	"time"
)

// RetryHandler paces retries after destination client errors and gives up
// once the attempt budget is consumed.
type RetryHandler struct {
	RetryAfterErrorPeriod      time.Duration
	MaxRetryAttemptsAfterError int
}

// Handle suspends before the next attempt, or returns an error when attempts
// reached the configured maximum. Honors ctx while suspended.
func (h *RetryHandler) Handle(ctx context.Context, funcName string, attempts int) error {
	if attempts >= h.MaxRetryAttemptsAfterError {
		return fmt.Errorf(
			"%s failed too many times (%d)",
			funcName, h.MaxRetryAttemptsAfterError,
		)
	}
	timer := time.NewTimer(h.RetryAfterErrorPeriod)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
