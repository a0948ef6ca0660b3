package sender

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"hostwatch/internal/logger"
)

// RetrySender retries failed deliveries of an inner Sender with exponential
// backoff: the n-th retry waits backoff * 2^(n-1).
type RetrySender struct {
	inner   Sender
	retries int
	backoff time.Duration
	clock   clock.Clock
}

// NewRetrySender wraps inner so that each Send makes up to retries extra
// attempts before giving up.
func NewRetrySender(inner Sender, retries int, backoff time.Duration) *RetrySender {
	if retries < 0 {
		retries = 0
	}
	return &RetrySender{
		inner:   inner,
		retries: retries,
		backoff: backoff,
		clock:   clock.New(),
	}
}

// Name returns the inner sink's name.
func (s *RetrySender) Name() string { return s.inner.Name() }

// Send delivers msg, retrying on failure. Context cancellation stops
// retrying immediately; the returned error then matches both the context
// error and the last sink error. When all attempts fail the last error is
// returned.
func (s *RetrySender) Send(ctx context.Context, msg *Message) error {
	log := logger.WithComponent("retry-sender")

	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			delay := s.backoff * time.Duration(1<<uint(attempt-1))
			log.Warn().
				Err(lastErr).
				Str("sink", s.inner.Name()).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Delivery failed, retrying")

			if err := s.sleep(ctx, delay); err != nil {
				return &retryAbortedError{attempts: attempt, cause: err, last: lastErr}
			}
		}

		lastErr = s.inner.Send(ctx, msg)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) || errors.Is(lastErr, ErrClosed) {
			return lastErr
		}
	}

	if s.retries == 0 {
		return lastErr
	}
	return fmt.Errorf("giving up after %d attempts: %w", s.retries+1, lastErr)
}

// retryAbortedError reports a backoff cut short by ctx. It unwraps to both
// the context error and the last delivery error.
type retryAbortedError struct {
	attempts int
	cause    error
	last     error
}

func (e *retryAbortedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts (%v): %v", e.attempts, e.cause, e.last)
}

func (e *retryAbortedError) Unwrap() []error {
	return []error{e.cause, e.last}
}

func (s *RetrySender) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := s.clock.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Close closes the inner sender.
func (s *RetrySender) Close() error {
	return s.inner.Close()
}
