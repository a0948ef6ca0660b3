package sender

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/goleak"
)

// scriptedSender fails the first failures calls, then succeeds.
type scriptedSender struct {
	mu       sync.Mutex
	failures int
	err      error
	calls    int
	closed   bool
}

func (s *scriptedSender) Send(ctx context.Context, msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return s.err
	}
	return nil
}

func (s *scriptedSender) Name() string { return "scripted" }

func (s *scriptedSender) Close() error {
	s.closed = true
	return nil
}

func (s *scriptedSender) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestRetrySender_SucceedsAfterFailures(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	inner := &scriptedSender{failures: 2, err: errors.New("unavailable")}
	s := NewRetrySender(inner, 3, time.Millisecond)

	if err := s.Send(context.Background(), warnMessage()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.Calls() != 3 {
		t.Errorf("calls = %d, want 3", inner.Calls())
	}
}

func TestRetrySender_ExhaustedReturnsLastError(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	boom := errors.New("disk full")
	inner := &scriptedSender{failures: 100, err: boom}
	s := NewRetrySender(inner, 2, time.Millisecond)

	err := s.Send(context.Background(), warnMessage())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	if inner.Calls() != 3 {
		t.Errorf("calls = %d, want 3", inner.Calls())
	}
}

func TestRetrySender_ZeroRetriesFailsFirstError(t *testing.T) {
	boom := errors.New("refused")
	inner := &scriptedSender{failures: 1, err: boom}
	s := NewRetrySender(inner, 0, time.Second)

	if err := s.Send(context.Background(), warnMessage()); err != boom {
		t.Errorf("expected the inner error unchanged, got %v", err)
	}
	if inner.Calls() != 1 {
		t.Errorf("calls = %d, want 1", inner.Calls())
	}
}

func TestRetrySender_ExponentialBackoff(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	mock := clock.NewMock()
	inner := &scriptedSender{failures: 3, err: errors.New("timeout")}
	s := NewRetrySender(inner, 3, time.Second)
	s.clock = mock

	done := make(chan error, 1)
	go func() { done <- s.Send(context.Background(), warnMessage()) }()

	waitForCalls := func(n int) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for inner.Calls() < n {
			if time.Now().After(deadline) {
				t.Fatalf("timed out waiting for %d calls, have %d", n, inner.Calls())
			}
			time.Sleep(time.Millisecond)
		}
		// let the sender arm its timer
		time.Sleep(10 * time.Millisecond)
	}

	// delays: 1s, 2s, 4s
	waitForCalls(1)
	mock.Add(999 * time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	if inner.Calls() != 1 {
		t.Fatalf("retried before the first backoff elapsed")
	}
	mock.Add(time.Millisecond)

	waitForCalls(2)
	mock.Add(2 * time.Second)

	waitForCalls(3)
	mock.Add(4 * time.Second)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Send did not return")
	}
	if inner.Calls() != 4 {
		t.Errorf("calls = %d, want 4", inner.Calls())
	}
}

func TestRetrySender_ContextCanceledDuringBackoff(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	inner := &scriptedSender{failures: 100, err: errors.New("down")}
	s := NewRetrySender(inner, 5, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := s.Send(ctx, warnMessage()); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
	if inner.Calls() != 1 {
		t.Errorf("calls = %d, want 1", inner.Calls())
	}
}

func TestRetrySender_DeadlineDuringBackoffKeepsSinkError(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	boom := errors.New("HTTP 502")
	inner := &scriptedSender{failures: 100, err: boom}
	s := NewRetrySender(inner, 5, 20*time.Millisecond)

	// attempts at 0, 20ms, 60ms; the 80ms wait overruns the deadline
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := s.Send(ctx, warnMessage())
	if !errors.Is(err, boom) {
		t.Errorf("sink error lost: %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded in chain, got %v", err)
	}
	if n := inner.Calls(); n < 2 || n > 5 {
		t.Errorf("calls = %d, want between 2 and 5", n)
	}
}

func TestRetrySender_DoesNotRetryClosed(t *testing.T) {
	inner := &scriptedSender{failures: 100, err: ErrClosed}
	s := NewRetrySender(inner, 3, time.Millisecond)

	if err := s.Send(context.Background(), warnMessage()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if inner.Calls() != 1 {
		t.Errorf("calls = %d, want 1", inner.Calls())
	}
}

func TestRetrySender_DelegatesNameAndClose(t *testing.T) {
	inner := &scriptedSender{}
	s := NewRetrySender(inner, 1, time.Millisecond)

	if s.Name() != "scripted" {
		t.Errorf("Name() = %q", s.Name())
	}
	if err := s.Close(); err != nil || !inner.closed {
		t.Errorf("Close did not reach inner sender: %v", err)
	}
}

func TestDeliveryError(t *testing.T) {
	boom := errors.New("HTTP 500")
	err := error(&DeliveryError{Sink: "discord", Err: boom})

	if err.Error() != "delivery to discord sink failed: HTTP 500" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, boom) {
		t.Error("DeliveryError should unwrap to its cause")
	}
	var de *DeliveryError
	if !errors.As(err, &de) || de.Sink != "discord" {
		t.Errorf("errors.As failed: %+v", de)
	}
}
