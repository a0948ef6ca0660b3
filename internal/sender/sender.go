// Package sender delivers formatted reports to a sink.
package sender

import (
	"context"
	"errors"
	"fmt"
)

// Sender defines the interface for delivering one message per cycle.
type Sender interface {
	// Send delivers the message to the sink. A non-nil error means the
	// message was not delivered.
	Send(ctx context.Context, msg *Message) error

	// Name identifies the sink in logs and errors.
	Name() string

	// Close releases any resources held by the sender.
	Close() error
}

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("sender is closed")

// DeliveryError reports that a cycle's output could not be delivered.
type DeliveryError struct {
	Sink string
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s sink failed: %v", e.Sink, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
