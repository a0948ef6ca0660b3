// Package service provides platform-specific service integration.
package service

import (
	"context"
	"errors"
	"time"

	"hostwatch/internal/sender"
)

// Name is the default service and event source name.
const Name = "hostwatch"

// DefaultStopTimeout is how long a stop request waits for the loop.
const DefaultStopTimeout = 30 * time.Second

// Process exit codes.
const (
	ExitOK       = 0
	ExitFailure  = 1 // configuration, snapshot or startup failure
	ExitDelivery = 2 // the sink rejected or could not receive a message
)

// Service defines the interface for platform-specific service management.
type Service interface {
	// Run starts the service. It blocks until the service is stopped.
	Run(ctx context.Context) error

	// Stop requests the service to stop.
	Stop() error

	// IsService returns true if running as a system service.
	IsService() bool
}

// RunFunc is the agent's main loop. It must return once ctx is canceled.
type RunFunc func(ctx context.Context) error

type options struct {
	name        string
	stopTimeout time.Duration
}

// Option configures a Service.
type Option func(*options)

// WithName sets the name registered with the service manager.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithStopTimeout bounds how long a stop request waits for RunFunc.
func WithStopTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.stopTimeout = d
		}
	}
}

func newOptions(opts []Option) options {
	o := options{name: Name, stopTimeout: DefaultStopTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ExitCode maps the error returned by the agent loop to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var de *sender.DeliveryError
	if errors.As(err, &de) {
		return ExitDelivery
	}
	return ExitFailure
}
