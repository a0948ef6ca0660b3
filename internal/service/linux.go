//go:build !windows
// +build !windows

package service

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"hostwatch/internal/logger"
)

// UnixService runs the agent in the foreground or under systemd and stops
// it on SIGINT or SIGTERM.
type UnixService struct {
	runFunc RunFunc
	opts    options
	signals []os.Signal
	cancel  context.CancelFunc
	mu      sync.Mutex
	stopped bool
}

// NewService creates a new platform-specific service.
func NewService(runFunc RunFunc, opts ...Option) Service {
	return &UnixService{
		runFunc: runFunc,
		opts:    newOptions(opts),
		signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// Run starts runFunc and waits for it to finish or for a shutdown signal.
// After a signal it waits up to the stop timeout; a second signal forces an
// immediate return.
func (s *UnixService) Run(ctx context.Context) error {
	log := logger.WithComponent("service")

	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()
	defer s.cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, s.signals...)
	defer signal.Stop(sigChan)

	done := make(chan error, 1)
	go func() {
		done <- s.runFunc(ctx)
	}()

	log.Info().Str("name", s.opts.name).Int("pid", os.Getpid()).Msg("Service started")

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		s.Stop()

		timer := time.NewTimer(s.opts.stopTimeout)
		defer timer.Stop()
		select {
		case err := <-done:
			return err
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("Received second signal, forcing exit")
			return nil
		case <-timer.C:
			log.Warn().Dur("timeout", s.opts.stopTimeout).Msg("Timeout waiting for agent to stop")
			return nil
		}

	case err := <-done:
		return err
	}
}

// Stop cancels the context passed to runFunc.
func (s *UnixService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil && !s.stopped {
		s.stopped = true
		s.cancel()
	}
	return nil
}

// IsService reports whether stdin is not a terminal, which is the case under
// systemd and other supervisors.
func (s *UnixService) IsService() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) == 0
}
