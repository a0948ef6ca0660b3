//go:build windows
// +build windows

package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sys/windows/svc"

	"hostwatch/internal/logger"
)

// WindowsService runs the agent under the Windows service control manager,
// or in the foreground when started from a console.
type WindowsService struct {
	runFunc RunFunc
	opts    options
	cancel  context.CancelFunc
	mu      sync.Mutex
	stopped bool
	runErr  error
}

// NewService creates a new platform-specific service.
func NewService(runFunc RunFunc, opts ...Option) Service {
	return &WindowsService{
		runFunc: runFunc,
		opts:    newOptions(opts),
	}
}

// Run starts the agent. Under the service manager the loop's error is
// reported to the SCM as a service-specific exit code and also returned.
func (s *WindowsService) Run(ctx context.Context) error {
	if !s.IsService() {
		return s.runFunc(ctx)
	}
	if err := svc.Run(s.opts.name, s); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runErr
}

// Stop cancels the context passed to runFunc.
func (s *WindowsService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil && !s.stopped {
		s.stopped = true
		s.cancel()
	}
	return nil
}

// IsService reports whether the process was started by the SCM.
func (s *WindowsService) IsService() bool {
	isService, err := svc.IsWindowsService()
	if err != nil {
		return false
	}
	return isService
}

// Execute implements svc.Handler. A loop failure stops the service with
// ExitCode(err) as the service-specific exit code.
func (s *WindowsService) Execute(_ []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (bool, uint32) {
	log := logger.WithComponent("service")

	changes <- svc.Status{State: svc.StartPending}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.runFunc(ctx) }()

	running := svc.Status{State: svc.Running, Accepts: svc.AcceptStop | svc.AcceptShutdown}
	changes <- running
	log.Info().Str("name", s.opts.name).Msg("Windows service started")

	for {
		select {
		case err := <-done:
			return s.finish(changes, err)

		case c := <-r:
			switch c.Cmd {
			case svc.Interrogate:
				changes <- c.CurrentStatus
			case svc.Stop, svc.Shutdown:
				log.Info().Str("cmd", cmdName(c.Cmd)).Msg("Stop requested by service control manager")
				changes <- svc.Status{State: svc.StopPending, WaitHint: uint32(s.opts.stopTimeout / time.Millisecond)}
				s.Stop()

				select {
				case err := <-done:
					return s.finish(changes, err)
				case <-time.After(s.opts.stopTimeout):
					log.Warn().Dur("timeout", s.opts.stopTimeout).Msg("Timeout waiting for agent to stop")
					changes <- svc.Status{State: svc.Stopped}
					return false, 0
				}
			default:
				log.Warn().Int("cmd", int(c.Cmd)).Msg("Unexpected service control command")
			}
		}
	}
}

func (s *WindowsService) finish(changes chan<- svc.Status, err error) (bool, uint32) {
	changes <- svc.Status{State: svc.Stopped}
	if err == nil {
		return false, 0
	}

	s.mu.Lock()
	s.runErr = err
	s.mu.Unlock()

	log := logger.WithComponent("service")
	log.Error().Err(err).Int("exit_code", ExitCode(err)).Msg("Agent exited with error")
	return true, uint32(ExitCode(err))
}

func cmdName(c svc.Cmd) string {
	if c == svc.Shutdown {
		return "shutdown"
	}
	return "stop"
}
