// Package scheduler runs the sample, evaluate and deliver loop.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"hostwatch/internal/collector"
	"hostwatch/internal/config"
	"hostwatch/internal/logger"
	"hostwatch/internal/metrics"
	"hostwatch/internal/sender"
)

const (
	defaultCollectTimeout = 30 * time.Second
	defaultSendTimeout    = 60 * time.Second
)

// ErrAlreadyRunning is returned when Run is called on a running Scheduler.
var ErrAlreadyRunning = errors.New("scheduler already running")

// Stats counts what the loop has done so far.
type Stats struct {
	Cycles    uint64
	Delivered uint64
	Skipped   uint64
}

// Scheduler drives one dispatch loop for the configured mode.
type Scheduler struct {
	cfg            *config.Config
	provider       collector.Provider
	sender         sender.Sender
	clock          clock.Clock
	hostname       string
	collectTimeout time.Duration
	sendTimeout    time.Duration

	mu      sync.Mutex
	running bool
	stats   Stats
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock used for the interval sleep.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithHostname sets the hostname stamped on every message.
func WithHostname(hostname string) Option {
	return func(s *Scheduler) { s.hostname = hostname }
}

// WithTimeouts bounds a single snapshot read and a single delivery.
func WithTimeouts(collect, send time.Duration) Option {
	return func(s *Scheduler) {
		if collect > 0 {
			s.collectTimeout = collect
		}
		if send > 0 {
			s.sendTimeout = send
		}
	}
}

// New creates a new scheduler with the given components.
func New(cfg *config.Config, provider collector.Provider, s sender.Sender, opts ...Option) *Scheduler {
	sch := &Scheduler{
		cfg:            cfg,
		provider:       provider,
		sender:         s,
		clock:          clock.New(),
		hostname:       config.GetHostname(cfg),
		collectTimeout: defaultCollectTimeout,
		sendTimeout:    sendBudget(cfg.Delivery),
	}
	for _, opt := range opts {
		opt(sch)
	}
	return sch
}

// sendBudget is the delivery timeout: one default window per attempt plus
// every backoff wait the retry policy can take.
func sendBudget(d config.DeliveryConfig) time.Duration {
	if d.Retries <= 0 {
		return defaultSendTimeout
	}
	budget := time.Duration(d.Retries+1) * defaultSendTimeout
	for i := 0; i < d.Retries; i++ {
		budget += d.Backoff << uint(i)
	}
	return budget
}

// Run executes the loop until ctx is canceled or a cycle fails. Cancellation
// is only observed between cycles; a cycle in progress finishes first. Run
// returns nil after cancellation, a *sender.DeliveryError when delivery
// fails, and the snapshot error when sampling fails and skipping is off.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	log := logger.WithComponent("scheduler")
	log.Info().
		Str("mode", string(s.cfg.Mode)).
		Dur("interval", s.cfg.Interval).
		Str("sink", s.sender.Name()).
		Bool("skip_failed_snapshots", s.cfg.Sampling.SkipFailedSnapshots).
		Msg("Starting scheduler")

	var err error
	switch s.cfg.Mode {
	case config.ModeInterval:
		err = s.runInterval(ctx)
	case config.ModeWarn:
		err = s.runWarn(ctx)
	default:
		err = fmt.Errorf("%w: unknown mode %q", metrics.ErrModeMismatch, s.cfg.Mode)
	}

	stats := s.Stats()
	if err != nil {
		log.Error().Err(err).Uint64("cycles", stats.Cycles).Msg("Scheduler stopped on error")
		return err
	}
	log.Info().Uint64("cycles", stats.Cycles).Uint64("delivered", stats.Delivered).Msg("Scheduler stopped")
	return nil
}

// IsRunning returns whether the loop is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stats returns a copy of the loop counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Scheduler) runInterval(ctx context.Context) error {
	snap, err := s.snapshot()
	if err != nil {
		return fmt.Errorf("initial snapshot failed: %w", err)
	}
	report, err := metrics.NewReport(s.cfg, snap)
	if err != nil {
		return err
	}

	log := logger.WithComponent("scheduler")
	shape := report.Shape()
	log.Info().
		Bool("ram", shape.RAM).
		Bool("cpu", shape.CPU).
		Bool("cpu_average", shape.CPUAverage).
		Bool("system_uptime", shape.SystemUptime).
		Bool("disk", shape.Disk).
		Bool("swap", shape.Swap).
		Msg("Interval report initialized")

	for {
		snap, err := s.nextCycle(ctx)
		if err != nil {
			return err
		}
		if snap == nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		report = report.Update(snap)
		if err := s.deliver(sender.FormatReport(report, s.hostname)); err != nil {
			return err
		}
	}
}

func (s *Scheduler) runWarn(ctx context.Context) error {
	eval, err := metrics.NewEvaluator(s.cfg)
	if err != nil {
		return err
	}

	log := logger.WithComponent("scheduler")
	limits := eval.Limits()
	log.Info().
		Int("ram_limit", limits.RAM).
		Int("cpu_limit", limits.CPU).
		Int("disk_limit", limits.Disk).
		Int("swap_limit", limits.Swap).
		Msg("Warn evaluator initialized")

	for {
		snap, err := s.nextCycle(ctx)
		if err != nil {
			return err
		}
		if snap == nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		alerts := eval.Evaluate(snap)
		if len(alerts) == 0 {
			log.Debug().Msg("No limits exceeded")
			continue
		}
		if err := s.deliver(sender.FormatAlerts(alerts, s.hostname, snap.Timestamp)); err != nil {
			return err
		}
	}
}

// nextCycle sleeps one interval and takes a snapshot. It returns a nil
// snapshot without error when ctx was canceled during the sleep or when a
// failed snapshot is skipped.
func (s *Scheduler) nextCycle(ctx context.Context) (*collector.Snapshot, error) {
	if !s.sleep(ctx) {
		return nil, nil
	}

	s.mu.Lock()
	s.stats.Cycles++
	s.mu.Unlock()

	snap, err := s.snapshot()
	if err == nil {
		return snap, nil
	}
	if !s.cfg.Sampling.SkipFailedSnapshots {
		return nil, fmt.Errorf("snapshot failed: %w", err)
	}

	s.mu.Lock()
	s.stats.Skipped++
	s.mu.Unlock()

	log := logger.WithComponent("scheduler")
	log.Warn().Err(err).Msg("Snapshot failed, skipping cycle")
	return nil, nil
}

// sleep waits one interval. It reports false when ctx is done first.
func (s *Scheduler) sleep(ctx context.Context) bool {
	t := s.clock.Timer(s.cfg.Interval)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// snapshot reads the provider under its own timeout so that shutdown never
// interrupts a cycle halfway.
func (s *Scheduler) snapshot() (*collector.Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.collectTimeout)
	defer cancel()

	snap, err := s.provider.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, errors.New("provider returned no snapshot")
	}
	return snap, nil
}

func (s *Scheduler) deliver(msg *sender.Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.sendTimeout)
	defer cancel()

	log := logger.WithComponent("scheduler")
	start := time.Now()

	if err := s.sender.Send(ctx, msg); err != nil {
		return &sender.DeliveryError{Sink: s.sender.Name(), Err: err}
	}

	s.mu.Lock()
	s.stats.Delivered++
	s.mu.Unlock()

	log.Info().
		Str("id", msg.ID.String()).
		Str("kind", string(msg.Kind)).
		Int("fields", len(msg.Fields)).
		Dur("duration", time.Since(start)).
		Msg("Cycle delivered")
	return nil
}
