// Package metrics turns host snapshots into interval reports and warn alerts.
package metrics

import (
	"errors"
	"fmt"

	"hostwatch/internal/config"
)

// ErrModeMismatch is returned when a selection is requested for a mode the
// configuration does not run in. It indicates a caller bug.
var ErrModeMismatch = errors.New("mode mismatch")

// ErrLimitOutOfRange is returned for a warn limit outside 0..100.
var ErrLimitOutOfRange = config.ErrLimitOutOfRange

// IntervalSelection returns the metrics enabled for interval mode.
func IntervalSelection(cfg *config.Config) (config.IntervalConfig, error) {
	if cfg == nil || cfg.Mode != config.ModeInterval {
		return config.IntervalConfig{}, fmt.Errorf("%w: interval selection requires mode %q, got %q",
			ErrModeMismatch, config.ModeInterval, modeOf(cfg))
	}
	return cfg.Metrics, nil
}

// WarnSelection returns the limits monitored in warn mode. A zero limit
// disables its metric.
func WarnSelection(cfg *config.Config) (config.WarnConfig, error) {
	if cfg == nil || cfg.Mode != config.ModeWarn {
		return config.WarnConfig{}, fmt.Errorf("%w: warn selection requires mode %q, got %q",
			ErrModeMismatch, config.ModeWarn, modeOf(cfg))
	}

	l := cfg.Limits
	for _, c := range []struct {
		name  string
		limit int
	}{{"RAM", l.RAM}, {"CPU", l.CPU}, {"disk", l.Disk}, {"swap", l.Swap}} {
		if c.limit < 0 || c.limit > config.MaxLimit {
			return config.WarnConfig{}, fmt.Errorf("%s limit %d: %w", c.name, c.limit, ErrLimitOutOfRange)
		}
	}
	return l, nil
}

func modeOf(cfg *config.Config) config.Mode {
	if cfg == nil {
		return ""
	}
	return cfg.Mode
}
