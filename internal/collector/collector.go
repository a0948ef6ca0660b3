// Package collector reads point-in-time resource counters from the local host.
package collector

import (
	"context"
	"fmt"
	"time"
)

// Provider produces a fresh Snapshot on every Refresh call. Refresh is
// synchronous; callers own the returned Snapshot.
type Provider interface {
	Refresh(ctx context.Context) (*Snapshot, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context) (*Snapshot, error)

// Refresh calls f(ctx).
func (f ProviderFunc) Refresh(ctx context.Context) (*Snapshot, error) {
	return f(ctx)
}

// reader fills part of a Snapshot.
type reader struct {
	name string
	read func(ctx context.Context, snap *Snapshot) error
}

// SystemProvider reads counters from the operating system via gopsutil.
type SystemProvider struct {
	cpuWindow time.Duration
	readers   []reader
	now       func() time.Time
}

// NewSystemProvider creates a provider that samples CPU usage over cpuWindow.
// A non-positive window falls back to 200ms.
func NewSystemProvider(cpuWindow time.Duration) *SystemProvider {
	if cpuWindow <= 0 {
		cpuWindow = 200 * time.Millisecond
	}
	p := &SystemProvider{
		cpuWindow: cpuWindow,
		now:       time.Now,
	}
	p.readers = []reader{
		{name: "memory", read: readMemory},
		{name: "swap", read: readSwap},
		{name: "cpu", read: p.readCPU},
		{name: "load", read: readLoad},
		{name: "uptime", read: readUptime},
		{name: "disk", read: readDisks},
	}
	return p
}

// Refresh takes one consistent read of every counter. The first failing
// reader aborts the snapshot.
func (p *SystemProvider) Refresh(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{Timestamp: p.now()}
	for _, r := range p.readers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.read(ctx, snap); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", r.name, err)
		}
	}
	return snap, nil
}
