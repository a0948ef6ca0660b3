package metrics

import (
	"hostwatch/internal/collector"
	"hostwatch/internal/config"
)

// Evaluator compares snapshots against the warn limits.
type Evaluator struct {
	limits config.WarnConfig
}

// NewEvaluator builds an Evaluator from a warn mode configuration.
func NewEvaluator(cfg *config.Config) (*Evaluator, error) {
	limits, err := WarnSelection(cfg)
	if err != nil {
		return nil, err
	}
	return &Evaluator{limits: limits}, nil
}

// Limits returns the configured limits.
func (e *Evaluator) Limits() config.WarnConfig {
	return e.limits
}

// Evaluate returns one Alert per monitored metric whose usage is strictly
// above its limit, ordered RAM, CPU, Disk, Swap. The result is computed from
// snap alone; nothing carries over between calls.
func (e *Evaluator) Evaluate(snap *collector.Snapshot) []Alert {
	var alerts []Alert
	check := func(kind AlertKind, limit int, used, total float64, totalMB uint64) {
		if limit <= 0 {
			return
		}
		pct, ok := usedPercent(used, total)
		if ok && pct > float64(limit) {
			alerts = append(alerts, Alert{Kind: kind, Percent: pct, TotalMB: totalMB})
		}
	}

	check(HighRAM, e.limits.RAM, float64(snap.MemoryUsed), float64(snap.MemoryTotal), collector.ToMB(snap.MemoryTotal))
	check(HighCPU, e.limits.CPU, snap.CPUPercent, 100, 0)

	diskUsed, diskTotal := collector.UsedDiskBytes(snap.Disks), collector.TotalDiskBytes(snap.Disks)
	check(HighDisk, e.limits.Disk, float64(diskUsed), float64(diskTotal), collector.ToMB(diskTotal))

	check(HighSwap, e.limits.Swap, float64(snap.SwapUsed), float64(snap.SwapTotal), collector.ToMB(snap.SwapTotal))
	return alerts
}

// usedPercent returns used as a percentage of total. A zero total yields no
// percentage.
func usedPercent(used, total float64) (float64, bool) {
	if total <= 0 {
		return 0, false
	}
	return used * 100 / total, true
}
