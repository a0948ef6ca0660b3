package metrics

import (
	"errors"
	"time"

	"hostwatch/internal/collector"
	"hostwatch/internal/config"
)

// Usage is a used/total pair in decimal megabytes.
type Usage struct {
	UsedMB  uint64
	TotalMB uint64
}

// Report holds one slot per interval metric. Which slots are present is fixed
// when the Report is built by NewReport; Update only refreshes values.
type Report struct {
	ram        Optional[Usage]
	swap       Optional[Usage]
	cpu        Optional[float64]
	cpuAverage Optional[collector.LoadAverage]
	uptime     Optional[uint64]
	disk       Optional[Usage]
	sampledAt  time.Time
}

// NewReport builds a Report whose present slots match the enabled interval
// metrics, filled from snap.
func NewReport(cfg *config.Config, snap *collector.Snapshot) (Report, error) {
	sel, err := IntervalSelection(cfg)
	if err != nil {
		return Report{}, err
	}
	if snap == nil {
		return Report{}, errors.New("nil snapshot")
	}

	var r Report
	if sel.RAM {
		r.ram = Some(Usage{})
	}
	if sel.Swap {
		r.swap = Some(Usage{})
	}
	if sel.CPU {
		r.cpu = Some(0.0)
	}
	if sel.CPUAverage {
		r.cpuAverage = Some(collector.LoadAverage{})
	}
	if sel.SystemUptime {
		r.uptime = Some(uint64(0))
	}
	if sel.Disk {
		r.disk = Some(Usage{})
	}
	return r.Update(snap), nil
}

// Update returns a copy of r with every present slot refreshed from snap.
// Absent slots stay absent. snap must not be nil.
func (r Report) Update(snap *collector.Snapshot) Report {
	return Report{
		ram: r.ram.refresh(Usage{
			UsedMB:  collector.ToMB(snap.MemoryUsed),
			TotalMB: collector.ToMB(snap.MemoryTotal),
		}),
		swap: r.swap.refresh(Usage{
			UsedMB:  collector.ToMB(snap.SwapUsed),
			TotalMB: collector.ToMB(snap.SwapTotal),
		}),
		cpu:        r.cpu.refresh(snap.CPUPercent),
		cpuAverage: r.cpuAverage.refresh(snap.Load),
		uptime:     r.uptime.refresh(snap.UptimeMinutes()),
		disk: r.disk.refresh(Usage{
			UsedMB:  collector.ToMB(collector.UsedDiskBytes(snap.Disks)),
			TotalMB: collector.ToMB(collector.TotalDiskBytes(snap.Disks)),
		}),
		sampledAt: snap.Timestamp,
	}
}

// Shape reports which slots are present.
func (r Report) Shape() config.IntervalConfig {
	return config.IntervalConfig{
		RAM:          r.ram.Present(),
		CPU:          r.cpu.Present(),
		CPUAverage:   r.cpuAverage.Present(),
		SystemUptime: r.uptime.Present(),
		Disk:         r.disk.Present(),
		Swap:         r.swap.Present(),
	}
}

// Empty reports whether no slot is present.
func (r Report) Empty() bool {
	return r.Shape() == config.IntervalConfig{}
}

// RAM returns used and total memory.
func (r Report) RAM() (Usage, bool) { return r.ram.Get() }

// Swap returns used and total swap.
func (r Report) Swap() (Usage, bool) { return r.swap.Get() }

// CPU returns the CPU usage percentage.
func (r Report) CPU() (float64, bool) { return r.cpu.Get() }

// CPUAverage returns the 1, 5 and 15 minute load averages.
func (r Report) CPUAverage() (collector.LoadAverage, bool) { return r.cpuAverage.Get() }

// UptimeMinutes returns the system uptime in whole minutes.
func (r Report) UptimeMinutes() (uint64, bool) { return r.uptime.Get() }

// Disk returns used and total disk space summed over all disks.
func (r Report) Disk() (Usage, bool) { return r.disk.Get() }

// SampledAt returns the timestamp of the snapshot the values came from.
func (r Report) SampledAt() time.Time { return r.sampledAt }
