package collector

import (
	"context"
	"errors"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
)

// readCPU measures overall CPU usage, blocking for the sampling window.
func (p *SystemProvider) readCPU(ctx context.Context, snap *Snapshot) error {
	percentages, err := cpu.PercentWithContext(ctx, p.cpuWindow, false)
	if err != nil {
		return err
	}
	if len(percentages) == 0 {
		return errors.New("no cpu usage reported")
	}
	snap.CPUPercent = percentages[0]
	return nil
}

func readLoad(ctx context.Context, snap *Snapshot) error {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return err
	}
	snap.Load = LoadAverage{
		Load1:  avg.Load1,
		Load5:  avg.Load5,
		Load15: avg.Load15,
	}
	return nil
}
