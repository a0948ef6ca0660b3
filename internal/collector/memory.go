package collector

import (
	"context"

	"github.com/shirou/gopsutil/v3/mem"
)

func readMemory(ctx context.Context, snap *Snapshot) error {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return err
	}
	snap.MemoryTotal = vm.Total
	snap.MemoryUsed = vm.Used
	return nil
}

func readSwap(ctx context.Context, snap *Snapshot) error {
	swap, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		// Swap may not be available on all systems, continue with zero values
		snap.SwapTotal, snap.SwapUsed = 0, 0
		return nil
	}
	snap.SwapTotal = swap.Total
	snap.SwapUsed = swap.Used
	return nil
}
