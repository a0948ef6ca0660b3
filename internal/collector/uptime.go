package collector

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/host"
)

func readUptime(ctx context.Context, snap *Snapshot) error {
	secs, err := host.UptimeWithContext(ctx)
	if err != nil {
		return err
	}
	snap.Uptime = time.Duration(secs) * time.Second
	return nil
}
