package collector

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

var pseudoFS = []string{
	"sysfs", "proc", "devtmpfs", "devpts", "tmpfs", "securityfs",
	"cgroup", "cgroup2", "pstore", "debugfs", "hugetlbfs", "mqueue",
	"fusectl", "configfs", "autofs", "binfmt_misc", "fuse.gvfsd-fuse",
	"overlay", "squashfs",
	"cdfs", "udf", // CD-ROM / DVD
}

// readDisks records capacity for every real mounted filesystem. Partitions
// that cannot be queried are skipped.
func readDisks(ctx context.Context, snap *Snapshot) error {
	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	disks := make([]DiskUsage, 0, len(partitions))

	for _, p := range partitions {
		if isPseudoFS(p.Fstype) || seen[p.Mountpoint] {
			continue
		}
		seen[p.Mountpoint] = true

		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			continue
		}

		disks = append(disks, DiskUsage{
			Mountpoint: p.Mountpoint,
			FSType:     p.Fstype,
			Total:      usage.Total,
			Available:  usage.Free,
		})
	}

	snap.Disks = disks
	return nil
}

func isPseudoFS(fstype string) bool {
	fsLower := strings.ToLower(fstype)
	for _, pfs := range pseudoFS {
		if fsLower == pfs {
			return true
		}
	}
	return false
}
