package collector

import "time"

// Snapshot is a single read of the host's resource counters. Byte counts are
// raw; conversion to megabytes happens at presentation time.
type Snapshot struct {
	Timestamp   time.Time     `json:"timestamp"`
	MemoryTotal uint64        `json:"memory_total_bytes"`
	MemoryUsed  uint64        `json:"memory_used_bytes"`
	SwapTotal   uint64        `json:"swap_total_bytes"`
	SwapUsed    uint64        `json:"swap_used_bytes"`
	Disks       []DiskUsage   `json:"disks"`
	CPUPercent  float64       `json:"cpu_percent"`
	Load        LoadAverage   `json:"load"`
	Uptime      time.Duration `json:"uptime"`
}

// DiskUsage holds capacity figures for one mounted disk.
type DiskUsage struct {
	Mountpoint string `json:"mountpoint"`
	FSType     string `json:"fs_type"`
	Total      uint64 `json:"total_bytes"`
	Available  uint64 `json:"available_bytes"`
}

// LoadAverage holds the kernel's 1, 5 and 15 minute load averages.
type LoadAverage struct {
	Load1  float64 `json:"load1"`
	Load5  float64 `json:"load5"`
	Load15 float64 `json:"load15"`
}

// BytesPerMB is the decimal megabyte used in every report.
const BytesPerMB = 1000 * 1000

// ToMB converts bytes to whole decimal megabytes, truncating.
func ToMB(bytes uint64) uint64 {
	return bytes / BytesPerMB
}

// UsedDiskBytes sums total minus available over all disks. A disk reporting
// more available than total space contributes zero.
func UsedDiskBytes(disks []DiskUsage) uint64 {
	var used uint64
	for _, d := range disks {
		if d.Total > d.Available {
			used += d.Total - d.Available
		}
	}
	return used
}

// TotalDiskBytes sums the capacity of all disks.
func TotalDiskBytes(disks []DiskUsage) uint64 {
	var total uint64
	for _, d := range disks {
		total += d.Total
	}
	return total
}

// UptimeMinutes returns the snapshot's uptime in whole minutes.
func (s *Snapshot) UptimeMinutes() uint64 {
	if s.Uptime <= 0 {
		return 0
	}
	return uint64(s.Uptime / time.Minute)
}
