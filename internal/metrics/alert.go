package metrics

import "fmt"

// AlertKind identifies the metric that breached its limit.
type AlertKind int

const (
	HighRAM AlertKind = iota + 1
	HighCPU
	HighDisk
	HighSwap
)

func (k AlertKind) String() string {
	switch k {
	case HighRAM:
		return "HighRAM"
	case HighCPU:
		return "HighCPU"
	case HighDisk:
		return "HighDisk"
	case HighSwap:
		return "HighSwap"
	default:
		return fmt.Sprintf("AlertKind(%d)", int(k))
	}
}

// Alert is one metric's limit breach in one cycle. TotalMB carries the
// capacity for RAM, disk and swap alerts and is zero for CPU.
type Alert struct {
	Kind    AlertKind
	Percent float64
	TotalMB uint64
}

func (a Alert) String() string {
	return fmt.Sprintf("%s(%.2f)", a.Kind, a.Percent)
}
