package sender

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"hostwatch/internal/metrics"
)

// Kind tells which mode produced a message.
type Kind string

const (
	KindInterval Kind = "interval"
	KindWarn     Kind = "warn"
)

const (
	IntervalTitle = "Server Interval Metrics"
	WarnTitle     = "Server Warn Metrics"
)

var (
	IntervalColor = rgb(0, 190, 219)
	WarnColor     = rgb(197, 0, 0)
)

func rgb(r, g, b int) int {
	return r<<16 | g<<8 | b
}

// Field is one labelled line of a message.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Message is the sink-neutral form of one cycle's output.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Color     int       `json:"color"`
	Hostname  string    `json:"hostname"`
	Timestamp time.Time `json:"timestamp"`
	Fields    []Field   `json:"fields"`
}

// Text renders the fields as newline-joined "Name: Value" lines.
func (m *Message) Text() string {
	lines := make([]string, 0, len(m.Fields))
	for _, f := range m.Fields {
		lines = append(lines, f.Name+": "+f.Value)
	}
	return strings.Join(lines, "\n")
}

func newMessage(kind Kind, hostname string, at time.Time) *Message {
	m := &Message{
		ID:        uuid.New(),
		Kind:      kind,
		Hostname:  hostname,
		Timestamp: at,
		Fields:    []Field{},
	}
	switch kind {
	case KindInterval:
		m.Title, m.Color = IntervalTitle, IntervalColor
	case KindWarn:
		m.Title, m.Color = WarnTitle, WarnColor
	}
	return m
}

func (m *Message) add(name, format string, args ...interface{}) {
	m.Fields = append(m.Fields, Field{Name: name, Value: fmt.Sprintf(format, args...)})
}

// FormatReport builds an interval message with one field per present slot,
// in the order RAM, swap, CPU, load average, uptime, disk.
func FormatReport(r metrics.Report, hostname string) *Message {
	m := newMessage(KindInterval, hostname, r.SampledAt())

	if ram, ok := r.RAM(); ok {
		m.add("Used RAM", "%d MB out of %d MB", ram.UsedMB, ram.TotalMB)
	}
	if swap, ok := r.Swap(); ok {
		m.add("Used Swap", "%d MB out of %d MB", swap.UsedMB, swap.TotalMB)
	}
	if cpu, ok := r.CPU(); ok {
		m.add("Used CPU", "%.2f%%", cpu)
	}
	if avg, ok := r.CPUAverage(); ok {
		m.add("CPU Average", "1 minute - %.2f, 5 minutes - %.2f, 15 minutes - %.2f", avg.Load1, avg.Load5, avg.Load15)
	}
	if up, ok := r.UptimeMinutes(); ok {
		m.add("System Uptime", "%d minutes", up)
	}
	if disk, ok := r.Disk(); ok {
		m.add("Used Disk Space", "%d MB out of %d MB", disk.UsedMB, disk.TotalMB)
	}
	return m
}

// FormatAlerts builds a warn message with one field per alert, in batch order.
func FormatAlerts(alerts []metrics.Alert, hostname string, at time.Time) *Message {
	m := newMessage(KindWarn, hostname, at)

	for _, a := range alerts {
		switch a.Kind {
		case metrics.HighRAM:
			m.add("High RAM Usage", "%.2f%% out of %d MB", a.Percent, a.TotalMB)
		case metrics.HighCPU:
			m.add("High CPU Usage", "%.2f%%", a.Percent)
		case metrics.HighDisk:
			m.add("High Disk Usage", "%.2f%% out of %d MB", a.Percent, a.TotalMB)
		case metrics.HighSwap:
			m.add("High Swap Usage", "%.2f%% out of %d MB", a.Percent, a.TotalMB)
		default:
			m.add(a.Kind.String(), "%.2f%%", a.Percent)
		}
	}
	return m
}
