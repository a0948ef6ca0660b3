package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// FixedFormatWriter converts zerolog JSON lines into fixed-width columns:
//
//	2026-10-18 12:00:00.000 [INF] [scheduler   ] Cycle delivered mode=warn alerts=1
type FixedFormatWriter struct {
	w io.Writer
}

// NewFixedFormatWriter creates a new FixedFormatWriter that wraps the given writer.
func NewFixedFormatWriter(w io.Writer) *FixedFormatWriter {
	return &FixedFormatWriter{w: w}
}

const (
	componentWidth = 12
	timestampWidth = len("2006-01-02 15:04:05.000")
)

var levelAbbrev = map[string]string{
	"trace": "TRC",
	"debug": "DBG",
	"info":  "INF",
	"warn":  "WRN",
	"error": "ERR",
	"fatal": "FTL",
	"panic": "PNC",
}

func (f *FixedFormatWriter) Write(p []byte) (int, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(p, &fields); err != nil {
		return f.w.Write(p)
	}

	ts := formatTimestamp(popString(fields, zerolog.TimestampFieldName))
	lvl, ok := levelAbbrev[popString(fields, zerolog.LevelFieldName)]
	if !ok {
		lvl = "???"
	}
	comp := popString(fields, "component")
	if len(comp) > componentWidth {
		comp = comp[:componentWidth]
	}
	msg := popString(fields, zerolog.MessageFieldName)
	delete(fields, zerolog.CallerFieldName)

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] [%-*s] %s", ts, lvl, componentWidth, comp, msg)
	if extra := formatExtra(fields); extra != "" {
		b.WriteByte(' ')
		b.WriteString(extra)
	}
	b.WriteByte('\n')

	_, err := io.WriteString(f.w, b.String())
	// zerolog expects the length of what it handed us
	return len(p), err
}

func popString(fields map[string]interface{}, key string) string {
	v, ok := fields[key]
	if !ok {
		return ""
	}
	delete(fields, key)
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// formatTimestamp turns an RFC3339 timestamp into "2006-01-02 15:04:05.000".
func formatTimestamp(ts string) string {
	if len(ts) < len("2006-01-02T15:04:05") {
		return strings.Repeat(" ", timestampWidth)
	}

	result := strings.Replace(ts, "T", " ", 1)
	if idx := strings.IndexAny(result[11:], "Z+-"); idx >= 0 {
		result = result[:11+idx]
	}

	if dot := strings.LastIndex(result, "."); dot == -1 {
		result += ".000"
	} else if frac := len(result) - dot - 1; frac > 3 {
		result = result[:dot+4]
	} else {
		result += strings.Repeat("0", 3-frac)
	}

	if len(result) > timestampWidth {
		return result[:timestampWidth]
	}
	return result + strings.Repeat(" ", timestampWidth-len(result))
}

// formatExtra renders the remaining fields as sorted key=value pairs.
func formatExtra(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		s := fmt.Sprintf("%v", fields[k])
		if strings.ContainsAny(s, " \t\n\"") {
			s = fmt.Sprintf("%q", s)
		}
		parts = append(parts, k+"="+s)
	}
	return strings.Join(parts, " ")
}
