package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hostwatch/internal/logger"
)

func mapLookup(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestFromEnv_IntervalMode(t *testing.T) {
	cfg, err := FromEnv(mapLookup(map[string]string{
		"HOSTWATCH_MODE":          "interval",
		"HOSTWATCH_INTERVAL":      "30",
		"HOSTWATCH_RAM":           "true",
		"HOSTWATCH_CPU_AVERAGE":   "1",
		"HOSTWATCH_SYSTEM_UPTIME": "TRUE",
		"HOSTWATCH_DISK":          "false",
	}))
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}

	if cfg.Mode != ModeInterval {
		t.Errorf("expected interval mode, got %q", cfg.Mode)
	}
	if cfg.Interval != 30*time.Second {
		t.Errorf("expected 30s, got %v", cfg.Interval)
	}
	want := IntervalConfig{RAM: true, CPUAverage: true, SystemUptime: true}
	if cfg.Metrics != want {
		t.Errorf("expected metrics %+v, got %+v", want, cfg.Metrics)
	}
}

func TestFromEnv_WarnMode(t *testing.T) {
	cfg, err := FromEnv(mapLookup(map[string]string{
		"HOSTWATCH_MODE":       "WARN",
		"HOSTWATCH_RAM_LIMIT":  "40",
		"HOSTWATCH_CPU_LIMIT":  "45",
		"HOSTWATCH_DISK_LIMIT": "50",
		"HOSTWATCH_SWAP_LIMIT": "0",
	}))
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}

	if cfg.Mode != ModeWarn {
		t.Errorf("expected warn mode, got %q", cfg.Mode)
	}
	want := WarnConfig{RAM: 40, CPU: 45, Disk: 50}
	if cfg.Limits != want {
		t.Errorf("expected limits %+v, got %+v", want, cfg.Limits)
	}
	if cfg.Interval != 60*time.Second {
		t.Errorf("expected default interval, got %v", cfg.Interval)
	}
}

func TestFromEnv_InvalidValueNamesVariable(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"HOSTWATCH_INTERVAL", "soon"},
		{"HOSTWATCH_RAM", "yes please"},
		{"HOSTWATCH_RAM_LIMIT", "forty"},
		{"HOSTWATCH_DELIVERY_BACKOFF", "2 seconds"},
	}

	for _, tt := range tests {
		_, err := FromEnv(mapLookup(map[string]string{
			"HOSTWATCH_MODE": "interval",
			tt.key:           tt.value,
		}))
		if err == nil {
			t.Errorf("%s=%q: expected error", tt.key, tt.value)
			continue
		}
		if !strings.Contains(err.Error(), tt.key) {
			t.Errorf("error should name %s: %v", tt.key, err)
		}
	}
}

func TestFromEnv_ZeroIntervalRejected(t *testing.T) {
	for _, v := range []string{"0", "-5"} {
		_, err := FromEnv(mapLookup(map[string]string{
			"HOSTWATCH_MODE":     "interval",
			"HOSTWATCH_INTERVAL": v,
		}))
		if !errors.Is(err, ErrInvalidInterval) {
			t.Errorf("HOSTWATCH_INTERVAL=%s: expected ErrInvalidInterval, got %v", v, err)
		}
	}
}

func TestFromEnv_IntervalOverflowRejected(t *testing.T) {
	_, err := FromEnv(mapLookup(map[string]string{
		"HOSTWATCH_MODE":     "interval",
		"HOSTWATCH_INTERVAL": "9223372037",
	}))
	if err == nil || !strings.Contains(err.Error(), "HOSTWATCH_INTERVAL") {
		t.Errorf("expected an error naming HOSTWATCH_INTERVAL, got %v", err)
	}

	cfg, err := FromEnv(mapLookup(map[string]string{
		"HOSTWATCH_MODE":     "interval",
		"HOSTWATCH_INTERVAL": "9223372036",
	}))
	if err != nil {
		t.Fatalf("largest representable interval rejected: %v", err)
	}
	if cfg.Interval != 9223372036*time.Second {
		t.Errorf("interval = %v", cfg.Interval)
	}
}

func TestFromEnv_ServiceSettings(t *testing.T) {
	cfg, err := FromEnv(mapLookup(map[string]string{
		"HOSTWATCH_MODE":                 "warn",
		"HOSTWATCH_SERVICE_NAME":         "hostwatch-edge",
		"HOSTWATCH_SERVICE_STOP_TIMEOUT": "45s",
	}))
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.Service.Name != "hostwatch-edge" || cfg.Service.StopTimeout != 45*time.Second {
		t.Errorf("unexpected service settings %+v", cfg.Service)
	}

	_, err = FromEnv(mapLookup(map[string]string{
		"HOSTWATCH_MODE":                 "warn",
		"HOSTWATCH_SERVICE_STOP_TIMEOUT": "0s",
	}))
	if err == nil {
		t.Error("expected error for a zero stop timeout")
	}
}

func TestFromEnv_MissingMode(t *testing.T) {
	_, err := FromEnv(mapLookup(nil))
	if !errors.Is(err, ErrInvalidMode) {
		t.Errorf("expected ErrInvalidMode, got %v", err)
	}
}

func TestFromEnv_LimitOutOfRange(t *testing.T) {
	_, err := FromEnv(mapLookup(map[string]string{
		"HOSTWATCH_MODE":      "warn",
		"HOSTWATCH_CPU_LIMIT": "120",
	}))
	if !errors.Is(err, ErrLimitOutOfRange) {
		t.Errorf("expected ErrLimitOutOfRange, got %v", err)
	}
}

func TestFromEnv_SinkSettings(t *testing.T) {
	cfg, err := FromEnv(mapLookup(map[string]string{
		"HOSTWATCH_MODE":             "interval",
		"HOSTWATCH_SINK":             "Kafka",
		"HOSTWATCH_KAFKA_BROKERS":    "k1:9092, k2:9092,,",
		"HOSTWATCH_KAFKA_TOPIC":      "metrics",
		"HOSTWATCH_KAFKA_TIMEOUT":    "3s",
		"HOSTWATCH_SOCKS_HOST":       "proxy",
		"HOSTWATCH_SOCKS_PORT":       "1080",
		"HOSTWATCH_DELIVERY_RETRIES": "3",
		"HOSTWATCH_DISCORD_API_URL":  "http://localhost:8080/",
	}))
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}

	if cfg.SinkType != SinkKafka {
		t.Errorf("expected kafka sink, got %q", cfg.SinkType)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "k1:9092" || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("unexpected brokers: %v", cfg.Kafka.Brokers)
	}
	if cfg.Kafka.Timeout != 3*time.Second {
		t.Errorf("expected 3s timeout, got %v", cfg.Kafka.Timeout)
	}
	if cfg.SOCKSProxy.Host != "proxy" || cfg.SOCKSProxy.Port != 1080 {
		t.Errorf("unexpected proxy: %+v", cfg.SOCKSProxy)
	}
	if cfg.Delivery.Retries != 3 {
		t.Errorf("expected 3 retries, got %d", cfg.Delivery.Retries)
	}
	if cfg.Discord.APIURL != "http://localhost:8080" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.Discord.APIURL)
	}
}

func TestFromEnv_BlankValuesUseDefaults(t *testing.T) {
	cfg, err := FromEnv(mapLookup(map[string]string{
		"HOSTWATCH_MODE":     "interval",
		"HOSTWATCH_INTERVAL": "  ",
		"HOSTWATCH_FILE_DIR": "",
	}))
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.Interval != 60*time.Second {
		t.Errorf("expected default interval, got %v", cfg.Interval)
	}
	if cfg.File.Directory != DefaultConfig().File.Directory {
		t.Errorf("expected default directory, got %q", cfg.File.Directory)
	}
}

func TestLoggingFromEnv(t *testing.T) {
	lc, err := LoggingFromEnv(mapLookup(map[string]string{
		"HOSTWATCH_LOG_LEVEL":       "debug",
		"HOSTWATCH_LOG_FORMAT":      "FIXED",
		"HOSTWATCH_LOG_MAX_BACKUPS": "2",
		"HOSTWATCH_LOG_CONSOLE":     "false",
	}))
	if err != nil {
		t.Fatalf("LoggingFromEnv failed: %v", err)
	}

	if lc.Level != "debug" || lc.Format != logger.FormatFixed || lc.MaxBackups != 2 || lc.Console {
		t.Errorf("unexpected logging config: %+v", lc)
	}
	if lc.FilePath != logger.DefaultConfig().FilePath {
		t.Errorf("expected default file path, got %q", lc.FilePath)
	}
}

func TestLoggingFromEnv_InvalidFormat(t *testing.T) {
	_, err := LoggingFromEnv(mapLookup(map[string]string{"HOSTWATCH_LOG_FORMAT": "xml"}))
	if err == nil || !strings.Contains(err.Error(), "HOSTWATCH_LOG_FORMAT") {
		t.Errorf("expected LOG_FORMAT error, got %v", err)
	}
}

func TestLoadLogging_ReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "HOSTWATCH_LOG_LEVEL=warn\nHOSTWATCH_LOG_FILE=/tmp/hw.log\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	lc, err := LoadLogging(path)
	if err != nil {
		t.Fatalf("LoadLogging failed: %v", err)
	}
	if lc.Level != "warn" || lc.FilePath != "/tmp/hw.log" {
		t.Errorf("unexpected logging config: %+v", lc)
	}
}

func TestLoad_MissingEnvFileIsNotAnError(t *testing.T) {
	t.Setenv("HOSTWATCH_MODE", "interval")

	cfg, lc, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Mode != ModeInterval || lc == nil {
		t.Errorf("unexpected result: %+v %+v", cfg, lc)
	}
}

func TestLoad_EnvFileDoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "HOSTWATCH_MODE=warn\nHOSTWATCH_RAM_LIMIT=80\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HOSTWATCH_MODE", "interval")
	t.Setenv("HOSTWATCH_RAM_LIMIT", "")

	cfg, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Mode != ModeInterval {
		t.Errorf("environment should win over env file, got %q", cfg.Mode)
	}
}
