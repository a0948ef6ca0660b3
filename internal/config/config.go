// Package config provides configuration management for hostwatch.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Mode selects how the agent reports.
type Mode string

const (
	// ModeInterval reports every enabled metric on every cycle.
	ModeInterval Mode = "interval"
	// ModeWarn reports only metrics whose usage exceeds a configured limit.
	ModeWarn Mode = "warn"
)

// Sink types.
const (
	SinkDiscord = "discord"
	SinkFile    = "file"
	SinkKafka   = "kafka"
	SinkRedis   = "redis"
)

// MaxLimit is the largest accepted warn limit, in percent.
const MaxLimit = 100

// Config is the root configuration structure. It is loaded once at startup
// and never mutated afterwards.
type Config struct {
	Mode       Mode
	Interval   time.Duration
	Metrics    IntervalConfig // meaningful in ModeInterval
	Limits     WarnConfig     // meaningful in ModeWarn
	SinkType   string
	Hostname   string
	Discord    DiscordConfig
	File       FileConfig
	Kafka      KafkaConfig
	Redis      RedisConfig
	SOCKSProxy SOCKSConfig
	Delivery   DeliveryConfig
	Sampling   SamplingConfig
	Service    ServiceConfig
}

// IntervalConfig holds one flag per metric reported in interval mode.
type IntervalConfig struct {
	RAM          bool
	CPU          bool
	CPUAverage   bool
	SystemUptime bool
	Disk         bool
	Swap         bool
}

// WarnConfig holds percentage limits for warn mode. Zero disables a metric.
type WarnConfig struct {
	RAM  int
	CPU  int
	Disk int
	Swap int
}

// DiscordConfig contains Discord bot credentials.
type DiscordConfig struct {
	Token     string
	ChannelID string
	APIURL    string
}

// FileConfig contains settings for the file sink.
type FileConfig struct {
	Directory string
	BaseName  string
	Console   bool
}

// KafkaConfig contains Kafka connection settings.
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	Compression   string
	RequiredAcks  int
	Timeout       time.Duration
	EnableTLS     bool
	TLSCertFile   string
	TLSKeyFile    string
	TLSCAFile     string
	SASLMechanism string // empty disables SASL
	SASLUser      string
	SASLPassword  string
}

// RedisConfig contains Redis stream sink settings.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Stream   string
	MaxLen   int64
}

// SOCKSConfig contains SOCKS5 proxy settings for the network sinks.
type SOCKSConfig struct {
	Host string
	Port int
}

// DeliveryConfig controls how often a failed delivery is retried before the
// agent gives up. Zero retries keeps the fail-on-first-error behaviour.
type DeliveryConfig struct {
	Retries int
	Backoff time.Duration
}

// SamplingConfig controls snapshot collection.
type SamplingConfig struct {
	CPUWindow           time.Duration
	SkipFailedSnapshots bool
}

// ServiceConfig controls how the agent runs under a service manager.
type ServiceConfig struct {
	Name        string        // Windows service and event source name
	StopTimeout time.Duration // grace period for the loop after a stop request
}

// Configuration errors.
var (
	ErrInvalidMode     = errors.New("invalid mode")
	ErrInvalidInterval = errors.New("interval must be a positive number of seconds")
	ErrLimitOutOfRange = errors.New("limit must be between 0 and 100")
	ErrInvalidSink     = errors.New("invalid sink")
)

// DefaultConfig returns a configuration with sensible defaults. Mode has no
// default and must be set explicitly.
func DefaultConfig() *Config {
	return &Config{
		Interval: 60 * time.Second,
		SinkType: SinkFile,
		Discord: DiscordConfig{
			APIURL: "https://discord.com/api/v10",
		},
		File: FileConfig{
			Directory: "log/hostwatch/metrics",
			BaseName:  "log",
		},
		Kafka: KafkaConfig{
			Brokers:      []string{"localhost:9092"},
			Topic:        "host-metrics",
			Compression:  "snappy",
			RequiredAcks: 1,
			Timeout:      10 * time.Second,
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
			Stream:  "hostwatch:reports",
			MaxLen:  10000,
		},
		Delivery: DeliveryConfig{
			Backoff: 2 * time.Second,
		},
		Sampling: SamplingConfig{
			CPUWindow: 200 * time.Millisecond,
		},
		Service: ServiceConfig{
			Name:        "hostwatch",
			StopTimeout: 30 * time.Second,
		},
	}
}

// Validate checks the configuration for values the agent cannot run with.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeInterval:
	case ModeWarn:
		limits := map[string]int{"RAM": c.Limits.RAM, "CPU": c.Limits.CPU, "disk": c.Limits.Disk, "swap": c.Limits.Swap}
		for _, name := range []string{"RAM", "CPU", "disk", "swap"} {
			if v := limits[name]; v < 0 || v > MaxLimit {
				return fmt.Errorf("%s limit %d: %w", name, v, ErrLimitOutOfRange)
			}
		}
	default:
		return fmt.Errorf("%w %q (supported: interval, warn)", ErrInvalidMode, c.Mode)
	}

	if c.Interval < time.Second || c.Interval%time.Second != 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidInterval, c.Interval)
	}

	switch c.SinkType {
	case SinkDiscord:
		if c.Discord.Token == "" || c.Discord.ChannelID == "" {
			return fmt.Errorf("%w: discord sink requires a token and a channel id", ErrInvalidSink)
		}
	case SinkFile:
		if c.File.Directory == "" || c.File.BaseName == "" {
			return fmt.Errorf("%w: file sink requires a directory and a base name", ErrInvalidSink)
		}
		if strings.ContainsAny(c.File.BaseName, `/\`) {
			return fmt.Errorf("%w: file base name %q must not contain path separators", ErrInvalidSink, c.File.BaseName)
		}
	case SinkKafka:
		if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
			return fmt.Errorf("%w: kafka sink requires brokers and a topic", ErrInvalidSink)
		}
	case SinkRedis:
		if c.Redis.Address == "" || c.Redis.Stream == "" {
			return fmt.Errorf("%w: redis sink requires an address and a stream", ErrInvalidSink)
		}
	default:
		return fmt.Errorf("%w %q (supported: discord, file, kafka, redis)", ErrInvalidSink, c.SinkType)
	}

	if c.Service.Name == "" {
		return errors.New("service name must not be empty")
	}
	if c.Service.StopTimeout <= 0 {
		return fmt.Errorf("service stop timeout must be positive, got %v", c.Service.StopTimeout)
	}

	if c.Delivery.Retries < 0 {
		return fmt.Errorf("delivery retries must not be negative, got %d", c.Delivery.Retries)
	}
	return nil
}

// GetHostname returns the configured hostname or the system hostname.
func GetHostname(cfg *Config) string {
	if cfg.Hostname != "" {
		return cfg.Hostname
	}
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}
