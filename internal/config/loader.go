package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"hostwatch/internal/logger"
)

// EnvPrefix prefixes every environment variable read by the agent.
const EnvPrefix = "HOSTWATCH_"

// LookupFunc resolves an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads the optional .env file at envFile into the process environment
// (existing variables win) and builds the agent and logging configuration
// from the environment. A missing env file is not an error.
func Load(envFile string) (*Config, *logger.Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	cfg, err := FromEnv(os.LookupEnv)
	if err != nil {
		return nil, nil, err
	}

	lc, err := LoggingFromEnv(os.LookupEnv)
	if err != nil {
		return nil, nil, err
	}

	return cfg, lc, nil
}

// FromEnv builds and validates a Config from the given lookup.
func FromEnv(lookup LookupFunc) (*Config, error) {
	p := envParser{lookup: lookup}
	cfg := DefaultConfig()

	cfg.Mode = Mode(strings.ToLower(p.str("MODE", "")))

	cfg.Interval = p.seconds("INTERVAL", cfg.Interval)

	cfg.Metrics = IntervalConfig{
		RAM:          p.boolean("RAM", false),
		CPU:          p.boolean("CPU", false),
		CPUAverage:   p.boolean("CPU_AVERAGE", false),
		SystemUptime: p.boolean("SYSTEM_UPTIME", false),
		Disk:         p.boolean("DISK", false),
		Swap:         p.boolean("SWAP", false),
	}

	cfg.Limits = WarnConfig{
		RAM:  p.integer("RAM_LIMIT", 0),
		CPU:  p.integer("CPU_LIMIT", 0),
		Disk: p.integer("DISK_LIMIT", 0),
		Swap: p.integer("SWAP_LIMIT", 0),
	}

	cfg.SinkType = strings.ToLower(p.str("SINK", cfg.SinkType))
	cfg.Hostname = p.str("HOSTNAME", "")

	cfg.Discord.Token = p.str("DISCORD_TOKEN", "")
	cfg.Discord.ChannelID = p.str("DISCORD_CHANNEL", "")
	cfg.Discord.APIURL = strings.TrimRight(p.str("DISCORD_API_URL", cfg.Discord.APIURL), "/")

	cfg.File.Directory = p.str("FILE_DIR", cfg.File.Directory)
	cfg.File.BaseName = p.str("FILE_BASENAME", cfg.File.BaseName)
	cfg.File.Console = p.boolean("FILE_CONSOLE", cfg.File.Console)

	cfg.Kafka.Brokers = p.list("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.Topic = p.str("KAFKA_TOPIC", cfg.Kafka.Topic)
	cfg.Kafka.Compression = p.str("KAFKA_COMPRESSION", cfg.Kafka.Compression)
	cfg.Kafka.RequiredAcks = p.integer("KAFKA_REQUIRED_ACKS", cfg.Kafka.RequiredAcks)
	cfg.Kafka.Timeout = p.duration("KAFKA_TIMEOUT", cfg.Kafka.Timeout)
	cfg.Kafka.EnableTLS = p.boolean("KAFKA_TLS", cfg.Kafka.EnableTLS)
	cfg.Kafka.TLSCertFile = p.str("KAFKA_TLS_CERT", "")
	cfg.Kafka.TLSKeyFile = p.str("KAFKA_TLS_KEY", "")
	cfg.Kafka.TLSCAFile = p.str("KAFKA_TLS_CA", "")
	cfg.Kafka.SASLMechanism = p.str("KAFKA_SASL_MECHANISM", "")
	cfg.Kafka.SASLUser = p.str("KAFKA_SASL_USER", "")
	cfg.Kafka.SASLPassword = p.str("KAFKA_SASL_PASSWORD", "")

	cfg.Redis.Address = p.str("REDIS_ADDR", cfg.Redis.Address)
	cfg.Redis.Password = p.str("REDIS_PASSWORD", "")
	cfg.Redis.DB = p.integer("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.Stream = p.str("REDIS_STREAM", cfg.Redis.Stream)
	cfg.Redis.MaxLen = int64(p.integer("REDIS_MAX_LEN", int(cfg.Redis.MaxLen)))

	cfg.SOCKSProxy.Host = p.str("SOCKS_HOST", "")
	cfg.SOCKSProxy.Port = p.integer("SOCKS_PORT", 0)

	cfg.Delivery.Retries = p.integer("DELIVERY_RETRIES", cfg.Delivery.Retries)
	cfg.Delivery.Backoff = p.duration("DELIVERY_BACKOFF", cfg.Delivery.Backoff)

	cfg.Sampling.CPUWindow = p.duration("CPU_SAMPLE_WINDOW", cfg.Sampling.CPUWindow)
	cfg.Sampling.SkipFailedSnapshots = p.boolean("SKIP_FAILED_SNAPSHOTS", false)

	cfg.Service.Name = p.str("SERVICE_NAME", cfg.Service.Name)
	cfg.Service.StopTimeout = p.duration("SERVICE_STOP_TIMEOUT", cfg.Service.StopTimeout)

	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoggingFromEnv builds the logger configuration from the given lookup,
// applying values over logger.DefaultConfig.
func LoggingFromEnv(lookup LookupFunc) (*logger.Config, error) {
	p := envParser{lookup: lookup}
	lc := logger.DefaultConfig()

	lc.Level = p.str("LOG_LEVEL", lc.Level)
	lc.FilePath = p.str("LOG_FILE", lc.FilePath)
	lc.MaxSizeMB = p.integer("LOG_MAX_SIZE_MB", lc.MaxSizeMB)
	lc.MaxBackups = p.integer("LOG_MAX_BACKUPS", lc.MaxBackups)
	lc.MaxAgeDays = p.integer("LOG_MAX_AGE_DAYS", lc.MaxAgeDays)
	lc.Compress = p.boolean("LOG_COMPRESS", lc.Compress)
	lc.Console = p.boolean("LOG_CONSOLE", lc.Console)
	lc.Format = strings.ToLower(p.str("LOG_FORMAT", lc.Format))

	if p.err != nil {
		return nil, p.err
	}
	if lc.Format != logger.FormatJSON && lc.Format != logger.FormatFixed {
		return nil, fmt.Errorf("invalid %sLOG_FORMAT %q (supported: json, fixed)", EnvPrefix, lc.Format)
	}
	return &lc, nil
}

// LoadLogging reads only the logging settings from an env file, without
// touching the process environment. Keys missing from the file fall back to
// the process environment.
func LoadLogging(envFile string) (*logger.Config, error) {
	values, err := godotenv.Read(envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", envFile, err)
	}
	return LoggingFromEnv(func(key string) (string, bool) {
		if v, ok := values[key]; ok {
			return v, true
		}
		return os.LookupEnv(key)
	})
}

// envParser reads prefixed variables and keeps the first parse error.
type envParser struct {
	lookup LookupFunc
	err    error
}

func (p *envParser) raw(key string) (string, bool) {
	v, ok := p.lookup(EnvPrefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (p *envParser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s%s %q: %w", EnvPrefix, key, value, err)
	}
}

func (p *envParser) str(key, def string) string {
	if v, ok := p.raw(key); ok {
		return v
	}
	return def
}

func (p *envParser) integer(key string, def int) int {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

// maxSeconds is the largest whole-second count a time.Duration can hold.
const maxSeconds = math.MaxInt64 / int64(time.Second)

// seconds reads a whole number of seconds. Any value that is set, zero and
// negatives included, replaces def so Validate sees it.
func (p *envParser) seconds(key string, def time.Duration) time.Duration {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	if n > maxSeconds || n < -maxSeconds {
		p.fail(key, v, fmt.Errorf("exceeds %d seconds", maxSeconds))
		return def
	}
	return time.Duration(n) * time.Second
}

func (p *envParser) boolean(key string, def bool) bool {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return b
}

func (p *envParser) duration(key string, def time.Duration) time.Duration {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}

func (p *envParser) list(key string, def []string) []string {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
