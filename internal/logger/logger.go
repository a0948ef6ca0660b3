// Package logger provides the agent's structured logging with file rotation support.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// asyncWriter wraps an io.Writer so that a stalled console never blocks the
// caller. Messages are buffered and written by a background goroutine; when
// the buffer is full they are dropped.
type asyncWriter struct {
	ch     chan []byte
	w      io.Writer
	done   chan struct{}
	once   sync.Once
	mu     sync.RWMutex
	closed bool
}

func newAsyncWriter(w io.Writer, bufSize int) *asyncWriter {
	aw := &asyncWriter{
		ch:   make(chan []byte, bufSize),
		w:    w,
		done: make(chan struct{}),
	}
	go aw.drain()
	return aw
}

func (aw *asyncWriter) Write(p []byte) (int, error) {
	aw.mu.RLock()
	defer aw.mu.RUnlock()
	if aw.closed {
		return len(p), nil
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	select {
	case aw.ch <- cp:
	default:
	}
	return len(p), nil
}

func (aw *asyncWriter) drain() {
	defer close(aw.done)
	for p := range aw.ch {
		_, _ = aw.w.Write(p)
	}
}

func (aw *asyncWriter) Close() {
	aw.once.Do(func() {
		aw.mu.Lock()
		aw.closed = true
		aw.mu.Unlock()
		close(aw.ch)
		<-aw.done
	})
}

// Output formats for the log file.
const (
	FormatJSON  = "json"
	FormatFixed = "fixed"
)

// Config holds the logger configuration.
type Config struct {
	Level      string
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	Console    bool
	Format     string // FormatJSON (default) or FormatFixed
}

// DefaultConfig returns sensible defaults for logging.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		FilePath:   "log/hostwatch/hostwatch.log",
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 30,
		Compress:   true,
		Console:    true,
		Format:     FormatJSON,
	}
}

var (
	mu               sync.Mutex
	globalLogger     = zerolog.New(os.Stdout).With().Timestamp().Logger()
	serviceMode      bool
	prevFileWriter   io.Closer
	prevConsoleAsync *asyncWriter
)

// SetServiceMode suppresses console output when the agent runs without a
// terminal (systemd unit, Windows service). It applies on the next Init.
func SetServiceMode(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	serviceMode = enabled
}

// Init (re)initializes the global logger. Writers from a previous Init are
// closed, so Init is safe to call again on a logging configuration reload.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	closeWriters()

	var writers []io.Writer

	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return err
		}

		fileWriter := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		prevFileWriter = fileWriter

		if cfg.Format == FormatFixed {
			writers = append(writers, NewFixedFormatWriter(fileWriter))
		} else {
			writers = append(writers, fileWriter)
		}
	}

	if cfg.Console && !serviceMode {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		aw := newAsyncWriter(consoleWriter, 1000)
		prevConsoleAsync = aw
		writers = append(writers, aw)
	}

	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	var output io.Writer
	if len(writers) == 1 {
		output = writers[0]
	} else {
		output = zerolog.MultiLevelWriter(writers...)
	}

	globalLogger = zerolog.New(output).With().Timestamp().Caller().Logger()
	return nil
}

// Close flushes the console buffer and closes the log file opened by Init.
// Later log calls go to stderr.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeWriters()
	globalLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func closeWriters() {
	if prevConsoleAsync != nil {
		prevConsoleAsync.Close()
		prevConsoleAsync = nil
	}
	if prevFileWriter != nil {
		_ = prevFileWriter.Close()
		prevFileWriter = nil
	}
}

// Info logs an info message.
func Info() *zerolog.Event {
	l := current()
	return l.Info()
}

// WithComponent returns a logger with component field.
func WithComponent(component string) zerolog.Logger {
	return current().With().Str("component", component).Logger()
}

func current() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return globalLogger
}
