package sender

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"hostwatch/internal/config"
	"hostwatch/internal/logger"
)

// maxClaimAttempts bounds how often a write retries after another writer
// took the name it picked.
const maxClaimAttempts = 100

// FileSender writes one text file per message under <dir>/<kind>/, named by
// NextFreeName. Files are never overwritten.
type FileSender struct {
	dir      string
	baseName string
	console  bool
	out      io.Writer
	mu       sync.Mutex
	closed   bool
}

// NewFileSender creates a new FileSender and the per-mode subdirectories.
func NewFileSender(cfg config.FileConfig) (*FileSender, error) {
	log := logger.WithComponent("file-sender")

	for _, kind := range []Kind{KindInterval, KindWarn} {
		if err := os.MkdirAll(filepath.Join(cfg.Directory, string(kind)), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	log.Info().
		Str("directory", cfg.Directory).
		Str("base_name", cfg.BaseName).
		Bool("console", cfg.Console).
		Msg("FileSender initialized")

	return &FileSender{
		dir:      cfg.Directory,
		baseName: cfg.BaseName,
		console:  cfg.Console,
		out:      os.Stdout,
	}, nil
}

// Name returns "file".
func (s *FileSender) Name() string { return config.SinkFile }

// Send writes the message text to a freshly claimed file.
func (s *FileSender) Send(ctx context.Context, msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	text := msg.Text()
	path, err := s.write(filepath.Join(s.dir, string(msg.Kind)), []byte(text))
	if err != nil {
		return err
	}

	log := logger.WithComponent("file-sender")
	log.Debug().Str("path", path).Str("id", msg.ID.String()).Msg("Report written")

	if s.console {
		fmt.Fprintln(s.out, text)
	}
	return nil
}

// write stages data in a temporary file and links it into the next free
// name, so a claimed name never holds a partial report.
func (s *FileSender) write(dir string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(dir, "."+s.baseName+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write to file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	for attempt := 0; attempt < maxClaimAttempts; attempt++ {
		name, err := NextFreeName(s.baseName, dir)
		if err != nil {
			return "", err
		}
		path := filepath.Join(dir, name)

		err = os.Link(tmpPath, path)
		if err == nil {
			return path, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}

		// Filesystems without hard links: claim the name exclusively instead.
		err = writeExclusive(path, data)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("failed to write to file: %w", err)
		}
	}
	return "", fmt.Errorf("no free file name in %s after %d attempts", dir, maxClaimAttempts)
}

func writeExclusive(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// Close marks the sender closed. There are no open handles between sends.
func (s *FileSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
