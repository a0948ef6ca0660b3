package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fsnotify/fsnotify"

	"hostwatch/internal/logger"
)

// DefaultSettleDelay is how long a FileWatcher waits after the last event
// before firing, so an editor's write-rename-chmod burst fires once.
const DefaultSettleDelay = 250 * time.Millisecond

// FileWatcher calls onChange after a file is written or re-created and has
// been quiet for the settle delay.
type FileWatcher struct {
	path     string
	fsw      *fsnotify.Watcher
	onChange func()
	settle   time.Duration
	clock    clock.Clock

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewFileWatcher creates a watcher for path. The parent directory is watched
// so that files replaced by rename are still observed.
func NewFileWatcher(path string, onChange func()) (*FileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &FileWatcher{
		path:     path,
		fsw:      fsw,
		onChange: onChange,
		settle:   DefaultSettleDelay,
		clock:    clock.New(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. Calling Start on a running watcher does nothing.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.running {
		return nil
	}

	if err := fw.fsw.Add(filepath.Dir(fw.path)); err != nil {
		return err
	}
	fw.running = true

	log := logger.WithComponent("env-watcher")
	log.Info().Str("path", fw.path).Dur("settle", fw.settle).Msg("Watching env file")

	go fw.loop()
	return nil
}

// Stop ends the watch loop and waits for it to exit. It is safe to call more
// than once.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if !fw.running {
		fw.mu.Unlock()
		return fw.fsw.Close()
	}
	fw.running = false
	fw.mu.Unlock()

	close(fw.stop)
	err := fw.fsw.Close()
	<-fw.done
	return err
}

// IsRunning reports whether the watch loop is active.
func (fw *FileWatcher) IsRunning() bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.running
}

func (fw *FileWatcher) loop() {
	defer close(fw.done)

	log := logger.WithComponent("env-watcher")
	name := filepath.Base(fw.path)

	var (
		pending *clock.Timer
		fire    <-chan time.Time
	)
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	for {
		select {
		case <-fw.stop:
			return

		case ev, ok := <-fw.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if pending == nil {
				pending = fw.clock.Timer(fw.settle)
			} else {
				pending.Reset(fw.settle)
			}
			fire = pending.C

		case <-fire:
			fire = nil
			log.Info().Str("path", fw.path).Msg("Env file changed")
			if fw.onChange != nil {
				fw.onChange()
			}

		case err, ok := <-fw.fsw.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Str("path", fw.path).Msg("Env watcher error")
		}
	}
}

// NewLoggingWatcher creates a watcher that re-reads the logging settings from
// the env file on change. Every other setting stays as loaded at startup.
func NewLoggingWatcher(path string, callback func(*logger.Config)) (*FileWatcher, error) {
	return NewFileWatcher(path, func() {
		log := logger.WithComponent("env-watcher")
		lc, err := LoadLogging(path)
		if err != nil {
			log.Error().Err(err).Msg("Failed to reload logging configuration")
			return
		}
		if callback != nil {
			callback(lc)
		}
	})
}
