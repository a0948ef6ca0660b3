package config

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"hostwatch/internal/logger"
)

func TestFileWatcher_CoalescesBurst(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("A=1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var calls int32
	w, err := NewFileWatcher(path, func() { atomic.AddInt32(&calls, 1) })
	if err != nil {
		t.Fatal(err)
	}
	mock := clock.NewMock()
	w.clock = mock
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("A=2\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	// unrelated files in the same directory are ignored
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Fatalf("callback fired before the settle delay: %d", n)
	}

	mock.Add(DefaultSettleDelay)
	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&calls) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("callback never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(50 * time.Millisecond)
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected one callback for the burst, got %d", n)
	}
}

func TestFileWatcher_StartMissingDirectory(t *testing.T) {
	w, err := NewFileWatcher(filepath.Join(t.TempDir(), "nope", ".env"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err == nil {
		t.Error("expected error watching a missing directory")
	}
	if w.IsRunning() {
		t.Error("watcher should not be running after a failed Start")
	}
	_ = w.Stop()
}

func TestLoggingWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("HOSTWATCH_LOG_LEVEL=info\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var levels []string
	w, err := NewLoggingWatcher(path, func(lc *logger.Config) {
		mu.Lock()
		levels = append(levels, lc.Level)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("NewLoggingWatcher failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("HOSTWATCH_LOG_LEVEL=debug\n"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(levels)
		last := ""
		if n > 0 {
			last = levels[n-1]
		}
		mu.Unlock()
		if last == "debug" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("logging watcher did not report the new level")
}

func TestFileWatcher_StopIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	w, err := NewFileWatcher(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if !w.IsRunning() {
		t.Error("expected watcher to be running")
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	if w.IsRunning() {
		t.Error("expected watcher to be stopped")
	}
	_ = w.Stop()
}
