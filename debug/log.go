package debug

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

var (
	mu      sync.Mutex
	file    *os.File
	logger  *slog.Logger
	enabled atomic.Bool // read without the mutex on hot paths
)

// DefaultPath returns ~/.config/stepseq/debug.log
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "stepseq", "debug.log")
}

// Enable starts debug logging to DefaultPath
func Enable() error {
	return EnableAt(DefaultPath())
}

// EnableAt starts debug logging to path, truncating it
func EnableAt(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if enabled.Load() {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open debug log: %w", err)
	}

	file = f
	logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	enabled.Store(true)

	logger.Debug("=== Debug logging started ===", "cat", "debug")
	return nil
}

// Disable stops debug logging
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	enabled.Store(false)
	if file != nil {
		file.Close()
		file = nil
	}
	logger = nil
}

// Enabled reports whether Log writes anything
func Enabled() bool {
	return enabled.Load()
}

// Log writes a message to the debug log
func Log(category, format string, args ...any) {
	if !enabled.Load() {
		return
	}

	mu.Lock()
	defer mu.Unlock()

	if logger == nil {
		return
	}
	logger.Debug(fmt.Sprintf(format, args...), "cat", category)
	file.Sync() // flush immediately so we see logs even on crash
}

var counters = make(map[string]int)

// LogEvery logs only every N calls (use for high-frequency events)
func LogEvery(n int, category, format string, args ...any) {
	if !enabled.Load() {
		return
	}

	if n < 1 {
		n = 1
	}

	mu.Lock()
	key := category + format
	counters[key]++
	count := counters[key]
	mu.Unlock()

	if n == 1 || count%n == 1 {
		Log(category, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}
