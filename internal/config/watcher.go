package config

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher polls the config file while the tuner runs and hands the live
// part of every valid edit to a callback. Edits that fail to load are
// logged and skipped; the last valid config stays current.
type Watcher struct {
	path     string
	interval time.Duration
	apply    func(Changes)
	logger   *slog.Logger

	mu      sync.Mutex
	current *Config
	seen    fileState
}

// fileState identifies one version of the file. The hash filters out
// touches that leave the content alone.
type fileState struct {
	mtime time.Time
	sum   [sha256.Size]byte
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 2 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithLogger sets the logger used to report reloads and rejected edits.
func WithLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher loads the config at path. Polling starts with [Watcher.Run].
// apply is called from the polling goroutine and only for edits that change
// the noise gates or the log level.
func NewWatcher(path string, apply func(Changes), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 2 * time.Second,
		apply:    apply,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	state, data, err := w.read()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current, w.seen = cfg, state
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Run polls the file until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	info, err := os.Stat(w.path)
	if err != nil {
		w.logger.Warn("config watcher: cannot stat file", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	unchanged := info.ModTime().Equal(w.seen.mtime)
	w.mu.Unlock()
	if unchanged {
		return
	}

	state, data, err := w.read()
	if err != nil {
		w.logger.Warn("config watcher: cannot read file", "path", w.path, "err", err)
		return
	}

	// The state is recorded before parsing so a broken file is reported once.
	w.mu.Lock()
	sameContent := state.sum == w.seen.sum
	w.seen = state
	old := w.current
	w.mu.Unlock()
	if sameContent {
		return
	}

	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		w.logger.Warn("config watcher: keeping previous config", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	changes := Diff(old, cfg)
	if len(changes.Restart) > 0 {
		w.logger.Warn("config watcher: changes take effect after a restart",
			"path", w.path, "sections", changes.Restart)
	}
	if !changes.Live() {
		return
	}
	w.logger.Info("config watcher: applying changes",
		"path", w.path, "noise", changes.NoiseChanged, "log_level", changes.LogLevelChanged)
	if w.apply != nil {
		w.apply(changes)
	}
}

func (w *Watcher) read() (fileState, []byte, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return fileState{}, nil, err
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		return fileState{}, nil, err
	}
	return fileState{mtime: info.ModTime(), sum: sha256.Sum256(data)}, data, nil
}
