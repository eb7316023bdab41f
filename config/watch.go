package config

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the config file on change so strategy parameters can
// be tuned without a restart. A cooldown absorbs editor write bursts.
// The engine applies the new snapshot at its next tick; nothing swaps
// mid-cycle.
type Watcher struct {
	Path     string
	Cooldown time.Duration

	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for path.
func NewWatcher(path string, cooldown time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(path); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	if cooldown <= 0 {
		cooldown = 2 * time.Second
	}
	return &Watcher{Path: path, Cooldown: cooldown, watcher: fw}, nil
}

// Start watches until ctx is done, invoking onUpdate with each config
// snapshot that loads and validates. Invalid intermediate states are
// skipped silently; the previous config stays in effect.
func (w *Watcher) Start(ctx context.Context, onUpdate func(AppConfig)) error {
	defer func() { _ = w.watcher.Close() }()

	var lastReload time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if time.Since(lastReload) < w.Cooldown {
				continue
			}
			cfg, err := LoadWithEnvOverrides(w.Path)
			if err != nil {
				continue
			}
			lastReload = time.Now()
			if onUpdate != nil {
				onUpdate(cfg)
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
		}
	}
}
