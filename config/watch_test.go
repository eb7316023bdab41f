package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	w, err := NewWatcher(path, 10*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	updates := make(chan AppConfig, 1)
	go func() {
		_ = w.Start(ctx, func(cfg AppConfig) {
			select {
			case updates <- cfg:
			default:
			}
		})
	}()

	// Give the watch loop a moment to arm before writing.
	time.Sleep(50 * time.Millisecond)
	changed := sampleYAML + "\n"
	require.NoError(t, os.WriteFile(path, []byte(changed), 0644))

	select {
	case cfg := <-updates:
		require.Equal(t, "dev", cfg.Env)
	case <-ctx.Done():
		t.Fatal("no reload observed")
	}
}

func TestWatcherSkipsInvalidConfig(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	w, err := NewWatcher(path, 10*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	updates := make(chan AppConfig, 1)
	go func() {
		_ = w.Start(ctx, func(cfg AppConfig) { updates <- cfg })
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("env: [broken"), 0644))

	select {
	case <-updates:
		t.Fatal("invalid config must not trigger an update")
	case <-ctx.Done():
	}
}
