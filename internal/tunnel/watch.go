// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

package tunnel

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/toeirei/wgkeys/internal/logging"
)

// watchDebounce collapses bursts of writes (WAL, journal, main file) into
// one reload.
const watchDebounce = 500 * time.Millisecond

// Watch reloads the manager whenever the SQLite file at path (or its
// -wal/-journal companions) changes, so keys rotated by another wgkeys
// process reach the observers. It returns once the watcher is running and
// stops when ctx is done.
func (m *Manager) Watch(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	base := filepath.Base(abs)

	go func() {
		defer func() { _ = watcher.Close() }()

		var debounce *time.Timer
		defer func() {
			if debounce != nil {
				debounce.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasPrefix(filepath.Base(event.Name), base) {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(watchDebounce, func() {
					if ctx.Err() != nil {
						return
					}
					if err := m.Load(ctx); err != nil {
						logging.Warnf("tunnel: reload after file change failed: %s", logging.ErrorChain(err))
					}
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Warnf("tunnel: file watcher error: %v", err)
			}
		}
	}()
	return nil
}
