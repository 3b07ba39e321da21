// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package geo

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/tomtom215/loginwatch/internal/logging"
)

// TableWatcher reloads a StaticProvider whenever its JSON table changes on
// disk. It implements suture.Service.
//
// The parent directory is watched rather than the file so editors and
// config management that replace the file by rename are picked up.
type TableWatcher struct {
	provider *StaticProvider
	path     string
	reloaded func(entries int)
}

// NewTableWatcher watches path for provider. reloaded, when non-nil, is
// called after every successful reload.
func NewTableWatcher(provider *StaticProvider, path string, reloaded func(entries int)) *TableWatcher {
	return &TableWatcher{provider: provider, path: filepath.Clean(path), reloaded: reloaded}
}

// Serve watches until ctx is canceled. A table that fails to parse is
// logged and the previous table stays in use.
func (w *TableWatcher) Serve(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("static table watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("static table watcher add %s: %w", w.path, err)
	}
	logger := logging.WithComponent("geo-table-watcher")
	logger.Info().Str("path", w.path).Msg("Watching static geolocation table")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return ctx.Err()
			}
			if filepath.Clean(ev.Name) != w.path || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			n, err := w.provider.Reload(w.path)
			if err != nil {
				logger.Warn().Err(err).Str("path", w.path).Msg("Static geolocation table reload failed; keeping previous table")
				continue
			}
			logger.Info().Str("path", w.path).Int("entries", n).Msg("Static geolocation table reloaded")
			if w.reloaded != nil {
				w.reloaded(n)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return ctx.Err()
			}
			logger.Warn().Err(err).Msg("Static geolocation table watcher error")
		}
	}
}

// String identifies the service in supervisor logs.
func (w *TableWatcher) String() string {
	return "geo-table-watcher"
}
