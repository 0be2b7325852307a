// Copyright 2025 Patrick J. Scruggs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package slogcallconfig

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/pjscruggs/slogcall"
)

// Watch loads path, applies its contracts to resolver and keeps applying
// them whenever the file is written or created. It
// returns after the first load; reloading stops when ctx is done.
//
// A file that fails to load or validate is logged and skipped, leaving the
// previous severities in effect. onReload, when non-nil, is called after
// each reload attempt with the error it produced.
func Watch(ctx context.Context, path string, resolver *slogcall.SeverityResolver, logger *slog.Logger, onReload func(error)) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := reload(path, resolver); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Editors often replace files instead of writing them, so watch the
	// directory and filter by name.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	base := filepath.Base(path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != base {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				err := reload(path, resolver)
				if err != nil {
					logger.WarnContext(ctx, "slogcallconfig: reload failed", slog.String("path", path), slog.Any("error", err))
				} else {
					logger.InfoContext(ctx, "slogcallconfig: reloaded", slog.String("path", path))
				}
				if onReload != nil {
					onReload(err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WarnContext(ctx, "slogcallconfig: watcher error", slog.Any("error", err))
			}
		}
	}()
	return nil
}

func reload(path string, resolver *slogcall.SeverityResolver) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	return cfg.Apply(resolver)
}
