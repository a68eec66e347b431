package render

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay is how long the watcher waits for writes to settle.
const debounceDelay = 100 * time.Millisecond

// BuildFunc receives the outcome of every build in watch mode.
type BuildFunc func(result *Result, err error)

// Watch runs an initial build, then rebuilds whenever a template or vars
// file changes, until ctx is cancelled.
func (r *Renderer) Watch(ctx context.Context, onBuild BuildFunc) error {
	if onBuild == nil {
		onBuild = func(*Result, error) {}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watchDirRecursive(watcher, r.opts.QueriesDir); err != nil {
		return fmt.Errorf("failed to watch queries dir: %w", err)
	}

	varsFiles := make(map[string]bool, len(r.opts.VarsFiles))
	for _, vf := range r.opts.VarsFiles {
		abs, err := filepath.Abs(vf)
		if err != nil {
			abs = vf
		}
		varsFiles[abs] = true
		// Watch the parent, editors often replace files instead of writing them
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			r.logger.Warn("failed to watch vars file", "file", vf, "error", err)
		}
	}

	onBuild(r.RenderAll(ctx))

	// Timers only signal; every build runs on this goroutine.
	rebuild := make(chan string, 1)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case name := <-rebuild:
			r.logger.Debug("change detected, rebuilding", "file", name)
			onBuild(r.RenderAll(ctx))

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watchDirRecursive(watcher, event.Name); err != nil {
						r.logger.Warn("failed to watch new directory", "dir", event.Name, "error", err)
					}
					continue
				}
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !r.isRelevant(event.Name, varsFiles) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				select {
				case rebuild <- name:
				default: // a rebuild is already pending
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Error("watcher error", "error", err)
		}
	}
}

// isRelevant reports whether a change to path should trigger a rebuild.
func (r *Renderer) isRelevant(path string, varsFiles map[string]bool) bool {
	if abs, err := filepath.Abs(path); err == nil && varsFiles[abs] {
		return true
	}
	return filepath.Ext(path) == r.opts.TemplateExt && !strings.HasPrefix(filepath.Base(path), ".")
}

// watchDirRecursive adds a directory and all subdirectories to the watcher.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
