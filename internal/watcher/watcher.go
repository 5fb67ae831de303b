package watcher

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Event represents a change to one of the watched inputs.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Watcher reports rewrites of input files using OS-level notifications.
type Watcher struct {
	fsw    *fsnotify.Watcher
	Events chan Event
	paths  []string
	log    *zap.SugaredLogger
}

// Expand resolves glob patterns to absolute file paths, keeping argument
// order. Patterns without glob syntax are passed through so that a missing
// file surfaces as an open error later. "-" is kept as-is.
func Expand(patterns []string) ([]string, error) {
	var out []string
	for _, pattern := range patterns {
		if pattern == "-" {
			out = append(out, pattern)
			continue
		}
		matches, err := expandGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to expand pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			matches = []string{pattern}
		}
		for _, m := range matches {
			abs, err := filepath.Abs(m)
			if err != nil {
				return nil, err
			}
			out = append(out, abs)
		}
	}
	return out, nil
}

// New creates a Watcher for the given files. The parent directories are
// watched so that files replaced by rename are still seen.
func New(paths []string, log *zap.SugaredLogger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	w := &Watcher{
		fsw:    fsw,
		Events: make(chan Event, 256),
		log:    log,
	}
	dirs := make(map[string]bool)
	for _, p := range paths {
		if p == "-" {
			continue
		}
		w.paths = append(w.paths, p)
		dir := filepath.Dir(p)
		if dirs[dir] {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("cannot watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}
	return w, nil
}

// Start begins listening for file events. It blocks until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	defer w.fsw.Close()
	defer close(w.Events)

	watched := make(map[string]bool, len(w.paths))
	for _, p := range w.paths {
		watched[p] = true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !watched[ev.Name] {
				continue
			}
			switch {
			case ev.Op&fsnotify.Write != 0,
				ev.Op&fsnotify.Create != 0,
				ev.Op&fsnotify.Remove != 0,
				ev.Op&fsnotify.Rename != 0:
				select {
				case w.Events <- Event{Path: ev.Name, Op: ev.Op}:
				case <-ctx.Done():
					return
				}
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Errorw("Watcher error", zap.Error(err))
		}
	}
}

// Paths returns the list of files being watched.
func (w *Watcher) Paths() []string {
	return w.paths
}

// expandGlob resolves a glob pattern to matching file paths.
// Supports recursive patterns like data/**/*.out via doublestar.
func expandGlob(pattern string) ([]string, error) {
	return doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
}
