// Package watcher re-runs work when build scripts or sources of a repository
// change.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"modgraph/internal/config"
	"modgraph/internal/paths"
)

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

// Event represents a file system event. Path is repo-relative and
// slash-separated.
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// ChangeHandler is called with each debounced batch of changes
type ChangeHandler func(ctx context.Context, events []Event)

// Config contains watcher configuration
type Config struct {
	DebounceMs     int
	Patterns       []string
	IgnorePatterns []string
}

// ConfigFrom converts the watch section of the repository config
func ConfigFrom(cfg config.WatchConfig) Config {
	return Config{
		DebounceMs:     cfg.DebounceMs,
		Patterns:       cfg.Patterns,
		IgnorePatterns: cfg.IgnorePatterns,
	}
}

// Watcher watches a repository tree with fsnotify
type Watcher struct {
	config  Config
	logger  *slog.Logger
	handler ChangeHandler
	root    string
	fsw     *fsnotify.Watcher
	started atomic.Bool
}

// New creates a watcher for root and registers every directory that is not
// ignored. Invalid patterns fail here rather than never matching.
func New(root string, cfg Config, logger *slog.Logger, handler ChangeHandler) (*Watcher, error) {
	for _, p := range append(append([]string(nil), cfg.Patterns...), cfg.IgnorePatterns...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid watch pattern %q", p)
		}
	}
	if cfg.DebounceMs <= 0 {
		cfg.DebounceMs = 750
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		config:  cfg,
		logger:  logger.With("component", "watcher"),
		handler: handler,
		root:    absRoot,
		fsw:     fsw,
	}
	if err := w.addTree(absRoot); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is cancelled. It returns nil on
// cancellation. Runs of the handler never overlap; changes that arrive during
// a run are handled in one more run right after it. Run must be called once.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watcher already running")
	}
	defer w.fsw.Close()

	runner := &serialRunner{run: func(events []Event) {
		if ctx.Err() != nil || w.handler == nil {
			return
		}
		w.logger.Debug("Changes detected", "changes", len(events))
		w.handler(ctx, events)
	}}
	batch := NewBatchDebouncer(time.Duration(w.config.DebounceMs)*time.Millisecond, func(events []Event) {
		if runner.submit(events) {
			w.logger.Info("Run in progress; changes queued", "changes", len(events))
		}
	})
	defer batch.Cancel()

	w.logger.Info("Watching for changes", "root", w.root, "debounceMs", w.config.DebounceMs)
	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("file watcher closed unexpectedly")
			}
			rel, err := filepath.Rel(w.root, evt.Name)
			if err != nil {
				continue
			}
			rel = paths.NormalizePath(rel)
			if w.IsIgnored(rel) {
				continue
			}

			if evt.Has(fsnotify.Create) {
				// New directories extend the watch
				if err := w.addTree(evt.Name); err != nil {
					w.logger.Warn("Failed to watch new directory", "path", rel, "error", err)
				}
			}
			if !w.Matches(rel) {
				continue
			}
			batch.Add(Event{Type: eventType(evt.Op), Path: rel, Timestamp: time.Now()})

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("file watcher closed unexpectedly")
			}
			w.logger.Warn("File watcher error", "error", err)
		}
	}
}

// Matches reports whether a repo-relative path matches a watch pattern
func (w *Watcher) Matches(rel string) bool {
	for _, p := range w.config.Patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// IsIgnored checks if a repo-relative path matches an ignore pattern
func (w *Watcher) IsIgnored(rel string) bool {
	for _, p := range w.config.IgnorePatterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		// Directory patterns such as build/** also cover the directory itself
		if ok, _ := doublestar.Match(p, rel+"/"); ok {
			return true
		}
	}
	return false
}

// addTree registers dir and every directory below it that is not ignored
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			w.logger.Debug("Skipping inaccessible path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return nil
		}
		if rel = paths.NormalizePath(rel); rel != "." && w.IsIgnored(rel) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func eventType(op fsnotify.Op) EventType {
	switch {
	case op.Has(fsnotify.Create):
		return EventCreate
	case op.Has(fsnotify.Remove):
		return EventDelete
	case op.Has(fsnotify.Rename):
		return EventRename
	default:
		return EventModify
	}
}
