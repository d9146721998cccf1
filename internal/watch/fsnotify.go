package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// fsSource is the portable backend. fsnotify has no portable close-write
// event, so every Write is reported.
type fsSource struct {
	watcher *fsnotify.Watcher
	ignore  []string
	logger  *slog.Logger
}

func openFSNotify(opts Options) (*fsSource, error) {
	watcher, err := fsnotify.NewBufferedWatcher(eventBuffer)
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	if err := addRecursive(watcher, opts.Dir, opts.Ignore); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	return &fsSource{
		watcher: watcher,
		ignore:  opts.Ignore,
		logger:  opts.Logger,
	}, nil
}

func (s *fsSource) Next(ctx context.Context) (Event, error) {
	for {
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()

		case event, ok := <-s.watcher.Events:
			if !ok {
				return Event{}, ErrWatcherClosed
			}

			if ev, relevant := s.handle(event); relevant {
				return ev, nil
			}

		case watchErr, ok := <-s.watcher.Errors:
			if !ok {
				return Event{}, ErrWatcherClosed
			}

			s.logger.Error("watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

func (s *fsSource) Rearm() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}

			// Still pick up new directories so they stay watched.
			_, _ = s.handle(event)
		default:
			return
		}
	}
}

func (s *fsSource) Close() error {
	return s.watcher.Close()
}

// handle extends the watch to new directories and converts relevant
// fsnotify events.
func (s *fsSource) handle(event fsnotify.Event) (Event, bool) {
	if event.Has(fsnotify.Create) {
		if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
			if err := addRecursive(s.watcher, event.Name, s.ignore); err != nil {
				s.logger.Warn("watching new directory",
					slog.String("path", event.Name),
					slog.String("error", err.Error()),
				)
			}

			return Event{}, false
		}
	}

	if !event.Has(fsnotify.Write) || ignored(event.Name, s.ignore) {
		return Event{}, false
	}

	return Event{Path: event.Name, Op: "write"}, true
}

// addRecursive walks root and adds every directory not excluded by ignore.
func addRecursive(watcher *fsnotify.Watcher, root string, ignore []string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if path != root && ignored(path, ignore) {
			return filepath.SkipDir
		}

		return watcher.Add(path)
	})
}
