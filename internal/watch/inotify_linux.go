//go:build linux

package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rjeczalik/notify"
)

// inotifySource reports IN_CLOSE_WRITE, i.e. a file opened for writing
// was closed.
type inotifySource struct {
	events chan notify.EventInfo
	done   chan struct{}
	once   sync.Once
	root   string
	ignore []string
}

func openInotify(opts Options) (*inotifySource, error) {
	abs, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", opts.Dir, err)
	}

	// notify drops events instead of blocking when the channel is full.
	events := make(chan notify.EventInfo, eventBuffer)

	if err := notify.Watch(filepath.Join(abs, "..."), events, notify.InCloseWrite); err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	return &inotifySource{
		events: events,
		done:   make(chan struct{}),
		root:   abs,
		ignore: opts.Ignore,
	}, nil
}

func (s *inotifySource) Next(ctx context.Context) (Event, error) {
	for {
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()

		case <-s.done:
			return Event{}, ErrWatcherClosed

		case ei := <-s.events:
			if ignored(ei.Path(), s.ignore) || underIgnoredDir(s.root, ei.Path(), s.ignore) {
				continue
			}

			return Event{Path: ei.Path(), Op: "close_write"}, nil
		}
	}
}

func (s *inotifySource) Rearm() {
	for {
		select {
		case <-s.events:
		default:
			return
		}
	}
}

func (s *inotifySource) Close() error {
	s.once.Do(func() {
		notify.Stop(s.events)
		close(s.done)
	})

	return nil
}

// underIgnoredDir reports whether any directory between root and path
// matches an ignore pattern. notify watches the whole tree, so ignored
// directories cannot be skipped up front.
func underIgnoredDir(root, path string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}

	for dir := filepath.Dir(path); dir != root && dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
		if ignored(dir, patterns) {
			return true
		}
	}

	return false
}
