package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Supported backends.
const (
	BackendAuto     = "auto"
	BackendInotify  = "inotify"
	BackendFSNotify = "fsnotify"
)

// eventBuffer bounds the number of events held between two Next calls.
const eventBuffer = 256

var (
	// ErrWatcherClosed is returned by Next once the underlying watcher
	// has shut down and can deliver no more events.
	ErrWatcherClosed = errors.New("watcher closed")

	// ErrBackendUnsupported is returned by Open when the requested backend
	// does not exist on this platform.
	ErrBackendUnsupported = errors.New("backend not supported on this platform")
)

// Event is a single completed write to a file under the watched directory.
type Event struct {
	Path string
	Op   string
}

// Source delivers watch events one at a time.
type Source interface {
	// Next blocks until the next event, ctx is done, or the watcher fails
	// permanently.
	Next(ctx context.Context) (Event, error)

	// Rearm drops every event that is already queued, so that the next
	// call to Next only sees changes made from now on.
	Rearm()

	Close() error
}

// Options configures the event source.
type Options struct {
	// Dir is the directory to watch recursively.
	Dir string

	// Backend selects the watch primitive: auto, inotify or fsnotify.
	Backend string

	// Ignore lists base-name glob patterns. Matching files produce no
	// events and matching directories are not watched.
	Ignore []string

	// Coalesce, when positive, folds a burst of events into one: Next
	// returns only after no further event arrived for this long.
	Coalesce time.Duration

	Logger *slog.Logger
}

// DefaultOptions returns the options for watching ./src.
func DefaultOptions() Options {
	return Options{
		Dir:     "src",
		Backend: BackendAuto,
		Logger:  slog.Default(),
	}
}

// Open starts watching opts.Dir. Any failure here is fatal to the caller:
// nothing is being watched when an error is returned.
func Open(opts Options) (Source, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	info, err := os.Stat(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("watching source directory: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("watching source directory: %s is not a directory", opts.Dir)
	}

	var src Source

	switch backend := ResolveBackend(opts.Backend); backend {
	case BackendInotify:
		src, err = openInotify(opts)
	case BackendFSNotify:
		src, err = openFSNotify(opts)
	default:
		err = fmt.Errorf("unknown backend %q", opts.Backend)
	}

	if err != nil {
		return nil, fmt.Errorf("watching source directory: %w", err)
	}

	opts.Logger.Debug("watching",
		slog.String("dir", opts.Dir),
		slog.String("backend", ResolveBackend(opts.Backend)),
	)

	if opts.Coalesce > 0 {
		src = newCoalescer(src, opts.Coalesce)
	}

	return src, nil
}

// ResolveBackend maps "auto" (or empty) to the best backend for the
// running platform and returns any other name unchanged.
func ResolveBackend(name string) string {
	if name != "" && name != BackendAuto {
		return name
	}

	if runtime.GOOS == "linux" {
		return BackendInotify
	}

	return BackendFSNotify
}

// ignored reports whether the base name of path matches any pattern.
func ignored(path string, patterns []string) bool {
	name := filepath.Base(path)

	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}

	return false
}
