//go:build !linux

package watch

import "fmt"

func openInotify(Options) (Source, error) {
	return nil, fmt.Errorf("%s: %w", BackendInotify, ErrBackendUnsupported)
}
