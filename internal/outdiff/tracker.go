package outdiff

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Report is the result of observing the output file after one run.
type Report struct {
	Summary string
	Changes []Change
	// Diff is the unified diff against the previous snapshot; only filled
	// when the tracker was created with showDiff.
	Diff string
}

// Tracker keeps the last snapshot of an output file so each run can be
// compared with the one before it.
type Tracker struct {
	path     string
	showDiff bool

	seen     bool
	prevRaw  []byte
	prevFlat map[string]string
}

// NewTracker creates a tracker for the file at path.
func NewTracker(path string, showDiff bool) *Tracker {
	return &Tracker{path: path, showDiff: showDiff}
}

// Path returns the tracked file path.
func (t *Tracker) Path() string {
	return t.path
}

// Observe reads the output file and compares it with the previous snapshot.
// The first observation only records a baseline.
func (t *Tracker) Observe() (*Report, error) {
	data, err := os.ReadFile(t.path)
	if errors.Is(err, fs.ErrNotExist) {
		data = nil
	} else if err != nil {
		return nil, fmt.Errorf("reading output %s: %w", t.path, err)
	}

	var flat map[string]string

	if data != nil && Structured(t.path) {
		flat, err = Flatten(t.path, data)
		if err != nil {
			return nil, err
		}
	}

	report := &Report{}

	switch {
	case data == nil:
		report.Summary = "output missing"
	case !t.seen:
		report.Summary = "output written"
	case flat != nil && t.prevFlat != nil:
		report.Changes = Compare(t.prevFlat, flat)
		report.Summary = Summary(report.Changes)
	case bytes.Equal(t.prevRaw, data):
		report.Summary = "no output changes"
	default:
		report.Summary = "output changed"
	}

	if t.showDiff && t.seen {
		report.Diff, err = UnifiedDiff(t.prevRaw, data, t.path)
		if err != nil {
			return nil, err
		}
	}

	t.seen = true
	t.prevRaw = data
	t.prevFlat = flat

	return report, nil
}
