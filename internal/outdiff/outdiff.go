// Package outdiff reports how the downstream program's output file changed
// between two consecutive runs.
package outdiff

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pmezard/go-difflib/difflib"
	sigsyaml "sigs.k8s.io/yaml"
)

// Change kinds.
const (
	KindAdded   = "added"
	KindRemoved = "removed"
	KindChanged = "changed"
)

// Change describes a single key that differs between two snapshots.
type Change struct {
	// Kind is one of "added", "removed", or "changed".
	Kind string
	// Key is the dotted path of the value.
	Key string
	// Detail holds the value, or "old -> new" for changed keys.
	Detail string
}

// Structured reports whether files with the given path can be compared
// key by key. Other files are only compared as text.
func Structured(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// Flatten decodes data according to the extension of path and returns its
// leaves keyed by dotted path.
func Flatten(path string, data []byte) (map[string]string, error) {
	doc := map[string]any{}

	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &doc)
	case ".json":
		err = json.Unmarshal(data, &doc)
	case ".yaml", ".yml":
		err = sigsyaml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("unsupported output format %q", filepath.Ext(path))
	}

	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}

	out := make(map[string]string)
	flatten("", doc, out)

	return out, nil
}

func flatten(prefix string, v any, out map[string]string) {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 0 && prefix != "" {
			out[prefix] = "{}"
			return
		}

		for k, child := range val {
			flatten(join(prefix, k), child, out)
		}
	default:
		out[prefix] = fmt.Sprint(val)
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}

	return prefix + "." + key
}

// Compare returns the changes between two flattened snapshots, sorted by key.
func Compare(prev, curr map[string]string) []Change {
	var changes []Change

	for key, pv := range prev {
		if _, ok := curr[key]; !ok {
			changes = append(changes, Change{Kind: KindRemoved, Key: key, Detail: pv})
		}
	}

	for key, cv := range curr {
		pv, existed := prev[key]
		if !existed {
			changes = append(changes, Change{Kind: KindAdded, Key: key, Detail: cv})
			continue
		}

		if pv != cv {
			changes = append(changes, Change{
				Kind:   KindChanged,
				Key:    key,
				Detail: fmt.Sprintf("%s -> %s", pv, cv),
			})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Key < changes[j].Key })

	return changes
}

// Summary returns a human-readable one-line summary.
func Summary(changes []Change) string {
	var added, removed, changed int

	for _, c := range changes {
		switch c.Kind {
		case KindAdded:
			added++
		case KindRemoved:
			removed++
		case KindChanged:
			changed++
		}
	}

	if added == 0 && removed == 0 && changed == 0 {
		return "no output changes"
	}

	parts := make([]string, 0, 3)

	if added > 0 {
		parts = append(parts, fmt.Sprintf("+%d key(s) added", added))
	}

	if removed > 0 {
		parts = append(parts, fmt.Sprintf("-%d key(s) removed", removed))
	}

	if changed > 0 {
		parts = append(parts, fmt.Sprintf("~%d value(s) changed", changed))
	}

	return strings.Join(parts, ", ")
}

// UnifiedDiff computes a unified diff between two versions of a file.
// It returns an empty string when they are identical.
func UnifiedDiff(oldData, newData []byte, label string) (string, error) {
	if bytes.Equal(oldData, newData) {
		return "", nil
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(oldData)),
		B:        difflib.SplitLines(string(newData)),
		FromFile: label + " (previous)",
		ToFile:   label + " (current)",
		Context:  3,
	}

	unified, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("computing diff: %w", err)
	}

	return unified, nil
}
