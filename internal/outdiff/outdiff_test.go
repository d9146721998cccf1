package outdiff

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Flatten
// ---------------------------------------------------------------------------

func TestFlatten_TOML(t *testing.T) {
	data := []byte(`
[vencord]
alice = 12
bob = 3

[empty]
`)

	got, err := Flatten("out.toml", data)
	require.NoError(t, err)

	want := map[string]string{
		"vencord.alice": "12",
		"vencord.bob":   "3",
		"empty":         "{}",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Flatten mismatch (-want +got):\n%s", diff)
	}
}

func TestFlatten_JSON(t *testing.T) {
	got, err := Flatten("out.json", []byte(`{"vencord":{"alice":12,"tags":["a","b"]}}`))
	require.NoError(t, err)

	assert.Equal(t, "12", got["vencord.alice"])
	assert.Equal(t, "[a b]", got["vencord.tags"])
}

func TestFlatten_YAML(t *testing.T) {
	got, err := Flatten("out.yml", []byte("vencord:\n  alice: 12\n"))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"vencord.alice": "12"}, got)
}

func TestFlatten_Errors(t *testing.T) {
	_, err := Flatten("out.csv", []byte("user,contrib\n"))
	assert.ErrorContains(t, err, "unsupported output format")

	_, err = Flatten("out.toml", []byte("= broken"))
	assert.ErrorContains(t, err, "decoding out.toml")
}

func TestStructured(t *testing.T) {
	assert.True(t, Structured("local/out.toml"))
	assert.True(t, Structured("out.JSON"))
	assert.True(t, Structured("out.yaml"))
	assert.False(t, Structured("out.csv"))
	assert.False(t, Structured("out"))
}

// ---------------------------------------------------------------------------
// Compare
// ---------------------------------------------------------------------------

func TestCompare_NoChanges(t *testing.T) {
	snap := map[string]string{"a.x": "1", "a.y": "2"}
	assert.Empty(t, Compare(snap, snap))
}

func TestCompare_Mixed(t *testing.T) {
	prev := map[string]string{"v.alice": "12", "v.bob": "3"}
	curr := map[string]string{"v.alice": "15", "v.carol": "1"}

	want := []Change{
		{Kind: KindChanged, Key: "v.alice", Detail: "12 -> 15"},
		{Kind: KindRemoved, Key: "v.bob", Detail: "3"},
		{Kind: KindAdded, Key: "v.carol", Detail: "1"},
	}

	if diff := cmp.Diff(want, Compare(prev, curr)); diff != "" {
		t.Errorf("Compare mismatch (-want +got):\n%s", diff)
	}
}

// ---------------------------------------------------------------------------
// Summary
// ---------------------------------------------------------------------------

func TestSummary(t *testing.T) {
	tests := []struct {
		name    string
		changes []Change
		want    string
	}{
		{
			name:    "no changes",
			changes: nil,
			want:    "no output changes",
		},
		{
			name: "added only",
			changes: []Change{
				{Kind: KindAdded, Key: "a"},
				{Kind: KindAdded, Key: "b"},
			},
			want: "+2 key(s) added",
		},
		{
			name: "mixed",
			changes: []Change{
				{Kind: KindAdded, Key: "a"},
				{Kind: KindRemoved, Key: "b"},
				{Kind: KindChanged, Key: "c"},
			},
			want: "+1 key(s) added, -1 key(s) removed, ~1 value(s) changed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summary(tt.changes))
		})
	}
}

// ---------------------------------------------------------------------------
// UnifiedDiff
// ---------------------------------------------------------------------------

func TestUnifiedDiff(t *testing.T) {
	diff, err := UnifiedDiff([]byte("a = 1\nb = 2\n"), []byte("a = 1\nb = 3\n"), "out.toml")
	require.NoError(t, err)

	assert.Contains(t, diff, "--- out.toml (previous)")
	assert.Contains(t, diff, "+++ out.toml (current)")
	assert.Contains(t, diff, "-b = 2")
	assert.Contains(t, diff, "+b = 3")
}

func TestUnifiedDiff_Identical(t *testing.T) {
	diff, err := UnifiedDiff([]byte("a = 1\n"), []byte("a = 1\n"), "out.toml")
	require.NoError(t, err)
	assert.Empty(t, diff)
}

// ---------------------------------------------------------------------------
// Tracker
// ---------------------------------------------------------------------------

func TestTracker_Lifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.toml")
	tr := NewTracker(path, true)
	assert.Equal(t, path, tr.Path())

	r, err := tr.Observe()
	require.NoError(t, err)
	assert.Equal(t, "output missing", r.Summary)

	require.NoError(t, os.WriteFile(path, []byte("[v]\nalice = 1\n"), 0o644))

	r, err = tr.Observe()
	require.NoError(t, err)
	assert.Equal(t, "output changed", r.Summary, "no structured baseline yet")
	assert.Contains(t, r.Diff, "+alice = 1")

	require.NoError(t, os.WriteFile(path, []byte("[v]\nalice = 2\nbob = 1\n"), 0o644))

	r, err = tr.Observe()
	require.NoError(t, err)
	assert.Equal(t, "+1 key(s) added, ~1 value(s) changed", r.Summary)
	require.Len(t, r.Changes, 2)

	r, err = tr.Observe()
	require.NoError(t, err)
	assert.Equal(t, "no output changes", r.Summary)
	assert.Empty(t, r.Diff)
}

func TestTracker_FirstObservationIsBaseline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.toml")
	require.NoError(t, os.WriteFile(path, []byte("a = 1\n"), 0o644))

	tr := NewTracker(path, true)

	r, err := tr.Observe()
	require.NoError(t, err)
	assert.Equal(t, "output written", r.Summary)
	assert.Empty(t, r.Diff)
}

func TestTracker_UnstructuredFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("user,contrib\nalice,1\n"), 0o644))

	tr := NewTracker(path, false)

	_, err := tr.Observe()
	require.NoError(t, err)

	r, err := tr.Observe()
	require.NoError(t, err)
	assert.Equal(t, "no output changes", r.Summary)

	require.NoError(t, os.WriteFile(path, []byte("user,contrib\nalice,2\n"), 0o644))

	r, err = tr.Observe()
	require.NoError(t, err)
	assert.Equal(t, "output changed", r.Summary)
	assert.Empty(t, r.Diff, "diff disabled")
}

func TestTracker_MalformedOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewTracker(path, false).Observe()
	assert.ErrorContains(t, err, "decoding out.json")
}
