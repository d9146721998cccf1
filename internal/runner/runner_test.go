package runner

import (
	"bytes"
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

// ---------------------------------------------------------------------------
// ParseCommand
// ---------------------------------------------------------------------------

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Command
	}{
		{"single word", "black", Command{Name: "black", Args: []string{}}},
		{"with args", "black .", Command{Name: "black", Args: []string{"."}}},
		{"quoted arg", `sh -c 'exit 3'`, Command{Name: "sh", Args: []string{"-c", "exit 3"}}},
		{"double quotes", `python3 "my script.py"`, Command{Name: "python3", Args: []string{"my script.py"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want.Name, got.Name)
			assert.ElementsMatch(t, tt.want.Args, got.Args)
		})
	}
}

func TestParseCommand_Empty(t *testing.T) {
	_, err := ParseCommand("   ")
	assert.ErrorIs(t, err, ErrEmptyCommand)
}

// ---------------------------------------------------------------------------
// Command
// ---------------------------------------------------------------------------

func TestCommand_WithDoesNotAlias(t *testing.T) {
	base := Command{Name: "python3", Args: []string{"src/main.py"}}

	a := base.With("-i", "in.toml")
	b := base.With("-o", "out.toml")

	assert.Equal(t, []string{"src/main.py"}, base.Args)
	assert.Equal(t, []string{"src/main.py", "-i", "in.toml"}, a.Args)
	assert.Equal(t, []string{"src/main.py", "-o", "out.toml"}, b.Args)
}

func TestCommand_String(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"plain", Command{Name: "black", Args: []string{"."}}, "black ."},
		{
			"fixed io args",
			Command{Name: "python3", Args: []string{"src/main.py", "-i", "local/in.toml", "-o", "local/out.toml"}},
			"python3 src/main.py -i local/in.toml -o local/out.toml",
		},
		{"space quoted", Command{Name: "sh", Args: []string{"-c", "exit 3"}}, "sh -c 'exit 3'"},
		{"single quote escaped", Command{Name: "echo", Args: []string{"it's"}}, `echo 'it'\''s'`},
		{"empty arg", Command{Name: "echo", Args: []string{""}}, "echo ''"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cmd.String())
		})
	}
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func TestRun_Success(t *testing.T) {
	skipOnWindows(t)

	var stdout bytes.Buffer
	r := &Runner{Stdout: &stdout}

	res := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo hello"}})
	require.NoError(t, res.Err)
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.Failed())
	assert.Equal(t, "hello\n", stdout.String())
}

func TestRun_NonZeroExit(t *testing.T) {
	skipOnWindows(t)

	r := &Runner{}

	res := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "exit 3"}})
	assert.Equal(t, 3, res.ExitCode)
	assert.Error(t, res.Err)
	assert.True(t, res.Failed())
}

func TestRun_NotFound(t *testing.T) {
	r := &Runner{}

	res := r.Run(context.Background(), Command{Name: "srcwatch-definitely-missing-binary"})
	assert.Equal(t, ExitCodeNotRunnable, res.ExitCode)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "starting srcwatch-definitely-missing-binary")
}

func TestRun_StderrAndDir(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()

	var stdout, stderr bytes.Buffer
	r := &Runner{Dir: dir, Stdout: &stdout, Stderr: &stderr}

	res := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "pwd; echo oops >&2"}})
	require.NoError(t, res.Err)
	assert.Contains(t, stdout.String(), dir)
	assert.Equal(t, "oops\n", stderr.String())
}

func TestRun_Cancelled(t *testing.T) {
	skipOnWindows(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Runner{}
	res := r.Run(ctx, Command{Name: "sh", Args: []string{"-c", "sleep 5"}})
	assert.True(t, res.Failed())
	assert.Equal(t, ExitCodeKilled, res.ExitCode)
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestRun_CancelledBeforeStartIsNotNotRunnable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := (&Runner{}).Run(ctx, Command{Name: "true"})
	assert.Equal(t, ExitCodeKilled, res.ExitCode)
	assert.NotContains(t, res.Err.Error(), "starting")
}
