// Package runner executes external commands synchronously and reports
// their exit status.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"
)

// ExitCodeNotRunnable is reported when a command cannot be started at all,
// matching the shell's "command not found" status.
const ExitCodeNotRunnable = 127

// ExitCodeKilled is reported when the process was killed by a signal or
// never started because ctx was already done.
const ExitCodeKilled = -1

// ErrEmptyCommand is returned when a command line has no fields.
var ErrEmptyCommand = errors.New("empty command line")

// Command is an executable name plus its arguments.
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits a command line into a Command. Single and double
// quotes group words the way a POSIX shell would.
func ParseCommand(line string) (Command, error) {
	fields, err := shlex.Split(line)
	if err != nil {
		return Command{}, fmt.Errorf("parsing command %q: %w", line, err)
	}

	if len(fields) == 0 {
		return Command{}, ErrEmptyCommand
	}

	return Command{Name: fields[0], Args: fields[1:]}, nil
}

// With returns a copy of c with args appended.
func (c Command) With(args ...string) Command {
	out := Command{Name: c.Name, Args: make([]string, 0, len(c.Args)+len(args))}
	out.Args = append(out.Args, c.Args...)
	out.Args = append(out.Args, args...)

	return out
}

// String renders the command as a shell-quoted command line.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quote(c.Name))

	for _, a := range c.Args {
		parts = append(parts, quote(a))
	}

	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" {
		return "''"
	}

	if !strings.ContainsAny(s, " \t\n'\"\\$`|&;<>(){}*?[]#~!") {
		return s
	}

	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Result is the outcome of a single command execution.
type Result struct {
	// ExitCode is the process exit status. It is ExitCodeNotRunnable when
	// the process never started and -1 when it was killed by a signal.
	ExitCode int

	// Err describes the failure, if any.
	Err error

	Duration time.Duration
}

// Failed reports whether the command did not exit cleanly.
func (r Result) Failed() bool {
	return r.Err != nil || r.ExitCode != 0
}

// Runner runs commands with a fixed working directory and standard streams.
// Nil streams are connected to the null device.
type Runner struct {
	// Dir is the working directory. Empty means the current directory.
	Dir string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes cmd and blocks until it exits. There is no timeout; the
// child is only killed when ctx is cancelled.
func (r *Runner) Run(ctx context.Context, cmd Command) Result {
	start := time.Now()

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...) //nolint:gosec
	c.Dir = r.Dir
	c.Stdin = r.Stdin
	c.Stdout = r.Stdout
	c.Stderr = r.Stderr

	err := c.Run()
	res := Result{Duration: time.Since(start)}

	if err == nil {
		return res
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		res.Err = err

		return res
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = ExitCodeKilled
		res.Err = fmt.Errorf("%s interrupted: %w", cmd.Name, ctxErr)

		return res
	}

	res.ExitCode = ExitCodeNotRunnable
	res.Err = fmt.Errorf("starting %s: %w", cmd.Name, err)

	return res
}
