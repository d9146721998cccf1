// Package loop implements the watch-format-run cycle: block for a change,
// run the formatter, run the downstream program, report its exit code,
// and wait again.
package loop

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/srcwatch/internal/banner"
	"github.com/hupe1980/srcwatch/internal/outdiff"
	"github.com/hupe1980/srcwatch/internal/runner"
	"github.com/hupe1980/srcwatch/internal/watch"
)

// Step names used in logs and metrics.
const (
	StepFormat  = "format"
	StepProgram = "program"
)

// State is the loop's position in its cycle.
type State int32

const (
	StateWaiting State = iota
	StateProcessing
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateProcessing:
		return "processing"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Executor runs a single command to completion.
type Executor interface {
	Run(ctx context.Context, cmd runner.Command) runner.Result
}

// Recorder receives per-step and per-iteration observations.
type Recorder interface {
	ObserveStep(step string, d time.Duration, failed bool)
	ObserveIteration(exitCode int)
}

// Options configures a Loop.
type Options struct {
	// Formatter reformats the whole project.
	Formatter runner.Command

	// Program is the downstream program, including its -i/-o arguments.
	Program runner.Command

	Executor Executor
	Banner   *banner.Printer
	Logger   *slog.Logger

	// Recorder is optional.
	Recorder Recorder

	// Tracker, when set, reports how the output file changed after each run.
	Tracker *outdiff.Tracker
}

// Iteration describes one pass through the loop body.
type Iteration struct {
	ID      string
	Trigger string
	Format  runner.Result
	Program runner.Result
	Started time.Time
	// Duration covers both steps.
	Duration time.Duration
}

// Loop runs the cycle over a watch.Source.
type Loop struct {
	src   watch.Source
	opts  Options
	state atomic.Int32
}

// New creates a loop reading events from src.
func New(src watch.Source, opts Options) *Loop {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Banner == nil {
		opts.Banner = banner.New(io.Discard, true)
	}

	return &Loop{src: src, opts: opts}
}

// ProgramCommand appends the fixed input and output arguments to program.
func ProgramCommand(program runner.Command, input, output string) runner.Command {
	return program.With("-i", input, "-o", output)
}

// State returns the current state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

func (l *Loop) setState(s State) {
	l.state.Store(int32(s))
}

// Run blocks until ctx is done (returning nil) or the source fails
// permanently (returning the error). Failures of the formatter or the
// program never end the loop.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.setState(StateWaiting)

		event, err := l.src.Next(ctx)
		if err != nil {
			l.setState(StateTerminated)

			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("waiting for changes: %w", err)
		}

		l.setState(StateProcessing)
		l.Iterate(ctx, event.Path)
		l.src.Rearm()
	}
}

// Iterate runs the loop body once for the given trigger.
func (l *Loop) Iterate(ctx context.Context, trigger string) Iteration {
	it := Iteration{
		ID:      uuid.NewString(),
		Trigger: trigger,
		Started: time.Now(),
	}

	logger := l.opts.Logger.With(slog.String("run", it.ID))

	l.opts.Banner.ChangeDetected(trigger)

	l.opts.Banner.Formatting(l.opts.Formatter.String())
	it.Format = l.step(ctx, logger, StepFormat, l.opts.Formatter)

	// Interrupted while formatting: the program is not started.
	if err := ctx.Err(); err != nil {
		it.Program = runner.Result{ExitCode: runner.ExitCodeKilled, Err: err}
		it.Duration = time.Since(it.Started)

		logger.Info("iteration interrupted", slog.String("step", StepFormat))

		return it
	}

	l.opts.Banner.Running(l.opts.Program.String())
	it.Program = l.step(ctx, logger, StepProgram, l.opts.Program)

	l.opts.Banner.Exited(it.Program.ExitCode)

	it.Duration = time.Since(it.Started)

	if l.opts.Recorder != nil {
		l.opts.Recorder.ObserveIteration(it.Program.ExitCode)
	}

	if l.opts.Tracker != nil {
		l.report(logger)
	}

	logger.Debug("iteration complete",
		slog.String("trigger", trigger),
		slog.Int("exitCode", it.Program.ExitCode),
		slog.Duration("duration", it.Duration),
	)

	return it
}

func (l *Loop) step(ctx context.Context, logger *slog.Logger, name string, cmd runner.Command) runner.Result {
	res := l.opts.Executor.Run(ctx, cmd)

	if l.opts.Recorder != nil {
		l.opts.Recorder.ObserveStep(name, res.Duration, res.Failed())
	}

	attrs := []any{
		slog.String("step", name),
		slog.Int("exitCode", res.ExitCode),
		slog.Duration("duration", res.Duration),
	}

	switch {
	case res.Err != nil && name == StepFormat:
		logger.Warn("formatter failed", append(attrs, slog.String("error", res.Err.Error()))...)
	case res.Err != nil && res.ExitCode == runner.ExitCodeNotRunnable:
		logger.Error("program could not be started", append(attrs, slog.String("error", res.Err.Error()))...)
	default:
		logger.Debug("step finished", attrs...)
	}

	return res
}

func (l *Loop) report(logger *slog.Logger) {
	report, err := l.opts.Tracker.Observe()
	if err != nil {
		logger.Warn("comparing output",
			slog.String("path", l.opts.Tracker.Path()),
			slog.String("error", err.Error()),
		)
		return
	}

	l.opts.Banner.Note("output: " + report.Summary)

	if report.Diff != "" {
		l.opts.Banner.Note(report.Diff)
	}
}
