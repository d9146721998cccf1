package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/srcwatch/internal/banner"
	"github.com/hupe1980/srcwatch/internal/config"
	"github.com/hupe1980/srcwatch/internal/loop"
	"github.com/hupe1980/srcwatch/internal/outdiff"
	"github.com/hupe1980/srcwatch/internal/runner"
)

// pipeline is the resolved pair of commands an iteration runs.
type pipeline struct {
	formatter runner.Command
	program   runner.Command
	tracker   *outdiff.Tracker
}

// buildPipeline parses the configured command lines and appends the fixed
// input and output arguments to the program.
func buildPipeline(cfg *config.Config) (*pipeline, error) {
	formatter, err := runner.ParseCommand(cfg.Formatter)
	if err != nil {
		return nil, fmt.Errorf("formatter: %w", err)
	}

	program, err := runner.ParseCommand(cfg.Program)
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}

	p := &pipeline{
		formatter: formatter,
		program:   loop.ProgramCommand(program, cfg.Input, cfg.Output),
	}

	if cfg.ReportChanges || cfg.ShowDiff {
		p.tracker = outdiff.NewTracker(cfg.Output, cfg.ShowDiff)
	}

	return p, nil
}

// loopOptions wires the pipeline to the command's streams. Banners and
// child stdout share the command's stdout; child stderr goes to its stderr.
func (p *pipeline) loopOptions(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, recorder loop.Recorder) loop.Options {
	return loop.Options{
		Formatter: p.formatter,
		Program:   p.program,
		Executor: &runner.Runner{
			Stdin:  cmd.InOrStdin(),
			Stdout: cmd.OutOrStdout(),
			Stderr: cmd.ErrOrStderr(),
		},
		Banner:   banner.New(cmd.OutOrStdout(), cfg.NoColor),
		Logger:   logger,
		Recorder: recorder,
		Tracker:  p.tracker,
	}
}
