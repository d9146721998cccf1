package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/srcwatch/internal/config"
	"github.com/hupe1980/srcwatch/internal/logging"
	"github.com/hupe1980/srcwatch/internal/loop"
)

// manualTrigger is shown in the change banner of a run not caused by an event.
const manualTrigger = "(manual)"

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Format and run the program once, without watching",
		Long: `Run performs a single iteration of the watch loop: it formats the project,
runs the program with -i <input> -o <output>, and prints the same banners as
watch. The program's exit code is reported in the banner, not returned.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			logger := logging.FromContext(cmd.Context())

			p, err := buildPipeline(cfg)
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}

			l := loop.New(nil, p.loopOptions(cmd, cfg, logger, nil))
			it := l.Iterate(cmd.Context(), manualTrigger)

			logger.Info("run finished",
				slog.String("run", it.ID),
				slog.Int("exitCode", it.Program.ExitCode),
				slog.Duration("duration", it.Duration),
			)

			return nil
		},
	}

	registerIterationFlags(cmd)

	return cmd
}
