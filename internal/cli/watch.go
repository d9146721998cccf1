package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/srcwatch/internal/config"
	"github.com/hupe1980/srcwatch/internal/logging"
	"github.com/hupe1980/srcwatch/internal/loop"
	"github.com/hupe1980/srcwatch/internal/metrics"
	"github.com/hupe1980/srcwatch/internal/watch"
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the source directory and re-run on every change",
		Long: `Watch blocks on write-close events under the source directory. For each
event it runs the formatter over the project, then runs the program with
-i <input> -o <output>, printing a banner before and after each step.

A failing formatter or program never stops the watch; only an interrupt
(SIGINT/SIGTERM) or a broken watch primitive does. The watch is re-armed
after each run, so writes made by the formatter itself do not retrigger it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runWatch(ctx, cmd)
		},
	}

	registerWatchFlags(cmd)
	registerIterationFlags(cmd)

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command) error {
	cfg := config.FromContext(cmd.Context())
	logger := logging.FromContext(cmd.Context())

	p, err := buildPipeline(cfg)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	src, err := watch.Open(watch.Options{
		Dir:      cfg.WatchDir,
		Backend:  cfg.Backend,
		Ignore:   cfg.Ignore,
		Coalesce: cfg.Coalesce,
		Logger:   logger,
	})
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	defer func() { _ = src.Close() }()

	g, gctx := errgroup.WithContext(ctx)

	var recorder loop.Recorder

	if cfg.MetricsAddr != "" {
		m := metrics.New()
		recorder = m

		g.Go(func() error {
			return metrics.Serve(gctx, cfg.MetricsAddr, m, logger)
		})
	}

	l := loop.New(src, p.loopOptions(cmd, cfg, logger, recorder))

	logger.Info("watching for changes",
		slog.String("dir", cfg.WatchDir),
		slog.String("backend", watch.ResolveBackend(cfg.Backend)),
		slog.String("formatter", p.formatter.String()),
		slog.String("program", p.program.String()),
	)

	g.Go(func() error {
		return l.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	logger.Info("watch stopped")

	return nil
}
