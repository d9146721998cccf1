package cli

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/srcwatch/internal/config"
)

// Flags carry no local state: config.Load binds them through viper, so a
// flag only wins over env and file values when it was set explicitly.

// registerIterationFlags adds the flags that shape one format-and-run pass.
func registerIterationFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("formatter", config.DefaultFormatter, "formatter command line, run over the whole project")
	f.String("program", config.DefaultProgram, "downstream program command line (without -i/-o)")
	f.StringP("input", "i", config.DefaultInput, "file passed to the program as -i")
	f.StringP("output", "o", config.DefaultOutput, "file passed to the program as -o")
	f.Bool("report-changes", false, "summarize changes to the output file after each run")
	f.Bool("show-diff", false, "print a unified diff of the output file after each run")
}

// registerWatchFlags adds the flags that configure the watch primitive.
func registerWatchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("watch-dir", config.DefaultWatchDir, "directory watched for write-close events")
	f.String("backend", config.BackendAuto, "watch backend: auto, inotify, fsnotify")
	f.StringSlice("ignore", nil, "base-name glob patterns that never trigger a run")
	f.Duration("coalesce", 0, "fold bursts of events into one run after this quiet period (0 disables)")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
}
