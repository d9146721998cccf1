package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/srcwatch/internal/config"
)

func newConfigCommand() *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Config resolves flags, SRCWATCH_* environment variables, and the config
file exactly as watch would, and prints the result. Use --yaml to produce a
file that can be saved as .srcwatch.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())

			if asYAML {
				return writeConfigYAML(cmd.OutOrStdout(), cfg)
			}

			return writeConfigTable(cmd.OutOrStdout(), cfg)
		},
	}

	registerWatchFlags(cmd)
	registerIterationFlags(cmd)
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the configuration as YAML")

	return cmd
}

func writeConfigYAML(w io.Writer, cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	_, err = w.Write(data)

	return err
}

func writeConfigTable(w io.Writer, cfg *config.Config) error {
	source := cfg.ConfigFile
	if source == "" {
		source = "(none)"
	}

	rows := [][]string{
		{"config-file", source},
		{"log-level", cfg.LogLevel},
		{"log-format", cfg.LogFormat},
		{"no-color", strconv.FormatBool(cfg.NoColor)},
		{"quiet", strconv.FormatBool(cfg.Quiet)},
		{"watch-dir", cfg.WatchDir},
		{"backend", cfg.Backend},
		{"ignore", strings.Join(cfg.Ignore, ",")},
		{"coalesce", cfg.Coalesce.String()},
		{"formatter", cfg.Formatter},
		{"program", cfg.Program},
		{"input", cfg.Input},
		{"output", cfg.Output},
		{"report-changes", strconv.FormatBool(cfg.ReportChanges)},
		{"show-diff", strconv.FormatBool(cfg.ShowDiff)},
		{"metrics-addr", cfg.MetricsAddr},
	}

	table := tablewriter.NewWriter(w)
	table.Header("Key", "Value")

	for _, row := range rows {
		if err := table.Append(row[0], row[1]); err != nil {
			return fmt.Errorf("rendering config: %w", err)
		}
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("rendering config: %w", err)
	}

	return nil
}
