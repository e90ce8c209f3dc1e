package main

import (
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/hookguard/internal/telemetry"
)

func newMetricsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Work with recorded session metrics",
	}

	var textfile string
	export := &cobra.Command{
		Use:   "export",
		Short: "Print metrics in the Prometheus text format",
		Long: `Print the current session counters and the recorded metric series in the
Prometheus text exposition format.

With --textfile the output is written atomically to a file for the
node_exporter textfile collector instead.

Examples:
  hookguard metrics export
  hookguard metrics export --textfile /var/lib/node_exporter/hookguard.prom`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.openEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			reg := telemetry.NewRegistry(env.state)
			if textfile != "" {
				if err := telemetry.WriteTextfile(textfile, reg); err != nil {
					return err
				}
				cmd.Printf("Wrote %s\n", textfile)
				return nil
			}
			return telemetry.WriteText(cmd.OutOrStdout(), reg)
		},
	}
	export.Flags().StringVar(&textfile, "textfile", "", "write to this file instead of stdout")

	cmd.AddCommand(export)
	return cmd
}
