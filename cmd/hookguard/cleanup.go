package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCleanupCmd(opts *globalOptions) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove stale state records",
		Long: `Remove state records not modified within the retention period.

The period defaults to state.retention_days. The Stop hook runs the same
cleanup at the end of every turn.

Examples:
  hookguard cleanup
  hookguard cleanup --days 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.openEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			if !cmd.Flags().Changed("days") {
				days = env.cfg.State.RetentionDays
			}
			if days <= 0 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}

			removed, err := env.state.CleanupOldStates(days)
			if err != nil {
				return fmt.Errorf("cleanup failed: %w", err)
			}
			for _, name := range removed {
				cmd.Printf("removed %s\n", name)
			}
			cmd.Printf("Removed %d record(s) older than %d day(s)\n", len(removed), days)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "retention period in days (default state.retention_days)")
	return cmd
}
