package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the session record",
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Archive the current session and start a new one",
		Long: `Archive the current session as session-<id>.json and start a fresh one.
Modification, verification and commit history restart from zero. The archive
is removed by cleanup once it is older than the retention period.

Examples:
  hookguard session reset`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.openEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			sess, err := env.state.ResetSession()
			if err != nil {
				return fmt.Errorf("failed to reset session: %w", err)
			}
			cmd.Printf("Started session %s\n", sess.SessionID)
			return nil
		},
	}

	cmd.AddCommand(reset)
	return cmd
}
