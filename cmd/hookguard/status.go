package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/hookguard/internal/monitor"
)

func newStatusCmd(opts *globalOptions) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Long: `Show what the current session has modified, verified and committed,
against the configured thresholds.

With --watch the view stays open and refreshes whenever the hook updates
the state directory. Press q to quit, r to reload.

Examples:
  hookguard status
  hookguard status --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.openEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			if !watch {
				snapshot, loadErr := monitor.Load(env.state, env.cfg)
				fmt.Fprintln(cmd.OutOrStdout(), monitor.Render(snapshot, loadErr))
				return nil
			}

			w, err := monitor.NewWatcher(env.state.Dir(), monitor.WithWatchLogger(env.logger.Underlying()))
			if err != nil {
				return err
			}
			defer w.Stop()
			w.Start(cmd.Context())

			p := tea.NewProgram(
				monitor.NewModel(env.state, env.cfg, w.Changes()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			if _, err := p.Run(); err != nil {
				env.logger.Error(cmd.Context(), "dashboard failed", zap.Error(err))
				return fmt.Errorf("dashboard failed: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep the view open and refresh on state changes")
	return cmd
}
