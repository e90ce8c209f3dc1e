// Package main implements the hookguard CLI: the hook adapter the agent
// runs on every lifecycle event, plus commands to inspect and manage the
// per-project state.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/hookguard/internal/config"
	"github.com/fyrsmithlabs/hookguard/internal/logging"
	"github.com/fyrsmithlabs/hookguard/internal/state"
)

// version information
var version = "dev"

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	projectDir string
	stateDir   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "hookguard",
		Short: "Policy hooks for coding agents",
		Long: `hookguard runs as a lifecycle hook for a coding agent. It reviews each
proposed tool action, tracks what the session changed, and reminds the agent
to verify, review, commit and document its work.

Register it in a project with:
  hookguard install

Inspect the current session with:
  hookguard status`,
		Version:       version,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default <project>/.claude/hooks/config.json)")
	root.PersistentFlags().StringVar(&opts.projectDir, "project-dir", "", "project directory (default $CLAUDE_PROJECT_DIR or the working directory)")
	root.PersistentFlags().StringVar(&opts.stateDir, "state-dir", "", "state directory (default state.dir or <project>/.claude/hooks/state)")

	root.AddCommand(
		newHookCmd(opts),
		newStatusCmd(opts),
		newSessionCmd(opts),
		newCleanupCmd(opts),
		newMetricsCmd(opts),
		newInitCmd(opts),
		newInstallCmd(opts),
		newUninstallCmd(opts),
	)
	return root
}

// resolveProjectDir applies the flag, then CLAUDE_PROJECT_DIR, then fallback,
// then the working directory.
func (o *globalOptions) resolveProjectDir(fallback string) (string, error) {
	for _, dir := range []string{o.projectDir, os.Getenv("CLAUDE_PROJECT_DIR"), fallback} {
		if dir != "" {
			return dir, nil
		}
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return wd, nil
}

// loadConfig loads the project configuration. An unusable file yields the
// disabled configuration together with the load error.
func (o *globalOptions) loadConfig(projectDir string) (*config.Config, error) {
	cfg, err := config.Load(config.ResolvePath(projectDir, o.configPath))
	if err != nil {
		return config.Disabled(), err
	}
	return cfg, nil
}

// resolveStateDir returns the flag value or the configured directory.
func (o *globalOptions) resolveStateDir(cfg *config.Config, projectDir string) string {
	if o.stateDir != "" {
		return o.stateDir
	}
	return cfg.StateDir(projectDir)
}

// newLogger builds the logger described by cfg, falling back to the
// default stderr logger.
func newLogger(cfg *config.Config) *logging.Logger {
	lc, err := logging.FromSettings(cfg.Logging)
	if err == nil {
		if logger, err := logging.NewLogger(lc); err == nil {
			return logger
		}
	}
	logger, err := logging.NewLogger(logging.NewDefaultConfig())
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// environment is what the management commands share: a configuration, a
// logger and the state manager.
type environment struct {
	projectDir string
	cfg        *config.Config
	logger     *logging.Logger
	state      *state.Manager
}

func (o *globalOptions) openEnvironment(ctx context.Context) (*environment, error) {
	projectDir, err := o.resolveProjectDir("")
	if err != nil {
		return nil, err
	}
	cfg, cfgErr := o.loadConfig(projectDir)
	logger := newLogger(cfg)
	if cfgErr != nil {
		logger.Warn(ctx, "using disabled configuration", zap.Error(cfgErr))
	}
	st, err := state.NewManager(o.resolveStateDir(cfg, projectDir), state.WithLogger(logger.Underlying()))
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to open state: %w", err)
	}
	return &environment{projectDir: projectDir, cfg: cfg, logger: logger, state: st}, nil
}

func (e *environment) close() {
	_ = e.logger.Sync()
}
