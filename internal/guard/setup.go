package guard

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/hookguard/internal/config"
	"github.com/fyrsmithlabs/hookguard/internal/decision"
	"github.com/fyrsmithlabs/hookguard/internal/ignore"
	"github.com/fyrsmithlabs/hookguard/internal/logging"
	"github.com/fyrsmithlabs/hookguard/internal/secrets"
	"github.com/fyrsmithlabs/hookguard/internal/state"
)

// Setup describes how to assemble a Guard for one invocation.
type Setup struct {
	Config     *config.Config
	ProjectDir string
	// StateDir overrides Config.StateDir(ProjectDir) when set.
	StateDir string
	Logger   *logging.Logger

	EngineOptions []decision.Option
	StateOptions  []state.Option
	GuardOptions  []Option
}

// Build wires the engine, secret scanner and state manager described by s.
// Optional pieces that fail to load are logged and left out.
func Build(ctx context.Context, s Setup) (*Guard, error) {
	cfg := s.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := s.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	engineOpts := []decision.Option{}
	guardOpts := []Option{WithLogger(logger)}

	excludes, err := ignore.NewParser(cfg.Verification.IgnoreFile).ParseProject(s.ProjectDir)
	if err != nil {
		logger.Warn(ctx, "failed to read ignore file", zap.Error(err))
	}
	engineOpts = append(engineOpts, decision.WithExcludePatterns(excludes...))

	if cfg.Verification.Enabled && cfg.CategoryEnabled(config.CategorySecrets) {
		if scanner := newScanner(ctx, cfg, s.ProjectDir, logger); scanner != nil {
			engineOpts = append(engineOpts, decision.WithSecretScanner(scanner))
			guardOpts = append(guardOpts, WithRedactor(scanner))
		}
	}

	engine, err := decision.New(cfg, append(engineOpts, s.EngineOptions...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create decision engine: %w", err)
	}

	dir := s.StateDir
	if dir == "" {
		dir = cfg.StateDir(s.ProjectDir)
	}
	stateOpts := append([]state.Option{state.WithLogger(logger.Underlying())}, s.StateOptions...)
	st, err := state.NewManager(dir, stateOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open state: %w", err)
	}

	return New(cfg, engine, st, s.ProjectDir, append(guardOpts, s.GuardOptions...)...)
}

func newScanner(ctx context.Context, cfg *config.Config, projectDir string, logger *logging.Logger) *secrets.Scanner {
	allowlist, err := secrets.LoadAllowlists(projectDir, cfg.Secrets.Allowlist)
	if err != nil {
		logger.Warn(ctx, "ignoring invalid secrets allowlist", zap.Error(err))
		allowlist = nil
	}
	scanner, err := secrets.NewScanner(allowlist)
	if err != nil {
		logger.Warn(ctx, "secret scanning unavailable", zap.Error(err))
		return nil
	}
	return scanner
}
