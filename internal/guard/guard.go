// Package guard implements the hook handlers. Each handler combines the
// decision engine, the sub-agent invoker and the session state into one
// protocol response.
//
// Handlers never fail on state persistence: a failed write is logged and
// the decision is still delivered.
package guard

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/hookguard/internal/config"
	"github.com/fyrsmithlabs/hookguard/internal/decision"
	"github.com/fyrsmithlabs/hookguard/internal/gitstatus"
	"github.com/fyrsmithlabs/hookguard/internal/hooks"
	"github.com/fyrsmithlabs/hookguard/internal/logging"
	"github.com/fyrsmithlabs/hookguard/internal/secrets"
	"github.com/fyrsmithlabs/hookguard/internal/state"
	"github.com/fyrsmithlabs/hookguard/internal/subagent"
)

// StatusFunc reads the git status of a project directory.
type StatusFunc func(projectDir string) (*gitstatus.Status, error)

// Redactor scrubs credentials from free text.
type Redactor interface {
	Redact(content string) (string, []secrets.Finding)
}

// Guard holds everything one hook invocation needs.
type Guard struct {
	cfg        *config.Config
	engine     *decision.Engine
	invoker    *subagent.Invoker
	state      *state.Manager
	logger     *logging.Logger
	redactor   Redactor
	gitStatus  StatusFunc
	projectDir string
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

// WithRedactor scrubs prompts before they are stored.
func WithRedactor(r Redactor) Option {
	return func(g *Guard) { g.redactor = r }
}

// WithGitStatus overrides how git status is read.
func WithGitStatus(fn StatusFunc) Option {
	return func(g *Guard) { g.gitStatus = fn }
}

// New creates a guard for projectDir.
func New(cfg *config.Config, engine *decision.Engine, st *state.Manager, projectDir string, opts ...Option) (*Guard, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if engine == nil {
		e, err := decision.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create decision engine: %w", err)
		}
		engine = e
	}
	if st == nil {
		return nil, errors.New("state manager is required")
	}

	g := &Guard{
		cfg:        cfg,
		engine:     engine,
		invoker:    subagent.NewInvoker(cfg),
		state:      st,
		logger:     logging.NewNop(),
		gitStatus:  gitstatus.Read,
		projectDir: projectDir,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = logging.NewNop()
	}
	return g, nil
}

// Register installs the handlers on m.
func (g *Guard) Register(m *hooks.Manager) {
	m.Register(hooks.EventPreToolUse, g.PreToolUse)
	m.Register(hooks.EventPostToolUse, g.PostToolUse)
	m.Register(hooks.EventUserPromptSubmit, g.UserPromptSubmit)
	m.Register(hooks.EventStop, g.Stop)
}

// session loads the current session. A corrupt record is replaced by a
// fresh one.
func (g *Guard) session(ctx context.Context) *state.Session {
	s, err := g.state.LoadSession()
	if err != nil {
		g.logger.Warn(ctx, "failed to load session, starting fresh", zap.Error(err))
	}
	return s
}

// persist logs a failed state write. The decision is delivered regardless.
func (g *Guard) persist(ctx context.Context, what string, err error) {
	if err != nil {
		g.logger.Error(ctx, "failed to persist state", zap.String("record", what), zap.Error(err))
	}
}

func (g *Guard) livingDoc() string {
	if doc := g.cfg.SubAgents.DocsSync.LivingDoc; doc != "" {
		return doc
	}
	return config.DefaultLivingDoc
}

func (g *Guard) dir(req *hooks.Request) string {
	if g.projectDir != "" {
		return g.projectDir
	}
	return req.Cwd
}
