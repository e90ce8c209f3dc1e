package decision

import (
	"fmt"

	"github.com/fyrsmithlabs/hookguard/internal/config"
	"github.com/fyrsmithlabs/hookguard/internal/hooks"
	"github.com/fyrsmithlabs/hookguard/internal/patterns"
	"github.com/fyrsmithlabs/hookguard/internal/secrets"
)

// Verdict is the outcome of an evaluation.
type Verdict string

const (
	Approve Verdict = "approve"
	Block   Verdict = "block"
)

// Gate names the check that produced a result.
type Gate string

const (
	GateNone         Gate = ""
	GateVerification Gate = "verification"
	GateSecrets      Gate = "secrets"
	GateQuality      Gate = "quality"
	GateOptimization Gate = "optimization"
)

// Tool names the engine distinguishes.
const (
	ToolWrite        = "Write"
	ToolEdit         = "Edit"
	ToolMultiEdit    = "MultiEdit"
	ToolNotebookEdit = "NotebookEdit"
	ToolBash         = "Bash"
)

// IsMutation reports whether tool changes file content.
func IsMutation(tool string) bool {
	switch tool {
	case ToolWrite, ToolEdit, ToolMultiEdit, ToolNotebookEdit:
		return true
	}
	return false
}

func verifiable(tool string) bool {
	switch tool {
	case ToolWrite, ToolEdit, ToolMultiEdit:
		return true
	}
	return false
}

// Context carries the session counts an evaluation depends on.
type Context struct {
	VerificationCount  int
	ModifiedFilesCount int
}

// Result is the engine's decision.
type Result struct {
	Verdict       Verdict
	Reason        string
	ModifiedInput hooks.ToolInput
	Gate          Gate
	Matches       []patterns.Match
}

// Blocked reports whether the result blocks the action.
func (r Result) Blocked() bool {
	return r.Verdict == Block
}

// SecretScanner finds credentials in a payload.
type SecretScanner interface {
	Scan(path, content string) []secrets.Finding
}

// Engine evaluates tool calls against one configuration snapshot.
type Engine struct {
	cfg       *config.Config
	rules     *patterns.RuleSet
	excludes  []string
	scanner   SecretScanner
	optimizer *Optimizer
}

// Option configures an Engine.
type Option func(*Engine)

// WithSecretScanner enables the secrets category.
func WithSecretScanner(s SecretScanner) Option {
	return func(e *Engine) { e.scanner = s }
}

// WithExcludePatterns adds exclude patterns, typically from .hookignore.
func WithExcludePatterns(patterns ...string) Option {
	return func(e *Engine) { e.excludes = append(e.excludes, patterns...) }
}

// WithLookPath overrides how the optimizer finds installed tools.
func WithLookPath(fn LookPathFunc) Option {
	return func(e *Engine) { e.optimizer.lookPath = fn }
}

// New builds an engine. It fails only when a custom rule does not compile.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	custom, err := cfg.CustomRules()
	if err != nil {
		return nil, fmt.Errorf("failed to compile custom rules: %w", err)
	}
	rules := patterns.DefaultRuleSet()
	rules.Add(custom...)

	e := &Engine{
		cfg:       cfg,
		rules:     rules,
		excludes:  append([]string(nil), cfg.Verification.ExcludePatterns...),
		optimizer: NewOptimizer(cfg.ToolOptimization.Replacements, nil),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Evaluate decides on one pending tool call.
func (e *Engine) Evaluate(tool string, input hooks.ToolInput, ctx Context) Result {
	if input == nil {
		input = hooks.ToolInput{}
	}
	path := input.FilePath()

	if r, ok := e.verificationGate(tool, path, input, ctx); ok {
		return r
	}

	if IsMutation(tool) && e.cfg.QualityChecks.Enabled &&
		ctx.ModifiedFilesCount >= e.cfg.Thresholds.QualityCheckFiles {
		return Result{Verdict: Block, Reason: QualityMessage(path), Gate: GateQuality}
	}

	if tool == ToolBash && e.cfg.ToolOptimization.Enabled {
		command := input.Command()
		if rewritten := e.optimizer.Rewrite(command); rewritten != command {
			modified := input.Clone()
			modified["command"] = rewritten
			return Result{Verdict: Approve, ModifiedInput: modified, Gate: GateOptimization}
		}
	}

	return Result{Verdict: Approve}
}

// verificationGate returns a block result when the payload needs
// verification.
func (e *Engine) verificationGate(tool, path string, input hooks.ToolInput, ctx Context) (Result, bool) {
	if !e.cfg.Verification.Enabled || !verifiable(tool) {
		return Result{}, false
	}
	if ctx.VerificationCount >= e.cfg.Verification.MaxVerificationsPerSession {
		return Result{}, false
	}
	if _, excluded := patterns.MatchExclude(path, e.excludes); excluded {
		return Result{}, false
	}

	payload := input.Payload()
	if payload == "" {
		return Result{}, false
	}

	if categories := e.patternCategories(); len(categories) > 0 {
		if matches := e.rules.Match(payload, categories...); len(matches) > 0 {
			return Result{
				Verdict: Block,
				Reason:  VerificationMessage(path),
				Gate:    GateVerification,
				Matches: matches,
			}, true
		}
	}

	if e.scanner != nil && e.cfg.CategoryEnabled(config.CategorySecrets) {
		if findings := e.scanner.Scan(path, payload); len(findings) > 0 {
			return Result{
				Verdict: Block,
				Reason:  SecretMessage(path, secrets.RuleIDs(findings)),
				Gate:    GateSecrets,
			}, true
		}
	}

	return Result{}, false
}

// patternCategories returns the enabled categories backed by rule tables.
func (e *Engine) patternCategories() []patterns.Category {
	var out []patterns.Category
	for _, c := range e.cfg.Verification.EnabledCategories {
		if c == config.CategorySecrets {
			continue
		}
		out = append(out, patterns.Category(c))
	}
	return out
}
