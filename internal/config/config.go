// Package config provides policy configuration for hookguard.
//
// Configuration is read once per hook invocation and treated as an immutable
// snapshot. Every section defaults to its safe value: features disabled,
// thresholds at the documented defaults, lists empty. A missing file is not
// an error; a malformed one is, and callers fall back to Default().
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fyrsmithlabs/hookguard/internal/patterns"
)

// Verification categories understood by the decision engine.
const (
	CategoryLibraryUsage   = string(patterns.CategoryLibraryUsage)
	CategoryAPIIntegration = string(patterns.CategoryAPIIntegration)
	CategorySecrets        = "secrets"
)

// Sub-agent names.
const (
	AgentQualityGuardian = "quality-guardian"
	AgentDocsSync        = "docs-sync"
)

// Config holds the complete hookguard policy configuration.
type Config struct {
	Verification     VerificationConfig  `koanf:"verification" json:"verification" yaml:"verification"`
	QualityChecks    QualityConfig       `koanf:"quality_checks" json:"quality_checks" yaml:"quality_checks"`
	ToolOptimization OptimizationConfig  `koanf:"tool_optimization" json:"tool_optimization" yaml:"tool_optimization"`
	SubAgents        SubAgentsConfig     `koanf:"sub_agents" json:"sub_agents" yaml:"sub_agents"`
	Thresholds       ThresholdsConfig    `koanf:"thresholds" json:"thresholds" yaml:"thresholds"`
	Notifications    NotificationsConfig `koanf:"notifications" json:"notifications" yaml:"notifications"`
	State            StateConfig         `koanf:"state" json:"state" yaml:"state"`
	Secrets          SecretsConfig       `koanf:"secrets" json:"secrets" yaml:"secrets"`
	Logging          LoggingConfig       `koanf:"logging" json:"logging" yaml:"logging"`
}

// VerificationConfig controls the assumption-verification gate.
type VerificationConfig struct {
	Enabled                    bool         `koanf:"enabled" json:"enabled" yaml:"enabled"`
	EnabledCategories          []string     `koanf:"enabled_categories" json:"enabled_categories" yaml:"enabled_categories"`
	MaxVerificationsPerSession int          `koanf:"max_verifications_per_session" json:"max_verifications_per_session" yaml:"max_verifications_per_session"`
	ExcludePatterns            []string     `koanf:"exclude_patterns" json:"exclude_patterns" yaml:"exclude_patterns"`
	IgnoreFile                 string       `koanf:"ignore_file" json:"ignore_file" yaml:"ignore_file"`
	CustomRules                []RuleConfig `koanf:"custom_rules" json:"custom_rules,omitempty" yaml:"custom_rules,omitempty"`
}

// RuleConfig declares an additional classification rule.
type RuleConfig struct {
	Name     string `koanf:"name" json:"name" yaml:"name"`
	Category string `koanf:"category" json:"category" yaml:"category"`
	Pattern  string `koanf:"pattern" json:"pattern" yaml:"pattern"`
}

// QualityConfig controls the quality gate and systematic checks.
type QualityConfig struct {
	Enabled                bool `koanf:"enabled" json:"enabled" yaml:"enabled"`
	SystematicVerification bool `koanf:"systematic_verification" json:"systematic_verification" yaml:"systematic_verification"`
}

// OptimizationConfig controls legacy-to-modern tool rewriting.
type OptimizationConfig struct {
	Enabled      bool              `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Replacements map[string]string `koanf:"replacements" json:"replacements" yaml:"replacements"`
}

// SubAgentsConfig holds per-agent escalation settings.
type SubAgentsConfig struct {
	QualityGuardian QualityGuardianConfig `koanf:"quality-guardian" json:"quality-guardian" yaml:"quality-guardian"`
	DocsSync        DocsSyncConfig        `koanf:"docs-sync" json:"docs-sync" yaml:"docs-sync"`
}

// QualityGuardianConfig configures the quality reviewer.
type QualityGuardianConfig struct {
	Enabled            bool     `koanf:"enabled" json:"enabled" yaml:"enabled"`
	TriggerThreshold   int      `koanf:"trigger_threshold" json:"trigger_threshold" yaml:"trigger_threshold"`
	AutoInvokePatterns []string `koanf:"auto_invoke_patterns" json:"auto_invoke_patterns" yaml:"auto_invoke_patterns"`
	BlockOnComplexity  bool     `koanf:"block_on_complexity" json:"block_on_complexity" yaml:"block_on_complexity"`
}

// DocsSyncConfig configures the documentation-sync reviewer.
type DocsSyncConfig struct {
	Enabled             bool     `koanf:"enabled" json:"enabled" yaml:"enabled"`
	AutoTriggerCommits  int      `koanf:"auto_trigger_commits" json:"auto_trigger_commits" yaml:"auto_trigger_commits"`
	TrackLivingDoc      bool     `koanf:"track_living_doc" json:"track_living_doc" yaml:"track_living_doc"`
	LivingDoc           string   `koanf:"living_doc" json:"living_doc" yaml:"living_doc"`
	BlockOnMajorChanges bool     `koanf:"block_on_major_changes" json:"block_on_major_changes" yaml:"block_on_major_changes"`
	AutoInvokePatterns  []string `koanf:"auto_invoke_patterns" json:"auto_invoke_patterns,omitempty" yaml:"auto_invoke_patterns,omitempty"`
}

// ThresholdsConfig holds file-count thresholds.
type ThresholdsConfig struct {
	QualityCheckFiles int `koanf:"quality_check_files" json:"quality_check_files" yaml:"quality_check_files"`
	DocUpdateFiles    int `koanf:"doc_update_files" json:"doc_update_files" yaml:"doc_update_files"`
	CommitReminder    int `koanf:"commit_reminder" json:"commit_reminder" yaml:"commit_reminder"`
}

// NotificationsConfig controls advisory output.
type NotificationsConfig struct {
	ShowSubAgentTips bool `koanf:"show_sub_agent_tips" json:"show_sub_agent_tips" yaml:"show_sub_agent_tips"`
}

// StateConfig controls persisted state.
type StateConfig struct {
	Dir           string   `koanf:"dir" json:"dir" yaml:"dir"`
	CacheTTL      Duration `koanf:"cache_ttl" json:"cache_ttl" yaml:"cache_ttl"`
	RetentionDays int      `koanf:"retention_days" json:"retention_days" yaml:"retention_days"`
}

// SecretsConfig controls the secrets verification category.
type SecretsConfig struct {
	Allowlist string `koanf:"allowlist" json:"allowlist" yaml:"allowlist"`
}

// LoggingConfig controls diagnostic logging. Logs never go to stdout.
type LoggingConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Format string `koanf:"format" json:"format" yaml:"format"`
	File   string `koanf:"file" json:"file" yaml:"file"`
}

// Defaults for numeric thresholds and paths.
const (
	DefaultMaxVerifications   = 5
	DefaultQualityCheckFiles  = 5
	DefaultDocUpdateFiles     = 10
	DefaultCommitReminder     = 3
	DefaultTriggerThreshold   = 5
	DefaultAutoTriggerCommits = 3
	DefaultCacheTTL           = 4 * time.Hour
	DefaultRetentionDays      = 7
	DefaultLivingDoc          = "CLAUDE.md"
	DefaultIgnoreFile         = ".hookignore"
	DefaultStateDir           = ".claude/hooks/state"
)

// Default returns the safe configuration: every feature disabled.
func Default() *Config {
	cfg := &Config{
		SubAgents: SubAgentsConfig{
			DocsSync: DocsSyncConfig{TrackLivingDoc: true},
		},
		Notifications: NotificationsConfig{ShowSubAgentTips: true},
	}
	applyDefaults(cfg, nil)
	return cfg
}

// Example returns a configuration with every feature switched on, suitable
// as a starting point for a project.
func Example() *Config {
	cfg := Default()
	cfg.Verification.Enabled = true
	cfg.Verification.EnabledCategories = []string{CategoryLibraryUsage, CategoryAPIIntegration, CategorySecrets}
	cfg.Verification.ExcludePatterns = []string{"*.md", "*.txt", "*.json", "test/", "tests/", "node_modules/", "vendor/"}
	cfg.QualityChecks.Enabled = true
	cfg.QualityChecks.SystematicVerification = true
	cfg.ToolOptimization.Enabled = true
	cfg.ToolOptimization.Replacements = map[string]string{"grep": "rg", "find": "fd"}
	cfg.SubAgents.QualityGuardian = QualityGuardianConfig{
		Enabled:            true,
		TriggerThreshold:   DefaultTriggerThreshold,
		AutoInvokePatterns: []string{"refactor", "optimize", "clean up", "review"},
		BlockOnComplexity:  true,
	}
	cfg.SubAgents.DocsSync = DocsSyncConfig{
		Enabled:             true,
		AutoTriggerCommits:  DefaultAutoTriggerCommits,
		TrackLivingDoc:      true,
		LivingDoc:           DefaultLivingDoc,
		BlockOnMajorChanges: true,
	}
	return cfg
}

// applyDefaults fills unset fields. Empty strings always take their
// default. A numeric field whose key explicit reports as set keeps its
// value even when zero; state.retention_days: 0 switches cleanup off. A
// nil explicit treats every key as unset.
func applyDefaults(cfg *Config, explicit func(key string) bool) {
	if explicit == nil {
		explicit = func(string) bool { return false }
	}
	defaultInt := func(v *int, key string, def int) {
		if *v == 0 && !explicit(key) {
			*v = def
		}
	}
	defaultString := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}

	defaultInt(&cfg.Verification.MaxVerificationsPerSession, "verification.max_verifications_per_session", DefaultMaxVerifications)
	defaultInt(&cfg.Thresholds.QualityCheckFiles, "thresholds.quality_check_files", DefaultQualityCheckFiles)
	defaultInt(&cfg.Thresholds.DocUpdateFiles, "thresholds.doc_update_files", DefaultDocUpdateFiles)
	defaultInt(&cfg.Thresholds.CommitReminder, "thresholds.commit_reminder", DefaultCommitReminder)
	defaultInt(&cfg.SubAgents.QualityGuardian.TriggerThreshold, "sub_agents.quality-guardian.trigger_threshold", DefaultTriggerThreshold)
	defaultInt(&cfg.SubAgents.DocsSync.AutoTriggerCommits, "sub_agents.docs-sync.auto_trigger_commits", DefaultAutoTriggerCommits)
	defaultInt(&cfg.State.RetentionDays, "state.retention_days", DefaultRetentionDays)
	// a zero TTL always means the default
	if cfg.State.CacheTTL == 0 {
		cfg.State.CacheTTL = Duration(DefaultCacheTTL)
	}

	defaultString(&cfg.Verification.IgnoreFile, DefaultIgnoreFile)
	defaultString(&cfg.SubAgents.DocsSync.LivingDoc, DefaultLivingDoc)
	defaultString(&cfg.State.Dir, DefaultStateDir)
	defaultString(&cfg.Logging.Level, "warn")
	defaultString(&cfg.Logging.Format, "json")
}

// CategoryEnabled reports whether a verification category is switched on.
func (c *Config) CategoryEnabled(category string) bool {
	for _, enabled := range c.Verification.EnabledCategories {
		if enabled == category {
			return true
		}
	}
	return false
}

// CustomRules compiles the configured extra classification rules.
func (c *Config) CustomRules() ([]patterns.Rule, error) {
	rules := make([]patterns.Rule, 0, len(c.Verification.CustomRules))
	for _, rc := range c.Verification.CustomRules {
		r, err := patterns.Compile(rc.Name, patterns.Category(rc.Category), rc.Pattern)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// SortedReplacements returns the legacy tool names in a stable order.
func (c *Config) SortedReplacements() []string {
	keys := make([]string, 0, len(c.ToolOptimization.Replacements))
	for k := range c.ToolOptimization.Replacements {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate validates the configuration.
//
// Returns an error if:
//   - any threshold or limit is negative
//   - an exclude pattern is not a valid glob
//   - a replacement names an empty tool, contains whitespace or chains
//   - a custom rule does not compile
//   - the logging format is neither json nor console
func (c *Config) Validate() error {
	var errs []error

	if c.Verification.MaxVerificationsPerSession < 0 {
		errs = append(errs, fmt.Errorf("verification.max_verifications_per_session must be >= 0, got %d", c.Verification.MaxVerificationsPerSession))
	}
	for _, p := range c.Verification.ExcludePatterns {
		if !patterns.ValidExcludePattern(p) {
			errs = append(errs, fmt.Errorf("verification.exclude_patterns: invalid pattern %q", p))
		}
	}
	if _, err := c.CustomRules(); err != nil {
		errs = append(errs, fmt.Errorf("verification.custom_rules: %w", err))
	}

	for legacy, modern := range c.ToolOptimization.Replacements {
		if legacy == "" || modern == "" || strings.ContainsAny(legacy+modern, " \t\n") {
			errs = append(errs, fmt.Errorf("tool_optimization.replacements: invalid mapping %q -> %q", legacy, modern))
		}
		if _, chained := c.ToolOptimization.Replacements[modern]; chained {
			errs = append(errs, fmt.Errorf("tool_optimization.replacements: %q is itself replaced", modern))
		}
	}

	thresholds := map[string]int{
		"thresholds.quality_check_files":                c.Thresholds.QualityCheckFiles,
		"thresholds.doc_update_files":                   c.Thresholds.DocUpdateFiles,
		"thresholds.commit_reminder":                    c.Thresholds.CommitReminder,
		"sub_agents.quality-guardian.trigger_threshold": c.SubAgents.QualityGuardian.TriggerThreshold,
		"sub_agents.docs-sync.auto_trigger_commits":     c.SubAgents.DocsSync.AutoTriggerCommits,
		"state.retention_days":                          c.State.RetentionDays,
	}
	names := make([]string, 0, len(thresholds))
	for name := range thresholds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if thresholds[name] < 0 {
			errs = append(errs, fmt.Errorf("%s must be >= 0, got %d", name, thresholds[name]))
		}
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("logging.format must be 'json' or 'console', got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// StateDir resolves the state directory for projectDir. A relative
// state.dir is taken relative to the project.
func (c *Config) StateDir(projectDir string) string {
	dir := c.State.Dir
	if dir == "" {
		dir = DefaultStateDir
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(projectDir, dir)
}

// Disabled returns the configuration used when the policy file cannot be
// loaded: every gate off, nothing blocks.
func Disabled() *Config {
	cfg := Default()
	cfg.Notifications.ShowSubAgentTips = false
	return cfg
}
