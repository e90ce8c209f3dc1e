package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "HOOKGUARD_"
)

// Candidate file names, in lookup order, under <project>/.claude/hooks.
var configFileNames = []string{"config.json", "config.yaml", "config.yml"}

// sections lists top-level keys, longest first so that the env transformer
// prefers "quality_checks" over a hypothetical "quality".
var sections = []string{
	"tool_optimization",
	"quality_checks",
	"notifications",
	"verification",
	"sub_agents",
	"thresholds",
	"logging",
	"secrets",
	"state",
}

// track_claude_md is the older name of track_living_doc. The new key wins
// when both are present.
const (
	trackLivingDocKey       = "sub_agents.docs-sync.track_living_doc"
	legacyTrackLivingDocKey = "sub_agents.docs-sync.track_claude_md"
)

var agentKeys = map[string]string{
	"quality_guardian": AgentQualityGuardian,
	"docs_sync":        AgentDocsSync,
}

// HooksDir returns the per-project hook directory.
func HooksDir(projectDir string) string {
	return filepath.Join(projectDir, ".claude", "hooks")
}

// ResolvePath picks the configuration file for a project. An explicit path
// always wins. Otherwise the first existing candidate is returned, falling
// back to config.json (which may not exist).
func ResolvePath(projectDir, explicit string) string {
	if explicit != "" {
		return explicit
	}
	dir := HooksDir(projectDir)
	for _, name := range configFileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return filepath.Join(dir, configFileNames[0])
}

// Load loads configuration from a JSON or YAML file, then overrides it with
// HOOKGUARD_* environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (HOOKGUARD_VERIFICATION_ENABLED, etc.)
//  2. Config file (.claude/hooks/config.json or config.yaml)
//  3. Defaults
//
// Keys left out of the file keep their defaults. A numeric key set to 0
// keeps 0; an empty string takes the default.
//
// A missing file is not an error. A file that cannot be parsed or fails
// validation is, wrapped in ErrInvalidConfig.
//
// # Environment Variable Mapping
//
// The prefix is stripped, the rest lowercased and split after the first
// known section name:
//
//	HOOKGUARD_VERIFICATION_ENABLED              -> verification.enabled
//	HOOKGUARD_THRESHOLDS_COMMIT_REMINDER        -> thresholds.commit_reminder
//	HOOKGUARD_SUB_AGENTS_DOCS_SYNC_LIVING_DOC   -> sub_agents.docs-sync.living_doc
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	content, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	if content != nil {
		if err := k.Load(rawbytes.Provider(content), parserFor(path)); err != nil {
			return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfig, path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if k.Exists(legacyTrackLivingDocKey) && !k.Exists(trackLivingDocKey) {
		if err := k.Set(trackLivingDocKey, k.Get(legacyTrackLivingDocKey)); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, legacyTrackLivingDocKey, err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal config: %v", ErrInvalidConfig, err)
	}

	applyDefaults(cfg, k.Exists)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return cfg, nil
}

// readConfigFile returns nil content when the file does not exist.
func readConfigFile(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	// Open once and validate through the descriptor to avoid TOCTOU races.
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	default:
		return json.Parser()
	}
}

// validateConfigFileProperties checks the file is regular and not oversized.
func validateConfigFileProperties(info os.FileInfo) error {
	if info.IsDir() {
		return fmt.Errorf("config path is a directory")
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}

// envKey maps HOOKGUARD_SECTION_FIELD_NAME to section.field_name. Variables
// that do not start with a known section are dropped.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))

	for _, section := range sections {
		if !strings.HasPrefix(lower, section+"_") {
			continue
		}
		field := strings.TrimPrefix(lower, section+"_")
		if section == "sub_agents" {
			for key, agent := range agentKeys {
				if strings.HasPrefix(field, key+"_") {
					return section + "." + agent + "." + strings.TrimPrefix(field, key+"_")
				}
			}
			return ""
		}
		return section + "." + field
	}
	return ""
}
