package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/hookguard/internal/config"
	"github.com/fyrsmithlabs/hookguard/internal/state"
)

var startedSession = regexp.MustCompile(`Started session ([0-9a-f]{8})`)

func TestSessionReset_ThenStatus(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, dir, "", "session", "reset")
	require.NoError(t, err)
	m := startedSession.FindStringSubmatch(out)
	require.Len(t, m, 2, "output: %q", out)

	out, err = execute(t, dir, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, m[1])
	assert.Contains(t, out, "hookguard session")
}

func TestSessionReset_ArchivesPrevious(t *testing.T) {
	dir := t.TempDir()
	stdin := `{"tool_name":"Write","tool_input":{"file_path":"a.go","content":"package a"}}`
	_, err := execute(t, dir, stdin, "hook", "--event", "PostToolUse")
	require.NoError(t, err)

	_, err = execute(t, dir, "", "session", "reset")
	require.NoError(t, err)

	archives, err := filepath.Glob(filepath.Join(dir, ".claude", "hooks", "state", "session-*.json"))
	require.NoError(t, err)
	assert.Len(t, archives, 1)
}

func TestCleanup(t *testing.T) {
	dir := t.TempDir()
	stateDir := filepath.Join(dir, ".claude", "hooks", "state")
	require.NoError(t, os.MkdirAll(stateDir, 0o700))

	stale := filepath.Join(stateDir, "session-deadbeef.json")
	fresh := filepath.Join(stateDir, state.CacheFile)
	require.NoError(t, os.WriteFile(stale, []byte(`{}`), 0o600))
	require.NoError(t, os.WriteFile(fresh, []byte(`{}`), 0o600))
	old := time.Now().Add(-10 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	out, err := execute(t, dir, "", "cleanup", "--days", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 record(s)")

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}

func TestCleanup_RejectsNonPositiveDays(t *testing.T) {
	_, err := execute(t, t.TempDir(), "", "cleanup", "--days", "0")
	assert.Error(t, err)
}

func TestMetricsExport(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, dir, `{}`, "hook", "--event", "Stop")
	require.NoError(t, err)

	out, err := execute(t, dir, "", "metrics", "export")
	require.NoError(t, err)
	assert.Contains(t, out, "hookguard_session_files_modified")
	assert.Contains(t, out, `hookguard_metric_samples{name="`+state.MetricSessionDuration+`"} 1`)
}

func TestMetricsExport_Textfile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(t.TempDir(), "hookguard.prom")

	out, err := execute(t, dir, "", "metrics", "export", "--textfile", target)
	require.NoError(t, err)
	assert.Contains(t, out, target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hookguard_cache_entries 0")
}

func TestInit_JSON(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, dir, "", "init")
	require.NoError(t, err)

	path := filepath.Join(dir, ".claude", "hooks", "config.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "verification")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Verification.Enabled)
	assert.Equal(t, config.Default().Thresholds, cfg.Thresholds)
	assert.Equal(t, config.Default().State, cfg.State)

	_, err = execute(t, dir, "", "init")
	require.ErrorIs(t, err, ErrConfigExists)

	_, err = execute(t, dir, "", "init", "--force", "--example")
	require.NoError(t, err)
	cfg, err = config.Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Verification.Enabled)
}

func TestInit_YAML(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, dir, "", "init", "--format", "yaml", "--example")
	require.NoError(t, err)

	path := filepath.Join(dir, ".claude", "hooks", "config.yaml")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(data, &raw))
	assert.Contains(t, raw, "quality_checks")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Example().State.CacheTTL, cfg.State.CacheTTL)
	assert.True(t, cfg.QualityChecks.Enabled)
}

func TestInit_UnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, dir, "", "init", "--format", "toml")
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, ".claude", "hooks", "config.toml"))
	assert.True(t, os.IsNotExist(statErr))
}
