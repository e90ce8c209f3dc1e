package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/hookguard/internal/hooks"
)

func readSettingsFile(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var settings map[string]any
	require.NoError(t, json.Unmarshal(data, &settings))
	return settings
}

func commandsFor(settings map[string]any, event hooks.Event) []string {
	section, _ := settings["hooks"].(map[string]any)
	groups, _ := section[string(event)].([]any)
	var out []string
	for _, g := range groups {
		group, _ := g.(map[string]any)
		entries, _ := group["hooks"].([]any)
		for _, e := range entries {
			entry, _ := e.(map[string]any)
			if cmd, ok := entry["command"].(string); ok {
				out = append(out, cmd)
			}
		}
	}
	return out
}

func TestInstall_FreshProject(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, dir, "", "install", "--binary", "/opt/bin/hookguard")
	require.NoError(t, err)
	assert.Contains(t, out, "Installed hookguard hooks")

	path := settingsPath(dir)
	settings := readSettingsFile(t, path)
	for _, event := range hooks.Events {
		assert.Equal(t, []string{"'/opt/bin/hookguard' hook --event " + string(event)}, commandsFor(settings, event))
	}

	section := settings["hooks"].(map[string]any)
	pre := section[string(hooks.EventPreToolUse)].([]any)[0].(map[string]any)
	assert.Equal(t, "*", pre["matcher"])
	stop := section[string(hooks.EventStop)].([]any)[0].(map[string]any)
	assert.NotContains(t, stop, "matcher")

	_, err = os.Stat(path + backupSuffix)
	assert.True(t, os.IsNotExist(err), "nothing to back up on first install")
}

func TestInstall_KeepsOtherSettingsAndIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := settingsPath(dir)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	existing := `{
  "model": "opus",
  "hooks": {
    "PreToolUse": [{"matcher": "Bash", "hooks": [{"type": "command", "command": "lint.sh"}]}]
  }
}`
	require.NoError(t, os.WriteFile(path, []byte(existing), 0o600))

	_, err := execute(t, dir, "", "install", "--binary", "/opt/bin/hookguard")
	require.NoError(t, err)
	_, err = execute(t, dir, "", "install", "--binary", "/usr/bin/hg")
	require.NoError(t, err)

	settings := readSettingsFile(t, path)
	assert.Equal(t, "opus", settings["model"])
	assert.Equal(t, []string{"lint.sh", "'/usr/bin/hg' hook --event PreToolUse"}, commandsFor(settings, hooks.EventPreToolUse))
	assert.Len(t, commandsFor(settings, hooks.EventStop), 1)

	backup := readSettingsFile(t, path+backupSuffix)
	assert.Equal(t, []string{"lint.sh", "'/opt/bin/hookguard' hook --event PreToolUse"}, commandsFor(backup, hooks.EventPreToolUse))
}

func TestInstall_MalformedSettingsUntouched(t *testing.T) {
	dir := t.TempDir()
	path := settingsPath(dir)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(`{"hooks":`), 0o600))

	_, err := execute(t, dir, "", "install", "--binary", "/opt/bin/hookguard")
	require.ErrorIs(t, err, ErrMalformedSettings)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"hooks":`, string(data))
}

func TestUninstall(t *testing.T) {
	dir := t.TempDir()
	path := settingsPath(dir)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(`{
  "hooks": {
    "PreToolUse": [{"matcher": "Bash", "hooks": [{"type": "command", "command": "lint.sh"}]}]
  }
}`), 0o600))

	_, err := execute(t, dir, "", "install", "--binary", "/opt/bin/hookguard")
	require.NoError(t, err)

	out, err := execute(t, dir, "", "uninstall")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 4 hookguard hook(s)")

	settings := readSettingsFile(t, path)
	assert.Equal(t, []string{"lint.sh"}, commandsFor(settings, hooks.EventPreToolUse))
	section := settings["hooks"].(map[string]any)
	assert.NotContains(t, section, string(hooks.EventStop))

	out, err = execute(t, dir, "", "uninstall")
	require.NoError(t, err)
	assert.Contains(t, out, "not installed")
}

func TestUninstall_NoSettings(t *testing.T) {
	out, err := execute(t, t.TempDir(), "", "uninstall")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to uninstall")
}

func TestUninstallHooks_DropsEmptySection(t *testing.T) {
	settings := map[string]any{}
	installHooks(settings, "hookguard")
	assert.Equal(t, len(hooks.Events), uninstallHooks(settings))
	assert.NotContains(t, settings, "hooks")
}

func TestShellEscape(t *testing.T) {
	assert.Equal(t, `'/usr/bin/hookguard'`, shellEscape("/usr/bin/hookguard"))
	assert.Equal(t, `'/it'"'"'s/hookguard'`, shellEscape("/it's/hookguard"))
}
