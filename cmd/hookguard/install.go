package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/hookguard/internal/hooks"
)

const (
	settingsFile  = "settings.json"
	backupSuffix  = ".bak"
	hookSubcmd    = " hook --event "
	toolMatcher   = "*"
	hookEntryType = "command"
)

// ErrMalformedSettings is returned when the settings file is not a JSON
// object. The file is left untouched.
var ErrMalformedSettings = errors.New("malformed agent settings")

func settingsPath(projectDir string) string {
	return filepath.Join(projectDir, ".claude", settingsFile)
}

func newInstallCmd(opts *globalOptions) *cobra.Command {
	var binary string

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Register hookguard in the project's agent settings",
		Long: `Add a hookguard hook command for PreToolUse, PostToolUse, UserPromptSubmit
and Stop to <project>/.claude/settings.json. Existing hookguard entries are
replaced and every other setting is kept. The previous file is saved with a
.bak suffix.

Examples:
  hookguard install
  hookguard install --binary /usr/local/bin/hookguard`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectDir, err := opts.resolveProjectDir("")
			if err != nil {
				return err
			}
			if binary == "" {
				if binary, err = findBinary(); err != nil {
					return err
				}
			}
			if strings.ContainsAny(binary, "\n\r\x00") {
				return errors.New("invalid hookguard binary path: contains forbidden characters")
			}

			path := settingsPath(projectDir)
			settings, _, err := readSettings(path)
			if err != nil {
				return err
			}
			installHooks(settings, shellEscape(binary))
			if err := writeSettings(path, settings); err != nil {
				return err
			}
			cmd.Printf("Installed hookguard hooks in %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&binary, "binary", "", "path to the hookguard binary (default: from PATH or the running executable)")
	return cmd
}

func newUninstallCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove hookguard from the project's agent settings",
		Long: `Remove every hookguard hook command from <project>/.claude/settings.json,
keeping all other settings. The previous file is saved with a .bak suffix.

Examples:
  hookguard uninstall`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectDir, err := opts.resolveProjectDir("")
			if err != nil {
				return err
			}
			path := settingsPath(projectDir)
			settings, found, err := readSettings(path)
			if err != nil {
				return err
			}
			if !found {
				cmd.Println("No agent settings found, nothing to uninstall.")
				return nil
			}
			removed := uninstallHooks(settings)
			if removed == 0 {
				cmd.Println("hookguard is not installed.")
				return nil
			}
			if err := writeSettings(path, settings); err != nil {
				return err
			}
			cmd.Printf("Removed %d hookguard hook(s) from %s\n", removed, path)
			return nil
		},
	}
}

// findBinary locates hookguard on PATH, falling back to this executable.
func findBinary() (string, error) {
	path, err := exec.LookPath("hookguard")
	if err != nil {
		path, err = os.Executable()
		if err != nil {
			return "", fmt.Errorf("could not find hookguard binary: %w", err)
		}
	}
	path, err = filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("could not resolve hookguard path: %w", err)
	}
	return path, nil
}

// shellEscape single-quotes s for use in a shell command line.
func shellEscape(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\"'\"'") + "'"
}

// readSettings returns the settings object at path. A missing file yields
// an empty object and found=false.
func readSettings(path string) (settings map[string]any, found bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]any{}, false, nil
		}
		return nil, false, fmt.Errorf("failed to read settings: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return map[string]any{}, true, nil
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, true, fmt.Errorf("%w: %s: %v", ErrMalformedSettings, path, err)
	}
	if settings == nil {
		return nil, true, fmt.Errorf("%w: %s: not an object", ErrMalformedSettings, path)
	}
	return settings, true, nil
}

// writeSettings backs up the current file, if any, and writes settings.
func writeSettings(path string, settings map[string]any) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if old, err := os.ReadFile(path); err == nil {
		if err := os.WriteFile(path+backupSuffix, old, 0600); err != nil {
			return fmt.Errorf("failed to back up settings: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// hookCommand is the command registered for event.
func hookCommand(binary string, event hooks.Event) string {
	return binary + hookSubcmd + string(event)
}

// isHookguardCommand reports whether command was registered by install.
func isHookguardCommand(command string) bool {
	for _, event := range hooks.Events {
		if strings.HasSuffix(command, hookSubcmd+string(event)) {
			return true
		}
	}
	return false
}

// installHooks replaces any hookguard entries with one per event.
func installHooks(settings map[string]any, binary string) {
	uninstallHooks(settings)

	hooksSection, _ := settings["hooks"].(map[string]any)
	if hooksSection == nil {
		hooksSection = map[string]any{}
	}
	for _, event := range hooks.Events {
		group := map[string]any{
			"hooks": []any{
				map[string]any{"type": hookEntryType, "command": hookCommand(binary, event)},
			},
		}
		if event == hooks.EventPreToolUse || event == hooks.EventPostToolUse {
			group["matcher"] = toolMatcher
		}
		groups, _ := hooksSection[string(event)].([]any)
		hooksSection[string(event)] = append(groups, group)
	}
	settings["hooks"] = hooksSection
}

// uninstallHooks removes hookguard entries, dropping groups and events left
// empty, and returns how many entries it removed.
func uninstallHooks(settings map[string]any) int {
	hooksSection, ok := settings["hooks"].(map[string]any)
	if !ok {
		return 0
	}

	removed := 0
	for event, raw := range hooksSection {
		groups, ok := raw.([]any)
		if !ok {
			continue
		}
		var keptGroups []any
		for _, g := range groups {
			group, ok := g.(map[string]any)
			if !ok {
				keptGroups = append(keptGroups, g)
				continue
			}
			entries, ok := group["hooks"].([]any)
			if !ok {
				keptGroups = append(keptGroups, g)
				continue
			}
			var keptEntries []any
			for _, e := range entries {
				entry, ok := e.(map[string]any)
				if ok {
					if command, _ := entry["command"].(string); isHookguardCommand(command) {
						removed++
						continue
					}
				}
				keptEntries = append(keptEntries, e)
			}
			if len(keptEntries) == 0 {
				continue
			}
			group["hooks"] = keptEntries
			keptGroups = append(keptGroups, group)
		}
		if len(keptGroups) == 0 {
			delete(hooksSection, event)
		} else {
			hooksSection[event] = keptGroups
		}
	}
	if len(hooksSection) == 0 {
		delete(settings, "hooks")
	}
	return removed
}
