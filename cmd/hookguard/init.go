package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/hookguard/internal/config"
)

// ErrConfigExists is returned by init when the target file exists and
// --force was not given.
var ErrConfigExists = errors.New("config file already exists")

func newInitCmd(opts *globalOptions) *cobra.Command {
	var (
		format  string
		force   bool
		example bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file for the project",
		Long: `Write the default configuration to <project>/.claude/hooks/config.json
(or config.yaml with --format yaml). The defaults leave every gate off;
--example writes a configuration with every feature switched on instead.

Examples:
  hookguard init
  hookguard init --format yaml --example
  hookguard init --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectDir, err := opts.resolveProjectDir("")
			if err != nil {
				return err
			}
			cfg := config.Default()
			if example {
				cfg = config.Example()
			}

			path := opts.configPath
			if path == "" {
				path = filepath.Join(config.HooksDir(projectDir), "config."+format)
			}
			if err := writeConfig(path, format, cfg, force); err != nil {
				return err
			}
			cmd.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "file format: json or yaml")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	cmd.Flags().BoolVar(&example, "example", false, "enable every feature")
	return cmd
}

// encodeConfig serializes cfg in the given format.
func encodeConfig(format string, cfg *config.Config) ([]byte, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode config: %w", err)
		}
		return append(data, '\n'), nil
	case "yaml", "yml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return nil, fmt.Errorf("failed to encode config: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode config: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported format %q (want json or yaml)", format)
	}
}

func writeConfig(path, format string, cfg *config.Config, force bool) error {
	data, err := encodeConfig(format, cfg)
	if err != nil {
		return err
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s (use --force to overwrite)", ErrConfigExists, path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
