package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/raphi011/gitident/internal/config"
	"github.com/raphi011/gitident/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Manage configuration",
		Aliases: []string{"cfg"},
		GroupID: GroupConfig,
		Long: `Manage gitident configuration.

Config file: $GITIDENT_CONFIG, or ~/.config/gitident/config.toml`,
		Example: `  gitident config init   # Create default config
  gitident config show   # Show effective config`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force  bool
		stdout bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create default config file",
		Args:  cobra.NoArgs,
		Long: `Create default config file.

Writes a commented template to the path given by --config, $GITIDENT_CONFIG
or ~/.config/gitident/config.toml. Fill in [user] and the directories to
watch before running 'gitident run'.`,
		Example: `  gitident config init      # Create config
  gitident config init -f   # Overwrite existing config
  gitident config init -s   # Print config to stdout`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd.Context(), configPath, force, stdout)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing config")
	cmd.Flags().BoolVarP(&stdout, "stdout", "s", false, "Print config to stdout")

	return cmd
}

func initConfig(ctx context.Context, path string, force, stdout bool) error {
	out := output.FromContext(ctx)
	content := config.DefaultConfig()

	if stdout {
		out.Printf("%s", content)
		return nil
	}

	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	// Check if exists
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s (use -f to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return err
	}

	out.Printf("Created config file: %s\n", path)
	return nil
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Args:  cobra.NoArgs,
		Long: `Show effective configuration.

Prints the loaded config with defaults filled in and paths expanded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return showConfig(ctx, cfg)
		},
	}

	return cmd
}

func showConfig(ctx context.Context, cfg config.Config) error {
	out := output.FromContext(ctx)

	text, err := cfg.Encode()
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	out.Printf("# %s\n", cfg.Path)
	out.Printf("%s", text)
	return nil
}
