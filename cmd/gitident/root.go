package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raphi011/gitident/internal/log"
	"github.com/raphi011/gitident/internal/output"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	configPath string

	// logCloser is the rotating log file opened by loadConfig, if any.
	logCloser io.Closer
)

// Command group IDs for organizing help output
const (
	GroupDaemon = "daemon"
	GroupConfig = "config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gitident",
	Short: "Add a default git identity to new repositories",
	Long: `gitident watches directory trees for newly created repositories and
appends a [user] section to .git/config when the repository has none.

A configured name and email then applies to every clone and 'git init'
below the watched directories, without touching the global git config.`,
	SilenceUsage:               true,
	SilenceErrors:              true,
	SuggestionsMinimumDistance: 2, // Enable typo suggestions
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Validate mutually exclusive flags
		if verbose && quiet {
			return fmt.Errorf("--verbose and --quiet are mutually exclusive")
		}

		// Create logger (stderr for diagnostics) now that flags are parsed
		logger := log.New(os.Stderr, verbose, quiet)
		cmd.SetContext(log.WithLogger(cmd.Context(), logger))
		return nil
	},
	// Run is not set - shows help when no subcommand provided
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// Create context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Add output printer (stdout for primary data)
	ctx = output.WithPrinter(ctx, os.Stdout)

	err := rootCmd.ExecuteContext(ctx)

	if logCloser != nil {
		_ = logCloser.Close()
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Run 'gitident -h' for help")
		cancel()
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only show warnings and errors")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default $GITIDENT_CONFIG or ~/.config/gitident/config.toml)")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	// Version flag
	rootCmd.Version = versionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	// Add command groups for organized help output
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupDaemon, Title: "Daemon Commands:"},
		&cobra.Group{ID: GroupConfig, Title: "Configuration Commands:"},
	)

	// Daemon commands
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newScanCmd())

	// Config commands
	rootCmd.AddCommand(newConfigCmd())
}
