package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphi011/gitident/internal/config"
	"github.com/raphi011/gitident/internal/gitconfig"
	"github.com/raphi011/gitident/internal/output"
	"github.com/raphi011/gitident/internal/ui/static"
	"github.com/raphi011/gitident/internal/watcher"
)

func newScanCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:     "scan",
		Short:   "Configure existing repositories once",
		GroupID: GroupDaemon,
		Args:    cobra.NoArgs,
		Long: `Check every repository below the configured directories once and exit.

Prints one line per repository with what was done. With --dry-run nothing
is written and repositories that would be changed are reported as
would-configure. Exits non-zero if any repository could not be handled.`,
		Example: `  gitident scan             # Configure existing repositories
  gitident scan --dry-run   # Show what would change
  gitident scan | grep would-configure`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			return runScan(ctx, cfg, dryRun)
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Report what would change without writing")

	return cmd
}

// runScan sweeps the configured roots once and prints a report.
func runScan(ctx context.Context, cfg config.Config, dryRun bool) error {
	if len(cfg.Monitoring.Directories) == 0 {
		return errNoDirectories
	}

	w, err := newWatcher(cfg, newPatcher(cfg, identity(cfg), dryRun), watcher.Options{})
	if err != nil {
		return err
	}

	rep := w.Sweep(ctx)
	printReport(output.FromContext(ctx), rep)

	if n := rep.Failures(); n > 0 {
		return fmt.Errorf("%d of %d repositories could not be configured", n, len(rep.Results))
	}
	return ctx.Err()
}

// reportRows flattens a sweep report into OUTCOME, PATH, DETAIL rows.
func reportRows(rep watcher.Report) [][]string {
	rows := make([][]string, 0, len(rep.Results)+len(rep.Excluded)+len(rep.MissingRoots))
	for _, res := range rep.Results {
		detail := res.BackupPath
		if res.Err != nil {
			detail = res.Err.Error()
		}
		rows = append(rows, []string{res.Outcome.String(), res.Dir, detail})
	}
	for _, dir := range rep.Excluded {
		rows = append(rows, []string{"excluded", dir, ""})
	}
	for _, root := range rep.MissingRoots {
		rows = append(rows, []string{"missing-root", root, ""})
	}
	return rows
}

func printReport(out *output.Printer, rep watcher.Report) {
	rows := reportRows(rep)

	if !out.IsTerminal() {
		out.Printf("%s", static.RenderTSV(rows))
		return
	}

	if len(rows) == 0 {
		out.Println("No repositories found")
		return
	}
	out.Printf("%s", static.RenderTable([]string{"OUTCOME", "PATH", "DETAIL"}, rows))
	out.Printf("\n%d repositories, %d configured, %d already configured, %d failed\n",
		len(rep.Results),
		rep.Count(gitconfig.OutcomeConfigured)+rep.Count(gitconfig.OutcomeWouldConfigure),
		rep.Count(gitconfig.OutcomeAlreadyConfigured),
		rep.Failures())
}
