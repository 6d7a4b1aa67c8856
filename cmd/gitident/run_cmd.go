package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphi011/gitident/internal/config"
	"github.com/raphi011/gitident/internal/gitconfig"
	"github.com/raphi011/gitident/internal/log"
	"github.com/raphi011/gitident/internal/watcher"
)

// runOptions holds the flags of 'gitident run'.
type runOptions struct {
	settleDelay time.Duration
	noScan      bool

	// ready, if set, is called once watching has started.
	ready func()
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Watch directories and configure new repositories",
		Aliases: []string{"watch"},
		GroupID: GroupDaemon,
		Args:    cobra.NoArgs,
		Long: `Watch the configured directories until interrupted.

Repositories that already exist are checked once at startup. Afterwards
every newly created .git directory is given a [user] section if it has
none. Send SIGINT or SIGTERM to stop; repositories waiting to be
processed at that moment are left untouched.`,
		Example: `  gitident run                      # Scan, then watch
  gitident run --no-scan            # Only watch for new repositories
  gitident run --settle-delay 2s    # Wait longer before editing config
  gitident -c ./gitident.toml run   # Use a specific config file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			return runWatch(ctx, cfg, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.settleDelay, "settle-delay", watcher.DefaultSettleDelay, "Wait this long after a .git directory appears before editing it")
	cmd.Flags().BoolVar(&opts.noScan, "no-scan", false, "Skip the startup scan of existing repositories")

	return cmd
}

var errNoDirectories = errors.New("no directories configured in monitoring.directories")

// runWatch sweeps the configured roots, then watches them until ctx is
// cancelled.
func runWatch(ctx context.Context, cfg config.Config, opts runOptions) error {
	l := log.FromContext(ctx)

	if len(cfg.Monitoring.Directories) == 0 {
		return errNoDirectories
	}
	id := identity(cfg)
	if cfg.Behavior.AutoAddUser && !id.Complete() {
		l.Warn("user.name or user.email is not set, repositories without identity will only be reported")
	}

	w, err := newWatcher(cfg, newPatcher(cfg, id, false), watcher.Options{
		SettleDelay: opts.settleDelay,
		OnResult: func(res gitconfig.Result) {
			l.Debug("processed repository", "path", res.Dir, "outcome", res.Outcome)
		},
	})
	if err != nil {
		return err
	}

	l.Info("starting gitident", "directories", len(cfg.Monitoring.Directories))

	if !opts.noScan {
		w.Sweep(ctx)
	}

	n, err := w.Start(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		w.Stop()
		return errors.New("no valid directories to watch")
	}

	if opts.ready != nil {
		opts.ready()
	}

	<-ctx.Done()

	l.Info("stopping gitident")
	w.Stop()
	l.Info("gitident stopped")
	return nil
}
