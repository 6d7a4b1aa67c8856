package main

import (
	"context"
	"fmt"

	"github.com/raphi011/gitident/internal/config"
	"github.com/raphi011/gitident/internal/exclude"
	"github.com/raphi011/gitident/internal/gitconfig"
	"github.com/raphi011/gitident/internal/log"
	"github.com/raphi011/gitident/internal/watcher"
)

// loadConfig reads the config selected by --config (or the default
// location) and applies its logging section to the context logger.
// The rotating log file, if configured, is left open in logCloser.
func loadConfig(ctx context.Context) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}

	l := log.FromContext(ctx)
	if lv, err := log.ParseLevel(cfg.Logging.Level); err == nil {
		l.SetLevel(lv)
	}

	if cfg.Logging.File != "" {
		w, err := log.OpenFile(log.FileOptions{
			Path:        cfg.Logging.File,
			MaxSizeMB:   cfg.Logging.MaxSizeMB,
			BackupCount: cfg.Logging.BackupCount,
		})
		if err != nil {
			return cfg, fmt.Errorf("open log file: %w", err)
		}
		l.AddSink(w)
		logCloser = w
	}

	l.Debug("loaded config", "path", cfg.Path)
	return cfg, nil
}

// identity returns the [user] values configured in cfg.
func identity(cfg config.Config) gitconfig.Identity {
	return gitconfig.Identity{Name: cfg.User.Name, Email: cfg.User.Email}
}

// newPatcher builds the Patcher described by cfg.
func newPatcher(cfg config.Config, id gitconfig.Identity, dryRun bool) *gitconfig.Patcher {
	return gitconfig.NewPatcher(gitconfig.Options{
		Identity:       id,
		AutoAdd:        cfg.Behavior.AutoAddUser,
		BackupOriginal: cfg.Behavior.BackupOriginal,
		DryRun:         dryRun,
	})
}

// newWatcher builds a Watcher over cfg's monitored directories.
func newWatcher(cfg config.Config, proc watcher.Processor, opts watcher.Options) (*watcher.Watcher, error) {
	m, err := exclude.New(cfg.Monitoring.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("monitoring.exclude_patterns: %w", err)
	}
	opts.Roots = cfg.Monitoring.Directories
	opts.Recursive = cfg.Monitoring.Recursive
	opts.Exclude = m
	return watcher.New(opts, proc), nil
}
