package gitconfig

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/raphi011/gitident/internal/log"
)

// Outcome is the terminal state of processing one .git directory.
type Outcome int

const (
	// OutcomeNoConfigFile means the .git directory has no config file yet.
	OutcomeNoConfigFile Outcome = iota
	// OutcomeReadFailed means the config file exists but could not be read.
	OutcomeReadFailed
	// OutcomeAlreadyConfigured means a [user] section is already present.
	OutcomeAlreadyConfigured
	// OutcomeSkippedByPolicy means auto_add_user is disabled.
	OutcomeSkippedByPolicy
	// OutcomeMissingIdentity means name or email is not configured or
	// cannot be written.
	OutcomeMissingIdentity
	// OutcomeWouldConfigure is the dry-run counterpart of OutcomeConfigured.
	OutcomeWouldConfigure
	// OutcomeBackupFailed means the backup copy failed and nothing was written.
	OutcomeBackupFailed
	// OutcomeWriteFailed means appending the [user] section failed.
	OutcomeWriteFailed
	// OutcomeConfigured means the [user] section was appended.
	OutcomeConfigured
)

var outcomeNames = map[Outcome]string{
	OutcomeNoConfigFile:      "no-config-file",
	OutcomeReadFailed:        "read-failed",
	OutcomeAlreadyConfigured: "already-configured",
	OutcomeSkippedByPolicy:   "skipped-by-policy",
	OutcomeMissingIdentity:   "missing-identity",
	OutcomeWouldConfigure:    "would-configure",
	OutcomeBackupFailed:      "backup-failed",
	OutcomeWriteFailed:       "write-failed",
	OutcomeConfigured:        "configured",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return "unknown"
}

// Failed reports whether the outcome is an error rather than a decision.
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeReadFailed, OutcomeMissingIdentity, OutcomeBackupFailed, OutcomeWriteFailed:
		return true
	}
	return false
}

// Result describes what ProcessDirectory did with one .git directory.
type Result struct {
	Dir        string  // the .git directory
	Outcome    Outcome // terminal state
	BackupPath string  // set when a backup was written
	Err        error   // set for failed outcomes
}

// Options configures a Patcher.
type Options struct {
	Identity       Identity
	AutoAdd        bool // append [user] when missing
	BackupOriginal bool // copy config before writing
	DryRun         bool // decide but never write
}

// Patcher adds a default identity to repositories that lack one.
// It holds no state between calls; all state lives in the filesystem.
type Patcher struct {
	opts Options
	now  func() time.Time
}

// NewPatcher creates a Patcher.
func NewPatcher(opts Options) *Patcher {
	return &Patcher{opts: opts, now: time.Now}
}

// ProcessDirectory inspects gitDir/config and appends the identity when it
// is missing and policy allows. It never returns an error: every failure is
// logged and reported in the Result so one bad repository cannot stop the
// caller.
func (p *Patcher) ProcessDirectory(ctx context.Context, gitDir string) Result {
	l := log.FromContext(ctx)
	path := ConfigPath(gitDir)
	res := Result{Dir: gitDir}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			res.Outcome = OutcomeNoConfigFile
			l.Warn("git config file does not exist", "path", path)
			return res
		}
		res.Outcome = OutcomeReadFailed
		res.Err = &ReadError{Path: path, Err: err}
		l.Error("cannot determine identity state, leaving config untouched", "path", path, "error", err)
		return res
	}

	has, err := HasUserSection(path)
	if err != nil {
		res.Outcome = OutcomeReadFailed
		res.Err = err
		l.Error("cannot determine identity state, leaving config untouched", "path", path, "error", err)
		return res
	}
	if has {
		res.Outcome = OutcomeAlreadyConfigured
		l.Info("git config already has [user] section", "path", path)
		return res
	}

	if !p.opts.AutoAdd {
		res.Outcome = OutcomeSkippedByPolicy
		l.Info("missing [user] section, auto_add_user is disabled", "path", path)
		return res
	}

	if err := p.opts.Identity.Validate(); err != nil {
		res.Outcome = OutcomeMissingIdentity
		res.Err = err
		l.Error("cannot add [user] section", "path", path, "error", err)
		return res
	}

	if p.opts.DryRun {
		res.Outcome = OutcomeWouldConfigure
		l.Info("would add [user] section", "path", path)
		return res
	}

	if p.opts.BackupOriginal {
		backup, err := Backup(path, p.now())
		if err != nil {
			res.Outcome = OutcomeBackupFailed
			res.Err = err
			l.Error("backup failed, config not modified", "path", path, "error", err)
			return res
		}
		res.BackupPath = backup
		l.Info("backed up git config", "backup", backup)
	}

	if err := AppendIdentity(path, p.opts.Identity); err != nil {
		res.Outcome = OutcomeWriteFailed
		res.Err = err
		l.Error("failed to add [user] section", "path", path, "error", err)
		return res
	}

	res.Outcome = OutcomeConfigured
	l.Info("added [user] section", "path", path, "name", p.opts.Identity.Name, "email", p.opts.Identity.Email)
	return res
}
