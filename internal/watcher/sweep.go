package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/raphi011/gitident/internal/gitconfig"
	"github.com/raphi011/gitident/internal/log"
)

// maxConcurrentRoots bounds how many roots are swept at once.
const maxConcurrentRoots = 4

// Report summarizes a Sweep.
type Report struct {
	Results      []gitconfig.Result
	Excluded     []string // .git directories skipped by exclusion patterns
	MissingRoots []string // roots that do not exist or are not directories
}

// Count returns how many results ended in outcome o.
func (r Report) Count(o gitconfig.Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Failures returns how many results ended in a failed outcome.
func (r Report) Failures() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome.Failed() {
			n++
		}
	}
	return n
}

// Sweep processes every .git directory that already exists below the
// configured roots and returns when all of them are handled. Roots are
// swept concurrently; results keep root order, and within a root, walk
// order. Missing roots are logged and skipped.
func (w *Watcher) Sweep(ctx context.Context) Report {
	l := log.FromContext(ctx)
	l.Info("scanning for existing .git directories", "roots", len(w.opts.Roots))
	w.logExclusions(ctx)

	reports := make([]Report, len(w.opts.Roots))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRoots)

	for i, root := range w.opts.Roots {
		g.Go(func() error {
			reports[i] = w.sweepRoot(ctx, root)
			return nil // problems are per-directory outcomes
		})
	}

	_ = g.Wait() // Always nil

	var all Report
	for _, r := range reports {
		all.Results = append(all.Results, r.Results...)
		all.Excluded = append(all.Excluded, r.Excluded...)
		all.MissingRoots = append(all.MissingRoots, r.MissingRoots...)
	}

	l.Info("scan complete",
		"repositories", len(all.Results),
		"configured", all.Count(gitconfig.OutcomeConfigured),
		"excluded", len(all.Excluded),
		"failed", all.Failures())

	return all
}

func (w *Watcher) sweepRoot(ctx context.Context, root string) Report {
	l := log.FromContext(ctx)
	var rep Report

	if !isDir(root) {
		l.Warn("monitored directory does not exist", "root", root)
		rep.MissingRoots = append(rep.MissingRoots, root)
		return rep
	}

	l.Info("scanning directory", "root", root)

	if !w.opts.Recursive {
		gitDir := filepath.Join(root, gitconfig.MetadataDirName)
		if isDir(gitDir) {
			w.sweepCandidate(ctx, gitDir, &rep)
		}
		return rep
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			if path == root {
				return err
			}
			l.Debug("skipping unreadable directory", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == gitconfig.MetadataDirName && path != root {
			w.sweepCandidate(ctx, path, &rep)
			return fs.SkipDir
		}
		return nil
	})
	if err != nil {
		l.Warn("scan of directory stopped early", "root", root, "error", err)
	}

	return rep
}

func (w *Watcher) sweepCandidate(ctx context.Context, gitDir string, rep *Report) {
	if pat, ok := w.opts.Exclude.Which(gitDir); ok {
		log.FromContext(ctx).Info("skipping excluded .git directory", "path", gitDir, "pattern", pat)
		rep.Excluded = append(rep.Excluded, gitDir)
		return
	}

	// A rescan after an event overflow can race a live handler for the
	// same directory; both would see no [user] section and append.
	if !w.claim(gitDir) {
		log.FromContext(ctx).Debug("already processing .git directory", "path", gitDir)
		return
	}
	defer w.release(gitDir)

	rep.Results = append(rep.Results, w.proc.ProcessDirectory(ctx, gitDir))
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
