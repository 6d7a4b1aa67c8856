package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/raphi011/gitident/internal/gitconfig"
	"github.com/raphi011/gitident/internal/log"
)

// Start subscribes to directory-creation events below every existing root,
// one fsnotify watcher and dispatch goroutine per root, and returns the
// number of roots being watched. Roots that are missing or cannot be
// watched are logged and skipped, so zero is a valid result.
func (w *Watcher) Start(ctx context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return 0, errAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	l := log.FromContext(ctx)
	w.logExclusions(ctx)

	for _, root := range w.opts.Roots {
		if !isDir(root) {
			l.Warn("monitored directory does not exist, skipping", "root", root)
			continue
		}

		rw, err := w.watchRoot(ctx, root)
		if err != nil {
			l.Error("cannot watch directory", "root", root, "error", err)
			continue
		}

		w.roots = append(w.roots, rw)
		w.wg.Add(1)
		go w.dispatch(ctx, rw)

		l.Info("monitoring directory", "root", root, "recursive", w.opts.Recursive)
	}

	return len(w.roots), nil
}

func (w *Watcher) watchRoot(ctx context.Context, root string) (*rootWatch, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	rw := &rootWatch{root: root, fsw: fsw}

	if err := fsw.Add(root); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}
	if w.opts.Recursive {
		// Existing .git directories were handled by the sweep.
		w.addTree(ctx, rw, root, false)
	}
	return rw, nil
}

// addTree watches every directory below dir, never descending into .git.
// With detect set, .git directories found on the way are dispatched: they
// were created before the watch on their parent existed, so no event for
// them will arrive.
func (w *Watcher) addTree(ctx context.Context, rw *rootWatch, dir string, detect bool) {
	l := log.FromContext(ctx)

	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			l.Debug("cannot watch directory", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == gitconfig.MetadataDirName {
			if detect {
				w.detect(ctx, path)
			}
			return fs.SkipDir
		}
		if err := rw.fsw.Add(path); err != nil {
			l.Debug("cannot watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// dispatch is the event loop for one root.
func (w *Watcher) dispatch(ctx context.Context, rw *rootWatch) {
	defer w.wg.Done()
	l := log.FromContext(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-rw.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, rw, ev)
		case err, ok := <-rw.fsw.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// Events were dropped; a rescan finds any .git created meanwhile.
				l.Warn("filesystem event queue overflowed, rescanning", "root", rw.root)
				w.sweepRoot(ctx, rw.root)
				continue
			}
			l.Error("filesystem watch error", "root", rw.root, "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, rw *rootWatch, ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) {
		return
	}

	info, err := os.Lstat(ev.Name)
	if err != nil || !info.IsDir() {
		return
	}

	if filepath.Base(ev.Name) == gitconfig.MetadataDirName {
		w.detect(ctx, ev.Name)
		return
	}

	if w.opts.Recursive {
		w.addTree(ctx, rw, ev.Name, true)
	}
}

// detect applies the exclusion policy and hands gitDir to a handler
// goroutine that processes it after the settle delay.
func (w *Watcher) detect(ctx context.Context, gitDir string) {
	l := log.FromContext(ctx)

	if pat, ok := w.opts.Exclude.Which(gitDir); ok {
		l.Info("skipping excluded .git directory", "path", gitDir, "pattern", pat)
		return
	}

	if !w.claim(gitDir) {
		l.Debug("already processing .git directory", "path", gitDir)
		return
	}

	l.Info("detected new .git directory", "path", gitDir)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.release(gitDir)

		timer := time.NewTimer(w.opts.SettleDelay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			l.Info("shutting down, not processing .git directory", "path", gitDir)
			return
		case <-timer.C:
		}

		res := w.proc.ProcessDirectory(ctx, gitDir)
		if w.opts.OnResult != nil {
			w.opts.OnResult(res)
		}
	}()
}
