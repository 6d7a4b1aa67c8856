package watcher

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/raphi011/gitident/internal/exclude"
	"github.com/raphi011/gitident/internal/gitconfig"
	"github.com/raphi011/gitident/internal/log"
)

// DefaultSettleDelay is how long a detected .git directory is left alone
// before processing, so the tool creating it can finish writing its config.
const DefaultSettleDelay = 500 * time.Millisecond

// Processor handles one detected .git directory.
// *gitconfig.Patcher implements it.
type Processor interface {
	ProcessDirectory(ctx context.Context, gitDir string) gitconfig.Result
}

// Options configures a Watcher.
type Options struct {
	Roots       []string
	Recursive   bool
	Exclude     *exclude.Matcher
	SettleDelay time.Duration // zero means DefaultSettleDelay

	// OnResult, if set, is called after every live detection is processed.
	// It runs on the handler goroutine and must be safe for concurrent use.
	OnResult func(gitconfig.Result)
}

// Watcher finds .git directories below a set of roots and passes them to a
// Processor, once for every directory that exists at Sweep time and again
// for every one created while watching.
type Watcher struct {
	opts Options
	proc Processor

	mu     sync.Mutex
	cancel context.CancelFunc
	roots  []*rootWatch
	wg     sync.WaitGroup

	inflightMu sync.Mutex
	inflight   map[string]struct{}
}

// rootWatch is the live subscription for one configured root.
type rootWatch struct {
	root string
	fsw  *fsnotify.Watcher
}

// New creates a Watcher. Nothing is watched until Start.
func New(opts Options, proc Processor) *Watcher {
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	return &Watcher{
		opts:     opts,
		proc:     proc,
		inflight: make(map[string]struct{}),
	}
}

// errAlreadyStarted is returned by a second Start call.
var errAlreadyStarted = errors.New("watcher already started")

// Stop cancels all subscriptions and blocks until every dispatch loop and
// in-flight handler has returned. Handlers still waiting out the settle
// delay give up without touching their directory. Stop is safe to call when
// nothing was started and safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	roots := w.roots
	w.roots = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, rw := range roots {
		_ = rw.fsw.Close()
	}
	w.wg.Wait()
}

// claim marks gitDir as in flight. It returns false if it already is.
func (w *Watcher) claim(gitDir string) bool {
	w.inflightMu.Lock()
	defer w.inflightMu.Unlock()
	if _, ok := w.inflight[gitDir]; ok {
		return false
	}
	w.inflight[gitDir] = struct{}{}
	return true
}

func (w *Watcher) release(gitDir string) {
	w.inflightMu.Lock()
	defer w.inflightMu.Unlock()
	delete(w.inflight, gitDir)
}

func (w *Watcher) logExclusions(ctx context.Context) {
	if pats := w.opts.Exclude.Patterns(); len(pats) > 0 {
		log.FromContext(ctx).Debug("excluding paths", "patterns", strings.Join(pats, ", "))
	}
}
