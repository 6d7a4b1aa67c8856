package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/raphi011/gitident/internal/config"
	"github.com/raphi011/gitident/internal/log"
	"github.com/raphi011/gitident/internal/output"
)

// syncBuffer is a bytes.Buffer safe for the concurrent writes of a logger.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// testContext returns a context carrying a logger and printer that write
// to the returned buffers.
func testContext(t *testing.T) (context.Context, *syncBuffer, *bytes.Buffer) {
	t.Helper()
	var logs syncBuffer
	var out bytes.Buffer
	ctx := log.WithLogger(context.Background(), log.New(&logs, true, false))
	ctx = output.WithPrinter(ctx, &out)
	return ctx, &logs, &out
}

func testConfig(dirs ...string) config.Config {
	cfg := config.Default()
	cfg.Monitoring.Directories = dirs
	cfg.User.Name = "Jane Doe"
	cfg.User.Email = "jane@example.com"
	return cfg
}

// makeRepo creates dir/.git/config with content and returns the .git path.
func makeRepo(t *testing.T, dir, content string) string {
	t.Helper()
	gitDir := filepath.Join(dir, ".git")
	if err := os.MkdirAll(gitDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(gitDir, "config"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return gitDir
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

const bareConfig = "[core]\n\trepositoryformatversion = 0\n"

func TestRunWatch(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	existing := makeRepo(t, filepath.Join(root, "existing"), bareConfig)

	ctx, logs, _ := testContext(t)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- runWatch(ctx, testConfig(root), runOptions{
			settleDelay: 200 * time.Millisecond,
			ready:       func() { close(ready) },
		})
	}()

	select {
	case <-ready:
	case err := <-done:
		t.Fatalf("runWatch returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher to start")
	}

	// The startup scan ran before ready.
	if got := readFile(t, filepath.Join(existing, "config")); !strings.Contains(got, "[user]") {
		t.Errorf("existing repo not configured by startup scan:\n%s", got)
	}

	fresh := makeRepo(t, filepath.Join(root, "fresh"), bareConfig)
	freshConfig := filepath.Join(fresh, "config")

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(readFile(t, freshConfig), "name = Jane Doe") {
		if time.Now().After(deadline) {
			t.Fatalf("new repo not configured; logs:\n%s", logs.String())
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runWatch() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runWatch did not return after cancel")
	}

	if !strings.Contains(logs.String(), "gitident stopped") {
		t.Errorf("missing stop log line:\n%s", logs.String())
	}
}

func TestRunWatchNoScan(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	existing := makeRepo(t, filepath.Join(root, "existing"), bareConfig)

	ctx, _, _ := testContext(t)
	ctx, cancel := context.WithCancel(ctx)

	done := make(chan error, 1)
	go func() {
		done <- runWatch(ctx, testConfig(root), runOptions{
			noScan: true,
			ready:  cancel,
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runWatch() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runWatch did not return")
	}

	if got := readFile(t, filepath.Join(existing, "config")); got != bareConfig {
		t.Errorf("config changed without scan:\n%s", got)
	}
}

func TestRunWatchIncompleteIdentity(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	existing := makeRepo(t, filepath.Join(root, "existing"), bareConfig)

	cfg := testConfig(root)
	cfg.User.Email = ""

	ctx, logs, _ := testContext(t)
	ctx, cancel := context.WithCancel(ctx)

	done := make(chan error, 1)
	go func() {
		done <- runWatch(ctx, cfg, runOptions{ready: cancel})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runWatch() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runWatch did not return")
	}

	if !strings.Contains(logs.String(), "user.name or user.email is not set") {
		t.Errorf("missing incomplete identity warning:\n%s", logs.String())
	}
	if got := readFile(t, filepath.Join(existing, "config")); got != bareConfig {
		t.Errorf("config changed without a complete identity:\n%s", got)
	}
}

func TestRunWatchErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dirs    []string
		wantErr string
	}{
		{
			name:    "no directories",
			dirs:    nil,
			wantErr: "no directories configured",
		},
		{
			name:    "no existing directories",
			dirs:    []string{"/nonexistent/gitident/a", "/nonexistent/gitident/b"},
			wantErr: "no valid directories to watch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx, _, _ := testContext(t)
			err := runWatch(ctx, testConfig(tt.dirs...), runOptions{})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("runWatch() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestRunScan(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	bare := makeRepo(t, filepath.Join(root, "bare"), bareConfig)
	done := makeRepo(t, filepath.Join(root, "done"), "[user]\n\tname = Someone\n")
	skipped := makeRepo(t, filepath.Join(root, "node_modules", "pkg"), bareConfig)

	cfg := testConfig(root)
	cfg.Monitoring.ExcludePatterns = []string{"*/node_modules/*"}

	ctx, _, out := testContext(t)
	if err := runScan(ctx, cfg, false); err != nil {
		t.Fatalf("runScan() error = %v", err)
	}

	if got := readFile(t, filepath.Join(bare, "config")); !strings.Contains(got, "email = jane@example.com") {
		t.Errorf("bare repo not configured:\n%s", got)
	}
	if got := readFile(t, filepath.Join(skipped, "config")); got != bareConfig {
		t.Errorf("excluded repo changed:\n%s", got)
	}

	report := out.String()
	for _, want := range []string{
		"configured\t" + bare + "\t" + filepath.Join(bare, "config.backup."),
		"already-configured\t" + done + "\t",
		"excluded\t" + skipped + "\t",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestRunScanDryRun(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	bare := makeRepo(t, filepath.Join(root, "bare"), bareConfig)

	ctx, _, out := testContext(t)
	if err := runScan(ctx, testConfig(root), true); err != nil {
		t.Fatalf("runScan() error = %v", err)
	}

	if got := readFile(t, filepath.Join(bare, "config")); got != bareConfig {
		t.Errorf("dry run changed config:\n%s", got)
	}
	entries, err := os.ReadDir(bare)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("dry run left extra files in %s: %v", bare, entries)
	}
	if !strings.Contains(out.String(), "would-configure\t"+bare) {
		t.Errorf("report = %q, want would-configure line", out.String())
	}
}

func TestRunScanFailures(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	makeRepo(t, filepath.Join(root, "a"), bareConfig)

	cfg := testConfig(root)
	cfg.User.Email = ""

	ctx, _, out := testContext(t)
	err := runScan(ctx, cfg, false)
	if err == nil || !strings.Contains(err.Error(), "1 of 1 repositories") {
		t.Errorf("runScan() error = %v, want failure count", err)
	}
	if !strings.Contains(out.String(), "missing-identity\t") {
		t.Errorf("report = %q, want missing-identity line", out.String())
	}
}

func TestRunScanMissingRoot(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "gone")

	ctx, _, out := testContext(t)
	if err := runScan(ctx, testConfig(missing), false); err != nil {
		t.Fatalf("runScan() error = %v", err)
	}
	if got, want := out.String(), "missing-root\t"+missing+"\t\n"; got != want {
		t.Errorf("report = %q, want %q", got, want)
	}
}

func TestInitConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	ctx, _, out := testContext(t)

	if err := initConfig(ctx, path, false, false); err != nil {
		t.Fatalf("initConfig() error = %v", err)
	}
	if got := readFile(t, path); got != config.DefaultConfig() {
		t.Error("written config does not match template")
	}
	if !strings.Contains(out.String(), "Created config file: "+path) {
		t.Errorf("output = %q", out.String())
	}

	if err := initConfig(ctx, path, false, false); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("second initConfig() error = %v, want already exists", err)
	}

	if err := os.WriteFile(path, []byte("# edited\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := initConfig(ctx, path, true, false); err != nil {
		t.Fatalf("initConfig(force) error = %v", err)
	}
	if got := readFile(t, path); got != config.DefaultConfig() {
		t.Error("forced init did not overwrite config")
	}

	// The template must load once a directory and identity are filled in.
	if _, err := config.Parse([]byte(config.DefaultConfig())); err != nil {
		t.Errorf("template does not parse: %v", err)
	}
}

func TestInitConfigStdout(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	ctx, _, out := testContext(t)

	if err := initConfig(ctx, path, false, true); err != nil {
		t.Fatalf("initConfig() error = %v", err)
	}
	if out.String() != config.DefaultConfig() {
		t.Error("stdout output does not match template")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("config file written with --stdout: %v", err)
	}
}

func TestShowConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[monitoring]
directories = ["/srv/code"]

[user]
name = "Jane Doe"
email = "jane@example.com"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}

	ctx, _, out := testContext(t)
	if err := showConfig(ctx, cfg); err != nil {
		t.Fatalf("showConfig() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"# " + path,
		`name = "Jane Doe"`,
		"auto_add_user = true",
		`level = "info"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

// TestLoadConfig modifies package-level state and must not run in parallel.
func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	logFile := filepath.Join(dir, "logs", "gitident.log")
	content := `
[monitoring]
directories = ["/srv/code"]

[logging]
level = "warning"
file = "` + logFile + `"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	configPath = path
	t.Cleanup(func() {
		configPath = ""
		if logCloser != nil {
			logCloser.Close()
			logCloser = nil
		}
	})

	var console bytes.Buffer
	ctx := log.WithLogger(context.Background(), log.New(&console, false, false))

	cfg, err := loadConfig(ctx)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Path != path {
		t.Errorf("cfg.Path = %q, want %q", cfg.Path, path)
	}
	if logCloser == nil {
		t.Fatal("log file not opened")
	}

	l := log.FromContext(ctx)
	l.Info("hidden below warning")
	l.Warn("shown at warning")

	if strings.Contains(console.String(), "hidden below warning") {
		t.Error("info line printed despite level = warning")
	}
	if err := logCloser.Close(); err != nil {
		t.Fatal(err)
	}
	logCloser = nil

	got := readFile(t, logFile)
	if !strings.Contains(got, " - gitident - WARNING - shown at warning") {
		t.Errorf("log file = %q", got)
	}
}

func TestLoadConfigMissing(t *testing.T) {
	configPath = filepath.Join(t.TempDir(), "missing.toml")
	t.Cleanup(func() { configPath = "" })

	_, err := loadConfig(context.Background())
	var nf *config.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("loadConfig() error = %v, want *config.NotFoundError", err)
	}
}
