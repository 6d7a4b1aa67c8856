// Package log provides context-aware, leveled logging for gitident.
//
// Console output goes to a single writer (stderr in the CLI) with a short
// level tag, coloured when the writer is a colour-capable terminal. Extra
// sinks (the rotating log file) receive timestamped plain-text lines.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/colorprofile"
)

type ctxKey struct{}

// Level is a log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the upper-case tag used in log lines.
func (lv Level) String() string {
	switch lv {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(lv))
	}
}

// ParseLevel maps a config value ("debug", "info", "warning", "error") to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q (valid: debug, info, warning, error)", s)
	}
}

var levelStyles = map[Level]lipgloss.Style{
	LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("82")),
	LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
}

// Logger writes leveled log lines. It is safe for concurrent use.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	sinks   []io.Writer
	level   Level
	verbose bool
	quiet   bool
	color   bool
	now     func() time.Time
}

// New creates a new logger writing to out.
// verbose enables debug output; quiet suppresses debug and info output on
// the console. Quiet wins over verbose.
func New(out io.Writer, verbose, quiet bool) *Logger {
	return &Logger{
		out:     out,
		level:   LevelInfo,
		verbose: verbose,
		quiet:   quiet,
		color:   supportsColor(out),
		now:     time.Now,
	}
}

// supportsColor reports whether w is a terminal that renders ANSI colours.
// Piped output, dumb terminals and NO_COLOR all disable colouring.
func supportsColor(w io.Writer) bool {
	if _, ok := w.(*os.File); !ok {
		return false
	}
	p := colorprofile.Detect(w, os.Environ())
	return p != colorprofile.NoTTY && p != colorprofile.Ascii
}

// SetLevel sets the minimum level written to the console and sinks.
// Verbose mode still lowers the console threshold to debug.
func (l *Logger) SetLevel(lv Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = lv
}

// AddSink registers an additional writer that receives every line at or
// above the configured level, regardless of quiet mode.
func (l *Logger) AddSink(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, w)
}

// WithLogger attaches a logger to the context.
func WithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext retrieves the logger from context.
// Returns a no-op logger if none is attached.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return &Logger{out: io.Discard, level: LevelError + 1, now: time.Now}
}

// Debug logs a diagnostic message with key-value pairs.
// Only printed in verbose mode or when the level is set to debug.
func (l *Logger) Debug(msg string, keyvals ...any) {
	l.log(LevelDebug, msg, keyvals)
}

// Info logs a normal operational message with key-value pairs.
func (l *Logger) Info(msg string, keyvals ...any) {
	l.log(LevelInfo, msg, keyvals)
}

// Warn logs a recoverable problem with key-value pairs.
func (l *Logger) Warn(msg string, keyvals ...any) {
	l.log(LevelWarn, msg, keyvals)
}

// Error logs a failure with key-value pairs.
func (l *Logger) Error(msg string, keyvals ...any) {
	l.log(LevelError, msg, keyvals)
}

func (l *Logger) log(lv Level, msg string, keyvals []any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := formatMessage(msg, keyvals)

	if l.consoleEnabled(lv) {
		tag := "[" + lv.String() + "]"
		if l.color {
			tag = levelStyles[lv].Render(tag)
		}
		fmt.Fprintf(l.out, "%s %s\n", tag, line)
	}

	if lv < l.level || len(l.sinks) == 0 {
		return
	}
	stamped := fmt.Sprintf("%s - gitident - %s - %s\n", l.now().Format("2006-01-02 15:04:05"), lv, line)
	for _, w := range l.sinks {
		// Sink write errors are dropped; there is nowhere left to report them.
		_, _ = io.WriteString(w, stamped)
	}
}

func (l *Logger) consoleEnabled(lv Level) bool {
	if l.quiet && lv < LevelWarn {
		return false
	}
	if l.verbose && !l.quiet {
		return true
	}
	return lv >= l.level
}

// formatMessage renders msg followed by key=value pairs.
// A trailing key without a value is dropped.
func formatMessage(msg string, keyvals []any) string {
	if len(keyvals) < 2 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(keyvals); i += 2 {
		val := fmt.Sprint(keyvals[i+1])
		if strings.ContainsAny(val, " \t\"") {
			val = fmt.Sprintf("%q", val)
		}
		fmt.Fprintf(&b, " %v=%s", keyvals[i], val)
	}
	return b.String()
}
