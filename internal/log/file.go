package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions configures the rotating log file sink.
type FileOptions struct {
	Path        string
	MaxSizeMB   int // rotate after this many megabytes
	BackupCount int // rotated files to keep
}

// OpenFile returns a size-rotated log file writer.
// The parent directory is created if needed. Callers must Close it on exit
// so buffered data reaches disk.
func OpenFile(opts FileOptions) (io.WriteCloser, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("log file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.BackupCount,
		LocalTime:  true,
	}, nil
}
