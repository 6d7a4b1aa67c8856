package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// EnvConfigPath overrides the default config file location.
const EnvConfigPath = "GITIDENT_CONFIG"

// MonitoringConfig selects which directory trees are watched.
type MonitoringConfig struct {
	Directories     []string `toml:"directories"`
	Recursive       bool     `toml:"recursive"`
	ExcludePatterns []string `toml:"exclude_patterns"`
}

// UserConfig is the identity written into [user] sections.
type UserConfig struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

// BehaviorConfig controls what happens when a repo without identity is found.
type BehaviorConfig struct {
	AutoAddUser    bool `toml:"auto_add_user"`
	BackupOriginal bool `toml:"backup_original"`
}

// LoggingConfig configures log level and the optional rotating log file.
type LoggingConfig struct {
	Level       string `toml:"level"`
	File        string `toml:"file"`
	MaxSizeMB   int    `toml:"max_size_mb"`
	BackupCount int    `toml:"backup_count"`
}

// Config holds the gitident configuration.
// It is immutable once Load returns.
type Config struct {
	Monitoring MonitoringConfig `toml:"monitoring"`
	User       UserConfig       `toml:"user"`
	Behavior   BehaviorConfig   `toml:"behavior"`
	Logging    LoggingConfig    `toml:"logging"`

	// Path is the file the config was loaded from.
	Path string `toml:"-"`
}

// Default returns the default configuration
func Default() Config {
	return Config{
		Monitoring: MonitoringConfig{
			Recursive: true,
		},
		Behavior: BehaviorConfig{
			AutoAddUser:    true,
			BackupOriginal: true,
		},
		Logging: LoggingConfig{
			Level:       "info",
			MaxSizeMB:   10,
			BackupCount: 5,
		},
	}
}

// NotFoundError is returned when the config file does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("config file not found: %s (run 'gitident config init' to create one)", e.Path)
}

// Is lets errors.Is(err, os.ErrNotExist) match.
func (e *NotFoundError) Is(target error) bool {
	return target == os.ErrNotExist
}

// ParseError is returned when the config file exists but is malformed or
// holds invalid values.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid config file %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// expandPath expands ~ to the user's home directory
func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand ~: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	if path == "~" {
		return os.UserHomeDir()
	}
	return path, nil
}

// DefaultPath returns the config file location: $GITIDENT_CONFIG if set,
// otherwise ~/.config/gitident/config.toml.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return expandPath(p)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "gitident", "config.toml"), nil
}

// Load reads the config file at path. An empty path means DefaultPath().
// Returns *NotFoundError if the file doesn't exist and *ParseError if it
// cannot be decoded or fails validation.
func Load(path string) (Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return Default(), fmt.Errorf("locate config file: %w", err)
		}
		path = p
	} else {
		p, err := expandPath(path)
		if err != nil {
			return Default(), err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), &NotFoundError{Path: path}
		}
		return Default(), fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Default(), &ParseError{Path: path, Err: err}
	}
	cfg.Path = path
	return cfg, nil
}

// Parse decodes TOML config data on top of Default(), validates it and
// expands ~ in paths.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Default(), err
	}

	for i, dir := range cfg.Monitoring.Directories {
		field := fmt.Sprintf("monitoring.directories[%d]", i)
		if dir == "" {
			return Default(), fmt.Errorf("%s is empty", field)
		}
		if err := ValidatePath(dir, field); err != nil {
			return Default(), err
		}
		expanded, err := expandPath(dir)
		if err != nil {
			return Default(), fmt.Errorf("expand %s: %w", field, err)
		}
		cfg.Monitoring.Directories[i] = filepath.Clean(expanded)
	}

	if err := validateExcludePatterns(cfg.Monitoring.ExcludePatterns); err != nil {
		return Default(), err
	}

	if err := validateUser(cfg.User); err != nil {
		return Default(), err
	}

	if err := validateLogging(&cfg.Logging); err != nil {
		return Default(), err
	}
	if cfg.Logging.File != "" {
		expanded, err := expandPath(cfg.Logging.File)
		if err != nil {
			return Default(), fmt.Errorf("expand logging.file: %w", err)
		}
		cfg.Logging.File = expanded
	}

	return cfg, nil
}

// Encode renders cfg as TOML, as shown by 'gitident config show'.
func (c Config) Encode() (string, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// DefaultConfig returns the commented template written by 'gitident config init'.
func DefaultConfig() string {
	return defaultConfig
}

const defaultConfig = `# gitident configuration
#
# gitident watches the directories below for newly created .git directories
# and appends a [user] section to .git/config when the repo has none.

[monitoring]
# Directories to watch. Must be absolute paths or start with ~
directories = ["~/Code"]

# Watch subdirectories too. When false only <dir>/.git is considered.
recursive = true

# Paths containing any of these fragments are ignored. "*" and "?" are
# stripped before matching, so "*/node_modules/*" skips anything with
# "/node_modules/" in its path. Patterns are also matched as anchored globs
# ("**" crosses directory boundaries).
exclude_patterns = ["*/node_modules/*", "*/vendor/*"]

[user]
# Identity appended as:
#   [user]
#   	name = ...
#   	email = ...
name = ""
email = ""

[behavior]
# Append the [user] section automatically. When false, missing identities
# are only reported.
auto_add_user = true

# Copy .git/config to .git/config.backup.<unix-seconds> before writing.
backup_original = true

[logging]
# debug, info, warning or error
level = "info"

# Optional log file, rotated by size.
# file = "~/.local/state/gitident/gitident.log"
max_size_mb = 10
backup_count = 5
`
