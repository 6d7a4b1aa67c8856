package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"github.com/raphi011/gitident/internal/exclude"
)

// ValidLogLevels are the accepted values of logging.level.
var ValidLogLevels = []string{"debug", "info", "warning", "error"}

// ValidatePath checks that the path is absolute or starts with ~
// Returns error if path is relative (like "." or "..")
func ValidatePath(path, fieldName string) error {
	if path == "" {
		return nil // Empty is allowed (means not configured)
	}
	// Allow ~ paths
	if path[0] == '~' {
		return nil
	}
	// Must be absolute
	if !filepath.IsAbs(path) {
		return fmt.Errorf("%s must be absolute or start with ~, got: %q", fieldName, path)
	}
	return nil
}

// validateEnum checks that value (if non-empty) is one of the allowed values.
// Returns a formatted error mentioning the field name and allowed options.
func validateEnum(value, field string, allowed []string) error {
	if value == "" {
		return nil
	}
	if !slices.Contains(allowed, value) {
		return fmt.Errorf("invalid %s %q: must be %s", field, value, formatOptions(allowed))
	}
	return nil
}

// validateExcludePatterns rejects patterns that would exclude every path
// and patterns that are not valid globs.
func validateExcludePatterns(patterns []string) error {
	for i, pat := range patterns {
		if exclude.Fragment(pat) == "" {
			return fmt.Errorf("monitoring.exclude_patterns[%d] %q matches every path", i, pat)
		}
	}
	if _, err := exclude.New(patterns); err != nil {
		return fmt.Errorf("monitoring.exclude_patterns: %w", err)
	}
	return nil
}

// validateUser rejects control characters in the identity. They cannot be
// written into a git config value; a newline would start a new config line.
func validateUser(u UserConfig) error {
	if strings.ContainsFunc(u.Name, unicode.IsControl) {
		return fmt.Errorf("user.name must not contain control characters, got %q", u.Name)
	}
	if strings.ContainsFunc(u.Email, unicode.IsControl) {
		return fmt.Errorf("user.email must not contain control characters, got %q", u.Email)
	}
	return nil
}

// validateLogging checks the [logging] section and normalizes the level
// to lower case.
func validateLogging(lc *LoggingConfig) error {
	lc.Level = strings.ToLower(strings.TrimSpace(lc.Level))
	if lc.Level == "" {
		lc.Level = "info"
	}
	if err := validateEnum(lc.Level, "logging.level", ValidLogLevels); err != nil {
		return err
	}
	if err := ValidatePath(lc.File, "logging.file"); err != nil {
		return err
	}
	if lc.MaxSizeMB < 0 {
		return fmt.Errorf("logging.max_size_mb must not be negative, got %d", lc.MaxSizeMB)
	}
	if lc.BackupCount < 0 {
		return fmt.Errorf("logging.backup_count must not be negative, got %d", lc.BackupCount)
	}
	return nil
}

// formatOptions formats a list of allowed values for error messages.
// E.g., ["a", "b", "c"] -> `"a", "b", or "c"`
func formatOptions(opts []string) string {
	quoted := make([]string, len(opts))
	for i, o := range opts {
		quoted[i] = fmt.Sprintf("%q", o)
	}
	if len(quoted) <= 2 {
		return strings.Join(quoted, " or ")
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + ", or " + quoted[len(quoted)-1]
}
