// Package config handles loading and validation of gitident configuration.
//
// Configuration is read from ~/.config/gitident/config.toml. The location can
// be overridden with the GITIDENT_CONFIG environment variable or the global
// --config flag.
//
// # Configuration Sources (highest priority first)
//
//   - --config flag
//   - GITIDENT_CONFIG env var
//   - ~/.config/gitident/config.toml
//
// Unlike most CLI tools a missing config file is an error: without
// directories and an identity there is nothing to do.
//
// # Sections
//
//	[monitoring]
//	directories = ["~/Code"]
//	recursive = true
//	exclude_patterns = ["*/node_modules/*"]
//
//	[user]
//	name = "Alice"
//	email = "alice@example.com"
//
//	[behavior]
//	auto_add_user = true
//	backup_original = true
//
//	[logging]
//	level = "info"
//	file = "~/.local/state/gitident/gitident.log"
//	max_size_mb = 10
//	backup_count = 5
//
// Keys that are omitted keep their defaults (see [Default]).
//
// # Path Validation
//
// Directory paths must be absolute or start with ~ (no relative paths like "."
// or "..") to avoid confusion about the working directory.
package config
