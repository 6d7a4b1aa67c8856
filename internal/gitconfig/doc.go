// Package gitconfig adds a default [user] identity to repository config files.
//
// The package never parses git's config grammar. A config file is opaque
// bytes with one structural fact of interest: whether it contains the
// "[user]" marker. Mutation is append-only.
//
// # Decision Procedure
//
// [Patcher.ProcessDirectory] walks a fixed sequence for one .git directory:
//
//   - no config file: [OutcomeNoConfigFile]
//   - unreadable config: [OutcomeReadFailed] (fail-closed, never appends)
//   - [user] present: [OutcomeAlreadyConfigured]
//   - auto-add disabled: [OutcomeSkippedByPolicy]
//   - name or email missing: [OutcomeMissingIdentity]
//   - backup enabled and failing: [OutcomeBackupFailed]
//   - otherwise append: [OutcomeConfigured] or [OutcomeWriteFailed]
//
// Because a configured file contains "[user]", processing the same directory
// twice yields [OutcomeConfigured] then [OutcomeAlreadyConfigured].
//
// # Backups
//
// [Backup] copies config to config.backup.<unix-seconds> with O_EXCL. Two
// backups in the same second get a numeric suffix instead of overwriting.
package gitconfig
