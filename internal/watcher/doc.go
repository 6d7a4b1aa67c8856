// Package watcher detects .git directories below a set of root directories.
//
// Detection happens in two modes that share one exclusion policy:
//
//   - [Watcher.Sweep] walks the roots once and processes every .git
//     directory that already exists. It returns when all are handled.
//   - [Watcher.Start] subscribes to fsnotify events, one watcher and one
//     dispatch goroutine per root. When a directory named .git is created
//     it is processed after a short settle delay.
//
// fsnotify is not recursive, so recursive roots get a watch on every
// directory (except the inside of .git directories) and new directories are
// added as they appear. A subtree that appears all at once, such as a
// cloned or moved repository, is walked when its top directory is added,
// and any .git already inside it is processed too.
//
// # Concurrency
//
// Each detection is handled on its own goroutine so a settle delay never
// blocks the event loop. A path is only processed by one handler at a time.
// [Watcher.Stop] waits for all dispatch loops and handlers before returning;
// handlers still inside their settle delay give up without touching their
// directory.
package watcher
