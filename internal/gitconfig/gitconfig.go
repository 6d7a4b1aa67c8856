package gitconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

const (
	// MetadataDirName is the directory name that marks a git repository.
	MetadataDirName = ".git"

	// ConfigFileName is the repository config file inside MetadataDirName.
	ConfigFileName = "config"

	// UserSectionMarker is the substring that means an identity is configured.
	UserSectionMarker = "[user]"
)

var (
	// ErrMissingIdentity is returned when the configured name or email is empty.
	ErrMissingIdentity = errors.New("user name and email must both be configured")

	// ErrInvalidIdentity is returned when name or email holds control
	// characters. A newline would end the value and start new config lines.
	ErrInvalidIdentity = errors.New("user name and email must not contain control characters")
)

// Identity is the name/email pair written to a [user] section.
type Identity struct {
	Name  string
	Email string
}

// Complete reports whether both fields are set.
func (id Identity) Complete() bool {
	return id.Name != "" && id.Email != ""
}

// Validate returns ErrMissingIdentity or ErrInvalidIdentity when id cannot
// be written.
func (id Identity) Validate() error {
	if !id.Complete() {
		return ErrMissingIdentity
	}
	if strings.ContainsFunc(id.Name, unicode.IsControl) || strings.ContainsFunc(id.Email, unicode.IsControl) {
		return ErrInvalidIdentity
	}
	return nil
}

// Stanza renders the [user] section appended to config files.
func (id Identity) Stanza() string {
	return fmt.Sprintf("[user]\n\tname = %s\n\temail = %s\n", quoteValue(id.Name), quoteValue(id.Email))
}

// quoteValue returns v as a git config value. Values git would cut at a
// comment character, unescape or trim are double-quoted with \ and "
// escaped; anything else is written as is.
func quoteValue(v string) string {
	if v == strings.TrimSpace(v) && !strings.ContainsAny(v, "#;\"\\") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(v) + `"`
}

// ReadError means a config file could not be read, so whether it has a
// [user] section is unknown.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// BackupError means the pre-write copy of a config file failed.
type BackupError struct {
	Path string
	Err  error
}

func (e *BackupError) Error() string {
	return fmt.Sprintf("backup %s: %v", e.Path, e.Err)
}

func (e *BackupError) Unwrap() error {
	return e.Err
}

// ConfigPath returns the config file path for a .git directory.
func ConfigPath(gitDir string) string {
	return filepath.Join(gitDir, ConfigFileName)
}

// HasUserSection reports whether the config file at path contains a [user]
// section marker. It returns *ReadError when the file cannot be read.
func HasUserSection(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, &ReadError{Path: path, Err: err}
	}
	return bytes.Contains(data, []byte(UserSectionMarker)), nil
}

// maxBackupSuffix bounds the search for a free backup name within one second.
const maxBackupSuffix = 100

// Backup copies the file at path to <path>.backup.<unix-seconds> and returns
// the backup path. An existing backup is never overwritten: if the name is
// taken, ".1", ".2", ... are appended. Mode bits and modification time are
// preserved. Failures are returned as *BackupError.
func Backup(path string, now time.Time) (string, error) {
	base := fmt.Sprintf("%s.backup.%d", path, now.Unix())

	for i := 0; i < maxBackupSuffix; i++ {
		dst := base
		if i > 0 {
			dst = fmt.Sprintf("%s.%d", base, i)
		}

		ok, err := copyFile(path, dst)
		if err != nil {
			return "", &BackupError{Path: path, Err: err}
		}
		if ok {
			return dst, nil
		}
	}

	return "", &BackupError{Path: path, Err: fmt.Errorf("no free backup name after %d attempts", maxBackupSuffix)}
}

// copyFile copies src to dst.
// Uses O_CREATE|O_EXCL so an existing dst is never overwritten.
// Returns false without error if dst already exists.
func copyFile(src, dst string) (bool, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, err
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, srcInfo.Mode().Perm())
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		dstFile.Close()
		os.Remove(dst) // clean up empty dst
		return false, err
	}
	defer srcFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		os.Remove(dst) // clean up partial dst
		return false, err
	}
	if err := dstFile.Close(); err != nil {
		os.Remove(dst)
		return false, err
	}

	// Best effort, like cp -p; the content is what matters.
	_ = os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime())

	return true, nil
}

// AppendIdentity appends id's [user] stanza to the config file at path.
//
// A missing file is treated as empty and created. A newline is inserted
// first only when the existing content does not already end with one.
// Existing bytes are never rewritten: the stanza goes out in a single
// append-mode write. Returns the error from id.Validate without touching
// the file if id cannot be written.
func AppendIdentity(path string, id Identity) error {
	if err := id.Validate(); err != nil {
		return err
	}

	content, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return &ReadError{Path: path, Err: err}
	}

	var b strings.Builder
	if len(content) > 0 && content[len(content)-1] != '\n' {
		b.WriteByte('\n')
	}
	b.WriteString(id.Stanza())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s for append: %w", path, err)
	}

	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return fmt.Errorf("append to %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
