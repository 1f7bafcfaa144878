// Package fileutil provides file and path utility functions.
package fileutil

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strings"
)

const (
	// maxFilenameLen is the exclusive upper bound on accepted name lengths.
	maxFilenameLen = 255

	// randomNameLen is the length of names substituted for unusable ones.
	randomNameLen = 8

	filePermissions = 0o644
)

// ErrSameFile is returned by CopyFile when source and destination are the
// same file.
var ErrSameFile = errors.New("source and destination are the same file")

// rename is swapped in tests to simulate cross-device moves.
var rename = os.Rename

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// IsFilePath returns true if the string looks like a file path rather than a name.
// A string containing path separators (/, \) is treated as a path.
//
// Examples:
//   - "default" -> false (name)
//   - "./certgen.yaml" -> true (relative path)
//   - "/etc/certgen/prod.yaml" -> true (absolute)
//   - "sub/dir" -> true (contains separator)
func IsFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// SameFile reports whether a and b name the same existing file.
func SameFile(a, b string) bool {
	ia, err := os.Stat(a)
	if err != nil {
		return false
	}
	ib, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ia, ib)
}

// MoveFile moves src to dst. It renames when possible, which keeps the file's
// identity. Otherwise (typically across filesystems) it copies the bytes and
// leaves src in place; dst exists even when src cannot be removed.
func MoveFile(src, dst string) error {
	if err := rename(src, dst); err == nil {
		return nil
	}
	if err := CopyFile(src, dst); err != nil {
		return fmt.Errorf("moving %s: %w", src, err)
	}
	return nil
}

// CopyFile copies src to dst byte for byte, replacing dst.
func CopyFile(src, dst string) error {
	if SameFile(src, dst) {
		return ErrSameFile
	}

	in, err := os.Open(src) // #nosec G304 -- caller-provided path
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePermissions) // #nosec G304 -- caller-provided path
	if err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing destination: %w", err)
	}
	return nil
}

// SanitizeFilename returns a name safe to place in a working directory and
// whether name was already safe. A safe name has no directory component,
// uses only ASCII letters, digits, '-', '_' and '.', is shorter than 255
// bytes, does not start with '-', and is not empty, ".", ".." or "_".
// Unsafe names are repaired; names that cannot be repaired are replaced by
// eight random uppercase letters.
func SanitizeFilename(name string) (string, bool) {
	ok := true

	base := name
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
		ok = false
	}

	var b strings.Builder
	for i := 0; i < len(base); i++ {
		if c := base[i]; isPortable(c) {
			b.WriteByte(c)
		} else {
			ok = false
		}
	}
	clean := b.String()

	if len(clean) >= maxFilenameLen {
		clean = clean[:maxFilenameLen-1]
		ok = false
	}

	if trimmed := strings.TrimLeft(clean, "-"); trimmed != clean {
		clean = trimmed
		ok = false
	}

	switch clean {
	case "", ".", "..", "_":
		return randomName(), false
	}
	return clean, ok
}

// isPortable reports membership in the POSIX portable filename set.
func isPortable(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return c == '-' || c == '_' || c == '.'
}

func randomName() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	b := make([]byte, randomNameLen)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		if err != nil {
			// crypto/rand does not fail on supported platforms.
			panic(err)
		}
		b[i] = letters[n.Int64()]
	}
	return string(b)
}

// RemoveIfExists removes path, ignoring a missing file.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// EnsureDir creates dir and its parents when missing and returns its
// absolute form.
func EnsureDir(dir string, perm os.FileMode) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, perm); err != nil {
		return "", fmt.Errorf("creating %s: %w", abs, err)
	}
	return abs, nil
}
