package ioutils

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	invalidChars  = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots  = regexp.MustCompile(`\.+$`)
	repeatedSpace = regexp.MustCompile(`\s+`)
)

// SanitizeFileName removes or replaces characters that are invalid in
// file or folder names on any common operating system:
//   - <>:"/\|?* and control characters become "_"
//   - trailing dots are removed
//   - runs of whitespace collapse to one space, trailing spaces are trimmed
//
// Example:
//
//	SanitizeFileName("Song: Part 1/2")      // Returns "Song_ Part 1_2"
//	SanitizeFileName("Track...")            // Returns "Track"
//	SanitizeFileName("Name   with  spaces") // Returns "Name with spaces"
func SanitizeFileName(name string) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = trailingDots.ReplaceAllString(name, "")
	name = repeatedSpace.ReplaceAllString(name, " ")
	return strings.TrimRight(name, " ")
}

// EnsureDir creates a directory and all parent directories if they don't
// exist, with mode 0755.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// WriteFile writes data next to path under a temporary name and renames it
// into place, so readers never observe a half-written file. Parent
// directories are created as needed.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
