package util

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// NormalizePatternPath cleans a path for glob matching: forward slashes, no
// leading "./".
func NormalizePatternPath(s string) string {
	trimmed := strings.TrimSpace(strings.ReplaceAll(s, "\\", "/"))
	clean := path.Clean(trimmed)
	if clean == "." {
		return ""
	}
	return strings.TrimPrefix(clean, "./")
}

// EnsureParentDir creates the directory that will hold file.
func EnsureParentDir(file string) error {
	dir := filepath.Dir(file)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
