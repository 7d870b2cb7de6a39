// Package pathutil confines file writes requested over MCP to allowed
// directories and replaces export files atomically.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvandessel/enstat/internal/errkind"
)

// ErrPath indicates a path rejected by Confine or ExportPath.
var ErrPath = fmt.Errorf("path rejected: %w", errkind.InvalidArgument)

// ExportExt is the file extension of Arrow IPC stream exports.
const ExportExt = ".arrows"

// RedactPath shortens a path to .../<parent>/<base> for error messages.
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	base := filepath.Base(cleaned)
	if parent == "." || parent == string(filepath.Separator) {
		return base
	}
	return ".../" + parent + "/" + base
}

// Confine resolves path to an absolute path with symlinks evaluated on its
// deepest existing ancestor, and returns it if it lies inside one of dirs.
func Confine(path string, dirs []string) (string, error) {
	switch {
	case path == "":
		return "", fmt.Errorf("%w: empty path", ErrPath)
	case strings.ContainsRune(path, 0):
		return "", fmt.Errorf("%w: path contains a null byte", ErrPath)
	case len(dirs) == 0:
		return "", fmt.Errorf("%w: no allowed directories", ErrPath)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPath, err)
	}
	resolved, err := resolve(abs)
	if err != nil {
		return "", err
	}
	for _, dir := range dirs {
		dirAbs, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		dirResolved, err := resolve(dirAbs)
		if err != nil {
			continue
		}
		if within(resolved, dirResolved) {
			return resolved, nil
		}
	}
	return "", fmt.Errorf("%w: %q is outside the allowed directories", ErrPath, RedactPath(abs))
}

// resolve evaluates symlinks on the deepest existing ancestor of path and
// re-appends the missing tail.
func resolve(path string) (string, error) {
	if r, err := filepath.EvalSymlinks(path); err == nil {
		return r, nil
	}
	parent := filepath.Dir(path)
	if parent == path {
		return "", fmt.Errorf("%w: cannot resolve %s", ErrPath, RedactPath(path))
	}
	r, err := resolve(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(r, filepath.Base(path)), nil
}

func within(path, dir string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(os.PathSeparator))
}

// ExportPath maps an export name onto dir. Relative names are taken
// relative to dir; ExportExt is appended when missing. The result must stay
// inside dir.
func ExportPath(name, dir string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty export name", ErrPath)
	}
	if !filepath.IsAbs(name) {
		name = filepath.Join(dir, name)
	}
	if filepath.Ext(name) != ExportExt {
		name += ExportExt
	}
	return Confine(name, []string{dir})
}
