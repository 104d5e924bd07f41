// Package security keeps tool-supplied paths inside the configured roots.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathGuard accepts only paths below one of its roots. The first root is the
// base for relative paths.
type PathGuard struct {
	roots []string
}

// NewPathGuard creates a guard over the given roots. Roots need not exist yet.
func NewPathGuard(roots ...string) (*PathGuard, error) {
	var clean []string
	for _, r := range roots {
		if strings.TrimSpace(r) == "" {
			continue
		}
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root %s: %w", r, err)
		}
		clean = append(clean, filepath.Clean(abs))
	}
	if len(clean) == 0 {
		return nil, fmt.Errorf("at least one root directory is required")
	}
	return &PathGuard{roots: clean}, nil
}

// Base returns the directory relative paths are resolved against
func (g *PathGuard) Base() string {
	return g.roots[0]
}

// Roots returns the accepted root directories
func (g *PathGuard) Roots() []string {
	return append([]string(nil), g.roots...)
}

// Resolve turns path into an absolute path and rejects it when it falls
// outside every root
func (g *PathGuard) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(g.Base(), path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	for _, root := range g.roots {
		if within(abs, root) {
			return abs, nil
		}
	}
	return "", fmt.Errorf("path is outside the allowed directories: %s", path)
}

// within reports whether path lies in root, checking the literal path and,
// when they exist, the symlink-resolved path and root
func within(path, root string) bool {
	realRoot := root
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		realRoot = resolved
	}

	realPath := path
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		realPath = resolved
	} else if !os.IsNotExist(err) {
		return false
	} else if resolved, err := filepath.EvalSymlinks(filepath.Dir(path)); err == nil {
		realPath = filepath.Join(resolved, filepath.Base(path))
	}

	literal := hasPrefixDir(path, root) || hasPrefixDir(path, realRoot)
	real := hasPrefixDir(realPath, root) || hasPrefixDir(realPath, realRoot)
	return literal && real
}

func hasPrefixDir(path, dir string) bool {
	path, dir = filepath.Clean(path), filepath.Clean(dir)
	if path == dir {
		return true
	}
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return strings.HasPrefix(path, dir)
}
