// Package pathguard keeps user supplied paths inside a root directory.
package pathguard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when a path escapes the guarded directory.
var ErrOutsideRoot = errors.New("path is outside the allowed directory")

// Guard resolves paths relative to a root and rejects anything outside it.
type Guard struct {
	root string
}

// New creates a guard for root. The directory does not need to exist yet.
func New(root string) (*Guard, error) {
	if root == "" {
		return nil, fmt.Errorf("root directory cannot be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	return &Guard{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute guarded directory.
func (g *Guard) Root() string {
	return g.root
}

// Resolve turns path into an absolute path inside the root. Relative paths are
// taken relative to the root, not the working directory.
func (g *Guard) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(g.root, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	within, err := g.Contains(abs)
	if err != nil {
		return "", err
	}
	if !within {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return abs, nil
}

// ResolveDir is Resolve plus a check that the result is an existing directory.
func (g *Guard) ResolveDir(path string) (string, error) {
	abs, err := g.Resolve(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", abs)
	}
	return abs, nil
}

// Contains reports whether path lies inside the root, following symlinks on
// both sides when they exist.
func (g *Guard) Contains(path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path: %w", err)
	}
	clean := filepath.Clean(abs)

	realRoot := g.root
	if resolved, err := filepath.EvalSymlinks(g.root); err == nil {
		realRoot = resolved
	}

	realPath := clean
	if resolved, err := filepath.EvalSymlinks(clean); err == nil {
		realPath = resolved
	}

	return within(clean, g.root, realRoot) && within(realPath, g.root, realRoot), nil
}

func within(path string, roots ...string) bool {
	for _, root := range roots {
		if path == root {
			return true
		}
		prefix := root
		if !strings.HasSuffix(prefix, string(filepath.Separator)) {
			prefix += string(filepath.Separator)
		}
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
