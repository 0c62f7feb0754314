// Package sandbox implements the path-jail every filesystem tool resolves
// its paths through before touching disk: no path may resolve, directly or
// through a symlink, outside the configured root.
package sandbox

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/coreagent/coreagent/pkg/agentcore"
)

// Jail resolves paths against a single root directory and refuses any path
// that resolves (including through symlinks) outside the root. Resolve
// checks paths with filepath.Rel/IsLocal and EvalSymlinks; OpenRoot hands
// out Go's os.Root for the same directory.
type Jail struct {
	rootPath string
}

// New creates a Jail rooted at rootPath. rootPath is resolved to an
// absolute path immediately so later relative inputs are unambiguous.
func New(rootPath string) (*Jail, error) {
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("sandbox: resolve root: %w", err)
	}
	return &Jail{rootPath: abs}, nil
}

// RootPath returns the jail's absolute root.
func (j *Jail) RootPath() string {
	return j.rootPath
}

// Resolve validates inputPath against the jail and returns the jail-root
// absolute path it refers to. It reads the filesystem only to resolve
// symlinks in the path's existing ancestors. It is O(depth)
// in the number of path components, walking up through non-existent
// ancestors the same way the teacher's resolveExistingAncestor does, so a
// path to a not-yet-created file is still checked against any symlinked
// ancestor directory.
func (j *Jail) Resolve(inputPath string) (string, error) {
	rel := filepath.Clean(inputPath)
	if filepath.IsAbs(rel) {
		r, err := filepath.Rel(j.rootPath, rel)
		if err != nil {
			return "", agentcore.New(agentcore.KindJailEscape, "cannot relate path to workspace root", err)
		}
		rel = r
	}

	if !filepath.IsLocal(rel) {
		return "", agentcore.New(agentcore.KindJailEscape, fmt.Sprintf("path %q escapes the workspace", inputPath), nil)
	}

	candidate := filepath.Join(j.rootPath, rel)

	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		if !isWithin(resolved, j.rootPath) {
			return "", agentcore.New(agentcore.KindJailEscape, fmt.Sprintf("path %q resolves outside the workspace via a symlink", inputPath), nil)
		}
		return candidate, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("sandbox: resolve symlinks: %w", err)
	}

	parentResolved, err := resolveExistingAncestor(filepath.Dir(candidate))
	if err != nil {
		if os.IsNotExist(err) {
			return candidate, nil
		}
		return "", fmt.Errorf("sandbox: resolve ancestor: %w", err)
	}
	if !isWithin(parentResolved, j.rootPath) {
		return "", agentcore.New(agentcore.KindJailEscape, fmt.Sprintf("path %q's parent resolves outside the workspace via a symlink", inputPath), nil)
	}

	return candidate, nil
}

// OpenRoot returns an os.Root handle scoped to the jail, for callers that
// need atomic, sandbox-enforced file operations (used by the read_file /
// write_file tools).
func (j *Jail) OpenRoot() (*os.Root, error) {
	return os.OpenRoot(j.rootPath)
}

func resolveExistingAncestor(path string) (string, error) {
	for current := filepath.Clean(path); ; current = filepath.Dir(current) {
		if resolved, err := filepath.EvalSymlinks(current); err == nil {
			return resolved, nil
		} else if !os.IsNotExist(err) {
			return "", err
		}
		if filepath.Dir(current) == current {
			return "", os.ErrNotExist
		}
	}
}

func isWithin(candidate, root string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(candidate))
	return err == nil && filepath.IsLocal(rel)
}
