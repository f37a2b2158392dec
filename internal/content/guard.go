package content

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/razvandimescu/molesk/internal/logger"
)

// IsPathSafe reports whether base joined with requested stays inside base.
// It only looks at the strings; nothing on disk is touched.
func IsPathSafe(base, requested string) bool {
	resolvedBase, err := filepath.Abs(base)
	if err != nil {
		return false
	}
	resolved, err := filepath.Abs(filepath.Join(base, requested))
	if err != nil {
		return false
	}
	return within(resolvedBase, resolved)
}

func within(base, target string) bool {
	if target == base {
		return true
	}
	prefix := base
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(target, prefix)
}

// symlinkEscapes reports whether fullPath resolves, through symbolic links,
// to somewhere outside root. Filesystems without Lstat support never escape.
func symlinkEscapes(fs afero.Fs, root, fullPath string) bool {
	lstater, ok := fs.(afero.Lstater)
	if !ok {
		return false
	}
	info, lstatCalled, err := lstater.LstatIfPossible(fullPath)
	if err != nil || !lstatCalled {
		return false
	}

	resolvedRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		resolvedRoot = root
	}

	// Parent directories may be links too, so resolve the whole path
	resolved, err := filepath.EvalSymlinks(fullPath)
	if err != nil {
		if info.Mode()&os.ModeSymlink != 0 {
			logger.Warn("Warning: Skipping unresolvable symlink: %s", fullPath)
			return true
		}
		return false
	}

	if !within(resolvedRoot, resolved) {
		logger.Warn("Security: Refusing symlink outside content root: %s -> %s", fullPath, resolved)
		return true
	}
	return false
}
