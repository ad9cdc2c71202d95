// Package sandbox confines migration writes to a project directory.
package sandbox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ValidatePath resolves targetPath against projectRoot, following symlinks
// for the part of the path that exists, and rejects anything that lands
// outside the root. It returns the resolved absolute path.
func ValidatePath(projectRoot, targetPath string) (string, error) {
	// Resolve the project root to its real path.
	absRoot, err := filepath.Abs(projectRoot)
	if err != nil {
		return "", fmt.Errorf("resolving project root: %w", err)
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", fmt.Errorf("resolving project root symlinks: %w", err)
	}

	if filepath.IsAbs(targetPath) {
		return "", fmt.Errorf("path '%s' is absolute; migrations only touch project-relative paths", targetPath)
	}

	// The path may not exist yet, so resolve as much as we can.
	resolved, err := resolveExistingPath(filepath.Join(realRoot, targetPath))
	if err != nil {
		return "", fmt.Errorf("resolving target path: %w", err)
	}

	// Ensure the resolved path is within the project root.
	if !within(realRoot, resolved) {
		return "", fmt.Errorf("path '%s' resolves to '%s' which is outside the project root '%s'", targetPath, resolved, realRoot)
	}
	return resolved, nil
}

// within compares against root plus a separator so "root2" is not inside "root".
func within(root, p string) bool {
	return p == root || strings.HasPrefix(p, root+string(filepath.Separator))
}

// resolveExistingPath evaluates symlinks on the longest existing prefix and
// re-appends the missing suffix.
func resolveExistingPath(p string) (string, error) {
	// Try resolving the full path first.
	resolved, err := filepath.EvalSymlinks(p)
	if err == nil {
		return resolved, nil
	}

	// Walk up to find the longest existing prefix.
	dir, base := filepath.Dir(p), filepath.Base(p)
	if dir == p {
		// Reached the filesystem root without finding anything.
		return p, nil
	}
	resolvedDir, err := resolveExistingPath(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedDir, base), nil
}

// SafeWrite writes content below projectRoot through a temp file and rename,
// creating parent directories as needed.
func SafeWrite(projectRoot, relPath string, content []byte, perm os.FileMode) error {
	resolved, err := ValidatePath(projectRoot, relPath)
	if err != nil {
		return err
	}

	// Create parent directories.
	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	// Write to a temp file in the same directory so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(dir, ".plugin-migrate-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	// Clean up the temp file on any failure.
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, keepMode(resolved, perm)); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	// Atomic rename.
	if err := os.Rename(tmpPath, resolved); err != nil {
		return fmt.Errorf("renaming temp file to %s: %w", resolved, err)
	}
	committed = true
	return nil
}

// keepMode returns the mode of an existing file so rewrites keep executable
// bits; new files get perm.
func keepMode(p string, perm os.FileMode) os.FileMode {
	if info, err := os.Stat(p); err == nil {
		return info.Mode().Perm()
	}
	return perm
}

// SafeRemove deletes a file below projectRoot. Removing a missing file is
// not an error.
func SafeRemove(projectRoot, relPath string) error {
	resolved, err := ValidatePath(projectRoot, relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(resolved); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// SafeRead reads a file below projectRoot.
func SafeRead(projectRoot, relPath string) ([]byte, error) {
	resolved, err := ValidatePath(projectRoot, relPath)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(resolved)
}
