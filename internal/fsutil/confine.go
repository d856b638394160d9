// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fsutil resolves paths that must stay inside a root directory, such
// as the helper's resources and its launcher script.
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrEscapesRoot is returned when a path resolves outside its root.
var ErrEscapesRoot = errors.New("path escapes root")

// Confine joins root and rel and returns the resolved path, failing when the
// result (after following symlinks) is not underneath the resolved root.
// rel must be relative. Targets that do not exist yet are checked through
// their parent directory.
func Confine(root, rel string) (string, error) {
	if strings.Contains(rel, "\\") {
		return "", fmt.Errorf("path contains backslash: %s", rel)
	}
	clean := filepath.Clean(rel)
	if filepath.IsAbs(clean) {
		return "", fmt.Errorf("path must be relative: %s", rel)
	}
	if outside(clean) {
		return "", fmt.Errorf("%w: %s", ErrEscapesRoot, rel)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("invalid root %s: %w", root, err)
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", err
	}

	full := filepath.Join(realRoot, clean)
	real, err := resolve(full)
	if err != nil {
		return "", err
	}
	relToRoot, err := filepath.Rel(realRoot, real)
	if err != nil {
		return "", fmt.Errorf("rel %s: %w", real, err)
	}
	if outside(relToRoot) {
		return "", fmt.Errorf("%w via symlink: %s", ErrEscapesRoot, rel)
	}
	return real, nil
}

func resolve(full string) (string, error) {
	if _, err := os.Lstat(full); err == nil {
		real, err := filepath.EvalSymlinks(full)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", full, err)
		}
		return real, nil
	}
	dir := filepath.Dir(full)
	realDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		if _, statErr := os.Stat(dir); statErr == nil {
			return "", fmt.Errorf("resolve parent %s: %w", dir, err)
		}
		return full, nil
	}
	return filepath.Join(realDir, filepath.Base(full)), nil
}

func outside(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// IsRegularFile fails unless path exists and is a regular file.
func IsRegularFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", path)
	}
	return nil
}

// IsExecutable fails unless path is a regular file with an exec bit set.
func IsExecutable(path string) error {
	if err := IsRegularFile(path); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("not executable: %s", path)
	}
	return nil
}
