// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package helper

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ManuGH/tetherd/internal/fsutil"
)

// ErrMissingResources is matched by errors.Is on a *MissingError.
var ErrMissingResources = errors.New("helper resources missing")

// MissingError lists the required files that were not found.
type MissingError struct {
	Dir   string
	Paths []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("helper resources missing in %s: %s", e.Dir, strings.Join(e.Paths, ", "))
}

// Is implements errors.Is.
func (e *MissingError) Is(target error) bool { return target == ErrMissingResources }

// CheckInstall verifies that every required file exists under dir as a
// regular file. Entries that resolve outside dir count as missing.
func CheckInstall(dir string, required []string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return &MissingError{Dir: dir, Paths: []string{dir}}
	}
	var missing []string
	for _, name := range required {
		path, err := fsutil.Confine(dir, name)
		if err != nil || fsutil.IsRegularFile(path) != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &MissingError{Dir: dir, Paths: missing}
	}
	return nil
}

// Installation adapts CheckInstall to a fixed directory and file list.
type Installation struct {
	Dir      string
	Required []string
}

// Check verifies the installation.
func (i Installation) Check() error {
	return CheckInstall(i.Dir, i.Required)
}
