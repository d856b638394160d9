// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package helper

import (
	"errors"
	"os"
	"strconv"

	"github.com/google/renameio/v2"
)

func writePIDFile(path string, pid int) error {
	return renameio.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

func removePIDFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
