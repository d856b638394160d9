// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ManuGH/tetherd/internal/config"
	"github.com/ManuGH/tetherd/internal/fsutil"
	"github.com/ManuGH/tetherd/internal/helper"
	"github.com/ManuGH/tetherd/internal/log"
	"github.com/rs/zerolog"
)

// PerformStartupChecks validates the environment before the daemon starts.
// Missing helper resources are only warned about: the controller reports
// them per attempt.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("Running pre-flight startup checks...")

	// 1. Helper installation
	if err := helper.CheckInstall(cfg.Helper.Dir, cfg.Helper.Required); err != nil {
		logger.Warn().Err(err).Str("event", "startup.helper_incomplete").Msg("helper installation incomplete; start requests will fail")
	} else {
		logger.Info().Str("dir", cfg.Helper.Dir).Msg("✓ Helper resources present")
	}

	// 2. Helper command
	if err := checkCommand(cfg.Helper.Dir, cfg.Helper.Command); err != nil {
		return fmt.Errorf("helper command check failed: %w", err)
	}

	// 3. Radio backend
	if err := checkRadioBackend(logger, cfg.Radio); err != nil {
		return fmt.Errorf("radio backend check failed: %w", err)
	}

	// 4. PID file directory
	if cfg.Helper.PIDFile != "" {
		if err := checkWritableDir(filepath.Dir(cfg.Helper.PIDFile)); err != nil {
			return fmt.Errorf("pid file directory check failed: %w", err)
		}
	}

	// 5. Sleep inhibitor (optional)
	if cfg.Power.InhibitSleep {
		if _, err := exec.LookPath("systemd-inhibit"); err != nil {
			logger.Warn().Err(err).Msg("systemd-inhibit not found; sleep inhibition will fail per attempt")
		}
	}

	logger.Info().Msg("✅ All startup checks passed")
	return nil
}

// checkCommand resolves the launcher binary. Relative paths containing a
// separator are resolved against the helper directory, which is the
// helper's working directory.
func checkCommand(dir string, command []string) error {
	if len(command) == 0 {
		return fmt.Errorf("%w: empty command", helper.ErrNoCommand)
	}
	bin := command[0]
	if strings.ContainsRune(bin, filepath.Separator) && !filepath.IsAbs(bin) {
		resolved, err := fsutil.Confine(dir, bin)
		if err != nil {
			return err
		}
		return fsutil.IsExecutable(resolved)
	}
	if _, err := exec.LookPath(bin); err != nil {
		return fmt.Errorf("launcher binary not found (%s): %w", bin, err)
	}
	return nil
}

func checkRadioBackend(logger zerolog.Logger, cfg config.RadioConfig) error {
	switch strings.ToLower(cfg.Backend) {
	case "nmcli", "":
		if _, err := exec.LookPath("nmcli"); err != nil {
			return fmt.Errorf("nmcli binary not found: %w", err)
		}
	case "rfkill":
		info, err := os.Stat(cfg.SysfsRoot)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("path is not a directory: %s", cfg.SysfsRoot)
		}
	case "fake":
		logger.Warn().Msg("radio backend is fake; the real radio is never touched")
		return nil
	}
	logger.Info().Str("backend", cfg.Backend).Msg("✓ Radio backend available")
	return nil
}

func checkWritableDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)
	return nil
}
