// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ManuGH/tetherd/internal/config"
	"github.com/ManuGH/tetherd/internal/fsutil"
	"github.com/ManuGH/tetherd/internal/helper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startupConfig(t *testing.T) config.AppConfig {
	t.Helper()
	cfg := config.Defaults()
	cfg.Helper.Dir = t.TempDir()
	cfg.Helper.Command = []string{"sh", "-c", "./wifi"}
	cfg.Radio.Backend = "fake"
	return cfg
}

func TestPerformStartupChecks(t *testing.T) {
	cfg := startupConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Helper.Dir, "wifi"), []byte("#!/bin/sh\n"), 0o755))
	cfg.Helper.PIDFile = filepath.Join(t.TempDir(), "helper.pid")

	assert.NoError(t, PerformStartupChecks(context.Background(), cfg))
}

func TestPerformStartupChecks_MissingResourcesOnlyWarn(t *testing.T) {
	assert.NoError(t, PerformStartupChecks(context.Background(), startupConfig(t)))
}

func TestPerformStartupChecks_UnknownLauncher(t *testing.T) {
	cfg := startupConfig(t)
	cfg.Helper.Command = []string{"definitely-not-a-launcher-xyz"}

	err := PerformStartupChecks(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "launcher binary not found")
}

func TestCheckCommand_RelativeToHelperDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run"), []byte("#!/bin/sh\n"), 0o644))

	err := checkCommand(dir, []string{"./run"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not executable")

	require.NoError(t, os.Chmod(filepath.Join(dir, "run"), 0o755))
	assert.NoError(t, checkCommand(dir, []string{"./run"}))

	assert.ErrorIs(t, checkCommand(dir, nil), helper.ErrNoCommand)
	assert.ErrorIs(t, checkCommand(dir, []string{"../run"}), fsutil.ErrEscapesRoot)
}

func TestPerformStartupChecks_RFKillRoot(t *testing.T) {
	cfg := startupConfig(t)
	cfg.Radio.Backend = "rfkill"
	cfg.Radio.SysfsRoot = filepath.Join(t.TempDir(), "missing")
	assert.Error(t, PerformStartupChecks(context.Background(), cfg))

	cfg.Radio.SysfsRoot = t.TempDir()
	assert.NoError(t, PerformStartupChecks(context.Background(), cfg))
}

func TestPerformStartupChecks_PIDDirMissing(t *testing.T) {
	cfg := startupConfig(t)
	cfg.Helper.PIDFile = filepath.Join(t.TempDir(), "nope", "helper.pid")
	err := PerformStartupChecks(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pid file directory")
}
