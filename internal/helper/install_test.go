// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package helper

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckInstall(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wifi"), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "conf"), 0o755))

	assert.NoError(t, CheckInstall(dir, []string{"wifi"}))

	err := CheckInstall(dir, []string{"wifi", "dnsmasq", "conf"})
	require.ErrorIs(t, err, ErrMissingResources)
	var me *MissingError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, []string{"dnsmasq", "conf"}, me.Paths)
}

func TestCheckInstall_MissingDir(t *testing.T) {
	err := Installation{Dir: filepath.Join(t.TempDir(), "absent"), Required: []string{"wifi"}}.Check()
	assert.ErrorIs(t, err, ErrMissingResources)
}

func TestCheckInstall_EscapingEntryIsMissing(t *testing.T) {
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "wifi"), nil, 0o755))
	dir := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(dir, "ext")))

	err := CheckInstall(dir, []string{"ext/wifi", "../wifi"})
	var me *MissingError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, []string{"ext/wifi", "../wifi"}, me.Paths)
}
