// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestConfigHolder_Reload(t *testing.T) {
	path := writeConfig(t, "negotiation:\n  maxDisableRequests: 3\n")
	loader := NewLoader(path, "v")
	initial, err := loader.Load()
	require.NoError(t, err)

	holder := NewConfigHolder(initial, loader)
	updates := make(chan AppConfig, 1)
	holder.RegisterListener(updates)

	require.NoError(t, os.WriteFile(path, []byte("negotiation:\n  maxDisableRequests: 9\n"), 0o600))
	require.NoError(t, holder.Reload(context.Background()))

	assert.Equal(t, 9, holder.Get().Negotiation.MaxDisableRequests)
	select {
	case got := <-updates:
		assert.Equal(t, 9, got.Negotiation.MaxDisableRequests)
	default:
		t.Fatal("listener not notified")
	}
}

func TestConfigHolder_ReloadKeepsOldOnError(t *testing.T) {
	path := writeConfig(t, "negotiation:\n  maxDisableRequests: 3\n")
	loader := NewLoader(path, "v")
	initial, err := loader.Load()
	require.NoError(t, err)
	holder := NewConfigHolder(initial, loader)

	require.NoError(t, os.WriteFile(path, []byte("negotiation:\n  bogus: 1\n"), 0o600))
	err = holder.Reload(context.Background())
	assert.ErrorIs(t, err, ErrUnknownConfigField)
	assert.Equal(t, 3, holder.Get().Negotiation.MaxDisableRequests)
}

func TestConfigHolder_FullListenerDoesNotBlock(t *testing.T) {
	loader := NewLoader("", "v")
	initial, err := loader.Load()
	require.NoError(t, err)
	holder := NewConfigHolder(initial, loader)

	full := make(chan AppConfig)
	holder.RegisterListener(full)
	assert.NoError(t, holder.Reload(context.Background()))
}

func TestConfigHolder_WatchReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := writeConfig(t, "log:\n  level: info\n")
	loader := NewLoader(path, "v")
	initial, err := loader.Load()
	require.NoError(t, err)

	holder := NewConfigHolder(initial, loader)
	holder.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- holder.Watch(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))

	require.Eventually(t, func() bool { return holder.Get().Log.Level == "debug" }, 3*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestConfigHolder_WatchWithoutFile(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	holder := NewConfigHolder(Defaults(), NewLoader("", "v"))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- holder.Watch(ctx) }()
	cancel()
	assert.NoError(t, <-done)
}
