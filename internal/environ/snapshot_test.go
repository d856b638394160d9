// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package environ

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Order(t *testing.T) {
	b := Builder{
		Prefix:    "brncl",
		HelperDir: "/opt/tetherd/bin",
		Ambient:   func() []string { return []string{"PATH=/usr/bin", "HOME=/root", "broken"} },
	}
	prefs := Static{
		{Key: "lan_essid", Value: "barnacle", Kind: KindString},
		{Key: "lan_wep", Value: "", Kind: KindString},
		{Key: "wifi_txpower", Value: "true", Kind: KindFlag},
		{Key: "lan_channel", Value: "6", Kind: KindString},
		{Key: "nat_filter", Value: "false", Kind: KindFlag},
	}

	snap, err := b.Build(prefs)
	require.NoError(t, err)

	want := []string{
		"HOME=/root",
		"PATH=/usr/bin",
		"brncl_lan_essid=barnacle",
		"brncl_lan_channel=6",
		"brncl_wifi_txpower=1",
		"brncl_path=/opt/tetherd/bin",
	}
	if diff := cmp.Diff(want, snap.Strings()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilder_FreshSnapshotPerBuild(t *testing.T) {
	prefs := Static{{Key: "lan_essid", Value: "one", Kind: KindString}}
	b := Builder{Prefix: "brncl", Ambient: func() []string { return nil }}

	first, err := b.Build(prefs)
	require.NoError(t, err)

	prefs[0].Value = "two"
	second, err := b.Build(prefs)
	require.NoError(t, err)

	v, ok := first.Lookup("brncl_lan_essid")
	require.True(t, ok)
	assert.Equal(t, "one", v)
	v, _ = second.Lookup("brncl_lan_essid")
	assert.Equal(t, "two", v)
}

func TestSnapshot_EntriesIsCopy(t *testing.T) {
	snap, err := Builder{Ambient: func() []string { return []string{"A=1"} }}.Build(nil)
	require.NoError(t, err)

	entries := snap.Entries()
	entries[0].Value = "mutated"
	v, _ := snap.Lookup("A")
	assert.Equal(t, "1", v)
}

type failingProvider struct{}

func (failingProvider) Preferences() ([]Preference, error) { return nil, errors.New("boom") }

func TestBuilder_ProviderError(t *testing.T) {
	_, err := Builder{}.Build(failingProvider{})
	assert.Error(t, err)
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lan_essid: barnacle\nlan_channel: 6\nwifi_txpower: true\nnat_filter: no_bool\nempty: ~\n"), 0o600))

	prefs, err := FileProvider{Path: path}.Preferences()
	require.NoError(t, err)

	want := []Preference{
		{Key: "lan_essid", Value: "barnacle", Kind: KindString},
		{Key: "lan_channel", Value: "6", Kind: KindString},
		{Key: "wifi_txpower", Value: "true", Kind: KindFlag},
		{Key: "nat_filter", Value: "no_bool", Kind: KindString},
		{Key: "empty", Value: "", Kind: KindString},
	}
	if diff := cmp.Diff(want, prefs); diff != "" {
		t.Fatalf("preferences mismatch (-want +got):\n%s", diff)
	}
}

func TestFileProvider_Missing(t *testing.T) {
	prefs, err := FileProvider{Path: filepath.Join(t.TempDir(), "absent.yaml")}.Preferences()
	require.NoError(t, err)
	assert.Empty(t, prefs)
}

func TestParsePreferences_RejectsNested(t *testing.T) {
	_, err := ParsePreferences([]byte("lan:\n  essid: x\n"))
	assert.ErrorIs(t, err, ErrInvalidPreferences)

	_, err = ParsePreferences([]byte("- a\n- b\n"))
	assert.ErrorIs(t, err, ErrInvalidPreferences)
}

func TestIsSensitive(t *testing.T) {
	assert.True(t, IsSensitive("brncl_lan_wep_password"))
	assert.True(t, IsSensitive("brncl_lan_wpa_key"))
	assert.False(t, IsSensitive("brncl_lan_essid"))
}
