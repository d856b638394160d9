// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package environ assembles the environment handed to the helper process.
//
// A Snapshot is built once per start attempt from the daemon's own
// environment plus the preferences supplied by a Provider, and is never
// mutated afterwards.
package environ

import (
	"os"
	"sort"
	"strings"
)

// Entry is a single KEY=VALUE pair.
type Entry struct {
	Key   string
	Value string
}

// String renders the entry in exec form.
func (e Entry) String() string {
	return e.Key + "=" + e.Value
}

// Snapshot is an ordered, immutable environment.
type Snapshot struct {
	entries []Entry
}

// Len returns the number of entries.
func (s Snapshot) Len() int { return len(s.entries) }

// Entries returns a copy of the entries in order.
func (s Snapshot) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Strings returns the entries as KEY=VALUE strings suitable for exec.Cmd.Env.
func (s Snapshot) Strings() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.String()
	}
	return out
}

// Lookup returns the last value recorded for key.
func (s Snapshot) Lookup(key string) (string, bool) {
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].Key == key {
			return s.entries[i].Value, true
		}
	}
	return "", false
}

// Builder assembles snapshots.
type Builder struct {
	// Prefix namespaces preference-derived keys, e.g. "brncl" -> brncl_ssid.
	Prefix string
	// HelperDir is exported as <Prefix>_path.
	HelperDir string
	// Ambient returns the daemon's environment; defaults to os.Environ.
	Ambient func() []string
}

// Build assembles a fresh snapshot: ambient entries sorted by key, then
// non-empty string preferences, then enabled flags as "=1", then the helper path.
func (b Builder) Build(p Provider) (Snapshot, error) {
	var prefs []Preference
	if p != nil {
		var err error
		prefs, err = p.Preferences()
		if err != nil {
			return Snapshot{}, err
		}
	}

	ambient := b.Ambient
	if ambient == nil {
		ambient = os.Environ
	}

	entries := parseAmbient(ambient())
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	for _, pref := range prefs {
		if pref.Kind == KindString && pref.Value != "" {
			entries = append(entries, Entry{Key: b.key(pref.Key), Value: pref.Value})
		}
	}
	for _, pref := range prefs {
		if pref.Kind == KindFlag && pref.Enabled() {
			entries = append(entries, Entry{Key: b.key(pref.Key), Value: "1"})
		}
	}
	entries = append(entries, Entry{Key: b.key("path"), Value: b.HelperDir})

	return Snapshot{entries: entries}, nil
}

func (b Builder) key(name string) string {
	if b.Prefix == "" {
		return name
	}
	return b.Prefix + "_" + name
}

func parseAmbient(env []string) []Entry {
	out := make([]Entry, 0, len(env))
	for _, kv := range env {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		out = append(out, Entry{Key: k, Value: v})
	}
	return out
}

// IsSensitive reports whether a key's value must be masked in logs.
func IsSensitive(key string) bool {
	lk := strings.ToLower(key)
	return strings.Contains(lk, "pass") || strings.Contains(lk, "key") || strings.Contains(lk, "secret") || strings.Contains(lk, "token")
}
