// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package environ

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind distinguishes free-form preferences from checkbox-style flags.
type Kind int

const (
	KindString Kind = iota
	KindFlag
)

// Preference is one user setting forwarded to the helper.
type Preference struct {
	Key   string
	Value string
	Kind  Kind
}

// Enabled reports whether a flag preference is switched on.
func (p Preference) Enabled() bool {
	return p.Kind == KindFlag && (p.Value == "true" || p.Value == "1")
}

// Provider supplies the current preferences, in a stable order, on demand.
type Provider interface {
	Preferences() ([]Preference, error)
}

// Static is a fixed preference list.
type Static []Preference

// Preferences implements Provider.
func (s Static) Preferences() ([]Preference, error) {
	out := make([]Preference, len(s))
	copy(out, s)
	return out, nil
}

// FileProvider reads preferences from a flat YAML mapping every time it is
// asked, so edits take effect on the next start attempt. YAML booleans become
// flags; every other scalar is a string preference. Mapping order is kept.
type FileProvider struct {
	Path string
}

// ErrInvalidPreferences is returned when the preferences file is not a flat mapping.
var ErrInvalidPreferences = errors.New("invalid preferences file")

// Preferences implements Provider. A missing file yields no preferences.
func (f FileProvider) Preferences() ([]Preference, error) {
	if f.Path == "" {
		return nil, nil
	}
	// #nosec G304 -- the preferences path is operator configuration
	data, err := os.ReadFile(filepath.Clean(f.Path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read preferences: %w", err)
	}
	return ParsePreferences(data)
}

// ParsePreferences decodes a flat YAML mapping into ordered preferences.
func ParsePreferences(data []byte) ([]Preference, error) {
	var doc yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidPreferences, err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping", ErrInvalidPreferences)
	}

	prefs := make([]Preference, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: %q must be a scalar", ErrInvalidPreferences, k.Value)
		}
		key := strings.TrimSpace(k.Value)
		if key == "" {
			continue
		}
		pref := Preference{Key: key, Value: v.Value, Kind: KindString}
		if v.Tag == "!!bool" {
			var b bool
			if err := v.Decode(&b); err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPreferences, key, err)
			}
			pref.Kind = KindFlag
			pref.Value = "false"
			if b {
				pref.Value = "true"
			}
		}
		if v.Tag == "!!null" {
			pref.Value = ""
		}
		prefs = append(prefs, pref)
	}
	return prefs, nil
}
