// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenAddr(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{"127.0.0.1:8088", false},
		{":8088", false},
		{"[::1]:8088", false},
		{"127.0.0.1", true},
		{"localhost:http", true},
		{"localhost:70000", true},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			v := New()
			v.ListenAddr("api.listen", tt.addr)
			assert.Equal(t, tt.wantErr, !v.Ok(), "err: %v", v.Err())
		})
	}
}

func TestAbsPath(t *testing.T) {
	v := New()
	v.AbsPath("helper.dir", "/opt/tetherd/helper")
	v.AbsPath("helper.dir", "/opt/tetherd..old/helper")
	v.OptionalAbsPath("helper.pidFile", "")
	require.True(t, v.Ok(), v.Err())

	v.AbsPath("a", "")
	v.AbsPath("b", "relative/dir")
	v.AbsPath("c", "/opt/../etc")
	err := v.Err()
	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"a", "b", "c"}, ve.Fields())
}

func TestChecks(t *testing.T) {
	v := New()
	v.Range("r", 5, 1, 10)
	v.NonNegative("n", 0)
	v.FloatRange("f", 0.5, 0, 1)
	v.MinDuration("d", time.Second, 0)
	v.OneOf("radio.backend", "nmcli", []string{"nmcli", "rfkill", "fake"})
	v.LogLevel("log.level", "debug")
	v.NotEmpty("log.service", "tetherd")
	require.True(t, v.Ok(), v.Err())

	v.Range("r", 11, 1, 10)
	v.NonNegative("n", -1)
	v.FloatRange("f", 1.5, 0, 1)
	v.MinDuration("d", -time.Second, 0)
	v.OneOf("radio.backend", "iw", []string{"nmcli", "rfkill", "fake"})
	v.LogLevel("log.level", "verbose")
	v.LogLevel("log.level", "")
	v.NotEmpty("log.service", "  ")

	var ve ValidationError
	require.ErrorAs(t, v.Err(), &ve)
	assert.Len(t, ve.Errors(), 8)
	assert.Equal(t, `must be one of nmcli|rfkill|fake, got "iw"`, ve.Errors()[4].Message)
}

func TestValidationError_Message(t *testing.T) {
	v := New()
	assert.NoError(t, v.Err())

	v.AddError("a", "first", 1)
	v.AddError("b", "second", 2)
	assert.EqualError(t, v.Err(), "invalid configuration: a: first; b: second")
}

func TestErrIsDetached(t *testing.T) {
	v := New()
	v.AddError("a", "first", nil)
	err := v.Err()
	v.AddError("b", "second", nil)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve, 1)
}
