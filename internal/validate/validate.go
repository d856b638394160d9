// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package validate collects field-level configuration errors so that a
// single load reports every problem at once.
package validate

import (
	"fmt"
	"net"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// FieldError is one rejected field.
type FieldError struct {
	Field   string
	Value   any
	Message string
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationError is every FieldError from one pass, in check order.
type ValidationError []FieldError

func (e ValidationError) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// Errors returns the individual field errors.
func (e ValidationError) Errors() []FieldError { return e }

// Fields returns the rejected field names.
func (e ValidationError) Fields() []string {
	out := make([]string, len(e))
	for i, fe := range e {
		out[i] = fe.Field
	}
	return out
}

// Validator accumulates FieldErrors.
type Validator struct {
	errs ValidationError
}

// New returns an empty Validator.
func New() *Validator { return &Validator{} }

// AddError records a failure unconditionally.
func (v *Validator) AddError(field, message string, value any) {
	v.errs = append(v.errs, FieldError{Field: field, Value: value, Message: message})
}

func (v *Validator) check(ok bool, field string, value any, format string, args ...any) {
	if !ok {
		v.AddError(field, fmt.Sprintf(format, args...), value)
	}
}

// Ok reports whether nothing has been rejected.
func (v *Validator) Ok() bool { return len(v.errs) == 0 }

// Err returns a ValidationError, or nil when every check passed.
func (v *Validator) Err() error {
	if v.Ok() {
		return nil
	}
	return slices.Clone(v.errs)
}

func (v *Validator) Range(field string, value, lo, hi int) {
	v.check(value >= lo && value <= hi, field, value, "must be between %d and %d, got %d", lo, hi, value)
}

func (v *Validator) FloatRange(field string, value, lo, hi float64) {
	v.check(value >= lo && value <= hi, field, value, "must be between %g and %g, got %g", lo, hi, value)
}

func (v *Validator) NonNegative(field string, value int) {
	v.check(value >= 0, field, value, "cannot be negative, got %d", value)
}

func (v *Validator) MinDuration(field string, d, lo time.Duration) {
	v.check(d >= lo, field, d, "must be at least %s, got %s", lo, d)
}

func (v *Validator) NotEmpty(field, value string) {
	v.check(strings.TrimSpace(value) != "", field, value, "cannot be empty")
}

func (v *Validator) OneOf(field, value string, allowed []string) {
	v.check(slices.Contains(allowed, value), field, value, "must be one of %s, got %q", strings.Join(allowed, "|"), value)
}

// AbsPath requires a clean absolute path.
func (v *Validator) AbsPath(field, path string) {
	switch {
	case path == "":
		v.AddError(field, "path cannot be empty", path)
	case !filepath.IsAbs(path):
		v.AddError(field, "must be an absolute path, got "+path, path)
	case slices.Contains(strings.Split(path, "/"), ".."):
		v.AddError(field, "must not contain .. segments", path)
	}
}

// OptionalAbsPath is AbsPath for fields that may be unset.
func (v *Validator) OptionalAbsPath(field, path string) {
	if path != "" {
		v.AbsPath(field, path)
	}
}

// ListenAddr accepts host:port with an optional host.
func (v *Validator) ListenAddr(field, addr string) {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		v.AddError(field, "invalid listen address: "+err.Error(), addr)
		return
	}
	p, err := strconv.Atoi(port)
	v.check(err == nil && p >= 0 && p <= 65535, field, addr, "port must be between 0 and 65535, got %q", port)
}

// LogLevel accepts any level zerolog can parse.
func (v *Validator) LogLevel(field, value string) {
	lvl, err := zerolog.ParseLevel(value)
	v.check(err == nil && lvl != zerolog.NoLevel, field, value, "unknown log level %q", value)
}
