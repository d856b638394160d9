// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package radio

import (
	"context"
	"sync"
)

// Fake is an in-memory radio. A disable request moves it straight to
// StateDisabled unless Hold is set, which emulates a platform that keeps
// re-enabling the radio.
type Fake struct {
	mu       sync.Mutex
	state    State
	hold     bool
	disables int
	enables  int
	err      error
}

// NewFake returns a fake radio in the given state.
func NewFake(initial State) *Fake {
	return &Fake{state: initial}
}

// State implements Radio.
func (f *Fake) State(_ context.Context) (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.err
}

// SetEnabled implements Radio.
func (f *Fake) SetEnabled(_ context.Context, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if enabled {
		f.enables++
		f.state = StateEnabled
		return nil
	}
	f.disables++
	if !f.hold {
		f.state = StateDisabled
	}
	return nil
}

// Set forces the observed state.
func (f *Fake) Set(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

// Hold makes disable requests leave the state untouched.
func (f *Fake) Hold(hold bool) {
	f.mu.Lock()
	f.hold = hold
	f.mu.Unlock()
}

// FailWith makes State return err.
func (f *Fake) FailWith(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// DisableRequests returns how many times SetEnabled(false) was called.
func (f *Fake) DisableRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disables
}

// EnableRequests returns how many times SetEnabled(true) was called.
func (f *Fake) EnableRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enables
}
