// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

package keyscreen

import "fmt"

// StateKind enumerates the view states of the key screen.
type StateKind int

const (
	StateDefault StateKind = iota
	StateVerifying
	StateVerified
	StateRegenerating
	StateRegenerated
)

// ViewState is the controller's current state. OK carries the payload of
// StateVerified (key valid) and StateRegenerated (regeneration succeeded).
type ViewState struct {
	Kind StateKind
	OK   bool
}

var (
	Default      = ViewState{Kind: StateDefault}
	Verifying    = ViewState{Kind: StateVerifying}
	Regenerating = ViewState{Kind: StateRegenerating}
)

// Verified returns the state after a completed verification.
func Verified(valid bool) ViewState { return ViewState{Kind: StateVerified, OK: valid} }

// Regenerated returns the state after a completed regeneration.
func Regenerated(success bool) ViewState { return ViewState{Kind: StateRegenerated, OK: success} }

// ControlsEnabled reports whether verify and regenerate may be triggered.
func (s ViewState) ControlsEnabled() bool {
	return s.Kind != StateVerifying && s.Kind != StateRegenerating
}

// Status maps the state onto what the display shows.
func (s ViewState) Status() Status {
	switch s.Kind {
	case StateVerifying:
		return StatusVerifying
	case StateVerified:
		if s.OK {
			return StatusValid
		}
		return StatusInvalid
	case StateRegenerating:
		return StatusRegenerating
	default:
		// Regenerated(_) only gates the announcement.
		return StatusDefault
	}
}

func (s ViewState) String() string {
	switch s.Kind {
	case StateDefault:
		return "Default"
	case StateVerifying:
		return "Verifying"
	case StateVerified:
		return fmt.Sprintf("Verified(%t)", s.OK)
	case StateRegenerating:
		return "Regenerating"
	case StateRegenerated:
		return fmt.Sprintf("Regenerated(%t)", s.OK)
	}
	return fmt.Sprintf("ViewState(%d)", int(s.Kind))
}

// Status is the visual status of the public key row.
type Status int

const (
	StatusDefault Status = iota
	StatusVerifying
	StatusValid
	StatusInvalid
	StatusRegenerating
)

func (s Status) String() string {
	switch s {
	case StatusVerifying:
		return "verifying"
	case StatusValid:
		return "valid"
	case StatusInvalid:
		return "invalid"
	case StatusRegenerating:
		return "regenerating"
	}
	return "default"
}
