// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

package testutil

import (
	"fmt"

	"github.com/toeirei/wgkeys/internal/keyscreen"
)

// ErrorDialog is one ShowError call.
type ErrorDialog struct {
	Title   string
	Message string
}

// Display records every call made by a keyscreen.Controller.
type Display struct {
	Frames        []keyscreen.Frame
	Controls      []bool
	Announcements []string
	Errors        []ErrorDialog
	// Calls counts all calls in order, formatted for failure messages.
	Calls []string
}

func (d *Display) Render(f keyscreen.Frame) {
	d.Frames = append(d.Frames, f)
	d.Calls = append(d.Calls, fmt.Sprintf("render(%q, %q, %s)", f.Key, f.Age, f.Status))
}

func (d *Display) SetControlsEnabled(enabled bool) {
	d.Controls = append(d.Controls, enabled)
	d.Calls = append(d.Calls, fmt.Sprintf("controls(%t)", enabled))
}

func (d *Display) Announce(text string) {
	d.Announcements = append(d.Announcements, text)
	d.Calls = append(d.Calls, fmt.Sprintf("announce(%q)", text))
}

func (d *Display) ShowError(title, message string) {
	d.Errors = append(d.Errors, ErrorDialog{Title: title, Message: message})
	d.Calls = append(d.Calls, fmt.Sprintf("error(%q, %q)", title, message))
}

// Last returns the most recent frame, or the zero Frame.
func (d *Display) Last() keyscreen.Frame {
	if len(d.Frames) == 0 {
		return keyscreen.Frame{}
	}
	return d.Frames[len(d.Frames)-1]
}

// ControlsEnabled returns the last value passed to SetControlsEnabled.
func (d *Display) ControlsEnabled() bool {
	if len(d.Controls) == 0 {
		return false
	}
	return d.Controls[len(d.Controls)-1]
}

// Mark returns the current call count; CallsSince(mark) lists later calls.
func (d *Display) Mark() int { return len(d.Calls) }

// CallsSince returns calls recorded after mark.
func (d *Display) CallsSince(mark int) []string { return d.Calls[mark:] }
