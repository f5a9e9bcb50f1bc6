// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/toeirei/wgkeys/internal/i18n"
)

type keyMap struct {
	Verify     key.Binding
	Regenerate key.Binding
	Copy       key.Binding
	Dismiss    key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func (km keyMap) ShortHelp() []key.Binding {
	return []key.Binding{km.Verify, km.Regenerate, km.Copy, km.Help, km.Quit}
}

func (km keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{km.Verify, km.Regenerate, km.Copy},
		{km.Dismiss, km.Help, km.Quit},
	}
}

// *keyMap implements help.KeyMap
var _ help.KeyMap = (*keyMap)(nil)

// newKeyMap builds the bindings with help texts in the active language.
func newKeyMap() keyMap {
	return keyMap{
		Verify: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", i18n.T("key_screen.verify_button")),
		),
		Regenerate: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", i18n.T("key_screen.regenerate_button")),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", i18n.T("key_screen.copy_button")),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("enter", "esc"),
			key.WithHelp("enter", i18n.T("key_screen.dismiss")),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", i18n.T("key_screen.quit")),
		),
	}
}
