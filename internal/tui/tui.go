// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/toeirei/wgkeys/internal/keyscreen"
)

// Run shows the key screen for backend until the user quits.
func Run(backend keyscreen.Backend, clipboard keyscreen.Clipboard, opts keyscreen.Options) error {
	m := newModel()
	p := tea.NewProgram(m, tea.WithAltScreen())
	dispatcher := keyscreen.DispatcherFunc(func(fn func()) {
		p.Send(dispatchMsg{fn: fn})
	})
	m.ctrl = keyscreen.New(backend, m, clipboard, dispatcher, opts)

	_, err := p.Run()
	// Covers exits that bypass the quit key, such as a killed program.
	m.ctrl.Destroy()
	return err
}
