// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

// package tui provides the terminal user interface for wgkeys.
// This file defines the lipgloss styles used by the key screen.
package tui // import "github.com/toeirei/wgkeys/internal/tui"

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/toeirei/wgkeys/internal/keyscreen"
)

// colorPalette defines the core colors used in the TUI.
const (
	colorSubtle    = lipgloss.Color("240") // Muted gray
	colorHighlight = lipgloss.Color("81")  // A nice teal/cyan
	colorSpecial   = lipgloss.Color("208") // An orange for special attention
	colorError     = lipgloss.Color("196") // A bright red
	colorSuccess   = lipgloss.Color("40")  // A nice green
	colorWhite     = lipgloss.Color("231")
)

var (
	docStyle = lipgloss.NewStyle().Margin(1, 2)

	helpStyle = lipgloss.NewStyle().Foreground(colorSubtle)

	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	specialStyle = lipgloss.NewStyle().Foreground(colorSpecial)

	titleStyle = lipgloss.NewStyle().
			Foreground(colorHighlight).
			Bold(true).
			Padding(1, 2)

	labelStyle = lipgloss.NewStyle().Foreground(colorSubtle).Width(16)
	valueStyle = lipgloss.NewStyle().Foreground(colorWhite)

	// Modal Dialogs
	dialogBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(colorError).
			Padding(1, 2).
			Width(60)

	activeButtonStyle = lipgloss.NewStyle().
				Foreground(colorWhite).
				Background(colorHighlight).
				Padding(0, 3).
				MarginTop(1).
				Underline(true)

	// Status messages
	statusMessageStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Foreground(colorWhite).
				Background(colorHighlight)
)

// statusStyle picks the color of the status next to the key.
func statusStyle(s keyscreen.Status) lipgloss.Style {
	switch s {
	case keyscreen.StatusValid:
		return successStyle
	case keyscreen.StatusInvalid:
		return errorStyle
	case keyscreen.StatusVerifying, keyscreen.StatusRegenerating:
		return specialStyle
	}
	return helpStyle
}
