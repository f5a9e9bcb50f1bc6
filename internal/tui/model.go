// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/toeirei/wgkeys/internal/i18n"
	"github.com/toeirei/wgkeys/internal/keyscreen"
)

// dispatchMsg carries a func posted by the controller. Running it inside
// Update makes the bubbletea event loop the controller's only thread.
type dispatchMsg struct{ fn func() }

// initMsg starts the controller once the program is running.
type initMsg struct{}

type errorDialog struct {
	title   string
	message string
}

// Model is the key screen. It doubles as the controller's Display.
type Model struct {
	ctrl *keyscreen.Controller

	frame           keyscreen.Frame
	controlsEnabled bool
	announcement    string
	dialog          *errorDialog

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	width, height int
}

var _ keyscreen.Display = (*Model)(nil)

func newModel() *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = specialStyle
	return &Model{
		keys:    newKeyMap(),
		help:    help.New(),
		spinner: sp,
	}
}

// Render implements keyscreen.Display.
func (m *Model) Render(f keyscreen.Frame) { m.frame = f }

// SetControlsEnabled implements keyscreen.Display.
func (m *Model) SetControlsEnabled(enabled bool) {
	m.controlsEnabled = enabled
	m.keys.Verify.SetEnabled(enabled)
	m.keys.Regenerate.SetEnabled(enabled)
}

// Announce implements keyscreen.Display.
func (m *Model) Announce(text string) { m.announcement = text }

// ShowError implements keyscreen.Display.
func (m *Model) ShowError(title, message string) {
	m.dialog = &errorDialog{title: title, message: message}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, func() tea.Msg { return initMsg{} })
}

func (m *Model) busy() bool {
	return m.frame.Status == keyscreen.StatusVerifying || m.frame.Status == keyscreen.StatusRegenerating
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case initMsg:
		m.ctrl.Initialize()
		return m, nil

	case dispatchMsg:
		msg.fn()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.ctrl.Destroy()
		return m, tea.Quit
	}
	if m.dialog != nil {
		if key.Matches(msg, m.keys.Dismiss) {
			m.dialog = nil
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Verify):
		m.announcement = ""
		m.ctrl.Verify()
	case key.Matches(msg, m.keys.Regenerate):
		m.announcement = ""
		m.ctrl.Regenerate()
	case key.Matches(msg, m.keys.Copy):
		m.ctrl.CopyKeyToClipboard()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m *Model) statusText() string {
	var text string
	switch m.frame.Status {
	case keyscreen.StatusVerifying:
		text = i18n.T("key_screen.status_verifying")
	case keyscreen.StatusRegenerating:
		text = i18n.T("key_screen.status_regenerating")
	case keyscreen.StatusValid:
		text = i18n.T("key_screen.status_valid")
	case keyscreen.StatusInvalid:
		text = i18n.T("key_screen.status_invalid")
	}
	if m.busy() {
		return m.spinner.View() + " " + text
	}
	return text
}

func (m *Model) View() string {
	if m.dialog != nil {
		return m.viewDialog()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(i18n.T("key_screen.title")))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render(i18n.T("key_screen.public_key")))
	b.WriteString(valueStyle.Render(m.frame.Key))
	if s := m.statusText(); s != "" {
		b.WriteString("  ")
		b.WriteString(statusStyle(m.frame.Status).Render(s))
	}
	b.WriteString("\n")
	b.WriteString(labelStyle.Render(i18n.T("key_screen.key_age")))
	b.WriteString(valueStyle.Render(m.frame.Age))
	b.WriteString("\n\n")

	left := ""
	if m.announcement != "" {
		left = statusMessageStyle.Render(m.announcement)
	}
	b.WriteString(AlignFooter(left, "", m.width))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))

	return docStyle.Render(b.String())
}

func (m *Model) viewDialog() string {
	var b strings.Builder
	b.WriteString(errorStyle.Bold(true).Render(m.dialog.title))
	b.WriteString("\n\n")
	b.WriteString(m.dialog.message)
	b.WriteString("\n")
	b.WriteString(activeButtonStyle.Render(i18n.T("key_screen.dismiss")))

	box := dialogBoxStyle.Render(b.String())
	if m.width == 0 || m.height == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
