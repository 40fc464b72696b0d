// Package toaster provides a one-line notification shown in place of the
// status bar until it is dismissed.
package toaster

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/hilite/internal/ui/styles"
)

// Style determines the visual appearance of the toast.
type Style int

const (
	// StyleSuccess shows ✅ in green.
	StyleSuccess Style = iota
	// StyleError shows ❌ in red.
	StyleError
	// StyleInfo shows ℹ️ in blue.
	StyleInfo
	// StyleWarn shows ⚠️ in yellow.
	StyleWarn
)

// Model holds the toaster state.
type Model struct {
	message string
	style   Style
	visible bool
	gen     int
}

// New creates a new toaster model.
func New() Model {
	return Model{}
}

// Show displays a toast with the given message and style.
func (m Model) Show(message string, style Style) Model {
	m.message = message
	m.style = style
	m.visible = true
	m.gen++
	return m
}

// Hide dismisses the toast.
func (m Model) Hide() Model {
	m.visible = false
	m.message = ""
	return m
}

// Visible returns whether the toast is currently showing.
func (m Model) Visible() bool {
	return m.visible
}

// Update hides the toast on a DismissMsg for the toast currently shown.
// Dismissals scheduled for earlier toasts are ignored.
func (m Model) Update(msg tea.Msg) Model {
	if d, ok := msg.(DismissMsg); ok && d.gen == m.gen {
		return m.Hide()
	}
	return m
}

// View renders the toast line, or "" when hidden.
func (m Model) View() string {
	if !m.visible || m.message == "" {
		return ""
	}

	style := lipgloss.NewStyle().Padding(0, 1)
	var content string
	switch m.style {
	case StyleError:
		style = style.Foreground(styles.ToastBorderErrorColor)
		content = "❌ " + m.message
	case StyleInfo:
		style = style.Foreground(styles.ToastBorderInfoColor)
		content = "ℹ️ " + m.message
	case StyleWarn:
		style = style.Foreground(styles.ToastBorderWarnColor)
		content = "⚠️ " + m.message
	default: // StyleSuccess
		style = style.Foreground(styles.ToastBorderSuccessColor)
		content = "✅ " + m.message
	}
	return style.Render(content)
}

// DismissMsg signals that the toast should be dismissed.
type DismissMsg struct{ gen int }

// ScheduleDismiss returns a command that dismisses the current toast after d.
func (m Model) ScheduleDismiss(d time.Duration) tea.Cmd {
	gen := m.gen
	return tea.Tick(d, func(_ time.Time) tea.Msg {
		return DismissMsg{gen: gen}
	})
}
