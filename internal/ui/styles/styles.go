// Package styles contains Lip Gloss style definitions for the viewer chrome.
// Text colors come from the highlighter's style table, not from here.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Semantic color names - Text hierarchy
	TextPrimaryColor = lipgloss.AdaptiveColor{Light: "#333333", Dark: "#CCCCCC"}
	TextMutedColor   = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#696969"} // Gutter, hints

	// Semantic color names - Status
	StatusSuccessColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	StatusWarningColor = lipgloss.AdaptiveColor{Light: "#FECA57", Dark: "#FECA57"}
	StatusErrorColor   = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}
	StatusInfoColor    = lipgloss.AdaptiveColor{Light: "#1E66F5", Dark: "#89B4FA"}

	StatusBarBgColor = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#2D3436"}

	// Toast borders
	ToastBorderSuccessColor = StatusSuccessColor
	ToastBorderErrorColor   = StatusErrorColor
	ToastBorderInfoColor    = StatusInfoColor
	ToastBorderWarnColor    = StatusWarningColor

	GutterStyle = lipgloss.NewStyle().Foreground(TextMutedColor)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextPrimaryColor).
			Background(StatusBarBgColor).
			Padding(0, 1)

	StatusModifiedStyle = lipgloss.NewStyle().Foreground(StatusWarningColor).Bold(true)
	StatusDisabledStyle = lipgloss.NewStyle().Foreground(StatusErrorColor).Bold(true)
	StatusPhaseStyle    = lipgloss.NewStyle().Foreground(TextMutedColor)
)
