package styles

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rivo/uniseg"
)

// TruncateString truncates a string to fit within maxWidth, adding ellipsis if needed.
func TruncateString(s string, maxWidth int) string {
	if maxWidth < 1 {
		return ""
	}

	if lipgloss.Width(s) <= maxWidth {
		return s
	}

	if maxWidth <= 3 {
		return strings.Repeat(".", maxWidth)
	}

	// Step by grapheme cluster so combining marks stay with their base.
	var b strings.Builder
	w := 0
	state := -1
	for len(s) > 0 {
		cluster, rest, _, newState := uniseg.StepString(s, state)
		cw := uniseg.StringWidth(cluster)
		if w+cw > maxWidth-3 {
			break
		}
		b.WriteString(cluster)
		w += cw
		s, state = rest, newState
	}
	return b.String() + "..."
}

// FormatProgress renders how far deferred highlighting has reached, or ""
// when it is complete.
func FormatProgress(progress, total int) string {
	if total <= 0 || progress >= total {
		return ""
	}
	return fmt.Sprintf("%d%%", progress*100/total)
}
