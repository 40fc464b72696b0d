// Package style maps style names to visual attributes and renders text with them.
package style

import (
	"sort"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/hilite/internal/log"
)

// Plain is the mandatory default style for text no pattern claims.
const Plain = "Plain"

// Attributes describes how a style paints text. Colors are anything lipgloss
// accepts: ANSI indices ("12"), or hex ("#FF8787").
type Attributes struct {
	Foreground string `mapstructure:"fg" yaml:"fg,omitempty"`
	Background string `mapstructure:"bg" yaml:"bg,omitempty"`
	Bold       bool   `mapstructure:"bold" yaml:"bold,omitempty"`
	Italic     bool   `mapstructure:"italic" yaml:"italic,omitempty"`
	Underline  bool   `mapstructure:"underline" yaml:"underline,omitempty"`
}

// Lipgloss builds the lipgloss style for a.
func (a Attributes) Lipgloss() lipgloss.Style {
	s := lipgloss.NewStyle()
	if a.Foreground != "" {
		s = s.Foreground(lipgloss.Color(a.Foreground))
	}
	if a.Background != "" {
		s = s.Background(lipgloss.Color(a.Background))
	}
	if a.Bold {
		s = s.Bold(true)
	}
	if a.Italic {
		s = s.Italic(true)
	}
	if a.Underline {
		s = s.Underline(true)
	}
	return s
}

// IsZero reports whether a paints nothing.
func (a Attributes) IsZero() bool { return a == Attributes{} }

// Table resolves style names. It is safe for concurrent use.
type Table struct {
	attrs  map[string]Attributes
	styles map[string]lipgloss.Style

	mu     sync.Mutex
	warned map[string]bool
}

// NewTable builds a table from attrs. A Plain entry is added if missing.
func NewTable(attrs map[string]Attributes) *Table {
	t := &Table{
		attrs:  make(map[string]Attributes, len(attrs)+1),
		styles: make(map[string]lipgloss.Style, len(attrs)+1),
		warned: make(map[string]bool),
	}
	for name, a := range attrs {
		t.attrs[name] = a
	}
	if _, ok := t.attrs[Plain]; !ok {
		t.attrs[Plain] = Attributes{}
	}
	for name, a := range t.attrs {
		t.styles[name] = a.Lipgloss()
	}
	return t
}

// Merge returns a new table with overrides applied on top of t.
func (t *Table) Merge(overrides map[string]Attributes) *Table {
	attrs := make(map[string]Attributes, len(t.attrs)+len(overrides))
	for name, a := range t.attrs {
		attrs[name] = a
	}
	for name, a := range overrides {
		attrs[name] = a
	}
	return NewTable(attrs)
}

// Has reports whether name is defined.
func (t *Table) Has(name string) bool {
	_, ok := t.attrs[name]
	return ok
}

// Names returns the defined style names, sorted.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.attrs))
	for name := range t.attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the attributes for name. An unknown name resolves to Plain;
// the mismatch is logged once per name since pattern sets are user-edited.
func (t *Table) Resolve(name string) Attributes {
	if a, ok := t.attrs[name]; ok {
		return a
	}
	t.warnMiss(name)
	return t.attrs[Plain]
}

// Style returns the lipgloss style for name, with the same fallback as Resolve.
func (t *Table) Style(name string) lipgloss.Style {
	if s, ok := t.styles[name]; ok {
		return s
	}
	t.warnMiss(name)
	return t.styles[Plain]
}

// Render paints s with the named style.
func (t *Table) Render(name, s string) string {
	if s == "" {
		return ""
	}
	if a := t.Resolve(name); a.IsZero() {
		return s
	}
	return t.Style(name).Render(s)
}

func (t *Table) warnMiss(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.warned[name] {
		return
	}
	t.warned[name] = true
	log.Warn(log.CatStyle, "unknown style, using Plain", "style", name)
}

// DefaultTable returns the built-in palette.
func DefaultTable() *Table {
	return NewTable(map[string]Attributes{
		Plain:          {},
		"Comment":      {Foreground: "8", Italic: true},
		"String":       {Foreground: "2"},
		"Keyword":      {Foreground: "5", Bold: true},
		"Number":       {Foreground: "3"},
		"Type":         {Foreground: "6"},
		"Preprocessor": {Foreground: "4"},
		"Operator":     {Foreground: "1"},
		"Escape":       {Foreground: "11"},
		"Error":        {Foreground: "15", Background: "1"},
	})
}
