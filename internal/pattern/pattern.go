// Package pattern compiles pattern definitions into an immutable pattern set:
// an arena of patterns indexed by ID, with the precedence-ordered top-level
// lists and per-pattern child lists the classifier walks.
package pattern

import (
	"github.com/zjrosen/hilite/internal/regex"
	"github.com/zjrosen/hilite/internal/style"
)

// PlainName is the mandatory default pattern.
const PlainName = style.Plain

// Kind selects how a pattern matches.
type Kind string

const (
	// KindSimple highlights each match of a single regex.
	KindSimple Kind = "simple"
	// KindRange highlights from a start match through an end match.
	KindRange Kind = "range"
	// KindColor recolors captured groups of its parent's match.
	KindColor Kind = "color"
)

// Pass selects when a pattern is evaluated.
type Pass int

const (
	// Pass1 patterns are applied synchronously on load and on every edit.
	Pass1 Pass = 1
	// Pass2 patterns are applied lazily to regions about to become visible.
	Pass2 Pass = 2
)

// ID indexes a pattern inside its Set.
type ID int

// NoParent marks a top-level pattern.
const NoParent ID = -1

// Definition is one pattern as authored in configuration.
type Definition struct {
	Name   string `yaml:"name" mapstructure:"name"`
	Kind   Kind   `yaml:"kind" mapstructure:"kind"`     // simple (default), range or color
	Pass   Pass   `yaml:"pass" mapstructure:"pass"`     // 1 (default) or 2; children inherit
	Parent string `yaml:"parent" mapstructure:"parent"` // empty for top-level patterns
	Start  string `yaml:"start" mapstructure:"start"`   // regex, or refs for color patterns
	End    string `yaml:"end" mapstructure:"end"`       // regex, or refs for color patterns
	Error  string `yaml:"error" mapstructure:"error"`   // range patterns only
	Style  string `yaml:"style" mapstructure:"style"`   // defaults to Name

	// Captures and EndCaptures map a reference (&, 1..9, or a group name) to a
	// style. Color patterns only; they apply to the parent's start/end match.
	Captures    map[string]string `yaml:"captures" mapstructure:"captures"`
	EndCaptures map[string]string `yaml:"end_captures" mapstructure:"end_captures"`

	ContextLines int  `yaml:"context_lines" mapstructure:"context_lines"`
	ContextChars int  `yaml:"context_chars" mapstructure:"context_chars"`
	IgnoreCase   bool `yaml:"ignore_case" mapstructure:"ignore_case"`
}

// Side selects which match of a parent a coloring applies to.
type Side int

const (
	SideStart Side = iota
	SideEnd
)

// Coloring paints one captured group of the parent's start or end match.
type Coloring struct {
	Side  Side
	Group int
	Style string
}

// Pattern is a compiled pattern.
type Pattern struct {
	ID     ID
	Name   string
	Kind   Kind
	Pass   Pass
	Parent ID
	Style  string

	Start *regex.Matcher
	End   *regex.Matcher
	Error *regex.Matcher

	// Colorings is set for color patterns.
	Colorings []Coloring

	ContextLines int
	ContextChars int
}

// IsPlain reports whether p is the default pattern.
func (p *Pattern) IsPlain() bool { return p.Name == PlainName }

// TopLevel reports whether p has no parent.
func (p *Pattern) TopLevel() bool { return p.Parent == NoParent }
