package pattern

// Set is a compiled, immutable pattern forest for one language mode.
// A change to any definition produces a new Set.
type Set struct {
	name     string
	patterns []*Pattern
	plain    ID

	top       [3][]ID // indexed by Pass
	children  [][]ID  // matching sub-patterns, declaration order
	colorings [][]ID  // color sub-patterns, declaration order

	maxLines int
	maxChars int
}

// Name returns the set's name, usually the language mode.
func (s *Set) Name() string { return s.name }

// Len returns the number of patterns, Plain included.
func (s *Set) Len() int { return len(s.patterns) }

// Pattern returns the pattern with the given ID.
func (s *Set) Pattern(id ID) *Pattern { return s.patterns[id] }

// Patterns returns all patterns in declaration order.
func (s *Set) Patterns() []*Pattern { return s.patterns }

// Plain returns the default pattern.
func (s *Set) Plain() *Pattern { return s.patterns[s.plain] }

// Lookup finds a pattern by name.
func (s *Set) Lookup(name string) (*Pattern, bool) {
	for _, p := range s.patterns {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// TopLevel returns the top-level patterns of pass in precedence order.
func (s *Set) TopLevel(pass Pass) []ID {
	if pass != Pass1 && pass != Pass2 {
		return nil
	}
	return s.top[pass]
}

// HasPass reports whether any top-level pattern runs in pass.
func (s *Set) HasPass(pass Pass) bool { return len(s.TopLevel(pass)) > 0 }

// Children returns the matching sub-patterns of id in precedence order.
func (s *Set) Children(id ID) []ID { return s.children[id] }

// Colorings returns the color sub-patterns of id.
func (s *Set) Colorings(id ID) []ID { return s.colorings[id] }

// MaxContext returns the largest context requirement over all patterns.
func (s *Set) MaxContext() (lines, chars int) { return s.maxLines, s.maxChars }
