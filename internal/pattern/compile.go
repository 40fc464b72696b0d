package pattern

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/zjrosen/hilite/internal/log"
	"github.com/zjrosen/hilite/internal/regex"
)

// Options configures compilation.
type Options struct {
	// MatchTimeout bounds each regex search; zero uses regex.DefaultMatchTimeout.
	MatchTimeout time.Duration
}

type compiler struct {
	name     string
	defs     []Definition
	opts     Options
	problems []*PatternError
	byName   map[string]ID
}

func (c *compiler) fail(pattern string, err error) {
	c.problems = append(c.problems, &PatternError{Pattern: pattern, Err: err})
}

// Compile validates defs and builds a Set. Compilation is all-or-nothing:
// any problem rejects the whole set with a *ConfigError listing every problem.
func Compile(name string, defs []Definition, opts Options) (*Set, error) {
	c := &compiler{name: name, defs: defs, opts: opts, byName: make(map[string]ID, len(defs))}
	set := c.compile()
	if len(c.problems) > 0 {
		err := &ConfigError{Set: name, Problems: c.problems}
		log.ErrorErr(log.CatPattern, "pattern set rejected", err, "set", name, "problems", len(c.problems))
		return nil, err
	}
	log.Debug(log.CatPattern, "pattern set compiled", "set", name, "patterns", set.Len(),
		"pass1", len(set.top[Pass1]), "pass2", len(set.top[Pass2]))
	return set, nil
}

func (c *compiler) compile() *Set {
	set := &Set{name: c.name, plain: -1}

	// Names first so parents can be resolved regardless of declaration order.
	for i, d := range c.defs {
		switch {
		case d.Name == "":
			c.fail(fmt.Sprintf("#%d", i), ErrEmptyName)
		case c.hasName(d.Name):
			c.fail(d.Name, ErrDuplicateName)
		default:
			c.byName[d.Name] = ID(i)
		}
	}

	set.patterns = make([]*Pattern, len(c.defs))
	for i, d := range c.defs {
		set.patterns[i] = c.compileOne(ID(i), d)
		if d.Name == PlainName {
			set.plain = ID(i)
		}
	}
	if set.plain < 0 {
		c.fail("", ErrMissingPlain)
	}

	// Unresolved parents were left as NoParent, so the forest walk is safe;
	// only a cycle stops the remaining checks.
	if !c.checkForest(set) {
		return set
	}
	c.index(set)
	c.inheritPasses(set)
	c.checkColorings(set)
	return set
}

func (c *compiler) hasName(name string) bool {
	_, ok := c.byName[name]
	return ok
}

func (c *compiler) compileOne(id ID, d Definition) *Pattern {
	p := &Pattern{
		ID:           id,
		Name:         d.Name,
		Kind:         d.Kind,
		Pass:         d.Pass,
		Parent:       NoParent,
		Style:        d.Style,
		ContextLines: d.ContextLines,
		ContextChars: d.ContextChars,
	}
	if p.Kind == "" {
		p.Kind = KindSimple
	}
	if p.Style == "" {
		p.Style = d.Name
	}
	if d.ContextLines < 0 || d.ContextChars < 0 {
		c.fail(d.Name, ErrNegativeCtx)
	}
	if d.Pass != 0 && d.Pass != Pass1 && d.Pass != Pass2 {
		c.fail(d.Name, fmt.Errorf("%w: got %d", ErrBadPass, d.Pass))
	}

	if d.Parent != "" {
		parent, ok := c.byName[d.Parent]
		if !ok {
			c.fail(d.Name, fmt.Errorf("%w: %q", ErrDanglingParent, d.Parent))
		} else {
			p.Parent = parent
		}
	}

	if d.Name == PlainName {
		if d.Parent != "" || d.Start != "" || d.End != "" || d.Error != "" ||
			d.Kind != "" || (d.Pass != 0 && d.Pass != Pass1) ||
			len(d.Captures)+len(d.EndCaptures) > 0 {
			c.fail(d.Name, ErrPlainShape)
		}
		p.Style = PlainName
		return p
	}

	ropts := regex.Options{MatchTimeout: c.opts.MatchTimeout, IgnoreCase: d.IgnoreCase}
	compileExpr := func(field, text string) *regex.Matcher {
		m, err := regex.Compile(text, ropts)
		if err != nil {
			c.fail(d.Name, fmt.Errorf("%w: %s: %w", ErrBadRegex, field, err))
			return nil
		}
		return m
	}

	switch p.Kind {
	case KindSimple:
		if d.Start == "" {
			c.fail(d.Name, fmt.Errorf("%w: start", ErrMissingRegex))
		} else {
			p.Start = compileExpr("start", d.Start)
		}
		if d.End != "" || d.Error != "" {
			c.fail(d.Name, fmt.Errorf("%w: simple patterns take only a start regex", ErrUnexpectedExpr))
		}
	case KindRange:
		if d.Start == "" {
			c.fail(d.Name, fmt.Errorf("%w: start", ErrMissingRegex))
		} else {
			p.Start = compileExpr("start", d.Start)
		}
		if d.End == "" {
			c.fail(d.Name, fmt.Errorf("%w: end", ErrMissingRegex))
		} else {
			p.End = compileExpr("end", d.End)
		}
		if d.Error != "" {
			p.Error = compileExpr("error", d.Error)
		}
	case KindColor:
		if d.Parent == "" {
			c.fail(d.Name, ErrColorParent)
		}
		if d.Error != "" {
			c.fail(d.Name, fmt.Errorf("%w: color patterns take no error regex", ErrUnexpectedExpr))
		}
	default:
		c.fail(d.Name, fmt.Errorf("%w: %q", ErrBadKind, d.Kind))
	}
	return p
}

// checkForest rejects parent cycles with a three-color walk over the arena.
func (c *compiler) checkForest(set *Set) bool {
	const (
		unseen = iota
		active
		done
	)
	state := make([]int, len(set.patterns))
	ok := true
	for i := range set.patterns {
		var path []ID
		id := ID(i)
		for id != NoParent && state[id] == unseen {
			state[id] = active
			path = append(path, id)
			id = set.patterns[id].Parent
		}
		if id != NoParent && state[id] == active {
			c.fail(set.patterns[id].Name, ErrParentCycle)
			ok = false
		}
		for _, p := range path {
			state[p] = done
		}
	}
	return ok
}

func (c *compiler) index(set *Set) {
	n := len(set.patterns)
	set.children = make([][]ID, n)
	set.colorings = make([][]ID, n)
	for _, p := range set.patterns {
		if p.IsPlain() {
			continue
		}
		set.maxLines = max(set.maxLines, p.ContextLines)
		set.maxChars = max(set.maxChars, p.ContextChars)
		if p.TopLevel() {
			continue
		}
		parent := set.patterns[p.Parent]
		switch {
		case parent.Kind == KindColor:
			c.fail(parent.Name, fmt.Errorf("%w: %q", ErrColorChildren, p.Name))
		case parent.IsPlain():
			c.fail(p.Name, fmt.Errorf("%w: Plain cannot be a parent", ErrDanglingParent))
		case p.Kind == KindColor:
			set.colorings[p.Parent] = append(set.colorings[p.Parent], p.ID)
		default:
			set.children[p.Parent] = append(set.children[p.Parent], p.ID)
		}
	}
}

// inheritPasses resolves each pattern's pass from its top-level ancestor and
// builds the per-pass precedence lists.
func (c *compiler) inheritPasses(set *Set) {
	var resolve func(p *Pattern) Pass
	resolve = func(p *Pattern) Pass {
		if p.TopLevel() {
			if p.Pass == 0 {
				p.Pass = Pass1
			}
			return p.Pass
		}
		inherited := resolve(set.patterns[p.Parent])
		if p.Pass != 0 && p.Pass != inherited && p.Kind != KindColor {
			c.fail(p.Name, fmt.Errorf("%w: pass %d under pass %d", ErrPassMismatch, p.Pass, inherited))
		}
		p.Pass = inherited
		return inherited
	}
	for _, p := range set.patterns {
		if p.IsPlain() {
			continue
		}
		if pass := resolve(p); pass != Pass1 && pass != Pass2 {
			continue // reported by compileOne
		}
		if p.TopLevel() && p.Kind != KindColor {
			set.top[p.Pass] = append(set.top[p.Pass], p.ID)
		}
	}
}

// checkColorings validates color references against the parent's group counts.
func (c *compiler) checkColorings(set *Set) {
	for i, p := range set.patterns {
		if p.Kind != KindColor || p.TopLevel() {
			continue
		}
		d := c.defs[i]
		parent := set.patterns[p.Parent]
		if parent.Kind == KindColor || parent.IsPlain() {
			continue // reported by index
		}
		add := func(side Side, key, styleName string) {
			m := parent.Start
			if side == SideEnd {
				m = parent.End
			}
			if m == nil {
				c.fail(p.Name, fmt.Errorf("%w: %s: %s parent %q has no such match", ErrBadReference, key, parent.Kind, parent.Name))
				return
			}
			ref, err := regex.ParseRef(key)
			if err != nil {
				c.fail(p.Name, fmt.Errorf("%w: %w", ErrBadReference, err))
				return
			}
			group, err := ref.Resolve(m)
			if err != nil {
				c.fail(p.Name, fmt.Errorf("%w: %w", ErrBadReference, err))
				return
			}
			if styleName == "" {
				styleName = p.Style
			}
			p.Colorings = append(p.Colorings, Coloring{Side: side, Group: group, Style: styleName})
		}
		addRefs := func(side Side, refs string) {
			parsed, err := regex.ParseRefs(refs)
			if err != nil {
				c.fail(p.Name, fmt.Errorf("%w: %w", ErrBadReference, err))
				return
			}
			for _, r := range parsed {
				add(side, r.String(), "")
			}
		}

		addRefs(SideStart, d.Start)
		addRefs(SideEnd, d.End)
		for _, key := range slices.Sorted(maps.Keys(d.Captures)) {
			add(SideStart, key, d.Captures[key])
		}
		for _, key := range slices.Sorted(maps.Keys(d.EndCaptures)) {
			add(SideEnd, key, d.EndCaptures[key])
		}
		if strings.TrimSpace(d.Start+d.End) == "" && len(d.Captures)+len(d.EndCaptures) == 0 {
			c.fail(p.Name, ErrNoColorings)
		}
	}
}
