// Package regex adapts the regexp2 backtracking engine to the matcher contract
// used by the highlighter: compile once, then find the earliest match starting
// at or after a rune offset, with captured sub-expression ranges.
package regex

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dlclark/regexp2"
)

// DefaultMatchTimeout bounds a single search. A search that exceeds it fails
// with a runtime error instead of hanging the editor on catastrophic backtracking.
const DefaultMatchTimeout = 250 * time.Millisecond

// probeSpan is how many start offsets one bounded probe tries.
const probeSpan = 256

// CompileError reports a pattern the engine refused to compile.
type CompileError struct {
	Pattern string
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %q: %s", e.Pattern, e.Message)
}

// Options configures compilation.
type Options struct {
	// MatchTimeout is applied to every search. Zero uses DefaultMatchTimeout.
	MatchTimeout time.Duration
	// IgnoreCase compiles a case-insensitive matcher.
	IgnoreCase bool
}

// Match is one successful search. Offsets are rune offsets into the searched text.
type Match struct {
	Start int
	End   int
	// Groups holds [start, end) for every numbered group, group 0 included.
	// Groups that did not participate are {-1, -1}.
	Groups [][2]int
}

// Len returns the number of runes matched.
func (m Match) Len() int { return m.End - m.Start }

// Group returns the range of group n and whether it participated.
func (m Match) Group(n int) (int, int, bool) {
	if n < 0 || n >= len(m.Groups) || m.Groups[n][0] < 0 {
		return 0, 0, false
	}
	return m.Groups[n][0], m.Groups[n][1], true
}

// Matcher is a compiled regular expression.
type Matcher struct {
	source string
	re     *regexp2.Regexp
	groups []int

	// probe reports the first offset within probeSpan of the search start
	// where re matches. It is nil when the wrapped expression does not
	// compile, and bounded searches then fall back to Find.
	probe *regexp2.Regexp
}

// Compile compiles text in multiline mode so ^ and $ anchor at line boundaries.
func Compile(text string, opts Options) (*Matcher, error) {
	var flags regexp2.RegexOptions = regexp2.Multiline
	if opts.IgnoreCase {
		flags |= regexp2.IgnoreCase
	}
	re, err := regexp2.Compile(text, flags)
	if err != nil {
		return nil, &CompileError{Pattern: text, Message: err.Error()}
	}
	re.MatchTimeout = opts.MatchTimeout
	if re.MatchTimeout <= 0 {
		re.MatchTimeout = DefaultMatchTimeout
	}
	m := &Matcher{source: text, re: re, groups: re.GetGroupNumbers()}
	probe, err := regexp2.Compile(`\G(?s:.{0,`+strconv.Itoa(probeSpan)+`}?)(?=(?:`+text+`))`, flags)
	if err == nil {
		probe.MatchTimeout = re.MatchTimeout
		m.probe = probe
	}
	return m, nil
}

// String returns the source text of the expression.
func (m *Matcher) String() string { return m.source }

// GroupCount returns the number of capturing groups, not counting group 0.
func (m *Matcher) GroupCount() int {
	n := 0
	for _, g := range m.groups {
		if g > n {
			n = g
		}
	}
	return n
}

// GroupNumber resolves a named group. It returns -1 if the name is unknown.
func (m *Matcher) GroupNumber(name string) int {
	return m.re.GroupNumberFromName(name)
}

// Find returns the earliest match starting at or after from.
// The whole text stays visible to the engine so anchors and lookbehind see
// what precedes from.
func (m *Matcher) Find(text []rune, from int) (Match, bool, error) {
	if from < 0 {
		from = 0
	}
	if from > len(text) {
		return Match{}, false, nil
	}
	found, err := m.re.FindRunesMatchStartingAt(text, from)
	if err != nil {
		return Match{}, false, err
	}
	if found == nil {
		return Match{}, false, nil
	}
	return m.convert(found), true, nil
}

// FindNonEmpty is Find with zero-length matches rejected: an empty match at
// offset i resumes the search at i+1.
func (m *Matcher) FindNonEmpty(text []rune, from int) (Match, bool, error) {
	for from <= len(text) {
		match, ok, err := m.Find(text, from)
		if err != nil || !ok {
			return match, ok, err
		}
		if match.Len() > 0 {
			return match, true, nil
		}
		from = match.Start + 1
	}
	return Match{}, false, nil
}

// FindBefore is Find for callers that only need matches starting before
// limit. It reports no match when none starts in [from, limit), and the work
// done is bounded by limit-from rather than by the length of the text. A match
// starting at or past limit may or may not be reported.
func (m *Matcher) FindBefore(text []rune, from, limit int) (Match, bool, error) {
	return m.findBefore(text, from, limit, false)
}

// FindNonEmptyBefore is FindBefore with zero-length matches rejected.
func (m *Matcher) FindNonEmptyBefore(text []rune, from, limit int) (Match, bool, error) {
	return m.findBefore(text, from, limit, true)
}

func (m *Matcher) findBefore(text []rune, from, limit int, nonEmpty bool) (Match, bool, error) {
	from = max(from, 0)
	if m.probe == nil || limit >= len(text) {
		if nonEmpty {
			return m.FindNonEmpty(text, from)
		}
		return m.Find(text, from)
	}
	for from < limit {
		found, err := m.probe.FindRunesMatchStartingAt(text, from)
		if err != nil {
			return Match{}, false, err
		}
		if found == nil {
			from += probeSpan + 1
			continue
		}
		at := found.Index + found.Length
		match, ok, err := m.Find(text, at)
		if err != nil {
			return Match{}, false, err
		}
		if ok && match.Start == at && (!nonEmpty || match.Len() > 0) {
			return match, true, nil
		}
		from = at + 1
	}
	return Match{}, false, nil
}

func (m *Matcher) convert(found *regexp2.Match) Match {
	out := Match{
		Start:  found.Index,
		End:    found.Index + found.Length,
		Groups: make([][2]int, m.GroupCount()+1),
	}
	for i := range out.Groups {
		out.Groups[i] = [2]int{-1, -1}
	}
	for _, n := range m.groups {
		g := found.GroupByNumber(n)
		if g == nil || len(g.Captures) == 0 || n >= len(out.Groups) {
			continue
		}
		// the last capture wins, as in backreference semantics
		c := g.Captures[len(g.Captures)-1]
		out.Groups[n] = [2]int{c.Index, c.Index + c.Length}
	}
	return out
}
