package highlight

// Text is the read-only view of a document's content the highlighter needs.
// Offsets are rune offsets. *text.Buffer satisfies it.
type Text interface {
	Len() int
	Runes() []rune
	LineOfOffset(off int) int
	LineStart(line int) int
}

// Phase is a document's position in the edit cycle.
type Phase int

const (
	// Clean means the spans describe the current text.
	Clean Phase = iota
	// Dirty means an edit was applied to the text but not yet reparsed.
	Dirty
	// Reparsing means a reparse is in flight.
	Reparsing
)

func (p Phase) String() string {
	switch p {
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	case Reparsing:
		return "reparsing"
	}
	return "unknown"
}

// Window is the range a reparse reclassified.
type Window struct {
	Lo    int
	Hi    int
	Scans int
	// Reach is the furthest offset the reparse looked for a match start.
	Reach int
}
