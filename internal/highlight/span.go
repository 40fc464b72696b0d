package highlight

import (
	"sort"

	"github.com/zjrosen/hilite/internal/pattern"
	"github.com/zjrosen/hilite/internal/style"
)

// plainID marks text no pattern claimed.
const plainID = pattern.NoParent

// span is one stored run of a single style.
//
// Sync reports that a top-level scan started at Start reproduces this span and
// everything after it. Plain runs and the first span of every top-level match
// are sync points; spans inside a matched construct are not.
//
// Resume additionally requires that no decision made before Start looked at
// text at or after Start, so a reparse may keep everything before it.
type span struct {
	Start   int
	End     int
	Pattern pattern.ID
	Style   string
	Sync    bool
	Resume  bool
}

func (s span) plain() bool { return s.Pattern == plainID }

type fill struct {
	id    pattern.ID
	style string
}

var plainFill = fill{id: plainID, style: style.Plain}

// spanAt returns the index of the span containing off, or len(spans) when
// off is past the last span.
func spanAt(spans []span, off int) int {
	return sort.Search(len(spans), func(i int) bool { return spans[i].End > off })
}

// overlay repaints [lo, hi) of spans with style, splitting spans at the edges.
func overlay(spans []span, lo, hi int, id pattern.ID, styleName string) []span {
	if lo >= hi {
		return spans
	}
	out := make([]span, 0, len(spans)+2)
	for _, sp := range spans {
		if sp.End <= lo || sp.Start >= hi {
			out = append(out, sp)
			continue
		}
		if sp.Start < lo {
			left := sp
			left.End = lo
			out = append(out, left)
		}
		out = append(out, span{Start: max(sp.Start, lo), End: min(sp.End, hi), Pattern: id, Style: styleName})
		if sp.End > hi {
			right := sp
			right.Start = hi
			out = append(out, right)
		}
	}
	return out
}

// StyledSpan is one run of the renderer-facing view of a document.
type StyledSpan struct {
	Start int
	End   int
	Style string
	Attrs style.Attributes
}

// Damage announces that styles in [Lo, Hi) of a document changed.
type Damage struct {
	Document string
	Lo       int
	Hi       int
}
