package highlight

import (
	"context"
	"math"

	"github.com/zjrosen/hilite/internal/pattern"
	"github.com/zjrosen/hilite/internal/regex"
)

// ctxCheckEvery is how many scan steps run between context checks.
const ctxCheckEvery = 256

// classifier turns text into spans using one pattern set.
type classifier struct {
	ctx   context.Context
	set   *pattern.Set
	text  []rune
	steps int

	// guard is the end of the text examined by aborted ranges so far. No
	// span starting before it is a resume point.
	guard int

	// Searches are remembered per pattern for the life of the classifier, so
	// consecutive scans over the same text share them.
	starts, ends, errs memo
	searches           int
	reach              int
}

func newClassifier(ctx context.Context, set *pattern.Set, text []rune) *classifier {
	return &classifier{
		ctx:    ctx,
		set:    set,
		text:   text,
		starts: memo{},
		ends:   memo{},
		errs:   memo{},
	}
}

// search is what one regex search established: the earliest match at or
// after from, or when found is false, that no match starts in [from, upTo).
type search struct {
	from  int
	upTo  int
	match regex.Match
	found bool
}

// memo holds the latest search per pattern. A match at a given offset does
// not depend on where the search began, so one search answers every later
// query it covers.
type memo map[pattern.ID]search

// find returns the earliest match of re at or after p, looking for starts no
// further than limit. A match at or past limit may be returned.
func (c *classifier) find(mm memo, id pattern.ID, re *regex.Matcher, p, limit int, nonEmpty bool) (regex.Match, bool, error) {
	if s, ok := mm[id]; ok && s.from <= p {
		if s.found && s.match.Start >= p {
			return s.match, true, nil
		}
		if !s.found && limit <= s.upTo {
			return regex.Match{}, false, nil
		}
	}

	c.searches++
	fn := re.FindBefore
	if nonEmpty {
		fn = re.FindNonEmptyBefore
	}
	m, ok, err := fn(c.text, p, limit)
	if err != nil {
		return regex.Match{}, false, err
	}
	s := search{from: p, upTo: limit, match: m, found: ok}
	switch {
	case ok:
		c.reach = max(c.reach, m.Start)
	case limit >= len(c.text):
		s.upTo = math.MaxInt
		c.reach = len(c.text)
	default:
		c.reach = max(c.reach, limit)
	}
	mm[id] = s
	return m, ok, nil
}

func (c *classifier) tick() error {
	c.steps++
	if c.steps%ctxCheckEvery == 0 {
		return c.ctx.Err()
	}
	return nil
}

// scanResult is the outcome of one scan.
type scanResult struct {
	spans []span
	// next is the cursor where the scan ended.
	next int
	// open is set when a range starting at next has no end before the
	// window limit; the caller must widen the window and rescan from next.
	open bool
	// need is how far the window must reach for the open range to resolve.
	need int
	// stopped is set when the stop callback accepted next.
	stopped bool
}

// scanner runs the leftmost-earliest loop over one list of sibling patterns.
type scanner struct {
	c    *classifier
	ids  []pattern.ID
	hi   int
	fill fill
	stop func(int) bool

	// bounded scans clip every match to hi and close unterminated ranges
	// there. Unbounded scans treat hi as a window limit and report open
	// ranges instead.
	bounded bool

	need int
	out  []span
}

// scan classifies [from, hi) with ids in precedence order. Text no pattern
// claims gets f. stop, when set, is consulted at every position a scan from
// scratch would also reach and ends the scan there when it returns true.
func (c *classifier) scan(ids []pattern.ID, from, hi int, bounded bool, f fill, stop func(int) bool) (scanResult, error) {
	s := &scanner{
		c:       c,
		ids:     ids,
		hi:      hi,
		fill:    f,
		stop:    stop,
		bounded: bounded,
	}

	p := from
	for p < hi {
		if err := c.tick(); err != nil {
			return scanResult{}, err
		}
		if stop != nil && stop(p) {
			return scanResult{spans: s.out, next: p, stopped: true}, nil
		}

		m, best, err := s.earliest(p)
		if err != nil {
			return scanResult{}, err
		}
		if best < 0 {
			if q, ok := s.fillTo(p, hi); ok {
				return scanResult{spans: s.out, next: q, stopped: true}, nil
			}
			p = hi
			break
		}

		if m.Start > p {
			if q, ok := s.fillTo(p, m.Start); ok {
				return scanResult{spans: s.out, next: q, stopped: true}, nil
			}
			p = m.Start
			continue
		}

		next, open, err := s.construct(c.set.Pattern(s.ids[best]), m)
		if err != nil {
			return scanResult{}, err
		}
		if open {
			return scanResult{spans: s.out, next: p, open: true, need: s.need}, nil
		}
		p = next
	}
	return scanResult{spans: s.out, next: p}, nil
}

// earliest returns the start match beginning first in [p, hi) and the index
// of its pattern, ties going to the earlier declaration, or -1.
func (s *scanner) earliest(p int) (regex.Match, int, error) {
	var first regex.Match
	best := -1
	for i, id := range s.ids {
		pat := s.c.set.Pattern(id)
		m, ok, err := s.c.find(s.c.starts, id, pat.Start, p, s.hi, true)
		if err != nil {
			return regex.Match{}, -1, &MatchError{Pattern: pat.Name, Offset: p, Err: err}
		}
		if !ok || m.Start >= s.hi {
			continue
		}
		if best < 0 || m.Start < first.Start {
			first, best = m, i
		}
	}
	return first, best, nil
}

// fillTo emits unclaimed text [p, q) one line at a time. Every line start is
// a sync point, so stop is consulted there.
func (s *scanner) fillTo(p, q int) (int, bool) {
	start := p
	for i := p; i < q-1; i++ {
		if s.c.text[i] != '\n' {
			continue
		}
		s.emit(span{Start: start, End: i + 1, Pattern: s.fill.id, Style: s.fill.style, Sync: true})
		start = i + 1
		if s.stop != nil && s.stop(start) {
			return start, true
		}
	}
	s.emit(span{Start: start, End: q, Pattern: s.fill.id, Style: s.fill.style, Sync: true})
	return q, false
}

func (s *scanner) emit(spans ...span) {
	for _, sp := range spans {
		sp.Resume = sp.Sync && sp.Start >= s.c.guard
		s.out = append(s.out, sp)
	}
}

// construct emits the spans of pat matched at m and returns the cursor after it.
func (s *scanner) construct(pat *pattern.Pattern, m regex.Match) (int, bool, error) {
	if pat.Kind != pattern.KindRange {
		end := m.End
		if s.bounded {
			end = min(end, s.hi)
		}
		spans, err := s.c.body(pat, m.Start, m.Start, end, end, &m, nil)
		if err != nil {
			return 0, false, err
		}
		s.emit(spans...)
		return end, false, nil
	}

	startEnd := m.End
	if s.bounded {
		startEnd = min(startEnd, s.hi)
	}

	endM, endOK, err := s.c.find(s.c.ends, pat.ID, pat.End, startEnd, s.hi+1, false)
	if err != nil {
		return 0, false, &MatchError{Pattern: pat.Name, Offset: startEnd, Err: err}
	}
	endOK = endOK && endM.Start <= s.hi

	if pat.Error != nil {
		errM, errOK, err := s.c.find(s.c.errs, pat.ID, pat.Error, startEnd, s.hi+1, false)
		if err != nil {
			return 0, false, &MatchError{Pattern: pat.Name, Offset: startEnd, Err: err}
		}
		if errOK && errM.Start <= s.hi && (!endOK || errM.Start < endM.Start) {
			// Aborted: the start match is ordinary text and scanning
			// resumes right after it. The decision depends on everything
			// up to the error match.
			s.emit(span{Start: m.Start, End: startEnd, Pattern: s.fill.id, Style: s.fill.style, Sync: true})
			s.c.guard = max(s.c.guard, errM.Start+max(1, errM.Len()))
			return startEnd, false, nil
		}
	}

	if !endOK {
		if !s.bounded && s.hi < len(s.c.text) {
			need, err := s.extent(pat, startEnd)
			if err != nil {
				return 0, false, err
			}
			s.need = need
			return 0, true, nil
		}
		end := len(s.c.text)
		if s.bounded {
			end = s.hi
		}
		spans, err := s.c.body(pat, m.Start, startEnd, end, end, &m, nil)
		if err != nil {
			return 0, false, err
		}
		s.emit(spans...)
		return end, false, nil
	}

	inner, end := endM.Start, endM.End
	if s.bounded {
		inner, end = min(inner, s.hi), min(end, s.hi)
	}
	spans, err := s.c.body(pat, m.Start, startEnd, inner, end, &m, &endM)
	if err != nil {
		return 0, false, err
	}
	s.emit(spans...)
	return end, false, nil
}

// extent returns where a range opened at from resolves: the end of its end
// match or of its error match, whichever starts first, else the end of the
// text. It searches past the window, and the results are remembered for the
// rescan.
func (s *scanner) extent(pat *pattern.Pattern, from int) (int, error) {
	n := len(s.c.text)
	need := n
	endM, ok, err := s.c.find(s.c.ends, pat.ID, pat.End, from, n+1, false)
	if err != nil {
		return 0, &MatchError{Pattern: pat.Name, Offset: from, Err: err}
	}
	if ok {
		need = endM.End
	}
	if pat.Error != nil {
		errM, ok, err := s.c.find(s.c.errs, pat.ID, pat.Error, from, n+1, false)
		if err != nil {
			return 0, &MatchError{Pattern: pat.Name, Offset: from, Err: err}
		}
		if ok {
			need = min(need, errM.End)
		}
	}
	return need, nil
}

// body builds the spans of one matched construct covering [start, end).
// [innerLo, innerHi) is the interior, classified by pat's children; the
// delimiters around it take pat's style. Colorings are painted last.
func (c *classifier) body(pat *pattern.Pattern, start, innerLo, innerHi, end int, startM, endM *regex.Match) ([]span, error) {
	own := fill{id: pat.ID, style: pat.Style}
	var out []span
	if innerLo > start {
		out = append(out, span{Start: start, End: innerLo, Pattern: pat.ID, Style: pat.Style})
	}
	if innerHi > innerLo {
		if kids := c.set.Children(pat.ID); len(kids) > 0 {
			res, err := c.scan(kids, innerLo, innerHi, true, own, nil)
			if err != nil {
				return nil, err
			}
			out = append(out, res.spans...)
		} else {
			out = append(out, span{Start: innerLo, End: innerHi, Pattern: pat.ID, Style: pat.Style})
		}
	}
	if end > innerHi {
		out = append(out, span{Start: innerHi, End: end, Pattern: pat.ID, Style: pat.Style})
	}

	for _, id := range c.set.Colorings(pat.ID) {
		color := c.set.Pattern(id)
		for _, col := range color.Colorings {
			m := startM
			if col.Side == pattern.SideEnd {
				m = endM
			}
			if m == nil {
				continue
			}
			gs, ge, ok := m.Group(col.Group)
			if !ok {
				continue
			}
			out = overlay(out, max(gs, start), min(ge, end), id, col.Style)
		}
	}

	for i := range out {
		out[i].Sync = i == 0
	}
	return out, nil
}
