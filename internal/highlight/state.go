package highlight

import (
	"github.com/zjrosen/hilite/internal/style"
)

// state is a document's highlight state. spans always covers [0, len(text))
// without holes or overlap. pass2 holds the non-Plain spans found inside
// Plain gaps of spans, all of them before progress.
type state struct {
	spans    []span
	pass2    []span
	progress int
	enabled  bool
	err      error
	phase    Phase
}

// gapStart returns the start of the Plain gap holding the rune before off, or
// off when that rune is not Plain.
func (st *state) gapStart(off int) int {
	if off <= 0 {
		return 0
	}
	for k := spanAt(st.spans, off-1); k >= 0 && k < len(st.spans) && st.spans[k].plain(); k-- {
		off = st.spans[k].Start
	}
	return off
}

// truncatePass2 moves progress back to at most off and drops pass-2 spans
// past it. off must not be inside a gap.
func (st *state) truncatePass2(off int) {
	if st.progress <= off {
		return
	}
	st.progress = off
	n := len(st.pass2)
	for n > 0 && st.pass2[n-1].End > off {
		n--
	}
	st.pass2 = st.pass2[:n]
}

// styled returns the merged, hole-free styled view of [lo, hi).
func (st *state) styled(lo, hi int, table *style.Table) []StyledSpan {
	var out []StyledSpan
	add := func(a, b int, name string) {
		if a >= b {
			return
		}
		if n := len(out); n > 0 && out[n-1].End == a && out[n-1].Style == name {
			out[n-1].End = b
			return
		}
		out = append(out, StyledSpan{Start: a, End: b, Style: name})
	}

	j := spanAt(st.pass2, lo)
	for k := spanAt(st.spans, lo); k < len(st.spans) && st.spans[k].Start < hi; k++ {
		sp := st.spans[k]
		a, b := max(sp.Start, lo), min(sp.End, hi)
		if !sp.plain() {
			add(a, b, sp.Style)
			continue
		}
		pos := a
		for j < len(st.pass2) && st.pass2[j].Start < b {
			q := st.pass2[j]
			if q.End <= pos {
				j++
				continue
			}
			qs, qe := max(q.Start, pos), min(q.End, b)
			add(pos, qs, style.Plain)
			add(qs, qe, q.Style)
			pos = qe
			if q.End > b {
				break
			}
			j++
		}
		add(pos, b, style.Plain)
	}

	for i := range out {
		out[i].Attrs = table.Resolve(out[i].Style)
	}
	return out
}
