package highlight

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/hilite/internal/pattern"
	"github.com/zjrosen/hilite/internal/text"
)

// testingT is satisfied by *testing.T and *rapid.T.
type testingT interface {
	require.TestingT
	Helper()
}

func compileSet(t testing.TB, defs ...pattern.Definition) *pattern.Set {
	t.Helper()
	all := append([]pattern.Definition{{Name: pattern.PlainName}}, defs...)
	set, err := pattern.Compile("test", all, pattern.Options{})
	require.NoError(t, err)
	return set
}

func openDoc(t testing.TB, set *pattern.Set, s string, cfg Config) (*Document, *text.Buffer) {
	t.Helper()
	buf := text.NewBuffer(s)
	doc, err := NewScheduler(cfg).Open(context.Background(), buf, set)
	require.NoError(t, err)
	return doc, buf
}

// styleAt returns the style of every rune, one entry per offset.
func styleAt(d *Document) []string {
	var out []string
	for _, sp := range d.Spans() {
		for i := sp.Start; i < sp.End; i++ {
			out = append(out, sp.Style)
		}
	}
	return out
}

// pass1View renders the pass-1 spans alone, merged like SpansIn.
func pass1View(d *Document) []StyledSpan {
	st := state{spans: d.st.spans}
	return st.styled(0, d.text.Len(), d.styles)
}

// drain runs pass 2 over the whole document.
func drain(t testingT, d *Document) {
	t.Helper()
	for range d.text.Len() + 2 {
		done, err := d.RegionVisible(context.Background(), 0, d.text.Len())
		require.NoError(t, err)
		if done {
			return
		}
	}
	require.FailNow(t, "pass 2 did not finish")
}

func requireCovers(t testingT, spans []StyledSpan, lo, hi int) {
	t.Helper()
	if lo >= hi {
		require.Empty(t, spans)
		return
	}
	require.NotEmpty(t, spans)
	require.Equal(t, lo, spans[0].Start, "first span starts at lo")
	require.Equal(t, hi, spans[len(spans)-1].End, "last span ends at hi")
	for i, sp := range spans {
		require.Less(t, sp.Start, sp.End, "span %d is empty", i)
		if i > 0 {
			require.Equal(t, spans[i-1].End, sp.Start, "span %d leaves a hole or overlaps", i)
			require.NotEqual(t, spans[i-1].Style, sp.Style, "adjacent equal styles are merged")
		}
	}
}
