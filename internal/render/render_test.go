package render

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/hilite/internal/highlight"
	"github.com/zjrosen/hilite/internal/pattern"
	"github.com/zjrosen/hilite/internal/text"
)

func init() {
	lipgloss.SetColorProfile(termenv.ANSI256)
}

// staticSpans styles every rune of [lo, hi) as one span.
type staticSpans string

func (s staticSpans) SpansIn(lo, hi int) []highlight.StyledSpan {
	if lo >= hi {
		return nil
	}
	return []highlight.StyledSpan{{Start: lo, End: hi, Style: string(s)}}
}

func TestLine_PlainText(t *testing.T) {
	buf := text.NewBuffer("one\ntwo\n")
	p := NewPainter(buf, staticSpans("Plain"), nil, NoCursor())
	require.Equal(t, "one", p.Line(0))
	require.Equal(t, "two", p.Line(1))
	require.Equal(t, "", p.Line(2))
}

func TestLine_StyledCarriesEscapes(t *testing.T) {
	buf := text.NewBuffer("x")
	p := NewPainter(buf, staticSpans("Keyword"), nil, NoCursor())
	out := p.Line(0)
	require.NotEqual(t, "x", out)
	require.Equal(t, "x", ansi.Strip(out))
}

func TestLine_ExpandsTabs(t *testing.T) {
	buf := text.NewBuffer("a\tb\t\tc")
	p := NewPainter(buf, staticSpans("Plain"), nil, Options{TabWidth: 4, Cursor: -1})
	require.Equal(t, "a   b       c", p.Line(0))
}

func TestLine_WideRunesAdvanceTwoCells(t *testing.T) {
	buf := text.NewBuffer("日\tx")
	p := NewPainter(buf, staticSpans("Plain"), nil, Options{TabWidth: 4, Cursor: -1})
	require.Equal(t, "日  x", p.Line(0))
}

func TestLine_Truncates(t *testing.T) {
	buf := text.NewBuffer("abcdefghij")
	p := NewPainter(buf, staticSpans("Comment"), nil, Options{Width: 5, Cursor: -1})
	out := ansi.Strip(p.Line(0))
	require.Equal(t, 5, ansi.StringWidth(out))
	require.True(t, strings.HasSuffix(out, "…"))
}

func TestLine_Cursor(t *testing.T) {
	buf := text.NewBuffer("abc\n")
	p := NewPainter(buf, staticSpans("Plain"), nil, Options{Cursor: 1})
	out := p.Line(0)
	require.Equal(t, "abc", ansi.Strip(out))
	require.Contains(t, out, "\x1b[7m", "the cursor cell is reversed")

	p = NewPainter(buf, staticSpans("Plain"), nil, Options{Cursor: 3})
	require.Equal(t, "abc ", ansi.Strip(p.Line(0)), "a cursor at the line end gets a cell")
}

func TestLine_LineNumbers(t *testing.T) {
	var sb strings.Builder
	for range 12 {
		sb.WriteString("x\n")
	}
	buf := text.NewBuffer(sb.String())
	p := NewPainter(buf, staticSpans("Plain"), nil, Options{LineNumbers: true, Cursor: -1})
	require.Equal(t, 3, p.GutterWidth())
	require.Equal(t, " 1 x", ansi.Strip(p.Line(0)))
	require.Equal(t, "12 x", ansi.Strip(p.Line(11)))
}

func TestLines_ClampsToDocument(t *testing.T) {
	buf := text.NewBuffer("a\nb\nc")
	p := NewPainter(buf, staticSpans("Plain"), nil, NoCursor())
	require.Equal(t, []string{"b", "c"}, p.Lines(1, 10))
	require.Empty(t, p.Lines(5, 2))
}

func TestWriteTo_HighlightedDocument(t *testing.T) {
	set, err := pattern.Compile("c", []pattern.Definition{
		{Name: pattern.PlainName},
		{Name: "Comment", Kind: pattern.KindRange, Start: `/\*`, End: `\*/`},
	}, pattern.Options{})
	require.NoError(t, err)

	src := "int x; /* note\nmore */ y\n"
	buf := text.NewBuffer(src)
	doc, err := highlight.NewScheduler(highlight.Config{}).Open(context.Background(), buf, set)
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = NewPainter(buf, doc, nil, NoCursor()).WriteTo(&out)
	require.NoError(t, err)

	require.Equal(t, src, ansi.Strip(out.String()), "painting never changes the text")
	lines := strings.Split(out.String(), "\n")
	require.True(t, strings.HasPrefix(lines[0], "int x; "), "plain text is unpainted")
	require.NotEqual(t, "more */ y", lines[1], "the comment continues on the second line")
}

func TestOffsetAt(t *testing.T) {
	buf := text.NewBuffer("x\na\tb日c\n")
	p := NewPainter(buf, staticSpans("Plain"), nil, Options{TabWidth: 4, Cursor: -1})
	// line 1 cells: a=0, tab=1..3, b=4, 日=5..6, c=7
	tests := []struct{ cell, want int }{
		{0, 2}, {1, 3}, {3, 3}, {4, 4}, {5, 5}, {6, 5}, {7, 6}, {8, 7}, {40, 7},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, p.OffsetAt(1, tt.cell), "cell %d", tt.cell)
	}
}
