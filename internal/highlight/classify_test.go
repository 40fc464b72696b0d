package highlight

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/hilite/internal/pattern"
	"github.com/zjrosen/hilite/internal/style"
)

func TestClassify_LineComment(t *testing.T) {
	set := compileSet(t, pattern.Definition{Name: "Comment", Start: `//.*$`})
	doc, _ := openDoc(t, set, "a // b\nc", Config{})

	want := []string{"Plain", "Plain", "Comment", "Comment", "Comment", "Comment", "Plain", "Plain"}
	require.Equal(t, want, styleAt(doc))
	require.Equal(t, []StyledSpan{
		{Start: 0, End: 2, Style: style.Plain},
		{Start: 2, End: 6, Style: "Comment"},
		{Start: 6, End: 8, Style: style.Plain},
	}, stripAttrs(doc.Spans()))
}

func TestClassify_DeclarationOrderBreaksTies(t *testing.T) {
	set := compileSet(t,
		pattern.Definition{Name: "A", Start: `ab`},
		pattern.Definition{Name: "B", Start: `abc`},
	)
	doc, _ := openDoc(t, set, "abc", Config{})
	require.Equal(t, []string{"A", "A", "Plain"}, styleAt(doc))
}

func TestClassify_EarliestMatchWins(t *testing.T) {
	set := compileSet(t,
		pattern.Definition{Name: "A", Start: `bc`},
		pattern.Definition{Name: "B", Start: `ab`},
	)
	doc, _ := openDoc(t, set, "abc", Config{})
	require.Equal(t, []string{"B", "B", "Plain"}, styleAt(doc), "B starts first even though A is declared first")
}

func TestClassify_RangeUnterminatedRunsToEnd(t *testing.T) {
	set := compileSet(t, pattern.Definition{Name: "Comment", Kind: pattern.KindRange, Start: `/\*`, End: `\*/`})
	doc, _ := openDoc(t, set, "x /* y\nz", Config{})
	require.Equal(t, []StyledSpan{
		{Start: 0, End: 2, Style: style.Plain},
		{Start: 2, End: 8, Style: "Comment"},
	}, stripAttrs(doc.Spans()))
}

func TestClassify_RangeErrorAbortsStart(t *testing.T) {
	set := compileSet(t, pattern.Definition{Name: "String", Kind: pattern.KindRange, Start: `"`, End: `"`, Error: `$`})
	// The first quote hits the end of its line before a closing quote, so it
	// is ordinary text and the next quote opens the string.
	doc, _ := openDoc(t, set, "\"ab\n\"cd\"", Config{})
	require.Equal(t, []StyledSpan{
		{Start: 0, End: 4, Style: style.Plain},
		{Start: 4, End: 8, Style: "String"},
	}, stripAttrs(doc.Spans()))
}

func TestClassify_RangeChildren(t *testing.T) {
	set := compileSet(t,
		pattern.Definition{Name: "Comment", Kind: pattern.KindRange, Start: `/\*`, End: `\*/`},
		pattern.Definition{Name: "Todo", Parent: "Comment", Start: `TODO`},
		pattern.Definition{Name: "Keyword", Start: `TODO`},
	)
	doc, _ := openDoc(t, set, "/* TODO */ TODO", Config{})
	require.Equal(t, []StyledSpan{
		{Start: 0, End: 3, Style: "Comment"},
		{Start: 3, End: 7, Style: "Todo"},
		{Start: 7, End: 10, Style: "Comment"},
		{Start: 10, End: 11, Style: style.Plain},
		{Start: 11, End: 15, Style: "Keyword"},
	}, stripAttrs(doc.Spans()))
}

func TestClassify_ChildrenStayInsideParent(t *testing.T) {
	set := compileSet(t,
		pattern.Definition{Name: "String", Kind: pattern.KindRange, Start: `"`, End: `"`},
		pattern.Definition{Name: "Word", Parent: "String", Start: `b\S*`},
	)
	// The child's match would run past the closing quote; it is clipped.
	doc, _ := openDoc(t, set, `"ab" c`, Config{})
	require.Equal(t, []StyledSpan{
		{Start: 0, End: 2, Style: "String"},
		{Start: 2, End: 3, Style: "Word"},
		{Start: 3, End: 4, Style: "String"},
		{Start: 4, End: 6, Style: style.Plain},
	}, stripAttrs(doc.Spans()))
}

func TestClassify_ColorOnlySimpleParent(t *testing.T) {
	set := compileSet(t,
		pattern.Definition{Name: "Func", Start: `(func) (\w+)`, Style: "Keyword"},
		pattern.Definition{Name: "FuncName", Kind: pattern.KindColor, Parent: "Func", Captures: map[string]string{"2": "Type"}},
	)
	doc, _ := openDoc(t, set, "func main", Config{})
	require.Equal(t, []StyledSpan{
		{Start: 0, End: 5, Style: "Keyword"},
		{Start: 5, End: 9, Style: "Type"},
	}, stripAttrs(doc.Spans()))
}

func TestClassify_ColorOnlyRangeDelimiters(t *testing.T) {
	set := compileSet(t,
		pattern.Definition{Name: "Tag", Kind: pattern.KindRange, Start: `<(\w+)>`, End: `</(?<name>\w+)>`},
		pattern.Definition{
			Name:        "TagName",
			Kind:        pattern.KindColor,
			Parent:      "Tag",
			Captures:    map[string]string{"1": "Keyword"},
			EndCaptures: map[string]string{"name": "Keyword"},
		},
	)
	doc, _ := openDoc(t, set, "<b>x</b>", Config{})
	require.Equal(t, []StyledSpan{
		{Start: 0, End: 1, Style: "Tag"},
		{Start: 1, End: 2, Style: "Keyword"},
		{Start: 2, End: 6, Style: "Tag"},
		{Start: 6, End: 7, Style: "Keyword"},
		{Start: 7, End: 8, Style: "Tag"},
	}, stripAttrs(doc.Spans()))
}

func TestClassify_RuneOffsets(t *testing.T) {
	set := compileSet(t, pattern.Definition{Name: "Keyword", Start: `\bif\b`})
	doc, _ := openDoc(t, set, "é if ü", Config{})
	require.Equal(t, []StyledSpan{
		{Start: 0, End: 2, Style: style.Plain},
		{Start: 2, End: 4, Style: "Keyword"},
		{Start: 4, End: 6, Style: style.Plain},
	}, stripAttrs(doc.Spans()))
}

func TestClassify_Idempotent(t *testing.T) {
	set := langSet(t)
	src := "if x /* a\nb */ \"s\\\"t\" // c\nelse 12"
	first, _ := openDoc(t, set, src, Config{})
	second, _ := openDoc(t, set, src, Config{})
	require.Equal(t, first.st.spans, second.st.spans)
	require.NoError(t, first.Refresh(t.Context()))
	require.Equal(t, second.st.spans, first.st.spans)
}

func TestScan_SearchesStayInsideWindow(t *testing.T) {
	set := compileSet(t,
		pattern.Definition{Name: "Keyword", Start: `ZZZ`},
		blockComment(0),
	)
	src := strings.Repeat("a b\n", 5000) + "ZZZ"
	c := newClassifier(context.Background(), set, []rune(src))
	ids := set.TopLevel(pattern.Pass1)

	res, err := c.scan(ids, 0, 100, false, plainFill, nil)
	require.NoError(t, err)
	require.Equal(t, 100, res.next)
	for _, id := range ids {
		s := c.starts[id]
		require.False(t, s.found, "nothing starts inside the window")
		require.Equal(t, 100, s.upTo, "the search for %s ends at the window", set.Pattern(id).Name)
	}

	res, err = c.scan(ids, 0, len(src), false, plainFill, nil)
	require.NoError(t, err)
	require.Equal(t, len(src), res.next)
	require.Equal(t, "Keyword", set.Pattern(res.spans[len(res.spans)-1].Pattern).Name)
}

func TestScan_GapsReuseSearches(t *testing.T) {
	set := compileSet(t, pattern.Definition{Name: "Todo", Start: `TODO`, Pass: pattern.Pass2})
	src := "aaaaaaaaaa" + "/* xx */" + "aaaTODOaaa"
	c := newClassifier(context.Background(), set, []rune(src))
	ids := set.TopLevel(pattern.Pass2)

	_, err := c.scan(ids, 0, 10, true, plainFill, nil)
	require.NoError(t, err)
	require.Equal(t, 1, c.searches)

	res, err := c.scan(ids, 18, len(src), true, plainFill, nil)
	require.NoError(t, err)
	require.Equal(t, 2, c.searches, "the match seen from the first gap is not searched again")
	require.Equal(t, "Todo", set.Pattern(res.spans[1].Pattern).Name)
	require.Equal(t, 21, res.spans[1].Start)
}

func TestScan_OpenRangeReportsItsEnd(t *testing.T) {
	set := compileSet(t, blockComment(0))
	src := "/*" + strings.Repeat("a\n", 100) + "*/ b"
	c := newClassifier(context.Background(), set, []rune(src))

	res, err := c.scan(set.TopLevel(pattern.Pass1), 0, 10, false, plainFill, nil)
	require.NoError(t, err)
	require.True(t, res.open)
	require.Equal(t, 0, res.next)
	require.Equal(t, strings.Index(src, "*/")+2, res.need)

	id := set.TopLevel(pattern.Pass1)[0]
	require.True(t, c.ends[id].found, "the rescan reuses the end match")

	c = newClassifier(context.Background(), set, []rune("/* never closed\n"+strings.Repeat("a\n", 50)))
	res, err = c.scan(set.TopLevel(pattern.Pass1), 0, 10, false, plainFill, nil)
	require.NoError(t, err)
	require.True(t, res.open)
	require.Equal(t, len(c.text), res.need)
	require.Equal(t, math.MaxInt, c.ends[id].upTo, "an unterminated range is searched for once")
}

func TestSpansIn_Covers(t *testing.T) {
	set := langSet(t)
	src := "if x /* a\nb */ \"s\" // c\nelse 12 34"
	doc, _ := openDoc(t, set, src, Config{})
	drain(t, doc)

	n := doc.text.Len()
	for lo := -1; lo <= n+1; lo++ {
		for hi := lo; hi <= n+1; hi++ {
			requireCovers(t, doc.SpansIn(lo, hi), max(lo, 0), min(hi, n))
		}
	}
}

func TestSpansIn_ResolvesAttributes(t *testing.T) {
	set := compileSet(t, pattern.Definition{Name: "Keyword", Start: `if`}, pattern.Definition{Name: "Mystery", Start: `zz`})
	doc, _ := openDoc(t, set, "if zz", Config{})

	spans := doc.Spans()
	require.Equal(t, style.DefaultTable().Resolve("Keyword"), spans[0].Attrs)
	require.Equal(t, "Mystery", spans[2].Style)
	require.Equal(t, style.DefaultTable().Resolve(style.Plain), spans[2].Attrs, "unknown styles render as Plain")
}

func stripAttrs(spans []StyledSpan) []StyledSpan {
	out := make([]StyledSpan, len(spans))
	for i, sp := range spans {
		out[i] = StyledSpan{Start: sp.Start, End: sp.End, Style: sp.Style}
	}
	return out
}

// langSet is a small C-like language with context declared for every
// pattern that needs it.
func langSet(t testing.TB) *pattern.Set {
	return compileSet(t,
		pattern.Definition{Name: "Comment", Kind: pattern.KindRange, Start: `/\*`, End: `\*/`, ContextLines: 1},
		pattern.Definition{Name: "LineComment", Start: `//.*$`, Style: "Comment"},
		pattern.Definition{Name: "String", Kind: pattern.KindRange, Start: `"`, End: `(?<!\\)"`, Error: `$`},
		pattern.Definition{Name: "Escape", Parent: "String", Start: `\\.`},
		pattern.Definition{Name: "Keyword", Start: `\b(if|else)\b`, ContextChars: 2},
		pattern.Definition{Name: "Number", Start: `\d+`, Pass: pattern.Pass2},
	)
}
