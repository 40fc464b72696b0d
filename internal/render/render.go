// Package render paints highlighted text as ANSI terminal lines.
package render

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"github.com/zjrosen/hilite/internal/highlight"
	"github.com/zjrosen/hilite/internal/style"
)

// DefaultTabWidth is the tab stop interval.
const DefaultTabWidth = 4

// Source is the text being painted. *text.Buffer implements it.
type Source interface {
	Runes() []rune
	LineCount() int
	LineStart(line int) int
	LineEnd(line int) int
}

// Spanner supplies styled spans. *highlight.Document implements it.
type Spanner interface {
	SpansIn(lo, hi int) []highlight.StyledSpan
}

// Options controls line painting.
type Options struct {
	// TabWidth is the tab stop interval; zero uses DefaultTabWidth.
	TabWidth int
	// Width truncates painted lines to this many cells; zero disables.
	Width int
	// LineNumbers adds a right-aligned gutter.
	LineNumbers bool
	// Cursor is a rune offset painted in reverse video; negative disables.
	Cursor int
	// Gutter styles the line number gutter.
	Gutter lipgloss.Style
}

// NoCursor is Options{} with the cursor disabled.
func NoCursor() Options { return Options{Cursor: -1} }

var cursorStyle = lipgloss.NewStyle().Reverse(true)

// Painter paints lines of src with the spans of hl.
type Painter struct {
	src   Source
	hl    Spanner
	table *style.Table
	opts  Options
}

// NewPainter returns a painter. A nil table uses style.DefaultTable.
func NewPainter(src Source, hl Spanner, table *style.Table, opts Options) *Painter {
	if table == nil {
		table = style.DefaultTable()
	}
	if opts.TabWidth <= 0 {
		opts.TabWidth = DefaultTabWidth
	}
	return &Painter{src: src, hl: hl, table: table, opts: opts}
}

// Line paints one zero-based line without its newline.
func (p *Painter) Line(line int) string {
	lo, hi := p.src.LineStart(line), p.src.LineEnd(line)
	runes := p.src.Runes()

	var (
		b   strings.Builder
		col int
	)
	if p.opts.LineNumbers {
		b.WriteString(p.gutter(line))
	}
	spans := p.hl.SpansIn(lo, hi)
	for _, s := range spans {
		from, to := max(s.Start, lo), min(s.End, hi)
		if from >= to {
			continue
		}
		if p.opts.Cursor >= from && p.opts.Cursor < to {
			b.WriteString(p.table.Render(s.Style, expand(runes[from:p.opts.Cursor], &col, p.opts.TabWidth)))
			b.WriteString(cursorStyle.Render(expand(runes[p.opts.Cursor:p.opts.Cursor+1], &col, p.opts.TabWidth)))
			from = p.opts.Cursor + 1
		}
		b.WriteString(p.table.Render(s.Style, expand(runes[from:to], &col, p.opts.TabWidth)))
	}
	// A cursor at the line end sits on the newline, or past the last rune.
	if p.opts.Cursor == hi {
		b.WriteString(cursorStyle.Render(" "))
	}

	out := b.String()
	if p.opts.Width > 0 {
		out = ansi.Truncate(out, p.opts.Width, "…")
	}
	return out
}

// Lines paints count lines starting at first, stopping at the last line.
func (p *Painter) Lines(first, count int) []string {
	end := min(first+count, p.src.LineCount())
	out := make([]string, 0, max(0, end-first))
	for line := max(0, first); line < end; line++ {
		out = append(out, p.Line(line))
	}
	return out
}

// WriteTo paints every line to w.
func (p *Painter) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for line := range p.src.LineCount() {
		// The line after a trailing newline is empty and not printed.
		if line == p.src.LineCount()-1 && p.src.LineStart(line) == len(p.src.Runes()) && line > 0 {
			break
		}
		k, err := bw.WriteString(p.Line(line) + "\n")
		n += int64(k)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// OffsetAt returns the rune offset shown at cell of line, counting from the
// first text cell. Cells past the line end map to the line end.
func (p *Painter) OffsetAt(line, cell int) int {
	lo, hi := p.src.LineStart(line), p.src.LineEnd(line)
	runes := p.src.Runes()
	col := 0
	for off := lo; off < hi; off++ {
		expand(runes[off:off+1], &col, p.opts.TabWidth)
		if col > cell {
			return off
		}
	}
	return hi
}

// GutterWidth is the cell width of the line number gutter, separator included.
func (p *Painter) GutterWidth() int {
	if !p.opts.LineNumbers {
		return 0
	}
	return digits(p.src.LineCount()) + 1
}

func (p *Painter) gutter(line int) string {
	w := digits(p.src.LineCount())
	num := p.opts.Gutter.Width(w).Align(lipgloss.Right).Render(strconv.Itoa(line + 1))
	return num + " "
}

// expand replaces tabs with spaces up to the next stop and control runes
// with a visible placeholder, advancing col by the cells written.
func expand(rs []rune, col *int, tab int) string {
	var b strings.Builder
	for _, r := range rs {
		switch {
		case r == '\t':
			n := tab - *col%tab
			b.WriteString(strings.Repeat(" ", n))
			*col += n
		case r < 0x20 || r == 0x7f:
			b.WriteRune('·')
			*col++
		default:
			b.WriteRune(r)
			*col += runewidth.RuneWidth(r)
		}
	}
	return b.String()
}

func digits(n int) int {
	d := 1
	for n >= 10 {
		n /= 10
		d++
	}
	return d
}
