// Package text holds an editable rune buffer with a line index. It is the
// reference implementation of the text collaborator the highlighter reads.
package text

import (
	"fmt"
	"sort"
)

// Edit describes a replacement of OldLen runes at Start by NewLen runes.
type Edit struct {
	Start  int
	OldLen int
	NewLen int
}

// OldEnd is the end of the replaced range before the edit.
func (e Edit) OldEnd() int { return e.Start + e.OldLen }

// NewEnd is the end of the inserted text after the edit.
func (e Edit) NewEnd() int { return e.Start + e.NewLen }

// Delta is the change in buffer length.
func (e Edit) Delta() int { return e.NewLen - e.OldLen }

func (e Edit) String() string {
	return fmt.Sprintf("edit@%d -%d +%d", e.Start, e.OldLen, e.NewLen)
}

// Buffer is a rune buffer with line start offsets.
type Buffer struct {
	runes []rune
	lines []int // offset of the first rune of every line; lines[0] == 0
}

// NewBuffer returns a buffer holding s.
func NewBuffer(s string) *Buffer {
	b := &Buffer{runes: []rune(s)}
	b.reindex(0)
	return b
}

// Len returns the number of runes.
func (b *Buffer) Len() int { return len(b.runes) }

// Runes returns the buffer contents. The slice must not be modified and is
// invalidated by the next Replace.
func (b *Buffer) Runes() []rune { return b.runes }

// String returns the whole buffer.
func (b *Buffer) String() string { return string(b.runes) }

// ReadRange returns the text in [lo, hi), clamped to the buffer.
func (b *Buffer) ReadRange(lo, hi int) string {
	lo = max(0, min(lo, len(b.runes)))
	hi = max(lo, min(hi, len(b.runes)))
	return string(b.runes[lo:hi])
}

// LineCount returns the number of lines. An empty buffer has one line.
func (b *Buffer) LineCount() int { return len(b.lines) }

// LineOfOffset returns the zero-based line containing off.
func (b *Buffer) LineOfOffset(off int) int {
	// the first line start greater than off, minus one
	return sort.SearchInts(b.lines, off+1) - 1
}

// LineStart returns the offset of the first rune of line, clamped to the
// first and last lines.
func (b *Buffer) LineStart(line int) int {
	if line <= 0 {
		return 0
	}
	if line >= len(b.lines) {
		return b.lines[len(b.lines)-1]
	}
	return b.lines[line]
}

// LineEnd returns the offset of the newline ending line, or Len for the last line.
func (b *Buffer) LineEnd(line int) int {
	if line+1 < len(b.lines) {
		return b.lines[line+1] - 1
	}
	return len(b.runes)
}

// Replace replaces oldLen runes at start with s and returns the edit.
func (b *Buffer) Replace(start, oldLen int, s string) (Edit, error) {
	if start < 0 || oldLen < 0 || start+oldLen > len(b.runes) {
		return Edit{}, fmt.Errorf("replace [%d,%d) out of range [0,%d)", start, start+oldLen, len(b.runes))
	}
	ins := []rune(s)
	out := make([]rune, 0, len(b.runes)-oldLen+len(ins))
	out = append(out, b.runes[:start]...)
	out = append(out, ins...)
	out = append(out, b.runes[start+oldLen:]...)
	b.runes = out
	b.reindex(b.LineOfOffset(start))
	return Edit{Start: start, OldLen: oldLen, NewLen: len(ins)}, nil
}

// Insert inserts s at off.
func (b *Buffer) Insert(off int, s string) (Edit, error) { return b.Replace(off, 0, s) }

// Delete removes n runes at off.
func (b *Buffer) Delete(off, n int) (Edit, error) { return b.Replace(off, n, "") }

// reindex recomputes line starts from line onward.
func (b *Buffer) reindex(line int) {
	line = max(0, min(line, len(b.lines)-1))
	from := 0
	if len(b.lines) > 0 {
		from = b.lines[line]
		b.lines = b.lines[:line+1]
	} else {
		b.lines = append(b.lines, 0)
	}
	for i := from; i < len(b.runes); i++ {
		if b.runes[i] == '\n' {
			b.lines = append(b.lines, i+1)
		}
	}
}
