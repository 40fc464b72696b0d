// Package editdiff turns two versions of a text into the sequence of edits
// that takes one to the other, so a file changed on disk can be fed to the
// highlighter as incremental edits instead of a reload.
package editdiff

import (
	"time"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/zjrosen/hilite/internal/text"
)

// Change is one replacement: Edit in rune offsets of the text as it stands
// after every earlier Change, and the inserted Text.
type Change struct {
	Edit text.Edit
	Text string
}

// Options tunes the diff.
type Options struct {
	// Lines diffs whole lines first, which is much faster on large files and
	// yields line-aligned edits.
	Lines bool
	// Timeout bounds the diff; zero means no limit. A timed-out diff is still
	// correct, only coarser.
	Timeout time.Duration
}

// Changes returns the changes that turn oldText into newText, left to right.
func Changes(oldText, newText string, opts Options) []Change {
	if oldText == newText {
		return nil
	}
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = opts.Timeout

	var diffs []diffmatchpatch.Diff
	if opts.Lines {
		a, b, lines := dmp.DiffLinesToChars(oldText, newText)
		diffs = dmp.DiffMain(a, b, false)
		diffs = dmp.DiffCharsToLines(diffs, lines)
	} else {
		diffs = dmp.DiffMain(oldText, newText, false)
		diffs = dmp.DiffCleanupSemantic(diffs)
	}
	return fromDiffs(diffs)
}

// fromDiffs folds each run of deletes and inserts between equal segments into
// a single replacement.
func fromDiffs(diffs []diffmatchpatch.Diff) []Change {
	var (
		out     []Change
		pos     int
		pending *Change
	)
	flush := func() {
		if pending != nil {
			out = append(out, *pending)
			pos = pending.Edit.NewEnd()
			pending = nil
		}
	}
	for _, d := range diffs {
		n := utf8.RuneCountInString(d.Text)
		if n == 0 {
			continue
		}
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			pos += n
		case diffmatchpatch.DiffDelete:
			if pending == nil {
				pending = &Change{Edit: text.Edit{Start: pos}}
			}
			pending.Edit.OldLen += n
		case diffmatchpatch.DiffInsert:
			if pending == nil {
				pending = &Change{Edit: text.Edit{Start: pos}}
			}
			pending.Edit.NewLen += n
			pending.Text += d.Text
		}
	}
	flush()
	return out
}

// Apply performs c on buf and returns the resulting edit.
func Apply(buf *text.Buffer, c Change) (text.Edit, error) {
	return buf.Replace(c.Edit.Start, c.Edit.OldLen, c.Text)
}
