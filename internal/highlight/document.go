package highlight

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/hilite/internal/log"
	"github.com/zjrosen/hilite/internal/pattern"
	"github.com/zjrosen/hilite/internal/pubsub"
	"github.com/zjrosen/hilite/internal/style"
	"github.com/zjrosen/hilite/internal/text"
	"github.com/zjrosen/hilite/internal/tracing"
)

// ErrBadEdit is returned when an edit does not fit the highlighted text. The
// document is rebuilt from scratch before the error is returned.
var ErrBadEdit = errors.New("highlight: edit does not match document")

// Document is the highlight state of one open text. It is not safe for
// concurrent use; the owning Scheduler serializes access.
type Document struct {
	id     string
	sched  *Scheduler
	text   Text
	set    *pattern.Set
	styles *style.Table

	st     state
	last   Window
	closed bool
}

// ID returns the document's identifier.
func (d *Document) ID() string { return d.id }

// PatternSet returns the active pattern set, or nil when none is attached.
func (d *Document) PatternSet() *pattern.Set { return d.set }

// Enabled reports whether highlighting is active. A runtime matching error
// disables it until the next edit or Refresh.
func (d *Document) Enabled() bool { return d.st.enabled }

// Err returns the error that disabled highlighting, if any.
func (d *Document) Err() error { return d.st.err }

// Phase returns the document's position in the edit cycle.
func (d *Document) Phase() Phase { return d.st.phase }

// Progress returns the offset up to which pass-2 patterns have been applied.
func (d *Document) Progress() int { return d.st.progress }

// LastWindow returns the range the most recent reparse reclassified.
func (d *Document) LastWindow() Window { return d.last }

// SetStyles replaces the table used to resolve style names.
func (d *Document) SetStyles(t *style.Table) {
	if t != nil {
		d.styles = t
	}
}

// SpansIn returns the styled runs covering [lo, hi), clamped to the text.
// Adjacent runs of equal style are merged and the result has no holes.
func (d *Document) SpansIn(lo, hi int) []StyledSpan {
	lo, hi = max(lo, 0), min(hi, d.text.Len())
	if lo >= hi {
		return nil
	}
	return d.st.styled(lo, hi, d.styles)
}

// Spans returns the styled runs of the whole text.
func (d *Document) Spans() []StyledSpan { return d.SpansIn(0, d.text.Len()) }

// StyleAt returns the style name at off.
func (d *Document) StyleAt(off int) string {
	spans := d.SpansIn(off, off+1)
	if len(spans) == 0 {
		return style.Plain
	}
	return spans[0].Style
}

// Edit updates the highlight state after the text changed. Call it once per
// change, after the text already holds the new content.
func (d *Document) Edit(ctx context.Context, e text.Edit) error {
	if d.closed {
		return ErrClosed
	}
	if d.st.phase != Clean {
		return ErrBusy
	}

	ctx, sp := d.sched.tracer().Start(ctx, tracing.SpanEdit, trace.WithAttributes(
		attribute.String(tracing.AttrDocument, d.id),
		attribute.Int(tracing.AttrEditStart, e.Start),
		attribute.Int(tracing.AttrEditOldLen, e.OldLen),
		attribute.Int(tracing.AttrEditNewLen, e.NewLen),
	))
	defer sp.End()

	if d.set == nil {
		d.st.spans = wholePlain(d.text.Len())
		return nil
	}
	if !d.st.enabled {
		return d.refresh(ctx, sp)
	}
	if !d.fits(e) {
		if err := d.refresh(ctx, sp); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ErrBadEdit, e)
	}

	d.st.phase = Dirty
	w, err := d.reparse(ctx, e)
	d.st.phase = Clean
	d.last = w

	sp.SetAttributes(
		attribute.Int(tracing.AttrWindowLo, w.Lo),
		attribute.Int(tracing.AttrWindowHi, w.Hi),
		attribute.Int(tracing.AttrScans, w.Scans),
	)
	if err != nil {
		sp.RecordError(err)
		sp.SetStatus(codes.Error, err.Error())
		return err
	}
	log.Debug(log.CatReparse, "reparsed", "document", d.id, "edit", e.String(),
		"lo", w.Lo, "hi", w.Hi, "scans", w.Scans)
	d.sched.publish(pubsub.DamagedEvent, Damage{Document: d.id, Lo: w.Lo, Hi: w.Hi})
	return nil
}

// fits reports whether e is consistent with the spans and the new text.
func (d *Document) fits(e text.Edit) bool {
	covered := 0
	if n := len(d.st.spans); n > 0 {
		covered = d.st.spans[n-1].End
	}
	return e.Start >= 0 && e.OldLen >= 0 && e.NewLen >= 0 &&
		e.OldEnd() <= covered && covered+e.Delta() == d.text.Len()
}

// reparse reclassifies the smallest window around e that brings the spans
// back in line with a full scan of the new text.
//
// The window starts at a resume point at or before the edit, far enough back
// to cover the set's declared context. It grows forward until the scan
// reaches a sync point of the old spans past the edit, from which the old
// spans are reused unchanged. A range left open at the limit extends the
// window to where that range resolves; otherwise the growth doubles.
func (d *Document) reparse(ctx context.Context, e text.Edit) (Window, error) {
	old := d.st.spans
	n := d.text.Len()
	_, chars := d.set.MaxContext()

	lo, k := d.resyncPoint(e)
	head := old[:k]

	first := sort.Search(len(old), func(i int) bool { return old[i].Start >= e.OldEnd() })
	tail := make([]span, len(old)-first)
	for i, sp := range old[first:] {
		sp.Start += e.Delta()
		sp.End += e.Delta()
		tail[i] = sp
	}
	d.st.truncatePass2(lo)

	minSync := e.NewEnd() + max(1, chars)
	stop := func(q int) bool {
		if q < minSync {
			return false
		}
		j := sort.Search(len(tail), func(j int) bool { return tail[j].Start >= q })
		return j < len(tail) && tail[j].Start == q && tail[j].Sync
	}

	d.st.phase = Reparsing
	c := newClassifier(context.WithoutCancel(ctx), d.set, d.text.Runes())
	ids := d.set.TopLevel(pattern.Pass1)
	grow := d.sched.cfg.MinWindow
	hi := min(n, e.NewEnd()+grow)

	w := Window{Lo: lo}
	var fresh []span
	p := lo
	for {
		w.Scans++
		res, err := c.scan(ids, p, hi, false, plainFill, stop)
		if err != nil {
			w.Hi = n
			d.disable(append(slices.Clip(head), fresh...), p, err)
			return w, err
		}
		fresh = append(fresh, res.spans...)
		p = res.next
		if res.stopped || p >= n {
			break
		}
		if res.open && res.need > hi {
			hi = min(n, res.need+grow)
			continue
		}
		grow *= 2
		hi = min(n, max(hi, p)+grow)
	}
	w.Hi = p
	w.Reach = c.reach

	spans := make([]span, 0, len(head)+len(fresh)+len(tail))
	spans = append(spans, head...)
	spans = append(spans, fresh...)
	if p < n {
		j := sort.Search(len(tail), func(j int) bool { return tail[j].Start >= p })
		for i := j; i < len(tail) && tail[i].Start < c.guard; i++ {
			tail[i].Resume = false
		}
		spans = append(spans, tail[j:]...)
	}
	d.st.spans = spans
	d.st.truncatePass2(d.st.gapStart(lo))
	return w, nil
}

// resyncPoint returns the resume point a reparse for e starts from and the
// index of the old span starting there.
func (d *Document) resyncPoint(e text.Edit) (int, int) {
	old := d.st.spans
	if len(old) == 0 || e.Start == 0 {
		return 0, 0
	}
	lines, chars := d.set.MaxContext()
	lo := e.Start - chars
	if lines > 0 {
		lo = min(lo, d.text.LineStart(d.text.LineOfOffset(e.Start)-lines))
	}
	// The span holding the rune before the edit is always redone.
	k := spanAt(old, max(0, min(lo, e.Start-1)))
	if k == len(old) {
		k--
	}
	for k > 0 && !old[k].Resume {
		k--
	}
	return old[k].Start, k
}

// RegionVisible applies pass-2 patterns up to hi, at most one chunk per
// call. It reports whether pass 2 has caught up with hi. A cancelled ctx
// discards the chunk in progress.
func (d *Document) RegionVisible(ctx context.Context, lo, hi int) (bool, error) {
	if d.closed {
		return false, ErrClosed
	}
	n := d.text.Len()
	hi = min(hi, n)
	if d.set == nil || !d.st.enabled || d.st.progress >= hi {
		return true, nil
	}
	if !d.set.HasPass(pattern.Pass2) {
		d.st.progress = n
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	ctx, sp := d.sched.tracer().Start(ctx, tracing.SpanPass2, trace.WithAttributes(
		attribute.String(tracing.AttrDocument, d.id),
		attribute.Int(tracing.AttrRegionLo, lo),
		attribute.Int(tracing.AttrRegionHi, hi),
	))
	defer sp.End()

	c := newClassifier(ctx, d.set, d.text.Runes())
	ids := d.set.TopLevel(pattern.Pass2)
	limit := d.sched.cfg.ChunkSize
	spans := d.st.spans
	from := d.st.progress

	var chunk []span
	done := 0
	p := from
	for k := spanAt(spans, p); p < hi; {
		if limit > 0 && done >= limit {
			break
		}
		for k < len(spans) && !spans[k].plain() {
			k++
		}
		if k == len(spans) {
			p = n
			break
		}
		a := max(spans[k].Start, p)
		if a >= hi {
			p = a
			break
		}
		b := spans[k].End
		for k++; k < len(spans) && spans[k].plain(); k++ {
			b = spans[k].End
		}

		res, err := c.scan(ids, a, b, true, plainFill, nil)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				log.Debug(log.CatSched, "pass-2 chunk cancelled", "document", d.id, "at", a)
				return false, err
			}
			d.commitPass2(from, p, chunk)
			d.disablePass2(err)
			sp.RecordError(err)
			sp.SetStatus(codes.Error, err.Error())
			return true, err
		}
		for _, s := range res.spans {
			if !s.plain() {
				s.Sync = false
				chunk = append(chunk, s)
			}
		}
		done += b - a
		p = b
	}

	d.commitPass2(from, p, chunk)
	sp.SetAttributes(attribute.Int(tracing.AttrProgress, p))
	return p >= hi, nil
}

func (d *Document) commitPass2(from, to int, chunk []span) {
	d.st.pass2 = append(d.st.pass2, chunk...)
	d.st.progress = to
	if to > from {
		log.Debug(log.CatSched, "pass-2 advanced", "document", d.id, "from", from, "to", to, "spans", len(chunk))
		d.sched.publish(pubsub.DamagedEvent, Damage{Document: d.id, Lo: from, Hi: to})
	}
}

// SetPatternSet attaches set, or detaches highlighting when set is nil, and
// rebuilds the document.
func (d *Document) SetPatternSet(ctx context.Context, set *pattern.Set) error {
	if d.closed {
		return ErrClosed
	}
	d.set = set
	return d.Refresh(ctx)
}

// Refresh rebuilds the whole document. It also re-enables highlighting
// after a runtime matching error.
func (d *Document) Refresh(ctx context.Context) error {
	if d.closed {
		return ErrClosed
	}
	ctx, sp := d.sched.tracer().Start(ctx, tracing.SpanRebuild, trace.WithAttributes(
		attribute.String(tracing.AttrDocument, d.id),
	))
	defer sp.End()
	return d.refresh(ctx, sp)
}

func (d *Document) refresh(ctx context.Context, sp trace.Span) error {
	err := d.rebuild(ctx)
	if err != nil {
		sp.RecordError(err)
		sp.SetStatus(codes.Error, err.Error())
		return err
	}
	d.sched.publish(pubsub.RebuiltEvent, Damage{Document: d.id, Lo: 0, Hi: d.text.Len()})
	return nil
}

// rebuild classifies the whole text with pass-1 patterns and resets pass 2.
func (d *Document) rebuild(ctx context.Context) error {
	n := d.text.Len()
	d.st = state{}
	d.last = Window{Lo: 0, Hi: n, Scans: 1}
	if d.set == nil {
		d.st.spans = wholePlain(n)
		return nil
	}
	d.st.enabled = true

	d.st.phase = Reparsing
	defer func() { d.st.phase = Clean }()

	c := newClassifier(context.WithoutCancel(ctx), d.set, d.text.Runes())
	res, err := c.scan(d.set.TopLevel(pattern.Pass1), 0, n, false, plainFill, nil)
	if err != nil {
		d.disable(nil, 0, err)
		return err
	}
	d.st.spans = res.spans
	log.Debug(log.CatClassify, "document classified", "document", d.id, "set", d.set.Name(),
		"len", n, "spans", len(res.spans))
	return nil
}

// disable keeps head, marks [lo, end) Plain and turns highlighting off.
func (d *Document) disable(head []span, lo int, err error) {
	n := d.text.Len()
	spans := slices.Clip(head)
	if lo < n {
		spans = append(spans, span{Start: lo, End: n, Pattern: plainID, Style: style.Plain, Sync: true, Resume: true})
	}
	d.st.spans = spans
	d.st.truncatePass2(d.st.gapStart(lo))
	d.st.enabled = false
	d.st.err = err
	log.ErrorErr(log.CatClassify, "highlighting disabled", err, "document", d.id, "from", lo)
	d.sched.publish(pubsub.DisabledEvent, Damage{Document: d.id, Lo: lo, Hi: n})
}

// disablePass2 turns highlighting off after a pass-2 failure. Pass-1 spans
// and committed pass-2 spans stay.
func (d *Document) disablePass2(err error) {
	d.st.enabled = false
	d.st.err = err
	log.ErrorErr(log.CatClassify, "highlighting disabled", err, "document", d.id, "from", d.st.progress)
	d.sched.publish(pubsub.DisabledEvent, Damage{Document: d.id, Lo: d.st.progress, Hi: d.text.Len()})
}

func wholePlain(n int) []span {
	if n == 0 {
		return nil
	}
	return []span{{Start: 0, End: n, Pattern: plainID, Style: style.Plain, Sync: true, Resume: true}}
}
