// Package highlight classifies documents with a pattern set and keeps the
// result current as the text is edited.
//
// Pass-1 patterns are applied synchronously: once when a document is opened
// and again, incrementally, on every edit. Pass-2 patterns fill the Plain
// gaps pass 1 leaves behind, lazily and in bounded chunks, as regions are
// about to be shown.
package highlight

import (
	"context"
	"errors"
	"maps"
	"slices"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/hilite/internal/log"
	"github.com/zjrosen/hilite/internal/pattern"
	"github.com/zjrosen/hilite/internal/pubsub"
	"github.com/zjrosen/hilite/internal/style"
	"github.com/zjrosen/hilite/internal/tracing"
)

const (
	// DefaultChunkSize is how many runes of Plain gaps one pass-2 step covers.
	DefaultChunkSize = 16 * 1024
	// DefaultMinWindow is the initial forward window of a reparse.
	DefaultMinWindow = 512
)

// Config configures a Scheduler.
type Config struct {
	// ChunkSize bounds the pass-2 work per RegionVisible call, in runes.
	// Zero uses DefaultChunkSize; negative means unbounded.
	ChunkSize int
	// MinWindow is the initial forward window of a reparse. It doubles
	// until the reparse converges.
	MinWindow int
	// Styles resolves style names. Nil uses style.DefaultTable.
	Styles *style.Table
	// Tracer receives one span per operation. Nil disables tracing.
	Tracer trace.Tracer
	// Events receives damage notifications. Nil drops them.
	Events pubsub.Publisher[Damage]
}

// Scheduler owns every open document and runs their passes. It is
// single-threaded: callers serialize access, typically from one UI loop.
type Scheduler struct {
	cfg  Config
	docs map[string]*Document
}

// NewScheduler creates a scheduler, filling unset Config fields with defaults.
func NewScheduler(cfg Config) *Scheduler {
	switch {
	case cfg.ChunkSize == 0:
		cfg.ChunkSize = DefaultChunkSize
	case cfg.ChunkSize < 0:
		cfg.ChunkSize = 0
	}
	if cfg.MinWindow <= 0 {
		cfg.MinWindow = DefaultMinWindow
	}
	if cfg.Styles == nil {
		cfg.Styles = style.DefaultTable()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer("noop")
	}
	return &Scheduler{cfg: cfg, docs: make(map[string]*Document)}
}

func (s *Scheduler) tracer() trace.Tracer { return s.cfg.Tracer }

func (s *Scheduler) publish(t pubsub.EventType, d Damage) {
	if s.cfg.Events != nil {
		s.cfg.Events.Publish(t, d)
	}
}

// Open registers a document over t and classifies it with set's pass-1
// patterns. A nil set leaves the document Plain. A matching failure does not
// fail Open: the document comes back disabled with Err set.
func (s *Scheduler) Open(ctx context.Context, t Text, set *pattern.Set) (*Document, error) {
	if t == nil {
		return nil, errors.New("highlight: nil text")
	}
	d := &Document{
		id:     uuid.NewString(),
		sched:  s,
		text:   t,
		set:    set,
		styles: s.cfg.Styles,
	}

	attrs := []attribute.KeyValue{
		attribute.String(tracing.AttrDocument, d.id),
		attribute.Int(tracing.AttrTextLen, t.Len()),
	}
	if set != nil {
		attrs = append(attrs, attribute.String(tracing.AttrPatternSet, set.Name()))
	}
	ctx, sp := s.tracer().Start(ctx, tracing.SpanOpen, trace.WithAttributes(attrs...))
	defer sp.End()

	if err := d.refresh(ctx, sp); err != nil {
		sp.AddEvent(tracing.EventDisabled)
		log.Warn(log.CatSched, "document opened disabled", "document", d.id, "error", err.Error())
	}
	s.docs[d.id] = d
	log.Info(log.CatSched, "document opened", "document", d.id, "len", t.Len())
	return d, nil
}

// Document returns the open document with id.
func (s *Scheduler) Document(id string) (*Document, bool) {
	d, ok := s.docs[id]
	return d, ok
}

// Len returns the number of open documents.
func (s *Scheduler) Len() int { return len(s.docs) }

// Close discards a document's state. Later calls on it return ErrClosed.
func (s *Scheduler) Close(id string) {
	d, ok := s.docs[id]
	if !ok {
		return
	}
	d.closed = true
	d.st = state{}
	delete(s.docs, id)
	log.Debug(log.CatSched, "document closed", "document", id)
}

// Rebuild attaches set to every open document whose current set has the
// same name and rebuilds them. It returns how many documents were rebuilt.
func (s *Scheduler) Rebuild(ctx context.Context, set *pattern.Set) (int, error) {
	if set == nil {
		return 0, errors.New("highlight: nil pattern set")
	}
	var (
		n    int
		errs []error
	)
	for _, id := range slices.Sorted(maps.Keys(s.docs)) {
		d := s.docs[id]
		if d.set == nil || d.set.Name() != set.Name() {
			continue
		}
		if err := d.SetPatternSet(ctx, set); err != nil {
			errs = append(errs, err)
		}
		n++
	}
	log.Info(log.CatSched, "pattern set swapped", "set", set.Name(), "documents", n)
	return n, errors.Join(errs...)
}
