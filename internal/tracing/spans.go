package tracing

// Span names.
const (
	SpanOpen    = "highlight.open"
	SpanEdit    = "highlight.edit"
	SpanPass2   = "highlight.pass2"
	SpanRebuild = "highlight.rebuild"
	SpanCompile = "pattern.compile"
)

// Span attribute keys.
const (
	AttrDocument   = "document.id"
	AttrPatternSet = "pattern_set.name"
	AttrTextLen    = "text.len"

	AttrEditStart  = "edit.start"
	AttrEditOldLen = "edit.old_len"
	AttrEditNewLen = "edit.new_len"

	AttrWindowLo = "window.lo"
	AttrWindowHi = "window.hi"
	AttrScans    = "reparse.scans"

	AttrRegionLo = "region.lo"
	AttrRegionHi = "region.hi"
	AttrProgress = "pass2.progress"

	AttrErrorMessage = "error.message"
)

// Event names.
const (
	EventDisabled  = "highlight.disabled"
	EventConverged = "reparse.converged"
)
