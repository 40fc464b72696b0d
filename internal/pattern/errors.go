package pattern

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingPlain   = errors.New(`missing "Plain" pattern`)
	ErrPlainShape     = errors.New(`"Plain" must have no parent, kind, pass or regex`)
	ErrDuplicateName  = errors.New("duplicate pattern name")
	ErrEmptyName      = errors.New("pattern name is required")
	ErrBadKind        = errors.New("unknown pattern kind")
	ErrBadPass        = errors.New("pass must be 1 or 2")
	ErrBadRegex       = errors.New("invalid regex")
	ErrMissingRegex   = errors.New("missing regex")
	ErrUnexpectedExpr = errors.New("regex not allowed for this kind")
	ErrDanglingParent = errors.New("parent does not exist")
	ErrParentCycle    = errors.New("parent chain forms a cycle")
	ErrColorChildren  = errors.New("color patterns cannot have sub-patterns")
	ErrColorParent    = errors.New("color pattern needs a simple or range parent")
	ErrNoColorings    = errors.New("color pattern has no references")
	ErrPassMismatch   = errors.New("sub-pattern pass differs from its parent")
	ErrBadReference   = errors.New("invalid sub-expression reference")
	ErrNegativeCtx    = errors.New("context must not be negative")
)

// PatternError ties a configuration problem to the pattern that caused it.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	if e.Pattern == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// ConfigError rejects a whole pattern set. It lists every problem found.
type ConfigError struct {
	Set      string
	Problems []*PatternError
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pattern set %q rejected", e.Set)
	for _, p := range e.Problems {
		b.WriteString("\n  ")
		b.WriteString(p.Error())
	}
	return b.String()
}

// Unwrap exposes the individual problems to errors.Is and errors.As.
func (e *ConfigError) Unwrap() []error {
	errs := make([]error, len(e.Problems))
	for i, p := range e.Problems {
		errs[i] = p
	}
	return errs
}

// Patterns returns the names of the offending patterns, in report order.
func (e *ConfigError) Patterns() []string {
	names := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		names = append(names, p.Pattern)
	}
	return names
}
