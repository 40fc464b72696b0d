package regex

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadReference marks a sub-expression reference that cannot be resolved.
var ErrBadReference = errors.New("invalid sub-expression reference")

// Ref names a captured sub-expression: & (the whole match), \1..\9, or \{name}.
type Ref struct {
	Index int
	Name  string
}

func (r Ref) String() string {
	switch {
	case r.Name != "":
		return `\{` + r.Name + `}`
	case r.Index == 0:
		return "&"
	default:
		return `\` + strconv.Itoa(r.Index)
	}
}

// Resolve returns the group number r denotes in m.
func (r Ref) Resolve(m *Matcher) (int, error) {
	if r.Name != "" {
		n := m.GroupNumber(r.Name)
		if n < 0 {
			return 0, fmt.Errorf("%w: no group named %q in %q", ErrBadReference, r.Name, m.String())
		}
		return n, nil
	}
	if r.Index > m.GroupCount() {
		return 0, fmt.Errorf("%w: %s but %q has %d groups", ErrBadReference, r, m.String(), m.GroupCount())
	}
	return r.Index, nil
}

// ParseRefs parses a whitespace separated list of references, e.g. `& \1 \{name}`.
func ParseRefs(s string) ([]Ref, error) {
	var refs []Ref
	for _, field := range strings.Fields(s) {
		ref, err := ParseRef(field)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// ParseRef parses a single reference. Bare digits and bare names are accepted
// as well, for use as keys in capture tables.
func ParseRef(s string) (Ref, error) {
	switch {
	case s == "&" || s == "0" || s == `\0`:
		return Ref{}, nil
	case strings.HasPrefix(s, `\{`) && strings.HasSuffix(s, "}") && len(s) > 3:
		return Ref{Name: s[2 : len(s)-1]}, nil
	case strings.HasPrefix(s, `\`) && len(s) == 2 && s[1] >= '1' && s[1] <= '9':
		return Ref{Index: int(s[1] - '0')}, nil
	case s == "":
		return Ref{}, fmt.Errorf("%w: empty reference", ErrBadReference)
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return Ref{}, fmt.Errorf("%w: %q", ErrBadReference, s)
		}
		return Ref{Index: n}, nil
	}
	if strings.ContainsAny(s, `\{}&`) {
		return Ref{}, fmt.Errorf("%w: %q", ErrBadReference, s)
	}
	return Ref{Name: s}, nil
}
