package typecheck

import (
	"errors"
	"fmt"
	"strings"
)

// Set is a deduplicated collection preserving insertion order. Membership is
// decided by ValueEqual, so 1, int64(1) and 1.0 are one element. Sets are not
// JSON-serializable.
//
// A nil *Set is an empty set for reads; Add requires a Set from NewSet.
type Set struct {
	elems []any
}

// NewSet returns a set of the given elements with duplicates removed,
// keeping first occurrences.
func NewSet(elems ...any) *Set {
	s := &Set{}
	for _, e := range elems {
		s.Add(e)
	}
	return s
}

// Add inserts v unless an equal element is already present. It reports
// whether the set grew.
func (s *Set) Add(v any) bool {
	if s.Contains(v) {
		return false
	}
	s.elems = append(s.elems, v)
	return true
}

// Contains reports whether an element equal to v is present.
func (s *Set) Contains(v any) bool {
	if s == nil {
		return false
	}
	for _, e := range s.elems {
		if ValueEqual(e, v) {
			return true
		}
	}
	return false
}

// Len returns the number of elements.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.elems)
}

// Values returns the elements in insertion order. The slice is a copy.
func (s *Set) Values() []any {
	if s == nil {
		return nil
	}
	out := make([]any, len(s.elems))
	copy(out, s.elems)
	return out
}

func (s *Set) String() string {
	if s.Len() == 0 {
		return "set()"
	}
	parts := make([]string, len(s.elems))
	for i, e := range s.elems {
		parts[i] = fmt.Sprintf("%v", e)
	}
	return fmt.Sprintf("set(%s)", strings.Join(parts, ", "))
}

// MarshalJSON always fails: JSON has no set form and silently encoding one as
// an array would not round-trip.
func (s *Set) MarshalJSON() ([]byte, error) {
	return nil, errors.New("sets are not JSON-serializable")
}
