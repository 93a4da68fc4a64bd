package typecheck

import (
	"errors"
	"fmt"
	"strings"

	"github.com/modmap/modmap/typeexpr"
)

// Sentinel errors for matching with errors.Is. Structured errors returned by
// this package wrap one of these.
var (
	// ErrTypeMismatch marks values rejected by the matcher.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrCoerce marks values the coercer could not convert.
	ErrCoerce = errors.New("cannot coerce")
)

// TypeMismatchError reports a value that does not conform to a type
// expression. Path locates the offending sub-value inside the checked value
// ("" at the root), e.g. "users[2].age". Parameter and IsReturn are set when
// the mismatch was detected at a guarded call boundary.
type TypeMismatchError struct {
	Path      string
	Expected  typeexpr.Expr
	Value     any
	Parameter string
	IsReturn  bool
}

func (e *TypeMismatchError) Error() string {
	var b strings.Builder
	b.WriteString("type mismatch")
	switch {
	case e.IsReturn:
		b.WriteString(" in return value")
	case e.Parameter != "":
		fmt.Fprintf(&b, " in argument %q", e.Parameter)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " at %s", e.Path)
	}
	fmt.Fprintf(&b, ": expected %s, got %s", e.Expected, describe(e.Value))
	return b.String()
}

// Is reports membership in the ErrTypeMismatch class.
func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

// CoercionError reports a value the coercer rejected. Reason explains the
// specific rule that failed; Unwrap exposes the underlying element or
// constructor error when the failure happened deeper in the value.
type CoercionError struct {
	Expr   typeexpr.Expr
	Value  any
	Reason string
	cause  error
}

func (e *CoercionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cannot coerce %s to %s", describe(e.Value), e.Expr)
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if e.cause != nil {
		fmt.Fprintf(&b, ": %v", e.cause)
	}
	return b.String()
}

// Is reports membership in the ErrCoerce class.
func (e *CoercionError) Is(target error) bool { return target == ErrCoerce }

// Unwrap returns the underlying cause, if any.
func (e *CoercionError) Unwrap() error { return e.cause }

// describe names a value for diagnostics without dumping its contents.
func describe(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
