// Package typeexpr defines the declarative type expressions understood by the
// matcher and coercer in package typecheck. An expression describes an allowed
// value shape: a primitive kind, a parametrized container, an ordered union of
// alternatives, or an instance of a declared container type. Expressions are
// immutable and compare structurally.
package typeexpr

import (
	"fmt"
	"strings"
)

// Kind identifies the variant of a type expression. The zero value is KindAny,
// so an unset expression means "any value" and an untyped field declaration
// needs no explicit type.
type Kind uint8

const (
	KindAny Kind = iota
	KindNull
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindSet
	KindMap
	KindUnion
	KindInstance
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindMap:
		return "map"
	case KindUnion:
		return "union"
	case KindInstance:
		return "instance"
	default:
		return "unknown"
	}
}

// Expr is an immutable description of an allowed value shape. Build one with
// the constructor functions in this package; the zero value is Any.
type Expr struct {
	kind Kind
	elem *Expr  // List/Set element type, Map value type
	key  *Expr  // Map key type
	alts []Expr // Union alternatives, in declared order
	name string // Instance: declared container type name
	ref  any    // Instance: opaque handle to the declaring type, may be nil
}

// Any matches every value, including nil.
func Any() Expr { return Expr{kind: KindAny} }

// Null matches only the absent value (nil).
func Null() Expr { return Expr{kind: KindNull} }

// Bool matches boolean values. Numbers are never accepted as booleans.
func Bool() Expr { return Expr{kind: KindBool} }

// Int matches integer values of any width. Booleans are never accepted as
// integers, and floats are not integers even when their value is integral.
func Int() Expr { return Expr{kind: KindInt} }

// Float matches floating-point values.
func Float() Expr { return Expr{kind: KindFloat} }

// String matches string values.
func String() Expr { return Expr{kind: KindString} }

// List matches ordered, index-addressable sequences whose every element
// matches elem. Empty sequences match vacuously.
func List(elem Expr) Expr { return Expr{kind: KindList, elem: &elem} }

// Set matches deduplicated set containers whose every element matches elem.
func Set(elem Expr) Expr { return Expr{kind: KindSet, elem: &elem} }

// Map matches mappings whose every key matches key and every value matches
// elem.
func Map(key, elem Expr) Expr { return Expr{kind: KindMap, key: &key, elem: &elem} }

// MapOf is shorthand for a string-keyed mapping: Map(String(), elem).
func MapOf(elem Expr) Expr { return Map(String(), elem) }

// Union matches when any alternative matches, tried in declared order (the
// order matters for coercion). Nested unions are flattened and structurally
// duplicate alternatives removed, keeping first occurrence. A union of one
// alternative is that alternative; a union of none is Any.
func Union(alts ...Expr) Expr {
	var flat []Expr
	for _, a := range alts {
		if a.kind == KindUnion {
			flat = append(flat, a.alts...)
			continue
		}
		flat = append(flat, a)
	}
	var dedup []Expr
	for _, a := range flat {
		seen := false
		for _, d := range dedup {
			if d.Equal(a) {
				seen = true
				break
			}
		}
		if !seen {
			dedup = append(dedup, a)
		}
	}
	switch len(dedup) {
	case 0:
		return Any()
	case 1:
		return dedup[0]
	}
	return Expr{kind: KindUnion, alts: dedup}
}

// Optional matches nil or a value matching inner. It is sugar for
// Union(inner, Null()).
func Optional(inner Expr) Expr { return Union(inner, Null()) }

// Instance matches values that are instances of the declared container type
// with the given name.
func Instance(name string) Expr { return Expr{kind: KindInstance, name: name} }

// InstanceRef is Instance with an opaque reference to the declaring type,
// which coercion uses to construct instances from mappings. Matching ignores
// the reference.
func InstanceRef(name string, ref any) Expr {
	return Expr{kind: KindInstance, name: name, ref: ref}
}

// Kind reports the expression variant.
func (e Expr) Kind() Kind { return e.kind }

// Elem returns the element type of a List or Set, or the value type of a Map.
// For other kinds it returns Any.
func (e Expr) Elem() Expr {
	if e.elem == nil {
		return Any()
	}
	return *e.elem
}

// Key returns the key type of a Map. For other kinds it returns Any.
func (e Expr) Key() Expr {
	if e.key == nil {
		return Any()
	}
	return *e.key
}

// Alternatives returns a copy of a Union's alternatives in declared order.
// For other kinds it returns nil.
func (e Expr) Alternatives() []Expr {
	if len(e.alts) == 0 {
		return nil
	}
	out := make([]Expr, len(e.alts))
	copy(out, e.alts)
	return out
}

// TypeName returns the declared container type name of an Instance expression,
// or "" for other kinds.
func (e Expr) TypeName() string { return e.name }

// Ref returns the opaque declaring-type reference of an Instance expression,
// or nil.
func (e Expr) Ref() any { return e.ref }

// Equal reports structural equality. Union alternative order is significant;
// Instance expressions compare by type name only.
func (e Expr) Equal(other Expr) bool {
	if e.kind != other.kind {
		return false
	}
	switch e.kind {
	case KindList, KindSet:
		return e.Elem().Equal(other.Elem())
	case KindMap:
		return e.Key().Equal(other.Key()) && e.Elem().Equal(other.Elem())
	case KindUnion:
		if len(e.alts) != len(other.alts) {
			return false
		}
		for i := range e.alts {
			if !e.alts[i].Equal(other.alts[i]) {
				return false
			}
		}
		return true
	case KindInstance:
		return e.name == other.name
	default:
		return true
	}
}

// String renders the expression in a compact, human-readable form, e.g.
// "list(int)", "map(string, any)" or "optional(string)".
func (e Expr) String() string {
	switch e.kind {
	case KindList, KindSet:
		return fmt.Sprintf("%s(%s)", e.kind, e.Elem())
	case KindMap:
		return fmt.Sprintf("map(%s, %s)", e.Key(), e.Elem())
	case KindUnion:
		if inner, ok := e.optionalInner(); ok {
			return fmt.Sprintf("optional(%s)", inner)
		}
		parts := make([]string, len(e.alts))
		for i, a := range e.alts {
			parts[i] = a.String()
		}
		return fmt.Sprintf("union(%s)", strings.Join(parts, ", "))
	case KindInstance:
		return fmt.Sprintf("instance(%s)", e.name)
	default:
		return e.kind.String()
	}
}

// optionalInner reports whether the union is exactly one alternative plus
// null, returning that alternative.
func (e Expr) optionalInner() (Expr, bool) {
	if e.kind != KindUnion || len(e.alts) != 2 {
		return Expr{}, false
	}
	if e.alts[0].kind == KindNull {
		return e.alts[1], true
	}
	if e.alts[1].kind == KindNull {
		return e.alts[0], true
	}
	return Expr{}, false
}
