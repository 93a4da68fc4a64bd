// Package typecheck implements runtime conformance checking and guarded
// coercion of plain Go values against typeexpr expressions, plus a contract
// enforcer for dynamically-typed call boundaries.
//
// The value universe is the one JSON decoding and the modmap container
// produce: nil, booleans, integers and floats of any width, strings,
// json.Number, slices and arrays, string-keyed maps, Set, and any container
// implementing the Mapping or InstanceValue interfaces. Booleans and numbers
// are disjoint: a bool never matches an integer expression and vice versa.
package typecheck

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/modmap/modmap/typeexpr"
)

// Mapping is the read view of string-keyed containers. Hybrid containers
// implement it so the checker can walk them without depending on their
// package.
type Mapping interface {
	Len() int
	Range(fn func(key string, value any) bool)
}

// InstanceValue is implemented by containers bound to a declared type.
// A value matches an instance expression when the names agree.
type InstanceValue interface {
	TypeName() string
}

// Matches reports whether v conforms to expr.
func Matches(v any, expr typeexpr.Expr) bool { return Check(v, expr) == nil }

// Check validates v against expr. On failure it returns a *TypeMismatchError
// locating the first offending sub-value.
func Check(v any, expr typeexpr.Expr) error { return check(v, expr, "") }

func check(v any, expr typeexpr.Expr, path string) error {
	if isAbsent(v) {
		if absentAllowed(expr) {
			return nil
		}
		return &TypeMismatchError{Path: path, Expected: expr, Value: nil}
	}
	switch expr.Kind() {
	case typeexpr.KindAny:
		return nil
	case typeexpr.KindNull:
		// Non-absent values never match null.
	case typeexpr.KindBool:
		if kindOf(v) == reflect.Bool {
			return nil
		}
	case typeexpr.KindInt:
		if isIntValue(v) {
			return nil
		}
	case typeexpr.KindFloat:
		if isFloatValue(v) {
			return nil
		}
	case typeexpr.KindString:
		if isStringValue(v) {
			return nil
		}
	case typeexpr.KindList:
		return checkList(v, expr, path)
	case typeexpr.KindSet:
		return checkSet(v, expr, path)
	case typeexpr.KindMap:
		return checkMap(v, expr, path)
	case typeexpr.KindUnion:
		for _, alt := range expr.Alternatives() {
			if check(v, alt, path) == nil {
				return nil
			}
		}
	case typeexpr.KindInstance:
		if inst, ok := v.(InstanceValue); ok && inst.TypeName() == expr.TypeName() {
			return nil
		}
	}
	return &TypeMismatchError{Path: path, Expected: expr, Value: v}
}

func checkList(v any, expr typeexpr.Expr, path string) error {
	rv := reflect.ValueOf(v)
	if !isSequenceValue(rv) {
		return &TypeMismatchError{Path: path, Expected: expr, Value: v}
	}
	elem := expr.Elem()
	if elem.Kind() == typeexpr.KindAny {
		return nil
	}
	for i := 0; i < rv.Len(); i++ {
		if err := check(rv.Index(i).Interface(), elem, fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func checkSet(v any, expr typeexpr.Expr, path string) error {
	s, ok := v.(*Set)
	if !ok {
		return &TypeMismatchError{Path: path, Expected: expr, Value: v}
	}
	elem := expr.Elem()
	if elem.Kind() == typeexpr.KindAny {
		return nil
	}
	for i, e := range s.Values() {
		if err := check(e, elem, fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func checkMap(v any, expr typeexpr.Expr, path string) error {
	keyExpr, elemExpr := expr.Key(), expr.Elem()
	if m, ok := v.(Mapping); ok {
		var err error
		m.Range(func(k string, val any) bool {
			p := joinPath(path, k)
			if err = check(k, keyExpr, p); err != nil {
				return false
			}
			err = check(val, elemExpr, p)
			return err == nil
		})
		return err
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return &TypeMismatchError{Path: path, Expected: expr, Value: v}
	}
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key().Interface()
		var p string
		if ks, ok := k.(string); ok {
			p = joinPath(path, ks)
		} else {
			p = fmt.Sprintf("%s[%v]", path, k)
		}
		if err := check(k, keyExpr, p); err != nil {
			return err
		}
		if err := check(iter.Value().Interface(), elemExpr, p); err != nil {
			return err
		}
	}
	return nil
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// absentAllowed reports whether expr admits the absent value.
func absentAllowed(expr typeexpr.Expr) bool {
	switch expr.Kind() {
	case typeexpr.KindAny, typeexpr.KindNull:
		return true
	case typeexpr.KindUnion:
		for _, alt := range expr.Alternatives() {
			if absentAllowed(alt) {
				return true
			}
		}
	}
	return false
}

// isAbsent reports whether v is nil or a nil pointer. Nil slices and maps are
// empty containers, not absent values.
func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// kindOf classifies by underlying reflect kind so defined types match the
// expression of their underlying representation.
func kindOf(v any) reflect.Kind {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return reflect.Invalid
	}
	return rv.Kind()
}

func isIntValue(v any) bool {
	if n, ok := v.(json.Number); ok {
		_, err := n.Int64()
		return err == nil
	}
	switch kindOf(v) {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isFloatValue(v any) bool {
	if n, ok := v.(json.Number); ok {
		if _, err := n.Int64(); err == nil {
			return false
		}
		_, err := n.Float64()
		return err == nil
	}
	switch kindOf(v) {
	case reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isStringValue(v any) bool {
	if _, ok := v.(json.Number); ok {
		return false
	}
	return kindOf(v) == reflect.String
}

// isSequenceValue reports whether rv is an ordered, index-addressable
// sequence. Strings and byte slices are scalars here, never sequences.
func isSequenceValue(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Type().Elem().Kind() != reflect.Uint8
	}
	return false
}
