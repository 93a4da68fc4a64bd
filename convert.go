package modmap

import (
	"fmt"
	"reflect"

	"github.com/modmap/modmap/typecheck"
)

// Set is the deduplicated, insertion-ordered collection understood by the
// checker and the container. It is typecheck's set type re-exported, so the
// two packages agree on what a set is.
type Set = typecheck.Set

// NewSet returns a set of the given elements with duplicates removed.
func NewSet(elems ...any) *Set { return typecheck.NewSet(elems...) }

// Convert eagerly translates a plain structure into container form:
// string-keyed maps become Base instances, sequences are normalized to []any
// with converted elements, and scalars, sets, and existing containers pass
// through. Unlike the lazy conversion reads perform, Convert walks the whole
// structure at once.
func Convert(v any) any {
	switch val := v.(type) {
	case *Map, *Set:
		return v
	case map[string]any:
		return convertStringMap(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = Convert(e)
		}
		return out
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String:
		plain := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			plain[iter.Key().String()] = iter.Value().Interface()
		}
		return convertStringMap(plain)
	case isSequence(rv):
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Convert(rv.Index(i).Interface())
		}
		return out
	}
	return v
}

func convertStringMap(val map[string]any) *Map {
	converted := make(map[string]any, len(val))
	for k, e := range val {
		converted[k] = Convert(e)
	}
	return New(converted)
}

// Unconvert is the inverse of Convert: containers become plain string-keyed
// maps, sequences become []any, and scalars and sets pass through. The result
// contains no containers at any depth. For plain structures,
// Unconvert(Convert(x)) is deeply equal to x.
func Unconvert(v any) any {
	switch val := v.(type) {
	case *Set:
		return v
	case *Map:
		out := make(map[string]any, val.Len())
		val.Range(func(k string, e any) bool {
			out[k] = Unconvert(e)
			return true
		})
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = Unconvert(e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = Unconvert(e)
		}
		return out
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = Unconvert(iter.Value().Interface())
		}
		return out
	case isSequence(rv):
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Unconvert(rv.Index(i).Interface())
		}
		return out
	}
	return v
}

// plainStringMap snapshots mapping-shaped input into a plain map for
// construction: containers, string-keyed maps, and Mapping implementations
// qualify.
func plainStringMap(v any) (map[string]any, error) {
	switch val := v.(type) {
	case *Map:
		return val.AsMap(), nil
	case map[string]any:
		return val, nil
	case typecheck.Mapping:
		out := make(map[string]any, val.Len())
		val.Range(func(k string, e any) bool {
			out[k] = e
			return true
		})
		return out, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out, nil
	}
	return nil, fmt.Errorf("need a mapping, got %T", v)
}
