package typecheck

import (
	"encoding/json"
	"reflect"
)

// ValueEqual reports semantic equality over the checker's value universe.
// Numbers compare by mathematical value across integer and float widths, so
// int(1), int64(1) and 1.0 are equal; booleans and strings never equal
// numbers. String-keyed mappings compare entry-wise whether they are plain
// maps or Mapping containers, sequences compare element-wise, and sets
// compare without regard to order. Everything else falls back to
// reflect.DeepEqual.
//
// Float comparison converts to float64, so integers beyond 2^53 may compare
// equal to a nearby float.
func ValueEqual(a, b any) bool {
	if isAbsent(a) || isAbsent(b) {
		return isAbsent(a) && isAbsent(b)
	}
	if an, ok := numberOf(a); ok {
		bn, bok := numberOf(b)
		return bok && an.equal(bn)
	}
	if _, ok := numberOf(b); ok {
		return false
	}
	ak, bk := kindOf(a), kindOf(b)
	if ak == reflect.Bool || bk == reflect.Bool {
		return ak == bk && reflect.ValueOf(a).Bool() == reflect.ValueOf(b).Bool()
	}
	if isStringValue(a) || isStringValue(b) {
		return isStringValue(a) && isStringValue(b) &&
			reflect.ValueOf(a).String() == reflect.ValueOf(b).String()
	}
	if as, ok := a.(*Set); ok {
		bs, bok := b.(*Set)
		return bok && setsEqual(as, bs)
	}
	if _, ok := b.(*Set); ok {
		return false
	}
	if am, ok := stringEntries(a); ok {
		bm, bok := stringEntries(b)
		return bok && entriesEqual(am, bm)
	}
	if _, ok := stringEntries(b); ok {
		return false
	}
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if isSequenceValue(av) || isSequenceValue(bv) {
		return isSequenceValue(av) && isSequenceValue(bv) && sequencesEqual(av, bv)
	}
	return reflect.DeepEqual(a, b)
}

func setsEqual(a, b *Set) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, e := range a.Values() {
		if !b.Contains(e) {
			return false
		}
	}
	return true
}

func sequencesEqual(a, b reflect.Value) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i := 0; i < a.Len(); i++ {
		if !ValueEqual(a.Index(i).Interface(), b.Index(i).Interface()) {
			return false
		}
	}
	return true
}

func entriesEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !ValueEqual(av, bv) {
			return false
		}
	}
	return true
}

// stringEntries materializes a string-keyed view of v when v is a Mapping
// container or a reflect map with string keys.
func stringEntries(v any) (map[string]any, bool) {
	if m, ok := v.(Mapping); ok {
		out := make(map[string]any, m.Len())
		m.Range(func(k string, val any) bool {
			out[k] = val
			return true
		})
		return out, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// number is a numeric value split by representation for exact integer
// comparison where possible.
type number struct {
	isFloat bool
	isUint  bool
	i       int64
	u       uint64
	f       float64
}

func numberOf(v any) (number, bool) {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return number{i: i}, true
		}
		if f, err := n.Float64(); err == nil {
			return number{isFloat: true, f: f}, true
		}
		return number{}, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return number{i: rv.Int()}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return number{isUint: true, u: rv.Uint()}, true
	case reflect.Float32, reflect.Float64:
		return number{isFloat: true, f: rv.Float()}, true
	}
	return number{}, false
}

func (n number) equal(o number) bool {
	switch {
	case n.isFloat || o.isFloat:
		return n.asFloat() == o.asFloat()
	case n.isUint && o.isUint:
		return n.u == o.u
	case n.isUint:
		return o.i >= 0 && n.u == uint64(o.i)
	case o.isUint:
		return n.i >= 0 && o.u == uint64(n.i)
	default:
		return n.i == o.i
	}
}

func (n number) asFloat() float64 {
	switch {
	case n.isFloat:
		return n.f
	case n.isUint:
		return float64(n.u)
	default:
		return float64(n.i)
	}
}
