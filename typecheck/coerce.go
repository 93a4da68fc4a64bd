package typecheck

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/spf13/cast"

	"github.com/modmap/modmap/typeexpr"
)

// InstantiateFunc constructs an instance of the declared container type named
// typeName from value. ref is the opaque reference carried by the instance
// expression, typically the declaring type itself.
type InstantiateFunc func(ref any, typeName string, value any) (any, error)

// Coercer converts values toward a type expression. Conversions are guarded:
// only lossless, unambiguous ones are attempted, and a value that already
// conforms is returned unchanged. Coerced scalars come out in canonical
// widths (int64, float64, string, bool).
type Coercer struct {
	instantiate InstantiateFunc
}

// CoercerOption configures a Coercer.
type CoercerOption func(*Coercer)

// WithInstantiate supplies the constructor used to coerce mappings into
// declared container instances. Without it, instance coercion fails.
func WithInstantiate(fn InstantiateFunc) CoercerOption {
	return func(c *Coercer) { c.instantiate = fn }
}

// NewCoercer returns a Coercer with the given options applied.
func NewCoercer(opts ...CoercerOption) *Coercer {
	c := &Coercer{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCoercer = NewCoercer()

// Coerce converts v toward expr using the default Coercer, which has no
// instance constructor.
func Coerce(v any, expr typeexpr.Expr) (any, error) {
	return defaultCoercer.Coerce(v, expr)
}

// Coerce returns v unchanged when it already conforms to expr, a converted
// value when a guarded conversion applies, and a *CoercionError otherwise.
// Coercion is idempotent: feeding the result back yields it unchanged.
func (c *Coercer) Coerce(v any, expr typeexpr.Expr) (any, error) {
	if Check(v, expr) == nil {
		return v, nil
	}
	if isAbsent(v) {
		return nil, &CoercionError{Expr: expr, Value: v, Reason: "absent value"}
	}
	switch expr.Kind() {
	case typeexpr.KindNull:
		return nil, &CoercionError{Expr: expr, Value: v, Reason: "only nil is null"}
	case typeexpr.KindBool:
		return coerceBool(v, expr)
	case typeexpr.KindInt:
		return coerceInt(v, expr)
	case typeexpr.KindFloat:
		return coerceFloat(v, expr)
	case typeexpr.KindString:
		return coerceString(v, expr)
	case typeexpr.KindList:
		return c.coerceList(v, expr)
	case typeexpr.KindSet:
		return c.coerceSet(v, expr)
	case typeexpr.KindMap:
		return c.coerceMap(v, expr)
	case typeexpr.KindUnion:
		return c.coerceUnion(v, expr)
	case typeexpr.KindInstance:
		return c.coerceInstance(v, expr)
	}
	return nil, &CoercionError{Expr: expr, Value: v}
}

// coerceBool accepts canonical textual booleans and the exact numbers 0 and 1.
// Anything else is ambiguous and fails; there is no truthiness here.
func coerceBool(v any, expr typeexpr.Expr) (any, error) {
	if n, ok := v.(json.Number); ok {
		return boolFromFloat(n.String(), v, expr)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		b, err := cast.ToBoolE(strings.TrimSpace(rv.String()))
		if err != nil {
			return nil, &CoercionError{Expr: expr, Value: v, Reason: "not a recognized boolean literal"}
		}
		return b, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch rv.Int() {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		switch rv.Uint() {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
	case reflect.Float32, reflect.Float64:
		switch rv.Float() {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
	default:
		return nil, &CoercionError{Expr: expr, Value: v}
	}
	return nil, &CoercionError{Expr: expr, Value: v, Reason: "only 0 and 1 convert to bool"}
}

func boolFromFloat(s string, v any, expr typeexpr.Expr) (any, error) {
	f, err := cast.ToFloat64E(s)
	if err != nil {
		return nil, &CoercionError{Expr: expr, Value: v, cause: err}
	}
	switch f {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return nil, &CoercionError{Expr: expr, Value: v, Reason: "only 0 and 1 convert to bool"}
}

func coerceInt(v any, expr typeexpr.Expr) (any, error) {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		return nil, &CoercionError{Expr: expr, Value: v, Reason: "fractional part would be lost"}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return nil, &CoercionError{Expr: expr, Value: v, Reason: "booleans do not convert to integers"}
	case reflect.String:
		i, err := cast.ToInt64E(strings.TrimSpace(rv.String()))
		if err != nil {
			return nil, &CoercionError{Expr: expr, Value: v, Reason: "not an integer literal"}
		}
		return i, nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return nil, &CoercionError{Expr: expr, Value: v, Reason: "fractional part would be lost"}
		}
		if f < math.MinInt64 || f >= math.MaxInt64 {
			return nil, &CoercionError{Expr: expr, Value: v, Reason: "out of int64 range"}
		}
		return int64(f), nil
	}
	return nil, &CoercionError{Expr: expr, Value: v}
}

func coerceFloat(v any, expr typeexpr.Expr) (any, error) {
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		if err != nil {
			return nil, &CoercionError{Expr: expr, Value: v, cause: err}
		}
		return f, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return nil, &CoercionError{Expr: expr, Value: v, Reason: "booleans do not convert to floats"}
	case reflect.String:
		f, err := cast.ToFloat64E(strings.TrimSpace(rv.String()))
		if err != nil {
			return nil, &CoercionError{Expr: expr, Value: v, Reason: "not a numeric literal"}
		}
		return f, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}
	return nil, &CoercionError{Expr: expr, Value: v}
}

func coerceString(v any, expr typeexpr.Expr) (any, error) {
	if n, ok := v.(json.Number); ok {
		return n.String(), nil
	}
	switch kindOf(v) {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, &CoercionError{Expr: expr, Value: v, cause: err}
		}
		return s, nil
	}
	if b, ok := v.([]byte); ok {
		return string(b), nil
	}
	return nil, &CoercionError{Expr: expr, Value: v}
}

func (c *Coercer) coerceList(v any, expr typeexpr.Expr) (any, error) {
	elems, err := sequenceElems(v, expr)
	if err != nil {
		return nil, err
	}
	elemExpr := expr.Elem()
	out := make([]any, len(elems))
	for i, e := range elems {
		coerced, err := c.Coerce(e, elemExpr)
		if err != nil {
			return nil, &CoercionError{Expr: expr, Value: v, Reason: fmt.Sprintf("element %d", i), cause: err}
		}
		out[i] = coerced
	}
	return out, nil
}

func (c *Coercer) coerceSet(v any, expr typeexpr.Expr) (any, error) {
	elems, err := sequenceElems(v, expr)
	if err != nil {
		return nil, err
	}
	elemExpr := expr.Elem()
	out := NewSet()
	for i, e := range elems {
		coerced, err := c.Coerce(e, elemExpr)
		if err != nil {
			return nil, &CoercionError{Expr: expr, Value: v, Reason: fmt.Sprintf("element %d", i), cause: err}
		}
		out.Add(coerced)
	}
	return out, nil
}

// sequenceElems snapshots the elements of a sequence or set input. Mappings
// and strings never convert to sequences.
func sequenceElems(v any, expr typeexpr.Expr) ([]any, error) {
	if s, ok := v.(*Set); ok {
		return s.Values(), nil
	}
	if _, ok := v.(Mapping); ok {
		return nil, &CoercionError{Expr: expr, Value: v, Reason: "mappings do not convert to sequences"}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return nil, &CoercionError{Expr: expr, Value: v, Reason: "strings are not sequences"}
	case reflect.Map:
		return nil, &CoercionError{Expr: expr, Value: v, Reason: "mappings do not convert to sequences"}
	}
	if !isSequenceValue(rv) {
		return nil, &CoercionError{Expr: expr, Value: v, Reason: "not a sequence"}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func (c *Coercer) coerceMap(v any, expr typeexpr.Expr) (any, error) {
	entries, err := mappingEntries(v, expr)
	if err != nil {
		return nil, err
	}
	keyExpr, elemExpr := expr.Key(), expr.Elem()
	keys := make([]any, 0, len(entries))
	vals := make([]any, 0, len(entries))
	allStrings := true
	for i, e := range entries {
		k, err := c.Coerce(e.key, keyExpr)
		if err != nil {
			return nil, &CoercionError{Expr: expr, Value: v, Reason: fmt.Sprintf("key of entry %d", i), cause: err}
		}
		val, err := c.Coerce(e.val, elemExpr)
		if err != nil {
			return nil, &CoercionError{Expr: expr, Value: v, Reason: fmt.Sprintf("entry %d", i), cause: err}
		}
		if k == nil || !reflect.TypeOf(k).Comparable() {
			return nil, &CoercionError{Expr: expr, Value: v, Reason: fmt.Sprintf("entry %d: key is not usable as a map key", i)}
		}
		if _, ok := k.(string); !ok {
			allStrings = false
		}
		keys = append(keys, k)
		vals = append(vals, val)
	}
	// Duplicate keys resolve to the last entry.
	if allStrings {
		out := make(map[string]any, len(keys))
		for i, k := range keys {
			out[k.(string)] = vals[i]
		}
		return out, nil
	}
	out := make(map[any]any, len(keys))
	for i, k := range keys {
		out[k] = vals[i]
	}
	return out, nil
}

type entry struct{ key, val any }

// mappingEntries snapshots key/value pairs from a mapping or from a sequence
// of two-element pairs.
func mappingEntries(v any, expr typeexpr.Expr) ([]entry, error) {
	if m, ok := v.(Mapping); ok {
		entries := make([]entry, 0, m.Len())
		m.Range(func(k string, val any) bool {
			entries = append(entries, entry{key: k, val: val})
			return true
		})
		return entries, nil
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.Kind() == reflect.Map:
		entries := make([]entry, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			entries = append(entries, entry{key: iter.Key().Interface(), val: iter.Value().Interface()})
		}
		return entries, nil
	case isSequenceValue(rv):
		entries := make([]entry, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			pair := reflect.ValueOf(rv.Index(i).Interface())
			if !isSequenceValue(pair) || pair.Len() != 2 {
				return nil, &CoercionError{Expr: expr, Value: v, Reason: fmt.Sprintf("element %d is not a key/value pair", i)}
			}
			entries = append(entries, entry{key: pair.Index(0).Interface(), val: pair.Index(1).Interface()})
		}
		return entries, nil
	}
	return nil, &CoercionError{Expr: expr, Value: v, Reason: "not a mapping or a sequence of pairs"}
}

// coerceUnion tries alternatives in declared order; the first success wins.
// The failure aggregates every alternative's reason.
func (c *Coercer) coerceUnion(v any, expr typeexpr.Expr) (any, error) {
	var reasons []string
	for _, alt := range expr.Alternatives() {
		out, err := c.Coerce(v, alt)
		if err == nil {
			return out, nil
		}
		reasons = append(reasons, fmt.Sprintf("%s: %v", alt, err))
	}
	return nil, &CoercionError{Expr: expr, Value: v, Reason: strings.Join(reasons, "; ")}
}

func (c *Coercer) coerceInstance(v any, expr typeexpr.Expr) (any, error) {
	if c.instantiate == nil {
		return nil, &CoercionError{Expr: expr, Value: v, Reason: "no constructor available"}
	}
	out, err := c.instantiate(expr.Ref(), expr.TypeName(), v)
	if err != nil {
		return nil, &CoercionError{Expr: expr, Value: v, cause: err}
	}
	if Check(out, expr) != nil {
		return nil, &CoercionError{Expr: expr, Value: v, Reason: "constructor returned a non-conforming value"}
	}
	return out, nil
}
