// Package ctybridge converts between cty values and the container value
// universe, so data typed with github.com/zclconf/go-cty (HCL decoders,
// Terraform-shaped tooling) can feed containers and container data can flow
// back out as capsule-free cty values.
package ctybridge

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/modmap/modmap"
)

// FromCty converts a known cty value into plain container-universe form:
// strings, bools, int64 or float64 numbers, []any for lists and tuples,
// map[string]any for maps and objects, *modmap.Set for sets, and nil for
// null. Unknown values and capsule types are rejected.
func FromCty(v cty.Value) (any, error) {
	if v == cty.NilVal {
		return nil, nil
	}
	if !v.IsKnown() {
		return nil, fmt.Errorf("cannot convert an unknown value")
	}
	if v.IsNull() {
		return nil, nil
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if i, acc := bf.Int64(); acc == big.Exact {
			return i, nil
		}
		f, _ := bf.Float64()
		return f, nil
	case ty.IsListType() || ty.IsTupleType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			native, err := FromCty(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil
	case ty.IsSetType():
		out := modmap.NewSet()
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			native, err := FromCty(ev)
			if err != nil {
				return nil, err
			}
			out.Add(native)
		}
		return out, nil
	case ty.IsMapType() || ty.IsObjectType():
		out := make(map[string]any, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			kv, ev := it.Element()
			native, err := FromCty(ev)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", kv.AsString(), err)
			}
			out[kv.AsString()] = native
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported cty type %s", ty.FriendlyName())
}

// ToCty converts a container-universe value into a cty value: containers and
// string-keyed maps become objects, sequences become tuples, sets become cty
// sets with a unified element type, and nil becomes a null of the dynamic
// pseudo-type.
func ToCty(v any) (cty.Value, error) {
	if v == nil {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	switch val := v.(type) {
	case *modmap.Map:
		attrs := make(map[string]cty.Value, val.Len())
		var rerr error
		val.Range(func(k string, e any) bool {
			cv, err := ToCty(e)
			if err != nil {
				rerr = fmt.Errorf("key %q: %w", k, err)
				return false
			}
			attrs[k] = cv
			return true
		})
		if rerr != nil {
			return cty.NilVal, rerr
		}
		return objectVal(attrs), nil
	case *modmap.Set:
		return setVal(val)
	case json.Number:
		native, err := numberVal(val)
		if err != nil {
			return cty.NilVal, err
		}
		return native, nil
	case bool:
		return cty.BoolVal(val), nil
	case string:
		return cty.StringVal(val), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return cty.BoolVal(rv.Bool()), nil
	case reflect.String:
		return cty.StringVal(rv.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cty.NumberIntVal(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return cty.NumberUIntVal(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return cty.NumberFloatVal(rv.Float()), nil
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			break
		}
		if rv.Len() == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, rv.Len())
		for i := range elems {
			cv, err := ToCty(rv.Index(i).Interface())
			if err != nil {
				return cty.NilVal, fmt.Errorf("index %d: %w", i, err)
			}
			elems[i] = cv
		}
		return cty.TupleVal(elems), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		attrs := make(map[string]cty.Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			cv, err := ToCty(iter.Value().Interface())
			if err != nil {
				return cty.NilVal, fmt.Errorf("key %q: %w", iter.Key().String(), err)
			}
			attrs[iter.Key().String()] = cv
		}
		return objectVal(attrs), nil
	}
	return cty.NilVal, fmt.Errorf("cannot represent %T as a cty value", v)
}

// NewMap builds an instance of t from a cty object or map value. The entries
// pass through t's construction pipeline, so defaults, required fields,
// strictness, and coercion all apply.
func NewMap(t *modmap.Type, v cty.Value) (*modmap.Map, error) {
	native, err := FromCty(v)
	if err != nil {
		return nil, err
	}
	plain, ok := native.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("cannot build %s: need an object, got %T", t.Name(), native)
	}
	return t.New(plain)
}

func objectVal(attrs map[string]cty.Value) cty.Value {
	if len(attrs) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(attrs)
}

// setVal unifies the element types so mixed-width numerics can share a set.
func setVal(s *modmap.Set) (cty.Value, error) {
	elems := s.Values()
	if len(elems) == 0 {
		return cty.SetValEmpty(cty.DynamicPseudoType), nil
	}
	vals := make([]cty.Value, len(elems))
	types := make([]cty.Type, len(elems))
	for i, e := range elems {
		cv, err := ToCty(e)
		if err != nil {
			return cty.NilVal, fmt.Errorf("set element %d: %w", i, err)
		}
		vals[i] = cv
		types[i] = cv.Type()
	}
	unified, convs := convert.Unify(types)
	if unified == cty.NilType {
		return cty.NilVal, fmt.Errorf("set elements have no unifiable cty type")
	}
	for i := range vals {
		if convs[i] == nil {
			continue
		}
		cv, err := convs[i](vals[i])
		if err != nil {
			return cty.NilVal, fmt.Errorf("set element %d: %w", i, err)
		}
		vals[i] = cv
	}
	return cty.SetVal(vals), nil
}

// numberVal keeps integral JSON numbers integral.
func numberVal(n json.Number) (cty.Value, error) {
	if i, err := n.Int64(); err == nil {
		return cty.NumberIntVal(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return cty.NilVal, fmt.Errorf("malformed number %q", n.String())
	}
	return cty.NumberFloatVal(f), nil
}
