package modmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"reflect"
)

// checkJSONShape verifies that v would round-trip through JSON: null, bools,
// integers, finite floats, strings, sequences, and string-keyed mappings.
// Sets, byte slices, NaN and infinities, non-string-keyed maps, and foreign
// types are rejected.
func checkJSONShape(v any, path string) error {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case *Map:
		var err error
		val.Range(func(k string, e any) bool {
			err = checkJSONShape(e, jsonPath(path, k))
			return err == nil
		})
		return err
	case *Set:
		return fmt.Errorf("%w: set%s", ErrNotJSONable, atPath(path))
	case json.Number:
		if _, err := val.Float64(); err != nil {
			return fmt.Errorf("%w: malformed number %q%s", ErrNotJSONable, val.String(), atPath(path))
		}
		return nil
	case []byte:
		return fmt.Errorf("%w: byte slice%s", ErrNotJSONable, atPath(path))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %v%s", ErrNotJSONable, f, atPath(path))
		}
		return nil
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return fmt.Errorf("%w: byte sequence%s", ErrNotJSONable, atPath(path))
		}
		for i := 0; i < rv.Len(); i++ {
			if err := checkJSONShape(rv.Index(i).Interface(), fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("%w: map with %s keys%s", ErrNotJSONable, rv.Type().Key(), atPath(path))
		}
		iter := rv.MapRange()
		for iter.Next() {
			if err := checkJSONShape(iter.Value().Interface(), jsonPath(path, iter.Key().String())); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("%w: %T%s", ErrNotJSONable, v, atPath(path))
}

func jsonPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func atPath(path string) string {
	if path == "" {
		return ""
	}
	return " at " + path
}

// MarshalJSON encodes the stored entries as an object in insertion order.
// Computed members are derived, not stored, so they are not encoded. Values
// the encoder cannot represent (sets among them) fail the whole encode.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for p := m.store.Oldest(); p != nil; p = p.Next() {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		kb, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(p.Value)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", p.Key, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object into the container, replacing its entries.
// Decoding routes through construction, so declared fields get their
// defaults, required fields are enforced, and every entry passes the write
// pipeline; on error the container is left unchanged. Key order is preserved
// at every depth (nested objects decode to Base containers), and numbers
// decode to int64 when integral, float64 otherwise.
//
// A zero Map decodes as a Base container.
func (m *Map) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		// JSON null: by convention, leave the value as-is.
		return nil
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return fmt.Errorf("cannot decode %v into a container: not an object", tok)
	}
	pairs, err := decodeObjectEntries(dec)
	if err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("unexpected data after object")
	}

	typ := m.typ
	if typ == nil {
		typ = Base
	}
	built, err := typ.construct(pairs)
	if err != nil {
		return err
	}
	*m = *built
	return nil
}

// decodeObjectEntries reads key/value pairs up to and including the closing
// brace, preserving source order.
func decodeObjectEntries(dec *json.Decoder) ([]pair, error) {
	var pairs []pair
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is not a string: %v", tok)
		}
		value, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair{key: key, value: value})
	}
	if _, err := dec.Token(); err != nil { // consume '}'
		return nil, err
	}
	return pairs, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch val := tok.(type) {
	case json.Delim:
		switch val {
		case '{':
			pairs, err := decodeObjectEntries(dec)
			if err != nil {
				return nil, err
			}
			return Base.construct(pairs)
		case '[':
			var out []any
			for dec.More() {
				e, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				out = append(out, e)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, err
			}
			if out == nil {
				out = []any{}
			}
			return out, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", val)
	case json.Number:
		return normalizeNumber(val)
	default:
		// string, bool, or nil for JSON null.
		return tok, nil
	}
}

// normalizeNumber maps JSON numbers onto the canonical scalar widths: int64
// when the literal is integral and fits, float64 otherwise.
func normalizeNumber(n json.Number) (any, error) {
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("malformed number %q", n.String())
	}
	return f, nil
}
