package modmap

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/modmap/modmap/typecheck"
)

// GetNested reads a dotted path, e.g. "users.0.profile.city". Each segment
// steps into a container by key or into a sequence by numeric index. Reads
// pass through Get, so nested plain mappings convert on the way.
func (m *Map) GetNested(path string) (any, error) {
	segs, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	var cursor any = m
	for _, seg := range segs {
		cursor, err = step(cursor, seg, path)
		if err != nil {
			return nil, err
		}
	}
	return cursor, nil
}

// SetNested writes a dotted path, creating missing intermediate containers.
// Only containers are created: a missing key on the way becomes a lenient
// Base container, while sequence indices must already exist. The final write
// goes through the owning container's pipeline or assigns the sequence
// element in place.
func (m *Map) SetNested(path string, value any) error {
	segs, err := splitPath(path)
	if err != nil {
		return err
	}
	var cursor any = m
	for _, seg := range segs[:len(segs)-1] {
		next, err := stepOrCreate(cursor, seg, path)
		if err != nil {
			return err
		}
		cursor = next
	}
	last := segs[len(segs)-1]
	switch c := cursor.(type) {
	case *Map:
		if err := c.Set(last, value); err != nil {
			return fmt.Errorf("path %q: %w", path, err)
		}
		return nil
	}
	rv := reflect.ValueOf(cursor)
	if isSequence(rv) {
		return assignElem(rv, last, value, path)
	}
	return fmt.Errorf("path %q: cannot write into %T", path, cursor)
}

// step resolves one path segment against a container or sequence.
func step(cursor any, seg, path string) (any, error) {
	if c, ok := cursor.(*Map); ok {
		v, err := c.Get(seg)
		if err != nil {
			return nil, fmt.Errorf("path %q: %w", path, err)
		}
		return v, nil
	}
	rv := reflect.ValueOf(cursor)
	if isSequence(rv) {
		idx, err := seqIndex(rv, seg, path)
		if err != nil {
			return nil, err
		}
		return rv.Index(idx).Interface(), nil
	}
	return nil, fmt.Errorf("path %q: %T is not a container at %q", path, cursor, seg)
}

// stepOrCreate is step, except a key missing from a container is created as
// an empty Base container.
func stepOrCreate(cursor any, seg, path string) (any, error) {
	if c, ok := cursor.(*Map); ok {
		v, err := c.Get(seg)
		if errors.Is(err, ErrKeyNotFound) {
			child := New(nil)
			if serr := c.Set(seg, child); serr != nil {
				return nil, fmt.Errorf("path %q: %w", path, serr)
			}
			return child, nil
		}
		if err != nil {
			return nil, fmt.Errorf("path %q: %w", path, err)
		}
		return v, nil
	}
	return step(cursor, seg, path)
}

func seqIndex(rv reflect.Value, seg, path string) (int, error) {
	idx, err := strconv.Atoi(seg)
	if err != nil {
		return 0, fmt.Errorf("path %q: segment %q is not an index", path, seg)
	}
	if idx < 0 || idx >= rv.Len() {
		return 0, fmt.Errorf("path %q: index %d out of range (len %d)", path, idx, rv.Len())
	}
	return idx, nil
}

func assignElem(rv reflect.Value, seg string, value any, path string) error {
	idx, err := seqIndex(rv, seg, path)
	if err != nil {
		return err
	}
	elem := rv.Index(idx)
	if !elem.CanSet() {
		return fmt.Errorf("path %q: cannot assign into %s", path, rv.Type())
	}
	if value == nil {
		switch elem.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice:
			elem.Set(reflect.Zero(elem.Type()))
			return nil
		}
		return fmt.Errorf("path %q: cannot assign nil into %s", path, rv.Type())
	}
	vv := reflect.ValueOf(value)
	if !vv.Type().AssignableTo(elem.Type()) {
		return fmt.Errorf("path %q: cannot assign %T into %s", path, value, rv.Type())
	}
	elem.Set(vv)
	return nil
}

func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("empty path")
	}
	segs := strings.Split(path, ".")
	for _, s := range segs {
		if s == "" {
			return nil, fmt.Errorf("empty segment in path %q", path)
		}
	}
	return segs, nil
}

// Merge deep-merges other into m. Entries missing from m are set; entries
// whose existing and incoming values are both mapping-shaped merge
// recursively; anything else is overwritten. Every leaf write goes through
// the owning container's pipeline, so strict nested types keep their
// guarantees during a merge.
func (m *Map) Merge(other any) error {
	entries, err := orderedEntries(other)
	if err != nil {
		return err
	}
	for _, p := range entries {
		if !m.Has(p.key) {
			if err := m.Set(p.key, p.value); err != nil {
				return err
			}
			continue
		}
		existing, err := m.Get(p.key)
		if err != nil {
			return err
		}
		if em, ok := existing.(*Map); ok && isMappingShaped(p.value) {
			if err := em.Merge(p.value); err != nil {
				return fmt.Errorf("merging %q: %w", p.key, err)
			}
			continue
		}
		if err := m.Set(p.key, p.value); err != nil {
			return err
		}
	}
	return nil
}

// DeepEquals compares two values structurally: containers equal plain mappings
// holding the same entries, numbers compare across widths, sequences
// element-wise, sets without order. Bools and strings never equal numbers.
func DeepEquals(a, b any) bool {
	return typecheck.ValueEqual(a, b)
}

// DeepEquals compares the container with other structurally, with the same
// rules as the package-level DeepEquals.
func (m *Map) DeepEquals(other any) bool {
	return typecheck.ValueEqual(m, other)
}

func isMappingShaped(v any) bool {
	switch v.(type) {
	case *Map, map[string]any, typecheck.Mapping:
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String
}

// orderedEntries snapshots mapping-shaped input as ordered pairs: containers
// in insertion order, plain maps sorted by key.
func orderedEntries(v any) ([]pair, error) {
	switch val := v.(type) {
	case *Map:
		out := make([]pair, 0, val.Len())
		val.Range(func(k string, e any) bool {
			out = append(out, pair{key: k, value: e})
			return true
		})
		return out, nil
	case typecheck.Mapping:
		out := make([]pair, 0, val.Len())
		val.Range(func(k string, e any) bool {
			out = append(out, pair{key: k, value: e})
			return true
		})
		return out, nil
	}
	plain, err := plainStringMap(v)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(plain))
	for k := range plain {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]pair, 0, len(keys))
	for _, k := range keys {
		out = append(out, pair{key: k, value: plain[k]})
	}
	return out, nil
}
