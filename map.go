package modmap

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/modmap/modmap/typecheck"
)

// Map is one container instance: an insertion-ordered string-keyed map bound
// to a Type. All writes go through the type's pipeline (strictness, coercion,
// JSON-shape enforcement, check routines), and reads of computed members
// derive values on demand.
//
// A Map is not safe for concurrent use.
type Map struct {
	typ   *Type
	store *orderedmap.OrderedMap[string, any]
	// cache holds valid values of cached computed members. Invalidation
	// removes entries; absence means "produce on next read".
	cache map[string]any
}

type pair struct {
	key   string
	value any
}

// New returns a lenient Base container holding initial's entries, sorted by
// key. Base construction accepts anything, so there is no error to handle.
func New(initial map[string]any) *Map {
	m, err := Base.New(initial)
	if err != nil {
		panic(fmt.Sprintf("modmap: Base construction failed: %v", err))
	}
	return m
}

// New builds an instance of t from initial. Declared fields are populated
// first in declaration order, from initial or their defaults; a field with
// neither fails with ErrMissingField. Remaining initial entries follow in
// sorted key order, subject to the type's config. Every entry passes through
// the write pipeline, so construction fails exactly where a Set would.
func (t *Type) New(initial map[string]any) (*Map, error) {
	keys := make([]string, 0, len(initial))
	for k := range initial {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]pair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, pair{key: k, value: initial[k]})
	}
	return t.construct(pairs)
}

// construct builds an instance from ordered entries: declared fields in
// declaration order, then the remaining entries in the order given.
func (t *Type) construct(pairs []pair) (*Map, error) {
	m := &Map{
		typ:   t,
		store: orderedmap.New[string, any](),
		cache: make(map[string]any),
	}
	byKey := make(map[string]int, len(pairs))
	for i, p := range pairs {
		byKey[p.key] = i // last occurrence wins
	}
	for _, name := range t.order {
		def := t.fields[name]
		if i, ok := byKey[name]; ok {
			if err := m.set(name, pairs[i].value); err != nil {
				return nil, err
			}
			continue
		}
		switch {
		case def.Default != nil:
			if err := m.set(name, def.Default); err != nil {
				return nil, err
			}
		case def.Factory != nil:
			if err := m.set(name, def.Factory()); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: %s requires %q", ErrMissingField, t.name, name)
		}
	}
	for _, p := range pairs {
		if _, declared := t.fields[p.key]; declared {
			continue
		}
		if err := m.set(p.key, p.value); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Get returns the value at key. Computed members are produced on demand
// (serving a valid cache when the declaration enables one); stored plain
// mappings are converted to containers on first read and the conversion is
// kept, so repeated reads return the identical instance.
func (m *Map) Get(key string) (any, error) {
	if def, ok := m.typ.computed[key]; ok {
		if def.Cache {
			if v, ok := m.cache[key]; ok {
				return v, nil
			}
		}
		v, err := def.Produce(m)
		if err != nil {
			// The cache is left untouched: a stale valid value stays valid.
			return nil, fmt.Errorf("computed %q: %w", key, err)
		}
		if def.Cache {
			m.cache[key] = v
			m.typ.logger.Debug("computed member cached", "type", m.typ.name, "member", key)
		}
		return v, nil
	}
	raw, present := m.store.Get(key)
	if !present {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	realized, changed := realize(raw)
	if changed {
		m.store.Set(key, realized)
	}
	return realized, nil
}

// MustGet is Get for keys known to be present; it panics on error.
func (m *Map) MustGet(key string) any {
	v, err := m.Get(key)
	if err != nil {
		panic(fmt.Sprintf("modmap: MustGet(%q): %v", key, err))
	}
	return v
}

// Set writes value at key through the type's pipeline: computed members are
// rejected, strict types verify or coerce declared fields and gate extras,
// JSON-shape enforcement runs if configured, and the field's check routine
// may transform the value. A successful write invalidates the caches of every
// computed member downstream of key. On error nothing changes.
func (m *Map) Set(key string, value any) error { return m.set(key, value) }

func (m *Map) set(key string, value any) error {
	t := m.typ
	if _, isComputed := t.computed[key]; isComputed {
		return fmt.Errorf("%w: %q", ErrComputedWrite, key)
	}
	def, declared := t.fields[key]
	if t.config.Strict {
		if !declared && !t.config.AllowExtra {
			return fmt.Errorf("%w: %q is not a field of %s", ErrUnknownKey, key, t.name)
		}
		if declared {
			if err := typecheck.Check(value, def.Type); err != nil {
				if !t.config.Coerce {
					return fmt.Errorf("field %q: %w", key, err)
				}
				coerced, cerr := containerCoercer.Coerce(value, def.Type)
				if cerr != nil {
					return fmt.Errorf("field %q: %w", key, cerr)
				}
				value = coerced
			}
		}
	}
	if t.config.EnforceJSON {
		if err := checkJSONShape(value, ""); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
	}
	if check, ok := t.checks[key]; ok {
		transformed, err := check(m, value)
		if err != nil {
			return fmt.Errorf("check on %q: %w", key, err)
		}
		value = transformed
	}
	m.store.Set(key, value)
	m.invalidate(key)
	return nil
}

// Delete removes key. Deleting a computed member fails with ErrComputedWrite,
// a missing key with ErrKeyNotFound. Removal invalidates downstream computed
// caches like a write does.
func (m *Map) Delete(key string) error {
	if _, isComputed := m.typ.computed[key]; isComputed {
		return fmt.Errorf("%w: %q", ErrComputedWrite, key)
	}
	if _, present := m.store.Delete(key); !present {
		return fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	m.invalidate(key)
	return nil
}

// invalidate drops cached values of every computed member downstream of key.
func (m *Map) invalidate(key string) {
	if len(m.cache) == 0 {
		return
	}
	dropped := 0
	for _, name := range m.typ.graph.Affected(key) {
		if _, ok := m.cache[name]; ok {
			delete(m.cache, name)
			dropped++
		}
	}
	if dropped > 0 {
		m.typ.logger.Debug("invalidated computed caches",
			"type", m.typ.name, "member", key, "count", dropped)
	}
}

// Has reports whether key is stored. Computed members are derived, not
// stored, so Has never reports them.
func (m *Map) Has(key string) bool {
	_, ok := m.store.Get(key)
	return ok
}

// Len returns the number of stored entries.
func (m *Map) Len() int { return m.store.Len() }

// Keys returns the stored keys in insertion order.
func (m *Map) Keys() []string {
	out := make([]string, 0, m.store.Len())
	for p := m.store.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

// Range calls fn for each stored entry in insertion order until fn returns
// false. Values are yielded as stored, without lazy conversion; use Get for
// converted values. Do not mutate the container during Range.
func (m *Map) Range(fn func(key string, value any) bool) {
	for p := m.store.Oldest(); p != nil; p = p.Next() {
		if !fn(p.Key, p.Value) {
			return
		}
	}
}

// AsMap returns a plain shallow copy of the stored entries. Values are as
// stored; use Unconvert for a deep plain structure.
func (m *Map) AsMap() map[string]any {
	out := make(map[string]any, m.store.Len())
	for p := m.store.Oldest(); p != nil; p = p.Next() {
		out[p.Key] = p.Value
	}
	return out
}

// TypeName returns the name of the container's type. It also satisfies the
// checker's instance interface, which is how instance expressions match.
func (m *Map) TypeName() string { return m.typ.name }

// Type returns the container's type.
func (m *Map) Type() *Type { return m.typ }

func (m *Map) String() string {
	var b strings.Builder
	b.WriteString(m.typ.name)
	b.WriteByte('{')
	first := true
	for p := m.store.Oldest(); p != nil; p = p.Next() {
		if !first {
			b.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&b, "%s: %v", p.Key, p.Value)
	}
	b.WriteByte('}')
	return b.String()
}

// realize converts plain mappings held in v into containers: string-keyed
// maps become Base instances (their insides converting lazily on their own
// reads), and sequences are rewritten only if some element converted. The
// second result reports whether anything changed.
func realize(v any) (any, bool) {
	switch val := v.(type) {
	case *Map, *typecheck.Set:
		return v, false
	case map[string]any:
		return New(val), true
	case []any:
		changed := false
		out := val
		for i, e := range val {
			r, ch := realize(e)
			if !ch {
				continue
			}
			if !changed {
				out = make([]any, len(val))
				copy(out, val)
				changed = true
			}
			out[i] = r
		}
		return out, changed
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String:
		plain := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			plain[iter.Key().String()] = iter.Value().Interface()
		}
		return New(plain), true
	case isSequence(rv):
		changed := false
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			r, ch := realize(rv.Index(i).Interface())
			out[i] = r
			changed = changed || ch
		}
		if !changed {
			return v, false
		}
		return out, true
	}
	return v, false
}

// isSequence mirrors the checker's sequence rule: slices and arrays, but
// never byte slices.
func isSequence(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Type().Elem().Kind() != reflect.Uint8
	}
	return false
}
