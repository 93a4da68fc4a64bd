package modmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modmap/modmap/typeexpr"
)

func nestedFixture(t *testing.T) *Map {
	t.Helper()
	return New(map[string]any{
		"app": map[string]any{
			"name": "grid",
			"db":   map[string]any{"host": "localhost", "port": 5432},
		},
		"users": []any{
			map[string]any{"name": "ada", "roles": []any{"admin", "ops"}},
			map[string]any{"name": "grace"},
		},
	})
}

func TestGetNested(t *testing.T) {
	m := nestedFixture(t)

	t.Run("walks keys and indices", func(t *testing.T) {
		got, err := m.GetNested("app.db.host")
		require.NoError(t, err)
		assert.Equal(t, "localhost", got)

		got, err = m.GetNested("users.0.roles.1")
		require.NoError(t, err)
		assert.Equal(t, "ops", got)

		got, err = m.GetNested("users.1.name")
		require.NoError(t, err)
		assert.Equal(t, "grace", got)
	})

	t.Run("single segment behaves like Get", func(t *testing.T) {
		got, err := m.GetNested("app")
		require.NoError(t, err)
		assert.IsType(t, &Map{}, got)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := m.GetNested("app.db.user")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("index out of range", func(t *testing.T) {
		_, err := m.GetNested("users.7.name")
		assert.ErrorContains(t, err, "out of range")
	})

	t.Run("non-numeric index", func(t *testing.T) {
		_, err := m.GetNested("users.first.name")
		assert.ErrorContains(t, err, "not an index")
	})

	t.Run("descending into a scalar", func(t *testing.T) {
		_, err := m.GetNested("app.name.x")
		assert.ErrorContains(t, err, "not a container")
	})

	t.Run("malformed paths", func(t *testing.T) {
		_, err := m.GetNested("")
		assert.ErrorContains(t, err, "empty path")
		_, err = m.GetNested("app..db")
		assert.ErrorContains(t, err, "empty segment")
	})
}

func TestSetNested(t *testing.T) {
	t.Run("updates an existing leaf", func(t *testing.T) {
		m := nestedFixture(t)
		require.NoError(t, m.SetNested("app.db.port", 6432))
		got, err := m.GetNested("app.db.port")
		require.NoError(t, err)
		assert.Equal(t, 6432, got)
	})

	t.Run("creates missing intermediate containers", func(t *testing.T) {
		m := New(nil)
		require.NoError(t, m.SetNested("a.b.c", 1))
		got, err := m.GetNested("a.b.c")
		require.NoError(t, err)
		assert.Equal(t, 1, got)

		b, err := m.GetNested("a.b")
		require.NoError(t, err)
		assert.Equal(t, "Map", b.(*Map).TypeName())
	})

	t.Run("writes sequence elements in place", func(t *testing.T) {
		m := nestedFixture(t)
		require.NoError(t, m.SetNested("users.0.roles.1", "dev"))
		got, err := m.GetNested("users.0.roles")
		require.NoError(t, err)
		assert.Equal(t, []any{"admin", "dev"}, got)
	})

	t.Run("does not create sequence elements", func(t *testing.T) {
		m := nestedFixture(t)
		assert.ErrorContains(t, m.SetNested("users.9.name", "x"), "out of range")
	})

	t.Run("nested strict types keep their rules", func(t *testing.T) {
		inner := MustDefine("Inner", Spec{
			Fields: []FieldDef{{Name: "n", Type: typeexpr.Int(), Default: 0}},
			Config: &Config{Strict: true},
		})
		m := New(nil)
		child, err := inner.New(nil)
		require.NoError(t, err)
		require.NoError(t, m.Set("inner", child))

		err = m.SetNested("inner.n", "not a number")
		assert.ErrorIs(t, err, ErrTypeMismatch)

		err = m.SetNested("inner.other", 1)
		assert.ErrorIs(t, err, ErrUnknownKey)
	})

	t.Run("leaf write through a check routine", func(t *testing.T) {
		checked := MustDefine("Checked", Spec{
			Checks: []CheckDef{{Field: "x", Check: func(m *Map, v any) (any, error) {
				return v.(int) * 10, nil
			}}},
		})
		m := New(nil)
		child, err := checked.New(nil)
		require.NoError(t, err)
		require.NoError(t, m.Set("c", child))

		require.NoError(t, m.SetNested("c.x", 4))
		got, err := m.GetNested("c.x")
		require.NoError(t, err)
		assert.Equal(t, 40, got)
	})
}

func TestMerge(t *testing.T) {
	t.Run("recursive merge of overlapping mappings", func(t *testing.T) {
		m := New(map[string]any{
			"db": map[string]any{"host": "localhost", "port": 5432},
		})
		err := m.Merge(map[string]any{
			"db":    map[string]any{"port": 6432, "ssl": true},
			"debug": true,
		})
		require.NoError(t, err)

		assert.True(t, m.DeepEquals(map[string]any{
			"db":    map[string]any{"host": "localhost", "port": 6432, "ssl": true},
			"debug": true,
		}))
	})

	t.Run("non-mapping values overwrite", func(t *testing.T) {
		m := New(map[string]any{"a": map[string]any{"x": 1}, "b": 1})
		require.NoError(t, m.Merge(map[string]any{"a": 5, "b": map[string]any{"y": 2}}))

		assert.Equal(t, 5, m.MustGet("a"))
		b, err := m.GetNested("b.y")
		require.NoError(t, err)
		assert.Equal(t, 2, b)
	})

	t.Run("merging a container source", func(t *testing.T) {
		m := New(map[string]any{"cfg": map[string]any{"a": 1}})
		src := New(map[string]any{"cfg": map[string]any{"b": 2}})
		require.NoError(t, m.Merge(src))

		assert.True(t, m.DeepEquals(map[string]any{"cfg": map[string]any{"a": 1, "b": 2}}))
	})

	t.Run("strict nested types validate merged leaves", func(t *testing.T) {
		inner := MustDefine("MergeInner", Spec{
			Fields: []FieldDef{{Name: "n", Type: typeexpr.Int(), Default: 0}},
			Config: &Config{Strict: true, AllowExtra: true},
		})
		m := New(nil)
		child, err := inner.New(nil)
		require.NoError(t, err)
		require.NoError(t, m.Set("inner", child))

		err = m.Merge(map[string]any{"inner": map[string]any{"n": "bad"}})
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("non-mapping argument fails", func(t *testing.T) {
		m := New(nil)
		assert.Error(t, m.Merge([]any{1}))
		assert.Error(t, m.Merge(42))
	})
}

func TestDeepEquals(t *testing.T) {
	m := New(map[string]any{
		"a": 1,
		"b": []any{1, 2},
		"c": map[string]any{"x": "y"},
	})

	t.Run("equal plain structure", func(t *testing.T) {
		assert.True(t, m.DeepEquals(map[string]any{
			"a": 1,
			"b": []any{1, 2},
			"c": map[string]any{"x": "y"},
		}))
	})

	t.Run("containers built differently compare equal", func(t *testing.T) {
		other := New(nil)
		require.NoError(t, other.Set("c", New(map[string]any{"x": "y"})))
		require.NoError(t, other.Set("b", []any{1, 2}))
		require.NoError(t, other.Set("a", 1))
		assert.True(t, m.DeepEquals(other))
	})

	t.Run("numeric widths are irrelevant", func(t *testing.T) {
		assert.True(t, m.DeepEquals(map[string]any{
			"a": int64(1),
			"b": []any{1.0, int32(2)},
			"c": map[string]any{"x": "y"},
		}))
	})

	t.Run("differences are detected", func(t *testing.T) {
		assert.False(t, m.DeepEquals(map[string]any{"a": 1}))
		assert.False(t, m.DeepEquals(map[string]any{
			"a": 2,
			"b": []any{1, 2},
			"c": map[string]any{"x": "y"},
		}))
		assert.False(t, m.DeepEquals(nil))
		assert.False(t, m.DeepEquals(42))
	})

	t.Run("insertion order is irrelevant", func(t *testing.T) {
		x := New(nil)
		require.NoError(t, x.Set("k1", 1))
		require.NoError(t, x.Set("k2", 2))
		y := New(nil)
		require.NoError(t, y.Set("k2", 2))
		require.NoError(t, y.Set("k1", 1))
		assert.True(t, x.DeepEquals(y))
	})

	t.Run("realized and raw nesting compare equal", func(t *testing.T) {
		raw := New(map[string]any{"inner": map[string]any{"k": 1}})
		realized := New(map[string]any{"inner": map[string]any{"k": 1}})
		_ = realized.MustGet("inner") // force conversion on one side only
		assert.True(t, raw.DeepEquals(realized))
	})

	t.Run("sets compare unordered", func(t *testing.T) {
		a := New(map[string]any{"s": NewSet(1, 2)})
		b := New(map[string]any{"s": NewSet(2, 1)})
		assert.True(t, a.DeepEquals(b))
	})

	t.Run("package form works on plain values", func(t *testing.T) {
		assert.True(t, DeepEquals([]any{1, "a"}, []any{int64(1), "a"}))
		assert.False(t, DeepEquals(1, true))
		assert.False(t, DeepEquals("1", 1))
	})
}
