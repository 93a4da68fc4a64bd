package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	g := New()
	require.NotNil(t, g)
	assert.NotNil(t, g.nodes)
	assert.Empty(t, g.nodes)
}

func TestAdd(t *testing.T) {
	g := New()

	g.Add("price")
	assert.True(t, g.Has("price"))
	node, ok := g.nodes["price"]
	require.True(t, ok)
	assert.Equal(t, "price", node.name)
	assert.NotNil(t, node.deps)
	assert.NotNil(t, node.dependents)

	g.Add("price") // Test idempotency
	assert.Len(t, g.nodes, 1)

	g.Add("qty")
	assert.Len(t, g.nodes, 2)
	assert.False(t, g.Has("total"))
}

func TestDepend(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := New()
		g.Add("price")
		g.Add("total")

		err := g.Depend("total", "price") // total reads price
		require.NoError(t, err)

		assert.Equal(t, []string{"price"}, g.Dependencies("total"))
		assert.Equal(t, []string{"total"}, g.Dependents("price"))
		assert.Empty(t, g.Dependencies("price"))
		assert.Empty(t, g.Dependents("total"))
	})

	t.Run("error cases", func(t *testing.T) {
		g := New()
		g.Add("a")
		g.Add("b")

		err := g.Depend("dne", "a")
		assert.ErrorContains(t, err, "unknown member")

		err = g.Depend("a", "dne")
		assert.ErrorContains(t, err, "unknown member")

		err = g.Depend("a", "a")
		assert.ErrorContains(t, err, "depends on itself")
	})
}

func TestAffected(t *testing.T) {
	// price -> subtotal -> total
	//   qty -> subtotal
	//          discount -> total
	g := New()
	for _, name := range []string{"price", "qty", "discount", "subtotal", "total"} {
		g.Add(name)
	}
	require.NoError(t, g.Depend("subtotal", "price"))
	require.NoError(t, g.Depend("subtotal", "qty"))
	require.NoError(t, g.Depend("total", "subtotal"))
	require.NoError(t, g.Depend("total", "discount"))

	assert.Equal(t, []string{"subtotal", "total"}, g.Affected("price"))
	assert.Equal(t, []string{"subtotal", "total"}, g.Affected("qty"))
	assert.Equal(t, []string{"total"}, g.Affected("discount"))
	assert.Equal(t, []string{"total"}, g.Affected("subtotal"))
	assert.Empty(t, g.Affected("total"))
	assert.Empty(t, g.Affected("dne"))
}

func TestAffectedVisitsSharedPathsOnce(t *testing.T) {
	// Diamond: base feeds left and right, both feed top.
	g := New()
	for _, name := range []string{"base", "left", "right", "top"} {
		g.Add(name)
	}
	require.NoError(t, g.Depend("left", "base"))
	require.NoError(t, g.Depend("right", "base"))
	require.NoError(t, g.Depend("top", "left"))
	require.NoError(t, g.Depend("top", "right"))

	assert.Equal(t, []string{"left", "right", "top"}, g.Affected("base"))
}

func TestCheckAcyclic(t *testing.T) {
	t.Run("empty graph has no cycles", func(t *testing.T) {
		g := New()
		assert.NoError(t, g.CheckAcyclic())
	})

	t.Run("members without edges have no cycles", func(t *testing.T) {
		g := New()
		g.Add("a")
		g.Add("b")
		assert.NoError(t, g.CheckAcyclic())
	})

	t.Run("valid graph has no cycles", func(t *testing.T) {
		g := New()
		for _, name := range []string{"a", "b", "c", "d"} {
			g.Add(name)
		}
		require.NoError(t, g.Depend("b", "a"))
		require.NoError(t, g.Depend("c", "b"))
		require.NoError(t, g.Depend("c", "a")) // Transitive edge
		require.NoError(t, g.Depend("d", "c"))
		assert.NoError(t, g.CheckAcyclic())
	})

	t.Run("direct cycle is detected", func(t *testing.T) {
		g := New()
		g.Add("a")
		g.Add("b")
		require.NoError(t, g.Depend("b", "a"))
		require.NoError(t, g.Depend("a", "b")) // Cycle
		err := g.CheckAcyclic()
		assert.ErrorContains(t, err, "dependency cycle")
	})

	t.Run("longer cycle is detected", func(t *testing.T) {
		g := New()
		for _, name := range []string{"a", "b", "c", "d"} {
			g.Add(name)
		}
		require.NoError(t, g.Depend("b", "a"))
		require.NoError(t, g.Depend("c", "b"))
		require.NoError(t, g.Depend("d", "c"))
		require.NoError(t, g.Depend("a", "d")) // Cycle back to the start
		err := g.CheckAcyclic()
		assert.ErrorContains(t, err, "dependency cycle")
	})

	t.Run("cycle in a disjoint component is detected", func(t *testing.T) {
		g := New()
		// Component 1 (valid)
		g.Add("a")
		g.Add("b")
		require.NoError(t, g.Depend("b", "a"))

		// Component 2 (has a cycle)
		g.Add("x")
		g.Add("y")
		g.Add("z")
		require.NoError(t, g.Depend("y", "x"))
		require.NoError(t, g.Depend("z", "y"))
		require.NoError(t, g.Depend("y", "z")) // Cycle

		err := g.CheckAcyclic()
		assert.ErrorContains(t, err, "dependency cycle")
	})
}
