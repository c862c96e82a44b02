package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCopiesInput(t *testing.T) {
	input := map[string][]string{
		"b.ts": {"a.ts"},
	}
	g := New(input)

	input["b.ts"][0] = "mutated"

	assert.Equal(t, []string{"a.ts"}, g.Dependencies("b.ts"))
}

func TestDependentsReverseIndex(t *testing.T) {
	g := New(map[string][]string{
		"b.ts": {"a.ts"},
		"c.ts": {"a.ts", "b.ts"},
	})

	assert.Equal(t, []string{"b.ts", "c.ts"}, g.Dependents("a.ts"))
	assert.Equal(t, []string{"c.ts"}, g.Dependents("b.ts"))
	assert.Empty(t, g.Dependents("c.ts"))
}

func TestContains(t *testing.T) {
	g := New(map[string][]string{
		"b.ts": {"a.ts"},
	})

	assert.True(t, g.Contains("b.ts"))
	assert.True(t, g.Contains("a.ts")) // only appears as a target
	assert.False(t, g.Contains("z.ts"))
}

func TestFiles(t *testing.T) {
	g := New(map[string][]string{
		"c.ts": {"b.ts"},
		"b.ts": {"a.ts"},
	})

	assert.Equal(t, []string{"a.ts", "b.ts", "c.ts"}, g.Files())
}

func TestNeighborsWithinHops(t *testing.T) {
	// a <- b <- c <- d (c imports b, etc.)
	g := New(map[string][]string{
		"b.ts": {"a.ts"},
		"c.ts": {"b.ts"},
		"d.ts": {"c.ts"},
	})

	neighbors := g.NeighborsWithin("b.ts", 2)
	require.Len(t, neighbors, 3)
	assert.Equal(t, 1, neighbors["a.ts"])
	assert.Equal(t, 1, neighbors["c.ts"])
	assert.Equal(t, 2, neighbors["d.ts"])

	one := g.NeighborsWithin("b.ts", 1)
	assert.Len(t, one, 2)
}

func TestNeighborsWithinCycle(t *testing.T) {
	g := New(map[string][]string{
		"a.ts": {"b.ts"},
		"b.ts": {"c.ts"},
		"c.ts": {"a.ts"},
	})

	neighbors := g.NeighborsWithin("a.ts", 5)
	assert.Len(t, neighbors, 2)

	_, selfIncluded := neighbors["a.ts"]
	assert.False(t, selfIncluded)
}

func TestNeighborsWithinZeroHops(t *testing.T) {
	g := New(map[string][]string{"b.ts": {"a.ts"}})
	assert.Empty(t, g.NeighborsWithin("b.ts", 0))
}
