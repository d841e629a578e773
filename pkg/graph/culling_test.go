package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aFunc() {}

func TestCull_PrunesUnreachableNodes(t *testing.T) {
	g := Graph{
		"a": {Fn: aFunc, Deps: []string{"b", "c"}},
		"b": {Fn: aFunc, Deps: []string{"d"}},
		"c": {},
		"d": {},
		"unreachable": {Fn: aFunc, Deps: []string{"also-unreachable"}},
		"also-unreachable": {},
	}

	culled, err := Cull(g, []string{"a"})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, keys(culled))
}

func TestCull_LiteralSinkHasNoDependencies(t *testing.T) {
	g := Graph{
		"leaf": {},
	}

	culled, err := Cull(g, []string{"leaf"})
	require.NoError(t, err)
	assert.Equal(t, []string{"leaf"}, keys(culled))
}

func TestCull_MissingDependencyFailsFast(t *testing.T) {
	g := Graph{
		"a": {Fn: aFunc, Deps: []string{"missing"}},
	}

	_, err := Cull(g, []string{"a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestCull_MissingSinkFailsFast(t *testing.T) {
	g := Graph{}

	_, err := Cull(g, []string{"nope"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestCull_IsIdempotent(t *testing.T) {
	g := Graph{
		"a": {Fn: aFunc, Deps: []string{"b"}},
		"b": {},
		"c": {},
	}

	once, err := Cull(g, []string{"a"})
	require.NoError(t, err)

	twice, err := Cull(once, []string{"a"})
	require.NoError(t, err)

	assert.ElementsMatch(t, keys(once), keys(twice))
}

func keys(g Graph) []string {
	out := make([]string, 0, len(g))
	for k := range g {
		out = append(out, k)
	}
	return out
}
