package graphcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nornic/gqlcore/pkg/value"
)

func TestAddNodeDuplicateIDFails(t *testing.T) {
	c := New("/s/g")
	n := &value.Node{ID: "n1", Labels: []string{"Person"}, Properties: map[string]value.Value{}}
	require.NoError(t, c.AddNode(n))
	err := c.AddNode(n)
	assert.Error(t, err)
}

func TestDeleteNodeWithEdgesFailsWithoutDetach(t *testing.T) {
	c := New("/s/g")
	a := &value.Node{ID: "a", Labels: []string{"L"}, Properties: map[string]value.Value{}}
	b := &value.Node{ID: "b", Labels: []string{"L"}, Properties: map[string]value.Value{}}
	require.NoError(t, c.AddNode(a))
	require.NoError(t, c.AddNode(b))
	require.NoError(t, c.AddEdge(&value.Edge{ID: "e1", Label: "R", From: "a", To: "b", Properties: map[string]value.Value{}}))

	_, err := c.DeleteNode("a", false)
	assert.Error(t, err)

	for _, e := range c.IncidentEdges("a") {
		_, err := c.DeleteEdge(e.ID)
		require.NoError(t, err)
	}
	_, err = c.DeleteNode("a", false)
	require.NoError(t, err)

	assert.Nil(t, c.GetNode("a"))
	assert.NotNil(t, c.GetNode("b"))
	assert.Nil(t, c.GetEdge("e1"))
}

func TestAddEdgeRequiresExistingEndpoints(t *testing.T) {
	c := New("/s/g")
	require.NoError(t, c.AddNode(&value.Node{ID: "a", Properties: map[string]value.Value{}}))
	err := c.AddEdge(&value.Edge{ID: "e1", Label: "R", From: "a", To: "missing", Properties: map[string]value.Value{}})
	assert.Error(t, err)
}

func TestVersionIncreasesOnMutation(t *testing.T) {
	c := New("/s/g")
	v0 := c.Version()
	require.NoError(t, c.AddNode(&value.Node{ID: "a", Properties: map[string]value.Value{}}))
	assert.Greater(t, c.Version(), v0)
}

func TestUndoMethodsNetVersionToZero(t *testing.T) {
	c := New("/s/g")
	a := &value.Node{ID: "a", Labels: []string{"T"}, Properties: map[string]value.Value{}}
	b := &value.Node{ID: "b", Labels: []string{"T"}, Properties: map[string]value.Value{}}
	require.NoError(t, c.AddNode(a))
	require.NoError(t, c.AddNode(b))
	e := &value.Edge{ID: "e1", Label: "R", From: "a", To: "b", Properties: map[string]value.Value{}}
	require.NoError(t, c.AddEdge(e))
	v0 := c.Version()

	// simulate BEGIN; SET a.x=1; ROLLBACK: one forward mutation, one undo.
	before := *a
	after := *a
	after.Properties = map[string]value.Value{"x": value.Number(1)}
	_, err := c.UpdateNode(&after)
	require.NoError(t, err)
	assert.Equal(t, v0+1, c.Version())
	_, err = c.UndoUpdateNode(&before)
	require.NoError(t, err)
	assert.Equal(t, v0, c.Version())

	// simulate BEGIN; INSERT c; DELETE e1; ROLLBACK, in reverse undo order.
	newNode := &value.Node{ID: "n2", Labels: []string{"T"}, Properties: map[string]value.Value{}}
	require.NoError(t, c.AddNode(newNode))
	deletedEdge, err := c.DeleteEdge(e.ID)
	require.NoError(t, err)
	assert.Equal(t, v0+2, c.Version())

	require.NoError(t, c.UndoAddEdge(deletedEdge))
	_, err = c.UndoDeleteNode(newNode.ID, false)
	require.NoError(t, err)
	assert.Equal(t, v0, c.Version())
	assert.NotNil(t, c.GetEdge(e.ID))
	assert.Nil(t, c.GetNode(newNode.ID))
}

func TestRoundTripInsertDeleteRestoresCounts(t *testing.T) {
	c := New("/s/g")
	n := &value.Node{ID: "n1", Labels: []string{"T"}, Properties: map[string]value.Value{"v": value.Number(1)}}
	require.NoError(t, c.AddNode(n))
	assert.Equal(t, 1, c.NodeCount())
	_, err := c.DeleteNode("n1", false)
	require.NoError(t, err)
	assert.Equal(t, 0, c.NodeCount())
	assert.Empty(t, c.NodesByLabel("T"))
}

func TestNodesAreDefensivelyCloned(t *testing.T) {
	c := New("/s/g")
	n := &value.Node{ID: "n1", Labels: []string{"T"}, Properties: map[string]value.Value{"v": value.Number(1)}}
	require.NoError(t, c.AddNode(n))
	got := c.GetNode("n1")
	got.Properties["v"] = value.Number(999)
	got.Labels[0] = "mutated"

	again := c.GetNode("n1")
	v, _ := again.Properties["v"].AsNumber()
	assert.Equal(t, float64(1), v)
	assert.Equal(t, "T", again.Labels[0])
}
