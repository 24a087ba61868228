package storagemgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nornic/gqlcore/pkg/storagedriver"
	"github.com/nornic/gqlcore/pkg/value"
)

func TestSaveAndReloadGraphRoundTrips(t *testing.T) {
	driver := storagedriver.NewMemoryDriver()
	m := New(driver)

	c, err := m.GetGraph("g1")
	require.NoError(t, err)
	require.NoError(t, c.AddNode(&value.Node{ID: "a", Labels: []string{"Person"}, Properties: map[string]value.Value{"name": value.String("Alice")}}))
	require.NoError(t, c.AddNode(&value.Node{ID: "b", Labels: []string{"Person"}}))
	require.NoError(t, c.AddEdge(&value.Edge{ID: "e1", Label: "KNOWS", From: "a", To: "b"}))

	require.NoError(t, m.SaveGraph("g1"))

	m2 := New(driver)
	reloaded, err := m2.GetGraph("g1")
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.NodeCount())
	assert.Equal(t, 1, reloaded.EdgeCount())

	a := reloaded.GetNode("a")
	require.NotNil(t, a)
	name, _ := a.Properties["name"].AsString()
	assert.Equal(t, "Alice", name)
}

func TestListGraphsReturnsSavedGraphIDs(t *testing.T) {
	driver := storagedriver.NewMemoryDriver()
	m := New(driver)
	for _, id := range []string{"g1", "g2"} {
		c, err := m.GetGraph(id)
		require.NoError(t, err)
		require.NoError(t, c.AddNode(&value.Node{ID: "n"}))
		require.NoError(t, m.SaveGraph(id))
	}

	ids, err := m.ListGraphs()
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2"}, ids)
}

func TestDeleteGraphDropsItsTrees(t *testing.T) {
	driver := storagedriver.NewMemoryDriver()
	m := New(driver)
	c, err := m.GetGraph("g1")
	require.NoError(t, err)
	require.NoError(t, c.AddNode(&value.Node{ID: "n"}))
	require.NoError(t, m.SaveGraph("g1"))

	require.NoError(t, m.DeleteGraph("g1"))
	ids, err := m.ListGraphs()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestIndexLookupReportsMissVsEmpty(t *testing.T) {
	driver := storagedriver.NewMemoryDriver()
	m := New(driver)
	c, err := m.GetGraph("g1")
	require.NoError(t, err)
	require.NoError(t, c.AddNode(&value.Node{ID: "a", Labels: []string{"Person"}, Properties: map[string]value.Value{"age": value.Number(30)}}))
	require.NoError(t, m.SaveGraph("g1"))

	ix := m.Index("g1")
	ids, found := ix.Lookup("Person", "age", value.Number(30))
	require.True(t, found)
	assert.Equal(t, []string{"a"}, ids)

	_, found = ix.Lookup("Company", "age", value.Number(30))
	assert.False(t, found)
}
