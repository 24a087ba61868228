package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGet(t *testing.T) {
	m := NewManager()
	id := m.Create("alice")
	assert.NotEmpty(t, id)

	s, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "alice", s.User)
	schema, graph := s.SchemaAndGraph()
	assert.Equal(t, "/default", schema)
	assert.Equal(t, "/default/default", graph)
}

func TestGetUnknownSession(t *testing.T) {
	m := NewManager()
	_, err := m.Get("does-not-exist")
	require.Error(t, err)
}

func TestSetSchemaAndGraph(t *testing.T) {
	m := NewManager()
	id := m.Create("bob")
	s, _ := m.Get(id)

	s.SetSchema("/app")
	s.SetGraph("/app/social")
	schema, graph := s.SchemaAndGraph()
	assert.Equal(t, "/app", schema)
	assert.Equal(t, "/app/social", graph)
}

func TestTransactionBookkeeping(t *testing.T) {
	m := NewManager()
	id := m.Create("carol")
	s, _ := m.Get(id)

	_, ok := s.ActiveTransaction()
	assert.False(t, ok)

	s.AddTransaction(1)
	s.AddTransaction(2)
	assert.Equal(t, []uint64{1, 2}, s.Transactions())

	active, ok := s.ActiveTransaction()
	require.True(t, ok)
	assert.Equal(t, uint64(2), active)

	s.RemoveTransaction(2)
	active, ok = s.ActiveTransaction()
	require.True(t, ok)
	assert.Equal(t, uint64(1), active)
}

func TestCloseSession(t *testing.T) {
	m := NewManager()
	id := m.Create("dave")
	assert.Equal(t, 1, m.Len())
	m.Close(id)
	assert.Equal(t, 0, m.Len())
	_, err := m.Get(id)
	require.Error(t, err)
}
