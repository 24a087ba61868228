package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nornic/gqlcore/pkg/storagedriver"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := New(storagedriver.NewMemoryDriver())
	require.NoError(t, err)
	return m
}

func TestDuplicateRoleFailsThenIfNotExistsSucceeds(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.CreateRole("r", false))

	err := m.CreateRole("r", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	assert.NoError(t, m.CreateRole("r", true))
}

func TestDropSchemaIfExistsIsIdempotent(t *testing.T) {
	m := newTestManager(t)
	assert.NoError(t, m.DropSchema("nope", true))
	err := m.DropSchema("nope", false)
	assert.Error(t, err)
}

func TestSchemaVersionBumpsOnDDLOnly(t *testing.T) {
	m := newTestManager(t)
	v0 := m.SchemaVersion()
	require.NoError(t, m.CreateSchema("s", false))
	v1 := m.SchemaVersion()
	assert.Greater(t, v1, v0)

	require.NoError(t, m.CreateRole("viewer", false))
	assert.Equal(t, v1, m.SchemaVersion(), "role creation does not change schema shape")
}

func TestReservedProcedureNamespaceRejected(t *testing.T) {
	m := newTestManager(t)
	err := m.CreateProcedure(Procedure{Name: "gql.custom", MinArity: 0, MaxArity: 0}, false)
	assert.Error(t, err)
}

func TestGraphTypeAlterIncrementsVersionAndKeepsHistory(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.CreateGraphType(GraphType{Name: "Social"}, false))
	gt, err := m.GetGraphType("Social")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), gt.Version)

	gt.NodeTypes = []NodeType{{Labels: []string{"Person"}}}
	require.NoError(t, m.AlterGraphType(gt))

	updated, err := m.GetGraphType("Social")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), updated.Version)

	versions, err := m.ListVersions("Social")
	require.NoError(t, err)
	assert.Len(t, versions, 2)
}

func TestUserPasswordRoundTrip(t *testing.T) {
	m := newTestManager(t)
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	require.NoError(t, m.CreateUser(User{Name: "alice", PasswordHash: hash}, false))

	u, err := m.AuthenticateUser("alice", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Name)

	_, err = m.AuthenticateUser("alice", "wrong")
	assert.Error(t, err)
}

func TestGrantRevokeRole(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.CreateRole("editor", false))
	require.NoError(t, m.CreateUser(User{Name: "bob"}, false))

	require.NoError(t, m.GrantRole("bob", "editor"))
	u, err := m.GetUser("bob")
	require.NoError(t, err)
	assert.Contains(t, u.Roles, "editor")

	require.NoError(t, m.RevokeRole("bob", "editor"))
	u, err = m.GetUser("bob")
	require.NoError(t, err)
	assert.NotContains(t, u.Roles, "editor")
}
