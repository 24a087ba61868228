package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nornic/gqlcore/pkg/catalog"
	"github.com/nornic/gqlcore/pkg/storagedriver"
	"github.com/nornic/gqlcore/pkg/storagemgr"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	cat, err := catalog.New(storagedriver.NewMemoryDriver())
	require.NoError(t, err)
	storage := storagemgr.New(storagedriver.NewMemoryDriver())

	co, err := New(cat, storage, Config{WALDir: t.TempDir()})
	require.NoError(t, err)
	return co
}

func countColumn(t *testing.T, res *QueryResult) float64 {
	t.Helper()
	require.Len(t, res.Rows, 1)
	n, ok := res.Rows[0][0].AsNumber()
	require.True(t, ok)
	return n
}

// TestCountEmptyGraph is spec.md §8 seed scenario 1.
func TestCountEmptyGraph(t *testing.T) {
	co := newTestCoordinator(t)
	sid := co.CreateSimpleSession("alice")

	res, err := co.ProcessQuery(sid, `MATCH (x:Nope) RETURN count(x) AS c`)
	require.NoError(t, err)
	assert.Equal(t, float64(0), countColumn(t, res))
}

// TestInsertThenCount is spec.md §8 seed scenario 2.
func TestInsertThenCount(t *testing.T) {
	co := newTestCoordinator(t)
	sid := co.CreateSimpleSession("alice")

	_, err := co.ProcessQuery(sid, `INSERT (:Person {name: 'A'})`)
	require.NoError(t, err)

	res, err := co.ProcessQuery(sid, `MATCH (p:Person) RETURN count(p) AS c`)
	require.NoError(t, err)
	assert.Equal(t, float64(1), countColumn(t, res))
}

// TestExplicitTransactionRollback is spec.md §8 seed scenario 3: an
// explicit BEGIN...ROLLBACK undoes everything run inside it, and the
// session's claim on the transaction is released so later statements
// run under fresh implicit transactions again.
func TestExplicitTransactionRollback(t *testing.T) {
	co := newTestCoordinator(t)
	sid := co.CreateSimpleSession("alice")

	_, err := co.ProcessQuery(sid, `BEGIN`)
	require.NoError(t, err)

	_, err = co.ProcessQuery(sid, `INSERT (:T {v: 1})`)
	require.NoError(t, err)

	res, err := co.ProcessQuery(sid, `MATCH (t:T) RETURN count(t) AS c`)
	require.NoError(t, err)
	assert.Equal(t, float64(1), countColumn(t, res))

	_, err = co.ProcessQuery(sid, `ROLLBACK`)
	require.NoError(t, err)

	res, err = co.ProcessQuery(sid, `MATCH (t:T) RETURN count(t) AS c`)
	require.NoError(t, err)
	assert.Equal(t, float64(0), countColumn(t, res))
}

// TestDetachDeleteLeavesOtherEndpoint is spec.md §8 seed scenario 4.
func TestDetachDeleteLeavesOtherEndpoint(t *testing.T) {
	co := newTestCoordinator(t)
	sid := co.CreateSimpleSession("alice")

	_, err := co.ProcessQuery(sid, `INSERT (a:L {id: 'a'})-[:R]->(b:L {id: 'b'})`)
	require.NoError(t, err)

	_, err = co.ProcessQuery(sid, `MATCH (x:L {id: 'a'}) DETACH DELETE x`)
	require.NoError(t, err)

	res, err := co.ProcessQuery(sid, `MATCH (x:L) RETURN count(x) AS c`)
	require.NoError(t, err)
	assert.Equal(t, float64(1), countColumn(t, res))
}

// TestResultCacheInvalidatesOnMutation is spec.md §8 seed scenario 5: a
// cached read must not be served once a later write bumps graph_version.
func TestResultCacheInvalidatesOnMutation(t *testing.T) {
	co := newTestCoordinator(t)
	sid := co.CreateSimpleSession("alice")

	res, err := co.ProcessQuery(sid, `MATCH (x:K) RETURN count(x) AS c`)
	require.NoError(t, err)
	assert.Equal(t, float64(0), countColumn(t, res))
	assert.False(t, res.FromCache)

	res, err = co.ProcessQuery(sid, `MATCH (x:K) RETURN count(x) AS c`)
	require.NoError(t, err)
	assert.True(t, res.FromCache)

	_, err = co.ProcessQuery(sid, `INSERT (:K)`)
	require.NoError(t, err)

	res, err = co.ProcessQuery(sid, `MATCH (x:K) RETURN count(x) AS c`)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, float64(1), countColumn(t, res))
}

// TestExplainReportsPlanWithoutRunningQuery covers SPEC_FULL.md §13's
// EXPLAIN statement: it must describe the plan without inserting anything.
func TestExplainReportsPlanWithoutRunningQuery(t *testing.T) {
	co := newTestCoordinator(t)
	sid := co.CreateSimpleSession("alice")

	res, err := co.ProcessQuery(sid, `EXPLAIN MATCH (p:Person) RETURN p`)
	require.NoError(t, err)
	require.NotEmpty(t, res.Rows)
	plan, ok := res.Rows[0][1].AsString()
	require.True(t, ok)
	assert.Contains(t, plan, "Person")

	countRes, err := co.ProcessQuery(sid, `MATCH (p:Person) RETURN count(p) AS c`)
	require.NoError(t, err)
	assert.Equal(t, float64(0), countColumn(t, countRes))
}

// TestCallGQLExplainMatchesEXPLAINStatement covers the gql.explain CALL
// procedure SPEC_FULL.md §13 names alongside EXPLAIN.
func TestCallGQLExplainMatchesEXPLAINStatement(t *testing.T) {
	co := newTestCoordinator(t)
	sid := co.CreateSimpleSession("alice")

	res, err := co.ProcessQuery(sid, `CALL gql.explain('MATCH (p:Person) RETURN p')`)
	require.NoError(t, err)
	require.NotEmpty(t, res.Rows)
}

// TestExistsSubqueryFiltersCorrelatedRows covers SPEC_FULL.md §13's EXISTS
// subquery: only people with an outgoing KNOWS edge should match.
func TestExistsSubqueryFiltersCorrelatedRows(t *testing.T) {
	co := newTestCoordinator(t)
	sid := co.CreateSimpleSession("alice")

	_, err := co.ProcessQuery(sid, `INSERT (:Person {name: 'a'})-[:KNOWS]->(:Person {name: 'b'})`)
	require.NoError(t, err)
	_, err = co.ProcessQuery(sid, `INSERT (:Person {name: 'c'})`)
	require.NoError(t, err)

	res, err := co.ProcessQuery(sid, `MATCH (n:Person) WHERE EXISTS { (n)-[:KNOWS]->(m:Person) } RETURN count(n) AS c`)
	require.NoError(t, err)
	assert.Equal(t, float64(1), countColumn(t, res))

	res, err = co.ProcessQuery(sid, `MATCH (n:Person) WHERE NOT EXISTS { (n)-[:KNOWS]->(m:Person) } RETURN count(n) AS c`)
	require.NoError(t, err)
	assert.Equal(t, float64(2), countColumn(t, res))
}

// TestDuplicateRoleFailsIfNotExistsSucceeds is spec.md §8 seed scenario 6.
func TestDuplicateRoleFailsIfNotExistsSucceeds(t *testing.T) {
	co := newTestCoordinator(t)
	sid := co.CreateSimpleSession("alice")

	_, err := co.ProcessQuery(sid, `CREATE ROLE r`)
	require.NoError(t, err)

	_, err = co.ProcessQuery(sid, `CREATE ROLE r`)
	require.Error(t, err)

	_, err = co.ProcessQuery(sid, `CREATE ROLE IF NOT EXISTS r`)
	require.NoError(t, err)
}

func TestSessionSetGraphSwitchesIsolatedGraphs(t *testing.T) {
	co := newTestCoordinator(t)
	sid := co.CreateSimpleSession("alice")

	_, err := co.ProcessQuery(sid, `INSERT (:Person {name: 'A'})`)
	require.NoError(t, err)

	_, err = co.ProcessQuery(sid, `SESSION SET GRAPH /other/graph`)
	require.NoError(t, err)

	res, err := co.ProcessQuery(sid, `MATCH (p:Person) RETURN count(p) AS c`)
	require.NoError(t, err)
	assert.Equal(t, float64(0), countColumn(t, res))
}

func TestCloseSessionRollsBackOpenTransaction(t *testing.T) {
	co := newTestCoordinator(t)
	sid := co.CreateSimpleSession("alice")

	_, err := co.ProcessQuery(sid, `BEGIN`)
	require.NoError(t, err)
	_, err = co.ProcessQuery(sid, `INSERT (:T {v: 1})`)
	require.NoError(t, err)

	require.NoError(t, co.CloseSession(sid))

	sid2 := co.CreateSimpleSession("bob")
	res, err := co.ProcessQuery(sid2, `MATCH (t:T) RETURN count(t) AS c`)
	require.NoError(t, err)
	assert.Equal(t, float64(0), countColumn(t, res))
}
