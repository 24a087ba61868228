package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nornic/gqlcore/pkg/ast"
)

func TestParseCreateSchemaIfNotExists(t *testing.T) {
	stmt, err := Parse(`CREATE SCHEMA IF NOT EXISTS app`)
	require.NoError(t, err)
	cs := stmt.(*ast.CreateStatement)
	assert.Equal(t, ast.EntitySchema, cs.Entity)
	assert.Equal(t, "app", cs.Name)
	assert.True(t, cs.IfNotExists)
}

func TestParseCreateRole(t *testing.T) {
	stmt, err := Parse(`CREATE ROLE r`)
	require.NoError(t, err)
	cs := stmt.(*ast.CreateStatement)
	assert.Equal(t, ast.EntityRole, cs.Entity)
	assert.Equal(t, "r", cs.Name)
	assert.False(t, cs.IfNotExists)
}

func TestParseDropRoleIfExists(t *testing.T) {
	stmt, err := Parse(`DROP ROLE IF EXISTS r`)
	require.NoError(t, err)
	ds := stmt.(*ast.DropStatement)
	assert.Equal(t, ast.EntityRole, ds.Entity)
	assert.True(t, ds.IfExists)
}

func TestParseTransactionControl(t *testing.T) {
	for text, kind := range map[string]ast.TxnControlKind{
		"BEGIN":    ast.TxnBegin,
		"COMMIT":   ast.TxnCommit,
		"ROLLBACK": ast.TxnRollback,
	} {
		stmt, err := Parse(text)
		require.NoError(t, err)
		tc := stmt.(*ast.TransactionControlStatement)
		assert.Equal(t, kind, tc.Kind)
	}
}

func TestParseSetTransactionReadOnly(t *testing.T) {
	stmt, err := Parse(`SET TRANSACTION READ ONLY`)
	require.NoError(t, err)
	st := stmt.(*ast.SetTransactionStatement)
	require.NotNil(t, st.AccessMode)
	assert.Equal(t, "READ ONLY", *st.AccessMode)
}

func TestParseSessionSetGraph(t *testing.T) {
	stmt, err := Parse(`SESSION SET GRAPH /app/social`)
	require.NoError(t, err)
	ss := stmt.(*ast.SessionSetStatement)
	assert.Equal(t, ast.SessionSetGraph, ss.Kind)
	assert.Equal(t, "/app/social", ss.Path)
}

func TestParseCountEmptyMatch(t *testing.T) {
	stmt, err := Parse(`MATCH (x:Nope) RETURN count(x) AS c`)
	require.NoError(t, err)
	q := stmt.(*ast.Query)
	require.Len(t, q.Parts, 1)
	require.Len(t, q.Parts[0].Reads, 1)
	assert.Equal(t, []string{"Nope"}, q.Parts[0].Reads[0].Patterns[0].Nodes[0].Labels)
	require.NotNil(t, q.Return)
	require.Len(t, q.Return.Items, 1)
	fn, ok := q.Return.Items[0].Expr.(*ast.FunctionCallExpr)
	require.True(t, ok)
	assert.Equal(t, "count", fn.Name)
	assert.Equal(t, "c", q.Return.Items[0].Alias)
}

func TestParseInsertWithProperties(t *testing.T) {
	stmt, err := Parse(`INSERT (:Person {name: 'A', age: 30})`)
	require.NoError(t, err)
	q := stmt.(*ast.Query)
	require.Len(t, q.Parts, 1)
	require.Len(t, q.Parts[0].Inserts, 1)
	pattern := q.Parts[0].Inserts[0].Patterns[0]
	require.Len(t, pattern.Nodes, 1)
	assert.Equal(t, []string{"Person"}, pattern.Nodes[0].Labels)
	nameLit := pattern.Nodes[0].Properties["name"].(*ast.LiteralExpr)
	assert.Equal(t, "A", nameLit.Str)
}

func TestParseMatchWithRelationshipAndWhere(t *testing.T) {
	stmt, err := Parse(`MATCH (a:L {id: 'a'})-[:R]->(b) WHERE a.id = $id RETURN b`)
	require.NoError(t, err)
	q := stmt.(*ast.Query)
	read := q.Parts[0].Reads[0]
	pattern := read.Patterns[0]
	require.Len(t, pattern.Nodes, 2)
	require.Len(t, pattern.Edges, 1)
	assert.Equal(t, ast.DirOutgoing, pattern.Edges[0].Direction)
	assert.Equal(t, []string{"R"}, pattern.Edges[0].Labels)
	require.NotNil(t, read.Where)
	bin := read.Where.(*ast.BinaryExpr)
	assert.Equal(t, "=", bin.Operator)
}

func TestParseDetachDelete(t *testing.T) {
	stmt, err := Parse(`MATCH (x:L {id: 'a'}) DETACH DELETE x`)
	require.NoError(t, err)
	q := stmt.(*ast.Query)
	require.Len(t, q.Parts[0].Deletes, 1)
	assert.True(t, q.Parts[0].Deletes[0].Detach)
	assert.Equal(t, []string{"x"}, q.Parts[0].Deletes[0].Variables)
}

func TestParseSetPropertyAndLabel(t *testing.T) {
	stmt, err := Parse(`MATCH (n) SET n.age = 42, n:Adult RETURN n`)
	require.NoError(t, err)
	q := stmt.(*ast.Query)
	items := q.Parts[0].Sets[0].Items
	require.Len(t, items, 2)
	assert.Equal(t, ast.SetProperty, items[0].Kind)
	assert.Equal(t, "age", items[0].Property)
	assert.Equal(t, ast.SetLabel, items[1].Kind)
	assert.Equal(t, "Adult", items[1].Label)
}

func TestParseWithAggregateBoundary(t *testing.T) {
	stmt, err := Parse(`MATCH (n:Person) WITH count(n) AS total RETURN total`)
	require.NoError(t, err)
	q := stmt.(*ast.Query)
	require.Len(t, q.Parts, 1)
	require.NotNil(t, q.Parts[0].With)
	assert.Equal(t, "total", q.Parts[0].With.Items[0].Alias)
}

func TestParseCallWithYield(t *testing.T) {
	stmt, err := Parse(`CALL gql.list_graphs() YIELD name`)
	require.NoError(t, err)
	call := stmt.(*ast.CallStatement)
	assert.Equal(t, "gql.list_graphs", call.Name)
	assert.Equal(t, []string{"name"}, call.Yield)
}

func TestParseCallWithArgs(t *testing.T) {
	stmt, err := Parse(`CALL gql.authenticate_user('alice', 'secret')`)
	require.NoError(t, err)
	call := stmt.(*ast.CallStatement)
	require.Len(t, call.Args, 2)
	assert.Equal(t, "alice", call.Args[0].(*ast.LiteralExpr).Str)
}

func TestParseExplainMatch(t *testing.T) {
	stmt, err := Parse(`EXPLAIN MATCH (n:Person)-[r:KNOWS]->(m:Person) RETURN n`)
	require.NoError(t, err)
	ex := stmt.(*ast.ExplainStatement)
	require.Len(t, ex.Query.Parts, 1)
	require.Len(t, ex.Query.Parts[0].Reads, 1)
	assert.NotNil(t, ex.Query.Return)
}

func TestParseExistsSubquery(t *testing.T) {
	stmt, err := Parse(`MATCH (n:Person) WHERE EXISTS { (n)-[:KNOWS]->(m:Person) WHERE m.age > 18 } RETURN n`)
	require.NoError(t, err)
	q := stmt.(*ast.Query)
	where := q.Parts[0].Reads[0].Where
	exists, ok := where.(*ast.ExistsSubqueryExpr)
	require.True(t, ok)
	require.Len(t, exists.Patterns, 1)
	assert.NotNil(t, exists.Where)
}

func TestParseOrderByLimit(t *testing.T) {
	stmt, err := Parse(`MATCH (n:Person) RETURN n.name ORDER BY n.name DESC LIMIT 10`)
	require.NoError(t, err)
	q := stmt.(*ast.Query)
	require.Len(t, q.Return.OrderBy, 1)
	assert.True(t, q.Return.OrderBy[0].Descending)
	require.NotNil(t, q.Return.Limit)
	assert.Equal(t, int64(10), *q.Return.Limit)
}

func TestParseGrantRole(t *testing.T) {
	stmt, err := Parse(`GRANT ROLE admin TO alice`)
	require.NoError(t, err)
	gr := stmt.(*ast.GrantRevokeStatement)
	assert.True(t, gr.Grant)
	assert.Equal(t, "admin", gr.Role)
	assert.Equal(t, "alice", gr.User)
}

func TestParseIsNullAndBooleanLiterals(t *testing.T) {
	stmt, err := Parse(`MATCH (n) WHERE n.deleted IS NOT NULL AND n.active = true RETURN n`)
	require.NoError(t, err)
	q := stmt.(*ast.Query)
	where := q.Parts[0].Reads[0].Where.(*ast.BinaryExpr)
	assert.Equal(t, "AND", where.Operator)
	isNotNull := where.Left.(*ast.UnaryExpr)
	assert.Equal(t, "IS NOT NULL", isNotNull.Operator)
}

func TestParseUnwind(t *testing.T) {
	stmt, err := Parse(`UNWIND [1, 2, 3] AS x RETURN x`)
	require.NoError(t, err)
	q := stmt.(*ast.Query)
	require.Len(t, q.Parts[0].Unwinds, 1)
	assert.Equal(t, "x", q.Parts[0].Unwinds[0].Variable)
}

func TestParseRejectsTrailingGarbage(t *testing.T) {
	_, err := Parse(`RETURN 1 GARBAGE`)
	assert.Error(t, err)
}
