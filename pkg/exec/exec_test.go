package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nornic/gqlcore/pkg/ast"
	"github.com/nornic/gqlcore/pkg/catalog"
	"github.com/nornic/gqlcore/pkg/functions"
	"github.com/nornic/gqlcore/pkg/graphcache"
	"github.com/nornic/gqlcore/pkg/storagedriver"
	"github.com/nornic/gqlcore/pkg/txn"
	"github.com/nornic/gqlcore/pkg/value"
)

func newTestContext(t *testing.T) (*Context, *txn.Transaction) {
	t.Helper()
	cat, err := catalog.New(storagedriver.NewMemoryDriver())
	require.NoError(t, err)

	txnMgr, err := txn.NewManager(t.TempDir(), false)
	require.NoError(t, err)

	tx, err := txnMgr.Start("test-session")
	require.NoError(t, err)

	c := &Context{
		Graph:     graphcache.New("/default/default"),
		Catalog:   cat,
		Functions: functions.NewRegistry(),
		TxnMgr:    txnMgr,
		Tx:        tx,
		Params:    map[string]value.Value{},
		SessionID: "test-session",
	}
	c.ProcCtx = &functions.ProcedureContext{Catalog: cat}
	return c, tx
}

func namePattern(variable, label string) ast.PatternPart {
	return ast.PatternPart{Nodes: []ast.NodePattern{{Variable: variable, Labels: []string{label}}}}
}

// countQuery builds "MATCH (x:label) RETURN count(x) AS c".
func countQuery(variable, label string) *ast.Query {
	return &ast.Query{
		Parts: []ast.QueryPart{{
			Reads: []ast.ReadingClause{{Patterns: []ast.PatternPart{namePattern(variable, label)}}},
		}},
		Return: &ast.ReturnClause{
			Items: []ast.ProjectionItem{{
				Expr:  &ast.FunctionCallExpr{Name: "count", Args: []ast.Expression{&ast.VariableExpr{Name: variable}}},
				Alias: "c",
			}},
		},
	}
}

func TestMatchCountOverEmptyGraphYieldsZeroRow(t *testing.T) {
	c, _ := newTestContext(t)
	res, err := c.Query(countQuery("x", "Nope"))
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	n, ok := res.Rows[0][0].AsNumber()
	require.True(t, ok)
	assert.Equal(t, float64(0), n)
}

func TestInsertThenCount(t *testing.T) {
	c, _ := newTestContext(t)

	ins := &ast.Query{
		Parts: []ast.QueryPart{{
			Inserts: []ast.InsertClause{{Patterns: []ast.PatternPart{{
				Nodes: []ast.NodePattern{{Variable: "p", Labels: []string{"Person"},
					Properties: map[string]ast.Expression{"name": &ast.LiteralExpr{Kind: "string", Str: "Ada"}}}},
			}}}},
		}},
	}
	_, err := c.Query(ins)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Graph.NodeCount())
	assert.Equal(t, 1, c.Tx.UndoLogLen())

	res, err := c.Query(countQuery("p", "Person"))
	require.NoError(t, err)
	n, _ := res.Rows[0][0].AsNumber()
	assert.Equal(t, float64(1), n)
}

func TestRollbackUndoesInsert(t *testing.T) {
	c, tx := newTestContext(t)

	ins := &ast.Query{
		Parts: []ast.QueryPart{{
			Inserts: []ast.InsertClause{{Patterns: []ast.PatternPart{{
				Nodes: []ast.NodePattern{{Variable: "p", Labels: []string{"Person"}}},
			}}}},
		}},
	}
	_, err := c.Query(ins)
	require.NoError(t, err)
	require.Equal(t, 1, c.Graph.NodeCount())

	require.NoError(t, c.TxnMgr.Rollback(tx))
	assert.Equal(t, 0, c.Graph.NodeCount())
}

func TestDetachDeleteCascadesEdgesBeforeNode(t *testing.T) {
	c, _ := newTestContext(t)

	a := &value.Node{ID: "a", Labels: []string{"Person"}, Properties: map[string]value.Value{}}
	b := &value.Node{ID: "b", Labels: []string{"Person"}, Properties: map[string]value.Value{}}
	require.NoError(t, c.Graph.AddNode(a))
	require.NoError(t, c.Graph.AddNode(b))
	require.NoError(t, c.Graph.AddEdge(&value.Edge{ID: "e1", Label: "KNOWS", From: "a", To: "b", Properties: map[string]value.Value{}}))

	q := &ast.Query{
		Parts: []ast.QueryPart{{
			Reads:   []ast.ReadingClause{{Patterns: []ast.PatternPart{namePattern("n", "Person")}}},
			Deletes: []ast.DeleteClause{{Variables: []string{"n"}, Detach: true}},
		}},
	}
	_, err := c.Query(q)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Graph.NodeCount())
	assert.Equal(t, 0, c.Graph.EdgeCount())
}

func TestPlainDeleteFailsWithIncidentEdges(t *testing.T) {
	c, _ := newTestContext(t)

	a := &value.Node{ID: "a", Labels: []string{"Person"}, Properties: map[string]value.Value{}}
	b := &value.Node{ID: "b", Labels: []string{"Person"}, Properties: map[string]value.Value{}}
	require.NoError(t, c.Graph.AddNode(a))
	require.NoError(t, c.Graph.AddNode(b))
	require.NoError(t, c.Graph.AddEdge(&value.Edge{ID: "e1", Label: "KNOWS", From: "a", To: "b", Properties: map[string]value.Value{}}))

	_, err := c.Query(&ast.Query{
		Parts: []ast.QueryPart{{
			Reads:   []ast.ReadingClause{{Patterns: []ast.PatternPart{namePattern("n", "Person")}}},
			Deletes: []ast.DeleteClause{{Variables: []string{"n"}, Detach: false}},
		}},
	})
	require.Error(t, err)
}

func TestOptionalMatchNullFillsOnNoMatch(t *testing.T) {
	c, _ := newTestContext(t)
	require.NoError(t, c.Graph.AddNode(&value.Node{ID: "a", Labels: []string{"Person"}, Properties: map[string]value.Value{}}))

	q := &ast.Query{
		Parts: []ast.QueryPart{{
			Reads: []ast.ReadingClause{
				{Patterns: []ast.PatternPart{namePattern("a", "Person")}},
				{Patterns: []ast.PatternPart{namePattern("b", "Ghost")}, Optional: true},
			},
		}},
		Return: &ast.ReturnClause{Items: []ast.ProjectionItem{{Expr: &ast.VariableExpr{Name: "b"}, Alias: "b"}}},
	}
	res, err := c.Query(q)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.True(t, res.Rows[0][0].IsNull())
}

func TestSetPropertyThenReturn(t *testing.T) {
	c, _ := newTestContext(t)
	require.NoError(t, c.Graph.AddNode(&value.Node{ID: "a", Labels: []string{"Person"}, Properties: map[string]value.Value{"age": value.Number(1)}}))

	q := &ast.Query{
		Parts: []ast.QueryPart{{
			Reads: []ast.ReadingClause{{Patterns: []ast.PatternPart{namePattern("a", "Person")}}},
			Sets: []ast.SetClause{{Items: []ast.SetItem{{
				Kind: ast.SetProperty, Variable: "a", Property: "age", Value: &ast.LiteralExpr{Kind: "number", Num: 42},
			}}}},
		}},
		Return: &ast.ReturnClause{Items: []ast.ProjectionItem{{Expr: &ast.PropertyAccessExpr{Variable: "a", Property: "age"}, Alias: "age"}}},
	}
	res, err := c.Query(q)
	require.NoError(t, err)
	n, _ := res.Rows[0][0].AsNumber()
	assert.Equal(t, float64(42), n)
}

func TestDDLCreateDuplicateRoleFails(t *testing.T) {
	c, _ := newTestContext(t)
	_, err := c.DDL(&ast.CreateStatement{Entity: ast.EntityRole, Name: "admin"})
	require.NoError(t, err)
	_, err = c.DDL(&ast.CreateStatement{Entity: ast.EntityRole, Name: "admin"})
	require.Error(t, err)
}

func TestCallListRolesProcedure(t *testing.T) {
	c, _ := newTestContext(t)
	_, err := c.DDL(&ast.CreateStatement{Entity: ast.EntityRole, Name: "reader"})
	require.NoError(t, err)

	res, err := c.Call(&ast.CallStatement{Name: "gql.list_roles"})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	name, _ := res.Rows[0][0].AsString()
	assert.Equal(t, "reader", name)
}
