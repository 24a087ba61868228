package exec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nornic/gqlcore/pkg/ast"
	"github.com/nornic/gqlcore/pkg/value"
)

func TestExplainReturnsOneRowPerPlanLine(t *testing.T) {
	c, _ := newTestContext(t)
	require.NoError(t, c.Graph.AddNode(&value.Node{ID: "n1", Labels: []string{"Person"}, Properties: map[string]value.Value{}}))

	res, err := c.Explain(&ast.ExplainStatement{Query: countQuery("x", "Person")})
	require.NoError(t, err)
	assert.Equal(t, []string{"clause", "plan"}, res.Columns)
	require.NotEmpty(t, res.Rows)
	plan, ok := res.Rows[0][1].AsString()
	require.True(t, ok)
	assert.True(t, strings.Contains(plan, "Person"))
}

func TestCallGQLExplainParsesAndPlansItsQueryArgument(t *testing.T) {
	c, _ := newTestContext(t)
	require.NoError(t, c.Graph.AddNode(&value.Node{ID: "n1", Labels: []string{"Person"}, Properties: map[string]value.Value{}}))

	res, err := c.Call(&ast.CallStatement{
		Name: "gql.explain",
		Args: []ast.Expression{&ast.LiteralExpr{Kind: "string", Str: "MATCH (x:Person) RETURN x"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"clause", "plan"}, res.Columns)
	require.NotEmpty(t, res.Rows)
}

func TestCallGQLExplainRejectsNonQueryText(t *testing.T) {
	c, _ := newTestContext(t)
	_, err := c.Call(&ast.CallStatement{
		Name: "gql.explain",
		Args: []ast.Expression{&ast.LiteralExpr{Kind: "string", Str: "CREATE SCHEMA s"}},
	})
	assert.Error(t, err)
}
