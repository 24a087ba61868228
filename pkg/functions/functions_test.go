package functions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nornic/gqlcore/pkg/catalog"
	"github.com/nornic/gqlcore/pkg/storagedriver"
	"github.com/nornic/gqlcore/pkg/value"
)

func TestScalarTextFunctions(t *testing.T) {
	r := NewRegistry()

	v, err := r.CallScalar("trim", []value.Value{value.String("  hi  ")})
	require.NoError(t, err)
	s, _ := v.AsString()
	assert.Equal(t, "hi", s)

	v, err = r.CallScalar("size", []value.Value{value.String("hello")})
	require.NoError(t, err)
	n, _ := v.AsNumber()
	assert.Equal(t, float64(5), n)

	v, err = r.CallScalar("split", []value.Value{value.String("a,b,c"), value.String(",")})
	require.NoError(t, err)
	items, ok := v.AsList()
	require.True(t, ok)
	assert.Len(t, items, 3)
}

func TestScalarMathFunctions(t *testing.T) {
	r := NewRegistry()

	v, err := r.CallScalar("abs", []value.Value{value.Number(-4)})
	require.NoError(t, err)
	n, _ := v.AsNumber()
	assert.Equal(t, float64(4), n)

	v, err = r.CallScalar("pow", []value.Value{value.Number(2), value.Number(10)})
	require.NoError(t, err)
	n, _ = v.AsNumber()
	assert.Equal(t, float64(1024), n)
}

func TestScalarBitwiseAndHashing(t *testing.T) {
	r := NewRegistry()

	v, err := r.CallScalar("bitAND", []value.Value{value.Number(6), value.Number(3)})
	require.NoError(t, err)
	n, _ := v.AsNumber()
	assert.Equal(t, float64(2), n)

	v, err = r.CallScalar("md5", []value.Value{value.String("abc")})
	require.NoError(t, err)
	s, _ := v.AsString()
	assert.NotEmpty(t, s)
}

func TestScalarUnknownFunctionIsUnsupported(t *testing.T) {
	r := NewRegistry()
	_, err := r.CallScalar("notAFunction", nil)
	require.Error(t, err)
}

func TestGraphFunctions(t *testing.T) {
	r := NewRegistry()
	n := value.NodeValue(value.Node{ID: "n1", Labels: []string{"Person"}, Properties: map[string]value.Value{}})

	v, err := r.CallScalar("id", []value.Value{n})
	require.NoError(t, err)
	s, _ := v.AsString()
	assert.Equal(t, "n1", s)

	v, err = r.CallScalar("labels", []value.Value{n})
	require.NoError(t, err)
	items, _ := v.AsList()
	require.Len(t, items, 1)
	lbl, _ := items[0].AsString()
	assert.Equal(t, "Person", lbl)
}

func TestAggregateCountSumAvg(t *testing.T) {
	r := NewRegistry()
	assert.True(t, r.IsAggregateName("count"))
	assert.False(t, r.IsAggregateName("toUpper"))

	count := r.NewAggregate("count")
	for _, v := range []value.Value{value.Number(1), value.Number(2), value.Null()} {
		count.Add(v)
	}
	n, _ := count.Result().AsNumber()
	assert.Equal(t, float64(2), n)

	sum := r.NewAggregate("sum")
	sum.Add(value.Number(3))
	sum.Add(value.Number(4))
	n, _ = sum.Result().AsNumber()
	assert.Equal(t, float64(7), n)

	avg := r.NewAggregate("avg")
	avg.Add(value.Number(10))
	avg.Add(value.Number(20))
	n, _ = avg.Result().AsNumber()
	assert.Equal(t, float64(15), n)
}

func TestAggregateMinMaxCollect(t *testing.T) {
	r := NewRegistry()
	min := r.NewAggregate("min")
	for _, v := range []value.Value{value.Number(5), value.Number(1), value.Number(3)} {
		min.Add(v)
	}
	n, _ := min.Result().AsNumber()
	assert.Equal(t, float64(1), n)

	collect := r.NewAggregate("collect")
	collect.Add(value.String("a"))
	collect.Add(value.Null())
	collect.Add(value.String("b"))
	items, _ := collect.Result().AsList()
	assert.Len(t, items, 2)
}

func newTestCatalog(t *testing.T) *catalog.Manager {
	t.Helper()
	m, err := catalog.New(storagedriver.NewMemoryDriver())
	require.NoError(t, err)
	return m
}

func TestProcedureArityEnforced(t *testing.T) {
	r := NewRegistry()
	ctx := &ProcedureContext{Catalog: newTestCatalog(t)}
	_, _, err := r.CallProcedure(ctx, "gql.authenticate_user", []value.Value{value.String("only-one-arg")})
	require.Error(t, err)
}

func TestProcedureUnknownName(t *testing.T) {
	r := NewRegistry()
	ctx := &ProcedureContext{Catalog: newTestCatalog(t)}
	_, _, err := r.CallProcedure(ctx, "gql.not_a_procedure", nil)
	require.Error(t, err)
}

func TestProcedureListGraphsAndSchemas(t *testing.T) {
	r := NewRegistry()
	cat := newTestCatalog(t)
	require.NoError(t, cat.CreateSchema("app", false))
	require.NoError(t, cat.CreateGraph(catalog.Graph{Schema: "app", Name: "social"}, false))

	ctx := &ProcedureContext{Catalog: cat}
	cols, rows, err := r.CallProcedure(ctx, "gql.list_schemas", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "created_at"}, cols)
	require.Len(t, rows, 1)

	cols, rows, err = r.CallProcedure(ctx, "system.list_graphs", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"path", "schema", "name", "type_name"}, cols)
	require.Len(t, rows, 1)
	path, _ := rows[0][0].AsString()
	assert.Equal(t, "/app/social", path)
}

func TestProcedureAuthenticateUser(t *testing.T) {
	r := NewRegistry()
	cat := newTestCatalog(t)
	hash, err := catalog.HashPassword("s3cret")
	require.NoError(t, err)
	require.NoError(t, cat.CreateUser(catalog.User{Name: "alice", PasswordHash: hash}, false))

	ctx := &ProcedureContext{Catalog: cat}
	_, rows, err := r.CallProcedure(ctx, "gql.authenticate_user", []value.Value{value.String("alice"), value.String("s3cret")})
	require.NoError(t, err)
	ok, _ := rows[0][0].AsBoolean()
	assert.True(t, ok)

	_, rows, err = r.CallProcedure(ctx, "gql.authenticate_user", []value.Value{value.String("alice"), value.String("wrong")})
	require.NoError(t, err)
	ok, _ = rows[0][0].AsBoolean()
	assert.False(t, ok)
}
