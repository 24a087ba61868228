package exec

import (
	"github.com/nornic/gqlcore/pkg/ast"
	"github.com/nornic/gqlcore/pkg/errs"
)

// Execute dispatches any graph/catalog-bearing statement to its executor.
// SESSION SET and transaction-control statements carry no graph/catalog
// work of their own — the coordinator applies those directly against
// pkg/session and pkg/txn without ever reaching this package.
func (c *Context) Execute(stmt ast.Statement) (*Result, error) {
	switch s := stmt.(type) {
	case *ast.CreateStatement, *ast.DropStatement, *ast.AlterGraphTypeStatement,
		*ast.GraphMaintenanceStatement, *ast.GrantRevokeStatement:
		return c.DDL(stmt)
	case *ast.Query:
		return c.Query(s)
	case *ast.CallStatement:
		return c.Call(s)
	case *ast.ExplainStatement:
		return c.Explain(s)
	default:
		return nil, errs.Unsupported("statement type %T is not executable against a graph", stmt)
	}
}
