package exec

import (
	"github.com/nornic/gqlcore/pkg/ast"
	"github.com/nornic/gqlcore/pkg/catalog"
	"github.com/nornic/gqlcore/pkg/errs"
)

// DDL dispatches one catalog statement. DDL never participates in the undo
// log: catalog changes commit immediately against the catalog manager's own
// store and are not rolled back by ROLLBACK (spec.md §4.6, catalog writes
// are auto-committed independently of the surrounding transaction).
func (c *Context) DDL(stmt ast.Statement) (*Result, error) {
	switch s := stmt.(type) {
	case *ast.CreateStatement:
		return c.create(s)
	case *ast.DropStatement:
		return c.drop(s)
	case *ast.AlterGraphTypeStatement:
		return c.alterGraphType(s)
	case *ast.GraphMaintenanceStatement:
		return c.graphMaintenance(s)
	case *ast.GrantRevokeStatement:
		return c.grantRevoke(s)
	default:
		return nil, errs.Unsupported("unsupported DDL statement %T", stmt)
	}
}

func (c *Context) create(s *ast.CreateStatement) (*Result, error) {
	switch s.Entity {
	case ast.EntitySchema:
		if err := c.Catalog.CreateSchema(s.Name, s.IfNotExists); err != nil {
			return nil, err
		}
	case ast.EntityGraph:
		g := catalog.Graph{Schema: s.Schema, Name: s.Name, TypeName: s.TypeName}
		if err := c.Catalog.CreateGraph(g, s.IfNotExists); err != nil {
			return nil, err
		}
	case ast.EntityGraphType:
		gt := catalog.GraphType{Name: s.Name, NodeTypes: convertNodeTypes(s.NodeTypes), EdgeTypes: convertEdgeTypes(s.EdgeTypes)}
		if err := c.Catalog.CreateGraphType(gt, s.IfNotExists); err != nil {
			return nil, err
		}
	case ast.EntityUser:
		hash, err := catalog.HashPassword(s.Password)
		if err != nil {
			return nil, err
		}
		if err := c.Catalog.CreateUser(catalog.User{Name: s.Name, PasswordHash: hash}, s.IfNotExists); err != nil {
			return nil, err
		}
	case ast.EntityRole:
		if err := c.Catalog.CreateRole(s.Name, s.IfNotExists); err != nil {
			return nil, err
		}
	case ast.EntityProcedure:
		p := catalog.Procedure{Name: s.Name, MinArity: s.MinArity, MaxArity: s.MaxArity}
		if err := c.Catalog.CreateProcedure(p, s.IfNotExists); err != nil {
			return nil, err
		}
	default:
		return nil, errs.Unsupported("unsupported CREATE entity %q", s.Entity)
	}
	return &Result{RowsAffected: 1}, nil
}

func (c *Context) drop(s *ast.DropStatement) (*Result, error) {
	var err error
	switch s.Entity {
	case ast.EntitySchema:
		err = c.Catalog.DropSchema(s.Name, s.IfExists)
	case ast.EntityGraph:
		err = c.Catalog.DropGraph(s.Name, s.IfExists)
	case ast.EntityGraphType:
		err = c.Catalog.DropGraphType(s.Name, s.IfExists)
	case ast.EntityUser:
		err = c.Catalog.DropUser(s.Name, s.IfExists)
	case ast.EntityRole:
		err = c.Catalog.DropRole(s.Name, s.IfExists)
	case ast.EntityProcedure:
		err = c.Catalog.DropProcedure(s.Name, s.IfExists)
	default:
		return nil, errs.Unsupported("unsupported DROP entity %q", s.Entity)
	}
	if err != nil {
		return nil, err
	}
	return &Result{RowsAffected: 1}, nil
}

func (c *Context) alterGraphType(s *ast.AlterGraphTypeStatement) (*Result, error) {
	existing, err := c.Catalog.GetGraphType(s.Name)
	if err != nil {
		return nil, err
	}
	existing.NodeTypes = convertNodeTypes(s.NodeTypes)
	existing.EdgeTypes = convertEdgeTypes(s.EdgeTypes)
	if err := c.Catalog.AlterGraphType(existing); err != nil {
		return nil, err
	}
	return &Result{RowsAffected: 1}, nil
}

// graphMaintenance implements TRUNCATE/CLEAR GRAPH: every node and edge is
// removed from the live cache but the catalog entry and graph type binding
// survive, matching spec.md §6's "clears data, keeps the catalog entry"
// wording for both spellings.
func (c *Context) graphMaintenance(s *ast.GraphMaintenanceStatement) (*Result, error) {
	nodes := c.Graph.AllNodes()
	for _, n := range nodes {
		if _, err := c.Graph.DeleteNode(n.ID, true); err != nil {
			return nil, err
		}
	}
	return &Result{RowsAffected: len(nodes)}, nil
}

func (c *Context) grantRevoke(s *ast.GrantRevokeStatement) (*Result, error) {
	var err error
	if s.Grant {
		err = c.Catalog.GrantRole(s.User, s.Role)
	} else {
		err = c.Catalog.RevokeRole(s.User, s.Role)
	}
	if err != nil {
		return nil, err
	}
	return &Result{RowsAffected: 1}, nil
}

func convertNodeTypes(defs []ast.NodeTypeDef) []catalog.NodeType {
	out := make([]catalog.NodeType, len(defs))
	for i, d := range defs {
		out[i] = catalog.NodeType{
			Labels:      d.Labels,
			Properties:  convertPropertyDefs(d.Properties),
			Constraints: d.Constraints,
		}
	}
	return out
}

func convertEdgeTypes(defs []ast.EdgeTypeDef) []catalog.EdgeType {
	out := make([]catalog.EdgeType, len(defs))
	for i, d := range defs {
		out[i] = catalog.EdgeType{
			Label:       d.Label,
			From:        d.From,
			To:          d.To,
			Properties:  convertPropertyDefs(d.Properties),
			Cardinality: catalog.Cardinality(d.Cardinality),
		}
	}
	return out
}

func convertPropertyDefs(defs []ast.PropertyDef) []catalog.PropertyDef {
	out := make([]catalog.PropertyDef, len(defs))
	for i, d := range defs {
		out[i] = catalog.PropertyDef{Name: d.Name, Type: catalog.PropertyType(d.Type), Required: d.Required}
	}
	return out
}
