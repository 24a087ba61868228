package exec

import (
	"github.com/google/uuid"

	"github.com/nornic/gqlcore/pkg/ast"
	"github.com/nornic/gqlcore/pkg/catalog"
	"github.com/nornic/gqlcore/pkg/errs"
	"github.com/nornic/gqlcore/pkg/value"
)

// runInsert binds an INSERT pattern per row, creating any node/edge whose
// variable isn't already bound in that row (so "MATCH (a) INSERT (a)-[:KNOWS]->(b:Person)"
// reuses a, creates b). Each created entity is logged with its own inverse
// delete so ROLLBACK unwinds creations one at a time, in reverse order.
func (c *Context) runInsert(rows []Row, ins ast.InsertClause) ([]Row, error) {
	out := make([]Row, len(rows))
	for i, row := range rows {
		r := cloneRow(row)
		for _, part := range ins.Patterns {
			nodes := make([]*value.Node, len(part.Nodes))
			for ni, np := range part.Nodes {
				n, err := c.resolveOrCreateNode(r, np)
				if err != nil {
					return nil, err
				}
				nodes[ni] = n
				if np.Variable != "" {
					r[np.Variable] = value.NodeValue(*n)
				}
			}
			for ei, ep := range part.Edges {
				e, err := c.resolveOrCreateEdge(r, ep, nodes[ei], nodes[ei+1])
				if err != nil {
					return nil, err
				}
				if ep.Variable != "" {
					r[ep.Variable] = value.EdgeValue(*e)
				}
			}
			if part.PathVariable != "" {
				edges := make([]*value.Edge, 0, len(part.Edges))
				for _, ep := range part.Edges {
					if ep.Variable != "" {
						edgeVal := r[ep.Variable]
						edge, _ := edgeVal.AsEdge()
						edges = append(edges, edge)
					}
				}
				r[part.PathVariable] = buildPath(nodes, edges)
			}
		}
		out[i] = r
	}
	return out, nil
}

func (c *Context) resolveOrCreateNode(row Row, np ast.NodePattern) (*value.Node, error) {
	if np.Variable != "" {
		if bound, ok := row[np.Variable]; ok {
			if n, isNode := bound.AsNode(); isNode {
				return n, nil
			}
		}
	}

	props, err := c.evalProperties(row, np.Properties)
	if err != nil {
		return nil, err
	}
	if err := c.validateNodeProperties(np.Labels, props); err != nil {
		return nil, err
	}
	n := &value.Node{ID: uuid.NewString(), Labels: append([]string(nil), np.Labels...), Properties: props}
	if err := c.Graph.AddNode(n); err != nil {
		return nil, err
	}
	nodeCopy := *n
	if err := c.logOp("INSERT_NODE", "insert node "+n.ID, func() error {
		_, err := c.Graph.UndoDeleteNode(nodeCopy.ID, true)
		return err
	}); err != nil {
		return nil, err
	}
	return n, nil
}

func (c *Context) resolveOrCreateEdge(row Row, ep ast.EdgePattern, from, to *value.Node) (*value.Edge, error) {
	if ep.Variable != "" {
		if bound, ok := row[ep.Variable]; ok {
			if e, isEdge := bound.AsEdge(); isEdge {
				return e, nil
			}
		}
	}

	label := ""
	if len(ep.Labels) > 0 {
		label = ep.Labels[0]
	}
	props, err := c.evalProperties(row, ep.Properties)
	if err != nil {
		return nil, err
	}
	if err := c.validateEdgeProperties(label, props); err != nil {
		return nil, err
	}

	fromID, toID := from.ID, to.ID
	if ep.Direction == ast.DirIncoming {
		fromID, toID = toID, fromID
	}

	e := &value.Edge{ID: uuid.NewString(), Label: label, From: fromID, To: toID, Properties: props}
	if err := c.Graph.AddEdge(e); err != nil {
		return nil, err
	}
	edgeCopy := *e
	if err := c.logOp("INSERT_EDGE", "insert edge "+e.ID, func() error {
		_, err := c.Graph.UndoDeleteEdge(edgeCopy.ID)
		return err
	}); err != nil {
		return nil, err
	}
	return e, nil
}

func (c *Context) evalProperties(row Row, props map[string]ast.Expression) (map[string]value.Value, error) {
	out := make(map[string]value.Value, len(props))
	for name, expr := range props {
		v, err := c.eval(row, expr)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// runSet applies SET <var>.<prop> = <expr> and SET <var>:<label> items.
// Each mutated node/edge is written back wholesale via UpdateNode/UpdateEdge,
// with the pre-mutation copy captured for undo.
func (c *Context) runSet(rows []Row, sc ast.SetClause) ([]Row, error) {
	for _, row := range rows {
		for _, item := range sc.Items {
			bound, ok := row[item.Variable]
			if !ok {
				continue
			}
			if n, isNode := bound.AsNode(); isNode {
				updated, err := c.setOnNode(row, *n, item)
				if err != nil {
					return nil, err
				}
				row[item.Variable] = value.NodeValue(*updated)
				continue
			}
			if e, isEdge := bound.AsEdge(); isEdge {
				if item.Kind == ast.SetLabel {
					return nil, errs.Unsupported("SET label is only valid on nodes")
				}
				updated, err := c.setOnEdge(row, *e, item)
				if err != nil {
					return nil, err
				}
				row[item.Variable] = value.EdgeValue(*updated)
			}
		}
	}
	return rows, nil
}

func (c *Context) setOnNode(row Row, n value.Node, item ast.SetItem) (*value.Node, error) {
	before := n
	switch item.Kind {
	case ast.SetProperty:
		v, err := c.eval(row, item.Value)
		if err != nil {
			return nil, err
		}
		n.Properties = cloneProps(n.Properties)
		n.Properties[item.Property] = v
	case ast.SetLabel:
		if !n.HasLabel(item.Label) {
			n.Labels = append(append([]string(nil), n.Labels...), item.Label)
		}
	}
	updated, err := c.Graph.UpdateNode(&n)
	if err != nil {
		return nil, err
	}
	if err := c.logOp("SET_NODE", "set on node "+n.ID, func() error {
		_, err := c.Graph.UndoUpdateNode(&before)
		return err
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

func (c *Context) setOnEdge(row Row, e value.Edge, item ast.SetItem) (*value.Edge, error) {
	before := e
	v, err := c.eval(row, item.Value)
	if err != nil {
		return nil, err
	}
	e.Properties = cloneProps(e.Properties)
	e.Properties[item.Property] = v
	updated, err := c.Graph.UpdateEdge(&e)
	if err != nil {
		return nil, err
	}
	if err := c.logOp("SET_EDGE", "set on edge "+e.ID, func() error {
		_, err := c.Graph.UndoUpdateEdge(&before)
		return err
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

func cloneProps(m map[string]value.Value) map[string]value.Value {
	out := make(map[string]value.Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// runRemove applies REMOVE <var>.<prop> | <var>:<label> items, the inverse
// shape of runSet.
func (c *Context) runRemove(rows []Row, rc ast.RemoveClause) ([]Row, error) {
	for _, row := range rows {
		for _, item := range rc.Items {
			bound, ok := row[item.Variable]
			if !ok {
				continue
			}
			if n, isNode := bound.AsNode(); isNode {
				updated, err := c.removeFromNode(*n, item)
				if err != nil {
					return nil, err
				}
				row[item.Variable] = value.NodeValue(*updated)
				continue
			}
			if e, isEdge := bound.AsEdge(); isEdge {
				if item.Property == "" {
					return nil, errs.Unsupported("REMOVE label is only valid on nodes")
				}
				updated, err := c.removeFromEdge(*e, item)
				if err != nil {
					return nil, err
				}
				row[item.Variable] = value.EdgeValue(*updated)
			}
		}
	}
	return rows, nil
}

func (c *Context) removeFromNode(n value.Node, item ast.RemoveItem) (*value.Node, error) {
	before := n
	n.Properties = cloneProps(n.Properties)
	if item.Property != "" {
		delete(n.Properties, item.Property)
	}
	if item.Label != "" {
		filtered := make([]string, 0, len(n.Labels))
		for _, l := range n.Labels {
			if l != item.Label {
				filtered = append(filtered, l)
			}
		}
		n.Labels = filtered
	}
	updated, err := c.Graph.UpdateNode(&n)
	if err != nil {
		return nil, err
	}
	if err := c.logOp("REMOVE_NODE", "remove on node "+n.ID, func() error {
		_, err := c.Graph.UndoUpdateNode(&before)
		return err
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

func (c *Context) removeFromEdge(e value.Edge, item ast.RemoveItem) (*value.Edge, error) {
	before := e
	e.Properties = cloneProps(e.Properties)
	delete(e.Properties, item.Property)
	updated, err := c.Graph.UpdateEdge(&e)
	if err != nil {
		return nil, err
	}
	if err := c.logOp("REMOVE_EDGE", "remove on edge "+e.ID, func() error {
		_, err := c.Graph.UndoUpdateEdge(&before)
		return err
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

// runDelete applies DELETE/DETACH DELETE. Plain DELETE on a node with
// incident edges fails (graphcache.DeleteNode's own check); DETACH DELETE
// first deletes every incident edge, then the node, each as its own undo
// op — grounded on original_source's data_stmt/delete.rs cascade-then-delete
// ordering (see package doc).
func (c *Context) runDelete(rows []Row, dc ast.DeleteClause) ([]Row, error) {
	for _, row := range rows {
		for _, varName := range dc.Variables {
			bound, ok := row[varName]
			if !ok || bound.IsNull() {
				continue
			}
			if n, isNode := bound.AsNode(); isNode {
				if err := c.deleteNode(*n, dc.Detach); err != nil {
					return nil, err
				}
				continue
			}
			if e, isEdge := bound.AsEdge(); isEdge {
				if err := c.deleteEdge(*e); err != nil {
					return nil, err
				}
			}
		}
	}
	return rows, nil
}

func (c *Context) deleteNode(n value.Node, detach bool) error {
	if detach {
		for _, e := range c.Graph.IncidentEdges(n.ID) {
			if err := c.deleteEdge(*e); err != nil {
				return err
			}
		}
	}
	deleted, err := c.Graph.DeleteNode(n.ID, detach)
	if err != nil {
		return err
	}
	nodeCopy := *deleted
	return c.logOp("DELETE_NODE", "delete node "+n.ID, func() error {
		return c.Graph.UndoAddNode(&nodeCopy)
	})
}

func (c *Context) deleteEdge(e value.Edge) error {
	deleted, err := c.Graph.DeleteEdge(e.ID)
	if err != nil {
		return err
	}
	edgeCopy := *deleted
	return c.logOp("DELETE_EDGE", "delete edge "+e.ID, func() error {
		return c.Graph.UndoAddEdge(&edgeCopy)
	})
}

// boundGraphType looks up the GraphType bound to c.GraphPath, if any.
// Graphs created without a TYPE clause, or a Context built without a
// GraphPath (e.g. direct unit tests), skip validation entirely.
func (c *Context) boundGraphType() (catalog.GraphType, bool) {
	if c.GraphPath == "" || c.Catalog == nil {
		return catalog.GraphType{}, false
	}
	g, err := c.Catalog.GetGraph(c.GraphPath)
	if err != nil || g.TypeName == "" {
		return catalog.GraphType{}, false
	}
	gt, err := c.Catalog.GetGraphType(g.TypeName)
	if err != nil {
		return catalog.GraphType{}, false
	}
	return gt, true
}

func (c *Context) validateNodeProperties(labels []string, props map[string]value.Value) error {
	gt, ok := c.boundGraphType()
	if !ok {
		return nil
	}
	if err := catalog.ValidateNodeProperties(gt, labels, propertyKinds(props)); err != nil {
		return errs.SchemaValidation("%s", err)
	}
	return nil
}

func (c *Context) validateEdgeProperties(label string, props map[string]value.Value) error {
	gt, ok := c.boundGraphType()
	if !ok {
		return nil
	}
	if err := catalog.ValidateEdgeProperties(gt, label, propertyKinds(props)); err != nil {
		return errs.SchemaValidation("%s", err)
	}
	return nil
}

func propertyKinds(props map[string]value.Value) map[string]catalog.PropertyValue {
	out := make(map[string]catalog.PropertyValue, len(props))
	for name, v := range props {
		out[name] = catalog.PropertyValue{Kind: valuePropertyType(v)}
	}
	return out
}

func valuePropertyType(v value.Value) catalog.PropertyType {
	switch {
	case v.Kind == value.KindString:
		return catalog.PropString
	case v.Kind == value.KindNumber:
		return catalog.PropNumber
	case v.Kind == value.KindBoolean:
		return catalog.PropBoolean
	case v.Kind == value.KindTemporal:
		return catalog.PropDateTime
	case v.Kind == value.KindVector:
		return catalog.PropVector
	default:
		return catalog.PropAny
	}
}
