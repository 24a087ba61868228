package exec

import (
	"github.com/nornic/gqlcore/pkg/ast"
	"github.com/nornic/gqlcore/pkg/value"
)

// matchPattern extends every row in rows by binding one PatternPart: a chain
// of node/edge patterns joined left to right. A variable already bound in a
// row (because an earlier pattern part or an earlier QueryPart bound it)
// acts as a join key rather than a fresh scan — this is how comma-separated
// patterns and repeated MATCHes implicitly join without ever going through
// the planner (see package doc).
func (c *Context) matchPattern(rows []Row, part ast.PatternPart) ([]Row, error) {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		extended, err := c.matchPatternFromRow(row, part)
		if err != nil {
			return nil, err
		}
		out = append(out, extended...)
	}
	return out, nil
}

func (c *Context) matchPatternFromRow(row Row, part ast.PatternPart) ([]Row, error) {
	candidates, err := c.bindNode(row, part.Nodes[0])
	if err != nil {
		return nil, err
	}

	type partial struct {
		row   Row
		nodes []*value.Node
		edges []*value.Edge
	}

	frontier := make([]partial, 0, len(candidates))
	for _, n := range candidates {
		r := cloneRow(row)
		r[part.Nodes[0].Variable] = value.NodeValue(*n)
		frontier = append(frontier, partial{row: r, nodes: []*value.Node{n}})
	}

	for i, ep := range part.Edges {
		fromPattern := part.Nodes[i]
		toPattern := part.Nodes[i+1]
		_ = fromPattern
		next := make([]partial, 0, len(frontier))
		for _, p := range frontier {
			hops, err := c.expandEdge(p.row, p.nodes[len(p.nodes)-1], ep, toPattern)
			if err != nil {
				return nil, err
			}
			for _, h := range hops {
				r := cloneRow(p.row)
				if ep.Variable != "" {
					r[ep.Variable] = value.EdgeValue(*h.edge)
				}
				r[toPattern.Variable] = value.NodeValue(*h.node)
				next = append(next, partial{
					row:   r,
					nodes: append(append([]*value.Node{}, p.nodes...), h.node),
					edges: append(append([]*value.Edge{}, p.edges...), h.edge),
				})
			}
		}
		frontier = next
	}

	if part.PathVariable != "" {
		for i := range frontier {
			frontier[i].row[part.PathVariable] = buildPath(frontier[i].nodes, frontier[i].edges)
		}
	}

	rows := make([]Row, len(frontier))
	for i, p := range frontier {
		rows[i] = p.row
	}
	return rows, nil
}

func buildPath(nodes []*value.Node, edges []*value.Edge) value.Value {
	elems := make([]value.PathElement, len(nodes))
	for i, n := range nodes {
		elems[i].NodeID = n.ID
		if i < len(edges) {
			elems[i].EdgeID = edges[i].ID
		}
	}
	return value.PathValue(value.Path{Elements: elems})
}

// bindNode resolves the node candidates for np against row: if np.Variable is
// already bound, it's a join key and the existing node is re-checked against
// np's labels/properties; otherwise every node with a matching label (or the
// whole graph if no label is given) is a candidate.
func (c *Context) bindNode(row Row, np ast.NodePattern) ([]*value.Node, error) {
	if np.Variable != "" {
		if bound, ok := row[np.Variable]; ok {
			n, isNode := bound.AsNode()
			if !isNode {
				return nil, nil
			}
			if !c.nodeMatches(n, np, row) {
				return nil, nil
			}
			return []*value.Node{n}, nil
		}
	}

	var pool []*value.Node
	if len(np.Labels) > 0 {
		seen := make(map[string]bool)
		for _, lbl := range np.Labels {
			for _, n := range c.Graph.NodesByLabel(lbl) {
				if !seen[n.ID] {
					seen[n.ID] = true
					pool = append(pool, n)
				}
			}
		}
	} else {
		pool = c.Graph.AllNodes()
	}

	var out []*value.Node
	for _, n := range pool {
		if c.nodeMatches(n, np, row) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (c *Context) nodeMatches(n *value.Node, np ast.NodePattern, row Row) bool {
	for _, lbl := range np.Labels {
		if !n.HasLabel(lbl) {
			return false
		}
	}
	for prop, expr := range np.Properties {
		want, err := c.eval(row, expr)
		if err != nil {
			return false
		}
		got, ok := n.Properties[prop]
		if !ok || !value.Equal(got, want) {
			return false
		}
	}
	return true
}

type edgeHop struct {
	edge *value.Edge
	node *value.Node
}

// expandEdge finds every (edge, node) pair reachable from "from" through ep
// that also satisfies toPattern. Fixed-length patterns (no MinHops/MaxHops)
// expand exactly one edge; variable-length patterns walk a bounded BFS.
func (c *Context) expandEdge(row Row, from *value.Node, ep ast.EdgePattern, toPattern ast.NodePattern) ([]edgeHop, error) {
	minHops, maxHops := 1, 1
	if ep.MinHops != nil || ep.MaxHops != nil {
		if ep.MinHops != nil {
			minHops = *ep.MinHops
		} else {
			minHops = 1
		}
		if ep.MaxHops != nil {
			maxHops = *ep.MaxHops
		} else {
			maxHops = minHops
		}
	}

	if minHops == 1 && maxHops == 1 {
		return c.oneHop(row, from, ep, toPattern)
	}
	return c.variableHop(row, from, ep, toPattern, minHops, maxHops)
}

func (c *Context) oneHop(row Row, from *value.Node, ep ast.EdgePattern, toPattern ast.NodePattern) ([]edgeHop, error) {
	var incident []*value.Edge
	switch ep.Direction {
	case ast.DirOutgoing:
		incident = c.Graph.OutgoingEdges(from.ID)
	case ast.DirIncoming:
		incident = c.Graph.IncomingEdges(from.ID)
	default:
		incident = c.Graph.IncidentEdges(from.ID)
	}

	var hops []edgeHop
	for _, e := range incident {
		if !c.edgeMatches(e, ep, row) {
			continue
		}
		other := otherEndpoint(e, from.ID, ep.Direction)
		if other == "" {
			continue
		}
		n := c.Graph.GetNode(other)
		if n == nil {
			continue
		}
		if toPattern.Variable != "" {
			if bound, ok := row[toPattern.Variable]; ok {
				boundNode, isNode := bound.AsNode()
				if !isNode || boundNode.ID != n.ID {
					continue
				}
			}
		}
		if !c.nodeMatches(n, toPattern, row) {
			continue
		}
		hops = append(hops, edgeHop{edge: e, node: n})
	}
	return hops, nil
}

// variableHop performs a bounded BFS over [minHops, maxHops], binding only
// the final edge/node pair of each path (spec.md's Value union has no
// path-segment-list type for intermediate hops beyond what PathVariable
// already captures). Each node is visited at most once, at the first hop
// count that reaches it, so it yields at most one path per reachable node.
func (c *Context) variableHop(row Row, from *value.Node, ep ast.EdgePattern, toPattern ast.NodePattern, minHops, maxHops int) ([]edgeHop, error) {
	type frontierEntry struct {
		node *value.Node
		edge *value.Edge
		hops int
	}

	visited := map[string]bool{from.ID: true}
	frontier := []frontierEntry{{node: from, hops: 0}}
	var results []edgeHop

	for len(frontier) > 0 && frontier[0].hops < maxHops {
		var next []frontierEntry
		for _, f := range frontier {
			var incident []*value.Edge
			switch ep.Direction {
			case ast.DirOutgoing:
				incident = c.Graph.OutgoingEdges(f.node.ID)
			case ast.DirIncoming:
				incident = c.Graph.IncomingEdges(f.node.ID)
			default:
				incident = c.Graph.IncidentEdges(f.node.ID)
			}
			for _, e := range incident {
				if !c.edgeMatches(e, ep, row) {
					continue
				}
				otherID := otherEndpoint(e, f.node.ID, ep.Direction)
				if otherID == "" || visited[otherID] {
					continue
				}
				n := c.Graph.GetNode(otherID)
				if n == nil {
					continue
				}
				hopCount := f.hops + 1
				if hopCount >= minHops && c.nodeMatches(n, toPattern, row) {
					results = append(results, edgeHop{edge: e, node: n})
				}
				visited[otherID] = true
				next = append(next, frontierEntry{node: n, edge: e, hops: hopCount})
			}
		}
		frontier = next
	}
	return results, nil
}

func (c *Context) edgeMatches(e *value.Edge, ep ast.EdgePattern, row Row) bool {
	if len(ep.Labels) > 0 {
		found := false
		for _, lbl := range ep.Labels {
			if e.Label == lbl {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for prop, expr := range ep.Properties {
		want, err := c.eval(row, expr)
		if err != nil {
			return false
		}
		got, ok := e.Properties[prop]
		if !ok || !value.Equal(got, want) {
			return false
		}
	}
	return true
}

func otherEndpoint(e *value.Edge, from string, dir ast.EdgeDirection) string {
	switch dir {
	case ast.DirOutgoing:
		if e.From == from {
			return e.To
		}
		return ""
	case ast.DirIncoming:
		if e.To == from {
			return e.From
		}
		return ""
	default:
		if e.From == from {
			return e.To
		}
		if e.To == from {
			return e.From
		}
		return ""
	}
}
