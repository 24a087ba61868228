package parser

import (
	"strconv"
	"strings"

	"github.com/nornic/gqlcore/pkg/ast"
	"github.com/nornic/gqlcore/pkg/errs"
)

// Parse turns query text into a single ast.Statement. Trailing ';' is
// tolerated but multi-statement text is not supported — the coordinator
// calls Parse once per statement (spec.md §4.1 step 2).
func Parse(src string) (ast.Statement, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	p.skipPunct(";")
	if p.cur().kind != tokEOF {
		return nil, p.errorf("unexpected trailing input %q", p.cur().text)
	}
	return stmt, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) errorf(format string, args ...any) error {
	return errs.ParseError(format, args...)
}

func (p *parser) atKeyword(kw string) bool {
	return p.cur().kind == tokKeyword && p.cur().upper == kw
}

func (p *parser) atPunct(s string) bool {
	return p.cur().kind == tokPunct && p.cur().text == s
}

func (p *parser) expectKeyword(kw string) error {
	if !p.atKeyword(kw) {
		return p.errorf("expected %q, got %q", kw, p.cur().text)
	}
	p.advance()
	return nil
}

func (p *parser) expectPunct(s string) error {
	if !p.atPunct(s) {
		return p.errorf("expected %q, got %q", s, p.cur().text)
	}
	p.advance()
	return nil
}

func (p *parser) skipPunct(s string) bool {
	if p.atPunct(s) {
		p.advance()
		return true
	}
	return false
}

// expectIdent accepts a plain identifier OR a keyword used positionally as
// a name (GQL allows e.g. role names that collide with reserved words).
func (p *parser) expectIdent() (string, error) {
	t := p.cur()
	if t.kind == tokIdent || t.kind == tokKeyword {
		p.advance()
		return t.text, nil
	}
	if t.kind == tokString {
		p.advance()
		return t.text, nil
	}
	return "", p.errorf("expected identifier, got %q", t.text)
}

func (p *parser) parseStatement() (ast.Statement, error) {
	switch {
	case p.atKeyword("CREATE"):
		return p.parseCreate()
	case p.atKeyword("DROP"):
		return p.parseDrop()
	case p.atKeyword("ALTER"):
		return p.parseAlter()
	case p.atKeyword("TRUNCATE"), p.atKeyword("CLEAR"):
		return p.parseGraphMaintenance()
	case p.atKeyword("GRANT"), p.atKeyword("REVOKE"):
		return p.parseGrantRevoke()
	case p.atKeyword("SESSION"):
		return p.parseSessionSet()
	case p.atKeyword("SET") && p.peekKeywordAt(1, "TRANSACTION"):
		return p.parseSetTransaction()
	case p.atKeyword("BEGIN"):
		p.advance()
		return &ast.TransactionControlStatement{Kind: ast.TxnBegin}, nil
	case p.atKeyword("COMMIT"):
		p.advance()
		return &ast.TransactionControlStatement{Kind: ast.TxnCommit}, nil
	case p.atKeyword("ROLLBACK"):
		p.advance()
		return &ast.TransactionControlStatement{Kind: ast.TxnRollback}, nil
	case p.atKeyword("CALL"):
		return p.parseCall()
	case p.atKeyword("EXPLAIN"):
		return p.parseExplain()
	default:
		return p.parseQuery()
	}
}

// parseExplain handles "EXPLAIN <query>": the planner runs, execution
// doesn't (SPEC_FULL.md §13).
func (p *parser) parseExplain() (ast.Statement, error) {
	p.advance() // EXPLAIN
	q, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	return &ast.ExplainStatement{Query: q.(*ast.Query)}, nil
}

func (p *parser) peekKeywordAt(offset int, kw string) bool {
	idx := p.pos + offset
	if idx >= len(p.toks) {
		return false
	}
	t := p.toks[idx]
	return t.kind == tokKeyword && t.upper == kw
}

func (p *parser) peekPunctAt(offset int, s string) bool {
	idx := p.pos + offset
	if idx >= len(p.toks) {
		return false
	}
	t := p.toks[idx]
	return t.kind == tokPunct && t.text == s
}

// --- DDL ---

func (p *parser) parseEntityKind() (ast.EntityKind, error) {
	switch {
	case p.atKeyword("SCHEMA"):
		p.advance()
		return ast.EntitySchema, nil
	case p.atKeyword("GRAPH") && p.peekKeywordAt(1, "TYPE"):
		p.advance()
		p.advance()
		return ast.EntityGraphType, nil
	case p.atKeyword("GRAPH"):
		p.advance()
		return ast.EntityGraph, nil
	case p.atKeyword("USER"):
		p.advance()
		return ast.EntityUser, nil
	case p.atKeyword("ROLE"):
		p.advance()
		return ast.EntityRole, nil
	case p.atKeyword("PROCEDURE"):
		p.advance()
		return ast.EntityProcedure, nil
	default:
		return "", p.errorf("expected catalog entity keyword, got %q", p.cur().text)
	}
}

func (p *parser) parseIfNotExists() (bool, error) {
	if p.atKeyword("IF") {
		p.advance()
		if err := p.expectKeyword("NOT"); err != nil {
			return false, err
		}
		if err := p.expectKeyword("EXISTS"); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (p *parser) parseIfExists() (bool, error) {
	if p.atKeyword("IF") {
		p.advance()
		if err := p.expectKeyword("EXISTS"); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (p *parser) parseCreate() (ast.Statement, error) {
	p.advance() // CREATE
	entity, err := p.parseEntityKind()
	if err != nil {
		return nil, err
	}
	ifNotExists, err := p.parseIfNotExists()
	if err != nil {
		return nil, err
	}
	name, err := p.parsePathOrName()
	if err != nil {
		return nil, err
	}
	stmt := &ast.CreateStatement{Entity: entity, Name: name, IfNotExists: ifNotExists}

	switch entity {
	case ast.EntityGraph:
		parts := strings.Split(strings.Trim(name, "/"), "/")
		if len(parts) == 2 {
			stmt.Schema, stmt.Name = parts[0], parts[1]
		}
		if p.atKeyword("OF") || p.atIdentText("OF") {
			p.advance()
			tn, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			stmt.TypeName = tn
		}
	case ast.EntityGraphType:
		nts, ets, err := p.parseGraphTypeBody()
		if err != nil {
			return nil, err
		}
		stmt.NodeTypes, stmt.EdgeTypes = nts, ets
	case ast.EntityUser:
		if p.atKeyword("SET") {
			p.advance()
			if err := p.expectKeyword("PASSWORD"); err != nil {
				return nil, err
			}
			pw, err := p.parseStringLiteral()
			if err != nil {
				return nil, err
			}
			stmt.Password = pw
		}
	case ast.EntityProcedure:
		stmt.MinArity, stmt.MaxArity = 0, -1
		if p.skipPunct("(") {
			if n, err := p.parseNumberLiteral(); err == nil {
				stmt.MinArity = int(n)
			}
			if p.skipPunct(",") {
				if n, err := p.parseNumberLiteral(); err == nil {
					stmt.MaxArity = int(n)
				}
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
		}
	}
	return stmt, nil
}

func (p *parser) atIdentText(s string) bool {
	return p.cur().kind == tokIdent && strings.EqualFold(p.cur().text, s)
}

func (p *parser) parsePathOrName() (string, error) {
	var sb strings.Builder
	if p.atPunct("/") {
		sb.WriteString("/")
		p.advance()
	}
	first, err := p.expectIdent()
	if err != nil {
		return "", err
	}
	sb.WriteString(first)
	for p.atPunct("/") {
		p.advance()
		sb.WriteString("/")
		part, err := p.expectIdent()
		if err != nil {
			return "", err
		}
		sb.WriteString(part)
	}
	return sb.String(), nil
}

func (p *parser) parseStringLiteral() (string, error) {
	if p.cur().kind != tokString {
		return "", p.errorf("expected string literal, got %q", p.cur().text)
	}
	t := p.advance()
	return t.text, nil
}

func (p *parser) parseNumberLiteral() (float64, error) {
	if p.cur().kind != tokNumber {
		return 0, p.errorf("expected number, got %q", p.cur().text)
	}
	t := p.advance()
	n, err := strconv.ParseFloat(t.text, 64)
	if err != nil {
		return 0, p.errorf("invalid number %q", t.text)
	}
	return n, nil
}

// parseGraphTypeBody parses "( (:NodeLabel {prop TYPE [NOT NULL], ...}), -[:EdgeLabel]->(From, To {...}), ... )".
// Kept intentionally permissive: unrecognized tokens inside the parens are
// skipped rather than rejected, since GraphType DDL shorthand varies widely
// and the catalog layer re-validates the structured result anyway.
func (p *parser) parseGraphTypeBody() ([]ast.NodeTypeDef, []ast.EdgeTypeDef, error) {
	var nodeTypes []ast.NodeTypeDef
	var edgeTypes []ast.EdgeTypeDef
	if !p.skipPunct("(") {
		return nodeTypes, edgeTypes, nil
	}
	for !p.atPunct(")") && p.cur().kind != tokEOF {
		if p.atPunct("(") {
			nt, err := p.parseNodeTypeDef()
			if err != nil {
				return nil, nil, err
			}
			nodeTypes = append(nodeTypes, nt)
		} else if p.atPunct("-") || p.atPunct("<--") {
			et, err := p.parseEdgeTypeDef()
			if err != nil {
				return nil, nil, err
			}
			edgeTypes = append(edgeTypes, et)
		} else {
			p.advance()
		}
		p.skipPunct(",")
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, nil, err
	}
	return nodeTypes, edgeTypes, nil
}

func (p *parser) parseNodeTypeDef() (ast.NodeTypeDef, error) {
	var nt ast.NodeTypeDef
	if err := p.expectPunct("("); err != nil {
		return nt, err
	}
	for p.atPunct(":") {
		p.advance()
		label, err := p.expectIdent()
		if err != nil {
			return nt, err
		}
		nt.Labels = append(nt.Labels, label)
	}
	if p.skipPunct("{") {
		props, err := p.parsePropertyDefs()
		if err != nil {
			return nt, err
		}
		nt.Properties = props
	}
	if err := p.expectPunct(")"); err != nil {
		return nt, err
	}
	return nt, nil
}

func (p *parser) parsePropertyDefs() ([]ast.PropertyDef, error) {
	var defs []ast.PropertyDef
	for !p.atPunct("}") && p.cur().kind != tokEOF {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		typ := "ANY"
		if !p.atPunct(",") && !p.atPunct("}") {
			t, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			typ = strings.ToUpper(t)
		}
		required := false
		if p.atKeyword("NOT") {
			p.advance()
			if err := p.expectKeyword("NULL"); err != nil {
				return nil, err
			}
			required = true
		}
		defs = append(defs, ast.PropertyDef{Name: name, Type: typ, Required: required})
		p.skipPunct(",")
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return defs, nil
}

func (p *parser) parseEdgeTypeDef() (ast.EdgeTypeDef, error) {
	var et ast.EdgeTypeDef
	p.advance() // leading '-'
	if err := p.expectPunct("["); err != nil {
		return et, err
	}
	p.skipPunct(":")
	label, err := p.expectIdent()
	if err != nil {
		return et, err
	}
	et.Label = label
	if err := p.expectPunct("]"); err != nil {
		return et, err
	}
	if p.skipPunct("->") {
	}
	if err := p.expectPunct("("); err != nil {
		return et, err
	}
	from, err := p.expectIdent()
	if err != nil {
		return et, err
	}
	et.From = from
	if p.skipPunct(",") {
		to, err := p.expectIdent()
		if err != nil {
			return et, err
		}
		et.To = to
	}
	if p.skipPunct("{") {
		props, err := p.parsePropertyDefs()
		if err != nil {
			return et, err
		}
		et.Properties = props
	}
	if err := p.expectPunct(")"); err != nil {
		return et, err
	}
	return et, nil
}

func (p *parser) parseDrop() (ast.Statement, error) {
	p.advance() // DROP
	entity, err := p.parseEntityKind()
	if err != nil {
		return nil, err
	}
	ifExists, err := p.parseIfExists()
	if err != nil {
		return nil, err
	}
	name, err := p.parsePathOrName()
	if err != nil {
		return nil, err
	}
	return &ast.DropStatement{Entity: entity, Name: name, IfExists: ifExists}, nil
}

func (p *parser) parseAlter() (ast.Statement, error) {
	p.advance() // ALTER
	if err := p.expectKeyword("GRAPH"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("TYPE"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	nts, ets, err := p.parseGraphTypeBody()
	if err != nil {
		return nil, err
	}
	return &ast.AlterGraphTypeStatement{Name: name, NodeTypes: nts, EdgeTypes: ets}, nil
}

func (p *parser) parseGraphMaintenance() (ast.Statement, error) {
	kind := ast.MaintenanceTruncate
	if p.atKeyword("CLEAR") {
		kind = ast.MaintenanceClear
	}
	p.advance()
	if err := p.expectKeyword("GRAPH"); err != nil {
		return nil, err
	}
	path, err := p.parsePathOrName()
	if err != nil {
		return nil, err
	}
	return &ast.GraphMaintenanceStatement{Kind: kind, Path: path}, nil
}

func (p *parser) parseGrantRevoke() (ast.Statement, error) {
	grant := p.atKeyword("GRANT")
	p.advance()
	if err := p.expectKeyword("ROLE"); err != nil {
		return nil, err
	}
	role, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if grant {
		if err := p.expectKeyword("TO"); err != nil {
			return nil, err
		}
	} else {
		if err := p.expectKeyword("FROM"); err != nil {
			return nil, err
		}
	}
	user, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	return &ast.GrantRevokeStatement{Grant: grant, Role: role, User: user}, nil
}

// --- Session / transaction characteristics ---

func (p *parser) parseSessionSet() (ast.Statement, error) {
	p.advance() // SESSION
	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	var kind ast.SessionSetKind
	switch {
	case p.atKeyword("SCHEMA"):
		kind = ast.SessionSetSchema
	case p.atKeyword("GRAPH"):
		kind = ast.SessionSetGraph
	default:
		return nil, p.errorf("expected SCHEMA or GRAPH after SESSION SET, got %q", p.cur().text)
	}
	p.advance()
	path, err := p.parsePathOrName()
	if err != nil {
		return nil, err
	}
	return &ast.SessionSetStatement{Kind: kind, Path: path}, nil
}

func (p *parser) parseSetTransaction() (ast.Statement, error) {
	p.advance() // SET
	if err := p.expectKeyword("TRANSACTION"); err != nil {
		return nil, err
	}
	stmt := &ast.SetTransactionStatement{}
	for {
		switch {
		case p.atKeyword("READ") && p.peekKeywordAt(1, "ONLY"):
			p.advance()
			p.advance()
			mode := "READ ONLY"
			stmt.AccessMode = &mode
		case p.atKeyword("READ") && p.peekKeywordAt(1, "WRITE"):
			p.advance()
			p.advance()
			mode := "READ WRITE"
			stmt.AccessMode = &mode
		case p.atKeyword("ISOLATION"):
			p.advance()
			if err := p.expectKeyword("LEVEL"); err != nil {
				return nil, err
			}
			var sb strings.Builder
			for p.cur().kind == tokKeyword || p.cur().kind == tokIdent {
				if sb.Len() > 0 {
					sb.WriteString(" ")
				}
				sb.WriteString(p.advance().upper)
			}
			level := sb.String()
			stmt.Isolation = &level
		default:
			return stmt, nil
		}
	}
}

// --- CALL ---

func (p *parser) parseCall() (ast.Statement, error) {
	p.advance() // CALL
	var nameParts []string
	part, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	nameParts = append(nameParts, part)
	for p.atPunct(".") {
		p.advance()
		part, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		nameParts = append(nameParts, part)
	}
	stmt := &ast.CallStatement{Name: strings.Join(nameParts, ".")}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	for !p.atPunct(")") {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		stmt.Args = append(stmt.Args, arg)
		if !p.skipPunct(",") {
			break
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	if p.atKeyword("YIELD") {
		p.advance()
		for {
			col, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			stmt.Yield = append(stmt.Yield, col)
			if !p.skipPunct(",") {
				break
			}
		}
	}
	if p.atKeyword("RETURN") || p.atKeyword("WITH") || p.atKeyword("WHERE") {
		q, err := p.parseQuery()
		if err != nil {
			return nil, err
		}
		stmt.Query = q.(*ast.Query)
	}
	return stmt, nil
}

// --- DQL / DML pipeline ---

func (p *parser) parseQuery() (ast.Statement, error) {
	q := &ast.Query{}
	part := ast.QueryPart{}
	hasContent := false

	for {
		switch {
		case p.atKeyword("OPTIONAL"):
			p.advance()
			if err := p.expectKeyword("MATCH"); err != nil {
				return nil, err
			}
			rc, err := p.parseReadingClauseBody(true)
			if err != nil {
				return nil, err
			}
			part.Reads = append(part.Reads, rc)
			hasContent = true
		case p.atKeyword("MATCH"):
			p.advance()
			rc, err := p.parseReadingClauseBody(false)
			if err != nil {
				return nil, err
			}
			part.Reads = append(part.Reads, rc)
			hasContent = true
		case p.atKeyword("UNWIND"):
			p.advance()
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expectKeyword("AS"); err != nil {
				return nil, err
			}
			v, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			part.Unwinds = append(part.Unwinds, ast.UnwindClause{Expr: expr, Variable: v})
			hasContent = true
		case p.atKeyword("INSERT"):
			p.advance()
			patterns, err := p.parsePatternList()
			if err != nil {
				return nil, err
			}
			part.Inserts = append(part.Inserts, ast.InsertClause{Patterns: patterns})
			hasContent = true
		case p.atKeyword("SET"):
			p.advance()
			items, err := p.parseSetItems()
			if err != nil {
				return nil, err
			}
			part.Sets = append(part.Sets, ast.SetClause{Items: items})
			hasContent = true
		case p.atKeyword("REMOVE"):
			p.advance()
			items, err := p.parseRemoveItems()
			if err != nil {
				return nil, err
			}
			part.Removes = append(part.Removes, ast.RemoveClause{Items: items})
			hasContent = true
		case p.atKeyword("DELETE"), p.atKeyword("DETACH"):
			detach := p.atKeyword("DETACH")
			if detach {
				p.advance()
				if err := p.expectKeyword("DELETE"); err != nil {
					return nil, err
				}
			} else {
				p.advance()
			}
			vars, err := p.parseIdentList()
			if err != nil {
				return nil, err
			}
			part.Deletes = append(part.Deletes, ast.DeleteClause{Variables: vars, Detach: detach})
			hasContent = true
		case p.atKeyword("WITH"):
			p.advance()
			wc, err := p.parseWithClause()
			if err != nil {
				return nil, err
			}
			part.With = wc
			q.Parts = append(q.Parts, part)
			part = ast.QueryPart{}
			hasContent = false
		case p.atKeyword("RETURN"):
			p.advance()
			rc, err := p.parseReturnClause()
			if err != nil {
				return nil, err
			}
			q.Return = rc
			if hasContent {
				q.Parts = append(q.Parts, part)
			}
			return q, nil
		default:
			if hasContent {
				q.Parts = append(q.Parts, part)
			}
			if len(q.Parts) == 0 && q.Return == nil {
				return nil, p.errorf("unrecognized statement starting at %q", p.cur().text)
			}
			return q, nil
		}
	}
}

func (p *parser) parseReadingClauseBody(optional bool) (ast.ReadingClause, error) {
	rc := ast.ReadingClause{Optional: optional}
	patterns, err := p.parsePatternList()
	if err != nil {
		return rc, err
	}
	rc.Patterns = patterns
	if p.atKeyword("WHERE") {
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return rc, err
		}
		rc.Where = expr
	}
	return rc, nil
}

func (p *parser) parsePatternList() ([]ast.PatternPart, error) {
	var parts []ast.PatternPart
	for {
		part, err := p.parsePatternPart()
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
		if !p.skipPunct(",") {
			break
		}
	}
	return parts, nil
}

// parsePatternPart parses "[var =] (n1)-[e1]-(n2)-[e2]->(n3)...".
func (p *parser) parsePatternPart() (ast.PatternPart, error) {
	var part ast.PatternPart
	if p.cur().kind == tokIdent && p.toks[p.pos+1].kind == tokPunct && p.toks[p.pos+1].text == "=" {
		v, _ := p.expectIdent()
		part.PathVariable = v
		p.advance() // '='
	}
	node, err := p.parseNodePattern()
	if err != nil {
		return part, err
	}
	part.Nodes = append(part.Nodes, node)

	for p.atPunct("-") || p.atPunct("<--") {
		edge, err := p.parseEdgePattern()
		if err != nil {
			return part, err
		}
		part.Edges = append(part.Edges, edge)
		node, err := p.parseNodePattern()
		if err != nil {
			return part, err
		}
		part.Nodes = append(part.Nodes, node)
	}
	return part, nil
}

func (p *parser) parseNodePattern() (ast.NodePattern, error) {
	var np ast.NodePattern
	if err := p.expectPunct("("); err != nil {
		return np, err
	}
	if p.cur().kind == tokIdent {
		np.Variable, _ = p.expectIdent()
	}
	for p.atPunct(":") {
		p.advance()
		label, err := p.expectIdent()
		if err != nil {
			return np, err
		}
		np.Labels = append(np.Labels, label)
	}
	if p.skipPunct("{") {
		props, err := p.parsePropertyMap()
		if err != nil {
			return np, err
		}
		np.Properties = props
	}
	if err := p.expectPunct(")"); err != nil {
		return np, err
	}
	return np, nil
}

// parseEdgePattern parses one of: -[...]->  -[...]-  <--  (the lexer has
// no "<-" token, so a bracketed incoming edge <-[...]- does not parse)
func (p *parser) parseEdgePattern() (ast.EdgePattern, error) {
	var ep ast.EdgePattern
	incoming := p.atPunct("<--")
	p.advance() // leading '-' or '<--'

	if p.skipPunct("[") {
		if p.cur().kind == tokIdent {
			ep.Variable, _ = p.expectIdent()
		}
		for p.atPunct(":") {
			p.advance()
			label, err := p.expectIdent()
			if err != nil {
				return ep, err
			}
			ep.Labels = append(ep.Labels, label)
			if p.atPunct("|") {
				p.advance()
			}
		}
		if p.skipPunct("*") {
			if p.cur().kind == tokNumber {
				n, _ := p.parseNumberLiteral()
				i := int(n)
				ep.MinHops = &i
			}
			if p.skipPunct(".") && p.skipPunct(".") {
				if p.cur().kind == tokNumber {
					n, _ := p.parseNumberLiteral()
					i := int(n)
					ep.MaxHops = &i
				}
			}
		}
		if p.skipPunct("{") {
			props, err := p.parsePropertyMap()
			if err != nil {
				return ep, err
			}
			ep.Properties = props
		}
		if err := p.expectPunct("]"); err != nil {
			return ep, err
		}
	}

	switch {
	case incoming:
		ep.Direction = ast.DirIncoming
	case p.skipPunct("->"):
		ep.Direction = ast.DirOutgoing
		return ep, nil
	default:
		ep.Direction = ast.DirBoth
	}
	if !incoming {
		p.skipPunct("-")
	}
	return ep, nil
}

func (p *parser) parsePropertyMap() (map[string]ast.Expression, error) {
	props := make(map[string]ast.Expression)
	for !p.atPunct("}") && p.cur().kind != tokEOF {
		key, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		props[key] = val
		p.skipPunct(",")
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return props, nil
}

func (p *parser) parseIdentList() ([]string, error) {
	var out []string
	for {
		v, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		if !p.skipPunct(",") {
			break
		}
	}
	return out, nil
}

func (p *parser) parseSetItems() ([]ast.SetItem, error) {
	var items []ast.SetItem
	for {
		v, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		switch {
		case p.skipPunct("."):
			prop, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("="); err != nil {
				return nil, err
			}
			val, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			items = append(items, ast.SetItem{Kind: ast.SetProperty, Variable: v, Property: prop, Value: val})
		case p.atPunct(":"):
			p.advance()
			label, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			items = append(items, ast.SetItem{Kind: ast.SetLabel, Variable: v, Label: label})
		default:
			return nil, p.errorf("expected '.' or ':' after %q in SET", v)
		}
		if !p.skipPunct(",") {
			break
		}
	}
	return items, nil
}

func (p *parser) parseRemoveItems() ([]ast.RemoveItem, error) {
	var items []ast.RemoveItem
	for {
		v, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		switch {
		case p.skipPunct("."):
			prop, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			items = append(items, ast.RemoveItem{Variable: v, Property: prop})
		case p.atPunct(":"):
			p.advance()
			label, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			items = append(items, ast.RemoveItem{Variable: v, Label: label})
		default:
			return nil, p.errorf("expected '.' or ':' after %q in REMOVE", v)
		}
		if !p.skipPunct(",") {
			break
		}
	}
	return items, nil
}

func (p *parser) parseWithClause() (*ast.WithClause, error) {
	wc := &ast.WithClause{}
	if p.atKeyword("DISTINCT") {
		p.advance()
		wc.Distinct = true
	}
	items, err := p.parseProjectionItems()
	if err != nil {
		return nil, err
	}
	wc.Items = items
	if p.atKeyword("WHERE") {
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		wc.Where = expr
	}
	orderBy, skip, limit, err := p.parseOrderSkipLimit()
	if err != nil {
		return nil, err
	}
	wc.OrderBy, wc.Skip, wc.Limit = orderBy, skip, limit
	return wc, nil
}

func (p *parser) parseReturnClause() (*ast.ReturnClause, error) {
	rc := &ast.ReturnClause{}
	if p.atKeyword("DISTINCT") {
		p.advance()
		rc.Distinct = true
	}
	items, err := p.parseProjectionItems()
	if err != nil {
		return nil, err
	}
	rc.Items = items
	orderBy, skip, limit, err := p.parseOrderSkipLimit()
	if err != nil {
		return nil, err
	}
	rc.OrderBy, rc.Skip, rc.Limit = orderBy, skip, limit
	return rc, nil
}

func (p *parser) parseProjectionItems() ([]ast.ProjectionItem, error) {
	var items []ast.ProjectionItem
	for {
		if p.atPunct("*") {
			p.advance()
			items = append(items, ast.ProjectionItem{Expr: &ast.VariableExpr{Name: "*"}})
		} else {
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			alias := ""
			if p.atKeyword("AS") {
				p.advance()
				alias, err = p.expectIdent()
				if err != nil {
					return nil, err
				}
			}
			items = append(items, ast.ProjectionItem{Expr: expr, Alias: alias})
		}
		if !p.skipPunct(",") {
			break
		}
	}
	return items, nil
}

func (p *parser) parseOrderSkipLimit() ([]ast.OrderItem, *int64, *int64, error) {
	var orderBy []ast.OrderItem
	var skip, limit *int64

	if p.atKeyword("ORDER") {
		p.advance()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, nil, nil, err
		}
		for {
			expr, err := p.parseExpression()
			if err != nil {
				return nil, nil, nil, err
			}
			desc := false
			if p.atKeyword("DESC") {
				p.advance()
				desc = true
			} else if p.atKeyword("ASC") {
				p.advance()
			}
			orderBy = append(orderBy, ast.OrderItem{Expr: expr, Descending: desc})
			if !p.skipPunct(",") {
				break
			}
		}
	}
	if p.atKeyword("SKIP") {
		p.advance()
		n, err := p.parseNumberLiteral()
		if err != nil {
			return nil, nil, nil, err
		}
		v := int64(n)
		skip = &v
	}
	if p.atKeyword("LIMIT") {
		p.advance()
		n, err := p.parseNumberLiteral()
		if err != nil {
			return nil, nil, nil, err
		}
		v := int64(n)
		limit = &v
	}
	return orderBy, skip, limit, nil
}
