package parser

import (
	"strconv"

	"github.com/nornic/gqlcore/pkg/ast"
)

// parseExpression is the precedence-climbing entry point. Precedence,
// loosest to tightest: OR > XOR > AND > NOT > comparison/IN/CONTAINS/
// STARTS WITH/ENDS WITH/IS [NOT] NULL > additive > multiplicative > unary
// minus > primary.
func (p *parser) parseExpression() (ast.Expression, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (ast.Expression, error) {
	left, err := p.parseXor()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("OR") {
		p.advance()
		right, err := p.parseXor()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Left: left, Operator: "OR", Right: right}
	}
	return left, nil
}

func (p *parser) parseXor() (ast.Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("XOR") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Left: left, Operator: "XOR", Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (ast.Expression, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("AND") {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Left: left, Operator: "AND", Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (ast.Expression, error) {
	if p.atKeyword("NOT") {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Operator: "NOT", Operand: operand}, nil
	}
	return p.parseComparison()
}

var comparisonOps = map[string]bool{"=": true, "<>": true, "<": true, "<=": true, ">": true, ">=": true, "=~": true}

func (p *parser) parseComparison() (ast.Expression, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.cur().kind == tokPunct && comparisonOps[p.cur().text]:
			op := p.advance().text
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &ast.BinaryExpr{Left: left, Operator: op, Right: right}
		case p.atKeyword("IN"):
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &ast.BinaryExpr{Left: left, Operator: "IN", Right: right}
		case p.atKeyword("CONTAINS"):
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &ast.BinaryExpr{Left: left, Operator: "CONTAINS", Right: right}
		case p.atKeyword("STARTS"):
			p.advance()
			if err := p.expectKeyword("WITH"); err != nil {
				return nil, err
			}
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &ast.BinaryExpr{Left: left, Operator: "STARTS WITH", Right: right}
		case p.atKeyword("ENDS"):
			p.advance()
			if err := p.expectKeyword("WITH"); err != nil {
				return nil, err
			}
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &ast.BinaryExpr{Left: left, Operator: "ENDS WITH", Right: right}
		case p.atKeyword("IS"):
			p.advance()
			neg := false
			if p.atKeyword("NOT") {
				p.advance()
				neg = true
			}
			if err := p.expectKeyword("NULL"); err != nil {
				return nil, err
			}
			if neg {
				left = &ast.UnaryExpr{Operator: "IS NOT NULL", Operand: left}
			} else {
				left = &ast.UnaryExpr{Operator: "IS NULL", Operand: left}
			}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseAdditive() (ast.Expression, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.atPunct("+") || p.atPunct("-") {
		op := p.advance().text
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Left: left, Operator: op, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (ast.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.atPunct("*") || p.atPunct("/") || p.atPunct("%") {
		op := p.advance().text
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Left: left, Operator: op, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (ast.Expression, error) {
	if p.atPunct("-") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Operator: "-", Operand: operand}, nil
	}
	return p.parsePostfix()
}

// parsePostfix handles "expr.property" chains after a primary expression.
func (p *parser) parsePostfix() (ast.Expression, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.atPunct(".") {
		p.advance()
		prop, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if v, ok := expr.(*ast.VariableExpr); ok {
			expr = &ast.PropertyAccessExpr{Variable: v.Name, Property: prop}
			continue
		}
		// Non-variable base (e.g. function-call result); represented as a
		// synthetic property access keyed by the rendered base expression.
		expr = &ast.PropertyAccessExpr{Variable: renderExpr(expr), Property: prop}
	}
	return expr, nil
}

func renderExpr(e ast.Expression) string {
	switch v := e.(type) {
	case *ast.VariableExpr:
		return v.Name
	case *ast.FunctionCallExpr:
		return v.Name + "(...)"
	default:
		return "?"
	}
}

func (p *parser) parsePrimary() (ast.Expression, error) {
	t := p.cur()
	switch {
	case t.kind == tokNumber:
		p.advance()
		n, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errorf("invalid number %q", t.text)
		}
		return &ast.LiteralExpr{Kind: "number", Num: n}, nil
	case t.kind == tokString:
		p.advance()
		return &ast.LiteralExpr{Kind: "string", Str: t.text}, nil
	case t.kind == tokParam:
		p.advance()
		return &ast.ParameterExpr{Name: t.text}, nil
	case p.atKeyword("TRUE"):
		p.advance()
		return &ast.LiteralExpr{Kind: "boolean", Bool: true}, nil
	case p.atKeyword("FALSE"):
		p.advance()
		return &ast.LiteralExpr{Kind: "boolean", Bool: false}, nil
	case p.atKeyword("NULL"):
		p.advance()
		return &ast.LiteralExpr{Kind: "null"}, nil
	case p.atKeyword("CASE"):
		return p.parseCase()
	case p.atKeyword("EXISTS") && p.peekPunctAt(1, "{"):
		return p.parseExistsSubquery()
	case p.atPunct("("):
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return expr, nil
	case p.atPunct("["):
		return p.parseListLiteral()
	case p.atPunct("{"):
		return p.parseMapLiteral()
	case t.kind == tokIdent || t.kind == tokKeyword:
		return p.parseIdentOrCall()
	default:
		return nil, p.errorf("unexpected token %q in expression", t.text)
	}
}

func (p *parser) parseCase() (ast.Expression, error) {
	p.advance() // CASE
	ce := &ast.CaseExpr{}
	if !p.atKeyword("WHEN") {
		test, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		ce.Test = test
	}
	for p.atKeyword("WHEN") {
		p.advance()
		cond, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("THEN"); err != nil {
			return nil, err
		}
		result, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		ce.Whens = append(ce.Whens, ast.CaseWhen{Condition: cond, Result: result})
	}
	if p.atKeyword("ELSE") {
		p.advance()
		def, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		ce.Default = def
	}
	if err := p.expectKeyword("END"); err != nil {
		return nil, err
	}
	return ce, nil
}

// parseExistsSubquery handles "EXISTS { <pattern list> [WHERE ...] }"
// (SPEC_FULL.md §13): the braces hold the same pattern-list/WHERE body a
// MATCH clause does, just without the MATCH keyword.
func (p *parser) parseExistsSubquery() (ast.Expression, error) {
	p.advance() // EXISTS
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	rc, err := p.parseReadingClauseBody(false)
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return &ast.ExistsSubqueryExpr{Patterns: rc.Patterns, Where: rc.Where}, nil
}

func (p *parser) parseListLiteral() (ast.Expression, error) {
	p.advance() // '['
	lit := &ast.ListLiteralExpr{}
	for !p.atPunct("]") && p.cur().kind != tokEOF {
		item, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		lit.Items = append(lit.Items, item)
		if !p.skipPunct(",") {
			break
		}
	}
	if err := p.expectPunct("]"); err != nil {
		return nil, err
	}
	return lit, nil
}

func (p *parser) parseMapLiteral() (ast.Expression, error) {
	p.advance() // '{'
	lit := &ast.MapLiteralExpr{Entries: make(map[string]ast.Expression)}
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
		lit.Entries[key] = val
		if !p.skipPunct(",") {
			break
		}
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return lit, nil
}

// parseIdentOrCall disambiguates "name(" (function call) and the qualified
// "ns.name(" form (gql.list_graphs, system.cache_stats) from a bare
// variable reference. A single lookahead token is enough: a qualified call
// is exactly "ident '.' ident '('", which never collides with property
// access ("var.prop" is never itself followed by '(').
func (p *parser) parseIdentOrCall() (ast.Expression, error) {
	first, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	name := first
	if p.atPunct(".") && p.isIdentLike(p.pos+1) && p.toks[p.pos+2].kind == tokPunct && p.toks[p.pos+2].text == "(" {
		p.advance() // '.'
		ns, _ := p.expectIdent()
		name = first + "." + ns
	}

	if !p.atPunct("(") {
		return &ast.VariableExpr{Name: first}, nil
	}
	p.advance() // '('
	call := &ast.FunctionCallExpr{Name: name}
	if p.atKeyword("DISTINCT") {
		p.advance()
		call.Distinct = true
	}
	for !p.atPunct(")") && p.cur().kind != tokEOF {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		if !p.skipPunct(",") {
			break
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return call, nil
}

func (p *parser) isIdentLike(idx int) bool {
	if idx >= len(p.toks) {
		return false
	}
	return p.toks[idx].kind == tokIdent || p.toks[idx].kind == tokKeyword
}
