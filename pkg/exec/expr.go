package exec

import (
	"strings"

	"github.com/nornic/gqlcore/pkg/ast"
	"github.com/nornic/gqlcore/pkg/errs"
	"github.com/nornic/gqlcore/pkg/value"
)

// eval evaluates an expression against one row's bindings and the
// statement's parameters. It never mutates the graph — property/label
// mutation is the DML executors' job, this only ever reads.
func (c *Context) eval(row Row, expr ast.Expression) (value.Value, error) {
	switch e := expr.(type) {
	case *ast.LiteralExpr:
		return evalLiteral(e), nil

	case *ast.ListLiteralExpr:
		items := make([]value.Value, len(e.Items))
		for i, item := range e.Items {
			v, err := c.eval(row, item)
			if err != nil {
				return value.Null(), err
			}
			items[i] = v
		}
		return value.List(items), nil

	case *ast.MapLiteralExpr:
		// Maps are evaluated for their side values but gqlcore has no
		// first-class map Value variant (spec.md §3's Value union has none
		// either); callers that need one (property assignment) read
		// e.Entries directly rather than going through eval.
		return value.Null(), errs.Unsupported("map literals are only valid in property position")

	case *ast.ParameterExpr:
		v, ok := c.Params[e.Name]
		if !ok {
			return value.Null(), errs.Runtime("undeclared parameter $%s", e.Name)
		}
		return v, nil

	case *ast.VariableExpr:
		v, ok := row[e.Name]
		if !ok {
			return value.Null(), nil
		}
		return v, nil

	case *ast.PropertyAccessExpr:
		base, ok := row[e.Variable]
		if !ok {
			return value.Null(), nil
		}
		if n, ok := base.AsNode(); ok {
			if p, ok := n.Properties[e.Property]; ok {
				return p, nil
			}
			return value.Null(), nil
		}
		if edge, ok := base.AsEdge(); ok {
			if p, ok := edge.Properties[e.Property]; ok {
				return p, nil
			}
			return value.Null(), nil
		}
		return value.Null(), nil

	case *ast.FunctionCallExpr:
		return c.evalCall(row, e)

	case *ast.BinaryExpr:
		return c.evalBinary(row, e)

	case *ast.UnaryExpr:
		return c.evalUnary(row, e)

	case *ast.CaseExpr:
		return c.evalCase(row, e)

	case *ast.ExistsSubqueryExpr:
		return c.evalExists(row, e)

	default:
		return value.Null(), errs.Unsupported("unsupported expression type %T", expr)
	}
}

func evalLiteral(e *ast.LiteralExpr) value.Value {
	switch e.Kind {
	case "number":
		return value.Number(e.Num)
	case "string":
		return value.String(e.Str)
	case "boolean":
		return value.Boolean(e.Bool)
	default:
		return value.Null()
	}
}

// evalCall evaluates a scalar function call. Aggregate function calls are
// never reached here directly — WITH/RETURN detect and strip them into
// accumulators before projecting a row (spec.md §9 open question (c)).
func (c *Context) evalCall(row Row, e *ast.FunctionCallExpr) (value.Value, error) {
	if c.Functions.IsAggregateName(e.Name) {
		return value.Null(), errs.Runtime("aggregate function %q used outside WITH/RETURN projection", e.Name)
	}
	args := make([]value.Value, len(e.Args))
	for i, a := range e.Args {
		v, err := c.eval(row, a)
		if err != nil {
			return value.Null(), err
		}
		args[i] = v
	}
	return c.Functions.CallScalar(e.Name, args)
}

func (c *Context) evalUnary(row Row, e *ast.UnaryExpr) (value.Value, error) {
	switch e.Operator {
	case "NOT":
		v, err := c.eval(row, e.Operand)
		if err != nil {
			return value.Null(), err
		}
		b, ok := v.AsBoolean()
		if !ok {
			return value.Null(), nil
		}
		return value.Boolean(!b), nil
	case "-":
		v, err := c.eval(row, e.Operand)
		if err != nil {
			return value.Null(), err
		}
		n, ok := v.AsNumber()
		if !ok {
			return value.Null(), errs.TypeMismatch("unary '-' expects a Number")
		}
		return value.Number(-n), nil
	case "IS NULL":
		v, err := c.eval(row, e.Operand)
		if err != nil {
			return value.Null(), err
		}
		return value.Boolean(v.IsNull()), nil
	case "IS NOT NULL":
		v, err := c.eval(row, e.Operand)
		if err != nil {
			return value.Null(), err
		}
		return value.Boolean(!v.IsNull()), nil
	default:
		return value.Null(), errs.Unsupported("unsupported unary operator %q", e.Operator)
	}
}

func (c *Context) evalBinary(row Row, e *ast.BinaryExpr) (value.Value, error) {
	// AND/OR short-circuit rather than evaluating both sides eagerly.
	switch e.Operator {
	case "AND":
		l, err := c.eval(row, e.Left)
		if err != nil {
			return value.Null(), err
		}
		if b, ok := l.AsBoolean(); ok && !b {
			return value.Boolean(false), nil
		}
		r, err := c.eval(row, e.Right)
		if err != nil {
			return value.Null(), err
		}
		lb, lok := l.AsBoolean()
		rb, rok := r.AsBoolean()
		if lok && rok {
			return value.Boolean(lb && rb), nil
		}
		return value.Null(), nil
	case "OR":
		l, err := c.eval(row, e.Left)
		if err != nil {
			return value.Null(), err
		}
		if b, ok := l.AsBoolean(); ok && b {
			return value.Boolean(true), nil
		}
		r, err := c.eval(row, e.Right)
		if err != nil {
			return value.Null(), err
		}
		lb, lok := l.AsBoolean()
		rb, rok := r.AsBoolean()
		if lok && rok {
			return value.Boolean(lb || rb), nil
		}
		return value.Null(), nil
	case "XOR":
		l, err := c.eval(row, e.Left)
		if err != nil {
			return value.Null(), err
		}
		r, err := c.eval(row, e.Right)
		if err != nil {
			return value.Null(), err
		}
		lb, lok := l.AsBoolean()
		rb, rok := r.AsBoolean()
		if lok && rok {
			return value.Boolean(lb != rb), nil
		}
		return value.Null(), nil
	}

	l, err := c.eval(row, e.Left)
	if err != nil {
		return value.Null(), err
	}
	r, err := c.eval(row, e.Right)
	if err != nil {
		return value.Null(), err
	}

	switch e.Operator {
	case "=":
		return value.Boolean(value.Equal(l, r)), nil
	case "<>":
		return value.Boolean(!value.Equal(l, r)), nil
	case "<", "<=", ">", ">=":
		return compareNumbers(e.Operator, l, r)
	case "+", "-", "*", "/", "%":
		return arithmetic(e.Operator, l, r)
	case "CONTAINS":
		ls, lok := l.AsString()
		rs, rok := r.AsString()
		if !lok || !rok {
			return value.Null(), nil
		}
		return value.Boolean(strings.Contains(ls, rs)), nil
	case "STARTS WITH":
		ls, lok := l.AsString()
		rs, rok := r.AsString()
		if !lok || !rok {
			return value.Null(), nil
		}
		return value.Boolean(strings.HasPrefix(ls, rs)), nil
	case "ENDS WITH":
		ls, lok := l.AsString()
		rs, rok := r.AsString()
		if !lok || !rok {
			return value.Null(), nil
		}
		return value.Boolean(strings.HasSuffix(ls, rs)), nil
	case "IN":
		items, ok := r.AsList()
		if !ok {
			return value.Boolean(false), nil
		}
		for _, item := range items {
			if value.Equal(l, item) {
				return value.Boolean(true), nil
			}
		}
		return value.Boolean(false), nil
	case "=~":
		return value.Null(), errs.Unsupported("regex match operator '=~' is not implemented")
	default:
		return value.Null(), errs.Unsupported("unsupported binary operator %q", e.Operator)
	}
}

func compareNumbers(op string, l, r value.Value) (value.Value, error) {
	ln, lok := l.AsNumber()
	rn, rok := r.AsNumber()
	if lok && rok {
		switch op {
		case "<":
			return value.Boolean(ln < rn), nil
		case "<=":
			return value.Boolean(ln <= rn), nil
		case ">":
			return value.Boolean(ln > rn), nil
		case ">=":
			return value.Boolean(ln >= rn), nil
		}
	}
	ls, lok := l.AsString()
	rs, rok := r.AsString()
	if lok && rok {
		switch op {
		case "<":
			return value.Boolean(ls < rs), nil
		case "<=":
			return value.Boolean(ls <= rs), nil
		case ">":
			return value.Boolean(ls > rs), nil
		case ">=":
			return value.Boolean(ls >= rs), nil
		}
	}
	return value.Null(), nil
}

func arithmetic(op string, l, r value.Value) (value.Value, error) {
	if op == "+" {
		if ls, lok := l.AsString(); lok {
			if rs, rok := r.AsString(); rok {
				return value.String(ls + rs), nil
			}
		}
	}
	ln, lok := l.AsNumber()
	rn, rok := r.AsNumber()
	if !lok || !rok {
		return value.Null(), errs.TypeMismatch("arithmetic operator %q expects Numbers", op)
	}
	switch op {
	case "+":
		return value.Number(ln + rn), nil
	case "-":
		return value.Number(ln - rn), nil
	case "*":
		return value.Number(ln * rn), nil
	case "/":
		if rn == 0 {
			return value.Null(), errs.Runtime("division by zero")
		}
		return value.Number(ln / rn), nil
	case "%":
		if rn == 0 {
			return value.Null(), errs.Runtime("modulo by zero")
		}
		return value.Number(float64(int64(ln) % int64(rn))), nil
	default:
		return value.Null(), errs.Unsupported("unsupported arithmetic operator %q", op)
	}
}

func (c *Context) evalCase(row Row, e *ast.CaseExpr) (value.Value, error) {
	if e.Test != nil {
		testVal, err := c.eval(row, e.Test)
		if err != nil {
			return value.Null(), err
		}
		for _, when := range e.Whens {
			condVal, err := c.eval(row, when.Condition)
			if err != nil {
				return value.Null(), err
			}
			if value.Equal(testVal, condVal) {
				return c.eval(row, when.Result)
			}
		}
	} else {
		for _, when := range e.Whens {
			condVal, err := c.eval(row, when.Condition)
			if err != nil {
				return value.Null(), err
			}
			if b, ok := condVal.AsBoolean(); ok && b {
				return c.eval(row, when.Result)
			}
		}
	}
	if e.Default != nil {
		return c.eval(row, e.Default)
	}
	return value.Null(), nil
}

// truthy reports whether a WHERE/CASE condition value counts as true:
// unknown (non-boolean, including Null) is always false, matching GQL's
// three-valued logic collapsing to "don't keep the row".
func truthy(v value.Value) bool {
	b, ok := v.AsBoolean()
	return ok && b
}
