package calc

import "github.com/aretw0/ratlab/pkg/domain"

func (n numberLit) eval(map[string]Value) (Value, error) {
	return Scalar(n.v), nil
}

func (n identRef) eval(env map[string]Value) (Value, error) {
	v, ok := env[n.name]
	if !ok {
		return Value{}, domain.NewEvaluationError(kindName, "%s is not defined", n.name)
	}
	return v, nil
}

func (n negExpr) eval(env map[string]Value) (Value, error) {
	v, err := n.x.eval(env)
	if err != nil {
		return Value{}, err
	}
	return negate(v), nil
}

func (n binExpr) eval(env map[string]Value) (Value, error) {
	l, err := n.l.eval(env)
	if err != nil {
		return Value{}, err
	}
	r, err := n.r.eval(env)
	if err != nil {
		return Value{}, err
	}
	switch n.op {
	case "+":
		return add(l, r)
	case "-":
		return sub(l, r)
	case "*":
		return mul(l, r)
	case "/":
		return div(l, r)
	default: // ".*"
		return pointwiseMul(l, r)
	}
}

func (n rangeExpr) eval(env map[string]Value) (Value, error) {
	from, err := n.from.eval(env)
	if err != nil {
		return Value{}, err
	}
	to, err := n.to.eval(env)
	if err != nil {
		return Value{}, err
	}
	return span(from, to)
}

func (n matrixLit) eval(env map[string]Value) (Value, error) {
	rows := make([][]Value, 0, len(n.rows))
	for _, row := range n.rows {
		vals := make([]Value, 0, len(row))
		for _, el := range row {
			v, err := el.eval(env)
			if err != nil {
				return Value{}, err
			}
			vals = append(vals, v)
		}
		rows = append(rows, vals)
	}
	return concat(rows)
}
