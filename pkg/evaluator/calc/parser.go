package calc

import (
	"strconv"

	"github.com/aretw0/ratlab/pkg/domain"
)

// expr is a node of the expression tree.
type expr interface {
	eval(env map[string]Value) (Value, error)
}

type (
	numberLit struct{ v float64 }
	identRef  struct{ name string }
	negExpr   struct{ x expr }
	binExpr   struct {
		op   string
		l, r expr
	}
	rangeExpr struct{ from, to expr }
	matrixLit struct{ rows [][]expr }
)

// statement is a parsed line: an optional assignment target, the expression
// and whether a trailing ';' suppresses the output.
type statement struct {
	target string
	x      expr
	silent bool
}

type parser struct {
	toks []token
	pos  int
	// brackets counts open '[' not shadowed by a '('. Inside a matrix row a
	// spaced sign that touches its operand starts a new element: [1 -2].
	brackets []bool
}

func parse(toks []token) (*statement, error) {
	p := &parser{toks: toks}
	st := &statement{}

	if p.peek().kind == tokIdent && p.peekAt(1).kind == tokOp && p.peekAt(1).text == "=" {
		st.target = p.next().text
		p.next()
	}

	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	st.x = x

	if p.isOp(";") {
		p.next()
		st.silent = true
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.unexpected(t)
	}
	return st, nil
}

func (p *parser) peek() token { return p.peekAt(0) }

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() token {
	t := p.peek()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) isOp(op string) bool {
	t := p.peek()
	return t.kind == tokOp && t.text == op
}

func (p *parser) expect(op string) error {
	if !p.isOp(op) {
		return p.unexpected(p.peek())
	}
	p.next()
	return nil
}

func (p *parser) unexpected(t token) error {
	if t.kind == tokEOF {
		return domain.NewEvaluationError(kindSyntax, "unexpected end of input")
	}
	return domain.NewEvaluationError(kindSyntax, "unexpected %s at column %d", t, t.col)
}

func (p *parser) inMatrix() bool {
	return len(p.brackets) > 0 && p.brackets[len(p.brackets)-1]
}

// elementBreak reports whether the current '+' or '-' begins a new matrix
// element rather than a binary operation.
func (p *parser) elementBreak() bool {
	return p.inMatrix() && p.peek().space && !p.peekAt(1).space
}

// expr := term (('+' | '-') term)*
func (p *parser) parseExpr() (expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for (p.isOp("+") || p.isOp("-")) && !p.elementBreak() {
		op := p.next().text
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binExpr{op: op, l: left, r: right}
	}
	return left, nil
}

// term := range (('*' | '/' | '.*') range)*
func (p *parser) parseTerm() (expr, error) {
	left, err := p.parseRange()
	if err != nil {
		return nil, err
	}
	for p.isOp("*") || p.isOp("/") || p.isOp(".*") {
		op := p.next().text
		right, err := p.parseRange()
		if err != nil {
			return nil, err
		}
		left = binExpr{op: op, l: left, r: right}
	}
	return left, nil
}

// range := unary (':' unary)?
func (p *parser) parseRange() (expr, error) {
	from, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if !p.isOp(":") {
		return from, nil
	}
	p.next()
	to, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return rangeExpr{from: from, to: to}, nil
}

// unary := '-' unary | '+' unary | primary
func (p *parser) parseUnary() (expr, error) {
	if p.isOp("-") || p.isOp("+") {
		op := p.next().text
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if op == "-" {
			return negExpr{x: x}, nil
		}
		return x, nil
	}
	return p.parsePrimary()
}

// primary := NUMBER | IDENT | '(' expr ')' | matrix
func (p *parser) parsePrimary() (expr, error) {
	t := p.peek()
	switch {
	case t.kind == tokNumber:
		p.next()
		v, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, domain.NewEvaluationError(kindSyntax, "invalid number %s at column %d", t, t.col)
		}
		return numberLit{v: v}, nil
	case t.kind == tokIdent:
		p.next()
		return identRef{name: t.text}, nil
	case p.isOp("("):
		p.next()
		p.brackets = append(p.brackets, false)
		x, err := p.parseExpr()
		p.brackets = p.brackets[:len(p.brackets)-1]
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return x, nil
	case p.isOp("["):
		return p.parseMatrix()
	}
	return nil, p.unexpected(t)
}

// matrix := '[' (row (';' row)*)? ']'    row := expr (','? expr)*
func (p *parser) parseMatrix() (expr, error) {
	p.next()
	p.brackets = append(p.brackets, true)
	defer func() { p.brackets = p.brackets[:len(p.brackets)-1] }()

	m := matrixLit{}
	var row []expr
	for {
		switch {
		case p.isOp("]"):
			p.next()
			if len(row) > 0 {
				m.rows = append(m.rows, row)
			}
			return m, nil
		case p.isOp(";"):
			p.next()
			if len(row) > 0 {
				m.rows = append(m.rows, row)
			}
			row = nil
			continue
		case p.isOp(","):
			if len(row) == 0 {
				return nil, p.unexpected(p.peek())
			}
			p.next()
		}
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		row = append(row, x)
	}
}
