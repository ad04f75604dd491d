package parser

import (
	"github.com/vexlang/vex/internal/ast"
	"github.com/vexlang/vex/internal/diagnostics"
	"github.com/vexlang/vex/internal/token"
	"github.com/vexlang/vex/internal/types"
)

func (p *Parser) parseAdditive() ast.Node {
	l := p.parseMultiplicative()
	for p.at(token.PLUS) || p.at(token.MINUS) {
		tok := p.next()
		op := ast.OpAdd
		if tok.Type == token.MINUS {
			op = ast.OpSub
		}
		l = p.makeBinary(op, l, p.parseMultiplicative(), tok)
	}
	return l
}

func (p *Parser) parseMultiplicative() ast.Node {
	l := p.parseUnary()
	for {
		var op ast.BinaryOp
		switch p.cur().Type {
		case token.ASTERISK:
			op = ast.OpMul
		case token.SLASH:
			op = ast.OpDiv
		case token.MOD:
			op = ast.OpMod
		case token.DOT_STAR:
			op = ast.OpPointMul
		case token.DOT_DIV:
			op = ast.OpPointDiv
		default:
			return l
		}
		tok := p.next()
		r := p.parseUnary()
		if op == ast.OpPointMul || op == ast.OpPointDiv {
			l = p.makePointwise(op, l, r, tok)
		} else {
			l = p.makeBinary(op, l, r, tok)
		}
	}
}

func (p *Parser) makePointwise(op ast.BinaryOp, l, r ast.Node, tok token.Token) ast.Node {
	k := pointwiseKind(l.Kind(), r.Kind())
	if k == types.Invalid {
		p.fail(diagnostics.ErrType, tok, "operator %s not defined for %s and %s", op, l.Kind(), r.Kind())
	}
	return &ast.Binary{Op: op, L: l, R: r, K: k, At: tok.Pos}
}

func (p *Parser) parseUnary() ast.Node {
	switch p.cur().Type {
	case token.PLUS:
		tok := p.next()
		x := p.parseUnary()
		if !types.Negatable(x.Kind()) {
			p.fail(diagnostics.ErrType, tok, "unary + applied to %s", x.Kind())
		}
		return x
	case token.MINUS:
		tok := p.next()
		x := p.parseUnary()
		if !types.Negatable(x.Kind()) {
			p.fail(diagnostics.ErrType, tok, "unary - applied to %s", x.Kind())
		}
		if c, ok := x.(*ast.Const); ok {
			switch v := c.Value.(type) {
			case int64:
				return &ast.Const{K: c.K, Value: -v, At: tok.Pos}
			case float64:
				return &ast.Const{K: c.K, Value: -v, At: tok.Pos}
			case complex128:
				return &ast.Const{K: c.K, Value: -v, At: tok.Pos}
			}
		}
		return &ast.Unary{Op: ast.OpNeg, X: x, K: x.Kind(), At: tok.Pos}
	}
	return p.parsePower()
}

// parsePower handles the right-associative exponent and the postfix squared
// marker. Literal small exponents are unrolled by the optimizer.
func (p *Parser) parsePower() ast.Node {
	base := p.parseFactor()
	for {
		switch p.cur().Type {
		case token.SQUARED:
			tok := p.next()
			base = p.makePower(base, &ast.Const{K: types.Integer, Value: int64(2), At: tok.Pos}, tok)
		case token.CARET:
			tok := p.next()
			// Right associative: the exponent swallows any further powers.
			exp := p.parseUnary()
			base = p.makePower(base, exp, tok)
		default:
			return base
		}
	}
}
