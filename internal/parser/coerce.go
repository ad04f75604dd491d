package parser

import (
	"github.com/vexlang/vex/internal/ast"
	"github.com/vexlang/vex/internal/diagnostics"
	"github.com/vexlang/vex/internal/token"
	"github.com/vexlang/vex/internal/types"
)

// widen coerces n to kind `to`, synthesizing a conversion node when needed.
// Constants convert in place instead of growing the tree.
func (p *Parser) widen(n ast.Node, to types.Kind, tok token.Token) ast.Node {
	from := n.Kind()
	if from == to {
		return n
	}
	if c, ok := n.(*ast.Const); ok {
		if v, ok := constWiden(c.Value, to); ok {
			return &ast.Const{K: to, Value: v, At: c.At}
		}
	}
	switch {
	case from == types.Integer && to == types.Real:
		return &ast.Unary{Op: ast.OpIntToReal, X: n, K: to, At: n.Pos()}
	case (from == types.Integer || from == types.Real) && to == types.Complex:
		return &ast.Unary{Op: ast.OpToComplex, X: n, K: to, At: n.Pos()}
	case from == types.IntegerVector && to == types.RealVector:
		return &ast.Unary{Op: ast.OpVecToReal, X: n, K: to, At: n.Pos()}
	}
	p.fail(diagnostics.ErrType, tok, "cannot use %s where %s is expected", from, to)
	return nil
}

func constWiden(v interface{}, to types.Kind) (interface{}, bool) {
	switch x := v.(type) {
	case int64:
		switch to {
		case types.Real:
			return float64(x), true
		case types.Complex:
			return complex(float64(x), 0), true
		}
	case float64:
		if to == types.Complex {
			return complex(x, 0), true
		}
	}
	return nil, false
}

func (p *Parser) makeEquality(op ast.BinaryOp, l, r ast.Node, tok token.Token) ast.Node {
	lk, rk := l.Kind(), r.Kind()
	if !types.EqualityComparable(lk, rk) {
		p.fail(diagnostics.ErrType, tok, "cannot compare %s and %s", lk, rk)
	}
	if k := types.Unify(lk, rk); k != types.Invalid {
		l = p.widen(l, k, tok)
		r = p.widen(r, k, tok)
	}
	return &ast.Binary{Op: op, L: l, R: r, K: types.Boolean, At: tok.Pos}
}

func (p *Parser) makeRelational(op ast.BinaryOp, l, r ast.Node, tok token.Token) ast.Node {
	k := types.Unify(l.Kind(), r.Kind())
	if k == types.Invalid || !types.Ordered(k) {
		p.fail(diagnostics.ErrType, tok, "cannot order %s and %s", l.Kind(), r.Kind())
	}
	return &ast.Binary{Op: op, L: p.widen(l, k, tok), R: p.widen(r, k, tok), K: types.Boolean, At: tok.Pos}
}

func (p *Parser) makeMembership(l, r ast.Node, tok token.Token) ast.Node {
	rk := r.Kind()
	if !rk.IsContainer() {
		p.fail(diagnostics.ErrType, tok, "right operand of in must be a container, got %s", rk)
	}
	elem := rk.Elem()
	if !types.CanWiden(l.Kind(), elem) {
		p.fail(diagnostics.ErrType, tok, "cannot look for %s in a container of %s", l.Kind(), elem)
	}
	return &ast.Binary{Op: ast.OpIn, L: p.widen(l, elem, tok), R: r, K: types.Boolean, At: tok.Pos}
}

// arithOperands widens scalar operands toward each other or toward the other
// side's container element kind. Containers never widen implicitly.
func (p *Parser) arithOperands(l, r ast.Node, tok token.Token) (ast.Node, ast.Node) {
	lk, rk := l.Kind(), r.Kind()
	switch {
	case lk.IsNumeric() && rk.IsNumeric():
		if k := types.Unify(lk, rk); k != types.Invalid {
			return p.widen(l, k, tok), p.widen(r, k, tok)
		}
	case lk.IsNumeric() && !rk.IsNumeric():
		if e := scalarSideKind(rk); e != types.Invalid && lk != e && types.CanWiden(lk, e) {
			return p.widen(l, e, tok), r
		}
	case rk.IsNumeric() && !lk.IsNumeric():
		if e := scalarSideKind(lk); e != types.Invalid && rk != e && types.CanWiden(rk, e) {
			return l, p.widen(r, e, tok)
		}
	}
	return l, r
}

// scalarSideKind is the scalar kind that may pair with a container in
// arithmetic: real for real vectors, matrices and series, complex for complex
// vectors, integer for integer vectors.
func scalarSideKind(container types.Kind) types.Kind {
	switch {
	case container == types.RealVector || container.IsMatrix() || container == types.TimeSeries:
		return types.Real
	case container == types.ComplexVector:
		return types.Complex
	case container == types.IntegerVector:
		return types.Integer
	}
	return types.Invalid
}

// arithKind is the static mirror of the evaluator's arithmetic dispatch: it
// returns the result kind of l op r, or Invalid when the combination is not
// defined.
func arithKind(op ast.BinaryOp, lk, rk types.Kind) types.Kind {
	// Scalar pairs arrive pre-widened to a common kind.
	if lk.IsNumeric() && lk == rk {
		if lk == types.Complex && op == ast.OpMod {
			return types.Invalid
		}
		if lk == types.Integer && op == ast.OpDiv {
			return types.Real
		}
		return lk
	}

	// Scalar with container.
	if lk.IsNumeric() || rk.IsNumeric() {
		scalar, other := lk, rk
		scalarLeft := true
		if rk.IsNumeric() {
			scalar, other = rk, lk
			scalarLeft = false
		}
		switch other {
		case types.IntegerVector:
			if scalar == types.Integer && op == ast.OpMul {
				return types.IntegerVector
			}
		case types.RealVector:
			if scalar != types.Real {
				return types.Invalid
			}
			if op == ast.OpMul || (op == ast.OpDiv && !scalarLeft) {
				return types.RealVector
			}
		case types.ComplexVector:
			if scalar == types.Complex && op == ast.OpMul {
				return types.ComplexVector
			}
		case types.Matrix, types.LowerMatrix, types.UpperMatrix:
			if scalar != types.Real {
				return types.Invalid
			}
			if op == ast.OpMul || (op == ast.OpDiv && !scalarLeft) {
				return other
			}
		case types.TimeSeries:
			if scalar == types.Real && op != ast.OpMod {
				return types.TimeSeries
			}
		}
		return types.Invalid
	}

	// Container pairs and the remaining special cases.
	switch {
	case lk == types.RealVector && rk == types.RealVector:
		switch op {
		case ast.OpAdd, ast.OpSub:
			return types.RealVector
		case ast.OpMul:
			return types.Real // dot product
		}
	case lk == types.IntegerVector && rk == types.IntegerVector:
		if op == ast.OpAdd || op == ast.OpSub {
			return types.IntegerVector
		}
	case lk == types.ComplexVector && rk == types.ComplexVector:
		if op == ast.OpAdd || op == ast.OpSub {
			return types.ComplexVector
		}
	case lk.IsMatrix() && rk.IsMatrix():
		switch op {
		case ast.OpAdd, ast.OpSub:
			if lk == rk {
				return lk
			}
			return types.Matrix
		case ast.OpMul:
			if lk == rk && (lk == types.LowerMatrix || lk == types.UpperMatrix) {
				return lk
			}
			return types.Matrix
		}
	case lk.IsMatrix() && rk == types.RealVector:
		if op == ast.OpMul {
			return types.RealVector
		}
	case lk == types.TimeSeries && rk == types.TimeSeries:
		if op != ast.OpMod {
			return types.TimeSeries
		}
	case lk == types.String && rk == types.String:
		if op == ast.OpAdd {
			return types.String
		}
	case lk == types.Date && rk == types.Date:
		if op == ast.OpSub {
			return types.Integer
		}
	}
	return types.Invalid
}

// pointwiseKind is the result of .* and ./.
func pointwiseKind(lk, rk types.Kind) types.Kind {
	switch {
	case lk == types.RealVector && rk == types.RealVector:
		return types.RealVector
	case lk.IsMatrix() && rk.IsMatrix():
		if lk == rk {
			return lk
		}
		return types.Matrix
	case lk == types.TimeSeries && rk == types.TimeSeries:
		return types.TimeSeries
	}
	return types.Invalid
}
