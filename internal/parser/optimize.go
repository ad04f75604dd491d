package parser

import (
	"math"

	"github.com/vexlang/vex/internal/ast"
	"github.com/vexlang/vex/internal/diagnostics"
	"github.com/vexlang/vex/internal/token"
	"github.com/vexlang/vex/internal/types"
)

// makeBinary builds one arithmetic node, applying the inline rewrites first:
// constant folding, vector/matrix fusion and the repeated-operand shortcut.
// There is no separate optimization pass; what this misses stays generic.
func (p *Parser) makeBinary(op ast.BinaryOp, l, r ast.Node, tok token.Token) ast.Node {
	l, r = p.arithOperands(l, r, tok)
	lk, rk := l.Kind(), r.Kind()

	if folded, ok := p.foldConst(op, l, r, tok); ok {
		return folded
	}
	if fused := p.fuse(op, l, r, tok); fused != nil {
		return fused
	}

	k := arithKind(op, lk, rk)
	if k == types.Invalid {
		p.fail(diagnostics.ErrType, tok, "operator %s not defined for %s and %s", op, lk, rk)
	}
	return &ast.Binary{Op: op, L: l, R: r, K: k, At: tok.Pos}
}

// foldConst evaluates literal-operand arithmetic at parse time.
func (p *Parser) foldConst(op ast.BinaryOp, l, r ast.Node, tok token.Token) (ast.Node, bool) {
	lc, ok1 := l.(*ast.Const)
	rc, ok2 := r.(*ast.Const)
	if !ok1 || !ok2 {
		return nil, false
	}
	switch a := lc.Value.(type) {
	case int64:
		b, ok := rc.Value.(int64)
		if !ok {
			return nil, false
		}
		switch op {
		case ast.OpAdd:
			return &ast.Const{K: types.Integer, Value: a + b, At: tok.Pos}, true
		case ast.OpSub:
			return &ast.Const{K: types.Integer, Value: a - b, At: tok.Pos}, true
		case ast.OpMul:
			return &ast.Const{K: types.Integer, Value: a * b, At: tok.Pos}, true
		case ast.OpDiv:
			if b == 0 {
				p.fail(diagnostics.ErrValue, tok, "division by zero")
			}
			return &ast.Const{K: types.Real, Value: float64(a) / float64(b), At: tok.Pos}, true
		case ast.OpMod:
			if b == 0 {
				p.fail(diagnostics.ErrValue, tok, "division by zero")
			}
			return &ast.Const{K: types.Integer, Value: a % b, At: tok.Pos}, true
		}
	case float64:
		b, ok := rc.Value.(float64)
		if !ok {
			return nil, false
		}
		switch op {
		case ast.OpAdd:
			return &ast.Const{K: types.Real, Value: a + b, At: tok.Pos}, true
		case ast.OpSub:
			return &ast.Const{K: types.Real, Value: a - b, At: tok.Pos}, true
		case ast.OpMul:
			return &ast.Const{K: types.Real, Value: a * b, At: tok.Pos}, true
		case ast.OpDiv:
			return &ast.Const{K: types.Real, Value: a / b, At: tok.Pos}, true
		case ast.OpMod:
			return &ast.Const{K: types.Real, Value: math.Mod(a, b), At: tok.Pos}, true
		}
	}
	return nil, false
}

// scalarVecMul matches an unreduced `scalar * vector` multiplication and
// returns its operands in that order.
func scalarVecMul(n ast.Node) (scalar, vec ast.Node, ok bool) {
	b, isBin := n.(*ast.Binary)
	if !isBin || b.Op != ast.OpMul {
		return nil, nil, false
	}
	if b.L.Kind() == types.Real && b.R.Kind() == types.RealVector {
		return b.L, b.R, true
	}
	if b.L.Kind() == types.RealVector && b.R.Kind() == types.Real {
		return b.R, b.L, true
	}
	return nil, nil, false
}

// matVecMul matches an unreduced `matrix * vector` multiplication.
func matVecMul(n ast.Node) (mat, vec ast.Node, ok bool) {
	b, isBin := n.(*ast.Binary)
	if !isBin || b.Op != ast.OpMul {
		return nil, nil, false
	}
	if b.L.Kind().IsMatrix() && b.R.Kind() == types.RealVector {
		return b.L, b.R, true
	}
	return nil, nil, false
}

// transposed matches a postfix-transpose of a matrix.
func transposed(n ast.Node) (ast.Node, bool) {
	u, ok := n.(*ast.Unary)
	if ok && u.Op == ast.OpTranspose && u.X.Kind().IsMatrix() {
		return u.X, true
	}
	return nil, false
}

// sameOperand reports whether l and r are the same node or references to the
// same binding, so evaluating either yields the same value.
func sameOperand(l, r ast.Node) bool {
	if l == r {
		return true
	}
	switch a := l.(type) {
	case *ast.VarRef:
		b, ok := r.(*ast.VarRef)
		return ok && a.Name == b.Name
	case *ast.LocalRef:
		b, ok := r.(*ast.LocalRef)
		return ok && a.Name == b.Name
	}
	return false
}

func negOne(at int) ast.Node  { return &ast.Const{K: types.Real, Value: -1.0, At: at} }
func plusOne(at int) ast.Node { return &ast.Const{K: types.Real, Value: 1.0, At: at} }

// fuse applies the structural rewrites. It returns nil when no shape matches
// and the generic operator node should be emitted instead.
func (p *Parser) fuse(op ast.BinaryOp, l, r ast.Node, tok token.Token) ast.Node {
	switch op {
	case ast.OpAdd, ast.OpSub:
		la, lx, lIsSV := scalarVecMul(l)
		ra, rx, rIsSV := scalarVecMul(r)
		switch {
		case lIsSV && rIsSV:
			// (a*x) ± (b*y) in one combined update.
			b := ra
			if op == ast.OpSub {
				b = &ast.Unary{Op: ast.OpNeg, X: ra, K: types.Real, At: tok.Pos}
			}
			return &ast.Call{Op: "vec.axpby", Args: []ast.Node{la, lx, b, rx}, K: types.RealVector, At: tok.Pos}
		case lIsSV && r.Kind() == types.RealVector:
			// (a*x) ± y.
			sign := plusOne(tok.Pos)
			if op == ast.OpSub {
				sign = negOne(tok.Pos)
			}
			return &ast.Call{Op: "vec.axpy", Args: []ast.Node{la, lx, sign, r}, K: types.RealVector, At: tok.Pos}
		case rIsSV && l.Kind() == types.RealVector && op == ast.OpAdd:
			// y + (a*x) commuted.
			return &ast.Call{Op: "vec.axpy", Args: []ast.Node{ra, rx, plusOne(tok.Pos), l}, K: types.RealVector, At: tok.Pos}
		}
		if op == ast.OpAdd && rIsSV {
			if m, x, isMV := matVecMul(l); isMV {
				// (A*x) + (b*y) in one matrix update pass.
				return &ast.Call{Op: "mat.gaxpy", Args: []ast.Node{m, x, ra, rx}, K: types.RealVector, At: tok.Pos}
			}
		}

	case ast.OpMul:
		if mt, ok := transposed(l); ok && r.Kind() == types.RealVector {
			// Aᵀ*x without materializing the transpose.
			return &ast.Call{Op: "mat.tmulvec", Args: []ast.Node{mt, r}, K: types.RealVector, At: tok.Pos}
		}
		if l.Kind().IsMatrix() {
			if mt, ok := transposed(r); ok {
				return &ast.Call{Op: "mat.multrans", Args: []ast.Node{l, mt}, K: types.Matrix, At: tok.Pos}
			}
		}
		if sameOperand(l, r) && l.Kind() == types.RealVector {
			// Same operand on both sides: one evaluation, one pass.
			return &ast.Call{Op: "vec.dotself", Args: []ast.Node{l}, K: types.Real, At: tok.Pos}
		}
	}
	return nil
}

// makePower compiles base^exp. Small literal integer exponents on a
// non-constant base unroll into a temporary-bound multiplication chain so
// the base evaluates exactly once; matrix and complex bases get their
// dedicated calls; everything else goes through the generic power.
func (p *Parser) makePower(base, exp ast.Node, tok token.Token) ast.Node {
	bk := base.Kind()

	if ec, ok := exp.(*ast.Const); ok {
		if n, isInt := ec.Value.(int64); isInt {
			switch {
			case bk.IsMatrix():
				if n != 2 {
					p.fail(diagnostics.ErrType, tok, "matrix power supports exponent 2 only")
				}
				k := types.Matrix
				if bk == types.LowerMatrix || bk == types.UpperMatrix {
					k = bk
				}
				return &ast.Call{Op: "mat.square", Args: []ast.Node{base}, K: k, At: tok.Pos}
			case bk == types.Complex && n == 2:
				return &ast.Call{Op: "cmath.square", Args: []ast.Node{base}, K: types.Complex, At: tok.Pos}
			case (bk == types.Integer || bk == types.Real) && n >= 2 && n <= 4:
				if bc, isConst := base.(*ast.Const); isConst {
					return p.foldPower(bc, n, tok)
				}
				return p.unrollPower(base, n, tok)
			}
		}
	}

	switch {
	case bk == types.Complex:
		return &ast.Call{Op: "cmath.pow", Args: []ast.Node{base, p.widen(exp, types.Complex, tok)}, K: types.Complex, At: tok.Pos}
	case bk == types.Integer || bk == types.Real:
		if !exp.Kind().IsNumeric() || exp.Kind() == types.Complex {
			p.fail(diagnostics.ErrType, tok, "exponent is %s, not numeric", exp.Kind())
		}
		return &ast.Call{
			Op:   "math.pow",
			Args: []ast.Node{p.widen(base, types.Real, tok), p.widen(exp, types.Real, tok)},
			K:    types.Real,
			At:   tok.Pos,
		}
	}
	p.fail(diagnostics.ErrType, tok, "cannot raise %s to a power", bk)
	return nil
}

func (p *Parser) foldPower(base *ast.Const, n int64, tok token.Token) ast.Node {
	switch v := base.Value.(type) {
	case int64:
		out := int64(1)
		for i := int64(0); i < n; i++ {
			out *= v
		}
		return &ast.Const{K: types.Integer, Value: out, At: tok.Pos}
	case float64:
		return &ast.Const{K: types.Real, Value: math.Pow(v, float64(n)), At: tok.Pos}
	}
	return base
}

// unrollPower lowers x^2, x^3 and x^4 to multiplication chains over a scoped
// temporary.
func (p *Parser) unrollPower(base ast.Node, n int64, tok token.Token) ast.Node {
	k := base.Kind()
	name := p.tmpName()
	ref := func() ast.Node { return &ast.LocalRef{Name: name, K: k, At: tok.Pos} }
	sq := &ast.Binary{Op: ast.OpMul, L: ref(), R: ref(), K: k, At: tok.Pos}

	var body ast.Node
	switch n {
	case 2:
		body = sq
	case 3:
		body = &ast.Binary{Op: ast.OpMul, L: sq, R: ref(), K: k, At: tok.Pos}
	case 4:
		inner := p.tmpName()
		iref := func() ast.Node { return &ast.LocalRef{Name: inner, K: k, At: tok.Pos} }
		body = &ast.Let{
			Name: inner,
			Init: sq,
			Body: &ast.Binary{Op: ast.OpMul, L: iref(), R: iref(), K: k, At: tok.Pos},
			At:   tok.Pos,
		}
	}
	return &ast.Let{Name: name, Init: base, Body: body, At: tok.Pos}
}
