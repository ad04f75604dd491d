package evaluator

import (
	"math"
	"time"

	"github.com/vexlang/vex/internal/ast"
	"github.com/vexlang/vex/internal/types"
)

func dateValue(raw interface{}) (*Date, bool) {
	if t, ok := raw.(time.Time); ok {
		return &Date{Value: t}, true
	}
	return nil, false
}

func (c *Context) evalBinary(x *ast.Binary, f *Frame) (Value, error) {
	// and/or short-circuit on the left operand.
	if x.Op == ast.OpAnd || x.Op == ast.OpOr {
		l, err := c.Eval(x.L, f)
		if err != nil {
			return nil, err
		}
		lb, ok := l.(*Boolean)
		if !ok {
			return nil, errAt(x.At, "%s expects boolean operands, got %s", x.Op, l.Kind())
		}
		if x.Op == ast.OpAnd && !lb.Value {
			return &Boolean{Value: false}, nil
		}
		if x.Op == ast.OpOr && lb.Value {
			return &Boolean{Value: true}, nil
		}
		r, err := c.Eval(x.R, f)
		if err != nil {
			return nil, err
		}
		rb, ok := r.(*Boolean)
		if !ok {
			return nil, errAt(x.At, "%s expects boolean operands, got %s", x.Op, r.Kind())
		}
		return &Boolean{Value: rb.Value}, nil
	}

	l, err := c.Eval(x.L, f)
	if err != nil {
		return nil, err
	}
	r, err := c.Eval(x.R, f)
	if err != nil {
		return nil, err
	}

	switch x.Op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		return arith(x.Op, l, r, x.At)
	case ast.OpPointMul, ast.OpPointDiv:
		return pointwise(x.Op, l, r, x.At)
	case ast.OpEq, ast.OpNe:
		eq, err := valuesEqual(l, r, x.At)
		if err != nil {
			return nil, err
		}
		if x.Op == ast.OpNe {
			eq = !eq
		}
		return &Boolean{Value: eq}, nil
	case ast.OpLt, ast.OpGt, ast.OpLe, ast.OpGe:
		return compare(x.Op, l, r, x.At)
	case ast.OpIn:
		return contains(l, r, x.At)
	}
	return nil, errAt(x.At, "bad binary operator")
}

// arith handles + - * / mod over the numeric shapes: scalars, scalar-scaled
// containers, matrix products and series combination.
func arith(op ast.BinaryOp, l, r Value, at int) (Value, error) {
	// Scalar-scalar first; operands arrive pre-widened to a common kind.
	switch a := l.(type) {
	case *Integer:
		if b, ok := r.(*Integer); ok {
			return intArith(op, a.Value, b.Value, at)
		}
		if bv, ok := r.(*IntVector); ok && op == ast.OpMul {
			return scaleIntVector(a.Value, bv), nil
		}
	case *Real:
		if b, ok := r.(*Real); ok {
			return realArith(op, a.Value, b.Value, at)
		}
		switch b := r.(type) {
		case *RealVector:
			if op == ast.OpMul {
				return scaleVector(a.Value, b), nil
			}
		case *Matrix:
			if op == ast.OpMul {
				return scaleMatrix(a.Value, b), nil
			}
		case *Series:
			return seriesScalar(op, b, a.Value, true, at)
		}
	case *Complex:
		if b, ok := r.(*Complex); ok {
			return complexArith(op, a.Value, b.Value, at)
		}
		if b, ok := r.(*ComplexVector); ok && op == ast.OpMul {
			return scaleComplexVector(a.Value, b), nil
		}
	case *IntVector:
		if b, ok := r.(*Integer); ok && op == ast.OpMul {
			return scaleIntVector(b.Value, a), nil
		}
		if b, ok := r.(*IntVector); ok {
			return intVectorArith(op, a, b, at)
		}
	case *RealVector:
		switch b := r.(type) {
		case *Real:
			switch op {
			case ast.OpMul:
				return scaleVector(b.Value, a), nil
			case ast.OpDiv:
				return scaleVector(1/b.Value, a), nil
			}
		case *RealVector:
			return vectorArith(op, a, b, at)
		}
	case *ComplexVector:
		if b, ok := r.(*Complex); ok && op == ast.OpMul {
			return scaleComplexVector(b.Value, a), nil
		}
		if b, ok := r.(*ComplexVector); ok {
			return complexVectorArith(op, a, b, at)
		}
	case *Matrix:
		switch b := r.(type) {
		case *Real:
			switch op {
			case ast.OpMul:
				return scaleMatrix(b.Value, a), nil
			case ast.OpDiv:
				return scaleMatrix(1/b.Value, a), nil
			}
		case *RealVector:
			if op == ast.OpMul {
				return matVec(a, b, at)
			}
		case *Matrix:
			switch op {
			case ast.OpMul:
				return matMul(a, b, at)
			case ast.OpAdd, ast.OpSub:
				return matAddSub(op, a, b, at)
			}
		}
	case *Series:
		switch b := r.(type) {
		case *Real:
			return seriesScalar(op, a, b.Value, false, at)
		case *Series:
			return seriesArith(op, a, b, at)
		}
	case *String:
		if b, ok := r.(*String); ok && op == ast.OpAdd {
			return &String{Value: a.Value + b.Value}, nil
		}
	case *Date:
		if b, ok := r.(*Date); ok && op == ast.OpSub {
			days := int64(a.Value.Sub(b.Value).Hours() / 24)
			return &Integer{Value: days}, nil
		}
	}
	return nil, errAt(at, "operator %s not defined for %s and %s", op, l.Kind(), r.Kind())
}

func intArith(op ast.BinaryOp, a, b int64, at int) (Value, error) {
	switch op {
	case ast.OpAdd:
		return &Integer{Value: a + b}, nil
	case ast.OpSub:
		return &Integer{Value: a - b}, nil
	case ast.OpMul:
		return &Integer{Value: a * b}, nil
	case ast.OpDiv:
		if b == 0 {
			return nil, errAt(at, "division by zero")
		}
		// Integer division yields a real; narrowing is never silent.
		return &Real{Value: float64(a) / float64(b)}, nil
	case ast.OpMod:
		if b == 0 {
			return nil, errAt(at, "division by zero")
		}
		return &Integer{Value: a % b}, nil
	}
	return nil, errAt(at, "bad integer operator")
}

func realArith(op ast.BinaryOp, a, b float64, at int) (Value, error) {
	switch op {
	case ast.OpAdd:
		return &Real{Value: a + b}, nil
	case ast.OpSub:
		return &Real{Value: a - b}, nil
	case ast.OpMul:
		return &Real{Value: a * b}, nil
	case ast.OpDiv:
		return &Real{Value: a / b}, nil
	case ast.OpMod:
		return &Real{Value: math.Mod(a, b)}, nil
	}
	return nil, errAt(at, "bad real operator")
}

func complexArith(op ast.BinaryOp, a, b complex128, at int) (Value, error) {
	switch op {
	case ast.OpAdd:
		return &Complex{Value: a + b}, nil
	case ast.OpSub:
		return &Complex{Value: a - b}, nil
	case ast.OpMul:
		return &Complex{Value: a * b}, nil
	case ast.OpDiv:
		return &Complex{Value: a / b}, nil
	}
	return nil, errAt(at, "operator %s not defined for complex operands", op)
}

func scaleVector(s float64, v *RealVector) *RealVector {
	out := make([]float64, len(v.Elems))
	for i, e := range v.Elems {
		out[i] = s * e
	}
	return &RealVector{Elems: out}
}

func scaleIntVector(s int64, v *IntVector) *IntVector {
	out := make([]int64, len(v.Elems))
	for i, e := range v.Elems {
		out[i] = s * e
	}
	return &IntVector{Elems: out}
}

func scaleComplexVector(s complex128, v *ComplexVector) *ComplexVector {
	out := make([]complex128, len(v.Elems))
	for i, e := range v.Elems {
		out[i] = s * e
	}
	return &ComplexVector{Elems: out}
}

func scaleMatrix(s float64, m *Matrix) *Matrix {
	out := make([]float64, len(m.Data))
	for i, e := range m.Data {
		out[i] = s * e
	}
	return &Matrix{RowCount: m.RowCount, ColCount: m.ColCount, Data: out, K: m.K}
}

func vectorArith(op ast.BinaryOp, a, b *RealVector, at int) (Value, error) {
	if op == ast.OpMul {
		// Generic vector product is the dot product; same-node products are
		// rewritten to a dedicated squared call during parsing.
		return vecDotPair(a, b, at)
	}
	if op != ast.OpAdd && op != ast.OpSub {
		return nil, errAt(at, "operator %s not defined for vectors", op)
	}
	if len(a.Elems) != len(b.Elems) {
		return nil, errAt(at, "vector length mismatch: %d vs %d", len(a.Elems), len(b.Elems))
	}
	out := make([]float64, len(a.Elems))
	for i := range a.Elems {
		if op == ast.OpAdd {
			out[i] = a.Elems[i] + b.Elems[i]
		} else {
			out[i] = a.Elems[i] - b.Elems[i]
		}
	}
	return &RealVector{Elems: out}, nil
}

func intVectorArith(op ast.BinaryOp, a, b *IntVector, at int) (Value, error) {
	if op != ast.OpAdd && op != ast.OpSub {
		return nil, errAt(at, "operator %s not defined for integer vectors", op)
	}
	if len(a.Elems) != len(b.Elems) {
		return nil, errAt(at, "vector length mismatch: %d vs %d", len(a.Elems), len(b.Elems))
	}
	out := make([]int64, len(a.Elems))
	for i := range a.Elems {
		if op == ast.OpAdd {
			out[i] = a.Elems[i] + b.Elems[i]
		} else {
			out[i] = a.Elems[i] - b.Elems[i]
		}
	}
	return &IntVector{Elems: out}, nil
}

func complexVectorArith(op ast.BinaryOp, a, b *ComplexVector, at int) (Value, error) {
	if op != ast.OpAdd && op != ast.OpSub {
		return nil, errAt(at, "operator %s not defined for complex vectors", op)
	}
	if len(a.Elems) != len(b.Elems) {
		return nil, errAt(at, "vector length mismatch: %d vs %d", len(a.Elems), len(b.Elems))
	}
	out := make([]complex128, len(a.Elems))
	for i := range a.Elems {
		if op == ast.OpAdd {
			out[i] = a.Elems[i] + b.Elems[i]
		} else {
			out[i] = a.Elems[i] - b.Elems[i]
		}
	}
	return &ComplexVector{Elems: out}, nil
}

func matAddSub(op ast.BinaryOp, a, b *Matrix, at int) (Value, error) {
	if a.RowCount != b.RowCount || a.ColCount != b.ColCount {
		return nil, errAt(at, "matrix size mismatch: %dx%d vs %dx%d", a.RowCount, a.ColCount, b.RowCount, b.ColCount)
	}
	out := make([]float64, len(a.Data))
	for i := range a.Data {
		if op == ast.OpAdd {
			out[i] = a.Data[i] + b.Data[i]
		} else {
			out[i] = a.Data[i] - b.Data[i]
		}
	}
	k := a.K
	if b.K != a.K {
		k = matrixJoinKind(a.K, b.K, op)
	}
	return &Matrix{RowCount: a.RowCount, ColCount: a.ColCount, Data: out, K: k}, nil
}

func matVec(m *Matrix, v *RealVector, at int) (Value, error) {
	if m.ColCount != len(v.Elems) {
		return nil, errAt(at, "matrix/vector size mismatch: %dx%d vs %d", m.RowCount, m.ColCount, len(v.Elems))
	}
	out := make([]float64, m.RowCount)
	for r := 0; r < m.RowCount; r++ {
		var s float64
		for c := 0; c < m.ColCount; c++ {
			s += m.At(r, c) * v.Elems[c]
		}
		out[r] = s
	}
	return &RealVector{Elems: out}, nil
}

func matMul(a, b *Matrix, at int) (Value, error) {
	if a.ColCount != b.RowCount {
		return nil, errAt(at, "matrix size mismatch: %dx%d times %dx%d", a.RowCount, a.ColCount, b.RowCount, b.ColCount)
	}
	out := &Matrix{RowCount: a.RowCount, ColCount: b.ColCount, Data: make([]float64, a.RowCount*b.ColCount), K: matMulKind(a.K, b.K)}
	for r := 0; r < a.RowCount; r++ {
		for c := 0; c < b.ColCount; c++ {
			var s float64
			for k := 0; k < a.ColCount; k++ {
				s += a.At(r, k) * b.At(k, c)
			}
			out.Set(r, c, s)
		}
	}
	return out, nil
}

func seriesScalar(op ast.BinaryOp, s *Series, x float64, scalarLeft bool, at int) (Value, error) {
	out := make([]float64, len(s.Values))
	for i, v := range s.Values {
		a, b := v, x
		if scalarLeft {
			a, b = x, v
		}
		switch op {
		case ast.OpAdd:
			out[i] = a + b
		case ast.OpSub:
			out[i] = a - b
		case ast.OpMul:
			out[i] = a * b
		case ast.OpDiv:
			out[i] = a / b
		default:
			return nil, errAt(at, "operator %s not defined for series and real", op)
		}
	}
	return &Series{Dates: s.Dates, Values: out}, nil
}

func seriesArith(op ast.BinaryOp, a, b *Series, at int) (Value, error) {
	if len(a.Values) != len(b.Values) {
		return nil, errAt(at, "series length mismatch: %d vs %d", len(a.Values), len(b.Values))
	}
	out := make([]float64, len(a.Values))
	for i := range a.Values {
		if !a.Dates[i].Equal(b.Dates[i]) {
			return nil, errAt(at, "series dates are not aligned at position %d", i)
		}
		switch op {
		case ast.OpAdd:
			out[i] = a.Values[i] + b.Values[i]
		case ast.OpSub:
			out[i] = a.Values[i] - b.Values[i]
		case ast.OpMul:
			out[i] = a.Values[i] * b.Values[i]
		case ast.OpDiv:
			out[i] = a.Values[i] / b.Values[i]
		default:
			return nil, errAt(at, "operator %s not defined for series", op)
		}
	}
	return &Series{Dates: a.Dates, Values: out}, nil
}

func pointwise(op ast.BinaryOp, l, r Value, at int) (Value, error) {
	mul := op == ast.OpPointMul
	switch a := l.(type) {
	case *RealVector:
		b, ok := r.(*RealVector)
		if !ok {
			break
		}
		if len(a.Elems) != len(b.Elems) {
			return nil, errAt(at, "vector length mismatch: %d vs %d", len(a.Elems), len(b.Elems))
		}
		out := make([]float64, len(a.Elems))
		for i := range a.Elems {
			if mul {
				out[i] = a.Elems[i] * b.Elems[i]
			} else {
				out[i] = a.Elems[i] / b.Elems[i]
			}
		}
		return &RealVector{Elems: out}, nil
	case *Matrix:
		b, ok := r.(*Matrix)
		if !ok {
			break
		}
		if a.RowCount != b.RowCount || a.ColCount != b.ColCount {
			return nil, errAt(at, "matrix size mismatch")
		}
		out := make([]float64, len(a.Data))
		for i := range a.Data {
			if mul {
				out[i] = a.Data[i] * b.Data[i]
			} else {
				out[i] = a.Data[i] / b.Data[i]
			}
		}
		return &Matrix{RowCount: a.RowCount, ColCount: a.ColCount, Data: out, K: matrixJoinKind(a.K, b.K, op)}, nil
	case *Series:
		b, ok := r.(*Series)
		if !ok {
			break
		}
		if mul {
			return seriesArith(ast.OpMul, a, b, at)
		}
		return seriesArith(ast.OpDiv, a, b, at)
	}
	return nil, errAt(at, "operator %s not defined for %s and %s", op, l.Kind(), r.Kind())
}

// matrixJoinKind is the kind of an elementwise combination of two matrices:
// triangular shape survives only when both operands share it.
func matrixJoinKind(a, b types.Kind, _ ast.BinaryOp) types.Kind {
	if a == b {
		return a
	}
	return types.Matrix
}

// matMulKind: products of two like-shaped triangular matrices stay
// triangular; everything else is general.
func matMulKind(a, b types.Kind) types.Kind {
	if a == b && (a == types.LowerMatrix || a == types.UpperMatrix) {
		return a
	}
	return types.Matrix
}
