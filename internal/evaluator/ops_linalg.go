package evaluator

import (
	"math"
	"math/rand"
	"sort"

	"github.com/vexlang/vex/internal/types"
)

func argVec(args []Value, i, at int) (*RealVector, error) {
	if i >= len(args) {
		return nil, errAt(at, "missing argument %d", i)
	}
	if v, ok := args[i].(*RealVector); ok {
		return v, nil
	}
	return nil, errAt(at, "argument %d: expected vector, got %s", i, args[i].Kind())
}

func argMat(args []Value, i, at int) (*Matrix, error) {
	if i >= len(args) {
		return nil, errAt(at, "missing argument %d", i)
	}
	if v, ok := args[i].(*Matrix); ok {
		return v, nil
	}
	return nil, errAt(at, "argument %d: expected matrix, got %s", i, args[i].Kind())
}

func vecDotPair(a, b *RealVector, at int) (Value, error) {
	if len(a.Elems) != len(b.Elems) {
		return nil, errAt(at, "vector length mismatch: %d vs %d", len(a.Elems), len(b.Elems))
	}
	var s float64
	for i := range a.Elems {
		s += a.Elems[i] * b.Elems[i]
	}
	return &Real{Value: s}, nil
}

func vecFold(pick func(acc, x float64) float64, init func(first float64) float64) OpFunc {
	return func(_ *Context, at int, args []Value) (Value, error) {
		v, err := argVec(args, 0, at)
		if err != nil {
			return nil, err
		}
		if len(v.Elems) == 0 {
			return nil, errAt(at, "empty vector")
		}
		acc := init(v.Elems[0])
		for _, x := range v.Elems[1:] {
			acc = pick(acc, x)
		}
		return &Real{Value: acc}, nil
	}
}

func init() {
	register(map[string]OpFunc{
		"vec.zeros": func(_ *Context, at int, args []Value) (Value, error) {
			n, err := argInt(args, 0, at)
			if err != nil {
				return nil, err
			}
			if n < 0 {
				return nil, errAt(at, "negative vector size %d", n)
			}
			return &RealVector{Elems: make([]float64, n)}, nil
		},
		"vec.ones": func(_ *Context, at int, args []Value) (Value, error) {
			n, err := argInt(args, 0, at)
			if err != nil {
				return nil, err
			}
			if n < 0 {
				return nil, errAt(at, "negative vector size %d", n)
			}
			out := make([]float64, n)
			for i := range out {
				out[i] = 1
			}
			return &RealVector{Elems: out}, nil
		},
		"vec.of": func(_ *Context, at int, args []Value) (Value, error) {
			out := make([]float64, len(args))
			for i, a := range args {
				x, ok := realOf(a)
				if !ok {
					return nil, errAt(at, "argument %d: expected real, got %s", i, a.Kind())
				}
				out[i] = x
			}
			return &RealVector{Elems: out}, nil
		},
		"vec.basis": func(_ *Context, at int, args []Value) (Value, error) {
			n, err := argInt(args, 0, at)
			if err != nil {
				return nil, err
			}
			i, err := argInt(args, 1, at)
			if err != nil {
				return nil, err
			}
			if i < 0 || i >= n {
				return nil, errAt(at, "basis index %d out of range [0, %d)", i, n)
			}
			out := make([]float64, n)
			out[i] = 1
			return &RealVector{Elems: out}, nil
		},
		"rand.vector": func(_ *Context, at int, args []Value) (Value, error) {
			n, err := argInt(args, 0, at)
			if err != nil {
				return nil, err
			}
			seed, err := argInt(args, 1, at)
			if err != nil {
				return nil, err
			}
			rng := rand.New(rand.NewSource(seed))
			out := make([]float64, n)
			for i := range out {
				out[i] = rng.Float64()
			}
			return &RealVector{Elems: out}, nil
		},
		"rand.matrix": func(_ *Context, at int, args []Value) (Value, error) {
			n, err := argInt(args, 0, at)
			if err != nil {
				return nil, err
			}
			m, err := argInt(args, 1, at)
			if err != nil {
				return nil, err
			}
			seed, err := argInt(args, 2, at)
			if err != nil {
				return nil, err
			}
			rng := rand.New(rand.NewSource(seed))
			out := make([]float64, n*m)
			for i := range out {
				out[i] = rng.Float64()
			}
			return &Matrix{RowCount: int(n), ColCount: int(m), Data: out, K: types.Matrix}, nil
		},

		"vec.length": func(_ *Context, at int, args []Value) (Value, error) {
			v, err := argVec(args, 0, at)
			if err != nil {
				return nil, err
			}
			return &Integer{Value: int64(len(v.Elems))}, nil
		},
		"vec.first": vecFold(func(acc, _ float64) float64 { return acc }, func(f float64) float64 { return f }),
		"vec.last": func(_ *Context, at int, args []Value) (Value, error) {
			v, err := argVec(args, 0, at)
			if err != nil {
				return nil, err
			}
			if len(v.Elems) == 0 {
				return nil, errAt(at, "empty vector")
			}
			return &Real{Value: v.Elems[len(v.Elems)-1]}, nil
		},
		"vec.sum": vecFold(func(acc, x float64) float64 { return acc + x }, func(f float64) float64 { return f }),
		"vec.min": vecFold(math.Min, func(f float64) float64 { return f }),
		"vec.max": vecFold(math.Max, func(f float64) float64 { return f }),
		"vec.mean": func(_ *Context, at int, args []Value) (Value, error) {
			v, err := argVec(args, 0, at)
			if err != nil {
				return nil, err
			}
			if len(v.Elems) == 0 {
				return nil, errAt(at, "empty vector")
			}
			var s float64
			for _, x := range v.Elems {
				s += x
			}
			return &Real{Value: s / float64(len(v.Elems))}, nil
		},
		"vec.norm": func(_ *Context, at int, args []Value) (Value, error) {
			v, err := argVec(args, 0, at)
			if err != nil {
				return nil, err
			}
			var s float64
			for _, x := range v.Elems {
				s += x * x
			}
			return &Real{Value: math.Sqrt(s)}, nil
		},
		"vec.dot": func(_ *Context, at int, args []Value) (Value, error) {
			a, err := argVec(args, 0, at)
			if err != nil {
				return nil, err
			}
			b, err := argVec(args, 1, at)
			if err != nil {
				return nil, err
			}
			return vecDotPair(a, b, at)
		},
		// vec.dotself is the repeated-operand shortcut for v*v.
		"vec.dotself": func(_ *Context, at int, args []Value) (Value, error) {
			v, err := argVec(args, 0, at)
			if err != nil {
				return nil, err
			}
			return vecDotPair(v, v, at)
		},
		// vec.stats bundles the summary reductions into one record result.
		"vec.stats": func(_ *Context, at int, args []Value) (Value, error) {
			v, err := argVec(args, 0, at)
			if err != nil {
				return nil, err
			}
			if len(v.Elems) == 0 {
				return nil, errAt(at, "empty vector")
			}
			lo, hi, sum := v.Elems[0], v.Elems[0], 0.0
			for _, x := range v.Elems {
				lo, hi = math.Min(lo, x), math.Max(hi, x)
				sum += x
			}
			return &Record{Fields: map[string]Value{
				"count": &Integer{Value: int64(len(v.Elems))},
				"min":   &Real{Value: lo},
				"max":   &Real{Value: hi},
				"mean":  &Real{Value: sum / float64(len(v.Elems))},
			}}, nil
		},
		"vec.sort": func(_ *Context, at int, args []Value) (Value, error) {
			v, err := argVec(args, 0, at)
			if err != nil {
				return nil, err
			}
			out := append([]float64(nil), v.Elems...)
			sort.Float64s(out)
			return &RealVector{Elems: out}, nil
		},
		"vec.reverse": func(_ *Context, at int, args []Value) (Value, error) {
			v, err := argVec(args, 0, at)
			if err != nil {
				return nil, err
			}
			out := make([]float64, len(v.Elems))
			for i, x := range v.Elems {
				out[len(out)-1-i] = x
			}
			return &RealVector{Elems: out}, nil
		},
		"vec.cumsum": func(_ *Context, at int, args []Value) (Value, error) {
			v, err := argVec(args, 0, at)
			if err != nil {
				return nil, err
			}
			out := make([]float64, len(v.Elems))
			var s float64
			for i, x := range v.Elems {
				s += x
				out[i] = s
			}
			return &RealVector{Elems: out}, nil
		},

		// vec.axpby is the fused combined-update call for
		// (a*x) + (b*y); subtraction arrives with b negated by the
		// optimizer.
		"vec.axpby": func(_ *Context, at int, args []Value) (Value, error) {
			a, err := argReal(args, 0, at)
			if err != nil {
				return nil, err
			}
			x, err := argVec(args, 1, at)
			if err != nil {
				return nil, err
			}
			b, err := argReal(args, 2, at)
			if err != nil {
				return nil, err
			}
			y, err := argVec(args, 3, at)
			if err != nil {
				return nil, err
			}
			if len(x.Elems) != len(y.Elems) {
				return nil, errAt(at, "vector length mismatch: %d vs %d", len(x.Elems), len(y.Elems))
			}
			out := make([]float64, len(x.Elems))
			for i := range out {
				out[i] = a*x.Elems[i] + b*y.Elems[i]
			}
			return &RealVector{Elems: out}, nil
		},
		// vec.axpy fuses (a*x) + y; subtraction arrives with a negated y
		// sign argument.
		"vec.axpy": func(_ *Context, at int, args []Value) (Value, error) {
			a, err := argReal(args, 0, at)
			if err != nil {
				return nil, err
			}
			x, err := argVec(args, 1, at)
			if err != nil {
				return nil, err
			}
			sign, err := argReal(args, 2, at)
			if err != nil {
				return nil, err
			}
			y, err := argVec(args, 3, at)
			if err != nil {
				return nil, err
			}
			if len(x.Elems) != len(y.Elems) {
				return nil, errAt(at, "vector length mismatch: %d vs %d", len(x.Elems), len(y.Elems))
			}
			out := make([]float64, len(x.Elems))
			for i := range out {
				out[i] = a*x.Elems[i] + sign*y.Elems[i]
			}
			return &RealVector{Elems: out}, nil
		},
		// mat.gaxpy fuses (A*x) + (b*y) into one update pass.
		"mat.gaxpy": func(_ *Context, at int, args []Value) (Value, error) {
			m, err := argMat(args, 0, at)
			if err != nil {
				return nil, err
			}
			x, err := argVec(args, 1, at)
			if err != nil {
				return nil, err
			}
			b, err := argReal(args, 2, at)
			if err != nil {
				return nil, err
			}
			y, err := argVec(args, 3, at)
			if err != nil {
				return nil, err
			}
			if m.ColCount != len(x.Elems) || m.RowCount != len(y.Elems) {
				return nil, errAt(at, "matrix/vector size mismatch")
			}
			out := make([]float64, m.RowCount)
			for r := 0; r < m.RowCount; r++ {
				s := b * y.Elems[r]
				for c := 0; c < m.ColCount; c++ {
					s += m.At(r, c) * x.Elems[c]
				}
				out[r] = s
			}
			return &RealVector{Elems: out}, nil
		},
		// mat.tmulvec computes transpose(A)*x without materializing the
		// transpose.
		"mat.tmulvec": func(_ *Context, at int, args []Value) (Value, error) {
			m, err := argMat(args, 0, at)
			if err != nil {
				return nil, err
			}
			x, err := argVec(args, 1, at)
			if err != nil {
				return nil, err
			}
			if m.RowCount != len(x.Elems) {
				return nil, errAt(at, "matrix/vector size mismatch")
			}
			out := make([]float64, m.ColCount)
			for c := 0; c < m.ColCount; c++ {
				var s float64
				for r := 0; r < m.RowCount; r++ {
					s += m.At(r, c) * x.Elems[r]
				}
				out[c] = s
			}
			return &RealVector{Elems: out}, nil
		},
		// mat.multrans computes A*transpose(B) in one pass.
		"mat.multrans": func(_ *Context, at int, args []Value) (Value, error) {
			a, err := argMat(args, 0, at)
			if err != nil {
				return nil, err
			}
			b, err := argMat(args, 1, at)
			if err != nil {
				return nil, err
			}
			if a.ColCount != b.ColCount {
				return nil, errAt(at, "matrix size mismatch: %dx%d times transpose of %dx%d", a.RowCount, a.ColCount, b.RowCount, b.ColCount)
			}
			out := &Matrix{RowCount: a.RowCount, ColCount: b.RowCount, Data: make([]float64, a.RowCount*b.RowCount), K: types.Matrix}
			for r := 0; r < a.RowCount; r++ {
				for c := 0; c < b.RowCount; c++ {
					var s float64
					for k := 0; k < a.ColCount; k++ {
						s += a.At(r, k) * b.At(c, k)
					}
					out.Set(r, c, s)
				}
			}
			return out, nil
		},
		// mat.square is the dedicated call for a matrix base with literal
		// exponent 2; it covers the triangular kinds as well.
		"mat.square": func(_ *Context, at int, args []Value) (Value, error) {
			m, err := argMat(args, 0, at)
			if err != nil {
				return nil, err
			}
			if m.RowCount != m.ColCount {
				return nil, errAt(at, "cannot square a %dx%d matrix", m.RowCount, m.ColCount)
			}
			return matMul(m, m, at)
		},

		"mat.identity": func(_ *Context, at int, args []Value) (Value, error) {
			n, err := argInt(args, 0, at)
			if err != nil {
				return nil, err
			}
			out := &Matrix{RowCount: int(n), ColCount: int(n), Data: make([]float64, n*n), K: types.Matrix}
			for i := 0; i < int(n); i++ {
				out.Set(i, i, 1)
			}
			return out, nil
		},
		"mat.zeros": func(_ *Context, at int, args []Value) (Value, error) {
			n, err := argInt(args, 0, at)
			if err != nil {
				return nil, err
			}
			m, err := argInt(args, 1, at)
			if err != nil {
				return nil, err
			}
			return &Matrix{RowCount: int(n), ColCount: int(m), Data: make([]float64, n*m), K: types.Matrix}, nil
		},
		"mat.diag": func(_ *Context, at int, args []Value) (Value, error) {
			v, err := argVec(args, 0, at)
			if err != nil {
				return nil, err
			}
			n := len(v.Elems)
			out := &Matrix{RowCount: n, ColCount: n, Data: make([]float64, n*n), K: types.Matrix}
			for i, x := range v.Elems {
				out.Set(i, i, x)
			}
			return out, nil
		},
		"mat.lower": matTriangle(types.LowerMatrix),
		"mat.upper": matTriangle(types.UpperMatrix),
		"mat.rows": func(_ *Context, at int, args []Value) (Value, error) {
			m, err := argMat(args, 0, at)
			if err != nil {
				return nil, err
			}
			return &Integer{Value: int64(m.RowCount)}, nil
		},
		"mat.cols": func(_ *Context, at int, args []Value) (Value, error) {
			m, err := argMat(args, 0, at)
			if err != nil {
				return nil, err
			}
			return &Integer{Value: int64(m.ColCount)}, nil
		},
		"mat.row": func(_ *Context, at int, args []Value) (Value, error) {
			m, err := argMat(args, 0, at)
			if err != nil {
				return nil, err
			}
			r, err := argInt(args, 1, at)
			if err != nil {
				return nil, err
			}
			if r < 0 || int(r) >= m.RowCount {
				return nil, errAt(at, "row index %d out of range [0, %d)", r, m.RowCount)
			}
			out := make([]float64, m.ColCount)
			for c := range out {
				out[c] = m.At(int(r), c)
			}
			return &RealVector{Elems: out}, nil
		},
		"mat.col": func(_ *Context, at int, args []Value) (Value, error) {
			m, err := argMat(args, 0, at)
			if err != nil {
				return nil, err
			}
			c, err := argInt(args, 1, at)
			if err != nil {
				return nil, err
			}
			if c < 0 || int(c) >= m.ColCount {
				return nil, errAt(at, "column index %d out of range [0, %d)", c, m.ColCount)
			}
			out := make([]float64, m.RowCount)
			for r := range out {
				out[r] = m.At(r, int(c))
			}
			return &RealVector{Elems: out}, nil
		},
		"mat.transpose": func(_ *Context, at int, args []Value) (Value, error) {
			m, err := argMat(args, 0, at)
			if err != nil {
				return nil, err
			}
			return transpose(m, at)
		},
		"mat.trace": func(_ *Context, at int, args []Value) (Value, error) {
			m, err := argMat(args, 0, at)
			if err != nil {
				return nil, err
			}
			if m.RowCount != m.ColCount {
				return nil, errAt(at, "trace of a %dx%d matrix", m.RowCount, m.ColCount)
			}
			var s float64
			for i := 0; i < m.RowCount; i++ {
				s += m.At(i, i)
			}
			return &Real{Value: s}, nil
		},
		"mat.det": func(_ *Context, at int, args []Value) (Value, error) {
			m, err := argMat(args, 0, at)
			if err != nil {
				return nil, err
			}
			if m.RowCount != m.ColCount {
				return nil, errAt(at, "determinant of a %dx%d matrix", m.RowCount, m.ColCount)
			}
			det, _, err := luFactor(m, at)
			if err != nil {
				return nil, err
			}
			return &Real{Value: det}, nil
		},
		"mat.solve": func(_ *Context, at int, args []Value) (Value, error) {
			m, err := argMat(args, 0, at)
			if err != nil {
				return nil, err
			}
			b, err := argVec(args, 1, at)
			if err != nil {
				return nil, err
			}
			return matSolve(m, b, at)
		},
	})
}

func matTriangle(k types.Kind) OpFunc {
	lower := k == types.LowerMatrix
	return func(_ *Context, at int, args []Value) (Value, error) {
		m, err := argMat(args, 0, at)
		if err != nil {
			return nil, err
		}
		if m.RowCount != m.ColCount {
			return nil, errAt(at, "triangular part of a %dx%d matrix", m.RowCount, m.ColCount)
		}
		out := &Matrix{RowCount: m.RowCount, ColCount: m.ColCount, Data: make([]float64, len(m.Data)), K: k}
		for r := 0; r < m.RowCount; r++ {
			for c := 0; c < m.ColCount; c++ {
				if (lower && c <= r) || (!lower && c >= r) {
					out.Set(r, c, m.At(r, c))
				}
			}
		}
		return out, nil
	}
}

// luFactor runs Gaussian elimination with partial pivoting and returns the
// determinant plus the factored copy.
func luFactor(m *Matrix, at int) (float64, *Matrix, error) {
	n := m.RowCount
	a := &Matrix{RowCount: n, ColCount: n, Data: append([]float64(nil), m.Data...), K: types.Matrix}
	det := 1.0
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a.At(r, col)) > math.Abs(a.At(pivot, col)) {
				pivot = r
			}
		}
		if a.At(pivot, col) == 0 {
			return 0, a, nil
		}
		if pivot != col {
			for c := 0; c < n; c++ {
				tmp := a.At(col, c)
				a.Set(col, c, a.At(pivot, c))
				a.Set(pivot, c, tmp)
			}
			det = -det
		}
		det *= a.At(col, col)
		for r := col + 1; r < n; r++ {
			f := a.At(r, col) / a.At(col, col)
			for c := col; c < n; c++ {
				a.Set(r, c, a.At(r, c)-f*a.At(col, c))
			}
		}
	}
	return det, a, nil
}

func matSolve(m *Matrix, b *RealVector, at int) (Value, error) {
	n := m.RowCount
	if m.ColCount != n || len(b.Elems) != n {
		return nil, errAt(at, "solve needs a square system")
	}
	// Augmented elimination; small systems only, no factor reuse.
	a := &Matrix{RowCount: n, ColCount: n + 1, Data: make([]float64, n*(n+1)), K: types.Matrix}
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			a.Set(r, c, m.At(r, c))
		}
		a.Set(r, n, b.Elems[r])
	}
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a.At(r, col)) > math.Abs(a.At(pivot, col)) {
				pivot = r
			}
		}
		if a.At(pivot, col) == 0 {
			return nil, errAt(at, "singular matrix")
		}
		if pivot != col {
			for c := 0; c <= n; c++ {
				tmp := a.At(col, c)
				a.Set(col, c, a.At(pivot, c))
				a.Set(pivot, c, tmp)
			}
		}
		for r := col + 1; r < n; r++ {
			f := a.At(r, col) / a.At(col, col)
			for c := col; c <= n; c++ {
				a.Set(r, c, a.At(r, c)-f*a.At(col, c))
			}
		}
	}
	out := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		s := a.At(r, n)
		for c := r + 1; c < n; c++ {
			s -= a.At(r, c) * out[c]
		}
		out[r] = s / a.At(r, r)
	}
	return &RealVector{Elems: out}, nil
}
