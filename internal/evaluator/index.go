package evaluator

import (
	"time"

	"github.com/vexlang/vex/internal/ast"
	"github.com/vexlang/vex/internal/config"
	"github.com/vexlang/vex/internal/types"
)

// resolveBound turns one index bound into an absolute 0-based position.
// A from-end mark counts back from the length, so ^1 is the last element.
func resolveBound(v Value, fromEnd bool, length int, at int) (int, error) {
	i, ok := v.(*Integer)
	if !ok {
		return 0, errAt(at, "index must be an integer, got %s", v.Kind())
	}
	idx := int(i.Value)
	if fromEnd {
		idx = length - idx
	}
	return idx, nil
}

func (c *Context) evalIndex(x *ast.Index, f *Frame) (Value, error) {
	target, err := c.Eval(x.X, f)
	if err != nil {
		return nil, err
	}

	switch t := target.(type) {
	case *RealVector:
		return c.indexRealVector(x, t, f)
	case *IntVector:
		v, err := c.indexRealVector(x, &RealVector{Elems: toReals(t.Elems)}, f)
		if err != nil {
			return nil, err
		}
		return realResultToInt(v), nil
	case *ComplexVector:
		return c.indexComplexVector(x, t, f)
	case *Matrix:
		return c.indexMatrix(x, t, f)
	case *Series:
		return c.indexSeries(x, t, f)
	case *String:
		return c.indexString(x, t, f)
	}
	return nil, errAt(x.At, "%s is not indexable", target.Kind())
}

func toReals(xs []int64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}

func realResultToInt(v Value) Value {
	switch r := v.(type) {
	case *Real:
		return &Integer{Value: int64(r.Value)}
	case *RealVector:
		out := make([]int64, len(r.Elems))
		for i, e := range r.Elems {
			out[i] = int64(e)
		}
		return &IntVector{Elems: out}
	}
	return v
}

func (c *Context) boundPair(spec ast.IndexSpec, length int, f *Frame, at int) (lo, hi int, isRange bool, err error) {
	if !spec.IsRange {
		v, err := c.Eval(spec.Lo, f)
		if err != nil {
			return 0, 0, false, err
		}
		lo, err = resolveBound(v, spec.LoFromEnd, length, at)
		return lo, lo, false, err
	}
	lo, hi = 0, length
	if spec.Lo != nil {
		v, err := c.Eval(spec.Lo, f)
		if err != nil {
			return 0, 0, true, err
		}
		if lo, err = resolveBound(v, spec.LoFromEnd, length, at); err != nil {
			return 0, 0, true, err
		}
	}
	if spec.Hi != nil {
		v, err := c.Eval(spec.Hi, f)
		if err != nil {
			return 0, 0, true, err
		}
		if hi, err = resolveBound(v, spec.HiFromEnd, length, at); err != nil {
			return 0, 0, true, err
		}
	}
	return lo, hi, true, nil
}

func (c *Context) indexRealVector(x *ast.Index, v *RealVector, f *Frame) (Value, error) {
	if len(x.Specs) != 1 {
		return nil, errAt(x.At, "vector indexer takes one component, got %d", len(x.Specs))
	}
	lo, hi, isRange, err := c.boundPair(x.Specs[0], len(v.Elems), f, x.At)
	if err != nil {
		return nil, err
	}
	if !isRange {
		if lo < 0 || lo >= len(v.Elems) {
			if x.Safe {
				return &Real{Value: 0}, nil
			}
			return nil, errAt(x.At, "index %d out of range [0, %d)", lo, len(v.Elems))
		}
		return &Real{Value: v.Elems[lo]}, nil
	}
	if lo < 0 || hi > len(v.Elems) || lo > hi {
		if x.Safe {
			return &RealVector{Elems: nil}, nil
		}
		return nil, errAt(x.At, "range %d..%d out of bounds for length %d", lo, hi, len(v.Elems))
	}
	out := make([]float64, hi-lo)
	copy(out, v.Elems[lo:hi])
	return &RealVector{Elems: out}, nil
}

func (c *Context) indexComplexVector(x *ast.Index, v *ComplexVector, f *Frame) (Value, error) {
	if len(x.Specs) != 1 {
		return nil, errAt(x.At, "vector indexer takes one component, got %d", len(x.Specs))
	}
	lo, hi, isRange, err := c.boundPair(x.Specs[0], len(v.Elems), f, x.At)
	if err != nil {
		return nil, err
	}
	if !isRange {
		if lo < 0 || lo >= len(v.Elems) {
			if x.Safe {
				return &Complex{Value: 0}, nil
			}
			return nil, errAt(x.At, "index %d out of range [0, %d)", lo, len(v.Elems))
		}
		return &Complex{Value: v.Elems[lo]}, nil
	}
	if lo < 0 || hi > len(v.Elems) || lo > hi {
		return nil, errAt(x.At, "range %d..%d out of bounds for length %d", lo, hi, len(v.Elems))
	}
	out := make([]complex128, hi-lo)
	copy(out, v.Elems[lo:hi])
	return &ComplexVector{Elems: out}, nil
}

func (c *Context) indexMatrix(x *ast.Index, m *Matrix, f *Frame) (Value, error) {
	if len(x.Specs) != 2 {
		return nil, errAt(x.At, "matrix indexer takes two components, got %d", len(x.Specs))
	}
	rlo, rhi, rRange, err := c.boundPair(x.Specs[0], m.RowCount, f, x.At)
	if err != nil {
		return nil, err
	}
	clo, chi, cRange, err := c.boundPair(x.Specs[1], m.ColCount, f, x.At)
	if err != nil {
		return nil, err
	}

	checkRow := func(i int) error {
		if i < 0 || i >= m.RowCount {
			return errAt(x.At, "row index %d out of range [0, %d)", i, m.RowCount)
		}
		return nil
	}
	checkCol := func(i int) error {
		if i < 0 || i >= m.ColCount {
			return errAt(x.At, "column index %d out of range [0, %d)", i, m.ColCount)
		}
		return nil
	}

	switch {
	case !rRange && !cRange:
		if err := checkRow(rlo); err != nil {
			if x.Safe {
				return &Real{Value: 0}, nil
			}
			return nil, err
		}
		if err := checkCol(clo); err != nil {
			if x.Safe {
				return &Real{Value: 0}, nil
			}
			return nil, err
		}
		return &Real{Value: m.At(rlo, clo)}, nil
	case rRange && !cRange:
		if err := checkCol(clo); err != nil {
			return nil, err
		}
		if rlo < 0 || rhi > m.RowCount || rlo > rhi {
			return nil, errAt(x.At, "row range %d..%d out of bounds", rlo, rhi)
		}
		out := make([]float64, rhi-rlo)
		for i := range out {
			out[i] = m.At(rlo+i, clo)
		}
		return &RealVector{Elems: out}, nil
	case !rRange && cRange:
		if err := checkRow(rlo); err != nil {
			return nil, err
		}
		if clo < 0 || chi > m.ColCount || clo > chi {
			return nil, errAt(x.At, "column range %d..%d out of bounds", clo, chi)
		}
		out := make([]float64, chi-clo)
		for i := range out {
			out[i] = m.At(rlo, clo+i)
		}
		return &RealVector{Elems: out}, nil
	default:
		if rlo < 0 || rhi > m.RowCount || rlo > rhi || clo < 0 || chi > m.ColCount || clo > chi {
			return nil, errAt(x.At, "submatrix range out of bounds")
		}
		// Submatrix slices are always general: the slice window rarely lines
		// up with the diagonal, and the static kind cannot depend on runtime
		// bounds.
		out := &Matrix{RowCount: rhi - rlo, ColCount: chi - clo, Data: make([]float64, (rhi-rlo)*(chi-clo)), K: types.Matrix}
		for r := 0; r < out.RowCount; r++ {
			for cc := 0; cc < out.ColCount; cc++ {
				out.Set(r, cc, m.At(rlo+r, clo+cc))
			}
		}
		return out, nil
	}
}

// indexSeries handles both integer and date bounds. Mixing the two in one
// slice is rejected during parsing; here the bounds arrive homogeneous.
// A plain date index interpolates linearly between the surrounding points.
func (c *Context) indexSeries(x *ast.Index, s *Series, f *Frame) (Value, error) {
	if len(x.Specs) != 1 {
		return nil, errAt(x.At, "series indexer takes one component, got %d", len(x.Specs))
	}
	spec := x.Specs[0]

	// Date-typed bounds?
	dateBound := func(n ast.Node) bool {
		return n != nil && n.Kind() == types.Date
	}
	if dateBound(spec.Lo) || dateBound(spec.Hi) {
		return c.indexSeriesByDate(x, s, f)
	}

	lo, hi, isRange, err := c.boundPair(spec, len(s.Values), f, x.At)
	if err != nil {
		return nil, err
	}
	if !isRange {
		if lo < 0 || lo >= len(s.Values) {
			if x.Safe {
				return &Real{Value: 0}, nil
			}
			return nil, errAt(x.At, "index %d out of range [0, %d)", lo, len(s.Values))
		}
		return &Real{Value: s.Values[lo]}, nil
	}
	if lo < 0 || hi > len(s.Values) || lo > hi {
		return nil, errAt(x.At, "range %d..%d out of bounds for length %d", lo, hi, len(s.Values))
	}
	return &Series{Dates: s.Dates[lo:hi], Values: s.Values[lo:hi]}, nil
}

func (c *Context) indexSeriesByDate(x *ast.Index, s *Series, f *Frame) (Value, error) {
	spec := x.Specs[0]
	evalDate := func(n ast.Node, def time.Time) (time.Time, error) {
		if n == nil {
			return def, nil
		}
		v, err := c.Eval(n, f)
		if err != nil {
			return time.Time{}, err
		}
		d, ok := v.(*Date)
		if !ok {
			return time.Time{}, errAt(x.At, "series slice bound must be a date, got %s", v.Kind())
		}
		return d.Value, nil
	}

	if !spec.IsRange {
		at, err := evalDate(spec.Lo, time.Time{})
		if err != nil {
			return nil, err
		}
		return seriesAtDate(s, at, x.Safe, x.At)
	}

	lo, err := evalDate(spec.Lo, config.DateZero)
	if err != nil {
		return nil, err
	}
	hi, err := evalDate(spec.Hi, config.DateFarAway)
	if err != nil {
		return nil, err
	}
	var dates []time.Time
	var values []float64
	for i, d := range s.Dates {
		if !d.Before(lo) && !d.After(hi) {
			dates = append(dates, d)
			values = append(values, s.Values[i])
		}
	}
	return &Series{Dates: dates, Values: values}, nil
}

// seriesAtDate is the spline-style bracket call on a series: exact hit
// returns the sample, otherwise the value is interpolated linearly between
// the two surrounding samples.
func seriesAtDate(s *Series, at time.Time, safe bool, pos int) (Value, error) {
	n := len(s.Dates)
	if n == 0 || at.Before(s.Dates[0]) || at.After(s.Dates[n-1]) {
		if safe {
			return &Real{Value: 0}, nil
		}
		return nil, errAt(pos, "date %s outside series range", at.Format("2006-01-02"))
	}
	for i, d := range s.Dates {
		if d.Equal(at) {
			return &Real{Value: s.Values[i]}, nil
		}
		if d.After(at) {
			prev, next := s.Dates[i-1], d
			span := next.Sub(prev).Hours()
			frac := at.Sub(prev).Hours() / span
			return &Real{Value: s.Values[i-1] + frac*(s.Values[i]-s.Values[i-1])}, nil
		}
	}
	return &Real{Value: s.Values[n-1]}, nil
}

func (c *Context) indexString(x *ast.Index, s *String, f *Frame) (Value, error) {
	if len(x.Specs) != 1 {
		return nil, errAt(x.At, "string indexer takes one component, got %d", len(x.Specs))
	}
	runes := []rune(s.Value)
	lo, hi, isRange, err := c.boundPair(x.Specs[0], len(runes), f, x.At)
	if err != nil {
		return nil, err
	}
	if !isRange {
		if lo < 0 || lo >= len(runes) {
			if x.Safe {
				return &String{Value: ""}, nil
			}
			return nil, errAt(x.At, "index %d out of range [0, %d)", lo, len(runes))
		}
		return &String{Value: string(runes[lo])}, nil
	}
	if lo < 0 || hi > len(runes) || lo > hi {
		return nil, errAt(x.At, "range %d..%d out of bounds for length %d", lo, hi, len(runes))
	}
	return &String{Value: string(runes[lo:hi])}, nil
}
