package evaluator

import (
	"time"

	"github.com/vexlang/vex/internal/types"
)

func argIntVec(args []Value, i, at int) (*IntVector, error) {
	if i >= len(args) {
		return nil, errAt(at, "missing argument %d", i)
	}
	if v, ok := args[i].(*IntVector); ok {
		return v, nil
	}
	return nil, errAt(at, "argument %d: expected integer vector, got %s", i, args[i].Kind())
}

func argSeries(args []Value, i, at int) (*Series, error) {
	if i >= len(args) {
		return nil, errAt(at, "missing argument %d", i)
	}
	if v, ok := args[i].(*Series); ok {
		return v, nil
	}
	return nil, errAt(at, "argument %d: expected series, got %s", i, args[i].Kind())
}

func argSeq(args []Value, i, at int) (*Sequence, error) {
	if i >= len(args) {
		return nil, errAt(at, "missing argument %d", i)
	}
	if v, ok := args[i].(*Sequence); ok {
		return v, nil
	}
	return nil, errAt(at, "argument %d: expected sequence, got %s", i, args[i].Kind())
}

func argDate(args []Value, i, at int) (time.Time, error) {
	if i >= len(args) {
		return time.Time{}, errAt(at, "missing argument %d", i)
	}
	if v, ok := args[i].(*Date); ok {
		return v.Value, nil
	}
	return time.Time{}, errAt(at, "argument %d: expected date, got %s", i, args[i].Kind())
}

// pred runs a one-argument lambda and requires a boolean result.
func (c *Context) pred(cl *Closure, at int, args ...Value) (bool, error) {
	v, err := c.call(cl, args, at)
	if err != nil {
		return false, err
	}
	b, ok := v.(*Boolean)
	if !ok {
		return false, errAt(at, "predicate returned %s, not boolean", v.Kind())
	}
	return b.Value, nil
}

// pack turns mapped elements back into the tightest vector kind that holds
// them. Mixed integer/real widens to a real vector; the fallback kind decides
// the shape of an empty result.
func pack(elems []Value, fallback types.Kind, at int) (Value, error) {
	if len(elems) == 0 {
		switch fallback {
		case types.Integer:
			return &IntVector{}, nil
		case types.Complex:
			return &ComplexVector{}, nil
		default:
			return &RealVector{}, nil
		}
	}
	allInt, anyComplex := true, false
	for _, e := range elems {
		switch e.(type) {
		case *Integer:
		case *Real:
			allInt = false
		case *Complex:
			allInt, anyComplex = false, true
		default:
			return nil, errAt(at, "mapper returned %s, not a numeric scalar", e.Kind())
		}
	}
	switch {
	case anyComplex:
		out := make([]complex128, len(elems))
		for i, e := range elems {
			switch n := e.(type) {
			case *Integer:
				out[i] = complex(float64(n.Value), 0)
			case *Real:
				out[i] = complex(n.Value, 0)
			case *Complex:
				out[i] = n.Value
			}
		}
		return &ComplexVector{Elems: out}, nil
	case allInt:
		out := make([]int64, len(elems))
		for i, e := range elems {
			out[i] = e.(*Integer).Value
		}
		return &IntVector{Elems: out}, nil
	default:
		out := make([]float64, len(elems))
		for i, e := range elems {
			switch n := e.(type) {
			case *Integer:
				out[i] = float64(n.Value)
			case *Real:
				out[i] = n.Value
			}
		}
		return &RealVector{Elems: out}, nil
	}
}

// each walks the elements of any container value. Series yield the value
// only. Sequences may be infinite; the callback's stop flag is the only way
// out.
func (c *Context) each(v Value, at int, fn func(Value) (bool, error)) error {
	step := func(e Value) (bool, error) { return fn(e) }
	switch n := v.(type) {
	case *IntVector:
		for _, e := range n.Elems {
			if stop, err := step(&Integer{Value: e}); err != nil || stop {
				return err
			}
		}
	case *RealVector:
		for _, e := range n.Elems {
			if stop, err := step(&Real{Value: e}); err != nil || stop {
				return err
			}
		}
	case *ComplexVector:
		for _, e := range n.Elems {
			if stop, err := step(&Complex{Value: e}); err != nil || stop {
				return err
			}
		}
	case *Series:
		for _, e := range n.Values {
			if stop, err := step(&Real{Value: e}); err != nil || stop {
				return err
			}
		}
	case *Sequence:
		cur := n.Start()
		for {
			e, ok := cur()
			if !ok {
				return nil
			}
			if stop, err := step(e); err != nil || stop {
				return err
			}
		}
	default:
		return errAt(at, "cannot iterate %s", v.Kind())
	}
	return nil
}

// filterMap applies optional predicate and mapper closures over a container
// and packs the results. A nil closure is the identity.
func (c *Context) filterMap(src Value, filter, mapper *Closure, at int) (Value, error) {
	var out []Value
	err := c.each(src, at, func(e Value) (bool, error) {
		if filter != nil {
			keep, err := c.pred(filter, at, e)
			if err != nil {
				return true, err
			}
			if !keep {
				return false, nil
			}
		}
		if mapper != nil {
			v, err := c.call(mapper, []Value{e}, at)
			if err != nil {
				return true, err
			}
			e = v
		}
		out = append(out, e)
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return pack(out, elemKind(src), at)
}

// elemKind reports the scalar kind a container yields when iterated.
func elemKind(v Value) types.Kind {
	switch n := v.(type) {
	case *IntVector:
		return types.Integer
	case *ComplexVector:
		return types.Complex
	case *Sequence:
		return n.Elem
	default:
		return types.Real
	}
}

func mapOp(filter, mapper bool) OpFunc {
	return func(c *Context, at int, args []Value) (Value, error) {
		var f, m *Closure
		var err error
		i := 1
		if filter {
			if f, err = argClosure(args, i, at); err != nil {
				return nil, err
			}
			i++
		}
		if mapper {
			if m, err = argClosure(args, i, at); err != nil {
				return nil, err
			}
		}
		return c.filterMap(args[0], f, m, at)
	}
}

// lazySeq wraps a sequence with predicate and mapper stages without forcing
// it.
func (c *Context) lazySeq(src *Sequence, filter, mapper *Closure, elem types.Kind, at int) *Sequence {
	return &Sequence{Elem: elem, Start: func() Cursor {
		cur := src.Start()
		return func() (Value, bool) {
			for {
				e, ok := cur()
				if !ok {
					return nil, false
				}
				if filter != nil {
					keep, err := c.pred(filter, at, e)
					if err != nil || !keep {
						if err != nil {
							return nil, false
						}
						continue
					}
				}
				if mapper != nil {
					v, err := c.call(mapper, []Value{e}, at)
					if err != nil {
						return nil, false
					}
					e = v
				}
				return e, true
			}
		}
	}}
}

func seqStage(filter, mapper bool, elem types.Kind) OpFunc {
	return func(c *Context, at int, args []Value) (Value, error) {
		src, err := argSeq(args, 0, at)
		if err != nil {
			return nil, err
		}
		var f, m *Closure
		i := 1
		if filter {
			if f, err = argClosure(args, i, at); err != nil {
				return nil, err
			}
			i++
		}
		if mapper {
			if m, err = argClosure(args, i, at); err != nil {
				return nil, err
			}
		}
		return c.lazySeq(src, f, m, elem, at), nil
	}
}

func init() {
	register(map[string]OpFunc{
		// Literal constructors emitted for bracketed literals.
		"vec.lit": func(_ *Context, at int, args []Value) (Value, error) {
			out := make([]float64, len(args))
			for i, a := range args {
				x, ok := realOf(a)
				if !ok {
					return nil, errAt(at, "element %d: expected real, got %s", i, a.Kind())
				}
				out[i] = x
			}
			return &RealVector{Elems: out}, nil
		},
		"ivec.lit": func(_ *Context, at int, args []Value) (Value, error) {
			out := make([]int64, len(args))
			for i, a := range args {
				n, ok := a.(*Integer)
				if !ok {
					return nil, errAt(at, "element %d: expected integer, got %s", i, a.Kind())
				}
				out[i] = n.Value
			}
			return &IntVector{Elems: out}, nil
		},
		"cvec.lit": func(_ *Context, at int, args []Value) (Value, error) {
			out := make([]complex128, len(args))
			for i, a := range args {
				switch n := a.(type) {
				case *Integer:
					out[i] = complex(float64(n.Value), 0)
				case *Real:
					out[i] = complex(n.Value, 0)
				case *Complex:
					out[i] = n.Value
				default:
					return nil, errAt(at, "element %d: expected complex, got %s", i, a.Kind())
				}
			}
			return &ComplexVector{Elems: out}, nil
		},
		"mat.lit": func(_ *Context, at int, args []Value) (Value, error) {
			if len(args) == 0 {
				return nil, errAt(at, "empty matrix literal")
			}
			rows := make([]*RealVector, len(args))
			for i := range args {
				r, err := argVec(args, i, at)
				if err != nil {
					return nil, err
				}
				if i > 0 && len(r.Elems) != len(rows[0].Elems) {
					return nil, errAt(at, "row %d has %d element(s), expected %d", i, len(r.Elems), len(rows[0].Elems))
				}
				rows[i] = r
			}
			cols := len(rows[0].Elems)
			out := &Matrix{RowCount: len(rows), ColCount: cols, Data: make([]float64, len(rows)*cols), K: types.Matrix}
			for r, row := range rows {
				for c, x := range row.Elems {
					out.Set(r, c, x)
				}
			}
			return out, nil
		},
		// Range values are inclusive on both ends; the optional third argument
		// is the step.
		"range.int": func(_ *Context, at int, args []Value) (Value, error) {
			lo, err := argInt(args, 0, at)
			if err != nil {
				return nil, err
			}
			hi, err := argInt(args, 1, at)
			if err != nil {
				return nil, err
			}
			step := int64(1)
			if len(args) > 2 {
				if step, err = argInt(args, 2, at); err != nil {
					return nil, err
				}
			}
			if step <= 0 {
				return nil, errAt(at, "range step must be positive, got %d", step)
			}
			var out []int64
			for i := lo; i <= hi; i += step {
				out = append(out, i)
			}
			return &IntVector{Elems: out}, nil
		},
		"range.real": func(_ *Context, at int, args []Value) (Value, error) {
			lo, err := argReal(args, 0, at)
			if err != nil {
				return nil, err
			}
			hi, err := argReal(args, 1, at)
			if err != nil {
				return nil, err
			}
			step := 1.0
			if len(args) > 2 {
				if step, err = argReal(args, 2, at); err != nil {
					return nil, err
				}
			}
			if step <= 0 {
				return nil, errAt(at, "range step must be positive, got %g", step)
			}
			var out []float64
			for x := lo; x <= hi+step/2; x += step {
				out = append(out, x)
			}
			return &RealVector{Elems: out}, nil
		},

		"vec.map":        mapOp(false, true),
		"vec.filter":     mapOp(true, false),
		"vec.filtermap":  mapOp(true, true),
		"ivec.map":       mapOp(false, true),
		"ivec.filter":    mapOp(true, false),
		"ivec.filtermap": mapOp(true, true),
		"vec.count": func(c *Context, at int, args []Value) (Value, error) {
			cl, err := argClosure(args, 1, at)
			if err != nil {
				return nil, err
			}
			var n int64
			err = c.each(args[0], at, func(e Value) (bool, error) {
				keep, err := c.pred(cl, at, e)
				if err != nil {
					return true, err
				}
				if keep {
					n++
				}
				return false, nil
			})
			if err != nil {
				return nil, err
			}
			return &Integer{Value: n}, nil
		},
		"agg.any": func(c *Context, at int, args []Value) (Value, error) {
			cl, err := argClosure(args, 1, at)
			if err != nil {
				return nil, err
			}
			found := false
			err = c.each(args[0], at, func(e Value) (bool, error) {
				hit, err := c.pred(cl, at, e)
				if err != nil {
					return true, err
				}
				found = hit
				return hit, nil
			})
			if err != nil {
				return nil, err
			}
			return &Boolean{Value: found}, nil
		},
		"agg.all": func(c *Context, at int, args []Value) (Value, error) {
			cl, err := argClosure(args, 1, at)
			if err != nil {
				return nil, err
			}
			all := true
			err = c.each(args[0], at, func(e Value) (bool, error) {
				hit, err := c.pred(cl, at, e)
				if err != nil {
					return true, err
				}
				all = hit
				return !hit, nil
			})
			if err != nil {
				return nil, err
			}
			return &Boolean{Value: all}, nil
		},

		"ivec.length": func(_ *Context, at int, args []Value) (Value, error) {
			v, err := argIntVec(args, 0, at)
			if err != nil {
				return nil, err
			}
			return &Integer{Value: int64(len(v.Elems))}, nil
		},
		"ivec.sum": func(_ *Context, at int, args []Value) (Value, error) {
			v, err := argIntVec(args, 0, at)
			if err != nil {
				return nil, err
			}
			var s int64
			for _, x := range v.Elems {
				s += x
			}
			return &Integer{Value: s}, nil
		},
		"ivec.toreal": func(_ *Context, at int, args []Value) (Value, error) {
			v, err := argIntVec(args, 0, at)
			if err != nil {
				return nil, err
			}
			out := make([]float64, len(v.Elems))
			for i, x := range v.Elems {
				out[i] = float64(x)
			}
			return &RealVector{Elems: out}, nil
		},
		"cvec.length": func(_ *Context, at int, args []Value) (Value, error) {
			v, ok := args[0].(*ComplexVector)
			if !ok {
				return nil, errAt(at, "expected complex vector, got %s", args[0].Kind())
			}
			return &Integer{Value: int64(len(v.Elems))}, nil
		},

		"ser.of": func(_ *Context, at int, args []Value) (Value, error) {
			start, err := argDate(args, 0, at)
			if err != nil {
				return nil, err
			}
			v, err := argVec(args, 1, at)
			if err != nil {
				return nil, err
			}
			dates := make([]time.Time, len(v.Elems))
			for i := range dates {
				dates[i] = start.AddDate(0, 0, i)
			}
			return &Series{Dates: dates, Values: append([]float64(nil), v.Elems...)}, nil
		},
		"ser.constant": func(_ *Context, at int, args []Value) (Value, error) {
			from, err := argDate(args, 0, at)
			if err != nil {
				return nil, err
			}
			to, err := argDate(args, 1, at)
			if err != nil {
				return nil, err
			}
			x, err := argReal(args, 2, at)
			if err != nil {
				return nil, err
			}
			if to.Before(from) {
				return nil, errAt(at, "series end date precedes start date")
			}
			var dates []time.Time
			var vals []float64
			for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
				dates = append(dates, d)
				vals = append(vals, x)
			}
			return &Series{Dates: dates, Values: vals}, nil
		},
		"ser.length": func(_ *Context, at int, args []Value) (Value, error) {
			s, err := argSeries(args, 0, at)
			if err != nil {
				return nil, err
			}
			return &Integer{Value: int64(len(s.Values))}, nil
		},
		"ser.first":     serEdge(false, false),
		"ser.last":      serEdge(true, false),
		"ser.firstdate": serEdge(false, true),
		"ser.lastdate":  serEdge(true, true),
		"ser.values": func(_ *Context, at int, args []Value) (Value, error) {
			s, err := argSeries(args, 0, at)
			if err != nil {
				return nil, err
			}
			return &RealVector{Elems: append([]float64(nil), s.Values...)}, nil
		},
		"ser.sum": func(_ *Context, at int, args []Value) (Value, error) {
			s, err := argSeries(args, 0, at)
			if err != nil {
				return nil, err
			}
			var sum float64
			for _, x := range s.Values {
				sum += x
			}
			return &Real{Value: sum}, nil
		},
		"ser.mean": func(_ *Context, at int, args []Value) (Value, error) {
			s, err := argSeries(args, 0, at)
			if err != nil {
				return nil, err
			}
			if len(s.Values) == 0 {
				return nil, errAt(at, "empty series")
			}
			var sum float64
			for _, x := range s.Values {
				sum += x
			}
			return &Real{Value: sum / float64(len(s.Values))}, nil
		},
		"ser.map":       serStage(false, true),
		"ser.filter":    serStage(true, false),
		"ser.filtermap": serStage(true, true),

		"seq.naturals": func(_ *Context, _ int, _ []Value) (Value, error) {
			return &Sequence{Elem: types.Integer, Start: func() Cursor {
				var n int64
				return func() (Value, bool) {
					v := &Integer{Value: n}
					n++
					return v, true
				}
			}}, nil
		},
		"seq.arithmetic": seqProgression(func(a, d, x float64) float64 { return x + d }),
		"seq.geometric":  seqProgression(func(a, r, x float64) float64 { return x * r }),
		"seq.map":        seqStage(false, true, types.Real),
		"seq.filter":     seqStage(true, false, types.Real),
		"seq.filtermap":  seqStage(true, true, types.Real),
		"iseq.map":       seqStage(false, true, types.Integer),
		"iseq.filter":    seqStage(true, false, types.Integer),
		"iseq.filtermap": seqStage(true, true, types.Integer),
		"seq.take":       seqTake,
		"iseq.take":      seqTake,
	})
}

func serEdge(last, date bool) OpFunc {
	return func(_ *Context, at int, args []Value) (Value, error) {
		s, err := argSeries(args, 0, at)
		if err != nil {
			return nil, err
		}
		if len(s.Values) == 0 {
			return nil, errAt(at, "empty series")
		}
		i := 0
		if last {
			i = len(s.Values) - 1
		}
		if date {
			return &Date{Value: s.Dates[i]}, nil
		}
		return &Real{Value: s.Values[i]}, nil
	}
}

// serStage applies two-argument lambdas over (value, date) pairs. Mapping
// keeps the dates and replaces the values.
func serStage(filter, mapper bool) OpFunc {
	return func(c *Context, at int, args []Value) (Value, error) {
		s, err := argSeries(args, 0, at)
		if err != nil {
			return nil, err
		}
		var f, m *Closure
		i := 1
		if filter {
			if f, err = argClosure(args, i, at); err != nil {
				return nil, err
			}
			i++
		}
		if mapper {
			if m, err = argClosure(args, i, at); err != nil {
				return nil, err
			}
		}
		var dates []time.Time
		var vals []float64
		for j := range s.Values {
			v, d := &Real{Value: s.Values[j]}, &Date{Value: s.Dates[j]}
			if f != nil {
				keep, err := c.pred(f, at, v, d)
				if err != nil {
					return nil, err
				}
				if !keep {
					continue
				}
			}
			x := s.Values[j]
			if m != nil {
				r, err := c.call(m, []Value{v, d}, at)
				if err != nil {
					return nil, err
				}
				xr, ok := realOf(r)
				if !ok {
					return nil, errAt(at, "series mapper returned %s, not real", r.Kind())
				}
				x = xr
			}
			dates = append(dates, s.Dates[j])
			vals = append(vals, x)
		}
		return &Series{Dates: dates, Values: vals}, nil
	}
}

func seqProgression(next func(first, step, cur float64) float64) OpFunc {
	return func(_ *Context, at int, args []Value) (Value, error) {
		first, err := argReal(args, 0, at)
		if err != nil {
			return nil, err
		}
		step, err := argReal(args, 1, at)
		if err != nil {
			return nil, err
		}
		return &Sequence{Elem: types.Real, Start: func() Cursor {
			x, started := first, false
			return func() (Value, bool) {
				if started {
					x = next(first, step, x)
				}
				started = true
				return &Real{Value: x}, true
			}
		}}, nil
	}
}

func seqTake(c *Context, at int, args []Value) (Value, error) {
	s, err := argSeq(args, 0, at)
	if err != nil {
		return nil, err
	}
	n, err := argInt(args, 1, at)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, errAt(at, "take of negative count %d", n)
	}
	out := make([]Value, 0, n)
	cur := s.Start()
	for int64(len(out)) < n {
		e, ok := cur()
		if !ok {
			break
		}
		out = append(out, e)
	}
	return pack(out, s.Elem, at)
}
