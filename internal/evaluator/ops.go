package evaluator

import (
	"math"
	"math/cmplx"
)

// OpFunc implements one builtin operation. The descriptor catalog references
// operations by key; resolution guarantees the arity and kinds line up, so
// the argument checks here only guard against catalog/table drift.
type OpFunc func(c *Context, at int, args []Value) (Value, error)

var ops = map[string]OpFunc{}

func register(table map[string]OpFunc) {
	for k, v := range table {
		if _, dup := ops[k]; dup {
			panic("duplicate operation key " + k)
		}
		ops[k] = v
	}
}

// HasOp reports whether an operation key is implemented. The registry tests
// use it to verify the catalog and the table stay joined.
func HasOp(key string) bool {
	_, ok := ops[key]
	return ok
}

func argReal(args []Value, i, at int) (float64, error) {
	if i >= len(args) {
		return 0, errAt(at, "missing argument %d", i)
	}
	if v, ok := realOf(args[i]); ok {
		return v, nil
	}
	return 0, errAt(at, "argument %d: expected real, got %s", i, args[i].Kind())
}

func argInt(args []Value, i, at int) (int64, error) {
	if i >= len(args) {
		return 0, errAt(at, "missing argument %d", i)
	}
	if v, ok := args[i].(*Integer); ok {
		return v.Value, nil
	}
	return 0, errAt(at, "argument %d: expected integer, got %s", i, args[i].Kind())
}

func argComplex(args []Value, i, at int) (complex128, error) {
	if i >= len(args) {
		return 0, errAt(at, "missing argument %d", i)
	}
	switch v := args[i].(type) {
	case *Complex:
		return v.Value, nil
	case *Real:
		return complex(v.Value, 0), nil
	case *Integer:
		return complex(float64(v.Value), 0), nil
	}
	return 0, errAt(at, "argument %d: expected complex, got %s", i, args[i].Kind())
}

func argClosure(args []Value, i, at int) (*Closure, error) {
	if i >= len(args) {
		return nil, errAt(at, "missing argument %d", i)
	}
	if v, ok := args[i].(*Closure); ok {
		return v, nil
	}
	return nil, errAt(at, "argument %d: expected function, got %s", i, args[i].Kind())
}

func real1(f func(float64) float64) OpFunc {
	return func(_ *Context, at int, args []Value) (Value, error) {
		x, err := argReal(args, 0, at)
		if err != nil {
			return nil, err
		}
		return &Real{Value: f(x)}, nil
	}
}

func real2(f func(a, b float64) float64) OpFunc {
	return func(_ *Context, at int, args []Value) (Value, error) {
		a, err := argReal(args, 0, at)
		if err != nil {
			return nil, err
		}
		b, err := argReal(args, 1, at)
		if err != nil {
			return nil, err
		}
		return &Real{Value: f(a, b)}, nil
	}
}

func complex1(f func(complex128) complex128) OpFunc {
	return func(_ *Context, at int, args []Value) (Value, error) {
		z, err := argComplex(args, 0, at)
		if err != nil {
			return nil, err
		}
		return &Complex{Value: f(z)}, nil
	}
}

func init() {
	register(map[string]OpFunc{
		"math.sin":   real1(math.Sin),
		"math.cos":   real1(math.Cos),
		"math.tan":   real1(math.Tan),
		"math.exp":   real1(math.Exp),
		"math.log":   real1(math.Log),
		"math.sqrt":  real1(math.Sqrt),
		"math.abs":   real1(math.Abs),
		"math.floor": real1(math.Floor),
		"math.ceil":  real1(math.Ceil),
		"math.round": real1(math.Round),
		"math.pow":   real2(math.Pow),
		"math.min":   real2(math.Min),
		"math.max":   real2(math.Max),

		"int.abs": func(_ *Context, at int, args []Value) (Value, error) {
			n, err := argInt(args, 0, at)
			if err != nil {
				return nil, err
			}
			if n < 0 {
				n = -n
			}
			return &Integer{Value: n}, nil
		},

		"cmath.exp":  complex1(cmplx.Exp),
		"cmath.log":  complex1(cmplx.Log),
		"cmath.sqrt": complex1(cmplx.Sqrt),
		"cmath.conj": complex1(cmplx.Conj),
		"cmath.abs": func(_ *Context, at int, args []Value) (Value, error) {
			z, err := argComplex(args, 0, at)
			if err != nil {
				return nil, err
			}
			return &Real{Value: cmplx.Abs(z)}, nil
		},
		"cmath.pow": func(_ *Context, at int, args []Value) (Value, error) {
			a, err := argComplex(args, 0, at)
			if err != nil {
				return nil, err
			}
			b, err := argComplex(args, 1, at)
			if err != nil {
				return nil, err
			}
			return &Complex{Value: cmplx.Pow(a, b)}, nil
		},
		// cmath.square is the dedicated call the power level emits for a
		// complex base with literal exponent 2.
		"cmath.square": func(_ *Context, at int, args []Value) (Value, error) {
			z, err := argComplex(args, 0, at)
			if err != nil {
				return nil, err
			}
			return &Complex{Value: z * z}, nil
		},

		"cplx.of": func(_ *Context, at int, args []Value) (Value, error) {
			re, err := argReal(args, 0, at)
			if err != nil {
				return nil, err
			}
			im, err := argReal(args, 1, at)
			if err != nil {
				return nil, err
			}
			return &Complex{Value: complex(re, im)}, nil
		},
		"cplx.polar": func(_ *Context, at int, args []Value) (Value, error) {
			r, err := argReal(args, 0, at)
			if err != nil {
				return nil, err
			}
			theta, err := argReal(args, 1, at)
			if err != nil {
				return nil, err
			}
			return &Complex{Value: cmplx.Rect(r, theta)}, nil
		},
		"cplx.re": func(_ *Context, at int, args []Value) (Value, error) {
			z, err := argComplex(args, 0, at)
			if err != nil {
				return nil, err
			}
			return &Real{Value: real(z)}, nil
		},
		"cplx.im": func(_ *Context, at int, args []Value) (Value, error) {
			z, err := argComplex(args, 0, at)
			if err != nil {
				return nil, err
			}
			return &Real{Value: imag(z)}, nil
		},
		"cplx.arg": func(_ *Context, at int, args []Value) (Value, error) {
			z, err := argComplex(args, 0, at)
			if err != nil {
				return nil, err
			}
			return &Real{Value: cmplx.Phase(z)}, nil
		},
		"cplx.conj": complex1(cmplx.Conj),

		"date.year":  dateField(func(y, _, _ int) int { return y }),
		"date.month": dateField(func(_, m, _ int) int { return m }),
		"date.day":   dateField(func(_, _, d int) int { return d }),

		"str.length": func(_ *Context, at int, args []Value) (Value, error) {
			s, ok := args[0].(*String)
			if !ok {
				return nil, errAt(at, "expected string, got %s", args[0].Kind())
			}
			return &Integer{Value: int64(len([]rune(s.Value)))}, nil
		},
	})
}

func dateField(pick func(y, m, d int) int) OpFunc {
	return func(_ *Context, at int, args []Value) (Value, error) {
		d, ok := args[0].(*Date)
		if !ok {
			return nil, errAt(at, "expected date, got %s", args[0].Kind())
		}
		y, m, day := d.Value.Date()
		return &Integer{Value: int64(pick(y, int(m), day))}, nil
	}
}
