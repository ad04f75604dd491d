package evaluator

import (
	"math/cmplx"

	"github.com/vexlang/vex/internal/ast"
	"github.com/vexlang/vex/internal/diagnostics"
	"github.com/vexlang/vex/internal/types"
)

// Resolver supplies values for free identifiers: session variables and
// persisted named definitions. The environment implements it.
type Resolver interface {
	ResolveVar(name string) (ast.Node, bool)
}

// Frame is one evaluation-time binding. Frames form an immutable linked
// list, so closures capture their defining frame by pointer.
type Frame struct {
	name string
	val  Value
	prev *Frame
}

// Bind returns a frame extending f with one binding.
func (f *Frame) Bind(name string, val Value) *Frame {
	return &Frame{name: name, val: val, prev: f}
}

func (f *Frame) Lookup(name string) (Value, bool) {
	for fr := f; fr != nil; fr = fr.prev {
		if fr.name == name {
			return fr.val, true
		}
	}
	return nil, false
}

// Context evaluates expression trees. One context per evaluation; it is not
// shared across goroutines.
type Context struct {
	res Resolver
}

func New(res Resolver) *Context {
	return &Context{res: res}
}

func errAt(at int, format string, args ...interface{}) *diagnostics.Error {
	return diagnostics.NewErrorAt(diagnostics.ErrValue, at, format, args...)
}

// Eval evaluates node n under local frame f.
func (c *Context) Eval(n ast.Node, f *Frame) (Value, error) {
	switch x := n.(type) {
	case *ast.Const:
		return constValue(x)
	case *ast.VarRef:
		node, ok := c.res.ResolveVar(x.Name)
		if !ok {
			return nil, errAt(x.At, "unknown variable %q", x.Name)
		}
		return c.Eval(node, nil)
	case *ast.LocalRef:
		v, ok := f.Lookup(x.Name)
		if !ok {
			return nil, errAt(x.At, "unbound local %q", x.Name)
		}
		return v, nil
	case *ast.Unary:
		return c.evalUnary(x, f)
	case *ast.Binary:
		return c.evalBinary(x, f)
	case *ast.Cond:
		cond, err := c.Eval(x.If, f)
		if err != nil {
			return nil, err
		}
		b, ok := cond.(*Boolean)
		if !ok {
			return nil, errAt(x.At, "condition is %s, not boolean", cond.Kind())
		}
		if b.Value {
			return c.Eval(x.Then, f)
		}
		return c.Eval(x.Else, f)
	case *ast.Call:
		op, ok := ops[x.Op]
		if !ok {
			return nil, errAt(x.At, "unknown operation %q", x.Op)
		}
		args := make([]Value, len(x.Args))
		for i, a := range x.Args {
			v, err := c.Eval(a, f)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return op(c, x.At, args)
	case *ast.Index:
		return c.evalIndex(x, f)
	case *ast.Let:
		init, err := c.Eval(x.Init, f)
		if err != nil {
			return nil, err
		}
		return c.Eval(x.Body, f.Bind(x.Name, init))
	case *ast.Lambda:
		return &Closure{Params: x.Params, Body: x.Body, Captured: f}, nil
	case *ast.Fix:
		return &Closure{Params: x.Fn.Params, Body: x.Fn.Body, Captured: f, SelfName: x.Name}, nil
	case *ast.Apply:
		fn, err := c.Eval(x.Fn, f)
		if err != nil {
			return nil, err
		}
		cl, ok := fn.(*Closure)
		if !ok {
			return nil, errAt(x.At, "%s is not callable", fn.Kind())
		}
		args := make([]Value, len(x.Args))
		for i, a := range x.Args {
			v, err := c.Eval(a, f)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return c.call(cl, args, x.At)
	}
	return nil, errAt(n.Pos(), "cannot evaluate %T", n)
}

// call applies a closure. A fixed-point closure sees itself under its own
// name before its parameters are bound.
func (c *Context) call(cl *Closure, args []Value, at int) (Value, error) {
	if len(args) != len(cl.Params) {
		return nil, errAt(at, "function takes %d argument(s), got %d", len(cl.Params), len(args))
	}
	f := cl.Captured
	if cl.SelfName != "" {
		f = f.Bind(cl.SelfName, cl)
	}
	for i, p := range cl.Params {
		f = f.Bind(p.Name, args[i])
	}
	return c.Eval(cl.Body, f)
}

func constValue(x *ast.Const) (Value, error) {
	switch v := x.Value.(type) {
	case int64:
		return &Integer{Value: v}, nil
	case float64:
		return &Real{Value: v}, nil
	case complex128:
		return &Complex{Value: v}, nil
	case bool:
		return &Boolean{Value: v}, nil
	case string:
		return &String{Value: v}, nil
	case Value:
		return v, nil
	default:
		if d, ok := dateValue(x.Value); ok {
			return d, nil
		}
	}
	return nil, errAt(x.At, "bad constant %v", x.Value)
}

func (c *Context) evalUnary(x *ast.Unary, f *Frame) (Value, error) {
	v, err := c.Eval(x.X, f)
	if err != nil {
		return nil, err
	}
	switch x.Op {
	case ast.OpNeg:
		return negate(v, x.At)
	case ast.OpNot:
		b, ok := v.(*Boolean)
		if !ok {
			return nil, errAt(x.At, "not applied to %s", v.Kind())
		}
		return &Boolean{Value: !b.Value}, nil
	case ast.OpIntToReal:
		i, ok := v.(*Integer)
		if !ok {
			return nil, errAt(x.At, "widening expects integer, got %s", v.Kind())
		}
		return &Real{Value: float64(i.Value)}, nil
	case ast.OpToComplex:
		switch n := v.(type) {
		case *Integer:
			return &Complex{Value: complex(float64(n.Value), 0)}, nil
		case *Real:
			return &Complex{Value: complex(n.Value, 0)}, nil
		case *Complex:
			return n, nil
		}
		return nil, errAt(x.At, "widening expects numeric, got %s", v.Kind())
	case ast.OpVecToReal:
		iv, ok := v.(*IntVector)
		if !ok {
			return nil, errAt(x.At, "elementwise widening expects integer vector, got %s", v.Kind())
		}
		out := make([]float64, len(iv.Elems))
		for i, e := range iv.Elems {
			out[i] = float64(e)
		}
		return &RealVector{Elems: out}, nil
	case ast.OpTranspose:
		return transpose(v, x.At)
	}
	return nil, errAt(x.At, "bad unary operator")
}

func negate(v Value, at int) (Value, error) {
	switch n := v.(type) {
	case *Integer:
		return &Integer{Value: -n.Value}, nil
	case *Real:
		return &Real{Value: -n.Value}, nil
	case *Complex:
		return &Complex{Value: -n.Value}, nil
	case *IntVector:
		out := make([]int64, len(n.Elems))
		for i, e := range n.Elems {
			out[i] = -e
		}
		return &IntVector{Elems: out}, nil
	case *RealVector:
		out := make([]float64, len(n.Elems))
		for i, e := range n.Elems {
			out[i] = -e
		}
		return &RealVector{Elems: out}, nil
	case *ComplexVector:
		out := make([]complex128, len(n.Elems))
		for i, e := range n.Elems {
			out[i] = -e
		}
		return &ComplexVector{Elems: out}, nil
	case *Matrix:
		out := make([]float64, len(n.Data))
		for i, e := range n.Data {
			out[i] = -e
		}
		return &Matrix{RowCount: n.RowCount, ColCount: n.ColCount, Data: out, K: n.K}, nil
	case *Series:
		out := make([]float64, len(n.Values))
		for i, e := range n.Values {
			out[i] = -e
		}
		return &Series{Dates: n.Dates, Values: out}, nil
	}
	return nil, errAt(at, "cannot negate %s", v.Kind())
}

func transpose(v Value, at int) (Value, error) {
	switch n := v.(type) {
	case *Complex:
		return &Complex{Value: cmplx.Conj(n.Value)}, nil
	case *ComplexVector:
		out := make([]complex128, len(n.Elems))
		for i, e := range n.Elems {
			out[i] = cmplx.Conj(e)
		}
		return &ComplexVector{Elems: out}, nil
	case *Matrix:
		out := &Matrix{RowCount: n.ColCount, ColCount: n.RowCount, Data: make([]float64, len(n.Data)), K: transposedKind(n.K)}
		for r := 0; r < n.RowCount; r++ {
			for col := 0; col < n.ColCount; col++ {
				out.Set(col, r, n.At(r, col))
			}
		}
		return out, nil
	}
	return nil, errAt(at, "cannot transpose %s", v.Kind())
}

func transposedKind(k types.Kind) types.Kind {
	switch k {
	case types.LowerMatrix:
		return types.UpperMatrix
	case types.UpperMatrix:
		return types.LowerMatrix
	default:
		return types.Matrix
	}
}

func realOf(v Value) (float64, bool) {
	switch n := v.(type) {
	case *Integer:
		return float64(n.Value), true
	case *Real:
		return n.Value, true
	}
	return 0, false
}
