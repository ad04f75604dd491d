package evaluator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vexlang/vex/internal/ast"
	"github.com/vexlang/vex/internal/types"
)

// Value is one evaluated result. Every value knows its type tag; the tag
// always equals the kind the compiler computed for the producing node.
type Value interface {
	Kind() types.Kind
	String() string
}

type Integer struct{ Value int64 }

func (v *Integer) Kind() types.Kind { return types.Integer }
func (v *Integer) String() string   { return fmt.Sprintf("%d", v.Value) }

type Real struct{ Value float64 }

func (v *Real) Kind() types.Kind { return types.Real }
func (v *Real) String() string   { return fmt.Sprintf("%g", v.Value) }

type Complex struct{ Value complex128 }

func (v *Complex) Kind() types.Kind { return types.Complex }
func (v *Complex) String() string   { return fmt.Sprintf("%g", v.Value) }

type Boolean struct{ Value bool }

func (v *Boolean) Kind() types.Kind { return types.Boolean }
func (v *Boolean) String() string   { return fmt.Sprintf("%t", v.Value) }

type String struct{ Value string }

func (v *String) Kind() types.Kind { return types.String }
func (v *String) String() string   { return fmt.Sprintf("%q", v.Value) }

type Date struct{ Value time.Time }

func (v *Date) Kind() types.Kind { return types.Date }
func (v *Date) String() string   { return v.Value.Format("2006-01-02") }

type IntVector struct{ Elems []int64 }

func (v *IntVector) Kind() types.Kind { return types.IntegerVector }
func (v *IntVector) String() string {
	parts := make([]string, len(v.Elems))
	for i, e := range v.Elems {
		parts[i] = fmt.Sprintf("%d", e)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

type RealVector struct{ Elems []float64 }

func (v *RealVector) Kind() types.Kind { return types.RealVector }
func (v *RealVector) String() string {
	parts := make([]string, len(v.Elems))
	for i, e := range v.Elems {
		parts[i] = fmt.Sprintf("%g", e)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

type ComplexVector struct{ Elems []complex128 }

func (v *ComplexVector) Kind() types.Kind { return types.ComplexVector }
func (v *ComplexVector) String() string {
	parts := make([]string, len(v.Elems))
	for i, e := range v.Elems {
		parts[i] = fmt.Sprintf("%g", e)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Matrix is stored row-major. K distinguishes general, lower- and
// upper-triangular; the triangular kinds still store the full array with the
// dead triangle zeroed.
type Matrix struct {
	RowCount, ColCount int
	Data               []float64
	K                  types.Kind
}

func (v *Matrix) Kind() types.Kind { return v.K }
func (v *Matrix) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for r := 0; r < v.RowCount; r++ {
		if r > 0 {
			b.WriteString("; ")
		}
		for c := 0; c < v.ColCount; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%g", v.At(r, c))
		}
	}
	b.WriteByte(']')
	return b.String()
}

func (v *Matrix) At(r, c int) float64     { return v.Data[r*v.ColCount+c] }
func (v *Matrix) Set(r, c int, x float64) { v.Data[r*v.ColCount+c] = x }

// Series is a time series: parallel, date-ordered dates and values.
type Series struct {
	Dates  []time.Time
	Values []float64
}

func (v *Series) Kind() types.Kind { return types.TimeSeries }
func (v *Series) String() string {
	parts := make([]string, len(v.Values))
	for i := range v.Values {
		parts[i] = fmt.Sprintf("%s: %g", v.Dates[i].Format("2006-01-02"), v.Values[i])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Sequence is a restartable lazy sequence. Start returns a fresh cursor over
// the element stream; sequences may be infinite, so only bounded consumers
// (take, membership over finite ranges, reductions with short-circuit) drain
// them.
type Sequence struct {
	Elem  types.Kind // Integer or Real
	Start func() Cursor
}

// Cursor yields successive elements of one traversal.
type Cursor func() (Value, bool)

func (v *Sequence) Kind() types.Kind {
	if v.Elem == types.Integer {
		return types.IntegerSequence
	}
	return types.RealSequence
}
func (v *Sequence) String() string { return "<" + v.Kind().String() + ">" }

// Closure is a lambda closed over its defining frame. SelfName is non-empty
// for fixed-point closures of recursive definitions; calling one rebinds the
// name to the closure itself.
type Closure struct {
	Params   []ast.Param
	Body     ast.Node
	Captured *Frame
	SelfName string
}

func (v *Closure) Kind() types.Kind { return types.Function }
func (v *Closure) String() string   { return "<function>" }

// Record is the composite result of builtin operations that return more than
// one value.
type Record struct {
	Fields map[string]Value
}

func (v *Record) Kind() types.Kind { return types.Record }
func (v *Record) String() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + v.Fields[k].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
