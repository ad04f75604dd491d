package ast

import (
	"github.com/vexlang/vex/internal/types"
)

// Node is one immutable expression-tree node. The result kind is fixed the
// moment the node is built and never back-patched; sub-trees may be shared
// only when both usages are side-effect free or bound through a Let temporary.
type Node interface {
	Kind() types.Kind
	Pos() int
	node()
}

// UnaryOp enumerates the unary evaluation shapes, including the synthesized
// widening conversions inserted by the coercion engine.
type UnaryOp uint8

const (
	OpNeg UnaryOp = iota
	OpNot
	OpIntToReal // integer -> real
	OpToComplex // integer/real -> complex
	OpVecToReal // integer vector -> real vector, elementwise
	OpTranspose // postfix ' : matrix transpose / complex conjugate
)

var unaryNames = [...]string{"-", "not", "real", "complex", "realvec", "'"}

func (op UnaryOp) String() string { return unaryNames[op] }

// BinaryOp enumerates the binary evaluation shapes.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPointMul
	OpPointDiv
	OpEq
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
	OpAnd
	OpOr
	OpIn
)

var binaryNames = [...]string{
	"+", "-", "*", "/", "mod", ".*", "./",
	"=", "<>", "<", ">", "<=", ">=", "and", "or", "in",
}

func (op BinaryOp) String() string { return binaryNames[op] }

// Const is a literal or parse-time folded constant.
type Const struct {
	K     types.Kind
	Value interface{}
	At    int
}

// VarRef reads a session variable or a persisted named definition from the
// environment at evaluation time.
type VarRef struct {
	Name string
	K    types.Kind
	At   int
}

// LocalRef reads a let binding or a lambda parameter from the innermost
// evaluation frame that defines it.
type LocalRef struct {
	Name string
	K    types.Kind
	At   int
}

// Unary applies op to X.
type Unary struct {
	Op UnaryOp
	X  Node
	K  types.Kind
	At int
}

// Binary applies op to L and R. Both operands have already been widened to a
// common kind by the parser; and/or short-circuit on L.
type Binary struct {
	Op   BinaryOp
	L, R Node
	K    types.Kind
	At   int
}

// Cond is one if/then/else node. elif chains are built right-associated from
// the flat condition list, last branch first.
type Cond struct {
	If, Then, Else Node
	K              types.Kind
	At             int
}

// Call invokes a builtin operation chosen by overload resolution. Op is the
// operation key the evaluator dispatches on.
type Call struct {
	Op   string
	Args []Node
	K    types.Kind
	At   int
}

// IndexSpec is one component of an indexer: a plain index, a from-end marked
// index, or a range combining two such bounds. For time series the bounds may
// be date-typed; a missing bound falls back to the documented default.
type IndexSpec struct {
	Lo, Hi               Node
	LoFromEnd, HiFromEnd bool
	IsRange              bool
}

// Index reads an element or slice out of X. Safe indexing (brace form) yields
// the container's zero element instead of failing on an out-of-range index.
type Index struct {
	X     Node
	Specs []IndexSpec
	Safe  bool
	K     types.Kind
	At    int
}

// Let binds Name to Init for the evaluation of Body. The optimizer also uses
// it to hold shared sub-trees (chained comparisons, power unrolling) so the
// shared operand is evaluated exactly once.
type Let struct {
	Name string
	Init Node
	Body Node
	At   int
}

// Param is one declared lambda parameter.
type Param struct {
	Name string
	K    types.Kind
}

// Lambda is a closure literal. Result is the body's kind.
type Lambda struct {
	Params []Param
	Body   Node
	At     int
}

// Fix closes a recursive named definition over itself: while Body was being
// built, Name was visible as an open placeholder; Fix ties the knot at
// evaluation time. Non-recursive definitions never get wrapped.
type Fix struct {
	Name string
	Fn   *Lambda
	At   int
}

// Apply calls a closure value (a local lambda binding, a definition function
// or a Fix) with already-typed arguments.
type Apply struct {
	Fn   Node
	Args []Node
	K    types.Kind
	At   int
}

func (n *Const) Kind() types.Kind    { return n.K }
func (n *VarRef) Kind() types.Kind   { return n.K }
func (n *LocalRef) Kind() types.Kind { return n.K }
func (n *Unary) Kind() types.Kind    { return n.K }
func (n *Binary) Kind() types.Kind   { return n.K }
func (n *Cond) Kind() types.Kind     { return n.K }
func (n *Call) Kind() types.Kind     { return n.K }
func (n *Index) Kind() types.Kind    { return n.K }
func (n *Let) Kind() types.Kind      { return n.Body.Kind() }
func (n *Lambda) Kind() types.Kind   { return types.Function }
func (n *Fix) Kind() types.Kind      { return types.Function }
func (n *Apply) Kind() types.Kind    { return n.K }

func (n *Const) Pos() int    { return n.At }
func (n *VarRef) Pos() int   { return n.At }
func (n *LocalRef) Pos() int { return n.At }
func (n *Unary) Pos() int    { return n.At }
func (n *Binary) Pos() int   { return n.At }
func (n *Cond) Pos() int     { return n.At }
func (n *Call) Pos() int     { return n.At }
func (n *Index) Pos() int    { return n.At }
func (n *Let) Pos() int      { return n.At }
func (n *Lambda) Pos() int   { return n.At }
func (n *Fix) Pos() int      { return n.At }
func (n *Apply) Pos() int    { return n.At }

func (*Const) node()    {}
func (*VarRef) node()   {}
func (*LocalRef) node() {}
func (*Unary) node()    {}
func (*Binary) node()   {}
func (*Cond) node()     {}
func (*Call) node()     {}
func (*Index) node()    {}
func (*Let) node()      {}
func (*Lambda) node()   {}
func (*Fix) node()      {}
func (*Apply) node()    {}
