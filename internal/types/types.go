package types

// Kind is the runtime type tag carried by every expression node. The set is
// closed: there are no user-defined types.
type Kind uint8

const (
	Invalid Kind = iota
	Integer
	Real
	Complex
	Boolean
	String
	Date
	IntegerVector
	RealVector
	ComplexVector
	Matrix
	LowerMatrix
	UpperMatrix
	TimeSeries
	IntegerSequence
	RealSequence
	Record
	Function
	Void

	// Any matches every kind during overload pruning. It never appears on an
	// expression node, only in callable descriptors (trailing array slots not
	// yet reached, catch-all parameters).
	Any
)

var kindNames = [...]string{
	Invalid:         "invalid",
	Integer:         "integer",
	Real:            "real",
	Complex:         "complex",
	Boolean:         "boolean",
	String:          "string",
	Date:            "date",
	IntegerVector:   "integer vector",
	RealVector:      "vector",
	ComplexVector:   "complex vector",
	Matrix:          "matrix",
	LowerMatrix:     "lower triangular matrix",
	UpperMatrix:     "upper triangular matrix",
	TimeSeries:      "time series",
	IntegerSequence: "integer sequence",
	RealSequence:    "sequence",
	Record:          "record",
	Function:        "function",
	Void:            "void",
	Any:             "any",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "invalid"
}

// IsNumeric reports whether k is a scalar numeric kind.
func (k Kind) IsNumeric() bool {
	return k == Integer || k == Real || k == Complex
}

// IsMatrix reports whether k is one of the matrix kinds.
func (k Kind) IsMatrix() bool {
	return k == Matrix || k == LowerMatrix || k == UpperMatrix
}

// IsVector reports whether k is one of the vector kinds.
func (k Kind) IsVector() bool {
	return k == IntegerVector || k == RealVector || k == ComplexVector
}

// IsSequence reports whether k is a lazy sequence kind.
func (k Kind) IsSequence() bool {
	return k == IntegerSequence || k == RealSequence
}

// IsContainer reports whether k can act as the right operand of a membership
// test or the generator of a comprehension.
func (k Kind) IsContainer() bool {
	return k.IsVector() || k.IsSequence() || k == TimeSeries
}

// Pointwise reports whether k supports the pointwise operators .* and ./.
func (k Kind) Pointwise() bool {
	return k.IsVector() || k.IsMatrix() || k == TimeSeries
}

// Elem returns the element kind of a container, or Invalid for non-containers.
func (k Kind) Elem() Kind {
	switch k {
	case IntegerVector, IntegerSequence:
		return Integer
	case RealVector, RealSequence, TimeSeries:
		return Real
	case ComplexVector:
		return Complex
	default:
		return Invalid
	}
}

// CanWiden reports whether a value of kind from may be used where kind to is
// expected without losing information. Widening is one-directional: integer
// widens to real, integer and real widen to complex. Containers never widen
// implicitly; the one documented exception (integer-vector argument in a
// trailing real-array slot) is handled by the overload engine, not here.
func CanWiden(from, to Kind) bool {
	if from == to {
		return true
	}
	switch from {
	case Integer:
		return to == Real || to == Complex
	case Real:
		return to == Complex
	}
	return false
}

// Unify returns the common kind two operands promote to under an arithmetic
// operator, or Invalid when no widening path exists in either direction.
func Unify(a, b Kind) Kind {
	if a == b {
		return a
	}
	if CanWiden(a, b) {
		return b
	}
	if CanWiden(b, a) {
		return a
	}
	return Invalid
}

// EqualityComparable reports whether two kinds may appear on the two sides of
// an equality operator. Besides the widening pairs, two distinct matrix kinds
// compare directly without coercion.
func EqualityComparable(a, b Kind) bool {
	if Unify(a, b) != Invalid {
		return true
	}
	return a.IsMatrix() && b.IsMatrix()
}

// Ordered reports whether kind k supports the relational operators.
func Ordered(k Kind) bool {
	return k == Integer || k == Real || k == Date || k == String
}

// Negatable reports whether unary minus applies to kind k.
func Negatable(k Kind) bool {
	return k.IsNumeric() || k.IsVector() || k.IsMatrix() || k == TimeSeries
}
