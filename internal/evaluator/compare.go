package evaluator

import (
	"github.com/vexlang/vex/internal/ast"
)

func valuesEqual(l, r Value, at int) (bool, error) {
	switch a := l.(type) {
	case *Integer:
		if b, ok := r.(*Integer); ok {
			return a.Value == b.Value, nil
		}
	case *Real:
		if b, ok := r.(*Real); ok {
			return a.Value == b.Value, nil
		}
	case *Complex:
		if b, ok := r.(*Complex); ok {
			return a.Value == b.Value, nil
		}
	case *Boolean:
		if b, ok := r.(*Boolean); ok {
			return a.Value == b.Value, nil
		}
	case *String:
		if b, ok := r.(*String); ok {
			return a.Value == b.Value, nil
		}
	case *Date:
		if b, ok := r.(*Date); ok {
			return a.Value.Equal(b.Value), nil
		}
	case *IntVector:
		if b, ok := r.(*IntVector); ok {
			if len(a.Elems) != len(b.Elems) {
				return false, nil
			}
			for i := range a.Elems {
				if a.Elems[i] != b.Elems[i] {
					return false, nil
				}
			}
			return true, nil
		}
	case *RealVector:
		if b, ok := r.(*RealVector); ok {
			if len(a.Elems) != len(b.Elems) {
				return false, nil
			}
			for i := range a.Elems {
				if a.Elems[i] != b.Elems[i] {
					return false, nil
				}
			}
			return true, nil
		}
	case *ComplexVector:
		if b, ok := r.(*ComplexVector); ok {
			if len(a.Elems) != len(b.Elems) {
				return false, nil
			}
			for i := range a.Elems {
				if a.Elems[i] != b.Elems[i] {
					return false, nil
				}
			}
			return true, nil
		}
	case *Matrix:
		// Equality tolerates mixed matrix kinds (general vs triangular).
		if b, ok := r.(*Matrix); ok {
			if a.RowCount != b.RowCount || a.ColCount != b.ColCount {
				return false, nil
			}
			for i := range a.Data {
				if a.Data[i] != b.Data[i] {
					return false, nil
				}
			}
			return true, nil
		}
	case *Series:
		if b, ok := r.(*Series); ok {
			if len(a.Values) != len(b.Values) {
				return false, nil
			}
			for i := range a.Values {
				if a.Values[i] != b.Values[i] || !a.Dates[i].Equal(b.Dates[i]) {
					return false, nil
				}
			}
			return true, nil
		}
	}
	return false, errAt(at, "cannot compare %s and %s", l.Kind(), r.Kind())
}

func compare(op ast.BinaryOp, l, r Value, at int) (Value, error) {
	var cmp int
	switch a := l.(type) {
	case *Integer:
		b, ok := r.(*Integer)
		if !ok {
			return nil, errAt(at, "cannot order %s and %s", l.Kind(), r.Kind())
		}
		cmp = cmpOrdered(a.Value, b.Value)
	case *Real:
		b, ok := r.(*Real)
		if !ok {
			return nil, errAt(at, "cannot order %s and %s", l.Kind(), r.Kind())
		}
		cmp = cmpOrdered(a.Value, b.Value)
	case *String:
		b, ok := r.(*String)
		if !ok {
			return nil, errAt(at, "cannot order %s and %s", l.Kind(), r.Kind())
		}
		cmp = cmpOrdered(a.Value, b.Value)
	case *Date:
		b, ok := r.(*Date)
		if !ok {
			return nil, errAt(at, "cannot order %s and %s", l.Kind(), r.Kind())
		}
		switch {
		case a.Value.Before(b.Value):
			cmp = -1
		case a.Value.After(b.Value):
			cmp = 1
		}
	default:
		return nil, errAt(at, "cannot order %s values", l.Kind())
	}

	var res bool
	switch op {
	case ast.OpLt:
		res = cmp < 0
	case ast.OpGt:
		res = cmp > 0
	case ast.OpLe:
		res = cmp <= 0
	case ast.OpGe:
		res = cmp >= 0
	}
	return &Boolean{Value: res}, nil
}

func cmpOrdered[T int64 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// contains implements the membership operator: element against vector,
// series or lazy sequence. Infinite sequences are the caller's risk, the
// same way they are for any unbounded traversal.
func contains(elem, container Value, at int) (Value, error) {
	switch c := container.(type) {
	case *IntVector:
		e, ok := elem.(*Integer)
		if !ok {
			break
		}
		for _, x := range c.Elems {
			if x == e.Value {
				return &Boolean{Value: true}, nil
			}
		}
		return &Boolean{Value: false}, nil
	case *RealVector:
		e, ok := realOf(elem)
		if !ok {
			break
		}
		for _, x := range c.Elems {
			if x == e {
				return &Boolean{Value: true}, nil
			}
		}
		return &Boolean{Value: false}, nil
	case *ComplexVector:
		e, ok := elem.(*Complex)
		if !ok {
			break
		}
		for _, x := range c.Elems {
			if x == e.Value {
				return &Boolean{Value: true}, nil
			}
		}
		return &Boolean{Value: false}, nil
	case *Series:
		e, ok := realOf(elem)
		if !ok {
			break
		}
		for _, x := range c.Values {
			if x == e {
				return &Boolean{Value: true}, nil
			}
		}
		return &Boolean{Value: false}, nil
	case *Sequence:
		cur := c.Start()
		for {
			v, ok := cur()
			if !ok {
				return &Boolean{Value: false}, nil
			}
			eq, err := valuesEqual(elem, v, at)
			if err != nil {
				return nil, err
			}
			if eq {
				return &Boolean{Value: true}, nil
			}
		}
	}
	return nil, errAt(at, "%s is not a container of %s", container.Kind(), elem.Kind())
}
