package types

import "testing"

func TestCanWiden(t *testing.T) {
	tests := []struct {
		from, to Kind
		want     bool
	}{
		{Integer, Real, true},
		{Integer, Complex, true},
		{Real, Complex, true},
		{Real, Real, true},
		{Real, Integer, false},
		{Complex, Real, false},
		{Complex, Integer, false},
		{IntegerVector, RealVector, false}, // containers never widen implicitly
		{Boolean, Integer, false},
		{Date, Integer, false},
	}
	for _, tt := range tests {
		if got := CanWiden(tt.from, tt.to); got != tt.want {
			t.Errorf("CanWiden(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestUnify(t *testing.T) {
	tests := []struct {
		a, b, want Kind
	}{
		{Integer, Real, Real},
		{Real, Integer, Real},
		{Integer, Complex, Complex},
		{Real, Complex, Complex},
		{Integer, Integer, Integer},
		{Date, Date, Date},
		{Integer, Boolean, Invalid},
		{RealVector, Matrix, Invalid},
	}
	for _, tt := range tests {
		if got := Unify(tt.a, tt.b); got != tt.want {
			t.Errorf("Unify(%s, %s) = %s, want %s", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestPredicates(t *testing.T) {
	if !Matrix.IsMatrix() || !LowerMatrix.IsMatrix() || !UpperMatrix.IsMatrix() {
		t.Error("matrix kinds not recognized")
	}
	if RealVector.IsMatrix() {
		t.Error("vector is not a matrix")
	}
	if !RealVector.IsContainer() || !IntegerSequence.IsContainer() || !TimeSeries.IsContainer() {
		t.Error("container kinds not recognized")
	}
	if Matrix.IsContainer() {
		t.Error("a matrix is not an iteration container")
	}
	if !Ordered(Date) || !Ordered(String) || Ordered(Complex) {
		t.Error("ordering predicate wrong")
	}
	if !EqualityComparable(LowerMatrix, UpperMatrix) {
		t.Error("distinct matrix kinds compare for equality")
	}
	if EqualityComparable(RealVector, Matrix) {
		t.Error("vector and matrix do not compare")
	}
}

func TestElem(t *testing.T) {
	tests := []struct {
		k, want Kind
	}{
		{IntegerVector, Integer},
		{RealVector, Real},
		{ComplexVector, Complex},
		{TimeSeries, Real},
		{IntegerSequence, Integer},
		{RealSequence, Real},
		{Matrix, Invalid},
		{Real, Invalid},
	}
	for _, tt := range tests {
		if got := tt.k.Elem(); got != tt.want {
			t.Errorf("%s.Elem() = %s, want %s", tt.k, got, tt.want)
		}
	}
}
