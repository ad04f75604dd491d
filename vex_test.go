package vex

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vexlang/vex/internal/evaluator"
)

func evalReal(t *testing.T, src string) float64 {
	t.Helper()
	v, err := Eval(src)
	if err != nil {
		t.Fatalf("eval %q: %v", src, err)
	}
	switch x := v.(type) {
	case *evaluator.Real:
		return x.Value
	case *evaluator.Integer:
		return float64(x.Value)
	}
	t.Fatalf("eval %q: got %T, want a number", src, v)
	return 0
}

func evalBool(t *testing.T, src string) bool {
	t.Helper()
	v, err := Eval(src)
	if err != nil {
		t.Fatalf("eval %q: %v", src, err)
	}
	b, ok := v.(*evaluator.Boolean)
	if !ok {
		t.Fatalf("eval %q: got %T, want boolean", src, v)
	}
	return b.Value
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestEvalArithmetic(t *testing.T) {
	tests := []struct {
		src  string
		want float64
	}{
		{"1 + 2 * 3", 7},
		{"10 / 4", 2.5},
		{"7 mod 3", 1},
		{"2^10", 1024},
		{"-2.5 + 0.5", -2},
		{"(1 + 2) * (3 + 4)", 21},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := evalReal(t, tt.src); !approx(got, tt.want) {
				t.Errorf("= %g, want %g", got, tt.want)
			}
		})
	}
}

func TestEvalComparisons(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"1.0 < 2.0 < 3.0", true},
		{"1.0 < 2.0 < 1.5", false},
		{"1 <= 1 <= 1", true},
		{"2 in [1, 2, 3]", true},
		{"5 in [1, 2, 3]", false},
		{"not (1 > 2)", true},
		{"1 > 2 or 3 > 2", true},
		{"1 > 2 and 3 > 2", false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := evalBool(t, tt.src); got != tt.want {
				t.Errorf("= %t, want %t", got, tt.want)
			}
		})
	}
}

func TestComprehensionEvensSquared(t *testing.T) {
	v, err := Eval("[k in 1..10 : k mod 2 = 0 => k*k]")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	iv, ok := v.(*evaluator.IntVector)
	if !ok {
		t.Fatalf("got %T, want integer vector", v)
	}
	want := []int64{4, 16, 36, 64, 100}
	if len(iv.Elems) != len(want) {
		t.Fatalf("elems = %v", iv.Elems)
	}
	for i := range want {
		if iv.Elems[i] != want[i] {
			t.Errorf("elem %d = %d, want %d", i, iv.Elems[i], want[i])
		}
	}
}

func TestComprehensionRealRange(t *testing.T) {
	v, err := Eval("[x in 0.0..1.0..0.25 => x * 2.0]")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	rv, ok := v.(*evaluator.RealVector)
	if !ok {
		t.Fatalf("got %T, want real vector", v)
	}
	want := []float64{0, 0.5, 1, 1.5, 2}
	if len(rv.Elems) != len(want) {
		t.Fatalf("elems = %v", rv.Elems)
	}
	for i := range want {
		if !approx(rv.Elems[i], want[i]) {
			t.Errorf("elem %d = %g, want %g", i, rv.Elems[i], want[i])
		}
	}
}

func TestComprehensionNestedQuantifierFilter(t *testing.T) {
	// The filter position itself holds a quantified comprehension; k = 2
	// quantifies over an empty range and keeps vacuous truth.
	v, err := Eval("[k in 2..10 : all j in 2..k - 1 : k mod j <> 0]")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	iv, ok := v.(*evaluator.IntVector)
	if !ok {
		t.Fatalf("got %T, want integer vector", v)
	}
	want := []int64{2, 3, 5, 7}
	if len(iv.Elems) != len(want) {
		t.Fatalf("elems = %v", iv.Elems)
	}
	for i := range want {
		if iv.Elems[i] != want[i] {
			t.Errorf("elem %d = %d, want %d", i, iv.Elems[i], want[i])
		}
	}
}

func TestQuantifiers(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"[any k in 1..5 : k > 4]", true},
		{"[any k in 1..5 : k > 10]", false},
		{"[all k in 1..5 : k > 0]", true},
		{"[all k in 1..5 : k > 1]", false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := evalBool(t, tt.src); got != tt.want {
				t.Errorf("= %t, want %t", got, tt.want)
			}
		})
	}
}

func TestIndexing(t *testing.T) {
	tests := []struct {
		src  string
		want float64
	}{
		{"[10, 20, 30][1]", 20},
		{"[10, 20, 30][^1]", 30},
		{"[10, 20, 30]{9}", 0}, // safe form defaults out-of-range
		{"sum([10.0, 20.0, 30.0][1..])", 50},
		{"sum([10.0, 20.0, 30.0][..2])", 30},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := evalReal(t, tt.src); !approx(got, tt.want) {
				t.Errorf("= %g, want %g", got, tt.want)
			}
		})
	}
}

func TestDateArithmetic(t *testing.T) {
	if got := evalReal(t, "#2024-03-15# - #2024-03-10#"); got != 5 {
		t.Errorf("day difference = %g, want 5", got)
	}
	if !evalBool(t, "#2024-03-10# < #2024-03-15#") {
		t.Error("date ordering failed")
	}
}

func TestOptimizerTransparency(t *testing.T) {
	// The fused forms must agree numerically with the generic ones.
	s := NewSession()
	if _, err := s.Exec("v := [1.0, 2.0, 3.0]; w := [4.0, 5.0, 6.0]"); err != nil {
		t.Fatalf("setup: %v", err)
	}

	tests := []struct {
		src  string
		want []float64
	}{
		{"2.5 * v + 3.0 * v", []float64{5.5, 11, 16.5}},
		{"2.5 * v - 3.0 * v", []float64{-0.5, -1, -1.5}},
		{"2.0 * v + w", []float64{6, 9, 12}},
		{"w + 2.0 * v", []float64{6, 9, 12}},
		{"2.0 * v - w", []float64{-2, -1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			res, err := s.Exec(tt.src)
			if err != nil {
				t.Fatalf("exec: %v", err)
			}
			rv, ok := res[0].Value.(*evaluator.RealVector)
			if !ok {
				t.Fatalf("result is %T", res[0].Value)
			}
			if len(rv.Elems) != len(tt.want) {
				t.Fatalf("elems = %v", rv.Elems)
			}
			for i := range tt.want {
				if !approx(rv.Elems[i], tt.want[i]) {
					t.Errorf("elem %d = %g, want %g", i, rv.Elems[i], tt.want[i])
				}
			}
		})
	}

	// Repeated operand collapses to a single-pass dot with itself.
	res, err := s.Exec("v * v")
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if r := res[0].Value.(*evaluator.Real); !approx(r.Value, 14) {
		t.Errorf("v*v = %g, want 14", r.Value)
	}
	res, err = s.Exec("v * w")
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if r := res[0].Value.(*evaluator.Real); !approx(r.Value, 32) {
		t.Errorf("v*w = %g, want 32", r.Value)
	}
}

func TestPowerUnrollEvaluation(t *testing.T) {
	s := NewSession()
	if _, err := s.Exec("x := 3.0"); err != nil {
		t.Fatalf("setup: %v", err)
	}
	for _, tt := range []struct {
		src  string
		want float64
	}{
		{"x^2", 9}, {"x^3", 27}, {"x^4", 81}, {"x²", 9},
	} {
		res, err := s.Exec(tt.src)
		if err != nil {
			t.Fatalf("exec %q: %v", tt.src, err)
		}
		if r := res[0].Value.(*evaluator.Real); !approx(r.Value, tt.want) {
			t.Errorf("%s = %g, want %g", tt.src, r.Value, tt.want)
		}
	}
}

func TestWithinScriptForwardUse(t *testing.T) {
	s := NewSession()
	res, err := s.Exec("a := 2.0; b := a + 3.0; a * b")
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if len(res) != 3 {
		t.Fatalf("%d results", len(res))
	}
	if r := res[2].Value.(*evaluator.Real); !approx(r.Value, 10) {
		t.Errorf("a*b = %g, want 10", r.Value)
	}
}

func TestFailingScriptLeavesSessionUntouched(t *testing.T) {
	s := NewSession()
	if _, err := s.Exec("kept := 1.0"); err != nil {
		t.Fatalf("setup: %v", err)
	}
	_, err := s.Exec("lost := 2.0; nosuchname + 1.0")
	if err == nil {
		t.Fatal("script should have failed")
	}
	names := s.Names()
	if len(names) != 1 || names[0] != "kept" {
		t.Errorf("names after failed script = %v, want [kept]", names)
	}
}

func TestDefinitionAndRecursion(t *testing.T) {
	s := NewSession()
	res, err := s.Exec("double(n) := n * 2.0; double(4.0)")
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if r := res[1].Value.(*evaluator.Real); !approx(r.Value, 8) {
		t.Errorf("double(4) = %g", r.Value)
	}

	res, err = s.Exec("fact(n: real): real := if n <= 1.0 then 1.0 else n * fact(n - 1.0); fact(5.0)")
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if r := res[1].Value.(*evaluator.Real); !approx(r.Value, 120) {
		t.Errorf("fact(5) = %g", r.Value)
	}
}

func TestDefinitionsComposeAcrossExecs(t *testing.T) {
	s := NewSession()
	if _, err := s.Exec("inc(n) := n + 1.0"); err != nil {
		t.Fatalf("exec: %v", err)
	}
	res, err := s.Exec("twice(n) := inc(inc(n)); twice(5.0)")
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if r := res[1].Value.(*evaluator.Real); !approx(r.Value, 7) {
		t.Errorf("twice(5) = %g, want 7", r.Value)
	}
}

func TestRemoveRefusesDependedOn(t *testing.T) {
	s := NewSession()
	if _, err := s.Exec("base(n) := n + 1.0; user(n) := base(n) * 2.0"); err != nil {
		t.Fatalf("exec: %v", err)
	}
	err := s.Remove("base")
	if err == nil || !strings.Contains(err.Error(), "used by") {
		t.Errorf("remove = %v, want dependency refusal", err)
	}
	if err := s.Remove("user"); err != nil {
		t.Errorf("removing the leaf failed: %v", err)
	}
	if err := s.Remove("base"); err != nil {
		t.Errorf("removing base after its user failed: %v", err)
	}
}

func TestOpenLetAcrossStatements(t *testing.T) {
	s := NewSession()
	res, err := s.Exec("let rate = 0.05; 100.0 * rate; 200.0 * rate")
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if len(res) != 3 {
		t.Fatalf("%d results", len(res))
	}
	if res[0].Value != nil {
		t.Error("open let should yield no value")
	}
	if r := res[1].Value.(*evaluator.Real); !approx(r.Value, 5) {
		t.Errorf("first use = %g", r.Value)
	}
	if r := res[2].Value.(*evaluator.Real); !approx(r.Value, 10) {
		t.Errorf("second use = %g", r.Value)
	}
}

func TestCheckTypesBindsNothing(t *testing.T) {
	s := NewSession()
	kinds, err := s.CheckTypes("ghost := 1.0; ghost + 2.0")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(kinds) != 2 {
		t.Fatalf("kinds = %v", kinds)
	}
	if len(s.Names()) != 0 {
		t.Errorf("type check bound names: %v", s.Names())
	}
}

func TestPersistenceAcrossSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	s1, err := OpenSession(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s1.Exec("area(r) := 3.14159265 * r^2"); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := OpenSession(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	res, err := s2.Exec("area(2.0)")
	if err != nil {
		t.Fatalf("exec after reopen: %v", err)
	}
	if r := res[0].Value.(*evaluator.Real); !approx(r.Value, 12.5663706) {
		t.Errorf("area(2) = %g", r.Value)
	}
}

func TestPersistedDependencyChainRecompiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	s1, err := OpenSession(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	script := "half(n) := n / 2.0; quarter(n) := half(half(n)); fact(n: real): real := if n <= 1.0 then 1.0 else n * fact(n - 1.0)"
	if _, err := s1.Exec(script); err != nil {
		t.Fatalf("exec: %v", err)
	}
	s1.Close()

	s2, err := OpenSession(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	res, err := s2.Exec("quarter(8.0); fact(4.0)")
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if r := res[0].Value.(*evaluator.Real); !approx(r.Value, 2) {
		t.Errorf("quarter(8) = %g", r.Value)
	}
	if r := res[1].Value.(*evaluator.Real); !approx(r.Value, 24) {
		t.Errorf("fact(4) = %g", r.Value)
	}
}

func TestBuiltinCalls(t *testing.T) {
	tests := []struct {
		src  string
		want float64
	}{
		{"sqrt(16.0)", 4},
		{"abs(-3.5)", 3.5},
		{"min(2.0, 1.0)", 1},
		{"max(2.0, 1.0)", 2},
		{"sum([1.0, 2.0, 3.0])", 6},
		{"mean([2.0, 4.0])", 3},
		{"dot([1.0, 2.0], [3.0, 4.0])", 11},
		{"floor(2.7)", 2},
		{"ceil(2.1)", 3},
		{"round(2.5)", 3},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := evalReal(t, tt.src); !approx(got, tt.want) {
				t.Errorf("= %g, want %g", got, tt.want)
			}
		})
	}
}

func TestStatsReturnsRecord(t *testing.T) {
	v, err := Eval("stats([1.0, 2.0, 3.0, 4.0])")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	r, ok := v.(*evaluator.Record)
	if !ok {
		t.Fatalf("got %T, want record", v)
	}
	mean, ok := r.Fields["mean"].(*evaluator.Real)
	if !ok || !approx(mean.Value, 2.5) {
		t.Errorf("mean = %v, want 2.5", r.Fields["mean"])
	}
	if got := r.String(); got != "{count: 4, max: 4, mean: 2.5, min: 1}" {
		t.Errorf("rendered record = %s", got)
	}
}

func evalVec(t *testing.T, src string) []float64 {
	t.Helper()
	v, err := Eval(src)
	if err != nil {
		t.Fatalf("eval %q: %v", src, err)
	}
	switch x := v.(type) {
	case *evaluator.RealVector:
		return x.Elems
	case *evaluator.IntVector:
		out := make([]float64, len(x.Elems))
		for i, e := range x.Elems {
			out[i] = float64(e)
		}
		return out
	}
	t.Fatalf("eval %q: got %T, want a vector", src, v)
	return nil
}

func sameVec(a []float64, b ...float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !approx(a[i], b[i]) {
			return false
		}
	}
	return true
}

func TestPointwiseOperators(t *testing.T) {
	if got := evalVec(t, "[1.0, 2.0] .* [3.0, 4.0]"); !sameVec(got, 3, 8) {
		t.Errorf(".* = %v", got)
	}
	if got := evalVec(t, "[4.0, 9.0] ./ [2.0, 3.0]"); !sameVec(got, 2, 3) {
		t.Errorf("./ = %v", got)
	}
}

func TestProperties(t *testing.T) {
	tests := []struct {
		src  string
		want float64
	}{
		{"[1.0, 2.0, 3.0].length", 3},
		{"[1.0, 2.0, 3.0].first", 1},
		{"[1.0, 2.0, 3.0].last", 3},
		{"#2024-03-15#.year", 2024},
		{"#2024-03-15#.month", 3},
		{"#2024-03-15#.day", 15},
		{"(3.0 + 4.0i).re", 3},
		{"(3.0 + 4.0i).im", 4},
		{"(3.0 + 4.0i).abs", 5},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := evalReal(t, tt.src); !approx(got, tt.want) {
				t.Errorf("= %g, want %g", got, tt.want)
			}
		})
	}
}

func TestInstanceMethods(t *testing.T) {
	if got := evalVec(t, "[3.0, 1.0, 2.0].sort()"); !sameVec(got, 1, 2, 3) {
		t.Errorf("sort = %v", got)
	}
	if got := evalVec(t, "[1.0, 2.0, 3.0].reverse()"); !sameVec(got, 3, 2, 1) {
		t.Errorf("reverse = %v", got)
	}
	if got := evalVec(t, "[1.0, 2.0, 3.0].cumsum()"); !sameVec(got, 1, 3, 6) {
		t.Errorf("cumsum = %v", got)
	}
	if got := evalVec(t, "[1.0, 2.0, 3.0].map(x -> x * 2.0)"); !sameVec(got, 2, 4, 6) {
		t.Errorf("map = %v", got)
	}
	if got := evalVec(t, "[1.0, 2.0, 3.0].filter(x -> x > 1.5)"); !sameVec(got, 2, 3) {
		t.Errorf("filter = %v", got)
	}
}

func TestSequences(t *testing.T) {
	if got := evalVec(t, "Sequence.naturals().take(4)"); !sameVec(got, 0, 1, 2, 3) {
		t.Errorf("naturals = %v", got)
	}
	if got := evalVec(t, "Sequence.naturals().filter(n -> n mod 2 = 0).take(3)"); !sameVec(got, 0, 2, 4) {
		t.Errorf("evens = %v", got)
	}
	if got := evalVec(t, "Sequence.arithmetic(1.0, 2.0).take(3)"); !sameVec(got, 1, 3, 5) {
		t.Errorf("arithmetic = %v", got)
	}
	if got := evalVec(t, "Sequence.geometric(2.0, 3.0).take(3)"); !sameVec(got, 2, 6, 18) {
		t.Errorf("geometric = %v", got)
	}
}

func TestClassCalls(t *testing.T) {
	if got := evalReal(t, "Matrix.identity(3).trace()"); !approx(got, 3) {
		t.Errorf("trace = %g", got)
	}
	if got := evalVec(t, "Vector.basis(3, 1)"); !sameVec(got, 0, 1, 0) {
		t.Errorf("basis = %v", got)
	}
	if got := evalReal(t, "Complex.polar(2.0, 0.0).re"); !approx(got, 2) {
		t.Errorf("polar.re = %g", got)
	}
}

func TestStringOperations(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`"ab" + "cd"`, "abcd"},
		{`"hello"[1]`, "e"},
		{`"hello"[1..3]`, "el"},
		{`"hello"{9}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			v, err := Eval(tt.src)
			if err != nil {
				t.Fatalf("eval: %v", err)
			}
			s, ok := v.(*evaluator.String)
			if !ok {
				t.Fatalf("got %T, want string", v)
			}
			if s.Value != tt.want {
				t.Errorf("= %q, want %q", s.Value, tt.want)
			}
		})
	}
	if got := evalReal(t, `"hello".length`); !approx(got, 5) {
		t.Errorf("length = %g", got)
	}
}

func TestSeriesSurface(t *testing.T) {
	s := NewSession()
	script := "ts := Series.of(#2024-01-01#, [1.0, 3.0, 5.0]); " +
		"ts[#2024-01-02#] + ts[#2024-01-02#..].values.length + (ts.lastdate - ts.firstdate)"
	res, err := s.Exec(script)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	r, ok := res[1].Value.(*evaluator.Real)
	if !ok {
		t.Fatalf("got %T, want real", res[1].Value)
	}
	// 3 at the date, 2 points in the tail slice, 2 days between the ends.
	if !approx(r.Value, 7) {
		t.Errorf("= %g, want 7", r.Value)
	}
}

func TestMatrixVectorPipeline(t *testing.T) {
	s := NewSession()
	script := "m := [1.0, 0.0; 0.0, 2.0]; u := [3.0, 4.0]; m * u"
	res, err := s.Exec(script)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	rv, ok := res[2].Value.(*evaluator.RealVector)
	if !ok {
		t.Fatalf("m*u is %T", res[2].Value)
	}
	if !approx(rv.Elems[0], 3) || !approx(rv.Elems[1], 8) {
		t.Errorf("m*u = %v", rv.Elems)
	}
}

func TestTransposeFusionResult(t *testing.T) {
	s := NewSession()
	script := "m := [1.0, 2.0; 3.0, 4.0]; u := [1.0, 1.0]; m' * u"
	res, err := s.Exec(script)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	rv := res[2].Value.(*evaluator.RealVector)
	if !approx(rv.Elems[0], 4) || !approx(rv.Elems[1], 6) {
		t.Errorf("m'*u = %v, want [4, 6]", rv.Elems)
	}
}

func TestCompileReportsPositionedErrors(t *testing.T) {
	_, err := Compile("1 + ")
	if err == nil {
		t.Fatal("expected syntax error")
	}
	if !strings.Contains(err.Error(), "V001") {
		t.Errorf("error = %v, want a syntax code", err)
	}

	_, err = Compile(`1 + "two"`)
	if err == nil {
		t.Fatal("expected type error")
	}
	if !strings.Contains(err.Error(), "V002") {
		t.Errorf("error = %v, want a type code", err)
	}
}
