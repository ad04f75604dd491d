package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/vexlang/vex/internal/ast"
	"github.com/vexlang/vex/internal/diagnostics"
	"github.com/vexlang/vex/internal/env"
	"github.com/vexlang/vex/internal/registry"
	"github.com/vexlang/vex/internal/types"
)

func testEnv() *env.Environment {
	e := env.New(nil)
	e.SetExpression(&env.Variable{
		Name: "v",
		Expr: &ast.Call{Op: "vec.lit", Args: []ast.Node{
			&ast.Const{K: types.Real, Value: 1.0},
			&ast.Const{K: types.Real, Value: 2.0},
		}, K: types.RealVector},
		Kind: types.RealVector,
	})
	e.SetExpression(&env.Variable{Name: "x", Expr: &ast.Const{K: types.Real, Value: 1.5}, Kind: types.Real})
	e.SetExpression(&env.Variable{Name: "a", Expr: &ast.Const{K: types.Real, Value: 1.0}, Kind: types.Real})
	e.SetExpression(&env.Variable{Name: "b", Expr: &ast.Const{K: types.Real, Value: 2.0}, Kind: types.Real})
	e.SetExpression(&env.Variable{Name: "c", Expr: &ast.Const{K: types.Real, Value: 3.0}, Kind: types.Real})
	return e
}

func compile(t *testing.T, src string) ast.Node {
	t.Helper()
	n, err := New(src, registry.Builtin(), testEnv()).Formula()
	if err != nil {
		t.Fatalf("compile %q: %v", src, err)
	}
	return n
}

func compileErr(t *testing.T, src string) error {
	t.Helper()
	_, err := New(src, registry.Builtin(), testEnv()).Formula()
	if err == nil {
		t.Fatalf("compile %q: expected an error", src)
	}
	return err
}

func TestConstantFolding(t *testing.T) {
	n := compile(t, "1 + 2 * 3")
	c, ok := n.(*ast.Const)
	if !ok {
		t.Fatalf("tree is %T, want a folded constant", n)
	}
	if c.Value != int64(7) || c.K != types.Integer {
		t.Errorf("folded to %v (%s), want 7 (integer)", c.Value, c.K)
	}
}

func TestConstantFoldingTable(t *testing.T) {
	tests := []struct {
		src  string
		want interface{}
		kind types.Kind
	}{
		{"10 - 4", int64(6), types.Integer},
		{"7 mod 3", int64(1), types.Integer},
		{"1 / 2", 0.5, types.Real}, // integer division promotes
		{"1.5 * 4.0", 6.0, types.Real},
		{"2^3", int64(8), types.Integer},
		{"2.0^2", 4.0, types.Real},
		{"-3 + 1", int64(-2), types.Integer},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			n := compile(t, tt.src)
			c, ok := n.(*ast.Const)
			if !ok {
				t.Fatalf("tree is %T, want constant", n)
			}
			if c.Value != tt.want || c.K != tt.kind {
				t.Errorf("got %v (%s), want %v (%s)", c.Value, c.K, tt.want, tt.kind)
			}
		})
	}
}

func TestDivisionByZeroIsCompileError(t *testing.T) {
	err := compileErr(t, "1 / 0")
	if !strings.Contains(err.Error(), "division by zero") {
		t.Errorf("error = %v", err)
	}
}

func TestFusedScaledSum(t *testing.T) {
	n := compile(t, "2.5 * v + 3.0 * v")
	call, ok := n.(*ast.Call)
	if !ok || call.Op != "vec.axpby" {
		t.Fatalf("tree is %#v, want one vec.axpby call", n)
	}
	if len(call.Args) != 4 {
		t.Fatalf("axpby has %d args, want 4", len(call.Args))
	}
	if call.K != types.RealVector {
		t.Errorf("result kind = %s, want vector", call.K)
	}
}

func TestFusedScaledDifferenceNegatesCoefficient(t *testing.T) {
	n := compile(t, "2.5 * v - 3.0 * v")
	call, ok := n.(*ast.Call)
	if !ok || call.Op != "vec.axpby" {
		t.Fatalf("tree is %T, want vec.axpby", n)
	}
	if _, ok := call.Args[2].(*ast.Unary); !ok {
		t.Errorf("second coefficient should be negated, got %T", call.Args[2])
	}
}

func TestFusedAxpy(t *testing.T) {
	n := compile(t, "2.0 * v + v")
	call, ok := n.(*ast.Call)
	if !ok || call.Op != "vec.axpy" {
		t.Fatalf("tree is %T/%v, want vec.axpy", n, n)
	}
	if len(call.Args) != 4 {
		t.Errorf("axpy has %d args, want 4", len(call.Args))
	}
}

func TestPowerUnrollsWithTemporary(t *testing.T) {
	n := compile(t, "x^2")
	let, ok := n.(*ast.Let)
	if !ok {
		t.Fatalf("tree is %T, want a let-bound temporary", n)
	}
	if _, ok := let.Init.(*ast.VarRef); !ok {
		t.Errorf("temporary init is %T, want the base reference", let.Init)
	}
	mul, ok := let.Body.(*ast.Binary)
	if !ok || mul.Op != ast.OpMul {
		t.Fatalf("body is %#v, want a single multiplication", let.Body)
	}
	lref, lok := mul.L.(*ast.LocalRef)
	rref, rok := mul.R.(*ast.LocalRef)
	if !lok || !rok || lref.Name != let.Name || rref.Name != let.Name {
		t.Error("multiplication should reference the temporary on both sides")
	}
}

func TestSquaredPostfixMatchesCaret(t *testing.T) {
	a := compile(t, "x²")
	b := compile(t, "x^2")
	la, aok := a.(*ast.Let)
	lb, bok := b.(*ast.Let)
	if !aok || !bok {
		t.Fatalf("trees are %T and %T, want lets", a, b)
	}
	if _, ok := la.Body.(*ast.Binary); !ok {
		t.Error("² should unroll like ^2")
	}
	_ = lb
}

func TestPowerFourNestsTemporaries(t *testing.T) {
	n := compile(t, "x^4")
	outer, ok := n.(*ast.Let)
	if !ok {
		t.Fatalf("tree is %T", n)
	}
	inner, ok := outer.Body.(*ast.Let)
	if !ok {
		t.Fatalf("x^4 body is %T, want nested let for the square", outer.Body)
	}
	if _, ok := inner.Body.(*ast.Binary); !ok {
		t.Error("inner body should be the squared-square multiplication")
	}
}

func TestChainedComparisonSharesMiddle(t *testing.T) {
	n := compile(t, "a < b < c")
	let, ok := n.(*ast.Let)
	if !ok {
		t.Fatalf("tree is %T, want a let binding the middle operand", n)
	}
	if _, ok := let.Init.(*ast.VarRef); !ok {
		t.Errorf("middle binding init is %T, want reference to b", let.Init)
	}
	and, ok := let.Body.(*ast.Binary)
	if !ok || and.Op != ast.OpAnd {
		t.Fatalf("body is %#v, want a conjunction", let.Body)
	}
	left, lok := and.L.(*ast.Binary)
	right, rok := and.R.(*ast.Binary)
	if !lok || !rok || left.Op != ast.OpLt || right.Op != ast.OpLt {
		t.Fatal("conjunction sides should be the two comparisons")
	}
	lr, ok1 := left.R.(*ast.LocalRef)
	rl, ok2 := right.L.(*ast.LocalRef)
	if !ok1 || !ok2 || lr.Name != let.Name || rl.Name != let.Name {
		t.Error("both comparisons should reference the shared temporary")
	}
}

func TestComprehensionLowersToFusedStage(t *testing.T) {
	n := compile(t, "[k in 1..10 : k mod 2 = 0 => k*k]")
	call, ok := n.(*ast.Call)
	if !ok || call.Op != "ivec.filtermap" {
		t.Fatalf("tree is %#v, want ivec.filtermap", n)
	}
	gen, ok := call.Args[0].(*ast.Call)
	if !ok || gen.Op != "range.int" {
		t.Fatalf("generator is %#v, want range.int", call.Args[0])
	}
	if call.K != types.IntegerVector {
		t.Errorf("result kind = %s, want integer vector", call.K)
	}
	if len(call.Args) != 3 {
		t.Fatalf("stage has %d args, want generator, filter, mapper", len(call.Args))
	}
}

func TestQuantifierLowersToReduction(t *testing.T) {
	n := compile(t, "[any k in 1..5 : k > 3]")
	call, ok := n.(*ast.Call)
	if !ok || call.Op != "agg.any" {
		t.Fatalf("tree is %#v, want agg.any", n)
	}
	if call.K != types.Boolean {
		t.Errorf("kind = %s, want boolean", call.K)
	}
}

func TestVectorLiteralKinds(t *testing.T) {
	tests := []struct {
		src  string
		op   string
		kind types.Kind
	}{
		{"[1, 2, 3]", "ivec.lit", types.IntegerVector},
		{"[1.0, 2, 3]", "vec.lit", types.RealVector},
		{"[1, 2i]", "cvec.lit", types.ComplexVector},
		{"[1, 2; 3, 4]", "mat.lit", types.Matrix},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			n := compile(t, tt.src)
			call, ok := n.(*ast.Call)
			if !ok || call.Op != tt.op {
				t.Fatalf("tree is %#v, want %s", n, tt.op)
			}
			if call.K != tt.kind {
				t.Errorf("kind = %s, want %s", call.K, tt.kind)
			}
		})
	}
}

func TestRaggedMatrixLiteralRejected(t *testing.T) {
	err := compileErr(t, "[1, 2; 3]")
	if !strings.Contains(err.Error(), "differ in length") {
		t.Errorf("error = %v", err)
	}
}

func TestAmbiguousOverloadNamesCallSite(t *testing.T) {
	reg := registry.New()
	reg.AddClass("Thing", &registry.Descriptor{
		Name: "make", Op: "vec.zeros", Params: []types.Kind{types.String, types.Real}, Result: types.RealVector,
	})
	reg.AddClass("Thing", &registry.Descriptor{
		Name: "make", Op: "vec.ones", Params: []types.Kind{types.String, types.Any}, Result: types.RealVector,
	})

	_, err := New(`Thing.make("hi", 1.5)`, reg, env.New(nil)).Formula()
	if err == nil {
		t.Fatal("expected ambiguity error")
	}
	if !strings.Contains(err.Error(), "ambiguous call") {
		t.Errorf("error = %v", err)
	}
	var diag *diagnostics.Error
	if !errors.As(err, &diag) {
		t.Fatalf("error is %T, want positioned diagnostic", err)
	}
	if diag.Pos <= 0 {
		t.Errorf("diagnostic position = %d, want the member offset", diag.Pos)
	}
}

// The tie-break inspects the first argument only. Two candidates that differ
// from the second position on stay ambiguous even when one of them matches
// the later arguments exactly.
func TestTieBreakIsShallow(t *testing.T) {
	reg := registry.New()
	reg.AddGlobal(&registry.Descriptor{
		Name: "pick", Op: "vec.zeros",
		Params: []types.Kind{types.Real, types.Real, types.Any}, Result: types.Real,
	})
	reg.AddGlobal(&registry.Descriptor{
		Name: "pick", Op: "vec.ones",
		Params: []types.Kind{types.Real, types.Any, types.Real}, Result: types.Real,
	})

	_, err := New("pick(1.0, 2.0, 3.0)", reg, env.New(nil)).Formula()
	if err == nil || !strings.Contains(err.Error(), "ambiguous call") {
		t.Errorf("want shallow tie-break ambiguity, got %v", err)
	}

	// A first-argument exact match does break the tie.
	reg2 := registry.New()
	reg2.AddGlobal(&registry.Descriptor{
		Name: "pick", Op: "math.abs", Params: []types.Kind{types.Real}, Result: types.Real,
	})
	reg2.AddGlobal(&registry.Descriptor{
		Name: "pick", Op: "cmath.abs", Params: []types.Kind{types.Complex}, Result: types.Real,
	})
	n, err := New("pick(1.5)", reg2, env.New(nil)).Formula()
	if err != nil {
		t.Fatalf("first-arg tie-break failed: %v", err)
	}
	if call := n.(*ast.Call); call.Op != "math.abs" {
		t.Errorf("picked %s, want the exact real overload", call.Op)
	}
}

func TestLambdaArgumentResolution(t *testing.T) {
	n := compile(t, "count(v, e -> e > 1.0)")
	call, ok := n.(*ast.Call)
	if !ok || call.Op != "vec.count" {
		t.Fatalf("tree is %#v, want vec.count", n)
	}
	lam, ok := call.Args[1].(*ast.Lambda)
	if !ok {
		t.Fatalf("arg 1 is %T, want lambda", call.Args[1])
	}
	if len(lam.Params) != 1 || lam.Params[0].K != types.Real {
		t.Errorf("lambda params = %+v, want one real", lam.Params)
	}
}

func TestDefaultSeedAppended(t *testing.T) {
	n := compile(t, "random(4)")
	call, ok := n.(*ast.Call)
	if !ok || call.Op != "rand.vector" {
		t.Fatalf("tree is %#v, want rand.vector", n)
	}
	if len(call.Args) != 2 {
		t.Fatalf("args = %d, want declared + implied seed", len(call.Args))
	}
	seed, ok := call.Args[1].(*ast.Const)
	if !ok || seed.K != types.Integer {
		t.Errorf("implied seed is %#v", call.Args[1])
	}
}

func TestLetScopeRollsBack(t *testing.T) {
	// The binding must not leak out of the let body.
	err := compileErr(t, "(let y = 2.0 in y + 1.0) + y")
	if !strings.Contains(err.Error(), "unknown identifier") {
		t.Errorf("error = %v", err)
	}

	n := compile(t, "let y = 2.0 in y * x")
	if _, ok := n.(*ast.Let); !ok {
		t.Errorf("tree is %T, want let", n)
	}
}

func TestLetDuplicateBindingRejected(t *testing.T) {
	err := compileErr(t, "let y = 1.0, y = 2.0 in y")
	if !strings.Contains(err.Error(), "already bound") {
		t.Errorf("error = %v", err)
	}
}

func TestMembershipSuspendedInLetInitializer(t *testing.T) {
	// The `in` after the initializer closes the clause list; it must not be
	// parsed as the membership operator against the initializer.
	n := compile(t, "let k = 2 in k in [1, 2, 3]")
	let, ok := n.(*ast.Let)
	if !ok {
		t.Fatalf("tree is %T, want let", n)
	}
	bin, ok := let.Body.(*ast.Binary)
	if !ok || bin.Op != ast.OpIn {
		t.Fatalf("body is %#v, want membership", let.Body)
	}
}

func TestConditionalBranchUnification(t *testing.T) {
	n := compile(t, "if a > b then 1 else 2.5")
	cond, ok := n.(*ast.Cond)
	if !ok {
		t.Fatalf("tree is %T", n)
	}
	if cond.K != types.Real {
		t.Errorf("branches should unify to real, got %s", cond.K)
	}
}

func TestIndexKinds(t *testing.T) {
	tests := []struct {
		src  string
		kind types.Kind
	}{
		{"v[0]", types.Real},
		{"v[1..]", types.RealVector},
		{"v[^1]", types.Real},
		{"v{0}", types.Real},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			n := compile(t, tt.src)
			idx, ok := n.(*ast.Index)
			if !ok {
				t.Fatalf("tree is %T, want index", n)
			}
			if idx.K != tt.kind {
				t.Errorf("kind = %s, want %s", idx.K, tt.kind)
			}
		})
	}
}

func TestSafeIndexRejectsRanges(t *testing.T) {
	err := compileErr(t, "v{1..2}")
	if !strings.Contains(err.Error(), "safe indexing") {
		t.Errorf("error = %v", err)
	}
}

func TestSessionVariableForbiddenInDefinition(t *testing.T) {
	p := New("f(y) := y + x", registry.Builtin(), testEnv())
	_, err := p.Script()
	if err == nil || !strings.Contains(err.Error(), "session variable") {
		t.Errorf("error = %v", err)
	}
}

func TestRecursiveDefinitionUsesFixpoint(t *testing.T) {
	p := New("fact(n: real): real := if n <= 1.0 then 1.0 else n * fact(n - 1.0)", registry.Builtin(), env.New(nil))
	stmts, err := p.Script()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(stmts) != 1 || stmts[0].Def == nil {
		t.Fatal("expected one definition statement")
	}
	def := stmts[0].Def
	if !def.Recursive {
		t.Error("definition should be marked recursive")
	}
	if _, ok := def.Body.(*ast.Fix); !ok {
		t.Errorf("body is %T, want fixed point", def.Body)
	}
}

func TestNonRecursiveDefinitionSkipsFixpoint(t *testing.T) {
	p := New("double(n) := n * 2.0", registry.Builtin(), env.New(nil))
	stmts, err := p.Script()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if stmts[0].Def.Recursive {
		t.Error("non-recursive definition marked recursive")
	}
	if _, ok := stmts[0].Def.Body.(*ast.Lambda); !ok {
		t.Errorf("body is %T, want plain lambda", stmts[0].Def.Body)
	}
}

func TestOpenLetWrapsLaterStatements(t *testing.T) {
	p := New("let k = 2.0; k * 3.0", registry.Builtin(), env.New(nil))
	stmts, err := p.Script()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(stmts) != 2 {
		t.Fatalf("%d statements, want 2", len(stmts))
	}
	if stmts[0].Expr != nil {
		t.Error("open let should produce no value")
	}
	let, ok := stmts[1].Expr.(*ast.Let)
	if !ok || let.Name != "k" {
		t.Fatalf("second statement is %#v, want wrapped in the open binding", stmts[1].Expr)
	}
}

func TestStopAtAborts(t *testing.T) {
	p := New("1 + 2 + sin(0.5)", registry.Builtin(), env.New(nil))
	p.StopAt(4)
	_, err := p.Formula()
	if !diagnostics.Aborted(err) {
		t.Errorf("error = %v, want the abort signal", err)
	}
}

func TestDeterministicTrees(t *testing.T) {
	src := "2.5 * v + 3.0 * v + v"
	a := ast.Sprint(compile(t, src))
	b := ast.Sprint(compile(t, src))
	if a != b {
		t.Errorf("same source produced different trees:\n%s\n%s", a, b)
	}
}

func TestTypesMode(t *testing.T) {
	p := New("1 + 2; 1.5 * 2.0; [1, 2, 3]", registry.Builtin(), env.New(nil))
	kinds, err := p.Types()
	if err != nil {
		t.Fatalf("types: %v", err)
	}
	want := []types.Kind{types.Integer, types.Real, types.IntegerVector}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("statement %d kind = %s, want %s", i, kinds[i], want[i])
		}
	}
}

func TestCoefficientShorthand(t *testing.T) {
	n := compile(t, "2x")
	bin, ok := n.(*ast.Binary)
	if !ok || bin.Op != ast.OpMul {
		t.Fatalf("tree is %#v, want multiplication", n)
	}
	if n.Kind() != types.Real {
		t.Errorf("kind = %s, want real", n.Kind())
	}
}

func TestTransposeKindFlip(t *testing.T) {
	e := env.New(nil)
	e.SetExpression(&env.Variable{Name: "L", Kind: types.LowerMatrix,
		Expr: &ast.Const{K: types.LowerMatrix}})
	n, err := New("L'", registry.Builtin(), e).Formula()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if n.Kind() != types.UpperMatrix {
		t.Errorf("lower transposed = %s, want upper", n.Kind())
	}
}
