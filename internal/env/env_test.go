package env

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/vexlang/vex/internal/ast"
	"github.com/vexlang/vex/internal/types"
)

func realConst(v float64) ast.Node {
	return &ast.Const{K: types.Real, Value: v}
}

func TestStagedBindingsInvisibleUntilCommit(t *testing.T) {
	e := New(nil)
	r := e.Enqueue()

	if err := e.StageExpression(r, &Variable{Name: "x", Expr: realConst(1), Kind: types.Real}); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if _, ok := e.GetExpression("x"); ok {
		t.Fatal("staged variable visible before commit")
	}

	if err := e.Commit(r); err != nil {
		t.Fatalf("commit: %v", err)
	}
	v, ok := e.GetExpression("x")
	if !ok || v.Kind != types.Real {
		t.Fatalf("committed variable missing, got %+v", v)
	}
}

func TestDiscardDropsSpan(t *testing.T) {
	e := New(nil)
	r := e.Enqueue()
	e.StageExpression(r, &Variable{Name: "x", Expr: realConst(1), Kind: types.Real})
	e.StageDefinition(r, &Definition{Name: "f", Source: "f(a) := a"})
	e.Discard(r)

	if _, ok := e.GetExpression("x"); ok {
		t.Error("discarded variable leaked")
	}
	if _, ok := e.GetDefinition("f"); ok {
		t.Error("discarded definition leaked")
	}
	if err := e.Commit(r); err == nil {
		t.Error("commit of discarded receipt should fail")
	}
}

func TestUnknownReceiptRejected(t *testing.T) {
	e := New(nil)
	if err := e.StageExpression("nope", &Variable{Name: "x"}); err == nil {
		t.Error("staging under unknown receipt should fail")
	}
	if err := e.StageDefinition("nope", &Definition{Name: "f"}); err == nil {
		t.Error("staging under unknown receipt should fail")
	}
}

func TestSpansAreIndependent(t *testing.T) {
	e := New(nil)
	a := e.Enqueue()
	b := e.Enqueue()
	if a == b {
		t.Fatal("receipts collide")
	}
	e.StageExpression(a, &Variable{Name: "x", Expr: realConst(1), Kind: types.Real})
	e.StageExpression(b, &Variable{Name: "y", Expr: realConst(2), Kind: types.Real})
	e.Discard(a)
	if err := e.Commit(b); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, ok := e.GetExpression("x"); ok {
		t.Error("binding from the discarded span leaked")
	}
	if _, ok := e.GetExpression("y"); !ok {
		t.Error("binding from the committed span missing")
	}
}

func TestNamesMergesAndSorts(t *testing.T) {
	e := New(nil)
	e.SetExpression(&Variable{Name: "beta", Expr: realConst(1), Kind: types.Real})
	e.SetExpression(&Variable{Name: "alpha", Expr: realConst(2), Kind: types.Real})
	e.SetDefinition(&Definition{Name: "gamma"})

	got := e.Names()
	want := []string{"alpha", "beta", "gamma"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestDependents(t *testing.T) {
	e := New(nil)
	e.SetDefinition(&Definition{Name: "f", DependsOn: []string{"g"}})
	e.SetDefinition(&Definition{Name: "h", DependsOn: []string{"g", "f"}})
	e.SetDefinition(&Definition{Name: "g"})

	if got := e.Dependents("g"); !reflect.DeepEqual(got, []string{"f", "h"}) {
		t.Errorf("Dependents(g) = %v", got)
	}
	if got := e.Dependents("h"); len(got) != 0 {
		t.Errorf("Dependents(h) = %v, want none", got)
	}
}

func TestResolveVar(t *testing.T) {
	e := New(nil)
	e.SetExpression(&Variable{Name: "x", Expr: realConst(3), Kind: types.Real})
	n, ok := e.ResolveVar("x")
	if !ok {
		t.Fatal("resolve failed")
	}
	if c := n.(*ast.Const); c.Value != 3.0 {
		t.Errorf("resolved %v", c.Value)
	}
	if _, ok := e.ResolveVar("missing"); ok {
		t.Error("resolved an unbound name")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	s, err := OpenStore(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	d := &Definition{
		Name:      "fact",
		Params:    []string{"n"},
		Source:    "fact(n: real): real := if n <= 1.0 then 1.0 else n * fact(n - 1.0)",
		Recursive: true,
		DependsOn: []string{"helper"},
	}
	if err := s.Save(d); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Load("fact")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil {
		t.Fatal("load returned nothing")
	}
	if got.Source != d.Source || !got.Recursive {
		t.Errorf("loaded %+v", got)
	}
	if !reflect.DeepEqual(got.Params, d.Params) || !reflect.DeepEqual(got.DependsOn, d.DependsOn) {
		t.Errorf("lists survived badly: %v %v", got.Params, got.DependsOn)
	}
	if got.Body != nil {
		t.Error("stored definitions must come back unbodied")
	}
}

func TestStoreMissingNameIsNilNil(t *testing.T) {
	s, err := OpenStore(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	d, err := s.Load("ghost")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if d != nil {
		t.Errorf("load of missing name = %+v, want nil", d)
	}
}

func TestStoreSaveReplaces(t *testing.T) {
	s, _ := OpenStore(":memory:")
	defer s.Close()

	s.Save(&Definition{Name: "f", Source: "f(a) := a"})
	s.Save(&Definition{Name: "f", Source: "f(a) := a * 2.0"})

	got, err := s.Load("f")
	if err != nil || got == nil {
		t.Fatalf("load: %v %v", got, err)
	}
	if got.Source != "f(a) := a * 2.0" {
		t.Errorf("source = %q, want the replacement", got.Source)
	}
}

func TestStoreAllSorted(t *testing.T) {
	s, _ := OpenStore(":memory:")
	defer s.Close()

	s.Save(&Definition{Name: "zed", Source: "zed() := 1.0"})
	s.Save(&Definition{Name: "abe", Source: "abe() := 2.0"})

	all, err := s.All()
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 2 || all[0].Name != "abe" || all[1].Name != "zed" {
		t.Errorf("All() order: %v, %v", all[0].Name, all[1].Name)
	}
}

func TestStorePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defs.db")

	s1, err := OpenStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s1.Save(&Definition{Name: "f", Params: []string{"a"}, Source: "f(a) := a + 1.0"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	s1.Close()

	s2, err := OpenStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, err := s2.Load("f")
	if err != nil || got == nil {
		t.Fatalf("load after reopen: %v %v", got, err)
	}
	if got.Source != "f(a) := a + 1.0" {
		t.Errorf("source = %q", got.Source)
	}
}

func TestEnvironmentDeleteReachesStore(t *testing.T) {
	s, _ := OpenStore(":memory:")
	defer s.Close()
	e := New(s)

	if err := e.SetDefinition(&Definition{Name: "f", Source: "f(a) := a"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := e.Remove("f"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	d, err := s.Load("f")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if d != nil {
		t.Error("definition survived removal in the store")
	}
}

func TestCommitPersistsStagedDefinitions(t *testing.T) {
	s, _ := OpenStore(":memory:")
	defer s.Close()
	e := New(s)

	r := e.Enqueue()
	e.StageDefinition(r, &Definition{Name: "f", Source: "f(a) := a"})
	if d, _ := s.Load("f"); d != nil {
		t.Fatal("staged definition reached the store before commit")
	}
	if err := e.Commit(r); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if d, _ := s.Load("f"); d == nil {
		t.Error("committed definition missing from the store")
	}
}

func TestListCodecRoundTrip(t *testing.T) {
	tests := [][]string{nil, {"a"}, {"a", "b", "c"}}
	for _, in := range tests {
		if got := splitList(joinList(in)); !reflect.DeepEqual(got, in) {
			t.Errorf("round trip of %v gave %v", in, got)
		}
	}
}

func TestBufferPoolReuse(t *testing.T) {
	b := RentBuffer()
	b.WriteString("hello")
	ReturnBuffer(b)

	b2 := RentBuffer()
	defer ReturnBuffer(b2)
	if b2.Len() != 0 {
		t.Error("rented buffer not reset")
	}
}

func TestArgsPoolReuse(t *testing.T) {
	list := RentArgs()
	*list = append(*list, realConst(1), realConst(2))
	ReturnArgs(list)

	list2 := RentArgs()
	defer ReturnArgs(list2)
	if len(*list2) != 0 {
		t.Error("rented argument list not cleared")
	}
}
