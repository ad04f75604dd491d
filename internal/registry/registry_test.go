package registry

import (
	"testing"

	"github.com/vexlang/vex/internal/evaluator"
	"github.com/vexlang/vex/internal/types"
)

func TestBuiltinCatalogLoads(t *testing.T) {
	r := Builtin()
	if set := r.ResolveGlobalOverloads("sin"); len(set) != 1 {
		t.Errorf("sin: %d overloads, want 1", len(set))
	}
	if set := r.ResolveGlobalOverloads("sqrt"); len(set) != 2 {
		t.Errorf("sqrt: %d overloads, want 2", len(set))
	}
	if !r.IsClassName("Matrix") || !r.IsClassName("vector") {
		t.Error("class names should resolve case-insensitively")
	}
	if r.IsClassName("NoSuchClass") {
		t.Error("unknown class name resolved")
	}
}

// Every op key the catalog names has to exist in the evaluator's operation
// table, or resolution would produce a tree that cannot run.
func TestCatalogOpsRegistered(t *testing.T) {
	r := Builtin()
	check := func(where string, set OverloadSet) {
		for _, d := range set {
			if !evaluator.HasOp(d.Op) {
				t.Errorf("%s: op %q is not registered in the evaluator", where, d.Op)
			}
		}
	}
	for name, set := range r.globals {
		check("global "+name, set)
	}
	for class, members := range r.classes {
		for name, set := range members {
			check(class+"."+name, set)
		}
	}
	for recv, members := range r.instance {
		for name, set := range members {
			check(recv.String()+"."+name, set)
		}
	}
	for recv, props := range r.properties {
		for name, d := range props {
			if !evaluator.HasOp(d.Op) {
				t.Errorf("property %s.%s: op %q is not registered", recv, name, d.Op)
			}
		}
	}
}

// The quoted catalog shapes are the fragile ones: an unquoted trailing ? or
// a comma inside lambda(a,b) breaks the flow-sequence scalar and the whole
// catalog fails to decode.
func TestEmbeddedCatalogDecodes(t *testing.T) {
	r, err := LoadCatalog(builtinCatalog)
	if err != nil {
		t.Fatalf("embedded catalog: %v", err)
	}

	set := r.ResolveClassOverloads("Matrix", "random")
	if len(set) != 1 || set[0].Default != DefaultSeed {
		t.Fatalf("Matrix.random seed sentinel not decoded: %+v", set)
	}
	if set[0].ExpectedArgs() != 2 {
		t.Errorf("Matrix.random expects %d args, want 2", set[0].ExpectedArgs())
	}

	set = r.ResolveInstanceOverloads(types.TimeSeries, "filter")
	if len(set) != 1 {
		t.Fatalf("series.filter: %d overloads, want 1", len(set))
	}
	sig := set[0].LambdaSig[0]
	if len(sig) != 2 || sig[0] != types.Real || sig[1] != types.Date {
		t.Errorf("series.filter lambda sig = %v, want [real date]", sig)
	}
}

func TestDescriptorShapes(t *testing.T) {
	r := Builtin()

	// random(n) carries a defaultable seed: one declared argument.
	set := r.ResolveGlobalOverloads("random")
	if len(set) != 1 {
		t.Fatalf("random: %d overloads, want 1", len(set))
	}
	d := set[0]
	if d.Default != DefaultSeed {
		t.Errorf("random default = %v, want DefaultSeed", d.Default)
	}
	if d.ExpectedArgs() != 1 {
		t.Errorf("random expects %d args, want 1", d.ExpectedArgs())
	}

	// Vector.of is variadic.
	set = r.ResolveClassOverloads("Vector", "of")
	if len(set) != 1 || !set[0].Variadic {
		t.Fatalf("Vector.of should be one variadic overload, got %+v", set)
	}
	if k, ok := set[0].ParamAt(7); !ok || k != types.Real {
		t.Errorf("variadic tail ParamAt(7) = %s/%v, want real", k, ok)
	}

	// count takes a single-parameter lambda at position 1.
	set = r.ResolveGlobalOverloads("count")
	if len(set) != 1 {
		t.Fatalf("count: %d overloads, want 1", len(set))
	}
	one, two := set[0].WantsLambda(1)
	if !one || two {
		t.Errorf("count arg 1 lambda markers = %v,%v, want one-param only", one, two)
	}
	if sig := set[0].LambdaSig[1]; len(sig) != 1 || sig[0] != types.Real {
		t.Errorf("count lambda sig = %v, want [real]", sig)
	}

	// series map takes a two-parameter (value, date) lambda.
	set = r.ResolveInstanceOverloads(types.TimeSeries, "map")
	if len(set) != 1 {
		t.Fatalf("series.map: %d overloads, want 1", len(set))
	}
	if _, two := set[0].WantsLambda(0); !two {
		t.Error("series.map should take a two-parameter lambda")
	}
}

func TestCaseInsensitiveMembers(t *testing.T) {
	r := Builtin()
	lower := r.ResolveClassOverloads("matrix", "identity")
	upper := r.ResolveClassOverloads("Matrix", "IDENTITY")
	if len(lower) == 0 || len(upper) == 0 {
		t.Fatal("case-insensitive member lookup failed")
	}
	if lower[0] != upper[0] {
		t.Error("case variants resolved to different descriptors")
	}
	if r.ResolveProperty(types.ComplexVector, "LENGTH") == nil {
		t.Error("property lookup should fold case")
	}
}
