// Package vex is the public surface of the Vex expression compiler: parse a
// formula or a script, type-check it, and evaluate the compiled tree against
// a session of variables and named definitions.
package vex

import (
	"fmt"

	"github.com/vexlang/vex/internal/ast"
	"github.com/vexlang/vex/internal/env"
	"github.com/vexlang/vex/internal/evaluator"
	"github.com/vexlang/vex/internal/parser"
	"github.com/vexlang/vex/internal/registry"
	"github.com/vexlang/vex/internal/types"
)

// Value is an evaluation result.
type Value = evaluator.Value

// Result is the outcome of one executed statement. Value is nil for
// definitions and for open let statements, which bind but produce nothing.
type Result struct {
	Name  string
	Kind  types.Kind
	Value Value
}

// Session holds the bindings accumulated across Exec calls. Sessions backed
// by a store file keep their definitions across restarts.
type Session struct {
	reg   *registry.Registry
	env   *env.Environment
	store *env.Store
}

// NewSession returns an in-memory session.
func NewSession() *Session {
	return &Session{reg: registry.Builtin(), env: env.New(nil)}
}

// OpenSession returns a session whose definitions persist in the SQLite file
// at path. Stored definitions are recompiled in dependency order before the
// session is handed out.
func OpenSession(path string) (*Session, error) {
	store, err := env.OpenStore(path)
	if err != nil {
		return nil, err
	}
	s := &Session{reg: registry.Builtin(), env: env.New(store), store: store}
	if err := s.recompileStored(); err != nil {
		store.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the backing store, if any.
func (s *Session) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// recompileStored rebuilds the expression trees of persisted definitions.
// The store keeps only source text; bodies are compiled fresh, dependencies
// before dependents.
func (s *Session) recompileStored() error {
	defs, err := s.store.All()
	if err != nil {
		return err
	}
	pendingDefs := make(map[string]*env.Definition, len(defs))
	for _, d := range defs {
		pendingDefs[d.Name] = d
	}
	for len(pendingDefs) > 0 {
		progressed := false
		for name, d := range pendingDefs {
			if !depsReady(d, pendingDefs) {
				continue
			}
			stmts, err := parser.New(d.Source, s.reg, s.env).Script()
			if err != nil {
				return fmt.Errorf("stored definition %q: %w", name, err)
			}
			if len(stmts) != 1 || stmts[0].Def == nil {
				return fmt.Errorf("stored definition %q: source is not a definition", name)
			}
			if err := s.env.SetDefinition(stmts[0].Def); err != nil {
				return err
			}
			delete(pendingDefs, name)
			progressed = true
		}
		if !progressed {
			return fmt.Errorf("stored definitions form a dependency cycle")
		}
	}
	return nil
}

func depsReady(d *env.Definition, pending map[string]*env.Definition) bool {
	for _, dep := range d.DependsOn {
		if dep == d.Name {
			continue
		}
		if _, waiting := pending[dep]; waiting {
			return false
		}
	}
	return true
}

// Exec compiles and runs a ;-separated script. Bindings the script makes are
// staged and committed only when every statement succeeds, so a failing
// script leaves the session untouched.
func (s *Session) Exec(source string) ([]Result, error) {
	stmts, err := parser.New(source, s.reg, s.env).Script()
	if err != nil {
		return nil, err
	}

	receipt := s.env.Enqueue()
	staged := overlay{staged: make(map[string]ast.Node), base: s.env}
	ev := evaluator.New(staged)
	results := make([]Result, 0, len(stmts))
	for _, st := range stmts {
		switch {
		case st.Def != nil:
			if err := s.env.StageDefinition(receipt, st.Def); err != nil {
				s.env.Discard(receipt)
				return nil, err
			}
			results = append(results, Result{Name: st.Def.Name, Kind: types.Function})
		case st.Expr == nil:
			// Open let statement: its bindings are folded into the trees of
			// the statements that follow it.
			results = append(results, Result{Kind: types.Void})
		case st.Name != "":
			v, err := ev.Eval(st.Expr, nil)
			if err != nil {
				s.env.Discard(receipt)
				return nil, err
			}
			stageErr := s.env.StageExpression(receipt, &env.Variable{
				Name:   st.Name,
				Source: source,
				Expr:   st.Expr,
				Kind:   st.Expr.Kind(),
			})
			if stageErr != nil {
				s.env.Discard(receipt)
				return nil, stageErr
			}
			staged.staged[st.Name] = st.Expr
			results = append(results, Result{Name: st.Name, Kind: st.Expr.Kind(), Value: v})
		default:
			v, err := ev.Eval(st.Expr, nil)
			if err != nil {
				s.env.Discard(receipt)
				return nil, err
			}
			results = append(results, Result{Kind: st.Expr.Kind(), Value: v})
		}
	}
	if err := s.env.Commit(receipt); err != nil {
		return nil, err
	}
	return results, nil
}

// overlay resolves session variables staged earlier in the same script ahead
// of the committed environment.
type overlay struct {
	staged map[string]ast.Node
	base   evaluator.Resolver
}

func (o overlay) ResolveVar(name string) (ast.Node, bool) {
	if n, ok := o.staged[name]; ok {
		return n, true
	}
	return o.base.ResolveVar(name)
}

// Remove drops a session binding. Removing a definition other definitions
// depend on is refused.
func (s *Session) Remove(name string) error {
	if deps := s.env.Dependents(name); len(deps) > 0 {
		return fmt.Errorf("%q is used by %v", name, deps)
	}
	return s.env.Remove(name)
}

// Names lists every bound name in the session.
func (s *Session) Names() []string { return s.env.Names() }

// Compile parses and type-checks a single formula against the session.
func (s *Session) Compile(source string) (ast.Node, error) {
	return parser.New(source, s.reg, s.env).Formula()
}

// CheckTypes compiles a script in type-only mode and reports the result kind
// of each statement. Nothing is evaluated and nothing is bound.
func (s *Session) CheckTypes(source string) ([]types.Kind, error) {
	return parser.New(source, s.reg, s.env).Types()
}

// Compile parses and type-checks a standalone formula with the builtin
// registry and an empty environment.
func Compile(source string) (ast.Node, error) {
	return parser.New(source, registry.Builtin(), env.New(nil)).Formula()
}

// Eval compiles and evaluates a standalone formula.
func Eval(source string) (Value, error) {
	e := env.New(nil)
	n, err := parser.New(source, registry.Builtin(), e).Formula()
	if err != nil {
		return nil, err
	}
	return evaluator.New(e).Eval(n, nil)
}
