// Package env holds the compilation environment: session variables, named
// definitions and their persistence. The parser consults it for the kinds of
// free identifiers; the evaluator consults it for their values.
package env

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/vexlang/vex/internal/ast"
	"github.com/vexlang/vex/internal/types"
)

// Variable is one bound session value: the compiled expression plus the
// source it came from.
type Variable struct {
	Name   string
	Source string
	Expr   ast.Node
	Kind   types.Kind
}

// Definition is one named function definition. Recursive definitions carry
// the flag so callers wrap the body in a fixed point before applying it.
type Definition struct {
	Name       string
	Params     []string
	Source     string
	Body       ast.Node
	ParamKinds []types.Kind
	Kind       types.Kind
	Recursive  bool
	DependsOn  []string
}

// Environment is the mutable binding table for one session. Writes can be
// staged under a receipt and later committed or discarded as one unit, so a
// multi-statement script that fails midway leaves no partial state behind.
type Environment struct {
	mu    sync.RWMutex
	vars  map[string]*Variable
	defs  map[string]*Definition
	spans map[string]*span
	store *Store
}

type span struct {
	vars map[string]*Variable
	defs map[string]*Definition
}

// New returns an empty environment. A nil store keeps definitions in memory
// only.
func New(store *Store) *Environment {
	return &Environment{
		vars:  make(map[string]*Variable),
		defs:  make(map[string]*Definition),
		spans: make(map[string]*span),
		store: store,
	}
}

// SetExpression binds a session variable immediately.
func (e *Environment) SetExpression(v *Variable) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vars[v.Name] = v
}

// GetExpression returns the session variable bound to name.
func (e *Environment) GetExpression(name string) (*Variable, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.vars[name]
	return v, ok
}

// SetDefinition installs a named definition and persists it when a store is
// attached.
func (e *Environment) SetDefinition(d *Definition) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.store != nil {
		if err := e.store.Save(d); err != nil {
			return err
		}
	}
	e.defs[d.Name] = d
	return nil
}

// GetDefinition returns the named definition, loading it from the store when
// it is not yet cached.
func (e *Environment) GetDefinition(name string) (*Definition, bool) {
	e.mu.RLock()
	d, ok := e.defs[name]
	e.mu.RUnlock()
	if ok || e.store == nil {
		return d, ok
	}
	d, err := e.store.Load(name)
	if err != nil || d == nil {
		return nil, false
	}
	e.mu.Lock()
	e.defs[name] = d
	e.mu.Unlock()
	return d, true
}

// Remove drops a binding, variable or definition, from the session and the
// store.
func (e *Environment) Remove(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.vars, name)
	if _, ok := e.defs[name]; ok {
		delete(e.defs, name)
		if e.store != nil {
			return e.store.Delete(name)
		}
	}
	return nil
}

// Names lists all bound names, variables and definitions together, sorted.
func (e *Environment) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.vars)+len(e.defs))
	for n := range e.vars {
		out = append(out, n)
	}
	for n := range e.defs {
		if _, dup := e.vars[n]; !dup {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// Dependents returns the names of definitions that reference name.
func (e *Environment) Dependents(name string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []string
	for _, d := range e.defs {
		for _, dep := range d.DependsOn {
			if dep == name {
				out = append(out, d.Name)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// Enqueue opens a staged write span and returns its receipt. Bindings staged
// under the receipt become visible only on Commit.
func (e *Environment) Enqueue() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := uuid.NewString()
	e.spans[id] = &span{vars: make(map[string]*Variable), defs: make(map[string]*Definition)}
	return id
}

// StageExpression stages a variable binding under an open receipt.
func (e *Environment) StageExpression(receipt string, v *Variable) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.spans[receipt]
	if !ok {
		return fmt.Errorf("env: unknown receipt %s", receipt)
	}
	s.vars[v.Name] = v
	return nil
}

// StageDefinition stages a definition under an open receipt.
func (e *Environment) StageDefinition(receipt string, d *Definition) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.spans[receipt]
	if !ok {
		return fmt.Errorf("env: unknown receipt %s", receipt)
	}
	s.defs[d.Name] = d
	return nil
}

// Commit applies every binding staged under the receipt and closes it.
// Definitions are persisted first; if any write fails, nothing is applied.
func (e *Environment) Commit(receipt string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.spans[receipt]
	if !ok {
		return fmt.Errorf("env: unknown receipt %s", receipt)
	}
	if e.store != nil {
		for _, d := range s.defs {
			if err := e.store.Save(d); err != nil {
				return err
			}
		}
	}
	for n, v := range s.vars {
		e.vars[n] = v
	}
	for n, d := range s.defs {
		e.defs[n] = d
	}
	delete(e.spans, receipt)
	return nil
}

// Discard drops a staged span without applying it.
func (e *Environment) Discard(receipt string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.spans, receipt)
}

// ResolveVar implements the evaluator's resolver over session variables.
func (e *Environment) ResolveVar(name string) (ast.Node, bool) {
	v, ok := e.GetExpression(name)
	if !ok {
		return nil, false
	}
	return v.Expr, true
}
