package scope

import (
	"github.com/vexlang/vex/internal/ast"
	"github.com/vexlang/vex/internal/types"
)

// LambdaInfo describes a callable binding: a local function introduced by a
// let clause, or the open placeholder a named definition installs for itself
// while its body is still being built.
type LambdaInfo struct {
	Params []ast.Param
	Result types.Kind

	// Placeholder marks an open-recursion slot. Used flips when the body
	// actually references it; only then does the finished definition get
	// wrapped in a fixed-point closure.
	Placeholder bool
	Used        bool
}

// Binding is one compile-time local: a let value, a lambda parameter or a
// local function. Value bindings carry just a kind; callable bindings carry
// a LambdaInfo as well.
type Binding struct {
	Name   string
	Kind   types.Kind
	Lambda *LambdaInfo
}

// Stack is the scope manager. Bindings form one flat stack; a syntactic
// construct takes a mark on entry and rolls back to it on every exit path,
// so a frame never outlives its construct. Lookup walks innermost-first,
// which gives lambda parameters shadowing over outer bindings for free.
type Stack struct {
	bindings []*Binding
}

func NewStack() *Stack {
	return &Stack{}
}

// Mark returns the current frame boundary.
func (s *Stack) Mark() int {
	return len(s.bindings)
}

// Rollback removes every binding introduced after mark.
func (s *Stack) Rollback(mark int) {
	if mark < 0 || mark > len(s.bindings) {
		return
	}
	for i := mark; i < len(s.bindings); i++ {
		s.bindings[i] = nil
	}
	s.bindings = s.bindings[:mark]
}

// Declare pushes a binding onto the innermost frame.
func (s *Stack) Declare(b *Binding) {
	s.bindings = append(s.bindings, b)
}

// Lookup finds the innermost binding for name, or nil.
func (s *Stack) Lookup(name string) *Binding {
	for i := len(s.bindings) - 1; i >= 0; i-- {
		if s.bindings[i].Name == name {
			return s.bindings[i]
		}
	}
	return nil
}

// DeclaredWithin reports whether name was bound at or after mark. The parser
// uses it to reject duplicate bindings inside one let clause while still
// allowing shadowing of outer scopes.
func (s *Stack) DeclaredWithin(mark int, name string) bool {
	for i := len(s.bindings) - 1; i >= mark; i-- {
		if s.bindings[i].Name == name {
			return true
		}
	}
	return false
}
