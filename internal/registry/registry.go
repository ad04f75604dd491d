package registry

import (
	"strings"

	"github.com/vexlang/vex/internal/types"
)

// DefaultArg marks a defaultable trailing parameter. When a descriptor with
// one wins resolution, the compiler appends the implied constant argument
// itself; callers never pass it.
type DefaultArg uint8

const (
	NoDefault DefaultArg = iota
	DefaultSeed
	DefaultZero
	DefaultOne
)

// Descriptor is one callable overload: the operation key the evaluator
// dispatches on, the ordered expected parameter kinds, its arity rule and the
// lambda-arity markers for parameter positions that take closures.
type Descriptor struct {
	Name   string
	Op     string
	Params []types.Kind
	Result types.Kind

	// Variadic means the trailing parameter repeats zero or more times.
	Variadic bool

	// Default marks the trailing parameter as defaultable.
	Default DefaultArg

	// Lambda1 and Lambda2 are bitmasks over parameter positions that accept a
	// single- or double-parameter lambda. For those positions LambdaSig holds
	// the lambda's own parameter kinds.
	Lambda1   uint32
	Lambda2   uint32
	LambdaSig map[int][]types.Kind
}

// ExpectedArgs returns the declared argument count: -1 when unbounded through
// a trailing variadic parameter, otherwise the parameter count minus one when
// the trailing parameter is defaultable.
func (d *Descriptor) ExpectedArgs() int {
	if d.Variadic {
		return -1
	}
	n := len(d.Params)
	if d.Default != NoDefault {
		n--
	}
	return n
}

// ParamAt returns the expected kind at argument position i, following the
// variadic trailing parameter past the declared list. ok is false when the
// descriptor cannot take an argument at i at all.
func (d *Descriptor) ParamAt(i int) (types.Kind, bool) {
	if i < len(d.Params) {
		return d.Params[i], true
	}
	if d.Variadic && len(d.Params) > 0 {
		return d.Params[len(d.Params)-1], true
	}
	return types.Invalid, false
}

// WantsLambda reports whether position i is a lambda slot, and with which
// arity marker.
func (d *Descriptor) WantsLambda(i int) (one, two bool) {
	if i > 31 {
		return false, false
	}
	return d.Lambda1&(1<<uint(i)) != 0, d.Lambda2&(1<<uint(i)) != 0
}

// OverloadSet is the fixed, ordered candidate array sharing one callable
// name. Resolution must end with exactly one surviving member.
type OverloadSet []*Descriptor

// Registry is the read-only catalog the parser consults. Member lookups are
// case-insensitive; population happens once at load time.
type Registry struct {
	globals    map[string]OverloadSet
	classes    map[string]map[string]OverloadSet
	instance   map[types.Kind]map[string]OverloadSet
	properties map[types.Kind]map[string]*Descriptor
}

func New() *Registry {
	return &Registry{
		globals:    make(map[string]OverloadSet),
		classes:    make(map[string]map[string]OverloadSet),
		instance:   make(map[types.Kind]map[string]OverloadSet),
		properties: make(map[types.Kind]map[string]*Descriptor),
	}
}

func fold(name string) string { return strings.ToLower(name) }

// AddGlobal appends a candidate to a global overload set.
func (r *Registry) AddGlobal(d *Descriptor) {
	key := fold(d.Name)
	r.globals[key] = append(r.globals[key], d)
}

// AddClass appends a candidate to a class-level overload set, e.g.
// ("Matrix", identity-descriptor).
func (r *Registry) AddClass(class string, d *Descriptor) {
	ck := fold(class)
	if r.classes[ck] == nil {
		r.classes[ck] = make(map[string]OverloadSet)
	}
	mk := fold(d.Name)
	r.classes[ck][mk] = append(r.classes[ck][mk], d)
}

// AddInstance appends a candidate to the (receiver kind, name) overload set.
// The receiver is not part of Params; call sites pass it as argument zero.
func (r *Registry) AddInstance(recv types.Kind, d *Descriptor) {
	if r.instance[recv] == nil {
		r.instance[recv] = make(map[string]OverloadSet)
	}
	mk := fold(d.Name)
	r.instance[recv][mk] = append(r.instance[recv][mk], d)
}

// AddProperty registers a zero-argument property accessor for (kind, name).
func (r *Registry) AddProperty(recv types.Kind, d *Descriptor) {
	if r.properties[recv] == nil {
		r.properties[recv] = make(map[string]*Descriptor)
	}
	r.properties[recv][fold(d.Name)] = d
}

// ResolveProperty returns the property accessor for (kind, name), or nil.
func (r *Registry) ResolveProperty(recv types.Kind, name string) *Descriptor {
	return r.properties[recv][fold(name)]
}

// ResolveInstanceOverloads returns the overload set for (kind, name), or nil.
func (r *Registry) ResolveInstanceOverloads(recv types.Kind, name string) OverloadSet {
	return r.instance[recv][fold(name)]
}

// ResolveClassOverloads returns the overload set for a qualified class member
// such as "Matrix.identity", or nil.
func (r *Registry) ResolveClassOverloads(class, name string) OverloadSet {
	return r.classes[fold(class)][fold(name)]
}

// ResolveGlobalOverloads returns the overload set of a global function.
func (r *Registry) ResolveGlobalOverloads(name string) OverloadSet {
	return r.globals[fold(name)]
}

// IsClassName reports whether ident names a builtin class table.
func (r *Registry) IsClassName(ident string) bool {
	_, ok := r.classes[fold(ident)]
	return ok
}
