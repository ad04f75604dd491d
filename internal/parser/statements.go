package parser

import (
	"sort"

	"github.com/vexlang/vex/internal/ast"
	"github.com/vexlang/vex/internal/diagnostics"
	"github.com/vexlang/vex/internal/env"
	"github.com/vexlang/vex/internal/scope"
	"github.com/vexlang/vex/internal/token"
	"github.com/vexlang/vex/internal/types"
)

// parseStatement dispatches on the statement head: `name := expr` assigns a
// session variable, `name(params) := expr` defines a named function, a let
// block without `in` extends the script scope, anything else is a
// value-producing formula.
func (p *Parser) parseStatement() *Statement {
	if p.at(token.LET) {
		return p.parseLetStatement()
	}
	if p.at(token.IDENT) {
		if p.peek().Type == token.ASSIGN {
			return p.parseAssignment()
		}
		if p.peek().Type == token.LPAREN && p.definitionAhead() {
			return p.parseDefinition()
		}
	}
	return &Statement{Expr: p.wrapOpen(p.parseFormula())}
}

// parseLetStatement handles a statement that starts with let. With a trailing
// `in` it is an ordinary formula; without one, its bindings stay in scope and
// wrap every later statement of the script, and the statement itself yields
// no value (nil Expr).
func (p *Parser) parseLetStatement() *Statement {
	letTok := p.next()
	mark := p.scope.Mark()
	bound := p.parseLetBindings(mark)
	if p.at(token.IN) {
		p.next()
		body := p.parseLet()
		p.scope.Rollback(mark)
		for i := len(bound) - 1; i >= 0; i-- {
			body = &ast.Let{Name: bound[i].name, Init: bound[i].init, Body: body, At: letTok.Pos}
		}
		return &Statement{Expr: p.wrapOpen(body)}
	}
	// Open let: keep the scope declarations for the rest of the script.
	p.openBinds = append(p.openBinds, bound...)
	return &Statement{}
}

// wrapOpen closes a statement tree over the open-let bindings accumulated so
// far. The initializers are pure, so re-binding them per statement is
// observationally the same as sharing them.
func (p *Parser) wrapOpen(n ast.Node) ast.Node {
	for i := len(p.openBinds) - 1; i >= 0; i-- {
		b := p.openBinds[i]
		n = &ast.Let{Name: b.name, Init: b.init, Body: n, At: n.Pos()}
	}
	return n
}

// definitionAhead distinguishes `f(x) := ...` from a call expression by
// speculatively consuming the parameter-list shape, then rewinding.
func (p *Parser) definitionAhead() bool {
	save := p.toks.Save()
	defer p.toks.Restore(save)
	p.next() // name
	p.next() // (
	if !p.at(token.RPAREN) {
		for {
			if !p.accept(token.IDENT) {
				return false
			}
			if p.accept(token.COLON) && !p.accept(token.IDENT) {
				return false
			}
			if p.accept(token.COMMA) {
				continue
			}
			break
		}
	}
	if !p.accept(token.RPAREN) {
		return false
	}
	if p.accept(token.COLON) && !p.accept(token.IDENT) {
		return false
	}
	return p.at(token.ASSIGN)
}

func (p *Parser) parseAssignment() *Statement {
	nameTok := p.expect(token.IDENT)
	p.expect(token.ASSIGN)
	if p.reg.IsClassName(nameTok.Lexeme) {
		p.fail(diagnostics.ErrScope, nameTok, "%q is a builtin class name", nameTok.Lexeme)
	}
	expr := p.wrapOpen(p.parseFormula())
	v := &env.Variable{
		Name:   nameTok.Lexeme,
		Source: p.sliceFrom(nameTok.Pos),
		Expr:   expr,
		Kind:   expr.Kind(),
	}
	p.pending[v.Name] = v
	return &Statement{Name: v.Name, Expr: expr}
}

// parseDefinition compiles `name(p1, p2: kind, ...) (: resultkind)? := body`.
// The definition's own name is visible inside the body through an open
// placeholder; the finished body is wrapped in a fixed point only when the
// placeholder was actually used.
func (p *Parser) parseDefinition() *Statement {
	nameTok := p.expect(token.IDENT)
	name := nameTok.Lexeme
	if p.reg.IsClassName(name) || len(p.reg.ResolveGlobalOverloads(name)) > 0 {
		p.fail(diagnostics.ErrScope, nameTok, "cannot redefine builtin %q", name)
	}

	p.expect(token.LPAREN)
	var params []ast.Param
	if !p.at(token.RPAREN) {
		for {
			ptok := p.expect(token.IDENT)
			// Untyped parameters default to real.
			k := types.Real
			if p.accept(token.COLON) {
				k = p.parseKindAnnotation()
			}
			params = append(params, ast.Param{Name: ptok.Lexeme, K: k})
			if !p.accept(token.COMMA) {
				break
			}
		}
	}
	p.expect(token.RPAREN)

	result := types.Invalid
	if p.accept(token.COLON) {
		result = p.parseKindAnnotation()
	}
	p.expect(token.ASSIGN)

	mark := p.scope.Mark()
	defer p.scope.Rollback(mark)

	placeholder := &scope.LambdaInfo{Params: params, Result: result, Placeholder: true}
	if placeholder.Result == types.Invalid {
		// No annotation: recursive call sites assume real.
		placeholder.Result = types.Real
	}
	p.scope.Declare(&scope.Binding{Name: name, Kind: types.Function, Lambda: placeholder})
	for _, prm := range params {
		p.scope.Declare(&scope.Binding{Name: prm.Name, Kind: prm.K})
	}

	prevDef, prevDeps := p.inDef, p.deps
	p.inDef, p.deps = name, make(map[string]bool)
	body := p.parseFormula()
	deps := p.deps
	p.inDef, p.deps = prevDef, prevDeps

	if result != types.Invalid && body.Kind() != result {
		body = p.widen(body, result, nameTok)
	}

	lam := &ast.Lambda{Params: params, Body: body, At: nameTok.Pos}
	var fn ast.Node = lam
	if placeholder.Used {
		if result == types.Invalid && body.Kind() != placeholder.Result {
			p.fail(diagnostics.ErrType, nameTok,
				"recursive definition %q needs a result annotation: body is %s", name, body.Kind())
		}
		fn = &ast.Fix{Name: name, Fn: lam, At: nameTok.Pos}
	}

	kinds := make([]types.Kind, len(params))
	for i, prm := range params {
		kinds[i] = prm.K
	}
	names := make([]string, len(params))
	for i, prm := range params {
		names[i] = prm.Name
	}
	depList := make([]string, 0, len(deps))
	for d := range deps {
		depList = append(depList, d)
	}
	sort.Strings(depList)

	fn = p.wrapOpen(fn)
	def := &env.Definition{
		Name:       name,
		Params:     names,
		Source:     p.sliceFrom(nameTok.Pos),
		Body:       fn,
		ParamKinds: kinds,
		Kind:       body.Kind(),
		Recursive:  placeholder.Used,
		DependsOn:  depList,
	}
	p.pendingDefs[name] = def
	return &Statement{Name: name, Def: def, Expr: fn}
}
