package parser

import (
	"github.com/vexlang/vex/internal/ast"
	"github.com/vexlang/vex/internal/diagnostics"
	"github.com/vexlang/vex/internal/token"
	"github.com/vexlang/vex/internal/types"
)

func (p *Parser) parseFactor() ast.Node {
	tok := p.cur()
	p.enter(tok)
	defer p.leave()

	var n ast.Node
	switch tok.Type {
	case token.INT:
		p.next()
		n = &ast.Const{K: types.Integer, Value: tok.Literal, At: tok.Pos}
		if c := p.coefficient(n, tok); c != nil {
			return c
		}
	case token.REAL:
		p.next()
		n = &ast.Const{K: types.Real, Value: tok.Literal, At: tok.Pos}
		if c := p.coefficient(n, tok); c != nil {
			return c
		}
	case token.IMAGINARY:
		p.next()
		n = &ast.Const{K: types.Complex, Value: tok.Literal, At: tok.Pos}
	case token.STRING:
		p.next()
		n = &ast.Const{K: types.String, Value: tok.Literal, At: tok.Pos}
	case token.DATE:
		p.next()
		n = &ast.Const{K: types.Date, Value: tok.Literal, At: tok.Pos}
	case token.TRUE, token.FALSE:
		p.next()
		n = &ast.Const{K: types.Boolean, Value: tok.Type == token.TRUE, At: tok.Pos}
	case token.LPAREN:
		p.next()
		n = p.parseFormula()
		p.expect(token.RPAREN)
	case token.LBRACKET:
		n = p.parseBracket()
	case token.ANY, token.ALL:
		n = p.parseQuantifier()
	case token.IDENT:
		n = p.parseIdentFactor()
	default:
		p.fail(diagnostics.ErrSyntax, tok, "unexpected %q", tok.Lexeme)
	}
	return p.parsePostfix(n)
}

// coefficient handles the numeric-literal-times-identifier shorthand: `2x`
// multiplies when the identifier starts immediately after the literal.
func (p *Parser) coefficient(lit ast.Node, litTok token.Token) ast.Node {
	nxt := p.cur()
	if nxt.Type != token.IDENT || nxt.Pos != litTok.Pos+len(litTok.Lexeme) {
		return nil
	}
	return p.makeBinary(ast.OpMul, lit, p.parsePower(), litTok)
}

// parseIdentFactor resolves an identifier head: class-qualified call, local
// binding, session variable, named definition or global function.
func (p *Parser) parseIdentFactor() ast.Node {
	tok := p.expect(token.IDENT)
	name := tok.Lexeme

	if p.reg.IsClassName(name) && p.at(token.DOT) {
		p.next()
		mem := p.expect(token.IDENT)
		set := p.reg.ResolveClassOverloads(name, mem.Lexeme)
		if set == nil {
			p.fail(diagnostics.ErrScope, mem, "%s has no member %q", name, mem.Lexeme)
		}
		return p.resolveCall(set, name+"."+mem.Lexeme, nil, mem)
	}

	if b := p.scope.Lookup(name); b != nil {
		if b.Lambda != nil {
			if !p.at(token.LPAREN) {
				p.fail(diagnostics.ErrScope, tok, "function %q must be called", name)
			}
			kinds := make([]types.Kind, len(b.Lambda.Params))
			for i, prm := range b.Lambda.Params {
				kinds[i] = prm.K
			}
			args := p.parseCallArgs(kinds, name, tok)
			if b.Lambda.Placeholder {
				b.Lambda.Used = true
			}
			return &ast.Apply{
				Fn:   &ast.LocalRef{Name: name, K: types.Function, At: tok.Pos},
				Args: args,
				K:    b.Lambda.Result,
				At:   tok.Pos,
			}
		}
		return &ast.LocalRef{Name: name, K: b.Kind, At: tok.Pos}
	}

	if v, ok := p.sessionVar(name); ok {
		if p.inDef != "" {
			p.fail(diagnostics.ErrScope, tok,
				"session variable %q cannot be used inside definition %q", name, p.inDef)
		}
		return &ast.VarRef{Name: name, K: v, At: tok.Pos}
	}

	d, ok := p.pendingDefs[name]
	if !ok {
		d, ok = p.env.GetDefinition(name)
	}
	if ok {
		if d.Body == nil {
			p.fail(diagnostics.ErrScope, tok, "definition %q has not been compiled", name)
		}
		if !p.at(token.LPAREN) {
			p.fail(diagnostics.ErrScope, tok, "definition %q must be called", name)
		}
		if p.deps != nil {
			p.deps[name] = true
		}
		args := p.parseCallArgs(d.ParamKinds, name, tok)
		return &ast.Apply{Fn: d.Body, Args: args, K: d.Kind, At: tok.Pos}
	}

	if set := p.reg.ResolveGlobalOverloads(name); set != nil && p.at(token.LPAREN) {
		return p.resolveCall(set, name, nil, tok)
	}

	p.fail(diagnostics.ErrScope, tok, "unknown identifier %q", name)
	return nil
}

func (p *Parser) sessionVar(name string) (types.Kind, bool) {
	if v, ok := p.pending[name]; ok {
		return v.Kind, true
	}
	if v, ok := p.env.GetExpression(name); ok {
		return v.Kind, true
	}
	return types.Invalid, false
}

// parseCallArgs parses a parenthesized argument list against a fixed
// parameter signature, widening each argument to its declared kind.
func (p *Parser) parseCallArgs(kinds []types.Kind, label string, tok token.Token) []ast.Node {
	p.expect(token.LPAREN)
	var args []ast.Node
	if !p.at(token.RPAREN) {
		for {
			args = append(args, p.parseConditional())
			if !p.accept(token.COMMA) {
				break
			}
		}
	}
	p.expect(token.RPAREN)
	if len(args) != len(kinds) {
		p.fail(diagnostics.ErrType, tok, "%s takes %d argument(s), got %d", label, len(kinds), len(args))
	}
	for i, a := range args {
		if a.Kind() != kinds[i] {
			args[i] = p.widen(a, kinds[i], tok)
		}
	}
	return args
}

// parsePostfix loops over member access, transpose and the indexer forms.
func (p *Parser) parsePostfix(n ast.Node) ast.Node {
	for {
		switch p.cur().Type {
		case token.QUOTE:
			tok := p.next()
			n = p.makeTranspose(n, tok)
		case token.DOT:
			p.next()
			mem := p.expect(token.IDENT)
			n = p.parseMember(n, mem)
		case token.LBRACKET:
			n = p.parseIndex(n, false)
		case token.LBRACE:
			n = p.parseIndex(n, true)
		default:
			return n
		}
	}
}

func (p *Parser) makeTranspose(n ast.Node, tok token.Token) ast.Node {
	var k types.Kind
	switch nk := n.Kind(); nk {
	case types.Matrix:
		k = types.Matrix
	case types.LowerMatrix:
		k = types.UpperMatrix
	case types.UpperMatrix:
		k = types.LowerMatrix
	case types.Complex, types.ComplexVector:
		k = nk
	default:
		p.fail(diagnostics.ErrType, tok, "cannot transpose %s", nk)
	}
	return &ast.Unary{Op: ast.OpTranspose, X: n, K: k, At: tok.Pos}
}

// parseMember compiles `.name` as a property read and `.name(...)` as an
// instance method call with the receiver as argument zero.
func (p *Parser) parseMember(recv ast.Node, mem token.Token) ast.Node {
	if p.at(token.LPAREN) {
		set := p.reg.ResolveInstanceOverloads(recv.Kind(), mem.Lexeme)
		if set == nil {
			p.fail(diagnostics.ErrScope, mem, "%s has no method %q", recv.Kind(), mem.Lexeme)
		}
		return p.resolveCall(set, mem.Lexeme, recv, mem)
	}
	d := p.reg.ResolveProperty(recv.Kind(), mem.Lexeme)
	if d == nil {
		p.fail(diagnostics.ErrScope, mem, "%s has no property %q", recv.Kind(), mem.Lexeme)
	}
	return &ast.Call{Op: d.Op, Args: []ast.Node{recv}, K: d.Result, At: mem.Pos}
}

// parseIndex compiles the bracket and safe-brace indexer forms.
func (p *Parser) parseIndex(x ast.Node, safe bool) ast.Node {
	open := p.next()
	closer := token.TokenType(token.RBRACKET)
	if safe {
		closer = token.RBRACE
	}

	xk := x.Kind()
	want := 1
	switch {
	case xk.IsVector() || xk == types.TimeSeries || xk == types.String:
	case xk.IsMatrix():
		want = 2
	default:
		p.fail(diagnostics.ErrIndex, open, "%s is not indexable", xk)
	}

	specs := make([]ast.IndexSpec, 0, want)
	for {
		specs = append(specs, p.parseIndexSpec(xk, closer, open))
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(closer)

	if len(specs) != want {
		p.fail(diagnostics.ErrIndex, open, "%s indexer takes %d component(s), got %d", xk, want, len(specs))
	}
	if safe {
		for _, s := range specs {
			if s.IsRange {
				p.fail(diagnostics.ErrIndex, open, "safe indexing does not take ranges")
			}
		}
	}
	return &ast.Index{X: x, Specs: specs, Safe: safe, K: p.indexKind(xk, specs, open), At: open.Pos}
}

func (p *Parser) parseIndexSpec(xk types.Kind, closer token.TokenType, open token.Token) ast.IndexSpec {
	var spec ast.IndexSpec
	boundDone := func() bool {
		t := p.cur().Type
		return t == closer || t == token.COMMA
	}
	parseBound := func() (ast.Node, bool) {
		fromEnd := p.accept(token.CARET)
		n := p.parseConditional()
		switch n.Kind() {
		case types.Integer:
		case types.Date:
			if xk != types.TimeSeries {
				p.fail(diagnostics.ErrIndex, open, "date index on %s", xk)
			}
			if fromEnd {
				p.fail(diagnostics.ErrIndex, open, "from-end marker on a date bound")
			}
		default:
			p.fail(diagnostics.ErrIndex, open, "index must be integer or date, got %s", n.Kind())
		}
		return n, fromEnd
	}

	if p.accept(token.DOT_DOT) {
		spec.IsRange = true
		if !boundDone() {
			spec.Hi, spec.HiFromEnd = parseBound()
		}
		return spec
	}
	spec.Lo, spec.LoFromEnd = parseBound()
	if p.accept(token.DOT_DOT) {
		spec.IsRange = true
		if !boundDone() {
			spec.Hi, spec.HiFromEnd = parseBound()
		}
		if spec.Hi != nil && (spec.Lo.Kind() == types.Date) != (spec.Hi.Kind() == types.Date) {
			p.fail(diagnostics.ErrIndex, open, "cannot mix integer and date bounds in one slice")
		}
	}
	return spec
}

func (p *Parser) indexKind(xk types.Kind, specs []ast.IndexSpec, open token.Token) types.Kind {
	switch {
	case xk.IsVector():
		if specs[0].IsRange {
			return xk
		}
		return xk.Elem()
	case xk == types.String:
		return types.String
	case xk == types.TimeSeries:
		if specs[0].IsRange {
			return types.TimeSeries
		}
		return types.Real
	case xk.IsMatrix():
		r, c := specs[0].IsRange, specs[1].IsRange
		switch {
		case r && c:
			return types.Matrix
		case r || c:
			return types.RealVector
		default:
			return types.Real
		}
	}
	p.fail(diagnostics.ErrIndex, open, "%s is not indexable", xk)
	return types.Invalid
}
