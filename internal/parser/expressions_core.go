package parser

import (
	"github.com/vexlang/vex/internal/ast"
	"github.com/vexlang/vex/internal/diagnostics"
	"github.com/vexlang/vex/internal/scope"
	"github.com/vexlang/vex/internal/token"
	"github.com/vexlang/vex/internal/types"
)

// letBinding is one clause of a let block, either a plain value or a local
// function.
type letBinding struct {
	name string
	init ast.Node
}

// parseFormula parses an optional leading let block and its trailing body.
func (p *Parser) parseFormula() ast.Node {
	return p.parseLet()
}

func (p *Parser) parseLet() ast.Node {
	if !p.at(token.LET) {
		return p.parseConditional()
	}
	letTok := p.next()
	mark := p.scope.Mark()
	defer p.scope.Rollback(mark)

	bound := p.parseLetBindings(mark)
	p.expect(token.IN)
	body := p.parseLet()
	for i := len(bound) - 1; i >= 0; i-- {
		body = &ast.Let{Name: bound[i].name, Init: bound[i].init, Body: body, At: letTok.Pos}
	}
	return body
}

// parseLetBindings parses the comma-separated clause list of a let block up
// to but not including the `in`. Bindings are declared as they are parsed,
// so later clauses see earlier ones.
func (p *Parser) parseLetBindings(mark int) []letBinding {
	var bound []letBinding
	for {
		nameTok := p.expect(token.IDENT)
		if p.scope.DeclaredWithin(mark, nameTok.Lexeme) {
			p.fail(diagnostics.ErrScope, nameTok, "%q is already bound in this let", nameTok.Lexeme)
		}
		var b letBinding
		if p.at(token.LPAREN) {
			b = p.parseLocalFunction(nameTok)
		} else {
			p.expect(token.EQ)
			// Membership `in` is suspended inside initializers so the binding
			// list's own `in` terminator stays unambiguous; parenthesize to
			// get a membership test here.
			p.noIn++
			init := p.parseConditional()
			p.noIn--
			p.scope.Declare(&scope.Binding{Name: nameTok.Lexeme, Kind: init.Kind()})
			b = letBinding{name: nameTok.Lexeme, init: init}
		}
		bound = append(bound, b)
		if !p.accept(token.COMMA) {
			break
		}
	}
	return bound
}

// parseLocalFunction parses `name(p: kind, ...) = body` inside a let clause.
func (p *Parser) parseLocalFunction(nameTok token.Token) letBinding {
	p.expect(token.LPAREN)
	var params []ast.Param
	if !p.at(token.RPAREN) {
		for {
			ptok := p.expect(token.IDENT)
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
	p.expect(token.EQ)

	inner := p.scope.Mark()
	for _, prm := range params {
		p.scope.Declare(&scope.Binding{Name: prm.Name, Kind: prm.K})
	}
	p.noIn++
	body := p.parseConditional()
	p.noIn--
	p.scope.Rollback(inner)

	p.scope.Declare(&scope.Binding{
		Name:   nameTok.Lexeme,
		Kind:   types.Function,
		Lambda: &scope.LambdaInfo{Params: params, Result: body.Kind()},
	})
	return letBinding{
		name: nameTok.Lexeme,
		init: &ast.Lambda{Params: params, Body: body, At: nameTok.Pos},
	}
}

// parseConditional parses if/then/elif/else chains. The flat pair list is
// folded right to left so the chain is right-associated.
func (p *Parser) parseConditional() ast.Node {
	if !p.at(token.IF) {
		return p.parseDisjunction()
	}
	ifTok := p.next()
	p.enter(ifTok)
	defer p.leave()

	type branch struct {
		cond ast.Node
		then ast.Node
		tok  token.Token
	}
	var branches []branch
	for {
		tok := ifTok
		cond := p.parseDisjunction()
		if cond.Kind() != types.Boolean {
			p.failAt(diagnostics.ErrType, cond.Pos(), "condition is %s, not boolean", cond.Kind())
		}
		p.expect(token.THEN)
		then := p.parseFormula()
		branches = append(branches, branch{cond: cond, then: then, tok: tok})
		if p.at(token.ELIF) {
			p.next()
			continue
		}
		break
	}
	p.expect(token.ELSE)
	out := p.parseFormula()
	for i := len(branches) - 1; i >= 0; i-- {
		b := branches[i]
		k := types.Unify(b.then.Kind(), out.Kind())
		if k == types.Invalid {
			p.fail(diagnostics.ErrType, b.tok,
				"branches have incompatible types %s and %s", b.then.Kind(), out.Kind())
		}
		out = &ast.Cond{
			If:   b.cond,
			Then: p.widen(b.then, k, b.tok),
			Else: p.widen(out, k, b.tok),
			K:    k,
			At:   b.tok.Pos,
		}
	}
	return out
}

func (p *Parser) parseDisjunction() ast.Node {
	l := p.parseConjunction()
	for p.at(token.OR) {
		tok := p.next()
		r := p.parseConjunction()
		l = p.makeLogical(ast.OpOr, l, r, tok)
	}
	return l
}

func (p *Parser) parseConjunction() ast.Node {
	l := p.parseLogicalFactor()
	for p.at(token.AND) {
		tok := p.next()
		r := p.parseLogicalFactor()
		l = p.makeLogical(ast.OpAnd, l, r, tok)
	}
	return l
}

func (p *Parser) makeLogical(op ast.BinaryOp, l, r ast.Node, tok token.Token) ast.Node {
	if l.Kind() != types.Boolean {
		p.failAt(diagnostics.ErrType, l.Pos(), "%s expects boolean operands, got %s", op, l.Kind())
	}
	if r.Kind() != types.Boolean {
		p.failAt(diagnostics.ErrType, r.Pos(), "%s expects boolean operands, got %s", op, r.Kind())
	}
	return &ast.Binary{Op: op, L: l, R: r, K: types.Boolean, At: tok.Pos}
}

func relationalOp(t token.TokenType) (ast.BinaryOp, bool) {
	switch t {
	case token.LT:
		return ast.OpLt, true
	case token.GT:
		return ast.OpGt, true
	case token.LTE:
		return ast.OpLe, true
	case token.GTE:
		return ast.OpGe, true
	}
	return 0, false
}

// parseLogicalFactor parses optional not, then a comparison: equality,
// membership or a relational chain. `a < b < c` lowers to `(a<b) and (b<c)`
// with the middle operand bound to a temporary so it evaluates once.
func (p *Parser) parseLogicalFactor() ast.Node {
	if p.at(token.NOT) {
		tok := p.next()
		x := p.parseLogicalFactor()
		if x.Kind() != types.Boolean {
			p.failAt(diagnostics.ErrType, x.Pos(), "not applied to %s", x.Kind())
		}
		return &ast.Unary{Op: ast.OpNot, X: x, K: types.Boolean, At: tok.Pos}
	}

	l := p.parseAdditive()
	switch {
	case p.at(token.EQ) || p.at(token.NOT_EQ):
		tok := p.next()
		op := ast.OpEq
		if tok.Type == token.NOT_EQ {
			op = ast.OpNe
		}
		r := p.parseAdditive()
		return p.makeEquality(op, l, r, tok)
	case p.at(token.IN) && p.noIn == 0:
		tok := p.next()
		r := p.parseAdditive()
		return p.makeMembership(l, r, tok)
	}

	op, ok := relationalOp(p.cur().Type)
	if !ok {
		return l
	}

	type link struct {
		op  ast.BinaryOp
		tok token.Token
	}
	operands := []ast.Node{l}
	var links []link
	for {
		tok := p.next()
		operands = append(operands, p.parseAdditive())
		links = append(links, link{op: op, tok: tok})
		if op, ok = relationalOp(p.cur().Type); !ok {
			break
		}
	}

	if len(links) == 1 {
		return p.makeRelational(links[0].op, operands[0], operands[1], links[0].tok)
	}

	// Bind the middle operands to temporaries, then chain the comparisons
	// with and.
	names := make([]string, len(operands))
	refs := make([]ast.Node, len(operands))
	refs[0] = operands[0]
	refs[len(refs)-1] = operands[len(operands)-1]
	for i := 1; i < len(operands)-1; i++ {
		names[i] = p.tmpName()
		refs[i] = &ast.LocalRef{Name: names[i], K: operands[i].Kind(), At: operands[i].Pos()}
	}
	var out ast.Node
	for i, lk := range links {
		cmp := p.makeRelational(lk.op, refs[i], refs[i+1], lk.tok)
		if out == nil {
			out = cmp
		} else {
			out = &ast.Binary{Op: ast.OpAnd, L: out, R: cmp, K: types.Boolean, At: lk.tok.Pos}
		}
	}
	for i := len(operands) - 2; i >= 1; i-- {
		out = &ast.Let{Name: names[i], Init: operands[i], Body: out, At: operands[i].Pos()}
	}
	return out
}
