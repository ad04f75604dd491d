package parser

import (
	"github.com/vexlang/vex/internal/ast"
	"github.com/vexlang/vex/internal/diagnostics"
	"github.com/vexlang/vex/internal/scope"
	"github.com/vexlang/vex/internal/token"
	"github.com/vexlang/vex/internal/types"
)

// parseBracket compiles everything that starts with `[`: vector and matrix
// literals, comprehensions, and the bracketed quantifier forms.
func (p *Parser) parseBracket() ast.Node {
	open := p.expect(token.LBRACKET)

	if p.at(token.RBRACKET) {
		p.next()
		return &ast.Call{Op: "vec.lit", K: types.RealVector, At: open.Pos}
	}
	if p.at(token.ANY) || p.at(token.ALL) {
		n := p.parseQuantifier()
		p.expect(token.RBRACKET)
		return n
	}
	if p.comprehensionAhead() {
		n := p.parseComprehension(open)
		p.expect(token.RBRACKET)
		return n
	}
	return p.parseLiteral(open)
}

// comprehensionAhead peeks for the `x in` and `x, d in` binder shapes without
// consuming anything.
func (p *Parser) comprehensionAhead() bool {
	if !p.at(token.IDENT) {
		return false
	}
	if p.peek().Type == token.IN {
		return true
	}
	return p.peek().Type == token.COMMA &&
		p.toks.LookAhead(2).Type == token.IDENT &&
		p.toks.LookAhead(3).Type == token.IN
}

// parseLiteral compiles a bracketed literal. Commas separate elements,
// semicolons separate matrix rows. The element kinds pick the vector flavor:
// all integers stay integer, any complex promotes the whole literal.
func (p *Parser) parseLiteral(open token.Token) ast.Node {
	var rows [][]ast.Node
	row := []ast.Node{p.parseScalarElem()}
	for {
		if p.accept(token.COMMA) {
			row = append(row, p.parseScalarElem())
			continue
		}
		if p.accept(token.SEMICOLON) {
			rows = append(rows, row)
			row = []ast.Node{p.parseScalarElem()}
			continue
		}
		break
	}
	p.expect(token.RBRACKET)

	if rows == nil {
		return p.vectorLit(row, open)
	}
	rows = append(rows, row)
	return p.matrixLit(rows, open)
}

func (p *Parser) parseScalarElem() ast.Node {
	n := p.parseConditional()
	if !n.Kind().IsNumeric() {
		p.failAt(diagnostics.ErrType, n.Pos(), "literal element must be numeric, got %s", n.Kind())
	}
	return n
}

func (p *Parser) vectorLit(elems []ast.Node, open token.Token) ast.Node {
	k := types.Integer
	for _, e := range elems {
		k = types.Unify(k, e.Kind())
	}
	op, rk := "ivec.lit", types.IntegerVector
	switch k {
	case types.Real:
		op, rk = "vec.lit", types.RealVector
	case types.Complex:
		op, rk = "cvec.lit", types.ComplexVector
	}
	for i, e := range elems {
		elems[i] = p.widen(e, k, open)
	}
	return &ast.Call{Op: op, Args: elems, K: rk, At: open.Pos}
}

func (p *Parser) matrixLit(rows [][]ast.Node, open token.Token) ast.Node {
	width := len(rows[0])
	args := make([]ast.Node, len(rows))
	for i, row := range rows {
		if len(row) != width {
			p.fail(diagnostics.ErrValue, open, "matrix rows differ in length: %d vs %d", width, len(row))
		}
		for j, e := range row {
			row[j] = p.widen(e, types.Real, open)
		}
		args[i] = &ast.Call{Op: "vec.lit", Args: row, K: types.RealVector, At: open.Pos}
	}
	return &ast.Call{Op: "mat.lit", Args: args, K: types.Matrix, At: open.Pos}
}

// parseQuantifier compiles `any x in gen : cond` and `all x in gen : cond`
// into the short-circuiting reductions. It is also reachable as a bare
// expression head, which is what lets quantifiers nest inside comprehension
// filters.
func (p *Parser) parseQuantifier() ast.Node {
	q := p.next()
	op := "agg.any"
	if q.Type == token.ALL {
		op = "agg.all"
	}

	name := p.expect(token.IDENT).Lexeme
	p.expect(token.IN)
	gen, elem := p.parseGenerator(q)

	p.expect(token.COLON)
	mark := p.scope.Mark()
	p.scope.Declare(&scope.Binding{Name: name, Kind: elem})
	cond := p.parseConditional()
	p.scope.Rollback(mark)
	if cond.Kind() != types.Boolean {
		p.failAt(diagnostics.ErrType, cond.Pos(), "quantifier condition must be boolean, got %s", cond.Kind())
	}

	pred := &ast.Lambda{Params: []ast.Param{{Name: name, K: elem}}, Body: cond, At: q.Pos}
	return &ast.Call{Op: op, Args: []ast.Node{gen, pred}, K: types.Boolean, At: q.Pos}
}

// parseComprehension compiles `[x in gen : cond => expr]` and the series form
// `[v, d in series ...]` by lowering onto the container's staging operations.
// Filter and mapper fuse into one stage when both are present.
func (p *Parser) parseComprehension(open token.Token) ast.Node {
	name := p.expect(token.IDENT).Lexeme
	dateName := ""
	if p.accept(token.COMMA) {
		dateName = p.expect(token.IDENT).Lexeme
	}
	p.expect(token.IN)
	gen, elem := p.parseGenerator(open)
	gk := gen.Kind()

	if dateName != "" && gk != types.TimeSeries {
		p.fail(diagnostics.ErrType, open, "the two-binder form iterates a series, got %s", gk)
	}
	if gk == types.TimeSeries && dateName == "" {
		dateName = p.tmpName()
	}

	params := []ast.Param{{Name: name, K: elem}}
	if gk == types.TimeSeries {
		params = append(params, ast.Param{Name: dateName, K: types.Date})
	}

	declare := func() int {
		mark := p.scope.Mark()
		for _, prm := range params {
			p.scope.Declare(&scope.Binding{Name: prm.Name, Kind: prm.K})
		}
		return mark
	}

	var filter, mapper *ast.Lambda
	if p.accept(token.COLON) {
		mark := declare()
		cond := p.parseConditional()
		p.scope.Rollback(mark)
		if cond.Kind() != types.Boolean {
			p.failAt(diagnostics.ErrType, cond.Pos(), "comprehension filter must be boolean, got %s", cond.Kind())
		}
		filter = &ast.Lambda{Params: params, Body: cond, At: open.Pos}
	}
	if p.accept(token.MAPS_TO) {
		mark := declare()
		body := p.parseConditional()
		p.scope.Rollback(mark)
		mapper = &ast.Lambda{Params: params, Body: body, At: open.Pos}
	}

	return p.lowerComprehension(gen, filter, mapper, open)
}

// parseGenerator compiles the generator clause: a range such as `1..10` or
// `0..1..0.1`, or any container-kinded expression. It returns the generator
// node and the binder's element kind.
func (p *Parser) parseGenerator(tok token.Token) (ast.Node, types.Kind) {
	p.noIn++
	lo := p.parseConditional()
	if !p.at(token.DOT_DOT) {
		p.noIn--
		if !lo.Kind().IsContainer() {
			p.failAt(diagnostics.ErrType, lo.Pos(), "cannot iterate %s", lo.Kind())
		}
		if lo.Kind() == types.ComplexVector {
			p.failAt(diagnostics.ErrType, lo.Pos(), "cannot iterate a complex vector")
		}
		return lo, lo.Kind().Elem()
	}

	p.next()
	hi := p.parseConditional()
	bounds := []ast.Node{lo, hi}
	if p.accept(token.DOT_DOT) {
		bounds = append(bounds, p.parseConditional())
	}
	p.noIn--

	k := types.Integer
	for _, b := range bounds {
		bk := b.Kind()
		if bk != types.Integer && bk != types.Real {
			p.failAt(diagnostics.ErrType, b.Pos(), "range bound must be integer or real, got %s", bk)
		}
		k = types.Unify(k, bk)
	}
	op, rk := "range.int", types.IntegerVector
	if k == types.Real {
		op, rk = "range.real", types.RealVector
		for i, b := range bounds {
			bounds[i] = p.widen(b, types.Real, tok)
		}
	}
	return &ast.Call{Op: op, Args: bounds, K: rk, At: tok.Pos}, k
}

// lowerComprehension picks the staging operation family for the generator
// kind and emits the fused call.
func (p *Parser) lowerComprehension(gen ast.Node, filter, mapper *ast.Lambda, open token.Token) ast.Node {
	var prefix string
	gk := gen.Kind()
	switch gk {
	case types.IntegerVector:
		prefix = "ivec"
	case types.RealVector:
		prefix = "vec"
	case types.TimeSeries:
		prefix = "ser"
	case types.IntegerSequence:
		prefix = "iseq"
	case types.RealSequence:
		prefix = "seq"
	default:
		p.fail(diagnostics.ErrType, open, "cannot iterate %s", gk)
	}

	args := []ast.Node{gen}
	var op string
	switch {
	case filter != nil && mapper != nil:
		op, args = prefix+".filtermap", append(args, filter, mapper)
	case filter != nil:
		op, args = prefix+".filter", append(args, filter)
	case mapper != nil:
		op, args = prefix+".map", append(args, mapper)
	default:
		return gen
	}

	return &ast.Call{Op: op, Args: args, K: p.comprehensionKind(gk, mapper, open), At: open.Pos}
}

// comprehensionKind is the static result kind of a lowered comprehension.
// Vectors follow the mapper's scalar kind; series stay series with a real
// mapper; lazy sequences cannot change their element kind mid-pipeline.
func (p *Parser) comprehensionKind(gk types.Kind, mapper *ast.Lambda, open token.Token) types.Kind {
	elem := gk.Elem()
	if mapper != nil {
		mk := mapper.Body.Kind()
		switch gk {
		case types.TimeSeries:
			if mk != types.Real {
				p.fail(diagnostics.ErrType, open, "series mapper must yield real, got %s", mk)
			}
		case types.IntegerSequence, types.RealSequence:
			if mk != elem {
				p.fail(diagnostics.ErrType, open, "sequence mapper must yield %s, got %s", elem, mk)
			}
		default:
			elem = mk
		}
	}
	switch gk {
	case types.TimeSeries:
		return types.TimeSeries
	case types.IntegerSequence, types.RealSequence:
		return gk
	}
	switch elem {
	case types.Integer:
		return types.IntegerVector
	case types.Real:
		return types.RealVector
	case types.Complex:
		return types.ComplexVector
	}
	p.fail(diagnostics.ErrType, open, "comprehension mapper must yield a scalar, got %s", elem)
	return types.Invalid
}
