package parser

import (
	"math/bits"
	"strings"

	"github.com/vexlang/vex/internal/ast"
	"github.com/vexlang/vex/internal/config"
	"github.com/vexlang/vex/internal/diagnostics"
	"github.com/vexlang/vex/internal/env"
	"github.com/vexlang/vex/internal/registry"
	"github.com/vexlang/vex/internal/scope"
	"github.com/vexlang/vex/internal/token"
	"github.com/vexlang/vex/internal/types"
)

// resolveCall parses a parenthesized argument list against an overload set,
// pruning candidates as each argument is parsed. One bit per candidate;
// resolution must end with exactly one bit standing.
//
// An argument is typed once and never re-parsed, so lambda arguments are the
// delicate case: their parameter kinds come from the candidates still alive
// at that position, and every survivor has to agree on them.
func (p *Parser) resolveCall(set registry.OverloadSet, label string, recv ast.Node, tok token.Token) ast.Node {
	if len(set) > config.MaxOverloadCandidates {
		p.fail(diagnostics.ErrOverload, tok, "overload set for %q is too large", label)
	}
	alive := uint64(1)<<uint(len(set)) - 1

	p.expect(token.LPAREN)
	// Arguments collect into a rented scratch list; the deferred return also
	// fires when resolution panics out through fail.
	scratch := env.RentArgs()
	defer env.ReturnArgs(scratch)
	if !p.at(token.RPAREN) {
		for {
			i := len(*scratch)
			var a ast.Node
			if arity := p.lambdaArityAhead(); arity > 0 {
				alive = p.pruneLambda(set, alive, i, arity, label, tok)
				a = p.parseLambda(p.lambdaKinds(set, alive, i, tok))
			} else {
				a = p.parseConditional()
				alive = p.prunePlain(set, alive, i, a.Kind())
			}
			if alive == 0 {
				p.fail(diagnostics.ErrOverload, tok, "no overload of %q takes %s as argument %d",
					label, a.Kind(), i+1)
			}
			*scratch = append(*scratch, a)
			if !p.accept(token.COMMA) {
				break
			}
		}
	}
	p.expect(token.RPAREN)

	alive = pruneArity(set, alive, len(*scratch))
	if alive == 0 {
		p.fail(diagnostics.ErrOverload, tok, "no matching overload for %s(%s)", label, kindList(*scratch))
	}
	if popcount(alive) > 1 {
		alive = tieBreak(set, alive, *scratch)
	}
	if popcount(alive) > 1 {
		p.fail(diagnostics.ErrOverload, tok, "ambiguous call %s(%s)", label, kindList(*scratch))
	}

	d := set[firstBit(alive)]
	args := make([]ast.Node, len(*scratch))
	copy(args, *scratch)
	args = p.finishArgs(d, args, tok)
	if recv != nil {
		args = append([]ast.Node{recv}, args...)
	}
	return &ast.Call{Op: d.Op, Args: args, K: d.Result, At: tok.Pos}
}

// lambdaArityAhead peeks for a lambda literal at the current token and
// returns its parameter count, or zero when the next argument is a plain
// expression. The two shapes are `x -> ...` and `(x, y) -> ...`.
func (p *Parser) lambdaArityAhead() int {
	if p.at(token.IDENT) && p.peek().Type == token.ARROW {
		return 1
	}
	if !p.at(token.LPAREN) {
		return 0
	}
	mark := p.toks.Save()
	defer p.toks.Restore(mark)
	p.toks.Next()
	if p.toks.Cur().Type != token.IDENT {
		return 0
	}
	p.toks.Next()
	if p.toks.Cur().Type != token.COMMA {
		return 0
	}
	p.toks.Next()
	if p.toks.Cur().Type != token.IDENT {
		return 0
	}
	p.toks.Next()
	if p.toks.Cur().Type != token.RPAREN {
		return 0
	}
	p.toks.Next()
	if p.toks.Cur().Type != token.ARROW {
		return 0
	}
	return 2
}

// pruneLambda keeps the candidates whose parameter i is a lambda slot of the
// seen arity.
func (p *Parser) pruneLambda(set registry.OverloadSet, alive uint64, i, arity int, label string, tok token.Token) uint64 {
	var kept uint64
	for b := 0; b < len(set); b++ {
		if alive&(1<<uint(b)) == 0 {
			continue
		}
		one, two := set[b].WantsLambda(i)
		if (arity == 1 && one) || (arity == 2 && two) {
			kept |= 1 << uint(b)
		}
	}
	if kept == 0 {
		p.fail(diagnostics.ErrOverload, tok, "no overload of %q takes a %d-parameter function as argument %d",
			label, arity, i+1)
	}
	return kept
}

// lambdaKinds collects the lambda parameter kinds the surviving candidates
// declare for position i. They must be unanimous: the lambda body is compiled
// once, against one signature.
func (p *Parser) lambdaKinds(set registry.OverloadSet, alive uint64, i int, tok token.Token) []types.Kind {
	var kinds []types.Kind
	for b := 0; b < len(set); b++ {
		if alive&(1<<uint(b)) == 0 {
			continue
		}
		sig := set[b].LambdaSig[i]
		if kinds == nil {
			kinds = sig
			continue
		}
		if !kindsEqual(kinds, sig) {
			p.fail(diagnostics.ErrType, tok,
				"overloads disagree on the function parameter types at argument %d", i+1)
		}
	}
	return kinds
}

// parseLambda compiles a lambda literal with the given parameter kinds. The
// parameters live only for the body.
func (p *Parser) parseLambda(kinds []types.Kind) *ast.Lambda {
	tok := p.cur()
	var names []string
	if p.at(token.IDENT) {
		names = []string{p.next().Lexeme}
	} else {
		p.expect(token.LPAREN)
		names = append(names, p.expect(token.IDENT).Lexeme)
		p.expect(token.COMMA)
		names = append(names, p.expect(token.IDENT).Lexeme)
		p.expect(token.RPAREN)
	}
	p.expect(token.ARROW)

	if len(names) != len(kinds) {
		p.fail(diagnostics.ErrType, tok, "function literal takes %d parameter(s), expected %d",
			len(names), len(kinds))
	}
	params := make([]ast.Param, len(names))
	mark := p.scope.Mark()
	for i, name := range names {
		params[i] = ast.Param{Name: name, K: kinds[i]}
		p.scope.Declare(&scope.Binding{Name: name, Kind: kinds[i]})
	}
	body := p.parseConditional()
	p.scope.Rollback(mark)
	return &ast.Lambda{Params: params, Body: body, At: tok.Pos}
}

// prunePlain keeps the candidates whose parameter i accepts kind k: exact,
// any, a scalar widening, or the one container exception where an integer
// vector fills a real-vector slot.
func (p *Parser) prunePlain(set registry.OverloadSet, alive uint64, i int, k types.Kind) uint64 {
	var kept uint64
	for b := 0; b < len(set); b++ {
		if alive&(1<<uint(b)) == 0 {
			continue
		}
		want, ok := set[b].ParamAt(i)
		if !ok {
			continue
		}
		one, two := set[b].WantsLambda(i)
		if one || two {
			continue
		}
		if paramAccepts(want, k) {
			kept |= 1 << uint(b)
		}
	}
	return kept
}

func paramAccepts(want, got types.Kind) bool {
	if want == types.Any || want == got {
		return true
	}
	if types.CanWiden(got, want) {
		return true
	}
	return got == types.IntegerVector && want == types.RealVector
}

// pruneArity keeps the candidates whose declared argument count matches the
// call. A variadic candidate accepts any count past its fixed prefix.
func pruneArity(set registry.OverloadSet, alive uint64, n int) uint64 {
	var kept uint64
	for b := 0; b < len(set); b++ {
		if alive&(1<<uint(b)) == 0 {
			continue
		}
		d := set[b]
		if d.Variadic {
			if n >= len(d.Params)-1 {
				kept |= 1 << uint(b)
			}
			continue
		}
		if n == d.ExpectedArgs() {
			kept |= 1 << uint(b)
		}
	}
	return kept
}

// tieBreak narrows a still-ambiguous set by the first argument only: a
// candidate whose first parameter matches the argument kind exactly beats
// one that needs a widening. Deliberately shallow; deeper scoring would
// re-type arguments already parsed.
func tieBreak(set registry.OverloadSet, alive uint64, args []ast.Node) uint64 {
	if len(args) == 0 {
		return alive
	}
	k := args[0].Kind()
	var exact uint64
	for b := 0; b < len(set); b++ {
		if alive&(1<<uint(b)) == 0 {
			continue
		}
		if want, ok := set[b].ParamAt(0); ok && want == k {
			exact |= 1 << uint(b)
		}
	}
	if exact != 0 {
		return exact
	}
	return alive
}

// finishArgs appends the winner's implied default argument and widens every
// parsed argument to its declared parameter kind.
func (p *Parser) finishArgs(d *registry.Descriptor, args []ast.Node, tok token.Token) []ast.Node {
	switch d.Default {
	case registry.DefaultSeed:
		args = append(args, &ast.Const{K: types.Integer, Value: config.DefaultRandomSeed, At: tok.Pos})
	case registry.DefaultZero:
		args = append(args, &ast.Const{K: types.Real, Value: float64(0), At: tok.Pos})
	case registry.DefaultOne:
		args = append(args, &ast.Const{K: types.Real, Value: float64(1), At: tok.Pos})
	}
	for i, a := range args {
		want, ok := d.ParamAt(i)
		if !ok || want == types.Any || want == a.Kind() {
			continue
		}
		if _, isLambda := a.(*ast.Lambda); isLambda {
			continue
		}
		args[i] = p.widen(a, want, tok)
	}
	return args
}

func kindsEqual(a, b []types.Kind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func kindList(args []ast.Node) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Kind().String()
	}
	return strings.Join(parts, ", ")
}

func popcount(m uint64) int { return bits.OnesCount64(m) }

func firstBit(m uint64) int { return bits.TrailingZeros64(m) }
