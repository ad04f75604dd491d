// Package parser compiles source text into typed expression trees. It is a
// recursive-descent parser with one method per precedence level; type
// checking, overload resolution and algebraic rewriting all happen inline
// while the tree is built, there is no separate pass.
package parser

import (
	"fmt"
	"strings"

	"github.com/vexlang/vex/internal/ast"
	"github.com/vexlang/vex/internal/config"
	"github.com/vexlang/vex/internal/diagnostics"
	"github.com/vexlang/vex/internal/env"
	"github.com/vexlang/vex/internal/lexer"
	"github.com/vexlang/vex/internal/registry"
	"github.com/vexlang/vex/internal/scope"
	"github.com/vexlang/vex/internal/token"
	"github.com/vexlang/vex/internal/types"
)

// Statement is one compiled top-level statement: a bare formula, a variable
// assignment or a function definition.
type Statement struct {
	Name string
	Def  *env.Definition
	Expr ast.Node
}

// Kind returns the statement's result kind; definitions are functions and
// open let bindings produce no value.
func (s *Statement) Kind() types.Kind {
	if s.Def != nil {
		return types.Function
	}
	if s.Expr == nil {
		return types.Void
	}
	return s.Expr.Kind()
}

// Parser compiles one source text. A parser is single-use and single-
// threaded; build a fresh one per compilation.
type Parser struct {
	toks  *lexer.Stream
	reg   *registry.Registry
	env   *env.Environment
	scope *scope.Stack

	// pending and pendingDefs hold bindings made earlier in the same script,
	// visible to later statements before the session commits them.
	pending     map[string]*env.Variable
	pendingDefs map[string]*env.Definition

	// inDef is non-empty while a named definition body is being compiled;
	// session variables are off limits there and referenced definitions are
	// collected as dependency edges.
	inDef string
	deps  map[string]bool

	// noIn suspends the membership operator while a let initializer is being
	// parsed, so the clause list's closing `in` is not consumed as an
	// operator.
	noIn int

	// openBinds are statement-level let bindings with no `in`; they wrap
	// every subsequent statement in the script.
	openBinds []letBinding

	depth int
	tmpN  int

	// stopAt enables speculative parsing: reaching a token at or past this
	// offset raises the silent abort signal. Negative means never.
	stopAt int
}

func New(source string, reg *registry.Registry, e *env.Environment) *Parser {
	return &Parser{
		toks:        lexer.NewStream(source),
		reg:         reg,
		env:         e,
		scope:       scope.NewStack(),
		pending:     make(map[string]*env.Variable),
		pendingDefs: make(map[string]*env.Definition),
		stopAt:      -1,
	}
}

// StopAt arms the speculative-parse limit. Used by completion tooling to
// type-check a prefix of the input and bail out silently.
func (p *Parser) StopAt(offset int) { p.stopAt = offset }

// Script parses a ;-separated statement sequence.
func (p *Parser) Script() (stmts []*Statement, err error) {
	defer p.recoverTo(&err)
	for {
		stmts = append(stmts, p.parseStatement())
		if p.cur().Type != token.SEMICOLON {
			break
		}
		p.next()
		if p.cur().Type == token.EOF {
			break
		}
	}
	p.expect(token.EOF)
	return stmts, nil
}

// Formula parses a single expression, rejecting trailing input.
func (p *Parser) Formula() (n ast.Node, err error) {
	defer p.recoverTo(&err)
	n = p.parseFormula()
	p.expect(token.EOF)
	return n, nil
}

// Types runs the script in type-only mode and returns the per-statement
// result kinds. The trees are built and discarded; tooling uses this for
// cheap validation.
func (p *Parser) Types() (kinds []types.Kind, err error) {
	stmts, err := p.Script()
	if err != nil {
		return nil, err
	}
	kinds = make([]types.Kind, len(stmts))
	for i, s := range stmts {
		kinds[i] = s.Kind()
	}
	return kinds, nil
}

// recoverTo converts the panic-based error discipline back into a plain
// error return at the public entry points. The abort signal passes through
// unchanged; anything that is not ours keeps propagating.
func (p *Parser) recoverTo(err *error) {
	switch r := recover().(type) {
	case nil:
	case *diagnostics.Error:
		*err = r
	case error:
		if diagnostics.Aborted(r) {
			*err = r
			return
		}
		panic(r)
	default:
		panic(r)
	}
}

func (p *Parser) fail(code string, tok token.Token, format string, args ...interface{}) {
	panic(diagnostics.NewError(code, tok, format, args...))
}

func (p *Parser) failAt(code string, pos int, format string, args ...interface{}) {
	panic(diagnostics.NewErrorAt(code, pos, format, args...))
}

func (p *Parser) cur() token.Token {
	tok := p.toks.Cur()
	if p.stopAt >= 0 && tok.Pos >= p.stopAt {
		panic(diagnostics.ErrAborted)
	}
	return tok
}

func (p *Parser) peek() token.Token { return p.toks.Peek() }

func (p *Parser) next() token.Token {
	tok := p.cur()
	p.toks.Next()
	return tok
}

func (p *Parser) at(t token.TokenType) bool { return p.cur().Type == t }

// accept consumes the current token when it matches.
func (p *Parser) accept(t token.TokenType) bool {
	if p.at(t) {
		p.next()
		return true
	}
	return false
}

func (p *Parser) expect(t token.TokenType) token.Token {
	tok := p.cur()
	if tok.Type != t {
		p.fail(diagnostics.ErrSyntax, tok, "expected %q, got %q", string(t), tok.Lexeme)
	}
	return p.next()
}

// enter/leave guard the expression nesting depth.
func (p *Parser) enter(tok token.Token) {
	p.depth++
	if p.depth > config.MaxRecursionDepth {
		p.fail(diagnostics.ErrSyntax, tok, "expression too deeply nested")
	}
}

func (p *Parser) leave() { p.depth-- }

// tmpName mints a local name no source identifier can collide with; the
// optimizer binds shared sub-trees to these.
func (p *Parser) tmpName() string {
	p.tmpN++
	return fmt.Sprintf("·%d", p.tmpN)
}

// sliceFrom returns the trimmed source text from a byte offset to the start
// of the current token. Statements store their own slice, not the whole
// script.
func (p *Parser) sliceFrom(start int) string {
	src := p.toks.Source()
	end := p.toks.Cur().Pos
	if end > len(src) {
		end = len(src)
	}
	if start < 0 || start > end {
		return src
	}
	return strings.TrimSpace(src[start:end])
}

// kindNames maps source-level type annotations to kinds.
var kindAnnotations = map[string]types.Kind{
	"integer": types.Integer,
	"real":    types.Real,
	"complex": types.Complex,
	"boolean": types.Boolean,
	"string":  types.String,
	"date":    types.Date,
	"vector":  types.RealVector,
	"matrix":  types.Matrix,
	"series":  types.TimeSeries,
}

// parseKindAnnotation reads a type name after a colon.
func (p *Parser) parseKindAnnotation() types.Kind {
	tok := p.expect(token.IDENT)
	k, ok := kindAnnotations[tok.Lexeme]
	if !ok {
		p.fail(diagnostics.ErrSyntax, tok, "unknown type name %q", tok.Lexeme)
	}
	return k
}
