package lexer

import (
	"github.com/vexlang/vex/internal/token"
)

// Stream adapts a Lexer into the token source the parser works against:
// current/peek access, lookahead at arbitrary depth, and save/restore of the
// cursor for the few places that need real backtracking (lambda headers,
// nested comprehension qualifiers). Tokens are scanned once and buffered, so
// restoring a cursor is a plain index reset.
type Stream struct {
	source string
	lx     *Lexer
	buf    []token.Token
	pos    int
	done   bool
}

// Cursor is an opaque save point into the stream.
type Cursor int

func NewStream(source string) *Stream {
	return &Stream{source: source, lx: New(source)}
}

// Source returns the raw source text; Slice returns the raw text from a byte
// offset onward, used to re-test lookahead shapes.
func (s *Stream) Source() string { return s.source }

func (s *Stream) Slice(from int) string {
	if from < 0 || from > len(s.source) {
		return ""
	}
	return s.source[from:]
}

func (s *Stream) fill(n int) {
	for !s.done && len(s.buf) <= n {
		tok := s.lx.NextToken()
		s.buf = append(s.buf, tok)
		if tok.Type == token.EOF {
			s.done = true
		}
	}
}

// Cur returns the token under the cursor without consuming it.
func (s *Stream) Cur() token.Token {
	return s.LookAhead(0)
}

// Peek returns the token after the current one.
func (s *Stream) Peek() token.Token {
	return s.LookAhead(1)
}

// LookAhead returns the token n positions past the cursor; n = 0 is the
// current token. Past end of input it keeps returning EOF.
func (s *Stream) LookAhead(n int) token.Token {
	s.fill(s.pos + n)
	i := s.pos + n
	if i >= len(s.buf) {
		i = len(s.buf) - 1
	}
	return s.buf[i]
}

// Next consumes and returns the current token.
func (s *Stream) Next() token.Token {
	tok := s.Cur()
	if tok.Type != token.EOF {
		s.pos++
	}
	return tok
}

// Save captures the cursor; Restore rewinds to a previously saved cursor.
func (s *Stream) Save() Cursor { return Cursor(s.pos) }

func (s *Stream) Restore(c Cursor) { s.pos = int(c) }
