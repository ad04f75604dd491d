package diagnostics

import (
	"errors"
	"fmt"

	"github.com/vexlang/vex/internal/token"
)

// Error codes, grouped the way the compiler raises them.
const (
	ErrSyntax   = "V001" // unexpected/missing token
	ErrType     = "V002" // incompatible operand or argument types
	ErrOverload = "V003" // no matching or ambiguous overload
	ErrScope    = "V004" // unknown identifier, redefinition, bad reference
	ErrIndex    = "V005" // invalid indexer or slice
	ErrValue    = "V006" // runtime evaluation failure
)

// Error is a positioned compilation error. Pos is the byte offset of the
// offending token in the source text.
type Error struct {
	Code string
	Pos  int
	Line int
	Col  int
	Msg  string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] %d:%d (offset %d): %s", e.Code, e.Line, e.Col, e.Pos, e.Msg)
	}
	return fmt.Sprintf("[%s] offset %d: %s", e.Code, e.Pos, e.Msg)
}

// NewError builds a positioned error anchored at tok.
func NewError(code string, tok token.Token, format string, args ...interface{}) *Error {
	return &Error{
		Code: code,
		Pos:  tok.Pos,
		Line: tok.Line,
		Col:  tok.Column,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// NewErrorAt builds a positioned error from a bare offset, for call sites that
// no longer hold the originating token.
func NewErrorAt(code string, pos int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// ErrAborted is the silent-abort signal. Speculative parses (code completion,
// partial type queries) raise it to stop compilation early; it carries no
// message semantics and must never reach a normal compilation caller.
var ErrAborted = errors.New("parse aborted")

// Aborted reports whether err is the silent-abort signal.
func Aborted(err error) bool {
	return errors.Is(err, ErrAborted)
}
