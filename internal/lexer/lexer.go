package lexer

import (
	"strconv"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/vexlang/vex/internal/token"
)

// Lexer scans Vex source text into tokens. Numeric, string and date literals
// are decoded during scanning and carried on the token's Literal field.
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int  // current line number
	column       int  // current column number
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		l.readPosition++
		l.column++
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
	l.column++
}

func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()

	var tok token.Token
	pos := l.position

	switch l.ch {
	case '+':
		tok = l.newToken(token.PLUS, "+")
	case '-':
		if l.peekChar() == '>' {
			l.readChar()
			tok = l.newToken(token.ARROW, "->")
		} else {
			tok = l.newToken(token.MINUS, "-")
		}
	case '*':
		tok = l.newToken(token.ASTERISK, "*")
	case '/':
		tok = l.newToken(token.SLASH, "/")
	case '^':
		tok = l.newToken(token.CARET, "^")
	case '\'':
		tok = l.newToken(token.QUOTE, "'")
	case 0xB2: // ² postfix squared marker
		tok = l.newToken(token.SQUARED, "²")
	case '.':
		switch l.peekChar() {
		case '.':
			l.readChar()
			tok = l.newToken(token.DOT_DOT, "..")
		case '*':
			l.readChar()
			tok = l.newToken(token.DOT_STAR, ".*")
		case '/':
			l.readChar()
			tok = l.newToken(token.DOT_DIV, "./")
		default:
			tok = l.newToken(token.DOT, ".")
		}
	case '=':
		if l.peekChar() == '>' {
			l.readChar()
			tok = l.newToken(token.MAPS_TO, "=>")
		} else {
			tok = l.newToken(token.EQ, "=")
		}
	case '<':
		switch l.peekChar() {
		case '>':
			l.readChar()
			tok = l.newToken(token.NOT_EQ, "<>")
		case '=':
			l.readChar()
			tok = l.newToken(token.LTE, "<=")
		default:
			tok = l.newToken(token.LT, "<")
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.newToken(token.GTE, ">=")
		} else {
			tok = l.newToken(token.GT, ">")
		}
	case ':':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.newToken(token.ASSIGN, ":=")
		} else {
			tok = l.newToken(token.COLON, ":")
		}
	case ',':
		tok = l.newToken(token.COMMA, ",")
	case ';':
		tok = l.newToken(token.SEMICOLON, ";")
	case '(':
		tok = l.newToken(token.LPAREN, "(")
	case ')':
		tok = l.newToken(token.RPAREN, ")")
	case '[':
		tok = l.newToken(token.LBRACKET, "[")
	case ']':
		tok = l.newToken(token.RBRACKET, "]")
	case '{':
		tok = l.newToken(token.LBRACE, "{")
	case '}':
		tok = l.newToken(token.RBRACE, "}")
	case '"':
		return l.readString()
	case '#':
		return l.readDate()
	case 0:
		tok = token.Token{Type: token.EOF, Pos: pos, Line: l.line, Column: l.column}
	default:
		if isLetter(l.ch) {
			startLine, startCol := l.line, l.column
			lexeme := l.readIdentifier()
			return token.Token{
				Type:    token.LookupIdent(lexeme),
				Lexeme:  lexeme,
				Literal: lexeme,
				Pos:     pos,
				Line:    startLine,
				Column:  startCol,
			}
		}
		if isDigit(l.ch) {
			return l.readNumber()
		}
		tok = l.newToken(token.ILLEGAL, string(l.ch))
	}

	tok.Pos = pos
	l.readChar()
	return tok
}

func (l *Lexer) newToken(t token.TokenType, lexeme string) token.Token {
	return token.Token{Type: t, Lexeme: lexeme, Literal: lexeme, Pos: l.position, Line: l.line, Column: l.column}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber scans an integer or real literal, with an optional exponent part
// and an optional trailing 'i' marking an imaginary literal.
func (l *Lexer) readNumber() token.Token {
	startLine, startCol := l.line, l.column
	position := l.position
	isReal := false

	for isDigit(l.ch) {
		l.readChar()
	}
	// A dot is part of the number only when followed by a digit, so that
	// `1..10` stays a range and `2.sqrt` stays a member access.
	if l.ch == '.' && isDigit(l.peekChar()) {
		isReal = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		save, expo := l.position, l.ch
		saveLine, saveCol := l.line, l.column
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		if isDigit(l.ch) {
			isReal = true
			for isDigit(l.ch) {
				l.readChar()
			}
		} else {
			// Not an exponent after all; rewind to the 'e' and let it start
			// an identifier (coefficient shorthand such as 2e relies on it).
			l.position = save
			l.readPosition = save + 1
			l.ch = expo
			l.line, l.column = saveLine, saveCol
		}
	}

	lexeme := l.input[position:l.position]

	if l.ch == 'i' && !isLetter(l.peekChar()) && !isDigit(l.peekChar()) {
		l.readChar()
		v, err := strconv.ParseFloat(lexeme, 64)
		if err != nil {
			return token.Token{Type: token.ILLEGAL, Lexeme: lexeme + "i", Literal: err.Error(), Pos: position, Line: startLine, Column: startCol}
		}
		return token.Token{Type: token.IMAGINARY, Lexeme: lexeme + "i", Literal: complex(0, v), Pos: position, Line: startLine, Column: startCol}
	}

	if isReal {
		v, err := strconv.ParseFloat(lexeme, 64)
		if err != nil {
			return token.Token{Type: token.ILLEGAL, Lexeme: lexeme, Literal: err.Error(), Pos: position, Line: startLine, Column: startCol}
		}
		return token.Token{Type: token.REAL, Lexeme: lexeme, Literal: v, Pos: position, Line: startLine, Column: startCol}
	}
	v, err := strconv.ParseInt(lexeme, 10, 64)
	if err != nil {
		return token.Token{Type: token.ILLEGAL, Lexeme: lexeme, Literal: "integer overflow", Pos: position, Line: startLine, Column: startCol}
	}
	return token.Token{Type: token.INT, Lexeme: lexeme, Literal: v, Pos: position, Line: startLine, Column: startCol}
}

func (l *Lexer) readString() token.Token {
	startLine, startCol := l.line, l.column
	pos := l.position
	var out []byte
	for {
		l.readChar()
		if l.ch == '"' || l.ch == 0 {
			break
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case '"':
				out = append(out, '"')
			case '\\':
				out = append(out, '\\')
			default:
				out = append(out, '\\')
				out = utf8.AppendRune(out, l.ch)
			}
			continue
		}
		out = utf8.AppendRune(out, l.ch)
	}
	if l.ch == 0 {
		return token.Token{Type: token.ILLEGAL, Lexeme: l.input[pos:min(l.position, len(l.input))], Literal: "unterminated string", Pos: pos, Line: startLine, Column: startCol}
	}
	l.readChar() // closing quote
	return token.Token{Type: token.STRING, Lexeme: l.input[pos:l.position], Literal: string(out), Pos: pos, Line: startLine, Column: startCol}
}

// readDate scans a #yyyy-mm-dd# literal.
func (l *Lexer) readDate() token.Token {
	startLine, startCol := l.line, l.column
	pos := l.position
	l.readChar() // opening #
	start := l.position
	for l.ch != '#' && l.ch != 0 && l.ch != '\n' {
		l.readChar()
	}
	if l.ch != '#' {
		return token.Token{Type: token.ILLEGAL, Lexeme: l.input[pos:min(l.position, len(l.input))], Literal: "unterminated date literal", Pos: pos, Line: startLine, Column: startCol}
	}
	body := l.input[start:l.position]
	l.readChar() // closing #
	d, err := time.Parse("2006-01-02", body)
	if err != nil {
		return token.Token{Type: token.ILLEGAL, Lexeme: "#" + body + "#", Literal: "invalid date literal", Pos: pos, Line: startLine, Column: startCol}
	}
	return token.Token{Type: token.DATE, Lexeme: "#" + body + "#", Literal: d.UTC(), Pos: pos, Line: startLine, Column: startCol}
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || (ch >= 0x80 && ch != 0xB2 && unicode.IsLetter(ch))
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) skipWhitespace() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
			l.readChar()
		}
		if l.ch == '/' {
			if l.peekChar() == '/' {
				for l.ch != '\n' && l.ch != 0 {
					l.readChar()
				}
				continue
			}
			if l.peekChar() == '*' {
				l.readChar()
				l.readChar()
				for l.ch != 0 {
					if l.ch == '*' && l.peekChar() == '/' {
						l.readChar()
						l.readChar()
						break
					}
					l.readChar()
				}
				continue
			}
		}
		break
	}
}
