package token

// TokenType identifies the lexical class of a token.
type TokenType string

// Token is one lexeme produced by the scanner. Pos is the byte offset of the
// first character in the source text; Line and Column are 1-based and kept for
// human-readable error output. Literal carries the decoded value for number,
// string and date literals (int64, float64, complex128, string, time.Time).
type Token struct {
	Type    TokenType
	Lexeme  string
	Literal interface{}
	Pos     int
	Line    int
	Column  int
}

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	// Identifiers and literals
	IDENT     = "IDENT"
	INT       = "INT"
	REAL      = "REAL"
	IMAGINARY = "IMAGINARY"
	STRING    = "STRING"
	DATE      = "DATE"

	// Operators
	ASSIGN   = ":="
	PLUS     = "+"
	MINUS    = "-"
	ASTERISK = "*"
	SLASH    = "/"
	CARET    = "^"
	SQUARED  = "²"
	QUOTE    = "'"
	DOT      = "."
	DOT_DOT  = ".."
	DOT_STAR = ".*"
	DOT_DIV  = "./"
	ARROW    = "->"

	EQ     = "="
	NOT_EQ = "<>"
	LT     = "<"
	GT     = ">"
	LTE    = "<="
	GTE    = ">="

	// Delimiters
	COMMA     = ","
	COLON     = ":"
	SEMICOLON = ";"
	MAPS_TO   = "=>"
	LPAREN    = "("
	RPAREN    = ")"
	LBRACKET  = "["
	RBRACKET  = "]"
	LBRACE    = "{"
	RBRACE    = "}"

	// Keywords
	LET   = "LET"
	IN    = "IN"
	IF    = "IF"
	THEN  = "THEN"
	ELIF  = "ELIF"
	ELSE  = "ELSE"
	OR    = "OR"
	AND   = "AND"
	NOT   = "NOT"
	MOD   = "MOD"
	TRUE  = "TRUE"
	FALSE = "FALSE"
	ANY   = "ANY"
	ALL   = "ALL"
)

var keywords = map[string]TokenType{
	"let":   LET,
	"in":    IN,
	"if":    IF,
	"then":  THEN,
	"elif":  ELIF,
	"else":  ELSE,
	"or":    OR,
	"and":   AND,
	"not":   NOT,
	"mod":   MOD,
	"true":  TRUE,
	"false": FALSE,
	"any":   ANY,
	"all":   ALL,
}

// LookupIdent maps reserved words to their keyword token type and leaves
// everything else as a plain identifier.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}
