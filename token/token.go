// Package token defines the lexical tokens of the Flowby language.
package token

import "fmt"

// Type identifies the kind of a lexical token.
type Type int

const (
	// Special tokens
	EOF Type = iota
	ILLEGAL

	// Structural tokens synthesized from whitespace (off-side rule)
	NEWLINE // end of a logical line
	INDENT  // indentation increased by one level
	DEDENT  // indentation decreased by one level

	// Declaration and control-flow keywords
	LET      // let
	CONST    // const
	IF       // if
	ELSE     // else
	FOR      // for
	WHILE    // while
	IN       // in
	FUNCTION // function
	FN       // fn - lambda introducer
	RETURN   // return
	STEP     // step
	IMPORT   // import
	FROM     // from
	AS       // as

	// Word operators
	AND // and
	OR  // or
	NOT // not

	// Literal keywords
	TRUE  // true
	FALSE // false
	NONE  // none

	// Punctuation
	COLON    // :
	COMMA    // ,
	DOT      // .
	ASSIGN   // =
	ARROW    // => (lambda body)
	RARROW   // -> (return type annotation)
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]
	LBRACE   // {
	RBRACE   // }

	// Comparison operators
	EQ    // ==
	NEQ   // !=
	LT    // <
	LTE   // <=
	GT    // >
	GTE   // >=

	// Arithmetic operators
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %

	// Literals and identifiers
	IDENT  // variable names, verbs, clause keywords
	INT    // 42
	FLOAT  // 3.14
	// STRING carries interpolation out of band: an interpolated string is a
	// single STRING token whose Fragments hold the literal pieces and the
	// sub-lexed expression token streams, never extra tokens in the main
	// stream.
	STRING // "text"
)

var names = map[Type]string{
	EOF:      "EOF",
	ILLEGAL:  "ILLEGAL",
	NEWLINE:  "NEWLINE",
	INDENT:   "INDENT",
	DEDENT:   "DEDENT",
	LET:      "let",
	CONST:    "const",
	IF:       "if",
	ELSE:     "else",
	FOR:      "for",
	WHILE:    "while",
	IN:       "in",
	FUNCTION: "function",
	FN:       "fn",
	RETURN:   "return",
	STEP:     "step",
	IMPORT:   "import",
	FROM:     "from",
	AS:       "as",
	AND:      "and",
	OR:       "or",
	NOT:      "not",
	TRUE:     "true",
	FALSE:    "false",
	NONE:     "none",
	COLON:    ":",
	COMMA:    ",",
	DOT:      ".",
	ASSIGN:   "=",
	ARROW:    "=>",
	RARROW:   "->",
	LPAREN:   "(",
	RPAREN:   ")",
	LBRACKET: "[",
	RBRACKET: "]",
	LBRACE:   "{",
	RBRACE:   "}",
	EQ:       "==",
	NEQ:      "!=",
	LT:       "<",
	LTE:      "<=",
	GT:       ">",
	GTE:      ">=",
	PLUS:     "+",
	MINUS:    "-",
	STAR:     "*",
	SLASH:    "/",
	PERCENT:  "%",
	IDENT:    "IDENT",
	INT:      "INT",
	FLOAT:    "FLOAT",
	STRING:   "STRING",
}

func (t Type) String() string {
	if s, ok := names[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Keywords maps keyword lexemes to their token types.
var Keywords = map[string]Type{
	"let":      LET,
	"const":    CONST,
	"if":       IF,
	"else":     ELSE,
	"for":      FOR,
	"while":    WHILE,
	"in":       IN,
	"function": FUNCTION,
	"fn":       FN,
	"return":   RETURN,
	"step":     STEP,
	"import":   IMPORT,
	"from":     FROM,
	"as":       AS,
	"and":      AND,
	"or":       OR,
	"not":      NOT,
	"true":     TRUE,
	"false":    FALSE,
	"none":     NONE,
}

// Position is a point in the source text. Line and Column are 1-based.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Fragment is one piece of an interpolated string: either literal text or a
// sub-token-stream produced by recursively lexing a {expr} interpolation.
type Fragment struct {
	Text   string  // literal text, valid when Tokens is nil
	Tokens []Token // lexed expression tokens, terminated by EOF
}

// Token is a single lexical unit with its source position.
// IndentDepth is the indentation level (in indent units, not columns) of the
// logical line the token appeared on.
type Token struct {
	Type        Type
	Lexeme      string
	Pos         Position
	IndentDepth int

	// Fragments carries the pieces of an interpolated STRING token.
	// Nil for plain strings and all other token types.
	Fragments []Fragment
}

func (t Token) String() string {
	switch t.Type {
	case IDENT, INT, FLOAT, STRING:
		return fmt.Sprintf("%s(%q)", t.Type, t.Lexeme)
	default:
		return t.Type.String()
	}
}
