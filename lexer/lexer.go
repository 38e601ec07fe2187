// Package lexer turns Flowby source text into a token stream.
//
// Flowby uses the off-side rule: block structure is carried entirely by
// INDENT/DEDENT/NEWLINE tokens that the lexer synthesizes from leading
// whitespace. The parser never sees raw whitespace.
package lexer

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/flowby-lang/flowby/token"
)

// Error is a lexical error with its source position. Errors are accumulated
// across the whole input so one pass reports every problem.
type Error struct {
	Pos     token.Position
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// Lexer tokenizes a single source text.
type Lexer struct {
	input    string
	position int  // byte offset of ch
	readPos  int  // byte offset after ch
	ch       rune // current rune, 0 at EOF
	line     int
	column   int

	// Indentation state. indents holds every pushed indent width, starting
	// at 0. len(indents)-1 is the current block depth.
	indents     []int
	atLineStart bool

	// exprMode disables the off-side machinery while lexing the inside of a
	// string interpolation fragment, where newlines are illegal anyway.
	exprMode bool

	errors []Error
	logger *slog.Logger
}

// New creates a Lexer over source.
func New(source string) *Lexer {
	logLevel := slog.LevelInfo
	if os.Getenv("FLOWBY_DEBUG_LEXER") != "" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Strip timestamp and level for readable lexer traces
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))

	l := &Lexer{
		input:       source,
		line:        1,
		column:      0, // incremented to 1 by the initial readChar
		indents:     []int{0},
		atLineStart: true,
		logger:      logger,
	}
	l.readChar()
	return l
}

// Tokenize lexes the entire input and returns the token stream together with
// every lexical error found. The stream always ends with EOF, preceded by the
// DEDENTs needed to return to depth zero.
func Tokenize(source string) ([]token.Token, []Error) {
	return New(source).Tokenize()
}

// Tokenize consumes the whole input. It may be called once per Lexer.
func (l *Lexer) Tokenize() ([]token.Token, []Error) {
	var tokens []token.Token
	for {
		if l.atLineStart && !l.exprMode {
			l.handleLineStart(&tokens)
			if l.ch == 0 {
				break
			}
		}
		tok, ok := l.next()
		if !ok {
			continue // recovered from an error, nothing to emit
		}
		if tok.Type == token.EOF {
			break
		}
		tokens = append(tokens, tok)
	}

	// Close any open line, then unwind the indent stack.
	if !l.exprMode {
		if n := len(tokens); n > 0 && tokens[n-1].Type != token.NEWLINE {
			tokens = append(tokens, l.structural(token.NEWLINE))
		}
		for len(l.indents) > 1 {
			l.indents = l.indents[:len(l.indents)-1]
			tokens = append(tokens, l.structural(token.DEDENT))
		}
	}
	tokens = append(tokens, l.structural(token.EOF))
	return tokens, l.errors
}

// handleLineStart measures leading whitespace and emits INDENT/DEDENT tokens.
// Blank and comment-only lines are consumed without touching the indent stack.
func (l *Lexer) handleLineStart(tokens *[]token.Token) {
	for {
		width, mixed := l.measureIndent()
		switch {
		case l.ch == '\n':
			// Blank line: no NEWLINE, no indent effect
			l.readChar()
			continue
		case l.ch == '#':
			l.skipComment()
			if l.ch == '\n' {
				l.readChar()
			}
			continue
		case l.ch == 0:
			return
		}

		if mixed {
			l.errorf(l.pos(), "mixed tabs and spaces in indentation")
		}

		l.atLineStart = false
		top := l.indents[len(l.indents)-1]
		switch {
		case width > top:
			l.indents = append(l.indents, width)
			*tokens = append(*tokens, l.structural(token.INDENT))
		case width < top:
			for len(l.indents) > 1 && l.indents[len(l.indents)-1] > width {
				l.indents = l.indents[:len(l.indents)-1]
				*tokens = append(*tokens, l.structural(token.DEDENT))
			}
			if l.indents[len(l.indents)-1] != width {
				l.errorf(l.pos(), "inconsistent dedent: %d columns does not match any open block", width)
				// Force-align so the rest of the file still lexes sensibly
				l.indents = append(l.indents, width)
			}
		}
		l.logger.Debug("[LEXER] line start",
			"line", l.line,
			"width", width,
			"depth", len(l.indents)-1)
		return
	}
}

// measureIndent consumes the leading whitespace of the current line and
// returns its width in columns. A tab counts as one 4-column indent unit.
// The second return reports tab/space mixing within this single run.
func (l *Lexer) measureIndent() (width int, mixed bool) {
	sawSpace, sawTab := false, false
	for {
		switch l.ch {
		case ' ':
			sawSpace = true
			width++
		case '\t':
			sawTab = true
			width += 4
		case '\r':
			// Tolerated, contributes nothing
		default:
			return width, sawSpace && sawTab
		}
		l.readChar()
	}
}

// next returns the next non-structural token. The boolean is false when the
// lexer recovered from an error and produced nothing.
func (l *Lexer) next() (token.Token, bool) {
	l.skipSpaces()

	pos := l.pos()
	switch {
	case l.ch == 0:
		return l.make(token.EOF, "", pos), true

	case l.ch == '\n':
		l.readChar()
		l.atLineStart = true
		if l.exprMode {
			// Newlines cannot appear inside an interpolation fragment;
			// the string lexer rejects them before we get here.
			return l.make(token.EOF, "", pos), true
		}
		return l.make(token.NEWLINE, "", pos), true

	case l.ch == '#':
		l.skipComment()
		return token.Token{}, false

	case l.ch == '"':
		return l.lexString(pos)

	case isDigit(l.ch):
		return l.lexNumber(pos), true

	case isIdentStart(l.ch):
		return l.lexIdentOrKeyword(pos), true
	}

	// Punctuation and operators
	type pair struct {
		next rune
		two  token.Type
		one  token.Type
	}
	var p pair
	switch l.ch {
	case ':':
		return l.single(token.COLON, pos), true
	case ',':
		return l.single(token.COMMA, pos), true
	case '.':
		return l.single(token.DOT, pos), true
	case '(':
		return l.single(token.LPAREN, pos), true
	case ')':
		return l.single(token.RPAREN, pos), true
	case '[':
		return l.single(token.LBRACKET, pos), true
	case ']':
		return l.single(token.RBRACKET, pos), true
	case '{':
		return l.single(token.LBRACE, pos), true
	case '}':
		return l.single(token.RBRACE, pos), true
	case '+':
		return l.single(token.PLUS, pos), true
	case '*':
		return l.single(token.STAR, pos), true
	case '/':
		return l.single(token.SLASH, pos), true
	case '%':
		return l.single(token.PERCENT, pos), true
	case '=':
		p = pair{'=', token.EQ, token.ASSIGN}
		if l.peekChar() == '>' {
			l.readChar()
			l.readChar()
			return l.make(token.ARROW, "=>", pos), true
		}
	case '!':
		p = pair{'=', token.NEQ, token.ILLEGAL}
	case '<':
		p = pair{'=', token.LTE, token.LT}
	case '>':
		p = pair{'=', token.GTE, token.GT}
	case '-':
		if l.peekChar() == '>' {
			l.readChar()
			l.readChar()
			return l.make(token.RARROW, "->", pos), true
		}
		return l.single(token.MINUS, pos), true
	default:
		ch := l.ch
		l.readChar()
		l.errorf(pos, "unexpected character %q", ch)
		return token.Token{}, false
	}

	ch := l.ch
	if l.peekChar() == p.next {
		l.readChar()
		l.readChar()
		return l.make(p.two, string(ch)+string(p.next), pos), true
	}
	if p.one == token.ILLEGAL {
		l.readChar()
		l.errorf(pos, "unexpected character %q", ch)
		return token.Token{}, false
	}
	l.readChar()
	return l.make(p.one, string(ch), pos), true
}

func (l *Lexer) lexIdentOrKeyword(pos token.Position) token.Token {
	start := l.position
	for isIdentPart(l.ch) {
		l.readChar()
	}
	lexeme := l.input[start:l.position]
	if t, ok := token.Keywords[lexeme]; ok {
		return l.make(t, lexeme, pos)
	}
	return l.make(token.IDENT, lexeme, pos)
}

func (l *Lexer) lexNumber(pos token.Position) token.Token {
	start := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
		return l.make(token.FLOAT, l.input[start:l.position], pos)
	}
	return l.make(token.INT, l.input[start:l.position], pos)
}

// lexString scans a double-quoted string literal. A {expr} run inside the
// string is recursively lexed as an expression and spliced into the token's
// fragment list; the surrounding literal text becomes text fragments.
func (l *Lexer) lexString(pos token.Position) (token.Token, bool) {
	l.readChar() // consume opening quote

	var text strings.Builder
	var fragments []token.Fragment
	interpolated := false

	flushText := func() {
		if text.Len() > 0 {
			fragments = append(fragments, token.Fragment{Text: text.String()})
			text.Reset()
		}
	}

	for {
		switch l.ch {
		case 0, '\n':
			l.errorf(pos, "unterminated string literal")
			if l.ch == '\n' {
				l.readChar()
				l.atLineStart = true
			}
			return token.Token{}, false

		case '"':
			l.readChar()
			if !interpolated {
				return l.make(token.STRING, text.String(), pos), true
			}
			flushText()
			tok := l.make(token.STRING, "", pos)
			tok.Fragments = fragments
			return tok, true

		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				text.WriteByte('\n')
			case 't':
				text.WriteByte('\t')
			case '\\':
				text.WriteByte('\\')
			case '"':
				text.WriteByte('"')
			case '{':
				text.WriteByte('{')
			case '}':
				text.WriteByte('}')
			default:
				l.errorf(l.pos(), "unknown escape sequence \\%c", l.ch)
			}
			l.readChar()

		case '{':
			exprPos := l.pos()
			inner, ok := l.scanInterpolation(exprPos)
			if !ok {
				return token.Token{}, false
			}
			interpolated = true
			flushText()
			fragments = append(fragments, token.Fragment{Tokens: l.lexFragment(inner, exprPos)})

		default:
			text.WriteRune(l.ch)
			l.readChar()
		}
	}
}

// scanInterpolation consumes a balanced {expr} run (the current character is
// the opening brace) and returns the inner text.
func (l *Lexer) scanInterpolation(pos token.Position) (string, bool) {
	l.readChar() // consume '{'
	start := l.position
	depth := 1
	inString := false
	for {
		switch l.ch {
		case 0, '\n':
			l.errorf(pos, "unterminated interpolation in string literal")
			return "", false
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					inner := l.input[start:l.position]
					l.readChar() // consume '}'
					if strings.TrimSpace(inner) == "" {
						l.errorf(pos, "empty interpolation in string literal")
						return "", false
					}
					return inner, true
				}
			}
		}
		l.readChar()
	}
}

// lexFragment recursively lexes interpolated expression text. The sub-lexer
// runs in expression mode, with positions offset to the enclosing string.
func (l *Lexer) lexFragment(src string, pos token.Position) []token.Token {
	sub := New(src)
	sub.exprMode = true
	sub.atLineStart = false
	sub.line = pos.Line
	sub.column = pos.Column + 1

	toks, errs := sub.Tokenize()
	l.errors = append(l.errors, errs...)
	return toks
}

func (l *Lexer) skipSpaces() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *Lexer) skipComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

func (l *Lexer) readChar() {
	l.position = l.readPos
	if l.readPos >= len(l.input) {
		l.ch = 0
		return
	}
	var size int
	l.ch, size = utf8.DecodeRuneInString(l.input[l.readPos:])
	if l.ch == utf8.RuneError && size == 1 {
		l.ch = rune(l.input[l.readPos])
	}
	l.readPos += size

	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
}

func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	ch, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return ch
}

func (l *Lexer) pos() token.Position {
	return token.Position{Line: l.line, Column: l.column}
}

func (l *Lexer) depth() int {
	return len(l.indents) - 1
}

func (l *Lexer) make(t token.Type, lexeme string, pos token.Position) token.Token {
	return token.Token{Type: t, Lexeme: lexeme, Pos: pos, IndentDepth: l.depth()}
}

func (l *Lexer) structural(t token.Type) token.Token {
	return l.make(t, "", l.pos())
}

func (l *Lexer) single(t token.Type, pos token.Position) token.Token {
	ch := l.ch
	l.readChar()
	return l.make(t, string(ch), pos)
}

func (l *Lexer) errorf(pos token.Position, format string, args ...any) {
	l.errors = append(l.errors, Error{Pos: pos, Message: fmt.Sprintf(format, args...)})
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentPart(ch rune) bool {
	return isIdentStart(ch) || unicode.IsDigit(ch)
}
