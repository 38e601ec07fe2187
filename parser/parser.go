// Package parser builds the Flowby AST from a token stream.
//
// The parser is recursive descent with one token of lookahead and
// precedence climbing for expressions. Block extent comes entirely from the
// lexer's INDENT/DEDENT tokens; there are no block terminators. On a syntax
// error the parser records it, resynchronizes at the next statement boundary
// and resumes, so one pass reports every independent error.
package parser

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/flowby-lang/flowby/ast"
	"github.com/flowby-lang/flowby/token"
)

// Option configures a parse.
type Option func(*config)

type config struct {
	trace bool
}

// WithTrace enables statement-level debug logging through slog.
func WithTrace() Option {
	return func(c *config) { c.trace = true }
}

type parser struct {
	toks   []token.Token
	pos    int
	errors []Error

	// inFragment marks a sub-parser running over an interpolated string
	// fragment, where statement machinery does not apply.
	inFragment bool

	logger *slog.Logger
}

// Parse parses a lexed token stream into a Program. The token stream must be
// terminated by EOF (the lexer guarantees this). All syntax errors found are
// returned together; the Program contains every statement that parsed.
func Parse(toks []token.Token, opts ...Option) (*ast.Program, []Error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if os.Getenv("FLOWBY_DEBUG_PARSER") != "" {
		cfg.trace = true
	}

	level := slog.LevelInfo
	if cfg.trace {
		level = slog.LevelDebug
	}
	p := &parser{
		toks: toks,
		logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})),
	}
	prog := p.parseProgram()
	return prog, p.errors
}

// ---------------------------------------------------------------------------
// Token plumbing

func (p *parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		if len(p.toks) == 0 {
			return token.Token{Type: token.EOF, Pos: token.Position{Line: 1, Column: 1}}
		}
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos]
}

func (p *parser) peek() token.Token {
	if p.pos+1 >= len(p.toks) {
		return p.cur()
	}
	return p.toks[p.pos+1]
}

func (p *parser) advance() token.Token {
	tok := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return tok
}

func (p *parser) at(t token.Type) bool {
	return p.cur().Type == t
}

func (p *parser) accept(t token.Type) bool {
	if p.at(t) {
		p.advance()
		return true
	}
	return false
}

// expect consumes a token of type t or records an error describing what the
// grammar wanted. The boolean reports whether the token was present.
func (p *parser) expect(t token.Type, expected string) (token.Token, bool) {
	if p.at(t) {
		return p.advance(), true
	}
	p.errorExpect(expected)
	return p.cur(), false
}

func describe(tok token.Token) string {
	switch tok.Type {
	case token.IDENT, token.INT, token.FLOAT:
		return fmt.Sprintf("%q", tok.Lexeme)
	case token.STRING:
		return "string literal"
	case token.NEWLINE:
		return "end of line"
	case token.INDENT:
		return "indent"
	case token.DEDENT:
		return "dedent"
	case token.EOF:
		return "end of file"
	default:
		return fmt.Sprintf("%q", tok.Type.String())
	}
}

func (p *parser) errorExpect(expected string) {
	tok := p.cur()
	p.errors = append(p.errors, Error{
		Pos:      tok.Pos,
		Expected: expected,
		Found:    describe(tok),
	})
}

func (p *parser) errorf(pos token.Position, format string, args ...any) {
	p.errors = append(p.errors, Error{Pos: pos, Message: fmt.Sprintf(format, args...)})
}

// sync skips tokens until the next statement boundary: just past a NEWLINE,
// or at a DEDENT/EOF. Nested blocks opened while skipping are skipped whole,
// so recovery lands on a statement that aligns with the failed one.
func (p *parser) sync() {
	depth := 0
	for {
		switch p.cur().Type {
		case token.EOF:
			return
		case token.NEWLINE:
			p.advance()
			if depth == 0 {
				return
			}
		case token.INDENT:
			depth++
			p.advance()
		case token.DEDENT:
			if depth == 0 {
				return
			}
			depth--
			p.advance()
			if depth == 0 {
				// Back at the level of the statement that failed
				return
			}
		default:
			p.advance()
		}
	}
}

// endOfStatement consumes the statement's trailing NEWLINE. EOF and DEDENT
// also terminate a statement (the lexer emits NEWLINE before DEDENT, so the
// DEDENT case only fires after recovery).
func (p *parser) endOfStatement() bool {
	if p.accept(token.NEWLINE) || p.at(token.EOF) || p.at(token.DEDENT) {
		return true
	}
	p.errorExpect("end of line")
	return false
}

// ---------------------------------------------------------------------------
// Statements

func (p *parser) parseProgram() *ast.Program {
	prog := &ast.Program{}
	for !p.at(token.EOF) {
		if p.accept(token.NEWLINE) {
			continue
		}
		if p.at(token.INDENT) {
			p.errorf(p.cur().Pos, "unexpected indent")
			p.sync()
			continue
		}
		start := p.pos
		stmt, ok := p.parseStatement()
		if !ok {
			p.sync()
			if p.pos == start {
				p.advance() // always make progress
			}
			continue
		}
		prog.Stmts = append(prog.Stmts, stmt)
	}
	return prog
}

func (p *parser) parseStatement() (ast.Stmt, bool) {
	tok := p.cur()
	p.logger.Debug("[PARSER] statement", "tok", tok.String(), "line", tok.Pos.Line)

	switch tok.Type {
	case token.LET, token.CONST:
		return p.parseDecl()
	case token.IF:
		return p.parseIf()
	case token.FOR:
		return p.parseFor()
	case token.WHILE:
		return p.parseWhile()
	case token.FUNCTION:
		return p.parseFunction()
	case token.STEP:
		return p.parseStep()
	case token.RETURN:
		return p.parseReturn()
	case token.IMPORT:
		return p.parseImport()
	case token.IDENT:
		if IsVerb(tok.Lexeme) && !p.verbShadowed() {
			return p.parseAction()
		}
		return p.parseSimple()
	default:
		return p.parseSimple()
	}
}

// verbShadowed reports whether a verb-named identifier in statement position
// is actually being used as a plain value, e.g. `type = 1` or `click(x)`.
func (p *parser) verbShadowed() bool {
	switch p.peek().Type {
	case token.ASSIGN, token.LPAREN, token.DOT, token.LBRACKET:
		return true
	}
	return false
}

func (p *parser) parseDecl() (ast.Stmt, bool) {
	kw := p.advance()
	name, ok := p.expect(token.IDENT, "a name after "+kw.Type.String())
	if !ok {
		return nil, false
	}

	typ := ""
	if p.accept(token.COLON) {
		typTok, ok := p.expect(token.IDENT, "a type name after ':'")
		if !ok {
			return nil, false
		}
		typ = typTok.Lexeme
	}

	if _, ok := p.expect(token.ASSIGN, "'=' in declaration"); !ok {
		return nil, false
	}
	init := p.parseExpr()
	if !p.endOfStatement() {
		return nil, false
	}

	if kw.Type == token.CONST {
		return &ast.ConstDecl{Name: name.Lexeme, Type: typ, Init: init, Position: kw.Pos}, true
	}
	return &ast.LetDecl{Name: name.Lexeme, Type: typ, Init: init, Position: kw.Pos}, true
}

// parseBlock parses `':' NEWLINE INDENT statement+ DEDENT`.
func (p *parser) parseBlock(context string) ([]ast.Stmt, bool) {
	if _, ok := p.expect(token.COLON, "':' after "+context); !ok {
		return nil, false
	}
	if _, ok := p.expect(token.NEWLINE, "a new line after ':'"); !ok {
		return nil, false
	}
	if _, ok := p.expect(token.INDENT, "an indented block"); !ok {
		return nil, false
	}

	var stmts []ast.Stmt
	for !p.at(token.DEDENT) && !p.at(token.EOF) {
		if p.accept(token.NEWLINE) {
			continue
		}
		start := p.pos
		stmt, ok := p.parseStatement()
		if !ok {
			p.sync()
			if p.pos == start {
				p.advance()
			}
			continue
		}
		stmts = append(stmts, stmt)
	}
	p.accept(token.DEDENT)
	return stmts, true
}

func (p *parser) parseIf() (ast.Stmt, bool) {
	pos := p.advance().Pos // consume `if`
	cond := p.parseExpr()
	block, ok := p.parseBlock("if condition")
	if !ok {
		return nil, false
	}
	stmt := &ast.IfStmt{
		Branches: []ast.IfBranch{{Cond: cond, Block: block}},
		Position: pos,
	}

	for p.at(token.ELSE) {
		if p.peek().Type == token.IF {
			p.advance() // else
			p.advance() // if
			cond := p.parseExpr()
			block, ok := p.parseBlock("else if condition")
			if !ok {
				return nil, false
			}
			stmt.Branches = append(stmt.Branches, ast.IfBranch{Cond: cond, Block: block})
			continue
		}
		p.advance() // else
		elseBlock, ok := p.parseBlock("else")
		if !ok {
			return nil, false
		}
		stmt.Else = elseBlock
		break
	}
	return stmt, true
}

func (p *parser) parseFor() (ast.Stmt, bool) {
	pos := p.advance().Pos
	first, ok := p.expect(token.IDENT, "a loop variable after 'for'")
	if !ok {
		return nil, false
	}
	vars := []string{first.Lexeme}
	if p.accept(token.COMMA) {
		second, ok := p.expect(token.IDENT, "a second loop variable after ','")
		if !ok {
			return nil, false
		}
		vars = append(vars, second.Lexeme)
	}
	if _, ok := p.expect(token.IN, "'in' after loop variables"); !ok {
		return nil, false
	}
	iter := p.parseExpr()
	block, ok := p.parseBlock("for header")
	if !ok {
		return nil, false
	}
	return &ast.ForStmt{Vars: vars, Iterable: iter, Block: block, Position: pos}, true
}

func (p *parser) parseWhile() (ast.Stmt, bool) {
	pos := p.advance().Pos
	cond := p.parseExpr()
	block, ok := p.parseBlock("while condition")
	if !ok {
		return nil, false
	}
	return &ast.WhileStmt{Cond: cond, Block: block, Position: pos}, true
}

func (p *parser) parseFunction() (ast.Stmt, bool) {
	pos := p.advance().Pos
	name, ok := p.expect(token.IDENT, "a function name")
	if !ok {
		return nil, false
	}
	if _, ok := p.expect(token.LPAREN, "'(' after function name"); !ok {
		return nil, false
	}
	params, ok := p.parseParams()
	if !ok {
		return nil, false
	}

	returnType := ""
	if p.accept(token.RARROW) {
		typTok, ok := p.expect(token.IDENT, "a return type after '->'")
		if !ok {
			return nil, false
		}
		returnType = typTok.Lexeme
	}

	block, ok := p.parseBlock("function signature")
	if !ok {
		return nil, false
	}
	return &ast.FunctionDecl{
		Name:       name.Lexeme,
		Params:     params,
		ReturnType: returnType,
		Block:      block,
		Position:   pos,
	}, true
}

// parseParams parses a parenthesized parameter list, consuming the closing
// ')'. A required parameter may not follow a defaulted one.
func (p *parser) parseParams() ([]ast.Param, bool) {
	var params []ast.Param
	seenDefault := false
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		name, ok := p.expect(token.IDENT, "a parameter name")
		if !ok {
			return nil, false
		}
		param := ast.Param{Name: name.Lexeme, NamePos: name.Pos}

		if p.accept(token.COLON) {
			typTok, ok := p.expect(token.IDENT, "a type name after ':'")
			if !ok {
				return nil, false
			}
			param.Type = typTok.Lexeme
		}
		if p.accept(token.ASSIGN) {
			param.Default = p.parseExpr()
			seenDefault = true
		} else if seenDefault {
			p.errorf(name.Pos, "required parameter %q follows a defaulted parameter", name.Lexeme)
		}

		params = append(params, param)
		if !p.accept(token.COMMA) {
			break
		}
	}
	if _, ok := p.expect(token.RPAREN, "')' after parameters"); !ok {
		return nil, false
	}
	return params, true
}

func (p *parser) parseStep() (ast.Stmt, bool) {
	pos := p.advance().Pos
	label, ok := p.expect(token.STRING, "a step label string")
	if !ok {
		return nil, false
	}
	if label.Fragments != nil {
		p.errorf(label.Pos, "step label must be a plain string, not an interpolated one")
	}
	block, ok := p.parseBlock("step label")
	if !ok {
		return nil, false
	}
	return &ast.StepBlock{Label: label.Lexeme, Block: block, Position: pos}, true
}

func (p *parser) parseReturn() (ast.Stmt, bool) {
	pos := p.advance().Pos
	stmt := &ast.ReturnStmt{Position: pos}
	if !p.at(token.NEWLINE) && !p.at(token.EOF) && !p.at(token.DEDENT) {
		stmt.Value = p.parseExpr()
	}
	if !p.endOfStatement() {
		return nil, false
	}
	return stmt, true
}

func (p *parser) parseImport() (ast.Stmt, bool) {
	pos := p.advance().Pos

	// Form 1: import "path" as alias
	if p.at(token.STRING) {
		path := p.advance()
		if path.Fragments != nil {
			p.errorf(path.Pos, "import path must be a plain string")
		}
		if _, ok := p.expect(token.AS, "'as' after import path"); !ok {
			return nil, false
		}
		alias, ok := p.expect(token.IDENT, "an alias name after 'as'")
		if !ok {
			return nil, false
		}
		if !p.endOfStatement() {
			return nil, false
		}
		return &ast.ImportStmt{Path: path.Lexeme, Alias: alias.Lexeme, Position: pos}, true
	}

	// Form 2: import a, b from "path"
	var names []string
	for {
		name, ok := p.expect(token.IDENT, "an imported name")
		if !ok {
			return nil, false
		}
		names = append(names, name.Lexeme)
		if !p.accept(token.COMMA) {
			break
		}
	}
	if _, ok := p.expect(token.FROM, "'from' after imported names"); !ok {
		return nil, false
	}
	path, ok := p.expect(token.STRING, "a module path string")
	if !ok {
		return nil, false
	}
	if path.Fragments != nil {
		p.errorf(path.Pos, "import path must be a plain string")
	}
	if !p.endOfStatement() {
		return nil, false
	}
	return &ast.ImportStmt{Path: path.Lexeme, Names: names, Position: pos}, true
}

// clauseKeyword maps the current token to a clause keyword. Some clause
// keywords (`from`, `as`, `in`, `for`) double as language keywords, so the
// mapping goes through token types as well as identifier lexemes.
func clauseKeyword(tok token.Token) string {
	switch tok.Type {
	case token.IDENT:
		return tok.Lexeme
	case token.FROM:
		return "from"
	case token.AS:
		return "as"
	case token.IN:
		return "in"
	case token.FOR:
		return "for"
	default:
		return ""
	}
}

// parseAction parses one automation verb through the verb grammar table:
// the verb's positional arguments first, then its optional clauses in any
// order. A clause keyword not registered for the verb is an error.
func (p *parser) parseAction() (ast.Stmt, bool) {
	verbTok := p.advance()
	spec := verbs[verbTok.Lexeme]
	stmt := &ast.ActionStmt{
		Verb:     verbTok.Lexeme,
		Clauses:  map[string]ast.Expr{},
		Position: verbTok.Pos,
	}

	for i := 0; i < spec.Arity; i++ {
		if p.at(token.NEWLINE) || p.at(token.EOF) {
			p.errorExpect(fmt.Sprintf("an argument for %q", stmt.Verb))
			return nil, false
		}
		stmt.Args = append(stmt.Args, p.parseExpr())
	}

	for !p.at(token.NEWLINE) && !p.at(token.EOF) && !p.at(token.DEDENT) {
		kw := clauseKeyword(p.cur())
		if kw == "" {
			p.errorExpect(fmt.Sprintf("a clause keyword or end of line after %q", stmt.Verb))
			return nil, false
		}
		if !contains(spec.Clauses, kw) {
			p.errors = append(p.errors, Error{
				Pos:     p.cur().Pos,
				Message: fmt.Sprintf("verb %q does not take a %q clause", stmt.Verb, kw),
				Suggest: closestMatch(kw, spec.Clauses),
			})
			return nil, false
		}
		if _, dup := stmt.Clauses[kw]; dup {
			p.errorf(p.cur().Pos, "duplicate %q clause for verb %q", kw, stmt.Verb)
			return nil, false
		}
		p.advance() // clause keyword
		stmt.Clauses[kw] = p.parseExpr()
		stmt.Order = append(stmt.Order, kw)
	}

	for _, req := range spec.Required {
		if _, ok := stmt.Clauses[req]; !ok {
			p.errorf(verbTok.Pos, "verb %q requires a %q clause", stmt.Verb, req)
			return nil, false
		}
	}
	if !p.endOfStatement() {
		return nil, false
	}
	return stmt, true
}

// parseSimple parses an assignment or a bare expression statement.
func (p *parser) parseSimple() (ast.Stmt, bool) {
	start := p.pos
	expr := p.parseExpr()
	if p.pos == start {
		// parsePrimary could not even start an expression
		p.advance()
		return nil, false
	}

	if p.at(token.ASSIGN) {
		eq := p.advance()
		switch expr.(type) {
		case *ast.Identifier, *ast.MemberAccess, *ast.Index:
		default:
			p.errorf(eq.Pos, "invalid assignment target")
			return nil, false
		}
		value := p.parseExpr()
		if !p.endOfStatement() {
			return nil, false
		}
		return &ast.Assignment{Target: expr, Value: value, Position: expr.Pos()}, true
	}

	if !p.endOfStatement() {
		return nil, false
	}
	return &ast.ExprStmt{X: expr, Position: expr.Pos()}, true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Expressions
//
// Precedence, loosest first: or, and, equality, relational, additive,
// multiplicative, unary, postfix. There is no ternary form.

func (p *parser) parseExpr() ast.Expr {
	return p.parseOr()
}

func (p *parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for p.at(token.OR) {
		op := p.advance()
		right := p.parseAnd()
		left = &ast.BinaryOp{Op: op.Type, Left: left, Right: right, Position: left.Pos()}
	}
	return left
}

func (p *parser) parseAnd() ast.Expr {
	left := p.parseEquality()
	for p.at(token.AND) {
		op := p.advance()
		right := p.parseEquality()
		left = &ast.BinaryOp{Op: op.Type, Left: left, Right: right, Position: left.Pos()}
	}
	return left
}

func (p *parser) parseEquality() ast.Expr {
	left := p.parseRelational()
	for p.at(token.EQ) || p.at(token.NEQ) {
		op := p.advance()
		right := p.parseRelational()
		left = &ast.BinaryOp{Op: op.Type, Left: left, Right: right, Position: left.Pos()}
	}
	return left
}

func (p *parser) parseRelational() ast.Expr {
	left := p.parseAdditive()
	for p.at(token.LT) || p.at(token.LTE) || p.at(token.GT) || p.at(token.GTE) {
		op := p.advance()
		right := p.parseAdditive()
		left = &ast.BinaryOp{Op: op.Type, Left: left, Right: right, Position: left.Pos()}
	}
	return left
}

func (p *parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for p.at(token.PLUS) || p.at(token.MINUS) {
		op := p.advance()
		right := p.parseMultiplicative()
		left = &ast.BinaryOp{Op: op.Type, Left: left, Right: right, Position: left.Pos()}
	}
	return left
}

func (p *parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	for p.at(token.STAR) || p.at(token.SLASH) || p.at(token.PERCENT) {
		op := p.advance()
		right := p.parseUnary()
		left = &ast.BinaryOp{Op: op.Type, Left: left, Right: right, Position: left.Pos()}
	}
	return left
}

func (p *parser) parseUnary() ast.Expr {
	if p.at(token.NOT) || p.at(token.MINUS) {
		op := p.advance()
		operand := p.parseUnary()
		return &ast.UnaryOp{Op: op.Type, Operand: operand, Position: op.Pos}
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() ast.Expr {
	expr := p.parsePrimary()
	for {
		switch p.cur().Type {
		case token.LPAREN:
			p.advance()
			var args []ast.Expr
			for !p.at(token.RPAREN) && !p.at(token.EOF) {
				args = append(args, p.parseExpr())
				if !p.accept(token.COMMA) {
					break
				}
			}
			p.expect(token.RPAREN, "')' after call arguments")
			expr = &ast.Call{Callee: expr, Args: args, Position: expr.Pos()}

		case token.DOT:
			p.advance()
			name, ok := p.expect(token.IDENT, "a member name after '.'")
			if !ok {
				return expr
			}
			expr = &ast.MemberAccess{Object: expr, Name: name.Lexeme, Position: expr.Pos()}

		case token.LBRACKET:
			p.advance()
			idx := p.parseExpr()
			p.expect(token.RBRACKET, "']' after index")
			expr = &ast.Index{Object: expr, IndexEx: idx, Position: expr.Pos()}

		default:
			return expr
		}
	}
}

func (p *parser) parsePrimary() ast.Expr {
	tok := p.cur()
	switch tok.Type {
	case token.INT:
		p.advance()
		v, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			p.errorf(tok.Pos, "invalid integer literal %q", tok.Lexeme)
		}
		return &ast.Literal{Kind: ast.LitInt, Int: v, Position: tok.Pos}

	case token.FLOAT:
		p.advance()
		v, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			p.errorf(tok.Pos, "invalid float literal %q", tok.Lexeme)
		}
		return &ast.Literal{Kind: ast.LitFloat, Float: v, Position: tok.Pos}

	case token.STRING:
		p.advance()
		if tok.Fragments == nil {
			return &ast.Literal{Kind: ast.LitString, Str: tok.Lexeme, Position: tok.Pos}
		}
		return p.buildInterpolated(tok)

	case token.TRUE, token.FALSE:
		p.advance()
		return &ast.Literal{Kind: ast.LitBool, Bool: tok.Type == token.TRUE, Position: tok.Pos}

	case token.NONE:
		p.advance()
		return &ast.Literal{Kind: ast.LitNone, Position: tok.Pos}

	case token.IDENT:
		p.advance()
		return &ast.Identifier{Name: tok.Lexeme, Position: tok.Pos}

	case token.LPAREN:
		p.advance()
		expr := p.parseExpr()
		p.expect(token.RPAREN, "')'")
		return expr

	case token.LBRACKET:
		p.advance()
		lit := &ast.ListLiteral{Position: tok.Pos}
		for !p.at(token.RBRACKET) && !p.at(token.EOF) {
			lit.Elements = append(lit.Elements, p.parseExpr())
			if !p.accept(token.COMMA) {
				break
			}
		}
		p.expect(token.RBRACKET, "']' after list elements")
		return lit

	case token.LBRACE:
		p.advance()
		lit := &ast.DictLiteral{Position: tok.Pos}
		for !p.at(token.RBRACE) && !p.at(token.EOF) {
			key := p.parseExpr()
			p.expect(token.COLON, "':' after dict key")
			value := p.parseExpr()
			lit.Entries = append(lit.Entries, ast.DictEntry{Key: key, Value: value})
			if !p.accept(token.COMMA) {
				break
			}
		}
		p.expect(token.RBRACE, "'}' after dict entries")
		return lit

	case token.FN:
		return p.parseLambda()

	default:
		p.errorExpect("an expression")
		return &ast.Literal{Kind: ast.LitNone, Position: tok.Pos}
	}
}

func (p *parser) parseLambda() ast.Expr {
	pos := p.advance().Pos // consume `fn`
	if _, ok := p.expect(token.LPAREN, "'(' after 'fn'"); !ok {
		return &ast.Literal{Kind: ast.LitNone, Position: pos}
	}
	params, ok := p.parseParams()
	if !ok {
		return &ast.Literal{Kind: ast.LitNone, Position: pos}
	}
	if _, ok := p.expect(token.ARROW, "'=>' after lambda parameters"); !ok {
		return &ast.Literal{Kind: ast.LitNone, Position: pos}
	}
	body := p.parseExpr()
	return &ast.Lambda{Params: params, Body: body, Position: pos}
}

// buildInterpolated turns a fragmented STRING token into an
// InterpolatedString node, parsing each expression fragment with a sub-parser
// over its spliced token stream.
func (p *parser) buildInterpolated(tok token.Token) ast.Expr {
	node := &ast.InterpolatedString{Position: tok.Pos}
	for _, frag := range tok.Fragments {
		if frag.Tokens == nil {
			node.Fragments = append(node.Fragments, ast.StringFragment{Text: frag.Text})
			continue
		}
		sub := &parser{toks: frag.Tokens, inFragment: true, logger: p.logger}
		expr := sub.parseExpr()
		if !sub.at(token.EOF) {
			sub.errorExpect("end of interpolation")
		}
		p.errors = append(p.errors, sub.errors...)
		node.Fragments = append(node.Fragments, ast.StringFragment{Expr: expr})
	}
	return node
}
