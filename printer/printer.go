// Package printer emits canonical Flowby source from an AST.
//
// The output uses four-space indentation and minimal parentheses: a
// sub-expression is parenthesized only when precedence demands it. Printing a
// parsed program and reparsing the output yields a structurally identical AST.
package printer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/flowby-lang/flowby/ast"
	"github.com/flowby-lang/flowby/token"
)

const indentUnit = "    "

// Print renders a whole program as canonical source ending in a newline.
func Print(prog *ast.Program) string {
	p := &printer{}
	for _, stmt := range prog.Stmts {
		p.stmt(stmt)
	}
	return p.b.String()
}

// PrintExpr renders a single expression, mainly for diagnostics and tests.
func PrintExpr(expr ast.Expr) string {
	p := &printer{}
	p.expr(expr, 0)
	return p.b.String()
}

type printer struct {
	b      strings.Builder
	indent int
}

func (p *printer) line(format string, args ...any) {
	p.b.WriteString(strings.Repeat(indentUnit, p.indent))
	fmt.Fprintf(&p.b, format, args...)
	p.b.WriteByte('\n')
}

// open writes a block header line and prints body one level deeper.
func (p *printer) open(header string, body []ast.Stmt) {
	p.line("%s", header)
	p.indent++
	if len(body) == 0 {
		// Blocks cannot be empty in the grammar; keep output reparseable.
		p.line("none")
	}
	for _, stmt := range body {
		p.stmt(stmt)
	}
	p.indent--
}

// ---------------------------------------------------------------------------
// Statements

func (p *printer) stmt(stmt ast.Stmt) {
	switch st := stmt.(type) {
	case *ast.LetDecl:
		p.line("let %s%s = %s", st.Name, annotation(st.Type), p.exprStr(st.Init))

	case *ast.ConstDecl:
		p.line("const %s%s = %s", st.Name, annotation(st.Type), p.exprStr(st.Init))

	case *ast.Assignment:
		p.line("%s = %s", p.exprStr(st.Target), p.exprStr(st.Value))

	case *ast.IfStmt:
		for i, branch := range st.Branches {
			kw := "if"
			if i > 0 {
				kw = "else if"
			}
			p.open(fmt.Sprintf("%s %s:", kw, p.exprStr(branch.Cond)), branch.Block)
		}
		if st.Else != nil {
			p.open("else:", st.Else)
		}

	case *ast.ForStmt:
		p.open(fmt.Sprintf("for %s in %s:",
			strings.Join(st.Vars, ", "), p.exprStr(st.Iterable)), st.Block)

	case *ast.WhileStmt:
		p.open(fmt.Sprintf("while %s:", p.exprStr(st.Cond)), st.Block)

	case *ast.FunctionDecl:
		ret := ""
		if st.ReturnType != "" {
			ret = " -> " + st.ReturnType
		}
		p.open(fmt.Sprintf("function %s(%s)%s:",
			st.Name, p.params(st.Params), ret), st.Block)

	case *ast.StepBlock:
		p.open(fmt.Sprintf("step %s:", quoteString(st.Label)), st.Block)

	case *ast.ActionStmt:
		var parts []string
		parts = append(parts, st.Verb)
		for _, arg := range st.Args {
			parts = append(parts, p.exprStr(arg))
		}
		for _, kw := range st.Order {
			parts = append(parts, kw, p.exprStr(st.Clauses[kw]))
		}
		p.line("%s", strings.Join(parts, " "))

	case *ast.ReturnStmt:
		if st.Value == nil {
			p.line("return")
		} else {
			p.line("return %s", p.exprStr(st.Value))
		}

	case *ast.ImportStmt:
		if st.Alias != "" {
			p.line("import %s as %s", quoteString(st.Path), st.Alias)
		} else {
			p.line("import %s from %s", strings.Join(st.Names, ", "), quoteString(st.Path))
		}

	case *ast.ExprStmt:
		p.line("%s", p.exprStr(st.X))
	}
}

func annotation(typ string) string {
	if typ == "" {
		return ""
	}
	return ": " + typ
}

func (p *printer) params(params []ast.Param) string {
	parts := make([]string, len(params))
	for i, param := range params {
		s := param.Name + annotation(param.Type)
		if param.Default != nil {
			s += " = " + p.exprStr(param.Default)
		}
		parts[i] = s
	}
	return strings.Join(parts, ", ")
}

// ---------------------------------------------------------------------------
// Expressions

// Binding strengths, loosest first. An operand prints parenthesized when its
// own strength is too weak for the position it appears in.
const (
	precOr = iota + 1
	precAnd
	precEquality
	precRelational
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
)

func opPrec(op token.Type) int {
	switch op {
	case token.OR:
		return precOr
	case token.AND:
		return precAnd
	case token.EQ, token.NEQ:
		return precEquality
	case token.LT, token.LTE, token.GT, token.GTE:
		return precRelational
	case token.PLUS, token.MINUS:
		return precAdditive
	default: // STAR, SLASH, PERCENT
		return precMultiplicative
	}
}

func exprPrec(expr ast.Expr) int {
	switch e := expr.(type) {
	case *ast.BinaryOp:
		return opPrec(e.Op)
	case *ast.UnaryOp:
		return precUnary
	case *ast.Lambda:
		// A lambda body swallows everything to its right, so a lambda must be
		// parenthesized in any operator or postfix position.
		return 0
	default:
		return precPostfix
	}
}

func (p *printer) exprStr(expr ast.Expr) string {
	sub := &printer{}
	sub.expr(expr, 0)
	return sub.b.String()
}

// expr writes an expression that appears in a context requiring at least the
// given binding strength.
func (p *printer) expr(expr ast.Expr, min int) {
	if exprPrec(expr) < min {
		p.b.WriteByte('(')
		p.expr(expr, 0)
		p.b.WriteByte(')')
		return
	}

	switch e := expr.(type) {
	case *ast.Literal:
		p.literal(e)

	case *ast.Identifier:
		p.b.WriteString(e.Name)

	case *ast.BinaryOp:
		prec := opPrec(e.Op)
		// Left-associative: the right operand needs strictly tighter binding.
		p.expr(e.Left, prec)
		fmt.Fprintf(&p.b, " %s ", opText(e.Op))
		p.expr(e.Right, prec+1)

	case *ast.UnaryOp:
		if e.Op == token.NOT {
			p.b.WriteString("not ")
		} else {
			p.b.WriteString("-")
		}
		p.expr(e.Operand, precUnary)

	case *ast.Call:
		p.expr(e.Callee, precPostfix)
		p.b.WriteByte('(')
		for i, arg := range e.Args {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.expr(arg, 0)
		}
		p.b.WriteByte(')')

	case *ast.MemberAccess:
		p.expr(e.Object, precPostfix)
		p.b.WriteByte('.')
		p.b.WriteString(e.Name)

	case *ast.Index:
		p.expr(e.Object, precPostfix)
		p.b.WriteByte('[')
		p.expr(e.IndexEx, 0)
		p.b.WriteByte(']')

	case *ast.Lambda:
		fmt.Fprintf(&p.b, "fn(%s) => ", p.params(e.Params))
		p.expr(e.Body, 0)

	case *ast.InterpolatedString:
		p.b.WriteByte('"')
		for _, frag := range e.Fragments {
			if frag.Expr == nil {
				p.b.WriteString(escapeString(frag.Text))
				continue
			}
			p.b.WriteByte('{')
			p.expr(frag.Expr, 0)
			p.b.WriteByte('}')
		}
		p.b.WriteByte('"')

	case *ast.ListLiteral:
		p.b.WriteByte('[')
		for i, el := range e.Elements {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.expr(el, 0)
		}
		p.b.WriteByte(']')

	case *ast.DictLiteral:
		p.b.WriteByte('{')
		for i, entry := range e.Entries {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.expr(entry.Key, 0)
			p.b.WriteString(": ")
			p.expr(entry.Value, 0)
		}
		p.b.WriteByte('}')
	}
}

func (p *printer) literal(e *ast.Literal) {
	switch e.Kind {
	case ast.LitInt:
		p.b.WriteString(strconv.FormatInt(e.Int, 10))
	case ast.LitFloat:
		p.b.WriteString(formatFloat(e.Float))
	case ast.LitString:
		p.b.WriteString(quoteString(e.Str))
	case ast.LitBool:
		p.b.WriteString(strconv.FormatBool(e.Bool))
	default:
		p.b.WriteString("none")
	}
}

// formatFloat keeps float literals relexable: plain decimal form, always with
// a fractional part.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func quoteString(s string) string {
	return `"` + escapeString(s) + `"`
}

// escapeString escapes for a Flowby string literal body, where braces open
// interpolations and so need escapes too.
func escapeString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '{':
			b.WriteString(`\{`)
		case '}':
			b.WriteString(`\}`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func opText(op token.Type) string {
	switch op {
	case token.OR:
		return "or"
	case token.AND:
		return "and"
	case token.EQ:
		return "=="
	case token.NEQ:
		return "!="
	case token.LT:
		return "<"
	case token.LTE:
		return "<="
	case token.GT:
		return ">"
	case token.GTE:
		return ">="
	case token.PLUS:
		return "+"
	case token.MINUS:
		return "-"
	case token.STAR:
		return "*"
	case token.SLASH:
		return "/"
	default:
		return "%"
	}
}
