package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowby-lang/flowby/ast"
	"github.com/flowby-lang/flowby/lexer"
	"github.com/flowby-lang/flowby/token"
)

// parseOK parses source and fails the test on any lex or parse error.
func parseOK(t *testing.T, source string) *ast.Program {
	t.Helper()
	toks, lexErrs := lexer.Tokenize(source)
	require.Empty(t, lexErrs, "unexpected lex errors")
	prog, errs := Parse(toks)
	require.Empty(t, errs, "unexpected parse errors")
	return prog
}

func parseErrs(t *testing.T, source string) (*ast.Program, []Error) {
	t.Helper()
	toks, lexErrs := lexer.Tokenize(source)
	require.Empty(t, lexErrs, "unexpected lex errors")
	return Parse(toks)
}

func TestDeclarations(t *testing.T) {
	prog := parseOK(t, "let x = 1\nconst y: Int = 2\n")
	require.Len(t, prog.Stmts, 2)

	let, ok := prog.Stmts[0].(*ast.LetDecl)
	require.True(t, ok)
	assert.Equal(t, "x", let.Name)
	assert.Equal(t, "", let.Type)

	cons, ok := prog.Stmts[1].(*ast.ConstDecl)
	require.True(t, ok)
	assert.Equal(t, "y", cons.Name)
	assert.Equal(t, "Int", cons.Type)
}

func TestActionStatementShape(t *testing.T) {
	prog := parseOK(t, "type \"a@b.com\" into \"#email\"\n")
	require.Len(t, prog.Stmts, 1)

	act, ok := prog.Stmts[0].(*ast.ActionStmt)
	require.True(t, ok)
	assert.Equal(t, "type", act.Verb)

	require.Len(t, act.Args, 1)
	arg, ok := act.Args[0].(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, "a@b.com", arg.Str)

	require.Contains(t, act.Clauses, "into")
	sel, ok := act.Clauses["into"].(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, "#email", sel.Str)
	assert.Equal(t, []string{"into"}, act.Order)
}

func TestActionClauseKeywordsThatAreLanguageKeywords(t *testing.T) {
	tests := []struct {
		src    string
		verb   string
		clause string
	}{
		{"select \"opt\" from \"#menu\"\n", "select", "from"},
		{"press \"Enter\" in \"#box\"\n", "press", "in"},
		{"wait 2 for \"#spinner\"\n", "wait", "for"},
		{"screenshot as \"result.png\"\n", "screenshot", "as"},
	}
	for _, tt := range tests {
		t.Run(tt.verb, func(t *testing.T) {
			prog := parseOK(t, tt.src)
			act, ok := prog.Stmts[0].(*ast.ActionStmt)
			require.True(t, ok)
			assert.Equal(t, tt.verb, act.Verb)
			assert.Contains(t, act.Clauses, tt.clause)
		})
	}
}

func TestActionMissingRequiredClause(t *testing.T) {
	_, errs := parseErrs(t, "navigate\n")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, `requires a "to" clause`)
}

func TestActionUnknownClauseSuggestion(t *testing.T) {
	_, errs := parseErrs(t, "type \"x\" int \"#y\"\n")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, `does not take a "int" clause`)
	assert.Equal(t, "into", errs[0].Suggest)
}

func TestActionDuplicateClause(t *testing.T) {
	_, errs := parseErrs(t, "type \"x\" into \"#a\" into \"#b\"\n")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "duplicate")
}

func TestVerbShadowedAsValue(t *testing.T) {
	prog := parseOK(t, "type = 1\nclick(2)\n")
	require.Len(t, prog.Stmts, 2)

	_, ok := prog.Stmts[0].(*ast.Assignment)
	assert.True(t, ok, "verb before '=' parses as assignment")
	es, ok := prog.Stmts[1].(*ast.ExprStmt)
	require.True(t, ok)
	_, ok = es.X.(*ast.Call)
	assert.True(t, ok, "verb before '(' parses as a call")
}

func TestIfElseChain(t *testing.T) {
	src := "if a:\n" +
		"    x = 1\n" +
		"else if b:\n" +
		"    x = 2\n" +
		"else:\n" +
		"    x = 3\n"
	prog := parseOK(t, src)

	stmt, ok := prog.Stmts[0].(*ast.IfStmt)
	require.True(t, ok)
	assert.Len(t, stmt.Branches, 2)
	require.Len(t, stmt.Else, 1)
}

func TestForLoopForms(t *testing.T) {
	prog := parseOK(t, "for x in items:\n    x\nfor i, v in items:\n    v\n")

	one, ok := prog.Stmts[0].(*ast.ForStmt)
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, one.Vars)

	two, ok := prog.Stmts[1].(*ast.ForStmt)
	require.True(t, ok)
	assert.Equal(t, []string{"i", "v"}, two.Vars)
}

func TestFunctionDeclaration(t *testing.T) {
	src := "function greet(name, greeting = \"hi\") -> Str:\n" +
		"    return greeting + name\n"
	prog := parseOK(t, src)

	fn, ok := prog.Stmts[0].(*ast.FunctionDecl)
	require.True(t, ok)
	assert.Equal(t, "greet", fn.Name)
	assert.Equal(t, "Str", fn.ReturnType)
	require.Len(t, fn.Params, 2)
	assert.Nil(t, fn.Params[0].Default)
	assert.NotNil(t, fn.Params[1].Default)
}

func TestRequiredParamAfterDefaulted(t *testing.T) {
	src := "function f(a = 1, b):\n" +
		"    return b\n"
	_, errs := parseErrs(t, src)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "follows a defaulted parameter")
}

func TestStepBlockParses(t *testing.T) {
	src := "step \"log in\":\n" +
		"    click \"#login\"\n"
	prog := parseOK(t, src)

	step, ok := prog.Stmts[0].(*ast.StepBlock)
	require.True(t, ok)
	assert.Equal(t, "log in", step.Label)
	assert.Len(t, step.Block, 1)
}

func TestImportForms(t *testing.T) {
	prog := parseOK(t, "import \"lib/auth\" as auth\nimport login, logout from \"lib/auth\"\n")

	alias, ok := prog.Stmts[0].(*ast.ImportStmt)
	require.True(t, ok)
	assert.Equal(t, "lib/auth", alias.Path)
	assert.Equal(t, "auth", alias.Alias)

	named, ok := prog.Stmts[1].(*ast.ImportStmt)
	require.True(t, ok)
	assert.Equal(t, []string{"login", "logout"}, named.Names)
	assert.Equal(t, "", named.Alias)
}

func TestPrecedence(t *testing.T) {
	prog := parseOK(t, "x = 1 + 2 * 3 == 7 and not y\n")

	asn := prog.Stmts[0].(*ast.Assignment)
	and, ok := asn.Value.(*ast.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, token.AND, and.Op)

	eq, ok := and.Left.(*ast.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, token.EQ, eq.Op)

	add, ok := eq.Left.(*ast.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, token.PLUS, add.Op)

	mul, ok := add.Right.(*ast.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, token.STAR, mul.Op)

	not, ok := and.Right.(*ast.UnaryOp)
	require.True(t, ok)
	assert.Equal(t, token.NOT, not.Op)
}

func TestPostfixChain(t *testing.T) {
	prog := parseOK(t, "x = a.b[0](1)\n")

	asn := prog.Stmts[0].(*ast.Assignment)
	call, ok := asn.Value.(*ast.Call)
	require.True(t, ok)
	idx, ok := call.Callee.(*ast.Index)
	require.True(t, ok)
	_, ok = idx.Object.(*ast.MemberAccess)
	assert.True(t, ok)
}

func TestLambda(t *testing.T) {
	prog := parseOK(t, "let double = fn(x) => x * 2\n")

	let := prog.Stmts[0].(*ast.LetDecl)
	lam, ok := let.Init.(*ast.Lambda)
	require.True(t, ok)
	require.Len(t, lam.Params, 1)
	_, ok = lam.Body.(*ast.BinaryOp)
	assert.True(t, ok)
}

func TestListAndDictLiterals(t *testing.T) {
	prog := parseOK(t, "let a = [1, 2, 3]\nlet b = {\"k\": 1, \"j\": 2}\n")

	la := prog.Stmts[0].(*ast.LetDecl)
	list, ok := la.Init.(*ast.ListLiteral)
	require.True(t, ok)
	assert.Len(t, list.Elements, 3)

	lb := prog.Stmts[1].(*ast.LetDecl)
	dict, ok := lb.Init.(*ast.DictLiteral)
	require.True(t, ok)
	assert.Len(t, dict.Entries, 2)
}

func TestInterpolatedStringExpr(t *testing.T) {
	prog := parseOK(t, "let msg = \"hi {name}, you have {2 + n} items\"\n")

	let := prog.Stmts[0].(*ast.LetDecl)
	str, ok := let.Init.(*ast.InterpolatedString)
	require.True(t, ok)
	require.Len(t, str.Fragments, 5)

	assert.Equal(t, "hi ", str.Fragments[0].Text)
	_, ok = str.Fragments[1].Expr.(*ast.Identifier)
	assert.True(t, ok)
	assert.Equal(t, ", you have ", str.Fragments[2].Text)
	_, ok = str.Fragments[3].Expr.(*ast.BinaryOp)
	assert.True(t, ok)
	assert.Equal(t, " items", str.Fragments[4].Text)
}

func TestBatchErrorRecovery(t *testing.T) {
	src := "let = 1\n" +
		"x = 2\n" +
		"let y 3\n" +
		"z = 4\n" +
		"if :\n" +
		"ok = 5\n"
	prog, errs := parseErrs(t, src)

	// Three broken statements, three errors; the good ones still parse.
	assert.GreaterOrEqual(t, len(errs), 3)
	good := 0
	for _, stmt := range prog.Stmts {
		if _, ok := stmt.(*ast.Assignment); ok {
			good++
		}
	}
	assert.GreaterOrEqual(t, good, 2)
}

func TestRecoverySkipsNestedBlocks(t *testing.T) {
	src := "function f(:\n" +
		"    a\n" +
		"    b\n" +
		"x = 1\n"
	prog, errs := parseErrs(t, src)

	require.NotEmpty(t, errs)
	require.NotEmpty(t, prog.Stmts)
	_, ok := prog.Stmts[len(prog.Stmts)-1].(*ast.Assignment)
	assert.True(t, ok, "recovery resumes at the statement after the broken block")
}

func TestErrorMentionsExpectedAndFound(t *testing.T) {
	_, errs := parseErrs(t, "let 1 = 2\n")
	require.NotEmpty(t, errs)
	msg := errs[0].Error()
	assert.Contains(t, msg, "expected")
	assert.Contains(t, msg, "found")
}
