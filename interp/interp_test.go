package interp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowby-lang/flowby/action"
	"github.com/flowby-lang/flowby/ast"
	"github.com/flowby-lang/flowby/lexer"
	"github.com/flowby-lang/flowby/parser"
	"github.com/flowby-lang/flowby/resolver"
)

func compile(t *testing.T, source string) *ast.Program {
	t.Helper()
	toks, lexErrs := lexer.Tokenize(source)
	require.Empty(t, lexErrs)
	prog, parseErrs := parser.Parse(toks)
	require.Empty(t, parseErrs)
	resErrs := resolver.Resolve(prog, resolver.WithGlobals(BuiltinNames()))
	require.Empty(t, resErrs)
	return prog
}

// run executes source and returns the interpreter for state inspection.
func run(t *testing.T, source string, opts ...Option) (*Interp, error) {
	t.Helper()
	in := New(opts...)
	return in, in.Run(context.Background(), compile(t, source))
}

// runOK executes source and fails on any runtime error.
func runOK(t *testing.T, source string, opts ...Option) *Interp {
	t.Helper()
	in, err := run(t, source, opts...)
	require.NoError(t, err)
	return in
}

func global(t *testing.T, in *Interp, name string) Value {
	t.Helper()
	v, ok := in.Globals().Get(name)
	require.True(t, ok, "global %q not bound", name)
	return v
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want Value
	}{
		{"int add", "1 + 2", Int(3)},
		{"precedence", "1 + 2 * 3", Int(7)},
		{"int division truncates", "7 / 2", Int(3)},
		{"negative truncation", "-7 / 2", Int(-3)},
		{"modulo", "7 % 3", Int(1)},
		{"mixed promotes to float", "1 + 2.5", Float(3.5)},
		{"float division", "7.0 / 2", Float(3.5)},
		{"string concat", `"a" + "b"`, Str("ab")},
		{"unary minus", "-(2 + 3)", Int(-5)},
		{"list concat", "[1] + [2]", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := runOK(t, "let x = "+tt.expr+"\n")
			got := global(t, in, "x")
			if tt.want != nil {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestStringNumberAdditionIsTypeMismatch(t *testing.T) {
	_, err := run(t, `let x = "a" + 1`+"\n")
	var rt *RuntimeError
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, TypeMismatch, rt.Kind)
}

func TestDivisionByZero(t *testing.T) {
	_, err := run(t, "let x = 1 / 0\n")
	var rt *RuntimeError
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, DivisionByZero, rt.Kind)
	assert.Equal(t, 1, rt.Pos.Line)
}

func TestComparisons(t *testing.T) {
	src := "let a = 1 < 2\n" +
		"let b = 2 <= 2.0\n" +
		"let c = \"abc\" < \"abd\"\n" +
		"let d = 1 == 1.0\n" +
		"let e = \"1\" == 1\n"
	in := runOK(t, src)
	assert.Equal(t, Bool(true), global(t, in, "a"))
	assert.Equal(t, Bool(true), global(t, in, "b"))
	assert.Equal(t, Bool(true), global(t, in, "c"))
	assert.Equal(t, Bool(true), global(t, in, "d"))
	assert.Equal(t, Bool(false), global(t, in, "e"), "cross-type equality is false, not an error")
}

func TestShortCircuitYieldsOperand(t *testing.T) {
	src := "function boom():\n" +
		"    return 1 / 0\n" +
		"let a = none or \"fallback\"\n" +
		"let b = \"\" and boom()\n" +
		"let c = true and 42\n"
	in := runOK(t, src, WithStdout(&bytes.Buffer{}))
	assert.Equal(t, Str("fallback"), global(t, in, "a"))
	assert.Equal(t, Str(""), global(t, in, "b"), "right side never evaluated")
	assert.Equal(t, Int(42), global(t, in, "c"))
}

func TestTruthiness(t *testing.T) {
	src := "let hits = []\n" +
		"for v in [0, 1, \"\", \"x\"]:\n" +
		"    if v:\n" +
		"        append(hits, v)\n"
	in := runOK(t, src)
	hits := global(t, in, "hits").(*List)
	require.Len(t, hits.Items, 2)
	assert.Equal(t, Int(1), hits.Items[0])
	assert.Equal(t, Str("x"), hits.Items[1])
}

func TestWhileLoop(t *testing.T) {
	src := "let n = 0\n" +
		"while n < 5:\n" +
		"    n = n + 1\n"
	in := runOK(t, src)
	assert.Equal(t, Int(5), global(t, in, "n"))
}

func TestClosureCapturesPerIteration(t *testing.T) {
	src := "let fns = []\n" +
		"for n in [1, 2, 3]:\n" +
		"    append(fns, fn() => n)\n" +
		"let a = fns[0]()\n" +
		"let b = fns[1]()\n" +
		"let c = fns[2]()\n"
	in := runOK(t, src)

	assert.Equal(t, Int(1), global(t, in, "a"))
	assert.Equal(t, Int(2), global(t, in, "b"))
	assert.Equal(t, Int(3), global(t, in, "c"))
}

func TestClosureSharesDefiningEnvironment(t *testing.T) {
	src := "let count = 0\n" +
		"function bump():\n" +
		"    count = count + 1\n" +
		"bump()\n" +
		"bump()\n"
	in := runOK(t, src)
	assert.Equal(t, Int(2), global(t, in, "count"))
}

func TestFunctionDefaultsAndArity(t *testing.T) {
	src := "function greet(name, greeting = \"hi\"):\n" +
		"    return greeting + \" \" + name\n" +
		"let a = greet(\"ada\")\n" +
		"let b = greet(\"ada\", \"yo\")\n"
	in := runOK(t, src)
	assert.Equal(t, Str("hi ada"), global(t, in, "a"))
	assert.Equal(t, Str("yo ada"), global(t, in, "b"))
}

func TestArityMismatch(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing required", "function f(a):\n    return a\nlet x = f()\n"},
		{"too many", "function f(a):\n    return a\nlet x = f(1, 2)\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.src)
			var rt *RuntimeError
			require.ErrorAs(t, err, &rt)
			assert.Equal(t, ArityMismatch, rt.Kind)
		})
	}
}

func TestImplicitNoneReturn(t *testing.T) {
	src := "function noop():\n" +
		"    let x = 1\n" +
		"let r = noop()\n"
	in := runOK(t, src)
	assert.Equal(t, None{}, global(t, in, "r"))
}

func TestRecursion(t *testing.T) {
	src := "function fact(n):\n" +
		"    if n <= 1:\n" +
		"        return 1\n" +
		"    return n * fact(n - 1)\n" +
		"let x = fact(5)\n"
	in := runOK(t, src)
	assert.Equal(t, Int(120), global(t, in, "x"))
}

func TestRuntimeErrorCarriesCallStack(t *testing.T) {
	src := "function inner():\n" +
		"    return 1 / 0\n" +
		"function outer():\n" +
		"    return inner()\n" +
		"outer()\n"
	_, err := run(t, src)

	var rt *RuntimeError
	require.ErrorAs(t, err, &rt)
	require.Len(t, rt.Stack, 2)
	assert.Equal(t, "outer", rt.Stack[0].Function)
	assert.Equal(t, "inner", rt.Stack[1].Function)
	assert.Contains(t, rt.Error(), "in inner")
}

func TestIndexing(t *testing.T) {
	src := "let xs = [10, 20, 30]\n" +
		"let a = xs[0]\n" +
		"let b = xs[-1]\n" +
		"let d = {\"k\": 1}\n" +
		"let c = d[\"k\"]\n" +
		"let s = \"abc\"[1]\n"
	in := runOK(t, src)
	assert.Equal(t, Int(10), global(t, in, "a"))
	assert.Equal(t, Int(30), global(t, in, "b"))
	assert.Equal(t, Int(1), global(t, in, "c"))
	assert.Equal(t, Str("b"), global(t, in, "s"))
}

func TestIndexErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind ErrKind
	}{
		{"list out of range", "let x = [1][5]\n", IndexOutOfRange},
		{"missing key", "let x = {\"a\": 1}[\"b\"]\n", KeyNotFound},
		{"missing member", "let d = {\"a\": 1}\nlet x = d.b\n", KeyNotFound},
		{"index into int", "let x = 1[0]\n", TypeMismatch},
		{"call non-function", "let y = 3\nlet x = y()\n", NotCallable},
		{"iterate non-iterable", "for v in 42:\n    v\n", NotIterable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.src)
			var rt *RuntimeError
			require.ErrorAs(t, err, &rt)
			assert.Equal(t, tt.kind, rt.Kind)
		})
	}
}

func TestMutation(t *testing.T) {
	src := "let xs = [1, 2]\n" +
		"xs[0] = 9\n" +
		"let d = {\"a\": 1}\n" +
		"d.b = 2\n" +
		"d[\"c\"] = 3\n"
	in := runOK(t, src)

	xs := global(t, in, "xs").(*List)
	assert.Equal(t, Int(9), xs.Items[0])

	d := global(t, in, "d").(*Dict)
	assert.Equal(t, []string{"a", "b", "c"}, d.Keys())
}

func TestDictIterationOrder(t *testing.T) {
	src := "let d = {\"one\": 1, \"two\": 2, \"three\": 3}\n" +
		"let seen = []\n" +
		"for k, v in d:\n" +
		"    append(seen, k)\n"
	in := runOK(t, src)

	seen := global(t, in, "seen").(*List)
	assert.Equal(t, NewList(Str("one"), Str("two"), Str("three")), seen)
}

func TestStringInterpolationEvaluates(t *testing.T) {
	src := "let n = 2\n" +
		"let msg = \"have {n + 1} items\"\n"
	in := runOK(t, src)
	assert.Equal(t, Str("have 3 items"), global(t, in, "msg"))
}

func TestPrintGoesToConfiguredWriter(t *testing.T) {
	var out bytes.Buffer
	src := "print(\"a\", 1, [2])\n" +
		"print(none)\n"
	runOK(t, src, WithStdout(&out))
	assert.Equal(t, "a 1 [2]\nnone\n", out.String())
}

func TestBuiltins(t *testing.T) {
	src := "let a = len(\"abc\")\n" +
		"let b = str(42)\n" +
		"let c = int(\"17\")\n" +
		"let d = range(3)\n" +
		"let e = join(split(\"a,b\", \",\"), \"-\")\n" +
		"let f = contains([1, 2], 2)\n" +
		"let g = upper(trim(\"  hi  \"))\n" +
		"let h = keys({\"x\": 1})\n"
	in := runOK(t, src)

	assert.Equal(t, Int(3), global(t, in, "a"))
	assert.Equal(t, Str("42"), global(t, in, "b"))
	assert.Equal(t, Int(17), global(t, in, "c"))
	assert.Equal(t, NewList(Int(0), Int(1), Int(2)), global(t, in, "d"))
	assert.Equal(t, Str("a-b"), global(t, in, "e"))
	assert.Equal(t, Bool(true), global(t, in, "f"))
	assert.Equal(t, Str("HI"), global(t, in, "g"))
	assert.Equal(t, NewList(Str("x")), global(t, in, "h"))
}

func TestBuiltinConversionFailure(t *testing.T) {
	_, err := run(t, "let x = int(\"abc\")\n")
	var rt *RuntimeError
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, TypeMismatch, rt.Kind)
}

// ---------------------------------------------------------------------------
// Actions

func TestActionDispatch(t *testing.T) {
	rec := action.NewRecorder()
	src := "let user = \"a@b.com\"\n" +
		"navigate to \"https://example.com\"\n" +
		"type user into \"#email\"\n" +
		"click \"#submit\"\n"
	runOK(t, src, WithExecutor(rec))

	acts := rec.Performed()
	require.Len(t, acts, 3)

	assert.Equal(t, "navigate", acts[0].Verb)
	assert.Equal(t, map[string]any{"to": "https://example.com"}, acts[0].Clauses)

	assert.Equal(t, "type", acts[1].Verb)
	assert.Equal(t, []any{"a@b.com"}, acts[1].Args)
	assert.Equal(t, map[string]any{"into": "#email"}, acts[1].Clauses)

	assert.Equal(t, "click", acts[2].Verb)
	assert.Equal(t, 4, acts[2].Loc.Line)
}

func TestActionFailureAbortsRun(t *testing.T) {
	rec := action.NewRecorder()
	rec.Respond("click", action.Fail(action.Timeout, "element never appeared"))

	src := "function submit():\n" +
		"    click \"#go\"\n" +
		"navigate to \"https://example.com\"\n" +
		"submit()\n" +
		"click \"#never\"\n"
	_, err := run(t, src, WithExecutor(rec))

	var ae *ActionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, action.Timeout, ae.Kind)
	assert.Equal(t, "click", ae.Action.Verb)
	assert.Equal(t, 2, ae.Pos.Line, "failure points at the action statement")
	require.Len(t, ae.Stack, 1)
	assert.Equal(t, "submit", ae.Stack[0].Function)

	// The run stopped: the final click never executed.
	require.Len(t, rec.Performed(), 2)
}

func TestActionValuesAreExported(t *testing.T) {
	rec := action.NewRecorder()
	src := "wait 2 for \"#spinner\"\n"
	runOK(t, src, WithExecutor(rec))

	acts := rec.Performed()
	require.Len(t, acts, 1)
	assert.Equal(t, []any{int64(2)}, acts[0].Args)
}

func TestNoExecutorConfigured(t *testing.T) {
	_, err := run(t, "click \"#x\"\n")
	var rt *RuntimeError
	require.ErrorAs(t, err, &rt)
	assert.Contains(t, rt.Message, "no action executor")
}

// ---------------------------------------------------------------------------
// Imports

// memModules resolves imports from an in-memory map of path -> source.
type memModules map[string]string

func (m memModules) Resolve(path, fromPath string) (*ast.Program, error) {
	src, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("module %q not found", path)
	}
	toks, lexErrs := lexer.Tokenize(src)
	if len(lexErrs) > 0 {
		return nil, errors.New("lex errors in module")
	}
	prog, parseErrs := parser.Parse(toks)
	if len(parseErrs) > 0 {
		return nil, errors.New("parse errors in module")
	}
	prog.Path = path
	return prog, nil
}

func TestImportAliasBindsNamespace(t *testing.T) {
	mods := memModules{
		"lib/auth": "let user = \"ada\"\n" +
			"function login():\n" +
			"    return \"ok\"\n",
	}
	src := "import \"lib/auth\" as auth\n" +
		"let who = auth.user\n" +
		"let res = auth.login()\n"
	in := runOK(t, src, WithModules(mods))

	assert.Equal(t, Str("ada"), global(t, in, "who"))
	assert.Equal(t, Str("ok"), global(t, in, "res"))
}

func TestImportNamedBindings(t *testing.T) {
	mods := memModules{
		"lib/math": "function double(n):\n" +
			"    return n * 2\n" +
			"const factor = 3\n",
	}
	src := "import double, factor from \"lib/math\"\n" +
		"let x = double(factor)\n"
	in := runOK(t, src, WithModules(mods))
	assert.Equal(t, Int(6), global(t, in, "x"))
}

func TestImportMissingName(t *testing.T) {
	mods := memModules{"lib/m": "let a = 1\n"}
	_, err := run(t, "import b from \"lib/m\"\n", WithModules(mods))

	var rt *RuntimeError
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, ImportFailed, rt.Kind)
	assert.Contains(t, rt.Message, `does not define "b"`)
}

func TestImportCycle(t *testing.T) {
	mods := memModules{
		"a": "import \"b\" as b\n",
		"b": "import \"a\" as a\n",
	}
	_, err := run(t, "import \"a\" as a\n", WithModules(mods))

	var rt *RuntimeError
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, ImportFailed, rt.Kind)
	assert.Contains(t, rt.Message, "import cycle")
}

func TestImportWithStaticErrorsFails(t *testing.T) {
	mods := memModules{"bad": "let a = missing\n"}
	_, err := run(t, "import \"bad\" as bad\n", WithModules(mods))

	var rt *RuntimeError
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, ImportFailed, rt.Kind)
	assert.Contains(t, rt.Message, "static error")
}

func TestImportWithoutResolver(t *testing.T) {
	_, err := run(t, "import \"lib\" as lib\n")
	var rt *RuntimeError
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, ImportFailed, rt.Kind)
}

func TestModuleScopeIsIsolated(t *testing.T) {
	mods := memModules{"m": "let private = 1\n"}
	src := "import \"m\" as m\n" +
		"let x = m.private\n"
	in := runOK(t, src, WithModules(mods))

	assert.Equal(t, Int(1), global(t, in, "x"))
	_, ok := in.Globals().Get("private")
	assert.False(t, ok, "module names do not leak into the importer")
}

// ---------------------------------------------------------------------------
// Values

func TestEquals(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"ints", Int(1), Int(1), true},
		{"int float", Int(1), Float(1.0), true},
		{"cross type", Str("1"), Int(1), false},
		{"lists by value", NewList(Int(1)), NewList(Int(1)), true},
		{"none", None{}, None{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equals(tt.a, tt.b))
		})
	}
}

func TestExport(t *testing.T) {
	d := NewDict()
	d.Set("n", Int(1))
	d.Set("xs", NewList(Str("a"), Bool(true)))

	assert.Equal(t, map[string]any{
		"n":  int64(1),
		"xs": []any{"a", true},
	}, Export(d))
	assert.Nil(t, Export(None{}))
}
