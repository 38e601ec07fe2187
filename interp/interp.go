package interp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/flowby-lang/flowby/action"
	"github.com/flowby-lang/flowby/ast"
	"github.com/flowby-lang/flowby/resolver"
	"github.com/flowby-lang/flowby/token"
)

// maxCallDepth bounds recursion so a runaway script fails with a runtime
// error instead of exhausting the goroutine stack.
const maxCallDepth = 5000

// ModuleResolver supplies parsed programs for import paths. The interpreter
// never touches a filesystem itself.
type ModuleResolver interface {
	Resolve(path, fromPath string) (*ast.Program, error)
}

// Option configures an Interp.
type Option func(*Interp)

// WithExecutor sets the action executor. Without one, any ActionStmt fails.
func WithExecutor(exec action.Executor) Option {
	return func(in *Interp) { in.exec = exec }
}

// WithModules sets the module resolver used by import statements.
func WithModules(mods ModuleResolver) Option {
	return func(in *Interp) { in.mods = mods }
}

// WithStdout redirects the print builtin.
func WithStdout(w io.Writer) Option {
	return func(in *Interp) { in.stdout = w }
}

// Interp executes one resolved program at a time. Each script run owns its
// own environment stack; a single Interp must not run scripts concurrently.
type Interp struct {
	exec   action.Executor
	mods   ModuleResolver
	stdout io.Writer

	builtins *Env // ambient scope holding the builtins
	globals  *Env // script top-level scope, child of builtins

	ctx     context.Context
	stack   []Frame
	curPath string
	loading map[string]bool // import cycle guard, keyed by module path

	logger *slog.Logger
}

// New creates an interpreter with a fresh global environment.
func New(opts ...Option) *Interp {
	level := slog.LevelInfo
	if os.Getenv("FLOWBY_DEBUG_EVAL") != "" {
		level = slog.LevelDebug
	}
	in := &Interp{
		stdout:  os.Stdout,
		loading: map[string]bool{},
		logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})),
	}
	for _, opt := range opts {
		opt(in)
	}
	in.builtins = NewEnv(nil)
	installBuiltins(in.builtins)
	in.globals = in.builtins.Child()
	return in
}

// Globals exposes the script's top-level environment, mainly for tests and
// embedding hosts.
func (in *Interp) Globals() *Env { return in.globals }

// Run executes a program that has already passed the resolver. The returned
// error, if any, is a *RuntimeError or *ActionError carrying the active call
// stack; execution stops at the first runtime failure.
func (in *Interp) Run(ctx context.Context, prog *ast.Program) error {
	in.ctx = ctx
	in.curPath = prog.Path
	in.stack = in.stack[:0]
	err := in.execBlock(prog.Stmts, in.globals)
	if _, ok := err.(returnSignal); ok {
		// The resolver rejects top-level returns already.
		return &RuntimeError{Kind: TypeMismatch, Message: "return outside of a function"}
	}
	return err
}

func (in *Interp) runtimeErr(kind ErrKind, pos token.Position, format string, args ...any) error {
	return &RuntimeError{
		Kind:    kind,
		Pos:     pos,
		Message: fmt.Sprintf(format, args...),
		Stack:   append([]Frame(nil), in.stack...),
	}
}

// ---------------------------------------------------------------------------
// Statements

func (in *Interp) execBlock(stmts []ast.Stmt, env *Env) error {
	for _, stmt := range stmts {
		if err := in.execStmt(stmt, env); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interp) execStmt(stmt ast.Stmt, env *Env) error {
	switch st := stmt.(type) {
	case *ast.LetDecl:
		v, err := in.eval(st.Init, env)
		if err != nil {
			return err
		}
		env.Declare(st.Name, v)
		return nil

	case *ast.ConstDecl:
		v, err := in.eval(st.Init, env)
		if err != nil {
			return err
		}
		env.Declare(st.Name, v)
		return nil

	case *ast.Assignment:
		v, err := in.eval(st.Value, env)
		if err != nil {
			return err
		}
		return in.assign(st.Target, v, env)

	case *ast.IfStmt:
		for _, branch := range st.Branches {
			cond, err := in.eval(branch.Cond, env)
			if err != nil {
				return err
			}
			if cond.Truthy() {
				return in.execBlock(branch.Block, env.Child())
			}
		}
		if st.Else != nil {
			return in.execBlock(st.Else, env.Child())
		}
		return nil

	case *ast.ForStmt:
		return in.execFor(st, env)

	case *ast.WhileStmt:
		for {
			cond, err := in.eval(st.Cond, env)
			if err != nil {
				return err
			}
			if !cond.Truthy() {
				return nil
			}
			// Fresh environment per iteration so closures created in the
			// body capture this iteration's bindings
			if err := in.execBlock(st.Block, env.Child()); err != nil {
				return err
			}
		}

	case *ast.FunctionDecl:
		env.Declare(st.Name, &Function{
			Name:   st.Name,
			Params: st.Params,
			Body:   st.Block,
			Env:    env,
			Pos:    st.Position,
		})
		return nil

	case *ast.StepBlock:
		// Descriptive grouping only: same environment, declarations leak out
		in.logger.Debug("[EVAL] step", "label", st.Label, "line", st.Position.Line)
		return in.execBlock(st.Block, env)

	case *ast.ActionStmt:
		return in.execAction(st, env)

	case *ast.ReturnStmt:
		var v Value = None{}
		if st.Value != nil {
			var err error
			v, err = in.eval(st.Value, env)
			if err != nil {
				return err
			}
		}
		return returnSignal{value: v}

	case *ast.ImportStmt:
		return in.execImport(st, env)

	case *ast.ExprStmt:
		_, err := in.eval(st.X, env)
		return err

	default:
		return in.runtimeErr(TypeMismatch, stmt.Pos(), "unsupported statement %T", stmt)
	}
}

func (in *Interp) execFor(st *ast.ForStmt, env *Env) error {
	iter, err := in.eval(st.Iterable, env)
	if err != nil {
		return err
	}

	// bind runs one iteration in its own environment. Per-iteration frames
	// are what make closures over loop variables capture the right value.
	bind := func(vals ...Value) error {
		iterEnv := env.Child()
		for i, name := range st.Vars {
			iterEnv.Declare(name, vals[i])
		}
		return in.execBlock(st.Block, iterEnv)
	}

	two := len(st.Vars) == 2
	switch it := iter.(type) {
	case *List:
		for i, item := range it.Items {
			var err error
			if two {
				err = bind(Int(i), item)
			} else {
				err = bind(item)
			}
			if err != nil {
				return err
			}
		}
		return nil

	case *Dict:
		for _, key := range it.Keys() {
			value, _ := it.Get(key)
			var err error
			if two {
				err = bind(Str(key), value)
			} else {
				err = bind(Str(key))
			}
			if err != nil {
				return err
			}
		}
		return nil

	case Str:
		for i, r := range string(it) {
			var err error
			if two {
				err = bind(Int(i), Str(string(r)))
			} else {
				err = bind(Str(string(r)))
			}
			if err != nil {
				return err
			}
		}
		return nil

	default:
		return in.runtimeErr(NotIterable, st.Iterable.Pos(),
			"cannot iterate over %s", iter.Kind())
	}
}

func (in *Interp) execAction(st *ast.ActionStmt, env *Env) error {
	act := action.Action{
		Verb:    st.Verb,
		Clauses: map[string]any{},
		Loc:     st.Position,
	}
	for _, argExpr := range st.Args {
		v, err := in.eval(argExpr, env)
		if err != nil {
			return err
		}
		act.Args = append(act.Args, Export(v))
	}
	for _, kw := range st.Order {
		v, err := in.eval(st.Clauses[kw], env)
		if err != nil {
			return err
		}
		act.Clauses[kw] = Export(v)
	}

	if in.exec == nil {
		return in.runtimeErr(TypeMismatch, st.Position,
			"no action executor configured for verb %q", st.Verb)
	}

	in.logger.Debug("[EVAL] action", "verb", st.Verb, "line", st.Position.Line)
	res := in.exec.Perform(in.ctx, act)
	if res.Failure != nil {
		return &ActionError{
			Action:  act,
			Kind:    res.Failure.Kind,
			Message: res.Failure.Message,
			Pos:     st.Position,
			Stack:   append([]Frame(nil), in.stack...),
		}
	}
	return nil
}

func (in *Interp) execImport(st *ast.ImportStmt, env *Env) error {
	if in.mods == nil {
		return in.runtimeErr(ImportFailed, st.Position,
			"no module resolver configured for import %q", st.Path)
	}
	prog, err := in.mods.Resolve(st.Path, in.curPath)
	if err != nil {
		return in.runtimeErr(ImportFailed, st.Position, "cannot import %q: %v", st.Path, err)
	}

	key := prog.Path
	if key == "" {
		key = st.Path
	}
	if in.loading[key] {
		return in.runtimeErr(ImportFailed, st.Position, "import cycle through %q", st.Path)
	}

	if errs := resolver.Resolve(prog, resolver.WithGlobals(BuiltinNames())); len(errs) > 0 {
		return in.runtimeErr(ImportFailed, st.Position,
			"module %q has %d static error(s), first: %v", st.Path, len(errs), errs[0])
	}

	// Modules run in their own top-level environment; the importer only
	// receives the bound names, never shared mutable scope.
	moduleEnv := in.builtins.Child()
	savedPath := in.curPath
	in.curPath = prog.Path
	in.loading[key] = true
	in.stack = append(in.stack, Frame{Function: fmt.Sprintf("module %q", st.Path), Pos: st.Position})

	runErr := in.execBlock(prog.Stmts, moduleEnv)

	in.stack = in.stack[:len(in.stack)-1]
	delete(in.loading, key)
	in.curPath = savedPath
	if runErr != nil {
		return runErr
	}

	if st.Alias != "" {
		ns := NewDict()
		names := moduleEnv.Names()
		sort.Strings(names)
		for _, name := range names {
			v, _ := moduleEnv.Get(name)
			ns.Set(name, v)
		}
		env.Declare(st.Alias, ns)
		return nil
	}
	for _, name := range st.Names {
		v, ok := moduleEnv.Get(name)
		if !ok {
			return in.runtimeErr(ImportFailed, st.Position,
				"module %q does not define %q", st.Path, name)
		}
		env.Declare(name, v)
	}
	return nil
}

func (in *Interp) assign(target ast.Expr, v Value, env *Env) error {
	switch t := target.(type) {
	case *ast.Identifier:
		if !env.Assign(t.Name, v) {
			return in.runtimeErr(Undefined, t.Position, "assignment to undeclared name %q", t.Name)
		}
		return nil

	case *ast.MemberAccess:
		obj, err := in.eval(t.Object, env)
		if err != nil {
			return err
		}
		dict, ok := obj.(*Dict)
		if !ok {
			return in.runtimeErr(TypeMismatch, t.Position,
				"cannot assign member %q on %s", t.Name, obj.Kind())
		}
		dict.Set(t.Name, v)
		return nil

	case *ast.Index:
		obj, err := in.eval(t.Object, env)
		if err != nil {
			return err
		}
		idx, err := in.eval(t.IndexEx, env)
		if err != nil {
			return err
		}
		switch o := obj.(type) {
		case *List:
			i, err := in.listIndex(o, idx, t.Position)
			if err != nil {
				return err
			}
			o.Items[i] = v
			return nil
		case *Dict:
			key, ok := idx.(Str)
			if !ok {
				return in.runtimeErr(TypeMismatch, t.Position,
					"dict keys must be strings, got %s", idx.Kind())
			}
			o.Set(string(key), v)
			return nil
		default:
			return in.runtimeErr(TypeMismatch, t.Position, "cannot index into %s", obj.Kind())
		}

	default:
		return in.runtimeErr(TypeMismatch, target.Pos(), "invalid assignment target")
	}
}

// ---------------------------------------------------------------------------
// Expressions

func (in *Interp) eval(expr ast.Expr, env *Env) (Value, error) {
	switch e := expr.(type) {
	case *ast.Literal:
		switch e.Kind {
		case ast.LitInt:
			return Int(e.Int), nil
		case ast.LitFloat:
			return Float(e.Float), nil
		case ast.LitString:
			return Str(e.Str), nil
		case ast.LitBool:
			return Bool(e.Bool), nil
		default:
			return None{}, nil
		}

	case *ast.Identifier:
		v, ok := env.Get(e.Name)
		if !ok {
			return nil, in.runtimeErr(Undefined, e.Position, "undefined name %q", e.Name)
		}
		return v, nil

	case *ast.BinaryOp:
		return in.evalBinary(e, env)

	case *ast.UnaryOp:
		return in.evalUnary(e, env)

	case *ast.Call:
		callee, err := in.eval(e.Callee, env)
		if err != nil {
			return nil, err
		}
		args := make([]Value, 0, len(e.Args))
		for _, argExpr := range e.Args {
			v, err := in.eval(argExpr, env)
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}
		return in.call(callee, args, e.Position)

	case *ast.MemberAccess:
		obj, err := in.eval(e.Object, env)
		if err != nil {
			return nil, err
		}
		dict, ok := obj.(*Dict)
		if !ok {
			return nil, in.runtimeErr(TypeMismatch, e.Position,
				"%s has no member %q", obj.Kind(), e.Name)
		}
		v, ok := dict.Get(e.Name)
		if !ok {
			return nil, in.runtimeErr(KeyNotFound, e.Position, "no key %q", e.Name)
		}
		return v, nil

	case *ast.Index:
		return in.evalIndex(e, env)

	case *ast.Lambda:
		return &Function{
			Params:   e.Params,
			BodyExpr: e.Body,
			Env:      env,
			Pos:      e.Position,
		}, nil

	case *ast.InterpolatedString:
		var b strings.Builder
		for _, frag := range e.Fragments {
			if frag.Expr == nil {
				b.WriteString(frag.Text)
				continue
			}
			v, err := in.eval(frag.Expr, env)
			if err != nil {
				return nil, err
			}
			b.WriteString(v.Display())
		}
		return Str(b.String()), nil

	case *ast.ListLiteral:
		list := &List{Items: make([]Value, 0, len(e.Elements))}
		for _, el := range e.Elements {
			v, err := in.eval(el, env)
			if err != nil {
				return nil, err
			}
			list.Items = append(list.Items, v)
		}
		return list, nil

	case *ast.DictLiteral:
		dict := NewDict()
		for _, entry := range e.Entries {
			key, err := in.eval(entry.Key, env)
			if err != nil {
				return nil, err
			}
			ks, ok := key.(Str)
			if !ok {
				return nil, in.runtimeErr(TypeMismatch, entry.Key.Pos(),
					"dict keys must be strings, got %s", key.Kind())
			}
			value, err := in.eval(entry.Value, env)
			if err != nil {
				return nil, err
			}
			dict.Set(string(ks), value)
		}
		return dict, nil

	default:
		return nil, in.runtimeErr(TypeMismatch, expr.Pos(), "unsupported expression %T", expr)
	}
}

// call invokes a function or builtin. Positional arguments bind first, then
// defaults fill omitted optionals; a missing required argument or a surplus
// argument is an arity mismatch.
func (in *Interp) call(callee Value, args []Value, pos token.Position) (Value, error) {
	switch fn := callee.(type) {
	case *Builtin:
		return fn.Fn(in, pos, args)

	case *Function:
		name := fn.Name
		if name == "" {
			name = "<lambda>"
		}
		if len(args) > len(fn.Params) {
			return nil, in.runtimeErr(ArityMismatch, pos,
				"%s takes %d argument(s), got %d", name, len(fn.Params), len(args))
		}
		if len(in.stack) >= maxCallDepth {
			return nil, in.runtimeErr(ArityMismatch, pos, "call stack exhausted calling %s", name)
		}

		// The call environment's parent is the closure environment captured
		// at definition time, not the caller's environment.
		callEnv := fn.Env.Child()
		for i, param := range fn.Params {
			switch {
			case i < len(args):
				callEnv.Declare(param.Name, args[i])
			case param.Default != nil:
				def, err := in.eval(param.Default, fn.Env)
				if err != nil {
					return nil, err
				}
				callEnv.Declare(param.Name, def)
			default:
				return nil, in.runtimeErr(ArityMismatch, pos,
					"%s missing required argument %q", name, param.Name)
			}
		}

		in.stack = append(in.stack, Frame{Function: name, Pos: pos})
		defer func() { in.stack = in.stack[:len(in.stack)-1] }()

		if fn.BodyExpr != nil {
			return in.eval(fn.BodyExpr, callEnv)
		}
		err := in.execBlock(fn.Body, callEnv)
		if sig, ok := err.(returnSignal); ok {
			return sig.value, nil
		}
		if err != nil {
			return nil, err
		}
		return None{}, nil

	default:
		return nil, in.runtimeErr(NotCallable, pos, "%s is not callable", callee.Kind())
	}
}

func (in *Interp) evalIndex(e *ast.Index, env *Env) (Value, error) {
	obj, err := in.eval(e.Object, env)
	if err != nil {
		return nil, err
	}
	idx, err := in.eval(e.IndexEx, env)
	if err != nil {
		return nil, err
	}

	switch o := obj.(type) {
	case *List:
		i, err := in.listIndex(o, idx, e.Position)
		if err != nil {
			return nil, err
		}
		return o.Items[i], nil

	case Str:
		iv, ok := idx.(Int)
		if !ok {
			return nil, in.runtimeErr(TypeMismatch, e.Position,
				"string index must be an integer, got %s", idx.Kind())
		}
		runes := []rune(string(o))
		i := int(iv)
		if i < 0 {
			i += len(runes)
		}
		if i < 0 || i >= len(runes) {
			return nil, in.runtimeErr(IndexOutOfRange, e.Position,
				"string index %d out of range for length %d", int(iv), len(runes))
		}
		return Str(string(runes[i])), nil

	case *Dict:
		key, ok := idx.(Str)
		if !ok {
			return nil, in.runtimeErr(TypeMismatch, e.Position,
				"dict keys must be strings, got %s", idx.Kind())
		}
		v, found := o.Get(string(key))
		if !found {
			return nil, in.runtimeErr(KeyNotFound, e.Position, "no key %q", string(key))
		}
		return v, nil

	default:
		return nil, in.runtimeErr(TypeMismatch, e.Position, "cannot index into %s", obj.Kind())
	}
}

func (in *Interp) listIndex(l *List, idx Value, pos token.Position) (int, error) {
	iv, ok := idx.(Int)
	if !ok {
		return 0, in.runtimeErr(TypeMismatch, pos,
			"list index must be an integer, got %s", idx.Kind())
	}
	i := int(iv)
	if i < 0 {
		i += len(l.Items)
	}
	if i < 0 || i >= len(l.Items) {
		return 0, in.runtimeErr(IndexOutOfRange, pos,
			"list index %d out of range for length %d", int(iv), len(l.Items))
	}
	return i, nil
}

func (in *Interp) evalUnary(e *ast.UnaryOp, env *Env) (Value, error) {
	operand, err := in.eval(e.Operand, env)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case token.NOT:
		return Bool(!operand.Truthy()), nil
	case token.MINUS:
		switch v := operand.(type) {
		case Int:
			return -v, nil
		case Float:
			return -v, nil
		default:
			return nil, in.runtimeErr(TypeMismatch, e.Position, "cannot negate %s", operand.Kind())
		}
	default:
		return nil, in.runtimeErr(TypeMismatch, e.Position, "unsupported unary operator %s", e.Op)
	}
}

func (in *Interp) evalBinary(e *ast.BinaryOp, env *Env) (Value, error) {
	// and/or short-circuit and yield the deciding operand
	if e.Op == token.AND || e.Op == token.OR {
		left, err := in.eval(e.Left, env)
		if err != nil {
			return nil, err
		}
		if e.Op == token.AND && !left.Truthy() {
			return left, nil
		}
		if e.Op == token.OR && left.Truthy() {
			return left, nil
		}
		return in.eval(e.Right, env)
	}

	left, err := in.eval(e.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := in.eval(e.Right, env)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case token.EQ:
		return Bool(Equals(left, right)), nil
	case token.NEQ:
		return Bool(!Equals(left, right)), nil
	case token.PLUS:
		return in.evalAdd(left, right, e.Position)
	case token.MINUS, token.STAR, token.SLASH, token.PERCENT:
		return in.evalArith(e.Op, left, right, e.Position)
	case token.LT, token.LTE, token.GT, token.GTE:
		return in.evalCompare(e.Op, left, right, e.Position)
	default:
		return nil, in.runtimeErr(TypeMismatch, e.Position, "unsupported operator %s", e.Op)
	}
}

func (in *Interp) evalAdd(left, right Value, pos token.Position) (Value, error) {
	switch l := left.(type) {
	case Int:
		switch r := right.(type) {
		case Int:
			return l + r, nil
		case Float:
			return Float(l) + r, nil
		}
	case Float:
		switch r := right.(type) {
		case Int:
			return l + Float(r), nil
		case Float:
			return l + r, nil
		}
	case Str:
		if r, ok := right.(Str); ok {
			return l + r, nil
		}
	case *List:
		if r, ok := right.(*List); ok {
			items := make([]Value, 0, len(l.Items)+len(r.Items))
			items = append(items, l.Items...)
			items = append(items, r.Items...)
			return &List{Items: items}, nil
		}
	}
	return nil, in.runtimeErr(TypeMismatch, pos,
		"cannot add %s and %s", left.Kind(), right.Kind())
}

func (in *Interp) evalArith(op token.Type, left, right Value, pos token.Position) (Value, error) {
	li, lIsInt := left.(Int)
	ri, rIsInt := right.(Int)
	if lIsInt && rIsInt {
		switch op {
		case token.MINUS:
			return li - ri, nil
		case token.STAR:
			return li * ri, nil
		case token.SLASH:
			if ri == 0 {
				return nil, in.runtimeErr(DivisionByZero, pos, "integer division by zero")
			}
			return li / ri, nil
		case token.PERCENT:
			if ri == 0 {
				return nil, in.runtimeErr(DivisionByZero, pos, "modulo by zero")
			}
			return li % ri, nil
		}
	}

	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if !lok || !rok {
		return nil, in.runtimeErr(TypeMismatch, pos,
			"cannot apply %s to %s and %s", op, left.Kind(), right.Kind())
	}
	switch op {
	case token.MINUS:
		return Float(lf - rf), nil
	case token.STAR:
		return Float(lf * rf), nil
	case token.SLASH:
		if rf == 0 {
			return nil, in.runtimeErr(DivisionByZero, pos, "division by zero")
		}
		return Float(lf / rf), nil
	case token.PERCENT:
		if rf == 0 {
			return nil, in.runtimeErr(DivisionByZero, pos, "modulo by zero")
		}
		return Float(math.Mod(lf, rf)), nil
	}
	return nil, in.runtimeErr(TypeMismatch, pos, "unsupported operator %s", op)
}

func (in *Interp) evalCompare(op token.Type, left, right Value, pos token.Position) (Value, error) {
	if lf, lok := toFloat(left); lok {
		if rf, rok := toFloat(right); rok {
			return orderResult(op, lf < rf, lf == rf), nil
		}
	}
	if ls, ok := left.(Str); ok {
		if rs, ok := right.(Str); ok {
			return orderResult(op, ls < rs, ls == rs), nil
		}
	}
	return nil, in.runtimeErr(TypeMismatch, pos,
		"cannot compare %s and %s", left.Kind(), right.Kind())
}

func orderResult(op token.Type, less, equal bool) Value {
	switch op {
	case token.LT:
		return Bool(less)
	case token.LTE:
		return Bool(less || equal)
	case token.GT:
		return Bool(!less && !equal)
	default: // GTE
		return Bool(!less)
	}
}

func toFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case Int:
		return float64(n), true
	case Float:
		return float64(n), true
	default:
		return 0, false
	}
}
