// Package resolver is the static checker that runs between parsing and
// execution. It builds the lexical scope chain, verifies that every name is
// declared before use, rejects redeclarations and assignments to constants,
// and rejects return statements outside functions. All violations across the
// whole program are collected in one pass; execution never starts if any
// exist.
package resolver

import (
	"fmt"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/flowby-lang/flowby/ast"
	"github.com/flowby-lang/flowby/token"
)

// Error is a static scope or mutability violation.
type Error struct {
	Pos     token.Position
	Message string
	Suggest string // optional "did you mean" candidate
}

func (e Error) Error() string {
	if e.Suggest != "" {
		return fmt.Sprintf("%s: %s (did you mean %q?)", e.Pos, e.Message, e.Suggest)
	}
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

type binding struct {
	isConst bool
	pos     token.Position
}

// scope is one link of the static scope chain. StepBlock bodies do not get a
// scope; function bodies, loop bodies and conditional blocks do.
type scope struct {
	parent *scope
	names  map[string]binding
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, names: map[string]binding{}}
}

func (s *scope) lookup(name string) (binding, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.names[name]; ok {
			return b, true
		}
	}
	return binding{}, false
}

// visible returns every name reachable from this scope, for suggestions.
func (s *scope) visible() []string {
	seen := map[string]bool{}
	var names []string
	for cur := s; cur != nil; cur = cur.parent {
		for name := range cur.names {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

type resolver struct {
	errors     []Error
	inFunction int
	globals    []string // ambient names (builtins) that are always resolvable
}

// Option configures a resolve pass.
type Option func(*resolver)

// WithGlobals registers ambient names (the interpreter's builtins) that count
// as declared in an implicit outermost scope.
func WithGlobals(names []string) Option {
	return func(r *resolver) { r.globals = names }
}

// Resolve checks prog and returns every static violation found.
func Resolve(prog *ast.Program, opts ...Option) []Error {
	r := &resolver{}
	for _, opt := range opts {
		opt(r)
	}

	ambient := newScope(nil)
	for _, name := range r.globals {
		ambient.names[name] = binding{isConst: true}
	}
	top := newScope(ambient)
	r.block(prog.Stmts, top)
	return r.errors
}

func (r *resolver) errorf(pos token.Position, format string, args ...any) {
	r.errors = append(r.errors, Error{Pos: pos, Message: fmt.Sprintf(format, args...)})
}

func (r *resolver) declare(s *scope, name string, isConst bool, pos token.Position) {
	if prev, ok := s.names[name]; ok {
		r.errorf(pos, "redeclaration of %q (first declared at %s)", name, prev.pos)
		return
	}
	s.names[name] = binding{isConst: isConst, pos: pos}
}

func (r *resolver) block(stmts []ast.Stmt, s *scope) {
	for _, stmt := range stmts {
		r.stmt(stmt, s)
	}
}

func (r *resolver) stmt(stmt ast.Stmt, s *scope) {
	switch st := stmt.(type) {
	case *ast.LetDecl:
		r.expr(st.Init, s)
		r.declare(s, st.Name, false, st.Position)

	case *ast.ConstDecl:
		r.expr(st.Init, s)
		r.declare(s, st.Name, true, st.Position)

	case *ast.Assignment:
		r.expr(st.Value, s)
		r.assignTarget(st.Target, s)

	case *ast.IfStmt:
		for _, branch := range st.Branches {
			r.expr(branch.Cond, s)
			r.block(branch.Block, newScope(s))
		}
		if st.Else != nil {
			r.block(st.Else, newScope(s))
		}

	case *ast.ForStmt:
		r.expr(st.Iterable, s)
		body := newScope(s)
		for _, v := range st.Vars {
			r.declare(body, v, false, st.Position)
		}
		r.block(st.Block, body)

	case *ast.WhileStmt:
		r.expr(st.Cond, s)
		r.block(st.Block, newScope(s))

	case *ast.FunctionDecl:
		r.declare(s, st.Name, false, st.Position)
		body := newScope(s)
		r.params(st.Params, s, body)
		r.inFunction++
		r.block(st.Block, body)
		r.inFunction--

	case *ast.StepBlock:
		// Purely descriptive grouping: no scope of its own
		r.block(st.Block, s)

	case *ast.ActionStmt:
		for _, arg := range st.Args {
			r.expr(arg, s)
		}
		for _, kw := range st.Order {
			r.expr(st.Clauses[kw], s)
		}

	case *ast.ReturnStmt:
		if r.inFunction == 0 {
			r.errorf(st.Position, "return outside of a function")
		}
		if st.Value != nil {
			r.expr(st.Value, s)
		}

	case *ast.ImportStmt:
		if st.Alias != "" {
			r.declare(s, st.Alias, true, st.Position)
		}
		for _, name := range st.Names {
			r.declare(s, name, true, st.Position)
		}

	case *ast.ExprStmt:
		r.expr(st.X, s)
	}
}

// params declares parameters in the body scope. Default expressions resolve
// against the defining scope, not the body, mirroring evaluation order.
func (r *resolver) params(params []ast.Param, defining, body *scope) {
	for _, param := range params {
		if param.Default != nil {
			r.expr(param.Default, defining)
		}
		r.declare(body, param.Name, false, param.NamePos)
	}
}

func (r *resolver) assignTarget(target ast.Expr, s *scope) {
	switch t := target.(type) {
	case *ast.Identifier:
		b, ok := s.lookup(t.Name)
		if !ok {
			r.undeclared(t.Name, t.Position, s)
			return
		}
		if b.isConst {
			r.errorf(t.Position, "assignment to constant %q", t.Name)
		}
	case *ast.MemberAccess:
		r.expr(t.Object, s)
	case *ast.Index:
		r.expr(t.Object, s)
		r.expr(t.IndexEx, s)
	default:
		// The parser rejects other targets before we get here
		r.expr(target, s)
	}
}

func (r *resolver) undeclared(name string, pos token.Position, s *scope) {
	err := Error{
		Pos:     pos,
		Message: fmt.Sprintf("use of undeclared name %q", name),
	}
	if ranks := fuzzy.RankFindFold(name, s.visible()); len(ranks) > 0 {
		sort.Sort(ranks)
		err.Suggest = ranks[0].Target
	}
	r.errors = append(r.errors, err)
}

func (r *resolver) expr(expr ast.Expr, s *scope) {
	switch e := expr.(type) {
	case *ast.Literal:
		// nothing to resolve

	case *ast.Identifier:
		if _, ok := s.lookup(e.Name); !ok {
			r.undeclared(e.Name, e.Position, s)
		}

	case *ast.BinaryOp:
		r.expr(e.Left, s)
		r.expr(e.Right, s)

	case *ast.UnaryOp:
		r.expr(e.Operand, s)

	case *ast.Call:
		r.expr(e.Callee, s)
		for _, arg := range e.Args {
			r.expr(arg, s)
		}

	case *ast.MemberAccess:
		// Member names resolve at runtime against the object value
		r.expr(e.Object, s)

	case *ast.Index:
		r.expr(e.Object, s)
		r.expr(e.IndexEx, s)

	case *ast.Lambda:
		body := newScope(s)
		r.params(e.Params, s, body)
		r.inFunction++
		r.expr(e.Body, body)
		r.inFunction--

	case *ast.InterpolatedString:
		for _, frag := range e.Fragments {
			if frag.Expr != nil {
				r.expr(frag.Expr, s)
			}
		}

	case *ast.ListLiteral:
		for _, el := range e.Elements {
			r.expr(el, s)
		}

	case *ast.DictLiteral:
		for _, entry := range e.Entries {
			r.expr(entry.Key, s)
			r.expr(entry.Value, s)
		}
	}
}
