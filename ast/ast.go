// Package ast defines the Flowby abstract syntax tree.
//
// Nodes are built once by the parser and never mutated afterwards; the
// interpreter only creates environments and values.
package ast

import "github.com/flowby-lang/flowby/token"

// Node is implemented by every AST node.
type Node interface {
	Pos() token.Position
}

// Stmt is implemented by all statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is implemented by all expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Program is a parsed Flowby script: an ordered sequence of top-level
// statements.
type Program struct {
	Stmts []Stmt

	// Path is the source path the program was parsed from, empty for
	// in-memory sources. Used to resolve relative imports.
	Path string
}

func (p *Program) Pos() token.Position {
	if len(p.Stmts) > 0 {
		return p.Stmts[0].Pos()
	}
	return token.Position{Line: 1, Column: 1}
}

// Param is one function or lambda parameter. Type is optional metadata and is
// not enforced by the evaluator. Default is nil for required parameters.
type Param struct {
	Name    string
	Type    string
	Default Expr
	NamePos token.Position
}

// ---------------------------------------------------------------------------
// Statements

// LetDecl is `let name[: Type] = expr`.
type LetDecl struct {
	Name     string
	Type     string // optional annotation, "" when absent
	Init     Expr
	Position token.Position
}

// ConstDecl is `const name[: Type] = expr`.
type ConstDecl struct {
	Name     string
	Type     string
	Init     Expr
	Position token.Position
}

// Assignment is `target = expr`. Target is an Identifier, MemberAccess or
// Index expression.
type Assignment struct {
	Target   Expr
	Value    Expr
	Position token.Position
}

// IfBranch is one `if`/`else if` arm.
type IfBranch struct {
	Cond  Expr
	Block []Stmt
}

// IfStmt holds the ordered condition arms plus an optional else block.
type IfStmt struct {
	Branches []IfBranch
	Else     []Stmt // nil when there is no else arm
	Position token.Position
}

// ForStmt is `for x[, y] in expr:`. Vars holds one or two loop variables.
type ForStmt struct {
	Vars     []string
	Iterable Expr
	Block    []Stmt
	Position token.Position
}

// WhileStmt is `while cond:`.
type WhileStmt struct {
	Cond     Expr
	Block    []Stmt
	Position token.Position
}

// FunctionDecl is `function name(params)[-> Type]:`.
type FunctionDecl struct {
	Name       string
	Params     []Param
	ReturnType string // optional annotation
	Block      []Stmt
	Position   token.Position
}

// StepBlock is `step "label":` — a purely descriptive grouping. It does not
// introduce a scope: declarations inside remain visible after the block.
type StepBlock struct {
	Label    string
	Block    []Stmt
	Position token.Position
}

// ActionStmt is one automation verb invocation, e.g.
// `type "a@b.com" into "#email"`.
type ActionStmt struct {
	Verb     string
	Args     []Expr            // positional arguments, in source order
	Clauses  map[string]Expr   // clauseKeyword -> expression
	Order    []string          // clause keywords in source order, for printing
	Position token.Position
}

// ReturnStmt is `return [expr]`. Value is nil for a bare return.
type ReturnStmt struct {
	Value    Expr
	Position token.Position
}

// ImportStmt covers both binding forms:
//
//	import "path" as alias      -> Alias set, Names nil
//	import a, b from "path"     -> Names set, Alias ""
type ImportStmt struct {
	Path     string
	Alias    string
	Names    []string
	Position token.Position
}

// ExprStmt is an expression evaluated for its effect, e.g. a bare call.
type ExprStmt struct {
	X        Expr
	Position token.Position
}

func (s *LetDecl) stmtNode()      {}
func (s *ConstDecl) stmtNode()    {}
func (s *Assignment) stmtNode()   {}
func (s *IfStmt) stmtNode()       {}
func (s *ForStmt) stmtNode()      {}
func (s *WhileStmt) stmtNode()    {}
func (s *FunctionDecl) stmtNode() {}
func (s *StepBlock) stmtNode()    {}
func (s *ActionStmt) stmtNode()   {}
func (s *ReturnStmt) stmtNode()   {}
func (s *ImportStmt) stmtNode()   {}
func (s *ExprStmt) stmtNode()     {}

func (s *LetDecl) Pos() token.Position      { return s.Position }
func (s *ConstDecl) Pos() token.Position    { return s.Position }
func (s *Assignment) Pos() token.Position   { return s.Position }
func (s *IfStmt) Pos() token.Position       { return s.Position }
func (s *ForStmt) Pos() token.Position      { return s.Position }
func (s *WhileStmt) Pos() token.Position    { return s.Position }
func (s *FunctionDecl) Pos() token.Position { return s.Position }
func (s *StepBlock) Pos() token.Position    { return s.Position }
func (s *ActionStmt) Pos() token.Position   { return s.Position }
func (s *ReturnStmt) Pos() token.Position   { return s.Position }
func (s *ImportStmt) Pos() token.Position   { return s.Position }
func (s *ExprStmt) Pos() token.Position     { return s.Position }

// ---------------------------------------------------------------------------
// Expressions

// LiteralKind distinguishes literal values without reaching for reflection.
type LiteralKind int

const (
	LitInt LiteralKind = iota
	LitFloat
	LitString
	LitBool
	LitNone
)

// Literal is a literal value. Exactly one of Int/Float/Str/Bool is
// meaningful, selected by Kind.
type Literal struct {
	Kind     LiteralKind
	Int      int64
	Float    float64
	Str      string
	Bool     bool
	Position token.Position
}

// Identifier is a name reference.
type Identifier struct {
	Name     string
	Position token.Position
}

// BinaryOp is `left op right`. Op is the token type of the operator.
type BinaryOp struct {
	Op       token.Type
	Left     Expr
	Right    Expr
	Position token.Position
}

// UnaryOp is `not x` or `-x`.
type UnaryOp struct {
	Op       token.Type
	Operand  Expr
	Position token.Position
}

// Call is `callee(args...)`.
type Call struct {
	Callee   Expr
	Args     []Expr
	Position token.Position
}

// MemberAccess is `object.name`.
type MemberAccess struct {
	Object   Expr
	Name     string
	Position token.Position
}

// Index is `object[index]`.
type Index struct {
	Object   Expr
	IndexEx  Expr
	Position token.Position
}

// Lambda is `fn(params) => expr`.
type Lambda struct {
	Params   []Param
	Body     Expr
	Position token.Position
}

// StringFragment is one piece of an interpolated string: literal text when
// Expr is nil, otherwise an embedded expression.
type StringFragment struct {
	Text string
	Expr Expr
}

// InterpolatedString is a string literal containing {expr} fragments, kept in
// source order.
type InterpolatedString struct {
	Fragments []StringFragment
	Position  token.Position
}

// ListLiteral is `[a, b, c]`.
type ListLiteral struct {
	Elements []Expr
	Position token.Position
}

// DictEntry is one `key: value` pair. Order in DictLiteral is source order.
type DictEntry struct {
	Key   Expr
	Value Expr
}

// DictLiteral is `{k: v, ...}` with insertion order preserved.
type DictLiteral struct {
	Entries  []DictEntry
	Position token.Position
}

func (e *Literal) exprNode()            {}
func (e *Identifier) exprNode()         {}
func (e *BinaryOp) exprNode()           {}
func (e *UnaryOp) exprNode()            {}
func (e *Call) exprNode()               {}
func (e *MemberAccess) exprNode()       {}
func (e *Index) exprNode()              {}
func (e *Lambda) exprNode()             {}
func (e *InterpolatedString) exprNode() {}
func (e *ListLiteral) exprNode()        {}
func (e *DictLiteral) exprNode()        {}

func (e *Literal) Pos() token.Position            { return e.Position }
func (e *Identifier) Pos() token.Position         { return e.Position }
func (e *BinaryOp) Pos() token.Position           { return e.Position }
func (e *UnaryOp) Pos() token.Position            { return e.Position }
func (e *Call) Pos() token.Position               { return e.Position }
func (e *MemberAccess) Pos() token.Position       { return e.Position }
func (e *Index) Pos() token.Position              { return e.Position }
func (e *Lambda) Pos() token.Position             { return e.Position }
func (e *InterpolatedString) Pos() token.Position { return e.Position }
func (e *ListLiteral) Pos() token.Position        { return e.Position }
func (e *DictLiteral) Pos() token.Position        { return e.Position }
