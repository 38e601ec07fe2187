// Package interp is the tree-walking evaluator for resolved Flowby programs.
package interp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/flowby-lang/flowby/ast"
	"github.com/flowby-lang/flowby/token"
)

// Kind tags the closed set of runtime value types. Every operation site
// switches exhaustively over kinds; there is no reflection-based dispatch.
type Kind int

const (
	NoneKind Kind = iota
	BoolKind
	IntKind
	FloatKind
	StrKind
	ListKind
	DictKind
	FuncKind
	BuiltinKind
)

func (k Kind) String() string {
	switch k {
	case NoneKind:
		return "None"
	case BoolKind:
		return "Bool"
	case IntKind:
		return "Int"
	case FloatKind:
		return "Float"
	case StrKind:
		return "Str"
	case ListKind:
		return "List"
	case DictKind:
		return "Dict"
	case FuncKind, BuiltinKind:
		return "Function"
	default:
		return "Unknown"
	}
}

// Value is one runtime value.
type Value interface {
	Kind() Kind
	// Truthy implements Flowby truthiness: none, false, 0, 0.0 and empty
	// string/list/dict are falsy, everything else is truthy.
	Truthy() bool
	// Display renders the value the way `print` and string interpolation do.
	Display() string
}

// None is the single no-value.
type None struct{}

func (None) Kind() Kind      { return NoneKind }
func (None) Truthy() bool    { return false }
func (None) Display() string { return "none" }

// Bool is a boolean value.
type Bool bool

func (Bool) Kind() Kind        { return BoolKind }
func (b Bool) Truthy() bool    { return bool(b) }
func (b Bool) Display() string { return strconv.FormatBool(bool(b)) }

// Int is a 64-bit integer value.
type Int int64

func (Int) Kind() Kind        { return IntKind }
func (i Int) Truthy() bool    { return i != 0 }
func (i Int) Display() string { return strconv.FormatInt(int64(i), 10) }

// Float is a 64-bit floating point value.
type Float float64

func (Float) Kind() Kind     { return FloatKind }
func (f Float) Truthy() bool { return f != 0 }
func (f Float) Display() string {
	return strconv.FormatFloat(float64(f), 'g', -1, 64)
}

// Str is a string value.
type Str string

func (Str) Kind() Kind        { return StrKind }
func (s Str) Truthy() bool    { return s != "" }
func (s Str) Display() string { return string(s) }

// List is an ordered, mutable sequence.
type List struct {
	Items []Value
}

func NewList(items ...Value) *List { return &List{Items: items} }

func (*List) Kind() Kind      { return ListKind }
func (l *List) Truthy() bool  { return len(l.Items) > 0 }
func (l *List) Display() string {
	parts := make([]string, len(l.Items))
	for i, item := range l.Items {
		parts[i] = quoted(item)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Dict is an insertion-order-preserving mapping with unique string keys.
type Dict struct {
	keys  []string
	items map[string]Value
}

func NewDict() *Dict {
	return &Dict{items: map[string]Value{}}
}

func (*Dict) Kind() Kind     { return DictKind }
func (d *Dict) Truthy() bool { return len(d.keys) > 0 }

func (d *Dict) Display() string {
	parts := make([]string, len(d.keys))
	for i, k := range d.keys {
		parts[i] = fmt.Sprintf("%q: %s", k, quoted(d.items[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Get returns the value bound to key.
func (d *Dict) Get(key string) (Value, bool) {
	v, ok := d.items[key]
	return v, ok
}

// Set binds key to value, preserving first-insertion order.
func (d *Dict) Set(key string, value Value) {
	if _, exists := d.items[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.items[key] = value
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.keys) }

// Function is a user-defined function or lambda. Env is the environment
// active at the definition site, shared by reference: this is what makes
// closures lexical rather than dynamic.
type Function struct {
	Name     string // "" for lambdas
	Params   []ast.Param
	Body     []ast.Stmt // nil for lambdas
	BodyExpr ast.Expr   // nil for named functions
	Env      *Env
	Pos      token.Position
}

func (*Function) Kind() Kind     { return FuncKind }
func (*Function) Truthy() bool   { return true }
func (f *Function) Display() string {
	if f.Name == "" {
		return "<lambda>"
	}
	return fmt.Sprintf("<function %s>", f.Name)
}

// Builtin is a host-provided function.
type Builtin struct {
	Name string
	Fn   func(in *Interp, pos token.Position, args []Value) (Value, error)
}

func (*Builtin) Kind() Kind        { return BuiltinKind }
func (*Builtin) Truthy() bool      { return true }
func (b *Builtin) Display() string { return fmt.Sprintf("<builtin %s>", b.Name) }

// quoted renders a value for display inside containers, quoting strings.
func quoted(v Value) string {
	if s, ok := v.(Str); ok {
		return strconv.Quote(string(s))
	}
	return v.Display()
}

// Equals compares two values by value. Cross-type comparison is false, never
// an error; ints and floats compare numerically.
func Equals(a, b Value) bool {
	switch av := a.(type) {
	case None:
		_, ok := b.(None)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Int:
		switch bv := b.(type) {
		case Int:
			return av == bv
		case Float:
			return Float(av) == bv
		}
		return false
	case Float:
		switch bv := b.(type) {
		case Float:
			return av == bv
		case Int:
			return av == Float(bv)
		}
		return false
	case Str:
		bv, ok := b.(Str)
		return ok && av == bv
	case *List:
		bv, ok := b.(*List)
		if !ok || len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !Equals(av.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	case *Dict:
		bv, ok := b.(*Dict)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for _, k := range av.keys {
			bval, ok := bv.items[k]
			if !ok || !Equals(av.items[k], bval) {
				return false
			}
		}
		return true
	case *Function:
		return a == b
	case *Builtin:
		return a == b
	}
	return false
}

// Export converts a value to plain Go data for the action boundary: nil,
// bool, int64, float64, string, []any or map[string]any. Functions export as
// their display form; drivers have no use for closures.
func Export(v Value) any {
	switch val := v.(type) {
	case None:
		return nil
	case Bool:
		return bool(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Str:
		return string(val)
	case *List:
		out := make([]any, len(val.Items))
		for i, item := range val.Items {
			out[i] = Export(item)
		}
		return out
	case *Dict:
		out := make(map[string]any, val.Len())
		for _, k := range val.keys {
			out[k] = Export(val.items[k])
		}
		return out
	default:
		return v.Display()
	}
}
