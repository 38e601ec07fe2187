package interp

import (
	"fmt"
	"strings"

	"github.com/flowby-lang/flowby/action"
	"github.com/flowby-lang/flowby/token"
)

// ErrKind classifies runtime failures raised by the evaluator itself.
type ErrKind int

const (
	TypeMismatch ErrKind = iota
	ArityMismatch
	DivisionByZero
	IndexOutOfRange
	KeyNotFound
	NotCallable
	NotIterable
	Undefined
	ImportFailed
)

func (k ErrKind) String() string {
	switch k {
	case TypeMismatch:
		return "type mismatch"
	case ArityMismatch:
		return "arity mismatch"
	case DivisionByZero:
		return "division by zero"
	case IndexOutOfRange:
		return "index out of range"
	case KeyNotFound:
		return "key not found"
	case NotCallable:
		return "not callable"
	case NotIterable:
		return "not iterable"
	case Undefined:
		return "undefined name"
	case ImportFailed:
		return "import failed"
	default:
		return "runtime error"
	}
}

// Frame is one entry of the active call stack.
type Frame struct {
	Function string
	Pos      token.Position
}

func (f Frame) String() string {
	return fmt.Sprintf("in %s at %s", f.Function, f.Pos)
}

// formatStack renders innermost-first stack lines.
func formatStack(stack []Frame) string {
	if len(stack) == 0 {
		return ""
	}
	parts := make([]string, len(stack))
	for i, f := range stack {
		parts[len(stack)-1-i] = "    " + f.String()
	}
	return "\n" + strings.Join(parts, "\n")
}

// RuntimeError aborts a run immediately. It carries the source location of
// the failing expression and the chain of active call sites.
type RuntimeError struct {
	Kind    ErrKind
	Pos     token.Position
	Message string
	Stack   []Frame
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s at %s: %s%s", e.Kind, e.Pos, e.Message, formatStack(e.Stack))
}

// ActionError aborts a run when the Executor reports a failure. It carries
// the normalized Action so hosts can report exactly what was attempted.
type ActionError struct {
	Action  action.Action
	Kind    action.FailureKind
	Message string
	Pos     token.Position
	Stack   []Frame
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %q failed at %s: %s: %s%s",
		e.Action.Verb, e.Pos, e.Kind, e.Message, formatStack(e.Stack))
}

// returnSignal unwinds the evaluator to the nearest call frame. It is not a
// real error; Call translates it into the function's return value.
type returnSignal struct {
	value Value
}

func (returnSignal) Error() string { return "return outside of a function" }
