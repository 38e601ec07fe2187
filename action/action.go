// Package action defines the boundary between the Flowby interpreter and the
// browser driver that actually performs clicks and navigation.
//
// The interpreter resolves every argument and clause of an automation verb to
// a plain value, packs them into an immutable Action record and hands it to
// an Executor. How the driver renders pages or matches selectors against a
// DOM is entirely the Executor's concern.
package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/flowby-lang/flowby/token"
)

// FailureKind classifies an Executor failure.
type FailureKind int

const (
	ElementNotFound FailureKind = iota
	Timeout
	NavigationFailed
	AssertionFailed
)

func (k FailureKind) String() string {
	switch k {
	case ElementNotFound:
		return "element not found"
	case Timeout:
		return "timeout"
	case NavigationFailed:
		return "navigation failed"
	case AssertionFailed:
		return "assertion failed"
	default:
		return "failure"
	}
}

// Action is one normalized automation verb invocation. Args holds the
// resolved positional values in source order; Clauses maps each clause
// keyword to its resolved value. Values are plain Go data: nil, bool, int64,
// float64, string, []any or map[string]any.
type Action struct {
	Verb    string
	Args    []any
	Clauses map[string]any
	Loc     token.Position
}

func (a Action) String() string {
	var b strings.Builder
	b.WriteString(a.Verb)
	for _, arg := range a.Args {
		fmt.Fprintf(&b, " %v", arg)
	}
	for kw, v := range a.Clauses {
		fmt.Fprintf(&b, " %s %v", kw, v)
	}
	return b.String()
}

// Failure describes why the driver could not perform an action.
type Failure struct {
	Kind    FailureKind
	Message string
}

// Result is the outcome of one Perform call. Failure is nil on success;
// Value optionally carries a result back to the script (the core discards it
// today, but drivers may report e.g. a screenshot path).
type Result struct {
	Value   any
	Failure *Failure
}

// Success builds a successful Result.
func Success(value any) Result {
	return Result{Value: value}
}

// Fail builds a failed Result.
func Fail(kind FailureKind, format string, args ...any) Result {
	return Result{Failure: &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}}
}

// Executor performs actions against a real or simulated browser. Perform
// blocks until the action completes; timeout and cancellation are the
// Executor's contract (it must return a Timeout failure rather than block
// indefinitely). The interpreter never retries a failure on its own.
type Executor interface {
	Perform(ctx context.Context, act Action) Result
}
