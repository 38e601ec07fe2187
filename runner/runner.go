// Package runner wires the Flowby pipeline together for hosts: lex, parse,
// resolve, interpret, each phase feeding the next only when the previous one
// is clean, with every problem reported as a diag.Diagnostic.
package runner

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/flowby-lang/flowby/action"
	"github.com/flowby-lang/flowby/ast"
	"github.com/flowby-lang/flowby/diag"
	"github.com/flowby-lang/flowby/interp"
	"github.com/flowby-lang/flowby/lexer"
	"github.com/flowby-lang/flowby/modules"
	"github.com/flowby-lang/flowby/parser"
	"github.com/flowby-lang/flowby/resolver"
)

// Option configures a Runner.
type Option func(*Runner)

// WithExecutor sets the executor that performs browser actions. The default
// is a Recorder, which makes bare runs dry runs.
func WithExecutor(exec action.Executor) Option {
	return func(r *Runner) { r.exec = exec }
}

// WithModules sets the module resolver for imports. The default resolves
// files relative to the script, memoized for the process lifetime.
func WithModules(mods interp.ModuleResolver) Option {
	return func(r *Runner) { r.mods = mods }
}

// WithStdout redirects script print output.
func WithStdout(w io.Writer) Option {
	return func(r *Runner) { r.stdout = w }
}

// Runner runs Flowby sources through the pipeline. Safe to reuse for many
// sources, but not concurrently.
type Runner struct {
	exec   action.Executor
	mods   interp.ModuleResolver
	stdout io.Writer
}

// New creates a Runner. Without options it dry-runs against a Recorder and
// prints to standard output.
func New(opts ...Option) *Runner {
	r := &Runner{
		exec:   action.NewRecorder(),
		mods:   modules.NewCache(modules.NewFileResolver("")),
		stdout: os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Check runs the static phases. The returned program is nil unless all three
// phases are clean; diagnostics carry every problem found, sorted by
// position. path may be empty for in-memory sources.
func (r *Runner) Check(source, path string) (*ast.Program, []diag.Diagnostic) {
	toks, lexErrs := lexer.Tokenize(source)
	if len(lexErrs) > 0 {
		return nil, sorted(lexDiags(lexErrs))
	}

	prog, parseErrs := parser.Parse(toks)
	if len(parseErrs) > 0 {
		return nil, sorted(parseDiags(parseErrs))
	}
	prog.Path = path

	if resErrs := resolver.Resolve(prog, resolver.WithGlobals(interp.BuiltinNames())); len(resErrs) > 0 {
		return nil, sorted(resolveDiags(resErrs))
	}
	return prog, nil
}

// Run checks and then executes the source. A runtime failure produces exactly
// one diagnostic carrying the active call stack.
func (r *Runner) Run(ctx context.Context, source, path string) []diag.Diagnostic {
	prog, diags := r.Check(source, path)
	if len(diags) > 0 {
		return diags
	}
	return r.RunProgram(ctx, prog)
}

// RunProgram executes an already checked program.
func (r *Runner) RunProgram(ctx context.Context, prog *ast.Program) []diag.Diagnostic {
	in := interp.New(
		interp.WithExecutor(r.exec),
		interp.WithModules(r.mods),
		interp.WithStdout(r.stdout),
	)
	if err := in.Run(ctx, prog); err != nil {
		return []diag.Diagnostic{runtimeDiag(err)}
	}
	return nil
}

// RunFile reads and runs a script file.
func (r *Runner) RunFile(ctx context.Context, path string) []diag.Diagnostic {
	src, err := os.ReadFile(path)
	if err != nil {
		return []diag.Diagnostic{{
			Phase: diag.Runtime, Line: 1, Column: 1,
			Message: "cannot read " + path + ": " + err.Error(),
		}}
	}
	return r.Run(ctx, string(src), path)
}

// CheckFile reads and checks a script file.
func (r *Runner) CheckFile(path string) (*ast.Program, []diag.Diagnostic) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, []diag.Diagnostic{{
			Phase: diag.Lex, Line: 1, Column: 1,
			Message: "cannot read " + path + ": " + err.Error(),
		}}
	}
	return r.Check(string(src), path)
}

// ---------------------------------------------------------------------------
// Error conversion

func lexDiags(errs []lexer.Error) []diag.Diagnostic {
	out := make([]diag.Diagnostic, len(errs))
	for i, e := range errs {
		out[i] = diag.Diagnostic{
			Phase:   diag.Lex,
			Line:    e.Pos.Line,
			Column:  e.Pos.Column,
			Message: e.Message,
		}
	}
	return out
}

func parseDiags(errs []parser.Error) []diag.Diagnostic {
	out := make([]diag.Diagnostic, len(errs))
	for i, e := range errs {
		msg := e.Message
		if msg == "" {
			msg = "expected " + e.Expected + ", found " + e.Found
		}
		if e.Suggest != "" {
			msg += " (did you mean \"" + e.Suggest + "\"?)"
		}
		out[i] = diag.Diagnostic{
			Phase:   diag.Parse,
			Line:    e.Pos.Line,
			Column:  e.Pos.Column,
			Message: msg,
		}
	}
	return out
}

func resolveDiags(errs []resolver.Error) []diag.Diagnostic {
	out := make([]diag.Diagnostic, len(errs))
	for i, e := range errs {
		msg := e.Message
		if e.Suggest != "" {
			msg += " (did you mean \"" + e.Suggest + "\"?)"
		}
		out[i] = diag.Diagnostic{
			Phase:   diag.Resolve,
			Line:    e.Pos.Line,
			Column:  e.Pos.Column,
			Message: msg,
		}
	}
	return out
}

func runtimeDiag(err error) diag.Diagnostic {
	var rt *interp.RuntimeError
	if errors.As(err, &rt) {
		return diag.Diagnostic{
			Phase:   diag.Runtime,
			Line:    rt.Pos.Line,
			Column:  rt.Pos.Column,
			Message: rt.Kind.String() + ": " + rt.Message,
			Stack:   stackLines(rt.Stack),
		}
	}
	var act *interp.ActionError
	if errors.As(err, &act) {
		return diag.Diagnostic{
			Phase:  diag.Runtime,
			Line:   act.Pos.Line,
			Column: act.Pos.Column,
			Message: "action \"" + act.Action.Verb + "\" failed: " +
				act.Kind.String() + ": " + act.Message,
			Stack: stackLines(act.Stack),
		}
	}
	return diag.Diagnostic{Phase: diag.Runtime, Line: 1, Column: 1, Message: err.Error()}
}

func stackLines(frames []interp.Frame) []string {
	if len(frames) == 0 {
		return nil
	}
	// Innermost first, matching how the interpreter formats its own errors.
	out := make([]string, len(frames))
	for i, f := range frames {
		out[len(frames)-1-i] = f.String()
	}
	return out
}

func sorted(diags []diag.Diagnostic) []diag.Diagnostic {
	diag.Sort(diags)
	return diags
}
