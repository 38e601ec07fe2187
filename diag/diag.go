// Package diag defines the diagnostic records a Flowby run reports to its
// host: one entry per problem, tagged with the pipeline phase that found it.
package diag

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Phase identifies the pipeline stage that produced a diagnostic.
type Phase int

const (
	Lex Phase = iota
	Parse
	Resolve
	Runtime
)

func (p Phase) String() string {
	switch p {
	case Lex:
		return "lex"
	case Parse:
		return "parse"
	case Resolve:
		return "resolve"
	case Runtime:
		return "runtime"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the phase as its lowercase name.
func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// Diagnostic is one reported problem. Lex/Parse/Resolve diagnostics arrive in
// batches covering the whole program; Runtime diagnostics report the single
// failure that aborted the run, with the active call stack in Stack.
type Diagnostic struct {
	Phase   Phase    `json:"phase"`
	Line    int      `json:"line"`
	Column  int      `json:"column"`
	Message string   `json:"message"`
	Stack   []string `json:"stack,omitempty"`
}

func (d Diagnostic) String() string {
	out := fmt.Sprintf("%s error at %d:%d: %s", d.Phase, d.Line, d.Column, d.Message)
	for _, frame := range d.Stack {
		out += "\n    " + frame
	}
	return out
}

// Sort orders diagnostics by source position, phase order breaking ties.
func Sort(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		if diags[i].Line != diags[j].Line {
			return diags[i].Line < diags[j].Line
		}
		if diags[i].Column != diags[j].Column {
			return diags[i].Column < diags[j].Column
		}
		return diags[i].Phase < diags[j].Phase
	})
}

// Format renders diagnostics for display, one per line.
func Format(diags []Diagnostic) string {
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = d.String()
	}
	return strings.Join(parts, "\n")
}
