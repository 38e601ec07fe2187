package parser

// verbSpec declares the grammar of one automation verb: how many positional
// arguments it takes and which optional/required clause keywords it accepts.
// Verbs parse through this table, not through generic call syntax.
type verbSpec struct {
	Arity    int
	Clauses  []string // legal clause keywords
	Required []string // clauses that must be present
}

// verbs is the automation verb grammar table. A statement-position identifier
// found here parses as an ActionStmt.
var verbs = map[string]verbSpec{
	"navigate":   {Arity: 0, Clauses: []string{"to"}, Required: []string{"to"}},
	"click":      {Arity: 1},
	"hover":      {Arity: 1},
	"clear":      {Arity: 1},
	"type":       {Arity: 1, Clauses: []string{"into"}},
	"select":     {Arity: 1, Clauses: []string{"from"}},
	"upload":     {Arity: 1, Clauses: []string{"to"}},
	"press":      {Arity: 1, Clauses: []string{"in"}},
	"check":      {Arity: 1},
	"uncheck":    {Arity: 1},
	"wait":       {Arity: 1, Clauses: []string{"for"}},
	"screenshot": {Arity: 0, Clauses: []string{"as"}},
}

// IsVerb reports whether name is a registered automation verb.
func IsVerb(name string) bool {
	_, ok := verbs[name]
	return ok
}

// VerbNames returns every registered verb, for suggestions and docs.
func VerbNames() []string {
	names := make([]string, 0, len(verbs))
	for name := range verbs {
		names = append(names, name)
	}
	return names
}
