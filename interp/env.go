package interp

// Env is one scope's name→value mapping plus a reference to its lexically
// enclosing scope. A closure holds the Env active at its definition site by
// shared reference, never a copy, so later mutations through the chain stay
// visible to the closure.
type Env struct {
	bindings map[string]Value
	parent   *Env
}

// NewEnv creates an environment with an optional parent scope.
func NewEnv(parent *Env) *Env {
	return &Env{bindings: map[string]Value{}, parent: parent}
}

// Child creates a new scope nested in this one.
func (e *Env) Child() *Env {
	return NewEnv(e)
}

// Get looks a name up through the scope chain.
func (e *Env) Get(name string) (Value, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if v, ok := cur.bindings[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Declare binds a name in this scope. The resolver has already rejected
// redeclarations, so an existing binding is simply replaced.
func (e *Env) Declare(name string, v Value) {
	e.bindings[name] = v
}

// Assign rebinds an existing name in the scope where it was declared. The
// boolean is false when the name is not declared anywhere on the chain,
// which the resolver normally rules out.
func (e *Env) Assign(name string, v Value) bool {
	for cur := e; cur != nil; cur = cur.parent {
		if _, ok := cur.bindings[name]; ok {
			cur.bindings[name] = v
			return true
		}
	}
	return false
}

// Names returns the names bound directly in this scope, in no particular
// order. Used to build module namespaces.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.bindings))
	for name := range e.bindings {
		names = append(names, name)
	}
	return names
}
