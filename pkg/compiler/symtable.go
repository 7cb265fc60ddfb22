package compiler

// variable is one live binding: a name plus the stack depth that was
// current when its storage cell was pushed. The binding list mirrors the
// physical order of values on the runtime evaluation stack.
type variable struct {
	name       string
	stackDepth int
}

// varTable tracks the live bindings of a generation pass in declaration
// order, plus a stack of scope markers (the binding count at each scope
// entry) used to compute bulk deallocation at block exit.
type varTable struct {
	vars   []variable
	scopes []int
}

// lookup returns the first binding with the given name in declaration
// order. Duplicates are rejected at declaration time, so first match and
// most-recent match are the same binding in practice.
func (t *varTable) lookup(name string) (variable, bool) {
	for _, v := range t.vars {
		if v.name == name {
			return v, true
		}
	}
	return variable{}, false
}

// isDeclared reports whether name is live anywhere in the scope chain,
// not just the innermost block.
func (t *varTable) isDeclared(name string) bool {
	_, ok := t.lookup(name)
	return ok
}

// declare records a binding whose storage cell sits at depth.
func (t *varTable) declare(name string, depth int) {
	t.vars = append(t.vars, variable{name: name, stackDepth: depth})
}

// beginScope marks the current binding count; everything declared above
// it belongs to the new scope.
func (t *varTable) beginScope() {
	t.scopes = append(t.scopes, len(t.vars))
}

// endScope removes every binding declared since the matching beginScope
// and returns how many there were.
func (t *varTable) endScope() int {
	mark := t.scopes[len(t.scopes)-1]
	t.scopes = t.scopes[:len(t.scopes)-1]

	popCount := len(t.vars) - mark
	t.vars = t.vars[:mark]
	return popCount
}
