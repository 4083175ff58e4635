package resolver

// Scope is one lexical block: a linked list with the innermost block
// first, same shape as the teacher resolver's block chain, generalized so
// that the top-level program is itself the root function's scope rather
// than a distinct node kind. It is exported because Analysis maps every
// block-introducing AST node to the Scope active within it (spec §4.2).
type Scope struct {
	Parent *Scope
	Fn     *FuncFrame

	bindings map[string]*binding
}

func newScope(parent *Scope, fn *FuncFrame) *Scope {
	return &Scope{Parent: parent, Fn: fn, bindings: make(map[string]*binding)}
}

// lookup searches s and its ancestors for name, returning the binding and
// the scope it was found in.
func (s *Scope) lookup(name string) (*binding, *Scope) {
	for e := s; e != nil; e = e.Parent {
		if b, ok := e.bindings[name]; ok {
			return b, e
		}
	}
	return nil, nil
}
