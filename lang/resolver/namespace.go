package resolver

// namespaceTable tracks declared namespaces and the atoms declared within
// them (spec §4.2 "namespace/using resolution order"). Atoms themselves
// are compile-time constants interned by lang/compiler; the resolver only
// records which qualified and unqualified names are declared. Neither a
// `using` directive nor an AtomLit is reported when it names something
// undeclared.
type namespaceTable struct {
	namespaces map[string]bool
	atoms      map[string]bool // key is "namespace.name", or just "name" for top level
}

func newNamespaceTable() *namespaceTable {
	return &namespaceTable{
		namespaces: make(map[string]bool),
		atoms:      make(map[string]bool),
	}
}

func (t *namespaceTable) declareNamespace(name string) {
	t.namespaces[name] = true
}

func (t *namespaceTable) declareAtom(namespace, name string) {
	t.atoms[qualify(namespace, name)] = true
}

// has reports whether name is declared unqualified at the top level.
func (t *namespaceTable) has(name string) bool {
	return t.atoms[name]
}

// hasQualified reports whether name is declared within namespace.
func (t *namespaceTable) hasQualified(namespace, name string) bool {
	return t.atoms[qualify(namespace, name)]
}

func qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}
