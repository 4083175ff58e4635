package machine

import "github.com/dolthub/swiss"

// AtomTable interns atom names into a single program-wide ordinal space
// (spec §4.6 "def_atom"/"push_atom"): every module compiles its own atoms
// to module-local indices, and the VM resolves those to a shared Atom.Num
// the first time each name is referenced, so two modules that both
// declare :ok end up pushing the same Atom value. Backed by swiss.Map the
// same way the retrieved corpus's other hash-table-heavy services are.
type AtomTable struct {
	byName *swiss.Map[string, uint32]
	names  []string
}

// NewAtomTable creates an empty atom table.
func NewAtomTable() *AtomTable {
	return &AtomTable{byName: swiss.NewMap[string, uint32](64)}
}

// Intern returns the Atom for name, assigning it a fresh ordinal the first
// time it is seen.
func (t *AtomTable) Intern(name string) Atom {
	if num, ok := t.byName.Get(name); ok {
		return Atom{Num: num, Name: name}
	}
	num := uint32(len(t.names))
	t.names = append(t.names, name)
	t.byName.Put(name, num)
	return Atom{Num: num, Name: name}
}

// Name returns the name interned under ordinal num, if any.
func (t *AtomTable) Name(num uint32) (string, bool) {
	if int(num) >= len(t.names) {
		return "", false
	}
	return t.names[num], true
}
