package compiler

// RelocKind classifies one relocation record the linker must fix up before
// a module's code can run (spec §4.5).
type RelocKind uint8

const (
	// RelocGP targets a slot in the compiling module's own global page: the
	// linker assigns that page a concrete index and patches the operand.
	RelocGP RelocKind = iota
	// RelocGV targets a slot in an imported module's global page: the
	// linker resolves the import by name to that module's assigned page
	// index and patches the operand.
	RelocGV
	// RelocAtom is left for the VM to resolve lazily on first execution via
	// def_atom/push_atom, rather than at link time.
	RelocAtom
)

func (k RelocKind) String() string {
	switch k {
	case RelocGP:
		return "GP"
	case RelocGV:
		return "GV"
	case RelocAtom:
		return "A"
	default:
		return "unknown"
	}
}

// Reloc is one pending fixup: at byte offset Offset within a Func's Code,
// a uint32 operand needs Kind-specific resolution.
type Reloc struct {
	Kind   RelocKind
	Offset int
	// Module is the imported module name for RelocGV; empty for RelocGP and
	// RelocAtom.
	Module string
	// Name is the global/atom name being referenced. It is informational:
	// the linker patches only the page operand and does not read it, since
	// the slot index is already in the code.
	Name string
}

// Func is one compiled function: its bytecode plus the metadata the VM
// needs to build call frames over it.
type Func struct {
	Name      string
	Code      []byte
	NumParams int
	Variadic  bool
	NumLocals int // stack slots beyond the 6-cell frame header and the NumParams argument slots
	MaxStack  int
	Relocs    []Reloc
}

// Module is the output of compiling one lang/ast.Program: unlinked
// bytecode plus the declarations the linker needs to assign it a global
// page and resolve its imports (spec §4.4/§4.5).
type Module struct {
	Name    string
	Imports []string
	Funcs   []*Func // Funcs[0] is the top-level/module-init function
	Globals []string // names declared in this module's global page, in index order
	Atoms   []string // atom names this module declares via def_atom
}
