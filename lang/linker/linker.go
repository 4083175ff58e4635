// Package linker resolves a set of compiled lang/compiler.Modules into one
// runnable program: it orders modules by dependency (spec §4.5), assigns
// each a monotonically increasing global page index, and patches every
// pending compiler.Reloc against that assignment. The tri-color DFS
// topological sort is grounded directly in the original dependency_graph
// class (original_source/include/linker/dep_graph.hpp), since the
// teacher repo has no equivalent of this stage at all - nenuphar never
// links separately compiled modules together.
package linker

import (
	"encoding/binary"
	"fmt"

	"github.com/dolthub/swiss"

	"github.com/bizarrecake/rho/lang/compiler"
)

// CycleError reports a dependency cycle found during topological sort.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("linker: import cycle detected: %v", e.Cycle)
}

// UndefinedModuleError reports an import of a module the linker was never
// given.
type UndefinedModuleError struct {
	Importer, Importee string
}

func (e *UndefinedModuleError) Error() string {
	return fmt.Sprintf("linker: module %q imports undefined module %q", e.Importer, e.Importee)
}

// Program is the fully linked output: every module's functions
// concatenated, globals pages allocated, and relocations patched.
type Program struct {
	// Modules lists modules in evaluation order (dependencies first).
	Modules []*LinkedModule
	// PageOf maps a module name to its assigned global page index.
	PageOf map[string]int
}

// LinkedModule is one compiler.Module after relocation fixup.
type LinkedModule struct {
	Name  string
	Page  int
	Funcs []*compiler.Func
	// Atoms lists the atom names this module declares, in the index order
	// PUSHATOM/DEFATOM operands within its Funcs address; the VM interns
	// each lazily (by name) into its global atom table on first reference.
	Atoms []string
}

type nodeStatus int

const (
	unmarked nodeStatus = iota
	tempMark
	permMark
)

// Linker accumulates modules across possibly multiple Link calls, so a
// REPL can incrementally link newly compiled modules against everything
// linked so far without re-assigning page indices already handed out
// (spec's supplemented REPL incremental-linking feature, grounded in
// original_source/include/linker/linker.hpp since spec.md itself is
// silent on exactly how REPL re-linking should behave). Both lookup
// tables are backed by swiss.Map, the same hash table the retrieved
// corpus's other name-keyed services (lang/machine's AtomTable, the
// teacher's lang/machine/map.go) use, rather than a plain Go map.
type Linker struct {
	known    *swiss.Map[string, *compiler.Module]
	pageOf   *swiss.Map[string, int]
	nextPage int
}

// New creates an empty incremental linker.
func New() *Linker {
	return &Linker{
		known:  swiss.NewMap[string, *compiler.Module](8),
		pageOf: swiss.NewMap[string, int](8),
	}
}

// Link adds mods to the set of known modules and returns a Program
// covering every module known so far (previously linked modules included,
// with their page indices preserved).
func (l *Linker) Link(mods ...*compiler.Module) (*Program, error) {
	for _, m := range mods {
		l.known.Put(m.Name, m)
	}

	order, err := l.topoSort()
	if err != nil {
		return nil, err
	}

	for _, name := range order {
		if _, ok := l.pageOf.Get(name); !ok {
			l.pageOf.Put(name, l.nextPage)
			l.nextPage++
		}
	}

	prog := &Program{PageOf: make(map[string]int, l.pageOf.Count())}
	l.pageOf.Iter(func(k string, v int) bool {
		prog.PageOf[k] = v
		return false
	})

	for _, name := range order {
		m, _ := l.known.Get(name)
		page, _ := l.pageOf.Get(name)
		lm := &LinkedModule{Name: name, Page: page, Funcs: make([]*compiler.Func, len(m.Funcs)), Atoms: m.Atoms}
		for i, f := range m.Funcs {
			lm.Funcs[i] = patchFunc(f, m, l.pageOf)
		}
		prog.Modules = append(prog.Modules, lm)
	}
	return prog, nil
}

// topoSort returns known module names in dependency-first evaluation
// order via the tri-color DFS from original_source's dependency_graph.
func (l *Linker) topoSort() ([]string, error) {
	status := make(map[string]nodeStatus, l.known.Count())
	var order []string
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		switch status[name] {
		case permMark:
			return nil
		case tempMark:
			cyc := append(append([]string{}, stack...), name)
			return &CycleError{Cycle: cyc}
		}

		m, ok := l.known.Get(name)
		if !ok {
			importer := ""
			if len(stack) > 0 {
				importer = stack[len(stack)-1]
			}
			return &UndefinedModuleError{Importer: importer, Importee: name}
		}

		status[name] = tempMark
		stack = append(stack, name)
		for _, dep := range m.Imports {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		status[name] = permMark
		order = append(order, name)
		return nil
	}

	names := make([]string, 0, l.known.Count())
	l.known.Iter(func(k string, v *compiler.Module) bool {
		names = append(names, k)
		return false
	})
	for _, name := range names {
		if status[name] == unmarked {
			if err := visit(name); err != nil {
				return nil, err
			}
		}
	}
	return order, nil
}

// patchFunc applies f's relocations, returning a new Func with resolved
// operands (the input compiler.Func is left untouched so repeated linking
// of the same module set is idempotent).
func patchFunc(f *compiler.Func, owner *compiler.Module, pageOf *swiss.Map[string, int]) *compiler.Func {
	code := make([]byte, len(f.Code))
	copy(code, f.Code)

	var remaining []compiler.Reloc
	for _, r := range f.Relocs {
		switch r.Kind {
		case compiler.RelocGP:
			page, _ := pageOf.Get(owner.Name)
			binary.LittleEndian.PutUint32(code[r.Offset:r.Offset+4], uint32(page))
		case compiler.RelocGV:
			page, ok := pageOf.Get(r.Module)
			if !ok {
				remaining = append(remaining, r) // left as-is; the VM returns ErrUnresolvedImport if this load executes
				continue
			}
			binary.LittleEndian.PutUint32(code[r.Offset:r.Offset+4], uint32(page))
		case compiler.RelocAtom:
			// left for the VM to resolve lazily via def_atom/push_atom.
			remaining = append(remaining, r)
		}
	}

	return &compiler.Func{
		Name:      f.Name,
		Code:      code,
		NumParams: f.NumParams,
		Variadic:  f.Variadic,
		NumLocals: f.NumLocals,
		MaxStack:  f.MaxStack,
		Relocs:    remaining,
	}
}
