package linker_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bizarrecake/rho/lang/compiler"
	"github.com/bizarrecake/rho/lang/linker"
)

func moduleWithReloc(name string, imports []string, relocs []compiler.Reloc) *compiler.Module {
	code := make([]byte, 0)
	for _, r := range relocs {
		for len(code) < r.Offset+4 {
			code = append(code, 0)
		}
	}
	fn := &compiler.Func{Name: name, Code: code, Relocs: relocs}
	return &compiler.Module{Name: name, Imports: imports, Funcs: []*compiler.Func{fn}}
}

// TestLinkOrdersDependenciesFirst covers the tri-color topological sort:
// A imports nothing, B imports A - B must appear after A in Program.Modules
// regardless of the order Link's variadic args list them in.
func TestLinkOrdersDependenciesFirst(t *testing.T) {
	modA := moduleWithReloc("A", nil, nil)
	modB := moduleWithReloc("B", []string{"A"}, nil)

	prog, err := linker.New().Link(modB, modA)
	require.NoError(t, err)
	require.Len(t, prog.Modules, 2)
	require.Equal(t, "A", prog.Modules[0].Name)
	require.Equal(t, "B", prog.Modules[1].Name)
	require.Equal(t, 0, prog.PageOf["A"])
	require.Equal(t, 1, prog.PageOf["B"])
}

// TestLinkDetectsCycle covers a direct two-module import cycle.
func TestLinkDetectsCycle(t *testing.T) {
	modA := moduleWithReloc("A", []string{"B"}, nil)
	modB := moduleWithReloc("B", []string{"A"}, nil)

	_, err := linker.New().Link(modA, modB)
	require.Error(t, err)
	var cycleErr *linker.CycleError
	require.ErrorAs(t, err, &cycleErr)
}

// TestLinkUndefinedImport covers importing a module the linker was never
// given.
func TestLinkUndefinedImport(t *testing.T) {
	modA := moduleWithReloc("A", []string{"Ghost"}, nil)

	_, err := linker.New().Link(modA)
	require.Error(t, err)
	var undefErr *linker.UndefinedModuleError
	require.ErrorAs(t, err, &undefErr)
	require.Equal(t, "Ghost", undefErr.Importee)
}

// TestLinkPatchesRelocGP covers a module's own-page relocation: the
// 4-byte operand at the reloc's offset must end up holding that module's
// assigned page index.
func TestLinkPatchesRelocGP(t *testing.T) {
	mod := moduleWithReloc("A", nil, []compiler.Reloc{{Kind: compiler.RelocGP, Offset: 0}})

	prog, err := linker.New().Link(mod)
	require.NoError(t, err)
	patched := prog.Modules[0].Funcs[0]
	require.Empty(t, patched.Relocs, "a resolved RelocGP must not carry forward")
	page := binary.LittleEndian.Uint32(patched.Code[0:4])
	require.Equal(t, uint32(prog.PageOf["A"]), page)
}

// TestLinkPatchesRelocGVPageOnly covers the documented limitation a prior
// investigation turned up: patchFunc only ever patches a RelocGV's page
// half, never a slot index, since the compiler (not the linker) already
// resolved the slot index into the operand's second 4 bytes via
// compiler.ModuleStore.
func TestLinkPatchesRelocGVPageOnly(t *testing.T) {
	// 8-byte operand: [page:4][idx:4], idx pre-set by the compiler to 7.
	code := make([]byte, 8)
	binary.LittleEndian.PutUint32(code[4:8], 7)
	fn := &compiler.Func{Name: "B", Code: code, Relocs: []compiler.Reloc{{Kind: compiler.RelocGV, Offset: 0, Module: "A", Name: "f"}}}
	modB := &compiler.Module{Name: "B", Imports: []string{"A"}, Funcs: []*compiler.Func{fn}}
	modA := moduleWithReloc("A", nil, nil)

	prog, err := linker.New().Link(modA, modB)
	require.NoError(t, err)
	patchedB := prog.Modules[1].Funcs[0]
	require.Empty(t, patchedB.Relocs)
	page := binary.LittleEndian.Uint32(patchedB.Code[0:4])
	idx := binary.LittleEndian.Uint32(patchedB.Code[4:8])
	require.Equal(t, uint32(prog.PageOf["A"]), page)
	require.Equal(t, uint32(7), idx, "the slot index is untouched by the linker")
}

// TestLinkRelocGVDeferredWhenModuleUnknown covers a RelocGV targeting a
// module the linker was never given code for (an incremental-link driver
// that hasn't compiled that dependency into this process yet): the
// relocation must be left pending rather than erroring, per patchFunc's
// own documented tolerance.
func TestLinkRelocGVDeferredWhenModuleUnknown(t *testing.T) {
	code := make([]byte, 8)
	fn := &compiler.Func{Name: "B", Code: code, Relocs: []compiler.Reloc{{Kind: compiler.RelocGV, Offset: 0, Module: "Missing", Name: "f"}}}
	modB := &compiler.Module{Name: "B", Funcs: []*compiler.Func{fn}}

	prog, err := linker.New().Link(modB)
	require.NoError(t, err)
	require.Len(t, prog.Modules[0].Funcs[0].Relocs, 1, "an unresolved RelocGV must remain pending, not silently dropped")
}

// TestLinkIncrementalPreservesPages covers the REPL-mode use case: linking
// module A, then later linking module B which imports A, must not
// reassign A's page index.
func TestLinkIncrementalPreservesPages(t *testing.T) {
	modA := moduleWithReloc("A", nil, nil)
	l := linker.New()

	prog1, err := l.Link(modA)
	require.NoError(t, err)
	pageA := prog1.PageOf["A"]

	modB := moduleWithReloc("B", []string{"A"}, nil)
	prog2, err := l.Link(modB)
	require.NoError(t, err)
	require.Equal(t, pageA, prog2.PageOf["A"], "A's page must not be reassigned by a later incremental Link call")
	require.Len(t, prog2.Modules, 2)
}
