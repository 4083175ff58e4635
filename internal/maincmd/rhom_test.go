package maincmd

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/mainer"

	"github.com/bizarrecake/rho/lang/compiler"
	"github.com/bizarrecake/rho/lang/linker"
)

func sampleModule() *compiler.Module {
	return &compiler.Module{
		Name:    "A",
		Imports: []string{"B"},
		Funcs: []*compiler.Func{{
			Name:      "A",
			Code:      []byte{byte(compiler.PUSHNIL), byte(compiler.RET)},
			NumLocals: 0,
			MaxStack:  1,
			Relocs:    []compiler.Reloc{{Kind: compiler.RelocGV, Offset: 0, Module: "B", Name: "f"}},
		}},
		Globals: []string{"f"},
		Atoms:   []string{"ok"},
	}
}

// TestWriteReadModuleRoundTrip covers the gob encode/decode pair rhom.go
// wraps for the .rhom file format: every field of compiler.Module and its
// nested Func/Reloc slices must survive the round trip unchanged.
func TestWriteReadModuleRoundTrip(t *testing.T) {
	m := sampleModule()
	path := filepath.Join(t.TempDir(), "a.rhom")

	var stdout bytes.Buffer
	require.NoError(t, writeModule(&stdout, m, path))
	require.Empty(t, stdout.Bytes(), "writing to a real path must not also write to stdio")

	got, err := readModule(path)
	require.NoError(t, err)
	require.Equal(t, m.Name, got.Name)
	require.Equal(t, m.Imports, got.Imports)
	require.Equal(t, m.Globals, got.Globals)
	require.Equal(t, m.Atoms, got.Atoms)
	require.Len(t, got.Funcs, 1)
	require.Equal(t, m.Funcs[0].Code, got.Funcs[0].Code)
	require.Equal(t, m.Funcs[0].Relocs, got.Funcs[0].Relocs)
}

// TestWriteModuleToStdout covers the "-" path sentinel writing to stdio
// instead of the filesystem.
func TestWriteModuleToStdout(t *testing.T) {
	m := sampleModule()
	var stdout bytes.Buffer
	require.NoError(t, writeModule(&stdout, m, "-"))
	require.NotEmpty(t, stdout.Bytes())
}

// TestWriteReadProgramRoundTrip covers the same gob round trip for a fully
// linked *linker.Program, the artifact --encode-only persists.
func TestWriteReadProgramRoundTrip(t *testing.T) {
	mod := sampleModule()
	mod.Imports = nil
	mod.Funcs[0].Relocs = nil

	prog, err := linker.New().Link(mod)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.rhoprog")
	var stdout bytes.Buffer
	require.NoError(t, writeProgram(&stdout, prog, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	var got linker.Program
	require.NoError(t, gob.NewDecoder(bytes.NewReader(data)).Decode(&got))
	require.Len(t, got.Modules, 1)
	require.Equal(t, prog.Modules[0].Name, got.Modules[0].Name)
	require.Equal(t, prog.Modules[0].Funcs[0].Code, got.Modules[0].Funcs[0].Code)
}

// TestOutPathForDerivesSiblingPath covers the default .rhoasm -> .rhom
// naming and the explicit --out override.
func TestOutPathForDerivesSiblingPath(t *testing.T) {
	require.Equal(t, "mod.rhom", outPathFor("mod.rhoasm", ""))
	require.Equal(t, "custom.out", outPathFor("mod.rhoasm", "custom.out"))
	require.Equal(t, "noext.rhom", outPathFor("noext", ""))
}

// TestAsmModuleDisModuleRoundTrip covers the module-level text header
// format (.module/.import/.global/.atom/.func) AsmModule parses and
// DisModule prints, for a function whose body only uses opcodes
// compiler.Asm's narrow grammar supports.
func TestAsmModuleDisModuleRoundTrip(t *testing.T) {
	src := `
.module A
.import B
.global f
.atom ok
.func f params=1 variadic=0 locals=0
push_int32 2
ret
.endfunc
`
	m, err := AsmModule(src)
	require.NoError(t, err)
	require.Equal(t, "A", m.Name)
	require.Equal(t, []string{"B"}, m.Imports)
	require.Equal(t, []string{"f"}, m.Globals)
	require.Equal(t, []string{"ok"}, m.Atoms)
	require.Len(t, m.Funcs, 1)
	require.Equal(t, 1, m.Funcs[0].NumParams)

	var stdout bytes.Buffer
	DisModule(mainer.Stdio{Stdout: &stdout}, m)
	out := stdout.String()
	require.Contains(t, out, ".module A")
	require.Contains(t, out, ".import B")
	require.Contains(t, out, ".global f")
	require.Contains(t, out, ".atom ok")
	require.Contains(t, out, ".func f params=1")
	require.Contains(t, out, "push_int32")
	require.Contains(t, out, ".endfunc")
}

// TestAsmModuleMissingModuleDirective covers the required .module header.
func TestAsmModuleMissingModuleDirective(t *testing.T) {
	_, err := AsmModule(".global x\n")
	require.Error(t, err)
}

// TestAsmModuleRequiresAtLeastOneFunc covers the Funcs[0]-is-module-init
// invariant compiler.Module documents.
func TestAsmModuleRequiresAtLeastOneFunc(t *testing.T) {
	_, err := AsmModule(".module A\n")
	require.Error(t, err)
}

// TestAsmModuleMissingEndfunc covers an unterminated .func block.
func TestAsmModuleMissingEndfunc(t *testing.T) {
	src := ".module A\n.func main\npush_nil\nret\n"
	_, err := AsmModule(src)
	require.Error(t, err)
}
