package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bizarrecake/rho/lang/compiler"
)

// TestAsmDasmRoundTrip exercises the narrow textual assembler/disassembler
// pair over the opcode subset Asm documents as supported (push_int32,
// locals/args/upvals, jumps with absolute targets, call/tailcall, and
// every other fixed-arity zero-operand opcode).
func TestAsmDasmRoundTrip(t *testing.T) {
	src := "push_int32 10\npush_int32 20\nadd\nret\n"
	fn, err := compiler.Asm(src)
	require.NoError(t, err)
	require.Equal(t, 2, fn.MaxStack)

	out := compiler.Dasm(fn)
	require.Contains(t, out, "push_int32")
	require.Contains(t, out, "10")
	require.Contains(t, out, "add")
	require.Contains(t, out, "ret")
}

// TestAsmLocalsAndArgs covers get_arg/set_local operand round-tripping.
func TestAsmLocalsAndArgs(t *testing.T) {
	src := "get_arg 0\nset_local 1\n"
	fn, err := compiler.Asm(src)
	require.NoError(t, err)

	out := compiler.Dasm(fn)
	require.Contains(t, out, "get_arg")
	require.Contains(t, out, "set_local")
}

// TestAsmUnknownMnemonic covers the error path for a typo'd opcode name.
func TestAsmUnknownMnemonic(t *testing.T) {
	_, err := compiler.Asm("frobnicate\n")
	require.Error(t, err)
}

// TestAsmUnsupportedOpcode covers an opcode Asm's assembleOne intentionally
// does not special-case (it has a variable stack effect the simplified
// assembler cannot infer from text alone).
func TestAsmUnsupportedOpcode(t *testing.T) {
	_, err := compiler.Asm("mk_vec 3\n")
	require.Error(t, err)
}

// TestAsmCallStackEffect covers call's variable, arity-dependent stack
// effect: call 2 pops the callee plus 2 arguments and pushes one result, a
// net effect of -2.
func TestAsmCallStackEffect(t *testing.T) {
	src := "push_int32 1\npush_int32 2\npush_int32 3\ncall 2\n"
	fn, err := compiler.Asm(src)
	require.NoError(t, err)
	require.Equal(t, 3, fn.MaxStack)
}
