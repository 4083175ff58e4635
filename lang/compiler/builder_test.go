package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestBuilderEmitUint32RecordsReloc covers the relocation bookkeeping
// storeBinding/loadBinding rely on: a global access emits a 4-byte operand
// plus a Reloc pointing at that exact offset.
func TestBuilderEmitUint32RecordsReloc(t *testing.T) {
	b := newBuilder()
	b.emitUint32(GETGLOBAL, 0, +1)
	b.reloc(RelocGP, b.pc()-4, "", "")
	require.Len(t, b.relocs, 1)
	require.Equal(t, RelocGP, b.relocs[0].Kind)
	require.Equal(t, b.pc()-4, b.relocs[0].Offset)
}

// TestBuilderJumpForwardFixup covers a forward jump whose label is bound
// after the jump is emitted: finish must patch the correct pc-relative
// offset.
func TestBuilderJumpForwardFixup(t *testing.T) {
	b := newBuilder()
	end := b.newLabel()
	b.emitJump(JMP, end, 0)
	jumpOperandPC := b.pc() - 4
	b.bindLabel(end)
	b.emit(PUSHNIL)
	code := b.finish()

	// the jmp's operand is the offset from (operandPC+4) to the bound
	// label's pc, which is exactly where PUSHNIL's opcode byte sits.
	offset := int32(code[jumpOperandPC]) | int32(code[jumpOperandPC+1])<<8 | int32(code[jumpOperandPC+2])<<16 | int32(code[jumpOperandPC+3])<<24
	target := int(offset) + jumpOperandPC + 4
	require.Equal(t, jumpOperandPC+4, target, "jmp with nothing between it and the bound label must have a zero-length forward offset")
}

// TestBuilderStackUnderflowPanics covers adjustStack's invariant: the
// builder never lets a function's tracked stack depth go negative, since
// that would indicate a code-generation bug rather than a runtime
// condition.
func TestBuilderStackUnderflowPanics(t *testing.T) {
	b := newBuilder()
	require.Panics(t, func() {
		b.emit(POP)
	})
}

// TestBuilderMaxStackDepthTracksPeak covers MaxStack reflecting the peak
// depth reached, not the depth at the end of the function.
func TestBuilderMaxStackDepthTracksPeak(t *testing.T) {
	b := newBuilder()
	b.emitUint32(PUSHINT32, 1, +1)
	b.emitUint32(PUSHINT32, 2, +1)
	b.emitUint32(PUSHINT32, 3, +1)
	b.emit(ADD)
	b.emit(ADD)
	require.Equal(t, 3, b.maxStackDepth)
	require.Equal(t, 1, b.stackDepth)
}
