package compiler

import (
	"encoding/binary"
	"fmt"
	"math"
)

// label is an opaque forward-reference handle into a builder's code
// buffer, resolved by bindLabel before finish is called.
type label int

// builder assembles one function's bytecode using the linear label/fixup/
// relocation model (spec §4.3): instructions are emitted directly to a
// byte buffer as they are generated in a single left-to-right pass;
// forward jumps record a fixup to patch once the target label is bound;
// global and import operands record a Reloc for the linker to resolve
// later. This replaces a basic-block/CFG intermediate
// representation entirely - there is no block graph to linearize.
type builder struct {
	code   []byte
	labels []int // pc of each bound label, -1 until bound
	fixups []fixup
	relocs []Reloc

	stackDepth    int
	maxStackDepth int
}

type fixup struct {
	pc    int // offset of the 4-byte operand to patch
	label label
}

func newBuilder() *builder {
	return &builder{}
}

// newLabel allocates an unbound label.
func (b *builder) newLabel() label {
	b.labels = append(b.labels, -1)
	return label(len(b.labels) - 1)
}

// bindLabel fixes l to the current write position.
func (b *builder) bindLabel(l label) {
	b.labels[l] = len(b.code)
}

// adjustStack tracks the operand stack depth so Func.MaxStack can be
// computed without a second pass over the code.
func (b *builder) adjustStack(delta int) {
	b.stackDepth += delta
	if b.stackDepth > b.maxStackDepth {
		b.maxStackDepth = b.stackDepth
	}
	if b.stackDepth < 0 {
		panic(fmt.Sprintf("compiler: stack underflow (depth %d)", b.stackDepth))
	}
}

// emit appends op with no immediate operand.
func (b *builder) emit(op Opcode) {
	b.code = append(b.code, byte(op))
	b.adjustStack(int(stackEffect[op]))
}

// emitStack is like emit but for instructions whose effect is
// immediate-dependent; the caller supplies the true delta.
func (b *builder) emitStack(op Opcode, delta int) {
	b.code = append(b.code, byte(op))
	b.adjustStack(delta)
}

func (b *builder) emitByte(op Opcode, arg byte, delta int) {
	b.code = append(b.code, byte(op), arg)
	b.adjustStack(delta)
}

func (b *builder) emitUint16(op Opcode, arg uint16, delta int) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], arg)
	b.code = append(b.code, byte(op))
	b.code = append(b.code, buf[:]...)
	b.adjustStack(delta)
}

func (b *builder) emitUint32(op Opcode, arg uint32, delta int) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], arg)
	b.code = append(b.code, byte(op))
	b.code = append(b.code, buf[:]...)
	b.adjustStack(delta)
}

func (b *builder) emitInt32(op Opcode, arg int32, delta int) {
	b.emitUint32(op, uint32(arg), delta)
}

func (b *builder) emitFloat64(op Opcode, arg float64, delta int) {
	b.code = append(b.code, byte(op))
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(arg))
	b.code = append(b.code, buf[:]...)
	b.adjustStack(delta)
}

func (b *builder) emitCString(op Opcode, s string, delta int) {
	b.code = append(b.code, byte(op))
	b.code = append(b.code, s...)
	b.code = append(b.code, 0)
	b.adjustStack(delta)
}

// emitJump emits a jump-family instruction targeting l, recording a fixup
// if l is not yet bound (the common case: most jumps are forward).
func (b *builder) emitJump(op Opcode, l label, delta int) {
	b.code = append(b.code, byte(op))
	operandPC := len(b.code)
	b.code = append(b.code, 0, 0, 0, 0)
	b.adjustStack(delta)

	if target := b.labels[l]; target >= 0 {
		b.patchJump(operandPC, target)
	} else {
		b.fixups = append(b.fixups, fixup{pc: operandPC, label: l})
	}
}

func (b *builder) patchJump(operandPC, targetPC int) {
	offset := int32(targetPC - (operandPC + 4))
	binary.LittleEndian.PutUint32(b.code[operandPC:operandPC+4], uint32(offset))
}

// pc reports the current write position, for relocation bookkeeping and
// for match/bp-relative jump computations the compiler needs mid-pass.
func (b *builder) pc() int { return len(b.code) }

// reloc records a pending fixup of the given kind for the 4-byte operand
// starting at absolute code offset operandPC (callers pass b.pc()-4 right
// after emitting that operand).
func (b *builder) reloc(kind RelocKind, operandPC int, module, name string) {
	b.relocs = append(b.relocs, Reloc{Kind: kind, Offset: operandPC, Module: module, Name: name})
}

// finish patches all recorded fixups and returns the final code buffer. It
// panics if a label was never bound, which indicates a bug in the
// compiler (every label the compiler allocates must be reachable).
func (b *builder) finish() []byte {
	for _, fx := range b.fixups {
		target := b.labels[fx.label]
		if target < 0 {
			panic("compiler: unbound label at finish")
		}
		b.patchJump(fx.pc, target)
	}
	return b.code
}
