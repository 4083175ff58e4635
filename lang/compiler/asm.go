package compiler

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Dasm renders one function's bytecode as a human-readable instruction
// listing, one instruction per line, jump targets shown as absolute pc.
// This (and Asm, below) exists for the same reason the teacher's asm.go
// does: it lets the compiler and VM be tested at the bytecode level
// without a lexer or parser to produce input, since both of those are out
// of scope here.
func Dasm(f *Func) string {
	var sb strings.Builder
	code := f.Code
	pc := 0
	for pc < len(code) {
		op := Opcode(code[pc])
		start := pc
		pc++
		fmt.Fprintf(&sb, "%04x %-16s", start, op)
		switch {
		case isJump(op):
			offset := int32(binary.LittleEndian.Uint32(code[pc : pc+4]))
			target := int(offset) + pc + 4
			fmt.Fprintf(&sb, "%04x", target)
			pc += 4
		case op == GETLOCAL || op == SETLOCAL || op == GETARG || op == SETARG || op == GETUPVAL || op == SETUPVAL:
			idx := binary.LittleEndian.Uint16(code[pc : pc+2])
			fmt.Fprintf(&sb, "%d", idx)
			pc += 2
		case op == PUSHINT32:
			v := int32(binary.LittleEndian.Uint32(code[pc : pc+4]))
			fmt.Fprintf(&sb, "%d", v)
			pc += 4
		case op == PUSHFLOAT:
			bits := binary.LittleEndian.Uint64(code[pc : pc+8])
			fmt.Fprintf(&sb, "%v", math.Float64frombits(bits))
			pc += 8
		case op == PUSHATOM || op == MKVEC:
			v := binary.LittleEndian.Uint32(code[pc : pc+4])
			fmt.Fprintf(&sb, "%d", v)
			pc += 4
		case op == PUSHCSTR:
			end := pc
			for code[end] != 0 {
				end++
			}
			fmt.Fprintf(&sb, "%q", string(code[pc:end]))
			pc = end + 1
		case op == DUPN || op == POPN || op == EQMANY || op == PUSHSINT || op == PUSHNILS || op == VECGETHARD:
			fmt.Fprintf(&sb, "%d", code[pc])
			pc++
		case op == BUILTIN:
			idx := binary.LittleEndian.Uint16(code[pc : pc+2])
			argc := code[pc+2]
			fmt.Fprintf(&sb, "%d %d", idx, argc)
			pc += 3
		case op == CALL || op == TAILCALL || op == CLOSE:
			fmt.Fprintf(&sb, "%d", code[pc])
			pc++
		case op == MKFN:
			v := binary.LittleEndian.Uint32(code[pc : pc+4])
			fmt.Fprintf(&sb, "%d", v)
			pc += 4
		case op == MKCLOSURE:
			k := code[pc]
			pc++
			idx := binary.LittleEndian.Uint32(code[pc : pc+4])
			pc += 4
			fmt.Fprintf(&sb, "%d fn=%d", k, idx)
			for i := byte(0); i < k; i++ {
				kind := code[pc]
				pc++
				slot := binary.LittleEndian.Uint16(code[pc : pc+2])
				pc += 2
				fmt.Fprintf(&sb, " [%d:%d]", kind, slot)
			}
		case op == ALLOCGLOBALS || op == GETGLOBAL || op == SETGLOBAL:
			page := binary.LittleEndian.Uint32(code[pc : pc+4])
			pc += 4
			idx := binary.LittleEndian.Uint32(code[pc : pc+4])
			pc += 4
			fmt.Fprintf(&sb, "%d %d", page, idx)
		case op == DEFATOM:
			num := binary.LittleEndian.Uint32(code[pc : pc+4])
			pc += 4
			end := pc
			for code[end] != 0 {
				end++
			}
			fmt.Fprintf(&sb, "%d %q", num, string(code[pc:end]))
			pc = end + 1
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Asm assembles a simple one-function textual listing into a Func. It
// supports the fixed-arity opcodes plus push_int32/push_cstr/jmp family
// with numeric (not label) jump targets given as an absolute pc, which is
// enough for the round-trip tests in this package: write source, Dasm,
// compare; or hand-author small programs for the VM tests directly as
// Funcs without going through Asm at all. Asm is kept intentionally
// narrow rather than a full mirror of Dasm's formats.
func Asm(src string) (*Func, error) {
	b := newBuilder()
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		op, ok := LookupOpcode(fields[0])
		if !ok {
			return nil, fmt.Errorf("asm: unknown mnemonic %q", fields[0])
		}
		args := fields[1:]
		if err := assembleOne(b, op, args); err != nil {
			return nil, err
		}
	}
	return &Func{Code: b.finish(), MaxStack: b.maxStackDepth}, nil
}

func assembleOne(b *builder, op Opcode, args []string) error {
	switch op {
	case PUSHINT32:
		n, err := strconv.ParseInt(args[0], 10, 32)
		if err != nil {
			return err
		}
		b.emitUint32(op, uint32(int32(n)), +1)
	case PUSHCSTR:
		b.emitCString(op, strings.Trim(args[0], `"`), +1)
	case GETLOCAL, SETLOCAL, GETARG, SETARG, GETUPVAL, SETUPVAL:
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		delta := +1
		if op == SETLOCAL || op == SETARG || op == SETUPVAL {
			delta = -1
		}
		b.emitUint16(op, uint16(n), delta)
	case JMP, JT, JF:
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		delta := 0
		if op != JMP {
			delta = -1
		}
		b.code = append(b.code, byte(op), 0, 0, 0, 0)
		offset := int32(n - (len(b.code)))
		binary.LittleEndian.PutUint32(b.code[len(b.code)-4:], uint32(offset))
		b.adjustStack(delta)
	case CALL, TAILCALL:
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		b.emitByte(op, byte(n), -n)
	default:
		if eff, ok := stackEffect[op]; ok && eff != variableStackEffect {
			b.emit(op)
			return nil
		}
		return fmt.Errorf("asm: opcode %v not supported by the simplified assembler", op)
	}
	return nil
}
