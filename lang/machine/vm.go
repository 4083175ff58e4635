package machine

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/bizarrecake/rho/lang/compiler"
	"github.com/bizarrecake/rho/lang/linker"
)

// VM owns the state shared by every Thread it spawns: the collector, the
// global pages array, the atom table, and the builtin table (spec §4.6).
// It is the long-lived object a host keeps across repeated incremental
// links; `rho link` creates one per invocation.
type VM struct {
	gc       *Collector
	globals  [][]Value
	atoms    *AtomTable
	builtins *BuiltinTable

	// MaxSteps and GCThreshold seed every Thread this VM spawns (see the
	// fields of the same name on Thread); a driver that loads
	// internal/config.Config assigns these right after NewVM and before
	// the first NewThread/RunModule call.
	MaxSteps    int64
	GCThreshold int
}

// NewVM creates a VM with a fresh collector, atom table and the standard
// builtin table.
func NewVM() *VM {
	return &VM{
		gc:       NewCollector(),
		atoms:    NewAtomTable(),
		builtins: NewBuiltinTable(),
	}
}

// NewThread spawns a Thread sharing this VM's collector/globals/atoms/
// builtins, writing builtin output to stdout, and seeded with the VM's
// MaxSteps/GCThreshold.
func (vm *VM) NewThread(stdout io.Writer) *Thread {
	th := NewThread(vm.gc, vm.globals, vm.atoms, vm.builtins, stdout)
	th.MaxSteps = vm.MaxSteps
	th.GCThreshold = vm.GCThreshold
	return th
}

// RunModule executes m on a fresh Thread sharing this VM's shared state,
// keeping vm.globals in sync with whatever pages that Thread allocated.
func (vm *VM) RunModule(m *linker.LinkedModule, stdout io.Writer) (Value, error) {
	th := vm.NewThread(stdout)
	th.globals = vm.globals
	result, err := th.RunModule(m)
	vm.globals = th.globals
	return result, err
}

// run executes bytecode for fr until its function returns, dispatching
// every opcode compiler.Opcode defines (spec §6).
func (th *Thread) run(fr *frame) (Value, error) {
	for {
		if th.MaxSteps > 0 {
			th.steps++
			if th.steps > th.MaxSteps {
				return nil, ErrStepLimit
			}
		}
		if th.GCThreshold > 0 && th.gc.Allocs()-th.lastCollectAt >= th.GCThreshold {
			th.Collect()
			th.lastCollectAt = th.gc.Allocs()
		}

		code := fr.closure.Fn.Code
		op := compiler.Opcode(code[fr.pc])
		fr.pc++

		switch op {
		case compiler.NOP, compiler.BREAKPOINT:
			// no-op

		case compiler.EXIT:
			return th.pop(), nil

		case compiler.PUSHINT32:
			v := int32(binary.LittleEndian.Uint32(code[fr.pc : fr.pc+4]))
			fr.pc += 4
			th.push(NewIntFromInt64(int64(v)))

		case compiler.PUSHFLOAT:
			bits := binary.LittleEndian.Uint64(code[fr.pc : fr.pc+8])
			fr.pc += 8
			f := math.Float64frombits(bits)
			if mf := th.current(); mf != nil {
				th.push(NewDecimalFromFloat64(f, uint(mf.bits)))
			} else {
				th.push(Float(f))
			}

		case compiler.PUSHNIL:
			th.push(NilValue)

		case compiler.PUSHNILS:
			n := int(code[fr.pc])
			fr.pc++
			for i := 0; i < n; i++ {
				th.push(NilValue)
			}

		case compiler.PUSHTRUE:
			th.push(Bool(true))

		case compiler.PUSHFALSE:
			th.push(Bool(false))

		case compiler.PUSHSINT:
			ord := code[fr.pc]
			fr.pc++
			th.push(NewIntFromInt64(int64(ord)))

		case compiler.PUSHEMPTYLIST:
			th.push(EmptyListValue)

		case compiler.PUSHCSTR:
			end := fr.pc
			for code[end] != 0 {
				end++
			}
			th.push(String(code[fr.pc:end]))
			fr.pc = end + 1

		case compiler.PUSHATOM:
			num := binary.LittleEndian.Uint32(code[fr.pc : fr.pc+4])
			fr.pc += 4
			name := fr.closure.Module.Atoms[num]
			th.push(th.atoms.Intern(name))

		case compiler.DUP:
			th.push(th.peek(0))

		case compiler.DUPN:
			n := int(code[fr.pc])
			fr.pc++
			th.push(th.peek(n))

		case compiler.POP:
			th.pop()

		case compiler.POPN:
			n := int(code[fr.pc])
			fr.pc++
			th.popN(n)

		case compiler.SWAP:
			n := len(th.stack)
			th.stack[n-1], th.stack[n-2] = th.stack[n-2], th.stack[n-1]

		case compiler.GETLOCAL:
			idx := binary.LittleEndian.Uint16(code[fr.pc : fr.pc+2])
			fr.pc += 2
			th.push(th.stack[fr.bp+frameHeaderSize+fr.closure.Fn.NumParams+int(idx)])

		case compiler.SETLOCAL:
			idx := binary.LittleEndian.Uint16(code[fr.pc : fr.pc+2])
			fr.pc += 2
			th.stack[fr.bp+frameHeaderSize+fr.closure.Fn.NumParams+int(idx)] = th.pop()

		case compiler.GETARG:
			idx := binary.LittleEndian.Uint16(code[fr.pc : fr.pc+2])
			fr.pc += 2
			th.push(th.stack[fr.bp+frameHeaderSize+int(idx)])

		case compiler.GETUPVAL:
			idx := binary.LittleEndian.Uint16(code[fr.pc : fr.pc+2])
			fr.pc += 2
			th.push(fr.closure.Env[idx].Get())

		case compiler.SETUPVAL:
			idx := binary.LittleEndian.Uint16(code[fr.pc : fr.pc+2])
			fr.pc += 2
			fr.closure.Env[idx].Set(th.pop())

		case compiler.SETARG:
			idx := binary.LittleEndian.Uint16(code[fr.pc : fr.pc+2])
			fr.pc += 2
			th.stack[fr.bp+frameHeaderSize+int(idx)] = th.pop()

		case compiler.ADD, compiler.SUB, compiler.MUL, compiler.DIV, compiler.POW, compiler.MOD:
			b := th.pop()
			a := th.pop()
			v, err := arith(op, a, b)
			if err != nil {
				return nil, err
			}
			th.push(v)

		case compiler.AND:
			b := th.pop()
			a := th.pop()
			th.push(Bool(isTruthy(a) && isTruthy(b)))

		case compiler.OR:
			b := th.pop()
			a := th.pop()
			th.push(Bool(isTruthy(a) || isTruthy(b)))

		case compiler.NOT:
			v := th.pop()
			th.push(Bool(!isTruthy(v)))

		case compiler.UNEG:
			v := th.pop()
			nv, err := negate(v)
			if err != nil {
				return nil, err
			}
			th.push(nv)

		case compiler.UPOS:
			v := th.pop()
			switch v.(type) {
			case Int, Float, Decimal:
				th.push(v)
			default:
				return nil, ErrTypeMismatch
			}

		case compiler.EQ:
			b := th.pop()
			a := th.pop()
			th.push(Bool(valuesEqual(a, b)))

		case compiler.NEQ:
			b := th.pop()
			a := th.pop()
			th.push(Bool(!valuesEqual(a, b)))

		case compiler.LT, compiler.LTE, compiler.GT, compiler.GTE:
			b := th.pop()
			a := th.pop()
			cmp, err := valuesCompare(a, b)
			if err != nil {
				return nil, err
			}
			var result bool
			switch op {
			case compiler.LT:
				result = cmp < 0
			case compiler.LTE:
				result = cmp <= 0
			case compiler.GT:
				result = cmp > 0
			case compiler.GTE:
				result = cmp >= 0
			}
			th.push(Bool(result))

		case compiler.EQMANY:
			// Pops exactly k values (spec §6, opcode 0x36's stack picture),
			// then pushes true iff all k are equal to the first. Popping
			// always runs to completion so the stack stays balanced, but
			// the comparison loop stops at the first mismatch.
			k := int(code[fr.pc])
			fr.pc++
			values := make([]Value, k)
			for i := k - 1; i >= 0; i-- {
				values[i] = th.pop()
			}
			all := true
			for i := 1; i < k && all; i++ {
				if !valuesEqual(values[0], values[i]) {
					all = false
				}
			}
			th.push(Bool(all))

		case compiler.CONS:
			tail := th.pop()
			head := th.pop()
			c := th.gc.AllocCons(head, tail)
			th.push(c)
			th.gc.Unprotect(c)

		case compiler.CAR:
			v := th.pop()
			c, ok := v.(*Cons)
			if !ok {
				return nil, ErrTypeMismatch
			}
			th.push(c.Head)

		case compiler.CDR:
			v := th.pop()
			c, ok := v.(*Cons)
			if !ok {
				return nil, ErrTypeMismatch
			}
			th.push(c.Tail)

		case compiler.MKVEC:
			n := int(binary.LittleEndian.Uint32(code[fr.pc : fr.pc+4]))
			fr.pc += 4
			elems := make([]Value, n)
			for i := n - 1; i >= 0; i-- {
				elems[i] = th.pop()
			}
			v := th.gc.AllocVector(elems)
			th.push(v)
			th.gc.Unprotect(v)

		case compiler.VECGET:
			idxv := th.pop()
			objv := th.pop()
			vec, ok := objv.(*Vector)
			if !ok {
				return nil, ErrTypeMismatch
			}
			i, err := indexOf(idxv)
			if err != nil {
				return nil, err
			}
			if i < 0 || i >= len(vec.Elems) {
				return nil, fmt.Errorf("machine: vector index out of range")
			}
			th.push(vec.Elems[i])

		case compiler.VECSET:
			val := th.pop()
			idxv := th.pop()
			objv := th.pop()
			vec, ok := objv.(*Vector)
			if !ok {
				return nil, ErrTypeMismatch
			}
			i, err := indexOf(idxv)
			if err != nil {
				return nil, err
			}
			if i < 0 || i >= len(vec.Elems) {
				return nil, fmt.Errorf("machine: vector index out of range")
			}
			vec.Elems[i] = val
			th.push(val)

		case compiler.VECGETHARD:
			i := int(code[fr.pc])
			fr.pc++
			v := th.pop()
			vec, ok := v.(*Vector)
			if !ok {
				return nil, ErrTypeMismatch
			}
			th.push(vec.Elems[i])

		case compiler.JMP:
			off := int32(binary.LittleEndian.Uint32(code[fr.pc : fr.pc+4]))
			fr.pc = fr.pc + 4 + int(off)

		case compiler.JT:
			off := int32(binary.LittleEndian.Uint32(code[fr.pc : fr.pc+4]))
			next := fr.pc + 4
			if isTruthy(th.pop()) {
				fr.pc = next + int(off)
			} else {
				fr.pc = next
			}

		case compiler.JF:
			off := int32(binary.LittleEndian.Uint32(code[fr.pc : fr.pc+4]))
			next := fr.pc + 4
			if !isTruthy(th.pop()) {
				fr.pc = next + int(off)
			} else {
				fr.pc = next
			}

		case compiler.MKFN:
			idx := binary.LittleEndian.Uint32(code[fr.pc : fr.pc+4])
			fr.pc += 4
			target := fr.closure.Module.Funcs[idx]
			cl := th.gc.AllocClosure(&Closure{Fn: target, Module: fr.closure.Module})
			th.push(cl)
			th.gc.Unprotect(cl)

		case compiler.MKCLOSURE:
			k := int(code[fr.pc])
			fr.pc++
			idx := binary.LittleEndian.Uint32(code[fr.pc : fr.pc+4])
			fr.pc += 4
			env := make([]*Upvalue, k)
			for i := 0; i < k; i++ {
				kind := code[fr.pc]
				fr.pc++
				slot := binary.LittleEndian.Uint16(code[fr.pc : fr.pc+2])
				fr.pc += 2
				if kind == compiler.CaptureUpval {
					env[i] = fr.closure.Env[slot]
					continue
				}
				abs := fr.bp + frameHeaderSize + int(slot)
				uv := th.gc.FindOpenUpvalue(&th.stack, abs)
				if uv == nil {
					uv = th.gc.AllocUpvalue(&th.stack, abs)
					th.gc.Unprotect(uv)
				}
				env[i] = uv
			}
			target := fr.closure.Module.Funcs[idx]
			cl := th.gc.AllocClosure(&Closure{Fn: target, Env: env, Module: fr.closure.Module})
			th.push(cl)
			th.gc.Unprotect(cl)

		case compiler.GETFUN:
			th.push(fr.closure)

		case compiler.CLOSE:
			n := int(code[fr.pc])
			fr.pc++
			from := len(th.stack) - n
			th.gc.CloseUpvaluesFrom(&th.stack, from)

		case compiler.CALL, compiler.TAILCALL:
			argc := int(code[fr.pc])
			fr.pc++
			args := make([]Value, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i] = th.pop()
			}
			callee := th.pop()

			if op == compiler.TAILCALL {
				if cl, ok := callee.(*Closure); ok {
					th.gc.CloseUpvaluesFrom(&th.stack, fr.bp+frameHeaderSize)
					th.stack = th.stack[:fr.bp]
					th.tailInto(fr, cl, args)
					continue
				}
				c, ok := callee.(Callable)
				if !ok {
					return nil, ErrNotCallable
				}
				return c.Call(th, args)
			}

			c, ok := callee.(Callable)
			if !ok {
				return nil, ErrNotCallable
			}
			result, err := c.Call(th, args)
			if err != nil {
				return nil, err
			}
			th.push(result)

		case compiler.RET:
			return th.pop(), nil

		case compiler.ALLOCGLOBALS:
			page := int(binary.LittleEndian.Uint32(code[fr.pc : fr.pc+4]))
			fr.pc += 4
			count := int(binary.LittleEndian.Uint32(code[fr.pc : fr.pc+4]))
			fr.pc += 4
			th.allocGlobals(page, count)

		case compiler.GETGLOBAL:
			for _, r := range fr.closure.Fn.Relocs {
				if r.Kind == compiler.RelocGV && r.Offset == fr.pc {
					return nil, ErrUnresolvedImport
				}
			}
			page := int(binary.LittleEndian.Uint32(code[fr.pc : fr.pc+4]))
			fr.pc += 4
			idx := int(binary.LittleEndian.Uint32(code[fr.pc : fr.pc+4]))
			fr.pc += 4
			th.push(th.globalPage(page)[idx])

		case compiler.SETGLOBAL:
			page := int(binary.LittleEndian.Uint32(code[fr.pc : fr.pc+4]))
			fr.pc += 4
			idx := int(binary.LittleEndian.Uint32(code[fr.pc : fr.pc+4]))
			fr.pc += 4
			th.globalPage(page)[idx] = th.pop()

		case compiler.DEFATOM:
			fr.pc += 4 // module-local ordinal; unused, the name alone is interned
			end := fr.pc
			for code[end] != 0 {
				end++
			}
			name := string(code[fr.pc:end])
			fr.pc = end + 1
			th.atoms.Intern(name)

		case compiler.BUILTIN:
			idx := int(binary.LittleEndian.Uint16(code[fr.pc : fr.pc+2]))
			fr.pc += 2
			argc := int(code[fr.pc])
			fr.pc++
			b, ok := th.builtins.At(idx)
			if !ok {
				return nil, fmt.Errorf("machine: undefined builtin index %d", idx)
			}
			args := make([]Value, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i] = th.pop()
			}
			result, err := b.Call(th, args)
			if err != nil {
				return nil, err
			}
			th.push(result)

		case compiler.PUSHMICROFRAME:
			digits := th.pop()
			bits := th.pop()
			bi, ok1 := digits.(Int)
			bb, ok2 := bits.(Int)
			if !ok1 || !ok2 {
				return nil, ErrTypeMismatch
			}
			th.pushMicroframe(int32(bb.Float64()), int32(bi.Float64()))

		case compiler.POPMICROFRAME:
			th.popMicroframe()

		default:
			return nil, fmt.Errorf("machine: illegal opcode 0x%02x", byte(op))
		}
	}
}

// tailInto replaces fr's activation in place with a call to cl with args:
// it only mutates fr and pushes cl's argument/local slots, it never calls
// th.run itself. The caller (run's TAILCALL case) continues its own
// dispatch loop on the mutated fr instead of recursing, so a tail call
// reuses the current frame AND the current Go stack frame - genuine tail-
// call elimination for self- and mutually-recursive Rho functions (spec
// §4.6 "tail_call"), not just Rho-frame reuse nested inside a growing
// chain of Go calls.
func (th *Thread) tailInto(fr *frame, cl *Closure, args []Value) {
	fn := cl.Fn
	bp := len(th.stack)
	nslots := frameHeaderSize + fn.NumParams + fn.NumLocals
	for i := 0; i < nslots; i++ {
		th.push(NilValue)
	}

	fixed := fn.NumParams
	if fn.Variadic {
		fixed--
	}
	for i := 0; i < fixed && i < len(args); i++ {
		th.stack[bp+frameHeaderSize+i] = args[i]
	}
	if fn.Variadic {
		var rest []Value
		if len(args) > fixed {
			rest = append(rest, args[fixed:]...)
		}
		th.stack[bp+frameHeaderSize+fixed] = th.gc.AllocVector(rest)
	}

	fr.closure = cl
	fr.pc = 0
	fr.bp = bp
}

func isTruthy(v Value) bool {
	switch v := v.(type) {
	case Bool:
		return bool(v)
	case Nil:
		return false
	default:
		return true
	}
}

func indexOf(v Value) (int, error) {
	i, ok := v.(Int)
	if !ok {
		return 0, ErrTypeMismatch
	}
	return int(i.Float64()), nil
}

func negate(v Value) (Value, error) {
	switch v := v.(type) {
	case Int:
		return v.Neg(), nil
	case Float:
		return -v, nil
	case Decimal:
		return v.Neg(), nil
	default:
		return nil, ErrTypeMismatch
	}
}

// arith dispatches a binary arithmetic opcode across Rho's numeric tower
// (Int/Float/Decimal) plus the string-specific cases ADD (concatenation)
// and MOD (printf-style interpolation, spec §4.2 string interpolation
// compiling to a `%` call).
func arith(op compiler.Opcode, a, b Value) (Value, error) {
	if sa, ok := a.(String); ok {
		switch op {
		case compiler.ADD:
			if sb, ok := b.(String); ok {
				return sa + sb, nil
			}
			return sa + String(b.String()), nil
		case compiler.MOD:
			vec, ok := b.(*Vector)
			if !ok {
				return nil, ErrTypeMismatch
			}
			out, err := formatTemplate(string(sa), vec.Elems)
			if err != nil {
				return nil, err
			}
			return String(out), nil
		}
	}

	ai, aIsInt := a.(Int)
	bi, bIsInt := b.(Int)
	if aIsInt && bIsInt {
		switch op {
		case compiler.ADD:
			return ai.Add(bi), nil
		case compiler.SUB:
			return ai.Sub(bi), nil
		case compiler.MUL:
			return ai.Mul(bi), nil
		case compiler.DIV:
			return ai.Div(bi)
		case compiler.MOD:
			return ai.Mod(bi)
		case compiler.POW:
			return ai.Pow(bi), nil
		}
	}

	ad, aIsDec := a.(Decimal)
	bd, bIsDec := b.(Decimal)
	if aIsDec || bIsDec {
		if !aIsDec {
			ad = NewDecimalFromFloat64(toFloat64(a), 53)
		}
		if !bIsDec {
			bd = NewDecimalFromFloat64(toFloat64(b), 53)
		}
		switch op {
		case compiler.ADD:
			return ad.Add(bd), nil
		case compiler.SUB:
			return ad.Sub(bd), nil
		case compiler.MUL:
			return ad.Mul(bd), nil
		case compiler.DIV:
			return ad.Div(bd), nil
		case compiler.POW:
			bf, _ := bd.v.Float64()
			af, _ := ad.v.Float64()
			return NewDecimalFromFloat64(math.Pow(af, bf), 53), nil
		case compiler.MOD:
			af, _ := ad.v.Float64()
			bf, _ := bd.v.Float64()
			return NewDecimalFromFloat64(math.Mod(af, bf), 53), nil
		}
	}

	af, bf := toFloat64(a), toFloat64(b)
	switch op {
	case compiler.ADD:
		return Float(af + bf), nil
	case compiler.SUB:
		return Float(af - bf), nil
	case compiler.MUL:
		return Float(af * bf), nil
	case compiler.DIV:
		return Float(af / bf), nil
	case compiler.POW:
		return Float(math.Pow(af, bf)), nil
	case compiler.MOD:
		return Float(math.Mod(af, bf)), nil
	}
	return nil, ErrTypeMismatch
}

func toFloat64(v Value) float64 {
	switch v := v.(type) {
	case Int:
		return v.Float64()
	case Float:
		return float64(v)
	case Decimal:
		f, _ := v.v.Float64()
		return f
	default:
		return 0
	}
}

func valuesEqual(a, b Value) bool {
	switch a := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Bool:
		bb, ok := b.(Bool)
		return ok && a == bb
	case Int:
		bb, ok := b.(Int)
		return ok && a.Cmp(bb) == 0
	case Float:
		bb, ok := b.(Float)
		return ok && a == bb
	case Decimal:
		bb, ok := b.(Decimal)
		return ok && a.Cmp(bb) == 0
	case String:
		bb, ok := b.(String)
		return ok && a == bb
	case Atom:
		bb, ok := b.(Atom)
		return ok && a.Num == bb.Num
	case EmptyList:
		_, ok := b.(EmptyList)
		return ok
	case *Cons:
		bb, ok := b.(*Cons)
		return ok && valuesEqual(a.Head, bb.Head) && valuesEqual(a.Tail, bb.Tail)
	case *Vector:
		bb, ok := b.(*Vector)
		if !ok || len(a.Elems) != len(bb.Elems) {
			return false
		}
		for i := range a.Elems {
			if !valuesEqual(a.Elems[i], bb.Elems[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func valuesCompare(a, b Value) (int, error) {
	if sa, ok := a.(String); ok {
		sb, ok := b.(String)
		if !ok {
			return 0, ErrTypeMismatch
		}
		return strings.Compare(string(sa), string(sb)), nil
	}
	ai, aIsInt := a.(Int)
	bi, bIsInt := b.(Int)
	if aIsInt && bIsInt {
		return ai.Cmp(bi), nil
	}
	if _, ok := a.(Decimal); ok {
		return decimalCompare(a, b)
	}
	if _, ok := b.(Decimal); ok {
		return decimalCompare(a, b)
	}
	switch a.(type) {
	case Int, Float:
	default:
		return 0, ErrTypeMismatch
	}
	switch b.(type) {
	case Int, Float:
	default:
		return 0, ErrTypeMismatch
	}
	af, bf := toFloat64(a), toFloat64(b)
	switch {
	case af < bf:
		return -1, nil
	case af > bf:
		return 1, nil
	default:
		return 0, nil
	}
}

func decimalCompare(a, b Value) (int, error) {
	ad, aok := a.(Decimal)
	if !aok {
		ad = NewDecimalFromFloat64(toFloat64(a), 53)
	}
	bd, bok := b.(Decimal)
	if !bok {
		bd = NewDecimalFromFloat64(toFloat64(b), 53)
	}
	return ad.Cmp(bd), nil
}

// formatTemplate replaces every "{n}" placeholder in tmpl with args[n]'s
// String() rendering (spec §4.2 string interpolation). A backslash escapes
// the character that follows it, so "\{0}" emits a literal "{0}" instead of
// substituting args[0]; this mirrors original_source/src/runtime/value.cpp's
// _format_string, which reads "{" as a placeholder, "\" as an escape for the
// next byte, and anything else literally.
func formatTemplate(tmpl string, args []Value) (string, error) {
	var sb strings.Builder
	i := 0
	for i < len(tmpl) {
		switch tmpl[i] {
		case '{':
			i++
			start := i
			for i < len(tmpl) && tmpl[i] >= '0' && tmpl[i] <= '9' {
				i++
			}
			if i == len(tmpl) || tmpl[i] != '}' || i == start {
				return "", ErrInvalidFormat
			}
			n, err := strconv.Atoi(tmpl[start:i])
			if err != nil {
				return "", ErrInvalidFormat
			}
			if n < 0 || n >= len(args) {
				return "", ErrFormatIndexRange
			}
			sb.WriteString(args[n].String())
			i++

		case '\\':
			i++
			if i == len(tmpl) {
				return "", ErrInvalidFormat
			}
			sb.WriteByte(tmpl[i])
			i++

		default:
			sb.WriteByte(tmpl[i])
			i++
		}
	}
	return sb.String(), nil
}
