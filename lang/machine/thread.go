package machine

import (
	"io"

	"github.com/bizarrecake/rho/lang/linker"
)

// frameHeaderSize is the number of reserved stack cells at the base of
// every call frame (spec §4.6 frame layout: bp, bp+1 .. bp+5 are the
// frame header; arguments and locals begin at bp+6). The header cells
// themselves carry no addressable value today - call/return bookkeeping
// is tracked in Thread.frames instead - but the offset is kept so
// GETLOCAL/GETARG/SETLOCAL/SETARG operand encodings agree with the
// documented bp+6 base.
const frameHeaderSize = 6

// frame is one activation record on Thread's call stack.
type frame struct {
	closure *Closure
	pc      int
	bp      int // base index into Thread.stack; argument i lives at bp+frameHeaderSize+i, local i after the arguments
}

// Thread is one Rho execution context: an operand/locals stack shared by
// every frame (so open upvalues can address a slot by absolute index),
// a call stack of frames, and the shared collector/global-page/atom/
// builtin tables a VM wires in before running any code.
type Thread struct {
	stack  []Value
	frames []*frame

	gc       *Collector
	globals  [][]Value
	atoms    *AtomTable
	builtins *BuiltinTable

	microTop *microframe

	Stdout io.Writer

	steps    int64
	MaxSteps int64 // 0 means unlimited

	// GCThreshold, if non-zero, makes this Thread call Collect on its own
	// after every GCThreshold allocations, instead of leaving collection
	// cadence entirely to the embedder (see Collect's doc comment).
	GCThreshold  int
	lastCollectAt int
}

// NewThread creates a Thread sharing the given collector, global pages,
// atom table and builtin table - the same instances a VM hands to every
// Thread it spawns, so values and atoms are comparable across threads.
func NewThread(gc *Collector, globals [][]Value, atoms *AtomTable, builtins *BuiltinTable, stdout io.Writer) *Thread {
	return &Thread{gc: gc, globals: globals, atoms: atoms, builtins: builtins, Stdout: stdout}
}

func (th *Thread) push(v Value) {
	th.stack = append(th.stack, v)
}

func (th *Thread) pop() Value {
	n := len(th.stack) - 1
	v := th.stack[n]
	th.stack[n] = nil
	th.stack = th.stack[:n]
	return v
}

func (th *Thread) peek(fromTop int) Value {
	return th.stack[len(th.stack)-1-fromTop]
}

func (th *Thread) popN(n int) {
	for i := 0; i < n; i++ {
		th.stack[len(th.stack)-1-i] = nil
	}
	th.stack = th.stack[:len(th.stack)-n]
}

// globalPage returns page, growing Thread.globals if the linker assigned
// a page index this Thread has not seen allocated yet.
func (th *Thread) globalPage(page int) []Value {
	for len(th.globals) <= page {
		th.globals = append(th.globals, nil)
	}
	return th.globals[page]
}

func (th *Thread) allocGlobals(page, count int) {
	for len(th.globals) <= page {
		th.globals = append(th.globals, nil)
	}
	if th.globals[page] == nil {
		th.globals[page] = make([]Value, count)
		for i := range th.globals[page] {
			th.globals[page][i] = NilValue
		}
	}
}

// RunModule executes m's module-init function (Funcs[0]) to completion,
// returning its result value.
func (th *Thread) RunModule(m *linker.LinkedModule) (Value, error) {
	cl := &Closure{Fn: m.Funcs[0], Module: m}
	return th.callClosure(cl, nil)
}

// callClosure pushes a new frame for cl, copies args into the frame's
// argument slots (padding missing variadic/optional args with Nil, and
// collecting surplus variadic args into a trailing Vector, spec §4.6
// "call"), and runs the dispatch loop until that frame returns.
func (th *Thread) callClosure(cl *Closure, args []Value) (Value, error) {
	if len(th.frames) > maxCallDepth {
		return nil, ErrCallStackDepth
	}

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

	fr := &frame{closure: cl, bp: bp}
	th.frames = append(th.frames, fr)

	result, err := th.run(fr)

	th.gc.CloseUpvaluesFrom(&th.stack, bp+frameHeaderSize)
	th.frames = th.frames[:len(th.frames)-1]
	th.stack = th.stack[:bp]
	return result, err
}

const maxCallDepth = 4096

// Collect runs one mark-and-sweep cycle (spec §4.7 "collect"), rooted at
// every value currently live on this thread's stack (which covers every
// frame's arguments and locals, since they are slots of that same stack)
// plus every allocated global page. A host embedding the VM decides when
// to call this - e.g. after every N allocations or between REPL
// statements - the way original_source/include/runtime/gc/v1/v1.hpp
// leaves `step`'s cadence to its caller.
func (th *Thread) Collect() {
	roots := make([]Value, 0, len(th.stack))
	roots = append(roots, th.stack...)
	for _, page := range th.globals {
		roots = append(roots, page...)
	}
	th.gc.Collect(roots)
}
