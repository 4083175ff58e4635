package machine

import (
	"bytes"
	"testing"

	"github.com/bizarrecake/rho/lang/compiler"
	"github.com/bizarrecake/rho/lang/linker"
)

// buildMkvecLoop returns a module-init Func that allocates n empty vectors
// in sequence (mk_vec 0; pop, repeated), then returns nil. It is hand-
// assembled directly rather than through compiler.Asm, since mk_vec's
// uint32 operand is one of the opcodes Asm's simplified grammar does not
// special-case (see lang/compiler/asm.go's assembleOne default case).
func buildMkvecLoop(n int) *compiler.Func {
	var code []byte
	for i := 0; i < n; i++ {
		code = append(code, byte(compiler.MKVEC), 0, 0, 0, 0)
		code = append(code, byte(compiler.POP))
	}
	code = append(code, byte(compiler.PUSHNIL), byte(compiler.RET))
	return &compiler.Func{Name: "main", Code: code, MaxStack: 1}
}

// TestThreadGCThresholdTriggersCollect covers the allocation-count cadence
// GCThreshold adds on top of Thread.Collect's own doc comment, which
// otherwise leaves collection timing entirely to the embedder: with a
// small threshold and a function that allocates well past it, Collect
// must run at least once during execution without the caller ever
// calling it directly.
func TestThreadGCThresholdTriggersCollect(t *testing.T) {
	gc := NewCollector()
	var stdout bytes.Buffer
	th := NewThread(gc, nil, NewAtomTable(), NewBuiltinTable(), &stdout)
	th.GCThreshold = 3

	fn := buildMkvecLoop(10)
	lm := &linker.LinkedModule{Name: "m", Funcs: []*compiler.Func{fn}}

	result, err := th.RunModule(lm)
	if err != nil {
		t.Fatalf("RunModule: %v", err)
	}
	if result.Type() != "nil" {
		t.Fatalf("result = %v, want nil", result)
	}
	if th.gc.Allocs() < 10 {
		t.Fatalf("Allocs() = %d, want at least 10", th.gc.Allocs())
	}
	if th.lastCollectAt == 0 {
		t.Fatalf("expected at least one automatic Collect to have run given GCThreshold=3 and 10 allocations")
	}
}

// TestThreadGCThresholdZeroMeansUnlimited covers the documented zero-value
// meaning: GCThreshold left at its zero value never triggers an automatic
// collection, leaving cadence entirely to the embedder.
func TestThreadGCThresholdZeroMeansUnlimited(t *testing.T) {
	gc := NewCollector()
	var stdout bytes.Buffer
	th := NewThread(gc, nil, NewAtomTable(), NewBuiltinTable(), &stdout)

	fn := buildMkvecLoop(10)
	lm := &linker.LinkedModule{Name: "m", Funcs: []*compiler.Func{fn}}

	if _, err := th.RunModule(lm); err != nil {
		t.Fatalf("RunModule: %v", err)
	}
	if th.lastCollectAt != 0 {
		t.Fatalf("lastCollectAt = %d, want 0 with GCThreshold left unset", th.lastCollectAt)
	}
}

// TestThreadMaxStepsStopsRunawayExecution covers the step-limit guard: a
// function whose bytecode loops forever must be cut off by ErrStepLimit
// rather than hanging the host.
func TestThreadMaxStepsStopsRunawayExecution(t *testing.T) {
	// jmp -5 (a backward jump to its own opcode byte), looping forever.
	var code []byte
	code = append(code, byte(compiler.JMP))
	code = append(code, 0xFB, 0xFF, 0xFF, 0xFF) // -5 as int32 little-endian: jumps back to its own opcode byte
	fn := &compiler.Func{Name: "main", Code: code}

	gc := NewCollector()
	var stdout bytes.Buffer
	th := NewThread(gc, nil, NewAtomTable(), NewBuiltinTable(), &stdout)
	th.MaxSteps = 1000

	lm := &linker.LinkedModule{Name: "m", Funcs: []*compiler.Func{fn}}
	_, err := th.RunModule(lm)
	if err != ErrStepLimit {
		t.Fatalf("err = %v, want ErrStepLimit", err)
	}
}
