package machine

import (
	"github.com/bizarrecake/rho/lang/compiler"
	"github.com/bizarrecake/rho/lang/linker"
)

// Closure is a callable function value: a code pointer plus the upvalue
// array captured at the point of its creation (spec §4.6 "mk_fn"/
// "mk_closure"). A zero-env closure (created by mk_fn) has a nil Env.
// Module is the owning LinkedModule, needed to resolve MKFN/MKCLOSURE's
// sibling-function-index operand when this closure itself creates
// nested closures.
type Closure struct {
	Fn     *compiler.Func
	Env    []*Upvalue
	Module *linker.LinkedModule

	gcHeader
}

func (c *Closure) String() string { return "<function " + c.Fn.Name + ">" }
func (*Closure) Type() string     { return "function" }
func (c *Closure) Name() string   { return c.Fn.Name }

// Call implements Callable by pushing a fresh call frame and running the
// VM loop to completion (spec §4.6 "call"). Builtins have their own
// Callable implementation in builtins.go and do not go through this path.
func (c *Closure) Call(th *Thread, args []Value) (Value, error) {
	return th.callClosure(c, args)
}

// Builtin is a host-implemented callable reachable via the `builtin`
// opcode's fixed table (spec §4.6 "Builtins").
type Builtin struct {
	Index int
	FName string
	Fn    func(th *Thread, args []Value) (Value, error)
}

func (b *Builtin) String() string { return "<builtin " + b.FName + ">" }
func (*Builtin) Type() string     { return "builtin" }
func (b *Builtin) Name() string   { return b.FName }
func (b *Builtin) Call(th *Thread, args []Value) (Value, error) {
	return b.Fn(th, args)
}
