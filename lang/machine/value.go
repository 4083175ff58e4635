// Package machine implements Rho's runtime value model, garbage collector,
// and stack-based virtual machine (spec §3/§4.6/§4.7). The Value
// interface family, the Thread/Frame call-stack shape, and the overall
// texture of the dispatch loop are grounded in the teacher's
// lang/machine package; the concrete frame layout (bp-relative, 6-cell
// header), the open/closed upvalue cell model, and the mark-and-sweep GC
// depart from the teacher's boxed-cell/tuple-of-freevars design and
// follow spec §3 and original_source/include/runtime/gc/v1/v1.hpp
// directly instead, since the teacher's closure model cannot express
// spec's stack-slot-addressable open upvalues.
package machine

import "fmt"

// Value is implemented by every value the machine manipulates.
type Value interface {
	String() string
	Type() string
}

// Callable is implemented by any value that can appear as the callee of a
// call expression.
type Callable interface {
	Value
	Name() string
	Call(th *Thread, args []Value) (Value, error)
}

// Nil is Rho's nil value. There is exactly one instance, NilValue.
type Nil struct{}

func (Nil) String() string { return "nil" }
func (Nil) Type() string   { return "nil" }

// NilValue is the sole Nil instance.
var NilValue = Nil{}

// Bool is a boolean value.
type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (Bool) Type() string { return "bool" }

// Float is a double-precision float value.
type Float float64

func (f Float) String() string { return fmt.Sprintf("%v", float64(f)) }
func (Float) Type() string     { return "float" }

// String is a Rho string value.
type String string

func (s String) String() string { return string(s) }
func (String) Type() string     { return "string" }

// Atom is an interned symbolic constant, represented at runtime by its
// assigned ordinal (spec §4.6 "def_atom"/"push_atom").
type Atom struct {
	Num  uint32
	Name string
}

func (a Atom) String() string { return ":" + a.Name }
func (Atom) Type() string     { return "atom" }

// EmptyList is Rho's distinguished empty-list value.
type EmptyList struct{}

func (EmptyList) String() string { return "()" }
func (EmptyList) Type() string   { return "list" }

// EmptyListValue is the sole EmptyList instance.
var EmptyListValue = EmptyList{}

// Cons is a cons cell: a heap-allocated, mutable pair. It is the only
// compound value the GC needs to trace specially besides Vector and
// Closure, since it can form cycles.
type Cons struct {
	Head Value
	Tail Value

	gcHeader
}

func (c *Cons) String() string { return "(" + c.Head.String() + " . " + c.Tail.String() + ")" }
func (*Cons) Type() string     { return "cons" }

// Vector is a fixed-size heap-allocated array of values.
type Vector struct {
	Elems []Value

	gcHeader
}

func (v *Vector) String() string {
	s := "#["
	for i, e := range v.Elems {
		if i > 0 {
			s += ", "
		}
		s += e.String()
	}
	return s + "]"
}
func (*Vector) Type() string { return "vector" }
