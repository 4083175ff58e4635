package machine

import "fmt"

// BuiltinTable is the fixed, index-addressed table the `builtin` opcode
// reaches into (spec §4.6 "Builtins"). Index assignment is a VM-wide
// contract shared by every compiled module, the way the teacher's
// standard library registered its own builtin ordinals.
type BuiltinTable struct {
	fns []*Builtin
}

// NewBuiltinTable constructs the standard builtin table.
func NewBuiltinTable() *BuiltinTable {
	t := &BuiltinTable{}
	t.register("print", builtinPrint)
	t.register("type_of", builtinTypeOf)
	t.register("length", builtinLength)
	t.register("str", builtinStr)
	t.register("reverse", builtinReverse)
	return t
}

func (t *BuiltinTable) register(name string, fn func(th *Thread, args []Value) (Value, error)) {
	b := &Builtin{Index: len(t.fns), FName: name, Fn: fn}
	t.fns = append(t.fns, b)
}

// At returns the builtin at idx, or false if idx is out of range.
func (t *BuiltinTable) At(idx int) (*Builtin, bool) {
	if idx < 0 || idx >= len(t.fns) {
		return nil, false
	}
	return t.fns[idx], true
}

// Lookup finds a builtin by name.
func (t *BuiltinTable) Lookup(name string) (*Builtin, bool) {
	for _, b := range t.fns {
		if b.FName == name {
			return b, true
		}
	}
	return nil, false
}

func builtinPrint(th *Thread, args []Value) (Value, error) {
	for i, a := range args {
		if i > 0 {
			fmt.Fprint(th.Stdout, " ")
		}
		fmt.Fprint(th.Stdout, a.String())
	}
	fmt.Fprintln(th.Stdout)
	return NilValue, nil
}

func builtinTypeOf(th *Thread, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, ErrArityMismatch
	}
	return String(args[0].Type()), nil
}

func builtinLength(th *Thread, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, ErrArityMismatch
	}
	switch v := args[0].(type) {
	case EmptyList:
		return NewIntFromInt64(0), nil
	case *Cons:
		n := int64(0)
		var cur Value = v
		for {
			c, ok := cur.(*Cons)
			if !ok {
				break
			}
			n++
			cur = c.Tail
		}
		return NewIntFromInt64(n), nil
	case *Vector:
		return NewIntFromInt64(int64(len(v.Elems))), nil
	case String:
		return NewIntFromInt64(int64(len(v))), nil
	default:
		return nil, ErrTypeMismatch
	}
}

func builtinStr(th *Thread, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, ErrArityMismatch
	}
	return String(args[0].String()), nil
}

func builtinReverse(th *Thread, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, ErrArityMismatch
	}
	v, ok := args[0].(*Vector)
	if !ok {
		return nil, ErrTypeMismatch
	}
	out := make([]Value, len(v.Elems))
	for i, e := range v.Elems {
		out[len(out)-1-i] = e
	}
	return th.gc.AllocVector(out), nil
}
