package resolver

import "github.com/bizarrecake/rho/lang/ast"

// binding is the resolver's internal bookkeeping record for one declared
// name. ast.Binding (Kind, Index) is the subset of this that gets attached
// to every identifier reference; binding additionally tracks the
// declaration site and name, which the resolver needs but the compiler
// does not.
type binding struct {
	name string
	decl ast.Node
	pub  ast.Binding // Kind/Index as exposed to the AST
}

// UpvalueSource describes where a function's Nth upvalue gets its value
// from when a closure over that function is created (spec §3 "cfrees"/
// "nfrees" closure bookkeeping).
type UpvalueSource struct {
	// FromParentLocal is true when the value comes from a stack slot in the
	// immediately enclosing function's frame (Index is a local slot index,
	// possibly an argument slot folded into the same index space). It is
	// false when the value instead comes from the enclosing function's own
	// upvalue array (Index indexes that array), i.e. the capture chains
	// through more than one enclosing function.
	FromParentLocal bool
	Index           int
}

// FuncFrame is the resolver's record of one function's (or the top-level
// program's) locals, parameters, and captured/capturing relationships.
type FuncFrame struct {
	// Definition is the *ast.FuncExpr this frame was built for, or the
	// *ast.Program for the top-level frame.
	Definition ast.Node

	NumParams int
	Variadic  bool

	// NumLocals is the number of local stack slots this function needs
	// (let/var/pattern-bound locals and a named function's own name;
	// parameters are counted in NumParams), i.e. the size to reserve in
	// the bp-relative frame beyond the fixed 6-cell header and the
	// parameter slots.
	NumLocals int

	// Captured holds the local slot indices that some nested function
	// closes over (cfrees: slots this function lends as open upvalue
	// targets). The compiler must ensure these slots stay addressable by
	// stack index for the lifetime of any closure capturing them.
	Captured map[int]bool

	// Upvalues describes, in order, how to populate the upvalue array of a
	// closure created over this function (nfrees: what this function
	// borrows from its immediate lexical parent).
	Upvalues []UpvalueSource
}

func newFuncFrame(def ast.Node) *FuncFrame {
	return &FuncFrame{Definition: def, Captured: make(map[int]bool)}
}
