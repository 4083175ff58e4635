// Package ast defines the abstract syntax tree consumed by the variable
// analyzer and the compiler. It is a read-only, tagged-union style tree: the
// lexer and parser that produce it are external collaborators (out of
// scope for this module, per spec §1) and nodes are treated as immutable
// once built.
package ast

import "github.com/bizarrecake/rho/lang/token"

// Node is implemented by every AST node. Positions are a half-open
// [start, end) span in the (out of scope) source file.
type Node interface {
	Span() (start, end token.Pos)
	Walk(v Visitor)
}

// Expr is implemented by every expression node. Rho is expression-oriented:
// if, match, let, and blocks are all expressions that leave a value on the
// stack.
type Expr interface {
	Node
	exprNode()
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Pattern is implemented by the restricted grammar usable inside a match
// arm's pattern position (spec §4.4 "Match"): literals, cons cells, the
// empty list, and pattern variables (plain identifiers).
type Pattern interface {
	Node
	patternNode()
}

// Program is the root node: one compilation unit (one Rho module's source).
// It corresponds to the source-level notion of a "chunk" in spec §4.1, but
// is named Program here since lang/compiler and lang/linker both use
// "module" for the post-compilation artifact and a third name would be one
// too many.
type Program struct {
	Name  string // module identifier, typically a canonical path
	Stmts []Stmt
	Start token.Pos
	End   token.Pos
}

func (n *Program) Span() (token.Pos, token.Pos) { return n.Start, n.End }
func (n *Program) Walk(v Visitor) {
	for _, s := range n.Stmts {
		Walk(v, s)
	}
}

// span is embedded by every concrete node to implement Span() without
// repeating the two fields and the method everywhere.
type span struct {
	Start token.Pos
	End   token.Pos
}

func (s span) Span() (token.Pos, token.Pos) { return s.Start, s.End }

func mkspan(start, end token.Pos) span { return span{Start: start, End: end} }
