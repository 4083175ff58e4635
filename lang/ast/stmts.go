package ast

func (*ExprStmt) stmtNode()      {}
func (*VarDefStmt) stmtNode()    {}
func (*ReturnStmt) stmtNode()    {}
func (*ModuleStmt) stmtNode()    {}
func (*ImportStmt) stmtNode()    {}
func (*ExportStmt) stmtNode()    {}
func (*NamespaceStmt) stmtNode() {}
func (*AtomDefStmt) stmtNode()   {}
func (*UsingStmt) stmtNode()     {}

// ExprStmt evaluates X for its side effects (or, if it is the last
// statement in a BlockExpr, for its value).
type ExprStmt struct {
	span
	X Expr
}

// VarDefStmt introduces a new binding in the enclosing scope: var name =
// value (or a bare `var name`, leaving Value nil and the binding set to
// nil).
type VarDefStmt struct {
	span
	Name     string
	Value    Expr // optional
	Resolved *Binding
}

// ReturnStmt returns from the enclosing function. Value is nil for a bare
// return, which yields nil.
type ReturnStmt struct {
	span
	Value Expr // optional
}

// ModuleStmt declares the name of the module a Program belongs to. At most
// one may appear, and it must be the first statement, per spec §4.5.
type ModuleStmt struct {
	span
	Name string
}

// ImportStmt imports another module by name, optionally binding it (or
// selected names from it) locally.
type ImportStmt struct {
	span
	Path  string
	Alias string   // optional; empty means bind under Path's last component
	Names []string // optional selective import list; empty means import the whole module
}

// ExportStmt marks Names as visible to importers of the enclosing module.
type ExportStmt struct {
	span
	Names []string
}

// NamespaceStmt opens a named namespace block, within which AtomDefStmt and
// nested declarations are qualified by Name (spec §4.2 "namespace/using
// resolution order").
type NamespaceStmt struct {
	span
	Name  string
	Stmts []Stmt
}

// UsingStmt brings a namespace's members into unqualified scope for the
// remainder of the enclosing block.
type UsingStmt struct {
	span
	Name string
}

// AtomDefStmt declares an atom constant, optionally namespaced by an
// enclosing NamespaceStmt.
type AtomDefStmt struct {
	span
	Name string
}

func (n *ExprStmt) Walk(v Visitor) { Walk(v, n.X) }

func (n *VarDefStmt) Walk(v Visitor) {
	if n.Value != nil {
		Walk(v, n.Value)
	}
}

func (n *ReturnStmt) Walk(v Visitor) {
	if n.Value != nil {
		Walk(v, n.Value)
	}
}

func (n *ModuleStmt) Walk(v Visitor) {}
func (n *ImportStmt) Walk(v Visitor) {}
func (n *ExportStmt) Walk(v Visitor) {}
func (n *UsingStmt) Walk(v Visitor)  {}
func (n *AtomDefStmt) Walk(v Visitor) {}

func (n *NamespaceStmt) Walk(v Visitor) {
	for _, s := range n.Stmts {
		Walk(v, s)
	}
}
