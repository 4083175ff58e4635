package ast

import (
	"fmt"
	"io"
	"strings"
)

// Printer pretty-prints an AST as an indented tree, one node per line. It
// exists mainly to make compiler and resolver tests readable without a
// parser to round-trip through: a hand-built tree prints the same shape a
// human would expect from the surface syntax it stands in for.
type Printer struct {
	// Output is the io.Writer to print to.
	Output io.Writer

	// ShowPos includes each node's [line:col] span when true.
	ShowPos bool
}

// Print pretty-prints n.
func (p *Printer) Print(n Node) error {
	pp := &printer{w: p.Output, showPos: p.ShowPos}
	Walk(pp, n)
	return pp.err
}

type printer struct {
	w       io.Writer
	showPos bool
	depth   int
	err     error
}

func (p *printer) Visit(n Node, dir VisitDirection) Visitor {
	if dir == VisitExit {
		p.depth--
		return nil
	}
	if p.err != nil {
		return nil
	}

	indent := strings.Repeat(". ", p.depth)
	p.depth++

	if p.showPos {
		start, end := n.Span()
		sl, sc := start.LineCol()
		el, ec := end.LineCol()
		_, p.err = fmt.Fprintf(p.w, "%s[%d:%d-%d:%d] %s\n", indent, sl, sc, el, ec, describe(n))
	} else {
		_, p.err = fmt.Fprintf(p.w, "%s%s\n", indent, describe(n))
	}
	return p
}

// describe renders a one-line summary of n's own fields, excluding its
// children (Walk already recurses into those).
func describe(n Node) string {
	switch n := n.(type) {
	case *Program:
		return fmt.Sprintf("Program %q", n.Name)
	case *IntLit:
		return fmt.Sprintf("IntLit %s", n.Text)
	case *FloatLit:
		return fmt.Sprintf("FloatLit %s", n.Text)
	case *StringLit:
		if n.Interpolated {
			return fmt.Sprintf("StringLit interpolated (%d parts)", len(n.Parts))
		}
		return fmt.Sprintf("StringLit %q", n.Raw)
	case *AtomLit:
		return fmt.Sprintf("AtomLit :%s", n.Name)
	case *BoolLit:
		return fmt.Sprintf("BoolLit %v", n.Value)
	case *NilLit:
		return "NilLit"
	case *VectorExpr:
		return fmt.Sprintf("VectorExpr (%d elems)", len(n.Elems))
	case *ConsExpr:
		return "ConsExpr"
	case *ListExpr:
		return fmt.Sprintf("ListExpr (%d elems, dotted=%v)", len(n.Elems), n.Tail != nil)
	case *IdentExpr:
		if n.Resolved != nil {
			return fmt.Sprintf("IdentExpr %s (%s %d)", n.Name, n.Resolved.Kind, n.Resolved.Index)
		}
		return fmt.Sprintf("IdentExpr %s (unresolved)", n.Name)
	case *UnaryExpr:
		return fmt.Sprintf("UnaryExpr %s", n.Op)
	case *BinaryExpr:
		return fmt.Sprintf("BinaryExpr %s", n.Op)
	case *AssignExpr:
		return "AssignExpr"
	case *FuncExpr:
		name := n.Name
		if name == "" {
			name = "<anonymous>"
		}
		return fmt.Sprintf("FuncExpr %s(%s)", name, strings.Join(n.Params, ", "))
	case *CallExpr:
		return fmt.Sprintf("CallExpr (%d args, tail=%v)", len(n.Args), n.Tail)
	case *IfExpr:
		return fmt.Sprintf("IfExpr (else=%v)", n.Else != nil)
	case *MatchExpr:
		return fmt.Sprintf("MatchExpr (%d arms)", len(n.Arms))
	case *SubscriptExpr:
		return "SubscriptExpr"
	case *LetExpr:
		names := make([]string, len(n.Bindings))
		for i, b := range n.Bindings {
			names[i] = b.Name
		}
		return fmt.Sprintf("LetExpr (%s)", strings.Join(names, ", "))
	case *PrecisionExpr:
		return "PrecisionExpr"
	case *BlockExpr:
		return fmt.Sprintf("BlockExpr (%d stmts)", len(n.Stmts))
	case *ExprStmt:
		return "ExprStmt"
	case *VarDefStmt:
		return fmt.Sprintf("VarDefStmt %s", n.Name)
	case *ReturnStmt:
		return "ReturnStmt"
	case *ModuleStmt:
		return fmt.Sprintf("ModuleStmt %q", n.Name)
	case *ImportStmt:
		return fmt.Sprintf("ImportStmt %q", n.Path)
	case *ExportStmt:
		return fmt.Sprintf("ExportStmt (%s)", strings.Join(n.Names, ", "))
	case *NamespaceStmt:
		return fmt.Sprintf("NamespaceStmt %s", n.Name)
	case *UsingStmt:
		return fmt.Sprintf("UsingStmt %s", n.Name)
	case *AtomDefStmt:
		return fmt.Sprintf("AtomDefStmt %s", n.Name)
	case *PatternLiteral:
		return "PatternLiteral"
	case *PatternIdent:
		return fmt.Sprintf("PatternIdent %s", n.Name)
	case *PatternCons:
		return "PatternCons"
	case *PatternEmptyList:
		return "PatternEmptyList"
	case *PatternWildcard:
		return "PatternWildcard"
	default:
		return fmt.Sprintf("%T", n)
	}
}
