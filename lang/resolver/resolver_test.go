package resolver_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bizarrecake/rho/lang/ast"
	"github.com/bizarrecake/rho/lang/resolver"
)

// TestAnalyzeGlobalBinding covers a bare top-level var: its own reference
// classifies as Global with a stable index into the module's global page.
func TestAnalyzeGlobalBinding(t *testing.T) {
	ref := &ast.IdentExpr{Name: "x"}
	prog := &ast.Program{Stmts: []ast.Stmt{
		&ast.VarDefStmt{Name: "x", Value: &ast.IntLit{Text: "1"}},
		&ast.ExprStmt{X: ref},
	}}

	analysis, err := resolver.Analyze(prog, "t")
	require.NoError(t, err)
	require.NotNil(t, ref.Resolved)
	require.Equal(t, ast.Global, ref.Resolved.Kind)
	require.Equal(t, 1, analysis.Top.NumLocals, "one global slot for x")
}

// TestAnalyzeArgumentBinding covers a function parameter referenced in its
// own body.
func TestAnalyzeArgumentBinding(t *testing.T) {
	ref := &ast.IdentExpr{Name: "n"}
	fn := &ast.FuncExpr{Params: []string{"n"}, Body: ref}
	prog := &ast.Program{Stmts: []ast.Stmt{&ast.ExprStmt{X: fn}}}

	_, err := resolver.Analyze(prog, "t")
	require.NoError(t, err)
	require.NotNil(t, ref.Resolved)
	require.Equal(t, ast.Argument, ref.Resolved.Kind)
	require.Equal(t, 0, ref.Resolved.Index)
}

// TestAnalyzeLocalBinding covers a let-bound name used in the let body.
func TestAnalyzeLocalBinding(t *testing.T) {
	ref := &ast.IdentExpr{Name: "y"}
	let := &ast.LetExpr{
		Bindings: []ast.LetBinding{{Name: "y", Value: &ast.IntLit{Text: "2"}}},
		Body:     ref,
	}
	prog := &ast.Program{Stmts: []ast.Stmt{&ast.ExprStmt{X: let}}}

	_, err := resolver.Analyze(prog, "t")
	require.NoError(t, err)
	require.NotNil(t, ref.Resolved)
	require.Equal(t, ast.Local, ref.Resolved.Kind)
}

// TestAnalyzeUpvalueCapture covers a nested function closing over its
// parent's parameter: the reference classifies as Upvalue in the inner
// function, and the outer FuncFrame records the slot as Captured.
func TestAnalyzeUpvalueCapture(t *testing.T) {
	ref := &ast.IdentExpr{Name: "x"}
	inner := &ast.FuncExpr{Body: ref}
	outer := &ast.FuncExpr{Params: []string{"x"}, Body: inner}
	prog := &ast.Program{Stmts: []ast.Stmt{&ast.ExprStmt{X: outer}}}

	analysis, err := resolver.Analyze(prog, "t")
	require.NoError(t, err)
	require.NotNil(t, ref.Resolved)
	require.Equal(t, ast.Upvalue, ref.Resolved.Kind)

	outerFrame := analysis.Funcs[outer]
	require.NotNil(t, outerFrame)
	require.True(t, outerFrame.Captured[0], "outer's argument slot 0 must be marked captured")

	innerFrame := analysis.Funcs[inner]
	require.Len(t, innerFrame.Upvalues, 1)
	require.True(t, innerFrame.Upvalues[0].FromParentLocal)
}

// TestAnalyzeSelfBinding covers the `$` self-reference used for literal
// tail recursion (spec §4.4).
func TestAnalyzeSelfBinding(t *testing.T) {
	self := &ast.IdentExpr{Name: "$"}
	fn := &ast.FuncExpr{Params: []string{"n"}, Body: &ast.CallExpr{Callee: self, Args: []ast.Expr{&ast.IdentExpr{Name: "n"}}}}
	prog := &ast.Program{Stmts: []ast.Stmt{&ast.ExprStmt{X: fn}}}

	_, err := resolver.Analyze(prog, "t")
	require.NoError(t, err)
	require.NotNil(t, self.Resolved)
	require.Equal(t, ast.Self, self.Resolved.Kind)
}

// TestAnalyzeImportBinding covers an `alias:name` reference after an
// ImportStmt brings that alias into scope.
func TestAnalyzeImportBinding(t *testing.T) {
	ref := &ast.IdentExpr{Name: "A:f"}
	prog := &ast.Program{Stmts: []ast.Stmt{
		&ast.ImportStmt{Path: "A"},
		&ast.ExprStmt{X: &ast.CallExpr{Callee: ref, Args: []ast.Expr{&ast.IntLit{Text: "1"}}}},
	}}

	_, err := resolver.Analyze(prog, "t")
	require.NoError(t, err)
	require.NotNil(t, ref.Resolved)
	require.Equal(t, ast.Import, ref.Resolved.Kind)
}

// TestAnalyzeUndefinedBinding covers a reference to a name that is never
// declared: Analyze must report an error rather than silently leaving
// Resolved nil for the compiler to panic on later.
func TestAnalyzeUndefinedBinding(t *testing.T) {
	ref := &ast.IdentExpr{Name: "nope"}
	prog := &ast.Program{Stmts: []ast.Stmt{&ast.ExprStmt{X: ref}}}

	_, err := resolver.Analyze(prog, "t")
	require.Error(t, err)
	require.Nil(t, ref.Resolved)
}

// TestAnalyzeRepeatedPatternVariable covers a match pattern binding the
// same name twice: both PatternIdent occurrences resolve (the repeated-
// equality check itself is the compiler's job, not the resolver's - see
// compilePattern's seen map in lang/compiler, exercised end to end by
// lang/machine's TestS4PatternMatchingRepeatedVariables).
func TestAnalyzeRepeatedPatternVariable(t *testing.T) {
	firstX := &ast.PatternIdent{Name: "x"}
	secondX := &ast.PatternIdent{Name: "x"}
	body := &ast.IdentExpr{Name: "x"}
	match := &ast.MatchExpr{
		Subject: &ast.ConsExpr{Head: &ast.IntLit{Text: "1"}, Tail: &ast.IntLit{Text: "1"}},
		Arms: []ast.MatchArm{
			{Pattern: &ast.PatternCons{Head: firstX, Tail: secondX}, Body: body},
		},
	}
	prog := &ast.Program{Stmts: []ast.Stmt{&ast.ExprStmt{X: match}}}

	_, err := resolver.Analyze(prog, "t")
	require.NoError(t, err)
	require.NotNil(t, firstX.Resolved)
	require.NotNil(t, secondX.Resolved)
}
