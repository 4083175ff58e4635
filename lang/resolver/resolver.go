// Package resolver implements Rho's variable analyzer: a two-pass walk
// over the AST that classifies every identifier reference as local,
// argument, upvalue, or global, and annotates the tree with the
// information the compiler needs to emit correct load/store/closure
// instructions (spec §4.2).
//
// The two passes are:
//
//   - PREPASS: walks only the top-level statements of the program (not
//     descending into function bodies), assigns a global slot to every
//     top-level var (including those directly inside a namespace block)
//     and records atom, namespace and import declarations. This lets a
//     top-level declaration be used before its textual point of
//     declaration, which Rho programs commonly rely on for mutually
//     recursive top-level functions.
//   - FULL PASS: walks the entire tree in evaluation order, pushing a new
//     Scope per block/function, creating local bindings as declarations
//     are encountered and resolving every identifier reference against the
//     current scope chain, promoting a captured local to an upvalue
//     source on the capturing function's FuncFrame as needed.
//
// Much of the block-chain traversal and bind/use split is adapted from the
// teacher resolver's Starlark-derived design; the binding classification
// (LOCAL/ARGUMENT/UPVALUE/GLOBAL rather than the teacher's
// Local/Cell/Free/Predeclared/Universal) and the namespace/using
// resolution order follow spec §4.2 directly.
package resolver

import (
	"fmt"
	"strings"

	"github.com/bizarrecake/rho/lang/ast"
	"github.com/bizarrecake/rho/lang/errlist"
	"github.com/bizarrecake/rho/lang/token"
)

// Analysis is the result of a successful Analyze call.
type Analysis struct {
	// ByNode maps every block-introducing node (Program, FuncExpr, LetExpr,
	// BlockExpr, and each match arm's Body) to the Scope active within it.
	ByNode map[ast.Node]*Scope

	// Top is the top-level program's own FuncFrame. Its top-level vars are
	// global slots in the module's page; its NumLocals is the larger of the
	// number of those globals and the number of frame-local slots used by
	// top-level let/match/block bindings.
	Top *FuncFrame

	// Funcs maps every FuncExpr to its FuncFrame, for the compiler to look
	// up when it compiles that function literal.
	Funcs map[*ast.FuncExpr]*FuncFrame
}

type resolver struct {
	filename string
	errs     errlist.List

	env *Scope

	byNode map[ast.Node]*Scope
	funcs  map[*ast.FuncExpr]*FuncFrame

	// namespaces tracks declared atom names, qualified by their enclosing
	// namespace path (empty string segment for the unqualified top level).
	namespaces *namespaceTable

	// activeUsings is a stack of namespace names currently brought into
	// unqualified scope by a UsingStmt; it is truncated back to its
	// block-entry length when a block finishes (spec §4.2 "using" has
	// block, not whole-program, extent).
	activeUsings []string

	// importAliases maps the local alias a module is imported under (its
	// explicit Alias, or else the last path component) to its import path,
	// so `alias:name` references resolve to ast.Import rather than
	// UNDEFINED (spec §4.4 "Imports & atoms").
	importAliases map[string]string
}

// Analyze resolves every identifier reference in prog. filename is used
// only to render diagnostic positions.
func Analyze(prog *ast.Program, filename string) (*Analysis, error) {
	r := &resolver{
		filename:      filename,
		byNode:        make(map[ast.Node]*Scope),
		funcs:         make(map[*ast.FuncExpr]*FuncFrame),
		namespaces:    newNamespaceTable(),
		importAliases: make(map[string]string),
	}

	top := newFuncFrame(prog)
	root := newScope(nil, top)
	r.env = root
	r.byNode[prog] = root

	r.prepass(prog.Stmts, top)
	for _, s := range prog.Stmts {
		r.stmt(s)
	}
	top.NumLocals = max(top.NumLocals, len(root.bindings))

	r.errs.Sort()
	if err := r.errs.Err(); err != nil {
		return nil, err
	}
	return &Analysis{ByNode: r.byNode, Top: top, Funcs: r.funcs}, nil
}

func (r *resolver) pos(p token.Pos) token.Position {
	return token.MakePosition(r.filename, p)
}

func (r *resolver) errorf(p token.Pos, format string, args ...interface{}) {
	r.errs.Errorf(r.pos(p), format, args...)
}

func (r *resolver) push(fn *FuncFrame) *Scope {
	s := newScope(r.env, fn)
	r.env = s
	return s
}

func (r *resolver) pushBlock() *Scope {
	return r.push(r.env.Fn)
}

func (r *resolver) pop() {
	r.env = r.env.Parent
}

// prepass hoists top-level declarations so forward references resolve.
func (r *resolver) prepass(stmts []ast.Stmt, top *FuncFrame) {
	for _, s := range stmts {
		switch s := s.(type) {
		case *ast.VarDefStmt:
			r.declareGlobal(s.Name, s, top)
		case *ast.NamespaceStmt:
			r.namespaces.declareNamespace(s.Name)
			for _, inner := range s.Stmts {
				if atom, ok := inner.(*ast.AtomDefStmt); ok {
					r.namespaces.declareAtom(s.Name, atom.Name)
				}
				if vd, ok := inner.(*ast.VarDefStmt); ok {
					r.declareGlobal(vd.Name, vd, top)
				}
			}
		case *ast.AtomDefStmt:
			r.namespaces.declareAtom("", s.Name)
		case *ast.ImportStmt:
			r.importAliases[importAlias(s)] = s.Path
		}
	}
}

// importAlias reports the local name an ImportStmt binds its module
// under: its explicit Alias if set, else the last `:`/`/`-separated
// component of its Path.
func importAlias(s *ast.ImportStmt) string {
	if s.Alias != "" {
		return s.Alias
	}
	path := s.Path
	if i := strings.LastIndexAny(path, ":/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

func (r *resolver) declareGlobal(name string, decl ast.Node, top *FuncFrame) {
	if _, ok := r.env.bindings[name]; ok {
		return // already declared; every definition of name shares this slot
	}
	ix := len(r.env.bindings)
	r.env.bindings[name] = &binding{name: name, decl: decl, pub: ast.Binding{Kind: ast.Global, Index: ix}}
}

func (r *resolver) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.ExprStmt:
		r.expr(s.X)

	case *ast.VarDefStmt:
		if s.Value != nil {
			r.expr(s.Value)
		}
		r.bindVar(s)

	case *ast.ReturnStmt:
		if s.Value != nil {
			r.expr(s.Value)
		}

	case *ast.ModuleStmt, *ast.ImportStmt, *ast.ExportStmt, *ast.AtomDefStmt:
		// no identifiers to resolve

	case *ast.UsingStmt:
		r.activeUsings = append(r.activeUsings, s.Name)

	case *ast.NamespaceStmt:
		mark := len(r.activeUsings)
		for _, inner := range s.Stmts {
			r.stmt(inner)
		}
		r.activeUsings = r.activeUsings[:mark]

	default:
		panic(fmt.Sprintf("resolver: unexpected stmt %T", s))
	}
}

// bindVar resolves a VarDefStmt's binding. At the top level the binding
// was already created during prepass; inside a function it creates a new
// local now, in evaluation order, same as the teacher's bind().
func (r *resolver) bindVar(s *ast.VarDefStmt) {
	if r.env.Parent == nil {
		// top-level: binding already exists from prepass.
		b := r.env.bindings[s.Name]
		s.Resolved = &b.pub
		return
	}

	if _, ok := r.env.bindings[s.Name]; ok {
		r.errorf(s.Start, "already declared in this block: %s", s.Name)
		return
	}
	ix := r.env.Fn.NumLocals
	r.env.Fn.NumLocals++
	b := &binding{name: s.Name, decl: s, pub: ast.Binding{Kind: ast.Local, Index: ix}}
	r.env.bindings[s.Name] = b
	s.Resolved = &b.pub
}

func (r *resolver) expr(e ast.Expr) {
	switch e := e.(type) {
	case *ast.IntLit, *ast.FloatLit, *ast.BoolLit, *ast.NilLit:
		// literal, nothing to resolve

	case *ast.AtomLit:
		r.resolveAtomRef(e)

	case *ast.StringLit:
		if e.Interpolated {
			for _, p := range e.Parts {
				if p.Expr != nil {
					r.expr(p.Expr)
				}
			}
		}

	case *ast.VectorExpr:
		for _, el := range e.Elems {
			r.expr(el)
		}

	case *ast.ConsExpr:
		r.expr(e.Head)
		r.expr(e.Tail)

	case *ast.ListExpr:
		for _, el := range e.Elems {
			r.expr(el)
		}
		if e.Tail != nil {
			r.expr(e.Tail)
		}

	case *ast.IdentExpr:
		r.use(e)

	case *ast.UnaryExpr:
		r.expr(e.Operand)

	case *ast.BinaryExpr:
		r.expr(e.Left)
		r.expr(e.Right)

	case *ast.AssignExpr:
		r.expr(e.Value)
		r.expr(e.Target)

	case *ast.FuncExpr:
		r.function(e)

	case *ast.CallExpr:
		r.expr(e.Callee)
		for _, a := range e.Args {
			r.expr(a)
		}

	case *ast.IfExpr:
		r.expr(e.Cond)
		r.expr(e.Then)
		if e.Else != nil {
			r.expr(e.Else)
		}

	case *ast.MatchExpr:
		r.expr(e.Subject)
		for _, arm := range e.Arms {
			s := r.pushBlock()
			r.byNode[arm.Body] = s
			r.pattern(arm.Pattern)
			if arm.Guard != nil {
				r.expr(arm.Guard)
			}
			r.expr(arm.Body)
			r.pop()
		}

	case *ast.SubscriptExpr:
		r.expr(e.Object)
		r.expr(e.Index)

	case *ast.LetExpr:
		s := r.pushBlock()
		r.byNode[e] = s
		for i := range e.Bindings {
			r.expr(e.Bindings[i].Value)
			e.Bindings[i].Resolved = r.bindLet(e.Bindings[i].Name, e)
		}
		r.expr(e.Body)
		r.pop()

	case *ast.PrecisionExpr:
		if e.Bits != nil {
			r.expr(e.Bits)
		}
		if e.Digits != nil {
			r.expr(e.Digits)
		}
		r.expr(e.Body)

	case *ast.BlockExpr:
		s := r.pushBlock()
		r.byNode[e] = s
		mark := len(r.activeUsings)
		for _, st := range e.Stmts {
			r.stmt(st)
		}
		r.activeUsings = r.activeUsings[:mark]
		r.pop()

	default:
		panic(fmt.Sprintf("resolver: unexpected expr %T", e))
	}
}

func (r *resolver) bindLet(name string, decl ast.Node) *ast.Binding {
	ix := r.env.Fn.NumLocals
	r.env.Fn.NumLocals++
	b := &binding{name: name, decl: decl, pub: ast.Binding{Kind: ast.Local, Index: ix}}
	r.env.bindings[name] = b
	return &b.pub
}

func (r *resolver) function(fe *ast.FuncExpr) {
	fn := newFuncFrame(fe)
	fn.NumParams = len(fe.Params)
	fn.Variadic = fe.Variadic
	r.funcs[fe] = fn

	s := r.push(fn)
	r.byNode[fe] = s

	if fe.Name != "" {
		// named function literals can refer to themselves recursively; bind
		// the name in the function's own scope rather than the enclosing
		// one, so the name does not leak outside.
		ix := fn.NumLocals
		fn.NumLocals++
		b := &binding{name: fe.Name, decl: fe, pub: ast.Binding{Kind: ast.Local, Index: ix}}
		s.bindings[fe.Name] = b
	}

	for i, p := range fe.Params {
		b := &binding{name: p, decl: fe, pub: ast.Binding{Kind: ast.Argument, Index: i}}
		s.bindings[p] = b
	}

	r.expr(fe.Body)
	r.pop()
}

func (r *resolver) pattern(p ast.Pattern) {
	switch p := p.(type) {
	case *ast.PatternLiteral:
		r.expr(p.Value)
	case *ast.PatternIdent:
		if b, ok := r.env.bindings[p.Name]; ok {
			// repeated name within one arm's pattern: share the first
			// occurrence's slot, which the compiler compares against.
			p.Resolved = &b.pub
			return
		}
		ix := r.env.Fn.NumLocals
		r.env.Fn.NumLocals++
		b := &binding{name: p.Name, decl: p, pub: ast.Binding{Kind: ast.Local, Index: ix}}
		r.env.bindings[p.Name] = b
		p.Resolved = &b.pub
	case *ast.PatternCons:
		r.pattern(p.Head)
		r.pattern(p.Tail)
	case *ast.PatternEmptyList, *ast.PatternWildcard:
		// nothing to bind
	default:
		panic(fmt.Sprintf("resolver: unexpected pattern %T", p))
	}
}

func (r *resolver) resolveAtomRef(a *ast.AtomLit) {
	if !r.namespaces.has(a.Name) {
		for i := len(r.activeUsings) - 1; i >= 0; i-- {
			if r.namespaces.hasQualified(r.activeUsings[i], a.Name) {
				return
			}
		}
	}
}

// use resolves an identifier reference against the scope chain, promoting
// the owning function's local to an upvalue source chain as needed (spec
// §3 cfrees/nfrees).
func (r *resolver) use(id *ast.IdentExpr) {
	if id.Name == "$" {
		id.Resolved = &ast.Binding{Kind: ast.Self}
		return
	}
	if alias, name, ok := strings.Cut(id.Name, ":"); ok {
		if _, known := r.importAliases[alias]; known {
			id.Resolved = &ast.Binding{Kind: ast.Import}
			return
		}
		r.errorf(id.Start, "unknown module alias %q in %q", alias, id.Name)
		_ = name
		return
	}

	startFn := r.env.Fn
	for s := r.env; s != nil; s = s.Parent {
		b, found := s.bindings[id.Name]
		if !found {
			continue
		}
		if s.Fn == startFn {
			res := b.pub
			id.Resolved = &res
			return
		}
		if b.pub.Kind == ast.Global {
			res := b.pub
			id.Resolved = &res
			return
		}

		// b is owned by an ancestor function: thread an upvalue chain from
		// that function down to startFn, promoting the original local slot
		// to "captured" on its owning function. UpvalueSource.Index is a
		// frame-relative slot offset (bp+6-relative, as the VM addresses
		// it), not a raw Local/Argument index, since an upvalue chain must
		// distinguish the two regions once it leaves the owning frame.
		owningFn := s.Fn
		parentSlot := b.pub.Index
		if b.pub.Kind == ast.Local {
			parentSlot += owningFn.NumParams
		}
		owningFn.Captured[parentSlot] = true
		idx := r.threadUpvalueChain(owningFn, parentSlot, startFn)
		res := ast.Binding{Kind: ast.Upvalue, Index: idx}
		id.Resolved = &res
		// memoize so repeated uses within the same function reuse the slot
		r.env.bindings[id.Name] = &binding{name: id.Name, decl: id, pub: res}
		return
	}

	r.errorf(id.Start, "undefined: %s", id.Name)
}

// threadUpvalueChain ensures every function between the one that owns
// localIdx (exclusive) and target (inclusive) has an upvalue entry
// forwarding the value, returning target's upvalue index for it.
func (r *resolver) threadUpvalueChain(owner *FuncFrame, localIdx int, target *FuncFrame) int {
	chain := r.funcChainBetween(owner, target)
	if len(chain) == 0 {
		return localIdx
	}

	fromParentLocal := true
	idx := localIdx
	for _, fn := range chain {
		found := -1
		for i, uv := range fn.Upvalues {
			if uv.FromParentLocal == fromParentLocal && uv.Index == idx {
				found = i
				break
			}
		}
		if found == -1 {
			fn.Upvalues = append(fn.Upvalues, UpvalueSource{FromParentLocal: fromParentLocal, Index: idx})
			found = len(fn.Upvalues) - 1
		}
		idx = found
		fromParentLocal = false
	}
	return idx
}

// funcChainBetween walks the scope stack to find the sequence of function
// frames strictly between owner and target, target last.
func (r *resolver) funcChainBetween(owner, target *FuncFrame) []*FuncFrame {
	var seen []*FuncFrame
	var chain []*FuncFrame
	for s := r.env; s != nil; s = s.Parent {
		if len(seen) == 0 || seen[len(seen)-1] != s.Fn {
			seen = append(seen, s.Fn)
		}
	}
	// seen is innermost-first ending at the root; build chain from just
	// after owner up to and including target.
	collecting := false
	for i := len(seen) - 1; i >= 0; i-- {
		fn := seen[i]
		if fn == owner {
			collecting = true
			continue
		}
		if collecting {
			chain = append(chain, fn)
		}
		if fn == target {
			break
		}
	}
	return chain
}
