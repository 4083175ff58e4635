// Package compiler turns a resolved AST into unlinked bytecode (spec
// §4.3/§4.4). Code generation is a single left-to-right pass per
// function, using the label/fixup/relocation model in codegen.go rather
// than a basic-block intermediate representation: every AST node lowers
// directly to instructions as it is visited, forward jumps are patched via
// labels, global and import references become Reloc records for
// lang/linker to resolve, and atoms are emitted as module-local indices
// that the VM interns by name.
package compiler

import (
	"fmt"
	"strings"

	"github.com/dolthub/swiss"

	"github.com/bizarrecake/rho/lang/ast"
	"github.com/bizarrecake/rho/lang/errlist"
	"github.com/bizarrecake/rho/lang/resolver"
	"github.com/bizarrecake/rho/lang/token"
)

// Capture directive byte kinds for MKCLOSURE, see the opcode doc comment.
// Exported so lang/machine's VM can decode them without duplicating the
// encoding as magic numbers.
const (
	CaptureLocal = 0 // capture the enclosing frame's slot at bp+6+Index
	CaptureArg   = 1 // reserved; current code generation always uses CaptureLocal for both locals and arguments
	CaptureUpval = 2 // capture the enclosing closure's own Env[Index]
)

// defaults used by a precision expression that omits bits and/or digits
// (spec §3 "Precision micro-frames"): IEEE double's mantissa width, and
// "shortest round-trip" digit count respectively.
const (
	defaultPrecisionBits   = 53
	defaultPrecisionDigits = -1
)

// ModuleStore looks up an already-compiled Module by the name it declared
// itself under (its ast.ModuleStmt/Program name), so that an importing
// module's compiler can learn the imported module's exported globals
// (spec §4.4 "Imports & atoms": "the compiler visits the imported
// module's AST... to learn its exports"). A driver compiling a batch of
// modules populates this incrementally, compiling dependencies before
// their importers (the same evaluation order lang/linker computes).
type ModuleStore map[string]*Module

type compiler struct {
	moduleName string
	analysis   *resolver.Analysis
	store      ModuleStore
	errs       errlist.List

	funcs       []*Func
	globals     []string
	globalIndex *swiss.Map[string, int]
	atoms       []string
	atomIndex   *swiss.Map[string, int]
	imports     map[string]bool

	// importAliases maps a module's local alias (explicit, or the path's
	// last component) to its import path, mirroring the resolver's own
	// table so the compiler can re-derive which module an ast.Import
	// identifier refers to.
	importAliases map[string]string
}

// Compile lowers prog, previously resolved by resolver.Analyze, into an
// unlinked Module. store supplies the already-compiled Modules prog
// imports from, so cross-module identifier references (spec's `alias:
// name` qualified form) can be resolved to a concrete global index; it
// may be nil for a module with no imports.
func Compile(prog *ast.Program, analysis *resolver.Analysis, moduleName string, store ModuleStore) (*Module, error) {
	c := &compiler{
		moduleName:    moduleName,
		analysis:      analysis,
		store:         store,
		globalIndex:   swiss.NewMap[string, int](8),
		atomIndex:     swiss.NewMap[string, int](8),
		imports:       make(map[string]bool),
		importAliases: make(map[string]string),
	}

	// Reserve function index 0 for the module-init function so Funcs[0] is
	// always its entry point, matching lang/linker's expectations.
	c.funcs = append(c.funcs, nil)

	for _, s := range prog.Stmts {
		c.collectTopLevel(s)
	}

	fb := newBuilder()
	fb.emitUint32(ALLOCGLOBALS, 0, 0) // page patched at link time via GP reloc on operand below
	fb.reloc(RelocGP, fb.pc()-4, "", "")
	// second operand (count) is a plain literal, not relocated
	fb.code = append(fb.code, 0, 0, 0, 0)
	putUint32At(fb.code, fb.pc()-4, uint32(len(c.globals)))

	fr := &funcResolver{c: c, b: fb, frame: analysis.Top}
	fr.compileStmts(prog.Stmts, false)
	fr.b.emit(RET)

	c.funcs[0] = &Func{
		Name:      moduleName,
		Code:      fb.finish(),
		NumLocals: analysis.Top.NumLocals,
		MaxStack:  fb.maxStackDepth,
		Relocs:    fb.relocs,
	}

	imports := make([]string, 0, len(c.imports))
	for name := range c.imports {
		imports = append(imports, name)
	}

	c.errs.Sort()
	if err := c.errs.Err(); err != nil {
		return nil, err
	}

	return &Module{
		Name:    moduleName,
		Imports: imports,
		Funcs:   c.funcs,
		Globals: c.globals,
		Atoms:   c.atoms,
	}, nil
}

func (c *compiler) errorf(pos token.Pos, format string, args ...interface{}) {
	c.errs.Errorf(token.MakePosition(c.moduleName, pos), format, args...)
}

func putUint32At(buf []byte, off int, v uint32) {
	buf[off] = byte(v)
	buf[off+1] = byte(v >> 8)
	buf[off+2] = byte(v >> 16)
	buf[off+3] = byte(v >> 24)
}

// collectTopLevel pre-registers the module's global slots and declared
// atoms so forward references within the body compile correctly,
// mirroring the resolver's own PREPASS.
func (c *compiler) collectTopLevel(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.VarDefStmt:
		c.declareGlobal(s.Name)
	case *ast.ImportStmt:
		c.imports[s.Path] = true
		c.importAliases[importAlias(s)] = s.Path
	case *ast.AtomDefStmt:
		c.declareAtom(s.Name)
	case *ast.NamespaceStmt:
		for _, inner := range s.Stmts {
			switch inner := inner.(type) {
			case *ast.AtomDefStmt:
				c.declareAtom(inner.Name)
			case *ast.VarDefStmt:
				c.declareGlobal(inner.Name)
			}
		}
	}
}

// importAlias reports the local name an ImportStmt binds its module under,
// mirroring lang/resolver's own helper of the same name: its explicit Alias
// if set, else the last `:`/`/`-separated component of its Path.
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

func (c *compiler) declareGlobal(name string) int {
	if ix, ok := c.globalIndex.Get(name); ok {
		return ix
	}
	ix := len(c.globals)
	c.globals = append(c.globals, name)
	c.globalIndex.Put(name, ix)
	return ix
}

func (c *compiler) declareAtom(name string) int {
	if ix, ok := c.atomIndex.Get(name); ok {
		return ix
	}
	ix := len(c.atoms)
	c.atoms = append(c.atoms, name)
	c.atomIndex.Put(name, ix)
	return ix
}

// funcResolver compiles one function body (or the top-level program),
// emitting into b and consulting frame for this function's locals/
// upvalues.
type funcResolver struct {
	c     *compiler
	b     *builder
	frame *resolver.FuncFrame
}

func (fr *funcResolver) stmt(s ast.Stmt) {
	c := fr.c
	switch s := s.(type) {
	case *ast.ExprStmt:
		fr.expr(s.X)
		fr.b.emit(POP)

	case *ast.VarDefStmt:
		if s.Value != nil {
			fr.expr(s.Value)
		} else {
			fr.b.emit(PUSHNIL)
		}
		fr.storeBinding(s.Resolved)

	case *ast.ReturnStmt:
		if s.Value != nil {
			fr.expr(s.Value)
		} else {
			fr.b.emit(PUSHNIL)
		}
		fr.b.emit(RET)

	case *ast.ModuleStmt, *ast.ImportStmt, *ast.ExportStmt:
		// no code: handled at the Module level

	case *ast.AtomDefStmt:
		num := c.declareAtom(s.Name)
		fr.b.emitUint32(DEFATOM, uint32(num), 0)
		fr.b.code = append(fr.b.code, s.Name...)
		fr.b.code = append(fr.b.code, 0)

	case *ast.UsingStmt:
		// purely a compile-time/resolver hint, no runtime effect

	case *ast.NamespaceStmt:
		for _, inner := range s.Stmts {
			fr.stmt(inner)
		}

	default:
		panic(fmt.Sprintf("compiler: unexpected stmt %T", s))
	}
}

func (fr *funcResolver) storeBinding(b *ast.Binding) {
	if b == nil {
		panic("compiler: unresolved binding at code generation time")
	}
	switch b.Kind {
	case ast.Global:
		fr.b.emitUint32(SETGLOBAL, 0, -1)
		fr.b.reloc(RelocGP, fr.b.pc()-4, "", "")
		fr.emitUint32Literal(uint32(b.Index))
	case ast.Local:
		fr.b.emitUint16(SETLOCAL, uint16(b.Index), -1)
	case ast.Argument:
		fr.b.emitUint16(SETARG, uint16(b.Index), -1)
	case ast.Upvalue:
		fr.b.emitUint16(SETUPVAL, uint16(b.Index), -1)
	default:
		panic(fmt.Sprintf("compiler: cannot store to binding kind %v", b.Kind))
	}
}

// emitUint32Literal appends a plain (non-opcode-prefixed) uint32 to the
// instruction stream; used for an instruction's second fixed operand that
// follows a reloc-tagged first operand.
func (fr *funcResolver) emitUint32Literal(v uint32) {
	fr.b.code = append(fr.b.code, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (fr *funcResolver) loadBinding(b *ast.Binding) {
	if b == nil {
		panic("compiler: unresolved identifier at code generation time")
	}
	switch b.Kind {
	case ast.Global:
		fr.b.emitUint32(GETGLOBAL, 0, +1)
		fr.b.reloc(RelocGP, fr.b.pc()-4, "", "")
		fr.emitUint32Literal(uint32(b.Index))
	case ast.Local:
		fr.b.emitUint16(GETLOCAL, uint16(b.Index), +1)
	case ast.Argument:
		fr.b.emitUint16(GETARG, uint16(b.Index), +1)
	case ast.Upvalue:
		fr.b.emitUint16(GETUPVAL, uint16(b.Index), +1)
	default:
		panic(fmt.Sprintf("compiler: unresolved binding kind %v", b.Kind))
	}
}

// loadIdent pushes the value id refers to. Unlike loadBinding, it has
// access to id's own Name, which ast.Self and ast.Import need: the former
// to ignore Binding.Index entirely, the latter to re-split "alias:name"
// since the resolver could not record a concrete global index itself (spec
// §4.4 "Imports & atoms").
func (fr *funcResolver) loadIdent(id *ast.IdentExpr) {
	if id.Resolved == nil {
		panic("compiler: unresolved identifier at code generation time")
	}
	switch id.Resolved.Kind {
	case ast.Self:
		fr.b.emit(GETFUN)
	case ast.Import:
		fr.loadImport(id)
	default:
		fr.loadBinding(id.Resolved)
	}
}

// loadImport resolves id's "alias:name" form to a concrete (page, index)
// global reference. The page is left to the linker (RelocGV, by module
// path); the index must be known now, since the linker only ever patches
// an operand's page half - so this looks up name's position in the
// already-compiled exporting module's Globals list, which c.store
// supplies for every module this one imports (spec §4.4 "the compiler
// visits the imported module... to learn its exports").
func (fr *funcResolver) loadImport(id *ast.IdentExpr) {
	c := fr.c
	alias, name, _ := strings.Cut(id.Name, ":")
	path, ok := c.importAliases[alias]
	if !ok {
		c.errorf(id.Start, "unknown module alias %q in %q", alias, id.Name)
		fr.b.emit(PUSHNIL)
		return
	}

	idx := -1
	if mod, ok := c.store[path]; ok {
		for i, g := range mod.Globals {
			if g == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			c.errorf(id.Start, "module %q has no exported name %q", path, name)
		}
	}
	// store may lack path entirely (a driver that links incrementally and
	// hasn't compiled that dependency into this process yet); slot 0 is
	// emitted then. The linker patches only the page, so if path is linked
	// the load reads that page's slot 0 whatever name it holds; if path is
	// never linked the RelocGV stays pending and the VM returns
	// ErrUnresolvedImport when the load executes.
	if idx < 0 {
		idx = 0
	}

	fr.b.emitUint32(GETGLOBAL, 0, +1)
	fr.b.reloc(RelocGV, fr.b.pc()-4, path, name)
	fr.emitUint32Literal(uint32(idx))
	c.imports[path] = true
}

func (fr *funcResolver) expr(e ast.Expr) {
	c := fr.c
	switch e := e.(type) {
	case *ast.IntLit:
		fr.b.emitUint32(PUSHINT32, parseInt32(e.Text), +1)

	case *ast.FloatLit:
		fr.b.emitFloat64(PUSHFLOAT, parseFloat(e.Text), +1)

	case *ast.BoolLit:
		if e.Value {
			fr.b.emit(PUSHTRUE)
		} else {
			fr.b.emit(PUSHFALSE)
		}

	case *ast.NilLit:
		fr.b.emit(PUSHNIL)

	case *ast.AtomLit:
		num := c.declareAtom(e.Name)
		fr.b.emitUint32(PUSHATOM, uint32(num), +1)

	case *ast.StringLit:
		fr.compileString(e)

	case *ast.VectorExpr:
		for _, el := range e.Elems {
			fr.expr(el)
		}
		fr.b.emitUint32(MKVEC, uint32(len(e.Elems)), 1-len(e.Elems))

	case *ast.ConsExpr:
		fr.expr(e.Head)
		fr.expr(e.Tail)
		fr.b.emit(CONS)

	case *ast.ListExpr:
		if e.Tail != nil {
			fr.expr(e.Tail)
		} else {
			fr.b.emit(PUSHEMPTYLIST)
		}
		for i := len(e.Elems) - 1; i >= 0; i-- {
			fr.expr(e.Elems[i])
			fr.b.emit(SWAP)
			fr.b.emit(CONS)
		}

	case *ast.IdentExpr:
		fr.loadIdent(e)

	case *ast.UnaryExpr:
		fr.expr(e.Operand)
		fr.b.emit(unaryOp(e.Op))

	case *ast.BinaryExpr:
		fr.compileBinary(e)

	case *ast.AssignExpr:
		fr.compileAssign(e)

	case *ast.FuncExpr:
		fr.compileClosure(e)

	case *ast.CallExpr:
		fr.compileCall(e, false)

	case *ast.IfExpr:
		fr.compileIf(e, false)

	case *ast.MatchExpr:
		fr.compileMatch(e, false)

	case *ast.SubscriptExpr:
		fr.expr(e.Object)
		fr.expr(e.Index)
		fr.b.emit(VECGET)

	case *ast.LetExpr:
		fr.compileLet(e, false)

	case *ast.PrecisionExpr:
		// Pushed in bits, digits order so PUSHMICROFRAME can pop digits
		// first, then bits, off the top of the operand stack.
		if e.Bits != nil {
			fr.expr(e.Bits)
		} else {
			fr.b.emitUint32(PUSHINT32, defaultPrecisionBits, 1)
		}
		if e.Digits != nil {
			fr.expr(e.Digits)
		} else {
			fr.b.emitUint32(PUSHINT32, uint32(int32(defaultPrecisionDigits)), 1)
		}
		fr.b.emit(PUSHMICROFRAME)
		fr.expr(e.Body)
		fr.b.emit(POPMICROFRAME)

	case *ast.BlockExpr:
		fr.compileBlock(e, false)

	default:
		panic(fmt.Sprintf("compiler: unexpected expr %T", e))
	}
}

// exprTail compiles e the same as expr, but in tail position: a CallExpr
// whose callee is the literal `$` self-reference emits tail_call instead
// of call (spec §4.4 "Tail calls"), and every node that can forward its
// own tail position to a sub-expression (if/match branches, a block's
// trailing expression, a let's body) does so recursively.
func (fr *funcResolver) exprTail(e ast.Expr) {
	switch e := e.(type) {
	case *ast.CallExpr:
		fr.compileCall(e, true)
	case *ast.IfExpr:
		fr.compileIf(e, true)
	case *ast.MatchExpr:
		fr.compileMatch(e, true)
	case *ast.BlockExpr:
		fr.compileBlock(e, true)
	case *ast.LetExpr:
		fr.compileLet(e, true)
	default:
		fr.expr(e)
	}
}

// compileCall emits a call. tail is only honored - as tail_call - when the
// callee is literally the `$` self-reference (spec §4.4 "Tail calls": only
// self-recursion is optimized, since any other callee could be an
// arbitrary closure the frame-reuse scheme cannot safely assume matches
// this function's arity/locals layout).
func (fr *funcResolver) compileCall(e *ast.CallExpr, tail bool) {
	fr.expr(e.Callee)
	for _, a := range e.Args {
		fr.expr(a)
	}
	op := CALL
	if tail {
		if id, ok := e.Callee.(*ast.IdentExpr); ok && id.Resolved != nil && id.Resolved.Kind == ast.Self {
			op = TAILCALL
			e.Tail = true
		}
	}
	fr.b.emitByte(op, byte(len(e.Args)), -len(e.Args))
}

func (fr *funcResolver) compileLet(e *ast.LetExpr, tail bool) {
	for _, lb := range e.Bindings {
		fr.expr(lb.Value)
		fr.storeBinding(lb.Resolved)
	}
	if tail {
		fr.exprTail(e.Body)
	} else {
		fr.expr(e.Body)
	}
}

// compileAssign compiles v = e. Identifier targets push the assigned
// value, dup it, then store one copy (spec: an assignment expression
// evaluates to the assigned value). Subscript targets (v[i] = e) rely on
// vec_set itself pushing the stored value back, since object/index/value
// must all be on the operand stack in a fixed order for vec_set to find
// them and there is no spare slot to stash a duplicate in between.
func (fr *funcResolver) compileAssign(e *ast.AssignExpr) {
	switch t := e.Target.(type) {
	case *ast.IdentExpr:
		if t.Resolved == nil || t.Resolved.Kind == ast.Self || t.Resolved.Kind == ast.Import {
			fr.c.errorf(t.Start, "cannot assign to %s", t.Name)
			fr.expr(e.Value)
			return
		}
		fr.expr(e.Value)
		fr.b.emit(DUP)
		fr.storeBinding(t.Resolved)
	case *ast.SubscriptExpr:
		fr.expr(t.Object)
		fr.expr(t.Index)
		fr.expr(e.Value)
		fr.b.emit(VECSET)
	default:
		panic(fmt.Sprintf("compiler: unsupported assignment target %T", e.Target))
	}
}

func (fr *funcResolver) compileString(e *ast.StringLit) {
	if !e.Interpolated {
		fr.b.emitCString(PUSHCSTR, e.Raw, +1)
		return
	}
	// Build the interpolation as a "fmt % args" pair: push the format
	// template (with {{n}} placeholders erased to {n}) then a vector of
	// the interpolated expressions, then apply the printf-style `%`
	// operator the spec assigns to MOD on a string LHS.
	var tmpl []byte
	argIdx := 0
	var args []ast.Expr
	for _, p := range e.Parts {
		if p.Expr != nil {
			tmpl = append(tmpl, []byte(fmt.Sprintf("{%d}", argIdx))...)
			argIdx++
			args = append(args, p.Expr)
		} else {
			tmpl = append(tmpl, p.Text...)
		}
	}
	fr.b.emitCString(PUSHCSTR, string(tmpl), +1)
	for _, a := range args {
		fr.expr(a)
	}
	fr.b.emitUint32(MKVEC, uint32(len(args)), 1-len(args))
	fr.b.emit(MOD)
}

func (fr *funcResolver) compileBinary(e *ast.BinaryExpr) {
	fr.expr(e.Left)
	if e.Op.String() == "and" {
		end := fr.b.newLabel()
		fr.b.emit(DUP)
		fr.b.emitJump(JF, end, -1)
		fr.b.emit(POP)
		fr.expr(e.Right)
		fr.b.bindLabel(end)
		return
	}
	if e.Op.String() == "or" {
		end := fr.b.newLabel()
		fr.b.emit(DUP)
		fr.b.emitJump(JT, end, -1)
		fr.b.emit(POP)
		fr.expr(e.Right)
		fr.b.bindLabel(end)
		return
	}
	fr.expr(e.Right)
	fr.b.emit(binaryOp(e.Op))
}

func (fr *funcResolver) compileClosure(fe *ast.FuncExpr) {
	frame := fr.c.analysis.Funcs[fe]
	if frame == nil {
		panic("compiler: missing resolver frame for function literal")
	}

	fb := newBuilder()
	inner := &funcResolver{c: fr.c, b: fb, frame: frame}
	inner.exprTail(fe.Body)
	fb.emit(RET)

	idx := len(fr.c.funcs)
	fr.c.funcs = append(fr.c.funcs, &Func{
		Name:      fe.Name,
		Code:      fb.finish(),
		NumParams: frame.NumParams,
		Variadic:  frame.Variadic,
		NumLocals: frame.NumLocals,
		MaxStack:  fb.maxStackDepth,
		Relocs:    fb.relocs,
	})

	if len(frame.Upvalues) == 0 {
		fr.b.emitUint32(MKFN, uint32(idx), +1)
		return
	}

	fr.b.emitByte(MKCLOSURE, byte(len(frame.Upvalues)), +1)
	fr.emitUint32Literal(uint32(idx))
	for _, uv := range frame.Upvalues {
		if uv.FromParentLocal {
			fr.b.code = append(fr.b.code, CaptureLocal)
		} else {
			fr.b.code = append(fr.b.code, CaptureUpval)
		}
		fr.b.code = append(fr.b.code, byte(uv.Index), byte(uv.Index>>8))
	}
}

func (fr *funcResolver) compileIf(e *ast.IfExpr, tail bool) {
	fr.expr(e.Cond)
	elseL := fr.b.newLabel()
	fr.b.emitJump(JF, elseL, -1)
	fr.branch(e.Then, tail)
	endL := fr.b.newLabel()
	fr.b.emitJump(JMP, endL, 0)
	fr.b.bindLabel(elseL)
	if e.Else != nil {
		fr.branch(e.Else, tail)
	} else {
		fr.b.emit(PUSHNIL)
	}
	fr.b.bindLabel(endL)
}

func (fr *funcResolver) branch(e ast.Expr, tail bool) {
	if tail {
		fr.exprTail(e)
	} else {
		fr.expr(e)
	}
}

func (fr *funcResolver) compileBlock(e *ast.BlockExpr, tail bool) {
	fr.compileStmts(e.Stmts, tail)
}

// compileStmts emits stmts in sequence, leaving the trailing expression
// statement's value on the stack unpopped (a block - or the module/
// function body these statements belong to - evaluates to its last
// expression; spec §4.3 "Blocks"). Every statement but the last still
// runs through the ordinary stmt path, which pops its own expression.
func (fr *funcResolver) compileStmts(stmts []ast.Stmt, tail bool) {
	for i, s := range stmts {
		if i == len(stmts)-1 {
			if es, ok := s.(*ast.ExprStmt); ok {
				fr.branch(es.X, tail)
				return
			}
		}
		fr.stmt(s)
	}
	fr.b.emit(PUSHNIL)
}

func (fr *funcResolver) compileMatch(e *ast.MatchExpr, tail bool) {
	fr.expr(e.Subject)
	endL := fr.b.newLabel()
	for _, arm := range e.Arms {
		nextL := fr.b.newLabel()
		fr.b.emit(DUP)
		fr.compilePattern(arm.Pattern, make(map[string]int))
		fr.b.emitJump(JF, nextL, -1)
		if arm.Guard != nil {
			fr.expr(arm.Guard)
			fr.b.emitJump(JF, nextL, -1)
		}
		fr.b.emit(POP) // discard the subject copy left for matching
		fr.branch(arm.Body, tail)
		fr.b.emitJump(JMP, endL, 0)
		fr.b.bindLabel(nextL)
	}
	// no arm matched: leave nil, discarding the subject
	fr.b.emit(POP)
	fr.b.emit(PUSHNIL)
	fr.b.bindLabel(endL)
}

// compilePattern consumes the subject copy DUP'd onto the stack before it
// is called and leaves exactly one boolean (match/no-match) in its place.
// seen tracks, within this one match arm, which local slot each pattern
// variable's first occurrence already stored its value into, so a
// repeated name (e.g. `'(x . (y . x))`) compiles to an equality check
// against that first occurrence instead of silently rebinding (spec §4.3
// "Pattern matching": repeated variables in one pattern constrain the
// match to equal values).
func (fr *funcResolver) compilePattern(p ast.Pattern, seen map[string]int) {
	switch p := p.(type) {
	case *ast.PatternLiteral:
		fr.expr(p.Value)
		fr.b.emit(EQ)
	case *ast.PatternWildcard:
		fr.b.emit(POP)
		fr.b.emit(PUSHTRUE)
	case *ast.PatternIdent:
		if slot, ok := seen[p.Name]; ok {
			fr.b.emitUint16(GETLOCAL, uint16(slot), +1)
			fr.b.emit(EQ)
			return
		}
		seen[p.Name] = p.Resolved.Index
		fr.b.emit(DUP)
		fr.storeBinding(p.Resolved)
		fr.b.emit(POP)
		fr.b.emit(PUSHTRUE)
	case *ast.PatternEmptyList:
		fr.b.emit(PUSHEMPTYLIST)
		fr.b.emit(EQ)
	case *ast.PatternCons:
		fr.b.emit(DUP)
		fr.b.emit(CAR)
		fr.compilePattern(p.Head, seen)
		headL := fr.b.newLabel()
		fr.b.emitJump(JF, headL, -1)
		fr.b.emit(CDR)
		fr.compilePattern(p.Tail, seen)
		endL := fr.b.newLabel()
		fr.b.emitJump(JMP, endL, 0)
		fr.b.bindLabel(headL)
		fr.b.emit(POP)
		fr.b.emit(PUSHFALSE)
		fr.b.bindLabel(endL)
	default:
		panic(fmt.Sprintf("compiler: unexpected pattern %T", p))
	}
}

func unaryOp(op interface{ String() string }) Opcode {
	switch op.String() {
	case "-":
		return UNEG
	case "+":
		return UPOS
	case "not":
		return NOT
	default:
		panic(fmt.Sprintf("compiler: unsupported unary operator %q", op.String()))
	}
}

func binaryOp(op interface{ String() string }) Opcode {
	switch op.String() {
	case "+":
		return ADD
	case "-":
		return SUB
	case "*":
		return MUL
	case "/":
		return DIV
	case "^":
		return POW
	case "%":
		return MOD
	case "==":
		return EQ
	case "!=":
		return NEQ
	case "<":
		return LT
	case "<=":
		return LTE
	case ">":
		return GT
	case ">=":
		return GTE
	default:
		panic(fmt.Sprintf("compiler: unsupported binary operator %q", op.String()))
	}
}

func parseInt32(text string) uint32 {
	var n int64
	neg := false
	i := 0
	if len(text) > 0 && text[0] == '-' {
		neg = true
		i = 1
	}
	for ; i < len(text); i++ {
		if text[i] < '0' || text[i] > '9' {
			break
		}
		n = n*10 + int64(text[i]-'0')
	}
	if neg {
		n = -n
	}
	return uint32(int32(n))
}

func parseFloat(text string) float64 {
	var intPart, fracPart int64
	var fracDiv float64 = 1
	neg := false
	i := 0
	if len(text) > 0 && text[0] == '-' {
		neg = true
		i = 1
	}
	for ; i < len(text) && text[i] != '.'; i++ {
		intPart = intPart*10 + int64(text[i]-'0')
	}
	if i < len(text) && text[i] == '.' {
		i++
		for ; i < len(text); i++ {
			fracPart = fracPart*10 + int64(text[i]-'0')
			fracDiv *= 10
		}
	}
	v := float64(intPart) + float64(fracPart)/fracDiv
	if neg {
		v = -v
	}
	return v
}
