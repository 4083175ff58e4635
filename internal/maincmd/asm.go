package maincmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mna/mainer"

	"github.com/bizarrecake/rho/lang/compiler"
)

// Asm assembles each .rhoasm listing in args into a gob-encoded .rhom
// module file, the bytecode-level entry point this tool offers in place
// of a source-level front end (spec.md §1 places lexing and parsing
// outside this subsystem).
func (c *Cmd) Asm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	for _, path := range args {
		src, err := os.ReadFile(path)
		if err != nil {
			return printError(stdio, err)
		}
		m, err := AsmModule(string(src))
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", path, err))
		}
		out := outPathFor(path, c.Out)
		if err := writeModule(stdio.Stdout, m, out); err != nil {
			return printError(stdio, err)
		}
	}
	return nil
}

// AsmModule parses the module-level listing format this tool wraps around
// lang/compiler.Asm: a header of .import/.global/.atom directives
// declaring a module's exports, followed by one or more .func bodies each
// assembled with compiler.Asm's per-function textual syntax. This header
// is the one piece compiler.Asm itself has no opinion about (it only ever
// produces one bare *compiler.Func), needed here so a listing can declare
// everything lang/linker.Linker requires to resolve cross-module globals.
func AsmModule(src string) (*compiler.Module, error) {
	m := &compiler.Module{}

	lines := strings.Split(src, "\n")
	i := 0
	next := func() (string, bool) {
		for i < len(lines) {
			line := strings.TrimSpace(lines[i])
			i++
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			return line, true
		}
		return "", false
	}

	for {
		line, ok := next()
		if !ok {
			break
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case ".module":
			if len(fields) != 2 {
				return nil, fmt.Errorf("asm: .module requires exactly one name")
			}
			m.Name = fields[1]
		case ".import":
			if len(fields) != 2 {
				return nil, fmt.Errorf("asm: .import requires exactly one path")
			}
			m.Imports = append(m.Imports, fields[1])
		case ".global":
			if len(fields) != 2 {
				return nil, fmt.Errorf("asm: .global requires exactly one name")
			}
			m.Globals = append(m.Globals, fields[1])
		case ".atom":
			if len(fields) != 2 {
				return nil, fmt.Errorf("asm: .atom requires exactly one name")
			}
			m.Atoms = append(m.Atoms, fields[1])
		case ".func":
			fn, err := asmFunc(fields[1:], next)
			if err != nil {
				return nil, err
			}
			m.Funcs = append(m.Funcs, fn)
		default:
			return nil, fmt.Errorf("asm: unexpected directive %q outside a .func body", fields[0])
		}
	}

	if m.Name == "" {
		return nil, fmt.Errorf("asm: missing .module directive")
	}
	if len(m.Funcs) == 0 {
		return nil, fmt.Errorf("asm: module %q declares no functions (Funcs[0] must be its module-init)", m.Name)
	}
	return m, nil
}

// asmFunc reads a .func header's "name params=N variadic=0|1 locals=N"
// fields plus its body lines up to .endfunc, then hands the body to
// compiler.Asm.
func asmFunc(header []string, next func() (string, bool)) (*compiler.Func, error) {
	fn := &compiler.Func{}
	if len(header) == 0 {
		return nil, fmt.Errorf("asm: .func requires a name")
	}
	fn.Name = header[0]
	for _, kv := range header[1:] {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("asm: .func %s: malformed attribute %q", fn.Name, kv)
		}
		switch k {
		case "params":
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, err
			}
			fn.NumParams = n
		case "variadic":
			fn.Variadic = v == "1" || v == "true"
		case "locals":
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, err
			}
			fn.NumLocals = n
		default:
			return nil, fmt.Errorf("asm: .func %s: unknown attribute %q", fn.Name, k)
		}
	}

	var body strings.Builder
	for {
		line, ok := next()
		if !ok {
			return nil, fmt.Errorf("asm: .func %s: missing .endfunc", fn.Name)
		}
		if line == ".endfunc" {
			break
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}

	asmed, err := compiler.Asm(body.String())
	if err != nil {
		return nil, fmt.Errorf(".func %s: %w", fn.Name, err)
	}
	fn.Code = asmed.Code
	fn.MaxStack = asmed.MaxStack
	return fn, nil
}
