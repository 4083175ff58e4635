package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/bizarrecake/rho/lang/compiler"
)

// Dis disassembles each .rhom module file in args, printing its
// declarations and one listing per function (compiler.Dasm), the reading
// counterpart of Asm/AsmModule; its output is not accepted back by
// AsmModule as is (see DisModule).
func (c *Cmd) Dis(ctx context.Context, stdio mainer.Stdio, args []string) error {
	for _, path := range args {
		m, err := readModule(path)
		if err != nil {
			return printError(stdio, err)
		}
		DisModule(stdio, m)
	}
	return nil
}

// DisModule prints m's header directives followed by a Dasm listing of
// every function, in the same .module/.import/.global/.atom/.func shape
// AsmModule parses. Only the directives share AsmModule's syntax: each
// body line is a Dasm line, starting with a hex pc column and printing
// jump targets in hex, which compiler.Asm does not parse, so the output
// does not reassemble unchanged.
func DisModule(stdio mainer.Stdio, m *compiler.Module) {
	fmt.Fprintf(stdio.Stdout, ".module %s\n", m.Name)
	for _, imp := range m.Imports {
		fmt.Fprintf(stdio.Stdout, ".import %s\n", imp)
	}
	for _, g := range m.Globals {
		fmt.Fprintf(stdio.Stdout, ".global %s\n", g)
	}
	for _, a := range m.Atoms {
		fmt.Fprintf(stdio.Stdout, ".atom %s\n", a)
	}
	for _, fn := range m.Funcs {
		fmt.Fprintf(stdio.Stdout, "\n.func %s params=%d variadic=%d locals=%d\n",
			fn.Name, fn.NumParams, b2i(fn.Variadic), fn.NumLocals)
		for _, r := range fn.Relocs {
			fmt.Fprintf(stdio.Stdout, "# reloc @%d kind=%v module=%q name=%q\n", r.Offset, r.Kind, r.Module, r.Name)
		}
		fmt.Fprint(stdio.Stdout, compiler.Dasm(fn))
		fmt.Fprintln(stdio.Stdout, ".endfunc")
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
