package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/bizarrecake/rho/internal/config"
	"github.com/bizarrecake/rho/lang/compiler"
	"github.com/bizarrecake/rho/lang/linker"
	"github.com/bizarrecake/rho/lang/machine"
)

// Link reads every .rhom file in args, links them together (spec.md
// §4.5) and, by default, runs the resulting program on a fresh VM and
// prints the module-init result of every linked module in evaluation
// order - the same order Linker.Link returns. With --encode-only it
// instead writes the gob-encoded *linker.Program to --out (or stdout)
// without executing it, for a later `rho link --encode-only` pipeline
// stage or a host embedding the VM separately.
func (c *Cmd) Link(ctx context.Context, stdio mainer.Stdio, args []string) error {
	mods := make([]*compiler.Module, 0, len(args))
	for _, path := range args {
		m, err := readModule(path)
		if err != nil {
			return printError(stdio, err)
		}
		mods = append(mods, m)
	}

	prog, err := linker.New().Link(mods...)
	if err != nil {
		return printError(stdio, err)
	}

	if c.EncodeOnly {
		if err := writeProgram(stdio.Stdout, prog, c.Out); err != nil {
			return printError(stdio, err)
		}
		return nil
	}

	return runProgram(stdio, prog)
}

// runProgram executes every module of prog in evaluation order on one VM,
// seeded from internal/config.Load so RHO_MAX_STEPS/RHO_GC_THRESHOLD
// apply the same way a REPL host would configure them.
func runProgram(stdio mainer.Stdio, prog *linker.Program) error {
	cfg, err := config.Load()
	if err != nil {
		return printError(stdio, fmt.Errorf("load config: %w", err))
	}

	vm := machine.NewVM()
	vm.MaxSteps = cfg.MaxSteps
	vm.GCThreshold = cfg.GCThreshold

	th := vm.NewThread(stdio.Stdout)
	for _, mod := range prog.Modules {
		result, err := th.RunModule(mod)
		if err != nil {
			return printError(stdio, fmt.Errorf("module %q: %w", mod.Name, err))
		}
		fmt.Fprintf(stdio.Stdout, "%s => %s\n", mod.Name, result.String())
	}
	return nil
}
