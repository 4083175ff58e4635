// Command rho is the bytecode-level CLI for the rho sandbox language:
// assemble, disassemble and link .rhom module files, adapted from the
// teacher's cmd/nenuphar in shape (mainer.CurrentStdio, exit code from
// Cmd.Main) though not in subcommand set, since no lexer or parser backs
// this tool (spec.md §1).
package main

import (
	"os"

	"github.com/mna/mainer"

	"github.com/bizarrecake/rho/internal/maincmd"
)

var (
	version   = "{v}"
	buildDate = "{d}"
)

func main() {
	c := maincmd.Cmd{BuildVersion: version, BuildDate: buildDate}
	os.Exit(int(c.Main(os.Args, mainer.CurrentStdio())))
}
