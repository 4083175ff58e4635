// Package errlist provides a sortable, severity-tagged list of diagnostics
// shared by the resolver and compiler. It wraps go/scanner's
// ErrorList the same way lang/scanner does in the out-of-scope lexer: the
// standard library already has a battle-tested accumulate/sort/dedupe/
// render type for exactly this shape of problem, so there is no reason to
// hand-roll one.
package errlist

import (
	"fmt"
	"go/scanner"
	gotoken "go/token"
	"sort"

	"github.com/bizarrecake/rho/lang/token"
)

// Severity distinguishes a hard error (compilation cannot proceed) from a
// warning (compilation proceeds, the diagnostic is advisory).
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// List accumulates diagnostics in the order Add is called. It keeps a
// parallel severities slice alongside a scanner.ErrorList field; List.Sort
// orders both by position itself, since scanner.ErrorList's own Sort would
// reorder the errors without their severities.
type List struct {
	errs       scanner.ErrorList
	severities []Severity
}

// Add appends one diagnostic at pos with the given severity.
func (l *List) Add(pos token.Position, sev Severity, msg string) {
	l.errs.Add(toGoPosition(pos), msg)
	l.severities = append(l.severities, sev)
}

// Errorf is a convenience wrapper around Add with Error severity.
func (l *List) Errorf(pos token.Position, format string, args ...interface{}) {
	l.Add(pos, Error, fmt.Sprintf(format, args...))
}

// Warnf is a convenience wrapper around Add with Warning severity.
func (l *List) Warnf(pos token.Position, format string, args ...interface{}) {
	l.Add(pos, Warning, fmt.Sprintf(format, args...))
}

// Len reports the number of diagnostics accumulated.
func (l *List) Len() int { return len(l.errs) }

// HasErrors reports whether any diagnostic has Error severity.
func (l *List) HasErrors() bool {
	for _, s := range l.severities {
		if s == Error {
			return true
		}
	}
	return false
}

// Sort orders diagnostics by position, keeping severities in lockstep with
// the reordered underlying errors.
func (l *List) Sort() {
	idx := make([]int, len(l.errs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		ei, ej := l.errs[idx[i]], l.errs[idx[j]]
		if ei.Pos.Filename != ej.Pos.Filename {
			return ei.Pos.Filename < ej.Pos.Filename
		}
		if ei.Pos.Line != ej.Pos.Line {
			return ei.Pos.Line < ej.Pos.Line
		}
		return ei.Pos.Column < ej.Pos.Column
	})

	sortedErrs := make(scanner.ErrorList, len(l.errs))
	sortedSev := make([]Severity, len(l.severities))
	for i, j := range idx {
		sortedErrs[i] = l.errs[j]
		sortedSev[i] = l.severities[j]
	}
	l.errs = sortedErrs
	l.severities = sortedSev
}

// Err returns nil if l is empty, else an error built from the accumulated
// diagnostics (scanner.ErrorList's own Error() rendering).
func (l *List) Err() error {
	if len(l.errs) == 0 {
		return nil
	}
	return l.errs.Err()
}

func toGoPosition(pos token.Position) gotoken.Position {
	return gotoken.Position{
		Filename: pos.Filename,
		Line:     pos.Line,
		Column:   pos.Col,
	}
}
