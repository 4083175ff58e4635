package maincmd

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bizarrecake/rho/lang/compiler"
	"github.com/bizarrecake/rho/lang/linker"
)

// writeModule gob-encodes m to path, or to stdout if path is "-".
func writeModule(stdio io.Writer, m *compiler.Module, path string) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return fmt.Errorf("encode module %q: %w", m.Name, err)
	}
	if path == "-" {
		_, err := stdio.Write(buf.Bytes())
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// readModule gob-decodes a *compiler.Module from path.
func readModule(path string) (*compiler.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m compiler.Module
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode module %q: %w", path, err)
	}
	return &m, nil
}

// writeProgram gob-encodes p to path, or to stdout if path is "-" or empty.
func writeProgram(stdio io.Writer, p *linker.Program, path string) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(p); err != nil {
		return fmt.Errorf("encode program: %w", err)
	}
	if path == "" || path == "-" {
		_, err := stdio.Write(buf.Bytes())
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// outPathFor derives the sibling .rhom path for a .rhoasm input, unless out
// is explicitly set (in which case it is used verbatim - only sensible for
// a single input file).
func outPathFor(in, out string) string {
	if out != "" {
		return out
	}
	if i := strings.LastIndex(in, "."); i >= 0 {
		return in[:i] + ".rhom"
	}
	return in + ".rhom"
}
