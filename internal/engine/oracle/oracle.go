// Package oracle answers whether an expression fragment is syntactically well
// formed. The built-in checker understands C#-flavored expressions; the
// tree-sitter backend embeds fragments in a probe program and reports the
// first syntax error node. Wrappers add caching, serialization and metrics.
package oracle

import (
	"fmt"

	"bindsig/internal/core/ports"
	"bindsig/internal/engine/diag"
)

// newPrefix is prepended for ProbeNew checks so the fragment is read as the
// operand of an object creation.
const newPrefix = "new "

// Builtin is a syntax-only expression checker. It never resolves symbols.
type Builtin struct{}

// NewBuiltin returns the built-in oracle.
func NewBuiltin() *Builtin {
	return &Builtin{}
}

// Check implements ports.ExpressionOracle.
func (b *Builtin) Check(probe ports.Probe, expr string) *diag.Error {
	switch probe {
	case ports.ProbeArgument:
		return checkArgument(expr)
	case ports.ProbeNew:
		return checkNew(expr)
	}
	panic(fmt.Sprintf("oracle: unknown probe %d", probe))
}

func checkArgument(expr string) *diag.Error {
	src := []rune(expr)
	toks, err := lex(src)
	if err != nil {
		return err
	}
	p := newExprParser(toks, len(src))
	if err := p.parseArgument(); err != nil {
		return err
	}
	return p.expectEOF()
}

func checkNew(expr string) *diag.Error {
	src := []rune(newPrefix + expr)
	offset := len([]rune(newPrefix))
	toks, err := lex(src)
	if err != nil {
		return localize(err, offset, len(src)-offset)
	}
	p := newExprParser(toks, len(src))
	if err := p.parseExpression(); err != nil {
		return localize(err, offset, len(src)-offset)
	}
	return localize(p.expectEOF(), offset, len(src)-offset)
}

// localize moves an error found in a prefixed probe back into the
// coordinates of the original fragment, clamped to [0, length].
func localize(err *diag.Error, offset, length int) *diag.Error {
	if err == nil {
		return nil
	}
	idx := err.Index - offset
	if idx < 0 {
		idx = 0
	}
	if idx > length {
		idx = length
	}
	return &diag.Error{Message: err.Message, Index: idx}
}
