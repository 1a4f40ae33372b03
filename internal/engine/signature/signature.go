// Package signature parses call signatures of the form
//
//	name [ "<" typeArgs ">" ] "(" [ [ref|out|new] expr { "," [ref|out|new] expr } ] ")"
//
// The parser is an explicit state machine over runes. Parameter expressions
// are opaque: brackets and literals inside them are balanced by the scanner
// and the trimmed text is handed to an expression oracle.
package signature

import (
	"strings"

	"bindsig/internal/engine/names"
)

// Modifier is the keyword that may precede a parameter.
type Modifier int

const (
	None Modifier = iota
	Ref
	Out
	New
)

var modifierNames = [...]string{"", "ref", "out", "new"}

func (m Modifier) String() string {
	return modifierNames[m]
}

func modifierFor(kw string) Modifier {
	switch kw {
	case "ref":
		return Ref
	case "out":
		return Out
	case "new":
		return New
	}
	return None
}

// Parameter is one parsed argument. Text excludes the modifier keyword and
// surrounding whitespace; it is the parameter's identity.
type Parameter struct {
	Text     string
	Modifier Modifier
}

func (p Parameter) String() string {
	if p.Modifier == None {
		return p.Text
	}
	return p.Modifier.String() + " " + p.Text
}

// CallSignature is a successfully parsed signature.
type CallSignature struct {
	MethodName  string
	GenericArgs []names.TypeName
	Parameters  []Parameter
}

// String returns the canonical spelling: single spaces after commas and no
// other insignificant whitespace outside parameter text.
func (s *CallSignature) String() string {
	var b strings.Builder
	b.WriteString(s.MethodName)
	if len(s.GenericArgs) > 0 {
		b.WriteByte('<')
		for i, arg := range s.GenericArgs {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(arg.String())
		}
		b.WriteByte('>')
	}
	b.WriteByte('(')
	for i, p := range s.Parameters {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteByte(')')
	return b.String()
}
