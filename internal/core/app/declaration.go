package app

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"

	"bindsig/internal/engine/diag"
	"bindsig/internal/engine/inherit"
	"bindsig/internal/engine/signature"
)

// Kind names the grammar a declaration is checked against.
type Kind string

const (
	KindCall    Kind = "call"
	KindInherit Kind = "inherit"
)

// Declaration is one non-comment line of a declaration file.
type Declaration struct {
	Line int
	Kind Kind
	Text string
}

// Result is the outcome of checking one declaration. Diagnostic indexes are
// rune offsets into Declaration.Text.
type Result struct {
	Declaration
	Diagnostic  diag.Diagnostic
	Signature   *signature.CallSignature
	Inheritance *inherit.InheritanceList
}

// Canonical returns the normalized form of a successful declaration.
func (r Result) Canonical() string {
	switch {
	case r.Signature != nil:
		return r.Signature.String()
	case r.Inheritance != nil:
		return r.Inheritance.Format()
	}
	return ""
}

// ParseDeclarations reads a declaration file. Each non-blank line not
// starting with '#' has the form "call: <signature>" or
// "inherit: <inheritance list>". Lines with another prefix are returned with
// the prefix as their Kind so the check reports them.
func ParseDeclarations(r io.Reader) ([]Declaration, error) {
	var decls []Declaration
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		decls = append(decls, splitDeclaration(line, raw))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read declarations at line %d: %w", line+1, err)
	}
	return decls, nil
}

func splitDeclaration(line int, raw string) Declaration {
	head, text, found := strings.Cut(raw, ":")
	head = strings.TrimSpace(head)
	if !found || head == "" || strings.IndexFunc(head, notLetter) >= 0 {
		return Declaration{Line: line, Text: raw}
	}
	return Declaration{
		Line: line,
		Kind: Kind(strings.ToLower(head)),
		Text: strings.TrimSpace(text),
	}
}

func notLetter(r rune) bool {
	return !unicode.IsLetter(r)
}

// ParseArgument turns a command line argument of the form "call: ..." or
// "inherit: ..." into a declaration. A bare argument is a call signature.
func ParseArgument(arg string) Declaration {
	raw := strings.TrimSpace(arg)
	for _, kind := range []Kind{KindCall, KindInherit} {
		prefix := string(kind) + ":"
		if strings.HasPrefix(strings.ToLower(raw), prefix) {
			return Declaration{Kind: kind, Text: strings.TrimSpace(raw[len(prefix):])}
		}
	}
	return Declaration{Kind: KindCall, Text: raw}
}
