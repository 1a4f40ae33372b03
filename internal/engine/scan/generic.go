package scan

import (
	"unicode"

	"bindsig/internal/engine/diag"
)

// GenericEvent tells the owning parser what a GenericArgs step did.
type GenericEvent int

const (
	// GenericContinue: the rune belongs to the current argument.
	GenericContinue GenericEvent = iota
	// GenericArgument: a top-level comma ended an argument.
	GenericArgument
	// GenericClosed: the outermost '>' ended the last argument.
	GenericClosed
)

// Fragment is a trimmed slice of the source with its absolute start offset.
type Fragment struct {
	Text  string
	Start int
	End   int
}

// Trimmed returns src[start:end] without surrounding whitespace.
func Trimmed(src []rune, start, end int) Fragment {
	for start < end && IsSpace(src[start]) {
		start++
	}
	for end > start && IsSpace(src[end-1]) {
		end--
	}
	return Fragment{Text: string(src[start:end]), Start: start, End: end}
}

// GenericArgs balances '<' and '>' after a name and splits the text between
// the outermost pair into arguments on top-level commas. Its depth is
// independent of any Nesting the owning parser keeps; parentheses and square
// brackets inside the arguments (tuples, array ranks) are tracked separately
// so their commas stay inert.
type GenericArgs[S any] struct {
	src    []rune
	depth  int
	start  int
	resume Stack[S]
	inner  Nesting[S]
}

func NewGenericArgs[S any](src []rune) *GenericArgs[S] {
	return &GenericArgs[S]{src: src}
}

// Begin enters generic-argument mode at the '<' found at index open. resume is
// the state control returns to once the matching '>' is consumed.
func (g *GenericArgs[S]) Begin(open int, resume S) {
	g.depth = 1
	g.start = open + 1
	g.resume.Push(resume)
}

// Active reports whether an argument list is open.
func (g *GenericArgs[S]) Active() bool {
	return g.depth > 0
}

func (g *GenericArgs[S]) Depth() int {
	return g.depth
}

// Step consumes the rune at i while the parser is in state current. nested is
// the state used while inside an inner '<...>'. It returns the state the
// parser continues in.
func (g *GenericArgs[S]) Step(i int, current, nested S) (S, GenericEvent, Fragment, *diag.Error) {
	r := g.src[i]
	switch r {
	case '<':
		g.depth++
		g.resume.Push(current)
		return nested, GenericContinue, Fragment{}, nil
	case '>':
		if !g.inner.AtDepthZero() {
			return current, GenericContinue, Fragment{}, diag.Errorf(i, "unexpected '>'")
		}
		g.depth--
		next, _ := g.resume.Pop()
		if g.depth == 0 {
			return next, GenericClosed, Trimmed(g.src, g.start, i), nil
		}
		return next, GenericContinue, Fragment{}, nil
	case ',':
		if g.depth == 1 && g.inner.AtDepthZero() {
			frag := Trimmed(g.src, g.start, i)
			g.start = i + 1
			return current, GenericArgument, frag, nil
		}
		return current, GenericContinue, Fragment{}, nil
	case '(', '[':
		kind, _, _ := Bracket(r)
		g.inner.Open(kind, current)
		return current, GenericContinue, Fragment{}, nil
	case ')', ']':
		kind, _, _ := Bracket(r)
		if _, err := g.inner.Close(kind, i); err != nil {
			return current, GenericContinue, Fragment{}, err
		}
		return current, GenericContinue, Fragment{}, nil
	}
	if r == '{' || r == '}' || r == ';' || r == '"' || r == '\'' || r == '=' {
		return current, GenericContinue, Fragment{}, diag.Errorf(i, "unexpected character '%c' in generic arguments", r)
	}
	if !unicode.IsPrint(r) && !IsSpace(r) {
		return current, GenericContinue, Fragment{}, diag.Errorf(i, "unexpected character %U in generic arguments", r)
	}
	return current, GenericContinue, Fragment{}, nil
}
