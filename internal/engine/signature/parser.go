package signature

import (
	"fmt"
	"unicode"

	"bindsig/internal/core/ports"
	"bindsig/internal/engine/diag"
	"bindsig/internal/engine/scan"
)

type state int

const (
	waitingForFirstChar state = iota
	accumulatingMethodName
	afterMethodName
	accumulatingExplicitGenericArgs
	accumulatingGenericTypePart
	afterExplicitGenericArgs
	waitingForParameterName
	accumulatingParameter
	inParen
	inBrace
	inBracket
	afterSignature
)

var bracketStates = [...]state{scan.Paren: inParen, scan.Brace: inBrace, scan.Square: inBracket}

// Parser parses call signatures. It is safe for concurrent use when its
// collaborators are.
type Parser struct {
	ids      ports.IdentifierValidator
	types    ports.TypeNameValidator
	oracle   ports.ExpressionOracle
	keywords *scan.Disambiguator[state]
}

func NewParser(ids ports.IdentifierValidator, types ports.TypeNameValidator, oracle ports.ExpressionOracle) *Parser {
	return &Parser{
		ids:    ids,
		types:  types,
		oracle: oracle,
		keywords: scan.NewDisambiguator[state]().
			Allow("ref", waitingForParameterName).
			Allow("out", waitingForParameterName).
			Allow("new", waitingForParameterName),
	}
}

// Parse parses text. On failure the error is a *diag.Error whose index is a
// rune offset into text.
func (p *Parser) Parse(text string) (*CallSignature, error) {
	r := &run{
		p:   p,
		src: []rune(text),
	}
	r.generic = scan.NewGenericArgs[state](r.src)
	if err := r.scan(); err != nil {
		return nil, err
	}
	return &r.sig, nil
}

// run holds the scanner variables of one Parse call.
type run struct {
	p       *Parser
	src     []rune
	state   state
	nest    scan.Nesting[state]
	generic *scan.GenericArgs[state]

	nameStart  int
	paramStart int
	modifier   Modifier
	afterComma bool

	sig CallSignature
}

func (r *run) scan() *diag.Error {
	i := 0
	for i < len(r.src) {
		next, err := r.step(i)
		if err != nil {
			return err
		}
		i = next
	}
	if r.state != afterSignature {
		return diag.Incomplete(len(r.src))
	}
	return nil
}

// step consumes input starting at i and returns the index to continue from.
func (r *run) step(i int) (int, *diag.Error) {
	c := r.src[i]
	switch r.state {
	case waitingForFirstChar:
		switch {
		case scan.IsSpace(c):
		case scan.IsIdentStart(c):
			r.nameStart = i
			r.state = accumulatingMethodName
		case c == '(' || c == '<':
			return 0, diag.Errorf(i, "method name expected")
		default:
			return 0, diag.Errorf(i, "unexpected character '%c'", c)
		}
		return i + 1, nil

	case accumulatingMethodName:
		switch {
		case scan.IsIdentPart(c) || c == '@' || c == '.':
			return i + 1, nil
		case c == '(' || c == '<' || scan.IsSpace(c):
			if err := r.finishMethodName(i); err != nil {
				return 0, err
			}
			return r.afterName(i, c)
		}
		return 0, unexpectedIn(i, c, "method name")

	case afterMethodName:
		if scan.IsSpace(c) {
			return i + 1, nil
		}
		if c == '(' || c == '<' {
			return r.afterName(i, c)
		}
		return 0, diag.Errorf(i, "expected '(' after method name but found '%c'", c)

	case accumulatingExplicitGenericArgs, accumulatingGenericTypePart:
		return r.stepGeneric(i)

	case afterExplicitGenericArgs:
		if scan.IsSpace(c) {
			return i + 1, nil
		}
		if c == '(' {
			r.state = waitingForParameterName
			return i + 1, nil
		}
		return 0, diag.Errorf(i, "expected '(' after generic arguments but found '%c'", c)

	case waitingForParameterName:
		return r.stepWaitingForParameter(i)

	case accumulatingParameter, inParen, inBrace, inBracket:
		return r.stepParameter(i)

	case afterSignature:
		if scan.IsSpace(c) {
			return i + 1, nil
		}
		if kind, opening, ok := scan.Bracket(c); ok && !opening {
			return 0, diag.Errorf(i, "unexpected closing %s", kind)
		}
		return 0, diag.Errorf(i, "unexpected character '%c' after signature", c)
	}
	panic(fmt.Sprintf("signature: unhandled state %d", r.state))
}

func (r *run) finishMethodName(end int) *diag.Error {
	name := string(r.src[r.nameStart:end])
	if !r.p.ids.IsValid(name) {
		return diag.Errorf(r.nameStart, "'%s' is not a valid method name", name)
	}
	r.sig.MethodName = name
	return nil
}

// afterName handles the delimiter that ended the method name.
func (r *run) afterName(i int, c rune) (int, *diag.Error) {
	switch c {
	case '(':
		r.state = waitingForParameterName
	case '<':
		r.generic.Begin(i, afterExplicitGenericArgs)
		r.state = accumulatingExplicitGenericArgs
	default:
		r.state = afterMethodName
	}
	return i + 1, nil
}

func (r *run) stepGeneric(i int) (int, *diag.Error) {
	next, event, frag, err := r.generic.Step(i, r.state, accumulatingGenericTypePart)
	if err != nil {
		return 0, err
	}
	if event == scan.GenericArgument || event == scan.GenericClosed {
		if frag.Text == "" {
			return 0, diag.Errorf(i, "type argument expected")
		}
		t, err := r.p.types.Validate(frag.Text, true)
		if err != nil {
			return 0, rebase(err, frag)
		}
		r.sig.GenericArgs = append(r.sig.GenericArgs, t)
	}
	r.state = next
	return i + 1, nil
}

func (r *run) stepWaitingForParameter(i int) (int, *diag.Error) {
	c := r.src[i]
	if scan.IsSpace(c) {
		return i + 1, nil
	}
	if r.modifier == None {
		if kw, ok := r.p.keywords.Match(r.src, i, waitingForParameterName); ok {
			r.modifier = modifierFor(kw)
			return i + len(kw), nil
		}
	}
	switch c {
	case ')':
		if r.modifier != None {
			return 0, diag.Errorf(i, "parameter expected after '%s'", r.modifier)
		}
		if r.afterComma {
			return 0, diag.Errorf(i, "parameter expected")
		}
		r.state = afterSignature
		return i + 1, nil
	case ',':
		return 0, diag.Errorf(i, "parameter expected")
	}
	r.paramStart = i
	r.state = accumulatingParameter
	return r.stepParameter(i)
}

// stepParameter scans opaque parameter text. Separators only count at
// nesting depth zero.
func (r *run) stepParameter(i int) (int, *diag.Error) {
	c := r.src[i]
	if scan.IsLiteralStart(r.src, i) {
		end, ok := scan.SkipLiteral(r.src, i)
		if !ok {
			return len(r.src), nil
		}
		return end, nil
	}
	if c == '<' && i > r.paramStart && scan.IsIdentPart(r.src[i-1]) {
		if end, ok := skipTypeArguments(r.src, i); ok {
			return end, nil
		}
	}
	if kind, opening, ok := scan.Bracket(c); ok {
		if opening {
			r.nest.Open(kind, r.state)
			r.state = bracketStates[kind]
			return i + 1, nil
		}
		if kind == scan.Paren && r.nest.AtDepthZero() {
			if err := r.completeParameter(i); err != nil {
				return 0, err
			}
			r.state = afterSignature
			return i + 1, nil
		}
		prev, err := r.nest.Close(kind, i)
		if err != nil {
			return 0, err
		}
		r.state = prev
		return i + 1, nil
	}
	if c == ',' && r.nest.AtDepthZero() {
		if err := r.completeParameter(i); err != nil {
			return 0, err
		}
		r.state = waitingForParameterName
		r.afterComma = true
		return i + 1, nil
	}
	return i + 1, nil
}

func (r *run) completeParameter(end int) *diag.Error {
	frag := scan.Trimmed(r.src, r.paramStart, end)
	if frag.Text == "" {
		return diag.Errorf(end, "parameter expected")
	}
	if err := r.validateParameter(frag); err != nil {
		return err
	}
	r.sig.Parameters = append(r.sig.Parameters, Parameter{Text: frag.Text, Modifier: r.modifier})
	r.modifier = None
	return nil
}

func (r *run) validateParameter(frag scan.Fragment) *diag.Error {
	switch r.modifier {
	case Ref, Out:
		if !r.p.ids.IsValid(frag.Text) {
			return diag.Errorf(frag.Start, "'%s' can only be used with a direct variable reference", r.modifier)
		}
		return nil
	case New:
		first := []rune(frag.Text)[0]
		switch {
		case unicode.IsDigit(first):
			return diag.Errorf(frag.Start, "'new' cannot be applied to a numeric literal")
		case scan.IsLiteralStart(r.src, frag.Start):
			return diag.Errorf(frag.Start, "'new' cannot be applied to a string or character literal")
		case r.p.ids.IsValid(frag.Text):
			return diag.Errorf(frag.Start, "'new' must be followed by a constructor call or initializer, not the bare name '%s'", frag.Text)
		}
		return rebase(r.p.oracle.Check(ports.ProbeNew, frag.Text), frag)
	}
	return rebase(r.p.oracle.Check(ports.ProbeArgument, frag.Text), frag)
}

// rebase moves a collaborator error from fragment-local to signature
// coordinates. An index equal to the fragment length (end of fragment) is
// reported at the fragment's last rune. Indexes outside [0, len] break the
// collaborator contract and panic.
func rebase(err *diag.Error, frag scan.Fragment) *diag.Error {
	if err == nil {
		return nil
	}
	n := frag.End - frag.Start
	if err.Index < 0 || err.Index > n {
		panic(fmt.Sprintf("signature: collaborator reported index %d outside fragment %q of length %d", err.Index, frag.Text, n))
	}
	idx := err.Index
	if idx == n && n > 0 {
		idx = n - 1
	}
	return &diag.Error{Message: err.Message, Index: frag.Start + idx}
}

func unexpectedIn(i int, c rune, where string) *diag.Error {
	if kind, opening, ok := scan.Bracket(c); ok && !opening {
		return diag.Errorf(i, "unexpected closing %s", kind)
	}
	return diag.Errorf(i, "unexpected character '%c' in %s", c, where)
}

// skipTypeArguments looks ahead from the '<' at i for a balanced type
// argument list such as "<int, string>" followed by a token that can follow
// a generic name. It returns the index past the closing '>'. Anything else
// leaves '<' to be read as an operator.
func skipTypeArguments(src []rune, i int) (int, bool) {
	depth := 0
	for j := i; j < len(src); j++ {
		c := src[j]
		switch {
		case c == '<':
			depth++
		case c == '>':
			depth--
			if depth == 0 {
				k := scan.SkipSpace(src, j+1)
				if k == len(src) || isTypeArgumentFollower(src[k]) {
					return j + 1, true
				}
				return 0, false
			}
		case scan.IsIdentPart(c) || scan.IsSpace(c):
		case c == ',' || c == '.' || c == '?' || c == '[' || c == ']' || c == ':' || c == '@':
		default:
			return 0, false
		}
	}
	return 0, false
}

func isTypeArgumentFollower(c rune) bool {
	switch c {
	case '(', ')', ',', '.', '[', ']', '{', '}', '?':
		return true
	}
	return false
}
