package inherit

import (
	"fmt"
	"regexp"

	"bindsig/internal/core/ports"
	"bindsig/internal/engine/diag"
	"bindsig/internal/engine/names"
	"bindsig/internal/engine/scan"
)

type state int

const (
	waitingForFirstWord state = iota
	waitingForInheritedType
	accumulatingInheritedType
	accumulatingGenericPart
	afterInheritedType
	afterWhereKeyword
	accumulatingConstraintParam
	afterConstraintParam
	afterConstraintColon
	accumulatingTypeConstraint
	afterTypeConstraint
)

const whereKeyword = "where"

var newConstraint = regexp.MustCompile(`^new\(\s*\)$`)

// Parser parses inheritance lists. It is safe for concurrent use when its
// collaborators are.
type Parser struct {
	ids      ports.IdentifierValidator
	types    ports.TypeNameValidator
	keywords *scan.Disambiguator[state]
}

func NewParser(ids ports.IdentifierValidator, types ports.TypeNameValidator) *Parser {
	return &Parser{
		ids:   ids,
		types: types,
		keywords: scan.NewDisambiguator[state]().
			Allow(whereKeyword, waitingForFirstWord, afterInheritedType, afterTypeConstraint),
	}
}

// Parse parses text. An empty or blank list is valid. On failure the error is
// a *diag.Error whose index is a rune offset into text.
func (p *Parser) Parse(text string) (*InheritanceList, error) {
	r := &run{
		p:         p,
		src:       []rune(text),
		seenTypes: make(map[string]bool),
		list:      InheritanceList{Constraints: make(map[string][]Constraint)},
	}
	r.generic = scan.NewGenericArgs[state](r.src)
	if err := r.scan(); err != nil {
		return nil, err
	}
	return &r.list, nil
}

type run struct {
	p       *Parser
	src     []rune
	state   state
	nest    scan.Nesting[state]
	generic *scan.GenericArgs[state]

	wordStart int
	param     string
	seenTypes map[string]bool

	list InheritanceList
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
	return r.finish()
}

// finish handles end of input.
func (r *run) finish() *diag.Error {
	n := len(r.src)
	switch r.state {
	case waitingForFirstWord, afterInheritedType, afterTypeConstraint:
		return nil
	case accumulatingInheritedType:
		if r.nest.AtDepthZero() {
			return r.completeType(n)
		}
	case accumulatingTypeConstraint:
		if r.nest.AtDepthZero() {
			return r.completeConstraint(n)
		}
	}
	return diag.Incomplete(n)
}

func (r *run) step(i int) (int, *diag.Error) {
	c := r.src[i]
	switch r.state {
	case waitingForFirstWord, waitingForInheritedType:
		if scan.IsSpace(c) {
			return i + 1, nil
		}
		if r.isWhereClause(i) {
			r.state = afterWhereKeyword
			return i + len(whereKeyword), nil
		}
		if c == ',' {
			return 0, diag.Errorf(i, "inherited type expected")
		}
		r.wordStart = i
		r.state = accumulatingInheritedType
		return r.stepWord(i, r.completeType, waitingForInheritedType, afterInheritedType)

	case accumulatingInheritedType:
		return r.stepWord(i, r.completeType, waitingForInheritedType, afterInheritedType)

	case accumulatingGenericPart:
		next, _, _, err := r.generic.Step(i, r.state, accumulatingGenericPart)
		if err != nil {
			return 0, err
		}
		r.state = next
		return i + 1, nil

	case afterInheritedType:
		if scan.IsSpace(c) {
			return i + 1, nil
		}
		if c == ',' {
			r.state = waitingForInheritedType
			return i + 1, nil
		}
		if _, ok := r.p.keywords.Match(r.src, i, afterInheritedType); ok {
			r.state = afterWhereKeyword
			return i + len(whereKeyword), nil
		}
		return 0, diag.Errorf(i, "expected ',' or 'where' after inherited type but found '%c'", c)

	case afterWhereKeyword:
		if scan.IsSpace(c) {
			return i + 1, nil
		}
		if scan.IsIdentStart(c) {
			r.wordStart = i
			r.state = accumulatingConstraintParam
			return i + 1, nil
		}
		return 0, diag.Errorf(i, "type parameter name expected after 'where'")

	case accumulatingConstraintParam:
		switch {
		case scan.IsIdentPart(c):
			return i + 1, nil
		case scan.IsSpace(c) || c == ':':
			if err := r.completeParam(i); err != nil {
				return 0, err
			}
			if c == ':' {
				r.state = afterConstraintColon
			} else {
				r.state = afterConstraintParam
			}
			return i + 1, nil
		}
		return 0, diag.Errorf(i, "unexpected character '%c' in type parameter name", c)

	case afterConstraintParam:
		if scan.IsSpace(c) {
			return i + 1, nil
		}
		if c == ':' {
			r.state = afterConstraintColon
			return i + 1, nil
		}
		return 0, diag.Errorf(i, "expected ':' after type parameter '%s'", r.param)

	case afterConstraintColon:
		if scan.IsSpace(c) {
			return i + 1, nil
		}
		if c == ',' {
			return 0, diag.Errorf(i, "constraint expected")
		}
		r.wordStart = i
		r.state = accumulatingTypeConstraint
		return r.stepWord(i, r.completeConstraint, afterConstraintColon, afterTypeConstraint)

	case accumulatingTypeConstraint:
		return r.stepWord(i, r.completeConstraint, afterConstraintColon, afterTypeConstraint)

	case afterTypeConstraint:
		if scan.IsSpace(c) {
			return i + 1, nil
		}
		if c == ',' {
			r.state = afterConstraintColon
			return i + 1, nil
		}
		if _, ok := r.p.keywords.Match(r.src, i, afterTypeConstraint); ok {
			r.state = afterWhereKeyword
			return i + len(whereKeyword), nil
		}
		return 0, diag.Errorf(i, "expected ',' or 'where' after constraint but found '%c'", c)
	}
	panic(fmt.Sprintf("inherit: unhandled state %d", r.state))
}

// isWhereClause reports whether a where clause starts at i. In first-word
// position "where" is only a keyword when "identifier :" follows; otherwise
// it names an inherited type.
func (r *run) isWhereClause(i int) bool {
	if r.state != waitingForFirstWord {
		return false
	}
	if _, ok := r.p.keywords.Match(r.src, i, waitingForFirstWord); !ok {
		return false
	}
	j := scan.SkipSpace(r.src, i+len(whereKeyword))
	end := scan.ScanIdentifier(r.src, j)
	if end == j {
		return false
	}
	j = scan.SkipSpace(r.src, end)
	return j < len(r.src) && r.src[j] == ':'
}

// stepWord accumulates a type or constraint word. Whitespace and commas end
// the word only outside brackets; '<' hands control to the generic scanner.
func (r *run) stepWord(i int, complete func(end int) *diag.Error, afterComma, afterSpace state) (int, *diag.Error) {
	c := r.src[i]
	if c == '<' {
		r.generic.Begin(i, r.state)
		r.state = accumulatingGenericPart
		return i + 1, nil
	}
	if kind, opening, ok := scan.Bracket(c); ok {
		if opening {
			r.nest.Open(kind, r.state)
			return i + 1, nil
		}
		prev, err := r.nest.Close(kind, i)
		if err != nil {
			return 0, err
		}
		r.state = prev
		return i + 1, nil
	}
	if !r.nest.AtDepthZero() {
		return i + 1, nil
	}
	switch {
	case c == ',':
		if err := complete(i); err != nil {
			return 0, err
		}
		r.state = afterComma
	case scan.IsSpace(c):
		if err := complete(i); err != nil {
			return 0, err
		}
		r.state = afterSpace
	}
	return i + 1, nil
}

func (r *run) completeType(end int) *diag.Error {
	frag := scan.Trimmed(r.src, r.wordStart, end)
	t, err := r.p.types.Validate(frag.Text, true)
	if err != nil {
		return rebase(err, frag)
	}
	if r.seenTypes[t.Key()] {
		return diag.Errorf(frag.Start, "'%s' cannot be inherited more than once", t)
	}
	r.seenTypes[t.Key()] = true
	r.list.InheritedTypes = append(r.list.InheritedTypes, t)
	return nil
}

func (r *run) completeParam(end int) *diag.Error {
	name := string(r.src[r.wordStart:end])
	if !r.p.ids.IsValid(name) {
		return diag.Errorf(r.wordStart, "'%s' is not a valid type parameter name", name)
	}
	if _, dup := r.list.Constraints[name]; dup {
		return diag.Errorf(r.wordStart, "constraints for '%s' cannot be declared more than once", name)
	}
	r.param = name
	r.list.ConstrainedParameters = append(r.list.ConstrainedParameters, name)
	r.list.Constraints[name] = []Constraint{}
	return nil
}

func (r *run) completeConstraint(end int) *diag.Error {
	frag := scan.Trimmed(r.src, r.wordStart, end)
	c, err := r.classify(frag)
	if err != nil {
		return err
	}
	for _, existing := range r.list.Constraints[r.param] {
		if existing.Key() == c.Key() {
			return diag.Errorf(frag.Start, "constraint '%s' cannot be used more than once", c)
		}
	}
	r.list.Constraints[r.param] = append(r.list.Constraints[r.param], c)
	return nil
}

func (r *run) classify(frag scan.Fragment) (Constraint, *diag.Error) {
	switch {
	case frag.Text == "class":
		return Constraint{Kind: ConstraintClass}, nil
	case frag.Text == "struct":
		return Constraint{Kind: ConstraintStruct}, nil
	case newConstraint.MatchString(frag.Text):
		return Constraint{Kind: ConstraintNew}, nil
	case names.IsTypeAlias(frag.Text):
		return Constraint{}, diag.Errorf(frag.Start, "built-in type '%s' cannot be used as a constraint", frag.Text)
	}
	t, err := r.p.types.Validate(frag.Text, true)
	if err != nil {
		return Constraint{}, rebase(err, frag)
	}
	return Constraint{Kind: ConstraintType, Type: t}, nil
}

// rebase moves a type validator error into list coordinates. See the
// signature package for the clamping rule.
func rebase(err *diag.Error, frag scan.Fragment) *diag.Error {
	n := frag.End - frag.Start
	if err.Index < 0 || err.Index > n {
		panic(fmt.Sprintf("inherit: type validator reported index %d outside fragment %q of length %d", err.Index, frag.Text, n))
	}
	idx := err.Index
	if idx == n && n > 0 {
		idx = n - 1
	}
	return &diag.Error{Message: err.Message, Index: frag.Start + idx}
}
