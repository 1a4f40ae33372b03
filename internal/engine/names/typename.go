package names

import (
	"strings"

	"bindsig/internal/engine/diag"
	"bindsig/internal/engine/scan"
)

const maxTypeDepth = 64

// TypeName is a validated, possibly qualified and generic, type reference.
// Two TypeNames are the same type when their canonical strings match.
type TypeName struct {
	Global   bool
	Segments []Segment
	Nullable bool
	// Ranks holds one entry per array suffix; [] is 1, [,] is 2.
	Ranks []int
}

// Segment is one dotted component of a TypeName.
type Segment struct {
	Name string
	Args []TypeName
}

// String returns the canonical spelling, e.g. "global::A.B<int, C[]>?".
func (t TypeName) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t TypeName) write(b *strings.Builder) {
	if t.Global {
		b.WriteString("global::")
	}
	for i, seg := range t.Segments {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg.Name)
		if len(seg.Args) == 0 {
			continue
		}
		b.WriteByte('<')
		for j, arg := range seg.Args {
			if j > 0 {
				b.WriteString(", ")
			}
			arg.write(b)
		}
		b.WriteByte('>')
	}
	if t.Nullable {
		b.WriteByte('?')
	}
	for _, rank := range t.Ranks {
		b.WriteByte('[')
		b.WriteString(strings.Repeat(",", rank-1))
		b.WriteByte(']')
	}
}

// Key is the identity used for set membership.
func (t TypeName) Key() string {
	return t.String()
}

func (t TypeName) Equal(other TypeName) bool {
	return t.Key() == other.Key()
}

// Name returns the last segment name without arguments.
func (t TypeName) Name() string {
	if len(t.Segments) == 0 {
		return ""
	}
	return t.Segments[len(t.Segments)-1].Name
}

// IsGeneric reports whether any segment carries type arguments.
func (t TypeName) IsGeneric() bool {
	for _, seg := range t.Segments {
		if len(seg.Args) > 0 {
			return true
		}
	}
	return false
}

// IsAlias reports whether t is exactly a built-in type keyword such as int.
func (t TypeName) IsAlias() bool {
	return !t.Global && len(t.Segments) == 1 && len(t.Segments[0].Args) == 0 &&
		!t.Nullable && len(t.Ranks) == 0 && typeAliases[t.Segments[0].Name]
}

// TypeNames implements ports.TypeNameValidator.
type TypeNames struct{}

// Validate parses text as a type name. Error indexes are local to text.
func (TypeNames) Validate(text string, allowGenerics bool) (TypeName, *diag.Error) {
	return ParseTypeName(text, allowGenerics)
}

// ParseTypeName parses text as a type name. allowGenerics controls whether
// the outermost name may carry type arguments.
func ParseTypeName(text string, allowGenerics bool) (TypeName, *diag.Error) {
	p := &typeParser{src: []rune(text), allowGenerics: allowGenerics}
	p.skipSpace()
	if p.pos >= len(p.src) {
		return TypeName{}, diag.Errorf(0, "type name is empty")
	}
	t, err := p.parseType(0)
	if err != nil {
		return TypeName{}, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return TypeName{}, diag.Errorf(p.pos, "unexpected character '%c' in type name", p.src[p.pos])
	}
	return t, nil
}

type typeParser struct {
	src           []rune
	pos           int
	allowGenerics bool
}

func (p *typeParser) skipSpace() {
	p.pos = scan.SkipSpace(p.src, p.pos)
}

func (p *typeParser) peek() rune {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *typeParser) parseType(depth int) (TypeName, *diag.Error) {
	if depth > maxTypeDepth {
		return TypeName{}, diag.Errorf(p.pos, "type name nests too deeply")
	}
	var t TypeName
	p.skipSpace()
	if p.hasGlobalPrefix() {
		t.Global = true
	}

	for {
		start := p.pos
		seg, err := p.parseSegment(depth)
		if err != nil {
			return TypeName{}, err
		}
		if typeAliases[seg.Name] && (len(t.Segments) > 0 || t.Global) {
			return TypeName{}, diag.Errorf(start, "'%s' cannot be qualified", seg.Name)
		}
		t.Segments = append(t.Segments, seg)
		p.skipSpace()
		if p.peek() != '.' {
			break
		}
		if typeAliases[t.Segments[0].Name] {
			return TypeName{}, diag.Errorf(p.pos, "unexpected '.' after built-in type '%s'", t.Segments[0].Name)
		}
		p.pos++
		p.skipSpace()
	}

	if p.peek() == '?' {
		t.Nullable = true
		p.pos++
		p.skipSpace()
	}
	for p.peek() == '[' {
		open := p.pos
		p.pos++
		rank := 1
		for {
			p.skipSpace()
			r := p.peek()
			if r == ',' {
				rank++
				p.pos++
				continue
			}
			if r == ']' {
				p.pos++
				break
			}
			if r == 0 {
				return TypeName{}, diag.Errorf(open, "unclosed array rank specifier")
			}
			return TypeName{}, diag.Errorf(p.pos, "unexpected character '%c' in array rank specifier", r)
		}
		t.Ranks = append(t.Ranks, rank)
		p.skipSpace()
	}
	return t, nil
}

func (p *typeParser) hasGlobalPrefix() bool {
	if !p.isWordAt("global") {
		return false
	}
	j := scan.SkipSpace(p.src, p.pos+len("global"))
	if j+1 < len(p.src) && p.src[j] == ':' && p.src[j+1] == ':' {
		p.pos = scan.SkipSpace(p.src, j+2)
		return true
	}
	return false
}

func (p *typeParser) isWordAt(word string) bool {
	end := scan.ScanIdentifier(p.src, p.pos)
	return string(p.src[p.pos:end]) == word
}

func (p *typeParser) parseSegment(depth int) (Segment, *diag.Error) {
	p.skipSpace()
	start := p.pos
	end := scan.ScanIdentifier(p.src, start)
	if end == start {
		if start >= len(p.src) {
			return Segment{}, diag.Errorf(start, "expected type name")
		}
		return Segment{}, diag.Errorf(start, "unexpected character '%c', expected type name", p.src[start])
	}
	name := string(p.src[start:end])
	if !typeAliases[name] && !IsIdentifier(name) {
		return Segment{}, diag.Errorf(start, "'%s' is a reserved keyword and cannot be used as a type name", name)
	}
	p.pos = end
	seg := Segment{Name: name}

	p.skipSpace()
	if p.peek() != '<' {
		return seg, nil
	}
	if depth == 0 && !p.allowGenerics {
		return Segment{}, diag.Errorf(p.pos, "generic arguments are not allowed here")
	}
	if typeAliases[name] {
		return Segment{}, diag.Errorf(p.pos, "built-in type '%s' cannot have type arguments", name)
	}
	p.pos++
	for {
		p.skipSpace()
		if p.peek() == '>' || p.peek() == ',' {
			return Segment{}, diag.Errorf(p.pos, "expected type argument")
		}
		if p.peek() == 0 {
			return Segment{}, diag.Errorf(len(p.src)-1, "unclosed type argument list")
		}
		arg, err := p.parseType(depth + 1)
		if err != nil {
			return Segment{}, err
		}
		seg.Args = append(seg.Args, arg)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '>':
			p.pos++
			return seg, nil
		case 0:
			return Segment{}, diag.Errorf(len(p.src)-1, "unclosed type argument list")
		default:
			return Segment{}, diag.Errorf(p.pos, "unexpected character '%c' in type argument list", p.peek())
		}
	}
}
