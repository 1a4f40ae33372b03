package oracle

import (
	"unicode"

	"bindsig/internal/engine/diag"
	"bindsig/internal/engine/names"
	"bindsig/internal/engine/scan"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokKeyword
	tokInt
	tokReal
	tokString
	tokChar
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	pos  int
	end  int
}

// punctuators ordered longest first.
var punctuators = []string{
	"??=", "<<=",
	"=>", "==", "!=", "<=", ">=", "&&", "||", "??", "?.", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<", "->", "::", "..",
	"(", ")", "[", "]", "{", "}", ".", ",", ":", ";", "+", "-", "*", "/",
	"%", "&", "|", "^", "!", "~", "=", "<", ">", "?",
}

func lex(src []rune) ([]token, *diag.Error) {
	toks := make([]token, 0, len(src)/2+1)
	i := 0
	for {
		i = skipTrivia(src, i)
		if i >= len(src) {
			toks = append(toks, token{kind: tokEOF, pos: len(src), end: len(src)})
			return toks, nil
		}
		r := src[i]
		switch {
		case scan.IsLiteralStart(src, i):
			end, ok := scan.SkipLiteral(src, i)
			if !ok {
				return nil, diag.Errorf(i, "unterminated literal")
			}
			kind := tokString
			if r == '\'' {
				kind = tokChar
				if end-i == 2 {
					return nil, diag.Errorf(i, "empty character literal")
				}
			}
			toks = append(toks, token{kind: kind, text: string(src[i:end]), pos: i, end: end})
			i = end
		case scan.IsIdentStart(r):
			end := scan.ScanIdentifier(src, i)
			if end == i {
				return nil, diag.Errorf(i, "unexpected character '%c'", r)
			}
			word := string(src[i:end])
			kind := tokIdent
			if r != '@' && names.IsReservedKeyword(word) {
				kind = tokKeyword
			}
			toks = append(toks, token{kind: kind, text: word, pos: i, end: end})
			i = end
		case unicode.IsDigit(r) || (r == '.' && i+1 < len(src) && unicode.IsDigit(src[i+1])):
			tok, err := lexNumber(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = tok.end
		default:
			p := matchPunct(src, i)
			if p == "" {
				return nil, diag.Errorf(i, "unexpected character '%c'", r)
			}
			n := len([]rune(p))
			toks = append(toks, token{kind: tokPunct, text: p, pos: i, end: i + n})
			i += n
		}
	}
}

func skipTrivia(src []rune, i int) int {
	for i < len(src) {
		if scan.IsSpace(src[i]) {
			i++
			continue
		}
		if src[i] == '/' && i+1 < len(src) {
			if src[i+1] == '/' {
				for i < len(src) && src[i] != '\n' {
					i++
				}
				continue
			}
			if src[i+1] == '*' {
				j := i + 2
				for j+1 < len(src) && !(src[j] == '*' && src[j+1] == '/') {
					j++
				}
				if j+1 >= len(src) {
					return i
				}
				i = j + 2
				continue
			}
		}
		break
	}
	return i
}

func matchPunct(src []rune, i int) string {
	for _, p := range punctuators {
		n := 0
		ok := true
		for _, r := range p {
			if i+n >= len(src) || src[i+n] != r {
				ok = false
				break
			}
			n++
		}
		if !ok {
			continue
		}
		// "a?.5:b" is a conditional, not a null-conditional member access.
		if p == "?." && i+2 < len(src) && unicode.IsDigit(src[i+2]) {
			continue
		}
		return p
	}
	return ""
}

func isHexDigit(r rune) bool {
	return unicode.IsDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func lexNumber(src []rune, start int) (token, *diag.Error) {
	i := start
	kind := tokInt
	digits := func(valid func(rune) bool) int {
		n := 0
		for i < len(src) && (valid(src[i]) || (src[i] == '_' && n > 0)) {
			i++
			n++
		}
		return n
	}

	if src[i] == '0' && i+1 < len(src) && (src[i+1] == 'x' || src[i+1] == 'X' || src[i+1] == 'b' || src[i+1] == 'B') {
		binary := src[i+1] == 'b' || src[i+1] == 'B'
		i += 2
		valid := isHexDigit
		if binary {
			valid = func(r rune) bool { return r == '0' || r == '1' }
		}
		if digits(valid) == 0 {
			return token{}, diag.Errorf(start, "invalid numeric literal")
		}
	} else {
		digits(unicode.IsDigit)
		if i+1 < len(src) && src[i] == '.' && unicode.IsDigit(src[i+1]) {
			kind = tokReal
			i++
			digits(unicode.IsDigit)
		}
		if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
			kind = tokReal
			i++
			if i < len(src) && (src[i] == '+' || src[i] == '-') {
				i++
			}
			if digits(unicode.IsDigit) == 0 {
				return token{}, diag.Errorf(start, "invalid numeric literal")
			}
		}
	}

	for n := 0; n < 2 && i < len(src) && isNumberSuffix(src[i]); n++ {
		switch src[i] {
		case 'f', 'F', 'd', 'D', 'm', 'M':
			kind = tokReal
		}
		i++
	}
	if i < len(src) && scan.IsIdentPart(src[i]) {
		return token{}, diag.Errorf(start, "invalid numeric literal")
	}
	return token{kind: kind, text: string(src[start:i]), pos: start, end: i}, nil
}

func isNumberSuffix(r rune) bool {
	switch r {
	case 'u', 'U', 'l', 'L', 'f', 'F', 'd', 'D', 'm', 'M':
		return true
	}
	return false
}
