package scan

// IsLiteralStart reports whether a string or character literal begins at i:
// "..." '...' @"..." $"..." $@"..." @$"...".
func IsLiteralStart(src []rune, i int) bool {
	if i >= len(src) {
		return false
	}
	switch src[i] {
	case '"', '\'':
		return true
	case '@', '$':
		j := i + 1
		if j < len(src) && (src[j] == '@' || src[j] == '$') && src[j] != src[i] {
			j++
		}
		return j < len(src) && src[j] == '"'
	}
	return false
}

// SkipLiteral returns the index just past the literal starting at i. ok is
// false when input ends before the literal is closed. Interpolation holes in
// $"..." strings may contain nested literals and braces.
func SkipLiteral(src []rune, i int) (int, bool) {
	verbatim, interpolated := false, false
	for i < len(src) && (src[i] == '@' || src[i] == '$') {
		if src[i] == '@' {
			verbatim = true
		} else {
			interpolated = true
		}
		i++
	}
	if i >= len(src) {
		return i, false
	}
	quote := src[i]
	i++
	for i < len(src) {
		r := src[i]
		switch {
		case r == quote:
			if verbatim && i+1 < len(src) && src[i+1] == quote {
				i += 2
				continue
			}
			return i + 1, true
		case r == '\\' && !verbatim:
			i += 2
			continue
		case r == '\n' && !verbatim:
			return i, false
		case r == '{' && interpolated:
			if i+1 < len(src) && src[i+1] == '{' {
				i += 2
				continue
			}
			end, ok := skipHole(src, i+1)
			if !ok {
				return end, false
			}
			i = end
			continue
		}
		i++
	}
	if i > len(src) {
		i = len(src)
	}
	return i, false
}

// skipHole skips an interpolation hole body up to and including its closing
// brace.
func skipHole(src []rune, i int) (int, bool) {
	depth := 1
	for i < len(src) {
		if IsLiteralStart(src, i) {
			end, ok := SkipLiteral(src, i)
			if !ok {
				return end, false
			}
			i = end
			continue
		}
		switch src[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
		i++
	}
	return i, false
}
