// Package names validates identifiers and type names for binding
// declarations. The rules follow the host scripting language's C-family
// grammar: Unicode letters, '_' and the '@' verbatim prefix that turns a
// reserved keyword back into an identifier.
package names

import "bindsig/internal/engine/scan"

var reservedKeywords = map[string]bool{
	"abstract": true, "as": true, "base": true, "bool": true, "break": true,
	"byte": true, "case": true, "catch": true, "char": true, "checked": true,
	"class": true, "const": true, "continue": true, "decimal": true, "default": true,
	"delegate": true, "do": true, "double": true, "else": true, "enum": true,
	"event": true, "explicit": true, "extern": true, "false": true, "finally": true,
	"fixed": true, "float": true, "for": true, "foreach": true, "goto": true,
	"if": true, "implicit": true, "in": true, "int": true, "interface": true,
	"internal": true, "is": true, "lock": true, "long": true, "namespace": true,
	"new": true, "null": true, "object": true, "operator": true, "out": true,
	"override": true, "params": true, "private": true, "protected": true, "public": true,
	"readonly": true, "ref": true, "return": true, "sbyte": true, "sealed": true,
	"short": true, "sizeof": true, "stackalloc": true, "static": true, "string": true,
	"struct": true, "switch": true, "this": true, "throw": true, "true": true,
	"try": true, "typeof": true, "uint": true, "ulong": true, "unchecked": true,
	"unsafe": true, "ushort": true, "using": true, "virtual": true, "void": true,
	"volatile": true, "while": true,
}

// typeAliases are the keywords that name built-in types.
var typeAliases = map[string]bool{
	"bool": true, "byte": true, "sbyte": true, "char": true, "decimal": true,
	"double": true, "float": true, "int": true, "uint": true, "long": true,
	"ulong": true, "short": true, "ushort": true, "object": true, "string": true,
	"void": true,
}

// IsReservedKeyword reports whether word can only be used as an identifier
// with the '@' prefix.
func IsReservedKeyword(word string) bool {
	return reservedKeywords[word]
}

// IsTypeAlias reports whether word is a built-in type keyword such as int.
func IsTypeAlias(word string) bool {
	return typeAliases[word]
}

// Identifiers implements ports.IdentifierValidator.
type Identifiers struct{}

// IsValid reports whether text is a bare identifier.
func (Identifiers) IsValid(text string) bool {
	return IsIdentifier(text)
}

// IsIdentifier reports whether text is a bare identifier: no whitespace, no
// member access, not a reserved keyword unless '@'-prefixed.
func IsIdentifier(text string) bool {
	if text == "" {
		return false
	}
	src := []rune(text)
	if scan.ScanIdentifier(src, 0) != len(src) {
		return false
	}
	if src[0] == '@' {
		return true
	}
	return !reservedKeywords[text]
}
