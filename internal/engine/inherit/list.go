// Package inherit parses inheritance lists: base types followed by optional
// generic constraint clauses.
//
//	IFoo, Base<T> where T : class, new() where U : IComparable<U>
package inherit

import (
	"strings"

	"bindsig/internal/engine/names"
)

// ConstraintKind classifies one generic constraint.
type ConstraintKind int

const (
	ConstraintNew ConstraintKind = iota
	ConstraintStruct
	ConstraintClass
	ConstraintType
)

// Constraint is one entry of a where clause. Type is set only for
// ConstraintType.
type Constraint struct {
	Kind ConstraintKind
	Type names.TypeName
}

func (c Constraint) String() string {
	switch c.Kind {
	case ConstraintNew:
		return "new()"
	case ConstraintStruct:
		return "struct"
	case ConstraintClass:
		return "class"
	}
	return c.Type.String()
}

// Key is the identity used for duplicate detection.
func (c Constraint) Key() string {
	return c.String()
}

// InheritanceList is a successfully parsed list. Inherited types and
// constrained parameters keep first-seen order.
type InheritanceList struct {
	InheritedTypes        []names.TypeName
	ConstrainedParameters []string
	Constraints           map[string][]Constraint
}

// Format returns the canonical spelling. Parsing it yields an equal list.
func (l *InheritanceList) Format() string {
	var parts []string
	if len(l.InheritedTypes) > 0 {
		types := make([]string, len(l.InheritedTypes))
		for i, t := range l.InheritedTypes {
			types[i] = t.String()
		}
		parts = append(parts, strings.Join(types, ", "))
	}
	for _, param := range l.ConstrainedParameters {
		cs := l.Constraints[param]
		texts := make([]string, len(cs))
		for i, c := range cs {
			texts[i] = c.String()
		}
		parts = append(parts, "where "+param+" : "+strings.Join(texts, ", "))
	}
	return strings.Join(parts, " ")
}

// Equal reports whether both lists hold the same types, parameters and
// constraints in the same order.
func (l *InheritanceList) Equal(other *InheritanceList) bool {
	if len(l.InheritedTypes) != len(other.InheritedTypes) ||
		len(l.ConstrainedParameters) != len(other.ConstrainedParameters) {
		return false
	}
	for i, t := range l.InheritedTypes {
		if !t.Equal(other.InheritedTypes[i]) {
			return false
		}
	}
	for i, param := range l.ConstrainedParameters {
		if other.ConstrainedParameters[i] != param {
			return false
		}
		a, b := l.Constraints[param], other.Constraints[param]
		if len(a) != len(b) {
			return false
		}
		for j := range a {
			if a[j].Key() != b[j].Key() {
				return false
			}
		}
	}
	return true
}
