// Package ports declares the collaborator contracts the parsers consume and
// the storage contract the check service drives.
package ports

import (
	"bindsig/internal/data/history"
	"bindsig/internal/engine/diag"
	"bindsig/internal/engine/names"
)

// IdentifierValidator reports whether text is a bare identifier.
type IdentifierValidator interface {
	IsValid(text string) bool
}

// TypeNameValidator parses a possibly dotted, possibly generic type name.
// Error indexes are local to text.
type TypeNameValidator interface {
	Validate(text string, allowGenerics bool) (names.TypeName, *diag.Error)
}

// Probe selects the program shape an expression is embedded in before it is
// syntax checked.
type Probe int

const (
	// ProbeArgument embeds the text as a call argument: M(<text>).
	ProbeArgument Probe = iota
	// ProbeNew embeds the text as an object creation: new <text>.
	ProbeNew
)

func (p Probe) String() string {
	switch p {
	case ProbeArgument:
		return "argument"
	case ProbeNew:
		return "new"
	}
	return "unknown"
}

// ExpressionOracle reports whether an expression fragment is syntactically
// well formed. Unresolved symbols and uninferable lambda parameter types are
// not errors. A returned error's index is local to expr and lies within
// [0, len(expr)] counted in runes.
type ExpressionOracle interface {
	Check(probe Probe, expr string) *diag.Error
}

// HistoryStore persists check runs.
type HistoryStore interface {
	SaveRun(run history.Run, results []history.Result) error
	LoadRuns(limit int) ([]history.Run, error)
	LoadResults(runID string) ([]history.Result, error)
}
