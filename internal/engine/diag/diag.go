// Package diag holds the single-failure diagnostic model shared by the
// signature and inheritance-list parsers.
//
// Every index is a rune offset into the text that was handed to the parser.
// Sub-validators report offsets local to the fragment they were given; callers
// translate them with Shift before returning.
package diag

import (
	"errors"
	"fmt"
)

// Error is a parse failure at a rune offset.
type Error struct {
	Message string
	Index   int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (at index %d)", e.Message, e.Index)
}

// Errorf builds an Error at index.
func Errorf(index int, format string, args ...any) *Error {
	if len(args) == 0 {
		return &Error{Message: format, Index: index}
	}
	return &Error{Message: fmt.Sprintf(format, args...), Index: index}
}

// Shift returns a copy of e moved by offset. A nil receiver stays nil.
func (e *Error) Shift(offset int) *Error {
	if e == nil {
		return nil
	}
	return &Error{Message: e.Message, Index: e.Index + offset}
}

// Diagnostic is the flat result shape reported to callers outside the engine.
type Diagnostic struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Index   int    `json:"index"`
}

// OK is the successful diagnostic.
func OK() Diagnostic {
	return Diagnostic{Success: true, Index: -1}
}

// Fail is a failed diagnostic at index.
func Fail(message string, index int) Diagnostic {
	return Diagnostic{Message: message, Index: index}
}

// FromError converts a parser error into a Diagnostic. Errors that are not
// *Error are reported at index 0.
func FromError(err error) Diagnostic {
	if err == nil {
		return OK()
	}
	var de *Error
	if errors.As(err, &de) {
		return Fail(de.Message, de.Index)
	}
	return Fail(err.Error(), 0)
}

// Err returns the diagnostic as an error, or nil when it succeeded.
func (d Diagnostic) Err() error {
	if d.Success {
		return nil
	}
	return &Error{Message: d.Message, Index: d.Index}
}

func (d Diagnostic) String() string {
	if d.Success {
		return "ok"
	}
	return fmt.Sprintf("%s (at index %d)", d.Message, d.Index)
}

// Incomplete is the end-of-input failure. length is the rune length of the
// signature; the index points at its last rune.
func Incomplete(length int) *Error {
	idx := length - 1
	if idx < 0 {
		idx = 0
	}
	return &Error{Message: MsgIncomplete, Index: idx}
}

// MsgIncomplete is reported whenever input ends in a non-accepting state.
const MsgIncomplete = "signature incomplete"
