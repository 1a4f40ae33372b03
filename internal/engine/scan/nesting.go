// Package scan provides the character-level primitives shared by the
// signature and inheritance-list state machines: bracket nesting with
// resumable parser states, keyword lookahead, generic argument balancing and
// literal skipping.
package scan

import "bindsig/internal/engine/diag"

// BracketKind identifies one of the independently tracked bracket pairs.
type BracketKind int

const (
	Paren BracketKind = iota
	Brace
	Square
)

var bracketNames = [...]string{"parenthesis", "brace", "bracket"}

func (k BracketKind) String() string {
	return bracketNames[k]
}

// Bracket classifies r. ok is false for runes that are not brackets.
func Bracket(r rune) (kind BracketKind, opening bool, ok bool) {
	switch r {
	case '(':
		return Paren, true, true
	case ')':
		return Paren, false, true
	case '{':
		return Brace, true, true
	case '}':
		return Brace, false, true
	case '[':
		return Square, true, true
	case ']':
		return Square, false, true
	}
	return 0, false, false
}

// Stack is a LIFO of parser states to resume.
type Stack[S any] struct {
	items []S
}

func (s *Stack[S]) Push(v S) {
	s.items = append(s.items, v)
}

// Pop removes and returns the top state.
func (s *Stack[S]) Pop() (S, bool) {
	var zero S
	if len(s.items) == 0 {
		return zero, false
	}
	v := s.items[len(s.items)-1]
	s.items[len(s.items)-1] = zero
	s.items = s.items[:len(s.items)-1]
	return v, true
}

func (s *Stack[S]) Peek() (S, bool) {
	if len(s.items) == 0 {
		var zero S
		return zero, false
	}
	return s.items[len(s.items)-1], true
}

func (s *Stack[S]) Len() int {
	return len(s.items)
}

// Nesting keeps one signed depth counter per bracket kind plus the parser
// states to resume when brackets close.
//
// Every Open pushes the caller's state and every successful Close pops one,
// so the resume stack is empty exactly when AtDepthZero reports true.
// Counters are independent: "([)]" balances, ")" alone does not.
type Nesting[S any] struct {
	depth  [3]int
	resume Stack[S]
}

// Open records an opening bracket seen while the parser was in current.
func (n *Nesting[S]) Open(kind BracketKind, current S) {
	n.depth[kind]++
	n.resume.Push(current)
}

// Close records a closing bracket at index and returns the state to resume.
// A close that would drive its counter negative is a terminal error.
func (n *Nesting[S]) Close(kind BracketKind, index int) (S, *diag.Error) {
	if n.depth[kind] == 0 {
		var zero S
		return zero, diag.Errorf(index, "unexpected closing %s", kind)
	}
	n.depth[kind]--
	s, _ := n.resume.Pop()
	return s, nil
}

// AtDepthZero reports whether every counter is zero. Separators seen while
// this is false belong to an inner expression.
func (n *Nesting[S]) AtDepthZero() bool {
	return n.depth[Paren] == 0 && n.depth[Brace] == 0 && n.depth[Square] == 0
}

func (n *Nesting[S]) Depth(kind BracketKind) int {
	return n.depth[kind]
}
