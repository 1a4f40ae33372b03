package oracle

import (
	"fmt"
	"unicode/utf8"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"

	"bindsig/internal/core/ports"
	"bindsig/internal/engine/diag"
)

// Probe programs. The fragment is spliced between prefix and suffix.
const (
	argumentPrefix = "class __Probe { void __m() { __f("
	argumentSuffix = "); } }"
	newProbePrefix = "class __Probe { void __m() { Object __o = new "
	newProbeSuffix = "; } }"
)

// TreeSitter checks fragments with the tree-sitter Java grammar. It is
// stricter than Builtin: C#-only forms such as "x => y" lambdas or object
// initializers are reported as errors.
type TreeSitter struct {
	pool *parserPool
}

func NewTreeSitter() *TreeSitter {
	return &TreeSitter{pool: newParserPool(sitter.NewLanguage(tree_sitter_java.Language()))}
}

// Check implements ports.ExpressionOracle.
func (o *TreeSitter) Check(probe ports.Probe, expr string) *diag.Error {
	var prefix, suffix string
	switch probe {
	case ports.ProbeArgument:
		prefix, suffix = argumentPrefix, argumentSuffix
	case ports.ProbeNew:
		prefix, suffix = newProbePrefix, newProbeSuffix
	default:
		panic(fmt.Sprintf("oracle: unknown probe %d", probe))
	}

	src := []byte(prefix + expr + suffix)
	sp := o.pool.Get()
	defer o.pool.Put(sp)

	tree := sp.Parse(src, nil)
	if tree == nil {
		return diag.Errorf(0, "expression could not be parsed")
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil
	}
	node := firstErrorNode(root)
	if node == nil {
		return diag.Errorf(0, "syntax error")
	}

	msg := "syntax error"
	if node.IsMissing() {
		msg = fmt.Sprintf("missing '%s'", node.Kind())
	}
	return &diag.Error{Message: msg, Index: fragmentOffset(src, int(node.StartByte()), len(prefix), utf8.RuneCountInString(expr))}
}

// firstErrorNode returns the leftmost ERROR or MISSING node under n.
func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		if found := firstErrorNode(n.Child(i)); found != nil {
			return found
		}
	}
	return nil
}

// fragmentOffset converts a byte offset in the probe program into a rune
// offset within the fragment, clamped to [0, length].
func fragmentOffset(src []byte, byteOffset, prefixBytes, length int) int {
	if byteOffset <= prefixBytes {
		return 0
	}
	if byteOffset > len(src) {
		byteOffset = len(src)
	}
	idx := utf8.RuneCount(src[prefixBytes:byteOffset])
	if idx > length {
		idx = length
	}
	return idx
}
