package instrument

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cppbear/brinfo/internal/cparse"
)

// wrapPrefix is the marker the double-wrap guard scans for.
const wrapPrefix = "BRINFO_CALL("

// doubleWrapLookback is how many bytes immediately preceding a call
// expression's start are scanned for wrapPrefix, per SPEC_FULL.md §4.3:
// long enough to cover "BRINFO_CALL(" itself plus reasonable intervening
// whitespace from a previous instrumentation pass, short enough to never
// walk back across an unrelated statement.
const doubleWrapLookback = 48

// buildInvocationEdits produces one TextEdit per top-level (non-nested)
// call expression inside a GoogleTest test body, wrapping it (and any
// calls nested within its arguments, post-order, innermost first) in
// BRINFO_CALL(...). Only top-level calls get their own edit: a nested
// call's wrap is baked directly into its enclosing call's replacement
// text, since ApplyEdits rejects overlapping ranges and a call's span
// always contains its arguments' spans.
func buildInvocationEdits(fi *cparse.FunctionInfo, content []byte) []TextEdit {
	if !fi.IsTestBody {
		return nil
	}

	var edits []TextEdit
	for _, call := range fi.Calls {
		if call.Depth != 0 || call.Node == nil {
			continue
		}
		if isAlreadyWrapped(content, call.Node.StartByte()) {
			continue
		}
		edits = append(edits, TextEdit{
			Start: call.Node.StartByte(), End: call.Node.EndByte(),
			Replacement: wrapCall(call.Node, content),
			Reason:      "invocation auto-wrap",
		})
	}
	return edits
}

func isAlreadyWrapped(content []byte, start uint32) bool {
	from := int(start) - doubleWrapLookback
	if from < 0 {
		from = 0
	}
	return strings.Contains(string(content[from:start]), wrapPrefix)
}

// wrapCall reconstructs n's own text with every nested call_expression
// (at any depth) replaced by its own BRINFO_CALL(...) wrap, then wraps
// the whole result. Non-call structure (operators, punctuation,
// whitespace between arguments) is copied through unchanged.
func wrapCall(n *sitter.Node, content []byte) string {
	return wrapPrefix + reconstructChildren(n, content) + ")"
}

// reconstruct returns n's text with n itself (when it is a call_expression)
// and every call_expression below it rewritten via wrapCall, preserving
// everything else verbatim. A call already preceded by wrapPrefix is
// copied unchanged.
func reconstruct(n *sitter.Node, content []byte) string {
	if n.Type() == "call_expression" {
		if isAlreadyWrapped(content, n.StartByte()) {
			return string(content[n.StartByte():n.EndByte()])
		}
		return wrapCall(n, content)
	}
	if n.ChildCount() == 0 {
		return string(content[n.StartByte():n.EndByte()])
	}
	return reconstructChildren(n, content)
}

// reconstructChildren walks n's direct children, recursing into each via
// reconstruct while copying the original bytes of the gaps between them
// (whitespace, commas, parentheses that are themselves anonymous tokens).
func reconstructChildren(n *sitter.Node, content []byte) string {
	var b strings.Builder
	cursor := n.StartByte()
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		b.Write(content[cursor:c.StartByte()])
		b.WriteString(reconstruct(c, content))
		cursor = c.EndByte()
	}
	b.Write(content[cursor:n.EndByte()])
	return b.String()
}
