// Package cparse extracts function boundaries and condition sites from C/C++
// translation units using tree-sitter, standing in for the RecursiveASTVisitor
// walk the original implementation ran over a Clang AST.
package cparse

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cppbear/brinfo/internal/brhash"
)

// Span is a half-open byte range within a source buffer, plus the 1-indexed
// line of its start (matching source_instrumenter.md's line-numbering
// convention for cond_norm's spelling location).
type Span struct {
	StartByte uint32
	EndByte   uint32
	StartLine int
	EndLine   int
}

// FunctionInfo describes one function or method definition found in a
// translation unit.
type FunctionInfo struct {
	// Name is the function's unqualified identifier.
	Name string

	// Signature is the return type, qualified name, and parameter list as
	// written, whitespace-collapsed. Fed to brhash.FuncHash.
	Signature string

	// Body is the function body's span, {..} inclusive.
	Body Span

	// IsTestBody is true when this function is a GoogleTest TEST/TEST_F body,
	// per SPEC_FULL.md §4.3's test-body detection rule.
	IsTestBody bool

	// Conditions lists every condition site found within Body, in source
	// (encounter) order.
	Conditions []ConditionSite

	// Returns lists every return statement's expression span within Body.
	Returns []ReturnSite

	// Calls lists every call expression within Body, nested calls
	// included (see CallSite.Depth), in pre-order-of-appearance, used by
	// the Invocation Auto-Wrapper.
	Calls []CallSite
}

// ConditionSite is one branch-condition occurrence: an if/while/for/do-while
// test, a ternary's test, a switch case/default, or a logical operand.
type ConditionSite struct {
	Span Span
	Kind brhash.ConditionKind

	// Verbatim is the condition's whitespace-collapsed text. For switch
	// case/default and range-for sites, which never take the != / unary-!
	// fast paths, it instead holds their pre-built cond_norm.
	Verbatim string

	// IsNotEqual is true when the condition's top-level operator is !=.
	IsNotEqual bool
	LHSPretty  string
	RHSPretty  string

	// IsUnaryNot is true when the condition is a unary !operand expression.
	IsUnaryNot    bool
	OperandPretty string

	// IsNegated records whether the source wrote the condition negated
	// (used by the chain builder to resolve the effective boolean).
	IsNegated bool

	// Node is the unwrapped boolean expression node backing this site
	// (nil for switch case/default sites, which are synthetic). Exposed
	// so internal/instrument can recurse into a top-level logical-and/or
	// expression operand by operand. For a range-for site, Node instead
	// holds the loop body statement (see IsRangeFor).
	Node *sitter.Node

	// IsRangeFor is true when this site represents a range-based for
	// loop; such loops have no boolean test to wrap, so Node here is the
	// loop body rather than a condition expression.
	IsRangeFor bool
}

// ReturnSite is one return statement's expression span; for a bare
// "return;" IsVoid is set and Span covers the whole statement.
type ReturnSite struct {
	Span    Span
	Pretty  string
	IsVoid  bool
}

// CallSite is one call-expression occurrence, used by the Invocation
// Auto-Wrapper to insert BRINFO_CALL(...) wrappers.
type CallSite struct {
	Span     Span
	Callee   string
	ArgsSpan Span
	// Depth is the nesting depth among sibling/ancestor call expressions;
	// wrapping proceeds children-before-parents (post-order), so higher
	// Depth values are rewritten first.
	Depth int

	// Node is the call_expression node itself, exposed so
	// internal/instrument can reconstruct a fully-nested wrap in one
	// pass instead of emitting overlapping edits for nested calls.
	Node *sitter.Node
}
