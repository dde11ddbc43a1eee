package instrument

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cppbear/brinfo/internal/brhash"
)

// wrapLogicalExpr rewrites a boolean expression node into an equivalent
// expression where every && / || operand is individually passed through
// LogCond, recursing into nested && / || chains so each leaf condition
// gets its own probe. LogCond returns the value it was given, so wrapping
// an operand in place preserves both its value and C++'s short-circuit
// evaluation order: the right operand of && / || is still only evaluated
// when the left operand's wrapped value permits it.
//
// funcHash and kind describe the enclosing site (an if/while/for/do/
// ternary test); a leaf reached by recursing into a && / || chain is
// reported with brhash.KindLogic instead, since it is a decomposed
// sub-condition rather than the site's own test.
func wrapLogicalExpr(n *sitter.Node, content []byte, file string, funcHash uint64, kind brhash.ConditionKind) string {
	if n.Type() == "parenthesized_expression" {
		if inner := n.NamedChild(0); inner != nil && inner.Type() == "binary_expression" {
			if op := inner.ChildByFieldName("operator"); op != nil {
				if t := string(content[op.StartByte():op.EndByte()]); t == "&&" || t == "||" {
					return "(" + wrapLogicalExpr(inner, content, file, funcHash, kind) + ")"
				}
			}
		}
	}
	if n.Type() == "binary_expression" {
		op := n.ChildByFieldName("operator")
		if op != nil {
			opText := string(content[op.StartByte():op.EndByte()])
			if opText == "&&" || opText == "||" {
				left := n.ChildByFieldName("left")
				right := n.ChildByFieldName("right")
				return "(" + wrapLogicalExpr(left, content, file, funcHash, brhash.KindLogic) + " " + opText +
					" " + wrapLogicalExpr(right, content, file, funcHash, brhash.KindLogic) + ")"
			}
		}
	}

	return wrapLeaf(n, content, file, funcHash, kind)
}

// wrapLeaf produces a full 8-argument LogCond probe for a leaf boolean
// operand, applying the same != / unary-! normalization rule the
// Meta-Collector uses so the embedded cond_hash matches exactly, and
// embedding func_hash/file/line/cond_norm/norm_flip/cond_kind as literal
// text the way original_source/src/instrumenter/Instrumenter.cpp's
// VisitIfStmt/VisitWhileStmt/etc. inject their Prefix/Suffix pairs.
func wrapLeaf(n *sitter.Node, content []byte, file string, funcHash uint64, kind brhash.ConditionKind) string {
	exprText := prettyRange(content, n)
	line := int(n.StartPoint().Row) + 1

	in := brhash.NormalizeInput{VerbatimPretty: exprText}
	if n.Type() == "binary_expression" {
		if op := n.ChildByFieldName("operator"); op != nil {
			if string(content[op.StartByte():op.EndByte()]) == "!=" {
				left := n.ChildByFieldName("left")
				right := n.ChildByFieldName("right")
				in = brhash.NormalizeInput{IsNotEqual: true, LHSPretty: prettyRange(content, left), RHSPretty: prettyRange(content, right)}
			}
		}
	} else if n.Type() == "unary_expression" {
		if op := n.ChildByFieldName("operator"); op != nil && string(content[op.StartByte():op.EndByte()]) == "!" {
			operand := n.ChildByFieldName("argument")
			in = brhash.NormalizeInput{IsUnaryNot: true, OperandPretty: prettyRange(content, operand)}
		}
	}

	norm, flip := brhash.Normalize(in)
	hash := brhash.CondHash(file, line, norm)

	var b strings.Builder
	b.WriteString("brinfo::LogCond(")
	b.WriteString(brhash.ToHex64(funcHash))
	b.WriteString("ULL, \"")
	b.WriteString(escapeCxxString(file))
	b.WriteString("\", ")
	b.WriteString(strconv.Itoa(line))
	b.WriteString(", (bool)(")
	b.WriteString(exprText)
	b.WriteString("), \"")
	b.WriteString(escapeCxxString(norm))
	b.WriteString("\", ")
	b.WriteString(brhash.ToHex64(hash))
	b.WriteString("ULL, ")
	b.WriteString(strconv.FormatBool(flip))
	b.WriteString(", \"")
	b.WriteString(string(kind))
	b.WriteString("\")")
	return b.String()
}

func prettyRange(content []byte, n *sitter.Node) string {
	raw := string(content[n.StartByte():n.EndByte()])
	return strings.Join(strings.Fields(raw), " ")
}
