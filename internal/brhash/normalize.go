package brhash

import "strings"

// ConditionKind is the structural role of a condition site.
type ConditionKind string

const (
	KindIf      ConditionKind = "IF"
	KindCase    ConditionKind = "CASE"
	KindDefault ConditionKind = "DEFAULT"
	KindLoop    ConditionKind = "LOOP"
	KindTry     ConditionKind = "TRY"
	// KindLogic marks a leaf operand produced by decomposing a top-level
	// && / || chain into individually probed sub-conditions; it is never a
	// ConditionSite's own Kind, only the cond_kind embedded at those
	// decomposed injection sites.
	KindLogic ConditionKind = "LOGIC"
)

// NormalizeInput carries the syntactic shape a caller (the Instrumenter or
// the Meta-Collector's driver) has already determined for a condition
// expression, after stripping parentheses and implicit conversions. Exactly
// one of the three shapes applies, checked in the priority order below.
type NormalizeInput struct {
	// IsNotEqual is true when the expression is a binary != comparison.
	IsNotEqual  bool
	LHSPretty   string
	RHSPretty   string

	// IsUnaryNot is true when the expression is a unary logical-not.
	// Checked only if IsNotEqual is false.
	IsUnaryNot    bool
	OperandPretty string

	// VerbatimPretty is used when neither of the above applies.
	VerbatimPretty string
}

// Normalize implements the Normalization Rule shared by the Meta-Collector
// and the Source Instrumenter:
//  1. binary != comparison  -> "<lhs> == <rhs>", norm_flip=true
//  2. unary logical-not     -> operand's pretty text, norm_flip=true
//  3. otherwise             -> the expression's pretty text, norm_flip=false
//
// The result is trimmed of trailing whitespace and a trailing semicolon.
func Normalize(in NormalizeInput) (norm string, flip bool) {
	switch {
	case in.IsNotEqual:
		norm, flip = in.LHSPretty+" == "+in.RHSPretty, true
	case in.IsUnaryNot:
		norm, flip = in.OperandPretty, true
	default:
		norm, flip = in.VerbatimPretty, false
	}
	return rtrimSemiSpace(norm), flip
}

// rtrimSemiSpace trims trailing whitespace and then a single trailing ';'.
func rtrimSemiSpace(s string) string {
	s = strings.TrimRight(s, " \t\r\n")
	s = strings.TrimSuffix(s, ";")
	return strings.TrimRight(s, " \t\r\n")
}

// SwitchCaseNorm builds the cond_norm for a `case L:` probe: "<switch> ==
// <case>" when the switch has a condition expression, else "case <case>".
func SwitchCaseNorm(switchNorm, caseNorm string) string {
	if switchNorm == "" {
		return "case " + caseNorm
	}
	return switchNorm + " == " + caseNorm
}

// SwitchDefaultNorm builds the cond_norm for a `default:` probe: the
// disjunction of "<switch> == <c>" over every sibling case in source order,
// or "default" if the switch has no condition expression.
func SwitchDefaultNorm(switchNorm string, caseNorms []string) string {
	if switchNorm == "" {
		return "default"
	}
	parts := make([]string, len(caseNorms))
	for i, c := range caseNorms {
		parts[i] = switchNorm + " == " + c
	}
	return strings.Join(parts, " || ")
}

// RangeForNorm builds the cond_norm for a range-based for loop probe.
func RangeForNorm(rangeInitPretty string) string {
	return "range_for:" + rangeInitPretty
}
