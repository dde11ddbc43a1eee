package cparse

import "github.com/cppbear/brinfo/internal/brhash"

// Chain is a minimal condition-chain candidate: a single condition site
// taken to one boolean value, optionally paired with a return form.
//
// This is deliberately NOT a reimplementation of the original CondChain
// analyzer (original_source/src/core/ChainBuilder.cpp), which walks the
// CFG to build every path-sensitive prefix of conditions leading to a
// return and prunes contradictory ones. That analysis is out of scope
// here (see SPEC_FULL.md §4.2): LinearChains instead emits, for every
// condition site found by the walker, one candidate chain per boolean
// value consisting of just that single step. It is enough to exercise
// internal/meta's RecordFunction end to end, but callers wanting real
// path coverage need to supply chains from an external analyzer via the
// same ChainInput shape.
type Chain struct {
	Value      bool
	Site       ConditionSite
	ReturnNorm string
}

// LinearChains builds the minimal chain set for fi: two single-step
// chains per condition (true-taken, false-taken), each paired with the
// nearest following return's normalized form, if any, in the same
// function body.
func LinearChains(fi *FunctionInfo) []Chain {
	chains := make([]Chain, 0, len(fi.Conditions)*2)
	for _, site := range fi.Conditions {
		retNorm := nearestFollowingReturn(fi, site.Span.EndByte)
		chains = append(chains,
			Chain{Value: true, Site: site, ReturnNorm: retNorm},
			Chain{Value: false, Site: site, ReturnNorm: retNorm},
		)
	}
	return chains
}

func nearestFollowingReturn(fi *FunctionInfo, afterByte uint32) string {
	var best *ReturnSite
	for i := range fi.Returns {
		r := &fi.Returns[i]
		if r.Span.StartByte < afterByte {
			continue
		}
		if best == nil || r.Span.StartByte < best.Span.StartByte {
			best = r
		}
	}
	if best == nil || best.IsVoid {
		return ""
	}
	return best.Pretty
}

// CondNormOf renders a ConditionSite's cond_norm using the same
// normalization rule as internal/brhash, dispatching on which of the
// verbatim/binary/unary forms the walker recognized.
//
// CASE/DEFAULT and range-for sites carry a pre-built cond_norm in
// site.Verbatim (their "<switch> == <case>"/"range_for:..." forms aren't
// themselves subject to the != / unary-! rule) and bypass normalization.
// Every other kind, including LOOP (while/for/do-while conditions), goes
// through the same three-branch rule as IF: internal/instrument's
// wrapLeaf independently re-derives this exact shape from the AST node
// regardless of kind, so CondNormOf must too or a `while (p != nullptr)`
// site would intern under a different cond_hash than the probe it emits.
func CondNormOf(site ConditionSite) (norm string, flip bool) {
	if site.Kind == brhash.KindCase || site.Kind == brhash.KindDefault {
		return brhash.Normalize(brhash.NormalizeInput{VerbatimPretty: site.Verbatim})
	}
	return brhash.Normalize(brhash.NormalizeInput{
		IsNotEqual: site.IsNotEqual, LHSPretty: site.LHSPretty, RHSPretty: site.RHSPretty,
		IsUnaryNot: site.IsUnaryNot, OperandPretty: site.OperandPretty,
		VerbatimPretty: site.Verbatim,
	})
}
