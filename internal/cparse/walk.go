package cparse

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cppbear/brinfo/internal/brhash"
)

// walker holds the source buffer for a single Parse call; it has no
// exported surface, only collectFunctions below.
type walker struct {
	content []byte
}

func (w *walker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(w.content[n.StartByte():n.EndByte()])
}

func (w *walker) span(n *sitter.Node) Span {
	return Span{
		StartByte: n.StartByte(),
		EndByte:   n.EndByte(),
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
	}
}

// pretty collapses interior whitespace so cond_norm text is stable across
// reformatting, matching the Verbatim/PrettyPrint convention used by
// original_source/src/instrument/Instrumenter.cpp.
func pretty(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// collectFunctions walks the whole tree looking for function_definition
// nodes; it does not descend into a function's own body when looking for
// further top-level function definitions (C/C++ forbids nested named
// functions, GNU statement-expressions aside, which this repository does
// not attempt to instrument).
func (w *walker) collectFunctions(root *sitter.Node, out *FileAST) {
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n.Type() == "function_definition" {
			if fi, ok := w.processFunctionDefinition(n); ok {
				out.Functions = append(out.Functions, fi)
			}
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(root)
}

func (w *walker) processFunctionDefinition(n *sitter.Node) (FunctionInfo, bool) {
	declarator := n.ChildByFieldName("declarator")
	body := n.ChildByFieldName("body")
	if declarator == nil || body == nil || body.Type() != "compound_statement" {
		return FunctionInfo{}, false
	}

	name, sig := w.functionNameAndSignature(n, declarator)
	if name == "" {
		return FunctionInfo{}, false
	}

	fi := FunctionInfo{
		Name:       name,
		Signature:  sig,
		Body:       w.span(body),
		IsTestBody: w.isGTestBody(name, n),
	}

	w.collectInBody(body, &fi)
	return fi, true
}

// functionNameAndSignature extracts the innermost declared identifier
// (unwrapping pointer/reference/function declarators) and builds a
// whitespace-collapsed signature string from the whole declaration prefix.
func (w *walker) functionNameAndSignature(defNode, declarator *sitter.Node) (string, string) {
	inner := declarator
	for inner != nil {
		switch inner.Type() {
		case "function_declarator":
			decl := inner.ChildByFieldName("declarator")
			if decl == nil {
				break
			}
			inner = decl
			continue
		case "pointer_declarator", "reference_declarator", "parenthesized_declarator":
			decl := inner.ChildByFieldName("declarator")
			if decl == nil {
				decl = inner.Child(int(inner.ChildCount()) - 1)
			}
			inner = decl
			continue
		case "qualified_identifier":
			nameField := inner.ChildByFieldName("name")
			if nameField != nil {
				return w.text(nameField), pretty(w.text(defNode))
			}
			return w.text(inner), pretty(w.text(defNode))
		case "identifier", "field_identifier", "destructor_name", "operator_name":
			return w.text(inner), pretty(w.text(defNode))
		}
		break
	}
	if inner == nil {
		return "", ""
	}
	return w.text(inner), pretty(w.text(defNode))
}

// isGTestBody applies the override-check -> base-class-derivation check ->
// naming-convention fallback described in SPEC_FULL.md §4.3, adapted to
// tree-sitter's flatter view of the AST (no semantic base-class resolution
// is available without a full compilation database, so the derivation
// check here is syntactic: it looks for "::Test" or "_Test" appearing in an
// enclosing class's base_class_clause).
func (w *walker) isGTestBody(name string, defNode *sitter.Node) bool {
	if name == "TestBody" {
		return true
	}
	if strings.HasSuffix(name, "_Test") {
		return true
	}
	// Syntactic base-class-derivation check: walk up to the enclosing
	// class_specifier and inspect its base_class_clause text.
	n := defNode.Parent()
	for n != nil {
		if n.Type() == "field_declaration_list" {
			classNode := n.Parent()
			if classNode != nil && classNode.Type() == "class_specifier" {
				for i := 0; i < int(classNode.ChildCount()); i++ {
					if classNode.Child(i).Type() == "base_class_clause" {
						text := w.text(classNode.Child(i))
						if strings.Contains(text, "::Test") || strings.Contains(text, "_Test") {
							return true
						}
					}
				}
			}
		}
		n = n.Parent()
	}
	return false
}

// collectInBody walks a function body collecting condition sites, return
// sites, and call expressions in source (encounter) order. It descends
// into nested statements but stops at a nested function_definition (a
// local class method definition) or lambda_expression; collectFunctions
// does not descend into function bodies either, so neither is collected.
func (w *walker) collectInBody(body *sitter.Node, fi *FunctionInfo) {
	depth := 0
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		switch n.Type() {
		case "function_definition", "lambda_expression":
			return
		case "if_statement":
			w.addCondition(fi, n, brhash.KindIf, false)
		case "while_statement":
			w.addCondition(fi, n, brhash.KindLoop, false)
		case "do_statement":
			w.addCondition(fi, n, brhash.KindLoop, false)
		case "for_statement":
			if cond := n.ChildByFieldName("condition"); cond != nil {
				w.addExprCondition(fi, cond, brhash.KindLoop, w.span(n))
			}
		case "for_range_loop":
			w.addRangeForCondition(fi, n)
		case "conditional_expression":
			w.addCondition(fi, n, brhash.KindIf, false)
		case "switch_statement":
			w.addSwitchCases(fi, n)
		case "return_statement":
			w.addReturn(fi, n)
		case "call_expression":
			w.addCall(fi, n, depth)
			depth++
			for i := 0; i < int(n.ChildCount()); i++ {
				visit(n.Child(i))
			}
			depth--
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(body)
}

func (w *walker) addCondition(fi *FunctionInfo, n *sitter.Node, kind brhash.ConditionKind, negated bool) {
	cond := n.ChildByFieldName("condition")
	if cond == nil {
		return
	}
	w.addExprCondition(fi, cond, kind, w.span(cond))
}

func (w *walker) addExprCondition(fi *FunctionInfo, cond *sitter.Node, kind brhash.ConditionKind, span Span) {
	expr := unwrapParen(cond)
	site := ConditionSite{Span: span, Kind: kind, Verbatim: pretty(w.text(expr)), Node: expr}

	if expr.Type() == "binary_expression" {
		op := expr.ChildByFieldName("operator")
		if op != nil && w.text(op) == "!=" {
			left := expr.ChildByFieldName("left")
			right := expr.ChildByFieldName("right")
			site.IsNotEqual = true
			site.LHSPretty = pretty(w.text(left))
			site.RHSPretty = pretty(w.text(right))
		}
	} else if expr.Type() == "unary_expression" {
		op := expr.ChildByFieldName("operator")
		if op != nil && w.text(op) == "!" {
			operand := expr.ChildByFieldName("argument")
			site.IsUnaryNot = true
			site.OperandPretty = pretty(w.text(operand))
			site.IsNegated = true
		}
	}

	fi.Conditions = append(fi.Conditions, site)
}

func (w *walker) addRangeForCondition(fi *FunctionInfo, n *sitter.Node) {
	// tree-sitter-cpp represents range-based for with a "declarator" and a
	// "right" (the range expression); the synthesized condition here
	// represents "has another element", so its normalized form is derived
	// from the range expression per brhash.RangeForNorm.
	right := n.ChildByFieldName("right")
	body := n.ChildByFieldName("body")
	if right == nil {
		return
	}
	// Node carries the loop body (not a boolean test) so instrument's
	// rangefor.go can insert a per-iteration marker probe at its start.
	fi.Conditions = append(fi.Conditions, ConditionSite{
		Span:       w.span(n),
		Kind:       brhash.KindLoop,
		Verbatim:   brhash.RangeForNorm(pretty(w.text(right))),
		Node:       body,
		IsRangeFor: true,
	})
}

func (w *walker) addSwitchCases(fi *FunctionInfo, n *sitter.Node) {
	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}

	var switchNorm string
	if cond := n.ChildByFieldName("condition"); cond != nil {
		switchNorm = pretty(w.text(unwrapParen(cond)))
	}

	var caseNorms []string
	var defaultSite *ConditionSite
	for i := 0; i < int(body.ChildCount()); i++ {
		child := body.Child(i)
		if child.Type() != "case_statement" {
			continue
		}
		value := child.ChildByFieldName("value")
		// The site's span ends at the label's ':' rather than at the end of
		// the statements that follow it, so the label probe lands right
		// after the colon.
		span := w.span(child)
		for j := 0; j < int(child.ChildCount()); j++ {
			if colon := child.Child(j); colon.Type() == ":" {
				span.EndByte = colon.EndByte()
				span.EndLine = int(colon.EndPoint().Row) + 1
				break
			}
		}
		if value != nil {
			caseNorm := pretty(w.text(value))
			caseNorms = append(caseNorms, caseNorm)
			fi.Conditions = append(fi.Conditions, ConditionSite{
				Span:     span,
				Kind:     brhash.KindCase,
				Verbatim: brhash.SwitchCaseNorm(switchNorm, caseNorm),
			})
		} else if defaultSite == nil {
			site := ConditionSite{Span: span, Kind: brhash.KindDefault}
			defaultSite = &site
		}
	}
	if defaultSite != nil {
		defaultSite.Verbatim = brhash.SwitchDefaultNorm(switchNorm, caseNorms)
		fi.Conditions = append(fi.Conditions, *defaultSite)
	}
}

func (w *walker) addReturn(fi *FunctionInfo, n *sitter.Node) {
	// The expression, if any, is the sole non-keyword, non-semicolon child.
	var expr *sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() != "return" && c.Type() != ";" {
			expr = c
			break
		}
	}
	if expr == nil {
		fi.Returns = append(fi.Returns, ReturnSite{Span: w.span(n), IsVoid: true})
		return
	}
	fi.Returns = append(fi.Returns, ReturnSite{Span: w.span(expr), Pretty: pretty(w.text(expr))})
}

func (w *walker) addCall(fi *FunctionInfo, n *sitter.Node, depth int) {
	fn := n.ChildByFieldName("function")
	args := n.ChildByFieldName("arguments")
	if fn == nil || args == nil {
		return
	}
	fi.Calls = append(fi.Calls, CallSite{
		Span:     w.span(n),
		Callee:   pretty(w.text(fn)),
		ArgsSpan: w.span(args),
		Depth:    depth,
		Node:     n,
	})
}

func unwrapParen(n *sitter.Node) *sitter.Node {
	for n.Type() == "parenthesized_expression" || n.Type() == "condition_clause" {
		inner := n.NamedChild(0)
		if inner == nil {
			return n
		}
		n = inner
	}
	return n
}
