package instrument

import (
	"github.com/cppbear/brinfo/internal/brhash"
	"github.com/cppbear/brinfo/internal/cparse"
)

// buildConditionEdits produces one TextEdit per if/while/do/for/ternary
// condition, recursing through any top-level && / || chain via
// wrapLogicalExpr. Switch case/default labels and range-for loops have no
// boolean test node to wrap in place; see switchcase.go and rangefor.go.
func buildConditionEdits(fi *cparse.FunctionInfo, content []byte, file string) []TextEdit {
	edits := make([]TextEdit, 0, len(fi.Conditions))
	for _, site := range fi.Conditions {
		if site.Kind == brhash.KindCase || site.Kind == brhash.KindDefault || site.IsRangeFor || site.Node == nil {
			continue
		}
		wrapped := wrapLogicalExpr(site.Node, content, file, funcHashOf(fi), site.Kind)
		edits = append(edits, TextEdit{
			Start: site.Node.StartByte(), End: site.Node.EndByte(),
			Replacement: wrapped, Reason: "condition probe",
		})
	}
	return edits
}
