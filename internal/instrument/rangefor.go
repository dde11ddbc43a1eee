package instrument

import (
	"strconv"

	"github.com/cppbear/brinfo/internal/brhash"
	"github.com/cppbear/brinfo/internal/cparse"
)

// buildRangeForEdits inserts a per-iteration marker probe as the first
// statement of a range-based for loop's body. A range-for has no
// syntactic boolean test to wrap (the compiler synthesizes the iterator
// comparison), so the probe instead marks that an iteration was entered,
// which is the only observable "condition" range-for exposes.
func buildRangeForEdits(fi *cparse.FunctionInfo, file string) []TextEdit {
	var edits []TextEdit
	funcHash := funcHashOf(fi)
	for _, site := range fi.Conditions {
		if !site.IsRangeFor || site.Node == nil {
			continue
		}
		hash := brhash.CondHash(file, site.Span.StartLine, site.Verbatim)
		probe := "brinfo::LogCond(" + brhash.ToHex64(funcHash) + "ULL, \"" + escapeCxxString(file) +
			"\", " + strconv.Itoa(site.Span.StartLine) + ", true, \"" + escapeCxxString(site.Verbatim) +
			"\", " + brhash.ToHex64(hash) + "ULL, false, \"" + string(site.Kind) + "\"); "

		if site.Node.Type() == "compound_statement" {
			// Insert just inside the opening brace, not before it.
			insertAt := site.Node.StartByte() + 1
			edits = append(edits, TextEdit{
				Start: insertAt, End: insertAt,
				Replacement: " " + probe,
				Reason:      "range-for iteration probe",
			})
			continue
		}
		// A single-statement body is wrapped in braces so the probe and the
		// original statement both stay inside the loop.
		start, end := site.Node.StartByte(), site.Node.EndByte()
		edits = append(edits,
			TextEdit{Start: start, End: start, Replacement: "{ " + probe, Reason: "range-for iteration probe"},
			TextEdit{Start: end, End: end, Replacement: " }", Reason: "range-for body closing brace"},
		)
	}
	return edits
}
