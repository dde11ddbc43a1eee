package instrument

import (
	"strconv"

	"github.com/cppbear/brinfo/internal/brhash"
	"github.com/cppbear/brinfo/internal/cparse"
)

// buildSwitchCaseEdits inserts a marker probe immediately after each
// `case X:` / `default:` label. Case labels are constant expressions in
// C++ and cannot carry a function call themselves, so instead of wrapping
// the label this inserts a full LogCond(...) call as the label's first
// executed statement: reaching it makes the case's cond_norm trivially
// true for that invocation.
func buildSwitchCaseEdits(fi *cparse.FunctionInfo, file string) []TextEdit {
	var edits []TextEdit
	funcHash := funcHashOf(fi)
	for _, site := range fi.Conditions {
		if site.Kind != brhash.KindCase && site.Kind != brhash.KindDefault {
			continue
		}
		hash := brhash.CondHash(file, site.Span.StartLine, site.Verbatim)
		probe := " brinfo::LogCond(" + brhash.ToHex64(funcHash) + "ULL, \"" + escapeCxxString(file) +
			"\", " + strconv.Itoa(site.Span.StartLine) + ", true, \"" + escapeCxxString(site.Verbatim) +
			"\", " + brhash.ToHex64(hash) + "ULL, false, \"" + string(site.Kind) + "\");"
		edits = append(edits, TextEdit{
			Start:       site.Span.EndByte,
			End:         site.Span.EndByte,
			Replacement: probe,
			Reason:      "switch case/default probe",
		})
	}
	return edits
}
