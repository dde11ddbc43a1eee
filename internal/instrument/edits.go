// Package instrument implements the Source Instrumenter and the Invocation
// Auto-Wrapper: both rewrite C/C++ translation units by applying non-
// overlapping text edits computed from an internal/cparse.FileAST.
package instrument

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cppbear/brinfo/internal/brhash"
	"github.com/cppbear/brinfo/internal/cparse"
)

// TextEdit replaces the byte range [Start, End) with Replacement. A zero-
// width edit (Start == End) is a pure insertion.
type TextEdit struct {
	Start       uint32
	End         uint32
	Replacement string

	// Reason documents why the edit exists, surfaced in diff previews and
	// debug logging; not written into the rewritten source.
	Reason string
}

// ApplyEdits applies a set of non-overlapping edits to content in one
// pass over the edits sorted by start offset, copying into a new buffer.
// Every offset refers to the unmodified content, so no edit invalidates
// another's byte offsets.
func ApplyEdits(content []byte, edits []TextEdit) ([]byte, error) {
	sorted := make([]TextEdit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Start < sorted[i-1].End {
			return nil, fmt.Errorf("instrument: overlapping edits at byte %d (prev ends %d, reasons %q / %q)",
				sorted[i].Start, sorted[i-1].End, sorted[i-1].Reason, sorted[i].Reason)
		}
	}

	out := make([]byte, 0, len(content)+len(sorted)*16)
	cursor := uint32(0)
	for _, e := range sorted {
		if e.Start > uint32(len(content)) || e.End > uint32(len(content)) {
			return nil, fmt.Errorf("instrument: edit out of range [%d,%d) for %d-byte buffer", e.Start, e.End, len(content))
		}
		out = append(out, content[cursor:e.Start]...)
		out = append(out, e.Replacement...)
		cursor = e.End
	}
	out = append(out, content[cursor:]...)
	return out, nil
}

// funcHashOf resolves the func_hash a probe embedded inside fi must carry,
// using the same signature-or-name fallback as recordFunctionMeta so the
// hash a generated LogCond call reports matches the one meta.Collector
// records for the enclosing function.
func funcHashOf(fi *cparse.FunctionInfo) uint64 {
	sig := fi.Signature
	if sig == "" {
		sig = fi.Name
	}
	return brhash.FuncHash(sig)
}

// escapeCxxString escapes s for embedding inside a C++ string literal,
// mirroring escapeForCxxString in the original Instrumenter.cpp: other
// control characters are dropped rather than escaped.
func escapeCxxString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for _, c := range s {
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 {
				continue
			}
			b.WriteRune(c)
		}
	}
	return b.String()
}
