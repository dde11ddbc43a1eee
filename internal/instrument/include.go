package instrument

import "strings"

// runtimeInclude is the header every instrumented translation unit needs
// for brinfo::LogCond and friends to resolve.
const runtimeInclude = `#include "brinfo/runtime.h"` + "\n"

// buildIncludeEdit returns a single insertion edit adding runtimeInclude
// right after the last top-of-file #include (or at byte 0 if the file has
// none), unless the header is already present anywhere in the file -
// injection is idempotent so re-running the instrumenter on an
// already-instrumented file is a no-op here.
func buildIncludeEdit(content []byte) *TextEdit {
	text := string(content)
	if strings.Contains(text, `"brinfo/runtime.h"`) {
		return nil
	}

	insertAt := uint32(0)
	lines := strings.SplitAfter(text, "\n")
	var offset uint32
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#include") {
			insertAt = offset + uint32(len(line))
		} else if trimmed != "" && !strings.HasPrefix(trimmed, "//") && !strings.HasPrefix(trimmed, "/*") {
			// Stop scanning once we hit the first non-include, non-comment,
			// non-blank line: includes are only recognized as a contiguous
			// block at the top of the file.
			if insertAt > 0 {
				break
			}
		}
		offset += uint32(len(line))
	}

	return &TextEdit{Start: insertAt, End: insertAt, Replacement: runtimeInclude, Reason: "runtime header injection"}
}
