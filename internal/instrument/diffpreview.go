package instrument

import (
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

// PreviewDiff renders a unified diff between the original and rewritten
// contents of one file, for --dry-run inspection before edits are
// written to disk. The diff is a single hunk that removes every original
// line and adds every rewritten line; no minimal line diff is computed.
func PreviewDiff(file string, original, rewritten []byte) (string, error) {
	if string(original) == string(rewritten) {
		return "", nil
	}

	origLines := strings.SplitAfter(string(original), "\n")
	newLines := strings.SplitAfter(string(rewritten), "\n")

	var body strings.Builder
	for _, l := range origLines {
		if l == "" {
			continue
		}
		fmt.Fprintf(&body, "-%s", ensureNewline(l))
	}
	for _, l := range newLines {
		if l == "" {
			continue
		}
		fmt.Fprintf(&body, "+%s", ensureNewline(l))
	}

	hunk := &godiff.Hunk{
		OrigStartLine: 1,
		OrigLines:     int32(nonEmpty(origLines)),
		NewStartLine:  1,
		NewLines:      int32(nonEmpty(newLines)),
		Body:          []byte(body.String()),
	}

	fd := &godiff.FileDiff{
		OrigName: "a/" + file,
		NewName:  "b/" + file,
		Hunks:    []*godiff.Hunk{hunk},
	}

	out, err := godiff.PrintFileDiff(fd)
	if err != nil {
		return "", fmt.Errorf("instrument: render diff preview: %w", err)
	}
	return string(out), nil
}

func nonEmpty(lines []string) int {
	n := 0
	for _, l := range lines {
		if l != "" {
			n++
		}
	}
	return n
}

func ensureNewline(l string) string {
	if strings.HasSuffix(l, "\n") {
		return l
	}
	return l + "\n"
}
