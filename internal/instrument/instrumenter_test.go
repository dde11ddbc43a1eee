package instrument

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppbear/brinfo/internal/meta"
)

const sample = `int clamp(int x, int lo, int hi) {
    if (x < lo) {
        return lo;
    }
    if (x != hi) {
        return x;
    }
    return hi;
}
`

func writeTemp(t *testing.T, name, content string) (dir, abs string) {
	t.Helper()
	dir = t.TempDir()
	abs = filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	return dir, abs
}

func TestInstrumentFileWrapsConditionsAndInjectsHeader(t *testing.T) {
	_, abs := writeTemp(t, "clamp.cc", sample)

	collector := meta.NewCollector()
	instrumenter := New(collector, Options{}, nil)

	result, err := instrumenter.InstrumentFile(context.Background(), abs, "clamp.cc")
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, 1, result.Functions)

	rewritten, err := os.ReadFile(abs)
	require.NoError(t, err)
	text := string(rewritten)

	assert.Contains(t, text, `#include "brinfo/runtime.h"`)
	assert.Contains(t, text, "brinfo::LogCond(")

	conditions, functions, _ := collector.Snapshot()
	assert.NotEmpty(t, conditions)
	require.Len(t, functions, 1)
	assert.Equal(t, "clamp", functions[0].Name)
}

func TestInstrumentFileDryRunLeavesFileUnchanged(t *testing.T) {
	_, abs := writeTemp(t, "clamp.cc", sample)
	before, err := os.ReadFile(abs)
	require.NoError(t, err)

	collector := meta.NewCollector()
	instrumenter := New(collector, Options{DryRun: true}, nil)

	result, err := instrumenter.InstrumentFile(context.Background(), abs, "clamp.cc")
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.NotEmpty(t, result.DiffPreview)
	assert.Contains(t, result.DiffPreview, "clamp.cc")

	after, err := os.ReadFile(abs)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestInstrumentFileInjectsHeaderExactlyOnce(t *testing.T) {
	_, abs := writeTemp(t, "clamp.cc", sample)

	collector := meta.NewCollector()
	instrumenter := New(collector, Options{}, nil)

	_, err := instrumenter.InstrumentFile(context.Background(), abs, "clamp.cc")
	require.NoError(t, err)

	rewritten, err := os.ReadFile(abs)
	require.NoError(t, err)
	occurrences := strings.Count(string(rewritten), `#include "brinfo/runtime.h"`)
	assert.Equal(t, 1, occurrences)
}
