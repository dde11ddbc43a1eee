package adapter

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cppbear/brinfo/internal/rtrace"
)

func newTracer(t *testing.T) *rtrace.Tracer {
	t.Helper()
	tr, err := rtrace.Open(filepath.Join(t.TempDir(), "trace.ndjson"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestAssertPassesOnEqualValues(t *testing.T) {
	tracer := newTracer(t)
	tt := WrapT(t, tracer)

	ok := Assert(tt, "sample_test.go", 10, 2+2, 4)
	require.True(t, ok)
}

func TestAssertFailsButContinuesOnMismatch(t *testing.T) {
	tracer := newTracer(t)
	inner := &testing.T{}
	tt := WrapT(inner, tracer)

	ok := Assert(tt, "sample_test.go", 20, 1, 2)
	require.False(t, ok)
	require.True(t, inner.Failed())
}

func TestInvokeBracketsCallWithInvocationFrame(t *testing.T) {
	tracer := newTracer(t)
	tt := WrapT(t, tracer)

	result := Invoke(tt, 0xabc, func() int { return 21 * 2 })
	require.Equal(t, 42, result)
}
