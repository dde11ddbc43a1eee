package rtrace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveTracePathPrecedence(t *testing.T) {
	t.Run("explicit argument wins", func(t *testing.T) {
		t.Setenv(tracePathEnv, "/env/path.ndjson")
		require.Equal(t, "/explicit/path.ndjson", resolveTracePath("/explicit/path.ndjson"))
	})

	t.Run("env var used when argument empty", func(t *testing.T) {
		t.Setenv(tracePathEnv, "/env/path.ndjson")
		require.Equal(t, "/env/path.ndjson", resolveTracePath(""))
	})

	t.Run("default used when neither set", func(t *testing.T) {
		t.Setenv(tracePathEnv, "")
		require.Equal(t, defaultTracePath, resolveTracePath(""))
	})
}

func TestOpenResolvedCreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "runtime.ndjson")

	tr, err := openResolved(path)
	require.NoError(t, err)
	defer tr.Close()

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestOpenResolvedHonorsEnvVar(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "from_env.ndjson")
	t.Setenv(tracePathEnv, envPath)

	tr, err := openResolved("")
	require.NoError(t, err)
	defer tr.Close()

	_, err = os.Stat(envPath)
	require.NoError(t, err)
}

func TestInitIsIdempotent(t *testing.T) {
	// Init's sync.Once is process-global, so this test only verifies that
	// calling Init twice returns the identical Tracer instance and does
	// not attempt to reopen a file at a different path.
	dir := t.TempDir()
	first, firstErr := Init(filepath.Join(dir, "first.ndjson"))
	second, secondErr := Init(filepath.Join(dir, "second.ndjson"))

	require.Equal(t, firstErr, secondErr)
	require.Same(t, first, second)
	require.Same(t, first, Default())

	if first != nil {
		first.Close()
	}
}
