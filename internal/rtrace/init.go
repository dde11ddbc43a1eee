package rtrace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	// defaultTracePath mirrors internal/config.DefaultConfig().TracePath;
	// it is duplicated here so this package's zero-config entry point
	// doesn't have to import internal/config.
	defaultTracePath = "llm_reqs/runtime.ndjson"

	// tracePathEnv overrides defaultTracePath when set and no explicit
	// path is passed to Init.
	tracePathEnv = "BRINFO_TRACE_PATH"
)

var (
	defaultOnce    sync.Once
	defaultTracer  *Tracer
	defaultInitErr error
)

// Init opens the process-wide default Tracer exactly once, following
// spec's path resolution order: explicit path argument, then
// BRINFO_TRACE_PATH, then defaultTracePath relative to the current
// working directory. Subsequent calls, regardless of the path argument
// given, return the same Tracer and error the first call produced.
func Init(path string) (*Tracer, error) {
	defaultOnce.Do(func() {
		defaultTracer, defaultInitErr = openResolved(path)
	})
	return defaultTracer, defaultInitErr
}

// Default returns the Tracer opened by Init, or nil if Init has not been
// called yet.
func Default() *Tracer {
	return defaultTracer
}

// resolveTracePath applies the argument → env var → default precedence,
// split out from openResolved so tests can exercise the resolution logic
// without going through Init's once-guard.
func resolveTracePath(path string) string {
	if path != "" {
		return path
	}
	if envPath := os.Getenv(tracePathEnv); envPath != "" {
		return envPath
	}
	return defaultTracePath
}

// openResolved resolves path, creates its parent directories, and opens
// it via Open. Split out from Init for the same reason: sync.Once only
// fires once per process, so a test exercising varied inputs must call
// this directly.
func openResolved(path string) (*Tracer, error) {
	resolved := resolveTracePath(path)
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return nil, fmt.Errorf("rtrace: create trace log directory for %s: %w", resolved, err)
	}
	return Open(resolved, nil)
}
