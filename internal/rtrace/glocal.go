package rtrace

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

var stackBufPool = sync.Pool{
	New: func() any {
		buf := make([]byte, 64)
		return &buf
	},
}

// goroutineID recovers the calling goroutine's numeric id by parsing the
// header line of runtime.Stack's output. Go has no public API for this
// and no third-party library in this repository's dependency graph
// exposes one either; every candidate here (state.go's per-goroutine
// tables) needs a stable per-goroutine key standing in for the original
// implementation's thread-local storage, so this is a deliberate,
// narrowly-scoped exception to preferring an ecosystem library (see
// DESIGN.md's internal/rtrace entry).
//
// This is on the hot path for every LogCond call, so the stack buffer is
// taken from stackBufPool rather than allocated on every call.
func goroutineID() uint64 {
	buf := stackBufPool.Get().(*[]byte)
	defer stackBufPool.Put(buf)

	n := runtime.Stack(*buf, false)
	line := (*buf)[:n]

	// The header line looks like "goroutine 123 [running]:".
	const prefix = "goroutine "
	if !bytes.HasPrefix(line, []byte(prefix)) {
		return 0
	}
	line = line[len(prefix):]
	end := bytes.IndexByte(line, ' ')
	if end < 0 {
		return 0
	}
	id, err := strconv.ParseUint(string(line[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
