// Package rtrace implements the Runtime Tracer: the process-wide sink
// every instrumented probe (LogCond) and every Test-Framework Adapter hook
// (BeginTest/EndTest, assertion begin/end, invocation begin/end) reports
// to, producing an append-only NDJSON trace log. It stands in for the
// original implementation's process-global Runtime singleton, with Go
// goroutine-local state (state.go, glocal.go) replacing native
// thread-local storage, and explicit atomic counters replacing
// std::atomic<uint64_t> globals.
package rtrace

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cppbear/brinfo/internal/brhash"
	"github.com/cppbear/brinfo/pkg/logging"
)

// Tracer is the runtime tracing sink. A single Tracer instance is meant
// to be shared process-wide (see Init/Default below), one per traced
// run.
type Tracer struct {
	mu     sync.Mutex
	file   *os.File
	logger *logging.Logger
	state  *stateTable

	nextTestID       atomic.Uint64
	nextInvocationID atomic.Uint64
}

// Open creates a Tracer writing NDJSON events to path (created if
// missing, appended to if present, matching the original implementation's
// single-log-per-run convention).
func Open(path string, logger *logging.Logger) (*Tracer, error) {
	if logger == nil {
		logger = logging.Default()
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("rtrace: open trace log %s: %w", path, err)
	}
	return &Tracer{
		file:   f,
		logger: logger,
		state:  newStateTable(),
	}, nil
}

// Close flushes and closes the underlying trace log file.
func (tr *Tracer) Close() error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if err := tr.file.Sync(); err != nil {
		return fmt.Errorf("rtrace: sync trace log: %w", err)
	}
	return tr.file.Close()
}

func (tr *Tracer) emit(e Event) {
	e.Ts = time.Now().UTC().Format("2006-01-02T15:04:05Z")

	line, err := e.encode()
	if err != nil {
		tr.logger.Error("rtrace: failed to encode event", "kind", e.Kind, "error", err.Error())
		return
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if _, err := tr.file.Write(line); err != nil {
		tr.logger.Error("rtrace: failed to write trace event", "kind", e.Kind, "error", err.Error())
		return
	}
	if err := tr.file.Sync(); err != nil {
		tr.logger.Error("rtrace: failed to flush trace log", "error", err.Error())
	}
}

// BeginTest starts tracing for the calling goroutine and returns the
// process-wide monotonic test id assigned to it. A second BeginTest on a
// goroutine that already has an active test is silently rejected (no
// event is emitted, the existing test context's id is returned
// unchanged): re-nesting a test context is treated as a caller bug, not
// a fatal error, so a stray double-registration doesn't corrupt an
// otherwise good trace.
func (tr *Tracer) BeginTest(ctx context.Context, suite, name, file string, line int) uint64 {
	st := tr.state.get()
	if st.test != nil {
		tr.logger.Warn("rtrace: BeginTest called while a test is already active, ignoring",
			"active_test_id", st.test.ID, "rejected_suite", suite, "rejected_name", name)
		return st.test.ID
	}

	full := suite + "." + name
	hash := brhash.Hash64(full)
	st.test = &TestContext{
		ID: tr.nextTestID.Add(1), Suite: suite, Name: name, Full: full,
		File: file, Line: line, Hash: hash,
	}
	st.segmentCounter = 0

	recordTestStart(ctx, suite)
	tr.emit(Event{
		Kind: EventTestStart, TestID: st.test.ID, Suite: suite, Name: name,
		Full: full, File: file, Line: line, Hash: brhash.ToHex64(hash),
	})
	return st.test.ID
}

// EndTest closes the calling goroutine's active test and discards its
// goroutine-local state, including any invocation frame still open (no
// invocation_end is emitted for it). status examples: "PASSED",
// "FAILED", "ABORTED".
func (tr *Tracer) EndTest(status string) {
	st := tr.state.get()
	if st.test == nil {
		tr.logger.Warn("rtrace: EndTest called with no active test", "status", status)
		return
	}
	tr.emit(Event{Kind: EventTestEnd, TestID: st.test.ID, Status: status})
	tr.state.clear()
}

// AssertionBegin marks the calling goroutine as evaluating an
// assertion's condition, emits the assertion event itself (carrying only
// the macro's static identity, never a pass/fail outcome: that lives on
// the correlated cond event's val), and returns the per-test assert_id
// assigned to it. Requires an active test; otherwise a no-op returning 0.
func (tr *Tracer) AssertionBegin(ctx context.Context, macro, file string, line int, raw string) uint64 {
	st := tr.state.get()
	if st.test == nil {
		tr.logger.Warn("rtrace: AssertionBegin called with no active test", "macro", macro)
		return 0
	}
	st.inAssertion = true
	assertID := st.test.nextAssertID
	st.test.nextAssertID++

	recordAssertion(ctx, macro)
	tr.emit(Event{
		Kind: EventAssertion, TestID: st.test.ID, AssertID: assertID,
		Macro: macro, File: file, Line: line, Raw: raw,
	})
	return assertID
}

// AssertionEnd clears the in-assertion flag and advances the goroutine's
// segment counter by one (the counter that BeginInvocation samples onto
// each outermost invocation frame). It emits no event of its own; the
// assertion's outcome is inferred downstream from the cond events logged
// between the matching AssertionBegin and this call.
func (tr *Tracer) AssertionEnd() {
	st := tr.state.get()
	if st.test == nil {
		return
	}
	st.inAssertion = false
	st.segmentCounter++
}

// BeginInvocation opens or re-enters an invocation frame targeting
// targetFuncHash (0 if unknown) and returns its invocation_id, to be
// passed back to EndInvocation. Only the outermost call for a given
// frame emits an invocation_start event; a nested call made while the
// frame is already open just bumps its depth counter and returns the
// existing id, per the "only the outermost pair emits" rule. Requires an
// active test; otherwise a no-op returning 0.
func (tr *Tracer) BeginInvocation(ctx context.Context, callFile string, callLine int, callExpr string, targetFuncHash uint64) uint64 {
	st := tr.state.get()
	if st.test == nil {
		tr.logger.Warn("rtrace: BeginInvocation called with no active test", "call_expr", callExpr)
		return 0
	}
	if st.invocation != nil {
		st.invocation.Depth++
		return st.invocation.ID
	}

	frame := &InvocationFrame{
		ID:             tr.nextInvocationID.Add(1),
		Index:          st.test.nextInvocationIndex,
		TargetFuncHash: targetFuncHash,
		CallFile:       callFile,
		CallLine:       callLine,
		CallExpr:       callExpr,
		SegmentID:      st.segmentCounter,
		InOracle:       st.inAssertion,
		Depth:          1,
		StartedAt:      time.Now(),
	}
	st.test.nextInvocationIndex++
	st.invocation = frame

	recordInvocationOpen(ctx)
	ev := Event{
		Kind: EventInvocationStart, TestID: st.test.ID, InvocationID: frame.ID,
		Index: frame.Index, SegmentID: frame.SegmentID, InOracle: boolPtr(frame.InOracle),
		CallFile: frame.CallFile, CallLine: frame.CallLine, CallExpr: frame.CallExpr,
	}
	if targetFuncHash != 0 {
		ev.TargetFunc = brhash.ToHex64(targetFuncHash)
	}
	tr.emit(ev)
	return frame.ID
}

// EndInvocation closes one BeginInvocation call against invocationID. A
// mismatch against the open frame's id is logged but does not panic: an
// instrumented binary must never crash because tracing bookkeeping went
// out of sync. Only the call that brings the frame's depth back to zero
// emits invocation_end (with the frame's elapsed duration) and pops the
// frame. status examples: "OK", "EXCEPTION", "EARLY_EXIT".
func (tr *Tracer) EndInvocation(ctx context.Context, invocationID uint64, status string) {
	st := tr.state.get()
	if st.invocation == nil {
		tr.logger.Warn("rtrace: EndInvocation called with no open invocation", "invocation_id", invocationID)
		return
	}
	if st.invocation.ID != invocationID {
		tr.logger.Warn("rtrace: EndInvocation id mismatch", "expected", st.invocation.ID, "got", invocationID)
	}

	st.invocation.Depth--
	if st.invocation.Depth > 0 {
		return
	}

	frame := st.invocation
	st.invocation = nil

	var testID uint64
	if st.test != nil {
		testID = st.test.ID
	}
	if status == "" {
		status = "OK"
	}
	durationMs := uint64(time.Since(frame.StartedAt) / time.Millisecond)

	recordInvocationClose(ctx, status)
	tr.emit(Event{
		Kind: EventInvocationEnd, TestID: testID, InvocationID: frame.ID,
		SegmentID: frame.SegmentID, Status: status, DurationMs: u64Ptr(durationMs),
	})
}

// LogCond is the probe every instrumented condition calls: it logs value
// exactly as evaluated at the call site (never normalized, see
// SPEC_FULL.md §4.4's runtime-value-convention decision), attributes the
// event to the calling goroutine's current test and invocation (if any),
// and returns value unchanged so the call composes transparently into the
// expression it replaced. condNorm/condHash/normFlip/condKind carry the
// static identity computed by the same Normalization Rule internal/meta
// uses, so this event and the matching conditions.meta.json entry share a
// cond_hash.
func (tr *Tracer) LogCond(ctx context.Context, funcHash uint64, file string, line int, value bool, condNorm string, condHash uint64, normFlip bool, condKind string) bool {
	st := tr.state.get()

	var testID uint64
	if st.test != nil {
		testID = st.test.ID
	}
	var invocationID uint64
	if st.invocation != nil {
		invocationID = st.invocation.ID
	}

	recordCond(ctx, value)
	tr.emit(Event{
		Kind: EventCond, TestID: testID, InvocationID: invocationID,
		Func: brhash.ToHex64(funcHash), CondHash: brhash.ToHex64(condHash),
		File: file, Line: line, CondNorm: condNorm, CondKind: condKind,
		Val: boolPtr(value), NormFlip: boolPtr(normFlip), InAssertion: st.inAssertion,
	})
	return value
}
