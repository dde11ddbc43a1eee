package rtrace

import (
	"sync"
	"time"
)

// TestContext identifies the test currently running on a goroutine,
// mirroring the original implementation's thread-local TestCtx: an
// immutable identity plus the two per-test counters (assert_id,
// invocation index) that reset with every BeginTest.
type TestContext struct {
	ID    uint64
	Suite string
	Name  string
	Full  string
	File  string
	Line  int
	Hash  uint64

	nextAssertID        uint64
	nextInvocationIndex uint64
}

// InvocationFrame is the single outermost invocation active on a
// goroutine. Nested BeginInvocation calls made while it is open only
// bump Depth; they do not push a second frame, matching the "only the
// outermost pair emits" nesting rule.
type InvocationFrame struct {
	ID    uint64
	Index uint64

	TargetFuncHash uint64
	CallFile       string
	CallLine       int
	CallExpr       string

	// SegmentID and InOracle are sampled once, at the outermost
	// BeginInvocation, from the goroutine's segment counter and
	// in-assertion flag; they never change for the lifetime of the frame.
	SegmentID uint64
	InOracle  bool

	// Depth counts unmatched BeginInvocation calls against this frame;
	// it starts at 1 and EndInvocation only pops the frame once it
	// reaches 0.
	Depth int

	StartedAt time.Time
}

// goroutineState is the state the original implementation kept in
// thread-local storage: the active test (if any), the single outermost
// invocation frame, whether execution is currently inside an assertion
// macro, and a monotonically increasing segment counter used to
// partition a test's invocations into oracle-relative regions.
type goroutineState struct {
	test           *TestContext
	invocation     *InvocationFrame
	inAssertion    bool
	segmentCounter uint64
}

// stateTable maps goroutine id to goroutineState, standing in for the
// thread-local map the original Runtime.cpp keyed by std::thread::id.
type stateTable struct {
	mu    sync.Mutex
	byGID map[uint64]*goroutineState
}

func newStateTable() *stateTable {
	return &stateTable{byGID: make(map[uint64]*goroutineState)}
}

// get returns (creating if necessary) the calling goroutine's state.
func (t *stateTable) get() *goroutineState {
	gid := goroutineID()
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.byGID[gid]
	if !ok {
		st = &goroutineState{}
		t.byGID[gid] = st
	}
	return st
}

// clear discards the calling goroutine's state, called at EndTest so a
// goroutine pool doesn't leak state entries across reused workers. Any
// invocation frame still open is discarded without emitting an end, per
// EndTest's contract.
func (t *stateTable) clear() {
	gid := goroutineID()
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byGID, gid)
}
