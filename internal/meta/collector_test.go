package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppbear/brinfo/internal/brhash"
)

func trueFalseChains(file string, line int, condNorm string, kind brhash.ConditionKind) []ChainInput {
	step := ChainStepInput{File: file, Line: line, CondNorm: condNorm, Kind: kind}
	trueStep := step
	trueStep.Flag = true
	falseStep := step
	falseStep.Flag = false
	return []ChainInput{
		{Steps: []ChainStepInput{trueStep}, ReturnNorm: "true"},
		{Steps: []ChainStepInput{falseStep}, ReturnNorm: "false"},
	}
}

// TestRecordFunctionIdentityStableAcrossRuns covers testable property #1:
// interning the same (file, line, cond_norm, kind) and the same function
// signature across two independent Collectors yields identical ids and
// hashes.
func TestRecordFunctionIdentityStableAcrossRuns(t *testing.T) {
	sig := "int f(int)"
	chains := trueFalseChains("main.cpp", 10, "x > 0", brhash.KindIf)

	c1 := NewCollector()
	c1.RecordFunction(sig, "f", "main.cpp", chains)
	conds1, funcs1, _ := c1.Snapshot()

	c2 := NewCollector()
	c2.RecordFunction(sig, "f", "main.cpp", chains)
	conds2, funcs2, _ := c2.Snapshot()

	require.Len(t, conds1, 1)
	require.Len(t, conds2, 1)
	assert.Equal(t, conds1[0].ID, conds2[0].ID)
	assert.Equal(t, conds1[0].Hash, conds2[0].Hash)

	require.Len(t, funcs1, 1)
	require.Len(t, funcs2, 1)
	assert.Equal(t, funcs1[0].FuncID, funcs2[0].FuncID)
	assert.Equal(t, funcs1[0].FuncHash, funcs2[0].FuncHash)
	assert.Equal(t, brhash.FuncHash(sig), funcs1[0].FuncHash)
}

// TestRecordFunctionInternsRepeatedConditionOnce covers testable property
// #9: recording the same condition site twice (via two chains that both
// reference it) interns it exactly once.
func TestRecordFunctionInternsRepeatedConditionOnce(t *testing.T) {
	c := NewCollector()
	c.RecordFunction("int f(int)", "f", "main.cpp",
		trueFalseChains("main.cpp", 10, "x > 0", brhash.KindIf))

	conditions, functions, _ := c.Snapshot()
	require.Len(t, conditions, 1, "the true-taken and false-taken chains share one condition site")
	require.Len(t, functions, 1)
	assert.Len(t, functions[0].ConditionIDs, 1)
}

// TestRecordFunctionIsIdempotentOnRepeatedCalls covers property #9 from the
// other direction: calling RecordFunction twice with identical input (as
// happens when a translation unit is reprocessed) must not duplicate the
// interned condition or function rows.
func TestRecordFunctionIsIdempotentOnRepeatedCalls(t *testing.T) {
	sig := "int f(int)"
	chains := trueFalseChains("main.cpp", 10, "x > 0", brhash.KindIf)

	c := NewCollector()
	c.RecordFunction(sig, "f", "main.cpp", chains)
	c.RecordFunction(sig, "f", "main.cpp", chains)

	conditions, functions, chainRows := c.Snapshot()
	assert.Len(t, conditions, 1)
	assert.Len(t, functions, 1)
	// Chains are append-only per call (each RecordFunction call records its
	// own chain rows), so two calls produce two survivor chains each -- but
	// they must resolve to the same interned condition and function ids.
	assert.Len(t, chainRows, 4)
	for _, ch := range chainRows {
		assert.Equal(t, functions[0].FuncHash, ch.FuncHash)
	}
}

// TestGetOrCreateConditionIDDedupsOnDedupKey covers property #1's condition
// side directly: two chain steps at the same (file, line, cond_norm, kind)
// intern to the same id even across separate RecordFunction calls for
// different functions.
func TestGetOrCreateConditionIDDedupsOnDedupKey(t *testing.T) {
	c := NewCollector()
	c.RecordFunction("int f(int)", "f", "a.cpp",
		trueFalseChains("shared.h", 5, "x > 0", brhash.KindIf))
	c.RecordFunction("int g(int)", "g", "b.cpp",
		trueFalseChains("shared.h", 5, "x > 0", brhash.KindIf))

	conditions, functions, _ := c.Snapshot()
	require.Len(t, conditions, 1, "the same header condition site interns once across functions")
	require.Len(t, functions, 2)
	assert.Contains(t, functions[0].ConditionIDs, conditions[0].ID)
	assert.Contains(t, functions[1].ConditionIDs, conditions[0].ID)
}

// TestRecordFunctionSkipsContradictoryChains ensures IsContra chains never
// reach the chains table or intern their conditions.
func TestRecordFunctionSkipsContradictoryChains(t *testing.T) {
	chains := trueFalseChains("main.cpp", 10, "x > 0", brhash.KindIf)
	chains = append(chains, ChainInput{
		IsContra: true,
		Steps:    []ChainStepInput{{File: "main.cpp", Line: 20, CondNorm: "y > 0", Kind: brhash.KindIf, Flag: true}},
	})

	c := NewCollector()
	c.RecordFunction("int f(int)", "f", "main.cpp", chains)

	conditions, _, chainRows := c.Snapshot()
	assert.Len(t, conditions, 1, "the contradictory chain's condition must never be interned")
	assert.Len(t, chainRows, 2, "only the two non-contradictory chains survive")
}

// TestRecordFunctionResolvesEffectiveBooleanViaXOR covers spec.md §4.1's
// "flag XOR is-negated" rule: a step written with a negated source
// condition (IsNegated) flips the recorded chain value relative to Flag.
func TestRecordFunctionResolvesEffectiveBooleanViaXOR(t *testing.T) {
	c := NewCollector()
	c.RecordFunction("int f(int)", "f", "main.cpp", []ChainInput{
		{Steps: []ChainStepInput{{File: "main.cpp", Line: 10, CondNorm: "x > 0", Kind: brhash.KindIf, Flag: true, IsNegated: true}}},
	})

	_, _, chains := c.Snapshot()
	require.Len(t, chains, 1)
	require.Len(t, chains[0].Sequence, 1)
	assert.False(t, chains[0].Sequence[0].Value, "flag=true XOR is_negated=true must resolve to false")
}

// TestRecordFunctionSkipsEmptySignature covers the documented
// no-recoverable-errors failure semantics for a malformed function input.
func TestRecordFunctionSkipsEmptySignature(t *testing.T) {
	c := NewCollector()
	c.RecordFunction("", "f", "main.cpp", trueFalseChains("main.cpp", 10, "x > 0", brhash.KindIf))

	conditions, functions, chains := c.Snapshot()
	assert.Empty(t, conditions)
	assert.Empty(t, functions)
	assert.Empty(t, chains)
}

// TestRecordFunctionSkipsStepsWithEmptyCondNorm covers the same failure
// semantics at the per-step level.
func TestRecordFunctionSkipsStepsWithEmptyCondNorm(t *testing.T) {
	c := NewCollector()
	c.RecordFunction("int f(int)", "f", "main.cpp", []ChainInput{
		{Steps: []ChainStepInput{{File: "main.cpp", Line: 10, CondNorm: "", Kind: brhash.KindIf, Flag: true}}},
	})

	conditions, functions, chains := c.Snapshot()
	assert.Empty(t, conditions)
	require.Len(t, functions, 1)
	require.Len(t, chains, 1)
	assert.Empty(t, chains[0].Sequence, "a step with no cond_norm contributes nothing to the sequence")
}

type fakeInternCache struct {
	conditions map[string]uint32
	functions  map[uint64]uint32
}

func newFakeInternCache() *fakeInternCache {
	return &fakeInternCache{conditions: make(map[string]uint32), functions: make(map[uint64]uint32)}
}

func (f *fakeInternCache) LookupCondition(key string) (uint32, bool) { id, ok := f.conditions[key]; return id, ok }
func (f *fakeInternCache) StoreCondition(key string, id uint32)      { f.conditions[key] = id }
func (f *fakeInternCache) LookupFunction(hash uint64) (uint32, bool) { id, ok := f.functions[hash]; return id, ok }
func (f *fakeInternCache) StoreFunction(hash uint64, id uint32)      { f.functions[hash] = id }

// TestInternCacheKeepsIdsStableAcrossCollectors covers property #1 across
// separate process invocations against the same project root: a shared
// InternCache makes a fresh Collector resolve the same ids a prior
// Collector already assigned.
func TestInternCacheKeepsIdsStableAcrossCollectors(t *testing.T) {
	cache := newFakeInternCache()
	sig := "int f(int)"
	chains := trueFalseChains("main.cpp", 10, "x > 0", brhash.KindIf)

	first := NewCollector(WithInternCache(cache))
	first.RecordFunction(sig, "f", "main.cpp", chains)
	firstConds, firstFuncs, _ := first.Snapshot()

	second := NewCollector(WithInternCache(cache))
	second.RecordFunction(sig, "f", "main.cpp", chains)
	secondConds, secondFuncs, _ := second.Snapshot()

	require.Len(t, firstConds, 1)
	require.Len(t, secondConds, 1)
	assert.Equal(t, firstConds[0].ID, secondConds[0].ID)
	assert.Equal(t, firstFuncs[0].FuncID, secondFuncs[0].FuncID)
}

// TestSetMinCoverMarksOnlyGivenOrdinals covers the mincover_set parameter's
// pass-through semantics: SetMinCover only flags the chains named in its
// ordinal set, for the named function.
func TestSetMinCoverMarksOnlyGivenOrdinals(t *testing.T) {
	c := NewCollector()
	chains := trueFalseChains("main.cpp", 10, "x > 0", brhash.KindIf)
	c.RecordFunction("int f(int)", "f", "main.cpp", chains)

	funcHash := brhash.FuncHash("int f(int)")
	c.SetMinCover(funcHash, map[int]bool{0: true})

	_, _, chainRows := c.Snapshot()
	require.Len(t, chainRows, 2)
	assert.True(t, chainRows[0].MinCover)
	assert.False(t, chainRows[1].MinCover)
}
