package meta

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppbear/brinfo/internal/brhash"
)

// TestConditionHashMatchesIndependentCondHash covers testable property #2:
// the hash the Collector records for an interned condition equals
// brhash.CondHash computed independently from the same (file, line,
// cond_norm) -- this is the identity the Instrumenter's injected probe must
// also reproduce for the runtime trace to correlate against meta.
func TestConditionHashMatchesIndependentCondHash(t *testing.T) {
	c := NewCollector()
	c.RecordFunction("int f(int)", "f", "main.cpp",
		trueFalseChains("main.cpp", 10, "p == nullptr", brhash.KindLoop))

	conditions, _, _ := c.Snapshot()
	require.Len(t, conditions, 1)

	want := brhash.CondHash("main.cpp", 10, "p == nullptr")
	assert.Equal(t, want, conditions[0].Hash)
}

// TestChainSignatureFollowsRollingHashLaw covers testable property #5: the
// chain_signature the Collector records for a multi-step chain equals
// brhash.RollingHash computed directly over the same (cond_id, value)
// sequence.
func TestChainSignatureFollowsRollingHashLaw(t *testing.T) {
	c := NewCollector()
	c.RecordFunction("int f(int)", "f", "main.cpp", []ChainInput{
		{Steps: []ChainStepInput{
			{File: "main.cpp", Line: 10, CondNorm: "x > 0", Kind: brhash.KindIf, Flag: true},
			{File: "main.cpp", Line: 20, CondNorm: "y > 0", Kind: brhash.KindIf, Flag: false},
		}},
	})

	conditions, _, chains := c.Snapshot()
	require.Len(t, conditions, 2)
	require.Len(t, chains, 1)
	require.Len(t, chains[0].Sequence, 2)

	want := brhash.RollingHash(chains[0].Sequence)
	assert.Equal(t, want, chains[0].Signature)
}

// TestDumpAllProducesConsistentHexHashes writes a small Collector's tables
// to disk and confirms every hash field round-trips as the 0x-prefixed
// 16-hex-digit form ToHex64 produces, matching spec.md §6's wire format.
func TestDumpAllProducesConsistentHexHashes(t *testing.T) {
	c := NewCollector()
	c.RecordFunction("int f(int)", "f", "main.cpp",
		trueFalseChains("main.cpp", 10, "x > 0", brhash.KindIf))

	dir := t.TempDir()
	require.NoError(t, c.DumpAll(dir))

	var condsDoc conditionsDoc
	readJSON(t, filepath.Join(dir, "llm_reqs", "conditions.meta.json"), &condsDoc)
	require.Len(t, condsDoc.Conditions, 1)
	assert.Regexp(t, `^0x[0-9a-f]{16}$`, condsDoc.Conditions[0].Hash)
	assert.NotEmpty(t, condsDoc.AnalysisVersion)

	var funcsDoc functionsDoc
	readJSON(t, filepath.Join(dir, "llm_reqs", "functions.meta.json"), &funcsDoc)
	require.Len(t, funcsDoc.Functions, 1)
	assert.Regexp(t, `^0x[0-9a-f]{16}$`, funcsDoc.Functions[0].Hash)

	var chainsDocParsed chainsDoc
	readJSON(t, filepath.Join(dir, "llm_reqs", "chains.meta.json"), &chainsDocParsed)
	require.Len(t, chainsDocParsed.Chains, 2)
	for _, ch := range chainsDocParsed.Chains {
		assert.Regexp(t, `^0x[0-9a-f]{16}$`, ch.Signature)
		assert.Regexp(t, `^0x[0-9a-f]{16}$`, ch.FuncHash)
	}
}

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}
