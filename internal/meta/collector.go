package meta

import (
	"fmt"
	"sync"

	"github.com/cppbear/brinfo/internal/brhash"
	"github.com/cppbear/brinfo/pkg/logging"
)

// ChainStepInput is one step of a chain as supplied by the upstream chain
// analyzer (out of scope for this repository, per SPEC_FULL.md §4.2): the
// condition's spelling location and normalized text, its structural kind,
// the step's raw flag, and whether the source condition was written negated
// (so RecordFunction can resolve the effective boolean per spec.md §4.1:
// "the step's flag XOR the condition's is-negated flag").
type ChainStepInput struct {
	File      string
	Line      int
	CondNorm  string
	Kind      brhash.ConditionKind
	Flag      bool
	IsNegated bool
}

// ChainInput is one candidate chain as supplied by the upstream analyzer.
type ChainInput struct {
	IsContra   bool
	Steps      []ChainStepInput
	ReturnNorm string // empty if this chain has no return form
}

// Collector owns the three growing append-only tables (conditions,
// functions, chains) plus the two indices keyed by stable identity.
// A single mutex guards the tables and indices, so Collector is safe to
// call concurrently from multiple translation-unit workers.
type Collector struct {
	mu sync.Mutex

	conditions  []ConditionMeta
	functions   []FunctionMetaEntry
	chains      []ChainMetaEntry
	condKey2ID  map[string]uint32
	funcHash2ID map[uint64]uint32

	cache  InternCache
	logger *logging.Logger
}

// InternCache is the optional persistence extension point used by
// BadgerCache to keep condition/function ids stable across separate
// process invocations against the same project root.
type InternCache interface {
	LookupCondition(key string) (id uint32, ok bool)
	StoreCondition(key string, id uint32)
	LookupFunction(hash uint64) (id uint32, ok bool)
	StoreFunction(hash uint64, id uint32)
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithInternCache attaches a persistent intern cache (e.g. BadgerCache).
func WithInternCache(c InternCache) CollectorOption {
	return func(coll *Collector) { coll.cache = c }
}

// WithLogger attaches a structured logger; defaults to logging.Default().
func WithLogger(l *logging.Logger) CollectorOption {
	return func(coll *Collector) { coll.logger = l }
}

// NewCollector creates an empty Collector.
func NewCollector(opts ...CollectorOption) *Collector {
	c := &Collector{
		condKey2ID:  make(map[string]uint32),
		funcHash2ID: make(map[uint64]uint32),
		logger:      logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// getOrCreateConditionID interns (file, line, cond_norm, kind), matching
// original_source/src/core/Meta.cpp's dedup key ("#"-joined) which is
// deliberately distinct from the ":"-joined string fed to CondHash.
func (c *Collector) getOrCreateConditionID(file string, line int, condNorm string, kind brhash.ConditionKind) uint32 {
	key := fmt.Sprintf("%s#%d#%s", file, line, condNorm)
	if id, ok := c.condKey2ID[key]; ok {
		return id
	}
	if c.cache != nil {
		if id, ok := c.cache.LookupCondition(key); ok {
			c.condKey2ID[key] = id
			if int(id) >= len(c.conditions) {
				c.growConditions(int(id) + 1)
			}
			c.conditions[id] = ConditionMeta{
				ID: id, File: file, Line: line, CondNorm: condNorm, Kind: kind,
				Hash: brhash.CondHash(file, line, condNorm),
			}
			return id
		}
	}

	id := uint32(len(c.conditions))
	c.conditions = append(c.conditions, ConditionMeta{
		ID: id, File: file, Line: line, CondNorm: condNorm, Kind: kind,
		Hash: brhash.CondHash(file, line, condNorm),
	})
	c.condKey2ID[key] = id
	if c.cache != nil {
		c.cache.StoreCondition(key, id)
	}
	return id
}

// growConditions is only reached when a cache lookup returns an id beyond
// the current table size (a fresh process resuming a prior run's cache).
func (c *Collector) growConditions(n int) {
	for len(c.conditions) < n {
		c.conditions = append(c.conditions, ConditionMeta{})
	}
}

func (c *Collector) getOrCreateFunctionID(funcHash uint64, signature, name, file string) uint32 {
	if id, ok := c.funcHash2ID[funcHash]; ok {
		return id
	}
	if c.cache != nil {
		if id, ok := c.cache.LookupFunction(funcHash); ok {
			c.funcHash2ID[funcHash] = id
			for len(c.functions) <= int(id) {
				c.functions = append(c.functions, FunctionMetaEntry{ConditionIDs: make(map[uint32]struct{})})
			}
			c.functions[id] = FunctionMetaEntry{
				FuncID: id, Signature: signature, Name: name, File: file, FuncHash: funcHash,
				ConditionIDs: make(map[uint32]struct{}),
			}
			return id
		}
	}
	id := uint32(len(c.functions))
	c.functions = append(c.functions, FunctionMetaEntry{
		FuncID: id, Signature: signature, Name: name, File: file, FuncHash: funcHash,
		ConditionIDs: make(map[uint32]struct{}),
	})
	c.funcHash2ID[funcHash] = id
	if c.cache != nil {
		c.cache.StoreFunction(funcHash, id)
	}
	return id
}

// RecordFunction interns a function's static shape: it resolves the
// function's identity, then records every surviving (non-contradictory)
// chain in encounter order, interning each condition step and appending a
// ChainMetaEntry. Chain ordinals are dense over survivors (see DESIGN.md's
// resolution of the encounter-order vs. raw-loop-index discrepancy).
//
// Malformed inputs (empty signature, a chain step with no cond_norm) are
// silently skipped for the affected step, per spec.md §4.1's failure
// semantics: this component has no recoverable error conditions of its own.
func (c *Collector) RecordFunction(signature, name, file string, chains []ChainInput) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if signature == "" {
		c.logger.Warn("record_function skipped: empty signature", "file", file, "name", name)
		return
	}

	funcHash := brhash.FuncHash(signature)
	funcID := c.getOrCreateFunctionID(funcHash, signature, name, file)

	survivorOrdinal := 0
	for _, chainIn := range chains {
		if chainIn.IsContra {
			continue
		}
		entry := ChainMetaEntry{
			ChainID:  fmt.Sprintf("%03d", survivorOrdinal),
			FuncHash: funcHash,
		}
		survivorOrdinal++

		seq := make([]brhash.ChainStep, 0, len(chainIn.Steps))
		for _, step := range chainIn.Steps {
			if step.CondNorm == "" {
				continue
			}
			value := step.Flag != step.IsNegated // effective boolean: flag XOR is-negated
			condID := c.getOrCreateConditionID(step.File, step.Line, step.CondNorm, step.Kind)
			seq = append(seq, brhash.ChainStep{CondID: condID, Value: value})
			c.functions[funcID].ConditionIDs[condID] = struct{}{}
		}
		entry.Sequence = seq
		entry.Signature = brhash.RollingHash(seq)

		if chainIn.ReturnNorm != "" {
			entry.ReturnHash = brhash.ReturnHash(chainIn.ReturnNorm)
			c.functions[funcID].Returns = append(c.functions[funcID].Returns, ReturnExprMeta{
				ChainID: entry.ChainID,
				RetHash: entry.ReturnHash,
				RetNorm: chainIn.ReturnNorm,
			})
		}

		c.chains = append(c.chains, entry)
	}
}

// SetMinCover marks the chains at the given dense survivor ordinals as
// belonging to the minimum spanning cover set (an input from the upstream
// chain analyzer, accepted here rather than recomputed, per spec.md §4.1's
// mincover_set parameter).
func (c *Collector) SetMinCover(funcHash uint64, minCoverOrdinals map[int]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.chains {
		if c.chains[i].FuncHash != funcHash {
			continue
		}
		var ordinal int
		if _, err := fmt.Sscanf(c.chains[i].ChainID, "%d", &ordinal); err != nil {
			continue
		}
		if minCoverOrdinals[ordinal] {
			c.chains[i].MinCover = true
		}
	}
}

// Snapshot returns copies of the current tables, safe to read concurrently
// with further RecordFunction calls (used by internal/debugserver).
func (c *Collector) Snapshot() (conditions []ConditionMeta, functions []FunctionMetaEntry, chains []ChainMetaEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conditions = append(conditions, c.conditions...)
	functions = append(functions, c.functions...)
	chains = append(chains, c.chains...)
	return
}
