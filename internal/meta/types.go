// Package meta implements the Static Meta-Collector: it canonicalizes a
// function's static shape into three linked, append-only tables (conditions,
// functions, chains) and serializes them to the meta JSON artifacts consumed
// by downstream tools that correlate static structure with runtime traces.
package meta

import "github.com/cppbear/brinfo/internal/brhash"

// ConditionMeta describes one interned condition site.
type ConditionMeta struct {
	ID       uint32               `json:"id"`
	File     string               `json:"file"`
	Line     int                  `json:"line"`
	CondNorm string               `json:"cond_norm"`
	Kind     brhash.ConditionKind `json:"kind"`
	Hash     uint64               `json:"-"`
}

// conditionJSON is ConditionMeta's wire shape (hash rendered as hex-64).
type conditionJSON struct {
	ID       uint32 `json:"id"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	CondNorm string `json:"cond_norm"`
	Kind     string `json:"kind"`
	Hash     string `json:"hash"`
}

// ReturnExprMeta is one non-empty return form recorded against a function.
type ReturnExprMeta struct {
	ChainID  string `json:"chain_id"`
	RetHash  uint64 `json:"-"`
	RetNorm  string `json:"ret_norm"`
}

type returnExprJSON struct {
	ChainID string `json:"chain_id"`
	RetHash string `json:"ret_hash"`
	RetNorm string `json:"ret_norm"`
}

// FunctionMetaEntry describes one interned function.
type FunctionMetaEntry struct {
	FuncID       uint32
	Signature    string
	Name         string
	File         string
	FuncHash     uint64
	ConditionIDs map[uint32]struct{}
	Returns      []ReturnExprMeta
}

type functionJSON struct {
	FuncID       uint32           `json:"func_id"`
	Signature    string           `json:"signature"`
	Name         string           `json:"name"`
	File         string           `json:"file"`
	Hash         string           `json:"hash"`
	ConditionIDs []uint32         `json:"condition_ids"`
	ReturnExprs  []returnExprJSON `json:"return_exprs"`
}

// ChainMetaEntry describes one surviving condition-chain.
type ChainMetaEntry struct {
	ChainID    string
	FuncHash   uint64
	MinCover   bool
	Sequence   []brhash.ChainStep
	Signature  uint64
	ReturnHash uint64
}

type chainStepJSON struct {
	CondID uint32 `json:"cond_id"`
	Value  bool   `json:"value"`
}

type chainJSON struct {
	ChainID    string          `json:"chain_id"`
	FuncHash   string          `json:"func_hash"`
	MinCover   bool            `json:"mincover"`
	Signature  string          `json:"signature"`
	ReturnHash string          `json:"return_hash"`
	Sequence   []chainStepJSON `json:"sequence"`
}
