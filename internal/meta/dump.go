package meta

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cppbear/brinfo/internal/brhash"
)

// DumpAll serializes the current tables to
// <projectRoot>/llm_reqs/{conditions,functions,chains}.meta.json, all three
// sharing one analysis_version ISO-8601 UTC timestamp.
func (c *Collector) DumpAll(projectRoot string) error {
	c.mu.Lock()
	conditions := append([]ConditionMeta(nil), c.conditions...)
	functions := append([]FunctionMetaEntry(nil), c.functions...)
	chains := append([]ChainMetaEntry(nil), c.chains...)
	c.mu.Unlock()

	version := time.Now().UTC().Format("2006-01-02T15:04:05Z")
	outDir := filepath.Join(projectRoot, "llm_reqs")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if err := dumpJSON(filepath.Join(outDir, "conditions.meta.json"), buildConditionsDoc(version, conditions)); err != nil {
		return fmt.Errorf("dump conditions: %w", err)
	}
	if err := dumpJSON(filepath.Join(outDir, "functions.meta.json"), buildFunctionsDoc(version, functions)); err != nil {
		return fmt.Errorf("dump functions: %w", err)
	}
	if err := dumpJSON(filepath.Join(outDir, "chains.meta.json"), buildChainsDoc(version, chains)); err != nil {
		return fmt.Errorf("dump chains: %w", err)
	}
	c.logger.Info("meta dumped", "project_root", projectRoot,
		"conditions", len(conditions), "functions", len(functions), "chains", len(chains))
	return nil
}

type conditionsDoc struct {
	AnalysisVersion string          `json:"analysis_version"`
	Conditions      []conditionJSON `json:"conditions"`
}

func buildConditionsDoc(version string, conditions []ConditionMeta) conditionsDoc {
	doc := conditionsDoc{AnalysisVersion: version, Conditions: make([]conditionJSON, len(conditions))}
	for i, cm := range conditions {
		doc.Conditions[i] = conditionJSON{
			ID: cm.ID, File: cm.File, Line: cm.Line, CondNorm: cm.CondNorm,
			Kind: string(cm.Kind), Hash: brhash.ToHex64(cm.Hash),
		}
	}
	return doc
}

type functionsDoc struct {
	AnalysisVersion string         `json:"analysis_version"`
	Functions       []functionJSON `json:"functions"`
}

func buildFunctionsDoc(version string, functions []FunctionMetaEntry) functionsDoc {
	doc := functionsDoc{AnalysisVersion: version, Functions: make([]functionJSON, len(functions))}
	for i, f := range functions {
		condIDs := make([]uint32, 0, len(f.ConditionIDs))
		for id := range f.ConditionIDs {
			condIDs = append(condIDs, id)
		}
		sort.Slice(condIDs, func(a, b int) bool { return condIDs[a] < condIDs[b] })

		returns := make([]returnExprJSON, len(f.Returns))
		for j, r := range f.Returns {
			returns[j] = returnExprJSON{ChainID: r.ChainID, RetHash: brhash.ToHex64(r.RetHash), RetNorm: r.RetNorm}
		}

		doc.Functions[i] = functionJSON{
			FuncID: f.FuncID, Signature: f.Signature, Name: f.Name, File: f.File,
			Hash: brhash.ToHex64(f.FuncHash), ConditionIDs: condIDs, ReturnExprs: returns,
		}
	}
	return doc
}

type chainsDoc struct {
	AnalysisVersion string      `json:"analysis_version"`
	Chains          []chainJSON `json:"chains"`
}

func buildChainsDoc(version string, chains []ChainMetaEntry) chainsDoc {
	doc := chainsDoc{AnalysisVersion: version, Chains: make([]chainJSON, len(chains))}
	for i, ch := range chains {
		seq := make([]chainStepJSON, len(ch.Sequence))
		for j, s := range ch.Sequence {
			seq[j] = chainStepJSON{CondID: s.CondID, Value: s.Value}
		}
		doc.Chains[i] = chainJSON{
			ChainID: ch.ChainID, FuncHash: brhash.ToHex64(ch.FuncHash), MinCover: ch.MinCover,
			Signature: brhash.ToHex64(ch.Signature), ReturnHash: brhash.ToHex64(ch.ReturnHash), Sequence: seq,
		}
	}
	return doc
}

func dumpJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
