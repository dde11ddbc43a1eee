package instrument

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cppbear/brinfo/internal/cparse"
	"github.com/cppbear/brinfo/internal/meta"
	"github.com/cppbear/brinfo/pkg/logging"
)

// Options configures an Instrumenter run.
type Options struct {
	// DryRun computes edits and a diff preview without writing files.
	DryRun bool

	// WrapMacroArgs enables the Invocation Auto-Wrapper pass (see autowrap.go)
	// in the same run.
	WrapMacroArgs bool
}

// Instrumenter rewrites one translation unit at a time: it parses the file
// with cparse, records its static shape (return forms included) into a
// meta.Collector, computes text edits for every condition, switch label
// and range-for site (plus test-body calls when WrapMacroArgs is set), and
// applies them. Return statements are not probed.
type Instrumenter struct {
	parser    *cparse.Parser
	collector *meta.Collector
	logger    *logging.Logger
	options   Options
}

// New creates an Instrumenter sharing collector's tables across every
// file it processes in one run (mirroring how the original AST-consumer
// pass accumulates meta across a whole translation-unit set).
func New(collector *meta.Collector, options Options, logger *logging.Logger) *Instrumenter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Instrumenter{
		parser:    cparse.NewParser(cparse.WithLogger(logger)),
		collector: collector,
		logger:    logger,
		options:   options,
	}
}

// Result is the outcome of instrumenting one file.
type Result struct {
	FilePath   string
	Changed    bool
	DiffPreview string
	Functions  int
}

// InstrumentFile parses, records meta for, and rewrites a single file.
// relPath is the path recorded into meta and embedded into probe hashes;
// it should be relative to the project root so hashes are stable across
// machines and checkouts.
func (in *Instrumenter) InstrumentFile(ctx context.Context, absPath, relPath string) (Result, error) {
	content, err := os.ReadFile(absPath)
	if err != nil {
		return Result{}, fmt.Errorf("instrument: read %s: %w", absPath, err)
	}

	fileAST, err := in.parser.Parse(ctx, content, relPath)
	if err != nil {
		return Result{}, fmt.Errorf("instrument: parse %s: %w", relPath, err)
	}

	var edits []TextEdit
	for i := range fileAST.Functions {
		fi := &fileAST.Functions[i]
		in.recordFunctionMeta(relPath, fi)

		edits = append(edits, buildConditionEdits(fi, content, relPath)...)
		edits = append(edits, buildSwitchCaseEdits(fi, relPath)...)
		edits = append(edits, buildRangeForEdits(fi, relPath)...)

		if in.options.WrapMacroArgs {
			edits = append(edits, buildInvocationEdits(fi, content)...)
		}
	}

	if len(edits) == 0 {
		return Result{FilePath: relPath, Functions: len(fileAST.Functions)}, nil
	}

	if inc := buildIncludeEdit(content); inc != nil {
		edits = append(edits, *inc)
	}

	rewritten, err := ApplyEdits(content, edits)
	if err != nil {
		return Result{}, fmt.Errorf("instrument: apply edits to %s: %w", relPath, err)
	}

	result := Result{FilePath: relPath, Changed: true, Functions: len(fileAST.Functions)}

	if in.options.DryRun {
		preview, err := PreviewDiff(relPath, content, rewritten)
		if err != nil {
			return Result{}, err
		}
		result.DiffPreview = preview
		return result, nil
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return Result{}, fmt.Errorf("instrument: mkdir for %s: %w", absPath, err)
	}
	if err := os.WriteFile(absPath, rewritten, 0o644); err != nil {
		return Result{}, fmt.Errorf("instrument: write %s: %w", absPath, err)
	}

	in.logger.Info("instrumented file", "file", relPath, "functions", len(fileAST.Functions), "edits", len(edits))
	return result, nil
}

// RecordOnly parses a file and feeds its functions into the shared
// meta.Collector without computing or applying any edits, for regenerating
// meta artifacts from source that either hasn't been instrumented yet or
// whose probes have already been written in a prior run.
func (in *Instrumenter) RecordOnly(ctx context.Context, absPath, relPath string) (int, error) {
	content, err := os.ReadFile(absPath)
	if err != nil {
		return 0, fmt.Errorf("instrument: read %s: %w", absPath, err)
	}
	fileAST, err := in.parser.Parse(ctx, content, relPath)
	if err != nil {
		return 0, fmt.Errorf("instrument: parse %s: %w", relPath, err)
	}
	for i := range fileAST.Functions {
		in.recordFunctionMeta(relPath, &fileAST.Functions[i])
	}
	return len(fileAST.Functions), nil
}

// recordFunctionMeta feeds a parsed function's minimal chain set into the
// shared meta.Collector.
func (in *Instrumenter) recordFunctionMeta(file string, fi *cparse.FunctionInfo) {
	chains := cparse.LinearChains(fi)
	inputs := make([]meta.ChainInput, 0, len(chains))
	for _, ch := range chains {
		norm, flip := cparse.CondNormOf(ch.Site)
		_ = flip // norm_flip informs Instrumenter/Meta symmetry checks only; RecordFunction derives the effective value from Flag/IsNegated directly.
		inputs = append(inputs, meta.ChainInput{
			Steps: []meta.ChainStepInput{{
				File: file, Line: ch.Site.Span.StartLine, CondNorm: norm,
				Kind: ch.Site.Kind, Flag: ch.Value, IsNegated: ch.Site.IsNegated,
			}},
			ReturnNorm: ch.ReturnNorm,
		})
	}

	sig := fi.Signature
	if sig == "" {
		sig = fi.Name
	}
	in.collector.RecordFunction(sig, fi.Name, file, inputs)
}
