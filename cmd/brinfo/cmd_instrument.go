package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cppbear/brinfo/internal/instrument"
)

var (
	instrumentDryRun bool

	instrumentCmd = &cobra.Command{
		Use:   "instrument",
		Short: "Insert condition probes into a C/C++ project",
		Long: `Walks the configured project root, wraps every condition site the
static Meta-Collector recognizes with brinfo::LogCond probes, and writes the
three meta JSON artifacts (which also record return forms) to
<project_root>/llm_reqs.`,
		RunE: runInstrument,
	}
)

func init() {
	instrumentCmd.Flags().BoolVar(&instrumentDryRun, "dry-run", false,
		"compute edits and print a unified diff without writing files")
}

func runInstrument(cmd *cobra.Command, args []string) error {
	files, err := discoverFiles(cfg.ProjectRoot, cfg.AllowRegex, cfg.MainFileOnly)
	if err != nil {
		return fmt.Errorf("discover files: %w", err)
	}

	collector, cache, err := newCollector()
	if err != nil {
		return err
	}
	defer cache.Close()

	instrumenter := instrument.New(collector, instrument.Options{
		DryRun:        instrumentDryRun,
		WrapMacroArgs: false,
	}, appLog)

	ctx := context.Background()
	changed := 0
	for _, rel := range files {
		abs := filepath.Join(cfg.ProjectRoot, rel)
		result, err := instrumenter.InstrumentFile(ctx, abs, rel)
		if err != nil {
			appLog.Error("instrument: failed", "file", rel, "error", err.Error())
			continue
		}
		if !result.Changed {
			continue
		}
		changed++
		if instrumentDryRun {
			fmt.Println(result.DiffPreview)
		}
	}

	appLog.Info("instrument: run complete", "files_scanned", len(files), "files_changed", changed)

	if instrumentDryRun {
		return nil
	}
	if err := collector.DumpAll(cfg.ProjectRoot); err != nil {
		return fmt.Errorf("dump meta: %w", err)
	}
	return nil
}
