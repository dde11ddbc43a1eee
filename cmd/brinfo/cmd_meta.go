package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cppbear/brinfo/internal/instrument"
)

var dumpMetaCmd = &cobra.Command{
	Use:   "dump-meta",
	Short: "Regenerate conditions/functions/chains.meta.json without rewriting source",
	Long: `Parses every discovered translation unit, rebuilds the Meta-Collector's
tables, and writes the three meta JSON artifacts. Use this to recover meta
output after instrument's own dump was lost, or to inspect a project's
static shape before instrumenting it.`,
	RunE: runDumpMeta,
}

func runDumpMeta(cmd *cobra.Command, args []string) error {
	files, err := discoverFiles(cfg.ProjectRoot, cfg.AllowRegex, cfg.MainFileOnly)
	if err != nil {
		return fmt.Errorf("discover files: %w", err)
	}

	collector, cache, err := newCollector()
	if err != nil {
		return err
	}
	defer cache.Close()

	instrumenter := instrument.New(collector, instrument.Options{}, appLog)

	ctx := context.Background()
	total := 0
	for _, rel := range files {
		abs := filepath.Join(cfg.ProjectRoot, rel)
		n, err := instrumenter.RecordOnly(ctx, abs, rel)
		if err != nil {
			appLog.Error("dump-meta: failed", "file", rel, "error", err.Error())
			continue
		}
		total += n
	}

	if err := collector.DumpAll(cfg.ProjectRoot); err != nil {
		return fmt.Errorf("dump meta: %w", err)
	}
	appLog.Info("dump-meta: run complete", "files_scanned", len(files), "functions", total)
	return nil
}
