package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cppbear/brinfo/internal/instrument"
)

var (
	wrapDryRun bool

	wrapInvocationsCmd = &cobra.Command{
		Use:   "wrap-invocations",
		Short: "Wrap top-level calls inside GoogleTest bodies with BRINFO_CALL",
		Long: `Runs the same condition instrumentation as "instrument" plus the
Invocation Auto-Wrapper pass, restricted to files under only_tests when
configured.`,
		RunE: runWrapInvocations,
	}
)

func init() {
	wrapInvocationsCmd.Flags().BoolVar(&wrapDryRun, "dry-run", false,
		"compute edits and print a unified diff without writing files")
}

func runWrapInvocations(cmd *cobra.Command, args []string) error {
	files, err := discoverFiles(cfg.ProjectRoot, cfg.AllowRegex, cfg.MainFileOnly)
	if err != nil {
		return fmt.Errorf("discover files: %w", err)
	}
	files = filterUnderDirs(files, cfg.OnlyTests)

	collector, cache, err := newCollector()
	if err != nil {
		return err
	}
	defer cache.Close()

	instrumenter := instrument.New(collector, instrument.Options{
		DryRun:        wrapDryRun,
		WrapMacroArgs: true,
	}, appLog)

	ctx := context.Background()
	changed := 0
	for _, rel := range files {
		abs := filepath.Join(cfg.ProjectRoot, rel)
		result, err := instrumenter.InstrumentFile(ctx, abs, rel)
		if err != nil {
			appLog.Error("wrap-invocations: failed", "file", rel, "error", err.Error())
			continue
		}
		if !result.Changed {
			continue
		}
		changed++
		if wrapDryRun {
			fmt.Println(result.DiffPreview)
		}
	}

	appLog.Info("wrap-invocations: run complete", "files_scanned", len(files), "files_changed", changed)

	if wrapDryRun {
		return nil
	}
	if err := collector.DumpAll(cfg.ProjectRoot); err != nil {
		return fmt.Errorf("dump meta: %w", err)
	}
	return nil
}
