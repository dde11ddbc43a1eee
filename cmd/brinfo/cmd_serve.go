package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cppbear/brinfo/internal/debugserver"
	"github.com/cppbear/brinfo/internal/instrument"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve live meta tables and a trace-log tail over HTTP",
	Long: `Parses the project once to populate the Meta-Collector, then starts the
debug-inspection server (see debug_server.addr in the config file) exposing
/healthz, /metrics, /meta/{conditions,functions,chains}, and /trace/tail.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
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
	for _, rel := range files {
		abs := filepath.Join(cfg.ProjectRoot, rel)
		if _, err := instrumenter.RecordOnly(ctx, abs, rel); err != nil {
			appLog.Error("serve: failed to parse file", "file", rel, "error", err.Error())
		}
	}

	tracePath := filepath.Join(cfg.ProjectRoot, cfg.TracePath)
	server := debugserver.New(collector, tracePath, appLog)

	addr := cfg.DebugServer.Addr
	if addr == "" {
		addr = "127.0.0.1:8089"
	}
	return server.Run(addr)
}
