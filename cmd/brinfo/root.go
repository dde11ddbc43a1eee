package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/cppbear/brinfo/internal/config"
	"github.com/cppbear/brinfo/pkg/logging"
)

var (
	cfgPath string
	cfg     config.Config
	appLog  *logging.Logger

	rootCmd = &cobra.Command{
		Use:   "brinfo",
		Short: "Static analysis and runtime tracing for C/C++ test coverage",
		Long: `brinfo statically collects branch and function metadata from a C/C++
project, instruments its source with condition and invocation probes, and
records a runtime trace of which branches and calls a test suite exercised.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".brinfo.yaml",
		"path to the brinfo configuration file (created with defaults if missing)")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if err := config.Load(cfgPath); err != nil {
			log.Fatalf("brinfo: failed to load config %s: %v", cfgPath, err)
		}
		cfg = config.Global

		logCfg := logging.Config{
			Level:   logging.LevelInfo,
			LogDir:  cfg.Logging.LogDir,
			Service: "brinfo",
			JSON:    cfg.Logging.JSON,
		}
		if cfg.Logging.Level != "" {
			logCfg.Level = parseLevel(cfg.Logging.Level)
		}
		appLog = logging.New(logCfg)
	}

	rootCmd.AddCommand(instrumentCmd)
	rootCmd.AddCommand(wrapInvocationsCmd)
	rootCmd.AddCommand(dumpMetaCmd)
	rootCmd.AddCommand(serveCmd)
}

func parseLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}
