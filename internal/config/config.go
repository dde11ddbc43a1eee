// Package config loads brinfo's YAML configuration, following the same
// find-or-create-default, sync.Once-guarded singleton pattern used
// elsewhere in this codebase's command-line tooling.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config is brinfo's on-disk configuration.
type Config struct {
	// ProjectRoot is the C/C++ project being instrumented/traced,
	// relative paths recorded in meta and trace output are relative to
	// this directory.
	ProjectRoot string `yaml:"project_root"`

	// AllowRegex restricts instrumentation to files whose path matches;
	// empty means every discovered translation unit is eligible.
	AllowRegex string `yaml:"allow_regex"`

	// OnlyTests restricts the Invocation Auto-Wrapper to files under
	// these directories (relative to ProjectRoot); empty means every
	// file with a detected GoogleTest body is eligible.
	OnlyTests []string `yaml:"only_tests"`

	// MainFileOnly limits header-only condition instrumentation to the
	// primary .cc/.cpp file of a translation unit, skipping conditions
	// found only via #include'd headers.
	MainFileOnly bool `yaml:"main_file_only"`

	// WrapMacroArgs is loaded from the file, but no subcommand reads it:
	// "instrument" never runs the Invocation Auto-Wrapper pass and
	// "wrap-invocations" always does.
	WrapMacroArgs bool `yaml:"wrap_macro_args"`

	// TracePath is where the Runtime Tracer appends its NDJSON log.
	TracePath string `yaml:"trace_path"`

	// CacheDir is the BadgerDB intern-cache directory; empty uses an
	// in-memory cache scoped to a single process run.
	CacheDir string `yaml:"cache_dir"`

	DebugServer DebugServerConfig `yaml:"debug_server"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// DebugServerConfig configures the optional live-inspection HTTP server.
type DebugServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	LogDir string `yaml:"log_dir"`
	JSON   bool   `yaml:"json"`
}

// DefaultConfig returns brinfo's out-of-the-box configuration.
func DefaultConfig() Config {
	return Config{
		AllowRegex:    "",
		MainFileOnly:  true,
		WrapMacroArgs: true,
		TracePath:     "llm_reqs/runtime.ndjson",
		DebugServer: DebugServerConfig{
			Enabled: false,
			Addr:    "127.0.0.1:8089",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

var (
	Global  Config
	once    sync.Once
	loadErr error
)

// Load reads path into Global exactly once per process, creating path
// with DefaultConfig's contents if it does not yet exist.
func Load(path string) error {
	once.Do(func() {
		loadErr = loadInto(&Global, path)
	})
	return loadErr
}

func loadInto(cfg *Config, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := createDefault(path); err != nil {
			return err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	*cfg = DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func createDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create dir for %s: %w", path, err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("config: marshal defaults: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Save writes cfg to path as YAML.
func Save(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create dir for %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0o644)
}
