package logging

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelString(t *testing.T) {
	cases := map[Level]string{
		LevelDebug: "DEBUG",
		LevelInfo:  "INFO",
		LevelWarn:  "WARN",
		LevelError: "ERROR",
		Level(99):  "UNKNOWN",
	}
	for level, want := range cases {
		assert.Equal(t, want, level.String())
	}
}

func TestDefaultLoggerDoesNotPanic(t *testing.T) {
	logger := Default()
	require.NotNil(t, logger)
	logger.Info("test message", "key", "value")
	logger.Debug("suppressed at info level")
	logger.Warn("warning", "n", 1)
	logger.Error("error", "err", "boom")
	require.NoError(t, logger.Close())
}

func TestLoggerWithExporterReceivesEntries(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{Level: LevelInfo, Service: "brinfo-test", Quiet: true, Exporter: exporter})

	logger.Info("hello", "n", 1)
	require.NoError(t, logger.Close())

	entries := exporter.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "hello", entries[0].Message)
	assert.Equal(t, LevelInfo, entries[0].Level)
	assert.Equal(t, "brinfo-test", entries[0].Service)
	assert.Equal(t, 1, entries[0].Attrs["n"])
}

func TestWriterExporterFormatsEntry(t *testing.T) {
	var buf strings.Builder
	exporter := NewWriterExporter(&buf)
	require.NoError(t, exporter.Export(nil, LogEntry{Message: "hi", Level: LevelWarn}))
	assert.Contains(t, buf.String(), "hi")
	assert.Contains(t, buf.String(), "WARN")
}

func TestWithChildLoggerLogsAndCloses(t *testing.T) {
	exporter := NewBufferedExporter()
	base := New(Config{Level: LevelInfo, Quiet: true, Exporter: exporter})
	child := base.With("component", "instrumenter")

	child.Info("running")
	require.NoError(t, child.Close())
}

func TestNopExporterIsSafe(t *testing.T) {
	var e NopExporter
	require.NoError(t, e.Export(nil, LogEntry{}))
	require.NoError(t, e.Flush(nil))
	require.NoError(t, e.Close())
}

func TestArgsToMapOddLengthIgnoresTrailingKey(t *testing.T) {
	m := argsToMap([]any{"a", 1, "b"})
	assert.Equal(t, map[string]any{"a": 1}, m)
}

func TestExpandPathLeavesNonTildeUnchanged(t *testing.T) {
	assert.Equal(t, "/var/log/brinfo", expandPath("/var/log/brinfo"))
}
