package debugserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppbear/brinfo/internal/brhash"
	"github.com/cppbear/brinfo/internal/meta"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, tracePath string) *Server {
	t.Helper()
	collector := meta.NewCollector()
	collector.RecordFunction("bool clamp(int)", "clamp", "clamp.cc", []meta.ChainInput{
		{Steps: []meta.ChainStepInput{{File: "clamp.cc", Line: 3, CondNorm: "x < lo", Kind: brhash.KindIf, Flag: true}}, ReturnNorm: "true"},
		{Steps: []meta.ChainStepInput{{File: "clamp.cc", Line: 3, CondNorm: "x < lo", Kind: brhash.KindIf, Flag: false}}, ReturnNorm: "false"},
	})
	return New(collector, tracePath, nil)
}

func TestHealthzReturnsOK(t *testing.T) {
	s := newTestServer(t, filepath.Join(t.TempDir(), "trace.ndjson"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestConditionsReturnsRecordedEntries(t *testing.T) {
	s := newTestServer(t, filepath.Join(t.TempDir(), "trace.ndjson"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/meta/conditions", nil)
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Conditions []conditionResponse `json:"conditions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Conditions, 1)
	assert.Equal(t, "x < lo", body.Conditions[0].CondNorm)
}

func TestFunctionsReturnsRecordedEntries(t *testing.T) {
	s := newTestServer(t, filepath.Join(t.TempDir(), "trace.ndjson"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/meta/functions", nil)
	s.Router().ServeHTTP(w, req)

	var body struct {
		Functions []functionResponse `json:"functions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Functions, 1)
	assert.Equal(t, "clamp", body.Functions[0].Name)
}

func TestChainsReturnsRecordedEntries(t *testing.T) {
	s := newTestServer(t, filepath.Join(t.TempDir(), "trace.ndjson"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/meta/chains", nil)
	s.Router().ServeHTTP(w, req)

	var body struct {
		Chains []chainResponse `json:"chains"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Chains, 2)
}

func TestTraceTailReturnsEmptyWhenLogMissing(t *testing.T) {
	s := newTestServer(t, filepath.Join(t.TempDir(), "does-not-exist.ndjson"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/trace/tail", nil)
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", w.Body.String())
}

func TestTraceTailReturnsLastNLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.ndjson")
	require.NoError(t, os.WriteFile(path, []byte("{\"a\":1}\n{\"a\":2}\n{\"a\":3}\n"), 0o644))
	s := newTestServer(t, path)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/trace/tail?n=2", nil)
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "{\"a\":2}\n{\"a\":3}\n", w.Body.String())
}
