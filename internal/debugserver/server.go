// Package debugserver exposes a small live-inspection HTTP API over a
// running instrumentation session: the Meta-Collector's three tables and
// the Runtime Tracer's live trace log, so a developer or CI dashboard can
// poll progress without waiting for the final meta/trace artifacts.
package debugserver

import (
	"bufio"
	"net/http"
	"os"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cppbear/brinfo/internal/brhash"
	"github.com/cppbear/brinfo/internal/meta"
	"github.com/cppbear/brinfo/pkg/logging"
)

// Server wires a Meta-Collector and a trace log path into a gin router.
type Server struct {
	collector *meta.Collector
	tracePath string
	logger    *logging.Logger
	router    *gin.Engine
}

// New builds a Server. tracePath may point to a file that does not exist
// yet; /trace/tail simply reports zero events until the Runtime Tracer
// creates it.
func New(collector *meta.Collector, tracePath string, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{collector: collector, tracePath: tracePath, logger: logger, router: router}
	s.registerRoutes()
	return s
}

// Router exposes the underlying *gin.Engine, primarily for tests that
// want to drive requests via httptest without binding a real port.
func (s *Server) Router() *gin.Engine { return s.router }

// Run starts the server listening on addr; it blocks until the server
// stops or errors, matching gin.Engine.Run's own contract.
func (s *Server) Run(addr string) error {
	s.logger.Info("debugserver: listening", "addr", addr)
	return s.router.Run(addr)
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealthz)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	metaGroup := s.router.Group("/meta")
	{
		metaGroup.GET("/conditions", s.handleConditions)
		metaGroup.GET("/functions", s.handleFunctions)
		metaGroup.GET("/chains", s.handleChains)
	}

	s.router.GET("/trace/tail", s.handleTraceTail)
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type conditionResponse struct {
	ID       uint32 `json:"id"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	CondNorm string `json:"cond_norm"`
	Kind     string `json:"kind"`
	Hash     string `json:"hash"`
}

func (s *Server) handleConditions(c *gin.Context) {
	conditions, _, _ := s.collector.Snapshot()
	out := make([]conditionResponse, len(conditions))
	for i, cm := range conditions {
		out[i] = conditionResponse{
			ID: cm.ID, File: cm.File, Line: cm.Line,
			CondNorm: cm.CondNorm, Kind: string(cm.Kind), Hash: brhash.ToHex64(cm.Hash),
		}
	}
	c.JSON(http.StatusOK, gin.H{"conditions": out})
}

type functionResponse struct {
	FuncID    uint32   `json:"func_id"`
	Signature string   `json:"signature"`
	Name      string   `json:"name"`
	File      string   `json:"file"`
	Hash      string   `json:"hash"`
	Returns   int      `json:"return_count"`
	CondIDs   []uint32 `json:"condition_ids"`
}

func (s *Server) handleFunctions(c *gin.Context) {
	_, functions, _ := s.collector.Snapshot()
	out := make([]functionResponse, len(functions))
	for i, f := range functions {
		condIDs := make([]uint32, 0, len(f.ConditionIDs))
		for id := range f.ConditionIDs {
			condIDs = append(condIDs, id)
		}
		sort.Slice(condIDs, func(a, b int) bool { return condIDs[a] < condIDs[b] })
		out[i] = functionResponse{
			FuncID: f.FuncID, Signature: f.Signature, Name: f.Name, File: f.File,
			Hash: brhash.ToHex64(f.FuncHash), Returns: len(f.Returns), CondIDs: condIDs,
		}
	}
	c.JSON(http.StatusOK, gin.H{"functions": out})
}

type chainResponse struct {
	ChainID    string `json:"chain_id"`
	FuncHash   string `json:"func_hash"`
	MinCover   bool   `json:"min_cover"`
	Signature  string `json:"signature"`
	ReturnHash string `json:"return_hash"`
	Steps      int    `json:"step_count"`
}

func (s *Server) handleChains(c *gin.Context) {
	_, _, chains := s.collector.Snapshot()
	out := make([]chainResponse, len(chains))
	for i, ch := range chains {
		out[i] = chainResponse{
			ChainID: ch.ChainID, FuncHash: brhash.ToHex64(ch.FuncHash), MinCover: ch.MinCover,
			Signature: brhash.ToHex64(ch.Signature), ReturnHash: brhash.ToHex64(ch.ReturnHash),
			Steps: len(ch.Sequence),
		}
	}
	c.JSON(http.StatusOK, gin.H{"chains": out})
}

// handleTraceTail returns the last N NDJSON lines of the trace log
// (default 100, capped at 1000 via the "n" query parameter), as raw JSON
// objects rather than re-parsing them into Go structs, so it stays in
// sync with whatever event shape rtrace happens to emit.
func (s *Server) handleTraceTail(c *gin.Context) {
	n := 100
	if raw := c.Query("n"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			n = parsed
		}
	}
	if n > 1000 {
		n = 1000
	}

	lines, err := tailLines(s.tracePath, n)
	if err != nil {
		if os.IsNotExist(err) {
			c.Data(http.StatusOK, "application/x-ndjson", nil)
			return
		}
		s.logger.Error("debugserver: failed to tail trace log", "path", s.tracePath, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read trace log"})
		return
	}
	c.Data(http.StatusOK, "application/x-ndjson", []byte(joinLines(lines)))
}

func tailLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if len(ring) < n {
			ring = append(ring, line)
			continue
		}
		copy(ring, ring[1:])
		ring[len(ring)-1] = line
	}
	return ring, scanner.Err()
}

func joinLines(lines []string) string {
	out := ""
	for _, l := range lines {
		out += l + "\n"
	}
	return out
}
