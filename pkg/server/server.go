package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/termserve/termserve/internal/metrics"
	"github.com/termserve/termserve/pkg/config"
	"github.com/termserve/termserve/pkg/suggest"
)

// Server handles the IPC for prefix completions. It only ever reads the
// active snapshot through the handle, so requests run lock-free while builds
// and installs proceed in the background.
type Server struct {
	handle *suggest.Handle
	cfg    config.ServerConfig
	m      *metrics.Metrics
	dec    *msgpack.Decoder
	enc    *msgpack.Encoder
}

// NewServer creates a completion server reading requests from r and writing
// responses to w. Metrics may be nil.
func NewServer(handle *suggest.Handle, cfg config.ServerConfig, m *metrics.Metrics, r io.Reader, w io.Writer) *Server {
	return &Server{
		handle: handle,
		cfg:    cfg,
		m:      m,
		dec:    msgpack.NewDecoder(bufio.NewReader(r)),
		enc:    msgpack.NewEncoder(w),
	}
}

// NewStdioServer creates a server on stdin/stdout, the deployment mode used
// by editor and sidecar integrations.
func NewStdioServer(handle *suggest.Handle, cfg config.ServerConfig, m *metrics.Metrics) *Server {
	return NewServer(handle, cfg, m, os.Stdin, os.Stdout)
}

// Start processes requests until the input stream closes or ctx is
// cancelled. Cancellation is observed between messages.
func (s *Server) Start(ctx context.Context) error {
	log.Debug("Starting IPC server")
	s.send(HealthResponse{Status: "ready"})

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var req Request
		if err := s.dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				log.Debug("Client disconnected")
				return nil
			}
			log.Errorf("Decoding request: %v", err)
			s.sendError("", "invalid msgpack request", 400)
			continue
		}
		s.handleRequest(req)
	}
}

func (s *Server) handleRequest(req Request) {
	switch req.Cmd {
	case "complete":
		s.handleComplete(req)
	case "stats":
		s.handleStats(req)
	case "health":
		s.send(HealthResponse{ID: req.ID, Status: "ok"})
	default:
		s.sendError(req.ID, fmt.Sprintf("unknown command: %s", req.Cmd), 400)
	}
}

// handleComplete validates the request, walks the active snapshot, and
// answers with the precomputed shortlist, optionally reranked by the
// request's boost map.
func (s *Server) handleComplete(req Request) {
	if len(req.Prefix) > s.cfg.MaxPrefix {
		s.count("invalid")
		s.sendError(req.ID, fmt.Sprintf("prefix exceeds maximum length of %d", s.cfg.MaxPrefix), 400)
		return
	}

	limit := req.Limit
	if limit <= 0 || limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	snap, release, err := s.handle.Acquire()
	if err != nil {
		s.count("not_ready")
		s.sendError(req.ID, "no snapshot loaded yet", 503)
		return
	}
	defer release()

	start := time.Now()
	results := snap.Query(suggest.NormalizeTerm(req.Prefix), limit)
	if len(req.Boosts) > 0 {
		results = suggest.Rerank(results, req.Boosts)
	}
	elapsed := time.Since(start)

	entries := make([]CompletionEntry, len(results))
	for i, c := range results {
		entries[i] = CompletionEntry{Term: c.Term, Score: c.Score}
	}

	if s.m != nil {
		s.m.QueryDuration.Observe(elapsed.Seconds())
		s.m.QueryResultCount.Observe(float64(len(entries)))
	}
	if len(entries) == 0 {
		s.count("empty")
	} else {
		s.count("ok")
	}

	s.send(CompleteResponse{
		ID:          req.ID,
		Completions: entries,
		Count:       len(entries),
		Version:     snap.Version(),
		TimeTaken:   elapsed.Microseconds(),
	})
}

func (s *Server) handleStats(req Request) {
	snap, release, err := s.handle.Acquire()
	if err != nil {
		s.send(StatsResponse{ID: req.ID, Status: "not_ready"})
		return
	}
	defer release()
	s.send(StatsResponse{
		ID:        req.ID,
		Status:    "ok",
		Version:   snap.Version(),
		TermCount: snap.TermCount(),
		NodeCount: snap.NodeCount(),
		TopK:      snap.TopK(),
	})
}

func (s *Server) send(response interface{}) {
	if err := s.enc.Encode(response); err != nil {
		log.Errorf("Encoding response: %v", err)
	}
}

func (s *Server) sendError(id, message string, code int) {
	s.send(ErrorResponse{ID: id, Error: message, Code: code})
}

func (s *Server) count(outcome string) {
	if s.m != nil {
		s.m.QueriesTotal.WithLabelValues(outcome).Inc()
	}
}
