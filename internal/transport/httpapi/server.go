// Package httpapi serves the JSON request path, health and metrics, and the
// loopback-only admin endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/chain"
)

// Chain is the part of *chain.Chain the HTTP surface needs.
type Chain interface {
	Submit(ctx context.Context, req protocol.ExecRequest) (protocol.ExecResponse, uint64, error)
	RequestDeploy(ctx context.Context, comp protocol.Component) (uint64, error)
	RequestReset(ctx context.Context) (uint64, error)
	RequestAdvance(ctx context.Context, blocks uint64) (uint64, error)
	RequestSnapshot(ctx context.Context) (uint64, error)
	Height() uint64
	Metrics() chain.ChainMetrics
}

type Options struct {
	EnableAdmin bool
	Validator   *protocol.Validator
	Logger      *log.Logger
	// ExtraMetrics appends backend-specific series (index queues) to /metrics.
	ExtraMetrics func(w io.Writer)
	// MaxBodyBytes caps /v1/exec request bodies.
	MaxBodyBytes int64
}

type Server struct {
	chain Chain
	opts  Options
}

func NewServer(c Chain, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 64 * 1024
	}
	return &Server{chain: c, opts: opts}
}

// Register installs every route on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/v1/exec", s.handleExec)
	mux.HandleFunc("/v1/height", s.handleHeight)

	if !s.opts.EnableAdmin {
		s.printf("admin endpoints disabled")
		return
	}
	mux.HandleFunc("/admin/v1/state", s.loopbackOnly(http.MethodGet, s.handleState))
	mux.HandleFunc("/admin/v1/deploy", s.loopbackOnly(http.MethodPost, s.handleDeploy))
	mux.HandleFunc("/admin/v1/reset", s.loopbackOnly(http.MethodPost, s.handleReset))
	mux.HandleFunc("/admin/v1/advance", s.loopbackOnly(http.MethodPost, s.handleAdvance))
	mux.HandleFunc("/admin/v1/snapshot", s.loopbackOnly(http.MethodPost, s.handleSnapshot))
}

func (s *Server) handleExec(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, s.opts.MaxBodyBytes+1))
	if err != nil {
		http.Error(rw, "read body", http.StatusBadRequest)
		return
	}
	if int64(len(body)) > s.opts.MaxBodyBytes {
		http.Error(rw, "body too large", http.StatusRequestEntityTooLarge)
		return
	}

	var msg protocol.ExecMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		writeJSON(rw, http.StatusOK, protocol.NewResult("", s.chain.Height(), protocol.Fail(protocol.CodeInvalidArgument)))
		return
	}
	if msg.Type == "" {
		// The HTTP path accepts bare request bodies.
		msg.Type = protocol.TypeExec
		if b, err := json.Marshal(msg); err == nil {
			body = b
		}
	}
	if s.opts.Validator != nil {
		if err := s.opts.Validator.ValidateExec(body); err != nil {
			writeJSON(rw, http.StatusOK, protocol.NewResult(msg.ID, s.chain.Height(), protocol.Fail(protocol.CodeInvalidArgument)))
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	resp, height, err := s.chain.Submit(ctx, msg.Request())
	if err != nil {
		writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(rw, http.StatusOK, protocol.NewResult(msg.ID, height, resp))
}

func (s *Server) handleHeight(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	m := s.chain.Metrics()
	writeJSON(rw, http.StatusOK, map[string]any{"chain_id": m.ChainID, "height": s.chain.Height()})
}

func (s *Server) handleState(rw http.ResponseWriter, r *http.Request) {
	m := s.chain.Metrics()
	writeJSON(rw, http.StatusOK, struct {
		ChainID string             `json:"chain_id"`
		Height  uint64             `json:"height"`
		Metrics chain.ChainMetrics `json:"metrics"`
	}{ChainID: m.ChainID, Height: s.chain.Height(), Metrics: m})
}

func (s *Server) handleDeploy(rw http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("component"))
	if _, ok := protocol.DeployTargets(name); !ok {
		writeJSON(rw, http.StatusBadRequest, map[string]any{"ok": false, "error": "unknown component"})
		return
	}
	comp := protocol.Component(name)
	s.admin(rw, r, func(ctx context.Context) (uint64, error) { return s.chain.RequestDeploy(ctx, comp) })
}

func (s *Server) handleReset(rw http.ResponseWriter, r *http.Request) {
	s.admin(rw, r, s.chain.RequestReset)
}

func (s *Server) handleAdvance(rw http.ResponseWriter, r *http.Request) {
	blocks := uint64(1)
	if v := strings.TrimSpace(r.URL.Query().Get("blocks")); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeJSON(rw, http.StatusBadRequest, map[string]any{"ok": false, "error": "bad blocks"})
			return
		}
		blocks = n
	}
	s.admin(rw, r, func(ctx context.Context) (uint64, error) { return s.chain.RequestAdvance(ctx, blocks) })
}

func (s *Server) handleSnapshot(rw http.ResponseWriter, r *http.Request) {
	s.admin(rw, r, s.chain.RequestSnapshot)
}

func (s *Server) admin(rw http.ResponseWriter, r *http.Request, fn func(ctx context.Context) (uint64, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	h, err := fn(ctx)
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, chain.ErrUnknownComponent) || errors.Is(err, chain.ErrHeightOverflow) {
			status = http.StatusBadRequest
		}
		writeJSON(rw, status, map[string]any{"ok": false, "height": h, "error": err.Error()})
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "height": h})
}

func (s *Server) handleMetrics(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
	m := s.chain.Metrics()
	id := m.ChainID

	// Minimal Prometheus exposition format.
	fmt.Fprintf(rw, "# HELP procure_chain_height Current block height.\n")
	fmt.Fprintf(rw, "# TYPE procure_chain_height gauge\n")
	fmt.Fprintf(rw, "procure_chain_height{chain=%q} %d\n", id, s.chain.Height())

	fmt.Fprintf(rw, "# HELP procure_requests_total Executed requests.\n")
	fmt.Fprintf(rw, "# TYPE procure_requests_total counter\n")
	fmt.Fprintf(rw, "procure_requests_total{chain=%q} %d\n", id, m.RequestsTotal)

	fmt.Fprintf(rw, "# HELP procure_request_failures_total Failed requests by component and code.\n")
	fmt.Fprintf(rw, "# TYPE procure_request_failures_total counter\n")
	for _, f := range m.Failures {
		fmt.Fprintf(rw, "procure_request_failures_total{chain=%q,component=%q,code=\"%d\"} %d\n", id, f.Component, f.Code, f.Count)
	}

	fmt.Fprintf(rw, "# HELP procure_reset_total Chain resets.\n")
	fmt.Fprintf(rw, "# TYPE procure_reset_total counter\n")
	fmt.Fprintf(rw, "procure_reset_total{chain=%q} %d\n", id, m.ResetTotal)

	fmt.Fprintf(rw, "# HELP procure_component_deployed Whether a component is deployed.\n")
	fmt.Fprintf(rw, "# TYPE procure_component_deployed gauge\n")
	for _, c := range m.Components {
		fmt.Fprintf(rw, "procure_component_deployed{chain=%q,component=%q} %d\n", id, c.Name, boolInt(c.Deployed))
	}
	fmt.Fprintf(rw, "# HELP procure_component_records Records held by a component.\n")
	fmt.Fprintf(rw, "# TYPE procure_component_records gauge\n")
	for _, c := range m.Components {
		fmt.Fprintf(rw, "procure_component_records{chain=%q,component=%q} %d\n", id, c.Name, c.Records)
	}

	fmt.Fprintf(rw, "# HELP procure_queue_depth Channel backlog depth.\n")
	fmt.Fprintf(rw, "# TYPE procure_queue_depth gauge\n")
	fmt.Fprintf(rw, "procure_queue_depth{chain=%q,queue=%q} %d\n", id, "inbox", m.QueueDepths.Inbox)
	fmt.Fprintf(rw, "procure_queue_depth{chain=%q,queue=%q} %d\n", id, "admin", m.QueueDepths.Admin)

	fmt.Fprintf(rw, "# HELP procure_exec_ms Last request execution time in milliseconds.\n")
	fmt.Fprintf(rw, "# TYPE procure_exec_ms gauge\n")
	fmt.Fprintf(rw, "procure_exec_ms{chain=%q} %.3f\n", id, m.LastExecMS)

	if s.opts.ExtraMetrics != nil {
		s.opts.ExtraMetrics(rw)
	}
}

func (s *Server) loopbackOnly(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !IsLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		h(rw, r)
	}
}

func IsLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *Server) printf(format string, args ...any) {
	if s.opts.Logger != nil {
		s.opts.Logger.Printf(format, args...)
	}
}
