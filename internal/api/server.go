// internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-driver/internal/registry"
	"github.com/tamzrod/modbus-driver/internal/status"
	"github.com/tamzrod/modbus-driver/internal/telemetry"
)

// Server exposes metrics and the latest telemetry snapshot over HTTP.
type Server struct {
	reg *registry.Registry
	log zerolog.Logger

	mu     sync.RWMutex
	latest *telemetry.Snapshot

	srv *http.Server
	ln  net.Listener
}

func NewServer(reg *registry.Registry, log zerolog.Logger) *Server {
	return &Server{reg: reg, log: log}
}

// Handler returns the router without starting a listener.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/variables", s.handleVariables).Methods(http.MethodGet)
	v1.HandleFunc("/telemetry", s.handleTelemetry).Methods(http.MethodGet)
	return r
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.srv = &http.Server{Handler: s.Handler()}

	s.log.Info().Str("listen", ln.Addr().String()).Msg("api server listening")

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("api server stopped")
		}
	}()
	return nil
}

// Addr is the bound address once started.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}

// Update stores the most recent snapshot.
func (s *Server) Update(snap telemetry.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &snap
}

// ---- handlers ----

type healthResponse struct {
	Status string `json:"status"`
	status.Snapshot
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var h status.Snapshot
	if s.latest != nil {
		h = s.latest.Health
	}
	code := http.StatusOK
	if h.Health == status.HealthError {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, healthResponse{Status: status.HealthName(h.Health), Snapshot: h})
}

type variableResponse struct {
	Name     string             `json:"name"`
	Register uint16             `json:"register"`
	Type     registry.ValueType `json:"type"`
}

func (s *Server) handleVariables(w http.ResponseWriter, r *http.Request) {
	out := make([]variableResponse, 0, s.reg.Len())
	for _, e := range s.reg.Entries() {
		out = append(out, variableResponse{Name: e.Name, Register: e.Register, Type: e.Type})
	}
	respondJSON(w, http.StatusOK, out)
}

type telemetryResponse struct {
	telemetry.Snapshot
	Error string `json:"error,omitempty"`
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == nil {
		respondError(w, http.StatusServiceUnavailable, "no telemetry yet")
		return
	}
	resp := telemetryResponse{Snapshot: *s.latest}
	if resp.Err != nil {
		resp.Error = resp.Err.Error()
	}
	respondJSON(w, http.StatusOK, resp)
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, code int, msg string) {
	respondJSON(w, code, map[string]string{"error": msg})
}
