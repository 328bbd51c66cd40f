// Package server exposes the harness's run history and live progress over
// HTTP: JSON endpoints for stored runs and a WebSocket feed of step results.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/kensahq/kensa/internal/logging"
	"github.com/kensahq/kensa/internal/report"
)

// Config holds the server's runtime options.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string
}

// Server is the HTTP + WebSocket surface over the run history.
type Server struct {
	cfg      Config
	history  *report.History
	router   chi.Router
	upgrader websocket.Upgrader
	logger   logging.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// New creates a Server over an open History.
func New(history *report.History, cfg Config, logger logging.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		history: history,
		logger:  logger.With(logging.Field{Key: "component", Value: "server"}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Local viewer only; tighten if this ever leaves localhost.
				return true
			},
		},
		clients: map[*websocket.Conn]struct{}{},
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/api/runs", s.handleListRuns)
	r.Get("/api/runs/{id}", s.handleGetRun)
	r.Get("/ws", s.handleWS)
	r.Get("/docs/*", httpSwagger.Handler())
	s.router = r

	return s
}

// Handler returns the router for mounting in tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks serving the API on the configured address.
func (s *Server) ListenAndServe() error {
	s.logger.Info("results server listening", logging.Field{Key: "addr", Value: s.cfg.Addr})
	return http.ListenAndServe(s.cfg.Addr, s.router)
}

// handleHealth godoc
// @Summary Liveness probe
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListRuns godoc
// @Summary List stored runs, newest first
// @Produce json
// @Success 200 {array} report.Run
// @Router /api/runs [get]
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.history.ListRuns(r.Context())
	if err != nil {
		s.logger.Error("listing runs", logging.Field{Key: "error", Value: err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "listing runs failed"})
		return
	}
	if runs == nil {
		runs = []report.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleGetRun godoc
// @Summary Fetch one run with its results
// @Produce json
// @Param id path string true "run id"
// @Success 200 {object} report.Run
// @Failure 404 {object} map[string]string
// @Router /api/runs/{id} [get]
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.history.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, report.ErrRunNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
			return
		}
		s.logger.Error("fetching run",
			logging.Field{Key: "run_id", Value: id},
			logging.Field{Key: "error", Value: err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "fetching run failed"})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.Field{Key: "error", Value: err.Error()})
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	// Reader goroutine exists only to notice the client going away.
	go func() {
		defer s.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Publish broadcasts a step result to every connected progress client.
// Intended as a Harness OnResult listener.
func (s *Server) Publish(result report.Result) {
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}

	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for c := range s.clients {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.drop(c)
		}
	}
}

func (s *Server) drop(conn *websocket.Conn) {
	s.mu.Lock()
	if _, ok := s.clients[conn]; ok {
		delete(s.clients, conn)
		conn.Close()
	}
	s.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
