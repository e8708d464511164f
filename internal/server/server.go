// Package server exposes a running syncer over HTTP: health, plan and
// sync endpoints plus a WebSocket stream of applied booking changes.
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/syncals/syncals"
	"github.com/syncals/syncals/internal/cmd/output"
	"github.com/syncals/syncals/internal/server/response"
	ws "github.com/syncals/syncals/internal/server/websocket"
	"github.com/syncals/syncals/pkg/errors"
	"github.com/syncals/syncals/pkg/events"
	"github.com/syncals/syncals/pkg/logging"
)

// Config holds server configuration.
type Config struct {
	Addr       string
	PathPrefix string
}

// DefaultPathPrefix prefixes the API routes.
const DefaultPathPrefix = "/api/v1"

const shutdownTimeout = 5 * time.Second

// RunStatus describes the last sync triggered through the API.
type RunStatus struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Summary    string    `json:"summary,omitempty"`
	Added      int       `json:"added"`
	Deleted    int       `json:"deleted"`
	Failures   []string  `json:"failures,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	syncer    syncals.Syncer
	hub       *ws.Hub
	upgrader  websocket.Upgrader
	logger    *zerolog.Logger
	config    Config
	startTime time.Time

	hubOnce sync.Once
	running atomic.Int32

	mu   sync.RWMutex
	last *RunStatus
}

// New creates a server for s. Applied changes of every sync, scheduled or
// requested, are broadcast to WebSocket clients.
func New(s syncals.Syncer, cfg Config, logger *zerolog.Logger) *Server {
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = DefaultPathPrefix
	}
	srv := &Server{
		syncer: s,
		hub:    ws.NewHub(logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:    logger,
		config:    cfg,
		startTime: time.Now(),
	}

	s.OnAdded(func(b events.Record) {
		srv.hub.Broadcast(ws.Message{Type: ws.TypeBookingAdded, Data: output.NewChange(b)})
	})
	s.OnDeleted(func(b events.Record) {
		srv.hub.Broadcast(ws.Message{Type: ws.TypeBookingDeleted, Data: output.NewChange(b)})
	})
	return srv
}

// Handler returns the HTTP handler. The WebSocket hub runs until ctx is
// done.
func (s *Server) Handler(ctx context.Context) http.Handler {
	s.hubOnce.Do(func() { go s.hub.Run(ctx) })

	prefix := s.config.PathPrefix
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET "+prefix+"/plan", s.handlePlan)
	mux.HandleFunc("POST "+prefix+"/sync", s.handleSync)
	mux.HandleFunc("GET "+prefix+"/status", s.handleStatus)
	mux.HandleFunc("GET "+prefix+"/updates/ws", s.handleWebSocket)
	return s.logRequests(mux)
}

// Run serves on the configured address until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.config.Addr).Msg("HTTP server listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

// Clients returns the number of connected WebSocket clients.
func (s *Server) Clients() int {
	return s.hub.ClientCount()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status":  "ok",
		"uptime":  time.Since(s.startTime).Round(time.Second).String(),
		"clients": s.hub.ClientCount(),
		"syncing": s.running.Load() > 0,
	})
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	ctx := logging.WithLogger(r.Context(), s.logger)
	res, err := s.syncer.Plan(ctx)
	if err != nil {
		response.Err(w, err)
		return
	}
	response.OK(w, output.NewPlan(res))
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	s.running.Add(1)
	defer s.running.Add(-1)

	// Sync adopts the run id, so status and journal agree.
	runID := uuid.NewString()
	ctx := logging.WithRun(logging.WithLogger(r.Context(), s.logger), runID)
	status := &RunStatus{RunID: runID, StartedAt: time.Now().UTC()}

	run, err := s.syncer.Sync(ctx)
	status.FinishedAt = time.Now().UTC()
	if errors.IsConflict(err) {
		response.Err(w, err)
		return
	}
	if err != nil {
		status.Error = err.Error()
		s.record(status, ws.TypeSyncFailed)
		response.Err(w, err)
		return
	}

	status.Summary = run.Result.Summary()
	status.Added = run.Report.Added
	status.Deleted = run.Report.Deleted
	for _, f := range run.Report.Failures {
		status.Failures = append(status.Failures, f.Error())
	}
	s.record(status, ws.TypeSyncCompleted)
	response.OK(w, status)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()
	if last == nil {
		response.NotFound(w, "no sync has run", "")
		return
	}
	response.OK(w, last)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		s.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	client := ws.NewClient(uuid.NewString(), s.hub, conn)
	s.hub.Register(client)
	go client.Serve()
}

func (s *Server) record(status *RunStatus, msgType string) {
	s.mu.Lock()
	s.last = status
	s.mu.Unlock()
	s.hub.Broadcast(ws.Message{Type: msgType, Data: status})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
