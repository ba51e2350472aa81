// Package server exposes the daemon over HTTP.
//
// Routes:
//
//	GET    /health                      liveness
//	GET    /api/v1/status               counts and the most recent event
//	GET    /api/v1/reports/summary      totals by project, language and day
//	GET    /api/v1/reports/sessions     reconstructed sessions
//	GET    /api/v1/reports/activity     hour-of-day breakdown
//	POST   /api/v1/events               record one event
//	POST   /api/v1/events/batch         record up to 100 events
//	GET    /api/v1/watch                list watched roots
//	POST   /api/v1/watch                watch a root
//	DELETE /api/v1/watch                stop watching a root
//	GET    /ws                          live feed of recorded events
//	GET    /metrics                     Prometheus metrics
//
// Report endpoints accept from and to (RFC3339 or YYYY-MM-DD) and project
// query parameters. The range is half-open; a date-only to includes that
// whole day. The range defaults to the last seven days.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/timeforged/timeforged/internal/activity"
	"github.com/timeforged/timeforged/internal/metrics"
	"github.com/timeforged/timeforged/internal/report"
	"github.com/timeforged/timeforged/internal/store"
	"github.com/timeforged/timeforged/internal/watchlist"
)

// EventStore is the subset of the event store the API uses.
type EventStore interface {
	InsertEvent(ctx context.Context, ev *activity.Event) (int64, error)
	InsertBatch(ctx context.Context, events []*activity.Event) (*store.BatchResult, error)
	CountEvents(ctx context.Context, userID uuid.UUID) (int64, error)
	CountUsers(ctx context.Context) (int, error)
	LatestEvent(ctx context.Context, userID uuid.UUID) (*activity.Event, error)
}

// WatchController manages the persisted watch list and the live watches.
type WatchController interface {
	List() ([]watchlist.Entry, error)
	Watch(path string) (string, error)
	Unwatch(path string) (string, error)
	// Root returns the watched root containing path, if any.
	Root(path string) (string, bool)
}

// CaptureStats reports on the file capture layer. *watcher.Bridge
// implements it.
type CaptureStats interface {
	WatchedDirs() int
	Dropped() uint64
}

// Config holds server configuration.
type Config struct {
	// Addr is the listen address (default 127.0.0.1:6175).
	Addr string

	Store   EventStore
	Reports *report.Service
	Watch   WatchController
	Capture CaptureStats

	// UserID owns events recorded through the API.
	UserID   uuid.UUID
	Username string

	// Machine is stamped on API events that do not name one.
	Machine string

	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr:   "127.0.0.1:6175",
		Logger: log.New(os.Stderr, "[server] ", log.LstdFlags),
	}
}

// Server serves the HTTP API and the live WebSocket feed.
type Server struct {
	cfg      *Config
	listener net.Listener
	server   *http.Server

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast chan Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started time.Time
	logger  *log.Logger
}

// New creates a Server. Start must be called to begin serving.
func New(cfg *Config) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultConfig().Addr
	}
	if cfg.Logger == nil {
		cfg.Logger = DefaultConfig().Logger
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:       cfg,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    cfg.Logger,
	}
}

// Handler returns the route multiplexer.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/reports/summary", s.handleSummary)
	mux.HandleFunc("GET /api/v1/reports/sessions", s.handleSessions)
	mux.HandleFunc("GET /api/v1/reports/activity", s.handleActivity)
	mux.HandleFunc("POST /api/v1/events", s.handleCreateEvent)
	mux.HandleFunc("POST /api/v1/events/batch", s.handleCreateBatch)
	mux.HandleFunc("GET /api/v1/watch", s.handleListWatch)
	mux.HandleFunc("POST /api/v1/watch", s.handleAddWatch)
	mux.HandleFunc("DELETE /api/v1/watch", s.handleRemoveWatch)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln
	s.started = time.Now()

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop closes client connections and shuts the server down.
func (s *Server) Stop() error {
	s.logger.Println("Stopping server")
	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	s.wg.Wait()
	s.logger.Println("Server stopped")
	return nil
}

// GetAddr returns the listening address.
func (s *Server) GetAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr
}

// ClientCount returns the number of connected WebSocket clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError sends {"error": msg}.
func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
