package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/efebarandurmaz/roadnet/internal/graph"
	"github.com/efebarandurmaz/roadnet/internal/metrics"
	"github.com/efebarandurmaz/roadnet/internal/observability"
	"github.com/efebarandurmaz/roadnet/internal/report"
	"github.com/efebarandurmaz/roadnet/internal/server"
)

// Config holds dashboard server configuration.
type Config struct {
	ListenAddr   string
	PingInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{ListenAddr: ":8080", PingInterval: 30 * time.Second}
}

// Server is the dashboard HTTP server.
type Server struct {
	config  *Config
	src     metrics.Source
	engine  *metrics.Engine
	store   *Store
	hub     *Hub
	emitter *Emitter
	metrics *observability.Metrics
	health  *server.HealthServer
	server  *http.Server

	refreshMu sync.Mutex
}

// NewServer wires the routes. health and m may be nil.
func NewServer(config *Config, src metrics.Source, engine *metrics.Engine, store *Store, hub *Hub, m *observability.Metrics, health *server.HealthServer) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if m == nil {
		m = observability.NewMetrics()
	}
	s := &Server{
		config:  config,
		src:     src,
		engine:  engine,
		store:   store,
		hub:     hub,
		emitter: NewEmitter(store, hub),
		metrics: m,
		health:  health,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/degrees", s.handleDegrees)
	mux.HandleFunc("GET /api/top", s.handleTop)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/refreshes", s.handleRefreshes)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/events", s.handleSSE)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.Handle("GET /metrics", m.Handler())
	if health != nil {
		mux.Handle("GET /healthz", health.Handler())
		mux.Handle("GET /readyz", health.Handler())
		mux.Handle("GET /livez", health.Handler())
	}

	s.server = &http.Server{
		Addr:        config.ListenAddr,
		Handler:     corsMiddleware(loggingMiddleware(mux)),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	return s
}

// Handler exposes the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving the dashboard.
func (s *Server) Start() error {
	slog.Info("Starting dashboard server", "addr", s.config.ListenAddr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("dashboard server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	slog.Info("Stopping dashboard server")
	return s.server.Shutdown(ctx)
}

// Refresh recomputes the report from the graph store. Concurrent calls are
// serialized. On failure the previous report stays current.
func (s *Server) Refresh(ctx context.Context) (*metrics.Report, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	rec := RefreshRecord{ID: uuid.NewString(), StartedAt: time.Now()}
	snap, rep, err := s.engine.ComputeSnapshot(ctx, s.src)
	rec.Duration = time.Since(rec.StartedAt)
	s.metrics.ObserveCompute(rec.Duration, err)
	if err != nil {
		slog.Error("Report refresh failed", "refresh_id", rec.ID, "error", err)
		s.emitter.Failed(rec, err)
		return nil, err
	}

	rep.Publish(s.metrics)
	s.emitter.Refreshed(rec, snap, rep)
	slog.Info("Report refreshed",
		"refresh_id", rec.ID,
		"intersections", rep.Summary.TotalNodes,
		"roads", rep.Summary.TotalEdges,
		"duration", rec.Duration,
	)
	return rep, nil
}

// current writes 503 and returns false before the first successful refresh.
func (s *Server) current(w http.ResponseWriter) (*metrics.Snapshot, *metrics.Report, bool) {
	snap, rep, ok := s.store.Current()
	if !ok {
		respondError(w, http.StatusServiceUnavailable, "no report computed yet")
	}
	return snap, rep, ok
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	_, rep, ok := s.current(w)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.WriteHTML(w, rep); err != nil {
		slog.Error("Failed to render dashboard", "error", err)
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if _, rep, ok := s.current(w); ok {
		respondJSON(w, http.StatusOK, rep)
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if _, rep, ok := s.current(w); ok {
		respondJSON(w, http.StatusOK, rep.Summary)
	}
}

func (s *Server) handleDegrees(w http.ResponseWriter, r *http.Request) {
	if _, rep, ok := s.current(w); ok {
		respondJSON(w, http.StatusOK, rep.Histogram)
	}
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if _, rep, ok := s.current(w); ok {
		respondJSON(w, http.StatusOK, rep.Categories)
	}
}

// handleTop handles GET /api/top?k=N. Without k the report's ranking is
// returned; with k the ranking is recomputed from the stored snapshot.
func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	snap, rep, ok := s.current(w)
	if !ok {
		return
	}
	raw := r.URL.Query().Get("k")
	if raw == "" {
		respondJSON(w, http.StatusOK, rep.TopNodes)
		return
	}
	k, err := strconv.Atoi(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("k must be an integer, got %q", raw))
		return
	}
	top, err := metrics.TopK(snap.Degrees, k)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, top)
}

func (s *Server) handleRefreshes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.store.History())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	rep, err := s.Refresh(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, graph.ErrStoreUnavailable) {
			status = http.StatusServiceUnavailable
		}
		respondError(w, status, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, rep.Summary)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		s.health.ServeHealth(w, r)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleSSE streams refresh events until the client disconnects.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	client, err := NewClient(w)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	s.hub.Register(client)
	defer s.hub.Unregister(client)
	slog.Debug("SSE client connected", "clients", s.hub.ClientCount())

	hello, _ := json.Marshal(&Event{Type: EventConnected, Timestamp: time.Now()})
	client.send(EventConnected, hello)

	interval := s.config.PingInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			slog.Debug("SSE client disconnected")
			return
		case msg := <-client.events:
			client.send(msg.eventType, msg.data)
		case <-ticker.C:
			client.ping()
		}
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// corsMiddleware adds CORS headers for local development
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}
