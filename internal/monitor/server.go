package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/conformer/internal/logging"
	"github.com/aretw0/conformer/pkg/domain"
	"github.com/aretw0/conformer/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// Server serves health, metrics, reports and the live event stream.
type Server struct {
	Store   ports.ReportStore
	Metrics *Metrics
	Hub     *Hub
	Logger  *slog.Logger

	mu     sync.RWMutex
	latest string
}

// Option configures a Server.
type Option func(*Server)

// WithStore sets the report store served under /reports.
func WithStore(store ports.ReportStore) Option {
	return func(s *Server) {
		s.Store = store
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// New creates a Server with fresh metrics and hub.
func New(opts ...Option) *Server {
	s := &Server{Logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.Metrics = NewMetrics()
	s.Hub = NewHub(s.Logger)
	return s
}

// Hooks returns the hooks that feed metrics and the event stream.
func (s *Server) Hooks() domain.LifecycleHooks {
	return s.Metrics.Hooks().Merge(s.Hub.Hooks())
}

// Record stores a finished report and marks it as the latest run.
func (s *Server) Record(ctx context.Context, report *domain.RunReport) error {
	if s.Store != nil {
		if err := s.Store.Save(ctx, report); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.latest = report.ID
	s.mu.Unlock()
	return nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "clients": s.Hub.Clients()})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}))
	r.Get("/reports", s.listReports)
	r.Get("/reports/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.getReport(w, r, chi.URLParam(r, "id"))
	})
	r.Get("/report", func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		id := s.latest
		s.mu.RUnlock()
		s.getReport(w, r, id)
	})
	r.Method(http.MethodGet, "/events", s.Hub)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		writeJSON(w, http.StatusOK, []string{})
		return
	}
	ids, err := s.Store.List(r.Context())
	if err != nil {
		s.Logger.Error("failed to list reports", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request, id string) {
	if s.Store == nil || id == "" {
		http.Error(w, domain.ErrReportNotFound.Error(), http.StatusNotFound)
		return
	}
	report, err := s.Store.Load(r.Context(), id)
	if errors.Is(err, domain.ErrReportNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		s.Logger.Error("failed to load report", "id", id, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ListenAndServe binds addr and serves until ctx is done. ready, when not
// nil, receives the bound address once the listener is up.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready chan<- string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.Hub.Run(hubCtx)

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.Logger.Info("monitor listening", "addr", ln.Addr().String())
	if ready != nil {
		ready <- ln.Addr().String()
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
