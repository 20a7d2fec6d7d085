package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/catastroguard/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxClassifyBody bounds the request body accepted by the classify endpoint.
const maxClassifyBody = 64 << 10

// Snapshot is the read side of the in-memory alert and news store.
type Snapshot interface {
	QueryAlerts(f domain.AlertFilter) []domain.ClassifiedAlert
	QueryNews(f domain.NewsFilter) []domain.NewsRecord
}

// Server exposes health, readiness, metrics, and the read API.
type Server struct {
	httpServer *http.Server
	snapshot   Snapshot
	risker     domain.Risker
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and,
// when snapshot and risker are set, the /api/v1 routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, snapshot Snapshot, risker domain.Risker, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		snapshot: snapshot,
		risker:   risker,
		logger:   logger,
	}

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(ready))
	r.Handle("/metrics", promhttp.Handler())

	// Processes without a snapshot, such as the collector, serve only the
	// operational endpoints.
	if snapshot != nil && risker != nil {
		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/alerts", s.handleAlerts)
			r.Get("/news", s.handleNews)
			r.Post("/classify", s.handleClassify)
		})
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type listResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	f, err := parseAlertFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	alerts := s.snapshot.QueryAlerts(f)
	writeJSON(w, http.StatusOK, listResponse[domain.ClassifiedAlert]{Data: alerts, Count: len(alerts)})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	news := s.snapshot.QueryNews(domain.NewsFilter{Keyword: r.URL.Query().Get("keyword")})
	writeJSON(w, http.StatusOK, listResponse[domain.NewsRecord]{Data: news, Count: len(news)})
}

type classifyRequest struct {
	Description *string `json:"description"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxClassifyBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("malformed request body"))
		return
	}
	if req.Description == nil {
		writeError(w, http.StatusBadRequest, errors.New("description is required"))
		return
	}

	result := s.risker.Classify(*req.Description)
	s.logger.Debug("classified description", "label", result.Label, "request_id", middleware.GetReqID(r.Context()))
	writeJSON(w, http.StatusOK, result)
}

// parseAlertFilter reads the alert query parameters. Unknown min_risk values
// are rejected; the text criteria accept anything.
func parseAlertFilter(r *http.Request) (domain.AlertFilter, error) {
	q := r.URL.Query()
	f := domain.AlertFilter{
		Location: q.Get("location"),
		Event:    q.Get("event"),
		Severity: q.Get("severity"),
	}
	if raw := strings.TrimSpace(q.Get("min_risk")); raw != "" {
		label, err := domain.ParseRiskLabel(raw)
		if err != nil {
			return f, errors.New("invalid min_risk: " + raw)
		}
		f.MinRisk = label
	}
	return f, nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
