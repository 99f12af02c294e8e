package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/JakeFAU/newsfeed-curator/internal/metrics"
	"github.com/JakeFAU/newsfeed-curator/internal/news"
	"github.com/JakeFAU/newsfeed-curator/internal/pipeline"
	"github.com/JakeFAU/newsfeed-curator/internal/publisher"
)

// CycleRunner starts pipeline cycles and reports their progress.
type CycleRunner interface {
	Start(ctx context.Context) error
	State() pipeline.State
	LastReport() *pipeline.CycleReport
}

// Previewer dry-runs a publish.
type Previewer interface {
	Preview(ctx context.Context, opts publisher.Options) (publisher.Preview, error)
}

// Pinger checks a downstream dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds server options.
type Config struct {
	APIKey         string
	RequestTimeout time.Duration
}

// Server wires HTTP handlers to the orchestrator, store and publisher.
type Server struct {
	router    chi.Router
	runner    CycleRunner
	reader    news.ArticleReader
	previewer Previewer
	pinger    Pinger
	cycleCtx  context.Context
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes. Cycles triggered
// over HTTP run under cycleCtx, not the request context.
func NewServer(
	cycleCtx context.Context,
	cfg Config,
	runner CycleRunner,
	reader news.ArticleReader,
	previewer Previewer,
	pinger Pinger,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	s := &Server{
		runner:    runner,
		reader:    reader,
		previewer: previewer,
		pinger:    pinger,
		cycleCtx:  cycleCtx,
		logger:    logger.Named("api"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.APIKey != "" {
			r.Use(apiKeyMiddleware(cfg.APIKey))
		}
		r.Post("/cycles", s.startCycle)
		r.Get("/status", s.status)
		r.Get("/articles/today", s.todaysArticles)
		r.Get("/articles/stats", s.articleStats)
		r.Post("/publish/preview", s.previewPublish)
	})

	s.router = r
	return s
}

// Handler returns the traced router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "curator.api")
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			s.writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) startCycle(w http.ResponseWriter, _ *http.Request) {
	err := s.runner.Start(s.cycleCtx)
	switch {
	case errors.Is(err, pipeline.ErrBusy):
		s.writeJSON(w, http.StatusConflict, map[string]string{
			"error": err.Error(),
			"state": string(s.runner.State()),
		})
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	}
}

type statusResponse struct {
	State     pipeline.State        `json:"state"`
	LastCycle *pipeline.CycleReport `json:"last_cycle,omitempty"`
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, statusResponse{
		State:     s.runner.State(),
		LastCycle: s.runner.LastReport(),
	})
}

func (s *Server) todaysArticles(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	articles, err := s.reader.TodaysArticles(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if articles == nil {
		articles = []news.PersistedArticle{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"count": len(articles), "articles": articles})
}

func (s *Server) articleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.reader.ArticleStats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if stats == nil {
		stats = []news.CategoryCount{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"categories": stats})
}

func (s *Server) previewPublish(w http.ResponseWriter, r *http.Request) {
	opts := publisher.DefaultOptions()
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	preview, err := s.previewer.Preview(r.Context(), opts)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, preview)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec), zap.String("path", r.URL.Path))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
