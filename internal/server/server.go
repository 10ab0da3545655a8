// Package server provides the read API, the subscription endpoints and the
// unsubscribe page.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/naka-gawa/trending-digest/internal/digest"
	"github.com/naka-gawa/trending-digest/internal/domain"
	"github.com/naka-gawa/trending-digest/internal/usecase"
)

const (
	defaultHistoryDays = 30
	minHistoryDays     = 1
	maxHistoryDays     = 365
)

// AnalysisReader is the read side of the analysis store.
type AnalysisReader interface {
	GetDailyAnalysis(ctx context.Context, date string) (*domain.DailyAnalysis, error)
	GetLatestDailyAnalysis(ctx context.Context) (*domain.DailyAnalysis, error)
	ListHistory(ctx context.Context, since string) ([]domain.HistoryEntry, error)
	ListTrendingRepos(ctx context.Context, date string) ([]domain.TrendingRepo, error)
}

// Subscriptions handles newsletter signups and unsubscribes.
type Subscriptions interface {
	Subscribe(ctx context.Context, email string) (*domain.Subscriber, error)
	Unsubscribe(ctx context.Context, token string) (usecase.UnsubscribeOutcome, error)
}

// PipelineRunner runs the daily analysis on demand.
type PipelineRunner interface {
	RunOnce(ctx context.Context) (*usecase.RunReport, error)
}

// Options configures routing behavior.
type Options struct {
	AllowedOrigins []string
	Development    bool
	// HandlerTimeout bounds read and subscription handlers. Zero disables it.
	HandlerTimeout time.Duration
	// Trigger enables POST /api/trigger in development.
	Trigger PipelineRunner
}

// Server is the HTTP API.
type Server struct {
	analyses AnalysisReader
	subs     Subscriptions
	renderer *digest.Renderer
	opts     Options
	logger   *slog.Logger
	router   chi.Router
	now      func() time.Time
}

// New creates a server and its routes.
func New(analyses AnalysisReader, subs Subscriptions, renderer *digest.Renderer, opts Options, logger *slog.Logger) *Server {
	s := &Server{
		analyses: analyses,
		subs:     subs,
		renderer: renderer,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
	s.setupRoutes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)
	r.Use(cors(s.opts.AllowedOrigins, s.opts.Development))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if s.opts.HandlerTimeout > 0 {
				r.Use(middleware.Timeout(s.opts.HandlerTimeout))
			}
			r.Get("/health", s.handleHealth)
			r.Get("/today", s.handleToday)
			r.Get("/date/{date}", s.handleDate)
			r.Get("/date/{date}/repos", s.handleDateRepos)
			r.Get("/history", s.handleHistory)
			r.Post("/subscribe", s.handleSubscribe)
			r.Get("/unsubscribe", s.handleUnsubscribe)
		})

		// A pipeline run outlives the handler timeout.
		if s.opts.Development && s.opts.Trigger != nil {
			r.Post("/trigger", s.handleTrigger)
		}
	})

	s.router = r
}
