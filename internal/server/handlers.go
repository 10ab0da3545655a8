package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/naka-gawa/trending-digest/internal/digest"
	"github.com/naka-gawa/trending-digest/internal/domain"
	"github.com/naka-gawa/trending-digest/internal/store"
	"github.com/naka-gawa/trending-digest/internal/usecase"
)

type analysisEnvelope struct {
	Date       string                `json:"date"`
	Analysis   domain.AnalysisResult `json:"analysis"`
	TokensUsed int                   `json:"tokensUsed"`
	CreatedAt  time.Time             `json:"createdAt"`
}

func newEnvelope(a *domain.DailyAnalysis) analysisEnvelope {
	return analysisEnvelope{
		Date:       a.Date,
		Analysis:   a.Analysis,
		TokensUsed: a.TokensUsed,
		CreatedAt:  a.CreatedAt,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	a, err := s.analyses.GetLatestDailyAnalysis(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "No analysis available yet")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newEnvelope(a))
}

// lookupDate resolves the {date} parameter to a stored analysis and writes the
// error response itself when it cannot.
func (s *Server) lookupDate(w http.ResponseWriter, r *http.Request) (*domain.DailyAnalysis, bool) {
	t, err := domain.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD")
		return nil, false
	}
	date := t.Format(domain.DateLayout)
	a, err := s.analyses.GetDailyAnalysis(r.Context(), date)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("No analysis for %s", date))
		return nil, false
	}
	if err != nil {
		s.internalError(w, r, err)
		return nil, false
	}
	return a, true
}

func (s *Server) handleDate(w http.ResponseWriter, r *http.Request) {
	a, ok := s.lookupDate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newEnvelope(a))
}

func (s *Server) handleDateRepos(w http.ResponseWriter, r *http.Request) {
	a, ok := s.lookupDate(w, r)
	if !ok {
		return
	}
	repos, err := s.analyses.ListTrendingRepos(r.Context(), a.Date)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if repos == nil {
		repos = []domain.TrendingRepo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": a.Date, "data": repos})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	days := parseIntParam(r.URL.Query().Get("days"), defaultHistoryDays, minHistoryDays, maxHistoryDays)
	since := s.now().UTC().AddDate(0, 0, -days).Format(domain.DateLayout)

	entries, err := s.analyses.ListHistory(r.Context(), since)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": entries})
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	_, err := s.subs.Subscribe(r.Context(), req.Email)
	switch {
	case errors.Is(err, domain.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "Invalid email")
	case errors.Is(err, domain.ErrAlreadySubscribed):
		writeError(w, http.StatusConflict, "Already subscribed")
	case err != nil:
		s.internalError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "subscribed"})
	}
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.subs.Unsubscribe(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	status := http.StatusOK
	var page digest.UnsubscribePage
	switch outcome {
	case usecase.Unsubscribed:
		page = digest.UnsubscribePage{
			Title:       "Unsubscribed",
			Message:     fmt.Sprintf("You've been removed from the %s weekly newsletter.", s.renderer.Site().Name),
			Resubscribe: true,
		}
	case usecase.UnsubscribeAlreadyDone:
		page = digest.UnsubscribePage{
			Title:   "Already Unsubscribed",
			Message: "This email has already been unsubscribed.",
		}
	default:
		status = http.StatusBadRequest
		page = digest.UnsubscribePage{
			Title:   "Invalid Link",
			Message: "This unsubscribe link is invalid.",
		}
	}

	var buf bytes.Buffer
	if err := s.renderer.RenderUnsubscribe(&buf, page); err != nil {
		s.internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	report, err := s.opts.Trigger.RunOnce(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "Internal Server Error")
}

// parseIntParam parses a query value, falling back to def when it is absent or
// not a number, and clamps the result to [lo, hi].
func parseIntParam(value string, def, lo, hi int) int {
	if value == "" {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return clampInt(n, lo, hi)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
