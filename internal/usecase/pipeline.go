package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/naka-gawa/trending-digest/internal/domain"
)

// RunOutcome says what a pipeline run did.
type RunOutcome string

const (
	OutcomeStored  RunOutcome = "stored"
	OutcomeSkipped RunOutcome = "skipped"
)

// RunReport summarizes one pipeline run.
type RunReport struct {
	Date       string                 `json:"date"`
	Outcome    RunOutcome             `json:"outcome"`
	Candidates int                    `json:"candidates"`
	Repos      int                    `json:"repos"`
	TokensUsed int                    `json:"tokens_used"`
	Stats      *domain.CandidateStats `json:"stats,omitempty"`
}

// CandidateFetcher returns today's trending candidates.
type CandidateFetcher interface {
	Fetch(ctx context.Context) ([]domain.Candidate, error)
}

// CandidateAnalyzer turns candidates into an analysis and its token cost.
type CandidateAnalyzer interface {
	Analyze(ctx context.Context, candidates []domain.Candidate) (*domain.AnalysisResult, int, error)
}

// AnalysisStore is the subset of the store the pipeline writes to.
type AnalysisStore interface {
	HasDailyAnalysis(ctx context.Context, date string) (bool, error)
	InsertDailyAnalysis(ctx context.Context, analysis *domain.DailyAnalysis, repos []domain.TrendingRepo) (bool, error)
}

// Pipeline runs fetch, analyze and persist for the current UTC date.
type Pipeline struct {
	fetcher  CandidateFetcher
	analyzer CandidateAnalyzer
	store    AnalysisStore
	model    string
	logger   *slog.Logger
	now      func() time.Time
}

// NewPipeline creates a new Pipeline. model is recorded with each stored analysis.
func NewPipeline(fetcher CandidateFetcher, analyzer CandidateAnalyzer, store AnalysisStore, model string, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		fetcher:  fetcher,
		analyzer: analyzer,
		store:    store,
		model:    model,
		logger:   logger,
		now:      time.Now,
	}
}

// RunOnce stores today's analysis, or skips when one already exists. Any fetch,
// analysis or persistence failure aborts the run with nothing written.
func (p *Pipeline) RunOnce(ctx context.Context) (*RunReport, error) {
	now := p.now().UTC()
	date := now.Format(domain.DateLayout)
	report := &RunReport{Date: date, Outcome: OutcomeSkipped}

	// Cheap early exit so a retrigger does not spend LLM tokens. The insert below
	// is what actually guarantees one analysis per date.
	exists, err := p.store.HasDailyAnalysis(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing analysis: %w", err)
	}
	if exists {
		p.logger.Info("analysis already exists, skipping", "date", date)
		return report, nil
	}

	candidates, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidates: %w", err)
	}
	stats := SummarizeCandidates(candidates, now)
	report.Candidates = len(candidates)
	report.Stats = &stats
	p.logger.Info("candidate stats", "date", date, "count", stats.Count, "new_repos", stats.NewRepos,
		"median_stars", stats.MedianStars, "p90_stars", stats.P90Stars)

	result, tokens, err := p.analyzer.Analyze(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze candidates: %w", err)
	}
	report.TokensUsed = tokens

	analysis := &domain.DailyAnalysis{
		Date:       date,
		Analysis:   *result,
		Candidates: candidates,
		Model:      p.model,
		TokensUsed: tokens,
		CreatedAt:  now,
	}
	repos := BuildTrendingRepos(date, result, candidates, now, p.logger)

	inserted, err := p.store.InsertDailyAnalysis(ctx, analysis, repos)
	if err != nil {
		return nil, fmt.Errorf("failed to store analysis: %w", err)
	}
	if !inserted {
		p.logger.Warn("analysis stored concurrently by another run, discarding", "date", date)
		return report, nil
	}

	report.Outcome = OutcomeStored
	report.Repos = len(repos)
	p.logger.Info("analysis stored", "date", date, "repos", len(repos), "tokens", tokens)
	return report, nil
}

// BuildTrendingRepos derives one row per categorized item, resolved against the
// fetched candidates. Items naming a repository that was not fetched are dropped.
func BuildTrendingRepos(date string, result *domain.AnalysisResult, candidates []domain.Candidate, now time.Time, logger *slog.Logger) []domain.TrendingRepo {
	byName := make(map[string]domain.Candidate, len(candidates))
	for _, c := range candidates {
		byName[c.FullName] = c
	}

	var repos []domain.TrendingRepo
	for _, group := range result.OrderedCategories() {
		for _, item := range group.Items {
			c, ok := byName[item.Repo]
			if !ok {
				logger.Debug("dropping unresolved repo", "date", date, "repo", item.Repo, "category", group.Name)
				continue
			}
			repos = append(repos, domain.TrendingRepo{
				Date:         date,
				FullName:     c.FullName,
				Description:  c.Description,
				Language:     c.Language,
				Stars:        c.Stars,
				Forks:        c.Forks,
				URL:          c.RepoURL(),
				Category:     group.Name,
				AISummary:    item.Summary,
				Significance: item.Significance,
				IsNew:        c.IsNewAt(now),
			})
		}
	}
	return repos
}
