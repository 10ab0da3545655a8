// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/naka-gawa/trending-digest/internal/domain"
	"github.com/naka-gawa/trending-digest/internal/gateway"
	"golang.org/x/sync/errgroup"
)

// Names used in logs and errors to identify each trending query.
const (
	QueryNewRepos    = "new-repos"
	QueryActiveRepos = "active-repos"
)

// TrendQueries holds the two search queries for one fetch.
type TrendQueries struct {
	NewRepos    string
	ActiveRepos string
}

// BuildTrendQueries computes the search windows relative to now:
// repositories created in the last 7 days with more than 10 stars, and
// repositories pushed to in the last day with more than 500 stars.
func BuildTrendQueries(now time.Time) TrendQueries {
	now = now.UTC()
	return TrendQueries{
		NewRepos:    fmt.Sprintf("created:>%s stars:>10", now.AddDate(0, 0, -7).Format(domain.DateLayout)),
		ActiveRepos: fmt.Sprintf("pushed:>%s stars:>500", now.AddDate(0, 0, -1).Format(domain.DateLayout)),
	}
}

// TrendAggregator is the use case for collecting today's trending candidates.
// It runs both searches concurrently and merges their results.
type TrendAggregator struct {
	searcher gateway.RepoSearcher
	logger   *slog.Logger
	now      func() time.Time
}

// NewTrendAggregator creates a new TrendAggregator instance.
func NewTrendAggregator(searcher gateway.RepoSearcher, logger *slog.Logger) *TrendAggregator {
	return &TrendAggregator{
		searcher: searcher,
		logger:   logger,
		now:      time.Now,
	}
}

// Fetch returns the deduplicated candidate list. If either query fails the whole
// fetch fails and the error names the query.
func (a *TrendAggregator) Fetch(ctx context.Context) ([]domain.Candidate, error) {
	queries := BuildTrendQueries(a.now())
	a.logger.Info("fetching trending candidates", "new_repos_query", queries.NewRepos, "active_repos_query", queries.ActiveRepos)

	var newRepos, activeRepos []domain.Candidate

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		var err error
		newRepos, err = a.searcher.SearchRepositories(egCtx, queries.NewRepos)
		if err != nil {
			return fmt.Errorf("query %s failed: %w", QueryNewRepos, err)
		}
		return nil
	})

	eg.Go(func() error {
		var err error
		activeRepos, err = a.searcher.SearchRepositories(egCtx, queries.ActiveRepos)
		if err != nil {
			return fmt.Errorf("query %s failed: %w", QueryActiveRepos, err)
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	merged := MergeCandidates(newRepos, activeRepos)
	a.logger.Info("fetched trending candidates",
		QueryNewRepos, len(newRepos), QueryActiveRepos, len(activeRepos), "count", len(merged))
	return merged, nil
}

// MergeCandidates concatenates the lists in order and keeps the first occurrence
// of each repository.
func MergeCandidates(lists ...[]domain.Candidate) []domain.Candidate {
	seen := make(map[string]struct{})
	merged := make([]domain.Candidate, 0)
	for _, list := range lists {
		for _, c := range list {
			if _, ok := seen[c.FullName]; ok {
				continue
			}
			seen[c.FullName] = struct{}{}
			merged = append(merged, c)
		}
	}
	return merged
}
