// Package gateway provides clients for the external services the digest depends on:
// GitHub repository search, the LLM completion endpoint and the mail provider.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/naka-gawa/trending-digest/internal/domain"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
)

// Source names accepted by NewRepoSearcher.
const (
	SourceREST    = "rest"
	SourceGraphQL = "graphql"
)

// DefaultPerPage is the number of repositories requested per search query.
const DefaultPerPage = 30

// RepoSearcher runs a single repository search query against GitHub.
// Results are ordered by stars, descending.
type RepoSearcher interface {
	SearchRepositories(ctx context.Context, query string) ([]domain.Candidate, error)
}

// GitHubOptions configures both GitHub searchers.
type GitHubOptions struct {
	// Token is optional; unauthenticated search works with a lower rate limit.
	Token   string
	PerPage int
	HTTP    HTTPOptions
}

// GitHubGateway searches repositories through the REST API.
type GitHubGateway struct {
	restClient *github.Client
	perPage    int
	logger     *slog.Logger
}

// NewRepoSearcher builds the searcher selected by source.
func NewRepoSearcher(source string, opts GitHubOptions, logger *slog.Logger) (RepoSearcher, error) {
	switch source {
	case SourceREST, "":
		return NewGitHubGateway(opts, logger)
	case SourceGraphQL:
		return NewGraphQLGateway(opts, logger)
	default:
		return nil, fmt.Errorf("unknown github source %q", source)
	}
}

// newGitHubHTTPClient layers oauth2 over the retrying client, which in turn
// wraps the secondary rate limit waiter.
func newGitHubHTTPClient(opts GitHubOptions) (*http.Client, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(10*time.Minute, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	client := NewHTTPClient(opts.HTTP, rateLimitWaiter)
	if opts.Token == "" {
		return client, nil
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
	return &http.Client{
		Transport: &oauth2.Transport{
			Base:   client.Transport,
			Source: ts,
		},
	}, nil
}

func perPageOrDefault(n int) int {
	if n <= 0 {
		return DefaultPerPage
	}
	return n
}

// NewGitHubGateway is a constructor that creates a new REST-backed searcher.
func NewGitHubGateway(opts GitHubOptions, logger *slog.Logger) (*GitHubGateway, error) {
	httpClient, err := newGitHubHTTPClient(opts)
	if err != nil {
		return nil, err
	}
	return &GitHubGateway{
		restClient: github.NewClient(httpClient),
		perPage:    perPageOrDefault(opts.PerPage),
		logger:     logger,
	}, nil
}

func (g *GitHubGateway) SearchRepositories(ctx context.Context, query string) ([]domain.Candidate, error) {
	g.logger.Debug("searching repositories with REST API", "query", query)
	opts := &github.SearchOptions{
		Sort:        "stars",
		Order:       "desc",
		ListOptions: github.ListOptions{PerPage: g.perPage},
	}
	result, _, err := g.restClient.Search.Repositories(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search repositories with REST API: %w: %w", domain.ErrUpstream, err)
	}

	candidates := make([]domain.Candidate, 0, len(result.Repositories))
	for _, repo := range result.Repositories {
		candidates = append(candidates, domain.Candidate{
			FullName:    repo.GetFullName(),
			Description: repo.GetDescription(),
			Language:    repo.GetLanguage(),
			Stars:       repo.GetStargazersCount(),
			Forks:       repo.GetForksCount(),
			URL:         repo.GetHTMLURL(),
			CreatedAt:   repo.GetCreatedAt().Time,
			PushedAt:    repo.GetPushedAt().Time,
			Topics:      repo.Topics,
		})
	}
	g.logger.Debug("completed repository search", "query", query, "count", len(candidates))
	return candidates, nil
}
