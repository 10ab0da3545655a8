package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/naka-gawa/trending-digest/internal/domain"
	"github.com/shurcooL/githubv4"
)

// GraphQLGateway searches repositories through the GraphQL API.
type GraphQLGateway struct {
	graphqlClient *githubv4.Client
	perPage       int
	logger        *slog.Logger
}

// repositorySearchQuery mirrors the fields the REST search returns.
type repositorySearchQuery struct {
	Search struct {
		Nodes []struct {
			Repository struct {
				NameWithOwner   string
				Description     string
				URL             string
				PrimaryLanguage struct {
					Name string
				}
				StargazerCount   int
				ForkCount        int
				CreatedAt        githubv4.DateTime
				PushedAt         githubv4.DateTime
				RepositoryTopics struct {
					Nodes []struct {
						Topic struct {
							Name string
						}
					}
				} `graphql:"repositoryTopics(first: 10)"`
			} `graphql:"... on Repository"`
		}
	} `graphql:"search(query: $query, type: REPOSITORY, first: $first)"`
}

// NewGraphQLGateway is a constructor that creates a new GraphQL-backed searcher.
func NewGraphQLGateway(opts GitHubOptions, logger *slog.Logger) (*GraphQLGateway, error) {
	httpClient, err := newGitHubHTTPClient(opts)
	if err != nil {
		return nil, err
	}
	return &GraphQLGateway{
		graphqlClient: githubv4.NewClient(httpClient),
		perPage:       perPageOrDefault(opts.PerPage),
		logger:        logger,
	}, nil
}

func (g *GraphQLGateway) SearchRepositories(ctx context.Context, query string) ([]domain.Candidate, error) {
	g.logger.Debug("searching repositories with GraphQL API", "query", query)
	// The GraphQL search has no sort argument; ordering goes in the query string.
	variables := map[string]interface{}{
		"query": githubv4.String(query + " sort:stars-desc"),
		"first": githubv4.Int(g.perPage),
	}
	var q repositorySearchQuery
	if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
		return nil, fmt.Errorf("failed to execute GraphQL repository search: %w: %w", domain.ErrUpstream, err)
	}

	candidates := make([]domain.Candidate, 0, len(q.Search.Nodes))
	for _, node := range q.Search.Nodes {
		repo := node.Repository
		if repo.NameWithOwner == "" {
			continue
		}
		var topics []string
		for _, t := range repo.RepositoryTopics.Nodes {
			topics = append(topics, t.Topic.Name)
		}
		candidates = append(candidates, domain.Candidate{
			FullName:    repo.NameWithOwner,
			Description: repo.Description,
			Language:    repo.PrimaryLanguage.Name,
			Stars:       repo.StargazerCount,
			Forks:       repo.ForkCount,
			URL:         repo.URL,
			CreatedAt:   repo.CreatedAt.Time,
			PushedAt:    repo.PushedAt.Time,
			Topics:      topics,
		})
	}
	g.logger.Debug("completed repository search", "query", query, "count", len(candidates))
	return candidates, nil
}
