package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/naka-gawa/trending-digest/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixedNow = time.Date(2024, 1, 10, 6, 0, 0, 0, time.UTC)

// mockSearcher is a mock implementation of the gateway.RepoSearcher interface.
// It allows us to simulate GitHub search without making real API calls.
type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) SearchRepositories(ctx context.Context, query string) ([]domain.Candidate, error) {
	args := m.Called(ctx, query)
	// We need to handle the case where the returned slice is nil (e.g., when an error occurs).
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Candidate), args.Error(1)
}

func names(candidates []domain.Candidate) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.FullName)
	}
	return out
}

func TestBuildTrendQueries(t *testing.T) {
	q := BuildTrendQueries(fixedNow)
	assert.Equal(t, "created:>2024-01-03 stars:>10", q.NewRepos)
	assert.Equal(t, "pushed:>2024-01-09 stars:>500", q.ActiveRepos)
}

func TestTrendAggregator_Fetch(t *testing.T) {
	queries := BuildTrendQueries(fixedNow)

	testCases := []struct {
		name           string
		newRepos       []domain.Candidate
		activeRepos    []domain.Candidate
		newReposErr    error
		activeReposErr error
		expectedNames  []string
		expectError    bool
		expectedErrMsg string
	}{
		{
			name:          "happy path - new repos first, duplicates keep first occurrence",
			newRepos:      []domain.Candidate{{FullName: "a/new", Stars: 50}, {FullName: "b/both", Stars: 900, Description: "from new"}},
			activeRepos:   []domain.Candidate{{FullName: "b/both", Stars: 901, Description: "from active"}, {FullName: "c/active", Stars: 600}},
			expectedNames: []string{"a/new", "b/both", "c/active"},
		},
		{
			name:          "empty case - both queries return nothing",
			newRepos:      []domain.Candidate{},
			activeRepos:   []domain.Candidate{},
			expectedNames: []string{},
		},
		{
			name:           "error case - new repos query fails",
			newReposErr:    errors.New("github api error"),
			activeRepos:    []domain.Candidate{{FullName: "c/active"}},
			expectError:    true,
			expectedErrMsg: "query new-repos failed",
		},
		{
			name:           "error case - active repos query fails",
			newRepos:       []domain.Candidate{{FullName: "a/new"}},
			activeReposErr: errors.New("github api error"),
			expectError:    true,
			expectedErrMsg: "query active-repos failed",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			searcher := new(mockSearcher)
			searcher.On("SearchRepositories", mock.Anything, queries.NewRepos).Return(tc.newRepos, tc.newReposErr).Maybe()
			searcher.On("SearchRepositories", mock.Anything, queries.ActiveRepos).Return(tc.activeRepos, tc.activeReposErr).Maybe()

			aggregator := NewTrendAggregator(searcher, discardLogger())
			aggregator.now = func() time.Time { return fixedNow }

			results, err := aggregator.Fetch(context.Background())
			if tc.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedErrMsg)
				assert.Nil(t, results)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedNames, names(results))
			searcher.AssertExpectations(t)
		})
	}
}

func TestMergeCandidates_FirstOccurrenceWins(t *testing.T) {
	first := []domain.Candidate{{FullName: "x/y", Description: "first"}, {FullName: "x/y", Description: "dup in same list"}}
	second := []domain.Candidate{{FullName: "x/y", Description: "second"}, {FullName: "z/w"}}

	merged := MergeCandidates(first, second)
	require.Len(t, merged, 2)
	assert.Equal(t, "first", merged[0].Description)
	assert.Equal(t, "z/w", merged[1].FullName)
}

func TestSummarizeCandidates(t *testing.T) {
	var candidates []domain.Candidate
	for i := 1; i <= 10; i++ {
		created := fixedNow.Add(-30 * 24 * time.Hour)
		if i <= 3 {
			created = fixedNow.Add(-24 * time.Hour)
		}
		candidates = append(candidates, domain.Candidate{FullName: "r", Stars: i * 10, CreatedAt: created})
	}

	got := SummarizeCandidates(candidates, fixedNow)
	assert.Equal(t, 10, got.Count)
	assert.Equal(t, 3, got.NewRepos)
	assert.Equal(t, 100, got.MaxStars)
	assert.InDelta(t, 55.0, got.MeanStars, 0.001)
	assert.InDelta(t, 55.0, got.MedianStars, 0.001)
	assert.InDelta(t, 90.0, got.P90Stars, 0.001)

	assert.Equal(t, domain.CandidateStats{}, SummarizeCandidates(nil, fixedNow))
}
