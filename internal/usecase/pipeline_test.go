package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/naka-gawa/trending-digest/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context) ([]domain.Candidate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Candidate), args.Error(1)
}

type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) Analyze(ctx context.Context, candidates []domain.Candidate) (*domain.AnalysisResult, int, error) {
	args := m.Called(ctx, candidates)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).(*domain.AnalysisResult), args.Int(1), args.Error(2)
}

func pipelineCandidates() []domain.Candidate {
	return []domain.Candidate{
		{FullName: "acme/agent", Stars: 900, Language: "Go", CreatedAt: fixedNow.Add(-48 * time.Hour)},
		{FullName: "acme/lint", Stars: 600, CreatedAt: fixedNow.Add(-400 * 24 * time.Hour), URL: "https://github.com/acme/lint"},
	}
}

func pipelineResult() *domain.AnalysisResult {
	r := &domain.AnalysisResult{
		Headline: "Agents everywhere",
		Categories: map[string][]domain.CategoryItem{
			"AI/ML":    {{Repo: "acme/agent", Summary: "agent runtime", Significance: 5}, {Repo: "ghost/hallucinated", Summary: "?", Significance: 1}},
			"DevTools": {{Repo: "acme/lint", Summary: "fast linter", Significance: 2}},
		},
		Pattern: "tooling around agents",
	}
	r.Normalize()
	return r
}

func newTestPipeline(t *testing.T, fetcher *mockFetcher, analyzer *mockAnalyzer, st AnalysisStore) *Pipeline {
	t.Helper()
	p := NewPipeline(fetcher, analyzer, st, "anthropic/claude-3.5-haiku", discardLogger())
	p.now = func() time.Time { return fixedNow }
	return p
}

func TestPipeline_RunOnce_StoresThenSkips(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	fetcher := new(mockFetcher)
	analyzer := new(mockAnalyzer)
	fetcher.On("Fetch", mock.Anything).Return(pipelineCandidates(), nil).Once()
	analyzer.On("Analyze", mock.Anything, mock.Anything).Return(pipelineResult(), 321, nil).Once()

	p := newTestPipeline(t, fetcher, analyzer, db)

	report, err := p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeStored, report.Outcome)
	assert.Equal(t, "2024-01-10", report.Date)
	assert.Equal(t, 2, report.Candidates)
	assert.Equal(t, 2, report.Repos, "hallucinated repo is dropped")
	assert.Equal(t, 321, report.TokensUsed)
	require.NotNil(t, report.Stats)
	assert.Equal(t, 1, report.Stats.NewRepos)

	// Second run for the same date is a no-op and never reaches the fetcher or analyzer.
	report, err = p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, report.Outcome)

	history, err := db.ListHistory(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	stored, err := db.GetDailyAnalysis(ctx, "2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-3.5-haiku", stored.Model)
	assert.Equal(t, 321, stored.TokensUsed)

	repos, err := db.ListTrendingRepos(ctx, "2024-01-10")
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "acme/agent", repos[0].FullName)
	assert.Equal(t, "AI/ML", repos[0].Category)
	assert.True(t, repos[0].IsNew)
	assert.Equal(t, "https://github.com/acme/agent", repos[0].URL)
	assert.Equal(t, "acme/lint", repos[1].FullName)
	assert.False(t, repos[1].IsNew)

	fetcher.AssertExpectations(t)
	analyzer.AssertExpectations(t)
}

// raceStore reports no existing analysis, then loses the insert, as when a
// concurrent run commits between the pre-check and the insert.
type raceStore struct{}

func (raceStore) HasDailyAnalysis(context.Context, string) (bool, error) { return false, nil }
func (raceStore) InsertDailyAnalysis(context.Context, *domain.DailyAnalysis, []domain.TrendingRepo) (bool, error) {
	return false, nil
}

func TestPipeline_RunOnce_LostInsertRaceIsSkip(t *testing.T) {
	fetcher := new(mockFetcher)
	analyzer := new(mockAnalyzer)
	fetcher.On("Fetch", mock.Anything).Return(pipelineCandidates(), nil)
	analyzer.On("Analyze", mock.Anything, mock.Anything).Return(pipelineResult(), 10, nil)

	report, err := newTestPipeline(t, fetcher, analyzer, raceStore{}).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, report.Outcome)
}

func TestPipeline_RunOnce_Failures(t *testing.T) {
	testCases := []struct {
		name           string
		fetchErr       error
		analyzeErr     error
		expectedErr    error
		expectedErrMsg string
	}{
		{
			name:           "error case - fetch fails",
			fetchErr:       errors.Join(domain.ErrUpstream, errors.New("query new-repos failed")),
			expectedErr:    domain.ErrUpstream,
			expectedErrMsg: "failed to fetch candidates",
		},
		{
			name:           "error case - analysis is malformed",
			analyzeErr:     domain.ErrMalformedResponse,
			expectedErr:    domain.ErrMalformedResponse,
			expectedErrMsg: "failed to analyze candidates",
		},
		{
			name:           "error case - analysis is invalid",
			analyzeErr:     domain.ErrInvalidAnalysis,
			expectedErr:    domain.ErrInvalidAnalysis,
			expectedErrMsg: "failed to analyze candidates",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			db := newTestStore(t)
			fetcher := new(mockFetcher)
			analyzer := new(mockAnalyzer)
			if tc.fetchErr != nil {
				fetcher.On("Fetch", mock.Anything).Return(nil, tc.fetchErr)
			} else {
				fetcher.On("Fetch", mock.Anything).Return(pipelineCandidates(), nil)
				analyzer.On("Analyze", mock.Anything, mock.Anything).Return(nil, 0, tc.analyzeErr)
			}

			report, err := newTestPipeline(t, fetcher, analyzer, db).RunOnce(ctx)
			require.Error(t, err)
			assert.Nil(t, report)
			assert.ErrorIs(t, err, tc.expectedErr)
			assert.Contains(t, err.Error(), tc.expectedErrMsg)

			exists, err := db.HasDailyAnalysis(ctx, "2024-01-10")
			require.NoError(t, err)
			assert.False(t, exists, "nothing is stored on failure")
		})
	}
}
