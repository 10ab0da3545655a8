package usecase

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/naka-gawa/trending-digest/internal/domain"
)

// SummarizeCandidates computes the star distribution of a fetch.
func SummarizeCandidates(candidates []domain.Candidate, now time.Time) domain.CandidateStats {
	summary := domain.CandidateStats{Count: len(candidates)}
	if len(candidates) == 0 {
		return summary
	}

	stars := make(stats.Float64Data, 0, len(candidates))
	for _, c := range candidates {
		stars = append(stars, float64(c.Stars))
		if c.Stars > summary.MaxStars {
			summary.MaxStars = c.Stars
		}
		if c.IsNewAt(now) {
			summary.NewRepos++
		}
	}

	// Mean and Median only fail on empty input, which is handled above.
	mean, _ := stars.Mean()
	summary.MeanStars, _ = stats.Round(mean, 1)
	summary.MedianStars, _ = stars.Median()
	// Percentile rejects samples too small to reach the 90th rank.
	if p90, err := stars.Percentile(90); err == nil && !math.IsNaN(p90) {
		summary.P90Stars = p90
	} else {
		summary.P90Stars = float64(summary.MaxStars)
	}
	return summary
}
