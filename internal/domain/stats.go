// Package domain contains the core data structures and domain logic for the application.
package domain

// CandidateStats summarizes the star distribution of a single trending fetch.
// It is reported alongside each pipeline run.
type CandidateStats struct {
	Count       int     `json:"count"`
	NewRepos    int     `json:"new_repos"`
	MeanStars   float64 `json:"mean_stars"`
	MedianStars float64 `json:"median_stars"`
	P90Stars    float64 `json:"p90_stars"`
	MaxStars    int     `json:"max_stars"`
}
