package domain

import "time"

// DateLayout is the calendar-date format used for analysis keys and API paths.
const DateLayout = "2006-01-02"

// NewRepoWindow is how recently a repository must have been created to count as new.
const NewRepoWindow = 7 * 24 * time.Hour

// Candidate is a repository returned by the trend source, not yet categorized.
type Candidate struct {
	FullName    string    `json:"full_name"`
	Description string    `json:"description"`
	Language    string    `json:"language"`
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	URL         string    `json:"html_url"`
	CreatedAt   time.Time `json:"created_at"`
	PushedAt    time.Time `json:"pushed_at"`
	Topics      []string  `json:"topics,omitempty"`
}

// IsNewAt reports whether the repository was created within NewRepoWindow of now.
func (c Candidate) IsNewAt(now time.Time) bool {
	return c.CreatedAt.After(now.Add(-NewRepoWindow))
}

// RepoURL returns the candidate's web URL, falling back to the canonical GitHub location.
func (c Candidate) RepoURL() string {
	if c.URL != "" {
		return c.URL
	}
	return GitHubURL(c.FullName)
}

// GitHubURL builds the web URL for an owner/name identifier.
func GitHubURL(fullName string) string {
	return "https://github.com/" + fullName
}
