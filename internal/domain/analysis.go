package domain

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"
)

// KnownCategories lists the category names an analysis may use, in display order.
var KnownCategories = []string{"AI/ML", "Web", "DevTools", "Infrastructure", "Security", "Data", "Other"}

const (
	MinSignificance = 1
	MaxSignificance = 5
	MaxNotable      = 3
)

// CategoryItem is one repository's placement within a category.
type CategoryItem struct {
	Repo         string `json:"repo"`
	Summary      string `json:"summary"`
	Significance int    `json:"significance"`
}

// NotableItem is a highlighted pick with a short rationale.
type NotableItem struct {
	Repo string `json:"repo"`
	Why  string `json:"why"`
}

// AnalysisResult is the structured output of the analysis engine.
type AnalysisResult struct {
	Headline   string                    `json:"headline"`
	Categories map[string][]CategoryItem `json:"categories"`
	Notable    []NotableItem             `json:"notable"`
	Pattern    string                    `json:"pattern"`
}

// CategoryGroup is a named category with its items, used for ordered display.
type CategoryGroup struct {
	Name  string
	Items []CategoryItem
}

// DailyAnalysis is the persisted analysis for one calendar date.
type DailyAnalysis struct {
	Date       string         `json:"date"`
	Analysis   AnalysisResult `json:"analysis"`
	Candidates []Candidate    `json:"-"`
	Model      string         `json:"model"`
	TokensUsed int            `json:"tokensUsed"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// TrendingRepo is the per-repository row derived from a daily analysis.
type TrendingRepo struct {
	Date         string `json:"date"`
	FullName     string `json:"repo"`
	Description  string `json:"description"`
	Language     string `json:"language"`
	Stars        int    `json:"stars"`
	Forks        int    `json:"forks"`
	URL          string `json:"url"`
	Category     string `json:"category"`
	AISummary    string `json:"aiSummary"`
	Significance int    `json:"significance"`
	IsNew        bool   `json:"isNew"`
}

// HistoryEntry is the reduced projection of a daily analysis used by listing views.
type HistoryEntry struct {
	Date          string `json:"date"`
	Headline      string `json:"headline"`
	Pattern       string `json:"pattern"`
	CategoryCount int    `json:"categoryCount"`
	RepoCount     int    `json:"repoCount"`
}

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParseDate validates a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	if !datePattern.MatchString(s) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// IsKnownCategory reports whether name is one of KnownCategories.
func IsKnownCategory(name string) bool {
	for _, c := range KnownCategories {
		if c == name {
			return true
		}
	}
	return false
}

// Normalize drops empty categories and replaces nil collections with empty ones
// so the encoded form is stable.
func (r *AnalysisResult) Normalize() {
	if r.Categories == nil {
		r.Categories = map[string][]CategoryItem{}
	}
	for name, items := range r.Categories {
		if len(items) == 0 {
			delete(r.Categories, name)
		}
	}
	if r.Notable == nil {
		r.Notable = []NotableItem{}
	}
}

// Validate checks the result against the analysis schema and returns every violation found.
func (r *AnalysisResult) Validate() error {
	var errs []error
	if r.Headline == "" {
		errs = append(errs, errors.New("headline is empty"))
	}

	seen := make(map[string]string)
	for _, group := range r.OrderedCategories() {
		if !IsKnownCategory(group.Name) {
			errs = append(errs, fmt.Errorf("unknown category %q", group.Name))
		}
		for _, item := range group.Items {
			if item.Repo == "" {
				errs = append(errs, fmt.Errorf("category %q has an item without repo", group.Name))
				continue
			}
			if item.Significance < MinSignificance || item.Significance > MaxSignificance {
				errs = append(errs, fmt.Errorf("%s: significance %d out of range [%d,%d]",
					item.Repo, item.Significance, MinSignificance, MaxSignificance))
			}
			if prev, ok := seen[item.Repo]; ok {
				errs = append(errs, fmt.Errorf("%s: assigned to both %q and %q", item.Repo, prev, group.Name))
				continue
			}
			seen[item.Repo] = group.Name
		}
	}

	if len(r.Notable) > MaxNotable {
		errs = append(errs, fmt.Errorf("%d notable picks, at most %d allowed", len(r.Notable), MaxNotable))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidAnalysis, errors.Join(errs...))
}

// OrderedCategories returns the categories in KnownCategories order,
// followed by any unrecognized names sorted alphabetically.
func (r *AnalysisResult) OrderedCategories() []CategoryGroup {
	groups := make([]CategoryGroup, 0, len(r.Categories))
	for _, name := range KnownCategories {
		if items, ok := r.Categories[name]; ok {
			groups = append(groups, CategoryGroup{Name: name, Items: items})
		}
	}
	var extra []string
	for name := range r.Categories {
		if !IsKnownCategory(name) {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		groups = append(groups, CategoryGroup{Name: name, Items: r.Categories[name]})
	}
	return groups
}

// RepoCount is the total number of category items across all categories.
func (r *AnalysisResult) RepoCount() int {
	n := 0
	for _, items := range r.Categories {
		n += len(items)
	}
	return n
}

// History projects the analysis down to its listing fields.
func (d *DailyAnalysis) History() HistoryEntry {
	return HistoryEntry{
		Date:          d.Date,
		Headline:      d.Analysis.Headline,
		Pattern:       d.Analysis.Pattern,
		CategoryCount: len(d.Analysis.Categories),
		RepoCount:     d.Analysis.RepoCount(),
	}
}
