package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/naka-gawa/trending-digest/internal/domain"
	"github.com/naka-gawa/trending-digest/internal/gateway"
)

const systemPrompt = `You are an expert software industry analyst. Analyze today's GitHub trending repositories and produce a structured JSON report. Be concise, insightful and opinionated. Focus on what matters to professional developers.

Output ONLY valid JSON, without markdown or code fences, with this exact structure:

{
  "headline": "One sentence capturing today's biggest theme",
  "categories": {
    "AI/ML": [{"repo": "owner/name", "summary": "One-line insight", "significance": 1}],
    "Web": [],
    "DevTools": [],
    "Infrastructure": [],
    "Security": [],
    "Data": [],
    "Other": []
  },
  "notable": [{"repo": "owner/name", "why": "Two sentences on why this matters"}],
  "pattern": "Any emerging theme across today's repos"
}

Rules:
- Use only these category names: %s
- Every repo must appear in exactly one category
- Include 2-3 notable picks maximum
- significance is an integer from 1 to 5 (5 = most significant)
- Omit empty categories
- Be direct and opinionated in summaries`

var codeFencePattern = regexp.MustCompile("(?s)^\\s*```(?:json)?\\s*(.*?)\\s*```\\s*$")

// Analyzer turns a candidate list into a validated AnalysisResult using an LLM.
type Analyzer struct {
	completer gateway.Completer
	logger    *slog.Logger
}

// NewAnalyzer creates a new Analyzer instance.
func NewAnalyzer(completer gateway.Completer, logger *slog.Logger) *Analyzer {
	return &Analyzer{completer: completer, logger: logger}
}

// SystemPrompt is the fixed instruction sent with every analysis request.
func SystemPrompt() string {
	return fmt.Sprintf(systemPrompt, strings.Join(domain.KnownCategories, ", "))
}

// BuildUserPrompt lists each candidate with its language, stars, forks and description.
func BuildUserPrompt(candidates []domain.Candidate) string {
	var b strings.Builder
	b.WriteString("Here are today's trending GitHub repositories:\n\n")
	for _, c := range candidates {
		language := c.Language
		if language == "" {
			language = "unknown"
		}
		description := c.Description
		if description == "" {
			description = "No description"
		}
		fmt.Fprintf(&b, "- %s (%s, %d stars, %d forks): %s\n", c.FullName, language, c.Stars, c.Forks, description)
	}
	b.WriteString("\nAnalyze these repos and respond with the JSON report.")
	return b.String()
}

// Analyze returns the validated result and the tokens the provider billed for it.
func (a *Analyzer) Analyze(ctx context.Context, candidates []domain.Candidate) (*domain.AnalysisResult, int, error) {
	a.logger.Info("requesting analysis", "candidates", len(candidates))
	completion, err := a.completer.Complete(ctx, gateway.CompletionRequest{
		System: SystemPrompt(),
		User:   BuildUserPrompt(candidates),
	})
	if err != nil {
		return nil, 0, err
	}

	result, err := ParseAnalysis(completion.Text)
	if err != nil {
		return nil, 0, err
	}
	tokens := completion.TotalTokens()
	a.logger.Info("analysis complete",
		"headline", result.Headline, "categories", len(result.Categories), "repos", result.RepoCount(), "tokens", tokens)
	return result, tokens, nil
}

// ParseAnalysis strips an optional code fence, decodes the JSON and validates it.
func ParseAnalysis(text string) (*domain.AnalysisResult, error) {
	payload := StripCodeFence(text)
	var result domain.AnalysisResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
	}
	result.Normalize()
	if err := result.Validate(); err != nil {
		return nil, err
	}
	return &result, nil
}

// StripCodeFence removes a surrounding ``` or ```json fence, if present.
func StripCodeFence(text string) string {
	if m := codeFencePattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return strings.TrimSpace(text)
}
