package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/naka-gawa/trending-digest/internal/domain"
	"github.com/sashabaranov/go-openai"
)

const (
	DefaultLLMBaseURL   = "https://openrouter.ai/api/v1"
	DefaultLLMModel     = "anthropic/claude-3.5-haiku"
	DefaultLLMMaxTokens = 4096
)

// CompletionRequest is a single system plus user exchange.
type CompletionRequest struct {
	System string
	User   string
}

// Completion is the text of the first choice and the provider's token usage.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// TotalTokens is the sum of prompt and completion tokens.
func (c *Completion) TotalTokens() int {
	return c.PromptTokens + c.CompletionTokens
}

// Completer sends one chat completion request.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// OpenAICompleter talks to any OpenAI-compatible chat completion endpoint, OpenRouter by default.
type OpenAICompleter struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *slog.Logger
}

type llmSettings struct {
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
	headers    map[string]string
}

// LLMOption configures an OpenAICompleter.
type LLMOption func(*llmSettings)

func WithLLMBaseURL(url string) LLMOption {
	return func(s *llmSettings) { s.baseURL = url }
}

func WithLLMModel(model string) LLMOption {
	return func(s *llmSettings) { s.model = model }
}

func WithLLMMaxTokens(n int) LLMOption {
	return func(s *llmSettings) { s.maxTokens = n }
}

func WithLLMHTTPClient(c *http.Client) LLMOption {
	return func(s *llmSettings) { s.httpClient = c }
}

// WithLLMHeader adds a fixed request header, e.g. OpenRouter's HTTP-Referer and X-Title.
func WithLLMHeader(key, value string) LLMOption {
	return func(s *llmSettings) { s.headers[key] = value }
}

// NewOpenAICompleter creates a completer authenticated with apiKey.
func NewOpenAICompleter(apiKey string, logger *slog.Logger, opts ...LLMOption) *OpenAICompleter {
	s := &llmSettings{
		baseURL:   DefaultLLMBaseURL,
		model:     DefaultLLMModel,
		maxTokens: DefaultLLMMaxTokens,
		headers:   map[string]string{},
	}
	for _, opt := range opts {
		opt(s)
	}

	httpClient := s.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if len(s.headers) > 0 {
		base := httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		httpClient = &http.Client{
			Timeout:   httpClient.Timeout,
			Transport: &headerTransport{base: base, headers: s.headers},
		}
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = s.baseURL
	cfg.HTTPClient = httpClient
	return &OpenAICompleter{
		client:    openai.NewClientWithConfig(cfg),
		model:     s.model,
		maxTokens: s.maxTokens,
		logger:    logger,
	}
}

// Model returns the model identifier sent with each request.
func (c *OpenAICompleter) Model() string {
	return c.model
}

func (c *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	c.logger.Debug("requesting chat completion", "model", c.model, "prompt_bytes", len(req.User))
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w: %w", domain.ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: completion has no choices", domain.ErrMalformedResponse)
	}

	completion := &Completion{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	c.logger.Debug("chat completion received", "model", c.model, "tokens", completion.TotalTokens())
	return completion, nil
}
