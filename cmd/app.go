package cmd

import (
	"fmt"
	"log/slog"

	"github.com/naka-gawa/trending-digest/internal/config"
	"github.com/naka-gawa/trending-digest/internal/digest"
	"github.com/naka-gawa/trending-digest/internal/gateway"
	"github.com/naka-gawa/trending-digest/internal/store"
	"github.com/naka-gawa/trending-digest/internal/usecase"
	"github.com/spf13/cobra"
)

// app wires configuration into gateways, the store and use cases.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newApp(cmd *cobra.Command) (*app, error) {
	logger := newLogger(cmd)

	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.GetConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Debug("config loaded", "path", path, "environment", cfg.Environment)
	return &app{cfg: cfg, logger: logger}, nil
}

func (a *app) httpOptions(retryMax int) gateway.HTTPOptions {
	return gateway.HTTPOptions{
		Timeout:  a.cfg.HTTPTimeout(),
		RetryMax: retryMax,
		Logger:   a.logger.With("component", "http"),
	}
}

func (a *app) openStore() (*store.SQLStore, error) {
	db, err := store.Open(a.cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.logger.Debug("database opened", "type", db.DatabaseType())
	return db, nil
}

func (a *app) newRenderer() (*digest.Renderer, error) {
	return digest.NewRenderer(digest.Site{Name: a.cfg.Site.Name, URL: a.cfg.Site.URL})
}

func (a *app) newAggregator() (*usecase.TrendAggregator, error) {
	searcher, err := gateway.NewRepoSearcher(a.cfg.GitHub.Source, gateway.GitHubOptions{
		Token:   a.cfg.GitHub.Token,
		PerPage: a.cfg.GitHub.PerPage,
		HTTP:    a.httpOptions(a.cfg.HTTPRetryMax()),
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub gateway: %w", err)
	}
	if a.cfg.GitHub.Token == "" {
		a.logger.Warn("GITHUB_TOKEN is not set; searching unauthenticated")
	}
	return usecase.NewTrendAggregator(searcher, a.logger), nil
}

func (a *app) newPipeline(db usecase.AnalysisStore) (*usecase.Pipeline, error) {
	if err := a.cfg.RequireLLM(); err != nil {
		return nil, err
	}
	aggregator, err := a.newAggregator()
	if err != nil {
		return nil, err
	}
	completer := gateway.NewOpenAICompleter(a.cfg.LLM.APIKey, a.logger,
		gateway.WithLLMBaseURL(a.cfg.LLM.BaseURL),
		gateway.WithLLMModel(a.cfg.LLM.Model),
		gateway.WithLLMMaxTokens(a.cfg.LLM.MaxTokens),
		gateway.WithLLMHTTPClient(gateway.NewHTTPClient(a.httpOptions(a.cfg.HTTPRetryMax()), nil)),
		gateway.WithLLMHeader("HTTP-Referer", a.cfg.Site.URL),
		gateway.WithLLMHeader("X-Title", a.cfg.Site.Name),
	)
	analyzer := usecase.NewAnalyzer(completer, a.logger)
	return usecase.NewPipeline(aggregator, analyzer, db, completer.Model(), a.logger), nil
}

func (a *app) newDispatcher(db usecase.DigestStore) (*usecase.Dispatcher, error) {
	if err := a.cfg.RequireMailer(); err != nil {
		return nil, err
	}
	renderer, err := a.newRenderer()
	if err != nil {
		return nil, err
	}
	// Mail is never retried so a recipient cannot get the digest twice.
	mailer := gateway.NewResendMailer(a.cfg.Newsletter.ResendAPIKey, gateway.NewHTTPClient(a.httpOptions(0), nil), a.logger)
	return usecase.NewDispatcher(db, mailer, renderer, usecase.NewsletterOptions{
		SenderEmail:   a.cfg.Newsletter.SenderEmail,
		PublicBaseURL: a.cfg.Newsletter.PublicBaseURL,
		LookbackDays:  a.cfg.Newsletter.LookbackDays,
		Concurrency:   a.cfg.Newsletter.Concurrency,
	}, a.logger), nil
}
