// Package config loads application configuration from a YAML file, an optional
// .env file and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds all application configuration.
type Config struct {
	Environment string           `yaml:"environment"`
	Server      ServerConfig     `yaml:"server"`
	Database    DatabaseConfig   `yaml:"database"`
	GitHub      GitHubConfig     `yaml:"github"`
	LLM         LLMConfig        `yaml:"llm"`
	Newsletter  NewsletterConfig `yaml:"newsletter"`
	Site        SiteConfig       `yaml:"site"`
	Schedule    ScheduleConfig   `yaml:"schedule"`
	HTTP        HTTPConfig       `yaml:"http"`
}

type ServerConfig struct {
	Addr               string   `yaml:"addr"`
	AllowedOrigins     []string `yaml:"allowed_origins"`
	HandlerTimeoutSecs int      `yaml:"handler_timeout_secs"`
}

type DatabaseConfig struct {
	// DSN is a SQLite path or a postgres:// URL.
	DSN string `yaml:"dsn"`
}

type GitHubConfig struct {
	Token string `yaml:"token"`
	// Source is "rest" or "graphql".
	Source  string `yaml:"source"`
	PerPage int    `yaml:"per_page"`
}

type LLMConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

type NewsletterConfig struct {
	ResendAPIKey string `yaml:"resend_api_key"`
	SenderEmail  string `yaml:"sender_email"`
	// PublicBaseURL is where /api/unsubscribe is reachable from a mail client.
	PublicBaseURL string `yaml:"public_base_url"`
	LookbackDays  int    `yaml:"lookback_days"`
	Concurrency   int    `yaml:"concurrency"`
}

type SiteConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type ScheduleConfig struct {
	Timezone string `yaml:"timezone"`
	Daily    string `yaml:"daily"`
	Weekly   string `yaml:"weekly"`
}

type HTTPConfig struct {
	TimeoutSecs int `yaml:"timeout_secs"`
	// RetryMax is the number of retries for GitHub and LLM calls. Mail is never retried.
	// Nil means the default of one retry.
	RetryMax *int `yaml:"retry_max"`
}

// Load reads configuration from path and applies defaults, environment overrides
// and validation. A missing file is not an error.
func Load(path string) (*Config, error) {
	// A missing .env is the normal case in production.
	_ = godotenv.Load()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Environment-only deployments have no file.
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	applyDefaults(cfg)
	applyEnvironmentOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// GetConfigPath returns the config file path from environment or default.
func GetConfigPath() string {
	if path := os.Getenv("TRENDING_DIGEST_CONFIG"); path != "" {
		return path
	}
	return "./config.yaml"
}

func applyDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = EnvProduction
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8787"
	}
	if cfg.Server.HandlerTimeoutSecs == 0 {
		cfg.Server.HandlerTimeoutSecs = 30
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "./trending-digest.db"
	}
	if cfg.GitHub.Source == "" {
		cfg.GitHub.Source = "rest"
	}
	if cfg.GitHub.PerPage == 0 {
		cfg.GitHub.PerPage = 30
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "anthropic/claude-3.5-haiku"
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 4096
	}
	if cfg.Newsletter.LookbackDays == 0 {
		cfg.Newsletter.LookbackDays = 7
	}
	if cfg.Newsletter.Concurrency == 0 {
		cfg.Newsletter.Concurrency = 1
	}
	if cfg.Site.Name == "" {
		cfg.Site.Name = "Trending Digest"
	}
	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = "UTC"
	}
	if cfg.Schedule.Daily == "" {
		cfg.Schedule.Daily = "0 6 * * *"
	}
	if cfg.Schedule.Weekly == "" {
		cfg.Schedule.Weekly = "0 9 * * 1"
	}
	if cfg.HTTP.TimeoutSecs == 0 {
		cfg.HTTP.TimeoutSecs = 60
	}
	if cfg.HTTP.RetryMax == nil {
		retries := 1
		cfg.HTTP.RetryMax = &retries
	}
}

func applyEnvironmentOverrides(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&cfg.Environment, "ENVIRONMENT")
	setString(&cfg.Database.DSN, "DATABASE_URL")
	setString(&cfg.GitHub.Token, "GITHUB_TOKEN")
	setString(&cfg.LLM.APIKey, "OPENROUTER_API_KEY")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	setString(&cfg.Newsletter.ResendAPIKey, "RESEND_API_KEY")
	setString(&cfg.Newsletter.SenderEmail, "SENDER_EMAIL")
	setString(&cfg.Newsletter.PublicBaseURL, "PUBLIC_BASE_URL")
	setString(&cfg.Site.Name, "SITE_NAME")
	setString(&cfg.Site.URL, "SITE_URL")
	setString(&cfg.Schedule.Timezone, "TZ_NAME")

	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.Server.AllowedOrigins = splitList(origins)
	}
	if n, err := strconv.Atoi(os.Getenv("NEWSLETTER_CONCURRENCY")); err == nil {
		cfg.Newsletter.Concurrency = n
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks settings every command depends on.
func (c *Config) Validate() error {
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		return fmt.Errorf("environment must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Environment)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.GitHub.Source != "rest" && c.GitHub.Source != "graphql" {
		return fmt.Errorf("github.source must be \"rest\" or \"graphql\", got %q", c.GitHub.Source)
	}
	if c.GitHub.PerPage < 1 || c.GitHub.PerPage > 100 {
		return fmt.Errorf("github.per_page must be between 1 and 100, got %d", c.GitHub.PerPage)
	}
	if c.Newsletter.Concurrency < 1 {
		return fmt.Errorf("newsletter.concurrency must be positive, got %d", c.Newsletter.Concurrency)
	}
	if c.Newsletter.LookbackDays < 1 {
		return fmt.Errorf("newsletter.lookback_days must be positive, got %d", c.Newsletter.LookbackDays)
	}
	if c.HTTP.RetryMax != nil && *c.HTTP.RetryMax < 0 {
		return fmt.Errorf("http.retry_max must not be negative, got %d", *c.HTTP.RetryMax)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Schedule.Timezone, err)
	}
	for name, spec := range map[string]string{"schedule.daily": c.Schedule.Daily, "schedule.weekly": c.Schedule.Weekly} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, spec, err)
		}
	}
	return nil
}

// RequireLLM checks the credentials needed to run the analysis pipeline.
func (c *Config) RequireLLM() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key (OPENROUTER_API_KEY) is required")
	}
	return nil
}

// RequireMailer checks the settings needed to send the newsletter.
func (c *Config) RequireMailer() error {
	if c.Newsletter.ResendAPIKey == "" {
		return fmt.Errorf("newsletter.resend_api_key (RESEND_API_KEY) is required")
	}
	if c.Newsletter.SenderEmail == "" {
		return fmt.Errorf("newsletter.sender_email (SENDER_EMAIL) is required")
	}
	if c.Newsletter.PublicBaseURL == "" {
		return fmt.Errorf("newsletter.public_base_url (PUBLIC_BASE_URL) is required")
	}
	return nil
}

// IsDevelopment reports whether development-only behavior is enabled.
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSecs) * time.Second
}

func (c *Config) HandlerTimeout() time.Duration {
	return time.Duration(c.Server.HandlerTimeoutSecs) * time.Second
}

// HTTPRetryMax is the retry budget for outbound GitHub and LLM calls.
func (c *Config) HTTPRetryMax() int {
	if c.HTTP.RetryMax == nil {
		return 1
	}
	return *c.HTTP.RetryMax
}
