package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"ENVIRONMENT", "DATABASE_URL", "PORT", "LLM_MODEL", "NEWSLETTER_CONCURRENCY"} {
		t.Setenv(key, "")
	}
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, cfg.Environment)
	assert.Equal(t, ":8787", cfg.Server.Addr)
	assert.Equal(t, "./trending-digest.db", cfg.Database.DSN)
	assert.Equal(t, "rest", cfg.GitHub.Source)
	assert.Equal(t, 30, cfg.GitHub.PerPage)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "anthropic/claude-3.5-haiku", cfg.LLM.Model)
	assert.Equal(t, 4096, cfg.LLM.MaxTokens)
	assert.Equal(t, 7, cfg.Newsletter.LookbackDays)
	assert.Equal(t, 1, cfg.Newsletter.Concurrency)
	assert.Equal(t, "0 6 * * *", cfg.Schedule.Daily)
	assert.Equal(t, "0 9 * * 1", cfg.Schedule.Weekly)
	assert.Equal(t, 1, cfg.HTTPRetryMax())
	assert.Equal(t, 60, cfg.HTTP.TimeoutSecs)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
environment: development
server:
  addr: ":9000"
  allowed_origins: ["https://a.example", "https://b.example"]
github:
  source: graphql
newsletter:
  concurrency: 4
http:
  retry_max: 0
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "graphql", cfg.GitHub.Source)
	assert.Equal(t, 4, cfg.Newsletter.Concurrency)
	assert.Equal(t, 0, cfg.HTTPRetryMax())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/digest?sslmode=disable")
	t.Setenv("GITHUB_TOKEN", "gh-token")
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("RESEND_API_KEY", "re-key")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("PORT", "8080")
	t.Setenv("SITE_NAME", "Trending Intel")

	path := writeConfig(t, `
database:
  dsn: ./file.db
site:
  name: From File
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@localhost/digest?sslmode=disable", cfg.Database.DSN)
	assert.Equal(t, "gh-token", cfg.GitHub.Token)
	assert.Equal(t, "or-key", cfg.LLM.APIKey)
	assert.Equal(t, "re-key", cfg.Newsletter.ResendAPIKey)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "Trending Intel", cfg.Site.Name)
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name           string
		content        string
		expectedErrMsg string
	}{
		{name: "bad yaml", content: "server: [", expectedErrMsg: "parse config yaml"},
		{name: "bad environment", content: "environment: staging", expectedErrMsg: "environment must be"},
		{name: "bad source", content: "github:\n  source: soap", expectedErrMsg: "github.source"},
		{name: "bad cron", content: "schedule:\n  daily: \"every day\"", expectedErrMsg: "invalid schedule.daily"},
		{name: "bad timezone", content: "schedule:\n  timezone: Mars/Base", expectedErrMsg: "invalid timezone"},
		{name: "negative retries", content: "http:\n  retry_max: -1", expectedErrMsg: "http.retry_max"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.expectedErrMsg)
		})
	}
}

func TestRequireCredentials(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.RequireLLM())
	assert.Error(t, cfg.RequireMailer())

	cfg.LLM.APIKey = "k"
	cfg.Newsletter.ResendAPIKey = "r"
	cfg.Newsletter.SenderEmail = "digest@example.com"
	assert.NoError(t, cfg.RequireLLM())
	assert.ErrorContains(t, cfg.RequireMailer(), "public_base_url")

	cfg.Newsletter.PublicBaseURL = "https://api.example"
	assert.NoError(t, cfg.RequireMailer())
}
