package store

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS daily_analyses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date TEXT NOT NULL UNIQUE,
	raw_candidates TEXT NOT NULL,
	analysis_json TEXT NOT NULL,
	headline TEXT NOT NULL DEFAULT '',
	pattern TEXT NOT NULL DEFAULT '',
	category_count INTEGER NOT NULL DEFAULT 0,
	repo_count INTEGER NOT NULL DEFAULT 0,
	model TEXT NOT NULL,
	tokens_used INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trending_repos (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date TEXT NOT NULL,
	repo_full_name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	language TEXT NOT NULL DEFAULT '',
	stars INTEGER NOT NULL DEFAULT 0,
	forks INTEGER NOT NULL DEFAULT 0,
	url TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL,
	ai_summary TEXT NOT NULL DEFAULT '',
	significance INTEGER NOT NULL DEFAULT 0,
	is_new INTEGER NOT NULL DEFAULT 0,
	UNIQUE(date, repo_full_name)
);

CREATE TABLE IF NOT EXISTS subscribers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE,
	token TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL DEFAULT 'active',
	created_at TEXT NOT NULL,
	unsubscribed_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_trending_repos_date ON trending_repos(date);
CREATE INDEX IF NOT EXISTS idx_subscribers_status ON subscribers(status);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS daily_analyses (
	id BIGSERIAL PRIMARY KEY,
	date TEXT NOT NULL UNIQUE,
	raw_candidates TEXT NOT NULL,
	analysis_json TEXT NOT NULL,
	headline TEXT NOT NULL DEFAULT '',
	pattern TEXT NOT NULL DEFAULT '',
	category_count INTEGER NOT NULL DEFAULT 0,
	repo_count INTEGER NOT NULL DEFAULT 0,
	model TEXT NOT NULL,
	tokens_used INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trending_repos (
	id BIGSERIAL PRIMARY KEY,
	date TEXT NOT NULL,
	repo_full_name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	language TEXT NOT NULL DEFAULT '',
	stars INTEGER NOT NULL DEFAULT 0,
	forks INTEGER NOT NULL DEFAULT 0,
	url TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL,
	ai_summary TEXT NOT NULL DEFAULT '',
	significance INTEGER NOT NULL DEFAULT 0,
	is_new INTEGER NOT NULL DEFAULT 0,
	UNIQUE(date, repo_full_name)
);

CREATE TABLE IF NOT EXISTS subscribers (
	id BIGSERIAL PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	token TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL DEFAULT 'active',
	created_at TEXT NOT NULL,
	unsubscribed_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_trending_repos_date ON trending_repos(date);
CREATE INDEX IF NOT EXISTS idx_subscribers_status ON subscribers(status);
`
